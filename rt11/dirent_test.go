package rt11

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeEncodeDateRoundTrip(t *testing.T) {
	d := time.Date(1985, time.June, 17, 0, 0, 0, 0, time.UTC)
	raw, ok := EncodeDate(d)
	require.True(t, ok)

	decoded, err := DecodeDate(raw)
	require.NoError(t, err)
	require.True(t, d.Equal(decoded))
}

func TestEncodeDateZeroValueIsNoDate(t *testing.T) {
	raw, ok := EncodeDate(time.Time{})
	require.True(t, ok)
	require.EqualValues(t, 0, raw)

	decoded, err := DecodeDate(0)
	require.NoError(t, err)
	require.True(t, decoded.IsZero())
}

func TestEncodeDateOutOfRangeIsNotOK(t *testing.T) {
	_, ok := EncodeDate(time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.False(t, ok)

	_, ok = EncodeDate(time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.False(t, ok)
}

func TestDecodeDateRejectsImpossibleCalendarDate(t *testing.T) {
	// month=13 can never come from a real RT-11 write; the bit pattern is
	// still decodable arithmetically but doesn't form a calendar date.
	raw := uint16(13)<<10 | uint16(1)<<5 | uint16(0)
	_, err := DecodeDate(raw)
	require.Error(t, err)
}

func TestDirEntryEncodeDecodeRoundTrip(t *testing.T) {
	e := &DirEntry{
		Kind:         KindPermanent,
		Name:         "FOO",
		Ext:          "BAR",
		Length:       12,
		PreAllocated: true,
		Protected:    true,
		CreationDate: time.Date(1984, time.March, 4, 0, 0, 0, 0, time.UTC),
	}
	raw, err := e.encode(0)
	require.NoError(t, err)
	require.Len(t, raw, baseEntrySize)

	decoded, err := decodeDirEntry(raw, 0, 100)
	require.NoError(t, err)
	require.Equal(t, e.Kind, decoded.Kind)
	require.Equal(t, e.Name, decoded.Name)
	require.Equal(t, e.Ext, decoded.Ext)
	require.Equal(t, e.Length, decoded.Length)
	require.True(t, decoded.PreAllocated)
	require.True(t, decoded.Protected)
	require.True(t, e.CreationDate.Equal(decoded.CreationDate))
}

func TestDirEntryPreservesExtraBytes(t *testing.T) {
	e := &DirEntry{Kind: KindPermanent, Name: "X", Ext: "Y", Extra: []byte{1, 2, 3, 4}}
	raw, err := e.encode(4)
	require.NoError(t, err)
	require.Len(t, raw, baseEntrySize+4)

	decoded, err := decodeDirEntry(raw, 4, 0)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, decoded.Extra)
}

func TestDirEntryEmptyHasNoMeaningfulName(t *testing.T) {
	e := &DirEntry{Kind: KindEmpty, Length: 10}
	raw, err := e.encode(0)
	require.NoError(t, err)

	decoded, err := decodeDirEntry(raw, 0, 0)
	require.NoError(t, err)
	require.Equal(t, KindEmpty, decoded.Kind)
	require.Equal(t, 10, decoded.Length)
	require.Equal(t, "", decoded.Name)
	require.Equal(t, "", decoded.Ext)
}
