package radix50

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeWordRoundTrip(t *testing.T) {
	cases := []string{"ABC", "A1$", "   ", ".?0", "XYZ"}
	for _, c := range cases {
		w, err := EncodeWord(c)
		require.NoError(t, err)
		decoded, err := DecodeWord(w)
		require.NoError(t, err)
		require.Equal(t, c, decoded)
	}
}

func TestEncodeWordLowercase(t *testing.T) {
	w, err := EncodeWord("abc")
	require.NoError(t, err)
	upper, err := EncodeWord("ABC")
	require.NoError(t, err)
	require.Equal(t, upper, w)
}

func TestEncodeWordRejectsInvalidChar(t *testing.T) {
	_, err := EncodeWord("A#C")
	require.Error(t, err)
}

func TestEncodeWordRejectsWrongLength(t *testing.T) {
	_, err := EncodeWord("AB")
	require.Error(t, err)
}

func TestEncodeDecodeNameRoundTrip(t *testing.T) {
	words, err := EncodeName("HELLO", "TXT")
	require.NoError(t, err)
	name, err := DecodeName(words)
	require.NoError(t, err)
	require.Equal(t, "HELLO.TXT", name)
}

func TestEncodeNameShortPieces(t *testing.T) {
	words, err := EncodeName("A", "B")
	require.NoError(t, err)
	name, err := DecodeName(words)
	require.NoError(t, err)
	require.Equal(t, "A.B", name)
}

func TestEncodeNameRejectsTooLong(t *testing.T) {
	_, err := EncodeName("TOOLONGG", "TXT")
	require.Error(t, err)

	_, err = EncodeName("OK", "TOOLONG")
	require.Error(t, err)
}

func TestDecodeWordCorruptionOnImpossibleValue(t *testing.T) {
	// 64000 is one past the largest value EncodeWord can ever produce
	// (39*1600 + 39*40 + 39 = 63999), so no real radix-50 triple decodes to it.
	_, err := DecodeWord(64000)
	require.Error(t, err)

	_, err = DecodeWord(63999)
	require.NoError(t, err)
}
