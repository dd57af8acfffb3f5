package rt11

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirSegmentEncodeDecodeRoundTrip(t *testing.T) {
	seg := &DirSegment{
		Number: 1,
		Header: DirSegmentHeader{
			TotalSegments:       4,
			NextSegment:         0,
			HighestSegmentInUse: 1,
			ExtraBytesPerEntry:  0,
			DataBlockStart:      14,
		},
		Entries: []*DirEntry{
			{Kind: KindPermanent, Name: "A", Ext: "B", Length: 2, StartBlock: 14},
			{Kind: KindEmpty, Length: 100, StartBlock: 16},
		},
	}
	raw, err := seg.encode()
	require.NoError(t, err)
	require.Len(t, raw, segmentBytes)

	decoded, err := decodeDirSegment(raw, 1)
	require.NoError(t, err)
	require.Equal(t, seg.Header, decoded.Header)
	require.Len(t, decoded.Entries, 2)
	require.Equal(t, "A", decoded.Entries[0].Name)
	require.Equal(t, 14, decoded.Entries[0].StartBlock)
	require.Equal(t, 16, decoded.Entries[1].StartBlock)
}

func TestDirSegmentRejectsTooManyEntries(t *testing.T) {
	capacity := MaxEntriesPerSegment(0)
	entries := make([]*DirEntry, capacity+1)
	for i := range entries {
		entries[i] = &DirEntry{Kind: KindEmpty, Length: 1}
	}
	seg := &DirSegment{Header: DirSegmentHeader{}, Entries: entries}
	_, err := seg.encode()
	require.Error(t, err)
}

func TestBlockNumberForSegment(t *testing.T) {
	require.Equal(t, 6, blockNumberForSegment(6, 1))
	require.Equal(t, 8, blockNumberForSegment(6, 2))
	require.Equal(t, 10, blockNumberForSegment(6, 3))
}
