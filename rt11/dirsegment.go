package rt11

import (
	"encoding/binary"

	pdpfserrors "github.com/porkrind/pdpfs/errors"
)

const (
	segmentBlocks     = 2
	segmentBytes      = segmentBlocks * 512
	segmentHeaderSize = 10
)

// DirSegmentHeader is the 10-byte header at the start of every directory
// segment.
type DirSegmentHeader struct {
	TotalSegments        uint16 // segments allocated for the whole chain, fixed at format time
	NextSegment          uint16 // 1-based index of the next segment, 0 if this is the last
	HighestSegmentInUse  uint16 // highest segment number any monitor has ever written to
	ExtraBytesPerEntry   uint16
	DataBlockStart       uint16 // block number where this segment's files begin
}

// DirSegment is one 1024-byte directory segment: its header plus the
// entries preceding the end-of-segment marker.
type DirSegment struct {
	Header  DirSegmentHeader
	Entries []*DirEntry

	// Number is this segment's 1-based position in the chain, not part of
	// the on-disk structure.
	Number int
}

// MaxEntriesPerSegment returns how many directory entries fit in a segment
// before the end-of-segment marker, given extraBytesPerEntry. This is one
// fewer than a naive byte-budget division would allow: the last entry slot
// is always left free so the end-of-segment marker never has to compete
// with a real entry for room, the same margin RT-11 itself reserves.
func MaxEntriesPerSegment(extraBytesPerEntry int) int {
	entrySize := baseEntrySize + extraBytesPerEntry
	return (segmentBytes-segmentHeaderSize)/entrySize - 1
}

func decodeDirSegment(raw []byte, number int) (*DirSegment, error) {
	if len(raw) != segmentBytes {
		return nil, pdpfserrors.New(pdpfserrors.Corruption, "directory segment must be %d bytes, got %d", segmentBytes, len(raw))
	}

	seg := &DirSegment{Number: number}
	seg.Header = DirSegmentHeader{
		TotalSegments:       binary.LittleEndian.Uint16(raw[0:2]),
		NextSegment:         binary.LittleEndian.Uint16(raw[2:4]),
		HighestSegmentInUse: binary.LittleEndian.Uint16(raw[4:6]),
		ExtraBytesPerEntry:  binary.LittleEndian.Uint16(raw[6:8]),
		DataBlockStart:      binary.LittleEndian.Uint16(raw[8:10]),
	}

	extra := int(seg.Header.ExtraBytesPerEntry)
	entrySize := baseEntrySize + extra
	pos := segmentHeaderSize
	startBlock := int(seg.Header.DataBlockStart)

	for pos+2 <= len(raw) {
		status := Status(binary.LittleEndian.Uint16(raw[pos : pos+2]))
		if status&StatusEndOfSegment != 0 {
			break
		}
		if pos+entrySize > len(raw) {
			return nil, pdpfserrors.New(pdpfserrors.Corruption, "directory entry at offset %d runs past the end of its segment", pos)
		}
		entry, err := decodeDirEntry(raw[pos:pos+entrySize], extra, startBlock)
		if err != nil {
			return nil, err
		}
		seg.Entries = append(seg.Entries, entry)
		startBlock += entry.Length
		pos += entrySize
	}

	return seg, nil
}

// encode serializes a segment's header, entries, and end-of-segment marker
// into exactly segmentBytes bytes. The caller is responsible for ensuring
// len(Entries) doesn't exceed MaxEntriesPerSegment(ExtraBytesPerEntry).
func (seg *DirSegment) encode() ([]byte, error) {
	extra := int(seg.Header.ExtraBytesPerEntry)
	entrySize := baseEntrySize + extra
	if len(seg.Entries) > MaxEntriesPerSegment(extra) {
		return nil, pdpfserrors.New(pdpfserrors.DirectoryFull, "%d entries won't fit in one segment (max %d)", len(seg.Entries), MaxEntriesPerSegment(extra))
	}

	out := make([]byte, segmentBytes)
	binary.LittleEndian.PutUint16(out[0:2], seg.Header.TotalSegments)
	binary.LittleEndian.PutUint16(out[2:4], seg.Header.NextSegment)
	binary.LittleEndian.PutUint16(out[4:6], seg.Header.HighestSegmentInUse)
	binary.LittleEndian.PutUint16(out[6:8], seg.Header.ExtraBytesPerEntry)
	binary.LittleEndian.PutUint16(out[8:10], seg.Header.DataBlockStart)

	pos := segmentHeaderSize
	for _, e := range seg.Entries {
		raw, err := e.encode(extra)
		if err != nil {
			return nil, err
		}
		copy(out[pos:pos+entrySize], raw)
		pos += entrySize
	}
	binary.LittleEndian.PutUint16(out[pos:pos+2], uint16(StatusEndOfSegment))
	return out, nil
}

// blockNumberForSegment converts a 1-based segment number into its starting
// logical block, given the chain's first segment block (from the home
// block).
func blockNumberForSegment(firstSegmentBlock, number int) int {
	return firstSegmentBlock + (number-1)*segmentBlocks
}
