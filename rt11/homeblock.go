package rt11

import (
	"encoding/binary"
	"strings"

	pdpfserrors "github.com/porkrind/pdpfs/errors"
	"github.com/porkrind/pdpfs/radix50"
)

const (
	HomeBlockNumber = 1
	homeBlockSize   = 512

	offClusterSize       = 468
	offFirstDirSegBlock  = 470
	offSystemVersionWord = 472
	offVolumeID          = 474
	offOwnerName         = 486
	offSystemID          = 498
	offChecksum          = 510
)

// HomeBlock is logical block 1: cluster size, the head of the directory
// segment chain, and a few identifying strings. Everything outside the
// fields this package interprets (the bad block replacement table, the
// init/restore area, the BUP information area, and the unlabeled reserved
// span) is preserved verbatim in Raw across a decode/encode round trip.
type HomeBlock struct {
	Raw [homeBlockSize]byte

	ClusterSize                uint16
	FirstDirectorySegmentBlock uint16
	SystemVersion              string // exactly 3 chars, e.g. "V3A"
	VolumeID                   string // up to 12 chars
	OwnerName                  string // up to 12 chars
	SystemID                   string // up to 12 chars
}

// NewHomeBlock returns the home block format() stamps onto a freshly
// initialized volume.
func NewHomeBlock() *HomeBlock {
	return &HomeBlock{
		ClusterSize:                1,
		FirstDirectorySegmentBlock: 6,
		SystemVersion:              "V3A",
		VolumeID:                   "RT11A",
		OwnerName:                  "",
		SystemID:                   "DECRT11A",
	}
}

// homeBlockChecksum sums the first 255 little-endian words of the block
// (everything before the checksum slot itself) with 16-bit wraparound.
func homeBlockChecksum(raw []byte) uint16 {
	var sum uint16
	for i := 0; i+1 < offChecksum; i += 2 {
		sum += binary.LittleEndian.Uint16(raw[i : i+2])
	}
	return sum
}

// DecodeHomeBlock parses a 512-byte home block. checksumOK reports whether
// the stored checksum matches; a mismatch is never fatal, only a signal
// worth logging, since plenty of RT-11 images in the wild carry stale
// checksums.
func DecodeHomeBlock(raw []byte) (*HomeBlock, bool, error) {
	if len(raw) != homeBlockSize {
		return nil, false, pdpfserrors.New(pdpfserrors.Corruption, "home block must be exactly %d bytes, got %d", homeBlockSize, len(raw))
	}

	hb := &HomeBlock{}
	copy(hb.Raw[:], raw)

	hb.ClusterSize = binary.LittleEndian.Uint16(raw[offClusterSize : offClusterSize+2])
	if hb.ClusterSize != 1 {
		return nil, false, pdpfserrors.New(pdpfserrors.GeometryMismatch, "cluster size %d is not supported (only 1 is)", hb.ClusterSize)
	}
	hb.FirstDirectorySegmentBlock = binary.LittleEndian.Uint16(raw[offFirstDirSegBlock : offFirstDirSegBlock+2])

	versionWord := binary.LittleEndian.Uint16(raw[offSystemVersionWord : offSystemVersionWord+2])
	version, err := radix50.DecodeWord(versionWord)
	if err != nil {
		return nil, false, err
	}
	hb.SystemVersion = version

	hb.VolumeID = strings.TrimRight(string(raw[offVolumeID:offVolumeID+12]), " \x00")
	hb.OwnerName = strings.TrimRight(string(raw[offOwnerName:offOwnerName+12]), " \x00")
	hb.SystemID = strings.TrimRight(string(raw[offSystemID:offSystemID+12]), " \x00")

	computed := homeBlockChecksum(raw)
	stored := binary.LittleEndian.Uint16(raw[offChecksum : offChecksum+2])
	return hb, computed == stored, nil
}

func padField(s string, n int) string {
	if len(s) > n {
		s = s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}

// Encode serializes the home block. Every field named above is (re)written
// from the struct; everything else in Raw is preserved verbatim. The
// checksum is always recomputed, never copied from Raw.
func (hb *HomeBlock) Encode() ([]byte, error) {
	out := make([]byte, homeBlockSize)
	copy(out, hb.Raw[:])

	binary.LittleEndian.PutUint16(out[offClusterSize:offClusterSize+2], hb.ClusterSize)
	binary.LittleEndian.PutUint16(out[offFirstDirSegBlock:offFirstDirSegBlock+2], hb.FirstDirectorySegmentBlock)

	versionWord, err := radix50.EncodeWord(padField(hb.SystemVersion, 3))
	if err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint16(out[offSystemVersionWord:offSystemVersionWord+2], versionWord)

	copy(out[offVolumeID:offVolumeID+12], padField(hb.VolumeID, 12))
	copy(out[offOwnerName:offOwnerName+12], padField(hb.OwnerName, 12))
	copy(out[offSystemID:offSystemID+12], padField(hb.SystemID, 12))

	checksum := homeBlockChecksum(out)
	binary.LittleEndian.PutUint16(out[offChecksum:offChecksum+2], checksum)

	return out, nil
}
