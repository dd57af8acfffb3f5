package rt11

import (
	"time"

	"github.com/porkrind/pdpfs/block"
	pdpfserrors "github.com/porkrind/pdpfs/errors"
)

const maxDirectorySegments = 31

// Format writes a fresh RT-11 volume to dev: a zeroed device, a home block,
// and a single directory segment whose one Empty entry spans every data
// block. volumeID, ownerName, systemID, and systemVersion are optional
// overrides of NewHomeBlock's defaults; pass "" to keep the default.
func Format(dev block.Device, volumeID, ownerName, systemID, systemVersion string) (*FileSystem, error) {
	totalBlocks := dev.BlockCount()
	zero := make([]byte, 512)
	for b := 0; b < totalBlocks; b++ {
		if err := dev.WriteBlock(b, zero); err != nil {
			return nil, pdpfserrors.Wrap(pdpfserrors.Io, err, "zeroing block %d", b)
		}
	}

	totalSegments := totalBlocks / 100
	if totalBlocks == block.RX01LogicalBlocks {
		totalSegments = 4
	}
	if totalSegments < 1 {
		totalSegments = 1
	}
	if totalSegments > maxDirectorySegments {
		totalSegments = maxDirectorySegments
	}

	home := NewHomeBlock()
	if volumeID != "" {
		home.VolumeID = volumeID
	}
	if ownerName != "" {
		home.OwnerName = ownerName
	}
	if systemID != "" {
		home.SystemID = systemID
	}
	if systemVersion != "" {
		home.SystemVersion = systemVersion
	}

	firstSegBlock := int(home.FirstDirectorySegmentBlock)
	dataStart := firstSegBlock + totalSegments*segmentBlocks
	if dataStart >= totalBlocks {
		return nil, pdpfserrors.New(pdpfserrors.GeometryMismatch, "device has only %d blocks, not enough for %d directory segments starting at block %d", totalBlocks, totalSegments, firstSegBlock)
	}

	seg := &DirSegment{
		Number: 1,
		Header: DirSegmentHeader{
			TotalSegments:       uint16(totalSegments),
			NextSegment:         0,
			HighestSegmentInUse: 1,
			ExtraBytesPerEntry:  0,
			DataBlockStart:      uint16(dataStart),
		},
		Entries: []*DirEntry{
			{Kind: KindEmpty, Length: totalBlocks - dataStart, StartBlock: dataStart},
		},
	}

	fs := &FileSystem{
		device:         dev,
		home:           home,
		homeChecksumOK: true,
		segments:       []*DirSegment{seg},
		pendingBlocks:  map[int][]byte{},
		clock:          time.Now,
	}
	fs.markDirty()
	if err := fs.Sync(); err != nil {
		return nil, err
	}
	return fs, nil
}
