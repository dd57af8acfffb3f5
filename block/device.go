package block

import (
	pdpfserrors "github.com/porkrind/pdpfs/errors"
)

// Device is the pure "read/write block N" interface upstream (the RT-11
// filesystem engine) sees. Block numbers are 512-byte logical blocks,
// independent of the backing device's physical sector size.
type Device interface {
	BlockCount() int
	ReadBlock(n int) ([]byte, error)
	WriteBlock(n int, data []byte) error
}

// NewDevice wraps a Container in the Device implementation matching its
// geometry.
func NewDevice(c *Container) (Device, error) {
	switch {
	case c.Geometry.IsRX01():
		return &rx01Device{container: c}, nil
	case c.Geometry.SectorSizeBytes == BlockSize && c.Geometry.SectorsPerTrack == 1:
		return &flatDevice{container: c}, nil
	default:
		return nil, pdpfserrors.New(pdpfserrors.GeometryMismatch,
			"no block device implementation for geometry %+v", c.Geometry)
	}
}

func checkBlockRange(n, count int) error {
	if n < 0 || n >= count {
		return pdpfserrors.New(pdpfserrors.GeometryMismatch, "block %d out of range [0, %d)", n, count)
	}
	return nil
}

// rx01Device translates 512-byte logical blocks into four 128-byte physical
// sectors apiece, applying the RX01 interleave/skew and the track-0 boot
// area offset.
type rx01Device struct {
	container *Container
}

func (d *rx01Device) BlockCount() int {
	return RX01LogicalBlocks
}

func (d *rx01Device) ReadBlock(n int) ([]byte, error) {
	if err := checkBlockRange(n, d.BlockCount()); err != nil {
		return nil, err
	}
	out := make([]byte, BlockSize)
	first := rx01LogicalBlockToGlobalSector(n)
	for q := 0; q < 4; q++ {
		track, sector := rx01GlobalSectorToPhysical(first + q)
		copy(out[q*128:(q+1)*128], d.container.SectorBytes(track, sector))
	}
	return out, nil
}

func (d *rx01Device) WriteBlock(n int, data []byte) error {
	if err := checkBlockRange(n, d.BlockCount()); err != nil {
		return err
	}
	if len(data) != BlockSize {
		return pdpfserrors.New(pdpfserrors.GeometryMismatch, "block write must be exactly %d bytes, got %d", BlockSize, len(data))
	}
	first := rx01LogicalBlockToGlobalSector(n)
	for q := 0; q < 4; q++ {
		track, sector := rx01GlobalSectorToPhysical(first + q)
		copy(d.container.SectorBytes(track, sector), data[q*128:(q+1)*128])
	}
	return nil
}

// flatDevice is the identity mapping: logical block N is bytes
// [N*512, N*512+512) of the container buffer.
type flatDevice struct {
	container *Container
}

func (d *flatDevice) BlockCount() int {
	return len(d.container.Buffer) / BlockSize
}

func (d *flatDevice) ReadBlock(n int) ([]byte, error) {
	if err := checkBlockRange(n, d.BlockCount()); err != nil {
		return nil, err
	}
	out := make([]byte, BlockSize)
	copy(out, d.container.Buffer[n*BlockSize:(n+1)*BlockSize])
	return out, nil
}

func (d *flatDevice) WriteBlock(n int, data []byte) error {
	if err := checkBlockRange(n, d.BlockCount()); err != nil {
		return err
	}
	if len(data) != BlockSize {
		return pdpfserrors.New(pdpfserrors.GeometryMismatch, "block write must be exactly %d bytes, got %d", BlockSize, len(data))
	}
	copy(d.container.Buffer[n*BlockSize:(n+1)*BlockSize], data)
	return nil
}
