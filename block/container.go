package block

import (
	"github.com/noxer/bytewriter"
	pdpfserrors "github.com/porkrind/pdpfs/errors"
)

// Kind identifies an image container's on-disk serialization: a flat
// sector-dumped image, or an ImageDisk (IMD) record stream. It only affects
// how bytes are read from / written to a host path, never what they mean.
type Kind int

const (
	Flat Kind = iota
	Imd
)

func (k Kind) String() string {
	if k == Imd {
		return "imd"
	}
	return "img"
}

// Container owns the raw byte buffer of a disk image. The buffer is always
// kept in canonical (track, sector)-ordered form regardless of which
// container format it was loaded from.
type Container struct {
	Buffer   []byte
	Kind     Kind
	Geometry Geometry
}

const oneMiB = 1 << 20

// Sniff identifies which container format data is in. A file whose first
// three bytes are ASCII "IMD" is an IMD container; anything else is flat.
func Sniff(data []byte) Kind {
	if len(data) >= 3 && string(data[:3]) == "IMD" {
		return Imd
	}
	return Flat
}

// Load parses container bytes into a Container, inferring geometry from the
// IMD track headers (for IMD) or from the file size (for flat: either the
// exact RX01 floppy size, or any multiple of 512 bytes at least 1 MiB).
func Load(data []byte) (*Container, error) {
	if Sniff(data) == Imd {
		return loadIMD(data)
	}
	return loadFlat(data)
}

func loadFlat(data []byte) (*Container, error) {
	var geometry Geometry
	switch {
	case len(data) == RX01Geometry().TotalBytes():
		geometry = RX01Geometry()
	case len(data) >= oneMiB && len(data)%BlockSize == 0:
		geometry = FlatHardDiskGeometry(len(data))
	default:
		return nil, pdpfserrors.New(pdpfserrors.GeometryMismatch,
			"image size %d bytes matches no supported geometry (expected %d-byte RX01 floppy or a flat device >= 1 MiB that's a multiple of %d bytes)",
			len(data), RX01Geometry().TotalBytes(), BlockSize)
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	return &Container{Buffer: buf, Kind: Flat, Geometry: geometry}, nil
}

// SectorBytes returns a mutable view onto the bytes of the given physical
// sector within the canonical buffer.
func (c *Container) SectorBytes(track, sector int) []byte {
	off := c.sectorOffset(track, sector)
	return c.Buffer[off : off+c.Geometry.SectorSizeBytes]
}

func (c *Container) sectorOffset(track, sector int) int {
	return c.Geometry.SectorSizeBytes * (track*c.Geometry.SectorsPerTrack + sector)
}

// Save serializes the container's buffer into the given format.
func (c *Container) Save(kind Kind) ([]byte, error) {
	switch kind {
	case Imd:
		return c.saveIMD()
	default:
		return c.saveFlat()
	}
}

// saveFlat emits raw physical sectors in C-H-S order.
func (c *Container) saveFlat() ([]byte, error) {
	out := make([]byte, len(c.Buffer))
	w := bytewriter.New(out)
	for t := 0; t < c.Geometry.Tracks; t++ {
		for s := 0; s < c.Geometry.SectorsPerTrack; s++ {
			if _, err := w.Write(c.SectorBytes(t, s)); err != nil {
				return nil, pdpfserrors.Wrap(pdpfserrors.Io, err, "writing track %d sector %d", t, s)
			}
		}
	}
	return out, nil
}

// Convert re-serializes the container's buffer as a different Kind, without
// changing the in-memory Container itself.
func (c *Container) Convert(kind Kind) ([]byte, error) {
	return c.Save(kind)
}
