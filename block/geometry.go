// Package block implements the image container and block device layers:
// physical-to-logical sector translation for RX01 floppies and flat
// hard-disk-style images, and the flat/IMD container formats that back them.
package block

// BlockSize is the filesystem's native addressing unit, in bytes, regardless
// of the backing device's physical sector size.
const BlockSize = 512

// rx01Interleave is the static interleave permutation RT-11 applies within
// an RX01 track, pre-skew.
var rx01Interleave = [26]int{
	0, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 22, 24,
	1, 3, 5, 7, 9, 11, 13, 15, 17, 19, 21, 23, 25,
}

// rx01TrackSkew is the per-cylinder rotational offset, in sectors, added
// atop the interleave. It's keyed on the logical cylinder (physical track
// minus the reserved track 0), not the physical track itself: RT-11's RX01
// driver computes the skew before applying the track-0 skip, then shifts
// the result onto the physical track that skip produces.
const rx01TrackSkew = 6

// Geometry describes the physical layout of a disk image: sector size and
// track/sector counts. The RX01 interleave/skew convention is not stored
// here; rx01Device applies it to any geometry for which IsRX01 holds.
type Geometry struct {
	SectorSizeBytes int
	SectorsPerTrack int
	Tracks          int
}

// TotalBytes returns the size of an image with this geometry.
func (g Geometry) TotalBytes() int {
	return g.SectorSizeBytes * g.SectorsPerTrack * g.Tracks
}

// IsRX01 reports whether g matches the RX01 floppy geometry.
func (g Geometry) IsRX01() bool {
	return g == RX01Geometry()
}

// RX01Geometry is the geometry of a standard RX01 floppy: 77 tracks of 26
// 128-byte sectors, 256,256 bytes total.
func RX01Geometry() Geometry {
	return Geometry{SectorSizeBytes: 128, SectorsPerTrack: 26, Tracks: 77}
}

// FlatHardDiskGeometry describes a flat block device of the given size:
// one 512-byte "sector" per "track", with no interleave or skew.
func FlatHardDiskGeometry(totalBytes int) Geometry {
	return Geometry{SectorSizeBytes: BlockSize, SectorsPerTrack: 1, Tracks: totalBytes / BlockSize}
}

// RX01LogicalBlocks is the number of 512-byte logical blocks a block device
// layered on an RX01 image exposes: floor(2002 sectors / 4 sectors-per-block).
const RX01LogicalBlocks = (26 * 77) / 4

// rx01GlobalSectorToPhysical maps a global sector index (which may exceed
// the 2002 physical sectors and wrap, per the interleave formula) to the
// (track, sector) pair it lands on.
func rx01GlobalSectorToPhysical(globalSector int) (track, sector int) {
	track = (globalSector / 26) % 77
	cyl := (track - 1 + 77) % 77
	s0 := globalSector % 26
	preSkew := rx01Interleave[s0]
	sector = (preSkew + rx01TrackSkew*cyl) % 26
	return track, sector
}

// rx01LogicalBlockToGlobalSector returns the first of the four global sector
// indices logical block n occupies. Block 0 starts 26 sectors into the
// image, after the reserved track 0.
func rx01LogicalBlockToGlobalSector(n int) int {
	return n*4 + 26
}
