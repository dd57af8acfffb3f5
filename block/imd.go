package block

import (
	"bytes"

	"github.com/sirupsen/logrus"

	pdpfserrors "github.com/porkrind/pdpfs/errors"
)

// imdBanner is the ASCII comment this tool writes into IMD files it emits.
// Real IMD files carry a timestamp here; we don't have a clock dependency
// wired into the core, so a static banner is used instead.
const imdBanner = "IMD pdpfs"

type imdSectorTag byte

const (
	imdUnavailable       imdSectorTag = 0x00
	imdNormal            imdSectorTag = 0x01
	imdCompressed        imdSectorTag = 0x02
	imdDeletedNormal     imdSectorTag = 0x03
	imdDeletedCompressed imdSectorTag = 0x04
	imdErrorNormal       imdSectorTag = 0x05
	imdErrorCompressed   imdSectorTag = 0x06
	imdDelErrNormal      imdSectorTag = 0x07
	imdDelErrCompressed  imdSectorTag = 0x08
)

func sectorSizeCode(size int) (byte, error) {
	for code := byte(0); code < 7; code++ {
		if 128<<code == size {
			return code, nil
		}
	}
	return 0, pdpfserrors.New(pdpfserrors.ImageFormat, "sector size %d isn't representable as an IMD size code", size)
}

func sectorSizeFromCode(code byte) (int, error) {
	if code > 6 {
		return 0, pdpfserrors.New(pdpfserrors.ImageFormat, "bad IMD sector size code %#02x", code)
	}
	return 128 << code, nil
}

// loadIMD decodes an ImageDisk container. Sectors are placed into the
// canonical buffer in sector-ID order (not raw physical order), so the rest
// of the block layer never has to think about IMD's per-track sector maps.
func loadIMD(data []byte) (*Container, error) {
	term := bytes.IndexByte(data, 0x1a)
	if term < 0 {
		return nil, pdpfserrors.New(pdpfserrors.ImageFormat, "IMD comment terminator (0x1a) not found")
	}
	pos := term + 1

	type decodedSector struct {
		id   byte
		data []byte
	}

	var sectorSize, sectorsPerTrack int
	var trackSectors [][]decodedSector

	for pos < len(data) {
		if pos+5 > len(data) {
			return nil, pdpfserrors.New(pdpfserrors.ImageFormat, "truncated IMD track header at offset %d", pos)
		}
		head := data[pos+2]
		sectorCount := int(data[pos+3])
		sizeCode := data[pos+4]
		pos += 5
		trackIndex := len(trackSectors)

		if head&0xc0 != 0 {
			return nil, pdpfserrors.New(pdpfserrors.ImageFormat, "IMD cylinder/head maps aren't supported at track %d", trackIndex)
		}

		thisSectorSize, err := sectorSizeFromCode(sizeCode)
		if err != nil {
			return nil, err
		}
		if trackIndex == 0 {
			sectorSize = thisSectorSize
			sectorsPerTrack = sectorCount
		}

		if pos+sectorCount > len(data) {
			return nil, pdpfserrors.New(pdpfserrors.ImageFormat, "truncated IMD sector numbering map at offset %d", pos)
		}
		sectorMap := data[pos : pos+sectorCount]
		pos += sectorCount

		sectors := make([]decodedSector, 0, sectorCount)
		for _, sectorID := range sectorMap {
			if pos >= len(data) {
				return nil, pdpfserrors.New(pdpfserrors.ImageFormat, "truncated IMD sector data in track %d", trackIndex)
			}
			tag := imdSectorTag(data[pos])
			pos++
			var sectorBytes []byte
			switch tag {
			case imdUnavailable:
				sectorBytes = make([]byte, thisSectorSize)
			case imdNormal, imdDeletedNormal, imdErrorNormal, imdDelErrNormal:
				if pos+thisSectorSize > len(data) {
					return nil, pdpfserrors.New(pdpfserrors.ImageFormat, "truncated IMD sector payload in track %d", trackIndex)
				}
				sectorBytes = data[pos : pos+thisSectorSize]
				pos += thisSectorSize
				if tag != imdNormal {
					logrus.Warnf("IMD track %d: sector %d tagged %#02x (deleted/error); read as plain data", trackIndex, sectorID, byte(tag))
				}
			case imdCompressed, imdDeletedCompressed, imdErrorCompressed, imdDelErrCompressed:
				if pos >= len(data) {
					return nil, pdpfserrors.New(pdpfserrors.ImageFormat, "truncated IMD compressed fill byte in track %d", trackIndex)
				}
				fill := data[pos]
				pos++
				sectorBytes = bytes.Repeat([]byte{fill}, thisSectorSize)
				if tag != imdCompressed {
					logrus.Warnf("IMD track %d: sector %d tagged %#02x (deleted/error); read as plain data", trackIndex, sectorID, byte(tag))
				}
			default:
				return nil, pdpfserrors.New(pdpfserrors.ImageFormat, "bad IMD sector tag %#02x in track %d", byte(tag), trackIndex)
			}
			sectors = append(sectors, decodedSector{id: sectorID, data: sectorBytes})
		}
		trackSectors = append(trackSectors, sectors)
	}

	if len(trackSectors) == 0 {
		return nil, pdpfserrors.New(pdpfserrors.ImageFormat, "IMD file has no tracks")
	}

	geometry := Geometry{SectorSizeBytes: sectorSize, SectorsPerTrack: sectorsPerTrack, Tracks: len(trackSectors)}
	canonical := make([]byte, geometry.TotalBytes())

	for trackIndex, sectors := range trackSectors {
		for _, s := range sectors {
			destOffset := sectorSize * (trackIndex*sectorsPerTrack + (int(s.id) - 1))
			copy(canonical[destOffset:destOffset+sectorSize], s.data)
		}
	}

	return &Container{Buffer: canonical, Kind: Imd, Geometry: geometry}, nil
}

// saveIMD emits an IMD container: a banner, then one track header + identity
// sector map + verbatim (tag 0x01) sectors per track. Compressed encoding is
// never emitted; it's an optional space optimization the reader must still
// accept, but the writer doesn't need it.
func (c *Container) saveIMD() ([]byte, error) {
	var out bytes.Buffer
	out.WriteString(imdBanner)
	out.WriteByte(0x1a)

	mode := byte(2) // 250 kbps FM, the RX01 convention.
	if !c.Geometry.IsRX01() {
		mode = 0
	}

	sizeCode, err := sectorSizeCode(c.Geometry.SectorSizeBytes)
	if err != nil {
		return nil, err
	}

	for t := 0; t < c.Geometry.Tracks; t++ {
		out.WriteByte(mode)
		out.WriteByte(byte(t))
		out.WriteByte(0) // head
		out.WriteByte(byte(c.Geometry.SectorsPerTrack))
		out.WriteByte(sizeCode)

		for s := 1; s <= c.Geometry.SectorsPerTrack; s++ {
			out.WriteByte(byte(s)) // identity sector numbering map
		}
		for s := 0; s < c.Geometry.SectorsPerTrack; s++ {
			out.WriteByte(byte(imdNormal))
			out.Write(c.SectorBytes(t, s))
		}
	}
	return out.Bytes(), nil
}
