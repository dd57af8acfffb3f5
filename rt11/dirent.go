package rt11

import (
	"encoding/binary"
	"time"

	pdpfserrors "github.com/porkrind/pdpfs/errors"
	"github.com/porkrind/pdpfs/radix50"
)

// baseEntrySize is the size, in bytes, of a directory entry before its
// extra_bytes_per_entry trailer.
const baseEntrySize = 14

// Status is the on-disk directory entry status bitfield.
type Status uint16

const (
	StatusPreAllocated       Status = 0x0020
	StatusTentative          Status = 0x0100
	StatusEmpty              Status = 0x0200
	StatusPermanent          Status = 0x0400
	StatusEndOfSegment       Status = 0x0800
	StatusProtectedByMonitor Status = 0x4000
)

// EntryKind is the mutually-exclusive entry state. End-of-segment markers
// aren't modeled as entries; DirSegment treats them as a sentinel that
// terminates the entry list.
type EntryKind int

const (
	KindTentative EntryKind = iota
	KindEmpty
	KindPermanent
)

func (k EntryKind) String() string {
	switch k {
	case KindTentative:
		return "Tentative"
	case KindEmpty:
		return "Empty"
	case KindPermanent:
		return "Permanent"
	default:
		return "Unknown"
	}
}

// DirEntry is the in-memory, friendly form of one directory entry.
type DirEntry struct {
	Kind         EntryKind
	PreAllocated bool
	Protected    bool
	Name         string // bare stem, no padding; meaningful for Tentative/Permanent
	Ext          string // bare extension, no padding
	Length       int    // size in 512-byte blocks
	JobChannel   uint16 // raw job/channel byte pair, preserved verbatim
	CreationDate time.Time
	Extra        []byte // extra_bytes_per_entry trailer, preserved verbatim

	// StartBlock is not part of the on-disk structure. It's computed during
	// traversal as a running sum from the segment's data_block_start.
	StartBlock int
}

// FullName returns the "NAME.EXT" form enumerate()/stat() expose.
func (e *DirEntry) FullName() string {
	if e.Ext == "" {
		return e.Name
	}
	return e.Name + "." + e.Ext
}

func splitNameExt(full string) (name, ext string) {
	for i := 0; i < len(full); i++ {
		if full[i] == '.' {
			return full[:i], full[i+1:]
		}
	}
	return full, ""
}

// decodeDirEntry decodes one non-end-of-segment directory entry. Callers
// must check the status word for StatusEndOfSegment before calling this.
func decodeDirEntry(raw []byte, extraBytes int, startBlock int) (*DirEntry, error) {
	if len(raw) < baseEntrySize+extraBytes {
		return nil, pdpfserrors.New(pdpfserrors.Corruption, "directory entry truncated: have %d bytes, need %d", len(raw), baseEntrySize+extraBytes)
	}
	status := Status(binary.LittleEndian.Uint16(raw[0:2]))
	e := &DirEntry{
		PreAllocated: status&StatusPreAllocated != 0,
		Protected:    status&StatusProtectedByMonitor != 0,
		StartBlock:   startBlock,
	}
	switch {
	case status&StatusTentative != 0:
		e.Kind = KindTentative
	case status&StatusEmpty != 0:
		e.Kind = KindEmpty
	case status&StatusPermanent != 0:
		e.Kind = KindPermanent
	default:
		return nil, pdpfserrors.New(pdpfserrors.Corruption, "directory entry has no recognized status bit set (%#06x)", uint16(status))
	}

	nameWords := [3]uint16{
		binary.LittleEndian.Uint16(raw[2:4]),
		binary.LittleEndian.Uint16(raw[4:6]),
		binary.LittleEndian.Uint16(raw[6:8]),
	}
	full, err := radix50.DecodeName(nameWords)
	if err != nil {
		return nil, err
	}
	e.Name, e.Ext = splitNameExt(full)
	e.Length = int(binary.LittleEndian.Uint16(raw[8:10]))
	e.JobChannel = binary.LittleEndian.Uint16(raw[10:12])

	date, err := DecodeDate(binary.LittleEndian.Uint16(raw[12:14]))
	if err != nil {
		return nil, err
	}
	e.CreationDate = date

	if extraBytes > 0 {
		e.Extra = append([]byte(nil), raw[baseEntrySize:baseEntrySize+extraBytes]...)
	}
	return e, nil
}

// encode serializes a non-end-of-segment entry into baseEntrySize+extraBytes
// bytes. Name/Ext are only written for Tentative and Permanent entries;
// Empty entries carry no meaningful name on disk.
func (e *DirEntry) encode(extraBytes int) ([]byte, error) {
	out := make([]byte, baseEntrySize+extraBytes)

	var status Status
	switch e.Kind {
	case KindTentative:
		status = StatusTentative
	case KindPermanent:
		status = StatusPermanent
	default:
		status = StatusEmpty
	}
	if e.PreAllocated {
		status |= StatusPreAllocated
	}
	if e.Protected {
		status |= StatusProtectedByMonitor
	}
	binary.LittleEndian.PutUint16(out[0:2], uint16(status))

	var words [3]uint16
	if e.Kind == KindPermanent || e.Kind == KindTentative {
		var err error
		words, err = radix50.EncodeName(e.Name, e.Ext)
		if err != nil {
			return nil, err
		}
	}
	binary.LittleEndian.PutUint16(out[2:4], words[0])
	binary.LittleEndian.PutUint16(out[4:6], words[1])
	binary.LittleEndian.PutUint16(out[6:8], words[2])
	binary.LittleEndian.PutUint16(out[8:10], uint16(e.Length))
	binary.LittleEndian.PutUint16(out[10:12], e.JobChannel)

	dateRaw, ok := EncodeDate(e.CreationDate)
	if !ok {
		dateRaw = 0
	}
	binary.LittleEndian.PutUint16(out[12:14], dateRaw)

	copy(out[baseEntrySize:], e.Extra)
	return out, nil
}

// DecodeDate unpacks the (age<<14)|(month<<10)|(day<<5)|year_in_decade
// creation date word. Raw 0 means "no date". A day/month combination that
// can't form a real calendar date is Corruption; an overflowed age (>=2)
// is preserved bit-for-bit and decodes to whatever date results.
func DecodeDate(raw uint16) (time.Time, error) {
	if raw == 0 {
		return time.Time{}, nil
	}
	age := (raw >> 14) & 0x3
	month := (raw >> 10) & 0xf
	day := (raw >> 5) & 0x1f
	yearInDecade := raw & 0x1f
	year := 1972 + int(age)*32 + int(yearInDecade)

	t := time.Date(year, time.Month(month), int(day), 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != int(day) {
		return time.Time{}, pdpfserrors.New(pdpfserrors.Corruption,
			"packed date %#06x doesn't form a calendar date (year=%d month=%d day=%d)", raw, year, month, day)
	}
	return t, nil
}

// EncodeDate packs t into the creation date format. ok is false if t is
// outside the representable 1972..(1972+4*32) range; callers store 0
// ("no date") in that case rather than failing the whole operation.
func EncodeDate(t time.Time) (raw uint16, ok bool) {
	if t.IsZero() {
		return 0, true
	}
	yoff := t.Year() - 1972
	if yoff < 0 || yoff/32 > 3 {
		return 0, false
	}
	age := yoff / 32
	yearInDecade := yoff % 32
	return uint16(age)<<14 | uint16(t.Month())<<10 | uint16(t.Day())<<5 | uint16(yearInDecade), true
}
