package rt11

import (
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/porkrind/pdpfs/block"
	pdpfserrors "github.com/porkrind/pdpfs/errors"
	"github.com/porkrind/pdpfs/radix50"
)

// FileSystem is a mounted RT-11 volume: a home block, a chain of directory
// segments, and a backing block device. Mutating operations only touch
// in-memory state and a pending block-write queue; nothing reaches the
// device until Sync.
type FileSystem struct {
	device block.Device

	home           *HomeBlock
	homeChecksumOK bool
	segments       []*DirSegment

	pendingBlocks map[int][]byte
	dirty         bool

	clock func() time.Time
}

// Mount reads the home block and directory segment chain off dev.
func Mount(dev block.Device) (*FileSystem, error) {
	homeRaw, err := dev.ReadBlock(HomeBlockNumber)
	if err != nil {
		return nil, pdpfserrors.Wrap(pdpfserrors.Io, err, "reading home block")
	}
	home, checksumOK, err := DecodeHomeBlock(homeRaw)
	if err != nil {
		return nil, err
	}
	if !checksumOK {
		logrus.Warnf("home block checksum mismatch; proceeding anyway")
	}

	fs := &FileSystem{
		device:         dev,
		home:           home,
		homeChecksumOK: checksumOK,
		pendingBlocks:  map[int][]byte{},
		clock:          time.Now,
	}
	if err := fs.loadSegments(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileSystem) loadSegments() error {
	fs.segments = nil
	firstBlock := int(fs.home.FirstDirectorySegmentBlock)
	visited := map[int]bool{}
	number := 1

	for number != 0 {
		if visited[number] {
			return pdpfserrors.New(pdpfserrors.Corruption, "directory segment chain revisits segment %d", number)
		}
		visited[number] = true

		blk := blockNumberForSegment(firstBlock, number)
		b0, err := fs.device.ReadBlock(blk)
		if err != nil {
			return pdpfserrors.Wrap(pdpfserrors.Io, err, "reading directory segment %d", number)
		}
		b1, err := fs.device.ReadBlock(blk + 1)
		if err != nil {
			return pdpfserrors.Wrap(pdpfserrors.Io, err, "reading directory segment %d", number)
		}
		raw := append(append([]byte{}, b0...), b1...)

		seg, err := decodeDirSegment(raw, number)
		if err != nil {
			return err
		}
		fs.segments = append(fs.segments, seg)
		number = int(seg.Header.NextSegment)
	}
	return nil
}

// Home returns the mounted volume's home block.
func (fs *FileSystem) Home() *HomeBlock {
	return fs.home
}

// HomeChecksumOK reports whether the home block's stored checksum matched
// what Mount computed when the volume was opened.
func (fs *FileSystem) HomeChecksumOK() bool {
	return fs.homeChecksumOK
}

// Segments returns the directory segment chain in on-disk order.
func (fs *FileSystem) Segments() []*DirSegment {
	return fs.segments
}

// IsDirty reports whether there are mutations not yet written to the device.
func (fs *FileSystem) IsDirty() bool {
	return fs.dirty
}

// Sync flushes pending data blocks, the directory segment chain, and the
// home block to the device, in that order.
func (fs *FileSystem) Sync() error {
	if !fs.dirty {
		return nil
	}

	for n, data := range fs.pendingBlocks {
		if err := fs.device.WriteBlock(n, data); err != nil {
			return pdpfserrors.Wrap(pdpfserrors.Io, err, "writing block %d", n)
		}
	}
	fs.pendingBlocks = map[int][]byte{}

	firstBlock := int(fs.home.FirstDirectorySegmentBlock)
	for _, seg := range fs.segments {
		raw, err := seg.encode()
		if err != nil {
			return err
		}
		blk := blockNumberForSegment(firstBlock, seg.Number)
		if err := fs.device.WriteBlock(blk, raw[:512]); err != nil {
			return pdpfserrors.Wrap(pdpfserrors.Io, err, "writing directory segment %d", seg.Number)
		}
		if err := fs.device.WriteBlock(blk+1, raw[512:]); err != nil {
			return pdpfserrors.Wrap(pdpfserrors.Io, err, "writing directory segment %d", seg.Number)
		}
	}

	homeRaw, err := fs.home.Encode()
	if err != nil {
		return err
	}
	if err := fs.device.WriteBlock(HomeBlockNumber, homeRaw); err != nil {
		return pdpfserrors.Wrap(pdpfserrors.Io, err, "writing home block")
	}

	fs.dirty = false
	return nil
}

func (fs *FileSystem) markDirty() {
	fs.dirty = true
}

func (fs *FileSystem) readDataBlock(n int) ([]byte, error) {
	if data, ok := fs.pendingBlocks[n]; ok {
		return data, nil
	}
	return fs.device.ReadBlock(n)
}

func (fs *FileSystem) writeDataBlock(n int, data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)
	fs.pendingBlocks[n] = buf
}

// entryLocation identifies a directory entry by its position in the chain.
type entryLocation struct {
	segmentIndex int
	entryIndex   int
}

func (fs *FileSystem) find(name string) (entryLocation, *DirEntry, bool) {
	stem, ext := splitNameExt(strings.ToUpper(name))
	for si, seg := range fs.segments {
		for ei, e := range seg.Entries {
			if e.Kind == KindEmpty {
				continue
			}
			if e.Name == stem && e.Ext == ext {
				return entryLocation{si, ei}, e, true
			}
		}
	}
	return entryLocation{}, nil, false
}

// Enumerate lists directory entries in on-disk order. Tentative entries are
// included only if includeNonPermanent is set.
func (fs *FileSystem) Enumerate(includeNonPermanent bool) []*DirEntry {
	var out []*DirEntry
	for _, seg := range fs.segments {
		for _, e := range seg.Entries {
			switch e.Kind {
			case KindPermanent:
				out = append(out, e)
			case KindTentative:
				if includeNonPermanent {
					out = append(out, e)
				}
			}
		}
	}
	return out
}

// Stat returns the directory entry for name, or a NotFound error.
func (fs *FileSystem) Stat(name string) (*DirEntry, error) {
	_, e, ok := fs.find(name)
	if !ok {
		return nil, pdpfserrors.New(pdpfserrors.NotFound, "%s: no such file", name)
	}
	return e, nil
}

func validateName(name string) (stem, ext string, err error) {
	stem, ext = splitNameExt(strings.ToUpper(name))
	if _, err := radix50.EncodeName(stem, ext); err != nil {
		return "", "", err
	}
	return stem, ext, nil
}

// Remove deletes name's directory entry, coalescing it with any adjacent
// Empty entries within the same segment. Coalescing never crosses a
// segment boundary.
func (fs *FileSystem) Remove(name string) error {
	loc, _, ok := fs.find(name)
	if !ok {
		return pdpfserrors.New(pdpfserrors.NotFound, "%s: no such file", name)
	}
	seg := fs.segments[loc.segmentIndex]
	e := seg.Entries[loc.entryIndex]
	e.Kind = KindEmpty
	e.Name = ""
	e.Ext = ""
	e.PreAllocated = false
	e.Protected = false
	e.JobChannel = 0
	e.CreationDate = time.Time{}
	e.Extra = nil

	fs.coalesce(seg)
	fs.markDirty()
	return nil
}

// coalesce merges every run of adjacent Empty entries within seg into one.
func (fs *FileSystem) coalesce(seg *DirSegment) {
	merged := seg.Entries[:0]
	for _, e := range seg.Entries {
		if e.Kind == KindEmpty && len(merged) > 0 && merged[len(merged)-1].Kind == KindEmpty {
			merged[len(merged)-1].Length += e.Length
			continue
		}
		merged = append(merged, e)
	}
	seg.Entries = merged
}

// Rename changes src's name to dest. If dest already exists, it's only
// replaced when overwrite is true. PreAllocated and Protected flags survive
// the rename.
func (fs *FileSystem) Rename(src, dest string, overwrite bool) error {
	srcLoc, srcEntry, ok := fs.find(src)
	if !ok {
		return pdpfserrors.New(pdpfserrors.NotFound, "%s: no such file", src)
	}
	stem, ext, err := validateName(dest)
	if err != nil {
		return err
	}
	if destLoc, _, exists := fs.find(dest); exists {
		if destLoc == srcLoc {
			// Renaming a file to its own name is a no-op, not a conflict.
			return nil
		}
		if !overwrite {
			return pdpfserrors.New(pdpfserrors.Exists, "%s: already exists", dest)
		}
		if err := fs.removeAt(destLoc); err != nil {
			return err
		}
		// removeAt may have shifted srcLoc if it coalesced entries
		// ahead of it; re-resolve it by name.
		srcLoc, srcEntry, ok = fs.find(src)
		if !ok {
			return pdpfserrors.New(pdpfserrors.Corruption, "%s vanished during rename", src)
		}
	}
	srcEntry.Name = stem
	srcEntry.Ext = ext
	fs.markDirty()
	return nil
}

func (fs *FileSystem) removeAt(loc entryLocation) error {
	seg := fs.segments[loc.segmentIndex]
	e := seg.Entries[loc.entryIndex]
	e.Kind = KindEmpty
	e.Name = ""
	e.Ext = ""
	e.PreAllocated = false
	e.Protected = false
	e.Extra = nil
	fs.coalesce(seg)
	fs.markDirty()
	return nil
}

// Extract reads a permanent or tentative file's content.
func (fs *FileSystem) Extract(name string) ([]byte, error) {
	_, e, ok := fs.find(name)
	if !ok {
		return nil, pdpfserrors.New(pdpfserrors.NotFound, "%s: no such file", name)
	}
	out := make([]byte, 0, e.Length*block.BlockSize)
	for b := e.StartBlock; b < e.StartBlock+e.Length; b++ {
		data, err := fs.readDataBlock(b)
		if err != nil {
			return nil, pdpfserrors.Wrap(pdpfserrors.Io, err, "reading block %d of %s", b, name)
		}
		out = append(out, data...)
	}
	return out, nil
}

func blocksNeeded(size int) int {
	return (size + block.BlockSize - 1) / block.BlockSize
}

// Insert writes data as a new permanent file named name, overwriting any
// existing entry of the same name.
func (fs *FileSystem) Insert(name string, data []byte) error {
	stem, ext, err := validateName(name)
	if err != nil {
		return err
	}
	if _, _, exists := fs.find(name); exists {
		if err := fs.Remove(name); err != nil {
			return err
		}
	}

	needed := blocksNeeded(len(data))
	si, ei, err := fs.findFreeSpace(needed)
	if err != nil {
		return err
	}

	seg := fs.segments[si]
	empty := seg.Entries[ei]
	startBlock := empty.StartBlock

	newEntry := &DirEntry{
		Kind:         KindPermanent,
		Name:         stem,
		Ext:          ext,
		Length:       needed,
		CreationDate: fs.today(),
		StartBlock:   startBlock,
	}

	if empty.Length == needed {
		seg.Entries[ei] = newEntry
	} else {
		remainder := &DirEntry{
			Kind:       KindEmpty,
			Length:     empty.Length - needed,
			StartBlock: startBlock + needed,
		}
		seg.Entries[ei] = newEntry
		seg.Entries = append(seg.Entries[:ei+1], append([]*DirEntry{remainder}, seg.Entries[ei+1:]...)...)
	}

	if len(seg.Entries) > MaxEntriesPerSegment(int(seg.Header.ExtraBytesPerEntry)) {
		if err := fs.splitSegment(si); err != nil {
			return err
		}
	}

	for i := 0; i < needed; i++ {
		buf := make([]byte, 512)
		lo := i * 512
		hi := lo + 512
		if hi > len(data) {
			hi = len(data)
		}
		if lo < len(data) {
			copy(buf, data[lo:hi])
		}
		fs.writeDataBlock(startBlock+i, buf)
	}

	fs.markDirty()
	return nil
}

// today returns the timestamp Insert stamps onto new entries, via fs.clock
// so tests can pin it to a fixed date instead of the real wall clock.
func (fs *FileSystem) today() time.Time {
	return fs.clock().UTC()
}

// findFreeSpace locates the first Empty entry at least `needed` blocks long,
// scanning segments in chain order.
func (fs *FileSystem) findFreeSpace(needed int) (segmentIndex, entryIndex int, err error) {
	for si, seg := range fs.segments {
		for ei, e := range seg.Entries {
			if e.Kind == KindEmpty && e.Length >= needed {
				return si, ei, nil
			}
		}
	}
	return 0, 0, pdpfserrors.New(pdpfserrors.NoSpace, "no free region of at least %d blocks", needed)
}

// splitSegment moves the trailing half of segment fs.segments[idx]'s entries
// into a newly allocated segment, if that segment has overflowed its
// capacity.
func (fs *FileSystem) splitSegment(idx int) error {
	seg := fs.segments[idx]
	capacity := MaxEntriesPerSegment(int(seg.Header.ExtraBytesPerEntry))
	if len(seg.Entries) <= capacity {
		return nil
	}

	newNumber, err := fs.allocateSegmentNumber()
	if err != nil {
		return err
	}

	mid := len(seg.Entries) / 2
	moved := seg.Entries[mid:]
	seg.Entries = seg.Entries[:mid]

	newSeg := &DirSegment{
		Number: newNumber,
		Header: DirSegmentHeader{
			TotalSegments:       seg.Header.TotalSegments,
			NextSegment:         seg.Header.NextSegment,
			HighestSegmentInUse: seg.Header.HighestSegmentInUse,
			ExtraBytesPerEntry:  seg.Header.ExtraBytesPerEntry,
			DataBlockStart:      uint16(moved[0].StartBlock),
		},
		Entries: moved,
	}
	seg.Header.NextSegment = uint16(newNumber)

	if newNumber > int(seg.Header.HighestSegmentInUse) {
		fs.bumpHighestSegmentInUse(newNumber)
	}

	rest := append([]*DirSegment{}, fs.segments[idx+1:]...)
	fs.segments = append(fs.segments[:idx+1], newSeg)
	fs.segments = append(fs.segments, rest...)
	return nil
}

func (fs *FileSystem) bumpHighestSegmentInUse(n int) {
	for _, seg := range fs.segments {
		if int(seg.Header.HighestSegmentInUse) < n {
			seg.Header.HighestSegmentInUse = uint16(n)
		}
	}
}

func (fs *FileSystem) usedSegmentNumbers() map[int]bool {
	used := map[int]bool{}
	for _, s := range fs.segments {
		used[s.Number] = true
	}
	return used
}

func (fs *FileSystem) totalSegments() int {
	if len(fs.segments) == 0 {
		return 0
	}
	return int(fs.segments[0].Header.TotalSegments)
}

func (fs *FileSystem) allocateSegmentNumber() (int, error) {
	used := fs.usedSegmentNumbers()
	for n := 1; n <= fs.totalSegments(); n++ {
		if !used[n] {
			return n, nil
		}
	}
	return 0, pdpfserrors.New(pdpfserrors.DirectoryFull, "no unused directory segment slots remain (all %d are in use)", fs.totalSegments())
}

// Validate checks the directory structure's invariants: no two permanent or
// tentative entries may name the same file, entry lengths must be
// non-negative, every segment's entry count must fit within its capacity,
// and (via checkBlockCoverage) no block may be claimed twice, lie outside
// the device, or be left unclaimed in the data area. It aggregates every
// violation it finds rather than stopping at the first.
func (fs *FileSystem) Validate() error {
	var result *multierror.Error
	seen := map[string]bool{}

	for _, seg := range fs.segments {
		if len(seg.Entries) > MaxEntriesPerSegment(int(seg.Header.ExtraBytesPerEntry)) {
			result = multierror.Append(result, pdpfserrors.New(pdpfserrors.Corruption,
				"segment %d has %d entries, more than its capacity of %d", seg.Number, len(seg.Entries), MaxEntriesPerSegment(int(seg.Header.ExtraBytesPerEntry))))
		}
		for _, e := range seg.Entries {
			if e.Length < 0 {
				result = multierror.Append(result, pdpfserrors.New(pdpfserrors.Corruption, "entry %q has negative length", e.FullName()))
			}
			if e.Kind == KindEmpty {
				continue
			}
			key := e.FullName()
			if seen[key] {
				result = multierror.Append(result, pdpfserrors.New(pdpfserrors.Corruption, "duplicate directory entry %q", key))
			}
			seen[key] = true
		}
	}

	for _, v := range fs.checkBlockCoverage() {
		result = multierror.Append(result, v)
	}

	if result == nil {
		return nil
	}
	return pdpfserrors.Corrupted(result.Errors...)
}
