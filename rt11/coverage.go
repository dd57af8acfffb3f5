package rt11

import (
	"github.com/boljen/go-bitmap"

	pdpfserrors "github.com/porkrind/pdpfs/errors"
)

// checkBlockCoverage walks every entry across every segment and marks its
// data blocks in a bitmap sized to the device, catching two kinds of
// directory corruption that per-entry checks can't see on their own:
// two entries (of any kind) claiming the same block, and a block claimed
// by no entry at all.
func (fs *FileSystem) checkBlockCoverage() []error {
	total := fs.device.BlockCount()
	claimed := bitmap.New(total)
	var violations []error

	mark := func(e *DirEntry) {
		for b := e.StartBlock; b < e.StartBlock+e.Length; b++ {
			if b < 0 || b >= total {
				violations = append(violations, pdpfserrors.New(pdpfserrors.Corruption,
					"entry %q claims block %d, outside the device's %d blocks", e.FullName(), b, total))
				continue
			}
			if claimed.Get(b) {
				violations = append(violations, pdpfserrors.New(pdpfserrors.Corruption,
					"block %d is claimed by more than one directory entry", b))
				continue
			}
			claimed.Set(b, true)
		}
	}

	firstDataBlock := total
	for _, seg := range fs.segments {
		for _, e := range seg.Entries {
			mark(e)
			if e.StartBlock < firstDataBlock {
				firstDataBlock = e.StartBlock
			}
		}
	}

	for b := firstDataBlock; b < total; b++ {
		if !claimed.Get(b) {
			violations = append(violations, pdpfserrors.New(pdpfserrors.Corruption,
				"block %d in the data area is claimed by no directory entry", b))
		}
	}

	return violations
}
