package segheap

import "github.com/pkg/errors"

// ErrOutOfMemory is the Cause of any error returned when the brk
// collaborator cannot grant more address space.
var ErrOutOfMemory = errors.New("segheap: out of memory")

// ErrArenaTooSmall is the Cause of the error Init returns when the
// brkSource cannot supply the sentinel words or the initial chunkSize
// extension.
var ErrArenaTooSmall = errors.New("segheap: arena reservation too small")

// ErrCorruptHeap is the Cause of the error CheckErr returns when an
// invariant has been violated; the accompanying message lists the
// specific invariants that failed.
var ErrCorruptHeap = errors.New("segheap: heap consistency check failed")
