package segheap

import "github.com/pkg/errors"

// brkSource is the "extend-brk primitive" external collaborator from
// spec.md §6: something that owns a single, contiguous, monotonically
// growable backing store and hands out more of it on request. spec.md
// treats its correctness (and the alignment of the very first break) as
// assumed; this interface exists only so the placement engine above it
// can be exercised against a deterministic, OS-independent fake as well
// as the real mmap-backed implementations in brk_unix.go / brk_windows.go.
type brkSource interface {
	// bytes returns the full backing array. Only the first size() bytes
	// are live heap; the remainder is unreserved-but-mapped slack the
	// allocator has not yet broken into.
	bytes() mem

	// size returns the current break, i.e. the number of live heap
	// bytes from the start of bytes().
	size() uintptr

	// sbrk grows the live heap by delta bytes (already a positive
	// multiple of dwordSize) and returns the offset at which the new
	// region begins (== the old size()). Returns an error wrapping
	// ErrOutOfMemory if delta bytes are not available.
	sbrk(delta uintptr) (uintptr, error)
}

// boundedBrk is a brkSource over a single fixed-capacity, already fully
// allocated Go slice. It performs no syscalls at all, which makes it the
// right choice for tests, fuzzing, and any environment (WASM, a sandboxed
// plugin host) where mmap is unavailable — grounded on the teacher's own
// split between a real mmap collaborator and, implicitly, its test suite
// never touching the OS map calls directly.
type boundedBrk struct {
	buf mem
	brk uintptr
}

// newBoundedBrk allocates a heap arena of exactly capacity bytes. Init
// will fail with ErrArenaTooSmall if capacity is too small to hold the
// prologue, epilogue, and first chunkSize extension.
func newBoundedBrk(capacity uintptr) *boundedBrk {
	return &boundedBrk{buf: make(mem, capacity)}
}

func (b *boundedBrk) bytes() mem      { return b.buf }
func (b *boundedBrk) size() uintptr   { return b.brk }

func (b *boundedBrk) sbrk(delta uintptr) (uintptr, error) {
	if b.brk+delta > uintptr(len(b.buf)) {
		return 0, errors.Wrapf(ErrOutOfMemory, "bounded arena exhausted: have %d, need %d more", len(b.buf)-int(b.brk), delta)
	}
	old := b.brk
	b.brk += delta
	return old, nil
}
