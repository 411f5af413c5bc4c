package segheap

import "unsafe"

// Pointer is the unsafe.Pointer-returning mirror of Bytes, matching the
// teacher's own UnsafeMalloc/UnsafeFree/UnsafeRealloc split from the
// []byte-returning Malloc/Free/Realloc family. Useful when the caller is
// already working in unsafe.Pointer terms (cgo, a custom codec) and wants
// to avoid the bounds-checked slice header.
func (a *Allocator) Pointer(p uintptr) unsafe.Pointer {
	m := a.src.bytes()
	if len(m) == 0 {
		return nil
	}
	return unsafe.Pointer(&m[p])
}
