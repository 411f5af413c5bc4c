package segheap

// coalesce merges block — already marked free but not yet linked into any
// segregated list — with whichever of its immediate neighbors are also
// free, removing the merged-away neighbor(s) from their lists. Returns the
// (possibly relocated, when the previous block absorbs block) head of the
// merged region. The caller owns inserting the result into the index.
func (a *Allocator) coalesce(block uintptr) uintptr {
	m := a.src.bytes()

	prevAlloc := m.blockPrevAlloc(block)
	size := m.blockSize(block)
	next := nextBlock(block, size)
	nextAlloc := m.blockAlloc(next)

	switch {
	case prevAlloc && nextAlloc:
		// Case 1: both neighbors allocated, nothing to merge.
	case prevAlloc && !nextAlloc:
		// Case 2: absorb the following free block.
		a.lists.remove(m, next)
		size += m.blockSize(next)
		m.writeBlock(block, size, false, true)
	case !prevAlloc && nextAlloc:
		// Case 3: absorb into the preceding free block.
		prev, _ := m.prevBlock(block) // prevAlloc==false guarantees prev exists and is free
		a.lists.remove(m, prev)
		size += m.blockSize(prev)
		m.writeBlock(prev, size, false, m.blockPrevAlloc(prev))
		block = prev
	default:
		// Case 4: both neighbors free, absorb both.
		prev, _ := m.prevBlock(block)
		a.lists.remove(m, prev)
		a.lists.remove(m, next)
		size += m.blockSize(prev) + m.blockSize(next)
		m.writeBlock(prev, size, false, m.blockPrevAlloc(prev))
		block = prev
	}

	m.updateNextPrevAlloc(block, false)
	return block
}

// split carves an asize-byte allocated block out of the low end of the
// free block at block, which must currently be linked in its size class's
// list. When the remainder is at least minBlock bytes it becomes a new
// free block in its own size class; otherwise block is allocated at its
// full size (internal fragmentation).
func (a *Allocator) split(block uintptr, asize uintptr) {
	m := a.src.bytes()
	a.lists.remove(m, block)

	blockSize := m.blockSize(block)
	prevAlloc := m.blockPrevAlloc(block)

	if blockSize-asize >= minBlock {
		m.writeBlock(block, asize, true, prevAlloc)

		rem := nextBlock(block, asize)
		m.writeBlock(rem, blockSize-asize, false, true)
		a.lists.insert(m, rem)
		m.updateNextPrevAlloc(rem, false)
	} else {
		m.writeBlock(block, blockSize, true, prevAlloc)
		m.updateNextPrevAlloc(block, true)
	}
}

func maxUintptr(x, y uintptr) uintptr {
	if x > y {
		return x
	}
	return y
}

// Allocate returns the offset of a writable, 16-byte aligned region of at
// least n bytes, or (0, false) if n is zero or the heap could not be
// extended to satisfy the request. The heap is initialized lazily on the
// first call if Init has not already been called.
func (a *Allocator) Allocate(n uintptr) (uintptr, bool) {
	if !a.initialized {
		if err := a.Init(); err != nil {
			if trace {
				tracef("Allocate(%#x): lazy Init failed: %v", n, err)
			}
			return 0, false
		}
	}
	if n == 0 {
		return 0, false
	}

	asize := roundUp16(n + wordSize)

	m := a.src.bytes()
	block, ok := a.lists.findFit(m, asize)
	if !ok {
		block, ok = a.extendHeap(maxUintptr(asize, chunkSize))
		if !ok {
			return 0, false
		}
	}

	a.split(block, asize)
	a.stats.Allocations++
	if a.metrics != nil {
		a.metrics.observe(a)
	}

	p := payloadOf(block)
	if trace {
		tracef("Allocate(%#x) -> %#x", n, p)
	}
	return p, true
}

// Free releases the block backing payload offset p. p==0 is a silent
// no-op. Freeing an offset not returned by Allocate/Reallocate/
// ZeroAllocate, or already freed, is undefined, per spec.md §7.
func (a *Allocator) Free(p uintptr) {
	if p == 0 {
		return
	}
	m := a.src.bytes()
	block := p - wordSize
	size := m.blockSize(block)
	prevAlloc := m.blockPrevAlloc(block)

	m.writeBlock(block, size, false, prevAlloc)
	m.updateNextPrevAlloc(block, false)

	block = a.coalesce(block)
	a.lists.insert(m, block)
	a.stats.Frees++
	if a.metrics != nil {
		a.metrics.observe(a)
	}
	if trace {
		tracef("Free(%#x)", p)
	}
}

// Reallocate resizes the block at payload offset p to n bytes, preserving
// the first min(n, old payload size) bytes, per spec.md §4.4.
func (a *Allocator) Reallocate(p uintptr, n uintptr) (uintptr, bool) {
	if n == 0 {
		a.Free(p)
		return 0, false
	}
	if p == 0 {
		return a.Allocate(n)
	}

	q, ok := a.Allocate(n)
	if !ok {
		return 0, false
	}

	m := a.src.bytes()
	oldBlock := p - wordSize
	oldPayloadSize := m.blockSize(oldBlock) - wordSize
	copySize := n
	if oldPayloadSize < copySize {
		copySize = oldPayloadSize
	}
	copy(m[q:q+copySize], m[p:p+copySize])

	a.Free(p)
	return q, true
}

// ZeroAllocate is the segregated-fit allocator's calloc: it allocates
// room for count*size bytes and zeroes them, failing on overflow or a
// zero count.
func (a *Allocator) ZeroAllocate(count, size uintptr) (uintptr, bool) {
	if count == 0 {
		return 0, false
	}
	total := count * size
	if total/count != size {
		return 0, false // multiplication overflowed
	}

	p, ok := a.Allocate(total)
	if !ok {
		return 0, false
	}

	m := a.src.bytes()
	for i := uintptr(0); i < total; i++ {
		m[p+i] = 0
	}
	return p, true
}

// Bytes returns a writable view of the n bytes at payload offset p. The
// slice aliases the allocator's backing store directly; it must not be
// retained past the next Free/Reallocate of p.
func (a *Allocator) Bytes(p uintptr, n uintptr) []byte {
	return []byte(a.src.bytes()[p : p+n])
}
