package segheap

// numClasses is the number of segregated free-list size classes.
const numClasses = 15

// classBreaks holds the 15 lower size-class breakpoints; class i covers
// [classBreaks[i], classBreaks[i+1]), with class numClasses-1 open-ended.
// Stored as a single sorted table (per the design note in spec.md about
// the source hard-coding the table twice) so classOf and the checker's
// range test share one source of truth.
var classBreaks = [numClasses]uintptr{
	32, 64, 96, 128, 160, 192, 256, 512, 1024, 2048, 4096, 8192, 16384, 32768, 65536,
}

// classOf returns the index i such that size falls in [classBreaks[i],
// classBreaks[i+1]) (classBreaks[numClasses] is implicitly +Inf). Runs in
// O(log numClasses) via binary search over the fixed table; numClasses is
// small enough that this, a branch ladder, or a lookup table are all
// effectively O(1) in practice.
func classOf(size uintptr) int {
	lo, hi := 0, numClasses-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if classBreaks[mid] <= size {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// classRange reports the half-open [lo, hi) interval for class i. hi is 0
// to mean +Inf for the last class.
func classRange(i int) (lo, hi uintptr) {
	lo = classBreaks[i]
	if i+1 < numClasses {
		hi = classBreaks[i+1]
	}
	return lo, hi
}

// freeNext and freePrev read/write the doubly-linked free-list pointers
// overlaid on a free block's payload. A value of 0 means "no link"; offset
// 0 is never a valid block address since the prologue occupies it.
func (m mem) freeNext(block uintptr) uintptr { return uintptr(m.wordAt(payloadOf(block))) }
func (m mem) freePrev(block uintptr) uintptr { return uintptr(m.wordAt(payloadOf(block) + wordSize)) }

func (m mem) setFreeNext(block, next uintptr) { m.setWordAt(payloadOf(block), word(next)) }
func (m mem) setFreePrev(block, prev uintptr) { m.setWordAt(payloadOf(block)+wordSize, word(prev)) }

// segList is the aggregate of the 15 list heads, one per size class. A
// head of 0 means the class is empty.
type segList struct {
	heads [numClasses]uintptr
}

// insert performs FIFO insertion: block becomes the new head of its size
// class's list, so the most recently freed block of a given class is the
// first one findFit considers.
func (s *segList) insert(m mem, block uintptr) {
	size := m.blockSize(block)
	idx := classOf(size)
	old := s.heads[idx]
	m.setFreePrev(block, 0)
	m.setFreeNext(block, old)
	if old != 0 {
		m.setFreePrev(old, block)
	}
	s.heads[idx] = block
}

// remove splices block out of its size class's list. block must currently
// be a member of some free list.
func (s *segList) remove(m mem, block uintptr) {
	size := m.blockSize(block)
	idx := classOf(size)
	prev := m.freePrev(block)
	next := m.freeNext(block)
	switch {
	case prev == 0 && next == 0: // only element
		s.heads[idx] = 0
	case prev == 0 && next != 0: // head of a longer list
		s.heads[idx] = next
		m.setFreePrev(next, 0)
	case prev != 0 && next == 0: // tail
		m.setFreeNext(prev, 0)
	default: // interior
		m.setFreeNext(prev, next)
		m.setFreePrev(next, prev)
	}
}

// findFit scans classOf(asize) and every larger class in order, returning
// the first free block whose size is at least asize. Ties within a class
// resolve to FIFO list order, i.e. the most recently freed sufficiently
// large block. Returns (0, false) when no block fits.
func (s *segList) findFit(m mem, asize uintptr) (uintptr, bool) {
	for idx := classOf(asize); idx < numClasses; idx++ {
		for b := s.heads[idx]; b != 0; b = m.freeNext(b) {
			if m.blockSize(b) >= asize {
				return b, true
			}
		}
	}
	return 0, false
}

// count returns the total number of blocks linked across all 15 classes;
// used only by the consistency checker's invariant 11.
func (s *segList) count(m mem) int {
	n := 0
	for i := range s.heads {
		for b := s.heads[i]; b != 0; b = m.freeNext(b) {
			n++
		}
	}
	return n
}

// acyclic reports whether class i's list is cycle-free, via Floyd's
// tortoise and hare.
func (s *segList) acyclic(m mem, i int) bool {
	slow := s.heads[i]
	if slow == 0 {
		return true
	}
	fast := m.freeNext(slow)
	for fast != 0 && slow != fast {
		slow = m.freeNext(slow)
		fast = m.freeNext(fast)
		if fast != 0 {
			fast = m.freeNext(fast)
		}
	}
	return slow != fast
}
