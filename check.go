package segheap

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// CheckErr is Check with an error-returning signature for call sites that
// already thread errors through the stack (e.g. a startup self-test)
// rather than inspecting the bool/[]string pair directly. Wraps
// ErrCorruptHeap with the joined diagnostic lines; nil when the heap is
// consistent.
func (a *Allocator) CheckErr() error {
	ok, fails := a.Check()
	if ok {
		return nil
	}
	return errors.Wrap(ErrCorruptHeap, strings.Join(fails, "; "))
}

// Check walks the whole heap and segregated index, verifying the eleven
// invariants from spec.md §4.5/§3. It never modifies the heap image or the
// segregated index; when metrics are enabled, it adds the number of
// failing invariants to the CheckFailures counter. The bool is
// true iff every invariant held; the string slice carries one diagnostic
// line per failing invariant (empty when the bool is true).
func (a *Allocator) Check() (bool, []string) {
	if !a.initialized {
		return true, nil
	}
	m := a.src.bytes()
	var fails []string
	note := func(s string) { fails = append(fails, s) }

	if !a.checkPayloadAlign(m) {
		note("payload not aligned")
	}
	for i := 0; i < numClasses; i++ {
		if !a.lists.acyclic(m, i) {
			note(fmt.Sprintf("free list %d is cyclic", i))
		}
	}
	if !a.checkEpiPrologue(m) {
		note("bad epilogue or prologue block")
	}
	if !a.checkRange(m) {
		note("block address out of range")
	}
	if !a.checkFreeListConsistent(m) {
		note("block.next.prev != block")
	}
	if !a.checkFreeListSizeRange(m) {
		note("free block size outside its list's size class")
	}
	if !a.checkFreeListPointerRange(m) {
		note("free list pointer out of heap range")
	}
	if !a.checkHeaderFooterConsistency(m) {
		note("free block header/footer mismatch")
	}
	if !a.checkCurrNextConsistency(m) {
		note("alloc bit inconsistent with next block's prev_alloc bit")
	}
	if !a.checkNoConsecutiveFree(m) {
		note("two adjacent real blocks are both free")
	}
	if !a.checkNoBlockLoss(m) {
		note("free block count mismatch between heap walk and segregated lists")
	}

	ok := len(fails) == 0
	if !ok && a.metrics != nil {
		a.stats.CheckFailures += uint64(len(fails))
		a.metrics.observeCheckFailures(len(fails))
	}
	return ok, fails
}

// CheckLine is the spec.md §6 diagnostic entry point: it runs Check,
// passes each failing invariant, prefixed by the call-site line number, to
// the package's debug trace sink (see trace.go), and returns the bool. The
// lines reach stderr only in builds with -tags alloctrace; in default
// builds tracef is a no-op and CheckLine prints nothing.
// Diagnostic only — never called from the allocation path in production.
func (a *Allocator) CheckLine(line int) bool {
	ok, fails := a.Check()
	for _, f := range fails {
		tracef("checkheap(%d): %s", line, f)
	}
	return ok
}

func (a *Allocator) walk(m mem, visit func(block uintptr)) {
	for b := a.heapStart; m.blockSize(b) > 0; b = nextBlock(b, m.blockSize(b)) {
		visit(b)
	}
}

// Invariant 1 / invariant 2 (alignment): every allocated block's payload
// lands on a 16-byte boundary.
func (a *Allocator) checkPayloadAlign(m mem) bool {
	ok := true
	a.walk(m, func(b uintptr) {
		if m.blockAlloc(b) && payloadOf(b)%dwordSize != 0 {
			ok = false
		}
	})
	return ok
}

// Invariant 9: prologue and epilogue are both (size=0, alloc=1).
func (a *Allocator) checkEpiPrologue(m mem) bool {
	prologue := m.header(a.heapLo())
	epilogueOff := a.heapHi() - wordSize + 1
	epilogue := m.header(epilogueOff)
	return sizeOf(prologue) == 0 && allocOf(prologue) && sizeOf(epilogue) == 0 && allocOf(epilogue)
}

// Invariant 8 / 7: every block and every free-list pointer lies strictly
// inside (heapLo, heapHi-7).
func (a *Allocator) checkRange(m mem) bool {
	ok := true
	lo, hi := a.heapLo(), a.heapHi()-wordSize+1
	a.walk(m, func(b uintptr) {
		if b <= lo || b >= hi {
			ok = false
		}
	})
	return ok
}

func (a *Allocator) checkFreeListPointerRange(m mem) bool {
	ok := true
	lo, hi := a.heapLo(), a.heapHi()-wordSize+1
	for i := 0; i < numClasses; i++ {
		for b := a.lists.heads[i]; b != 0; b = m.freeNext(b) {
			if p := m.freePrev(b); p != 0 && (p <= lo || p >= hi) {
				ok = false
			}
			if n := m.freeNext(b); n != 0 && (n <= lo || n >= hi) {
				ok = false
			}
		}
	}
	return ok
}

// Invariant 5: B.next.prev == B for every non-terminal free-list node.
func (a *Allocator) checkFreeListConsistent(m mem) bool {
	ok := true
	for i := 0; i < numClasses; i++ {
		for b := a.lists.heads[i]; b != 0; b = m.freeNext(b) {
			if n := m.freeNext(b); n != 0 && m.freePrev(n) != b {
				ok = false
			}
		}
	}
	return ok
}

// Invariant 6: every free block's size falls in the interval of the class
// it is listed under.
func (a *Allocator) checkFreeListSizeRange(m mem) bool {
	ok := true
	for i := 0; i < numClasses; i++ {
		lo, hi := classRange(i)
		for b := a.lists.heads[i]; b != 0; b = m.freeNext(b) {
			size := m.blockSize(b)
			if size < lo || (hi != 0 && size >= hi) {
				ok = false
			}
		}
	}
	return ok
}

// Invariant 3 / 8: every free block's footer equals its header.
func (a *Allocator) checkHeaderFooterConsistency(m mem) bool {
	ok := true
	a.walk(m, func(b uintptr) {
		if !m.blockAlloc(b) && m.header(b) != m.footer(b) {
			ok = false
		}
	})
	return ok
}

// Invariant 4 / 9: for every real block B, alloc(B) == prevAlloc(next(B)).
func (a *Allocator) checkCurrNextConsistency(m mem) bool {
	ok := true
	a.walk(m, func(b uintptr) {
		next := nextBlock(b, m.blockSize(b))
		if m.blockAlloc(b) != m.blockPrevAlloc(next) {
			ok = false
		}
	})
	return ok
}

// Invariant 5 / 10: no two adjacent real blocks are both free.
func (a *Allocator) checkNoConsecutiveFree(m mem) bool {
	ok := true
	a.walk(m, func(b uintptr) {
		next := nextBlock(b, m.blockSize(b))
		if size := m.blockSize(next); size > 0 {
			if !m.blockAlloc(b) && !m.blockAlloc(next) {
				ok = false
			}
		}
	})
	return ok
}

// Invariant 11: the count of free blocks found by linear heap traversal
// equals the sum of the 15 segregated lists' lengths.
func (a *Allocator) checkNoBlockLoss(m mem) bool {
	var walked int
	a.walk(m, func(b uintptr) {
		if !m.blockAlloc(b) {
			walked++
		}
	})
	return walked == a.lists.count(m)
}
