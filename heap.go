package segheap

import "github.com/pkg/errors"

// Stats mirrors the counters the teacher's Allocator already tracked
// internally (allocs, bytes, mmaps) but never exposed; allocatorMetrics
// (see metrics.go) is the Prometheus-shaped view of the same numbers.
type Stats struct {
	Allocations    uint64 // successful Allocate/ZeroAllocate calls
	Frees          uint64 // Free calls on a non-nil pointer
	HeapExtends    uint64 // number of successful extendHeap calls (chunk grows)
	HeapBytes      uintptr
	FreeBytes      uintptr
	CheckFailures  uint64
}

// Allocator is a single-threaded, boundary-tag segregated-fit heap
// allocator. The zero value is not ready for use; construct one with
// NewAllocator. Init runs automatically on first Allocate/ZeroAllocate if
// the caller has not already called it explicitly.
type Allocator struct {
	cfg         config
	src         brkSource
	heapStart   uintptr // offset of the first real block (just past the prologue)
	lists       segList
	initialized bool
	stats       Stats
	metrics     *allocatorMetrics
}

// NewAllocator constructs an Allocator. With no options it defaults to an
// OS-backed brk collaborator (mmap on unix, VirtualAlloc on Windows) with
// a 1 GiB upfront reservation; see Option for overrides.
func NewAllocator(opts ...Option) *Allocator {
	var c config
	for _, o := range opts {
		o(&c)
	}
	a := &Allocator{cfg: c}
	if c.withMetrics {
		a.metrics = newAllocatorMetrics()
	}
	return a
}

func (a *Allocator) ensureSrc() error {
	if a.src != nil {
		return nil
	}
	if a.cfg.src != nil {
		a.src = a.cfg.src
		return nil
	}
	src, err := newMmapBrk(a.cfg.arenaSize)
	if err != nil {
		return err
	}
	a.src = src
	return nil
}

// Init lays down the prologue and epilogue sentinels, clears the 15
// segregated list heads, and extends the heap once by chunkSize bytes.
// Calling Init explicitly is optional: Allocate calls it automatically the
// first time it is needed.
func (a *Allocator) Init() error {
	if a.initialized {
		return nil
	}
	if err := a.ensureSrc(); err != nil {
		return errors.Wrap(err, "segheap: init: brk collaborator unavailable")
	}
	old, err := a.src.sbrk(2 * wordSize)
	if err != nil {
		return errors.Wrap(ErrArenaTooSmall, "segheap: init: could not reserve sentinel words")
	}
	m := a.src.bytes()
	m.setWordAt(old, pack(0, true, true))            // prologue
	m.setWordAt(old+wordSize, pack(0, true, true))    // epilogue
	a.heapStart = old + wordSize
	a.lists = segList{}
	a.initialized = true

	if trace {
		tracef("Init() heapStart=%#x", a.heapStart)
	}

	if _, ok := a.extendHeap(chunkSize); !ok {
		a.initialized = false
		return errors.Wrap(ErrArenaTooSmall, "segheap: init: initial heap extension failed")
	}
	return nil
}

// extendHeap grows the live heap by at least n bytes (rounded up to a
// dwordSize multiple) and returns the (possibly already-coalesced) free
// block covering the new region.
func (a *Allocator) extendHeap(n uintptr) (uintptr, bool) {
	size := roundUp16(n)
	old, err := a.src.sbrk(size)
	if err != nil {
		if trace {
			tracef("extendHeap(%#x) failed: %v", size, err)
		}
		return 0, false
	}
	m := a.src.bytes()

	// The new block's header overlays the position the old epilogue
	// occupied: the sbrk-returned offset is one word past it.
	block := old - wordSize
	prevAlloc := m.blockPrevAlloc(block)
	m.writeBlock(block, size, false, prevAlloc)

	next := nextBlock(block, size)
	m.writeEpilogue(next, false)

	block = a.coalesce(block)
	a.lists.insert(m, block)
	a.stats.HeapExtends++

	if trace {
		tracef("extendHeap(%#x) -> block=%#x", size, block)
	}
	return block, true
}

// heapLo and heapHi bound the live heap image, inclusive of the
// sentinels; used by the checker's range tests.
func (a *Allocator) heapLo() uintptr { return a.heapStart - wordSize }
func (a *Allocator) heapHi() uintptr {
	if !a.initialized {
		return 0
	}
	return a.heapLo() + a.src.size() - 1
}

// Stats reports a snapshot of the allocator's counters.
func (a *Allocator) Stats() Stats {
	s := a.stats
	if a.initialized {
		s.HeapBytes = a.src.size()
		s.FreeBytes = a.freeBytes()
	}
	return s
}

func (a *Allocator) freeBytes() uintptr {
	m := a.src.bytes()
	var total uintptr
	for i := 0; i < numClasses; i++ {
		for b := a.lists.heads[i]; b != 0; b = m.freeNext(b) {
			total += m.blockSize(b)
		}
	}
	return total
}
