package segheap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestAllocator(t *testing.T, arena uintptr) *Allocator {
	t.Helper()
	a := NewAllocator(WithBrkSource(newBoundedBrk(arena)))
	require.NoError(t, a.Init())
	return a
}

func requireHeapOK(t *testing.T, a *Allocator) {
	t.Helper()
	ok, fails := a.Check()
	require.True(t, ok, "heap invariants violated: %v", fails)
}

// S1 — basic split/coalesce.
func TestScenarioBasicSplitCoalesce(t *testing.T) {
	a := newTestAllocator(t, 1<<20)

	p, ok := a.Allocate(24)
	require.True(t, ok)
	q, ok := a.Allocate(24)
	require.True(t, ok)
	requireHeapOK(t, a)

	a.Free(p)
	requireHeapOK(t, a)
	a.Free(q)
	requireHeapOK(t, a)

	ok, fails := a.Check()
	require.True(t, ok, fails)

	// Exactly one free block of at least 64 bytes must now cover the
	// region where p and q lived, and no two adjacent real blocks are
	// both free (checked above via Check()).
	m := a.src.bytes()
	found := false
	a.walk(m, func(b uintptr) {
		if !m.blockAlloc(b) && m.blockSize(b) >= 64 {
			found = true
		}
	})
	require.True(t, found, "expected a coalesced free block >= 64 bytes")
}

// S2 — best-fit upward: freeing every other 48-byte block, then an
// allocate(40) must reuse one of the freed blocks rather than extend.
func TestScenarioBestFitUpward(t *testing.T) {
	a := newTestAllocator(t, 1<<20)

	var ptrs []uintptr
	for i := 0; i < 10; i++ {
		p, ok := a.Allocate(48)
		require.True(t, ok)
		ptrs = append(ptrs, p)
	}
	for i := 0; i < len(ptrs); i += 2 {
		a.Free(ptrs[i])
	}
	requireHeapOK(t, a)

	extendsBefore := a.Stats().HeapExtends
	p, ok := a.Allocate(40)
	require.True(t, ok)
	require.Equal(t, extendsBefore, a.Stats().HeapExtends, "allocate(40) should reuse a freed 48-byte block, not extend the heap")

	found := false
	for _, freed := range ptrs {
		if p == freed {
			found = true
		}
	}
	require.True(t, found, "allocate(40) should return one of the previously freed addresses")
	requireHeapOK(t, a)
}

// S3 — size-class boundary rounding.
func TestScenarioSizeClassBoundary(t *testing.T) {
	a := newTestAllocator(t, 1<<20)

	p, ok := a.Allocate(56) // round_up(56+8,16) = 64
	require.True(t, ok)
	block := p - wordSize
	require.EqualValues(t, 64, a.src.bytes().blockSize(block))

	q, ok := a.Allocate(57) // round_up(57+8,16) = 80
	require.True(t, ok)
	block2 := q - wordSize
	require.EqualValues(t, 80, a.src.bytes().blockSize(block2))

	a.Free(p)
	require.Equal(t, 1, classOf(64))
	a.Free(q)
	require.Equal(t, 1, classOf(80))
	requireHeapOK(t, a)
}

// S4 — reallocate grow preserves the prefix and frees the old pointer.
func TestScenarioReallocateGrow(t *testing.T) {
	a := newTestAllocator(t, 1<<20)

	p, ok := a.Allocate(32)
	require.True(t, ok)
	src := a.Bytes(p, 32)
	for i := range src {
		src[i] = byte(i + 1)
	}

	q, ok := a.Reallocate(p, 200)
	require.True(t, ok)
	require.NotZero(t, q)

	dst := a.Bytes(q, 32)
	for i := range dst {
		require.Equal(t, byte(i+1), dst[i], "byte %d not preserved across grow", i)
	}
	requireHeapOK(t, a)
}

// S5 — zero_allocate overflow leaves the heap untouched.
func TestScenarioZeroAllocateOverflow(t *testing.T) {
	a := newTestAllocator(t, 1<<20)
	before := a.Stats()

	p, ok := a.ZeroAllocate(^uintptr(0), 2)
	require.False(t, ok)
	require.Zero(t, p)

	after := a.Stats()
	require.Equal(t, before, after)
	requireHeapOK(t, a)
}

// S6 — stress coalesce: allocate N blocks, free in reverse order, end up
// with a single free region.
func TestScenarioStressCoalesceReverseOrder(t *testing.T) {
	a := newTestAllocator(t, 1<<20)

	var ptrs []uintptr
	for i := 0; i < 100; i++ {
		p, ok := a.Allocate(48)
		require.True(t, ok)
		ptrs = append(ptrs, p)
	}
	requireHeapOK(t, a)

	for i := len(ptrs) - 1; i >= 0; i-- {
		a.Free(ptrs[i])
	}
	requireHeapOK(t, a)

	m := a.src.bytes()
	freeBlocks := 0
	a.walk(m, func(b uintptr) {
		if !m.blockAlloc(b) {
			freeBlocks++
		}
	})
	require.Equal(t, 1, freeBlocks, "expected the whole payload region to coalesce into one free block")
}

func TestAllocateZeroReturnsNil(t *testing.T) {
	a := newTestAllocator(t, 1<<16)
	p, ok := a.Allocate(0)
	require.False(t, ok)
	require.Zero(t, p)
}

func TestFreeNilIsNoop(t *testing.T) {
	a := newTestAllocator(t, 1<<16)
	require.NotPanics(t, func() { a.Free(0) })
	requireHeapOK(t, a)
}

func TestReallocateToZeroFreesAndReturnsNil(t *testing.T) {
	a := newTestAllocator(t, 1<<16)
	p, ok := a.Allocate(32)
	require.True(t, ok)

	q, ok := a.Reallocate(p, 0)
	require.False(t, ok)
	require.Zero(t, q)
	requireHeapOK(t, a)
}

func TestReallocateNilIsAllocate(t *testing.T) {
	a := newTestAllocator(t, 1<<16)
	p, ok := a.Reallocate(0, 32)
	require.True(t, ok)
	require.NotZero(t, p)
	requireHeapOK(t, a)
}

func TestZeroAllocateZerosMemory(t *testing.T) {
	a := newTestAllocator(t, 1<<16)
	p, ok := a.ZeroAllocate(8, 16)
	require.True(t, ok)
	b := a.Bytes(p, 8*16)
	for i, v := range b {
		require.Zerof(t, v, "byte %d not zeroed", i)
	}
}

func TestAllocationsDoNotAlias(t *testing.T) {
	a := newTestAllocator(t, 1<<20)
	sizes := []uintptr{8, 24, 40, 100, 500, 4096, 16}
	type region struct{ lo, hi uintptr }
	var regions []region
	for _, n := range sizes {
		p, ok := a.Allocate(n)
		require.True(t, ok)
		regions = append(regions, region{p, p + n})
	}
	for i := range regions {
		for j := range regions {
			if i == j {
				continue
			}
			overlap := regions[i].lo < regions[j].hi && regions[j].lo < regions[i].hi
			require.False(t, overlap, "regions %d and %d alias", i, j)
		}
	}
	requireHeapOK(t, a)
}
