// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package segheap implements a general purpose dynamic memory allocator
// over a single, monotonically growable heap region.
//
// The heap is a boundary-tag implicit list of 16-byte aligned blocks,
// layered with a 15-class segregated free list for near-constant-time
// placement. Free blocks carry a header and a footer; allocated blocks
// reclaim the footer word for payload and rely on a prev-alloc bit in
// the following block's header instead.
//
// Changelog
//
// 2024-01-08 Segregated-fit boundary-tag core replacing the page/slab
// design; heap now grows from a pluggable brk-style collaborator instead
// of per-size-class mmap pages.
package segheap

const (
	wordSize  = 8          // bytes per header/footer word
	dwordSize = 2 * wordSize // 16, the alignment & minimum payload-area quantum
	minBlock  = 2 * dwordSize // 32, smallest legal block (header+footer+2 link words)
	chunkSize = 1 << 12    // extend the heap by this many bytes at a time
)

// word is the fundamental heap tag unit: an 8-byte machine word holding a
// packed (size, alloc, prev_alloc) triple when used as a header/footer.
type word = uint64
