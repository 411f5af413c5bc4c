// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// Modifications (c) 2017 The Memory Authors.

//go:build darwin || dragonfly || freebsd || linux || openbsd || netbsd || solaris

package segheap

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// defaultArenaSize is the upfront address-space reservation backing
// mmapBrk. It is reserved, not committed: on every target the teacher's
// mmap split supports, anonymous pages are demand-paged, so sbrk never
// needs to issue a second mmap call — it only bumps a cursor inside the
// reservation already made at construction time.
const defaultArenaSize = 1 << 30 // 1 GiB

// mmapBrk is the unix brkSource: one MAP_ANON|MAP_PRIVATE reservation,
// bumped like a classic sbrk(2) break.
type mmapBrk struct {
	buf mem
	brk uintptr
}

func newMmapBrk(reserve uintptr) (*mmapBrk, error) {
	if reserve == 0 {
		reserve = defaultArenaSize
	}
	b, err := unix.Mmap(-1, 0, int(reserve), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrap(err, "segheap: mmap arena reservation failed")
	}
	return &mmapBrk{buf: mem(b)}, nil
}

func (b *mmapBrk) bytes() mem    { return b.buf }
func (b *mmapBrk) size() uintptr { return b.brk }

func (b *mmapBrk) sbrk(delta uintptr) (uintptr, error) {
	if b.brk+delta > uintptr(len(b.buf)) {
		return 0, errors.Wrapf(ErrOutOfMemory, "mmap arena exhausted: have %d, need %d more", len(b.buf)-int(b.brk), delta)
	}
	old := b.brk
	b.brk += delta
	return old, nil
}

// close releases the reservation back to the OS. Not part of brkSource:
// the allocator never tears down its heap during normal operation (see
// spec.md §5), but tests and short-lived embedders may want it.
func (b *mmapBrk) close() error {
	return unix.Munmap([]byte(b.buf))
}
