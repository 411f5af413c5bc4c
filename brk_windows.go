// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// Modifications (c) 2017 The Memory Authors.

//go:build windows

package segheap

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

const defaultArenaSize = 1 << 30 // 1 GiB

// mmapBrk is the Windows brkSource: one MEM_RESERVE|MEM_COMMIT VirtualAlloc
// region, bumped like a classic sbrk break. Named to match brk_unix.go so
// heap.go can construct either one behind the same brkSource interface
// without a build-tag switch of its own.
type mmapBrk struct {
	buf  mem
	brk  uintptr
	addr uintptr
}

func newMmapBrk(reserve uintptr) (*mmapBrk, error) {
	if reserve == 0 {
		reserve = defaultArenaSize
	}
	addr, err := windows.VirtualAlloc(0, reserve, windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil, errors.Wrap(err, "segheap: VirtualAlloc arena reservation failed")
	}
	var buf []byte
	sh := (*struct {
		Data uintptr
		Len  int
		Cap  int
	})(unsafe.Pointer(&buf))
	sh.Data = addr
	sh.Len = int(reserve)
	sh.Cap = int(reserve)
	return &mmapBrk{buf: mem(buf), addr: addr}, nil
}

func (b *mmapBrk) bytes() mem    { return b.buf }
func (b *mmapBrk) size() uintptr { return b.brk }

func (b *mmapBrk) sbrk(delta uintptr) (uintptr, error) {
	if b.brk+delta > uintptr(len(b.buf)) {
		return 0, errors.Wrapf(ErrOutOfMemory, "VirtualAlloc arena exhausted: have %d, need %d more", len(b.buf)-int(b.brk), delta)
	}
	old := b.brk
	b.brk += delta
	return old, nil
}

func (b *mmapBrk) close() error {
	return windows.VirtualFree(b.addr, 0, windows.MEM_RELEASE)
}
