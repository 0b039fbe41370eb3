// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// CodeHeap hands out pages for emitted machine code, kept separate from
// the managed object heap. Pages start writable (Emitter fills them),
// then are toggled to executable exactly once at handoff to the
// caller, matching spec §5's "no instruction executes out of a page
// that is currently writable."
type CodeHeap struct {
	mu    sync.Mutex
	pages []*codePage
}

type codePage struct {
	data       []byte
	executable bool
}

// NewCodeHeap returns an empty CodeHeap.
func NewCodeHeap() *CodeHeap {
	return &CodeHeap{}
}

// Reserve mmaps a writable, non-executable page of at least size bytes
// for the Emitter to fill.
func (ch *CodeHeap) Reserve(size int) (CodePageHandle, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return CodePageHandle{}, fmt.Errorf("heap: mmap code page of %d bytes: %w", size, err)
	}
	cp := &codePage{data: data}
	ch.mu.Lock()
	ch.pages = append(ch.pages, cp)
	ch.mu.Unlock()
	return CodePageHandle{page: cp}, nil
}

// CodePageHandle is the Emitter's view of one reserved code page.
type CodePageHandle struct {
	page *codePage
}

// Bytes returns the writable backing slice. Valid only before Finalize.
func (h CodePageHandle) Bytes() []byte { return h.page.data }

// Finalize toggles the page from writable to executable via mprotect,
// the exact transition point between Emitter and caller described in
// the concurrency model. On platforms distinguishing write-from-execute
// JIT states this is the thread-local handoff; here it is the single
// mprotect call that makes both states mutually exclusive for the page.
func (h CodePageHandle) Finalize() (entry uintptr, err error) {
	if h.page.executable {
		return addressOf(h.page.data), nil
	}
	if err := unix.Mprotect(h.page.data, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return 0, fmt.Errorf("heap: mprotect code page executable: %w", err)
	}
	h.page.executable = true
	return addressOf(h.page.data), nil
}

// Reopen toggles a finalized page back to writable, for a compiler that
// wants to patch already-emitted code (e.g. to relink a call site).
// Spec §5 requires no code execute from a page currently writable, so
// callers must guarantee no thread is executing out of this page before
// calling Reopen.
func (h CodePageHandle) Reopen() error {
	if !h.page.executable {
		return nil
	}
	if err := unix.Mprotect(h.page.data, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("heap: mprotect code page writable: %w", err)
	}
	h.page.executable = false
	return nil
}

func addressOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafePointer(b))
}
