// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package heap implements the size-classed, generational, paged
// allocator and mark-sweep collector that backs the tagged Slot model,
// plus a companion executable-code heap for emitted machine code.
package heap

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Mark-byte bit allocation, resolving the Open Question in spec §9:
// two high-order color bits plus a six-bit survivor counter in the
// same byte. Color value 0 is unused, so the mark byte of an allocated
// slot is never zero.
const (
	colorShift    = 6
	colorMask     = 0x3 << colorShift
	survivorMask  = 0x3f
	maxSurvivor   = survivorMask
	colorWhite    = 1 << colorShift
	colorGray     = 2 << colorShift
	colorBlack    = 3 << colorShift
	markByteFree  = 0 // a zero mark byte marks a free slot, per spec §3 Page invariant
)

// color extracts the mark color from a mark byte.
func color(b byte) byte { return b & colorMask }

// survivorCount extracts the six-bit survival counter from a mark byte.
func survivorCount(b byte) byte { return b & survivorMask }

// withColor returns b with its color bits replaced, counter preserved.
func withColor(b byte, c byte) byte { return (b &^ colorMask) | c }

// withIncrementedSurvivor returns b with its survivor counter bumped by
// one, saturating at maxSurvivor.
func withIncrementedSurvivor(b byte) byte {
	n := survivorCount(b)
	if n < maxSurvivor {
		n++
	}
	return (b &^ survivorMask) | n
}

// Page is a contiguous mapped region holding fixed-size objects of one
// size class.
type Page struct {
	start     []byte // mmap'd backing store
	objSize   int
	total     int
	nextFree  int // next unallocated slot index
	allocated int // number of slots currently in use
	marks     []byte
	capacity  int
}

// newPage mmaps a page able to hold capacity objects of objSize bytes
// each.
func newPage(objSize, capacity int) (*Page, error) {
	total := objSize * capacity
	data, err := unix.Mmap(-1, 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("heap: mmap %d bytes: %w", total, err)
	}
	return &Page{
		start:    data,
		objSize:  objSize,
		total:    total,
		capacity: capacity,
		marks:    make([]byte, capacity),
	}, nil
}

// unmap releases the page's backing store. Safe to call on an already
// unmapped page.
func (p *Page) unmap() error {
	if p.start == nil {
		return nil
	}
	err := unix.Munmap(p.start)
	p.start = nil
	return err
}

// full reports whether the page's high-water mark has reached its
// capacity. Slots freed by a sweep below the mark are not reused, so a
// page can be full while holding fewer live objects than its capacity.
func (p *Page) full() bool {
	return p.nextFree >= p.capacity
}

// allocate carves out the next free object from the page, or returns
// false if the page is full. It does not zero the returned bytes.
func (p *Page) allocate() (offset int, ok bool) {
	if p.full() {
		return 0, false
	}
	idx := p.nextFree
	p.nextFree++
	p.allocated++
	p.marks[idx] = colorWhite
	return idx * p.objSize, true
}

// endAddress returns the address one past the page's last byte, the
// key used by the Heap's page-end map for reverse lookup.
func (p *Page) endAddress() uintptr {
	if len(p.start) == 0 {
		return 0
	}
	return uintptr(unsafePointer(p.start)) + uintptr(p.total)
}

// startAddress returns the page's base address.
func (p *Page) startAddress() uintptr {
	if len(p.start) == 0 {
		return 0
	}
	return uintptr(unsafePointer(p.start))
}

// indexOf floor-divides an address within the page by the object size
// to find the enclosing object's slot index.
func (p *Page) indexOf(addr uintptr) int {
	return int(addr-p.startAddress()) / p.objSize
}

// sweep clears the mark byte of every unmarked (white) slot, freeing it,
// and returns the list of slot indices that survived the collection so
// the caller can consider them for promotion.
func (p *Page) sweep(promoteAfter byte) (survivors []int) {
	for i := 0; i < p.nextFree; i++ {
		m := p.marks[i]
		if m == markByteFree {
			continue
		}
		if color(m) == colorWhite {
			p.marks[i] = markByteFree
			p.allocated--
			continue
		}
		// Survived this collection: reset to white for the next cycle
		// but bump the survivor count first.
		bumped := withIncrementedSurvivor(m)
		p.marks[i] = withColor(bumped, colorWhite)
		if survivorCount(p.marks[i]) >= promoteAfter {
			survivors = append(survivors, i)
		}
	}
	return survivors
}

// mark sets the slot at idx to black (reachable this collection).
func (p *Page) mark(idx int) {
	p.marks[idx] = withColor(p.marks[idx], colorBlack)
}

// isMarked reports whether the slot at idx was already visited in the
// current collection (gray or black).
func (p *Page) isMarked(idx int) bool {
	c := color(p.marks[idx])
	return c == colorGray || c == colorBlack
}
