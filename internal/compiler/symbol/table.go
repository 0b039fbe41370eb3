// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package symbol implements the compiler's hash-interned symbol table:
// every symbol string is stored once, keyed by a 64-bit hash of its
// bytes, and the mapping back from hash to string is total for every
// hash ever issued.
package symbol

import (
	"encoding/binary"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Hash is the 64-bit key a Slot of type Symbol carries in its low 48
// bits after masking (see package slot); the table itself keys on the
// full 64-bit hash to avoid collisions before truncation.
type Hash uint64

// Table is the process-wide interned symbol store. Interning acquires
// a short exclusive lock, matching the "short exclusive lock on the
// map" resource model in the spec.
type Table struct {
	mu      sync.Mutex
	strings map[Hash]string
}

// NewTable returns an empty symbol table.
func NewTable() *Table {
	return &Table{strings: make(map[Hash]string)}
}

// HashBytes computes the 64-bit symbol hash for a byte slice, truncating
// a blake2b-256 digest to its first 8 bytes. blake2b gives a fast,
// well-distributed keyed hash without pulling in a bespoke hash table
// implementation.
func HashBytes(b []byte) Hash {
	sum := blake2b.Sum256(b)
	return Hash(binary.LittleEndian.Uint64(sum[:8]))
}

// Intern stores s if not already present and returns its hash. Interning
// the same string twice, or two different strings that happen to share
// a hash, returns the hash of whichever string was interned first.
func (t *Table) Intern(s string) Hash {
	h := HashBytes([]byte(s))
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.strings[h]; !ok {
		t.strings[h] = s
	}
	return h
}

// Lookup returns the string owning hash h, and whether it was found.
func (t *Table) Lookup(h Hash) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.strings[h]
	return s, ok
}

// Len reports how many distinct symbols are interned.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.strings)
}
