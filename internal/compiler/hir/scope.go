// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hir

import "github.com/hadron-sclang/hadron-sub002/internal/compiler/symbol"

// Scope is a lexical region: a name->prototype-slot-index mapping, a
// parent scope (nil at a frame's root), child scopes, and the blocks
// making up this scope's control flow (the first of which is the
// scope's entry block).
type Scope struct {
	Parent   *Scope
	Frame    *Frame
	Children []*Scope
	Blocks   []BlockId

	// names maps a local name to its index in the frame's prototype
	// slot array.
	names map[symbol.Hash]int
}

func newScope(parent *Scope, frame *Frame) *Scope {
	return &Scope{Parent: parent, Frame: frame, names: make(map[symbol.Hash]int)}
}

// Entry returns the scope's entry block id (its first block).
func (s *Scope) Entry() BlockId { return s.Blocks[0] }

// define records name at the given prototype-array index.
func (s *Scope) define(name symbol.Hash, index int) { s.names[name] = index }

// lookup searches this scope only (not its parent) for name.
func (s *Scope) lookup(name symbol.Hash) (int, bool) {
	idx, ok := s.names[name]
	return idx, ok
}

// addChild records a child scope, for completeness of ownership; the
// CFGBuilder does not currently traverse Children, but the Frame that
// owns Scopes must be able to enumerate them (e.g. a future inliner).
func (s *Scope) addChild(c *Scope) { s.Children = append(s.Children, c) }
