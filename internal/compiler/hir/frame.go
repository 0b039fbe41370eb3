// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hir

import (
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/slot"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/symbol"
)

// Frame is a callable unit: a top-level expression, a method, or a
// block literal. The Frame exclusively owns its Scopes, Blocks, and
// HIRs, referenced everywhere else by integer id (arena ownership, per
// spec §9 design notes, for trivial support of the blocks<->phis<->
// predecessors cycles).
type Frame struct {
	RootScope   *Scope
	Prototype   []slot.Slot
	ArgNames    []symbol.Hash
	ArgDefaults []slot.Slot
	VarNames    []symbol.Hash

	// BlockLiteralId is the id, in the *enclosing* frame, of the
	// BlockLiteral HIR this frame implements. NoId for the top-level
	// frame.
	BlockLiteralId Id

	// Outer is the lexically enclosing frame, nil for the top-level
	// frame. OuterScope is the scope that was active in Outer at the
	// point this frame's block literal was entered, the anchor for
	// name resolution crossing a frame boundary.
	Outer      *Frame
	OuterScope *Scope

	// InnerBlocks lists the BlockLiteral HIR ids issued directly within
	// this frame, per spec §9's Open Question on inlining: none of
	// these are inlined by this pipeline.
	InnerBlocks []Id

	blocks    map[BlockId]*Block
	numBlocks BlockId

	values    map[Id]*Inst
	nextValue Id
}

func newFrame() *Frame {
	return &Frame{
		blocks:         make(map[BlockId]*Block),
		values:         make(map[Id]*Inst),
		BlockLiteralId: NoId,
	}
}

// Block returns the Block with the given id. Panics if id is unknown,
// an internal-error condition (every reference into the frame's block
// table is produced by this package).
func (f *Frame) Block(id BlockId) *Block {
	b, ok := f.blocks[id]
	if !ok {
		panic("hir: unknown block id")
	}
	return b
}

// Blocks returns every block in the frame, unordered; callers that need
// a deterministic order should sort by Id.
func (f *Frame) Blocks() []*Block {
	out := make([]*Block, 0, len(f.blocks))
	for _, b := range f.blocks {
		out = append(out, b)
	}
	return out
}

// BlocksByID returns every block in the frame ordered by ascending Id.
func (f *Frame) BlocksByID() []*Block {
	out := f.Blocks()
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Id > out[j].Id; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// NumBlocks reports how many blocks have been issued.
func (f *Frame) NumBlocks() int { return int(f.numBlocks) }

func (f *Frame) newBlockIn(scope *Scope) *Block {
	id := f.numBlocks
	f.numBlocks++
	b := newBlock(id, scope)
	f.blocks[id] = b
	return b
}

// Inst returns the instruction that produced the given (non-NoId)
// value id. Panics on an unknown id (an internal-error condition: every
// Reads/Inputs/Args entry must point at a value this frame owns).
func (f *Frame) Inst(id Id) *Inst {
	in, ok := f.values[id]
	if !ok {
		panic("hir: unknown value id")
	}
	return in
}

// TryInst is like Inst but reports ok=false instead of panicking.
func (f *Frame) TryInst(id Id) (*Inst, bool) {
	in, ok := f.values[id]
	return in, ok
}

// Values returns every value-producing instruction in the frame,
// unordered. Value-less instructions (writes, branches, returns) are
// only reachable through their owning Block's Statements/Phis list.
func (f *Frame) Values() []*Inst {
	out := make([]*Inst, 0, len(f.values))
	for _, v := range f.values {
		out = append(out, v)
	}
	return out
}

// insert consults the block's local value map first so an existing
// semantically-equivalent instruction is reused instead of inserted
// again (local value numbering), then assigns in a fresh Id (unless
// valueless, which keeps NoId) and appends it to the owning block.
func (f *Frame) insert(b *Block, in *Inst, valued bool) Id {
	in.Block = b.Id
	if key, ok := in.equivKey(); ok {
		if existing, found := b.values[key]; found {
			return existing
		}
		id := f.append(b, in, valued)
		b.values[key] = id
		return id
	}
	return f.append(b, in, valued)
}

func (f *Frame) append(b *Block, in *Inst, valued bool) Id {
	id := NoId
	if valued {
		id = f.nextValue
		f.nextValue++
		f.values[id] = in
	}
	in.Id = id
	if in.Op == OpPhi {
		b.Phis = append(b.Phis, in)
	} else {
		b.Statements = append(b.Statements, in)
	}
	return id
}
