// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hir

// Block is a unit of straight-line HIR code with exactly one entry,
// ending in Branch, BranchIfTrue, or MethodReturn (or an implicit
// return). A sealed block admits no new predecessors; a phi's input
// order must match the block's predecessor order; only the last
// statement may be a control-flow terminator.
//
// Phis and Statements hold the instructions themselves rather than ids:
// most HIR instructions (writes, branches, phis) carry no externally
// readable value and so share the NoId sentinel, which would collide
// as a map/slice key — the ordered instruction lists are the only
// structure that needs to address them positionally.
type Block struct {
	Id           BlockId
	Predecessors []BlockId
	Successors   []BlockId
	Phis         []*Inst
	Statements   []*Inst
	Sealed       bool
	Scope        *Scope

	values map[equivKey]Id
}

func newBlock(id BlockId, scope *Scope) *Block {
	return &Block{
		Id:     id,
		Scope:  scope,
		values: make(map[equivKey]Id),
	}
}

// hasTerminator reports whether the block's last statement is already a
// Branch, BranchIfTrue, or MethodReturn.
func (b *Block) hasTerminator() bool {
	if len(b.Statements) == 0 {
		return false
	}
	switch b.Statements[len(b.Statements)-1].Op {
	case OpBranch, OpBranchIfTrue, OpMethodReturn:
		return true
	default:
		return false
	}
}

// addPredecessor records pred as a new predecessor of b. b must not
// already be sealed.
func (b *Block) addPredecessor(pred BlockId) {
	if b.Sealed {
		panic("hir: addPredecessor on a sealed block")
	}
	b.Predecessors = append(b.Predecessors, pred)
}

// seal marks the block as having its final predecessor list; no further
// predecessors may be added.
func (b *Block) seal() { b.Sealed = true }
