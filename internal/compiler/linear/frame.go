// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package linear flattens a CFG of HIR blocks into a single ordered
// instruction stream (the Linearizer), then computes per-value
// lifetime intervals over that stream (the LifetimeAnalyzer), ahead of
// lowering to LIR and register allocation.
package linear

import "github.com/hadron-sclang/hadron-sub002/internal/compiler/hir"

// Range of lines [Start, End) a block occupies in Frame.Insts.
type BlockRange struct {
	Start, End int
}

// Frame is the flattened form of an hir.Frame: a single instruction
// stream in reverse-postorder block order, each block's line range,
// and (after BuildLifetimes) every value's lifetime interval.
type Frame struct {
	Source *hir.Frame

	// Insts is the flattened stream: for each block in BlockOrder, a
	// synthetic Label, then its phis, then its statements.
	Insts []*hir.Inst

	BlockOrder  []hir.BlockId
	BlockRanges map[hir.BlockId]BlockRange

	// Intervals holds one Lifetime per value id, populated by
	// BuildLifetimes.
	Intervals map[hir.Id]*Lifetime

	// SpillSlots counts frame spill slots in use; slot 0 is reserved for
	// the MoveScheduler's cycle-breaking scratch save.
	SpillSlots int
}

// Linearize performs a reverse-postorder traversal of frame's CFG
// starting at the entry block, then for each block in that order emits
// a Label, its phis, then its statements, recording each block's
// [start,end) line range.
func Linearize(frame *hir.Frame) *Frame {
	lf := &Frame{
		Source:      frame,
		BlockRanges: make(map[hir.BlockId]BlockRange),
		SpillSlots:  1,
	}

	order := reversePostorder(frame)
	lf.BlockOrder = order

	for _, bid := range order {
		blk := frame.Block(bid)
		start := len(lf.Insts)

		label := &hir.Inst{Op: hir.OpLabel, Id: hir.NoId, Block: bid}
		lf.Insts = append(lf.Insts, label)
		for _, phi := range blk.Phis {
			lf.Insts = append(lf.Insts, phi)
		}
		for _, stmt := range blk.Statements {
			lf.Insts = append(lf.Insts, stmt)
		}

		lf.BlockRanges[bid] = BlockRange{Start: start, End: len(lf.Insts)}
	}

	return lf
}

// reversePostorder visits frame's CFG depth-first from the entry block
// (block 0 by construction), recording a postorder, then reverses it so
// every non-loop-header block is preceded by all its predecessors.
func reversePostorder(frame *hir.Frame) []hir.BlockId {
	var order []hir.BlockId
	visited := make(map[hir.BlockId]bool)

	var visit func(id hir.BlockId)
	visit = func(id hir.BlockId) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, succ := range frame.Block(id).Successors {
			visit(succ)
		}
		order = append(order, id)
	}
	visit(frame.RootScope.Entry())

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// LineOf returns the position of in within lf.Insts, or -1 if in is not
// part of this stream (a statement never reached by Linearize, an
// internal-error condition).
func (lf *Frame) LineOf(in *hir.Inst) int {
	for i, candidate := range lf.Insts {
		if candidate == in {
			return i
		}
	}
	return -1
}
