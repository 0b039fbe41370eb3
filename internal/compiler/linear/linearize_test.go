// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linear

import (
	"testing"

	"github.com/hadron-sclang/hadron-sub002/internal/compiler/hir"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/parsetree"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/slot"
	"github.com/hadron-sclang/hadron-sub002/internal/rtcontext"
)

func buildIfFrame(t *testing.T) *hir.Frame {
	t.Helper()
	ctx := rtcontext.New("if (true) { 1 } { 2 }", nil)
	tree := &parsetree.Node{
		Kind: parsetree.Block,
		Statements: []*parsetree.Node{
			{
				Kind:       parsetree.If,
				Condition:  &parsetree.Node{Kind: parsetree.Constant, Value: slot.MakeBoolean(true)},
				TrueBlock:  &parsetree.Node{Kind: parsetree.Block, Statements: []*parsetree.Node{{Kind: parsetree.Constant, Value: slot.MakeInt32(1)}}},
				FalseBlock: &parsetree.Node{Kind: parsetree.Block, Statements: []*parsetree.Node{{Kind: parsetree.Constant, Value: slot.MakeInt32(2)}}},
			},
		},
	}
	frame, err := hir.NewBuilder(ctx, nil).BuildFrame(tree)
	if err != nil {
		t.Fatalf("BuildFrame: %v", err)
	}
	return frame
}

func TestLinearizeBlockRangesPartitionStream(t *testing.T) {
	frame := buildIfFrame(t)
	lf := Linearize(frame)

	if len(lf.BlockOrder) != frame.NumBlocks() {
		t.Fatalf("BlockOrder has %d entries, want %d", len(lf.BlockOrder), frame.NumBlocks())
	}

	total := 0
	seen := make(map[hir.BlockId]bool)
	for _, bid := range lf.BlockOrder {
		rng := lf.BlockRanges[bid]
		if rng.Start != total {
			t.Fatalf("block %d starts at %d, want contiguous %d", bid, rng.Start, total)
		}
		if lf.Insts[rng.Start].Op != hir.OpLabel {
			t.Fatalf("block %d does not begin with a Label", bid)
		}
		if lf.Insts[rng.Start].Block != bid {
			t.Fatalf("label at block %d names block %d", bid, lf.Insts[rng.Start].Block)
		}
		total = rng.End
		seen[bid] = true
	}
	if total != len(lf.Insts) {
		t.Fatalf("ranges cover %d of %d instructions", total, len(lf.Insts))
	}
	if len(seen) != frame.NumBlocks() {
		t.Fatalf("expected every block to appear exactly once in BlockOrder")
	}

	// Entry block (predecessor-less) must come before both branches, and
	// both branches before the continuation (reverse-postorder: every
	// non-loop-header block is preceded by all predecessors).
	pos := make(map[hir.BlockId]int)
	for i, bid := range lf.BlockOrder {
		pos[bid] = i
	}
	for _, bid := range lf.BlockOrder {
		blk := frame.Block(bid)
		for _, pred := range blk.Predecessors {
			if pos[pred] >= pos[bid] {
				t.Fatalf("block %d's predecessor %d appears after it in linear order", bid, pred)
			}
		}
	}
}

func TestBuildLifetimesCoversAllUses(t *testing.T) {
	frame := buildIfFrame(t)
	lf := Linearize(frame)
	BuildLifetimes(lf)

	for _, in := range lf.Insts {
		if in.Op == hir.OpLabel {
			continue
		}
		line := lf.LineOf(in)
		if line < 0 {
			t.Fatalf("instruction not found in its own stream")
		}
		if in.Id != hir.NoId {
			it, ok := lf.Intervals[in.Id]
			if !ok {
				t.Fatalf("value %d has no lifetime interval", in.Id)
			}
			if !it.Covers(line) {
				t.Fatalf("value %d's definition at line %d is not covered by its own lifetime %v", in.Id, line, it.Ranges)
			}
		}
		for _, r := range readsOf(in) {
			it, ok := lf.Intervals[r]
			if !ok {
				t.Fatalf("value %d is read but has no lifetime interval", r)
			}
			if !it.Covers(line) {
				t.Fatalf("value %d's use at line %d is not covered by its lifetime %v", r, line, it.Ranges)
			}
		}
	}
}
