// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lir

import (
	"testing"

	"github.com/hadron-sclang/hadron-sub002/internal/compiler/hir"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/linear"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/parsetree"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/slot"
	"github.com/hadron-sclang/hadron-sub002/internal/rtcontext"
)

func buildConstFrame(t *testing.T) *linear.Frame {
	t.Helper()
	ctx := rtcontext.New("42", nil)
	tree := &parsetree.Node{
		Kind: parsetree.Block,
		Statements: []*parsetree.Node{
			{Kind: parsetree.Constant, Value: slot.MakeInt32(42)},
		},
	}
	frame, err := hir.NewBuilder(ctx, nil).BuildFrame(tree)
	if err != nil {
		t.Fatalf("BuildFrame: %v", err)
	}
	return linear.Linearize(frame)
}

func TestLowerPreservesLineNumbersAndBlockRanges(t *testing.T) {
	lf := buildConstFrame(t)
	linear.BuildLifetimes(lf)

	out, err := Lower(lf)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	if len(out.Insts) != len(lf.Insts) {
		t.Fatalf("lowered stream has %d instructions, want %d", len(out.Insts), len(lf.Insts))
	}
	for bid, r := range lf.BlockRanges {
		lr, ok := out.BlockRanges[bid]
		if !ok {
			t.Fatalf("block %d missing from lowered BlockRanges", bid)
		}
		if lr.Start != r.Start || lr.End != r.End {
			t.Fatalf("block %d range %v, want %v", bid, lr, r)
		}
	}
	for i, in := range lf.Insts {
		if in.Op == hir.OpLabel {
			if out.Insts[i].Op != OpLabel {
				t.Fatalf("line %d: want OpLabel, got %v", i, out.Insts[i].Op)
			}
			continue
		}
		if in.Id != hir.NoId && out.Insts[i].Dest != in.Id {
			t.Fatalf("line %d: dest %d, want %d (1:1 lowering must preserve ids)", i, out.Insts[i].Dest, in.Id)
		}
	}
}

func TestLowerInt32ConstantBecomesImmediate(t *testing.T) {
	lf := buildConstFrame(t)
	out, err := Lower(lf)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	var found bool
	for _, in := range out.Insts {
		if in.Op == OpLoadImmediate {
			found = true
			if in.Imm != 42 {
				t.Fatalf("immediate %d, want 42", in.Imm)
			}
		}
		if in.Op == OpLoadConstant {
			t.Fatalf("int32 constant should lower to OpLoadImmediate, not OpLoadConstant")
		}
	}
	if !found {
		t.Fatalf("expected an OpLoadImmediate in the lowered stream")
	}
}
