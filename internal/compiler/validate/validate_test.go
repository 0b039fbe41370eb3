// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package validate

import (
	"testing"

	"github.com/hadron-sclang/hadron-sub002/internal/compiler/hir"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/linear"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/parsetree"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/regalloc"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/slot"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/lir"
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

func TestFrameAcceptsAWellFormedBuild(t *testing.T) {
	if errs := Frame(buildIfFrame(t)); len(errs) != 0 {
		t.Fatalf("unexpected validation errors on a well-formed frame: %v", errs)
	}
}

func TestFrameCatchesAnUnsealedBlock(t *testing.T) {
	f := buildIfFrame(t)
	f.BlocksByID()[0].Sealed = false
	errs := Frame(f)
	if len(errs) == 0 {
		t.Fatalf("expected an error for an unsealed block")
	}
}

func TestLinearFrameAndLifetimesAcceptAWellFormedPipeline(t *testing.T) {
	f := buildIfFrame(t)
	lf := linear.Linearize(f)
	linear.BuildLifetimes(lf)

	if errs := LinearFrame(lf); len(errs) != 0 {
		t.Fatalf("unexpected LinearFrame errors: %v", errs)
	}
	if errs := Lifetimes(lf); len(errs) != 0 {
		t.Fatalf("unexpected Lifetimes errors: %v", errs)
	}
}

func TestAllocationAcceptsAWellFormedAssignment(t *testing.T) {
	f := buildIfFrame(t)
	lf := linear.Linearize(f)
	linear.BuildLifetimes(lf)
	out, err := lir.Lower(lf)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	md := regalloc.MachineDescription{NumRegisters: 6, CallerSaved: map[int]bool{2: true, 3: true}, CalleeSaved: map[int]bool{4: true, 5: true}}
	if err := regalloc.Allocate(out, lf.Intervals, md); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if errs := Allocation(out); len(errs) != 0 {
		t.Fatalf("unexpected Allocation errors: %v", errs)
	}
}

func TestAllocationCatchesADoubleBookedRegister(t *testing.T) {
	out := &lir.Frame{Insts: []*lir.Inst{{
		Op: lir.OpAssign,
		Locations: map[lir.VReg]lir.Location{
			0: lir.RegLoc(2),
			1: lir.RegLoc(2),
		},
	}}}
	errs := Allocation(out)
	if len(errs) == 0 {
		t.Fatalf("expected an error for two values sharing a register")
	}
}
