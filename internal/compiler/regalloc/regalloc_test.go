// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package regalloc

import (
	"testing"

	"github.com/hadron-sclang/hadron-sub002/internal/compiler/hir"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/linear"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/lir"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/parsetree"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/slot"
	"github.com/hadron-sclang/hadron-sub002/internal/rtcontext"
)

func buildIfFrame(t *testing.T) (*lir.Frame, map[hir.Id]*linear.Lifetime) {
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
	lf := linear.Linearize(frame)
	linear.BuildLifetimes(lf)
	out, err := lir.Lower(lf)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	return out, lf.Intervals
}

func TestAllocateAssignsEveryValueALocation(t *testing.T) {
	lf, intervals := buildIfFrame(t)
	md := MachineDescription{NumRegisters: 6, CallerSaved: map[int]bool{2: true, 3: true}, CalleeSaved: map[int]bool{4: true, 5: true}}

	if err := Allocate(lf, intervals, md); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	for id, lt := range intervals {
		if id < 0 {
			continue
		}
		for _, u := range lt.Uses {
			if _, ok := lf.Insts[u].Locations[id]; !ok {
				t.Fatalf("value %d has no location recorded at its use on line %d", id, u)
			}
		}
	}
}

// TestAllocateNeverDoubleBooksARegister is the core linear-scan
// correctness property: at no single line do two distinct live values
// share the same physical register.
func TestAllocateNeverDoubleBooksARegister(t *testing.T) {
	lf, intervals := buildIfFrame(t)
	md := MachineDescription{NumRegisters: 6, CallerSaved: map[int]bool{2: true, 3: true}, CalleeSaved: map[int]bool{4: true, 5: true}}

	if err := Allocate(lf, intervals, md); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	for line, in := range lf.Insts {
		seen := make(map[int]hir.Id)
		for v, loc := range in.Locations {
			if !loc.IsRegister() {
				continue
			}
			if owner, ok := seen[loc.Reg]; ok {
				t.Fatalf("line %d: register %d holds both value %d and value %d", line, loc.Reg, owner, v)
			}
			seen[loc.Reg] = v
		}
	}
}

// TestAllocateWithOneRegisterForcesSpills builds three values with
// overlapping lifetimes by hand (rather than through the full HIR
// pipeline, where an if/else's two branches are never simultaneously
// live) and checks that a single allocatable register forces exactly
// the blocked-register spill path to engage.
func TestAllocateWithOneRegisterForcesSpills(t *testing.T) {
	lf := &lir.Frame{
		Insts:       make([]*lir.Inst, 6),
		BlockOrder:  []hir.BlockId{0},
		BlockRanges: map[hir.BlockId]lir.Range{0: {Start: 0, End: 6}},
		SpillSlots:  1,
	}
	for i := range lf.Insts {
		lf.Insts[i] = &lir.Inst{Op: lir.OpAssign, Block: 0}
	}

	intervals := map[hir.Id]*linear.Lifetime{
		0: {Ranges: []linear.Range{{Start: 0, End: 5}}, Uses: []int{0, 4}},
		1: {Ranges: []linear.Range{{Start: 1, End: 4}}, Uses: []int{1, 3}},
		2: {Ranges: []linear.Range{{Start: 2, End: 6}}, Uses: []int{2, 5}},
	}

	md := MachineDescription{NumRegisters: firstAllocatable + 1, CallerSaved: map[int]bool{firstAllocatable: true}}
	if err := Allocate(lf, intervals, md); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if lf.SpillSlots <= 1 {
		t.Fatalf("three mutually-overlapping values through one register must force a spill, got %d slots", lf.SpillSlots)
	}

	for line, in := range lf.Insts {
		seen := make(map[int]hir.Id)
		for v, loc := range in.Locations {
			if !loc.IsRegister() {
				continue
			}
			if owner, ok := seen[loc.Reg]; ok {
				t.Fatalf("line %d: register %d holds both value %d and value %d", line, loc.Reg, owner, v)
			}
			seen[loc.Reg] = v
		}
	}
}
