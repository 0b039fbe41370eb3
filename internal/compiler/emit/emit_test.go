// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package emit

import (
	"testing"

	"github.com/hadron-sclang/hadron-sub002/internal/compiler/heap"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/hir"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/lir"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/validate"
)

func TestEmitSimpleFrameProducesDecodableMachineCode(t *testing.T) {
	lf := &lir.Frame{
		BlockOrder: []hir.BlockId{0},
		BlockRanges: map[hir.BlockId]lir.Range{
			0: {Start: 0, End: 3},
		},
		Insts: []*lir.Inst{
			{Op: lir.OpLabel, Block: 0},
			{Op: lir.OpLoadImmediate, Block: 0, Dest: 0, Imm: 7, Locations: map[lir.VReg]lir.Location{0: lir.RegLoc(2)}},
			{Op: lir.OpBranchToRegister, Block: 0, Target: lir.ThreadContextVReg},
		},
	}

	result, err := Emit(lf, &AMD64Sink{}, heap.NewCodeHeap())
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if result.Size == 0 {
		t.Fatalf("expected non-zero emitted size")
	}

	code := result.Page.Bytes()
	if errs := validate.MachineCode(code); len(errs) != 0 {
		t.Fatalf("emitted machine code failed validation: %v", errs)
	}
}

func TestEmitBranchResolvesLabelOffset(t *testing.T) {
	lf := &lir.Frame{
		BlockOrder: []hir.BlockId{0, 1},
		BlockRanges: map[hir.BlockId]lir.Range{
			0: {Start: 0, End: 2},
			1: {Start: 2, End: 3},
		},
		Insts: []*lir.Inst{
			{Op: lir.OpLabel, Block: 0},
			{Op: lir.OpBranch, Block: 0, TrueTarget: 1},
			{Op: lir.OpLabel, Block: 1},
		},
	}

	result, err := Emit(lf, &AMD64Sink{}, heap.NewCodeHeap())
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if result.Size != 5 {
		t.Fatalf("expected a single 5-byte jmp, got %d bytes", result.Size)
	}
}
