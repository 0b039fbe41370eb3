// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve

import (
	"testing"

	"github.com/hadron-sclang/hadron-sub002/internal/compiler/lir"
)

// TestScheduleAcyclicChainEmitsTailToHead covers spec §4.5 case 1: a
// chain R0->R1->R2 must execute starting at the tail (R1->R2) so R1's
// original content is read before it is clobbered by R0's move.
func TestScheduleAcyclicChainEmitsTailToHead(t *testing.T) {
	moves := []lir.Move{
		{From: lir.RegLoc(0), To: lir.RegLoc(1)},
		{From: lir.RegLoc(1), To: lir.RegLoc(2)},
	}
	out, err := Schedule(moves)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	want := []lir.Move{
		{Kind: lir.MoveAssign, From: lir.RegLoc(1), To: lir.RegLoc(2)},
		{Kind: lir.MoveAssign, From: lir.RegLoc(0), To: lir.RegLoc(1)},
	}
	assertMovesEqual(t, out, want)
}

// TestScheduleTwoRegisterSwapUsesXORTrick is scenario S5: {R0->R1,
// R1->R0} must resolve to exactly the three-instruction XOR swap, with
// no scratch register or spill-slot traffic.
func TestScheduleTwoRegisterSwapUsesXORTrick(t *testing.T) {
	moves := []lir.Move{
		{From: lir.RegLoc(0), To: lir.RegLoc(1)},
		{From: lir.RegLoc(1), To: lir.RegLoc(0)},
	}
	out, err := Schedule(moves)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	want := []lir.Move{
		{Kind: lir.MoveSwap, From: lir.RegLoc(1), To: lir.RegLoc(0)},
		{Kind: lir.MoveSwap, From: lir.RegLoc(0), To: lir.RegLoc(1)},
		{Kind: lir.MoveSwap, From: lir.RegLoc(1), To: lir.RegLoc(0)},
	}
	assertMovesEqual(t, out, want)

	// The same swap requested with the operands the other way around
	// must resolve to the identical canonical sequence.
	reordered := []lir.Move{
		{From: lir.RegLoc(1), To: lir.RegLoc(0)},
		{From: lir.RegLoc(0), To: lir.RegLoc(1)},
	}
	out2, err := Schedule(reordered)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	assertMovesEqual(t, out2, want)
}

// TestScheduleThreeCycleBreaksThroughSpillSlotZero is spec §4.5 case 3:
// a cycle longer than two registers cannot use the XOR trick (it only
// exchanges two values) and instead saves one leg through spill slot 0.
func TestScheduleThreeCycleBreaksThroughSpillSlotZero(t *testing.T) {
	moves := []lir.Move{
		{From: lir.RegLoc(0), To: lir.RegLoc(1)},
		{From: lir.RegLoc(1), To: lir.RegLoc(2)},
		{From: lir.RegLoc(2), To: lir.RegLoc(0)},
	}
	out, err := Schedule(moves)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	want := []lir.Move{
		{Kind: lir.MoveCycleSave, From: lir.RegLoc(0), To: lir.SpillLoc(0)},
		{Kind: lir.MoveAssign, From: lir.RegLoc(2), To: lir.RegLoc(0)},
		{Kind: lir.MoveAssign, From: lir.RegLoc(1), To: lir.RegLoc(2)},
		{Kind: lir.MoveCycleRestore, From: lir.SpillLoc(0), To: lir.RegLoc(1)},
	}
	assertMovesEqual(t, out, want)
}

func TestScheduleEmptyInputProducesNoMoves(t *testing.T) {
	out, err := Schedule(nil)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no moves, got %v", out)
	}
}

func assertMovesEqual(t *testing.T, got, want []lir.Move) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d moves %v, want %d moves %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("move %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}
