// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resolve implements the Resolver and its MoveScheduler: the
// pass that runs after register allocation to reconcile the physical
// location a value has at the end of one block with the location the
// same value is expected to be in at the start of each successor,
// inserting move instructions on every edge where they differ (the
// RESOLVE algorithm of Wimmer & Franz, "Linear Scan Register
// Allocation on SSA Form").
package resolve

import (
	"strconv"

	"github.com/hadron-sclang/hadron-sub002/internal/compiler/hir"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/lir"
)

// Resolve walks every control-flow edge (b, s) in lf and, for every
// value live at the start of s, compares its location at the end of b
// with its location at the start of s; a mismatch becomes a Move
// scheduled onto the edge (the last instruction of b if b has a single
// successor, else the first instruction of s if s has a single
// predecessor). An edge that needs moves and satisfies neither is
// reported as an error.
func Resolve(lf *lir.Frame, succs, preds map[hir.BlockId][]hir.BlockId) error {
	for _, bid := range lf.BlockOrder {
		bRange := lf.BlockRanges[bid]
		if bRange.End == 0 {
			continue
		}
		lastOfB := bRange.End - 1

		for _, sid := range succs[bid] {
			sRange := lf.BlockRanges[sid]
			firstOfS := sRange.Start

			var moves []lir.Move
			for v, sLoc := range lf.Insts[firstOfS].Locations {
				bLoc, ok := locationAtEndOfBlock(lf, bRange, v)
				if !ok {
					continue // v is not live out of b on this path (e.g. a phi input from another predecessor)
				}
				if !bLoc.Equal(sLoc) {
					moves = append(moves, lir.Move{From: bLoc, To: sLoc})
				}
			}
			if len(moves) == 0 {
				continue
			}

			scheduled, err := Schedule(moves)
			if err != nil {
				return err
			}

			if len(succs[bid]) == 1 {
				lf.Insts[lastOfB].Moves = append(lf.Insts[lastOfB].Moves, scheduled...)
			} else if len(preds[sid]) == 1 {
				lf.Insts[firstOfS].Moves = append(lf.Insts[firstOfS].Moves, scheduled...)
			} else {
				return errCriticalEdge(bid, sid)
			}
		}
	}
	return nil
}

// locationAtEndOfBlock finds v's location at the last instruction of
// bRange that mentions it, since not every value live at a block's
// start is necessarily assigned a Location at every line (the
// allocator only records a vreg's location at lines within its own
// interval).
func locationAtEndOfBlock(lf *lir.Frame, bRange lir.Range, v lir.VReg) (lir.Location, bool) {
	for line := bRange.End - 1; line >= bRange.Start; line-- {
		if loc, ok := lf.Insts[line].Locations[v]; ok {
			return loc, true
		}
	}
	return lir.Location{}, false
}

type criticalEdgeError struct{ from, to hir.BlockId }

func (e *criticalEdgeError) Error() string {
	return "resolve: critical edge requires splitting, not yet supported for block " +
		strconv.Itoa(int(e.from)) + " -> " + strconv.Itoa(int(e.to))
}

func errCriticalEdge(from, to hir.BlockId) error { return &criticalEdgeError{from, to} }
