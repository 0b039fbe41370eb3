// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linear

import "github.com/hadron-sclang/hadron-sub002/internal/compiler/hir"

// BuildLifetimes implements BUILDINTERVALS from Wimmer & Franz, "Linear
// Scan Register Allocation on SSA Form": walking blocks in reverse
// linear order, derive every value's lifetime from its reads and
// writes.
func BuildLifetimes(lf *Frame) {
	lf.Intervals = make(map[hir.Id]*Lifetime)
	liveIn := make(map[hir.BlockId]map[hir.Id]bool)

	for i := len(lf.BlockOrder) - 1; i >= 0; i-- {
		bid := lf.BlockOrder[i]
		blk := lf.Source.Block(bid)
		rng := lf.BlockRanges[bid]

		// Step 1: live-out = union of successors' live-in, plus, for
		// each successor phi, the input corresponding to this block.
		liveOut := make(map[hir.Id]bool)
		for _, succ := range blk.Successors {
			for v := range liveIn[succ] {
				liveOut[v] = true
			}
			succBlk := lf.Source.Block(succ)
			predIdx := indexOfBlock(succBlk.Predecessors, bid)
			if predIdx >= 0 {
				for _, phi := range succBlk.Phis {
					if predIdx < len(phi.Inputs) {
						liveOut[phi.Inputs[predIdx]] = true
					}
				}
			}
		}

		// Step 2: every value live at block exit gets the full block
		// range appended to its lifetime.
		for v := range liveOut {
			lf.interval(v).AddInterval(rng.Start, rng.End)
		}

		live := liveOut

		// Step 3: walk the block's instructions (phis then statements,
		// matching Insts order) in reverse.
		for line := rng.End - 1; line >= rng.Start; line-- {
			in := lf.Insts[line]
			if in.Op == hir.OpLabel {
				continue
			}
			for _, v := range readsOf(in) {
				lf.interval(v).AddInterval(rng.Start, line+1)
				lf.interval(v).AddUse(line)
				live[v] = true
			}
			if in.Id != hir.NoId {
				it := lf.interval(in.Id)
				it.shortenFirstRangeStart(line)
				it.AddUse(line)
				delete(live, in.Id)
			}
		}

		// Step 4: remove phi-destination values from this block's
		// live-in (phis are defined at this block, not inherited).
		for _, phi := range blk.Phis {
			delete(live, phi.Id)
		}

		// Step 5: if this block is a loop header (it has a predecessor
		// whose block range starts after this block's, i.e. a back
		// edge), extend every live-in value's lifetime across the
		// entire loop body range [this block's start, the latest
		// back-edge predecessor's end).
		if loopEnd, isHeader := loopBodyEnd(lf, bid); isHeader {
			for v := range live {
				lf.interval(v).AddInterval(rng.Start, loopEnd)
			}
		}

		liveIn[bid] = live
	}
}

func (lf *Frame) interval(v hir.Id) *Lifetime {
	it, ok := lf.Intervals[v]
	if !ok {
		it = &Lifetime{}
		lf.Intervals[v] = it
	}
	return it
}

// shortenFirstRangeStart narrows the lifetime's earliest range so it
// begins at line, the value's definition point (step 3's "shorten the
// first range so it starts at instructionLine").
func (lt *Lifetime) shortenFirstRangeStart(line int) {
	if len(lt.Ranges) == 0 {
		lt.Ranges = []Range{{Start: line, End: line + 1}}
		return
	}
	if lt.Ranges[0].Start < line {
		lt.Ranges[0].Start = line
	}
}

// readsOf returns the value ids an instruction reads, opcode by
// opcode.
func readsOf(in *hir.Inst) []hir.Id {
	var reads []hir.Id
	switch in.Op {
	case hir.OpReadFromFrame:
		if in.FrameId != hir.NoId {
			reads = append(reads, in.FrameId)
		}
	case hir.OpWriteToFrame:
		reads = append(reads, in.StoreValue)
		if in.FrameId != hir.NoId {
			reads = append(reads, in.FrameId)
		}
	case hir.OpWriteToClass:
		reads = append(reads, in.StoreValue)
	case hir.OpWriteToThis:
		reads = append(reads, in.ThisValue, in.StoreValue)
	case hir.OpReadFromThis:
		reads = append(reads, in.ThisValue)
	case hir.OpLoadOuterFrame:
		if in.InnerFrame != hir.NoId {
			reads = append(reads, in.InnerFrame)
		}
	case hir.OpRouteToSuperclass:
		reads = append(reads, in.SuperTarget)
	case hir.OpMessage:
		if in.Target != hir.NoId {
			reads = append(reads, in.Target)
		}
		reads = append(reads, in.Args...)
		for _, kw := range in.KwArgs {
			reads = append(reads, kw.Value)
		}
	case hir.OpBranchIfTrue:
		reads = append(reads, in.Cond)
	case hir.OpStoreReturn:
		reads = append(reads, in.ReturnValue)
	case hir.OpPhi:
		// Phi inputs are consumed on the incoming edge, not at the
		// phi's own line; they are not treated as reads here.
	}
	return reads
}

func indexOfBlock(ids []hir.BlockId, id hir.BlockId) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// loopBodyEnd reports whether bid is a loop header — has a predecessor
// appearing later than it in BlockOrder, a back edge — and if so the
// end line of the latest such predecessor's range.
func loopBodyEnd(lf *Frame, bid hir.BlockId) (int, bool) {
	headerPos := indexOfBlock(lf.BlockOrder, bid)
	blk := lf.Source.Block(bid)
	found := false
	end := 0
	for _, pred := range blk.Predecessors {
		predPos := indexOfBlock(lf.BlockOrder, pred)
		if predPos > headerPos {
			found = true
			if r := lf.BlockRanges[pred].End; r > end {
				end = r
			}
		}
	}
	return end, found
}
