// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve

import (
	"sort"

	"github.com/hadron-sclang/hadron-sub002/internal/compiler/lir"
)

// Schedule turns a set of simultaneous moves (every From and every To
// is unique — the Resolver never proposes two moves reading the same
// location or writing the same location) into an ordered sequence that
// has the same effect as if every move happened at once. Because both
// endpoints are unique, the moves form a permutation graph: a
// disjoint union of simple chains and simple cycles. Chains emit
// tail-to-head (spec §4.5 case 1); a 2-cycle becomes a register swap
// via the XOR trick (case 2); any longer cycle, or one touching a
// spill slot, breaks at one edge through spill slot 0 (case 3).
func Schedule(moves []lir.Move) ([]lir.Move, error) {
	if len(moves) == 0 {
		return nil, nil
	}

	nextMove := make(map[lir.Location]lir.Move, len(moves))
	hasIncoming := make(map[lir.Location]bool, len(moves))
	for _, m := range moves {
		nextMove[m.From] = m
		hasIncoming[m.To] = true
	}

	locs := sourceLocations(moves)
	visited := make(map[lir.Location]bool, len(moves)*2)
	var out []lir.Move

	// Chains: walk forward from every location that nothing writes into
	// (not any move's destination), collecting edges until reaching a
	// location nothing reads from (not any move's source); emit those
	// edges tail-to-head.
	for _, l := range locs {
		if visited[l] || hasIncoming[l] {
			continue
		}
		var edges []lir.Move
		cur := l
		for {
			m, ok := nextMove[cur]
			if !ok || visited[cur] {
				break
			}
			edges = append(edges, m)
			visited[cur] = true
			cur = m.To
		}
		for i := len(edges) - 1; i >= 0; i-- {
			out = append(out, lir.Move{Kind: lir.MoveAssign, From: edges[i].From, To: edges[i].To})
		}
	}

	// Whatever is left forms pure cycles: every remaining location has
	// both an incoming and an outgoing edge.
	for _, l := range locs {
		if visited[l] {
			continue
		}
		var cycle []lir.Move
		cur := l
		for {
			m := nextMove[cur]
			cycle = append(cycle, m)
			visited[cur] = true
			cur = m.To
			if cur == l {
				break
			}
		}
		emitCycle(cycle, &out)
	}

	return out, nil
}

// emitCycle resolves one closed cycle of moves. A pure 2-register
// cycle (a swap) is realized with three XORs and no scratch location;
// anything larger, or touching a spill slot, is broken by saving one
// value through spill slot 0, replaying the rest of the cycle as plain
// assignments, then restoring the saved value into its final home.
func emitCycle(cycle []lir.Move, out *[]lir.Move) {
	if len(cycle) == 2 && cycle[0].From.IsRegister() && cycle[1].From.IsRegister() {
		a, b := cycle[0].From, cycle[1].From
		if !locLess(a, b) {
			a, b = b, a
		}
		*out = append(*out,
			lir.Move{Kind: lir.MoveSwap, From: b, To: a},
			lir.Move{Kind: lir.MoveSwap, From: a, To: b},
			lir.Move{Kind: lir.MoveSwap, From: b, To: a},
		)
		return
	}

	first := cycle[0]
	scratch := lir.SpillLoc(0)
	*out = append(*out, lir.Move{Kind: lir.MoveCycleSave, From: first.From, To: scratch})
	for i := len(cycle) - 1; i >= 1; i-- {
		*out = append(*out, lir.Move{Kind: lir.MoveAssign, From: cycle[i].From, To: cycle[i].To})
	}
	*out = append(*out, lir.Move{Kind: lir.MoveCycleRestore, From: scratch, To: first.To})
}

func sourceLocations(moves []lir.Move) []lir.Location {
	set := make(map[lir.Location]bool, len(moves)*2)
	for _, m := range moves {
		set[m.From] = true
		set[m.To] = true
	}
	out := make([]lir.Location, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return locLess(out[i], out[j]) })
	return out
}

func locLess(a, b lir.Location) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.Kind == lir.InRegister {
		return a.Reg < b.Reg
	}
	return a.Slot < b.Slot
}
