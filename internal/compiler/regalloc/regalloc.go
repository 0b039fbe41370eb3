// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regalloc implements linear-scan register allocation on SSA,
// per Wimmer & Franz, "Linear Scan Register Allocation on SSA Form":
// unhandled/active/inactive/handled interval sets, tryAllocateFreeReg
// and allocateBlockedReg, and interval splitting on spill. It consumes
// a lir.Frame already carrying lifetime intervals derived from
// linear.BuildLifetimes and assigns every value a physical register or
// spill slot.
package regalloc

import (
	"sort"

	"github.com/hadron-sclang/hadron-sub002/internal/compiler/hir"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/linear"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/lir"
)

// MachineDescription names the physical registers available to the
// allocator. Register 0 and 1 are reserved throughout the pipeline
// (thread-context pointer and managed-stack pointer, spec §4.4) and
// must not appear in CallerSaved/CalleeSaved.
type MachineDescription struct {
	NumRegisters int
	CallerSaved  map[int]bool
	CalleeSaved  map[int]bool
}

const (
	ThreadContextReg = 0
	StackPointerReg  = 1
	firstAllocatable = 2
)

// Range mirrors linear.Range; duplicated to keep regalloc's Interval
// self-contained from the analyzer's own mutable Lifetime type, since
// splitting produces brand new Intervals the analyzer never sees.
type Range struct{ Start, End int }

// Interval is one (value, location) pair, exactly the LifetimeInterval
// of spec §3: a value id, an assigned location, a sorted non-
// overlapping set of live ranges, a sorted set of usage points, and
// whether this piece of the value's lifetime is spilled.
type Interval struct {
	VReg    lir.VReg
	Loc     lir.Location
	Ranges  []Range
	Uses    []int
	IsSpill bool
}

func (iv *Interval) Start() int {
	if len(iv.Ranges) == 0 {
		return -1
	}
	return iv.Ranges[0].Start
}

func (iv *Interval) End() int {
	if len(iv.Ranges) == 0 {
		return -1
	}
	return iv.Ranges[len(iv.Ranges)-1].End
}

func (iv *Interval) Covers(pos int) bool {
	for _, r := range iv.Ranges {
		if pos >= r.Start && pos < r.End {
			return true
		}
	}
	return false
}

// intersects reports the earliest position where iv and other both
// cover, or ok=false if they never do.
func (iv *Interval) intersects(other *Interval) (int, bool) {
	for _, a := range iv.Ranges {
		for _, b := range other.Ranges {
			start := a.Start
			if b.Start > start {
				start = b.Start
			}
			end := a.End
			if b.End < end {
				end = b.End
			}
			if start < end {
				return start, true
			}
		}
	}
	return 0, false
}

// nextUseAtOrAfter returns the smallest recorded use at or after pos.
func (iv *Interval) nextUseAtOrAfter(pos int) (int, bool) {
	i := sort.SearchInts(iv.Uses, pos)
	if i >= len(iv.Uses) {
		return 0, false
	}
	return iv.Uses[i], true
}

// splitAt divides iv at pos: iv keeps every range/use strictly before
// pos (trimming a range straddling pos to end at pos), and the
// returned Interval picks up pos onward. Used both for "free until"
// partial allocation and for spilling a live value mid-lifetime.
func (iv *Interval) splitAt(pos int) *Interval {
	tail := &Interval{VReg: iv.VReg}
	var headRanges, tailRanges []Range
	for _, r := range iv.Ranges {
		switch {
		case r.End <= pos:
			headRanges = append(headRanges, r)
		case r.Start >= pos:
			tailRanges = append(tailRanges, r)
		default:
			headRanges = append(headRanges, Range{r.Start, pos})
			tailRanges = append(tailRanges, Range{pos, r.End})
		}
	}
	iv.Ranges = headRanges
	tail.Ranges = tailRanges

	var headUses, tailUses []int
	for _, u := range iv.Uses {
		if u < pos {
			headUses = append(headUses, u)
		} else {
			tailUses = append(tailUses, u)
		}
	}
	iv.Uses = headUses
	tail.Uses = tailUses
	return tail
}

// Allocate implements LINEARSCAN: pop the earliest unhandled interval,
// advance active/inactive against its start, try a free register, fall
// back to spilling the interval whose next use is farthest away, and
// force a spill/reload around every dispatch point.
func Allocate(lf *lir.Frame, intervals map[hir.Id]*linear.Lifetime, md MachineDescription) error {
	state := &allocator{lf: lf, md: md}
	state.seedUnhandled(intervals)
	sort.Slice(state.unhandled, func(i, j int) bool { return state.unhandled[i].Start() < state.unhandled[j].Start() })

	for len(state.unhandled) > 0 {
		cur := state.unhandled[0]
		state.unhandled = state.unhandled[1:]
		pos := cur.Start()

		state.expireAndActivate(pos)
		state.forceSpillAcrossDispatch(pos)

		if !state.tryAllocateFreeReg(cur) {
			state.allocateBlockedReg(cur)
		}

		state.handled = append(state.handled, cur)
		if cur.Loc.IsRegister() {
			state.active = append(state.active, cur)
		}
	}

	state.populateLocations()
	return nil
}

type allocator struct {
	lf  *lir.Frame
	md  MachineDescription
	unhandled, active, inactive, handled []*Interval
	nextSpillSlot int
}

func (a *allocator) seedUnhandled(intervals map[hir.Id]*linear.Lifetime) {
	a.nextSpillSlot = a.lf.SpillSlots
	if a.nextSpillSlot < 1 {
		a.nextSpillSlot = 1
	}
	for id, lt := range intervals {
		if id < 0 {
			continue // pinned vregs (ThreadContextVReg, StackPointerVReg) never compete for allocation
		}
		iv := &Interval{VReg: id}
		for _, r := range lt.Ranges {
			iv.Ranges = append(iv.Ranges, Range{r.Start, r.End})
		}
		iv.Uses = append(iv.Uses, lt.Uses...)
		a.unhandled = append(a.unhandled, iv)
	}
}

// expireAndActivate moves active intervals that ended to handled,
// active intervals with a hole at pos to inactive, and moves inactive
// intervals that now cover pos back to active (or to handled if they
// too have ended), per the top of Wimmer & Franz's main loop.
func (a *allocator) expireAndActivate(pos int) {
	var stillActive []*Interval
	for _, iv := range a.active {
		switch {
		case iv.End() <= pos:
			a.handled = append(a.handled, iv)
		case !iv.Covers(pos):
			a.inactive = append(a.inactive, iv)
		default:
			stillActive = append(stillActive, iv)
		}
	}
	a.active = stillActive

	var stillInactive []*Interval
	for _, iv := range a.inactive {
		switch {
		case iv.End() <= pos:
			a.handled = append(a.handled, iv)
		case iv.Covers(pos):
			a.active = append(a.active, iv)
		default:
			stillInactive = append(stillInactive, iv)
		}
	}
	a.inactive = stillInactive
}

// forceSpillAcrossDispatch implements the dispatch-point preservation
// rule: at a LIR instruction that preserves no registers (an arbitrary
// message dispatch), every active, non-reserved value is evicted from
// its register before pos, taking a fresh spill slot for the
// remainder of its lifetime from pos onward; if it is used again after
// the dispatch, ordinary allocation may hand it a (possibly different)
// register when its tail is later popped from unhandled.
func (a *allocator) forceSpillAcrossDispatch(pos int) {
	if pos <= 0 || pos > len(a.lf.Insts) || !a.lf.Insts[pos-1].PreservesNoRegisters {
		return
	}
	for _, iv := range a.active {
		tail := iv.splitAt(pos)
		if len(tail.Ranges) > 0 {
			tail.Loc = a.allocSpillSlot()
			tail.IsSpill = true
			a.unhandled = append(a.unhandled, tail)
		}
		// iv's own range now ends at pos; whatever continuation it has
		// lives on as tail, so iv itself is finished.
		if len(iv.Ranges) > 0 {
			a.handled = append(a.handled, iv)
		}
	}
	a.active = nil
	sort.Slice(a.unhandled, func(i, j int) bool { return a.unhandled[i].Start() < a.unhandled[j].Start() })
}

func (a *allocator) allocSpillSlot() lir.Location {
	slot := a.nextSpillSlot
	a.nextSpillSlot++
	if a.nextSpillSlot > a.lf.SpillSlots {
		a.lf.SpillSlots = a.nextSpillSlot
	}
	return lir.SpillLoc(slot)
}

// tryAllocateFreeReg assigns cur a register free for its whole
// remaining lifetime, or the longest-free register with a split if
// none is free that long; returns false if every candidate register is
// busy immediately at cur's start.
func (a *allocator) tryAllocateFreeReg(cur *Interval) bool {
	freeUntil := make(map[int]int, a.md.NumRegisters)
	for r := firstAllocatable; r < a.md.NumRegisters; r++ {
		freeUntil[r] = 1 << 30
	}
	for _, iv := range a.active {
		if iv.Loc.IsRegister() {
			freeUntil[iv.Loc.Reg] = 0
		}
	}
	for _, iv := range a.inactive {
		if !iv.Loc.IsRegister() {
			continue
		}
		if pos, ok := iv.intersects(cur); ok && pos < freeUntil[iv.Loc.Reg] {
			freeUntil[iv.Loc.Reg] = pos
		}
	}

	best, bestUntil := -1, -1
	for r := firstAllocatable; r < a.md.NumRegisters; r++ {
		u := freeUntil[r]
		if u > bestUntil || (u == bestUntil && a.preferRegister(r, best)) {
			best, bestUntil = r, u
		}
	}
	if best < 0 || bestUntil == 0 {
		return false
	}

	if bestUntil < cur.End() {
		tail := cur.splitAt(bestUntil)
		a.unhandled = append(a.unhandled, tail)
		sort.Slice(a.unhandled, func(i, j int) bool { return a.unhandled[i].Start() < a.unhandled[j].Start() })
	}
	cur.Loc = lir.RegLoc(best)
	return true
}

// preferRegister breaks free-until ties: lower register numbers win,
// except that a caller-saved register is preferred over a callee-saved
// one (every interval in a single-frame compile ends inside the
// function, so there is never a cross-call benefit to a callee-saved
// choice here, per spec §4.4's tie-break rule).
func (a *allocator) preferRegister(candidate, current int) bool {
	if current < 0 {
		return true
	}
	candCaller, curCaller := a.md.CallerSaved[candidate], a.md.CallerSaved[current]
	if candCaller != curCaller {
		return candCaller
	}
	return candidate < current
}

// allocateBlockedReg implements the spill path: find the active
// register whose assigned interval has the farthest next use, and
// either spill that interval (if its next use is further away than
// cur's first use) or spill cur itself.
func (a *allocator) allocateBlockedReg(cur *Interval) {
	nextUse := make(map[int]int, a.md.NumRegisters)
	owner := make(map[int]*Interval, a.md.NumRegisters)
	for r := firstAllocatable; r < a.md.NumRegisters; r++ {
		nextUse[r] = 1 << 30
	}
	for _, iv := range a.active {
		if !iv.Loc.IsRegister() {
			continue
		}
		u, ok := iv.nextUseAtOrAfter(cur.Start())
		if !ok {
			u = 1 << 30
		}
		nextUse[iv.Loc.Reg] = u
		owner[iv.Loc.Reg] = iv
	}

	best, bestUse := -1, -1
	for r := firstAllocatable; r < a.md.NumRegisters; r++ {
		if nextUse[r] > bestUse {
			best, bestUse = r, nextUse[r]
		}
	}

	curFirstUse, ok := cur.nextUseAtOrAfter(cur.Start())
	if !ok {
		curFirstUse = 1 << 30
	}

	if best < 0 || curFirstUse > bestUse {
		// cur itself is used later than anything currently holding a
		// register: spill cur for its entire remaining lifetime.
		cur.Loc = a.allocSpillSlot()
		cur.IsSpill = true
		return
	}

	// Evict the current occupant of best, splitting it at cur's start
	// so the part already past is unaffected and the remainder is
	// spilled and reconsidered.
	blocker := owner[best]
	tail := blocker.splitAt(cur.Start())
	if len(tail.Ranges) > 0 {
		tail.Loc = a.allocSpillSlot()
		tail.IsSpill = true
		a.unhandled = append(a.unhandled, tail)
		sort.Slice(a.unhandled, func(i, j int) bool { return a.unhandled[i].Start() < a.unhandled[j].Start() })
	}
	var kept []*Interval
	for _, iv := range a.active {
		if iv != blocker {
			kept = append(kept, iv)
		}
	}
	a.active = kept
	// blocker's trimmed head (everything before cur's start) already
	// happened; record it as handled so populateLocations still walks
	// it, rather than dropping it silently.
	if len(blocker.Ranges) > 0 {
		a.handled = append(a.handled, blocker)
	}
	cur.Loc = lir.RegLoc(best)
}

// populateLocations walks every handled interval and records, for every
// line it covers, the location of its value at that line — the Validator's "every value at every point of use is
// assigned to a single physical location" invariant.
func (a *allocator) populateLocations() {
	for _, iv := range a.handled {
		for line := iv.Start(); line >= 0 && line < iv.End(); line++ {
			if line < 0 || line >= len(a.lf.Insts) {
				continue
			}
			if !iv.Covers(line) {
				continue
			}
			a.lf.Insts[line].AddLocation(iv.VReg, iv.Loc)
		}
	}
}
