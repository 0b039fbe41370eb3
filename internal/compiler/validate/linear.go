// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package validate

import (
	"fmt"

	"github.com/hadron-sclang/hadron-sub002/internal/compiler/hir"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/linear"
)

// LinearFrame checks the invariants that must hold immediately after
// Linearize: the number of blocks in BlockOrder matches the source
// frame, every block's range is contiguous with the next and none
// overlap, and every block begins with a Label naming itself.
func LinearFrame(lf *linear.Frame) []error {
	var errs []error

	if len(lf.BlockOrder) != lf.Source.NumBlocks() {
		errs = append(errs, fmt.Errorf("validate: linear order has %d blocks, source frame has %d", len(lf.BlockOrder), lf.Source.NumBlocks()))
	}

	want := 0
	for _, bid := range lf.BlockOrder {
		r, ok := lf.BlockRanges[bid]
		if !ok {
			errs = append(errs, fmt.Errorf("validate: block %d in BlockOrder has no range", bid))
			continue
		}
		if r.Start != want {
			errs = append(errs, fmt.Errorf("validate: block %d starts at %d, expected contiguous %d", bid, r.Start, want))
		}
		if r.Start >= r.End {
			errs = append(errs, fmt.Errorf("validate: block %d has empty or inverted range %v", bid, r))
		} else {
			label := lf.Insts[r.Start]
			if label.Op != hir.OpLabel {
				errs = append(errs, fmt.Errorf("validate: block %d does not begin with a Label", bid))
			} else if label.Block != bid {
				errs = append(errs, fmt.Errorf("validate: block %d's Label names block %d", bid, label.Block))
			}
		}
		want = r.End
	}
	if want != len(lf.Insts) {
		errs = append(errs, fmt.Errorf("validate: block ranges cover %d of %d instructions", want, len(lf.Insts)))
	}
	return errs
}

// Lifetimes checks that BuildLifetimes covered every use recorded in
// the instruction stream and that the reserved scratch spill slot
// (slot 0) is still the only slot in use before allocation runs.
func Lifetimes(lf *linear.Frame) []error {
	var errs []error
	if lf.SpillSlots != 1 {
		errs = append(errs, fmt.Errorf("validate: expected exactly the reserved spill slot before allocation, got %d slots", lf.SpillSlots))
	}
	for i, in := range lf.Insts {
		if in.Op == hir.OpLabel {
			continue
		}
		if in.Id != hir.NoId {
			it, ok := lf.Intervals[in.Id]
			if !ok {
				errs = append(errs, fmt.Errorf("validate: value %d has no lifetime interval", in.Id))
			} else if !it.Covers(i) {
				errs = append(errs, fmt.Errorf("validate: value %d's definition at line %d is not covered by its own lifetime", in.Id, i))
			}
		}
		for _, r := range readsOf(in) {
			it, ok := lf.Intervals[r]
			if !ok {
				errs = append(errs, fmt.Errorf("validate: value %d is read at line %d but has no lifetime interval", r, i))
				continue
			}
			if !it.Covers(i) {
				errs = append(errs, fmt.Errorf("validate: value %d's use at line %d is not covered by its lifetime", r, i))
			}
		}
	}
	return errs
}
