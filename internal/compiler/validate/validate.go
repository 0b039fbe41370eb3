// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package validate implements the cross-pass invariant checks of spec
// §4.8: one checker per pipeline stage boundary, each returning every
// violation it finds (not just the first) so a single run surfaces the
// whole picture.
package validate

import (
	"fmt"

	"github.com/hadron-sclang/hadron-sub002/internal/compiler/hir"
)

// Frame checks the invariants that must hold immediately after
// CFGBuild: every argument name has a matching default slot, no HIR id
// is issued twice, every id a block references resolves to a value the
// frame actually owns, every block is sealed, and every phi's input
// count matches its block's predecessor count.
func Frame(f *hir.Frame) []error {
	var errs []error

	if len(f.ArgNames) != len(f.ArgDefaults) {
		errs = append(errs, fmt.Errorf("validate: frame has %d argument names but %d defaults", len(f.ArgNames), len(f.ArgDefaults)))
	}

	seen := make(map[hir.Id]bool)
	for _, blk := range f.BlocksByID() {
		if !blk.Sealed {
			errs = append(errs, fmt.Errorf("validate: block %d is not sealed", blk.Id))
		}
		for _, phi := range blk.Phis {
			if len(phi.Inputs) != len(blk.Predecessors) {
				errs = append(errs, fmt.Errorf("validate: block %d phi %d has %d inputs, want %d (one per predecessor)",
					blk.Id, phi.Id, len(phi.Inputs), len(blk.Predecessors)))
			}
			errs = append(errs, checkID(f, seen, phi.Id)...)
			errs = append(errs, checkReads(f, phi.Inputs)...)
		}
		for _, stmt := range blk.Statements {
			errs = append(errs, checkID(f, seen, stmt.Id)...)
			errs = append(errs, checkReads(f, readsOf(stmt))...)
		}
	}
	return errs
}

func checkID(f *hir.Frame, seen map[hir.Id]bool, id hir.Id) []error {
	if id == hir.NoId {
		return nil
	}
	if seen[id] {
		return []error{fmt.Errorf("validate: id %d issued more than once", id)}
	}
	seen[id] = true
	if _, ok := f.TryInst(id); !ok {
		return []error{fmt.Errorf("validate: id %d has no entry in the frame's value array", id)}
	}
	return nil
}

func checkReads(f *hir.Frame, reads []hir.Id) []error {
	var errs []error
	for _, r := range reads {
		if r == hir.NoId {
			continue
		}
		if _, ok := f.TryInst(r); !ok {
			errs = append(errs, fmt.Errorf("validate: read of unknown id %d", r))
		}
	}
	return errs
}

// readsOf returns the value ids a statement reads, opcode by opcode,
// mirroring the extraction internal/compiler/linear's LifetimeAnalyzer
// performs over the same instruction set.
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
	}
	return reads
}
