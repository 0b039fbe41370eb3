// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package validate

import (
	"fmt"

	"github.com/hadron-sclang/hadron-sub002/internal/compiler/hir"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/lir"
)

// Allocation checks the invariants that must hold once the
// RegisterAllocator has run: every vreg read or defined at a line
// carries exactly one recorded Location there, and no two distinct
// values share the same register at the same line (the property the
// whole allocator exists to guarantee).
func Allocation(lf *lir.Frame) []error {
	var errs []error
	for line, in := range lf.Insts {
		want := make([]lir.VReg, 0, len(in.Reads)+1)
		if in.Dest != lir.NoVReg {
			want = append(want, in.Dest)
		}
		want = append(want, in.Reads...)

		for _, v := range want {
			if v < 0 {
				continue // pinned vregs are never allocated
			}
			if _, ok := in.Locations[v]; !ok {
				errs = append(errs, fmt.Errorf("validate: value %d used at line %d has no assigned location", v, line))
			}
		}

		seen := make(map[int]hir.Id, len(in.Locations))
		for v, loc := range in.Locations {
			if !loc.IsRegister() {
				continue
			}
			if owner, ok := seen[loc.Reg]; ok {
				errs = append(errs, fmt.Errorf("validate: line %d: register %d holds both value %d and value %d", line, loc.Reg, owner, v))
			}
			seen[loc.Reg] = v
		}
	}
	return errs
}
