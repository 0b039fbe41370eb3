// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rtcontext

import (
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/classlib"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/diag"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/heap"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/symbol"
)

// Context is the single explicit state bundle for one compilation,
// handed to the CFGBuilder (the only pass that takes it): the managed heap, the process-wide symbol table, the
// class library handle consulted during name resolution, the thread
// context ABI struct, and the diagnostic reporter for the unit
// currently being compiled. No pass reaches for package-level globals.
type Context struct {
	Heap     *heap.Heap
	Symbols  *symbol.Table
	Classes  classlib.Library
	Thread   *ThreadContext
	Reporter *diag.Reporter
}

// New returns a Context with a fresh heap, symbol table, and thread
// context, seeded with the given source text for diagnostics and the
// supplied class library (may be nil for units that resolve no class
// names, e.g. isolated unit tests of the pipeline).
func New(source string, classes classlib.Library) *Context {
	return &Context{
		Heap:     heap.New(),
		Symbols:  symbol.NewTable(),
		Classes:  classes,
		Thread:   NewThreadContext(),
		Reporter: diag.NewReporter(source),
	}
}
