// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package parsetree defines the shape of the parse tree the CFGBuilder
// consumes. The lexer and parser that produce trees of this shape are
// external collaborators out of scope for this module (spec §1); this
// package only names their output contract, one typed node per parse-
// tree variant, each carrying only child references and literal data.
package parsetree

import (
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/slot"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/symbol"
)

// Kind discriminates the Node variants required by spec §6.
type Kind int

const (
	Empty Kind = iota
	Sequence
	Constant
	Name
	Assign
	Define
	If
	While
	Message
	Block
	MethodReturn
	MultiAssign
)

// KwArg is one keyword-argument pair in a Message send.
type KwArg struct {
	Key   symbol.Hash
	Value *Node
}

// Node is a single parse-tree node. Only the fields relevant to Kind
// are meaningful; this mirrors the variant-over-opcode shape used for
// HIR and LIR (spec §9 design notes) on the input side of the pipeline.
type Node struct {
	Kind Kind

	// Constant
	Value slot.Slot

	// Name / Assign (target) / Define (name being defined)
	NameHash symbol.Hash

	// Assign (source value) / Define (initializer, may be nil) /
	// MethodReturn (value, may be nil for a bare ^)
	RHS *Node

	// Sequence: statements in order. Block: body statements.
	Statements []*Node

	// If
	Condition *Node
	TrueBlock *Node // a Block node (possibly empty)
	FalseBlock *Node

	// While
	Body *Node

	// Message
	Target   *Node
	Selector symbol.Hash
	Args     []*Node
	KwArgs   []KwArg

	// Block (block literal / method body)
	ArgNames    []symbol.Hash
	ArgDefaults []slot.Slot

	// MultiAssign
	ArrayExpr    *Node
	TargetNames  []symbol.Hash
	LastIsRemain bool
}
