// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hir implements the High-level IR and the CFGBuilder that
// translates a parse tree into a Control Flow Graph of basic blocks
// holding HIR instructions in Static Single Assignment form, using the
// on-the-fly construction algorithm of Braun et al., "Simple and
// Efficient Construction of SSA Form".
package hir

import (
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/slot"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/symbol"
)

// Id identifies an HIR value. NoId (-1) marks a value-less instruction
// (a Branch, for instance).
type Id int32

// NoId is the id carried by instructions that produce no value.
const NoId Id = -1

// BlockId identifies a Block within its owning Frame. Block ids are
// dense from 0.
type BlockId int32

// NoBlock is the sentinel for "no block".
const NoBlock BlockId = -1

// Opcode tags the variant an Inst carries. Operations that would be
// virtual methods in a class hierarchy become functions dispatching on
// this tag (spec §9 design notes).
type Opcode int

const (
	OpLoadArgument Opcode = iota
	OpConstant
	OpReadFromFrame
	OpWriteToFrame
	OpReadFromClass
	OpWriteToClass
	OpReadFromThis
	OpWriteToThis
	OpReadFromContext
	OpLoadOuterFrame
	OpRouteToSuperclass
	OpMessage
	OpPhi
	OpBranch
	OpBranchIfTrue
	OpStoreReturn
	OpMethodReturn
	OpBlockLiteral
	OpImportName

	// OpLabel is synthesized by the Linearizer, not the CFGBuilder: it
	// never appears in a Block's Phis or Statements, only in a
	// linear.Frame's flattened instruction stream, marking the position
	// a block's range begins at. Its Block field names the block it
	// labels.
	OpLabel
)

func (o Opcode) String() string {
	names := [...]string{
		"LoadArgument", "Constant", "ReadFromFrame", "WriteToFrame",
		"ReadFromClass", "WriteToClass", "ReadFromThis", "WriteToThis",
		"ReadFromContext", "LoadOuterFrame", "RouteToSuperclass",
		"Message", "Phi", "Branch", "BranchIfTrue", "StoreReturn",
		"MethodReturn", "BlockLiteral", "ImportName", "Label",
	}
	if int(o) < len(names) {
		return names[o]
	}
	return "Unknown"
}

// ContextField names one of the dedicated special-name reads handled by
// name resolution step 6.
type ContextField int

const (
	ContextSuper ContextField = iota
	ContextThisMethod
	ContextThisProcess
	ContextThisThread
)

// KwArg is one keyword argument of a Message send.
type KwArg struct {
	Key   symbol.Hash
	Value Id
}

// TypeSet is the inferred type-set an HIR value carries, a bitmask over
// slot.Type so a value can be inferred as "int32 or nil", etc. Zero
// means "unconstrained" (any type).
type TypeSet uint8

func TypeSetOf(t slot.Type) TypeSet { return 1 << uint(t) }

func (ts TypeSet) Union(other TypeSet) TypeSet { return ts | other }

func (ts TypeSet) Contains(t slot.Type) bool { return ts&TypeSetOf(t) != 0 }

// Inst is one HIR instruction: a variant over Opcode carrying only the
// fields relevant to that opcode, per the tagged-variant design note in
// spec §9. Every Inst carries a unique Id (NoId when value-less), an
// inferred Type, and the Block that owns it. The Reads field is not
// filled in by the CFGBuilder; the ids an Inst reads are derived from
// its opcode-specific fields where they are needed.
type Inst struct {
	Id    Id
	Op    Opcode
	Block BlockId
	Type  TypeSet
	Reads []Id

	// Constant
	Value slot.Slot

	// LoadArgument / ReadFromFrame / WriteToFrame: index into the
	// frame's prototype slot array.
	FrameIndex int
	// ReadFromFrame / WriteToFrame: the id of the resolved enclosing-
	// frame pointer (the tail of a LoadOuterFrame chain) this slot
	// access targets, or NoId when the slot belongs to the currently
	// running frame (mirrors the original's ReadFromFrameHIR carrying
	// both a frameIndex and a frameId).
	FrameId Id
	// WriteToFrame / WriteToClass / WriteToThis: the id being stored.
	StoreValue Id

	// ReadFromClass / WriteToClass: index into the thread context's
	// class-variable array.
	ClassVarIndex int

	// ReadFromThis / WriteToThis: the id of the resolved `this` value,
	// and the instance-variable index.
	ThisValue  Id
	InstVarIndex int

	// ReadFromContext: which special name this reads.
	Context ContextField

	// LoadOuterFrame: the id of the frame pointer one level in, chained
	// by repeated application to reach an enclosing frame N levels out.
	InnerFrame Id

	// RouteToSuperclass: the id of the Message HIR being redirected to
	// dispatch starting at the superclass's method table.
	SuperTarget Id

	// Message: target, selector, positional args, keyword args.
	Target   Id
	Selector symbol.Hash
	Args     []Id
	KwArgs   []KwArg

	// Phi: ordered inputs paralleling the owning block's predecessor
	// list.
	Inputs []Id

	// Branch / BranchIfTrue: destination block(s). Branch uses
	// TrueTarget only; BranchIfTrue goes to TrueTarget when Cond is true
	// and to FalseTarget otherwise.
	Cond        Id
	TrueTarget  BlockId
	FalseTarget BlockId

	// StoreReturn: the value being written to the caller's return slot.
	ReturnValue Id

	// BlockLiteral: the nested Frame this HIR allocates a closure over.
	Inner *Frame

	// ImportName: the symbol being imported into scope.
	Import symbol.Hash
}

// equivKey returns a comparable key for local value numbering: two
// Insts with equal keys in the same block are semantically equivalent
// and the second insertion is elided in favor of the first.
type equivKey struct {
	op       Opcode
	bits     uint64
	a, b, c  Id
	selector symbol.Hash
	nargs    int
}

func (in *Inst) equivKey() (equivKey, bool) {
	switch in.Op {
	case OpConstant:
		return equivKey{op: in.Op, bits: in.Value.Bits()}, true
	case OpReadFromFrame:
		return equivKey{op: in.Op, bits: uint64(in.FrameIndex), a: in.FrameId}, true
	case OpReadFromThis:
		return equivKey{op: in.Op, bits: uint64(in.InstVarIndex), a: in.ThisValue}, true
	case OpReadFromClass:
		return equivKey{op: in.Op, bits: uint64(in.ClassVarIndex)}, true
	case OpReadFromContext:
		return equivKey{op: in.Op, bits: uint64(in.Context)}, true
	case OpLoadOuterFrame:
		return equivKey{op: in.Op, a: in.InnerFrame}, true
	default:
		// Writes, messages, control flow, and phis are never
		// deduplicated: they either have side effects, may return a
		// different value each call, or are identified by position.
		return equivKey{}, false
	}
}
