// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lir implements the Low-level IR: a variant over opcodes
// approximating a three-address RISC, lowered from HIR one instruction
// at a time so that the lifetime intervals the LifetimeAnalyzer already
// computed over the HIR instruction stream keep applying unchanged to
// the lowered stream (the line numbers never shift). RegisterAllocator
// and Resolver both operate on this package's Frame.
package lir

import (
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/hir"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/slot"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/symbol"
)

// VReg names a virtual register: for every ordinary value this is the
// same numeric id hir.Inst.Id assigned it, so the intervals computed by
// linear.BuildLifetimes over HIR ids apply directly to the lowered LIR
// stream. A handful of negative sentinels below name fixed physical
// bindings that are never subject to allocation.
type VReg = hir.Id

// NoVReg marks a value-less instruction, mirroring hir.NoId.
const NoVReg VReg = hir.NoId

// Pinned registers reserved throughout the pipeline (spec §4.4's "tie-
// breaks" reservation of physical register 0 for the thread-context
// pointer and register 1 for the stack pointer). These never appear as
// ordinary value ids (which are always ≥ 0), so they are safe sentinels
// for reads that address a fixed physical binding directly rather than
// a value the allocator must place.
const (
	ThreadContextVReg VReg = -2
	StackPointerVReg  VReg = -3
)

// Opcode tags the LIR variant, per spec §3's "variant over opcodes
// approximating a three-address RISC".
type Opcode int

const (
	OpAssign Opcode = iota
	OpLoadConstant
	OpLoadImmediate
	OpLoadFramePointer
	OpLoadFromFrame
	OpStoreToFrame
	OpLoadFromStack
	OpStoreToStack
	OpLoadFromPointer
	OpStoreToPointer
	OpBranchToRegister
	OpBranch
	OpBranchIfTrue
	OpLabel
	OpPhi
	OpInterrupt
)

func (o Opcode) String() string {
	names := [...]string{
		"Assign", "LoadConstant", "LoadImmediate", "LoadFramePointer",
		"LoadFromFrame", "StoreToFrame", "LoadFromStack", "StoreToStack",
		"LoadFromPointer", "StoreToPointer", "BranchToRegister",
		"Branch", "BranchIfTrue", "Label", "Phi", "Interrupt",
	}
	if int(o) < len(names) {
		return names[o]
	}
	return "Unknown"
}

// LocationKind distinguishes a physical register from a frame spill
// slot, the two kinds of location the allocator/resolver ever assign.
type LocationKind int

const (
	InRegister LocationKind = iota
	InSpillSlot
)

// Location is where a value lives at one program point: a physical
// register number, or a spill-slot index (slot 0 reserved for the
// MoveScheduler's cycle-breaking scratch save).
type Location struct {
	Kind LocationKind
	Reg  int
	Slot int
}

func RegLoc(reg int) Location  { return Location{Kind: InRegister, Reg: reg} }
func SpillLoc(slot int) Location { return Location{Kind: InSpillSlot, Slot: slot} }

func (l Location) IsRegister() bool { return l.Kind == InRegister }

func (l Location) Equal(o Location) bool {
	if l.Kind != o.Kind {
		return false
	}
	if l.Kind == InRegister {
		return l.Reg == o.Reg
	}
	return l.Slot == o.Slot
}

// MoveKind distinguishes the three cases the MoveScheduler resolves a
// simultaneous-move set into (spec §4.5): a straight assignment on an
// acyclic dependency chain, a two-register swap realized with the
// XOR-swap trick (no scratch register or memory traffic), or one leg
// of a longer cycle broken by saving/restoring through spill slot 0.
type MoveKind int

const (
	MoveAssign MoveKind = iota
	MoveSwap
	MoveCycleSave
	MoveCycleRestore
)

// Move is a single relocation the MoveScheduler emits, origin to
// destination, to execute before the instruction that carries it. Kind
// tells the Emitter which instruction pattern to produce for it.
type Move struct {
	Kind     MoveKind
	From, To Location
}

// Inst is one LIR instruction: a tagged variant carrying only the
// fields its opcode uses, plus the two maps the allocator and resolver
// populate: Locations (every vreg live at this line and where it sits)
// and Moves (relocations to execute immediately before this
// instruction, in scheduled order).
type Inst struct {
	Op    Opcode
	Block hir.BlockId
	Dest  VReg
	Reads []VReg

	// LoadConstant
	Value slot.Slot
	// LoadImmediate
	Imm uint64

	// LoadFromFrame / StoreToFrame
	FrameIndex int
	// StoreToFrame / StoreToStack / StoreToPointer: the value stored.
	Src VReg

	// LoadFromStack / StoreToStack
	StackOffset int

	// LoadFromPointer / StoreToPointer
	Base   VReg
	Offset int

	// BranchToRegister
	Target VReg

	// Branch / BranchIfTrue
	Cond        VReg
	TrueTarget  hir.BlockId
	FalseTarget hir.BlockId

	// Phi
	Inputs []VReg

	// Interrupt
	StatusCode int

	// PreservesNoRegisters marks a dispatch point (spec §4.4): at this
	// line the allocator forces every live non-reserved value to spill
	// before the instruction and reload after, since the callee may
	// clobber any register.
	PreservesNoRegisters bool

	Locations map[VReg]Location
	Moves     []Move
}

// AddLocation records where v sits at this instruction's line, called
// by the RegisterAllocator while it walks completed intervals back
// over the instruction stream.
func (in *Inst) AddLocation(v VReg, loc Location) {
	if in.Locations == nil {
		in.Locations = make(map[VReg]Location)
	}
	in.Locations[v] = loc
}

// Frame is the LIR-lowered form of a linear.Frame: the same
// instruction count and block layout (lowering is exactly one LIR
// instruction per HIR instruction, so BlockOrder/BlockRanges carry over
// unchanged), now holding Inst values instead of hir.Inst pointers.
type Frame struct {
	Insts       []*Inst
	BlockOrder  []hir.BlockId
	BlockRanges map[hir.BlockId]Range
	SpillSlots  int

	// Selectors maps the stack offset assigned to a Message argument
	// back to its selector, purely for diagnostics; not consulted by
	// any pass.
	Selectors map[int]symbol.Hash
}

// Range mirrors linear.BlockRange; duplicated here rather than
// depending on package linear from lir, keeping the lowering direction
// (linear -> lir, never the reverse) a one-way dependency.
type Range struct {
	Start, End int
}

// LineOf returns the position of in within f.Insts, or -1 if not found.
func (f *Frame) LineOf(in *Inst) int {
	for i, candidate := range f.Insts {
		if candidate == in {
			return i
		}
	}
	return -1
}
