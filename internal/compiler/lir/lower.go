// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lir

import (
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/diag"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/hir"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/linear"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/slot"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/symbol"
)

// ABI offsets for the fixed-layout reads/writes that do not go through
// the frame's prototype array: class variables and this's instance
// variables are addressed relative to the thread-context pointer and
// the resolved "this" pointer respectively, special context reads are
// fixed offsets into the thread context, and the outer-frame link is a
// fixed offset within every frame header. They are fixed constants
// defined once here rather than per call site; they are not derived
// from rtcontext.ThreadContext's Go field order or layout.
const (
	classVarArrayOffset  = 0  // offset of ThreadContext.ClassVariablesArray base
	outerFrameLinkOffset = -8 // frame header word holding the enclosing frame pointer
	instVarHeaderWords   = 1  // this-object header words preceding instance variables
	returnSlotOffset     = 0  // offset below the caller's stack pointer for the return value
	argStackBase         = 16 // stack words preceding the first argument (counts + selector hash)
	slotWordSize         = 8
)

var contextFieldOffset = map[hir.ContextField]int{
	hir.ContextSuper:       0,
	hir.ContextThisMethod:  8,
	hir.ContextThisProcess: 16,
	hir.ContextThisThread:  24,
}

// Lower translates lf's HIR instruction stream into an equivalent LIR
// stream, one LIR instruction per HIR instruction so that lf's already-
// computed BlockOrder, BlockRanges, and Intervals (keyed by line number
// and by hir.Id respectively) apply unchanged to the result.
func Lower(lf *linear.Frame) (*Frame, error) {
	out := &Frame{
		BlockOrder:  lf.BlockOrder,
		BlockRanges: make(map[hir.BlockId]Range, len(lf.BlockRanges)),
		SpillSlots:  lf.SpillSlots,
		Selectors:   make(map[int]symbol.Hash),
		Insts:       make([]*Inst, len(lf.Insts)),
	}
	for bid, r := range lf.BlockRanges {
		out.BlockRanges[bid] = Range{Start: r.Start, End: r.End}
	}

	argStack := nextArgStackAllocator()
	for i, in := range lf.Insts {
		lowered, err := lowerOne(in, i, argStack)
		if err != nil {
			return nil, err
		}
		out.Insts[i] = lowered
	}
	return out, nil
}

// argStackAllocator hands out successive stack-word offsets for
// Message arguments, reset at each Message site by lowerOne (a fresh
// outgoing-argument area per call, as the ABI requires).
type argStackAllocator struct{ next int }

func nextArgStackAllocator() *argStackAllocator { return &argStackAllocator{next: argStackBase} }

func (a *argStackAllocator) reset()      { a.next = argStackBase }
func (a *argStackAllocator) take() int   { o := a.next; a.next += slotWordSize; return o }

// lowerOne implements the per-opcode lowering rule table (spec §9's
// "per-tag rule table" design note for HIR->LIR).
func lowerOne(in *hir.Inst, line int, argStack *argStackAllocator) (*Inst, error) {
	out := &Inst{Block: in.Block, Dest: in.Id}

	switch in.Op {
	case hir.OpLabel:
		out.Op = OpLabel

	case hir.OpLoadArgument:
		out.Op = OpLoadFromStack
		out.StackOffset = argStackBase + in.FrameIndex*slotWordSize

	case hir.OpConstant:
		if in.Value.GetType() == slot.Int32 {
			out.Op = OpLoadImmediate
			out.Imm = uint64(uint32(in.Value.AsInt32()))
		} else {
			out.Op = OpLoadConstant
			out.Value = in.Value
		}

	case hir.OpReadFromFrame:
		if in.FrameId != hir.NoId {
			// A capturing closure's outer local: address it through the
			// resolved enclosing-frame pointer rather than the running
			// frame's own slot array.
			out.Op = OpLoadFromPointer
			out.Base = in.FrameId
			out.Offset = in.FrameIndex * slotWordSize
			out.Reads = []hir.Id{in.FrameId}
		} else {
			out.Op = OpLoadFromFrame
			out.FrameIndex = in.FrameIndex
		}

	case hir.OpWriteToFrame:
		if in.FrameId != hir.NoId {
			out.Op = OpStoreToPointer
			out.Base = in.FrameId
			out.Offset = in.FrameIndex * slotWordSize
			out.Src = in.StoreValue
			out.Reads = []hir.Id{in.FrameId, in.StoreValue}
		} else {
			out.Op = OpStoreToFrame
			out.FrameIndex = in.FrameIndex
			out.Src = in.StoreValue
			out.Reads = []hir.Id{in.StoreValue}
		}

	case hir.OpReadFromClass:
		out.Op = OpLoadFromPointer
		out.Base = ThreadContextVReg
		out.Offset = classVarArrayOffset + in.ClassVarIndex*slotWordSize
		out.Reads = []hir.Id{ThreadContextVReg}

	case hir.OpWriteToClass:
		out.Op = OpStoreToPointer
		out.Base = ThreadContextVReg
		out.Offset = classVarArrayOffset + in.ClassVarIndex*slotWordSize
		out.Src = in.StoreValue
		out.Reads = []hir.Id{ThreadContextVReg, in.StoreValue}

	case hir.OpReadFromThis:
		out.Op = OpLoadFromPointer
		out.Base = in.ThisValue
		out.Offset = (instVarHeaderWords + in.InstVarIndex) * slotWordSize
		out.Reads = []hir.Id{in.ThisValue}

	case hir.OpWriteToThis:
		out.Op = OpStoreToPointer
		out.Base = in.ThisValue
		out.Offset = (instVarHeaderWords + in.InstVarIndex) * slotWordSize
		out.Src = in.StoreValue
		out.Reads = []hir.Id{in.ThisValue, in.StoreValue}

	case hir.OpReadFromContext:
		out.Op = OpLoadFromPointer
		out.Base = ThreadContextVReg
		out.Offset = contextFieldOffset[in.Context]
		out.Reads = []hir.Id{ThreadContextVReg}

	case hir.OpLoadOuterFrame:
		out.Op = OpLoadFromPointer
		out.Offset = outerFrameLinkOffset
		if in.InnerFrame != hir.NoId {
			out.Base = in.InnerFrame
			out.Reads = []hir.Id{in.InnerFrame}
		} else {
			out.Base = ThreadContextVReg
			out.Reads = []hir.Id{ThreadContextVReg}
		}

	case hir.OpRouteToSuperclass:
		// Superclass dispatch routing is resolved by selecting the
		// method table to search from at send time; at the LIR level
		// the routed Message (emitted just before this instruction) has
		// already been lowered, so this is a pass-through of its result.
		out.Op = OpAssign
		out.Reads = []hir.Id{in.SuperTarget}

	case hir.OpMessage:
		argStack.reset()
		out.Op = OpBranchToRegister
		out.PreservesNoRegisters = true
		out.Reads = append([]hir.Id{}, in.Target)
		out.Reads = append(out.Reads, in.Args...)
		for _, kw := range in.KwArgs {
			out.Reads = append(out.Reads, kw.Value)
		}
		// The abstract emitter sink is responsible for actually storing
		// each read onto the outgoing argument stack area before the
		// branch and reading the return slot after; argStack.take()
		// reserves the ABI-stable offsets it will use.
		argStack.take() // selector/target slot
		for range in.Args {
			argStack.take()
		}
		for range in.KwArgs {
			argStack.take()
		}

	case hir.OpPhi:
		out.Op = OpPhi
		out.Inputs = append([]hir.Id{}, in.Inputs...)

	case hir.OpBranch:
		out.Op = OpBranch
		out.TrueTarget = in.TrueTarget

	case hir.OpBranchIfTrue:
		out.Op = OpBranchIfTrue
		out.Cond = in.Cond
		out.TrueTarget = in.TrueTarget
		out.FalseTarget = in.FalseTarget
		out.Reads = []hir.Id{in.Cond}

	case hir.OpStoreReturn:
		out.Op = OpStoreToStack
		out.StackOffset = returnSlotOffset
		out.Src = in.ReturnValue
		out.Reads = []hir.Id{in.ReturnValue}

	case hir.OpMethodReturn:
		out.Op = OpBranchToRegister
		out.Target = ThreadContextVReg
		out.Reads = []hir.Id{ThreadContextVReg}

	case hir.OpBlockLiteral:
		// Closure creation allocates on the managed heap through the
		// same indirect-dispatch mechanism as an ordinary message send
		// (spec §9's Open Question: no inlining, always a real
		// allocation).
		out.Op = OpBranchToRegister
		out.PreservesNoRegisters = true
		out.Reads = []hir.Id{ThreadContextVReg}

	case hir.OpImportName:
		// The class-library loader has already resolved the imported
		// symbol to a constant value by the time this pipeline runs
		// (spec §1: class-library loading is an external collaborator).
		out.Op = OpLoadConstant
		out.Value = slot.MakeSymbol(uint64(in.Import))

	default:
		return nil, diag.NewInternalError("lir: unhandled HIR opcode %v at line %d", in.Op, line)
	}

	return out, nil
}
