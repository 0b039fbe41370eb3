// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rtcontext bundles the process-wide mutable state the
// compiler and the code it emits both depend on — the thread context
// ABI struct, the heap, the symbol table, and the class library handle
// — into one explicit value handed to the compiler, replacing the
// package-level globals the design notes (spec §9) flag as a problem.
package rtcontext

import "github.com/hadron-sclang/hadron-sub002/internal/compiler/slot"

// DefaultStackSize is the size in Slots of the managed stack allocated
// for emitted code on thread-context creation.
const DefaultStackSize = 1024 * 1024 / 8

// ThreadContext is the fixed-layout structure read by emitted code and
// by the CFGBuilder for special names (super, thisProcess, thisThread).
// Field offsets form part of the calling-convention ABI and must stay
// stable between compiler and runtime.
type ThreadContext struct {
	// StackSize is the number of Slot-sized words in Stack.
	StackSize int
	// Stack is the managed stack distinct from the host C stack.
	Stack []slot.Slot
	// FramePointer and StackPointer index into Stack.
	FramePointer int
	StackPointer int

	// ExitReturnAddress is where emitted code branches on a normal or
	// interrupted return, to hand control back to the host.
	ExitReturnAddress uint64
	// StatusCode records the reason for an interrupted exit.
	StatusCode int

	// SavedCStackPointer preserves the host stack pointer across a call
	// into emitted code, restored on exit.
	SavedCStackPointer uintptr

	// ClassVariablesArray is indexed by the class-variable slot index
	// assigned during name resolution step 4.
	ClassVariablesArray []slot.Slot

	ThisProcess slot.Slot
	ThisThread  slot.Slot
}

// NewThreadContext allocates a ThreadContext with the default managed
// stack size.
func NewThreadContext() *ThreadContext {
	return &ThreadContext{
		StackSize:   DefaultStackSize,
		Stack:       make([]slot.Slot, DefaultStackSize),
		ThisProcess: slot.MakeNil(),
		ThisThread:  slot.MakeNil(),
	}
}

// StatusCode values set by the Interrupt LIR opcode.
const (
	StatusOK = iota
	StatusPrimitiveFailed
	StatusDoesNotUnderstand
	StatusStackOverflow
)
