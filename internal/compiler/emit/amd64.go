// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package emit

import (
	"encoding/binary"

	"github.com/hadron-sclang/hadron-sub002/internal/compiler/diag"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/hir"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/lir"
)

// AMD64Sink is the reference Sink: a direct, unoptimized encoder from
// lir.Inst to x86-64 machine code, in the idiom of
// LightningJIT.cpp/LighteningJIT.cpp's per-opcode emit functions. Every
// vreg the allocator didn't place in a register (a spill) is addressed
// relative to rbp at a fixed per-slot offset, mirroring the teacher's
// own stack-frame convention for spilled values.
type AMD64Sink struct {
	// FrameBase is the rbp-relative offset of spill slot 0.
	FrameBase int
}

const slotSize = 8

func (s *AMD64Sink) slotDisp(loc lir.Location) int32 {
	return int32(s.FrameBase - loc.Slot*slotSize)
}

// Size reports the fixed encoded length for in's opcode. Every
// instruction here uses a fixed-width encoding (REX.W prefix always
// present, disp32/imm32 always present when an operand needs one) so
// that the Emitter's measuring pass and emitting pass agree without a
// second fixed-point iteration.
func (s *AMD64Sink) Size(in *lir.Inst) int {
	switch in.Op {
	case lir.OpLabel:
		return 0
	case lir.OpLoadImmediate:
		return 10 // REX.W B8+rd imm64
	case lir.OpLoadConstant:
		return 10
	case lir.OpAssign, lir.OpLoadFramePointer:
		return 3 // REX.W 89 /r
	case lir.OpLoadFromFrame, lir.OpStoreToFrame, lir.OpLoadFromStack, lir.OpStoreToStack,
		lir.OpLoadFromPointer, lir.OpStoreToPointer:
		return 7 // REX.W 8B/89 /r disp32
	case lir.OpBranch:
		return 5 // E9 rel32
	case lir.OpBranchIfTrue:
		return 9 // 85 /r (3) + 0F8x rel32 (6)
	case lir.OpBranchToRegister:
		return 2 // FF /2
	case lir.OpPhi:
		return 0 // resolved entirely by the Resolver's inserted moves
	case lir.OpInterrupt:
		return 2 // CD ib
	default:
		return 0
	}
}

func (s *AMD64Sink) Emit(buf []byte, in *lir.Inst, labels map[hir.BlockId]int) (int, error) {
	switch in.Op {
	case lir.OpLabel:
		return 0, nil

	case lir.OpLoadImmediate:
		reg := regOf(in, in.Dest)
		buf[0] = rexW(reg)
		buf[1] = 0xB8 + byte(reg&7)
		binary.LittleEndian.PutUint64(buf[2:10], in.Imm)
		return 10, nil

	case lir.OpLoadConstant:
		reg := regOf(in, in.Dest)
		buf[0] = rexW(reg)
		buf[1] = 0xB8 + byte(reg&7)
		binary.LittleEndian.PutUint64(buf[2:10], in.Value.Bits())
		return 10, nil

	case lir.OpAssign, lir.OpLoadFramePointer:
		dst, src := regOf(in, in.Dest), regOf(in, in.Src)
		buf[0] = rexRM(src, dst)
		buf[1] = 0x89
		buf[2] = modRM(3, src, dst)
		return 3, nil

	case lir.OpLoadFromFrame, lir.OpLoadFromStack, lir.OpLoadFromPointer:
		dst := regOf(in, in.Dest)
		buf[0] = rexRM(dst, 5) // base encoded in ModRM below; rbp(5) as placeholder base
		buf[1] = 0x8B
		buf[2] = modRM(2, dst, 5)
		binary.LittleEndian.PutUint32(buf[3:7], uint32(frameDisp(in)))
		return 7, nil

	case lir.OpStoreToFrame, lir.OpStoreToStack, lir.OpStoreToPointer:
		src := regOf(in, in.Src)
		buf[0] = rexRM(src, 5)
		buf[1] = 0x89
		buf[2] = modRM(2, src, 5)
		binary.LittleEndian.PutUint32(buf[3:7], uint32(frameDisp(in)))
		return 7, nil

	case lir.OpBranch:
		buf[0] = 0xE9
		target, ok := labels[in.TrueTarget]
		if !ok {
			return 0, diag.NewInternalError("emit: branch to unknown block %d", in.TrueTarget)
		}
		binary.LittleEndian.PutUint32(buf[1:5], uint32(int32(target)))
		return 5, nil

	case lir.OpBranchIfTrue:
		cond := regOf(in, in.Cond)
		buf[0] = rexRM(cond, cond)
		buf[1] = 0x85
		buf[2] = modRM(3, cond, cond)
		buf[3] = 0x0F
		buf[4] = 0x85 // JNZ rel32
		target, ok := labels[in.TrueTarget]
		if !ok {
			return 0, diag.NewInternalError("emit: branch to unknown block %d", in.TrueTarget)
		}
		binary.LittleEndian.PutUint32(buf[5:9], uint32(int32(target)))
		return 9, nil

	case lir.OpBranchToRegister:
		reg := regOf(in, in.Target)
		buf[0] = 0xFF
		buf[1] = modRM(3, 2, reg)
		return 2, nil

	case lir.OpPhi:
		return 0, nil

	case lir.OpInterrupt:
		buf[0] = 0xCD
		buf[1] = byte(in.StatusCode)
		return 2, nil

	default:
		return 0, diag.NewInternalError("emit: amd64 sink has no encoding for %v", in.Op)
	}
}

// moveScratchReg is the register a spill-to-spill Move shuttles its
// value through: its prior contents are saved to spill slot 0 and
// restored immediately after, per spec §4.5's "if none is free, a
// register is saved to slot 0 first" — this sink always takes that
// path rather than tracking which registers happen to be free at the
// move's program point.
const moveScratchReg = 2

// MoveSize reports the fixed encoded length of a Resolver-scheduled
// Move, mirroring Size's fixed-width-encoding approach.
func (s *AMD64Sink) MoveSize(m lir.Move) int {
	switch m.Kind {
	case lir.MoveSwap:
		return 3 // one XOR of the three-move swap (spec §8 S5), no memory traffic
	case lir.MoveAssign, lir.MoveCycleSave, lir.MoveCycleRestore:
		return s.locMoveSize(m.From, m.To)
	default:
		return 0
	}
}

func (s *AMD64Sink) locMoveSize(from, to lir.Location) int {
	switch {
	case from.IsRegister() && to.IsRegister():
		return 3 // REX.W 89 /r
	case from.IsRegister() != to.IsRegister():
		return 7 // REX.W 8B/89 /r disp32
	case isCycleScratchSlot(from) || isCycleScratchSlot(to):
		return 2 * 7 // direct shuttle, see emitLocMove
	default:
		return 4 * 7 // spill-to-spill via saved scratch register
	}
}

// isCycleScratchSlot reports whether loc is spill slot 0, the location
// MoveCycleSave/MoveCycleRestore always name as one endpoint (spec
// §4.5 case 3). It is never the location of a live value — regalloc
// never hands out slot 0 to a real interval — so a move naming it
// needs no separate save area of its own the way an ordinary
// spill-to-spill move does.
func isCycleScratchSlot(loc lir.Location) bool {
	return !loc.IsRegister() && loc.Slot == 0
}

// EmitMove encodes one scheduled Move, executed immediately before the
// Inst that carries it (spec §4.6: "first execute pending moves ...
// then dispatch on opcode").
func (s *AMD64Sink) EmitMove(buf []byte, m lir.Move) (int, error) {
	switch m.Kind {
	case lir.MoveSwap:
		return s.emitSwap(buf, m.To.Reg, m.From.Reg), nil
	case lir.MoveAssign, lir.MoveCycleSave, lir.MoveCycleRestore:
		return s.emitLocMove(buf, m.From, m.To), nil
	default:
		return 0, diag.NewInternalError("emit: amd64 sink has no encoding for move kind %d", m.Kind)
	}
}

// emitSwap encodes one MoveSwap as a single two-operand XOR, dst ^= src.
// The MoveScheduler expresses a register swap as three MoveSwap moves,
// so the swap as a whole is the standard three-XOR trick with no
// scratch register or memory traffic, matching scenario S5 exactly.
func (s *AMD64Sink) emitSwap(buf []byte, dst, src int) int {
	buf[0] = rexRM(src, dst)
	buf[1] = 0x31
	buf[2] = modRM(3, src, dst)
	return 3
}

// emitLocMove shuttles a value from one Location to another: a plain
// register move, a load or store against the spilling side's frame
// offset, or, when both sides are spill slots, a save/shuttle/restore
// through moveScratchReg.
func (s *AMD64Sink) emitLocMove(buf []byte, from, to lir.Location) int {
	if from.IsRegister() && to.IsRegister() {
		buf[0] = rexRM(from.Reg, to.Reg)
		buf[1] = 0x89
		buf[2] = modRM(3, from.Reg, to.Reg)
		return 3
	}
	if from.IsRegister() && !to.IsRegister() {
		buf[0] = rexRM(from.Reg, 5)
		buf[1] = 0x89
		buf[2] = modRM(2, from.Reg, 5)
		binary.LittleEndian.PutUint32(buf[3:7], uint32(s.slotDisp(to)))
		return 7
	}
	if !from.IsRegister() && to.IsRegister() {
		buf[0] = rexRM(to.Reg, 5)
		buf[1] = 0x8B
		buf[2] = modRM(2, to.Reg, 5)
		binary.LittleEndian.PutUint32(buf[3:7], uint32(s.slotDisp(from)))
		return 7
	}
	if isCycleScratchSlot(from) || isCycleScratchSlot(to) {
		// One side is already the reserved cycle-breaking carrier slot;
		// shuttle straight through moveScratchReg with no save/restore
		// of its own, since slot 0 is that save area and using it again
		// here would overwrite the very value in flight.
		n := 0
		buf[n] = rexRM(moveScratchReg, 5)
		buf[n+1] = 0x8B
		buf[n+2] = modRM(2, moveScratchReg, 5)
		binary.LittleEndian.PutUint32(buf[n+3:n+7], uint32(s.slotDisp(from)))
		n += 7
		buf[n] = rexRM(moveScratchReg, 5)
		buf[n+1] = 0x89
		buf[n+2] = modRM(2, moveScratchReg, 5)
		binary.LittleEndian.PutUint32(buf[n+3:n+7], uint32(s.slotDisp(to)))
		n += 7
		return n
	}

	n := 0
	store := func(reg int, loc lir.Location) {
		buf[n] = rexRM(reg, 5)
		buf[n+1] = 0x89
		buf[n+2] = modRM(2, reg, 5)
		binary.LittleEndian.PutUint32(buf[n+3:n+7], uint32(s.slotDisp(loc)))
		n += 7
	}
	load := func(reg int, loc lir.Location) {
		buf[n] = rexRM(reg, 5)
		buf[n+1] = 0x8B
		buf[n+2] = modRM(2, reg, 5)
		binary.LittleEndian.PutUint32(buf[n+3:n+7], uint32(s.slotDisp(loc)))
		n += 7
	}
	saveSlot := lir.SpillLoc(0)
	store(moveScratchReg, saveSlot)
	load(moveScratchReg, from)
	store(moveScratchReg, to)
	load(moveScratchReg, saveSlot)
	return n
}

// regOf resolves v's assigned register out of in.Locations, defaulting
// to rax when v carries no allocation (a dead result the allocator
// never placed, or one of the two pinned vregs addressed directly).
func regOf(in *lir.Inst, v lir.VReg) int {
	switch v {
	case lir.ThreadContextVReg:
		return 0
	case lir.StackPointerVReg:
		return 1
	}
	if loc, ok := in.Locations[v]; ok && loc.IsRegister() {
		return loc.Reg
	}
	return 0
}

func frameDisp(in *lir.Inst) int32 {
	return int32((in.FrameIndex + in.StackOffset + in.Offset) * slotSize)
}

func rexW(reg int) byte { return 0x48 | (byte(reg>>3) & 1) }

func rexRM(reg, rm int) byte {
	return 0x48 | ((byte(reg>>3) & 1) << 2) | (byte(rm>>3) & 1)
}

func modRM(mod, reg, rm int) byte {
	return byte(mod<<6) | byte((reg&7)<<3) | byte(rm&7)
}
