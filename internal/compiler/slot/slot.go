// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package slot implements the tagged 64-bit runtime value representation
// shared by the compiler and the code it generates. A Slot occupies the
// unused bit patterns of IEEE-754 quiet-NaN space to encode non-float
// types alongside ordinary doubles, so every Slot fits in a single
// machine register or stack word with no boxing.
package slot

import "math"

// Type identifies the dynamic type tag of a Slot.
type Type uint8

const (
	Float Type = iota
	Nil
	Int32
	Boolean
	Object
	Symbol
	Char
)

func (t Type) String() string {
	switch t {
	case Float:
		return "float"
	case Nil:
		return "nil"
	case Int32:
		return "int32"
	case Boolean:
		return "boolean"
	case Object:
		return "object"
	case Symbol:
		return "symbol"
	case Char:
		return "char"
	default:
		return "unknown"
	}
}

// Bit layout, normative per the language ABI: any pattern at or below
// maxDouble is an ordinary double; the six tag patterns above it occupy
// the high 16 bits of quiet-NaN space.
const (
	tagMask uint64 = 0xffff000000000000

	maxDouble  uint64 = 0xfff8000000000000
	nilTag     uint64 = 0xfff9000000000000
	int32Tag   uint64 = 0xfffa000000000000
	booleanTag uint64 = 0xfffb000000000000
	objectTag  uint64 = 0xfffc000000000000
	symbolTag  uint64 = 0xfffd000000000000
	charTag    uint64 = 0xfffe000000000000

	payloadMask uint64 = ^tagMask
)

// Slot is an 8-byte tagged union of a double, a 32-bit integer, a
// boolean, an object pointer, a symbol hash, or a character.
type Slot struct {
	bits uint64
}

// MakeNil returns the nil Slot.
func MakeNil() Slot { return Slot{bits: nilTag} }

// MakeFloat returns a Slot holding a double. The caller must not pass a
// NaN with a payload that would collide with a tag pattern; ordinary
// arithmetic never produces one on the platforms this ABI targets.
func MakeFloat(f float64) Slot {
	bits := math.Float64bits(f)
	if bits >= maxDouble {
		// Canonicalize any foreign NaN to our own quiet NaN rather than
		// risk colliding with a tag pattern.
		return Slot{bits: maxDouble}
	}
	return Slot{bits: bits}
}

// MakeInt32 returns a Slot holding a 32-bit integer.
func MakeInt32(v int32) Slot {
	return Slot{bits: uint64(uint32(v)) | int32Tag}
}

// MakeBoolean returns a Slot holding a boolean.
func MakeBoolean(v bool) Slot {
	if v {
		return Slot{bits: 1 | booleanTag}
	}
	return Slot{bits: booleanTag}
}

// MakeObject returns a Slot holding an object pointer. addr must have its
// top 16 bits clear; the allocator guarantees this for every address it
// hands out.
func MakeObject(addr uint64) Slot {
	if addr&tagMask != 0 {
		panic("slot: object address collides with tag bits")
	}
	return Slot{bits: addr | objectTag}
}

// MakeSymbol returns a Slot holding the low 48 bits of a symbol hash.
func MakeSymbol(hash uint64) Slot {
	return Slot{bits: (hash & payloadMask) | symbolTag}
}

// MakeChar returns a Slot holding a single byte.
func MakeChar(c byte) Slot {
	return Slot{bits: uint64(c) | charTag}
}

// GetType reports the dynamic type tag of the Slot.
func (s Slot) GetType() Type {
	if s.bits < maxDouble {
		return Float
	}
	switch s.bits & tagMask {
	case nilTag:
		return Nil
	case int32Tag:
		return Int32
	case booleanTag:
		return Boolean
	case objectTag:
		return Object
	case symbolTag:
		return Symbol
	case charTag:
		return Char
	default:
		// Any other quiet-NaN pattern above maxDouble is still a double
		// by convention (a foreign/uncanonicalized NaN); treat as Float
		// rather than asserting, since this path runs on untrusted
		// incoming data from FFI in the real runtime.
		return Float
	}
}

// AsFloat returns the double payload. Valid only when GetType() == Float.
func (s Slot) AsFloat() float64 { return math.Float64frombits(s.bits) }

// AsInt32 returns the int32 payload. Valid only when GetType() == Int32.
func (s Slot) AsInt32() int32 { return int32(uint32(s.bits & payloadMask)) }

// AsBoolean returns the boolean payload. Valid only when GetType() == Boolean.
func (s Slot) AsBoolean() bool { return s.bits&payloadMask != 0 }

// AsObject returns the object-pointer payload. Valid only when
// GetType() == Object.
func (s Slot) AsObject() uint64 { return s.bits & payloadMask }

// AsSymbol returns the 48-bit symbol-hash payload. Valid only when
// GetType() == Symbol.
func (s Slot) AsSymbol() uint64 { return s.bits & payloadMask }

// AsChar returns the character payload. Valid only when GetType() == Char.
func (s Slot) AsChar() byte { return byte(s.bits & 0xff) }

// Bits returns the raw 64-bit representation, for the emitter to embed
// as an immediate and for the GC to scan the stack for object tags.
func (s Slot) Bits() uint64 { return s.bits }

// FromBits reconstructs a Slot from a raw 64-bit pattern, e.g. when
// reading a stack slot the GC is scanning.
func FromBits(bits uint64) Slot { return Slot{bits: bits} }

// Equal reports whether two Slots are identical, tag-sensitive
// (MakeInt32(0) != MakeBoolean(false) != MakeNil()).
func (s Slot) Equal(o Slot) bool { return s.bits == o.bits }

// IsPointer reports whether the Slot's tag denotes a managed heap
// pointer the garbage collector must trace.
func (s Slot) IsPointer() bool { return s.bits&tagMask == objectTag }
