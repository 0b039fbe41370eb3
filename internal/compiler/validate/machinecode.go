// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package validate

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// MachineCode decodes code with the x86 disassembler end to end and
// reports any byte range the Emitter produced that does not disassemble
// as a well-formed instruction stream — a post-emit check run in
// addition to the four invariant groups, catching an Emitter/Sink bug (a
// miscomputed Size, a malformed ModRM byte) before the page is ever
// made executable.
func MachineCode(code []byte) []error {
	var errs []error
	for pos := 0; pos < len(code); {
		inst, err := x86asm.Decode(code[pos:], 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("validate: machine code does not decode at offset %d: %w", pos, err))
			break
		}
		if inst.Len <= 0 {
			errs = append(errs, fmt.Errorf("validate: machine code decode at offset %d made no progress", pos))
			break
		}
		pos += inst.Len
	}
	return errs
}
