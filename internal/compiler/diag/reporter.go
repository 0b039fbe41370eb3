// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diag implements the compiler's error reporter: a sink that
// accumulates diagnostics against a source text, lazily builds a line
// map for converting byte offsets to line/column positions, and tracks
// the worst severity seen so a driver can choose a process exit code
// the way cmd_local/go/internal/base accumulates one.
package diag

import "sort"

// Reporter collects diagnostics raised while compiling one unit.
type Reporter struct {
	source     string
	lineStarts []int // lazily built, sorted byte offsets of line starts
	errors     []*Error
	exitStatus int
}

// NewReporter returns a Reporter seeded with the unit's source text.
func NewReporter(source string) *Reporter {
	return &Reporter{source: source}
}

// AddError records a diagnostic and raises the reporter's exit status
// to at least the severity implied by its kind.
func (r *Reporter) AddError(err *Error) {
	r.errors = append(r.errors, err)
	r.setExitStatus(severityOf(err.Kind))
}

func severityOf(k Kind) int {
	switch k {
	case ParseError, NameResolutionError:
		return 1
	case InternalError:
		return 2
	case AllocationError, MachineCodeOverflow:
		return 3
	default:
		return 1
	}
}

func (r *Reporter) setExitStatus(n int) {
	if n > r.exitStatus {
		r.exitStatus = n
	}
}

// Errors returns every diagnostic recorded so far, in report order.
func (r *Reporter) Errors() []*Error { return r.errors }

// ErrorCount reports how many diagnostics have been recorded.
func (r *Reporter) ErrorCount() int { return len(r.errors) }

// ExitStatus returns the worst severity recorded, for a driver to use
// as a process exit code (0 means no diagnostics were raised).
func (r *Reporter) ExitStatus() int { return r.exitStatus }

// buildLineMap constructs the sorted list of line-start byte offsets
// on first use; later lookups reuse it.
func (r *Reporter) buildLineMap() {
	if r.lineStarts != nil {
		return
	}
	starts := make([]int, 0, 64)
	starts = append(starts, 0)
	for i := 0; i < len(r.source); i++ {
		if r.source[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	r.lineStarts = starts
}

// GetLineNumber returns the 1-based line number containing the given
// byte offset into the reporter's source text.
func (r *Reporter) GetLineNumber(offset int) int {
	r.buildLineMap()
	// Find the last line-start offset <= offset.
	i := sort.Search(len(r.lineStarts), func(i int) bool {
		return r.lineStarts[i] > offset
	})
	if i == 0 {
		return 1
	}
	return i
}

// GetLocation returns the full SourceLocation (line, column, offset)
// for a byte offset into the reporter's source text.
func (r *Reporter) GetLocation(offset int) SourceLocation {
	line := r.GetLineNumber(offset)
	col := offset - r.lineStarts[line-1] + 1
	return SourceLocation{Offset: offset, Line: line, Column: col}
}
