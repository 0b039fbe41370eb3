// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/hadron-sclang/hadron-sub002/internal/compiler/parsetree"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/slot"
)

// literalFrontend ignores the source text it's given and always
// returns the same parse tree; it stands in for the external lexer and
// parser so compile's wiring can be exercised without one.
type literalFrontend struct {
	tree *parsetree.Node
}

func (f literalFrontend) Parse(source string) (*parsetree.Node, error) {
	return f.tree, nil
}

func constTree(v slot.Slot) *parsetree.Node {
	return &parsetree.Node{
		Kind: parsetree.Block,
		Statements: []*parsetree.Node{
			{Kind: parsetree.Constant, Value: v},
		},
	}
}

func ifElseTree() *parsetree.Node {
	return &parsetree.Node{
		Kind: parsetree.Block,
		Statements: []*parsetree.Node{
			{
				Kind:       parsetree.If,
				Condition:  &parsetree.Node{Kind: parsetree.Constant, Value: slot.MakeBoolean(true)},
				TrueBlock:  constTree(slot.MakeInt32(1)),
				FalseBlock: constTree(slot.MakeInt32(2)),
			},
		},
	}
}

func TestCompileProducesValidatedMachineCodeForAConstant(t *testing.T) {
	result, err := compile("42", literalFrontend{constTree(slot.MakeInt32(42))}, nil, 8, true)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if result.Size == 0 {
		t.Fatalf("expected non-zero emitted code size")
	}
}

func TestCompileProducesValidatedMachineCodeForABranch(t *testing.T) {
	result, err := compile("if(true){1}{2}", literalFrontend{ifElseTree()}, nil, 8, true)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if result.Size == 0 {
		t.Fatalf("expected non-zero emitted code size")
	}
}

func TestCompileSucceedsWithValidationDisabled(t *testing.T) {
	result, err := compile("42", literalFrontend{constTree(slot.MakeInt32(42))}, nil, 8, false)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if result.Size == 0 {
		t.Fatalf("expected non-zero emitted code size")
	}
}

func TestVersionStringFlagsUnstampedBuild(t *testing.T) {
	if got := versionString(); got != version+" (unstamped)" {
		t.Fatalf("versionString() = %q, want %q", got, version+" (unstamped)")
	}
}
