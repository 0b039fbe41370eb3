// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hir

import (
	"testing"

	"github.com/hadron-sclang/hadron-sub002/internal/compiler/parsetree"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/slot"
	"github.com/hadron-sclang/hadron-sub002/internal/rtcontext"
)

func constNode(v slot.Slot) *parsetree.Node {
	return &parsetree.Node{Kind: parsetree.Constant, Value: v}
}

func seqNode(stmts ...*parsetree.Node) *parsetree.Node {
	return &parsetree.Node{Kind: parsetree.Block, Statements: stmts}
}

// TestIfWithPhi is scenario S3: a parse tree for `if (true) { 1 } { 2 }`
// must produce 4 blocks {entry, trueBranch, falseBranch, continuation};
// continuation begins with a Phi whose inputs in order are the
// Constant(1) id and the Constant(2) id, with input order equal to
// {trueBranch.id, falseBranch.id}.
func TestIfWithPhi(t *testing.T) {
	ctx := rtcontext.New("if (true) { 1 } { 2 }", nil)
	tree := &parsetree.Node{
		Kind: parsetree.Block,
		Statements: []*parsetree.Node{
			{
				Kind:      parsetree.If,
				Condition: constNode(slot.MakeBoolean(true)),
				TrueBlock: seqNode(constNode(slot.MakeInt32(1))),
				FalseBlock: seqNode(constNode(slot.MakeInt32(2))),
			},
		},
	}

	frame, err := NewBuilder(ctx, nil).BuildFrame(tree)
	if err != nil {
		t.Fatalf("BuildFrame: %v", err)
	}

	if frame.NumBlocks() != 4 {
		t.Fatalf("expected 4 blocks, got %d", frame.NumBlocks())
	}

	entry := frame.Block(0)
	if entry.Sealed != true {
		t.Fatalf("entry block should be sealed (no predecessors admitted ever)")
	}
	if len(entry.Successors) != 2 {
		t.Fatalf("entry should have 2 successors, got %d", len(entry.Successors))
	}
	trueId, falseId := entry.Successors[0], entry.Successors[1]

	trueBranch := frame.Block(trueId)
	falseBranch := frame.Block(falseId)
	if len(trueBranch.Predecessors) != 1 || trueBranch.Predecessors[0] != entry.Id {
		t.Fatalf("trueBranch predecessor mismatch: %v", trueBranch.Predecessors)
	}
	if len(falseBranch.Predecessors) != 1 || falseBranch.Predecessors[0] != entry.Id {
		t.Fatalf("falseBranch predecessor mismatch: %v", falseBranch.Predecessors)
	}

	if len(trueBranch.Successors) != 1 || len(falseBranch.Successors) != 1 || trueBranch.Successors[0] != falseBranch.Successors[0] {
		t.Fatalf("trueBranch and falseBranch should converge on a single continuation block")
	}
	contId := trueBranch.Successors[0]
	continuation := frame.Block(contId)

	if len(continuation.Predecessors) != 2 ||
		continuation.Predecessors[0] != trueBranch.Id ||
		continuation.Predecessors[1] != falseBranch.Id {
		t.Fatalf("continuation predecessor order mismatch: %v", continuation.Predecessors)
	}

	if len(continuation.Phis) != 1 {
		t.Fatalf("expected 1 phi in continuation, got %d", len(continuation.Phis))
	}
	phi := continuation.Phis[0]
	if len(phi.Inputs) != 2 {
		t.Fatalf("expected phi with 2 inputs, got %d", len(phi.Inputs))
	}

	oneId := trueBranch.Statements[0].Id
	twoId := falseBranch.Statements[0].Id
	if phi.Inputs[0] != oneId || phi.Inputs[1] != twoId {
		t.Fatalf("phi input order = %v, want [%d, %d]", phi.Inputs, oneId, twoId)
	}

	seen := map[BlockId]bool{entry.Id: true, trueBranch.Id: true, falseBranch.Id: true, continuation.Id: true}
	if len(seen) != 4 {
		t.Fatalf("expected 4 distinct block ids, got %d", len(seen))
	}
}

// TestWhileSealOrder is scenario S4: a parse tree for
// `while { x < 5 } { x = x + 1 }` must produce 4 blocks {entry,
// condition, body, continuation}; the condition block's predecessor
// list is exactly {entry, body} in that order; the body block's single
// successor is condition.
func TestWhileSealOrder(t *testing.T) {
	ctx := rtcontext.New("while { x < 5 } { x = x + 1 }", nil)
	xHash := ctx.Symbols.Intern("x")
	ltHash := ctx.Symbols.Intern("<")
	plusHash := ctx.Symbols.Intern("+")

	tree := &parsetree.Node{
		Kind: parsetree.Block,
		Statements: []*parsetree.Node{
			{
				Kind: parsetree.Define,
				NameHash: xHash,
				RHS:      constNode(slot.MakeInt32(0)),
			},
			{
				Kind: parsetree.While,
				Condition: &parsetree.Node{
					Kind:     parsetree.Message,
					Target:   &parsetree.Node{Kind: parsetree.Name, NameHash: xHash},
					Selector: ltHash,
					Args:     []*parsetree.Node{constNode(slot.MakeInt32(5))},
				},
				Body: seqNode(&parsetree.Node{
					Kind:     parsetree.Assign,
					NameHash: xHash,
					RHS: &parsetree.Node{
						Kind:     parsetree.Message,
						Target:   &parsetree.Node{Kind: parsetree.Name, NameHash: xHash},
						Selector: plusHash,
						Args:     []*parsetree.Node{constNode(slot.MakeInt32(1))},
					},
				}),
			},
		},
	}

	frame, err := NewBuilder(ctx, nil).BuildFrame(tree)
	if err != nil {
		t.Fatalf("BuildFrame: %v", err)
	}

	if frame.NumBlocks() != 4 {
		t.Fatalf("expected 4 blocks, got %d", frame.NumBlocks())
	}

	entry := frame.Block(0)
	if len(entry.Successors) != 1 {
		t.Fatalf("entry should have exactly 1 successor (the condition block), got %d", len(entry.Successors))
	}
	condId := entry.Successors[0]
	cond := frame.Block(condId)

	if len(cond.Successors) != 2 {
		t.Fatalf("condition block should have 2 successors (body, continuation), got %d", len(cond.Successors))
	}
	bodyId, contId := cond.Successors[0], cond.Successors[1]
	body := frame.Block(bodyId)
	continuation := frame.Block(contId)

	if len(body.Successors) != 1 || body.Successors[0] != cond.Id {
		t.Fatalf("body's single successor should be condition, got %v", body.Successors)
	}

	if len(cond.Predecessors) != 2 || cond.Predecessors[0] != entry.Id || cond.Predecessors[1] != body.Id {
		t.Fatalf("condition predecessor order = %v, want [entry=%d, body=%d]", cond.Predecessors, entry.Id, body.Id)
	}

	if !cond.Sealed || !body.Sealed || !continuation.Sealed || !entry.Sealed {
		t.Fatalf("all 4 blocks should be sealed once construction completes")
	}

	seen := map[BlockId]bool{entry.Id: true, cond.Id: true, body.Id: true, continuation.Id: true}
	if len(seen) != 4 {
		t.Fatalf("expected 4 distinct block ids, got %d", len(seen))
	}
}

func TestIfSingleBranchReturnsNoPhi(t *testing.T) {
	ctx := rtcontext.New("", nil)
	tree := &parsetree.Node{
		Kind: parsetree.Block,
		Statements: []*parsetree.Node{
			{
				Kind:      parsetree.If,
				Condition: constNode(slot.MakeBoolean(true)),
				TrueBlock: seqNode(&parsetree.Node{Kind: parsetree.MethodReturn, RHS: constNode(slot.MakeInt32(1))}),
				FalseBlock: seqNode(constNode(slot.MakeInt32(2))),
			},
		},
	}

	frame, err := NewBuilder(ctx, nil).BuildFrame(tree)
	if err != nil {
		t.Fatalf("BuildFrame: %v", err)
	}
	entry := frame.Block(0)
	trueBranch := frame.Block(entry.Successors[0])
	falseBranch := frame.Block(entry.Successors[1])

	if !trueBranch.hasTerminator() {
		t.Fatalf("true branch should terminate with MethodReturn")
	}
	if len(falseBranch.Successors) != 1 {
		t.Fatalf("false branch should fall through to a single continuation block")
	}
	continuation := frame.Block(falseBranch.Successors[0])
	if len(continuation.Predecessors) != 1 {
		t.Fatalf("continuation should have exactly 1 predecessor when only one branch falls through, got %d", len(continuation.Predecessors))
	}
	if len(continuation.Phis) != 0 {
		t.Fatalf("no phi should be emitted when only one branch reaches the continuation")
	}
}

func TestUnresolvedNameIsAnError(t *testing.T) {
	ctx := rtcontext.New("", nil)
	tree := &parsetree.Node{
		Kind: parsetree.Block,
		Statements: []*parsetree.Node{
			{Kind: parsetree.Name, NameHash: ctx.Symbols.Intern("nonexistentGlobal")},
		},
	}

	_, err := NewBuilder(ctx, nil).BuildFrame(tree)
	if err == nil {
		t.Fatalf("expected a name resolution error")
	}
}
