// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hir

import (
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/classlib"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/diag"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/parsetree"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/slot"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/symbol"
	"github.com/hadron-sclang/hadron-sub002/internal/rtcontext"
)

// Builder is the CFGBuilder: it traverses a parse tree once, producing
// a Frame whose root scope holds a CFG of blocks in SSA form, without a
// separate dominance or dead-code pass — construction is direct, in
// the style of Braun et al., "Simple and Efficient Construction of SSA
// Form". Because named locals live in frame/this/class slots rather
// than being promoted to versioned SSA variables, the only place phis
// are needed is where two block-valued expressions merge (an If whose
// branches both fall through); Braun et al.'s "incomplete phi"
// machinery for arbitrary variable reads before a block is sealed does
// not arise here.
type Builder struct {
	ctx         *rtcontext.Context
	owningClass classlib.Class

	frame  *Frame
	scopes []*Scope
	blocks []*Block

	thisHash        symbol.Hash
	superHash       symbol.Hash
	thisMethodHash  symbol.Hash
	thisProcessHash symbol.Hash
	thisThreadHash  symbol.Hash
}

// NewBuilder returns a CFGBuilder. owningClass may be nil when building
// a top-level expression with no enclosing method.
func NewBuilder(ctx *rtcontext.Context, owningClass classlib.Class) *Builder {
	return &Builder{
		ctx:             ctx,
		owningClass:     owningClass,
		thisHash:        ctx.Symbols.Intern("this"),
		superHash:       ctx.Symbols.Intern("super"),
		thisMethodHash:  ctx.Symbols.Intern("thisMethod"),
		thisProcessHash: ctx.Symbols.Intern("thisProcess"),
		thisThreadHash:  ctx.Symbols.Intern("thisThread"),
	}
}

// BuildFrame traverses blockNode, the parse tree of a single
// function/method body, producing a Frame in SSA form.
func (b *Builder) BuildFrame(blockNode *parsetree.Node) (*Frame, error) {
	if blockNode.Kind != parsetree.Block {
		return nil, diag.NewInternalError("CFGBuilder.BuildFrame requires a Block node, got %v", blockNode.Kind)
	}
	return b.buildFrame(blockNode, nil, nil, NoId)
}

func (b *Builder) currentScope() *Scope { return b.scopes[len(b.scopes)-1] }
func (b *Builder) currentBlock() *Block { return b.blocks[len(b.blocks)-1] }

func (b *Builder) setCurrentBlock(blk *Block) { b.blocks[len(b.blocks)-1] = blk }

func (b *Builder) pushScope(s *Scope, blk *Block) {
	b.scopes = append(b.scopes, s)
	b.blocks = append(b.blocks, blk)
}

func (b *Builder) popScope() {
	b.scopes = b.scopes[:len(b.scopes)-1]
	b.blocks = b.blocks[:len(b.blocks)-1]
}

func (b *Builder) emit(in *Inst, valued bool) Id {
	return b.frame.insert(b.currentBlock(), in, valued)
}

func (b *Builder) emitConstant(v slot.Slot) Id {
	return b.emit(&Inst{Op: OpConstant, Value: v}, true)
}

// buildFrame implements "Enter a block literal": create a Frame (or
// subframe), create a root Scope with a single entry Block; push onto
// the builder stacks; bind each argument name to the next prototype-
// array index; emit LoadArgument HIRs as needed; recursively build the
// body; emit an implicit MethodReturn if the final block has none; pop
// the stacks.
func (b *Builder) buildFrame(blockNode *parsetree.Node, outer *Frame, outerScope *Scope, blockLiteralId Id) (*Frame, error) {
	frame := newFrame()
	frame.Outer = outer
	frame.OuterScope = outerScope
	frame.BlockLiteralId = blockLiteralId

	rootScope := newScope(nil, frame)
	frame.RootScope = rootScope
	entry := frame.newBlockIn(rootScope)
	rootScope.Blocks = append(rootScope.Blocks, entry.Id)
	entry.seal()

	prevFrame := b.frame
	b.frame = frame
	b.pushScope(rootScope, entry)
	defer func() {
		b.popScope()
		b.frame = prevFrame
	}()

	argOffset := 0
	if b.owningClass != nil && blockLiteralId == NoId {
		// The method root frame receives an implicit "this" receiver in
		// prototype slot 0, ahead of the declared arguments.
		frame.Prototype = append(frame.Prototype, slot.MakeNil())
		rootScope.define(b.thisHash, 0)
		argOffset = 1
	}

	frame.ArgNames = blockNode.ArgNames
	frame.ArgDefaults = blockNode.ArgDefaults
	for i, name := range blockNode.ArgNames {
		idx := argOffset + i
		frame.Prototype = append(frame.Prototype, blockNode.ArgDefaults[i])
		rootScope.define(name, idx)
		argId := b.emit(&Inst{Op: OpLoadArgument, FrameIndex: idx}, true)
		b.emit(&Inst{Op: OpWriteToFrame, FrameIndex: idx, StoreValue: argId}, false)
	}

	lastId, err := b.buildSequence(blockNode.Statements)
	if err != nil {
		return nil, err
	}

	if !b.currentBlock().hasTerminator() {
		if lastId == NoId {
			lastId = b.emitConstant(slot.MakeNil())
		}
		b.emit(&Inst{Op: OpStoreReturn, ReturnValue: lastId}, false)
		b.emit(&Inst{Op: OpMethodReturn}, false)
	}

	return frame, nil
}

// buildSequence builds each child in order, retaining the last id; if a
// MethodReturn was emitted, it stops iterating early.
func (b *Builder) buildSequence(stmts []*parsetree.Node) (Id, error) {
	last := NoId
	for _, s := range stmts {
		id, err := b.buildValue(s)
		if err != nil {
			return NoId, err
		}
		last = id
		if b.currentBlock().hasTerminator() {
			break
		}
	}
	return last, nil
}

// buildValue dispatches on parse-node variant and returns an HIR id.
func (b *Builder) buildValue(n *parsetree.Node) (Id, error) {
	switch n.Kind {
	case parsetree.Empty:
		return b.emitConstant(slot.MakeNil()), nil

	case parsetree.Constant:
		return b.emitConstant(n.Value), nil

	case parsetree.Name:
		return b.resolveName(n.NameHash, NoId)

	case parsetree.Assign:
		rhs, err := b.buildValue(n.RHS)
		if err != nil {
			return NoId, err
		}
		return b.resolveName(n.NameHash, rhs)

	case parsetree.Define:
		return b.buildDefine(n)

	case parsetree.Sequence:
		return b.buildSequence(n.Statements)

	case parsetree.If:
		return b.buildIf(n)

	case parsetree.While:
		return b.buildWhile(n)

	case parsetree.Message:
		return b.buildMessage(n)

	case parsetree.Block:
		return b.buildBlockLiteral(n)

	case parsetree.MethodReturn:
		return b.buildReturn(n)

	case parsetree.MultiAssign:
		return b.buildMultiAssign(n)

	default:
		return NoId, diag.NewInternalError("CFGBuilder: unhandled parse node kind %v", n.Kind)
	}
}

// buildDefine implements the Define case: reserve a prototype-array
// index; if the RHS is a constant literal, store it as the prototype
// default and emit a Constant; otherwise store nil as default and emit
// a write-to-frame.
func (b *Builder) buildDefine(n *parsetree.Node) (Id, error) {
	idx := len(b.frame.Prototype)
	b.frame.VarNames = append(b.frame.VarNames, n.NameHash)

	if n.RHS != nil && n.RHS.Kind == parsetree.Constant {
		b.frame.Prototype = append(b.frame.Prototype, n.RHS.Value)
		b.currentScope().define(n.NameHash, idx)
		return b.emitConstant(n.RHS.Value), nil
	}

	b.frame.Prototype = append(b.frame.Prototype, slot.MakeNil())
	b.currentScope().define(n.NameHash, idx)

	var rhsId Id
	if n.RHS != nil {
		var err error
		rhsId, err = b.buildValue(n.RHS)
		if err != nil {
			return NoId, err
		}
	} else {
		rhsId = b.emitConstant(slot.MakeNil())
	}
	b.emit(&Inst{Op: OpWriteToFrame, FrameIndex: idx, StoreValue: rhsId}, false)
	return rhsId, nil
}

// buildIf implements the If case. BranchIfTrue is itself the sole
// terminator of the entry block, carrying both the true and false
// targets (a single two-way conditional terminator rather than a
// BranchIfTrue immediately followed by an unconditional Branch), which
// keeps "only the last statement may be a control-flow terminator"
// simple to maintain.
func (b *Builder) buildIf(n *parsetree.Node) (Id, error) {
	condId, err := b.buildValue(n.Condition)
	if err != nil {
		return NoId, err
	}
	entry := b.currentBlock()
	parentScope := b.currentScope()

	trueScope := newScope(parentScope, b.frame)
	trueBlock := b.frame.newBlockIn(trueScope)
	trueScope.Blocks = append(trueScope.Blocks, trueBlock.Id)
	trueBlock.addPredecessor(entry.Id)
	trueBlock.seal()

	falseScope := newScope(parentScope, b.frame)
	falseBlock := b.frame.newBlockIn(falseScope)
	falseScope.Blocks = append(falseScope.Blocks, falseBlock.Id)
	falseBlock.addPredecessor(entry.Id)
	falseBlock.seal()

	entry.Successors = append(entry.Successors, trueBlock.Id, falseBlock.Id)
	b.emit(&Inst{Op: OpBranchIfTrue, Cond: condId, TrueTarget: trueBlock.Id, FalseTarget: falseBlock.Id}, false)

	b.pushScope(trueScope, trueBlock)
	trueVal, err := b.buildInlineBlock(n.TrueBlock)
	if err != nil {
		return NoId, err
	}
	trueExit := b.currentBlock()
	trueReturns := trueExit.hasTerminator()
	b.popScope()

	b.pushScope(falseScope, falseBlock)
	falseVal, err := b.buildInlineBlock(n.FalseBlock)
	if err != nil {
		return NoId, err
	}
	falseExit := b.currentBlock()
	falseReturns := falseExit.hasTerminator()
	b.popScope()

	contScope := newScope(parentScope, b.frame)
	contBlock := b.frame.newBlockIn(contScope)
	contScope.Blocks = append(contScope.Blocks, contBlock.Id)

	var preds []BlockId
	var inputs []Id
	if !trueReturns {
		trueExit.Successors = append(trueExit.Successors, contBlock.Id)
		contBlock.addPredecessor(trueExit.Id)
		b.frame.append(trueExit, &Inst{Op: OpBranch, TrueTarget: contBlock.Id}, false)
		preds = append(preds, trueExit.Id)
		inputs = append(inputs, trueVal)
	}
	if !falseReturns {
		falseExit.Successors = append(falseExit.Successors, contBlock.Id)
		contBlock.addPredecessor(falseExit.Id)
		b.frame.append(falseExit, &Inst{Op: OpBranch, TrueTarget: contBlock.Id}, false)
		preds = append(preds, falseExit.Id)
		inputs = append(inputs, falseVal)
	}
	contBlock.seal()
	b.setCurrentBlock(contBlock)

	switch len(preds) {
	case 0:
		return NoId, nil
	case 1:
		return inputs[0], nil
	default:
		phi := &Inst{Op: OpPhi, Inputs: inputs}
		return b.frame.insert(contBlock, phi, true), nil
	}
}

// buildWhile implements the While case.
func (b *Builder) buildWhile(n *parsetree.Node) (Id, error) {
	entry := b.currentBlock()
	parentScope := b.currentScope()

	condScope := newScope(parentScope, b.frame)
	condHead := b.frame.newBlockIn(condScope)
	condScope.Blocks = append(condScope.Blocks, condHead.Id)
	condHead.addPredecessor(entry.Id)
	entry.Successors = append(entry.Successors, condHead.Id)
	b.emit(&Inst{Op: OpBranch, TrueTarget: condHead.Id}, false)

	b.pushScope(condScope, condHead)
	condVal, err := b.buildValue(n.Condition)
	if err != nil {
		return NoId, err
	}
	condExit := b.currentBlock()

	bodyScope := newScope(condScope, b.frame)
	bodyBlock := b.frame.newBlockIn(bodyScope)
	bodyScope.Blocks = append(bodyScope.Blocks, bodyBlock.Id)
	bodyBlock.addPredecessor(condExit.Id)
	bodyBlock.seal()

	contScope := newScope(parentScope, b.frame)
	contBlock := b.frame.newBlockIn(contScope)
	contScope.Blocks = append(contScope.Blocks, contBlock.Id)
	contBlock.addPredecessor(condExit.Id)
	contBlock.seal()

	condExit.Successors = append(condExit.Successors, bodyBlock.Id, contBlock.Id)
	b.emit(&Inst{Op: OpBranchIfTrue, Cond: condVal, TrueTarget: bodyBlock.Id, FalseTarget: contBlock.Id}, false)
	b.popScope() // back to parentScope, still positioned over entry; body is built next

	b.pushScope(bodyScope, bodyBlock)
	if _, err := b.buildInlineBlock(n.Body); err != nil {
		return NoId, err
	}
	bodyExit := b.currentBlock()
	if !bodyExit.hasTerminator() {
		bodyExit.Successors = append(bodyExit.Successors, condHead.Id)
		condHead.addPredecessor(bodyExit.Id)
		b.frame.append(bodyExit, &Inst{Op: OpBranch, TrueTarget: condHead.Id}, false)
	}
	b.popScope()

	condHead.seal()
	b.setCurrentBlock(contBlock)
	return b.emitConstant(slot.MakeNil()), nil
}

// buildMessage implements the Message send case.
func (b *Builder) buildMessage(n *parsetree.Node) (Id, error) {
	isSuper := n.Target != nil && n.Target.Kind == parsetree.Name && n.Target.NameHash == b.superHash

	targetId := NoId
	var err error
	if n.Target != nil {
		targetId, err = b.buildValue(n.Target)
	} else {
		targetId, err = b.resolveName(b.thisHash, NoId)
	}
	if err != nil {
		return NoId, err
	}

	args := make([]Id, len(n.Args))
	for i, a := range n.Args {
		args[i], err = b.buildValue(a)
		if err != nil {
			return NoId, err
		}
	}
	kwargs := make([]KwArg, len(n.KwArgs))
	for i, kw := range n.KwArgs {
		v, err := b.buildValue(kw.Value)
		if err != nil {
			return NoId, err
		}
		kwargs[i] = KwArg{Key: kw.Key, Value: v}
	}

	msgId := b.emit(&Inst{Op: OpMessage, Target: targetId, Selector: n.Selector, Args: args, KwArgs: kwargs}, true)
	if isSuper {
		return b.emit(&Inst{Op: OpRouteToSuperclass, SuperTarget: msgId}, true), nil
	}
	return msgId, nil
}

// buildBlockLiteral implements the Block-literal case: per spec §9's
// Open Question, no inlining trigger is implemented, so every block
// literal compiles to a real closure allocation over a nested Frame.
func (b *Builder) buildBlockLiteral(n *parsetree.Node) (Id, error) {
	blk := &Inst{Op: OpBlockLiteral}
	id := b.emit(blk, true)
	b.frame.InnerBlocks = append(b.frame.InnerBlocks, id)

	sub, err := b.buildFrame(n, b.frame, b.currentScope(), id)
	if err != nil {
		return NoId, err
	}
	blk.Inner = sub
	return id, nil
}

// buildReturn implements the Return case.
func (b *Builder) buildReturn(n *parsetree.Node) (Id, error) {
	var valId Id
	if n.RHS != nil {
		var err error
		valId, err = b.buildValue(n.RHS)
		if err != nil {
			return NoId, err
		}
	} else {
		valId = b.emitConstant(slot.MakeNil())
	}
	b.emit(&Inst{Op: OpStoreReturn, ReturnValue: valId}, false)
	b.emit(&Inst{Op: OpMethodReturn}, false)
	return valId, nil
}

// buildMultiAssign implements the Multi-assign case: build the source
// array expression, then for each target name emit a message call to
// at: (or copySeries: for the remainder on the last name when the AST
// marks it so) and bind.
func (b *Builder) buildMultiAssign(n *parsetree.Node) (Id, error) {
	arrId, err := b.buildValue(n.ArrayExpr)
	if err != nil {
		return NoId, err
	}

	last := NoId
	for i, name := range n.TargetNames {
		idxId := b.emitConstant(slot.MakeInt32(int32(i)))
		selector := "at:"
		if i == len(n.TargetNames)-1 && n.LastIsRemain {
			selector = "copySeries:"
		}
		selHash := b.ctx.Symbols.Intern(selector)
		valId := b.emit(&Inst{Op: OpMessage, Target: arrId, Selector: selHash, Args: []Id{idxId}}, true)
		last, err = b.resolveName(name, valId)
		if err != nil {
			return NoId, err
		}
	}
	return last, nil
}

// resolveName implements the seven-step name resolution order. writeValue
// is NoId for a read, or the id of the value to store for a write.
func (b *Builder) resolveName(name symbol.Hash, writeValue Id) (Id, error) {
	// Step 1: class name.
	if b.ctx.Classes != nil {
		if cls, ok := b.ctx.Classes.FindClassNamed(name); ok {
			if writeValue != NoId {
				return NoId, diag.NewInternalError("cannot write to class name")
			}
			return b.emitConstant(slot.MakeSymbol(uint64(cls.Name()))), nil
		}
	}

	// Step 2: walk up scopes in the current frame, crossing frame
	// boundaries via LoadOuterFrame as needed.
	if id, ok, err := b.resolveInFrames(name, writeValue); err != nil {
		return NoId, err
	} else if ok {
		return id, nil
	}

	// Step 3: instance variables.
	if b.owningClass != nil {
		if idx := indexOf(b.owningClass.InstVarNames(), name); idx >= 0 {
			thisId, ok, err := b.resolveInFrames(b.thisHash, NoId)
			if err != nil {
				return NoId, err
			}
			if !ok {
				return NoId, diag.NewInternalError("instance variable access outside a method context")
			}
			if writeValue != NoId {
				b.emit(&Inst{Op: OpWriteToThis, ThisValue: thisId, InstVarIndex: idx, StoreValue: writeValue}, false)
				return writeValue, nil
			}
			return b.emit(&Inst{Op: OpReadFromThis, ThisValue: thisId, InstVarIndex: idx}, true), nil
		}
	}

	// Step 4: class variables, walked from the owning class up through
	// superclasses.
	if b.owningClass != nil {
		idx := 0
		for cls := b.owningClass; cls != nil; {
			for _, n2 := range cls.ClassVarNames() {
				if n2 == name {
					if writeValue != NoId {
						b.emit(&Inst{Op: OpWriteToClass, ClassVarIndex: idx, StoreValue: writeValue}, false)
						return writeValue, nil
					}
					return b.emit(&Inst{Op: OpReadFromClass, ClassVarIndex: idx}, true), nil
				}
				idx++
			}
			next, ok := cls.Superclass()
			if !ok {
				break
			}
			cls = next
		}
	}

	// Step 5: class constants, read-only.
	if b.owningClass != nil && writeValue == NoId {
		for cls := b.owningClass; cls != nil; {
			names := cls.ConstNames()
			values := cls.ConstValues()
			for i, n2 := range names {
				if n2 == name {
					return b.emitConstant(slot.FromBits(values[i].Bits)), nil
				}
			}
			next, ok := cls.Superclass()
			if !ok {
				break
			}
			cls = next
		}
	}

	// Step 6: special names.
	if writeValue == NoId {
		switch name {
		case b.superHash:
			return b.emit(&Inst{Op: OpReadFromContext, Context: ContextSuper}, true), nil
		case b.thisMethodHash:
			return b.emit(&Inst{Op: OpReadFromContext, Context: ContextThisMethod}, true), nil
		case b.thisProcessHash:
			return b.emit(&Inst{Op: OpReadFromContext, Context: ContextThisProcess}, true), nil
		case b.thisThreadHash:
			return b.emit(&Inst{Op: OpReadFromContext, Context: ContextThisThread}, true), nil
		}
	}

	// Step 7: unresolved.
	str, _ := b.ctx.Symbols.Lookup(name)
	return NoId, diag.NewNameResolutionError(str, diag.SourceLocation{})
}

// resolveInFrames walks up lexical scopes within the current frame, and
// across enclosing-frame boundaries via LoadOuterFrame chains, looking
// for name. Returns ok=false if no frame in the chain binds name.
func (b *Builder) resolveInFrames(name symbol.Hash, writeValue Id) (Id, bool, error) {
	frame := b.frame
	scope := b.currentScope()
	crossed := 0

	for {
		if idx, ok := scope.lookup(name); ok {
			outerFrameId := NoId
			for i := 0; i < crossed; i++ {
				outerFrameId = b.emit(&Inst{Op: OpLoadOuterFrame, InnerFrame: outerFrameId}, true)
			}
			if writeValue != NoId {
				b.emit(&Inst{Op: OpWriteToFrame, FrameIndex: idx, FrameId: outerFrameId, StoreValue: writeValue}, false)
				return writeValue, true, nil
			}
			return b.emit(&Inst{Op: OpReadFromFrame, FrameIndex: idx, FrameId: outerFrameId}, true), true, nil
		}
		if scope.Parent != nil {
			scope = scope.Parent
			continue
		}
		if frame.Outer == nil {
			return NoId, false, nil
		}
		crossed++
		next := frame.OuterScope
		frame = frame.Outer
		scope = next
	}
}

// buildInlineBlock builds the statements of an If/While sub-block
// directly into the current (already pushed) scope and block, rather
// than dispatching through buildValue's Block case, which would
// allocate a nested Frame and a real closure. If and While branches
// are syntactically block-literal-shaped but are never generic message
// arguments, so they always execute inline in the enclosing frame.
func (b *Builder) buildInlineBlock(n *parsetree.Node) (Id, error) {
	if n == nil || n.Kind == parsetree.Empty {
		return b.emitConstant(slot.MakeNil()), nil
	}
	if n.Kind == parsetree.Block {
		return b.buildSequence(n.Statements)
	}
	return b.buildValue(n)
}

func indexOf(hashes []symbol.Hash, name symbol.Hash) int {
	for i, h := range hashes {
		if h == name {
			return i
		}
	}
	return -1
}
