// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command hadronc drives the middle-end and codegen pipeline over one
// compilation unit: CFGBuild, Linearize, BuildLifetimes, Lower,
// Allocate, Resolve, Emit. When -validate is set, Validate checks run
// after CFGBuild, after Linearize and BuildLifetimes, after Allocate,
// and after Emit; Lower and Resolve are not followed by a check. The lexer and parser that turn
// source text into a parsetree.Node are out of this module's scope
// (spec §1's "external collaborators"); main wires in whichever one is
// registered under -frontend, the same pattern the teacher's own
// cmd/compile uses to pick an architecture backend by name.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/mod/semver"

	"github.com/hadron-sclang/hadron-sub002/internal/compiler/classlib"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/diag"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/emit"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/heap"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/hir"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/lir"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/linear"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/parsetree"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/regalloc"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/resolve"
	"github.com/hadron-sclang/hadron-sub002/internal/compiler/validate"
	"github.com/hadron-sclang/hadron-sub002/internal/rtcontext"
)

// version is stamped at link time via -ldflags; defaults to a
// development build tag that semver.IsValid rejects on purpose, so a
// build that forgot to stamp it is visibly flagged rather than
// silently reporting a bogus release.
var version = "dev"

// Frontend turns source text into the parse tree the CFGBuilder
// consumes. Production frontends (lexer + parser) live outside this
// module; frontendInits registers whichever ones are linked in, the
// same indirection archInits gives cmd/compile over its backends.
type Frontend interface {
	Parse(source string) (*parsetree.Node, error)
}

var frontendInits = map[string]func() Frontend{}

// RegisterFrontend lets a frontend package add itself to -frontend's
// choices via an init function, without this package importing it
// directly (keeping the lexer/parser genuinely out of scope).
func RegisterFrontend(name string, newFrontend func() Frontend) {
	frontendInits[name] = newFrontend
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("hadronc: ")

	frontendName := flag.String("frontend", "", "registered frontend to parse input with")
	sourceFile := flag.String("source", "", "path to the source file to compile")
	numRegisters := flag.Int("registers", 8, "number of physical registers available to the allocator")
	validateAll := flag.Bool("validate", true, "run cross-pass invariant checks at every stage boundary")
	showVersion := flag.Bool("version", false, "print the compiler version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(versionString())
		return
	}
	if !semver.IsValid(semver.Canonical(version)) {
		log.Printf("warning: build version %q is not a valid semantic version (unstamped dev build)", version)
	}

	newFrontend, ok := frontendInits[*frontendName]
	if !ok {
		fmt.Fprintf(os.Stderr, "hadronc: unknown frontend %q (registered: %v)\n", *frontendName, registeredFrontendNames())
		os.Exit(2)
	}
	if *sourceFile == "" {
		fmt.Fprintln(os.Stderr, "hadronc: -source is required")
		os.Exit(2)
	}

	source, err := os.ReadFile(*sourceFile)
	if err != nil {
		log.Fatalf("reading %s: %v", *sourceFile, err)
	}

	result, err := compile(string(source), newFrontend(), nil, *numRegisters, *validateAll)
	if err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Printf("hadronc: compiled %s (%d bytes of machine code, entry %#x)\n", *sourceFile, result.Size, result.EntryPoint)
}

func registeredFrontendNames() []string {
	names := make([]string, 0, len(frontendInits))
	for name := range frontendInits {
		names = append(names, name)
	}
	return names
}

func versionString() string {
	if semver.IsValid(version) {
		return version
	}
	return version + " (unstamped)"
}

// compile runs the full pipeline over source text: parse, build the
// CFG, linearize, compute lifetimes, lower to LIR, allocate registers,
// resolve edges, and emit machine code. Every stage's output is fed
// straight into the next, per spec §1's staged-pipeline description;
// validate's checkers run inline between stages when requested rather
// than as a separate pass over already-discarded intermediate state.
func compile(source string, frontend Frontend, classes classlib.Library, numRegisters int, runValidate bool) (emit.Result, error) {
	tree, err := frontend.Parse(source)
	if err != nil {
		return emit.Result{}, fmt.Errorf("parse: %w", err)
	}

	ctx := rtcontext.New(source, classes)
	hirFrame, err := hir.NewBuilder(ctx, nil).BuildFrame(tree)
	if err != nil {
		return emit.Result{}, reportAndReturn(ctx, err)
	}
	if runValidate {
		if errs := validate.Frame(hirFrame); len(errs) != 0 {
			return emit.Result{}, fmt.Errorf("internal error: CFGBuild invariants violated: %v", errs)
		}
	}

	linearFrame := linear.Linearize(hirFrame)
	linear.BuildLifetimes(linearFrame)
	if runValidate {
		if errs := validate.LinearFrame(linearFrame); len(errs) != 0 {
			return emit.Result{}, fmt.Errorf("internal error: Linearize invariants violated: %v", errs)
		}
		if errs := validate.Lifetimes(linearFrame); len(errs) != 0 {
			return emit.Result{}, fmt.Errorf("internal error: lifetime invariants violated: %v", errs)
		}
	}

	lirFrame, err := lir.Lower(linearFrame)
	if err != nil {
		return emit.Result{}, fmt.Errorf("lower: %w", err)
	}

	md := defaultMachineDescription(numRegisters)
	if err := regalloc.Allocate(lirFrame, linearFrame.Intervals, md); err != nil {
		return emit.Result{}, fmt.Errorf("allocate: %w", err)
	}
	if runValidate {
		if errs := validate.Allocation(lirFrame); len(errs) != 0 {
			return emit.Result{}, fmt.Errorf("internal error: allocation invariants violated: %v", errs)
		}
	}

	succs, preds := successorsAndPredecessors(hirFrame)
	if err := resolve.Resolve(lirFrame, succs, preds); err != nil {
		return emit.Result{}, fmt.Errorf("resolve: %w", err)
	}

	codeHeap := heap.NewCodeHeap()
	result, err := emit.Emit(lirFrame, &emit.AMD64Sink{}, codeHeap)
	if err != nil {
		return emit.Result{}, fmt.Errorf("emit: %w", err)
	}
	if runValidate {
		if errs := validate.MachineCode(result.Page.Bytes()); len(errs) != 0 {
			return emit.Result{}, fmt.Errorf("internal error: emitted machine code failed validation: %v", errs)
		}
	}
	return result, nil
}

func reportAndReturn(ctx *rtcontext.Context, err error) error {
	if de, ok := err.(*diag.Error); ok {
		ctx.Reporter.AddError(de)
	}
	return err
}

// defaultMachineDescription reserves registers 0 and 1 (thread context
// and stack pointer) and splits the rest evenly between caller-saved
// and callee-saved, matching the teacher's own amd64 ABI convention of
// favoring caller-saved registers for short-lived temporaries.
func defaultMachineDescription(numRegisters int) regalloc.MachineDescription {
	md := regalloc.MachineDescription{
		NumRegisters: numRegisters,
		CallerSaved:  make(map[int]bool),
		CalleeSaved:  make(map[int]bool),
	}
	for r := regalloc.ThreadContextReg + 2; r < numRegisters; r++ {
		if (r-regalloc.ThreadContextReg)%2 == 0 {
			md.CallerSaved[r] = true
		} else {
			md.CalleeSaved[r] = true
		}
	}
	return md
}

func successorsAndPredecessors(f *hir.Frame) (succs, preds map[hir.BlockId][]hir.BlockId) {
	succs = make(map[hir.BlockId][]hir.BlockId)
	preds = make(map[hir.BlockId][]hir.BlockId)
	for _, blk := range f.BlocksByID() {
		succs[blk.Id] = append([]hir.BlockId{}, blk.Successors...)
		preds[blk.Id] = append([]hir.BlockId{}, blk.Predecessors...)
	}
	return succs, preds
}
