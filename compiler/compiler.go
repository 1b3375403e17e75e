// Package compiler drives the five phases a source file passes through on
// its way to assembly: lex, parse, analyze, lower, emit (§2, §7). It plays
// the same role the teacher's Compiler type did - New, then one method
// that runs every phase and hands back the finished output - generalized
// from a single three-step expression pipeline to the full five-phase one
// SB's grammar needs, and from "return an error" to "return a Result plus
// the sink of accumulated diagnostics", since §7 requires the lexer,
// parser and analyzer to keep going and report every problem they find
// rather than stopping at the first one.
package compiler

import (
	"github.com/skx/subc/codegen"
	"github.com/skx/subc/diag"
	"github.com/skx/subc/ir"
	"github.com/skx/subc/lexer"
	"github.com/skx/subc/parser"
	"github.com/skx/subc/sema"
	"github.com/skx/subc/source"
)

// Phase names one of the five stages a Compile run passes through, for a
// caller (the CLI's -v flag) that wants to log progress between them.
type Phase int

// The phases named in §2, in the order Compile runs them.
const (
	PhaseLex Phase = iota
	PhaseParse
	PhaseAnalyze
	PhaseLower
	PhaseEmit
)

func (p Phase) String() string {
	switch p {
	case PhaseLex:
		return "lex"
	case PhaseParse:
		return "parse"
	case PhaseAnalyze:
		return "analyze"
	case PhaseLower:
		return "lower"
	case PhaseEmit:
		return "emit"
	default:
		return "?"
	}
}

// Options configures one Compile run.
type Options struct {
	// Optimize enables the -O1+ constant-folding pass on the lowered IR.
	Optimize bool

	// OnPhase, if non-nil, is called just before each phase starts -
	// the hook the CLI's -v flag uses to log progress.
	OnPhase func(Phase)
}

// Result is everything a successful Compile run produced: the lowered IR
// (for -emit-ir) and the final assembly text (for -S/-o).
type Result struct {
	Module   *ir.Module
	Assembly string
}

// Compile runs every phase over the named input file's contents in turn,
// short-circuiting as soon as one phase's sink reports an error (§7). It
// never panics: an internal error reaching IR or codegen (a prior phase's
// bug) is recorded in sink as a fatal diagnostic rather than propagated as
// a Go error, the same "accumulate, then let the caller decide" contract
// every other phase uses.
func Compile(filename string, src []byte, opts Options, sink *diag.Sink) (*Result, bool) {
	buf := source.New(filename, src)

	notify := func(p Phase) {
		if opts.OnPhase != nil {
			opts.OnPhase(p)
		}
	}

	notify(PhaseLex)
	toks := lexer.New(buf, sink).Lex()
	if sink.HasErrors() {
		return nil, false
	}

	notify(PhaseParse)
	prog := parser.New(toks, sink).Parse()
	if sink.HasErrors() {
		return nil, false
	}

	notify(PhaseAnalyze)
	sema.New(sink).Analyze(prog)
	if sink.HasErrors() {
		return nil, false
	}

	notify(PhaseLower)
	mod, ok := ir.Build(prog, sink)
	if !ok {
		return nil, false
	}
	if opts.Optimize {
		ir.Fold(mod)
	}

	notify(PhaseEmit)
	asm, ok := codegen.Emit(mod, sink)
	if !ok {
		return nil, false
	}

	return &Result{Module: mod, Assembly: asm}, true
}
