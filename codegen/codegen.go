// Package codegen walks a lowered *ir.Module and emits x86-64 assembly,
// GAS dialect with Intel syntax, for the System V or Windows x64 calling
// convention depending on the host building the compiler (§4.5).
//
// It is grounded on the teacher's compiler/generator.go: one gen<Op>
// method per opcode returning a hand-built chunk of assembly text, glued
// together by a header/body/footer split.  What changes is the memory
// model underneath - the teacher kept its one operand stack in a single
// pair of named doubles ([a], [b]); this package gives every IR register
// and every local its own slot in the current function's stack frame,
// because a three-address IR has no operand stack to lean on.
package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/skx/subc/ast"
	"github.com/skx/subc/diag"
	"github.com/skx/subc/ir"
)

// Emitter holds the state threaded through one Emit call: the constant
// pools gathered up front, which runtime shims the module actually needs,
// and - while walking one function - that function's stack frame.
type Emitter struct {
	sink *diag.Sink
	abi  abi

	strings []string

	floatOrder []float64
	floatIdx   map[float64]int

	needStrConcat  bool
	needIntToStr   bool
	needFloatToStr bool
	needBoolToStr  bool
	needDivGuard   bool
	needFmod       bool

	labelSeq int

	fn      *ir.Function
	frame   frame
	retType ast.DataType
}

// frame is the stack-slot layout of the function currently being emitted:
// every local slot and every virtual register gets one 8-byte cell,
// registers numbered immediately after locals (§4.5 - no register
// allocator, a fixed stack-slot scheme only).
type frame struct {
	numLocals int
	size      int
}

func newFrame(fn *ir.Function) frame {
	cells := fn.NumLocals + fn.NumRegisters
	size := cells * 8
	if rem := size % 16; rem != 0 {
		size += 16 - rem
	}
	return frame{numLocals: fn.NumLocals, size: size}
}

func (f frame) localAddr(slot int) string {
	return fmt.Sprintf("[rbp-%d]", 8*(slot+1))
}

func (f frame) regAddr(reg int) string {
	return fmt.Sprintf("[rbp-%d]", 8*(f.numLocals+reg+1))
}

// addr renders the memory operand an ir.Value lives in.  It is only valid
// for ValRegister and ValLocal; every other kind is a literal or label
// that codegen loads directly rather than addressing.
func (f frame) addr(v ir.Value) string {
	switch v.Kind {
	case ir.ValLocal:
		return f.localAddr(v.Slot)
	case ir.ValRegister:
		return f.regAddr(v.Reg)
	default:
		panic("codegen: addr called on a non-addressable value")
	}
}

// Emit translates mod into a complete assembly file.  ok is false only if
// a problem internal to codegen itself was recorded in sink; a module that
// reached this phase has already passed the lexer, parser, sema and ir
// phases (§7), so this should only fire on a codegen bug.
func Emit(mod *ir.Module, sink *diag.Sink) (string, bool) {
	e := &Emitter{
		sink:     sink,
		abi:      selectABI(),
		strings:  mod.Strings,
		floatIdx: make(map[float64]int),
	}
	e.collect(mod)

	var body strings.Builder
	for _, fn := range mod.Functions {
		body.WriteString(e.emitFunction(fn))
	}
	if e.sink.HasErrors() {
		return "", false
	}

	var out strings.Builder
	out.WriteString(e.header(mod))
	out.WriteString(body.String())
	out.WriteString(e.runtimeShims())
	return out.String(), true
}

// collect walks every instruction once before any code is generated, to
// learn which float constants need a pooled label and which of the
// runtime string-conversion shims the final output must define - mirrors
// the teacher's own first pass over its instruction stream to gather
// c.constants before output() ever writes a line of assembly.
func (e *Emitter) collect(mod *ir.Module) {
	for _, fn := range mod.Functions {
		for _, instr := range fn.Instructions {
			switch instr.Op {
			case ir.OpConstFloat:
				e.internFloat(instr.Operands[1].FloatVal)
			case ir.OpDiv, ir.OpMod:
				if instr.Operands[1].Type() == ast.IntType {
					e.needDivGuard = true
				}
				if instr.Op == ir.OpMod && instr.Operands[1].Type() == ast.FloatType {
					e.needFmod = true
				}
			case ir.OpCall:
				switch instr.Operands[1].Label {
				case "str_concat":
					e.needStrConcat = true
				case "int_to_str":
					e.needIntToStr = true
				case "float_to_str":
					e.needFloatToStr = true
				case "bool_to_str":
					e.needBoolToStr = true
				}
			}
		}
	}
}

func (e *Emitter) internFloat(v float64) int {
	if idx, ok := e.floatIdx[v]; ok {
		return idx
	}
	idx := len(e.floatOrder)
	e.floatOrder = append(e.floatOrder, v)
	e.floatIdx[v] = idx
	return idx
}

func (e *Emitter) floatLabel(v float64) string {
	return fmt.Sprintf(".LF%d", e.internFloat(v))
}

func (e *Emitter) stringLabel(idx int) string {
	return fmt.Sprintf(".LS%d", idx)
}

func (e *Emitter) newLocalLabel(hint string) string {
	name := fmt.Sprintf(".Lcg%d_%s", e.labelSeq, hint)
	e.labelSeq++
	return name
}

// funcLabel renders the symbol name a CALL to fn should target - the
// entry point gets whatever label the host linker expects (§4.5); every
// other function is called by its own source name.
func (e *Emitter) funcLabel(name string) string {
	if name == "main" {
		return e.abi.entryLabel
	}
	return name
}

// header emits the constant data section: the fixed format strings and
// error messages every program needs, the deduplicated string pool, and
// the deduplicated float-constant pool - the direct descendant of the
// teacher's own "walk c.constants, emit one .double per unique value".
func (e *Emitter) header(mod *ir.Module) string {
	var b strings.Builder

	b.WriteString(".intel_syntax noprefix\n")
	fmt.Fprintf(&b, ".global %s\n\n", e.abi.entryLabel)
	b.WriteString(".extern printf\n")
	b.WriteString(".extern sprintf\n")
	b.WriteString(".extern malloc\n")
	b.WriteString(".extern memcpy\n")
	b.WriteString(".extern strlen\n")
	b.WriteString(".extern exit\n")
	if e.needFmod {
		b.WriteString(".extern fmod\n")
	}
	b.WriteString("\n")

	b.WriteString(".section .rodata\n")
	b.WriteString(".Lfmt_int:      .asciz \"%ld\\n\"\n")
	b.WriteString(".Lfmt_float:    .asciz \"%.17g\\n\"\n")
	b.WriteString(".Lfmt_str:      .asciz \"%s\\n\"\n")
	b.WriteString(".Lfmt_true:     .asciz \"true\\n\"\n")
	b.WriteString(".Lfmt_false:    .asciz \"false\\n\"\n")
	b.WriteString(".Lfmt_intbuf:   .asciz \"%ld\"\n")
	b.WriteString(".Lfmt_floatbuf: .asciz \"%.17g\"\n")
	b.WriteString(".Lstr_true_lit:  .asciz \"true\"\n")
	b.WriteString(".Lstr_false_lit: .asciz \"false\"\n")
	if e.needDivGuard {
		b.WriteString(".Ldiv_zero_msg: .asciz \"runtime error: integer divide by zero\\n\"\n")
	}

	for i, s := range e.strings {
		fmt.Fprintf(&b, "%s: .asciz %s\n", e.stringLabel(i), strconv.Quote(s))
	}
	for i, f := range e.floatOrder {
		fmt.Fprintf(&b, ".LF%d: .double %s\n", i, formatFloatConst(f))
	}
	b.WriteString("\n.text\n")
	return b.String()
}

// formatFloatConst renders v the way GAS's .double directive expects -
// always with a decimal point or exponent so the assembler never reads
// it back as an integer directive by mistake.
func formatFloatConst(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
