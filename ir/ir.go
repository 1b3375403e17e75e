// Package ir defines the three-address virtual-register intermediate
// representation that sits between the type-checked AST and the x86-64
// emitter (§3, §4.4).  The teacher lowers tokens directly into its own
// stack-machine instruction set (instructions.Instruction{Type, Value}),
// a single enum-tagged struct; this package keeps that "one struct per
// instruction, tagged by an opcode enum" shape but widens it to a
// register-based three-address form with explicit operands, since SB's
// expression trees (nested calls, array indexing, short-circuit
// booleans) don't fit on an RPN operand stack the way the teacher's
// arithmetic language did.
package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/skx/subc/ast"
	"github.com/skx/subc/source"
)

// Op is the opcode of one IR instruction.  The set matches §3's IR
// instruction vocabulary exactly.
type Op int

// The opcodes named in §3.
const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod

	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	OpAnd
	OpOr
	OpNot

	OpLoad
	OpStore
	OpMove
	OpConstInt
	OpConstFloat
	OpConstString
	OpAlloc

	OpLabel
	OpJump
	OpJumpIf
	OpJumpIfNot
	OpCall
	OpReturn

	OpFuncStart
	OpFuncEnd
	OpParam

	OpPrint

	OpLoadElem
	OpStoreElem
)

var opNames = map[Op]string{
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpMod: "MOD",
	OpEq: "EQ", OpNe: "NE", OpLt: "LT", OpLe: "LE", OpGt: "GT", OpGe: "GE",
	OpAnd: "AND", OpOr: "OR", OpNot: "NOT",
	OpLoad: "LOAD", OpStore: "STORE", OpMove: "MOVE",
	OpConstInt: "CONST_INT", OpConstFloat: "CONST_FLOAT", OpConstString: "CONST_STRING",
	OpAlloc:      "ALLOC",
	OpLabel:      "LABEL",
	OpJump:       "JUMP",
	OpJumpIf:     "JUMP_IF",
	OpJumpIfNot:  "JUMP_IF_NOT",
	OpCall:       "CALL",
	OpReturn:     "RETURN",
	OpFuncStart:  "FUNC_START",
	OpFuncEnd:    "FUNC_END",
	OpParam:      "PARAM",
	OpPrint:      "PRINT",
	OpLoadElem:   "LOAD_ELEM",
	OpStoreElem:  "STORE_ELEM",
}

// String renders an opcode the way an -emit-ir dump names it.
func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// ValueKind tags the variant held by a Value.
type ValueKind int

// The value kinds an IR instruction operand can be (§3).
const (
	ValConstInt ValueKind = iota
	ValConstFloat
	ValConstString
	ValRegister
	ValLocal
	ValLabel
)

// Value is one operand or result of an Instruction: a literal, a local
// slot reference, a virtual register, or a label.  Unlike the AST, IR
// values are simple enough to live in one tagged struct rather than an
// interface sum type (grounded on the teacher's single-struct
// Instruction{Type, Value string}, generalized from "one string payload"
// to "one value variant per kind").
type Value struct {
	Kind     ValueKind
	IntVal   int64
	FloatVal float64
	StrIndex int          // ValConstString: index into Module.Strings
	Reg      int          // ValRegister: virtual register id, unique within a Function
	RegType  ast.DataType // ValRegister: the type the register holds
	Slot     int          // ValLocal: local-slot index
	Label    string       // ValLabel: label or callee name
}

// ConstInt builds an integer literal operand.
func ConstInt(v int64) Value { return Value{Kind: ValConstInt, IntVal: v} }

// ConstFloat builds a float literal operand.
func ConstFloat(v float64) Value { return Value{Kind: ValConstFloat, FloatVal: v} }

// ConstString builds an operand referring to string pool entry idx.
func ConstString(idx int) Value { return Value{Kind: ValConstString, StrIndex: idx} }

// Reg builds a virtual register reference of the given type.
func Reg(id int, t ast.DataType) Value { return Value{Kind: ValRegister, Reg: id, RegType: t} }

// Local builds a local-slot reference.
func Local(slot int) Value { return Value{Kind: ValLocal, Slot: slot} }

// LabelRef builds a label (or callee name) reference.
func LabelRef(name string) Value { return Value{Kind: ValLabel, Label: name} }

// Type reports the DataType a Value holds: RegType for a register, or the
// type implied by a literal's own Kind.  codegen and the builder's own
// coerce helper both need this to decide between an int and a float
// instruction selection without threading a separate type alongside every
// operand.
func (v Value) Type() ast.DataType {
	switch v.Kind {
	case ValConstInt:
		return ast.IntType
	case ValConstFloat:
		return ast.FloatType
	case ValConstString:
		return ast.StringType
	default:
		return v.RegType
	}
}

// String renders a Value the way an -emit-ir dump prints an operand.
func (v Value) String() string {
	switch v.Kind {
	case ValConstInt:
		return strconv.FormatInt(v.IntVal, 10)
	case ValConstFloat:
		return strconv.FormatFloat(v.FloatVal, 'g', -1, 64)
	case ValConstString:
		return fmt.Sprintf("$S%d", v.StrIndex)
	case ValRegister:
		return fmt.Sprintf("r%d", v.Reg)
	case ValLocal:
		return fmt.Sprintf("local_%d", v.Slot)
	case ValLabel:
		return v.Label
	default:
		return "?"
	}
}

// Instruction is one IR operation.  By convention, for every
// value-producing opcode Operands[0] is the destination.
type Instruction struct {
	Op       Op
	Operands []Value
	Pos      source.Position
	Comment  string
}

// String renders an instruction the way an -emit-ir dump prints it.
func (i Instruction) String() string {
	parts := make([]string, len(i.Operands))
	for idx, o := range i.Operands {
		parts[idx] = o.String()
	}
	s := i.Op.String()
	if len(parts) > 0 {
		s += " " + strings.Join(parts, ", ")
	}
	if i.Comment != "" {
		s += "  ; " + i.Comment
	}
	return s
}

// Param is one parameter slot of a Function: its declared type and the
// local slot the emitter must move its argument register into.
type Param struct {
	Name string
	Type ast.DataType
	Slot int
}

// Function is one lowered function: its signature, its straight-line
// (but label/jump-structured) instruction stream, and the register and
// local-slot counts the emitter needs to size its stack frame.
type Function struct {
	Name         string
	ReturnType   ast.DataType
	Params       []Param
	Instructions []Instruction
	NumRegisters int
	NumLocals    int
}

// String renders a function the way an -emit-ir dump prints it.
func (f *Function) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "func %s(", f.Name)
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", p.Name, p.Type)
	}
	fmt.Fprintf(&b, ") -> %s  ; registers=%d locals=%d\n", f.ReturnType, f.NumRegisters, f.NumLocals)
	for _, instr := range f.Instructions {
		fmt.Fprintf(&b, "  %s\n", instr)
	}
	return b.String()
}

// Module is a whole compiled program: every function (entry point first)
// plus the deduplicated string literal pool every CONST_STRING/str_concat
// call indexes into.
type Module struct {
	Functions []*Function
	Strings   []string
}

// String renders a module the way -emit-ir prints a full dump.
func (m *Module) String() string {
	var b strings.Builder
	for i, s := range m.Strings {
		fmt.Fprintf(&b, "string $S%d = %q\n", i, s)
	}
	for _, fn := range m.Functions {
		b.WriteString(fn.String())
	}
	return b.String()
}
