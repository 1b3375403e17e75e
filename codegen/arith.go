package codegen

import (
	"fmt"

	"github.com/skx/subc/ast"
	"github.com/skx/subc/ir"
)

// genArith handles ADD/SUB/MUL/DIV/MOD.  The builder's own coerce pass
// (§4.3) guarantees both operands already share one representation, so
// the only decision left here is which instruction family - integer or
// SSE2 scalar double - to emit.
func (e *Emitter) genArith(instr ir.Instruction) string {
	dst, left, right := instr.Operands[0], instr.Operands[1], instr.Operands[2]
	if left.Type() == ast.FloatType {
		return e.genFloatArith(instr.Op, dst, left, right)
	}
	return e.genIntArith(instr.Op, dst, left, right)
}

func (e *Emitter) genIntArith(op ir.Op, dst, left, right ir.Value) string {
	s := fmt.Sprintf("        # [%s]\n", op)
	s += e.loadIntTo(left, "rax")
	s += e.loadIntTo(right, "r10")
	switch op {
	case ir.OpAdd:
		s += "        add rax, r10\n"
	case ir.OpSub:
		s += "        sub rax, r10\n"
	case ir.OpMul:
		s += "        imul rax, r10\n"
	case ir.OpDiv:
		s += e.divGuard("r10")
		s += "        cqo\n        idiv r10\n"
	case ir.OpMod:
		s += e.divGuard("r10")
		s += "        cqo\n        idiv r10\n        mov rax, rdx\n"
	}
	s += e.storeFrom(dst, "rax", false)
	return s
}

func (e *Emitter) divGuard(reg string) string {
	if !e.needDivGuard {
		return ""
	}
	return fmt.Sprintf("        cmp %s, 0\n        je .Ldiv_zero\n", reg)
}

func (e *Emitter) genFloatArith(op ir.Op, dst, left, right ir.Value) string {
	s := fmt.Sprintf("        # [%s]\n", op)
	s += e.loadFloatTo(left, "xmm0")
	s += e.loadFloatTo(right, "xmm1")
	switch op {
	case ir.OpAdd:
		s += "        addsd xmm0, xmm1\n"
	case ir.OpSub:
		s += "        subsd xmm0, xmm1\n"
	case ir.OpMul:
		s += "        mulsd xmm0, xmm1\n"
	case ir.OpDiv:
		s += "        divsd xmm0, xmm1\n"
	case ir.OpMod:
		s += "        call fmod\n"
	}
	s += e.storeFrom(dst, "xmm0", true)
	return s
}

// genCompare handles EQ/NE/LT/LE/GT/GE.  Strings compare via strcmp,
// floats via ucomisd, everything else via a plain integer cmp - three
// different instruction families converging on the same 0/1 result the
// rest of the language treats as bool.
func (e *Emitter) genCompare(instr ir.Instruction) string {
	dst, left, right := instr.Operands[0], instr.Operands[1], instr.Operands[2]
	switch left.Type() {
	case ast.StringType:
		return e.genStringCompare(instr.Op, dst, left, right)
	case ast.FloatType:
		return e.genFloatCompare(instr.Op, dst, left, right)
	default:
		return e.genIntCompare(instr.Op, dst, left, right)
	}
}

var intSetcc = map[ir.Op]string{
	ir.OpEq: "sete", ir.OpNe: "setne",
	ir.OpLt: "setl", ir.OpLe: "setle", ir.OpGt: "setg", ir.OpGe: "setge",
}

var floatSetcc = map[ir.Op]string{
	ir.OpEq: "sete", ir.OpNe: "setne",
	ir.OpLt: "setb", ir.OpLe: "setbe", ir.OpGt: "seta", ir.OpGe: "setae",
}

func (e *Emitter) genIntCompare(op ir.Op, dst, left, right ir.Value) string {
	s := fmt.Sprintf("        # [%s]\n", op)
	s += e.loadIntTo(left, "rax")
	s += e.loadIntTo(right, "r10")
	s += "        cmp rax, r10\n"
	s += fmt.Sprintf("        %s al\n", intSetcc[op])
	s += "        movzx rax, al\n"
	s += e.storeFrom(dst, "rax", false)
	return s
}

func (e *Emitter) genFloatCompare(op ir.Op, dst, left, right ir.Value) string {
	s := fmt.Sprintf("        # [%s]\n", op)
	s += e.loadFloatTo(left, "xmm0")
	s += e.loadFloatTo(right, "xmm1")
	s += "        ucomisd xmm0, xmm1\n"
	s += fmt.Sprintf("        %s al\n", floatSetcc[op])
	s += "        movzx rax, al\n"
	s += e.storeFrom(dst, "rax", false)
	return s
}

func (e *Emitter) genStringCompare(op ir.Op, dst, left, right ir.Value) string {
	s := fmt.Sprintf("        # [%s]\n", op)
	s += e.loadIntTo(left, "rdi")
	s += e.loadIntTo(right, "rsi")
	s += "        call strcmp\n"
	s += "        cmp eax, 0\n"
	s += fmt.Sprintf("        %s al\n", intSetcc[op])
	s += "        movzx rax, al\n"
	s += e.storeFrom(dst, "rax", false)
	return s
}

// genLogical handles AND/OR.  Both operands are already bool (0 or 1), so
// a bitwise and/or is all the short-circuit builder's merge-point left
// for codegen to do.
func (e *Emitter) genLogical(instr ir.Instruction) string {
	dst, left, right := instr.Operands[0], instr.Operands[1], instr.Operands[2]
	op := "and"
	if instr.Op == ir.OpOr {
		op = "or"
	}
	s := fmt.Sprintf("        # [%s]\n", instr.Op)
	s += e.loadIntTo(left, "rax")
	s += e.loadIntTo(right, "r10")
	s += fmt.Sprintf("        %s rax, r10\n", op)
	s += e.storeFrom(dst, "rax", false)
	return s
}

func (e *Emitter) genNot(instr ir.Instruction) string {
	dst, x := instr.Operands[0], instr.Operands[1]
	s := "        # [NOT]\n"
	s += e.loadIntTo(x, "rax")
	s += "        xor rax, 1\n"
	s += e.storeFrom(dst, "rax", false)
	return s
}

func (e *Emitter) genLabel(instr ir.Instruction) string {
	return fmt.Sprintf("%s:\n", instr.Operands[0].Label)
}

func (e *Emitter) genJump(instr ir.Instruction) string {
	return fmt.Sprintf("        jmp %s\n", instr.Operands[0].Label)
}

func (e *Emitter) genJumpIf(instr ir.Instruction, whenTrue bool) string {
	label, cond := instr.Operands[0], instr.Operands[1]
	s := fmt.Sprintf("        # [%s]\n", instr.Op)
	s += e.loadIntTo(cond, "rax")
	s += "        cmp rax, 0\n"
	if whenTrue {
		s += fmt.Sprintf("        jne %s\n", label.Label)
	} else {
		s += fmt.Sprintf("        je %s\n", label.Label)
	}
	return s
}

// genCall handles both user-defined function calls and the four runtime
// stringify/concat shims - from codegen's perspective they are the same
// thing, a label to call and a list of typed arguments to place (§4.5).
func (e *Emitter) genCall(instr ir.Instruction) string {
	dst, callee, args := instr.Operands[0], instr.Operands[1], instr.Operands[2:]
	types := make([]ast.DataType, len(args))
	for i, a := range args {
		types[i] = a.Type()
	}
	slots := e.abi.assignArgs(types)

	s := fmt.Sprintf("        # [CALL %s]\n", callee.Label)
	for i, a := range args {
		if slots[i].isFloat {
			s += e.loadFloatTo(a, slots[i].reg)
		} else {
			s += e.loadIntTo(a, slots[i].reg)
		}
	}
	s += fmt.Sprintf("        call %s\n", e.funcLabel(callee.Label))
	if dst.Type() == ast.FloatType {
		s += e.storeFrom(dst, "xmm0", true)
	} else {
		s += e.storeFrom(dst, "rax", false)
	}
	return s
}

func (e *Emitter) genReturn(instr ir.Instruction) string {
	s := "        # [RETURN]\n"
	if len(instr.Operands) == 1 {
		v := instr.Operands[0]
		if e.retType == ast.FloatType {
			s += e.loadFloatTo(v, "xmm0")
		} else {
			s += e.loadIntTo(v, "rax")
		}
	}
	s += fmt.Sprintf("        jmp %s\n", e.epilogueLabel())
	return s
}

// genPrint handles the `print` builtin (§4.5).  Each type routes through
// its own printf format string; bool additionally has to pick between
// two literal strings since there is no %b conversion.
func (e *Emitter) genPrint(instr ir.Instruction) string {
	arg := instr.Operands[0]
	switch arg.Type() {
	case ast.FloatType:
		s := "        # [PRINT float]\n"
		s += e.loadFloatTo(arg, "xmm0")
		s += "        lea rdi, [rip+.Lfmt_float]\n"
		s += "        mov al, 1\n"
		s += "        call printf\n"
		return s
	case ast.StringType:
		s := "        # [PRINT string]\n"
		s += e.loadIntTo(arg, "rsi")
		s += "        lea rdi, [rip+.Lfmt_str]\n"
		s += "        xor eax, eax\n"
		s += "        call printf\n"
		return s
	case ast.BoolType:
		falseLbl := e.newLocalLabel("pf_false")
		endLbl := e.newLocalLabel("pf_end")
		s := "        # [PRINT bool]\n"
		s += e.loadIntTo(arg, "rax")
		s += "        cmp rax, 0\n"
		s += fmt.Sprintf("        je %s\n", falseLbl)
		s += "        lea rdi, [rip+.Lfmt_true]\n"
		s += fmt.Sprintf("        jmp %s\n", endLbl)
		s += fmt.Sprintf("%s:\n", falseLbl)
		s += "        lea rdi, [rip+.Lfmt_false]\n"
		s += fmt.Sprintf("%s:\n", endLbl)
		s += "        xor eax, eax\n"
		s += "        call printf\n"
		return s
	default:
		s := "        # [PRINT int]\n"
		s += e.loadIntTo(arg, "rsi")
		s += "        lea rdi, [rip+.Lfmt_int]\n"
		s += "        xor eax, eax\n"
		s += "        call printf\n"
		return s
	}
}

// genAlloc backs an array literal with a malloc'd block of 8-byte
// elements (§4.4) - the emitter's memory model has no stack-allocated
// arrays, since their size is only known once the element count is
// lowered to a value.
func (e *Emitter) genAlloc(instr ir.Instruction) string {
	dst, count := instr.Operands[0], instr.Operands[1]
	s := "        # [ALLOC]\n"
	s += e.loadIntTo(count, "rax")
	s += "        imul rax, 8\n"
	s += "        mov rdi, rax\n"
	s += "        call malloc\n"
	s += e.storeFrom(dst, "rax", false)
	return s
}

func (e *Emitter) genLoadElem(instr ir.Instruction) string {
	dst, arr, idx := instr.Operands[0], instr.Operands[1], instr.Operands[2]
	s := "        # [LOAD_ELEM]\n"
	s += e.loadIntTo(arr, "rax")
	s += e.loadIntTo(idx, "r10")
	if dst.Type() == ast.FloatType {
		s += "        movsd xmm0, [rax+r10*8]\n"
		s += e.storeFrom(dst, "xmm0", true)
	} else {
		s += "        mov r11, [rax+r10*8]\n"
		s += e.storeFrom(dst, "r11", false)
	}
	return s
}

func (e *Emitter) genStoreElem(instr ir.Instruction) string {
	arr, idx, val := instr.Operands[0], instr.Operands[1], instr.Operands[2]
	s := "        # [STORE_ELEM]\n"
	s += e.loadIntTo(arr, "rax")
	s += e.loadIntTo(idx, "r10")
	if val.Type() == ast.FloatType {
		s += e.loadFloatTo(val, "xmm0")
		s += "        movsd [rax+r10*8], xmm0\n"
	} else {
		s += e.loadIntTo(val, "r11")
		s += "        mov [rax+r10*8], r11\n"
	}
	return s
}
