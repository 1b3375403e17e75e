package codegen

import (
	"fmt"
	"strings"

	"github.com/skx/subc/ast"
	"github.com/skx/subc/ir"
)

// emitFunction renders one IR function's prologue, body and epilogue.
// Matches the teacher's main: label, push rbp, set up the frame, then one
// chunk of assembly per instruction - except every local and register now
// gets its own stack cell instead of sharing the teacher's single [a]/[b]
// pair, and RETURN jumps to a per-function epilogue label instead of
// falling through main's single footer.
func (e *Emitter) emitFunction(fn *ir.Function) string {
	e.fn = fn
	e.frame = newFrame(fn)
	e.retType = fn.ReturnType

	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", e.funcLabel(fn.Name))
	b.WriteString("        push rbp\n")
	b.WriteString("        mov rbp, rsp\n")
	if e.frame.size > 0 {
		fmt.Fprintf(&b, "        sub rsp, %d\n", e.frame.size)
	}

	paramTypes := make([]ast.DataType, len(fn.Params))
	for i, p := range fn.Params {
		paramTypes[i] = p.Type
	}
	slots := e.abi.assignArgs(paramTypes)
	for i, p := range fn.Params {
		dst := e.frame.localAddr(p.Slot)
		if slots[i].isFloat {
			fmt.Fprintf(&b, "        movsd %s, %s\n", dst, slots[i].reg)
		} else {
			fmt.Fprintf(&b, "        mov %s, %s\n", dst, slots[i].reg)
		}
	}

	started := false
	for _, instr := range fn.Instructions {
		switch instr.Op {
		case ir.OpFuncStart:
			started = true
			continue
		case ir.OpFuncEnd, ir.OpParam:
			continue
		}
		if !started {
			e.sink.Fatalf(instr.Pos, "internal error: instruction %s reached before FUNC_START", instr.Op)
			continue
		}
		b.WriteString(e.emitInstr(instr))
	}

	fmt.Fprintf(&b, "%s:\n", e.epilogueLabel())
	b.WriteString("        mov rsp, rbp\n")
	b.WriteString("        pop rbp\n")
	b.WriteString("        ret\n\n")
	return b.String()
}

func (e *Emitter) epilogueLabel() string {
	return fmt.Sprintf(".Lepilogue_%s", e.fn.Name)
}

// loadIntTo renders the instruction that loads v, an integer/pointer/
// string/bool-valued operand, into the named general-purpose register.
func (e *Emitter) loadIntTo(v ir.Value, reg string) string {
	switch v.Kind {
	case ir.ValConstInt:
		return fmt.Sprintf("        mov %s, %d\n", reg, v.IntVal)
	case ir.ValConstString:
		return fmt.Sprintf("        lea %s, [rip+%s]\n", reg, e.stringLabel(v.StrIndex))
	case ir.ValRegister, ir.ValLocal:
		return fmt.Sprintf("        mov %s, %s\n", reg, e.frame.addr(v))
	default:
		e.sink.Fatalf(e.fn.Instructions[0].Pos, "internal error: cannot load %v as an integer operand", v)
		return ""
	}
}

// loadFloatTo renders the instruction that loads v, a float-valued
// operand, into the named XMM register.  x86 has no immediate-to-XMM
// move, which is why every float literal the builder hands codegen has
// to come from the pooled .LF constants instead.
func (e *Emitter) loadFloatTo(v ir.Value, reg string) string {
	switch v.Kind {
	case ir.ValConstFloat:
		return fmt.Sprintf("        movsd %s, [rip+%s]\n", reg, e.floatLabel(v.FloatVal))
	case ir.ValRegister, ir.ValLocal:
		return fmt.Sprintf("        movsd %s, %s\n", reg, e.frame.addr(v))
	default:
		e.sink.Fatalf(e.fn.Instructions[0].Pos, "internal error: cannot load %v as a float operand", v)
		return ""
	}
}

// storeFrom renders the instruction that stores the named register back
// into v's stack cell.
func (e *Emitter) storeFrom(v ir.Value, reg string, isFloat bool) string {
	if isFloat {
		return fmt.Sprintf("        movsd %s, %s\n", e.frame.addr(v), reg)
	}
	return fmt.Sprintf("        mov %s, %s\n", e.frame.addr(v), reg)
}

func (e *Emitter) emitInstr(instr ir.Instruction) string {
	switch instr.Op {
	case ir.OpConstInt:
		return e.genConstInt(instr)
	case ir.OpConstFloat:
		return e.genConstFloat(instr)
	case ir.OpConstString:
		return e.genConstString(instr)
	case ir.OpMove:
		return e.genMove(instr)
	case ir.OpLoad:
		return e.genLoad(instr)
	case ir.OpStore:
		return e.genStore(instr)
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod:
		return e.genArith(instr)
	case ir.OpEq, ir.OpNe, ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe:
		return e.genCompare(instr)
	case ir.OpAnd, ir.OpOr:
		return e.genLogical(instr)
	case ir.OpNot:
		return e.genNot(instr)
	case ir.OpLabel:
		return e.genLabel(instr)
	case ir.OpJump:
		return e.genJump(instr)
	case ir.OpJumpIf:
		return e.genJumpIf(instr, true)
	case ir.OpJumpIfNot:
		return e.genJumpIf(instr, false)
	case ir.OpCall:
		return e.genCall(instr)
	case ir.OpReturn:
		return e.genReturn(instr)
	case ir.OpPrint:
		return e.genPrint(instr)
	case ir.OpAlloc:
		return e.genAlloc(instr)
	case ir.OpLoadElem:
		return e.genLoadElem(instr)
	case ir.OpStoreElem:
		return e.genStoreElem(instr)
	default:
		e.sink.Fatalf(instr.Pos, "internal error: codegen has no handler for %s", instr.Op)
		return ""
	}
}

func (e *Emitter) genConstInt(instr ir.Instruction) string {
	dst, v := instr.Operands[0], instr.Operands[1]
	return fmt.Sprintf("        # [CONST_INT]\n"+
		"        mov rax, %d\n"+
		"        mov %s, rax\n", v.IntVal, e.frame.addr(dst))
}

func (e *Emitter) genConstFloat(instr ir.Instruction) string {
	dst, v := instr.Operands[0], instr.Operands[1]
	return fmt.Sprintf("        # [CONST_FLOAT]\n"+
		"        movsd xmm0, [rip+%s]\n"+
		"        movsd %s, xmm0\n", e.floatLabel(v.FloatVal), e.frame.addr(dst))
}

func (e *Emitter) genConstString(instr ir.Instruction) string {
	dst, v := instr.Operands[0], instr.Operands[1]
	return fmt.Sprintf("        # [CONST_STRING]\n"+
		"        lea rax, [rip+%s]\n"+
		"        mov %s, rax\n", e.stringLabel(v.StrIndex), e.frame.addr(dst))
}

func (e *Emitter) genMove(instr ir.Instruction) string {
	dst, src := instr.Operands[0], instr.Operands[1]
	if dst.Type() == ast.FloatType {
		return "        # [MOVE]\n" + e.loadFloatTo(src, "xmm0") + e.storeFrom(dst, "xmm0", true)
	}
	return "        # [MOVE]\n" + e.loadIntTo(src, "rax") + e.storeFrom(dst, "rax", false)
}

func (e *Emitter) genLoad(instr ir.Instruction) string {
	dst, local := instr.Operands[0], instr.Operands[1]
	if dst.Type() == ast.FloatType {
		return "        # [LOAD]\n" + e.loadFloatTo(local, "xmm0") + e.storeFrom(dst, "xmm0", true)
	}
	return "        # [LOAD]\n" + e.loadIntTo(local, "rax") + e.storeFrom(dst, "rax", false)
}

func (e *Emitter) genStore(instr ir.Instruction) string {
	local, v := instr.Operands[0], instr.Operands[1]
	if v.Type() == ast.FloatType {
		return "        # [STORE]\n" + e.loadFloatTo(v, "xmm0") + e.storeFrom(local, "xmm0", true)
	}
	return "        # [STORE]\n" + e.loadIntTo(v, "rax") + e.storeFrom(local, "rax", false)
}
