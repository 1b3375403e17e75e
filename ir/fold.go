package ir

import "github.com/skx/subc/source"

// Fold performs the constant-folding optimization the -O1 and higher
// levels select (a supplemented feature beyond the literal specification
// text, which only promises that every optimization level produces
// identical semantics): a CONST_INT/CONST_FLOAT pair feeding an
// arithmetic or comparison instruction collapses into a single CONST
// instruction computed at compile time. It never changes what a program
// prints, only which instructions compute an already-known value.
//
// Folding only replaces instructions; it does not remove the now-unused
// CONST_INT/CONST_FLOAT instructions that fed a folded one, since doing
// so is dead-code elimination, a distinct optimization this pass
// deliberately doesn't attempt.
func Fold(mod *Module) {
	for _, fn := range mod.Functions {
		foldFunction(fn)
	}
}

type constVal struct {
	isFloat bool
	i       int64
	f       float64
}

func asFloat(v constVal) float64 {
	if v.isFloat {
		return v.f
	}
	return float64(v.i)
}

func foldFunction(fn *Function) {
	known := make(map[int]constVal)

	for idx, instr := range fn.Instructions {
		switch instr.Op {
		case OpConstInt:
			known[instr.Operands[0].Reg] = constVal{i: instr.Operands[1].IntVal}
		case OpConstFloat:
			known[instr.Operands[0].Reg] = constVal{isFloat: true, f: instr.Operands[1].FloatVal}
		case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
			folded, ok := tryFold(instr, known)
			if !ok {
				continue
			}
			fn.Instructions[idx] = folded
			if folded.Op == OpConstInt {
				known[folded.Operands[0].Reg] = constVal{i: folded.Operands[1].IntVal}
			} else {
				known[folded.Operands[0].Reg] = constVal{isFloat: true, f: folded.Operands[1].FloatVal}
			}
		}
	}
}

func tryFold(instr Instruction, known map[int]constVal) (Instruction, bool) {
	if len(instr.Operands) != 3 {
		return Instruction{}, false
	}
	dst, left, right := instr.Operands[0], instr.Operands[1], instr.Operands[2]
	if left.Kind != ValRegister || right.Kind != ValRegister {
		return Instruction{}, false
	}
	lv, ok := known[left.Reg]
	if !ok {
		return Instruction{}, false
	}
	rv, ok := known[right.Reg]
	if !ok {
		return Instruction{}, false
	}

	if lv.isFloat || rv.isFloat {
		return tryFoldFloat(instr.Op, dst, instr.Pos, asFloat(lv), asFloat(rv))
	}
	return tryFoldInt(instr.Op, dst, instr.Pos, lv.i, rv.i)
}

func tryFoldFloat(op Op, dst Value, pos source.Position, l, r float64) (Instruction, bool) {
	switch op {
	case OpAdd:
		return constFloatInstr(dst, pos, l+r), true
	case OpSub:
		return constFloatInstr(dst, pos, l-r), true
	case OpMul:
		return constFloatInstr(dst, pos, l*r), true
	case OpDiv:
		if r == 0 {
			return Instruction{}, false
		}
		return constFloatInstr(dst, pos, l/r), true
	case OpEq:
		return constBoolInstr(dst, pos, l == r), true
	case OpNe:
		return constBoolInstr(dst, pos, l != r), true
	case OpLt:
		return constBoolInstr(dst, pos, l < r), true
	case OpLe:
		return constBoolInstr(dst, pos, l <= r), true
	case OpGt:
		return constBoolInstr(dst, pos, l > r), true
	case OpGe:
		return constBoolInstr(dst, pos, l >= r), true
	default:
		return Instruction{}, false
	}
}

func tryFoldInt(op Op, dst Value, pos source.Position, l, r int64) (Instruction, bool) {
	switch op {
	case OpAdd:
		return constIntInstr(dst, pos, l+r), true
	case OpSub:
		return constIntInstr(dst, pos, l-r), true
	case OpMul:
		return constIntInstr(dst, pos, l*r), true
	case OpDiv:
		if r == 0 {
			return Instruction{}, false // a division by zero folds at runtime, not compile time
		}
		return constIntInstr(dst, pos, l/r), true
	case OpMod:
		if r == 0 {
			return Instruction{}, false
		}
		return constIntInstr(dst, pos, l%r), true
	case OpEq:
		return constBoolInstr(dst, pos, l == r), true
	case OpNe:
		return constBoolInstr(dst, pos, l != r), true
	case OpLt:
		return constBoolInstr(dst, pos, l < r), true
	case OpLe:
		return constBoolInstr(dst, pos, l <= r), true
	case OpGt:
		return constBoolInstr(dst, pos, l > r), true
	case OpGe:
		return constBoolInstr(dst, pos, l >= r), true
	default:
		return Instruction{}, false
	}
}

func constIntInstr(dst Value, pos source.Position, v int64) Instruction {
	return Instruction{Op: OpConstInt, Operands: []Value{dst, ConstInt(v)}, Pos: pos, Comment: "folded"}
}

func constFloatInstr(dst Value, pos source.Position, v float64) Instruction {
	return Instruction{Op: OpConstFloat, Operands: []Value{dst, ConstFloat(v)}, Pos: pos, Comment: "folded"}
}

func constBoolInstr(dst Value, pos source.Position, v bool) Instruction {
	n := int64(0)
	if v {
		n = 1
	}
	return Instruction{Op: OpConstInt, Operands: []Value{dst, ConstInt(n)}, Pos: pos, Comment: "folded"}
}
