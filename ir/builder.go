package ir

import (
	"fmt"

	"github.com/skx/subc/ast"
	"github.com/skx/subc/diag"
	"github.com/skx/subc/source"
	"github.com/skx/subc/token"
)

// irAbort is the panic value used to unwind out of a deeply recursive
// lowering walk on the first fatal problem, in the same spirit as
// go/parser's errorBailout: the IR generator fails fast rather than
// accumulating (§7), and a sentinel panic/recover pair is a cleaner way
// to unwind a tree walk than threading an error return through every
// lowering method.
type irAbort struct{}

// loopCtx records the jump targets break/continue resolve to inside the
// loop currently being lowered.
type loopCtx struct {
	continueLabel string
	breakLabel    string
}

// Builder lowers a type-checked *ast.Program into a Module.  It assumes
// the program already passed semantic analysis: every Expr carries a
// resolved Type and every Identifier/Call carries a resolved Symbol.
type Builder struct {
	sink   *diag.Sink
	module *Module

	fn      *Function
	nextReg int
	retType ast.DataType

	nextLabel int
	strPool   map[string]int

	loopStack []loopCtx
}

// Build lowers prog into a Module.  ok is false if a fatal problem was
// recorded in sink, in which case mod is nil and no assembly should be
// emitted from it (§7).
func Build(prog *ast.Program, sink *diag.Sink) (mod *Module, ok bool) {
	b := &Builder{
		sink:    sink,
		module:  &Module{},
		strPool: make(map[string]int),
	}

	defer func() {
		if r := recover(); r != nil {
			if _, isAbort := r.(irAbort); isAbort {
				mod, ok = nil, false
				return
			}
			panic(r)
		}
	}()

	b.lowerEntryPoint(prog)
	for _, st := range prog.Statements {
		if fn, isFn := st.(*ast.FunctionDecl); isFn {
			b.lowerFunction(fn)
		}
	}
	return b.module, true
}

func (b *Builder) fail(pos source.Position, format string, args ...interface{}) {
	b.sink.Fatalf(pos, format, args...)
	panic(irAbort{})
}

func (b *Builder) emit(pos source.Position, op Op, operands ...Value) {
	b.fn.Instructions = append(b.fn.Instructions, Instruction{Op: op, Operands: operands, Pos: pos})
}

func (b *Builder) newRegister(t ast.DataType) Value {
	id := b.nextReg
	b.nextReg++
	return Reg(id, t)
}

func (b *Builder) newLabel(hint string) string {
	name := fmt.Sprintf(".L%d_%s", b.nextLabel, hint)
	b.nextLabel++
	return name
}

// newHiddenLocal reserves one more local slot beyond what the semantic
// analyzer counted, for a compiler-internal temporary (the index counter
// a collection-form `for` loop needs but that has no source-level name).
func (b *Builder) newHiddenLocal() int {
	slot := b.fn.NumLocals
	b.fn.NumLocals++
	return slot
}

// coerce widens v to target when sema's int-to-float widening rule (§4.3)
// allowed a value of one numeric type where the other was declared - the
// one place the builder must undo "assignable() said yes" before handing
// codegen two operands of different representations.  Every other
// mismatch is a prior phase's bug, not something this function papers
// over.
func (b *Builder) coerce(v Value, target ast.DataType, pos source.Position) Value {
	if v.Type() == target {
		return v
	}
	if target == ast.FloatType && v.Type() == ast.IntType {
		dst := b.newRegister(ast.FloatType)
		b.emit(pos, OpMove, dst, v)
		return dst
	}
	return v
}

func (b *Builder) lastIsReturn() bool {
	n := len(b.fn.Instructions)
	return n > 0 && b.fn.Instructions[n-1].Op == OpReturn
}

func (b *Builder) internString(s string) int {
	if idx, ok := b.strPool[s]; ok {
		return idx
	}
	idx := len(b.module.Strings)
	b.module.Strings = append(b.module.Strings, s)
	b.strPool[s] = idx
	return idx
}

func (b *Builder) pushLoop(continueLabel, breakLabel string) {
	b.loopStack = append(b.loopStack, loopCtx{continueLabel, breakLabel})
}

func (b *Builder) popLoop() {
	b.loopStack = b.loopStack[:len(b.loopStack)-1]
}

func (b *Builder) currentLoop() *loopCtx {
	if len(b.loopStack) == 0 {
		return nil
	}
	return &b.loopStack[len(b.loopStack)-1]
}

// lowerEntryPoint lowers every top-level statement that is not a
// FunctionDecl as the body of the synthetic "main" function (§3, §4.3 -
// the semantic analyzer already sized its frame into MainLocalSlots).
func (b *Builder) lowerEntryPoint(prog *ast.Program) {
	b.fn = &Function{Name: "main", ReturnType: ast.IntType, NumLocals: prog.MainLocalSlots}
	b.nextReg = 0
	b.retType = ast.Void

	b.emit(prog.Pos(), OpFuncStart)

	for _, st := range prog.Statements {
		if _, isFn := st.(*ast.FunctionDecl); isFn {
			continue
		}
		b.stmt(st)
	}

	if !b.lastIsReturn() {
		zero := b.lowerIntLiteral(prog.Pos(), 0)
		b.emit(prog.Pos(), OpReturn, zero)
	}
	b.emit(prog.Pos(), OpFuncEnd)

	b.fn.NumRegisters = b.nextReg
	b.module.Functions = append(b.module.Functions, b.fn)
}

// lowerFunction lowers one user-declared function (§4.4).  Parameters are
// declared via PARAM markers right after FUNC_START; the emitter, not
// the IR, is responsible for moving argument registers into those slots
// (§4.5).
func (b *Builder) lowerFunction(fn *ast.FunctionDecl) {
	irFn := &Function{Name: fn.Name, ReturnType: fn.ReturnType.Kind, NumLocals: fn.LocalSlots}
	for _, p := range fn.Params {
		irFn.Params = append(irFn.Params, Param{Name: p.Name, Type: p.DeclaredType.Kind, Slot: p.Symbol.Slot})
	}
	b.fn = irFn
	b.nextReg = 0
	b.retType = fn.ReturnType.Kind

	b.emit(fn.Position, OpFuncStart)
	for i, p := range fn.Params {
		b.emit(fn.Position, OpParam, Local(p.Symbol.Slot), ConstInt(int64(i)))
	}

	b.stmt(fn.Body)

	if !b.lastIsReturn() {
		b.emit(fn.Position, OpReturn)
	}
	b.emit(fn.Position, OpFuncEnd)

	irFn.NumRegisters = b.nextReg
	b.module.Functions = append(b.module.Functions, irFn)
}

// ---- statements ----

func (b *Builder) stmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.VarDecl:
		b.varDecl(n)
	case *ast.ConstDecl:
		b.constDecl(n)
	case *ast.Block:
		for _, st := range n.Statements {
			b.stmt(st)
		}
	case *ast.If:
		b.ifStmt(n)
	case *ast.While:
		b.whileStmt(n)
	case *ast.DoWhile:
		b.doWhileStmt(n)
	case *ast.For:
		b.forStmt(n)
	case *ast.Return:
		b.returnStmt(n)
	case *ast.Break:
		b.breakStmt(n)
	case *ast.Continue:
		b.continueStmt(n)
	case *ast.ExprStmt:
		b.lowerExpr(n.X)
	case *ast.Assign:
		b.assignStmt(n)
	case *ast.FunctionDecl:
		// Nested function declarations never reach the IR builder; the
		// semantic analyzer rejects them before this phase runs.
	default:
		b.fail(s.Pos(), "internal error: unsupported statement %T reached the IR builder", s)
	}
}

func (b *Builder) zeroValue(pos source.Position, t ast.DataType) Value {
	switch t {
	case ast.FloatType:
		return b.lowerFloatLiteral(pos, 0)
	case ast.StringType:
		return b.lowerStringLiteral(pos, "")
	default:
		return b.lowerIntLiteral(pos, 0)
	}
}

func (b *Builder) varDecl(n *ast.VarDecl) {
	var val Value
	if n.Init != nil {
		val = b.coerce(b.lowerExpr(n.Init), n.Symbol.Type.Kind, n.Position)
	} else {
		val = b.zeroValue(n.Position, n.Symbol.Type.Kind)
	}
	b.emit(n.Position, OpStore, Local(n.Symbol.Slot), val)
}

func (b *Builder) constDecl(n *ast.ConstDecl) {
	val := b.coerce(b.lowerExpr(n.Init), n.Symbol.Type.Kind, n.Position)
	b.emit(n.Position, OpStore, Local(n.Symbol.Slot), val)
}

func (b *Builder) ifStmt(n *ast.If) {
	cond := b.lowerExpr(n.Cond)
	endLabel := b.newLabel("if_end")

	if n.Else == nil {
		b.emit(n.Position, OpJumpIfNot, LabelRef(endLabel), cond)
		b.stmt(n.Then)
		b.emit(n.Position, OpLabel, LabelRef(endLabel))
		return
	}

	elseLabel := b.newLabel("if_else")
	b.emit(n.Position, OpJumpIfNot, LabelRef(elseLabel), cond)
	b.stmt(n.Then)
	b.emit(n.Position, OpJump, LabelRef(endLabel))
	b.emit(n.Position, OpLabel, LabelRef(elseLabel))
	b.stmt(n.Else)
	b.emit(n.Position, OpLabel, LabelRef(endLabel))
}

func (b *Builder) whileStmt(n *ast.While) {
	headLabel := b.newLabel("while_head")
	endLabel := b.newLabel("while_end")

	b.emit(n.Position, OpLabel, LabelRef(headLabel))
	cond := b.lowerExpr(n.Cond)
	b.emit(n.Position, OpJumpIfNot, LabelRef(endLabel), cond)

	b.pushLoop(headLabel, endLabel)
	b.stmt(n.Body)
	b.popLoop()

	b.emit(n.Position, OpJump, LabelRef(headLabel))
	b.emit(n.Position, OpLabel, LabelRef(endLabel))
}

func (b *Builder) doWhileStmt(n *ast.DoWhile) {
	bodyLabel := b.newLabel("do_body")
	condLabel := b.newLabel("do_cond")
	endLabel := b.newLabel("do_end")

	b.emit(n.Position, OpLabel, LabelRef(bodyLabel))

	b.pushLoop(condLabel, endLabel)
	b.stmt(n.Body)
	b.popLoop()

	b.emit(n.Position, OpLabel, LabelRef(condLabel))
	cond := b.lowerExpr(n.Cond)
	b.emit(n.Position, OpJumpIf, LabelRef(bodyLabel), cond)
	b.emit(n.Position, OpLabel, LabelRef(endLabel))
}

func (b *Builder) forStmt(n *ast.For) {
	if n.Range != nil {
		b.forRangeStmt(n)
		return
	}
	b.forCollectionStmt(n)
}

func (b *Builder) forRangeStmt(n *ast.For) {
	var start Value
	if n.Range.Start != nil {
		start = b.lowerExpr(n.Range.Start)
	} else {
		start = b.lowerIntLiteral(n.Position, 0)
	}
	end := b.lowerExpr(n.Range.End)
	b.emit(n.Position, OpStore, Local(n.VarSymbol.Slot), start)

	headLabel := b.newLabel("for_head")
	incLabel := b.newLabel("for_inc")
	endLabel := b.newLabel("for_end")

	b.emit(n.Position, OpLabel, LabelRef(headLabel))
	cur := b.newRegister(ast.IntType)
	b.emit(n.Position, OpLoad, cur, Local(n.VarSymbol.Slot))
	cond := b.newRegister(ast.BoolType)
	b.emit(n.Position, OpLt, cond, cur, end)
	b.emit(n.Position, OpJumpIfNot, LabelRef(endLabel), cond)

	b.pushLoop(incLabel, endLabel)
	for _, st := range n.Body.Statements {
		b.stmt(st)
	}
	b.popLoop()

	b.emit(n.Position, OpLabel, LabelRef(incLabel))
	cur2 := b.newRegister(ast.IntType)
	b.emit(n.Position, OpLoad, cur2, Local(n.VarSymbol.Slot))
	one := b.lowerIntLiteral(n.Position, 1)
	next := b.newRegister(ast.IntType)
	b.emit(n.Position, OpAdd, next, cur2, one)
	b.emit(n.Position, OpStore, Local(n.VarSymbol.Slot), next)
	b.emit(n.Position, OpJump, LabelRef(headLabel))
	b.emit(n.Position, OpLabel, LabelRef(endLabel))
}

// forCollectionStmt only supports iterating an array literal directly,
// since the ALLOC/LOAD_ELEM memory model (§4.5) stores no length
// alongside an array's data - a runtime array reached through a variable
// has no length an IR lowering can recover. Iterating such a value is
// rejected with a fatal diagnostic rather than silently mis-lowered.
func (b *Builder) forCollectionStmt(n *ast.For) {
	lit, ok := n.Collection.(*ast.ArrayLiteral)
	if !ok {
		b.fail(n.Collection.Pos(), "iterating a collection whose length isn't known at compile time is not supported; use an array literal or range(...)")
		return
	}

	arrVal := b.lowerExpr(lit)
	arrSlot := b.newHiddenLocal()
	b.emit(n.Position, OpStore, Local(arrSlot), arrVal)

	idxSlot := b.newHiddenLocal()
	b.emit(n.Position, OpStore, Local(idxSlot), b.lowerIntLiteral(n.Position, 0))

	count := b.lowerIntLiteral(n.Position, int64(len(lit.Elems)))

	headLabel := b.newLabel("forin_head")
	incLabel := b.newLabel("forin_inc")
	endLabel := b.newLabel("forin_end")

	b.emit(n.Position, OpLabel, LabelRef(headLabel))
	idx := b.newRegister(ast.IntType)
	b.emit(n.Position, OpLoad, idx, Local(idxSlot))
	cond := b.newRegister(ast.BoolType)
	b.emit(n.Position, OpLt, cond, idx, count)
	b.emit(n.Position, OpJumpIfNot, LabelRef(endLabel), cond)

	arr := b.newRegister(ast.ArrayType)
	b.emit(n.Position, OpLoad, arr, Local(arrSlot))
	elem := b.newRegister(n.VarSymbol.Type.Kind)
	b.emit(n.Position, OpLoadElem, elem, arr, idx)
	b.emit(n.Position, OpStore, Local(n.VarSymbol.Slot), elem)

	b.pushLoop(incLabel, endLabel)
	for _, st := range n.Body.Statements {
		b.stmt(st)
	}
	b.popLoop()

	b.emit(n.Position, OpLabel, LabelRef(incLabel))
	idx2 := b.newRegister(ast.IntType)
	b.emit(n.Position, OpLoad, idx2, Local(idxSlot))
	one := b.lowerIntLiteral(n.Position, 1)
	next := b.newRegister(ast.IntType)
	b.emit(n.Position, OpAdd, next, idx2, one)
	b.emit(n.Position, OpStore, Local(idxSlot), next)
	b.emit(n.Position, OpJump, LabelRef(headLabel))
	b.emit(n.Position, OpLabel, LabelRef(endLabel))
}

func (b *Builder) returnStmt(n *ast.Return) {
	if n.Value == nil {
		b.emit(n.Position, OpReturn)
		return
	}
	val := b.coerce(b.lowerExpr(n.Value), b.retType, n.Position)
	b.emit(n.Position, OpReturn, val)
}

func (b *Builder) breakStmt(n *ast.Break) {
	ctx := b.currentLoop()
	if ctx == nil {
		b.fail(n.Position, "internal error: break outside of a loop reached the IR builder")
		return
	}
	b.emit(n.Position, OpJump, LabelRef(ctx.breakLabel))
}

func (b *Builder) continueStmt(n *ast.Continue) {
	ctx := b.currentLoop()
	if ctx == nil {
		b.fail(n.Position, "internal error: continue outside of a loop reached the IR builder")
		return
	}
	b.emit(n.Position, OpJump, LabelRef(ctx.continueLabel))
}

func (b *Builder) assignStmt(n *ast.Assign) {
	val := b.coerce(b.lowerExpr(n.Value), n.Target.Type().Kind, n.Position)
	switch t := n.Target.(type) {
	case *ast.Identifier:
		b.emit(n.Position, OpStore, Local(t.Symbol.Slot), val)
	case *ast.ArrayAccess:
		arr := b.lowerExpr(t.Array)
		idx := b.lowerExpr(t.Index)
		b.emit(n.Position, OpStoreElem, arr, idx, val)
	default:
		b.fail(n.Position, "internal error: unsupported assignment target %T reached the IR builder", n.Target)
	}
}

// ---- expressions ----

func (b *Builder) lowerIntLiteral(pos source.Position, v int64) Value {
	dst := b.newRegister(ast.IntType)
	b.emit(pos, OpConstInt, dst, ConstInt(v))
	return dst
}

func (b *Builder) lowerFloatLiteral(pos source.Position, v float64) Value {
	dst := b.newRegister(ast.FloatType)
	b.emit(pos, OpConstFloat, dst, ConstFloat(v))
	return dst
}

func (b *Builder) lowerStringLiteral(pos source.Position, s string) Value {
	idx := b.internString(s)
	dst := b.newRegister(ast.StringType)
	b.emit(pos, OpConstString, dst, ConstString(idx))
	return dst
}

func (b *Builder) lowerExpr(e ast.Expr) Value {
	switch n := e.(type) {
	case *ast.Literal:
		return b.lowerLiteral(n)
	case *ast.Identifier:
		return b.lowerIdentifier(n)
	case *ast.Binary:
		return b.lowerBinary(n)
	case *ast.Unary:
		return b.lowerUnary(n)
	case *ast.Ternary:
		return b.lowerTernary(n)
	case *ast.Call:
		return b.lowerCall(n)
	case *ast.ArrayLiteral:
		return b.lowerArrayLiteral(n)
	case *ast.ArrayAccess:
		return b.lowerArrayAccess(n)
	case *ast.MemberAccess:
		return b.lowerMemberAccess(n)
	default:
		b.fail(e.Pos(), "internal error: unsupported expression %T reached the IR builder", e)
		panic("unreachable")
	}
}

func (b *Builder) lowerLiteral(n *ast.Literal) Value {
	switch n.Kind {
	case ast.IntType:
		return b.lowerIntLiteral(n.Position, n.IntVal)
	case ast.FloatType:
		return b.lowerFloatLiteral(n.Position, n.FloatVal)
	case ast.StringType:
		return b.lowerStringLiteral(n.Position, n.StrVal)
	case ast.BoolType:
		v := int64(0)
		if n.BoolVal {
			v = 1
		}
		dst := b.newRegister(ast.BoolType)
		b.emit(n.Position, OpConstInt, dst, ConstInt(v))
		return dst
	case ast.NullType:
		dst := b.newRegister(ast.NullType)
		b.emit(n.Position, OpConstInt, dst, ConstInt(0))
		return dst
	default:
		b.fail(n.Position, "internal error: literal of unresolved type reached the IR builder")
		panic("unreachable")
	}
}

func (b *Builder) lowerIdentifier(n *ast.Identifier) Value {
	dst := b.newRegister(n.Symbol.Type.Kind)
	b.emit(n.Position, OpLoad, dst, Local(n.Symbol.Slot))
	return dst
}

var binaryOpcodes = map[token.Kind]Op{
	token.PLUS: OpAdd, token.MINUS: OpSub, token.STAR: OpMul, token.SLASH: OpDiv, token.PERCENT: OpMod,
	token.EQ: OpEq, token.NE: OpNe, token.LT: OpLt, token.GT: OpGt, token.LE: OpLe, token.GE: OpGe,
}

func (b *Builder) lowerBinary(n *ast.Binary) Value {
	switch n.Op {
	case token.ANDAND:
		return b.lowerShortCircuit(n, false)
	case token.OROR:
		return b.lowerShortCircuit(n, true)
	}

	if n.Op == token.PLUS && n.Typ.Kind == ast.StringType {
		return b.lowerStringConcat(n)
	}

	left := b.lowerExpr(n.Left)
	right := b.lowerExpr(n.Right)

	// A comparison's result is always bool (§4.3), but its *operands* still
	// need the same int-to-float widening an arithmetic op gets whenever
	// one side is int and the other float - sema's numericBinary already
	// picked the widened type for arithmetic (n.Typ), but a comparison's
	// n.Typ is Bool regardless, so the widened operand type has to be
	// recomputed from the operands themselves here.
	if left.Type() == ast.FloatType || right.Type() == ast.FloatType {
		left = b.coerce(left, ast.FloatType, n.Position)
		right = b.coerce(right, ast.FloatType, n.Position)
	}

	op, ok := binaryOpcodes[n.Op]
	if !ok {
		b.fail(n.Position, "internal error: unsupported binary operator %s reached the IR builder", n.Op)
	}
	dst := b.newRegister(n.Typ.Kind)
	b.emit(n.Position, op, dst, left, right)
	return dst
}

// lowerShortCircuit lowers && and || to conditional jumps around a
// shared merge label; the result lands in one register via MOVE on
// whichever arm actually runs (§4.4).
func (b *Builder) lowerShortCircuit(n *ast.Binary, isOr bool) Value {
	left := b.lowerExpr(n.Left)
	dst := b.newRegister(ast.BoolType)
	b.emit(n.Position, OpMove, dst, left)

	mergeLabel := b.newLabel("sc_end")
	if isOr {
		b.emit(n.Position, OpJumpIf, LabelRef(mergeLabel), left)
	} else {
		b.emit(n.Position, OpJumpIfNot, LabelRef(mergeLabel), left)
	}

	right := b.lowerExpr(n.Right)
	b.emit(n.Position, OpMove, dst, right)
	b.emit(n.Position, OpLabel, LabelRef(mergeLabel))
	return dst
}

// stringifyHelpers names the runtime shims (alongside str_concat) the
// emitter must define to convert a non-string operand to text before
// concatenation - str_concat itself only glues two C strings together
// (§4.5), it does not format numbers or booleans.
var stringifyHelpers = map[ast.DataType]string{
	ast.IntType:   "int_to_str",
	ast.FloatType: "float_to_str",
	ast.BoolType:  "bool_to_str",
}

func (b *Builder) toStringValue(e ast.Expr) Value {
	v := b.lowerExpr(e)
	if v.RegType == ast.StringType {
		return v
	}
	helper, ok := stringifyHelpers[v.RegType]
	if !ok {
		b.fail(e.Pos(), "internal error: cannot stringify a %s value", v.RegType)
	}
	dst := b.newRegister(ast.StringType)
	b.emit(e.Pos(), OpCall, dst, LabelRef(helper), v)
	return dst
}

func (b *Builder) lowerStringConcat(n *ast.Binary) Value {
	left := b.toStringValue(n.Left)
	right := b.toStringValue(n.Right)
	dst := b.newRegister(ast.StringType)
	b.emit(n.Position, OpCall, dst, LabelRef("str_concat"), left, right)
	return dst
}

func (b *Builder) lowerUnary(n *ast.Unary) Value {
	x := b.lowerExpr(n.X)
	switch n.Op {
	case token.MINUS:
		var zero Value
		if n.Typ.Kind == ast.FloatType {
			zero = b.lowerFloatLiteral(n.Position, 0)
		} else {
			zero = b.lowerIntLiteral(n.Position, 0)
		}
		dst := b.newRegister(n.Typ.Kind)
		b.emit(n.Position, OpSub, dst, zero, x)
		return dst
	case token.BANG:
		dst := b.newRegister(ast.BoolType)
		b.emit(n.Position, OpNot, dst, x)
		return dst
	default:
		b.fail(n.Position, "internal error: unsupported unary operator %s reached the IR builder", n.Op)
		panic("unreachable")
	}
}

func (b *Builder) lowerTernary(n *ast.Ternary) Value {
	cond := b.lowerExpr(n.Cond)
	elseLabel := b.newLabel("tern_else")
	endLabel := b.newLabel("tern_end")
	dst := b.newRegister(n.Typ.Kind)

	b.emit(n.Position, OpJumpIfNot, LabelRef(elseLabel), cond)
	thenVal := b.coerce(b.lowerExpr(n.Then), n.Typ.Kind, n.Position)
	b.emit(n.Position, OpMove, dst, thenVal)
	b.emit(n.Position, OpJump, LabelRef(endLabel))
	b.emit(n.Position, OpLabel, LabelRef(elseLabel))
	elseVal := b.coerce(b.lowerExpr(n.Else), n.Typ.Kind, n.Position)
	b.emit(n.Position, OpMove, dst, elseVal)
	b.emit(n.Position, OpLabel, LabelRef(endLabel))
	return dst
}

func (b *Builder) lowerCall(n *ast.Call) Value {
	if n.Callee == "print" {
		return b.lowerPrint(n)
	}
	args := make([]Value, len(n.Args))
	for i, arg := range n.Args {
		v := b.lowerExpr(arg)
		if n.Symbol != nil && n.Symbol.Function != nil && i < len(n.Symbol.Function.Params) {
			v = b.coerce(v, n.Symbol.Function.Params[i].DeclaredType.Kind, arg.Pos())
		}
		args[i] = v
	}
	dst := b.newRegister(n.Typ.Kind)
	operands := append([]Value{dst, LabelRef(n.Callee)}, args...)
	b.emit(n.Position, OpCall, operands...)
	return dst
}

func (b *Builder) lowerPrint(n *ast.Call) Value {
	arg := b.lowerExpr(n.Args[0])
	b.emit(n.Position, OpPrint, arg)
	return Value{}
}

func (b *Builder) lowerArrayLiteral(n *ast.ArrayLiteral) Value {
	count := b.lowerIntLiteral(n.Position, int64(len(n.Elems)))
	arr := b.newRegister(ast.ArrayType)
	b.emit(n.Position, OpAlloc, arr, count)
	elemType := ast.Unknown
	if n.Typ.Elem != nil {
		elemType = n.Typ.Elem.Kind
	}
	for i, el := range n.Elems {
		idx := b.lowerIntLiteral(el.Pos(), int64(i))
		val := b.coerce(b.lowerExpr(el), elemType, el.Pos())
		b.emit(el.Pos(), OpStoreElem, arr, idx, val)
	}
	return arr
}

func (b *Builder) lowerArrayAccess(n *ast.ArrayAccess) Value {
	arr := b.lowerExpr(n.Array)
	idx := b.lowerExpr(n.Index)
	dst := b.newRegister(n.Typ.Kind)
	b.emit(n.Position, OpLoadElem, dst, arr, idx)
	return dst
}

// lowerMemberAccess only supports `.length` on a literal operand, for the
// same reason forCollectionStmt only supports literal arrays: nothing in
// the ALLOC/LOAD_ELEM memory model records a length a later phase could
// recover from an arbitrary runtime value (§4.5).
func (b *Builder) lowerMemberAccess(n *ast.MemberAccess) Value {
	if n.Member != "length" {
		b.fail(n.Position, "internal error: unsupported member %q reached the IR builder", n.Member)
	}
	switch x := n.X.(type) {
	case *ast.ArrayLiteral:
		return b.lowerIntLiteral(n.Position, int64(len(x.Elems)))
	case *ast.Literal:
		if x.Kind == ast.StringType {
			return b.lowerIntLiteral(n.Position, int64(len(x.StrVal)))
		}
	}
	b.fail(n.Position, "the length of a value not known until runtime is not supported; arrays and strings must be literals")
	panic("unreachable")
}
