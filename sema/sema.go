// Package sema walks a Program AST, builds lexical scopes, resolves
// every identifier and call to its declaration, and infers a concrete
// DataType for every expression node (§4.3).  The teacher folds this
// work into `compiler.tokenize`'s ad hoc structural checks (must start
// with a number, must not end with one); this package generalizes that
// "walk once, validate, annotate" shape to full lexical scoping and a
// real type system.
package sema

import (
	"github.com/skx/subc/ast"
	"github.com/skx/subc/diag"
	"github.com/skx/subc/source"
	"github.com/skx/subc/token"
)

// scope is a single lexical level: a name-to-symbol map plus a link to
// the enclosing scope.  Scopes form a stack; lookup walks from innermost
// to outermost (§4.3).
type scope struct {
	parent  *scope
	symbols map[string]*ast.Symbol
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, symbols: make(map[string]*ast.Symbol)}
}

// define inserts sym into the scope, reporting false if the name is
// already bound in this same scope (redeclaration is an error; shadowing
// an outer scope is not - §4.3).
func (s *scope) define(sym *ast.Symbol) bool {
	if _, exists := s.symbols[sym.Name]; exists {
		return false
	}
	s.symbols[sym.Name] = sym
	return true
}

func (s *scope) resolve(name string) (*ast.Symbol, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// Analyzer holds our object-state while a single Program is being
// checked.  A fresh Analyzer is created per compilation (§5 - no state
// is shared across files).
type Analyzer struct {
	sink *diag.Sink

	scope *scope

	currentFn *ast.FunctionDecl // nil only never - top level uses a synthetic entry-point FunctionDecl
	localSlot int               // next free local slot in the function/entry-point currently being walked
	loopDepth int
}

// New creates an Analyzer reporting diagnostics to sink.
func New(sink *diag.Sink) *Analyzer {
	return &Analyzer{sink: sink}
}

// Analyze walks prog, annotating every node in place.  Top-level
// statements that are not FunctionDecls are checked as the body of an
// implicit entry point, whose required local-slot count is recorded on
// prog.MainLocalSlots for the IR builder (§3's "entry-point function
// name = main").
func (a *Analyzer) Analyze(prog *ast.Program) {
	a.scope = newScope(nil)
	a.registerFunctions(prog)

	entryPoint := &ast.FunctionDecl{Name: "main", ReturnType: ast.Type{Kind: ast.Void}}
	a.currentFn = entryPoint
	a.localSlot = 0
	a.pushScope()
	for _, stmt := range prog.Statements {
		if _, ok := stmt.(*ast.FunctionDecl); ok {
			continue
		}
		a.stmt(stmt)
	}
	a.popScope()
	prog.MainLocalSlots = a.localSlot
	a.currentFn = nil

	for _, stmt := range prog.Statements {
		if fn, ok := stmt.(*ast.FunctionDecl); ok {
			a.analyzeFunction(fn)
		}
	}
}

// registerFunctions binds every top-level function name before any body
// is walked, so forward references and mutual recursion resolve (§4.3
// describes call resolution but not ordering; two-pass registration is
// the natural reading of "callee must resolve to a FunctionDecl").
func (a *Analyzer) registerFunctions(prog *ast.Program) {
	for _, stmt := range prog.Statements {
		fn, ok := stmt.(*ast.FunctionDecl)
		if !ok {
			continue
		}
		sym := &ast.Symbol{Name: fn.Name, Type: ast.Type{Kind: ast.FunctionType}, Function: fn, Pos: fn.Position}
		if !a.scope.define(sym) {
			a.sink.Errorf(fn.Position, "function %q is already declared", fn.Name)
			continue
		}
		fn.Symbol = sym
	}
}

func (a *Analyzer) analyzeFunction(fn *ast.FunctionDecl) {
	prevFn, prevSlot, prevLoop := a.currentFn, a.localSlot, a.loopDepth
	a.currentFn, a.localSlot, a.loopDepth = fn, 0, 0

	// Parameters occupy the same local-slot address space as ordinary
	// locals - the first len(Params) slots - since the emitter moves
	// every argument register into its slot before the body runs and
	// addresses both uniformly thereafter (§4.5). IsParam only marks
	// "needs that initial register-to-slot move," not a distinct
	// numbering.
	a.pushScope() // parameter scope (§4.3: "a fresh scope that contains parameter bindings")
	for _, param := range fn.Params {
		sym := &ast.Symbol{Name: param.Name, Type: param.DeclaredType, IsParam: true, Slot: a.nextLocalSlot(), Pos: fn.Position}
		if !a.scope.define(sym) {
			a.sink.Errorf(fn.Position, "duplicate parameter %q in function %q", param.Name, fn.Name)
		}
		param.Symbol = sym
	}

	a.block(fn.Body) // the body Block pushes one more scope on top (§4.3)

	a.popScope()
	fn.LocalSlots = a.localSlot

	a.currentFn, a.localSlot, a.loopDepth = prevFn, prevSlot, prevLoop
}

func (a *Analyzer) pushScope() { a.scope = newScope(a.scope) }
func (a *Analyzer) popScope()  { a.scope = a.scope.parent }

func (a *Analyzer) nextLocalSlot() int {
	slot := a.localSlot
	a.localSlot++
	return slot
}

func (a *Analyzer) block(b *ast.Block) {
	a.pushScope()
	for _, s := range b.Statements {
		a.stmt(s)
	}
	a.popScope()
}

// --- statements -----------------------------------------------------------

func (a *Analyzer) stmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.VarDecl:
		a.varDecl(n)
	case *ast.ConstDecl:
		a.constDecl(n)
	case *ast.FunctionDecl:
		a.sink.Errorf(n.Position, "nested function declarations are not supported")
	case *ast.Block:
		a.block(n)
	case *ast.If:
		a.ifStmt(n)
	case *ast.While:
		a.whileStmt(n)
	case *ast.DoWhile:
		a.doWhileStmt(n)
	case *ast.For:
		a.forStmt(n)
	case *ast.Return:
		a.returnStmt(n)
	case *ast.Break:
		if a.loopDepth == 0 {
			a.sink.Errorf(n.Position, "break outside of a loop")
		}
	case *ast.Continue:
		if a.loopDepth == 0 {
			a.sink.Errorf(n.Position, "continue outside of a loop")
		}
	case *ast.ExprStmt:
		a.expr(n.X)
	case *ast.Assign:
		a.assignStmt(n)
	default:
		a.sink.Errorf(s.Pos(), "internal error: unhandled statement %T", s)
	}
}

func (a *Analyzer) declareLocal(name string, t ast.Type, isConst bool, pos source.Position) *ast.Symbol {
	sym := &ast.Symbol{Name: name, Type: t, Const: isConst, Slot: a.nextLocalSlot(), Pos: pos}
	if !a.scope.define(sym) {
		a.sink.Errorf(pos, "%q is already declared in this scope", name)
	}
	return sym
}

func (a *Analyzer) varDecl(n *ast.VarDecl) {
	var initType ast.Type
	if n.Init != nil {
		initType = a.expr(n.Init)
	}

	declType := initType
	switch {
	case n.DeclaredType != nil:
		declType = *n.DeclaredType
		if n.Init != nil && initType.Kind != ast.Unknown && !assignable(declType, initType) {
			a.sink.Errorf(n.Position, "cannot initialize %q of type %s with value of type %s", n.Name, declType, initType)
		}
	case n.Init == nil:
		a.sink.Errorf(n.Position, "%q needs either a declared type or an initializer", n.Name)
		declType = ast.Type{Kind: ast.Unknown}
	}

	n.Symbol = a.declareLocal(n.Name, declType, false, n.Position)
}

func (a *Analyzer) constDecl(n *ast.ConstDecl) {
	if n.Init == nil {
		return // parser already reported the missing initializer
	}
	initType := a.expr(n.Init)

	declType := initType
	if n.DeclaredType != nil {
		declType = *n.DeclaredType
		if initType.Kind != ast.Unknown && !assignable(declType, initType) {
			a.sink.Errorf(n.Position, "cannot initialize %q of type %s with value of type %s", n.Name, declType, initType)
		}
	}

	n.Symbol = a.declareLocal(n.Name, declType, true, n.Position)
}

func (a *Analyzer) ifStmt(n *ast.If) {
	a.requireBool(n.Cond, "if condition")
	a.block(n.Then)
	switch e := n.Else.(type) {
	case nil:
	case *ast.If:
		a.ifStmt(e)
	case *ast.Block:
		a.block(e)
	}
}

func (a *Analyzer) whileStmt(n *ast.While) {
	a.requireBool(n.Cond, "while condition")
	a.loopDepth++
	a.block(n.Body)
	a.loopDepth--
}

func (a *Analyzer) doWhileStmt(n *ast.DoWhile) {
	a.loopDepth++
	a.block(n.Body)
	a.loopDepth--
	a.requireBool(n.Cond, "do-while condition")
}

// forStmt checks either a RangeExpr head or a collection expression, and
// binds the induction variable in a scope that covers the whole
// statement - the narrowest reading of "Blocks are the only source of
// new lexical scope" (§3) that still keeps the induction variable out
// of the enclosing scope (For itself is not a Block; only its Body is).
func (a *Analyzer) forStmt(n *ast.For) {
	a.pushScope()
	defer a.popScope()

	var elemType ast.Type
	switch {
	case n.Range != nil:
		if n.Range.Start != nil {
			if st := a.expr(n.Range.Start); st.Kind != ast.IntType && st.Kind != ast.Unknown {
				a.sink.Errorf(n.Range.Start.Pos(), "range start must be int, found %s", st)
			}
		}
		if et := a.expr(n.Range.End); et.Kind != ast.IntType && et.Kind != ast.Unknown {
			a.sink.Errorf(n.Range.End.Pos(), "range end must be int, found %s", et)
		}
		n.Range.Typ = ast.Type{Kind: ast.IntType}
		elemType = ast.Type{Kind: ast.IntType}

	case n.Collection != nil:
		collType := a.expr(n.Collection)
		switch {
		case collType.Kind == ast.ArrayType && collType.Elem != nil:
			elemType = *collType.Elem
		case collType.Kind == ast.Unknown:
			elemType = ast.Type{Kind: ast.Unknown}
		default:
			a.sink.Errorf(n.Collection.Pos(), "for-in requires an array, found %s", collType)
			elemType = ast.Type{Kind: ast.Unknown}
		}
	}

	n.VarSymbol = &ast.Symbol{Name: n.Var, Type: elemType, Slot: a.nextLocalSlot(), Pos: n.Position}
	if !a.scope.define(n.VarSymbol) {
		a.sink.Errorf(n.Position, "%q is already declared in this scope", n.Var)
	}

	a.loopDepth++
	for _, s := range n.Body.Statements {
		a.stmt(s)
	}
	a.loopDepth--
}

func (a *Analyzer) returnStmt(n *ast.Return) {
	wantType := ast.Type{Kind: ast.Void}
	if a.currentFn != nil {
		wantType = a.currentFn.ReturnType
	}

	gotType := ast.Type{Kind: ast.Void}
	if n.Value != nil {
		gotType = a.expr(n.Value)
	}

	if gotType.Kind != ast.Unknown && wantType.Kind != ast.Unknown && !assignable(wantType, gotType) {
		a.sink.Errorf(n.Position, "return type mismatch: function returns %s, found %s", wantType, gotType)
	}
}

func (a *Analyzer) assignStmt(n *ast.Assign) {
	targetType := a.expr(n.Target)
	valueType := a.expr(n.Value)

	switch t := n.Target.(type) {
	case *ast.Identifier:
		if t.Symbol != nil && t.Symbol.Const {
			a.sink.Errorf(n.Position, "cannot assign to constant %q", t.Symbol.Name)
		}
	case *ast.ArrayAccess:
		// array elements are never const.
	default:
		a.sink.Errorf(n.Position, "invalid assignment target")
	}

	if targetType.Kind != ast.Unknown && valueType.Kind != ast.Unknown && !assignable(targetType, valueType) {
		a.sink.Errorf(n.Position, "cannot assign value of type %s to target of type %s", valueType, targetType)
	}
}

func (a *Analyzer) requireBool(e ast.Expr, what string) {
	if t := a.expr(e); t.Kind != ast.BoolType && t.Kind != ast.Unknown {
		a.sink.Errorf(e.Pos(), "%s must be bool, found %s", what, t)
	}
}

// --- expressions ------------------------------------------------------------

// expr infers e's type, annotates e with it, and returns it.  Every
// expression passes through here exactly once (§8's "every expression
// node ... has a concrete DataType" property).
func (a *Analyzer) expr(e ast.Expr) ast.Type {
	t := a.inferExpr(e)
	e.SetType(t)
	return t
}

func (a *Analyzer) inferExpr(e ast.Expr) ast.Type {
	switch n := e.(type) {
	case *ast.Literal:
		return ast.Type{Kind: n.Kind}
	case *ast.Identifier:
		return a.identifierType(n)
	case *ast.ArrayLiteral:
		return a.arrayLiteralType(n)
	case *ast.ArrayAccess:
		return a.arrayAccessType(n)
	case *ast.MemberAccess:
		return a.memberAccessType(n)
	case *ast.Binary:
		return a.binaryType(n)
	case *ast.Unary:
		return a.unaryType(n)
	case *ast.Ternary:
		return a.ternaryType(n)
	case *ast.Call:
		return a.callType(n)
	case *ast.RangeExpr:
		return ast.Type{Kind: ast.IntType}
	default:
		a.sink.Errorf(e.Pos(), "internal error: unhandled expression %T", e)
		return ast.Type{Kind: ast.Unknown}
	}
}

func (a *Analyzer) identifierType(n *ast.Identifier) ast.Type {
	sym, ok := a.scope.resolve(n.Name)
	if !ok {
		a.sink.Errorf(n.Position, "undeclared identifier %q", n.Name)
		return ast.Type{Kind: ast.Unknown}
	}
	n.Symbol = sym
	return sym.Type
}

func (a *Analyzer) arrayLiteralType(n *ast.ArrayLiteral) ast.Type {
	if len(n.Elems) == 0 {
		unknown := ast.Type{Kind: ast.Unknown}
		return ast.Type{Kind: ast.ArrayType, Elem: &unknown}
	}

	elemType := a.expr(n.Elems[0])
	for _, el := range n.Elems[1:] {
		elemType = a.widen(elemType, a.expr(el), el.Pos())
	}
	et := elemType
	return ast.Type{Kind: ast.ArrayType, Elem: &et}
}

func (a *Analyzer) arrayAccessType(n *ast.ArrayAccess) ast.Type {
	arrType := a.expr(n.Array)
	if idxType := a.expr(n.Index); idxType.Kind != ast.IntType && idxType.Kind != ast.Unknown {
		a.sink.Errorf(n.Index.Pos(), "array index must be int, found %s", idxType)
	}

	switch arrType.Kind {
	case ast.ArrayType:
		if arrType.Elem != nil {
			return *arrType.Elem
		}
		return ast.Type{Kind: ast.Unknown}
	case ast.StringType:
		return ast.Type{Kind: ast.StringType}
	case ast.Unknown:
		return ast.Type{Kind: ast.Unknown}
	default:
		a.sink.Errorf(n.Array.Pos(), "cannot index into %s", arrType)
		return ast.Type{Kind: ast.Unknown}
	}
}

// memberAccessType supports only the built-in `.length` accessor; SB has
// no user-defined struct member access in v1 (§9).
func (a *Analyzer) memberAccessType(n *ast.MemberAccess) ast.Type {
	recvType := a.expr(n.X)
	if n.Member != "length" {
		a.sink.Errorf(n.Position, "unknown member %q", n.Member)
		return ast.Type{Kind: ast.Unknown}
	}
	switch recvType.Kind {
	case ast.ArrayType, ast.StringType, ast.Unknown:
		return ast.Type{Kind: ast.IntType}
	default:
		a.sink.Errorf(n.X.Pos(), "%s has no member %q", recvType, n.Member)
		return ast.Type{Kind: ast.Unknown}
	}
}

func (a *Analyzer) binaryType(n *ast.Binary) ast.Type {
	lt := a.expr(n.Left)
	rt := a.expr(n.Right)

	switch n.Op {
	case token.PLUS:
		if lt.Kind == ast.StringType || rt.Kind == ast.StringType {
			return ast.Type{Kind: ast.StringType}
		}
		return a.numericBinary(n, lt, rt)
	case token.MINUS, token.STAR, token.SLASH, token.PERCENT:
		return a.numericBinary(n, lt, rt)
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE:
		if lt.Kind != ast.Unknown && rt.Kind != ast.Unknown && !comparable(lt, rt) {
			a.sink.Errorf(n.Position, "cannot compare %s and %s", lt, rt)
		}
		return ast.Type{Kind: ast.BoolType}
	case token.ANDAND, token.OROR:
		if lt.Kind != ast.BoolType && lt.Kind != ast.Unknown {
			a.sink.Errorf(n.Left.Pos(), "logical operator requires bool, found %s", lt)
		}
		if rt.Kind != ast.BoolType && rt.Kind != ast.Unknown {
			a.sink.Errorf(n.Right.Pos(), "logical operator requires bool, found %s", rt)
		}
		return ast.Type{Kind: ast.BoolType}
	default:
		a.sink.Errorf(n.Position, "internal error: unhandled binary operator %s", n.Op)
		return ast.Type{Kind: ast.Unknown}
	}
}

func (a *Analyzer) numericBinary(n *ast.Binary, lt, rt ast.Type) ast.Type {
	if lt.Kind == ast.Unknown || rt.Kind == ast.Unknown {
		return ast.Type{Kind: ast.Unknown}
	}
	if !lt.Numeric() || !rt.Numeric() {
		a.sink.Errorf(n.Position, "operator %s requires numeric operands, found %s and %s", n.Op, lt, rt)
		return ast.Type{Kind: ast.Unknown}
	}
	if lt.Kind == ast.FloatType || rt.Kind == ast.FloatType {
		return ast.Type{Kind: ast.FloatType}
	}
	return ast.Type{Kind: ast.IntType}
}

func comparable(a, b ast.Type) bool {
	if a.Numeric() && b.Numeric() {
		return true
	}
	return a.Kind == ast.StringType && b.Kind == ast.StringType
}

func (a *Analyzer) unaryType(n *ast.Unary) ast.Type {
	xt := a.expr(n.X)
	switch n.Op {
	case token.MINUS:
		if xt.Kind != ast.Unknown && !xt.Numeric() {
			a.sink.Errorf(n.Position, "unary - requires a numeric operand, found %s", xt)
			return ast.Type{Kind: ast.Unknown}
		}
		return xt
	case token.BANG:
		if xt.Kind != ast.Unknown && xt.Kind != ast.BoolType {
			a.sink.Errorf(n.Position, "unary ! requires a bool operand, found %s", xt)
			return ast.Type{Kind: ast.Unknown}
		}
		return ast.Type{Kind: ast.BoolType}
	default:
		a.sink.Errorf(n.Position, "internal error: unhandled unary operator %s", n.Op)
		return ast.Type{Kind: ast.Unknown}
	}
}

func (a *Analyzer) ternaryType(n *ast.Ternary) ast.Type {
	a.requireBool(n.Cond, "ternary condition")
	thenType := a.expr(n.Then)
	elseType := a.expr(n.Else)

	if thenType.Kind == ast.Unknown || elseType.Kind == ast.Unknown {
		return ast.Type{Kind: ast.Unknown}
	}
	if thenType.Equal(elseType) {
		return thenType
	}
	if thenType.Kind == ast.IntType && elseType.Kind == ast.FloatType {
		return elseType
	}
	if thenType.Kind == ast.FloatType && elseType.Kind == ast.IntType {
		return thenType
	}
	a.sink.Errorf(n.Position, "ternary branches must have the same type, found %s and %s", thenType, elseType)
	return thenType
}

func (a *Analyzer) callType(n *ast.Call) ast.Type {
	if n.Callee == "print" {
		return a.printCallType(n)
	}

	sym, ok := a.scope.resolve(n.Callee)
	if !ok || sym.Function == nil {
		a.sink.Errorf(n.Position, "undeclared function %q", n.Callee)
		for _, arg := range n.Args {
			a.expr(arg)
		}
		return ast.Type{Kind: ast.Unknown}
	}
	n.Symbol = sym
	fn := sym.Function

	if len(n.Args) != len(fn.Params) {
		a.sink.Errorf(n.Position, "%q expects %d argument(s), found %d", n.Callee, len(fn.Params), len(n.Args))
	}
	for i, arg := range n.Args {
		argType := a.expr(arg)
		if i >= len(fn.Params) {
			continue
		}
		if paramType := fn.Params[i].DeclaredType; argType.Kind != ast.Unknown && !assignable(paramType, argType) {
			a.sink.Errorf(arg.Pos(), "argument %d of %q: expected %s, found %s", i+1, n.Callee, paramType, argType)
		}
	}
	return fn.ReturnType
}

// printCallType handles the one true builtin: print never resolves
// through the function symbol table (§4.4's "Print (the built-in
// `print`)").
func (a *Analyzer) printCallType(n *ast.Call) ast.Type {
	if len(n.Args) != 1 {
		a.sink.Errorf(n.Position, "print expects exactly 1 argument, found %d", len(n.Args))
	}
	for _, arg := range n.Args {
		a.expr(arg)
	}
	return ast.Type{Kind: ast.Void}
}

// assignable reports whether a value of type `value` may be stored into
// (or returned/passed as) a target of type `target`, allowing the
// int-to-float widening used throughout §4.3's type rules.
func assignable(target, value ast.Type) bool {
	if target.Equal(value) {
		return true
	}
	return target.Kind == ast.FloatType && value.Kind == ast.IntType
}

// widen is assignable's symmetric cousin, used where neither side is
// privileged as "the target" (array literal element types, §4.3).
func (a *Analyzer) widen(t1, t2 ast.Type, pos source.Position) ast.Type {
	if t1.Equal(t2) {
		return t1
	}
	if t1.Kind == ast.IntType && t2.Kind == ast.FloatType {
		return t2
	}
	if t1.Kind == ast.FloatType && t2.Kind == ast.IntType {
		return t1
	}
	a.sink.Errorf(pos, "array literal elements must share a type, found %s and %s", t1, t2)
	return t1
}
