// Package ast defines the tagged-variant AST node types that the parser
// builds and the semantic analyzer annotates.  The teacher has no AST at
// all - it walks a flat token slice straight into stack instructions - so
// this package is grounded instead on the classic Go "interface + marker
// method" sum-type idiom used throughout the retrieval pack's other
// language front-ends (e.g. ast.Node/Statement/Expression in
// codeassociates-occam2go and HugoDaniel-miniray): one concrete struct
// per node kind, no overlapping fields, as required by §9's design notes.
package ast

import (
	"github.com/skx/subc/source"
	"github.com/skx/subc/token"
)

// DataType is the closed set of types named in §3.  Unknown is the zero
// value; a successfully analyzed program never leaves Unknown or Auto on
// any expression node (§4.3, §8).
type DataType int

// The data types named in §3.
const (
	Unknown DataType = iota
	Void
	IntType
	FloatType
	StringType
	BoolType
	ArrayType
	ObjectType
	FunctionType
	NullType
	AutoType
)

// String renders a DataType the way a type-mismatch diagnostic would
// quote it.
func (d DataType) String() string {
	switch d {
	case Void:
		return "void"
	case IntType:
		return "int"
	case FloatType:
		return "float"
	case StringType:
		return "string"
	case BoolType:
		return "bool"
	case ArrayType:
		return "array"
	case ObjectType:
		return "object"
	case FunctionType:
		return "function"
	case NullType:
		return "null"
	case AutoType:
		return "auto"
	default:
		return "unknown"
	}
}

// Type pairs a DataType with the element type of an array, since "array"
// alone is not enough information to type-check indexing or literals.
type Type struct {
	Kind DataType
	Elem *Type // non-nil only when Kind == ArrayType
}

// Numeric reports whether t is int or float.
func (t Type) Numeric() bool { return t.Kind == IntType || t.Kind == FloatType }

// String renders a Type for diagnostics, e.g. "array of int".
func (t Type) String() string {
	if t.Kind == ArrayType && t.Elem != nil {
		return "array of " + t.Elem.String()
	}
	return t.Kind.String()
}

// Equal reports whether two types denote the same thing, including
// matching array element types.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind != ArrayType {
		return true
	}
	if t.Elem == nil || o.Elem == nil {
		return t.Elem == o.Elem
	}
	return t.Elem.Equal(*o.Elem)
}

// Symbol describes a declared name: its type, whether it is a constant,
// and where it lives (a parameter index or a local-slot index, assigned
// by the semantic analyzer and consumed verbatim by the IR builder).
type Symbol struct {
	Name     string
	Type     Type
	Const    bool
	Slot     int // parameter index, or local-slot index
	IsParam  bool
	Function *FunctionDecl // set when Type.Kind == FunctionType
	Pos      source.Position
}

// Node is implemented by every AST node.
type Node interface {
	Pos() source.Position
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is implemented by every expression node.  Every Expr ends the
// semantic pass carrying a concrete Type (§4.3, §8).
type Expr interface {
	Node
	exprNode()
	Type() Type
	SetType(Type)
}

// Program is the root of every AST: the ordered sequence of top-level
// statements (§3).  Top-level statements that are not FunctionDecls form
// the implicit body of the program's entry point; MainLocalSlots is
// filled in by the semantic analyzer exactly as FunctionDecl.LocalSlots
// is, so the IR builder can size that entry point's stack frame.
type Program struct {
	Statements     []Stmt
	MainLocalSlots int
}

// Pos returns the position of the first statement, or line 1 column 1
// for an empty program.
func (p *Program) Pos() source.Position {
	if len(p.Statements) == 0 {
		return source.Position{Line: 1, Col: 1}
	}
	return p.Statements[0].Pos()
}

// Param is one entry in a FunctionDecl's parameter list.
type Param struct {
	Name         string
	DeclaredType Type
	Symbol       *Symbol
}

// VarDecl is `var name [: type] [= init]`.
type VarDecl struct {
	Position     source.Position
	Name         string
	DeclaredType *Type // nil when the type is inferred from Init
	Init         Expr  // nil when there is no initializer
	Symbol       *Symbol
}

func (n *VarDecl) Pos() source.Position { return n.Position }
func (n *VarDecl) stmtNode()            {}

// ConstDecl is `const name [: type] = init`.  Init is never nil (§4.2).
type ConstDecl struct {
	Position     source.Position
	Name         string
	DeclaredType *Type
	Init         Expr
	Symbol       *Symbol
}

func (n *ConstDecl) Pos() source.Position { return n.Position }
func (n *ConstDecl) stmtNode()            {}

// FunctionDecl is a top-level function: name, parameters, return type
// and body.  SB does not support nested function declarations (§3).
type FunctionDecl struct {
	Position   source.Position
	Name       string
	Params     []*Param
	ReturnType Type
	Body       *Block
	Symbol     *Symbol
	LocalSlots int // filled in by the semantic analyzer
}

func (n *FunctionDecl) Pos() source.Position { return n.Position }
func (n *FunctionDecl) stmtNode()            {}

// Block is an ordered statement list that introduces a new lexical
// scope.  Blocks are the only source of new scope (§3, §4.3).
type Block struct {
	Position   source.Position
	Statements []Stmt
}

func (n *Block) Pos() source.Position { return n.Position }
func (n *Block) stmtNode()            {}

// If represents `if cond { ... } elif cond { ... } else { ... }`.  An
// `elif` chain is represented as nesting: Else holds another *If (§3).
type If struct {
	Position source.Position
	Cond     Expr
	Then     *Block
	Else     Stmt // nil, *Block, or *If
}

func (n *If) Pos() source.Position { return n.Position }
func (n *If) stmtNode()            {}

// While represents `while cond { ... }`.
type While struct {
	Position source.Position
	Cond     Expr
	Body     *Block
}

func (n *While) Pos() source.Position { return n.Position }
func (n *While) stmtNode()            {}

// DoWhile represents `do { ... } while cond`; the body runs at least
// once before the condition is first checked (§9).
type DoWhile struct {
	Position source.Position
	Body     *Block
	Cond     Expr
}

func (n *DoWhile) Pos() source.Position { return n.Position }
func (n *DoWhile) stmtNode()            {}

// RangeExpr represents the dedicated `range(n)` / `range(start, end)`
// form recognized only inside a `for ... in ...` head (§4.2).
type RangeExpr struct {
	Position source.Position
	Typ      Type
	Start    Expr // nil when only a count was given: range(n) == range(0, n)
	End      Expr
}

func (n *RangeExpr) Pos() source.Position { return n.Position }
func (n *RangeExpr) exprNode()            {}
func (n *RangeExpr) Type() Type           { return n.Typ }
func (n *RangeExpr) SetType(t Type)       { n.Typ = t }

// For represents `for x in range(...) { ... }` or `for x in collection
// { ... }`.  Exactly one of Range or Collection is non-nil.
type For struct {
	Position   source.Position
	Var        string
	VarSymbol  *Symbol
	Range      *RangeExpr
	Collection Expr
	Body       *Block
}

func (n *For) Pos() source.Position { return n.Position }
func (n *For) stmtNode()            {}

// Return represents `return [expr]`.
type Return struct {
	Position source.Position
	Value    Expr // nil for a bare `return`
}

func (n *Return) Pos() source.Position { return n.Position }
func (n *Return) stmtNode()            {}

// Break represents `break`.
type Break struct{ Position source.Position }

func (n *Break) Pos() source.Position { return n.Position }
func (n *Break) stmtNode()            {}

// Continue represents `continue`.
type Continue struct{ Position source.Position }

func (n *Continue) Pos() source.Position { return n.Position }
func (n *Continue) stmtNode()            {}

// ExprStmt wraps a bare expression used as a statement (a call, usually).
type ExprStmt struct {
	Position source.Position
	X        Expr
}

func (n *ExprStmt) Pos() source.Position { return n.Position }
func (n *ExprStmt) stmtNode()            {}

// Assign represents `target = value`, where target is an Identifier or
// an ArrayAccess (§3).
type Assign struct {
	Position source.Position
	Target   Expr
	Value    Expr
}

func (n *Assign) Pos() source.Position { return n.Position }
func (n *Assign) stmtNode()            {}

// Identifier is a reference to a declared name.  Symbol is filled in by
// the semantic analyzer during name resolution.
type Identifier struct {
	Position source.Position
	Typ      Type
	Name     string
	Symbol   *Symbol
}

func (n *Identifier) Pos() source.Position { return n.Position }
func (n *Identifier) exprNode()            {}
func (n *Identifier) Type() Type           { return n.Typ }
func (n *Identifier) SetType(t Type)       { n.Typ = t }

// Literal is an int, float, string, bool or null literal.
type Literal struct {
	Position source.Position
	Typ      Type
	Kind     DataType
	IntVal   int64
	FloatVal float64
	StrVal   string
	BoolVal  bool
}

func (n *Literal) Pos() source.Position { return n.Position }
func (n *Literal) exprNode()            {}
func (n *Literal) Type() Type           { return n.Typ }
func (n *Literal) SetType(t Type)       { n.Typ = t }

// ArrayLiteral is `[e1, e2, ...]`.
type ArrayLiteral struct {
	Position source.Position
	Typ      Type
	Elems    []Expr
}

func (n *ArrayLiteral) Pos() source.Position { return n.Position }
func (n *ArrayLiteral) exprNode()            {}
func (n *ArrayLiteral) Type() Type           { return n.Typ }
func (n *ArrayLiteral) SetType(t Type)       { n.Typ = t }

// ArrayAccess is `a[i]`.
type ArrayAccess struct {
	Position source.Position
	Typ      Type
	Array    Expr
	Index    Expr
}

func (n *ArrayAccess) Pos() source.Position { return n.Position }
func (n *ArrayAccess) exprNode()            {}
func (n *ArrayAccess) Type() Type           { return n.Typ }
func (n *ArrayAccess) SetType(t Type)       { n.Typ = t }

// MemberAccess is `a.b`.  Member access beyond the built-in `.length`
// accessor is not exercised by the surface grammar in v1 (§9 - struct
// types are out of scope), but the node exists so the grammar's
// postfix-access production has somewhere to live.
type MemberAccess struct {
	Position source.Position
	Typ      Type
	X        Expr
	Member   string
}

func (n *MemberAccess) Pos() source.Position { return n.Position }
func (n *MemberAccess) exprNode()            {}
func (n *MemberAccess) Type() Type           { return n.Typ }
func (n *MemberAccess) SetType(t Type)       { n.Typ = t }

// Binary is a binary operator expression: arithmetic, comparison or
// logical (§3, §4.2).
type Binary struct {
	Position source.Position
	Typ      Type
	Op       token.Kind
	Left     Expr
	Right    Expr
}

func (n *Binary) Pos() source.Position { return n.Position }
func (n *Binary) exprNode()            {}
func (n *Binary) Type() Type           { return n.Typ }
func (n *Binary) SetType(t Type)       { n.Typ = t }

// Unary is a unary operator expression: `-x`, `!x`/`not x` (§4.2).
type Unary struct {
	Position source.Position
	Typ      Type
	Op       token.Kind
	X        Expr
}

func (n *Unary) Pos() source.Position { return n.Position }
func (n *Unary) exprNode()            {}
func (n *Unary) Type() Type           { return n.Typ }
func (n *Unary) SetType(t Type)       { n.Typ = t }

// Ternary is `cond ? then : else` (§4.2).
type Ternary struct {
	Position source.Position
	Typ      Type
	Cond     Expr
	Then     Expr
	Else     Expr
}

func (n *Ternary) Pos() source.Position { return n.Position }
func (n *Ternary) exprNode()            {}
func (n *Ternary) Type() Type           { return n.Typ }
func (n *Ternary) SetType(t Type)       { n.Typ = t }

// Call is `callee(args...)`.  Callee is resolved to a FunctionDecl by
// the semantic analyzer; SB has no first-class function values beyond
// calling a declared name (§3).
type Call struct {
	Position source.Position
	Typ      Type
	Callee   string
	Args     []Expr
	Symbol   *Symbol
}

func (n *Call) Pos() source.Position { return n.Position }
func (n *Call) exprNode()            {}
func (n *Call) Type() Type           { return n.Typ }
func (n *Call) SetType(t Type)       { n.Typ = t }

// Ensure every node satisfies its interface; this also documents the
// full closed set of node kinds in one place.
var (
	_ Stmt = (*VarDecl)(nil)
	_ Stmt = (*ConstDecl)(nil)
	_ Stmt = (*FunctionDecl)(nil)
	_ Stmt = (*Block)(nil)
	_ Stmt = (*If)(nil)
	_ Stmt = (*While)(nil)
	_ Stmt = (*DoWhile)(nil)
	_ Stmt = (*For)(nil)
	_ Stmt = (*Return)(nil)
	_ Stmt = (*Break)(nil)
	_ Stmt = (*Continue)(nil)
	_ Stmt = (*ExprStmt)(nil)
	_ Stmt = (*Assign)(nil)

	_ Expr = (*Identifier)(nil)
	_ Expr = (*Literal)(nil)
	_ Expr = (*ArrayLiteral)(nil)
	_ Expr = (*ArrayAccess)(nil)
	_ Expr = (*MemberAccess)(nil)
	_ Expr = (*RangeExpr)(nil)
	_ Expr = (*Binary)(nil)
	_ Expr = (*Unary)(nil)
	_ Expr = (*Ternary)(nil)
	_ Expr = (*Call)(nil)
)
