package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skx/subc/ast"
	"github.com/skx/subc/diag"
	"github.com/skx/subc/lexer"
	"github.com/skx/subc/source"
	"github.com/skx/subc/token"
)

func parseSource(t *testing.T, src string) (*ast.Program, *diag.Sink) {
	t.Helper()
	sink := diag.NewSink("test.sb")
	buf := source.New("test.sb", []byte(src))
	toks := lexer.New(buf, sink).Lex()
	prog := New(toks, sink).Parse()
	return prog, sink
}

func TestParseVarDecl(t *testing.T) {
	prog, sink := parseSource(t, "var total: int = 1 + 2\n")
	require.False(t, sink.HasErrors())
	require.Len(t, prog.Statements, 1)

	decl, ok := prog.Statements[0].(*ast.VarDecl)
	require.True(t, ok)
	assert.Equal(t, "total", decl.Name)
	require.NotNil(t, decl.DeclaredType)
	assert.Equal(t, ast.IntType, decl.DeclaredType.Kind)
	require.NotNil(t, decl.Init)

	bin, ok := decl.Init.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, token.PLUS, bin.Op)
}

func TestParseConstDeclRequiresInit(t *testing.T) {
	_, sink := parseSource(t, "const pi\n")
	assert.True(t, sink.HasErrors())
}

func TestParseFunctionDeclWithParams(t *testing.T) {
	prog, sink := parseSource(t, "function add(a: int, b: int): int { return a + b } end\n")
	require.False(t, sink.HasErrors())
	require.Len(t, prog.Statements, 1)

	fn, ok := prog.Statements[0].(*ast.FunctionDecl)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, ast.IntType, fn.Params[0].DeclaredType.Kind)
	assert.Equal(t, ast.IntType, fn.ReturnType.Kind)
	require.Len(t, fn.Body.Statements, 1)

	ret, ok := fn.Body.Statements[0].(*ast.Return)
	require.True(t, ok)
	require.NotNil(t, ret.Value)
}

func TestParseIfElifElse(t *testing.T) {
	prog, sink := parseSource(t, `
if x == 1 {
  y = 1
} elif x == 2 {
  y = 2
} else {
  y = 3
}
`)
	require.False(t, sink.HasErrors())
	require.Len(t, prog.Statements, 1)

	outer, ok := prog.Statements[0].(*ast.If)
	require.True(t, ok)

	elif, ok := outer.Else.(*ast.If)
	require.True(t, ok, "expected nested elif *ast.If, got %T", outer.Else)

	elseBlock, ok := elif.Else.(*ast.Block)
	require.True(t, ok, "expected trailing else *ast.Block, got %T", elif.Else)
	require.Len(t, elseBlock.Statements, 1)
}

func TestParseBraceLessIfEnd(t *testing.T) {
	prog, sink := parseSource(t, "if x\n  y = 1\nend\n")
	require.False(t, sink.HasErrors())
	require.Len(t, prog.Statements, 1)

	ifStmt, ok := prog.Statements[0].(*ast.If)
	require.True(t, ok)
	assert.Nil(t, ifStmt.Else)
	require.Len(t, ifStmt.Then.Statements, 1)
}

func TestParseWhileLoop(t *testing.T) {
	prog, sink := parseSource(t, "while x < 10 { x = x + 1 } end\n")
	require.False(t, sink.HasErrors())
	w, ok := prog.Statements[0].(*ast.While)
	require.True(t, ok)
	require.Len(t, w.Body.Statements, 1)
}

func TestParseDoWhileLoop(t *testing.T) {
	prog, sink := parseSource(t, "do { x = x + 1 } while x < 10\n")
	require.False(t, sink.HasErrors())
	dw, ok := prog.Statements[0].(*ast.DoWhile)
	require.True(t, ok)
	require.Len(t, dw.Body.Statements, 1)
	require.NotNil(t, dw.Cond)
}

func TestParseForWithRange(t *testing.T) {
	prog, sink := parseSource(t, "for i in range(10) { x = i } end\n")
	require.False(t, sink.HasErrors())

	f, ok := prog.Statements[0].(*ast.For)
	require.True(t, ok)
	assert.Equal(t, "i", f.Var)
	require.NotNil(t, f.Range)
	assert.Nil(t, f.Range.Start)
	require.NotNil(t, f.Range.End)
	assert.Nil(t, f.Collection)
}

func TestParseForWithRangeStartEnd(t *testing.T) {
	prog, sink := parseSource(t, "for i in range(1, 10) { x = i } end\n")
	require.False(t, sink.HasErrors())

	f, ok := prog.Statements[0].(*ast.For)
	require.True(t, ok)
	require.NotNil(t, f.Range)
	require.NotNil(t, f.Range.Start)
	require.NotNil(t, f.Range.End)
}

func TestParseForOverCollection(t *testing.T) {
	prog, sink := parseSource(t, "for v in items { x = v } end\n")
	require.False(t, sink.HasErrors())

	f, ok := prog.Statements[0].(*ast.For)
	require.True(t, ok)
	assert.Nil(t, f.Range)
	require.NotNil(t, f.Collection)
	ident, ok := f.Collection.(*ast.Identifier)
	require.True(t, ok)
	assert.Equal(t, "items", ident.Name)
}

func TestParseAssignment(t *testing.T) {
	prog, sink := parseSource(t, "x = 5\n")
	require.False(t, sink.HasErrors())
	asn, ok := prog.Statements[0].(*ast.Assign)
	require.True(t, ok)
	assert.Equal(t, "x", asn.Target.(*ast.Identifier).Name)
}

func TestParseAssignmentToArrayElement(t *testing.T) {
	prog, sink := parseSource(t, "a[0] = 5\n")
	require.False(t, sink.HasErrors())
	asn, ok := prog.Statements[0].(*ast.Assign)
	require.True(t, ok)
	_, ok = asn.Target.(*ast.ArrayAccess)
	require.True(t, ok)
}

func TestParseInvalidAssignmentTargetReportsError(t *testing.T) {
	_, sink := parseSource(t, "1 = 5\n")
	assert.True(t, sink.HasErrors())
}

func TestParseExpressionPrecedence(t *testing.T) {
	prog, sink := parseSource(t, "1 + 2 * 3\n")
	require.False(t, sink.HasErrors())
	stmt, ok := prog.Statements[0].(*ast.ExprStmt)
	require.True(t, ok)

	top, ok := stmt.X.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, token.PLUS, top.Op)

	right, ok := top.Right.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, token.STAR, right.Op)
}

func TestParseLogicalWordFormsNormalized(t *testing.T) {
	prog, sink := parseSource(t, "a and b or not c\n")
	require.False(t, sink.HasErrors())
	stmt := prog.Statements[0].(*ast.ExprStmt)

	top, ok := stmt.X.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, token.OROR, top.Op)

	left, ok := top.Left.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, token.ANDAND, left.Op)

	right, ok := top.Right.(*ast.Unary)
	require.True(t, ok)
	assert.Equal(t, token.BANG, right.Op)
}

func TestParseTernary(t *testing.T) {
	prog, sink := parseSource(t, "x > 0 ? 1 : -1\n")
	require.False(t, sink.HasErrors())
	stmt := prog.Statements[0].(*ast.ExprStmt)
	tern, ok := stmt.X.(*ast.Ternary)
	require.True(t, ok)
	require.NotNil(t, tern.Cond)
	require.NotNil(t, tern.Then)
	require.NotNil(t, tern.Else)
}

func TestParseUnaryMinusIsSeparateFromBinaryMinus(t *testing.T) {
	// Unlike the teacher's lexer (which fuses "-3" into one token), the
	// parser alone decides whether a leading '-' is unary.
	prog, sink := parseSource(t, "-3\n")
	require.False(t, sink.HasErrors())
	stmt := prog.Statements[0].(*ast.ExprStmt)
	un, ok := stmt.X.(*ast.Unary)
	require.True(t, ok)
	assert.Equal(t, token.MINUS, un.Op)
	lit, ok := un.X.(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, int64(3), lit.IntVal)
}

func TestParseCallExpression(t *testing.T) {
	prog, sink := parseSource(t, "add(1, 2)\n")
	require.False(t, sink.HasErrors())
	stmt := prog.Statements[0].(*ast.ExprStmt)
	call, ok := stmt.X.(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "add", call.Callee)
	require.Len(t, call.Args, 2)
}

func TestParseArrayLiteralAndAccess(t *testing.T) {
	prog, sink := parseSource(t, "x = [1, 2, 3][0]\n")
	require.False(t, sink.HasErrors())
	asn := prog.Statements[0].(*ast.Assign)
	access, ok := asn.Value.(*ast.ArrayAccess)
	require.True(t, ok)
	lit, ok := access.Array.(*ast.ArrayLiteral)
	require.True(t, ok)
	assert.Len(t, lit.Elems, 3)
}

func TestParseMemberAccess(t *testing.T) {
	prog, sink := parseSource(t, "x = a.length\n")
	require.False(t, sink.HasErrors())
	asn := prog.Statements[0].(*ast.Assign)
	member, ok := asn.Value.(*ast.MemberAccess)
	require.True(t, ok)
	assert.Equal(t, "length", member.Member)
}

func TestParseBreakAndContinue(t *testing.T) {
	prog, sink := parseSource(t, "while true { break } end\nwhile true { continue } end\n")
	require.False(t, sink.HasErrors())

	w1 := prog.Statements[0].(*ast.While)
	_, ok := w1.Body.Statements[0].(*ast.Break)
	require.True(t, ok)

	w2 := prog.Statements[1].(*ast.While)
	_, ok = w2.Body.Statements[0].(*ast.Continue)
	require.True(t, ok)
}

func TestParseBareReturn(t *testing.T) {
	prog, sink := parseSource(t, "function f() { return } end\n")
	require.False(t, sink.HasErrors())
	fn := prog.Statements[0].(*ast.FunctionDecl)
	ret := fn.Body.Statements[0].(*ast.Return)
	assert.Nil(t, ret.Value)
}

func TestParseHashDialectIsTransparent(t *testing.T) {
	withHash, sink1 := parseSource(t, "#if x\n  y = 1\n#end\n")
	bare, sink2 := parseSource(t, "if x\n  y = 1\nend\n")
	require.False(t, sink1.HasErrors())
	require.False(t, sink2.HasErrors())
	assert.Equal(t, len(bare.Statements), len(withHash.Statements))
}

func TestParseRecoversAfterSyntaxError(t *testing.T) {
	prog, sink := parseSource(t, "var + \nvar y = 1\n")
	assert.True(t, sink.HasErrors())
	// Despite the malformed first declaration, the parser resynchronizes
	// and still recovers the second statement.
	require.Len(t, prog.Statements, 1)
	decl, ok := prog.Statements[0].(*ast.VarDecl)
	require.True(t, ok)
	assert.Equal(t, "y", decl.Name)
}
