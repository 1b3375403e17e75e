// Package parser turns a token stream into a Program AST.  The teacher
// has no parser - its "compiler" walks tokens straight into RPN stack
// instructions - so this package is grounded on the classic hand-written
// recursive-descent + precedence-climbing shape used across the
// retrieval pack's other language front-ends (e.g. the LL(1) parser in
// shadowCow-cow-lang-go, the statement/expression split in
// codeassociates-occam2go).  Per §9's design notes the "current token
// index" lives as an explicit position threaded through methods, never
// as global mutable state.
package parser

import (
	"strconv"

	"github.com/skx/subc/ast"
	"github.com/skx/subc/diag"
	"github.com/skx/subc/token"
)

// Parser holds our object-state: the token buffer, our position within
// it, and the sink every diagnostic is reported to.
type Parser struct {
	toks []token.Token
	pos  int
	sink *diag.Sink
}

// New creates a Parser over toks, reporting syntax errors to sink.
//
// The "#"-prefixed keyword dialect (§4.1) is resolved here once: a Hash
// token never carries grammatical meaning of its own (the lexer only
// ever emits one immediately before a keyword spelling), so it is
// dropped from the stream the grammar actually sees.
func New(toks []token.Token, sink *diag.Sink) *Parser {
	filtered := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind == token.HASH {
			continue
		}
		filtered = append(filtered, t)
	}
	if len(filtered) == 0 || filtered[len(filtered)-1].Kind != token.EOF {
		filtered = append(filtered, token.Token{Kind: token.EOF})
	}
	return &Parser{toks: filtered, sink: sink}
}

// Parse consumes the whole token stream and returns the resulting
// Program.  Parse errors are reported to the sink and parsing resumes at
// the next statement boundary (§4.2); Parse itself always returns a
// (possibly partial) Program.
func (p *Parser) Parse() *ast.Program {
	prog := &ast.Program{}
	p.skipNewlines()
	for !p.atEOF() {
		stmt := p.parseStatement()
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
		p.skipNewlines()
	}
	return prog
}

// --- token-stream helpers ---------------------------------------------

func (p *Parser) cur() token.Token { return p.toks[p.pos] }

func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) atEOF() bool { return p.cur().Kind == token.EOF }

func (p *Parser) skipNewlines() {
	for p.at(token.NEWLINE) || p.at(token.SEMI) {
		p.advance()
	}
}

// expect consumes the current token if it has kind k, reporting a
// diagnostic and leaving the cursor untouched otherwise.
func (p *Parser) expect(k token.Kind) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	p.sink.Errorf(p.cur().Pos, "unexpected token %q, expected %q", p.cur().Kind, k)
	return token.Token{}, false
}

// synchronize discards tokens until the next likely statement boundary:
// a newline, a ';', a '}', or end of file (§4.2's error policy).
func (p *Parser) synchronize() {
	for !p.atEOF() && !p.at(token.NEWLINE) && !p.at(token.SEMI) && !p.at(token.RBRACE) {
		p.advance()
	}
}

// normalizeOp collapses the word-form logical operators onto their
// symbolic twins so every later phase only has to recognize one spelling
// per operation.
func normalizeOp(k token.Kind) token.Kind {
	switch k {
	case token.OR:
		return token.OROR
	case token.AND:
		return token.ANDAND
	case token.NOT:
		return token.BANG
	default:
		return k
	}
}

func isLvalue(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Identifier, *ast.ArrayAccess:
		return true
	default:
		return false
	}
}

// --- statements ---------------------------------------------------------

func (p *Parser) parseStatement() ast.Stmt {
	switch p.cur().Kind {
	case token.VAR:
		return p.parseVarDecl()
	case token.CONST:
		return p.parseConstDecl()
	case token.FUNCTION:
		return p.parseFunctionDecl()
	case token.IF:
		return p.parseIf()
	case token.FOR:
		return p.parseFor()
	case token.WHILE:
		return p.parseWhile()
	case token.DO:
		return p.parseDoWhile()
	case token.RETURN:
		return p.parseReturn()
	case token.BREAK:
		pos := p.advance().Pos
		return &ast.Break{Position: pos}
	case token.CONTINUE:
		pos := p.advance().Pos
		return &ast.Continue{Position: pos}
	case token.LBRACE:
		return p.parseBlock()
	default:
		return p.parseExpressionOrAssignStatement()
	}
}

func (p *Parser) parseVarDecl() ast.Stmt {
	pos := p.advance().Pos // 'var'
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		return nil
	}

	var declType *ast.Type
	if p.at(token.COLON) {
		p.advance()
		t := p.parseTypeName()
		declType = &t
	}

	var init ast.Expr
	if p.at(token.ASSIGN) {
		p.advance()
		init = p.parseTernary()
	}

	return &ast.VarDecl{Position: pos, Name: nameTok.Lexeme, DeclaredType: declType, Init: init}
}

func (p *Parser) parseConstDecl() ast.Stmt {
	pos := p.advance().Pos // 'const'
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		return nil
	}

	var declType *ast.Type
	if p.at(token.COLON) {
		p.advance()
		t := p.parseTypeName()
		declType = &t
	}

	if _, ok := p.expect(token.ASSIGN); !ok {
		p.synchronize()
		return nil
	}
	init := p.parseTernary()

	return &ast.ConstDecl{Position: pos, Name: nameTok.Lexeme, DeclaredType: declType, Init: init}
}

func (p *Parser) parseTypeName() ast.Type {
	tok := p.cur()
	switch tok.Kind {
	case token.INT_TYPE:
		p.advance()
		return ast.Type{Kind: ast.IntType}
	case token.FLOAT_TYPE:
		p.advance()
		return ast.Type{Kind: ast.FloatType}
	case token.STRING_TYPE:
		p.advance()
		return ast.Type{Kind: ast.StringType}
	case token.BOOL_TYPE:
		p.advance()
		return ast.Type{Kind: ast.BoolType}
	case token.VOID_TYPE:
		p.advance()
		return ast.Type{Kind: ast.Void}
	case token.AUTO_TYPE:
		p.advance()
		return ast.Type{Kind: ast.AutoType}
	default:
		p.sink.Errorf(tok.Pos, "expected a type name, found %q", tok.Kind)
		p.advance()
		return ast.Type{Kind: ast.Unknown}
	}
}

func (p *Parser) parseFunctionDecl() ast.Stmt {
	pos := p.advance().Pos // 'function'
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		return nil
	}
	if _, ok := p.expect(token.LPAREN); !ok {
		p.synchronize()
		return nil
	}

	var params []*ast.Param
	for !p.at(token.RPAREN) && !p.atEOF() {
		pnameTok, ok := p.expect(token.IDENT)
		if !ok {
			break
		}
		ptype := ast.Type{Kind: ast.AutoType}
		if p.at(token.COLON) {
			p.advance()
			ptype = p.parseTypeName()
		}
		params = append(params, &ast.Param{Name: pnameTok.Lexeme, DeclaredType: ptype})
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RPAREN)

	retType := ast.Type{Kind: ast.Void}
	if p.at(token.COLON) {
		p.advance()
		retType = p.parseTypeName()
	}

	body := p.parseBlock()
	if p.at(token.END) {
		p.advance()
	}

	return &ast.FunctionDecl{Position: pos, Name: nameTok.Lexeme, Params: params, ReturnType: retType, Body: body}
}

// parseBlock parses either a `{ ... }` block or the brace-less
// `... end`/`... elif`/`... else`/`... while` form (§3, §4.2).  The
// brace-less form ends at the first of those four keywords it meets at
// its own level, whichever one the caller expects next; in particular a
// `while` statement cannot appear directly inside a brace-less block.
func (p *Parser) parseBlock() *ast.Block {
	pos := p.cur().Pos

	if p.at(token.LBRACE) {
		p.advance()
		p.skipNewlines()
		var stmts []ast.Stmt
		for !p.at(token.RBRACE) && !p.atEOF() {
			s := p.parseStatement()
			if s != nil {
				stmts = append(stmts, s)
			}
			p.skipNewlines()
		}
		p.expect(token.RBRACE)
		return &ast.Block{Position: pos, Statements: stmts}
	}

	var stmts []ast.Stmt
	p.skipNewlines()
	for !p.atBlockTerminator() && !p.atEOF() {
		s := p.parseStatement()
		if s != nil {
			stmts = append(stmts, s)
		}
		p.skipNewlines()
	}
	return &ast.Block{Position: pos, Statements: stmts}
}

func (p *Parser) atBlockTerminator() bool {
	switch p.cur().Kind {
	case token.END, token.ELIF, token.ELSE, token.WHILE:
		return true
	default:
		return false
	}
}

func (p *Parser) parseIf() ast.Stmt {
	pos := p.advance().Pos // 'if'
	cond := p.parseTernary()
	then := p.parseBlock()
	elseStmt := p.parseElseChain()
	return &ast.If{Position: pos, Cond: cond, Then: then, Else: elseStmt}
}

// parseElseChain parses the `{ elif cond Block } [ else Block ] [ end ]`
// tail shared by `if` and every `elif` link, representing the chain as
// nested *ast.If values (§3).
func (p *Parser) parseElseChain() ast.Stmt {
	switch {
	case p.at(token.ELIF):
		pos := p.advance().Pos
		cond := p.parseTernary()
		then := p.parseBlock()
		elseStmt := p.parseElseChain()
		return &ast.If{Position: pos, Cond: cond, Then: then, Else: elseStmt}
	case p.at(token.ELSE):
		p.advance()
		block := p.parseBlock()
		if p.at(token.END) {
			p.advance()
		}
		return block
	case p.at(token.END):
		p.advance()
		return nil
	default:
		return nil
	}
}

func (p *Parser) parseWhile() ast.Stmt {
	pos := p.advance().Pos // 'while'
	cond := p.parseTernary()
	body := p.parseBlock()
	if p.at(token.END) {
		p.advance()
	}
	return &ast.While{Position: pos, Cond: cond, Body: body}
}

func (p *Parser) parseDoWhile() ast.Stmt {
	pos := p.advance().Pos // 'do'
	body := p.parseBlock()
	if _, ok := p.expect(token.WHILE); !ok {
		p.synchronize()
		return nil
	}
	cond := p.parseTernary()
	return &ast.DoWhile{Position: pos, Body: body, Cond: cond}
}

func (p *Parser) parseFor() ast.Stmt {
	pos := p.advance().Pos // 'for'
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		return nil
	}
	if _, ok := p.expect(token.IN); !ok {
		p.synchronize()
		return nil
	}

	var rng *ast.RangeExpr
	var coll ast.Expr
	if p.at(token.IDENT) && p.cur().Lexeme == "range" && p.peek().Kind == token.LPAREN {
		rng = p.parseRangeCall()
	} else {
		coll = p.parseTernary()
	}

	body := p.parseBlock()
	if p.at(token.END) {
		p.advance()
	}
	return &ast.For{Position: pos, Var: nameTok.Lexeme, Range: rng, Collection: coll, Body: body}
}

// parseRangeCall recognizes `range(n)` / `range(start, end)` as a
// dedicated RangeExpr; outside a `for ... in ...` head `range` is just a
// normal identifier (§4.2).
func (p *Parser) parseRangeCall() *ast.RangeExpr {
	pos := p.cur().Pos
	p.advance() // 'range'
	p.expect(token.LPAREN)

	first := p.parseTernary()
	var start, end ast.Expr
	if p.at(token.COMMA) {
		p.advance()
		start = first
		end = p.parseTernary()
	} else {
		end = first // range(n) == range(0, n)
	}
	p.expect(token.RPAREN)
	return &ast.RangeExpr{Position: pos, Start: start, End: end}
}

func (p *Parser) parseReturn() ast.Stmt {
	pos := p.advance().Pos
	switch p.cur().Kind {
	case token.NEWLINE, token.SEMI, token.RBRACE, token.END, token.EOF:
		return &ast.Return{Position: pos}
	}
	val := p.parseTernary()
	return &ast.Return{Position: pos, Value: val}
}

func (p *Parser) parseExpressionOrAssignStatement() ast.Stmt {
	pos := p.cur().Pos
	target := p.parseTernary()
	if p.at(token.ASSIGN) {
		p.advance()
		value := p.parseTernary()
		if !isLvalue(target) {
			p.sink.Errorf(target.Pos(), "left-hand side of assignment must be a variable or array element")
		}
		return &ast.Assign{Position: pos, Target: target, Value: value}
	}
	return &ast.ExprStmt{Position: pos, X: target}
}

// --- expressions ----------------------------------------------------------
//
// Precedence, lowest to highest (§4.2): ternary, ||/or, &&/and, ==/!=,
// </>/<=/>=,  +/-,  * / %,  unary -/!/not,  postfix call/index/member,
// primary.

func (p *Parser) parseTernary() ast.Expr {
	cond := p.parseLogicalOr()
	if !p.at(token.QUESTION) {
		return cond
	}
	pos := p.advance().Pos
	then := p.parseTernary()
	if _, ok := p.expect(token.COLON); !ok {
		return cond
	}
	els := p.parseTernary()
	return &ast.Ternary{Position: pos, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseLogicalOr() ast.Expr {
	left := p.parseLogicalAnd()
	for p.at(token.OROR) || p.at(token.OR) {
		op := p.advance()
		right := p.parseLogicalAnd()
		left = &ast.Binary{Position: op.Pos, Op: normalizeOp(op.Kind), Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseLogicalAnd() ast.Expr {
	left := p.parseEquality()
	for p.at(token.ANDAND) || p.at(token.AND) {
		op := p.advance()
		right := p.parseEquality()
		left = &ast.Binary{Position: op.Pos, Op: normalizeOp(op.Kind), Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseEquality() ast.Expr {
	left := p.parseComparison()
	for p.at(token.EQ) || p.at(token.NE) {
		op := p.advance()
		right := p.parseComparison()
		left = &ast.Binary{Position: op.Pos, Op: op.Kind, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseComparison() ast.Expr {
	left := p.parseAdditive()
	for p.at(token.LT) || p.at(token.GT) || p.at(token.LE) || p.at(token.GE) {
		op := p.advance()
		right := p.parseAdditive()
		left = &ast.Binary{Position: op.Pos, Op: op.Kind, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.at(token.PLUS) || p.at(token.MINUS) {
		op := p.advance()
		right := p.parseMultiplicative()
		left = &ast.Binary{Position: op.Pos, Op: op.Kind, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.at(token.STAR) || p.at(token.SLASH) || p.at(token.PERCENT) {
		op := p.advance()
		right := p.parseUnary()
		left = &ast.Binary{Position: op.Pos, Op: op.Kind, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	if p.at(token.MINUS) || p.at(token.BANG) || p.at(token.NOT) {
		op := p.advance()
		x := p.parseUnary()
		return &ast.Unary{Position: op.Pos, Op: normalizeOp(op.Kind), X: x}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	for {
		switch p.cur().Kind {
		case token.LBRACKET:
			pos := p.advance().Pos
			idx := p.parseTernary()
			p.expect(token.RBRACKET)
			expr = &ast.ArrayAccess{Position: pos, Array: expr, Index: idx}
		case token.DOT:
			pos := p.advance().Pos
			memberTok, ok := p.expect(token.IDENT)
			if !ok {
				return expr
			}
			expr = &ast.MemberAccess{Position: pos, X: expr, Member: memberTok.Lexeme}
		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.cur()
	switch tok.Kind {
	case token.INT:
		p.advance()
		v, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			p.sink.Errorf(tok.Pos, "invalid integer literal %q", tok.Lexeme)
		}
		return &ast.Literal{Position: tok.Pos, Kind: ast.IntType, IntVal: v}
	case token.FLOAT:
		p.advance()
		v, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			p.sink.Errorf(tok.Pos, "invalid float literal %q", tok.Lexeme)
		}
		return &ast.Literal{Position: tok.Pos, Kind: ast.FloatType, FloatVal: v}
	case token.STRING:
		p.advance()
		return &ast.Literal{Position: tok.Pos, Kind: ast.StringType, StrVal: tok.Lexeme}
	case token.TRUE:
		p.advance()
		return &ast.Literal{Position: tok.Pos, Kind: ast.BoolType, BoolVal: true}
	case token.FALSE:
		p.advance()
		return &ast.Literal{Position: tok.Pos, Kind: ast.BoolType, BoolVal: false}
	case token.NULL:
		p.advance()
		return &ast.Literal{Position: tok.Pos, Kind: ast.NullType}
	case token.LBRACKET:
		return p.parseArrayLiteral()
	case token.LPAREN:
		p.advance()
		e := p.parseTernary()
		p.expect(token.RPAREN)
		return e
	case token.IDENT:
		p.advance()
		if p.at(token.LPAREN) {
			return p.parseCallArgs(tok)
		}
		return &ast.Identifier{Position: tok.Pos, Name: tok.Lexeme}
	default:
		p.sink.Errorf(tok.Pos, "unexpected token %q in expression", tok.Kind)
		p.advance()
		return &ast.Literal{Position: tok.Pos, Kind: ast.Unknown}
	}
}

func (p *Parser) parseCallArgs(nameTok token.Token) ast.Expr {
	p.advance() // '('
	var args []ast.Expr
	for !p.at(token.RPAREN) && !p.atEOF() {
		args = append(args, p.parseTernary())
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RPAREN)
	return &ast.Call{Position: nameTok.Pos, Callee: nameTok.Lexeme, Args: args}
}

func (p *Parser) parseArrayLiteral() ast.Expr {
	pos := p.advance().Pos // '['
	var elems []ast.Expr
	for !p.at(token.RBRACKET) && !p.atEOF() {
		elems = append(elems, p.parseTernary())
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RBRACKET)
	return &ast.ArrayLiteral{Position: pos, Elems: elems}
}
