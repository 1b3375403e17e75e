package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skx/subc/diag"
	"github.com/skx/subc/source"
	"github.com/skx/subc/token"
)

func lexAll(t *testing.T, input string) ([]token.Token, *diag.Sink) {
	t.Helper()
	sink := diag.NewSink("test.sb")
	buf := source.New("test.sb", []byte(input))
	return New(buf, sink).Lex(), sink
}

func TestLexNumbers(t *testing.T) {
	toks, sink := lexAll(t, "3 43 3.14 0.5")
	assert.False(t, sink.HasErrors())

	want := []struct {
		kind token.Kind
		lex  string
	}{
		{token.INT, "3"},
		{token.INT, "43"},
		{token.FLOAT, "3.14"},
		{token.FLOAT, "0.5"},
		{token.EOF, ""},
	}
	assert.Len(t, toks, len(want))
	for i, w := range want {
		assert.Equal(t, w.kind, toks[i].Kind, "token %d", i)
		assert.Equal(t, w.lex, toks[i].Lexeme, "token %d", i)
	}
}

func TestLexMalformedNumberReportsError(t *testing.T) {
	_, sink := lexAll(t, "3.4.5")
	assert.True(t, sink.HasErrors())
}

func TestLexOperators(t *testing.T) {
	toks, sink := lexAll(t, "+ - * / % == != <= >= < > && || ! = => ?")
	assert.False(t, sink.HasErrors())

	want := []token.Kind{
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
		token.EQ, token.NE, token.LE, token.GE, token.LT, token.GT,
		token.ANDAND, token.OROR, token.BANG, token.ASSIGN, token.ARROW,
		token.QUESTION, token.EOF,
	}
	assert.Len(t, toks, len(want))
	for i, k := range want {
		assert.Equal(t, k, toks[i].Kind, "token %d", i)
	}
}

func TestLexIdentifiersAndKeywords(t *testing.T) {
	toks, sink := lexAll(t, "var total if elif end myVar2")
	assert.False(t, sink.HasErrors())

	want := []token.Kind{
		token.VAR, token.IDENT, token.IF, token.ELIF, token.END, token.IDENT, token.EOF,
	}
	for i, k := range want {
		assert.Equal(t, k, toks[i].Kind, "token %d", i)
	}
	assert.Equal(t, "total", toks[1].Lexeme)
	assert.Equal(t, "myVar2", toks[5].Lexeme)
}

func TestLexStringEscapes(t *testing.T) {
	toks, sink := lexAll(t, `"hello\nworld" 'single\tquoted'`)
	assert.False(t, sink.HasErrors())
	assert.Equal(t, "hello\nworld", toks[0].Lexeme)
	assert.Equal(t, "single\tquoted", toks[1].Lexeme)
}

func TestLexUnterminatedStringReportsError(t *testing.T) {
	_, sink := lexAll(t, `"unterminated`)
	assert.True(t, sink.HasErrors())
}

func TestLexStrayCharacterReportsError(t *testing.T) {
	_, sink := lexAll(t, "3 @ 4")
	assert.True(t, sink.HasErrors())
}

func TestLexNewlinesArePreserved(t *testing.T) {
	toks, sink := lexAll(t, "var x\nvar y")
	assert.False(t, sink.HasErrors())

	want := []token.Kind{
		token.VAR, token.IDENT, token.NEWLINE, token.VAR, token.IDENT, token.EOF,
	}
	for i, k := range want {
		assert.Equal(t, k, toks[i].Kind, "token %d", i)
	}
	assert.Equal(t, 1, toks[0].Pos.Line)
	assert.Equal(t, 2, toks[3].Pos.Line)
	assert.Equal(t, 1, toks[3].Pos.Col)
}

func TestLexHashKeywordDialect(t *testing.T) {
	// '#' followed by a keyword spelling is the Hash token; the keyword
	// itself is lexed normally right after it.
	toks, sink := lexAll(t, "#if x #end")
	assert.False(t, sink.HasErrors())

	want := []token.Kind{token.HASH, token.IF, token.IDENT, token.HASH, token.END, token.EOF}
	for i, k := range want {
		assert.Equal(t, k, toks[i].Kind, "token %d", i)
	}
}

func TestLexHashCommentDialect(t *testing.T) {
	// '#' NOT followed by a keyword spelling is a line comment.
	toks, sink := lexAll(t, "var x # this is a comment\nvar y")
	assert.False(t, sink.HasErrors())

	want := []token.Kind{
		token.VAR, token.IDENT, token.NEWLINE, token.VAR, token.IDENT, token.EOF,
	}
	for i, k := range want {
		assert.Equal(t, k, toks[i].Kind, "token %d", i)
	}
}

func TestLexLocationsPointInsideLexeme(t *testing.T) {
	toks, _ := lexAll(t, "  total")
	assert.Equal(t, 3, toks[0].Pos.Col)
}
