// Package lexer turns SB source bytes into a token stream.  It keeps the
// teacher's rune-by-rune scanning style (a `characters []rune` slice plus
// position/readPosition/ch fields) but generalizes it from a handful of
// math operators to the full surface grammar of §3/§4.1, and reports
// diagnostics through a diag.Sink instead of returning the first error it
// meets.
package lexer

import (
	"strings"

	"github.com/skx/subc/diag"
	"github.com/skx/subc/source"
	"github.com/skx/subc/token"
)

// Lexer holds our object-state.
type Lexer struct {
	buf  *source.Buffer
	sink *diag.Sink

	characters   []rune // rune slice of the input
	position     int    // current character position
	readPosition int    // next character position
	ch           rune   // current character

	line int // line of l.ch, 1-based
	col  int // column of l.ch, 1-based
}

// New creates a Lexer for buf, reporting any lexical errors to sink.
func New(buf *source.Buffer, sink *diag.Sink) *Lexer {
	l := &Lexer{
		buf:        buf,
		sink:       sink,
		characters: []rune(string(buf.Bytes())),
		line:       1,
	}
	l.readChar()
	return l
}

// Lex scans the whole buffer and returns the resulting token buffer,
// always terminated by exactly one EOF token.
func (l *Lexer) Lex() []token.Token {
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks
}

// readChar advances to the next character, tracking line/column as it
// goes.  Column resets to zero the instant a newline is consumed so the
// character that follows it lands at column 1 (§4.1).
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPosition >= len(l.characters) {
		l.ch = rune(0)
	} else {
		l.ch = l.characters[l.readPosition]
	}
	l.col++
	l.position = l.readPosition
	l.readPosition++
}

// peekChar returns the character after l.ch without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.characters) {
		return rune(0)
	}
	return l.characters[l.readPosition]
}

// peekWord returns the identifier-shaped run of characters starting
// immediately after l.ch, without consuming anything.  Used only to
// decide whether a '#' introduces the Hash token or a comment (§4.1).
func (l *Lexer) peekWord() string {
	i := l.readPosition
	if i >= len(l.characters) || !isIdentifierStart(l.characters[i]) {
		return ""
	}
	j := i
	for j < len(l.characters) && isIdentifierChar(l.characters[j]) {
		j++
	}
	return string(l.characters[i:j])
}

// pos returns the position of the character currently under the cursor.
func (l *Lexer) pos() source.Position {
	return source.Position{Line: l.line, Col: l.col}
}

// NextToken reads and returns the next token, skipping insignificant
// whitespace and comments along the way.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	pos := l.pos()

	switch l.ch {
	case rune(0):
		return token.Token{Kind: token.EOF, Pos: pos}
	case '\n':
		l.readChar()
		return token.Token{Kind: token.NEWLINE, Lexeme: "\n", Pos: pos}
	case '#':
		return l.lexHashOrComment(pos)
	case '"', '\'':
		return l.readString(pos)
	case '(':
		l.readChar()
		return token.Token{Kind: token.LPAREN, Lexeme: "(", Pos: pos}
	case ')':
		l.readChar()
		return token.Token{Kind: token.RPAREN, Lexeme: ")", Pos: pos}
	case '{':
		l.readChar()
		return token.Token{Kind: token.LBRACE, Lexeme: "{", Pos: pos}
	case '}':
		l.readChar()
		return token.Token{Kind: token.RBRACE, Lexeme: "}", Pos: pos}
	case '[':
		l.readChar()
		return token.Token{Kind: token.LBRACKET, Lexeme: "[", Pos: pos}
	case ']':
		l.readChar()
		return token.Token{Kind: token.RBRACKET, Lexeme: "]", Pos: pos}
	case '.':
		l.readChar()
		return token.Token{Kind: token.DOT, Lexeme: ".", Pos: pos}
	case ',':
		l.readChar()
		return token.Token{Kind: token.COMMA, Lexeme: ",", Pos: pos}
	case ':':
		l.readChar()
		return token.Token{Kind: token.COLON, Lexeme: ":", Pos: pos}
	case ';':
		l.readChar()
		return token.Token{Kind: token.SEMI, Lexeme: ";", Pos: pos}
	case '+':
		l.readChar()
		return token.Token{Kind: token.PLUS, Lexeme: "+", Pos: pos}
	case '-':
		l.readChar()
		return token.Token{Kind: token.MINUS, Lexeme: "-", Pos: pos}
	case '*':
		l.readChar()
		return token.Token{Kind: token.STAR, Lexeme: "*", Pos: pos}
	case '/':
		l.readChar()
		return token.Token{Kind: token.SLASH, Lexeme: "/", Pos: pos}
	case '%':
		l.readChar()
		return token.Token{Kind: token.PERCENT, Lexeme: "%", Pos: pos}
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.EQ, Lexeme: "==", Pos: pos}
		}
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.ARROW, Lexeme: "=>", Pos: pos}
		}
		l.readChar()
		return token.Token{Kind: token.ASSIGN, Lexeme: "=", Pos: pos}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.NE, Lexeme: "!=", Pos: pos}
		}
		l.readChar()
		return token.Token{Kind: token.BANG, Lexeme: "!", Pos: pos}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.LE, Lexeme: "<=", Pos: pos}
		}
		l.readChar()
		return token.Token{Kind: token.LT, Lexeme: "<", Pos: pos}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.GE, Lexeme: ">=", Pos: pos}
		}
		l.readChar()
		return token.Token{Kind: token.GT, Lexeme: ">", Pos: pos}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.ANDAND, Lexeme: "&&", Pos: pos}
		}
		l.sink.Errorf(pos, "stray character %q", l.ch)
		l.readChar()
		return token.Token{Kind: token.ILLEGAL, Lexeme: "&", Pos: pos}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.OROR, Lexeme: "||", Pos: pos}
		}
		l.sink.Errorf(pos, "stray character %q", l.ch)
		l.readChar()
		return token.Token{Kind: token.ILLEGAL, Lexeme: "|", Pos: pos}
	case '?':
		l.readChar()
		return token.Token{Kind: token.QUESTION, Lexeme: "?", Pos: pos}
	}

	if isDigit(l.ch) {
		return l.readNumber(pos)
	}
	if isIdentifierStart(l.ch) {
		return l.readIdentifier(pos)
	}

	l.sink.Errorf(pos, "stray character %q", l.ch)
	ch := l.ch
	l.readChar()
	return token.Token{Kind: token.ILLEGAL, Lexeme: string(ch), Pos: pos}
}

// lexHashOrComment implements the "#"-prefixed keyword dialect described
// in §4.1: a '#' immediately followed by a known keyword spelling is the
// Hash token; anything else starting with '#' is a line comment.
func (l *Lexer) lexHashOrComment(pos source.Position) token.Token {
	word := l.peekWord()
	if word != "" && token.IsKeyword(word) {
		l.readChar() // consume '#'; the keyword itself is lexed next
		return token.Token{Kind: token.HASH, Lexeme: "#", Pos: pos}
	}

	for l.ch != '\n' && l.ch != rune(0) {
		l.readChar()
	}
	return l.NextToken()
}

// skipWhitespace discards spaces, tabs and carriage returns.  Newlines
// are significant (§3) and are never skipped here.
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
}

// readNumber reads an integer, or a float if exactly one '.' separates
// two digit runs.  Any further '.' directly after the literal (a second
// dot, or a dot with no digits after it, as in "3.") makes it a malformed
// number literal (§4.1).
func (l *Lexer) readNumber(pos source.Position) token.Token {
	var sb strings.Builder

	for isDigit(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}

	isFloat := false
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		sb.WriteRune(l.ch)
		l.readChar()
		for isDigit(l.ch) {
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}

	if l.ch == '.' {
		sb.WriteRune(l.ch)
		l.readChar()
		for isDigit(l.ch) {
			sb.WriteRune(l.ch)
			l.readChar()
		}
		l.sink.Errorf(pos, "malformed number literal %q", sb.String())
		return token.Token{Kind: token.ILLEGAL, Lexeme: sb.String(), Pos: pos}
	}

	kind := token.INT
	if isFloat {
		kind = token.FLOAT
	}
	return token.Token{Kind: kind, Lexeme: sb.String(), Pos: pos}
}

// readString scans a "..." or '...' literal, interpreting the escapes
// named in §4.1.  The returned lexeme is already unescaped.
func (l *Lexer) readString(pos source.Position) token.Token {
	quote := l.ch
	l.readChar() // consume opening quote

	var sb strings.Builder
	for {
		if l.ch == rune(0) {
			l.sink.Errorf(pos, "unterminated string literal")
			return token.Token{Kind: token.ILLEGAL, Lexeme: sb.String(), Pos: pos}
		}
		if l.ch == quote {
			l.readChar() // consume closing quote
			break
		}
		if l.ch == '\\' {
			escPos := l.pos()
			l.readChar()
			switch l.ch {
			case '\\':
				sb.WriteRune('\\')
			case '"':
				sb.WriteRune('"')
			case '\'':
				sb.WriteRune('\'')
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			default:
				l.sink.Errorf(escPos, "illegal escape sequence \\%c", l.ch)
				sb.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	return token.Token{Kind: token.STRING, Lexeme: sb.String(), Pos: pos}
}

// readIdentifier reads an identifier or keyword: a letter/underscore
// followed by letters, digits or underscores (§4.1).
func (l *Lexer) readIdentifier(pos source.Position) token.Token {
	var sb strings.Builder
	for isIdentifierChar(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	word := sb.String()
	return token.Token{Kind: token.LookupIdentifier(word), Lexeme: word, Pos: pos}
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isLetter(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentifierStart(ch rune) bool {
	return isLetter(ch) || ch == '_'
}

func isIdentifierChar(ch rune) bool {
	return isLetter(ch) || isDigit(ch) || ch == '_'
}
