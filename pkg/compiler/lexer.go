package compiler

import (
	"strconv"
	"strings"

	"hackchain/pkg/diag"
	"hackchain/pkg/hack"
)

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
	col  int // 1-based column of the next rune
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), pos: 0, line: 1, col: 1}
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && isSpace(l.peek()) {
		l.advance()
	}
}

// skipLineComment discards everything from the current position to end-of-line.
// The opening "//" must already have been consumed.
func (l *Lexer) skipLineComment() {
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
}

// skipBlockComment discards everything up to and including the first "*/".
// Block comments do not nest. The opening "/*" must already have been consumed.
func (l *Lexer) skipBlockComment(line, col int) error {
	for l.pos < len(l.src) {
		if l.peek() == '*' && l.peek2() == '/' {
			l.advance() // *
			l.advance() // /
			return nil
		}
		l.advance()
	}
	return diag.Lexical(line, col, "/*", "unterminated block comment")
}

// scanIdent collects an identifier or keyword. The first character must
// still be at l.peek().
func (l *Lexer) scanIdent() Token {
	line, col := l.line, l.col
	start := l.pos
	for l.pos < len(l.src) && (isIdentStart(l.peek()) || isDigit(l.peek())) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	tt := IDENTIFIER
	if keywords[lexeme] {
		tt = KEYWORD
	}
	return Token{Type: tt, Lexeme: lexeme, Line: line, Col: col}
}

// scanInt collects a run of decimal digits.
func (l *Lexer) scanInt() (Token, error) {
	line, col := l.line, l.col
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.peek()) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	if v, err := strconv.Atoi(lexeme); err != nil || v > int(hack.MaxAddress) {
		return Token{}, diag.Lexical(line, col, lexeme, "integer constant out of range 0..%d", hack.MaxAddress)
	}
	return Token{Type: INT_CONST, Lexeme: lexeme, Line: line, Col: col}, nil
}

// scanString collects a string literal. There are no escape sequences and a
// literal may not span lines.
func (l *Lexer) scanString() (Token, error) {
	line, col := l.line, l.col
	l.advance() // consume opening "
	start := l.pos

	for l.pos < len(l.src) {
		r := l.peek()
		if r == '"' {
			val := string(l.src[start:l.pos])
			l.advance() // consume closing "
			return Token{Type: STRING_CONST, Lexeme: val, Line: line, Col: col}, nil
		}
		if r == '\n' {
			break
		}
		l.advance()
	}
	return Token{}, diag.Lexical(line, col, string(l.src[start-1:l.pos]), "unterminated string literal")
}

// nextToken skips whitespace/comments and returns the next Token.
func (l *Lexer) nextToken() (Token, error) {
	for {
		l.skipWhitespace()
		if l.pos >= len(l.src) {
			return Token{Type: EOF, Lexeme: "", Line: l.line, Col: l.col}, nil
		}
		if l.peek() == '/' && l.peek2() == '/' {
			l.advance()
			l.advance()
			l.skipLineComment()
			continue
		}
		if l.peek() == '/' && l.peek2() == '*' {
			line, col := l.line, l.col
			l.advance()
			l.advance()
			if err := l.skipBlockComment(line, col); err != nil {
				return Token{}, err
			}
			continue
		}
		break
	}

	ch := l.peek()
	line, col := l.line, l.col

	switch {
	case strings.ContainsRune(symbols, ch):
		l.advance()
		return Token{Type: SYMBOL, Lexeme: string(ch), Line: line, Col: col}, nil
	case isDigit(ch):
		return l.scanInt()
	case ch == '"':
		return l.scanString()
	case isIdentStart(ch):
		return l.scanIdent(), nil
	}
	return Token{}, diag.Lexical(line, col, string(ch), "unexpected character %q", ch)
}

// Lex tokenises src and returns all tokens including the final EOF token.
// It stops at the first character sequence that is not a token.
func Lex(src string) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}
