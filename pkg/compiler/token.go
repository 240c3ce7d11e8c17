package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	KEYWORD      // one of the 21 reserved words
	SYMBOL       // single-character punctuation or operator
	IDENTIFIER   // class, subroutine or variable name
	INT_CONST    // decimal integer 0..32767
	STRING_CONST // "..." without the quotes
)

var tokenNames = [...]string{
	EOF:          "EOF",
	KEYWORD:      "KEYWORD",
	SYMBOL:       "SYMBOL",
	IDENTIFIER:   "IDENTIFIER",
	INT_CONST:    "INT_CONST",
	STRING_CONST: "STRING_CONST",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// keywords is the reserved word set. An identifier spelled like one of
// these lexes as a KEYWORD.
var keywords = map[string]bool{
	"class":       true,
	"constructor": true,
	"function":    true,
	"method":      true,
	"field":       true,
	"static":      true,
	"var":         true,
	"int":         true,
	"char":        true,
	"boolean":     true,
	"void":        true,
	"true":        true,
	"false":       true,
	"null":        true,
	"this":        true,
	"let":         true,
	"do":          true,
	"if":          true,
	"else":        true,
	"while":       true,
	"return":      true,
}

// symbols lists every single-character symbol token.
const symbols = "{}()[].,;+-*/&|<>=~"

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // keyword/symbol/identifier text, digits, or string contents
	Line   int    // 1-based source line
	Col    int    // 1-based column of the first character
}

func (t Token) String() string {
	return fmt.Sprintf("%-12s %-14q  line %d:%d", t.Type, t.Lexeme, t.Line, t.Col)
}

// Is reports whether t is of type tt with the given lexeme.
func (t Token) Is(tt TokenType, lexeme string) bool {
	return t.Type == tt && t.Lexeme == lexeme
}
