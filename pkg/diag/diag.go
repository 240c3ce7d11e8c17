// Package diag defines the fatal error kinds shared by every toolchain stage.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a toolchain failure.
type Kind int

const (
	LexicalError  Kind = iota // unrecognised character sequence
	SyntaxError               // token stream does not match the grammar
	SemanticError             // unresolved name, invalid segment use, missing call context
	EncodingError             // mnemonic missing from the fixed tables
)

var kindNames = [...]string{
	LexicalError:  "lexical error",
	SyntaxError:   "syntax error",
	SemanticError: "semantic error",
	EncodingError: "encoding error",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a positioned, fatal diagnostic. Line and Col are 1-based; zero
// means unknown.
type Error struct {
	Kind     Kind
	File     string
	Line     int
	Col      int
	Fragment string // offending token, line or mnemonic
	Msg      string
}

// position renders "file:line:col:" with unknown parts left out.
func (e *Error) position() string {
	var sb strings.Builder
	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(":")
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "%d:", e.Line)
		if e.Col > 0 {
			fmt.Fprintf(&sb, "%d:", e.Col)
		}
	}
	return sb.String()
}

func (e *Error) Error() string {
	var sb strings.Builder
	if pos := e.position(); pos != "" {
		sb.WriteString(pos + " ")
	}
	sb.WriteString(e.Kind.String())
	sb.WriteString(": ")
	sb.WriteString(e.Msg)
	if e.Fragment != "" {
		fmt.Fprintf(&sb, " (near %q)", e.Fragment)
	}
	return sb.String()
}

func newError(kind Kind, line, col int, fragment, format string, args ...any) *Error {
	return &Error{
		Kind:     kind,
		Line:     line,
		Col:      col,
		Fragment: fragment,
		Msg:      fmt.Sprintf(format, args...),
	}
}

func Lexical(line, col int, fragment, format string, args ...any) *Error {
	return newError(LexicalError, line, col, fragment, format, args...)
}

func Syntax(line, col int, fragment, format string, args ...any) *Error {
	return newError(SyntaxError, line, col, fragment, format, args...)
}

func Semantic(line, col int, fragment, format string, args ...any) *Error {
	return newError(SemanticError, line, col, fragment, format, args...)
}

func Encoding(line, col int, fragment, format string, args ...any) *Error {
	return newError(EncodingError, line, col, fragment, format, args...)
}

// WithFile stamps the source unit name onto err if it is a diagnostic
// without one. Other errors are returned unchanged.
func WithFile(err error, file string) error {
	var d *Error
	if errors.As(err, &d) && d.File == "" {
		d.File = file
	}
	return err
}

// KindOf reports the Kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var d *Error
	if errors.As(err, &d) {
		return d.Kind, true
	}
	return 0, false
}
