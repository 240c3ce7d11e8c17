package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"

	"hackchain/pkg/diag"
)

func TestHighlightKeepsText(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []string{
		"let x = 1 + 2;",
		`do Output.printString("hi there");`,
		"while (x < 10) { let x = x + 1; }",
		`"unterminated`,
		"  x  ",
	}
	for _, line := range tests {
		if got := highlight([]rune(line)); got != line {
			t.Errorf("highlight(%q) = %q", line, got)
		}
	}
}

func TestHighlightColours(t *testing.T) {
	color.NoColor = false
	got := highlight([]rune(`let s = "a";`))
	if got == `let s = "a";` {
		t.Fatal("no colour applied")
	}
	for _, want := range []string{"let", `"a"`, " s = ", ";"} {
		if !strings.Contains(got, want) {
			t.Errorf("highlight output %q lacks %q", got, want)
		}
	}
}

func TestCompileLine(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"1 + 2", []string{"push constant 1", "push constant 2", "add", "return"}},
		{"x * 3;", []string{"push local 0", "call Math.multiply 2", "return"}},
		{"let y = 5;", []string{"push constant 5", "pop local 1", "push constant 0", "return"}},
	}
	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			body, err := compileLine(tc.line)
			if err != nil {
				t.Fatal(err)
			}
			if strings.HasPrefix(body, "function") {
				t.Errorf("body still carries the function header:\n%s", body)
			}
			for _, w := range tc.want {
				if !strings.Contains(body, w) {
					t.Errorf("body lacks %q:\n%s", w, body)
				}
			}
		})
	}
}

func TestCompileLineErrorPosition(t *testing.T) {
	_, err := compileLine("q + 1")
	if kind, _ := diag.KindOf(err); kind != diag.SemanticError {
		t.Fatalf("err = %v; want semantic error", err)
	}

	_, err = compileLine("1 + )")
	var d *diag.Error
	if kind, _ := diag.KindOf(err); kind != diag.SyntaxError {
		t.Fatalf("err = %v; want syntax error", err)
	}
	if !errors.As(err, &d) {
		t.Fatalf("err %T is not a diagnostic", err)
	}
	if d.Line != 1 || d.Col != 5 || d.File != "" {
		t.Errorf("position = %d:%d file %q; want 1:5 and no file", d.Line, d.Col, d.File)
	}
}
