// Command jackc shows what each compiler stage makes of Jack source: the
// token stream, the AST, the per-routine symbol tables and the VM code.
// Without arguments it starts an expression shell.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
	"github.com/reeflective/readline"

	"hackchain/pkg/compiler"
	"hackchain/pkg/diag"
	"hackchain/pkg/utils"
)

var (
	showTokens  = flag.Bool("tokens", false, "print the token stream")
	showXML     = flag.Bool("xml", false, "print the token stream as XML")
	showAST     = flag.Bool("ast", false, "pretty-print the AST")
	showSymbols = flag.Bool("symbols", false, "pretty-print each routine's symbol table")
	showVM      = flag.Bool("vm", true, "print the generated VM code")
	noColor     = flag.Bool("no-color", false, "disable coloured output")
)

const helpMessage = `jackc dumps the Jack compiler stages.

Usage:
  jackc [flags] <file.jack | dir>...
  jackc              (interactive shell)
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, helpMessage)
		flag.PrintDefaults()
	}
	flag.Parse()

	printer := pp.New()
	if *noColor {
		color.NoColor = true
		printer.SetColoringEnabled(false)
	}

	if flag.NArg() == 0 {
		repl()
		return
	}

	for _, arg := range flag.Args() {
		paths, err := utils.SourcePaths(arg, ".jack")
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintln(os.Stderr, "read error:", err)
				os.Exit(1)
			}
			if err := dump(os.Stdout, printer, compiler.Unit{Name: utils.UnitName(path), Source: string(data)}); err != nil {
				diag.Report(os.Stderr, err)
				os.Exit(1)
			}
		}
	}
}

func dump(w io.Writer, printer *pp.PrettyPrinter, u compiler.Unit) error {
	header := color.New(color.Bold)
	header.Fprintf(w, "== %s.jack\n", u.Name)

	tokens, err := compiler.Lex(u.Source)
	if err != nil {
		return diag.WithFile(err, u.Name+".jack")
	}
	if *showTokens {
		header.Fprintf(w, "Tokens (%d)\n", len(tokens))
		for _, tok := range tokens {
			fmt.Fprintln(w, " ", tok)
		}
		fmt.Fprintln(w)
	}
	if *showXML {
		fmt.Fprint(w, compiler.TokensXML(tokens))
		fmt.Fprintln(w)
	}

	class, g, err := compiler.CompileClass(u)
	if err != nil {
		return err
	}
	if *showAST {
		header.Fprintln(w, "AST")
		printer.Fprintln(w, class)
		fmt.Fprintln(w)
	}
	if *showSymbols {
		for _, r := range g.Routines() {
			header.Fprintf(w, "Symbols of %s\n", r.Name())
			printer.Fprintln(w, r.Symbols())
		}
		fmt.Fprintln(w)
	}
	if *showVM {
		header.Fprintln(w, "VM")
		fmt.Fprint(w, g.Text())
		fmt.Fprintln(w)
	}
	return nil
}

// The shell compiles each line inside a throwaway function with a few
// locals predeclared. Statements run as written; anything else is taken as
// an expression and returned.
const (
	replHeader = "class Repl { function int eval() { var int x, y, z; var Array a;\n"
	replReturn = "return "
)

var statementKeywords = map[string]bool{"let": true, "do": true, "if": true, "while": true, "return": true}

func wrapLine(line string) (src string, offset int) {
	trimmed := strings.TrimSpace(line)
	first, _, _ := strings.Cut(trimmed, " ")
	if statementKeywords[first] {
		return replHeader + trimmed + "\nreturn 0; } }\n", 0
	}
	trimmed = strings.TrimSuffix(trimmed, ";")
	return replHeader + replReturn + trimmed + ";\n} }\n", len(replReturn)
}

// compileLine returns the VM body generated for one shell line. Error
// positions are mapped back onto the line as typed.
func compileLine(line string) (string, error) {
	src, offset := wrapLine(line)
	out, err := compiler.Compile(src, "Repl")
	if err != nil {
		var d *diag.Error
		if errors.As(err, &d) {
			d.File = ""
			if d.Line == 2 {
				d.Line = 1
				if d.Col > offset {
					d.Col -= offset
				}
			}
		}
		return "", err
	}
	_, body, _ := strings.Cut(out, "\n")
	return body, nil
}

// highlight colours a shell line token by token. Lines that do not lex
// are shown as typed.
func highlight(line []rune) string {
	tokens, err := compiler.Lex(string(line))
	if err != nil {
		return string(line)
	}

	var sb strings.Builder
	pos := 0
	for _, tok := range tokens {
		if tok.Type == compiler.EOF {
			break
		}
		start := tok.Col - 1
		if start > pos {
			sb.WriteString(string(line[pos:start]))
		}
		text := tok.Lexeme
		width := len([]rune(text))
		switch tok.Type {
		case compiler.KEYWORD:
			text = color.BlueString(text)
		case compiler.INT_CONST:
			text = color.MagentaString(text)
		case compiler.STRING_CONST:
			text = color.GreenString("%q", tok.Lexeme)
			width += 2
		}
		sb.WriteString(text)
		pos = start + width
	}
	if pos < len(line) {
		sb.WriteString(string(line[pos:]))
	}
	return sb.String()
}

func repl() {
	rl := readline.NewShell()
	rl.Prompt.Primary(func() string { return "jack> " })
	rl.SyntaxHighlighter = highlight

	fmt.Println("locals x, y, z (int) and a (Array) are predeclared; Ctrl-D quits")
	for {
		text, err := rl.Readline()
		if err == io.EOF {
			break
		} else if err != nil {
			fmt.Println(err)
			break
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		body, err := compileLine(text)
		if err != nil {
			diag.Report(os.Stdout, err)
			continue
		}
		fmt.Print(body)
	}
}
