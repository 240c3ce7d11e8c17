package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"hackchain/pkg/diag"
)

// Parser consumes the flat token slice produced by the Lexer and builds a
// Class AST with one token of lookahead.
//
// Grammar:
//
//	class          = "class" IDENT "{" classVarDec* subroutineDec* "}" EOF
//	classVarDec    = ("static" | "field") type IDENT ("," IDENT)* ";"
//	type           = "int" | "char" | "boolean" | IDENT
//	subroutineDec  = ("constructor" | "function" | "method") ("void" | type) IDENT
//	                 "(" parameterList ")" subroutineBody
//	parameterList  = (type IDENT ("," type IDENT)*)?
//	subroutineBody = "{" varDec* statement* "}"
//	varDec         = "var" type IDENT ("," IDENT)* ";"
//	statement      = let | if | while | do | return
//	let            = "let" IDENT ("[" expression "]")? "=" expression ";"
//	if             = "if" "(" expression ")" "{" statement* "}" ("else" "{" statement* "}")?
//	while          = "while" "(" expression ")" "{" statement* "}"
//	do             = "do" subroutineCall ";"
//	return         = "return" expression? ";"
//	expression     = term (op term)*
//	term           = INT | STRING | "true" | "false" | "null" | "this"
//	               | IDENT | IDENT "[" expression "]" | subroutineCall
//	               | "(" expression ")" | ("-" | "~") term
//	subroutineCall = IDENT "(" expressionList ")" | IDENT "." IDENT "(" expressionList ")"
type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string
}

func NewParser(tokens []Token, rawSource string) *Parser {
	return &Parser{tokens: tokens, sourceLines: strings.Split(rawSource, "\n")}
}

// fmtError builds a syntax error carrying the offending token and the
// source line it sits on.
func (p *Parser) fmtError(tok Token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	lineIdx := tok.Line - 1

	snippet := "<source unavailable>"
	if lineIdx >= 0 && lineIdx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[lineIdx])
	}

	frag := tok.Lexeme
	if tok.Type == EOF {
		frag = "<EOF>"
	}
	return diag.Syntax(tok.Line, tok.Col, frag, "%s\n  |> %s", msg, snippet)
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

// peekNext returns the token immediately after the current one.
func (p *Parser) peekNext() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos+1]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func describe(tok Token) string {
	if tok.Type == EOF {
		return "end of input"
	}
	return fmt.Sprintf("%s %q", tok.Type, tok.Lexeme)
}

// expect consumes the current token if it is the given keyword or symbol.
func (p *Parser) expect(tt TokenType, lexeme string) (Token, error) {
	tok := p.advance()
	if !tok.Is(tt, lexeme) {
		return tok, p.fmtError(tok, "expected %q, got %s", lexeme, describe(tok))
	}
	return tok, nil
}

func (p *Parser) expectSymbol(s string) error {
	_, err := p.expect(SYMBOL, s)
	return err
}

func (p *Parser) expectIdent() (Token, error) {
	tok := p.advance()
	if tok.Type != IDENTIFIER {
		return tok, p.fmtError(tok, "expected identifier, got %s", describe(tok))
	}
	return tok, nil
}

func (p *Parser) atSymbol(s string) bool { return p.peek().Is(SYMBOL, s) }

// parseType accepts a primitive type keyword or a class name.
func (p *Parser) parseType(allowVoid bool) (string, error) {
	tok := p.advance()
	switch {
	case tok.Type == IDENTIFIER:
		return tok.Lexeme, nil
	case tok.Type == KEYWORD && (tok.Lexeme == "int" || tok.Lexeme == "char" || tok.Lexeme == "boolean"):
		return tok.Lexeme, nil
	case allowVoid && tok.Is(KEYWORD, "void"):
		return tok.Lexeme, nil
	}
	return "", p.fmtError(tok, "expected type, got %s", describe(tok))
}

// parseNameList parses IDENT ("," IDENT)* ";".
func (p *Parser) parseNameList() ([]string, error) {
	var names []string
	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		names = append(names, name.Lexeme)
		if !p.atSymbol(",") {
			break
		}
		p.advance()
	}
	return names, p.expectSymbol(";")
}

func (p *Parser) parseClass() (*Class, error) {
	if _, err := p.expect(KEYWORD, "class"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	class := &Class{Name: name.Lexeme}

	for p.peek().Is(KEYWORD, "static") || p.peek().Is(KEYWORD, "field") {
		dec, err := p.parseClassVarDec()
		if err != nil {
			return nil, err
		}
		class.Vars = append(class.Vars, dec)
	}

	for {
		tok := p.peek()
		if tok.Type != KEYWORD {
			break
		}
		if tok.Lexeme != "constructor" && tok.Lexeme != "function" && tok.Lexeme != "method" {
			break
		}
		sub, err := p.parseSubroutineDec()
		if err != nil {
			return nil, err
		}
		class.Subroutines = append(class.Subroutines, sub)
	}

	if err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != EOF {
		return nil, p.fmtError(tok, "unexpected %s after end of class", describe(tok))
	}
	return class, nil
}

func (p *Parser) parseClassVarDec() (*ClassVarDec, error) {
	kw := p.advance()
	kind := Static
	if kw.Lexeme == "field" {
		kind = Field
	}
	typ, err := p.parseType(false)
	if err != nil {
		return nil, err
	}
	names, err := p.parseNameList()
	if err != nil {
		return nil, err
	}
	return &ClassVarDec{Kind: kind, Type: typ, Names: names, Line: kw.Line}, nil
}

func (p *Parser) parseSubroutineDec() (*SubroutineDec, error) {
	kw := p.advance()
	ret, err := p.parseType(true)
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	params, err := p.parseParameterList()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	body, err := p.parseSubroutineBody()
	if err != nil {
		return nil, err
	}
	return &SubroutineDec{
		Kind:       SubroutineKind(kw.Lexeme),
		ReturnType: ret,
		Name:       name.Lexeme,
		Params:     params,
		Body:       body,
		Line:       kw.Line,
	}, nil
}

func (p *Parser) parseParameterList() ([]Parameter, error) {
	var params []Parameter
	if p.atSymbol(")") {
		return params, nil
	}
	for {
		typ, err := p.parseType(false)
		if err != nil {
			return nil, err
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		params = append(params, Parameter{Type: typ, Name: name.Lexeme})
		if !p.atSymbol(",") {
			return params, nil
		}
		p.advance()
	}
}

func (p *Parser) parseSubroutineBody() (*SubroutineBody, error) {
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	body := &SubroutineBody{}
	for p.peek().Is(KEYWORD, "var") {
		kw := p.advance()
		typ, err := p.parseType(false)
		if err != nil {
			return nil, err
		}
		names, err := p.parseNameList()
		if err != nil {
			return nil, err
		}
		body.Vars = append(body.Vars, &VarDec{Type: typ, Names: names, Line: kw.Line})
	}
	stmts, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	body.Statements = stmts
	return body, p.expectSymbol("}")
}

// parseStatements reads statements up to, but not including, the closing
// brace of the enclosing block.
func (p *Parser) parseStatements() ([]Stmt, error) {
	var stmts []Stmt
	for !p.atSymbol("}") {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

func (p *Parser) parseStatement() (Stmt, error) {
	tok := p.peek()
	if tok.Type == KEYWORD {
		switch tok.Lexeme {
		case "let":
			return p.parseLet()
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "do":
			return p.parseDo()
		case "return":
			return p.parseReturn()
		}
	}
	return nil, p.fmtError(tok, "expected statement, got %s", describe(tok))
}

func (p *Parser) parseLet() (Stmt, error) {
	p.advance() // let
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	s := &LetStmt{Name: name.Lexeme, Line: name.Line, Col: name.Col}
	if p.atSymbol("[") {
		p.advance()
		if s.Index, err = p.parseExpression(); err != nil {
			return nil, err
		}
		if err := p.expectSymbol("]"); err != nil {
			return nil, err
		}
	}
	if err := p.expectSymbol("="); err != nil {
		return nil, err
	}
	if s.Value, err = p.parseExpression(); err != nil {
		return nil, err
	}
	return s, p.expectSymbol(";")
}

// parseCondBlock parses "(" expression ")" "{" statements "}".
func (p *Parser) parseCondBlock() (*Expression, []Stmt, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, nil, err
	}
	block, err := p.parseBlock()
	return cond, block, err
}

func (p *Parser) parseBlock() ([]Stmt, error) {
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	stmts, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	return stmts, p.expectSymbol("}")
}

func (p *Parser) parseIf() (Stmt, error) {
	p.advance() // if
	cond, then, err := p.parseCondBlock()
	if err != nil {
		return nil, err
	}
	s := &IfStmt{Cond: cond, Then: then}
	if p.peek().Is(KEYWORD, "else") {
		p.advance()
		els, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		if els == nil {
			els = []Stmt{}
		}
		s.Else = els
	}
	return s, nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	p.advance() // while
	cond, body, err := p.parseCondBlock()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Cond: cond, Body: body}, nil
}

func (p *Parser) parseDo() (Stmt, error) {
	p.advance() // do
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	call, err := p.parseCall(name)
	if err != nil {
		return nil, err
	}
	return &DoStmt{Call: call}, p.expectSymbol(";")
}

func (p *Parser) parseReturn() (Stmt, error) {
	p.advance() // return
	s := &ReturnStmt{}
	if !p.atSymbol(";") {
		v, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		s.Value = v
	}
	return s, p.expectSymbol(";")
}

func isBinaryOp(tok Token) bool {
	return tok.Type == SYMBOL && strings.Contains("+-*/&|<>=", tok.Lexeme)
}

// parseExpression collects the head term and every following operator/term
// pair without applying precedence.
func (p *Parser) parseExpression() (*Expression, error) {
	head, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	expr := &Expression{Head: head}
	for isBinaryOp(p.peek()) {
		op := p.advance().Lexeme[0]
		t, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		expr.Tail = append(expr.Tail, OpTerm{Op: op, Term: t})
	}
	return expr, nil
}

func (p *Parser) parseTerm() (Term, error) {
	tok := p.advance()
	switch tok.Type {
	case INT_CONST:
		v, err := strconv.Atoi(tok.Lexeme)
		if err != nil {
			return nil, p.fmtError(tok, "invalid integer constant")
		}
		return &IntegerLiteral{Value: v}, nil

	case STRING_CONST:
		return &StringLiteral{Value: tok.Lexeme}, nil

	case KEYWORD:
		switch tok.Lexeme {
		case "true", "false", "null", "this":
			return &KeywordLiteral{Value: tok.Lexeme, Line: tok.Line, Col: tok.Col}, nil
		}

	case SYMBOL:
		switch tok.Lexeme {
		case "(":
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			return &ParenExpr{Expr: e}, p.expectSymbol(")")
		case "-", "~":
			t, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			return &UnaryOp{Op: tok.Lexeme[0], Term: t}, nil
		}

	case IDENTIFIER:
		next := p.peek()
		switch {
		case next.Is(SYMBOL, "(") || next.Is(SYMBOL, "."):
			return p.parseCall(tok)
		case next.Is(SYMBOL, "["):
			p.advance()
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			ref := &VarRef{Name: tok.Lexeme, Index: idx, Line: tok.Line, Col: tok.Col}
			return ref, p.expectSymbol("]")
		}
		return &VarRef{Name: tok.Lexeme, Line: tok.Line, Col: tok.Col}, nil
	}
	return nil, p.fmtError(tok, "expected term, got %s", describe(tok))
}

// parseCall parses the rest of a subroutine call whose first identifier
// has already been consumed.
func (p *Parser) parseCall(first Token) (*SubroutineCall, error) {
	call := &SubroutineCall{Name: first.Lexeme, Line: first.Line, Col: first.Col}
	if p.atSymbol(".") {
		p.advance()
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		call.Context = first.Lexeme
		call.Name = name.Lexeme
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	if !p.atSymbol(")") {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if !p.atSymbol(",") {
				break
			}
			p.advance()
		}
	}
	return call, p.expectSymbol(")")
}

// Parse builds the Class AST for one compilation unit. rawSource is only
// used to quote the offending line in errors.
func Parse(tokens []Token, rawSource string) (*Class, error) {
	return NewParser(tokens, rawSource).parseClass()
}
