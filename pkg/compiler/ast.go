package compiler

import (
	"fmt"
	"strings"
)

// SubroutineKind distinguishes the three subroutine flavours.
type SubroutineKind string

const (
	Constructor SubroutineKind = "constructor"
	Function    SubroutineKind = "function"
	Method      SubroutineKind = "method"
)

// Class is the root of one compilation unit.
//
//	class Main { field int x; function void main() { ... } }
type Class struct {
	Name        string
	Vars        []*ClassVarDec
	Subroutines []*SubroutineDec
}

// ClassVarDec declares one or more static or field variables.
type ClassVarDec struct {
	Kind  Kind // Static or Field
	Type  string
	Names []string
	Line  int
}

type Parameter struct {
	Type string
	Name string
}

type SubroutineDec struct {
	Kind       SubroutineKind
	ReturnType string // "void" or a type name
	Name       string
	Params     []Parameter
	Body       *SubroutineBody
	Line       int
}

type VarDec struct {
	Type  string
	Names []string
	Line  int
}

type SubroutineBody struct {
	Vars       []*VarDec
	Statements []Stmt
}

// LocalCount is the number of local variables the body declares.
func (b *SubroutineBody) LocalCount() int {
	n := 0
	for _, v := range b.Vars {
		n += len(v.Names)
	}
	return n
}

//  Statement nodes

// Stmt is implemented by the five statement kinds.
type Stmt interface {
	stmtNode()
	String() string
}

// LetStmt assigns to a variable or to an array element.
//
//	let a[i] = x + 1;
//	    ^ ^    ^^^^^
//	    | |    Value
//	    | Index
//	    Name
type LetStmt struct {
	Name  string
	Index *Expression // nil for a plain variable
	Value *Expression
	Line  int
	Col   int
}

type IfStmt struct {
	Cond *Expression
	Then []Stmt
	Else []Stmt // nil when there is no else branch
}

type WhileStmt struct {
	Cond *Expression
	Body []Stmt
}

type DoStmt struct {
	Call *SubroutineCall
}

type ReturnStmt struct {
	Value *Expression // nil for a bare return
}

func (*LetStmt) stmtNode()    {}
func (*IfStmt) stmtNode()     {}
func (*WhileStmt) stmtNode()  {}
func (*DoStmt) stmtNode()     {}
func (*ReturnStmt) stmtNode() {}

func (s *LetStmt) String() string {
	if s.Index != nil {
		return fmt.Sprintf("let %s[%s] = %s", s.Name, s.Index, s.Value)
	}
	return fmt.Sprintf("let %s = %s", s.Name, s.Value)
}

func (s *IfStmt) String() string {
	if s.Else != nil {
		return fmt.Sprintf("if (%s) {%d} else {%d}", s.Cond, len(s.Then), len(s.Else))
	}
	return fmt.Sprintf("if (%s) {%d}", s.Cond, len(s.Then))
}

func (s *WhileStmt) String() string { return fmt.Sprintf("while (%s) {%d}", s.Cond, len(s.Body)) }
func (s *DoStmt) String() string    { return "do " + s.Call.String() }

func (s *ReturnStmt) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.String()
}

//  Expressions

// Expression is a head term followed by operator/term pairs. There is no
// precedence: the pairs apply strictly left to right, so 1 + 2 * 3 is 9.
type Expression struct {
	Head Term
	Tail []OpTerm
}

// OpTerm is one binary operator with its right-hand term.
type OpTerm struct {
	Op   byte // one of + - * / & | < > =
	Term Term
}

func (e *Expression) String() string {
	var sb strings.Builder
	sb.WriteString(e.Head.String())
	for _, ot := range e.Tail {
		fmt.Fprintf(&sb, " %c %s", ot.Op, ot.Term)
	}
	return sb.String()
}

// Term is implemented by every operand node.
type Term interface {
	termNode()
	String() string
}

type IntegerLiteral struct {
	Value int
}

type StringLiteral struct {
	Value string
}

// KeywordLiteral is one of true, false, null or this.
type KeywordLiteral struct {
	Value string
	Line  int
	Col   int
}

// VarRef reads a variable, or one element of it when Index is set.
type VarRef struct {
	Name  string
	Index *Expression
	Line  int
	Col   int
}

// SubroutineCall is name(args) or Context.name(args). Context is a class
// name or a variable name; it is empty for an unqualified call.
type SubroutineCall struct {
	Context string
	Name    string
	Args    []*Expression
	Line    int
	Col     int
}

type ParenExpr struct {
	Expr *Expression
}

// UnaryOp is -term or ~term.
type UnaryOp struct {
	Op   byte
	Term Term
}

func (*IntegerLiteral) termNode() {}
func (*StringLiteral) termNode()  {}
func (*KeywordLiteral) termNode() {}
func (*VarRef) termNode()         {}
func (*SubroutineCall) termNode() {}
func (*ParenExpr) termNode()      {}
func (*UnaryOp) termNode()        {}

func (t *IntegerLiteral) String() string { return fmt.Sprintf("%d", t.Value) }
func (t *StringLiteral) String() string  { return fmt.Sprintf("%q", t.Value) }
func (t *KeywordLiteral) String() string { return t.Value }
func (t *ParenExpr) String() string      { return "(" + t.Expr.String() + ")" }
func (t *UnaryOp) String() string        { return string(t.Op) + t.Term.String() }

func (t *VarRef) String() string {
	if t.Index != nil {
		return fmt.Sprintf("%s[%s]", t.Name, t.Index)
	}
	return t.Name
}

func (t *SubroutineCall) String() string {
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	name := t.Name
	if t.Context != "" {
		name = t.Context + "." + name
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
}
