// Package vm models the stack-machine intermediate language and translates
// it to Hack assembly.
package vm

import "fmt"

// Segment is one of the eight virtual memory regions.
type Segment int

const (
	Argument Segment = iota
	Local
	Static
	Constant
	This
	That
	Pointer
	Temp
)

var segmentNames = [...]string{
	Argument: "argument",
	Local:    "local",
	Static:   "static",
	Constant: "constant",
	This:     "this",
	That:     "that",
	Pointer:  "pointer",
	Temp:     "temp",
}

func (s Segment) String() string {
	if int(s) >= 0 && int(s) < len(segmentNames) {
		return segmentNames[s]
	}
	return fmt.Sprintf("Segment(%d)", int(s))
}

func ParseSegment(name string) (Segment, bool) {
	for i, n := range segmentNames {
		if n == name {
			return Segment(i), true
		}
	}
	return 0, false
}

// ArithOp is an arithmetic or logical stack operation.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Neg
	Eq
	Gt
	Lt
	And
	Or
	Not
)

var arithNames = [...]string{
	Add: "add",
	Sub: "sub",
	Neg: "neg",
	Eq:  "eq",
	Gt:  "gt",
	Lt:  "lt",
	And: "and",
	Or:  "or",
	Not: "not",
}

func (op ArithOp) String() string {
	if int(op) >= 0 && int(op) < len(arithNames) {
		return arithNames[op]
	}
	return fmt.Sprintf("ArithOp(%d)", int(op))
}

func ParseArithOp(name string) (ArithOp, bool) {
	for i, n := range arithNames {
		if n == name {
			return ArithOp(i), true
		}
	}
	return 0, false
}

// Unary reports whether op consumes a single stack cell.
func (op ArithOp) Unary() bool { return op == Neg || op == Not }

// Command is one VM instruction. String renders it in source form.
type Command interface {
	command()
	String() string
}

type Arithmetic struct {
	Op ArithOp
}

type Push struct {
	Segment Segment
	Index   int
}

type Pop struct {
	Segment Segment
	Index   int
}

type Label struct {
	Name string
}

type Goto struct {
	Name string
}

type IfGoto struct {
	Name string
}

type Function struct {
	Name   string
	Locals int
}

type Return struct{}

type Call struct {
	Name string
	Args int
}

func (Arithmetic) command() {}
func (Push) command()       {}
func (Pop) command()        {}
func (Label) command()      {}
func (Goto) command()       {}
func (IfGoto) command()     {}
func (Function) command()   {}
func (Return) command()     {}
func (Call) command()       {}

func (c Arithmetic) String() string { return c.Op.String() }
func (c Push) String() string       { return fmt.Sprintf("push %s %d", c.Segment, c.Index) }
func (c Pop) String() string        { return fmt.Sprintf("pop %s %d", c.Segment, c.Index) }
func (c Label) String() string      { return "label " + c.Name }
func (c Goto) String() string       { return "goto " + c.Name }
func (c IfGoto) String() string     { return "if-goto " + c.Name }
func (c Function) String() string   { return fmt.Sprintf("function %s %d", c.Name, c.Locals) }
func (Return) String() string       { return "return" }
func (c Call) String() string       { return fmt.Sprintf("call %s %d", c.Name, c.Args) }

// Format renders commands one per line.
func Format(cmds []Command) string {
	var out []byte
	for _, c := range cmds {
		out = append(out, c.String()...)
		out = append(out, '\n')
	}
	return string(out)
}
