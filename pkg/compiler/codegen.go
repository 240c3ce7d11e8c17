package compiler

import (
	"fmt"
	"iter"
	"slices"

	"hackchain/pkg/diag"
	"hackchain/pkg/vm"
)

// CodeGen lowers one Class to VM commands. Every subroutine is checked when
// the CodeGen is built, so iterating a Routine afterwards cannot fail.
type CodeGen struct {
	class    *Class
	routines []*Routine
}

// Routine is the code for a single subroutine.
type Routine struct {
	class   string
	dec     *SubroutineDec
	fields  int
	symbols *SymbolTable
}

func NewCodeGen(class *Class) (*CodeGen, error) {
	g := &CodeGen{class: class}
	for _, dec := range class.Subroutines {
		st, err := routineSymbols(class, dec)
		if err != nil {
			return nil, err
		}
		r := &Routine{class: class.Name, dec: dec, fields: st.VarCount(Field), symbols: st}
		if err := r.run(func(vm.Command) bool { return true }); err != nil {
			return nil, err
		}
		g.routines = append(g.routines, r)
	}
	return g, nil
}

// routineSymbols builds the table visible inside dec: the class scope plus
// its arguments and locals.
func routineSymbols(class *Class, dec *SubroutineDec) (*SymbolTable, error) {
	st := NewSymbolTable()
	for _, v := range class.Vars {
		for _, name := range v.Names {
			if _, err := st.Define(name, v.Type, v.Kind); err != nil {
				return nil, atLine(err, v.Line)
			}
		}
	}
	st.StartSubroutine()
	if dec.Kind == Method {
		if _, err := st.Define("this", class.Name, Argument); err != nil {
			return nil, atLine(err, dec.Line)
		}
	}
	for _, p := range dec.Params {
		if _, err := st.Define(p.Name, p.Type, Argument); err != nil {
			return nil, atLine(err, dec.Line)
		}
	}
	for _, v := range dec.Body.Vars {
		for _, name := range v.Names {
			if _, err := st.Define(name, v.Type, Local); err != nil {
				return nil, atLine(err, v.Line)
			}
		}
	}
	return st, nil
}

func atLine(err error, line int) error {
	if d, ok := err.(*diag.Error); ok && d.Line == 0 {
		d.Line = line
	}
	return err
}

func (g *CodeGen) Routines() []*Routine { return g.routines }

// Commands concatenates every routine in declaration order.
func (g *CodeGen) Commands() iter.Seq[vm.Command] {
	return func(yield func(vm.Command) bool) {
		for _, r := range g.routines {
			for c := range r.Commands() {
				if !yield(c) {
					return
				}
			}
		}
	}
}

// Text renders every routine as VM source.
func (g *CodeGen) Text() string {
	return vm.Format(slices.Collect(g.Commands()))
}

// Name is the qualified VM function name, e.g. Main.main.
func (r *Routine) Name() string { return r.class + "." + r.dec.Name }

func (r *Routine) Symbols() []Symbol { return r.symbols.Symbols() }

// Commands yields the routine's VM code. Each range over the sequence
// starts from the beginning and produces the same commands.
func (r *Routine) Commands() iter.Seq[vm.Command] {
	return func(yield func(vm.Command) bool) {
		_ = r.run(yield)
	}
}

func (r *Routine) run(yield func(vm.Command) bool) error {
	e := &emitter{r: r, yield: yield}
	e.subroutine()
	return e.err
}

// emitter walks one subroutine, handing commands to yield until it
// declines or an error is recorded.
type emitter struct {
	r       *Routine
	yield   func(vm.Command) bool
	stopped bool
	err     error
	labels  int
}

func (e *emitter) emit(cmds ...vm.Command) {
	for _, c := range cmds {
		if e.stopped {
			return
		}
		if !e.yield(c) {
			e.stopped = true
		}
	}
}

func (e *emitter) fail(err error) {
	if e.err == nil {
		e.err = err
	}
	e.stopped = true
}

func (e *emitter) nextLabel() int {
	n := e.labels
	e.labels++
	return n
}

func push(seg vm.Segment, i int) vm.Command { return vm.Push{Segment: seg, Index: i} }
func pop(seg vm.Segment, i int) vm.Command  { return vm.Pop{Segment: seg, Index: i} }
func arith(op vm.ArithOp) vm.Command        { return vm.Arithmetic{Op: op} }

func (e *emitter) subroutine() {
	dec := e.r.dec
	e.emit(vm.Function{Name: e.r.Name(), Locals: dec.Body.LocalCount()})
	switch dec.Kind {
	case Constructor:
		e.emit(
			push(vm.Constant, e.r.fields),
			vm.Call{Name: "Memory.alloc", Args: 1},
			pop(vm.Pointer, 0),
		)
	case Method:
		e.emit(push(vm.Argument, 0), pop(vm.Pointer, 0))
	}
	e.statements(dec.Body.Statements)
}

func (e *emitter) statements(stmts []Stmt) {
	for _, s := range stmts {
		if e.stopped {
			return
		}
		e.statement(s)
	}
}

func (e *emitter) statement(s Stmt) {
	switch s := s.(type) {
	case *LetStmt:
		e.let(s)

	case *IfStmt:
		n := e.nextLabel()
		elseLabel := fmt.Sprintf("IF_ELSE%d", n)
		endLabel := fmt.Sprintf("IF_END%d", n)
		e.expression(s.Cond)
		e.emit(arith(vm.Not), vm.IfGoto{Name: elseLabel})
		e.statements(s.Then)
		e.emit(vm.Goto{Name: endLabel}, vm.Label{Name: elseLabel})
		e.statements(s.Else)
		e.emit(vm.Label{Name: endLabel})

	case *WhileStmt:
		n := e.nextLabel()
		top := fmt.Sprintf("WHILE_EXP%d", n)
		end := fmt.Sprintf("WHILE_END%d", n)
		e.emit(vm.Label{Name: top})
		e.expression(s.Cond)
		e.emit(arith(vm.Not), vm.IfGoto{Name: end})
		e.statements(s.Body)
		e.emit(vm.Goto{Name: top}, vm.Label{Name: end})

	case *DoStmt:
		e.call(s.Call)
		e.emit(pop(vm.Temp, 0))

	case *ReturnStmt:
		if s.Value != nil {
			e.expression(s.Value)
		} else {
			e.emit(push(vm.Constant, 0))
		}
		e.emit(vm.Return{})
	}
}

// let stacks the value before the target address, so a value that reads
// an array cannot move pointer 1 between setting it and the store.
func (e *emitter) let(s *LetStmt) {
	sym, ok := e.resolve(s.Name, s.Line, s.Col)
	if !ok {
		return
	}
	e.expression(s.Value)
	if s.Index == nil {
		e.emit(pop(sym.Kind.Segment(), sym.Index))
		return
	}
	e.emit(push(sym.Kind.Segment(), sym.Index))
	e.expression(s.Index)
	e.emit(arith(vm.Add), pop(vm.Pointer, 1), pop(vm.That, 0))
}

// resolve looks a variable up and rejects field access from a function,
// which has no current object.
func (e *emitter) resolve(name string, line, col int) (Symbol, bool) {
	sym, ok := e.r.symbols.Lookup(name)
	if !ok {
		e.fail(diag.Semantic(line, col, name, "undefined variable %q in %s", name, e.r.Name()))
		return Symbol{}, false
	}
	if sym.Kind == Field && e.r.dec.Kind == Function {
		e.fail(diag.Semantic(line, col, name, "field %q used in function %s", name, e.r.Name()))
		return Symbol{}, false
	}
	return sym, true
}

var binaryOps = map[byte]vm.Command{
	'+': arith(vm.Add),
	'-': arith(vm.Sub),
	'&': arith(vm.And),
	'|': arith(vm.Or),
	'<': arith(vm.Lt),
	'>': arith(vm.Gt),
	'=': arith(vm.Eq),
	'*': vm.Call{Name: "Math.multiply", Args: 2},
	'/': vm.Call{Name: "Math.divide", Args: 2},
}

// expression folds left to right: each operator applies as soon as its
// right-hand term is on the stack.
func (e *emitter) expression(x *Expression) {
	e.term(x.Head)
	for _, ot := range x.Tail {
		e.term(ot.Term)
		e.emit(binaryOps[ot.Op])
	}
}

func (e *emitter) term(t Term) {
	switch t := t.(type) {
	case *IntegerLiteral:
		e.emit(push(vm.Constant, t.Value))

	case *StringLiteral:
		e.emit(push(vm.Constant, len(t.Value)), vm.Call{Name: "String.new", Args: 1})
		for _, ch := range []byte(t.Value) {
			e.emit(push(vm.Constant, int(ch)), vm.Call{Name: "String.appendChar", Args: 2})
		}

	case *KeywordLiteral:
		switch t.Value {
		case "true":
			e.emit(push(vm.Constant, 1), arith(vm.Neg))
		case "this":
			if e.r.dec.Kind == Function {
				e.fail(diag.Semantic(t.Line, t.Col, "this", "this used in function %s", e.r.Name()))
				return
			}
			e.emit(push(vm.Pointer, 0))
		default:
			e.emit(push(vm.Constant, 0))
		}

	case *VarRef:
		sym, ok := e.resolve(t.Name, t.Line, t.Col)
		if !ok {
			return
		}
		e.emit(push(sym.Kind.Segment(), sym.Index))
		if t.Index != nil {
			e.expression(t.Index)
			e.emit(arith(vm.Add), pop(vm.Pointer, 1), push(vm.That, 0))
		}

	case *SubroutineCall:
		e.call(t)

	case *ParenExpr:
		e.expression(t.Expr)

	case *UnaryOp:
		e.term(t.Term)
		if t.Op == '-' {
			e.emit(arith(vm.Neg))
		} else {
			e.emit(arith(vm.Not))
		}
	}
}

// call lowers a qualified call. A qualifier naming a variable is a method
// call on that object; anything else is taken as a class name.
func (e *emitter) call(c *SubroutineCall) {
	if c.Context == "" {
		e.fail(diag.Semantic(c.Line, c.Col, c.Name, "call to %s() has no object or class qualifier", c.Name))
		return
	}
	args := len(c.Args)
	target := c.Context
	if sym, ok := e.r.symbols.Lookup(c.Context); ok {
		if sym.Kind == Field && e.r.dec.Kind == Function {
			e.fail(diag.Semantic(c.Line, c.Col, c.Context, "field %q used in function %s", c.Context, e.r.Name()))
			return
		}
		e.emit(push(sym.Kind.Segment(), sym.Index))
		target = sym.Type
		args++
	}
	for _, a := range c.Args {
		e.expression(a)
	}
	e.emit(vm.Call{Name: target + "." + c.Name, Args: args})
}

// Generate lowers class and collects every routine's commands.
func Generate(class *Class) ([]vm.Command, error) {
	g, err := NewCodeGen(class)
	if err != nil {
		return nil, err
	}
	return slices.Collect(g.Commands()), nil
}
