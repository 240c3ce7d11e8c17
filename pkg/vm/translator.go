package vm

import (
	"fmt"
	"strconv"

	"hackchain/pkg/asm"
	"hackchain/pkg/diag"
	"hackchain/pkg/hack"
)

// Translator turns VM commands into Hack assembly. It carries the current
// file name (for static symbols), the enclosing function (for label scoping)
// and a counter that keeps generated labels unique within one program.
type Translator struct {
	file     string
	function string
	counter  int
}

const (
	frameReg  = "R13"
	returnReg = "R14"
	stackBase = 256

	// DefaultEntry is the function the bootstrap preamble calls.
	DefaultEntry = "Sys.init"
)

var baseSymbols = map[Segment]string{
	Local:    "LCL",
	Argument: "ARG",
	This:     "THIS",
	That:     "THAT",
}

var binaryComp = map[ArithOp]string{
	Add: "D+M",
	Sub: "M-D",
	And: "D&M",
	Or:  "D|M",
}

var compareJump = map[ArithOp]string{
	Eq: "JEQ",
	Gt: "JGT",
	Lt: "JLT",
}

func NewTranslator(file string) *Translator {
	return &Translator{file: file}
}

// SetFile switches to a new source unit. The label counter carries over so
// labels stay unique across files.
func (t *Translator) SetFile(name string) {
	t.file = name
	t.function = ""
}

// Translate returns the assembly for a single command.
func (t *Translator) Translate(cmd Command) ([]asm.Instruction, error) {
	switch c := cmd.(type) {
	case Arithmetic:
		return t.arithmetic(c.Op)
	case Push:
		return t.push(c.Segment, c.Index)
	case Pop:
		return t.pop(c.Segment, c.Index)
	case Label:
		return []asm.Instruction{asm.Label(t.scoped(c.Name))}, nil
	case Goto:
		return []asm.Instruction{asm.At(t.scoped(c.Name)), asm.C("", "0", "JMP")}, nil
	case IfGoto:
		out := popD()
		return append(out, asm.At(t.scoped(c.Name)), asm.C("", "D", "JNE")), nil
	case Function:
		return t.declare(c.Name, c.Locals), nil
	case Call:
		return t.call(c.Name, c.Args), nil
	case Return:
		return t.ret(), nil
	}
	return nil, fmt.Errorf("unsupported VM command %T", cmd)
}

// Bootstrap sets SP to 256, LCL/ARG/THIS/THAT to -1..-4 and calls entry.
// The fixed pointers keep whatever RAM held before out of the entry frame.
func (t *Translator) Bootstrap(entry string) []asm.Instruction {
	if entry == "" {
		entry = DefaultEntry
	}
	out := []asm.Instruction{
		asm.Const(stackBase), asm.C("D", "A", ""),
		asm.At("SP"), asm.C("M", "D", ""),
		asm.C("D", "-1", ""),
		asm.At("LCL"), asm.C("M", "D", ""),
		asm.C("D", "D-1", ""),
		asm.At("ARG"), asm.C("M", "D", ""),
		asm.C("D", "D-1", ""),
		asm.At("THIS"), asm.C("M", "D", ""),
		asm.C("D", "D-1", ""),
		asm.At("THAT"), asm.C("M", "D", ""),
	}
	saved := t.function
	t.function = "bootstrap"
	out = append(out, t.call(entry, 0)...)
	t.function = saved
	return out
}

func (t *Translator) scope() string {
	if t.function != "" {
		return t.function
	}
	return t.file
}

func (t *Translator) scoped(label string) string {
	return t.scope() + "$" + label
}

func (t *Translator) unique(kind string) string {
	n := t.counter
	t.counter++
	return t.scope() + "$" + kind + "." + strconv.Itoa(n)
}

// pushD pushes the D register.
func pushD() []asm.Instruction {
	return []asm.Instruction{
		asm.At("SP"), asm.C("M", "M+1", ""),
		asm.C("A", "M-1", ""), asm.C("M", "D", ""),
	}
}

// popD pops the top of stack into D.
func popD() []asm.Instruction {
	return []asm.Instruction{asm.At("SP"), asm.C("AM", "M-1", ""), asm.C("D", "M", "")}
}

func (t *Translator) arithmetic(op ArithOp) ([]asm.Instruction, error) {
	switch op {
	case Neg, Not:
		comp := "-M"
		if op == Not {
			comp = "!M"
		}
		return []asm.Instruction{asm.At("SP"), asm.C("A", "M-1", ""), asm.C("M", comp, "")}, nil
	}

	// y in D, A pointing at x.
	out := append(popD(), asm.C("A", "A-1", ""))

	if comp, ok := binaryComp[op]; ok {
		return append(out, asm.C("M", comp, "")), nil
	}
	if jump, ok := compareJump[op]; ok {
		done := t.unique("cmp")
		return append(out,
			asm.C("D", "M-D", ""),
			asm.C("M", "-1", ""),
			asm.At(done), asm.C("", "D", jump),
			asm.At("SP"), asm.C("A", "M-1", ""), asm.C("M", "0", ""),
			asm.Label(done),
		), nil
	}
	return nil, fmt.Errorf("unsupported arithmetic op %v", op)
}

func (t *Translator) push(seg Segment, idx int) ([]asm.Instruction, error) {
	if err := checkAccess(seg, idx, false, 0, Push{seg, idx}.String()); err != nil {
		return nil, err
	}
	var out []asm.Instruction
	switch seg {
	case Constant:
		if idx > int(hack.MaxAddress) {
			return nil, diag.Semantic(0, 0, Push{seg, idx}.String(), "constant %d out of range", idx)
		}
		out = []asm.Instruction{asm.Const(uint16(idx)), asm.C("D", "A", "")}
	case Local, Argument, This, That:
		out = []asm.Instruction{
			asm.At(baseSymbols[seg]), asm.C("D", "M", ""),
			asm.Const(uint16(idx)), asm.C("A", "D+A", ""), asm.C("D", "M", ""),
		}
	default:
		addr, err := t.fixedAddress(seg, idx)
		if err != nil {
			return nil, err
		}
		out = []asm.Instruction{addr, asm.C("D", "M", "")}
	}
	return append(out, pushD()...), nil
}

func (t *Translator) pop(seg Segment, idx int) ([]asm.Instruction, error) {
	if err := checkAccess(seg, idx, true, 0, Pop{seg, idx}.String()); err != nil {
		return nil, err
	}
	switch seg {
	case Local, Argument, This, That:
		out := []asm.Instruction{
			asm.At(baseSymbols[seg]), asm.C("D", "M", ""),
			asm.Const(uint16(idx)), asm.C("D", "D+A", ""),
			asm.At(frameReg), asm.C("M", "D", ""),
		}
		out = append(out, popD()...)
		return append(out, asm.At(frameReg), asm.C("A", "M", ""), asm.C("M", "D", "")), nil
	}
	addr, err := t.fixedAddress(seg, idx)
	if err != nil {
		return nil, err
	}
	return append(popD(), addr, asm.C("M", "D", "")), nil
}

// fixedAddress resolves segments whose cells live at assemble-time addresses.
func (t *Translator) fixedAddress(seg Segment, idx int) (asm.AInstruction, error) {
	switch seg {
	case Static:
		if t.file == "" {
			return asm.AInstruction{}, diag.Semantic(0, 0, "", "static access outside a named file")
		}
		return asm.At(t.file + "." + strconv.Itoa(idx)), nil
	case Pointer:
		if idx == 0 {
			return asm.At("THIS"), nil
		}
		return asm.At("THAT"), nil
	case Temp:
		return asm.At("R" + strconv.Itoa(5+idx)), nil
	}
	return asm.AInstruction{}, fmt.Errorf("segment %v has no fixed address", seg)
}

func (t *Translator) declare(name string, locals int) []asm.Instruction {
	t.function = name
	out := []asm.Instruction{asm.Label(name)}
	for range locals {
		out = append(out,
			asm.At("SP"), asm.C("M", "M+1", ""),
			asm.C("A", "M-1", ""), asm.C("M", "0", ""),
		)
	}
	return out
}

// call saves the caller frame, repositions ARG and LCL and jumps to name.
func (t *Translator) call(name string, args int) []asm.Instruction {
	ret := t.unique("ret")

	out := []asm.Instruction{asm.At(ret), asm.C("D", "A", "")}
	out = append(out, pushD()...)
	for _, reg := range []string{"LCL", "ARG", "THIS", "THAT"} {
		out = append(out, asm.At(reg), asm.C("D", "M", ""))
		out = append(out, pushD()...)
	}
	out = append(out,
		// ARG = SP - args - 5
		asm.At("SP"), asm.C("D", "M", ""),
		asm.Const(uint16(args+5)), asm.C("D", "D-A", ""),
		asm.At("ARG"), asm.C("M", "D", ""),
		// LCL = SP
		asm.At("SP"), asm.C("D", "M", ""),
		asm.At("LCL"), asm.C("M", "D", ""),
		asm.At(name), asm.C("", "0", "JMP"),
		asm.Label(ret),
	)
	return out
}

// ret unwinds the current frame. The return address is read before the
// return value is stored because *ARG may alias it when args == 0.
func (t *Translator) ret() []asm.Instruction {
	out := []asm.Instruction{
		asm.At("LCL"), asm.C("D", "M", ""),
		asm.At(frameReg), asm.C("M", "D", ""),
		asm.Const(5), asm.C("A", "D-A", ""), asm.C("D", "M", ""),
		asm.At(returnReg), asm.C("M", "D", ""),
	}
	out = append(out, popD()...)
	out = append(out,
		asm.At("ARG"), asm.C("A", "M", ""), asm.C("M", "D", ""),
		asm.At("ARG"), asm.C("D", "M+1", ""),
		asm.At("SP"), asm.C("M", "D", ""),
	)
	for _, reg := range []string{"THAT", "THIS", "ARG", "LCL"} {
		out = append(out,
			asm.At(frameReg), asm.C("AM", "M-1", ""), asm.C("D", "M", ""),
			asm.At(reg), asm.C("M", "D", ""),
		)
	}
	return append(out, asm.At(returnReg), asm.C("A", "M", ""), asm.C("", "0", "JMP"))
}
