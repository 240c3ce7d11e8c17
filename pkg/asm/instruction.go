package asm

import (
	"fmt"
	"strings"
)

// Instruction is one parsed line of Hack assembly.
type Instruction interface {
	instruction()
	String() string
}

// AInstruction loads a constant or a symbol's address into A.
//
//	@21        AInstruction{Value: 21}
//	@LOOP      AInstruction{Symbol: "LOOP", IsSymbol: true}
type AInstruction struct {
	Symbol   string
	Value    uint16
	IsSymbol bool
}

func (AInstruction) instruction() {}
func (a AInstruction) String() string {
	if a.IsSymbol {
		return "@" + a.Symbol
	}
	return fmt.Sprintf("@%d", a.Value)
}

// CInstruction is dest=comp;jump. Dest and Jump may be empty.
type CInstruction struct {
	Dest string
	Comp string
	Jump string
}

func (CInstruction) instruction() {}
func (c CInstruction) String() string {
	s := c.Comp
	if c.Dest != "" {
		s = c.Dest + "=" + s
	}
	if c.Jump != "" {
		s += ";" + c.Jump
	}
	return s
}

// LabelInstruction marks the address of the next real instruction. It emits
// no code.
type LabelInstruction struct {
	Symbol string
}

func (LabelInstruction) instruction()     {}
func (l LabelInstruction) String() string { return "(" + l.Symbol + ")" }

// At is shorthand for an A-instruction referring to a symbol.
func At(symbol string) AInstruction {
	return AInstruction{Symbol: symbol, IsSymbol: true}
}

// Const is shorthand for an A-instruction loading a literal.
func Const(v uint16) AInstruction {
	return AInstruction{Value: v}
}

// C is shorthand for a compute instruction.
func C(dest, comp, jump string) CInstruction {
	return CInstruction{Dest: dest, Comp: comp, Jump: jump}
}

// Label is shorthand for a label pseudo-instruction.
func Label(symbol string) LabelInstruction {
	return LabelInstruction{Symbol: symbol}
}

// Format renders instructions as newline-separated assembly text. Labels sit
// in column zero, everything else is indented.
func Format(instrs []Instruction) string {
	var sb strings.Builder
	for _, in := range instrs {
		if _, ok := in.(LabelInstruction); !ok {
			sb.WriteString("    ")
		}
		sb.WriteString(in.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
