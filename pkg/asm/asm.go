// Package asm assembles Hack assembly text into 16-bit machine words.
//
// Assembly runs in two passes over the parsed instruction stream: the first
// fixes every label to the ROM address of the instruction that follows it,
// the second hands out RAM addresses (from 16 upward) to variables in order
// of first reference and encodes each instruction.
package asm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"hackchain/pkg/diag"
	"hackchain/pkg/hack"
)

const symbolPattern = `[A-Za-z_.$:][0-9A-Za-z_.$:]*`

var (
	labelLine   = regexp.MustCompile(`^\((` + symbolPattern + `)\)$`)
	addressLine = regexp.MustCompile(`^@(` + symbolPattern + `|[0-9]+)$`)
	computeLine = regexp.MustCompile(`^(?:([^=;]+)=)?([^=;]+)(?:;([^=;]+))?$`)
	digitsOnly  = regexp.MustCompile(`^[0-9]+$`)
)

// Line is a parsed instruction together with its 1-based source line.
type Line struct {
	Instr  Instruction
	LineNo int
}

// Labels maps every label to its ROM address. It is built once by
// ResolveLabels and only read afterwards.
type Labels map[string]uint16

type Assembler struct {
	labels Labels
	vars   *VariableAllocator
}

// Program is the result of one assembler run.
type Program struct {
	Words     []uint16
	SourceMap map[uint16]int    // ROM address -> source line (0 when unknown)
	Symbols   map[string]uint16 // labels and variables as resolved
}

func NewAssembler() *Assembler {
	return &Assembler{}
}

func Assemble(code string) (*Program, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) (*Program, error) {
	lines, err := Parse(code)
	if err != nil {
		return nil, err
	}
	return a.AssembleLines(lines)
}

// AssembleInstructions assembles an instruction stream that never went
// through text, e.g. straight out of the VM translator.
func (a *Assembler) AssembleInstructions(instrs []Instruction) (*Program, error) {
	lines := make([]Line, len(instrs))
	for i, in := range instrs {
		lines[i] = Line{Instr: in}
	}
	return a.AssembleLines(lines)
}

func (a *Assembler) AssembleLines(lines []Line) (*Program, error) {
	labels, err := ResolveLabels(lines)
	if err != nil {
		return nil, err
	}
	a.labels = labels
	a.vars = NewVariableAllocator(labels)

	return a.encode(lines)
}

// ResolveLabels is pass 1. A label's address is the number of A- and
// C-instructions before it; labels themselves do not occupy ROM.
func ResolveLabels(lines []Line) (Labels, error) {
	labels := make(Labels)
	var address uint32

	for _, l := range lines {
		switch in := l.Instr.(type) {
		case LabelInstruction:
			if _, exists := labels[in.Symbol]; exists {
				return nil, diag.Semantic(l.LineNo, 0, in.String(), "duplicate label %q", in.Symbol)
			}
			if _, fixed := hack.Predefined[in.Symbol]; fixed {
				return nil, diag.Semantic(l.LineNo, 0, in.String(), "label %q redefines a predefined symbol", in.Symbol)
			}
			labels[in.Symbol] = uint16(address)
		default:
			address++
			if address > hack.MemoryWords {
				return nil, diag.Semantic(l.LineNo, 0, l.Instr.String(), "program exceeds %d ROM words", hack.MemoryWords)
			}
		}
	}
	return labels, nil
}

// encode is pass 2.
func (a *Assembler) encode(lines []Line) (*Program, error) {
	prog := &Program{
		Words:     make([]uint16, 0, len(lines)),
		SourceMap: make(map[uint16]int),
	}

	for _, l := range lines {
		var word uint16
		switch in := l.Instr.(type) {
		case LabelInstruction:
			continue

		case AInstruction:
			addr := in.Value
			if in.IsSymbol {
				resolved, err := a.vars.Resolve(in.Symbol)
				if err != nil {
					return nil, diag.Semantic(l.LineNo, 0, in.String(), "%v", err)
				}
				addr = resolved
			}
			w, err := hack.EncodeA(addr)
			if err != nil {
				return nil, diag.Syntax(l.LineNo, 0, in.String(), "%v", err)
			}
			word = w

		case CInstruction:
			w, err := hack.EncodeC(in.Comp, in.Dest, in.Jump)
			if err != nil {
				return nil, diag.Encoding(l.LineNo, 0, in.String(), "%v", err)
			}
			word = w

		default:
			return nil, fmt.Errorf("unsupported instruction %T on line %d", l.Instr, l.LineNo)
		}

		prog.SourceMap[uint16(len(prog.Words))] = l.LineNo
		prog.Words = append(prog.Words, word)
	}

	prog.Symbols = a.vars.Symbols()
	return prog, nil
}

// Parse turns assembly source into instructions, skipping blank and
// comment-only lines.
func Parse(code string) ([]Line, error) {
	var lines []Line
	for i, raw := range strings.Split(code, "\n") {
		lineNo := i + 1
		in, err := ParseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}
		if in == nil {
			continue
		}
		lines = append(lines, Line{Instr: in, LineNo: lineNo})
	}
	return lines, nil
}

// ParseLine parses one source line. It returns a nil Instruction for lines
// holding only whitespace and comments.
func ParseLine(raw string, lineNo int) (Instruction, error) {
	line := stripComments(raw)
	line = strings.Join(strings.Fields(line), "")
	if line == "" {
		return nil, nil
	}

	if m := labelLine.FindStringSubmatch(line); m != nil {
		return LabelInstruction{Symbol: m[1]}, nil
	}

	if strings.HasPrefix(line, "@") {
		m := addressLine.FindStringSubmatch(line)
		if m == nil {
			return nil, diag.Syntax(lineNo, 0, line, "malformed address operand")
		}
		if !digitsOnly.MatchString(m[1]) {
			return AInstruction{Symbol: m[1], IsSymbol: true}, nil
		}
		v, err := strconv.ParseUint(m[1], 10, 16)
		if err != nil || v > uint64(hack.MaxAddress) {
			return nil, diag.Syntax(lineNo, 0, line, "address %s out of range (max %d)", m[1], hack.MaxAddress)
		}
		return AInstruction{Value: uint16(v)}, nil
	}

	if strings.HasPrefix(line, "(") {
		return nil, diag.Syntax(lineNo, 0, line, "malformed label")
	}

	m := computeLine.FindStringSubmatch(line)
	if m == nil {
		return nil, diag.Syntax(lineNo, 0, line, "malformed instruction")
	}
	dest, comp, jump := m[1], m[2], m[3]
	if _, ok := hack.DestBits(dest); !ok {
		return nil, diag.Encoding(lineNo, 0, line, "unknown dest mnemonic %q", dest)
	}
	if _, ok := hack.CompBits(comp); !ok {
		return nil, diag.Encoding(lineNo, 0, line, "unknown comp mnemonic %q", comp)
	}
	if _, ok := hack.JumpBits(jump); !ok {
		return nil, diag.Encoding(lineNo, 0, line, "unknown jump mnemonic %q", jump)
	}
	return CInstruction{Dest: dest, Comp: comp, Jump: jump}, nil
}

func stripComments(line string) string {
	if cut := strings.Index(line, "//"); cut >= 0 {
		return line[:cut]
	}
	return line
}

// Hack renders the program as .hack text: one 16-digit binary string per
// word, newline separated.
func (p *Program) Hack() string {
	var sb strings.Builder
	for _, w := range p.Words {
		sb.WriteString(hack.Binary(w))
		sb.WriteString("\n")
	}
	return sb.String()
}

// ParseHack reads .hack text back into words. Every word must decode to
// an A-instruction or a C-instruction with a known comp code.
func ParseHack(text string) ([]uint16, error) {
	var words []uint16
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if len(line) != 16 {
			return nil, diag.Encoding(i+1, 0, line, "expected 16 binary digits")
		}
		v, err := strconv.ParseUint(line, 2, 16)
		if err != nil {
			return nil, diag.Encoding(i+1, 0, line, "invalid binary word")
		}
		w := uint16(v)
		if w&0x8000 != 0 {
			if w&0x6000 != 0x6000 {
				return nil, diag.Encoding(i+1, 0, line, "C-instruction must start with 111")
			}
			if _, ok := hack.CompMnemonic(hack.Decode(w).Comp); !ok {
				return nil, diag.Encoding(i+1, 0, line, "unknown comp code")
			}
		}
		words = append(words, w)
	}
	return words, nil
}

// Disassemble renders machine words back to assembly text. Symbols are lost,
// so every A-instruction comes back numeric.
func Disassemble(words []uint16) string {
	var sb strings.Builder
	for _, w := range words {
		sb.WriteString(hack.Decode(w).String())
		sb.WriteString("\n")
	}
	return sb.String()
}
