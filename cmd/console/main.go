// Command console is an interactive VM shell. Each command typed is added
// to the session program, which is re-translated, assembled and run from a
// clean machine; the resulting stack is printed after every line.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"hackchain/pkg/asm"
	"hackchain/pkg/cpu"
	"hackchain/pkg/diag"
	"hackchain/pkg/vm"
)

const unitName = "Console"

// Segment bases the session starts from, so local/argument/this/that are
// usable without a call frame.
var initialPointers = [5]uint16{cpu.StackBase, 300, 400, 3000, 3010}

var (
	stackColor = color.New(color.FgCyan)
	asmColor   = color.New(color.FgHiBlack)
)

type session struct {
	lines   []string
	showAsm bool
	cycles  uint64
}

// eval appends line to the program and runs it. On error the line is not
// kept.
func (s *session) eval(line string) (*cpu.CPU, string, error) {
	cmd, err := vm.ParseLine(line, len(s.lines)+1)
	if err != nil {
		return nil, "", err
	}
	if cmd == nil {
		return nil, "", nil
	}

	candidate := append(append([]string(nil), s.lines...), line)
	c, err := s.execute(candidate)
	if err != nil {
		return nil, "", err
	}
	s.lines = candidate

	tr := vm.NewTranslator(unitName)
	block, err := tr.Translate(cmd)
	if err != nil {
		return nil, "", err
	}
	return c, asm.Format(block), nil
}

func (s *session) execute(lines []string) (*cpu.CPU, error) {
	instrs, err := vm.TranslateProgram([]vm.Unit{{Name: unitName, Source: strings.Join(lines, "\n")}}, vm.Options{})
	if err != nil {
		return nil, err
	}
	prog, err := asm.NewAssembler().AssembleInstructions(instrs)
	if err != nil {
		return nil, err
	}
	c := cpu.NewCPU()
	if err := c.Load(prog.Words); err != nil {
		return nil, err
	}
	copy(c.RAM[:len(initialPointers)], initialPointers[:])
	c.Run(s.cycles)
	if !c.Halted {
		return nil, fmt.Errorf("program did not finish within %d cycles", s.cycles)
	}
	return c, nil
}

func (s *session) command(line string, out io.Writer) bool {
	switch strings.TrimSpace(line) {
	case ".quit", ".exit":
		return false
	case ".reset":
		s.lines = nil
		fmt.Fprintln(out, "session cleared")
	case ".asm":
		s.showAsm = !s.showAsm
		fmt.Fprintf(out, "assembly listing %s\n", map[bool]string{true: "on", false: "off"}[s.showAsm])
	case ".list":
		for i, l := range s.lines {
			fmt.Fprintf(out, "%3d  %s\n", i+1, strings.TrimSpace(l))
		}
	default:
		fmt.Fprintln(out, "commands: .asm .list .reset .quit")
	}
	return true
}

func main() {
	showAsm := flag.Bool("show-asm", false, "print the assembly for each command")
	cycles := flag.Uint64("cycles", 1_000_000, "instruction budget per evaluation")
	flag.Parse()

	rl, err := readline.New("vm> ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rl.Close()

	s := &session{showAsm: *showAsm, cycles: *cycles}
	for {
		text, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err == io.EOF {
			break
		} else if err != nil {
			fmt.Println(err)
			break
		}

		if strings.HasPrefix(strings.TrimSpace(text), ".") {
			if !s.command(text, rl.Stdout()) {
				break
			}
			continue
		}

		c, listing, err := s.eval(text)
		if err != nil {
			diag.Report(rl.Stderr(), err)
			continue
		}
		if c == nil {
			continue
		}
		if s.showAsm {
			asmColor.Fprint(rl.Stdout(), listing)
		}
		stackColor.Fprintf(rl.Stdout(), "%v\n", c.Stack())
	}
}
