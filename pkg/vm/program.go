package vm

import (
	"errors"
	"strings"

	"hackchain/pkg/asm"
	"hackchain/pkg/diag"
)

// Unit is one .vm source file. Name is the file's base name without
// extension and prefixes its static symbols.
type Unit struct {
	Name   string
	Source string
}

type Options struct {
	// Bootstrap prefixes the SP=256 / call-entry preamble. Whole-program
	// translation wants it, single-file translation usually does not.
	Bootstrap bool
	Entry     string
	// Comments interleaves each VM command as an assembly comment in
	// text output.
	Comments bool
}

// block is the assembly emitted for one VM command. Cmd is nil for the
// bootstrap preamble.
type block struct {
	cmd    Command
	instrs []asm.Instruction
}

// CheckEntry fails unless the bootstrap's entry function (DefaultEntry
// when entry is empty) is among defined.
func CheckEntry(entry string, defined map[string]bool) error {
	if entry == "" {
		entry = DefaultEntry
	}
	if !defined[entry] {
		return diag.Semantic(0, 0, entry, "entry function %s is not defined", entry)
	}
	return nil
}

func translateUnits(units []Unit, opts Options) ([]block, error) {
	t := NewTranslator("")
	var out []block
	if opts.Bootstrap {
		out = append(out, block{instrs: t.Bootstrap(opts.Entry)})
	}
	defined := make(map[string]bool)
	for _, u := range units {
		lines, err := Parse(u.Source)
		if err != nil {
			return nil, diag.WithFile(err, u.Name+".vm")
		}
		t.SetFile(u.Name)
		for _, l := range lines {
			instrs, err := t.Translate(l.Cmd)
			if err != nil {
				var d *diag.Error
				if errors.As(err, &d) && d.Line == 0 {
					d.Line = l.LineNo
				}
				return nil, diag.WithFile(err, u.Name+".vm")
			}
			if f, ok := l.Cmd.(Function); ok {
				defined[f.Name] = true
			}
			out = append(out, block{cmd: l.Cmd, instrs: instrs})
		}
	}
	if opts.Bootstrap {
		if err := CheckEntry(opts.Entry, defined); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// TranslateProgram translates units in order into one instruction stream.
func TranslateProgram(units []Unit, opts Options) ([]asm.Instruction, error) {
	blocks, err := translateUnits(units, opts)
	if err != nil {
		return nil, err
	}
	var out []asm.Instruction
	for _, b := range blocks {
		out = append(out, b.instrs...)
	}
	return out, nil
}

// TranslateText is TranslateProgram rendered as assembly source.
func TranslateText(units []Unit, opts Options) (string, error) {
	blocks, err := translateUnits(units, opts)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range blocks {
		if opts.Comments {
			if b.cmd == nil {
				sb.WriteString("// bootstrap\n")
			} else {
				sb.WriteString("// " + b.cmd.String() + "\n")
			}
		}
		sb.WriteString(asm.Format(b.instrs))
	}
	return sb.String(), nil
}

// TranslateCommands translates an already parsed command stream for a
// single unit, e.g. straight out of the Jack code generator.
func TranslateCommands(t *Translator, cmds []Command) ([]asm.Instruction, error) {
	var out []asm.Instruction
	for _, c := range cmds {
		instrs, err := t.Translate(c)
		if err != nil {
			return nil, diag.WithFile(err, t.file+".vm")
		}
		out = append(out, instrs...)
	}
	return out, nil
}
