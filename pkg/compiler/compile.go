package compiler

import (
	"slices"

	"hackchain/pkg/asm"
	"hackchain/pkg/diag"
	"hackchain/pkg/vm"
)

// Unit is one .jack source file; Name is its base name without extension.
type Unit struct {
	Name   string
	Source string
}

// CompileClass runs the front end over one unit and returns the checked
// code generator. Errors carry the unit's file name.
func CompileClass(u Unit) (*Class, *CodeGen, error) {
	file := u.Name + ".jack"
	tokens, err := Lex(u.Source)
	if err != nil {
		return nil, nil, diag.WithFile(err, file)
	}
	class, err := Parse(tokens, u.Source)
	if err != nil {
		return nil, nil, diag.WithFile(err, file)
	}
	g, err := NewCodeGen(class)
	if err != nil {
		return nil, nil, diag.WithFile(err, file)
	}
	return class, g, nil
}

// Compile translates one Jack class to VM source text.
func Compile(src, name string) (string, error) {
	_, g, err := CompileClass(Unit{Name: name, Source: src})
	if err != nil {
		return "", err
	}
	return g.Text(), nil
}

// CompileUnits compiles every unit, returning one VM unit per class named
// after the class.
func CompileUnits(units []Unit) ([]vm.Unit, error) {
	out := make([]vm.Unit, 0, len(units))
	for _, u := range units {
		class, g, err := CompileClass(u)
		if err != nil {
			return nil, err
		}
		out = append(out, vm.Unit{Name: class.Name, Source: g.Text()})
	}
	return out, nil
}

// CompileToHack chains every stage: Jack to VM, VM to assembly and assembly
// to machine words. Generated commands go straight to the translator
// without a text round trip.
func CompileToHack(units []Unit, opts vm.Options) (*asm.Program, error) {
	t := vm.NewTranslator("")
	var instrs []asm.Instruction
	if opts.Bootstrap {
		instrs = append(instrs, t.Bootstrap(opts.Entry)...)
	}

	defined := make(map[string]bool)
	for _, u := range units {
		class, g, err := CompileClass(u)
		if err != nil {
			return nil, err
		}
		for _, r := range g.Routines() {
			defined[r.Name()] = true
		}
		t.SetFile(class.Name)
		out, err := vm.TranslateCommands(t, slices.Collect(g.Commands()))
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, out...)
	}

	if opts.Bootstrap {
		if err := vm.CheckEntry(opts.Entry, defined); err != nil {
			return nil, err
		}
	}
	return asm.NewAssembler().AssembleInstructions(instrs)
}
