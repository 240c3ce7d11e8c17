// Package pipeline drives the toolchain from a path on disk: it picks the
// stage by file extension, runs every stage after it and stages the
// outputs in a virtual disk.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"hackchain/pkg/asm"
	"hackchain/pkg/compiler"
	"hackchain/pkg/diag"
	"hackchain/pkg/utils"
	"hackchain/pkg/vfs"
	"hackchain/pkg/vm"
)

// Source extensions in the order a directory is probed.
var stageExts = []string{".jack", ".vm", ".asm", ".hack"}

type Options struct {
	OutDir    string // overrides the directory outputs are written to
	Entry     string // bootstrap entry function, DefaultEntry when empty
	Bootstrap bool   // force the bootstrap for a single .vm file
	Comments  bool   // interleave VM commands in .asm output
	XML       bool   // also write <Class>T.xml token listings
	Link      bool   // link Jack classes into one bootstrapped program
}

// Result describes one successful run. Nothing has been written to
// the host yet; the caller persists Disk to OutDir.
type Result struct {
	Stage  string
	OutDir string
	Disk   *vfs.VirtualDisk
	// Words is the machine code of the whole program, or nil when the
	// input does not form a single program (several .asm files).
	Words []uint16
	// Symbols holds the resolved labels and variables of Words.
	Symbols map[string]uint16
}

// DetectStage picks the stage for a file by its extension, or for a
// directory by the first source extension present in it.
func DetectStage(path string) (ext string, isDir bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", false, err
	}
	if !info.IsDir() {
		ext := filepath.Ext(path)
		for _, e := range stageExts {
			if e == ext {
				return ext, false, nil
			}
		}
		return "", false, fmt.Errorf("%s: unsupported input extension %q", path, ext)
	}
	for _, e := range stageExts {
		if _, err := utils.SourcePaths(path, e); err == nil {
			return e, true, nil
		}
	}
	return "", true, fmt.Errorf("%s: no .jack, .vm, .asm or .hack files", path)
}

func readSources(paths []string) (map[string]string, []string, error) {
	sources := make(map[string]string, len(paths))
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, nil, err
		}
		name := utils.UnitName(p)
		sources[name] = string(data)
		names = append(names, name)
	}
	return sources, names, nil
}

// Build runs every stage that follows from the input and stages all
// outputs in memory. Any error aborts the whole run.
func Build(inPath string, opts Options) (*Result, error) {
	ext, isDir, err := DetectStage(inPath)
	if err != nil {
		return nil, err
	}
	paths, err := utils.SourcePaths(inPath, ext)
	if err != nil {
		return nil, err
	}
	sources, names, err := readSources(paths)
	if err != nil {
		return nil, err
	}

	res := &Result{Stage: ext, Disk: vfs.NewVirtualDisk()}
	switch {
	case opts.OutDir != "":
		res.OutDir = opts.OutDir
	case isDir:
		res.OutDir = filepath.Clean(inPath)
	default:
		res.OutDir = filepath.Dir(inPath)
	}

	switch ext {
	case ".jack":
		err = buildJack(res, names, sources, opts)
	case ".vm":
		err = buildVM(res, inPath, isDir, names, sources, opts)
	case ".asm":
		err = buildAsm(res, names, sources)
	case ".hack":
		err = loadHack(res, names, sources)
	}
	if err != nil {
		res.Disk.Discard()
		return nil, err
	}
	return res, nil
}

// buildJack writes one .vm file per class. With Link set it also builds
// the bootstrapped machine code, which needs the entry function.
func buildJack(res *Result, names []string, sources map[string]string, opts Options) error {
	units := make([]compiler.Unit, 0, len(names))
	for _, name := range names {
		u := compiler.Unit{Name: name, Source: sources[name]}
		units = append(units, u)

		if opts.XML {
			tokens, err := compiler.Lex(u.Source)
			if err != nil {
				return diag.WithFile(err, name+".jack")
			}
			if err := res.Disk.WriteString(name+"T.xml", compiler.TokensXML(tokens)); err != nil {
				return err
			}
		}
	}

	vmUnits, err := compiler.CompileUnits(units)
	if err != nil {
		return err
	}
	for _, u := range vmUnits {
		if err := res.Disk.WriteString(u.Name+".vm", u.Source); err != nil {
			return err
		}
	}

	if !opts.Link {
		return nil
	}
	prog, err := compiler.CompileToHack(units, vm.Options{Bootstrap: true, Entry: opts.Entry})
	if err != nil {
		return err
	}
	res.Words, res.Symbols = prog.Words, prog.Symbols
	return nil
}

// buildVM translates all units into a single .asm file. A directory is a
// whole program and gets the bootstrap.
func buildVM(res *Result, inPath string, isDir bool, names []string, sources map[string]string, opts Options) error {
	units := make([]vm.Unit, 0, len(names))
	for _, name := range names {
		units = append(units, vm.Unit{Name: name, Source: sources[name]})
	}
	text, err := vm.TranslateText(units, vm.Options{
		Bootstrap: isDir || opts.Bootstrap,
		Entry:     opts.Entry,
		Comments:  opts.Comments,
	})
	if err != nil {
		return err
	}
	prog, err := asm.Assemble(text)
	if err != nil {
		return err
	}
	out := filepath.Base(utils.OutputPath(inPath, isDir, ".asm"))
	if err := res.Disk.WriteString(out, text); err != nil {
		return err
	}
	res.Words, res.Symbols = prog.Words, prog.Symbols
	return nil
}

func buildAsm(res *Result, names []string, sources map[string]string) error {
	for _, name := range names {
		prog, err := asm.Assemble(sources[name])
		if err != nil {
			return diag.WithFile(err, name+".asm")
		}
		if err := res.Disk.WriteString(name+".hack", prog.Hack()); err != nil {
			return err
		}
		if len(names) == 1 {
			res.Words, res.Symbols = prog.Words, prog.Symbols
		}
	}
	return nil
}

func loadHack(res *Result, names []string, sources map[string]string) error {
	if len(names) != 1 {
		return fmt.Errorf("%d .hack files found; run expects exactly one", len(names))
	}
	words, err := asm.ParseHack(sources[names[0]])
	if err != nil {
		return diag.WithFile(err, names[0]+".hack")
	}
	res.Words = words
	return nil
}
