//go:build !js

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"hackchain/pkg/cpu"
	"hackchain/pkg/diag"
	"hackchain/pkg/pipeline"
)

var okColor = color.New(color.FgGreen)

func main() {
	inPath := flag.String("in", "", "input .jack/.vm/.asm/.hack file or a directory of them")
	outDir := flag.String("out", "", "output directory (default: next to the input)")
	runProgram := flag.Bool("run", false, "run the resulting program on the Hack CPU emulator")
	cycles := flag.Uint64("cycles", 10_000_000, "instruction budget for -run (0 = until halt)")
	comments := flag.Bool("comments", false, "interleave VM commands as comments in .asm output")
	bootstrap := flag.Bool("bootstrap", false, "prefix the bootstrap even for a single .vm file")
	entry := flag.String("entry", "", "function the bootstrap calls (default Sys.init)")
	xml := flag.Bool("xml", false, "also write <Class>T.xml token listings for .jack input")
	screenshot := flag.String("screenshot", "", "after -run, save the screen as PNG")
	hibernate := flag.String("hibernate", "", "after -run, save a CPU snapshot")
	resume := flag.String("resume", "", "restore a CPU snapshot and continue running it")
	flag.Parse()

	if *inPath == "" && *resume == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: provide -in to build, or -resume <snapshot> to continue a run")
		flag.Usage()
		os.Exit(2)
	}
	if *inPath != "" && *resume != "" {
		fmt.Fprintln(os.Stderr, "use either -in or -resume, not both")
		os.Exit(2)
	}

	c := cpu.NewCPU()
	if *resume != "" {
		if err := c.RestoreFromFile(*resume); err != nil {
			fmt.Fprintf(os.Stderr, "failed to restore %q: %v\n", *resume, err)
			os.Exit(1)
		}
	} else {
		res, err := pipeline.Build(*inPath, pipeline.Options{
			OutDir:    *outDir,
			Entry:     *entry,
			Bootstrap: *bootstrap,
			Comments:  *comments,
			XML:       *xml,
			Link:      *runProgram,
		})
		if err != nil {
			diag.Report(os.Stderr, err)
			os.Exit(1)
		}
		if err := res.Disk.PersistTo(res.OutDir); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write output to %q: %v\n", res.OutDir, err)
			os.Exit(1)
		}
		for _, name := range res.Disk.List() {
			size, _ := res.Disk.Size(name)
			okColor.Printf("wrote %d bytes -> %s\n", size, filepath.Join(res.OutDir, name))
		}

		if !*runProgram {
			return
		}
		if res.Words == nil {
			fmt.Fprintln(os.Stderr, "-run needs a single program; this input produced several")
			os.Exit(2)
		}
		if err := c.Load(res.Words); err != nil {
			fmt.Fprintf(os.Stderr, "load failed: %v\n", err)
			os.Exit(1)
		}
	}

	run(c, *cycles)

	if *screenshot != "" {
		if err := c.SaveScreenshot(*screenshot); err != nil {
			fmt.Fprintf(os.Stderr, "screenshot failed: %v\n", err)
			os.Exit(1)
		}
	}
	if *hibernate != "" {
		if err := c.HibernateToFile(*hibernate); err != nil {
			fmt.Fprintf(os.Stderr, "hibernate failed: %v\n", err)
			os.Exit(1)
		}
	}
}

// run executes up to cycles instructions and prints the machine state.
func run(c *cpu.CPU, cycles uint64) {
	n := c.Run(cycles)
	status := "budget exhausted"
	if c.Halted {
		status = "halted"
	}
	fmt.Printf(
		"run complete (%s after %d cycles): PC=%d A=%d D=%d SP=%d LCL=%d ARG=%d THIS=%d THAT=%d\n",
		status, n, c.PC, c.A, int16(c.D),
		c.RAM[0], c.RAM[1], c.RAM[2], c.RAM[3], c.RAM[4],
	)
	if stack := c.Stack(); len(stack) > 0 {
		fmt.Printf("stack: %v\n", stack)
	}
}
