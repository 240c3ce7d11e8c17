package main

import (
	"testing"

	"hackchain/pkg/compiler"
	"hackchain/pkg/cpu"
	"hackchain/pkg/vm"
)

// A Jack program that draws through the screen memory map directly.
const screenSource = `
class Sys {
    function void init() {
        var Array ram;
        var int row;
        let ram = 0;
        while (row < 16) {
            // leftmost 16 pixels of the row
            let ram[16384 + (row * 32)] = -1;
            let row = row + 1;
        }
        // single pixel at x=17 on row 20
        let ram[16384 + (20 * 32) + 1] = 2;
        while (true) {
        }
        return;
    }
}
`

func TestScreenFromJack(t *testing.T) {
	prog, err := compiler.CompileToHack([]compiler.Unit{
		{Name: "Sys", Source: screenSource},
		{Name: "Math", Source: mathSource},
	}, vm.Options{Bootstrap: true})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	c := cpu.NewCPU()
	if err := c.Load(prog.Words); err != nil {
		t.Fatal(err)
	}
	c.Run(1_000_000)

	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if !c.PixelSet(x, y) {
				t.Fatalf("pixel (%d, %d) not set", x, y)
			}
		}
		if c.PixelSet(16, y) {
			t.Errorf("pixel (16, %d) set", y)
		}
	}
	if !c.PixelSet(17, 20) || c.PixelSet(16, 20) || c.PixelSet(18, 20) {
		t.Error("single pixel at (17, 20) not drawn exactly")
	}
	if c.PixelSet(0, 16) {
		t.Error("row 16 should be blank")
	}

	img := c.GetFramebufferImage()
	if r, _, _, _ := img.At(0, 0).RGBA(); r != 0 {
		t.Errorf("set pixel renders with red %d; want black", r)
	}
	if r, _, _, _ := img.At(100, 100).RGBA(); r != 0xFFFF {
		t.Errorf("clear pixel renders with red %d; want white", r)
	}
}

// Math.multiply for the row offset, by repeated addition.
const mathSource = `
class Math {
    function int multiply(int x, int y) {
        var int sum;
        while (y > 0) {
            let sum = sum + x;
            let y = y - 1;
        }
        return sum;
    }
}
`
