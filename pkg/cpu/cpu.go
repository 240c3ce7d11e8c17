// Package cpu emulates the Hack computer: 32K words of instruction ROM,
// 32K words of data RAM with the screen and keyboard mapped into it, and
// the A, D and PC registers.
package cpu

import (
	"fmt"

	"hackchain/pkg/hack"
)

type CPU struct {
	ROM [hack.MemoryWords]uint16
	RAM [hack.MemoryWords]uint16

	A  uint16
	D  uint16
	PC uint16

	// ProgramSize is the number of loaded ROM words. Fetching past it halts.
	ProgramSize int

	Cycles uint64

	// Halted is set when the program runs off the end of ROM or enters its
	// final idle loop.
	Halted bool
}

func NewCPU() *CPU {
	return &CPU{}
}

// Load copies words into ROM and resets the registers. RAM is untouched.
func (c *CPU) Load(words []uint16) error {
	if len(words) > hack.MemoryWords {
		return fmt.Errorf("program has %d words; ROM holds %d", len(words), hack.MemoryWords)
	}
	c.ROM = [hack.MemoryWords]uint16{}
	copy(c.ROM[:], words)
	c.ProgramSize = len(words)
	c.Reset()
	return nil
}

// Reset clears the registers and the halt flag.
func (c *CPU) Reset() {
	c.A, c.D, c.PC = 0, 0, 0
	c.Cycles = 0
	c.Halted = false
}

// SetKey publishes the currently held key code (0 for none) at KBD.
func (c *CPU) SetKey(code uint16) {
	c.RAM[hack.KeyboardAddr] = code
}

func (c *CPU) ReadMem(addr uint16) uint16 {
	if int(addr) >= hack.MemoryWords {
		return 0
	}
	return c.RAM[addr]
}

// WriteMem stores val at addr. The keyboard register and anything above it
// are read-only.
func (c *CPU) WriteMem(addr uint16, val uint16) {
	if addr >= hack.KeyboardAddr {
		return
	}
	c.RAM[addr] = val
}

// alu computes the Hack ALU output for the six control bits
// zx nx zy ny f no.
func alu(x, y, ctrl uint16) uint16 {
	if ctrl&0b100000 != 0 {
		x = 0
	}
	if ctrl&0b010000 != 0 {
		x = ^x
	}
	if ctrl&0b001000 != 0 {
		y = 0
	}
	if ctrl&0b000100 != 0 {
		y = ^y
	}
	var out uint16
	if ctrl&0b000010 != 0 {
		out = x + y
	} else {
		out = x & y
	}
	if ctrl&0b000001 != 0 {
		out = ^out
	}
	return out
}

func jumps(out, cond uint16) bool {
	v := int16(out)
	return (cond&0b100 != 0 && v < 0) ||
		(cond&0b010 != 0 && v == 0) ||
		(cond&0b001 != 0 && v > 0)
}

func (c *CPU) Step() {
	if c.Halted {
		return
	}
	if int(c.PC) >= c.ProgramSize {
		c.Halted = true
		return
	}

	w := hack.Decode(c.ROM[c.PC])
	c.Cycles++

	if w.IsAddress {
		c.A = w.Value
		c.PC++
		return
	}

	// Memory address and jump target are the A value before this
	// instruction's writes land.
	addr := c.A
	y := c.A
	if w.Comp&0b1000000 != 0 {
		y = c.ReadMem(addr)
	}
	out := alu(c.D, y, w.Comp&0b111111)

	if w.Dest&0b001 != 0 {
		c.WriteMem(addr, out)
	}
	if w.Dest&0b100 != 0 {
		c.A = out
	}
	if w.Dest&0b010 != 0 {
		c.D = out
	}

	if jumps(out, w.Jump) {
		if c.isHaltLoop(w, addr) {
			c.Halted = true
			return
		}
		c.PC = addr
		return
	}
	c.PC++
}

// isHaltLoop recognises the idle loop programs end with: a side-effect
// free unconditional jump either to itself or to the "@self" in front of it.
func (c *CPU) isHaltLoop(w hack.Word, target uint16) bool {
	if w.Jump != 0b111 || w.Dest != 0 {
		return false
	}
	return target == c.PC || (target+1 == c.PC && c.ROM[target] == target)
}

// Run steps until the CPU halts or maxCycles instructions have executed
// (0 means no limit). It returns the number of instructions executed.
func (c *CPU) Run(maxCycles uint64) uint64 {
	start := c.Cycles
	for !c.Halted {
		if maxCycles > 0 && c.Cycles-start >= maxCycles {
			break
		}
		c.Step()
	}
	return c.Cycles - start
}

// StackBase is where the VM bootstrap places the stack.
const StackBase = 256

// Stack returns the VM stack contents, bottom first, read through SP.
func (c *CPU) Stack() []int16 {
	sp := c.RAM[0]
	if sp < StackBase || sp >= hack.ScreenBase {
		return nil
	}
	out := make([]int16, 0, sp-StackBase)
	for addr := uint16(StackBase); addr < sp; addr++ {
		out = append(out, int16(c.RAM[addr]))
	}
	return out
}
