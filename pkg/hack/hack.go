// Package hack describes the Hack machine: its instruction encoding, the
// fixed mnemonic tables and the predefined assembler symbols.
package hack

import "fmt"

const (
	ScreenBase   uint16 = 16384
	ScreenWords         = 8192
	KeyboardAddr uint16 = 24576
	VariableBase uint16 = 16
	MaxAddress   uint16 = 32767
	MemoryWords         = 32768

	ScreenWidth  = 512
	ScreenHeight = 256
)

// compCodes maps a 6-bit ALU control code to its mnemonics. Index 0 is the
// A-register form (a-bit 0), index 1, when present, is the M form (a-bit 1).
var compCodes = map[uint16][]string{
	0b101010: {"0"},
	0b111111: {"1"},
	0b111010: {"-1"},
	0b001100: {"D"},
	0b110000: {"A", "M"},
	0b001101: {"!D"},
	0b110001: {"!A", "!M"},
	0b001111: {"-D"},
	0b110011: {"-A", "-M"},
	0b011111: {"D+1"},
	0b110111: {"A+1", "M+1"},
	0b001110: {"D-1"},
	0b110010: {"A-1", "M-1"},
	0b000010: {"D+A", "D+M"},
	0b010011: {"D-A", "D-M"},
	0b000111: {"A-D", "M-D"},
	0b000000: {"D&A", "D&M"},
	0b010101: {"D|A", "D|M"},
}

// compBits is the inverse of compCodes: mnemonic -> a-bit<<6 | code.
var compBits = func() map[string]uint16 {
	m := make(map[string]uint16, 28)
	for code, names := range compCodes {
		for a, name := range names {
			m[name] = uint16(a)<<6 | code
		}
	}
	return m
}()

var destBits = map[string]uint16{
	"M":   0b001,
	"D":   0b010,
	"MD":  0b011,
	"A":   0b100,
	"AM":  0b101,
	"AD":  0b110,
	"AMD": 0b111,
}

var jumpBits = map[string]uint16{
	"JGT": 0b001,
	"JEQ": 0b010,
	"JGE": 0b011,
	"JLT": 0b100,
	"JNE": 0b101,
	"JLE": 0b110,
	"JMP": 0b111,
}

// Predefined is the set of architectural symbols every program starts with.
var Predefined = func() map[string]uint16 {
	m := map[string]uint16{
		"SP":     0,
		"LCL":    1,
		"ARG":    2,
		"THIS":   3,
		"THAT":   4,
		"SCREEN": ScreenBase,
		"KBD":    KeyboardAddr,
	}
	for i := uint16(0); i < 16; i++ {
		m[fmt.Sprintf("R%d", i)] = i
	}
	return m
}()

// CompBits returns the 7 comp bits (a-bit followed by the 6-bit code) for a
// computation mnemonic.
func CompBits(mnemonic string) (uint16, bool) {
	bits, ok := compBits[mnemonic]
	return bits, ok
}

// DestBits returns the 3 dest bits. The empty mnemonic encodes as 000.
func DestBits(mnemonic string) (uint16, bool) {
	if mnemonic == "" {
		return 0, true
	}
	bits, ok := destBits[mnemonic]
	return bits, ok
}

// JumpBits returns the 3 jump bits. The empty mnemonic encodes as 000.
func JumpBits(mnemonic string) (uint16, bool) {
	if mnemonic == "" {
		return 0, true
	}
	bits, ok := jumpBits[mnemonic]
	return bits, ok
}

// CompMnemonic decodes 7 comp bits back to a mnemonic.
func CompMnemonic(bits uint16) (string, bool) {
	a := (bits >> 6) & 1
	names, ok := compCodes[bits&0x3F]
	if !ok || int(a) >= len(names) {
		return "", false
	}
	return names[a], true
}

func DestMnemonic(bits uint16) string {
	for name, b := range destBits {
		if b == bits&0x7 {
			return name
		}
	}
	return ""
}

func JumpMnemonic(bits uint16) string {
	for name, b := range jumpBits {
		if b == bits&0x7 {
			return name
		}
	}
	return ""
}

// CompMnemonics lists every computation mnemonic the assembler accepts.
func CompMnemonics() []string {
	names := make([]string, 0, len(compBits))
	for name := range compBits {
		names = append(names, name)
	}
	return names
}

// EncodeA builds an address instruction: 0 followed by a 15-bit value.
func EncodeA(addr uint16) (uint16, error) {
	if addr > MaxAddress {
		return 0, fmt.Errorf("address %d out of range (max %d)", addr, MaxAddress)
	}
	return addr, nil
}

// EncodeC builds a compute instruction: 111 a cccccc ddd jjj.
func EncodeC(comp, dest, jump string) (uint16, error) {
	c, ok := CompBits(comp)
	if !ok {
		return 0, fmt.Errorf("unknown comp mnemonic %q", comp)
	}
	d, ok := DestBits(dest)
	if !ok {
		return 0, fmt.Errorf("unknown dest mnemonic %q", dest)
	}
	j, ok := JumpBits(jump)
	if !ok {
		return 0, fmt.Errorf("unknown jump mnemonic %q", jump)
	}
	return 0b111<<13 | c<<6 | d<<3 | j, nil
}

// Word is a decoded machine instruction.
type Word struct {
	IsAddress bool
	Value     uint16 // address instructions only
	Comp      uint16 // a-bit + 6-bit code
	Dest      uint16
	Jump      uint16
}

// Decode splits a 16-bit word into its fields.
func Decode(w uint16) Word {
	if w&0x8000 == 0 {
		return Word{IsAddress: true, Value: w & 0x7FFF}
	}
	return Word{
		Comp: (w >> 6) & 0x7F,
		Dest: (w >> 3) & 0x7,
		Jump: w & 0x7,
	}
}

// String renders the word as canonical assembly text.
func (w Word) String() string {
	if w.IsAddress {
		return fmt.Sprintf("@%d", w.Value)
	}
	comp, ok := CompMnemonic(w.Comp)
	if !ok {
		comp = fmt.Sprintf("?%07b", w.Comp)
	}
	s := comp
	if d := DestMnemonic(w.Dest); d != "" {
		s = d + "=" + s
	}
	if j := JumpMnemonic(w.Jump); j != "" {
		s = s + ";" + j
	}
	return s
}

// Binary renders a word as the 16-character text used in .hack files.
func Binary(w uint16) string {
	return fmt.Sprintf("%016b", w)
}
