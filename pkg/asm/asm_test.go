package asm

import (
	"reflect"
	"strings"
	"testing"

	"hackchain/pkg/diag"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		want    Instruction
		wantErr bool
	}{
		{"@21", AInstruction{Value: 21}, false},
		{"   @LOOP   // jump target", AInstruction{Symbol: "LOOP", IsSymbol: true}, false},
		{"@sys.init$ret.0", AInstruction{Symbol: "sys.init$ret.0", IsSymbol: true}, false},
		{"D=A", CInstruction{Dest: "D", Comp: "A"}, false},
		{"  AM = M + 1 ; JGE", CInstruction{Dest: "AM", Comp: "M+1", Jump: "JGE"}, false},
		{"0;JMP", CInstruction{Comp: "0", Jump: "JMP"}, false},
		{"(END)", LabelInstruction{Symbol: "END"}, false},
		{"", nil, false},
		{"// only a comment", nil, false},

		// Invalid cases
		{"@32768", nil, true},
		{"@-1", nil, true},
		{"@1abc", nil, true},
		{"(1BAD)", nil, true},
		{"D=X+1", nil, true},
		{"X=D", nil, true},
		{"D;JXX", nil, true},
		{"D=A=M", nil, true},
	}

	for _, tc := range tests {
		got, err := ParseLine(tc.line, 1)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLine(%q) error = %v, wantErr %v", tc.line, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseLine(%q) = %#v; want %#v", tc.line, got, tc.want)
		}
	}
}

func TestParseLineErrorKinds(t *testing.T) {
	tests := []struct {
		line string
		want diag.Kind
	}{
		{"D=X+1", diag.EncodingError},
		{"Q=D", diag.EncodingError},
		{"0;JUMP", diag.EncodingError},
		{"@99999", diag.SyntaxError},
		{"@a-b", diag.SyntaxError},
	}
	for _, tc := range tests {
		_, err := ParseLine(tc.line, 4)
		kind, ok := diag.KindOf(err)
		if !ok || kind != tc.want {
			t.Errorf("ParseLine(%q) kind = %v, %v; want %v", tc.line, kind, ok, tc.want)
		}
	}
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		want    []string
		wantErr bool
	}{
		{
			"Add",
			`
			// Computes R0 = 2 + 3
			@2
			D=A
			@3
			D=D+A
			@0
			M=D
			`,
			[]string{
				"0000000000000010",
				"1110110000010000",
				"0000000000000011",
				"1110000010010000",
				"0000000000000000",
				"1110001100001000",
			},
			false,
		},
		{
			"Labels and Jumps",
			// (LOOP) sits before instruction 1, (END) before instruction 3.
			`
			@0
			(LOOP)
			D=D-1;JGT
			@LOOP
			(END)
			@END
			0;JMP
			`,
			[]string{
				"0000000000000000",
				"1110001110010001",
				"0000000000000001",
				"0000000000000011",
				"1110101010000111",
			},
			false,
		},
		{
			"Predefined symbols",
			`
			@SCREEN
			@KBD
			@R15
			@THAT
			`,
			[]string{
				"0100000000000000",
				"0110000000000000",
				"0000000000001111",
				"0000000000000100",
			},
			false,
		},
		{"Unknown mnemonic", "D=D*A", nil, true},
		{"Duplicate label", "(X)\n@1\n(X)\n@2", nil, true},
		{"Label shadows predefined", "(SP)\n@1", nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prog, err := Assemble(tc.code)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Assemble() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			got := strings.Split(strings.TrimSuffix(prog.Hack(), "\n"), "\n")
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Assemble() =\n%v\nwant\n%v", got, tc.want)
			}
		})
	}
}

func TestAssembleExampleThirdLine(t *testing.T) {
	prog, err := Assemble("@2\nD=A\n@3\nD=D+A\n@0\nM=D")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(prog.Hack(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines; want 6", len(lines))
	}
	if lines[2] != "0000000000000011" {
		t.Errorf("line 3 = %s; want 0000000000000011", lines[2])
	}
	for i, l := range lines {
		if len(l) != 16 {
			t.Errorf("line %d has %d digits", i+1, len(l))
		}
	}
}

func TestLabelsArePositionBased(t *testing.T) {
	// Several labels stacked in front of the same instruction all resolve to
	// the number of real instructions before them.
	code := `
	@1
	D=A
	@2
	(A1)
	(A2)
	(A3)
	D=D+A
	`
	lines, err := Parse(code)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	labels, err := ResolveLabels(lines)
	if err != nil {
		t.Fatalf("ResolveLabels failed: %v", err)
	}
	for _, name := range []string{"A1", "A2", "A3"} {
		if labels[name] != 3 {
			t.Errorf("labels[%s] = %d; want 3", name, labels[name])
		}
	}
}

func TestVariablesFirstUseOrder(t *testing.T) {
	code := `
	@i
	M=1
	@sum
	M=0
	@LOOP
	(LOOP)
	@i
	D=M
	@R3
	@temp
	@sum
	@LOOP
	0;JMP
	`
	asmr := NewAssembler()
	prog, err := asmr.Assemble(code)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	want := map[string]uint16{"i": 16, "sum": 17, "temp": 18, "LOOP": 5}
	for name, addr := range want {
		if got := prog.Symbols[name]; got != addr {
			t.Errorf("Symbols[%q] = %d; want %d", name, got, addr)
		}
	}
	if got := asmr.vars.Variables(); !reflect.DeepEqual(got, []string{"i", "sum", "temp"}) {
		t.Errorf("Variables() = %v", got)
	}
	if _, ok := prog.Symbols["R3"]; ok {
		t.Errorf("predefined R3 leaked into program symbols")
	}
}

func TestVariableAllocatorIsStable(t *testing.T) {
	v := NewVariableAllocator(Labels{"END": 40})
	first, _ := v.Resolve("x")
	v.Resolve("y")
	again, _ := v.Resolve("x")
	if first != 16 || again != 16 {
		t.Errorf("x resolved to %d then %d; want 16 both times", first, again)
	}
	if end, _ := v.Resolve("END"); end != 40 {
		t.Errorf("END = %d; want 40", end)
	}
}

func TestHackRoundTrip(t *testing.T) {
	code := "@17\nD=A\n@SCREEN\nAM=M-1;JNE\n0;JMP\n"
	prog, err := Assemble(code)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	words, err := ParseHack(prog.Hack())
	if err != nil {
		t.Fatalf("ParseHack failed: %v", err)
	}
	if !reflect.DeepEqual(words, prog.Words) {
		t.Errorf("ParseHack(Hack()) = %v; want %v", words, prog.Words)
	}

	want := "@17\nD=A\n@16384\nAM=M-1;JNE\n0;JMP\n"
	if got := Disassemble(words); got != want {
		t.Errorf("Disassemble() =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatParsesBack(t *testing.T) {
	instrs := []Instruction{
		At("SP"), C("AM", "M-1", ""), C("D", "M", ""),
		Label("Main.main$LOOP"), Const(7), C("", "D", "JEQ"),
	}
	lines, err := Parse(Format(instrs))
	if err != nil {
		t.Fatalf("Parse(Format()) failed: %v", err)
	}
	if len(lines) != len(instrs) {
		t.Fatalf("got %d lines; want %d", len(lines), len(instrs))
	}
	for i, l := range lines {
		if !reflect.DeepEqual(l.Instr, instrs[i]) {
			t.Errorf("line %d = %#v; want %#v", i, l.Instr, instrs[i])
		}
	}
}

func TestParseHackErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"short line", "000000000000001"},
		{"long line", "00000000000000010"},
		{"not binary", "0000000000000002"},
		{"C-word without 111 prefix", "1000000000000000"},
		{"unknown comp code", "1111111111000000"},
		{"bad second line", "0000000000000111\n1010110000010000"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			words, err := ParseHack(tc.text)
			if kind, _ := diag.KindOf(err); kind != diag.EncodingError {
				t.Errorf("ParseHack(%q) = %v, %v; want encoding error", tc.text, words, err)
			}
		})
	}

	// 1110111111111111 is AMD=1;JMP, a legal if odd word.
	words, err := ParseHack("0111111111111111\n1110110000010000\n1111110111001000\n1110111111111111\n")
	if err != nil {
		t.Fatalf("valid words rejected: %v", err)
	}
	if want := []uint16{0x7FFF, 0xEC10, 0xFDC8, 0xEFFF}; !reflect.DeepEqual(words, want) {
		t.Errorf("ParseHack = %v; want %v", words, want)
	}
}
