package hack

import (
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	for addr := uint16(0); addr <= MaxAddress; addr++ {
		w, err := EncodeA(addr)
		if err != nil {
			t.Fatalf("EncodeA(%d) error: %v", addr, err)
		}
		got := Decode(w)
		if !got.IsAddress || got.Value != addr {
			t.Fatalf("Decode(EncodeA(%d)) = %+v", addr, got)
		}
	}

	if _, err := EncodeA(MaxAddress + 1); err == nil {
		t.Errorf("EncodeA(%d) should fail", MaxAddress+1)
	}
}

func TestCompTable(t *testing.T) {
	names := CompMnemonics()
	if len(names) != 28 {
		t.Fatalf("len(CompMnemonics()) = %d; want 28", len(names))
	}

	seen := make(map[uint16]string)
	for _, name := range names {
		bits, ok := CompBits(name)
		if !ok {
			t.Fatalf("CompBits(%q) missing", name)
		}
		if prev, dup := seen[bits]; dup {
			t.Errorf("%q and %q share comp bits %07b", prev, name, bits)
		}
		seen[bits] = name

		back, ok := CompMnemonic(bits)
		if !ok || back != name {
			t.Errorf("CompMnemonic(CompBits(%q)) = %q, %v", name, back, ok)
		}
	}

	// A and M share the 6-bit code and differ only in the a-bit.
	a, _ := CompBits("A")
	m, _ := CompBits("M")
	if a&0x3F != m&0x3F || a>>6 != 0 || m>>6 != 1 {
		t.Errorf("A=%07b M=%07b; want same code, a-bit 0/1", a, m)
	}
}

func TestEncodeC(t *testing.T) {
	tests := []struct {
		comp, dest, jump string
		want             string
		wantErr          bool
	}{
		{"A", "D", "", "1110110000010000", false},
		{"D+A", "D", "", "1110000010010000", false},
		{"D", "M", "", "1110001100001000", false},
		{"0", "", "JMP", "1110101010000111", false},
		{"M+1", "AM", "JGE", "1111110111101011", false},
		{"D*A", "D", "", "", true},
		{"D", "X", "", "", true},
		{"D", "", "JXX", "", true},
	}
	for _, tc := range tests {
		w, err := EncodeC(tc.comp, tc.dest, tc.jump)
		if (err != nil) != tc.wantErr {
			t.Errorf("EncodeC(%q,%q,%q) error = %v, wantErr %v", tc.comp, tc.dest, tc.jump, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && Binary(w) != tc.want {
			t.Errorf("EncodeC(%q,%q,%q) = %s; want %s", tc.comp, tc.dest, tc.jump, Binary(w), tc.want)
		}
	}
}

func TestDecodeString(t *testing.T) {
	tests := []string{"@17", "D=A", "M=D+M", "0;JMP", "AMD=M-1;JNE", "D;JGT"}
	for _, text := range tests {
		var w uint16
		if text[0] == '@' {
			w = 17
		} else {
			dest, rest, ok := strings.Cut(text, "=")
			if !ok {
				dest, rest = "", text
			}
			comp, jump, _ := strings.Cut(rest, ";")
			var err error
			w, err = EncodeC(comp, dest, jump)
			if err != nil {
				t.Fatalf("EncodeC for %q: %v", text, err)
			}
		}
		if got := Decode(w).String(); got != text {
			t.Errorf("Decode(%s).String() = %q; want %q", Binary(w), got, text)
		}
	}
}

func TestPredefined(t *testing.T) {
	tests := map[string]uint16{
		"SP": 0, "LCL": 1, "ARG": 2, "THIS": 3, "THAT": 4,
		"R0": 0, "R13": 13, "R15": 15, "SCREEN": 16384, "KBD": 24576,
	}
	for name, want := range tests {
		if got, ok := Predefined[name]; !ok || got != want {
			t.Errorf("Predefined[%q] = %d, %v; want %d", name, got, ok, want)
		}
	}
	if len(Predefined) != 23 {
		t.Errorf("len(Predefined) = %d; want 23", len(Predefined))
	}
}
