package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hackchain/pkg/diag"
)

// writeTree creates files (name -> content) in a fresh directory.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestDetectStage(t *testing.T) {
	dir := writeTree(t, map[string]string{"A.vm": "", "B.asm": "", "notes.txt": ""})
	tests := []struct {
		path  string
		ext   string
		isDir bool
		ok    bool
	}{
		{dir, ".vm", true, true},
		{filepath.Join(dir, "B.asm"), ".asm", false, true},
		{filepath.Join(dir, "notes.txt"), "", false, false},
		{filepath.Join(dir, "missing.vm"), "", false, false},
		{t.TempDir(), "", true, false},
	}
	for _, tc := range tests {
		ext, isDir, err := DetectStage(tc.path)
		if (err == nil) != tc.ok {
			t.Errorf("DetectStage(%s) err = %v", tc.path, err)
			continue
		}
		if tc.ok && (ext != tc.ext || isDir != tc.isDir) {
			t.Errorf("DetectStage(%s) = %q, %v; want %q, %v", tc.path, ext, isDir, tc.ext, tc.isDir)
		}
	}
}

func TestBuildVMDirectory(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"Sys.vm":  "function Sys.init 0\ncall Main.seven 0\npop temp 0\nlabel END\ngoto END\n",
		"Main.vm": "function Main.seven 0\npush constant 7\nreturn\n",
	})
	res, err := Build(dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	name := filepath.Base(dir) + ".asm"
	data, err := res.Disk.Read(name)
	if err != nil {
		t.Fatalf("missing %s: %v (have %v)", name, err, res.Disk.List())
	}
	if first, _, _ := strings.Cut(string(data), "\n"); strings.TrimSpace(first) != "@256" {
		t.Errorf("directory output lacks the bootstrap:\n%.80s", data)
	}
	if res.OutDir != filepath.Clean(dir) || res.Words == nil {
		t.Errorf("OutDir = %q, %d words", res.OutDir, len(res.Words))
	}
	if _, ok := res.Symbols["Main.seven"]; !ok {
		t.Error("function label Main.seven not in symbols")
	}

	// Persisting writes the staged file next to the sources.
	if err := res.Disk.PersistTo(res.OutDir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		t.Error(err)
	}
}

func TestBuildSingleVMFile(t *testing.T) {
	dir := writeTree(t, map[string]string{"Add.vm": "push constant 2\npush constant 3\nadd\n"})
	path := filepath.Join(dir, "Add.vm")

	res, err := Build(path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	data, _ := res.Disk.Read("Add.asm")
	if strings.Contains(string(data), "Sys.init") {
		t.Error("single file got the bootstrap without asking")
	}

	if _, err := Build(path, Options{Bootstrap: true}); err == nil {
		t.Error("bootstrap without Sys.init should fail")
	}
	res, err = Build(path, Options{Bootstrap: true, Entry: "Add.none", OutDir: t.TempDir()})
	if kind, _ := diag.KindOf(err); kind != diag.SemanticError {
		t.Errorf("missing entry: err = %v", err)
	}
	if res != nil {
		t.Error("failed build returned a result")
	}
}

func TestBuildAsmToHack(t *testing.T) {
	dir := writeTree(t, map[string]string{"Max.asm": "@R0\nD=M\n@R1\nD=D-M\n(END)\n@END\n0;JMP\n"})
	res, err := Build(filepath.Join(dir, "Max.asm"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	data, err := res.Disk.Read("Max.hack")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 6 || lines[0] != "0000000000000000" || lines[4] != "0000000000000100" {
		t.Errorf("Max.hack = %q", lines)
	}
	if len(res.Words) != 6 {
		t.Errorf("Words = %v", res.Words)
	}
}

func TestBuildHackLoadsWords(t *testing.T) {
	dir := writeTree(t, map[string]string{"P.hack": "0000000000000111\n1110110000010000\n"})
	res, err := Build(filepath.Join(dir, "P.hack"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Words) != 2 || res.Words[0] != 7 || res.Words[1] != 0xEC10 {
		t.Errorf("Words = %v", res.Words)
	}
	if len(res.Disk.List()) != 0 {
		t.Errorf("hack input staged outputs: %v", res.Disk.List())
	}
}

func TestBuildErrorsLeaveNoOutput(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"Good.jack": "class Good { function int one() { return 1; } }",
		"Bad.jack":  "class Bad { function int two() { return q; } }",
	})
	res, err := Build(dir, Options{})
	if err == nil {
		t.Fatalf("expected an error, got outputs %v", res.Disk.List())
	}
	if kind, _ := diag.KindOf(err); kind != diag.SemanticError {
		t.Errorf("err = %v; want semantic error", err)
	}
	if !strings.Contains(err.Error(), "Bad.jack") {
		t.Errorf("error %q does not name the file", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("directory gained files: %v", entries)
	}
}
