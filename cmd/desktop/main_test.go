package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeProgram(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMainWiringIntegration(t *testing.T) {
	// Copy KBD to RAM[0] forever.
	path := writeProgram(t, "Echo.asm", "(LOOP)\n@KBD\nD=M\n@0\nM=D\n@LOOP\n0;JMP\n")

	vm, err := loadProgram(path, "")
	if err != nil {
		t.Fatalf("loadProgram: %v", err)
	}
	game := newGame(vm, 100, filepath.Join(t.TempDir(), "snap.zip"))

	game.keyboard.Push('Q')
	game.keyboard.Step()
	vm.Run(game.cyclesPerFrame)
	if vm.RAM[0] != 'Q' {
		t.Errorf("RAM[0] = %d; want %d", vm.RAM[0], 'Q')
	}
	if !strings.HasPrefix(game.statusLine(), "running") {
		t.Errorf("status = %q", game.statusLine())
	}

	if msg := game.hibernate(); !strings.HasPrefix(msg, "saved") {
		t.Fatalf("hibernate: %s", msg)
	}
	vm.RAM[0] = 0
	if msg := game.restore(); !strings.HasPrefix(msg, "restored") {
		t.Fatalf("restore: %s", msg)
	}
	if vm.RAM[0] != 'Q' {
		t.Errorf("after restore RAM[0] = %d; want %d", vm.RAM[0], 'Q')
	}
}

func TestLoadProgramErrors(t *testing.T) {
	path := writeProgram(t, "Bad.asm", "@1\nD=Q\n")
	if _, err := loadProgram(path, ""); err == nil {
		t.Error("expected an assembly error")
	}
	if _, err := loadProgram("", filepath.Join(t.TempDir(), "missing.zip")); err == nil {
		t.Error("expected an error for a missing snapshot")
	}
}
