package compiler

import (
	"reflect"
	"slices"
	"strings"
	"testing"

	"hackchain/pkg/diag"
	"hackchain/pkg/vm"
)

func compileVM(t *testing.T, src string) string {
	t.Helper()
	out, err := Compile(src, "Test")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return out
}

// body strips the function header so tests can compare statement code.
func body(vmText string) string {
	_, rest, _ := strings.Cut(vmText, "\n")
	return rest
}

func assertVM(t *testing.T, got, want string) {
	t.Helper()
	want = strings.TrimLeft(strings.ReplaceAll(want, "\t", ""), "\n")
	if got != want {
		t.Errorf("VM output:\n%s\nwant:\n%s", got, want)
	}
}

func TestCodegenIfElse(t *testing.T) {
	src := `class Test { function void f(boolean x) {
		var int y;
		if (x) { let y = 1; } else { let y = 2; }
		return;
	} }`
	out := compileVM(t, src)
	assertVM(t, out, `
		function Test.f 1
		push argument 0
		not
		if-goto IF_ELSE0
		push constant 1
		pop local 0
		goto IF_END0
		label IF_ELSE0
		push constant 2
		pop local 0
		label IF_END0
		push constant 0
		return
	`)

	var ifGotos, gotos int
	labels := map[string]int{}
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "if-goto "):
			ifGotos++
		case strings.HasPrefix(line, "goto "):
			gotos++
		case strings.HasPrefix(line, "label "):
			labels[line]++
		}
	}
	if ifGotos != 1 || gotos != 1 || len(labels) != 2 {
		t.Errorf("if-goto=%d goto=%d distinct labels=%d; want 1, 1, 2", ifGotos, gotos, len(labels))
	}
	for l, n := range labels {
		if n != 1 {
			t.Errorf("%s emitted %d times", l, n)
		}
	}
}

func TestCodegenWhile(t *testing.T) {
	src := `class Test { function void f() {
		var int i;
		while (i < 3) { let i = i + 1; }
		return;
	} }`
	assertVM(t, body(compileVM(t, src)), `
		label WHILE_EXP0
		push local 0
		push constant 3
		lt
		not
		if-goto WHILE_END0
		push local 0
		push constant 1
		add
		pop local 0
		goto WHILE_EXP0
		label WHILE_END0
		push constant 0
		return
	`)
}

func TestCodegenNestedLabelsUnique(t *testing.T) {
	src := `class Test { function void f(int n) {
		while (n > 0) {
			if (n = 5) { let n = 0; }
			while (false) { }
			let n = n - 1;
		}
		if (true) { } else { }
		return;
	} }`
	out := compileVM(t, src)
	seen := map[string]bool{}
	for _, line := range strings.Split(out, "\n") {
		if name, ok := strings.CutPrefix(line, "label "); ok {
			if seen[name] {
				t.Errorf("label %s defined twice", name)
			}
			seen[name] = true
		}
	}
	if len(seen) != 8 {
		t.Errorf("got %d labels; want 8\n%s", len(seen), out)
	}
}

func TestCodegenExpressionsFoldLeftToRight(t *testing.T) {
	src := `class Test { function int f() { return 1 + 2 * 3 / 4 - 5; } }`
	assertVM(t, body(compileVM(t, src)), `
		push constant 1
		push constant 2
		add
		push constant 3
		call Math.multiply 2
		push constant 4
		call Math.divide 2
		push constant 5
		sub
		return
	`)
}

func TestCodegenOperators(t *testing.T) {
	src := `class Test { function boolean f(int a, int b) {
		return ~(a = b) | (a < b) & (a > -b);
	} }`
	assertVM(t, body(compileVM(t, src)), `
		push argument 0
		push argument 1
		eq
		not
		push argument 0
		push argument 1
		lt
		or
		push argument 0
		push argument 1
		neg
		gt
		and
		return
	`)
}

func TestCodegenKeywordConstants(t *testing.T) {
	src := `class Test { method void f() {
		var int a;
		let a = true;
		let a = false;
		let a = null;
		do Test.g(this);
		return;
	} }`
	assertVM(t, body(compileVM(t, src)), `
		push argument 0
		pop pointer 0
		push constant 1
		neg
		pop local 0
		push constant 0
		pop local 0
		push constant 0
		pop local 0
		push pointer 0
		call Test.g 1
		pop temp 0
		push constant 0
		return
	`)
}

func TestCodegenString(t *testing.T) {
	src := `class Test { function void f() { do Output.printString("Hi"); return; } }`
	assertVM(t, body(compileVM(t, src)), `
		push constant 2
		call String.new 1
		push constant 72
		call String.appendChar 2
		push constant 105
		call String.appendChar 2
		call Output.printString 1
		pop temp 0
		push constant 0
		return
	`)
}

func TestCodegenArrays(t *testing.T) {
	src := `class Test { function void f(Array a, int i) {
		let a[i] = a[i + 1];
		return;
	} }`
	assertVM(t, body(compileVM(t, src)), `
		push argument 0
		push argument 1
		push constant 1
		add
		add
		pop pointer 1
		push that 0
		push argument 0
		push argument 1
		add
		pop pointer 1
		pop that 0
		push constant 0
		return
	`)
}

func TestCodegenConstructorAndMethod(t *testing.T) {
	out := compileVM(t, pointSource)
	for _, want := range []string{
		"function Point.new 0\npush constant 2\ncall Memory.alloc 1\npop pointer 0\n" +
			"push argument 0\npop this 0\npush argument 1\npop this 1\n" +
			"push static 0\npush constant 1\nadd\npop static 0\npush pointer 0\nreturn\n",
		"function Point.sum 0\npush argument 0\npop pointer 0\npush this 0\npush this 1\nadd\nreturn\n",
		"function Point.total 2\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing:\n%s\ngot:\n%s", want, out)
		}
	}
}

func TestCodegenCalls(t *testing.T) {
	src := `class Test {
		field Point p;
		method void f(Point q, int k) {
			do q.sum();
			do p.move(k, 2);
			do Point.new(1, k);
			return;
		}
	}`
	assertVM(t, body(compileVM(t, src)), `
		push argument 0
		pop pointer 0
		push argument 1
		call Point.sum 1
		pop temp 0
		push this 0
		push argument 2
		push constant 2
		call Point.move 3
		pop temp 0
		push constant 1
		push argument 2
		call Point.new 2
		pop temp 0
		push constant 0
		return
	`)
}

func TestCodegenRoutinesAreRestartable(t *testing.T) {
	class := mustParse(t, pointSource)
	g, err := NewCodeGen(class)
	if err != nil {
		t.Fatal(err)
	}
	routines := g.Routines()
	if len(routines) != 3 {
		t.Fatalf("len(Routines) = %d; want 3", len(routines))
	}
	for _, r := range routines {
		seq := r.Commands()
		first := slices.Collect(seq)
		second := slices.Collect(seq)
		if len(first) == 0 || !reflect.DeepEqual(first, second) {
			t.Errorf("%s: second run differs from the first", r.Name())
		}
		if _, ok := first[0].(vm.Function); !ok {
			t.Errorf("%s: first command is %v", r.Name(), first[0])
		}
	}

	// Stopping early must not disturb a later full run.
	total := routines[2]
	var partial []vm.Command
	for c := range total.Commands() {
		partial = append(partial, c)
		if len(partial) == 3 {
			break
		}
	}
	full := slices.Collect(total.Commands())
	if !reflect.DeepEqual(partial, full[:3]) {
		t.Errorf("partial = %v; want prefix of %v", partial, full)
	}
}

func TestCodegenRoutineSymbols(t *testing.T) {
	g, err := NewCodeGen(mustParse(t, pointSource))
	if err != nil {
		t.Fatal(err)
	}
	sum := g.Routines()[1]
	if sum.Name() != "Point.sum" {
		t.Fatalf("Name = %q", sum.Name())
	}
	syms := sum.Symbols()
	// count, x, y, then the implicit this.
	if len(syms) != 4 || syms[3].Name != "this" || syms[3].Kind != Argument || syms[3].Type != "Point" {
		t.Errorf("Symbols = %+v", syms)
	}
}

func TestCodegenErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		frag string
	}{
		{"undefined variable", "class T { function void f() { let x = 1; return; } }", "x"},
		{"undefined in expression", "class T { function int f() { return y + 1; } }", "y"},
		{"unqualified call", "class T { method void f() { do g(); return; } }", "g"},
		{"field in function", "class T { field int x; function int f() { return x; } }", "x"},
		{"field object in function", "class T { field Point p; function void f() { do p.sum(); return; } }", "p"},
		{"this in function", "class T { function T f() { return this; } }", "this"},
		{"duplicate local", "class T { function void f() { var int a; var char a; return; } }", "a"},
		{"duplicate field", "class T { field int a; static int a; }", "a"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(tc.src, "T")
			if err == nil {
				t.Fatal("expected error")
			}
			d, ok := err.(*diag.Error)
			if !ok {
				t.Fatalf("error %T is not a *diag.Error", err)
			}
			if d.Kind != diag.SemanticError {
				t.Errorf("kind = %v; want semantic error", d.Kind)
			}
			if d.Fragment != tc.frag {
				t.Errorf("fragment = %q; want %q", d.Fragment, tc.frag)
			}
			if d.File != "T.jack" || d.Line != 1 {
				t.Errorf("position %s:%d; want T.jack:1", d.File, d.Line)
			}
		})
	}
}

func TestGenerateMatchesCompile(t *testing.T) {
	class := mustParse(t, pointSource)
	cmds, err := Generate(class)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := vm.Format(cmds), compileVM(t, pointSource); got != want {
		t.Errorf("Generate and Compile disagree:\n%s\n---\n%s", got, want)
	}
	// The output must be valid VM source.
	if _, err := vm.ParseCommands(vm.Format(cmds)); err != nil {
		t.Errorf("generated code does not parse: %v", err)
	}
}

func BenchmarkCompile(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Compile(pointSource, "Point"); err != nil {
			b.Fatal(err)
		}
	}
}
