package compiler

import (
	"bytes"
	"strings"
	"testing"

	"quadlang/internal/bytecode"
	qerr "quadlang/internal/errors"
	"quadlang/internal/symtab"
	"quadlang/internal/vm"
)

type countingHook struct {
	counts map[int]int
}

func (h *countingHook) OnInstruction(pc int, q bytecode.Quad) bool {
	h.counts[pc]++
	return true
}

func (h *countingHook) OnStop(int) {}

func run(t *testing.T, src string, input ...string) (*Program, string, *countingHook) {
	t.Helper()
	prog, err := CompileString(src, Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var out bytes.Buffer
	in := vm.Responses(input)
	hook := &countingHook{counts: map[int]int{}}
	machine := vm.NewVM(prog.Symbols, prog.Quads, vm.Config{Input: &in, Output: &out, Hook: hook, MaxSteps: 10000})
	if err := machine.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	return prog, out.String(), hook
}

func valueOf(t *testing.T, prog *Program, name string) symtab.Value {
	t.Helper()
	idx := prog.Symbols.Lookup(name)
	if idx == symtab.NotFound {
		t.Fatalf("%s not in symbol table", name)
	}
	sym, _ := prog.Symbols.Get(idx)
	return sym.Value
}

func TestPrecedenceEndToEnd(t *testing.T) {
	prog, _, _ := run(t, "PROGRAM p; BEGIN x := 1 + 2 * 3 END .")
	if got := valueOf(t, prog, "x"); got != symtab.Int(7) {
		t.Errorf("x = %v, want 7", got)
	}
	moves := 0
	x := prog.Symbols.Lookup("x")
	for _, q := range prog.Quads.Quads() {
		if q.Op == bytecode.OpMove && q.Op3 == x {
			moves++
		}
	}
	if moves != 1 {
		t.Errorf("%d moves into x, want 1", moves)
	}
	if prog.Name != "p" {
		t.Errorf("Name = %q", prog.Name)
	}
}

func TestLoopRunsThreeTimes(t *testing.T) {
	prog, _, hook := run(t, "PROGRAM p; BEGIN i:=0; DOWHILE i < 3 DO i := i+1 END .")
	if got := valueOf(t, prog, "i"); got != symtab.Int(3) {
		t.Errorf("i = %v, want 3", got)
	}
	// the body's ADD sits right after the conditional branch
	add := -1
	for addr, q := range prog.Quads.Quads() {
		if q.Op == bytecode.OpAdd {
			add = addr
		}
	}
	if hook.counts[add] != 3 {
		t.Errorf("loop body ran %d times, want 3", hook.counts[add])
	}
}

func TestIfElseArms(t *testing.T) {
	src := `PROGRAM p; BEGIN
		READLN(a);
		IF a > 10 THEN big := 1 ELSE small := 1;
		PRINTLN("done")
	END.`
	tests := []struct {
		input string
		big   symtab.Value
		small symtab.Value
	}{
		{"11", symtab.Int(1), symtab.Int(0)},
		{"10", symtab.Int(0), symtab.Int(1)},
		{"-5", symtab.Int(0), symtab.Int(1)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			prog, out, _ := run(t, src, tt.input)
			if got := valueOf(t, prog, "big"); got != tt.big {
				t.Errorf("big = %v, want %v", got, tt.big)
			}
			if got := valueOf(t, prog, "small"); got != tt.small {
				t.Errorf("small = %v, want %v", got, tt.small)
			}
			if !strings.HasSuffix(out, "done\n") {
				t.Errorf("output = %q", out)
			}
		})
	}
}

func TestRelationsEndToEnd(t *testing.T) {
	tests := []struct {
		relop string
		a, b  string
		want  bool
	}{
		{"=", "2", "2", true},
		{"=", "2", "3", false},
		{"<>", "2", "3", true},
		{"<>", "3", "3", false},
		{"<", "1", "2", true},
		{"<", "2", "2", false},
		{">", "3", "2", true},
		{">", "2", "2", false},
		{"<=", "2", "2", true},
		{"<=", "3", "2", false},
		{">=", "2", "2", true},
		{">=", "1", "2", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+tt.relop+tt.b, func(t *testing.T) {
			prog, _, _ := run(t, "PROGRAM p; BEGIN IF "+tt.a+" "+tt.relop+" "+tt.b+" THEN hit := 1 END.")
			if got := valueOf(t, prog, "hit") == symtab.Int(1); got != tt.want {
				t.Errorf("hit = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrintOutput(t *testing.T) {
	_, out, _ := run(t, `PROGRAM demo;
{ sums the numbers up to n }
BEGIN
	READ(n);
	sum := 0;
	WHILE n > 0 DO BEGIN
		sum := sum + n;
		n := n - 1
	END;
	PRINTLN("sum:");
	PRINTLN(sum);
	PRINT(-sum * 2)
END.`, "4")
	want := "Enter an integer value into 'n': Integer accepted! n is now 4\nsum:\nsum = 10\n@4 = -20\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestCompileFailure(t *testing.T) {
	prog, err := CompileString("PROGRAM p; BEGIN x := END.", Options{})
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if e, ok := qerr.As(err); !ok || e.Type != qerr.SyntaxError {
		t.Errorf("err = %v", err)
	}
	if prog == nil || prog.Quads.Len() == 0 {
		t.Fatal("partial program missing")
	}
	last, _ := prog.Quads.Get(prog.Quads.Len() - 1)
	if last.Op != bytecode.OpStop {
		t.Errorf("last quad = %v", last)
	}
}

func TestWarningsAndSideChannels(t *testing.T) {
	var echo, tokens, trace bytes.Buffer
	prog, err := CompileString("PROGRAM p;\nBEGIN abcdefghijklmnopqrstuvwxyz := 1 END.\n", Options{
		Echo:   &echo,
		Tokens: &tokens,
		Trace:  &trace,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(prog.Warnings) != 1 {
		t.Errorf("warnings = %v", prog.Warnings)
	}
	if !strings.HasPrefix(echo.String(), "0001 PROGRAM p;\n") {
		t.Errorf("echo = %q", echo.String())
	}
	if !strings.Contains(tokens.String(), "PROGR") {
		t.Errorf("tokens = %q", tokens.String())
	}
	if !strings.HasPrefix(trace.String(), "--> Entering Program\n") {
		t.Errorf("trace = %q", trace.String())
	}
}
