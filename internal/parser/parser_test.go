package parser

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kr/pretty"
	"github.com/pkg/errors"

	"quadlang/internal/bytecode"
	qerr "quadlang/internal/errors"
	"quadlang/internal/lexer"
	"quadlang/internal/symtab"
)

// Test helper to compile a program into fresh tables
func parseString(t *testing.T, input string, quads *bytecode.QuadTable) (*symtab.Table, *bytecode.QuadTable, error) {
	t.Helper()
	symbols := symtab.New()
	if quads == nil {
		quads = bytecode.NewQuadTable()
	}
	scanner := lexer.NewScanner(strings.NewReader(input), symbols, lexer.Options{})
	p, err := New(scanner, symbols, quads, Options{})
	if err != nil {
		t.Fatal(err)
	}
	return symbols, quads, p.Parse()
}

// Test helper to check that parsing succeeds and yields want
func assertQuads(t *testing.T, input string, want []bytecode.Quad) *symtab.Table {
	t.Helper()
	symbols, quads, err := parseString(t, input, nil)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if diff := pretty.Diff(quads.Quads(), want); len(diff) > 0 {
		t.Errorf("unexpected quads:\n%s", strings.Join(diff, "\n"))
	}
	return symbols
}

func q(op bytecode.Opcode, a, b, c int) bytecode.Quad {
	return bytecode.Quad{Op: op, Op1: a, Op2: b, Op3: c}
}

func TestPreloadedConstants(t *testing.T) {
	symbols := assertQuads(t, "PROGRAM p; BEGIN x := 1 END.", []bytecode.Quad{
		q(bytecode.OpMove, 1, 0, 3),
		q(bytecode.OpStop, 0, 0, 0),
	})
	minus, _ := symbols.Get(0)
	plus, _ := symbols.Get(1)
	if minus.Name != "-1" || minus.Value != symtab.Int(-1) || plus.Name != "1" || plus.Value != symtab.Int(1) {
		t.Errorf("preloaded = %+v, %+v", minus, plus)
	}
	prog, _ := symbols.Get(2)
	if prog.Name != "p" || prog.Kind != symtab.ProgramName {
		t.Errorf("program symbol = %+v", prog)
	}
}

func TestArithmeticPrecedence(t *testing.T) {
	symbols := assertQuads(t, "PROGRAM p; BEGIN x := 1 + 2*3 END.", []bytecode.Quad{
		q(bytecode.OpMul, 4, 5, 6),
		q(bytecode.OpAdd, 1, 6, 7),
		q(bytecode.OpMove, 7, 0, 3),
		q(bytecode.OpStop, 0, 0, 0),
	})
	if symbols.Name(6) != "@0" || symbols.Name(7) != "@1" {
		t.Errorf("temporaries = %q, %q", symbols.Name(6), symbols.Name(7))
	}
}

func TestParenthesesAndLeftAssociativity(t *testing.T) {
	// a=3 b=4 @0=5 c=6
	assertQuads(t, "PROGRAM p; BEGIN a := (a - b) - c / b END.", []bytecode.Quad{
		q(bytecode.OpSub, 3, 4, 5),
		q(bytecode.OpDiv, 6, 4, 7),
		q(bytecode.OpSub, 5, 7, 8),
		q(bytecode.OpMove, 8, 0, 3),
		q(bytecode.OpStop, 0, 0, 0),
	})
}

func TestUnaryMinusUsesTemporary(t *testing.T) {
	assertQuads(t, "PROGRAM p; BEGIN x := -y END.", []bytecode.Quad{
		q(bytecode.OpMul, 4, 0, 5),
		q(bytecode.OpMove, 5, 0, 3),
		q(bytecode.OpStop, 0, 0, 0),
	})
}

func TestWhileLoop(t *testing.T) {
	assertQuads(t, "PROGRAM p; BEGIN i := 0; DOWHILE i < 3 DO i := i + 1 END.", []bytecode.Quad{
		q(bytecode.OpMove, 4, 0, 3),
		q(bytecode.OpSub, 3, 5, 6),
		q(bytecode.OpJumpNonNegative, 6, 0, 6),
		q(bytecode.OpAdd, 3, 1, 7),
		q(bytecode.OpMove, 7, 0, 3),
		q(bytecode.OpJump, 0, 0, 1),
		q(bytecode.OpStop, 0, 0, 0),
	})
}

func TestIfStatements(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []bytecode.Quad
	}{
		{
			"without else",
			"PROGRAM p; BEGIN IF a = 1 THEN b := 2 END.",
			[]bytecode.Quad{
				q(bytecode.OpSub, 3, 1, 4),
				q(bytecode.OpJumpNonZero, 4, 0, 3),
				q(bytecode.OpMove, 6, 0, 5),
				q(bytecode.OpStop, 0, 0, 0),
			},
		},
		{
			"with else",
			"PROGRAM p; BEGIN IF a = 1 THEN b := 2 ELSE b := 3 END.",
			[]bytecode.Quad{
				q(bytecode.OpSub, 3, 1, 4),
				q(bytecode.OpJumpNonZero, 4, 0, 4),
				q(bytecode.OpMove, 6, 0, 5),
				q(bytecode.OpJump, 0, 0, 5),
				q(bytecode.OpMove, 7, 0, 5),
				q(bytecode.OpStop, 0, 0, 0),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertQuads(t, tt.input, tt.want)
		})
	}
}

func TestRelopBranches(t *testing.T) {
	tests := []struct {
		relop string
		want  bytecode.Opcode
	}{
		{"=", bytecode.OpJumpNonZero},
		{"<>", bytecode.OpJumpZero},
		{"<", bytecode.OpJumpNonNegative},
		{">", bytecode.OpJumpNonPositive},
		{"<=", bytecode.OpJumpPositive},
		{">=", bytecode.OpJumpNegative},
	}
	for _, tt := range tests {
		t.Run(tt.relop, func(t *testing.T) {
			_, quads, err := parseString(t, "PROGRAM p; BEGIN IF a "+tt.relop+" b THEN a := b END.", nil)
			if err != nil {
				t.Fatal(err)
			}
			branch, _ := quads.Get(1)
			if branch.Op != tt.want || branch.Op3 != 3 {
				t.Errorf("branch = %v, want %v to 3", branch, tt.want)
			}
		})
	}
}

func TestAssignmentAndReadTargetTheVariable(t *testing.T) {
	symbols := assertQuads(t, "PROGRAM p; BEGIN x := 5; READLN(y) END.", []bytecode.Quad{
		q(bytecode.OpMove, 4, 0, 3),
		q(bytecode.OpRead, 0, 0, 5),
		q(bytecode.OpStop, 0, 0, 0),
	})
	if symbols.Name(3) != "x" || symbols.Name(5) != "y" {
		t.Errorf("targets are %q and %q", symbols.Name(3), symbols.Name(5))
	}
}

func TestPrintAndRead(t *testing.T) {
	symbols := assertQuads(t, `PROGRAM p; BEGIN READLN(x); PRINTLN("x is"); PRINTLN(x * 2) END.`, []bytecode.Quad{
		q(bytecode.OpRead, 0, 0, 3),
		q(bytecode.OpPrint, 0, 0, 4),
		q(bytecode.OpMul, 3, 5, 6),
		q(bytecode.OpPrint, 0, 0, 6),
		q(bytecode.OpStop, 0, 0, 0),
	})
	if got := symbols.Lookup(lexer.StringSymbolName("x is")); got != 4 {
		t.Errorf("string literal at %d", got)
	}
}

func TestNestedBlocks(t *testing.T) {
	assertQuads(t, "PROGRAM p; BEGIN BEGIN x := 1; y := x END; PRINT(y) END.", []bytecode.Quad{
		q(bytecode.OpMove, 1, 0, 3),
		q(bytecode.OpMove, 3, 0, 4),
		q(bytecode.OpPrint, 0, 0, 4),
		q(bytecode.OpStop, 0, 0, 0),
	})
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"missing program", "BEGIN x := 1 END.", "expected PROGRAM but found BEGIN"},
		{"missing then", "PROGRAM p; BEGIN IF a = 1 b := 2 END.", "expected THEN but found b"},
		{"missing do", "PROGRAM p; BEGIN WHILE a < 1 a := 2 END.", "expected DO but found a"},
		{"missing period", "PROGRAM p; BEGIN x := 1 END", "expected . but found end of input"},
		{"missing relop", "PROGRAM p; BEGIN IF a THEN a := 1 END.", "expected relational operator but found THEN"},
		{"bad statement", "PROGRAM p; BEGIN := 1 END.", "expected start of statement but found :="},
		{"program name assigned", "PROGRAM p; BEGIN p := 1 END.", "expected <variable> but found p"},
		{"program name read", "PROGRAM p; BEGIN READLN(p) END.", "expected <variable> but found p"},
		{"bad print argument", "PROGRAM p; BEGIN PRINTLN(;) END.", "found ;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, quads, err := parseString(t, tt.input, nil)
			e, ok := qerr.As(err)
			if !ok || e.Type != qerr.SyntaxError {
				t.Fatalf("err = %v, want syntax error", err)
			}
			if !strings.Contains(e.Message, tt.want) {
				t.Errorf("message = %q, want %q", e.Message, tt.want)
			}
			last, _ := quads.Get(quads.Len() - 1)
			if last.Op != bytecode.OpStop {
				t.Errorf("last quad = %v, want STOP", last)
			}
		})
	}
}

func TestErrorStopsCodeGeneration(t *testing.T) {
	_, quads, err := parseString(t, "PROGRAM p; BEGIN x := 1; IF x THEN y := 2; z := 3 END.", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	want := []bytecode.Quad{
		q(bytecode.OpMove, 1, 0, 3),
		q(bytecode.OpStop, 0, 0, 0),
	}
	if diff := pretty.Diff(quads.Quads(), want); len(diff) > 0 {
		t.Errorf("unexpected quads:\n%s", strings.Join(diff, "\n"))
	}
}

func TestQuadTableFull(t *testing.T) {
	_, _, err := parseString(t, "PROGRAM p; BEGIN a := 1; b := 2; c := 3 END.", bytecode.NewQuadTableWithCapacity(2))
	e, ok := qerr.As(err)
	if !ok || e.Type != qerr.CapacityError {
		t.Fatalf("err = %v, want capacity error", err)
	}
	if !errors.Is(err, bytecode.ErrTableFull) {
		t.Errorf("err does not wrap ErrTableFull: %v", err)
	}
}

func TestTrace(t *testing.T) {
	var trace bytes.Buffer
	symbols := symtab.New()
	scanner := lexer.NewScanner(strings.NewReader("PROGRAM p; BEGIN x := 1 END."), symbols, lexer.Options{})
	p, err := New(scanner, symbols, bytecode.NewQuadTable(), Options{Trace: &trace})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if p.ProgramName() != "p" {
		t.Errorf("ProgramName() = %q", p.ProgramName())
	}

	lines := strings.Split(strings.TrimSuffix(trace.String(), "\n"), "\n")
	head := []string{
		"--> Entering Program",
		" --> Entering ProgIdentifier",
		" <-- Exiting ProgIdentifier",
		" --> Entering Block",
		"  --> Entering BlockBody",
	}
	for i, want := range head {
		if lines[i] != want {
			t.Errorf("line %d = %q, want %q", i, lines[i], want)
		}
	}
	if last := lines[len(lines)-1]; last != "<-- Exiting Program" {
		t.Errorf("last line = %q", last)
	}
	if strings.Count(trace.String(), "Entering") != strings.Count(trace.String(), "Exiting") {
		t.Error("unbalanced trace")
	}
}
