package errors

import (
	"testing"

	"github.com/pkg/errors"
)

var errBoom = errors.New("boom")

func TestErrorRendering(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			"syntax with file",
			NewSyntaxError("END", "x", SourceLocation{File: "p.txt", Line: 3, Column: 7}),
			"SyntaxError: expected END but found x at p.txt:3:7",
		},
		{
			"warning without file",
			NewWarning("unterminated string", SourceLocation{Line: 2, Column: 1}),
			"LexicalWarning: unterminated string at 2:1",
		},
		{
			"runtime at pc",
			NewRuntimeError(errBoom, 12, "division by zero"),
			"RuntimeError: division by zero at PC 0012",
		},
		{
			"decode",
			NewDecodeError(errBoom, 42, 3),
			"DecodeError: boom: 42 at PC 0003",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrapReachesSentinel(t *testing.T) {
	var err error = NewRuntimeError(errBoom, 1, "failed")
	if !errors.Is(err, errBoom) {
		t.Error("errors.Is did not find the sentinel")
	}
	e, ok := As(errors.Wrap(err, "outer"))
	if !ok || e.Type != RuntimeError {
		t.Fatalf("As() = %v, %v", e, ok)
	}
	if !e.Fatal() {
		t.Error("runtime error should be fatal")
	}
	if NewWarning("w", SourceLocation{}).Fatal() {
		t.Error("warning should not be fatal")
	}
}
