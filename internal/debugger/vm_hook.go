// internal/debugger/vm_hook.go
package debugger

import (
	"fmt"
	"io"

	"quadlang/internal/bytecode"
)

const rule = "----------------------------------------------------------------"

// Tracer implements vm.Hook. It writes one line per executed quad to every
// attached writer and never changes execution.
type Tracer struct {
	out   io.Writer
	lines int
}

// NewTracer returns a tracer that mirrors its output to all writers.
func NewTracer(writers ...io.Writer) *Tracer {
	return &Tracer{out: io.MultiWriter(writers...)}
}

// Begin writes the trace header.
func (t *Tracer) Begin() {
	fmt.Fprintln(t.out, "Interpreter Output")
	fmt.Fprintln(t.out, rule)
}

// OnInstruction is called before each VM instruction
func (t *Tracer) OnInstruction(pc int, q bytecode.Quad) bool {
	t.lines++
	fmt.Fprintln(t.out, FormatQuad(pc, q))
	return true
}

// OnStop is called when the program executes STOP
func (t *Tracer) OnStop(pc int) {
	fmt.Fprintln(t.out, "Execution terminated by program STOP.")
}

// End writes the closing rule.
func (t *Tracer) End() {
	fmt.Fprintln(t.out, rule)
}

// Lines returns the number of traced instructions.
func (t *Tracer) Lines() int { return t.lines }

// FormatQuad renders the trace line for q at pc.
func FormatQuad(pc int, q bytecode.Quad) string {
	return fmt.Sprintf("PC = %04d: %-6s%02d, %02d, %02d", pc, q.Op, q.Op1, q.Op2, q.Op3)
}
