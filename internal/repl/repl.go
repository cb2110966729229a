// internal/repl/repl.go
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"quadlang/internal/compiler"
	"quadlang/internal/lexer"
	"quadlang/internal/symtab"
	"quadlang/internal/vm"
)

// Config wires a REPL session. Prompts and the banner are shown only when
// Interactive is set.
type Config struct {
	In          io.Reader
	Out         io.Writer
	Interactive bool
	MaxSteps    int
}

// Start runs a session on the process's standard streams.
func Start() error {
	fd := os.Stdin.Fd()
	return Run(Config{
		In:          os.Stdin,
		Out:         os.Stdout,
		Interactive: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	})
}

// session reads source lines and READ responses from the same stream.
type session struct {
	cfg     Config
	scanner *bufio.Scanner
}

func (s *session) ReadLine() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

// Run buffers lines until the last token is the program terminator '.', then
// compiles and runs the buffered program. "exit" quits.
func Run(cfg Config) error {
	s := &session{cfg: cfg, scanner: bufio.NewScanner(cfg.In)}
	if cfg.Interactive {
		fmt.Fprintln(cfg.Out, "quadlang REPL | end a program with '.', type 'exit' to quit")
	}

	var buf strings.Builder
	for {
		s.prompt(buf.Len() == 0)
		line, err := s.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		trimmed := strings.TrimSpace(line)
		if buf.Len() == 0 && trimmed == "exit" {
			return nil
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
		if terminated(buf.String()) {
			s.execute(buf.String())
			buf.Reset()
		}
	}
}

func (s *session) prompt(fresh bool) {
	if !s.cfg.Interactive {
		return
	}
	if fresh {
		fmt.Fprint(s.cfg.Out, ">>> ")
	} else {
		fmt.Fprint(s.cfg.Out, "... ")
	}
}

func (s *session) execute(src string) {
	prog, err := compiler.CompileString(src, compiler.Options{File: "<repl>"})
	if err != nil {
		fmt.Fprintln(s.cfg.Out, err)
		return
	}
	machine := vm.NewVM(prog.Symbols, prog.Quads, vm.Config{
		Input:    s,
		Output:   s.cfg.Out,
		MaxSteps: s.cfg.MaxSteps,
	})
	if err := machine.Run(); err != nil {
		fmt.Fprintln(s.cfg.Out, err)
	}
}

// terminated reports whether the last token of src is '.'. Periods inside
// comments, strings and float literals do not count.
func terminated(src string) bool {
	s := lexer.NewScanner(strings.NewReader(src), symtab.New(), lexer.Options{})
	last := lexer.KindEOF
	for {
		tok := s.Next()
		if tok.Kind == lexer.KindEOF {
			return last == lexer.KindPeriod
		}
		last = tok.Kind
	}
}
