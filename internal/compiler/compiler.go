// internal/compiler/compiler.go
package compiler

import (
	"io"
	"log"
	"os"
	"strings"

	"quadlang/internal/bytecode"
	qerr "quadlang/internal/errors"
	"quadlang/internal/lexer"
	"quadlang/internal/parser"
	"quadlang/internal/symtab"
)

// Options configure one compilation.
type Options struct {
	File   string
	Logger *log.Logger
	// Echo, Tokens and Trace are the optional lexer and parser side channels.
	Echo   io.Writer
	Tokens io.Writer
	Trace  io.Writer
}

// Program is the output of a compilation: the tables the interpreter needs plus
// the diagnostics recorded on the way.
type Program struct {
	Name     string
	Symbols  *symtab.Table
	Quads    *bytecode.QuadTable
	Warnings []*qerr.Error
}

// Compile scans and parses r into a fresh symbol table and quad table. The
// returned Program is non-nil even when err is set, so partial tables can still
// be dumped. A program with a non-nil error must not be interpreted.
func Compile(r io.Reader, opts Options) (*Program, error) {
	prog := &Program{
		Symbols: symtab.New(),
		Quads:   bytecode.NewQuadTable(),
	}

	scanner := lexer.NewScanner(r, prog.Symbols, lexer.Options{
		File:        opts.File,
		Logger:      opts.Logger,
		Echo:        opts.Echo,
		PrintTokens: opts.Tokens,
	})
	p, err := parser.New(scanner, prog.Symbols, prog.Quads, parser.Options{
		File:  opts.File,
		Trace: opts.Trace,
	})
	if err != nil {
		return prog, err
	}

	err = p.Parse()
	prog.Name = p.ProgramName()
	prog.Warnings = scanner.Warnings()
	return prog, err
}

// CompileString is Compile over an in-memory source.
func CompileString(src string, opts Options) (*Program, error) {
	return Compile(strings.NewReader(src), opts)
}

// CompileFile opens path and compiles it, naming diagnostics after the file.
func CompileFile(path string, opts Options) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if opts.File == "" {
		opts.File = path
	}
	return Compile(f, opts)
}
