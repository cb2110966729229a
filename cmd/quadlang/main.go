package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"quadlang/internal/build"
	"quadlang/internal/bytecode"
	"quadlang/internal/compiler"
	"quadlang/internal/database"
	"quadlang/internal/debugger"
	"quadlang/internal/lexer"
	"quadlang/internal/repl"
	"quadlang/internal/reporting"
	"quadlang/internal/symtab"
	"quadlang/internal/vm"
)

const VERSION = "1.0.0"

// errFailed marks a failure that has already been reported.
var errFailed = errors.New("failed")

var logger = log.New(os.Stderr, "", 0)

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	var err error
	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "run":
		err = runCommand(args)
	case "check":
		err = checkCommand(args)
	case "dump":
		err = dumpCommand(args)
	case "build":
		err = buildCommand(args)
	case "save":
		err = saveCommand(args)
	case "exec":
		err = execCommand(args)
	case "list":
		err = listCommand(args)
	case "delete":
		err = deleteCommand(args)
	case "repl":
		err = repl.Start()
	case "version", "--version", "-v":
		showVersion()
	case "help", "--help", "-h":
		showUsage()
	default:
		logger.Printf("Unknown command: %s", command)
		showUsage()
		os.Exit(1)
	}

	if errors.Is(err, errFailed) {
		os.Exit(1)
	}
	if err != nil {
		logger.Fatalf("Error: %v", err)
	}
}

// sourceArg parses fs and returns its single positional argument.
func sourceArg(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", errors.Errorf("%s: expected exactly one argument", fs.Name())
	}
	return fs.Arg(0), nil
}

// dumpBase is the prefix shared by all dump files of path.
func dumpBase(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

type dumpFlags struct {
	enabled bool
	format  string
}

func (d *dumpFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&d.format, "format", "text", "dump format: text, json or csv")
}

func writeSymbols(path string, symbols *symtab.Table, format reporting.Format) error {
	return reporting.WriteFile(path, func(w io.Writer) error {
		return reporting.WriteSymbolTable(w, symbols, format)
	})
}

func writeQuads(path string, quads *bytecode.QuadTable, format reporting.Format) error {
	return reporting.WriteFile(path, func(w io.Writer) error {
		return reporting.WriteQuadTable(w, quads, format)
	})
}

// writeCompileDumps writes the symbol table as compiled and the quad table.
func writeCompileDumps(base string, prog *compiler.Program, format reporting.Format) error {
	if err := writeSymbols(base+"ST-before"+format.Ext(), prog.Symbols, format); err != nil {
		return err
	}
	return writeQuads(base+"QUADS"+format.Ext(), prog.Quads, format)
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	trace := fs.Bool("trace", false, "print each quad before it executes")
	var dump dumpFlags
	fs.BoolVar(&dump.enabled, "dump", false, "write table dumps and the trace file next to the source")
	dump.register(fs)
	echo := fs.Bool("echo", false, "echo numbered source lines")
	tokens := fs.Bool("tokens", false, "print every token")
	parseTrace := fs.Bool("parse-trace", false, "print parser productions as they are entered and left")
	stats := fs.Bool("stats", false, "print execution statistics")
	maxSteps := fs.Int("max-steps", 0, "stop after this many quads (0 = unbounded)")
	path, err := sourceArg(fs, args)
	if err != nil {
		return err
	}
	format, err := reporting.ParseFormat(dump.format)
	if err != nil {
		return err
	}

	opts := compiler.Options{Logger: logger}
	if *echo {
		opts.Echo = os.Stdout
	}
	if *tokens {
		opts.Tokens = os.Stdout
	}
	if *parseTrace {
		opts.Trace = os.Stdout
	}
	prog, err := compiler.CompileFile(path, opts)
	if prog == nil {
		return err
	}
	base := dumpBase(path)
	if dump.enabled {
		if derr := writeCompileDumps(base, prog, format); derr != nil {
			return derr
		}
	}
	if err != nil {
		logger.Println(err)
		fmt.Println("Compilation failed.")
		fmt.Println("Done.")
		return errFailed
	}
	fmt.Println("Success.")

	var writers []io.Writer
	if *trace {
		writers = append(writers, os.Stdout)
	}
	if dump.enabled {
		f, ferr := os.Create(base + "TRACE.txt")
		if ferr != nil {
			return errors.Wrap(ferr, "failed to create trace file")
		}
		defer f.Close()
		writers = append(writers, f)
	}

	cfg := vm.Config{
		Input:    vm.LineInput(os.Stdin),
		Output:   os.Stdout,
		MaxSteps: *maxSteps,
	}
	var tracer *debugger.Tracer
	if len(writers) > 0 {
		tracer = debugger.NewTracer(writers...)
		cfg.Hook = tracer
		tracer.Begin()
	}
	machine := vm.NewVM(prog.Symbols, prog.Quads, cfg)
	runErr := machine.Run()
	if runErr != nil {
		logger.Println(runErr)
	}
	if tracer != nil {
		tracer.End()
	}

	if dump.enabled {
		if err := writeSymbols(base+"ST-after"+format.Ext(), prog.Symbols, format); err != nil {
			return err
		}
	}
	if *stats {
		fmt.Printf("Executed %s quads (%s symbols, %s quads in table), %d rejected inputs\n",
			humanize.Comma(int64(machine.Steps())),
			humanize.Comma(int64(prog.Symbols.Len())),
			humanize.Comma(int64(prog.Quads.Len())),
			len(machine.InputErrors()))
	}
	fmt.Println("Done.")
	if runErr != nil {
		return errFailed
	}
	return nil
}

func checkCommand(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	path, err := sourceArg(fs, args)
	if err != nil {
		return err
	}
	if _, err := compiler.CompileFile(path, compiler.Options{Logger: logger}); err != nil {
		return err
	}
	fmt.Printf("%s: syntax is valid\n", path)
	return nil
}

func dumpCommand(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	var dump dumpFlags
	dump.register(fs)
	names := fs.Bool("names", false, "also print the reserved word and opcode tables")
	path, err := sourceArg(fs, args)
	if err != nil {
		return err
	}
	format, err := reporting.ParseFormat(dump.format)
	if err != nil {
		return err
	}

	if *names {
		if err := reporting.WriteNameTable(os.Stdout, "Reserved Words", lexer.Reserved); err != nil {
			return err
		}
		if err := reporting.WriteNameTable(os.Stdout, "Opcodes", bytecode.Mnemonics); err != nil {
			return err
		}
	}

	prog, err := compiler.CompileFile(path, compiler.Options{Logger: logger})
	if prog == nil {
		return err
	}
	base := dumpBase(path)
	if derr := writeCompileDumps(base, prog, format); derr != nil {
		return derr
	}
	fmt.Printf("wrote %sST-before%s and %sQUADS%s\n", base, format.Ext(), base, format.Ext())
	return err
}

func buildCommand(args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	out := fs.String("o", "", "output file (default <source>.ll)")
	path, err := sourceArg(fs, args)
	if err != nil {
		return err
	}
	prog, err := compiler.CompileFile(path, compiler.Options{Logger: logger})
	if err != nil {
		return err
	}
	m, err := build.EmitLLVM(filepath.Base(path), prog.Symbols, prog.Quads)
	if err != nil {
		return errors.Wrap(err, "failed to lower program")
	}
	if *out == "" {
		*out = dumpBase(path) + ".ll"
	}
	if err := reporting.WriteFile(*out, func(w io.Writer) error { return build.WriteIR(w, m) }); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *out)
	fmt.Print(build.Describe(m))
	return nil
}

func openStore(db string) (*database.Store, error) {
	if db == "" {
		return nil, errors.New("missing -db")
	}
	return database.Open(context.Background(), db)
}

func saveCommand(args []string) error {
	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	db := fs.String("db", "quadlang.db", "program store")
	path, err := sourceArg(fs, args)
	if err != nil {
		return err
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read source")
	}
	prog, err := compiler.CompileString(string(source), compiler.Options{File: path, Logger: logger})
	if err != nil {
		return err
	}

	store, err := openStore(*db)
	if err != nil {
		return err
	}
	defer store.Close()
	id, err := store.Save(context.Background(), prog.Name, string(source), prog.Symbols, prog.Quads)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func execCommand(args []string) error {
	fs := flag.NewFlagSet("exec", flag.ContinueOnError)
	db := fs.String("db", "quadlang.db", "program store")
	trace := fs.Bool("trace", false, "print each quad before it executes")
	maxSteps := fs.Int("max-steps", 0, "stop after this many quads (0 = unbounded)")
	id, err := sourceArg(fs, args)
	if err != nil {
		return err
	}

	store, err := openStore(*db)
	if err != nil {
		return err
	}
	defer store.Close()
	stored, err := store.Load(context.Background(), id)
	if err != nil {
		return err
	}

	cfg := vm.Config{
		Input:    vm.LineInput(os.Stdin),
		Output:   os.Stdout,
		MaxSteps: *maxSteps,
	}
	var tracer *debugger.Tracer
	if *trace {
		tracer = debugger.NewTracer(os.Stdout)
		cfg.Hook = tracer
		tracer.Begin()
	}
	runErr := vm.NewVM(stored.Symbols, stored.Quads, cfg).Run()
	if tracer != nil {
		tracer.End()
	}
	if runErr != nil {
		logger.Println(runErr)
		return errFailed
	}
	return nil
}

func listCommand(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	db := fs.String("db", "quadlang.db", "program store")
	if err := fs.Parse(args); err != nil {
		return err
	}
	store, err := openStore(*db)
	if err != nil {
		return err
	}
	defer store.Close()
	programs, err := store.List(context.Background())
	if err != nil {
		return err
	}
	if len(programs) == 0 {
		fmt.Println("no stored programs")
		return nil
	}
	for _, p := range programs {
		fmt.Printf("%s  %-20s %4d symbols %4d quads  saved %s\n",
			p.ID, p.Name, p.Symbols, p.Quads, humanize.Time(p.Created))
	}
	return nil
}

func deleteCommand(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	db := fs.String("db", "quadlang.db", "program store")
	id, err := sourceArg(fs, args)
	if err != nil {
		return err
	}
	store, err := openStore(*db)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Delete(context.Background(), id); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", id)
	return nil
}

func showUsage() {
	fmt.Println("quadlang - quad compiler and interpreter")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  quadlang run <file>            Compile and interpret a program")
	fmt.Println("      -trace                     print each quad before it executes")
	fmt.Println("      -dump [-format f]          write ST-before, QUADS, ST-after and TRACE files")
	fmt.Println("      -echo -tokens -parse-trace show lexer and parser output")
	fmt.Println("      -stats -max-steps n        execution statistics and step limit")
	fmt.Println("  quadlang check <file>          Check syntax without running")
	fmt.Println("  quadlang dump [-names] <file>  Write the compiled tables")
	fmt.Println("  quadlang build [-o out] <file> Emit LLVM IR")
	fmt.Println("  quadlang repl                  Start interactive REPL")
	fmt.Println()
	fmt.Println("Program Store:")
	fmt.Println("  quadlang save -db <db> <file>  Compile and store a program")
	fmt.Println("  quadlang exec -db <db> <id>    Run a stored program")
	fmt.Println("  quadlang list -db <db>         List stored programs")
	fmt.Println("  quadlang delete -db <db> <id>  Remove a stored program")
	fmt.Println()
	fmt.Println("  quadlang version               Show version")
}

func showVersion() {
	fmt.Printf("quadlang v%s\n", VERSION)
}
