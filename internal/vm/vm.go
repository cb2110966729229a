package vm

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"quadlang/internal/bytecode"
	qerr "quadlang/internal/errors"
	"quadlang/internal/symtab"
)

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrUnknownOpcode  = errors.New("unknown opcode")
	ErrNotNumeric     = errors.New("operand is not numeric")
	ErrBadAddress     = errors.New("bad address")
	ErrStepLimit      = errors.New("step limit exceeded")
	ErrInterrupted    = errors.New("interrupted by hook")
)

// Hook observes execution. OnInstruction runs before every quad; returning false
// stops the run. OnStop runs when a STOP executes.
type Hook interface {
	OnInstruction(pc int, q bytecode.Quad) bool
	OnStop(pc int)
}

// Config wires a VM to the outside world. Nil Input behaves as an exhausted
// source and nil Output discards.
type Config struct {
	Input  Input
	Output io.Writer
	Hook   Hook
	// MaxSteps bounds the number of executed quads; 0 means no bound.
	MaxSteps int
}

// VM executes a quad table against a symbol table, mutating symbol values.
type VM struct {
	symbols *symtab.Table
	quads   *bytecode.QuadTable
	cfg     Config

	pc      int
	steps   int
	stopped bool

	inputErrors []*qerr.Error
}

func NewVM(symbols *symtab.Table, quads *bytecode.QuadTable, cfg Config) *VM {
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	if cfg.Input == nil {
		cfg.Input = &Responses{}
	}
	return &VM{symbols: symbols, quads: quads, cfg: cfg}
}

// Steps returns the number of quads executed so far.
func (vm *VM) Steps() int { return vm.steps }

// Stopped reports whether the run ended on a STOP rather than by running off the end.
func (vm *VM) Stopped() bool { return vm.stopped }

// InputErrors returns the rejected READ responses.
func (vm *VM) InputErrors() []*qerr.Error { return vm.inputErrors }

// Run executes from address 0 until STOP, until the program counter leaves the
// table, or until the first fatal error. On a fatal error the symbol table holds
// the state after the last completed quad.
func (vm *VM) Run() error {
	vm.pc = 0
	for vm.pc < vm.quads.Len() && vm.pc < bytecode.MaxQuads {
		if vm.cfg.MaxSteps > 0 && vm.steps >= vm.cfg.MaxSteps {
			return qerr.NewRuntimeError(ErrStepLimit, vm.pc, "executed %d quads", vm.steps)
		}
		q, err := vm.quads.Get(vm.pc)
		if err != nil {
			return qerr.NewRuntimeError(err, vm.pc, "fetch failed")
		}
		if _, ok := q.Op.Mnemonic(); !ok {
			return qerr.NewDecodeError(ErrUnknownOpcode, int(q.Op), vm.pc)
		}
		if vm.cfg.Hook != nil && !vm.cfg.Hook.OnInstruction(vm.pc, q) {
			return qerr.NewRuntimeError(ErrInterrupted, vm.pc, "execution stopped")
		}
		vm.steps++
		if err := vm.execute(q); err != nil {
			return err
		}
		if vm.stopped {
			return nil
		}
	}
	return nil
}

func (vm *VM) execute(q bytecode.Quad) error {
	switch q.Op {
	case bytecode.OpStop:
		vm.stopped = true
		if vm.cfg.Hook != nil {
			vm.cfg.Hook.OnStop(vm.pc)
		}
		vm.pc = bytecode.MaxQuads
		return nil

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv:
		a, err := vm.intOperand(q.Op1)
		if err != nil {
			return err
		}
		b, err := vm.intOperand(q.Op2)
		if err != nil {
			return err
		}
		var result int64
		switch q.Op {
		case bytecode.OpAdd:
			result = a + b
		case bytecode.OpSub:
			result = a - b
		case bytecode.OpMul:
			result = a * b
		case bytecode.OpDiv:
			if b == 0 {
				return qerr.NewRuntimeError(ErrDivisionByZero, vm.pc, "%s / %s",
					vm.symbols.Name(q.Op1), vm.symbols.Name(q.Op2))
			}
			result = a / b
		}
		if err := vm.store(q.Op3, result); err != nil {
			return err
		}

	case bytecode.OpMove:
		v, err := vm.intOperand(q.Op1)
		if err != nil {
			return err
		}
		if err := vm.store(q.Op3, v); err != nil {
			return err
		}

	case bytecode.OpPrint:
		if err := vm.print(q.Op3); err != nil {
			return err
		}

	case bytecode.OpRead:
		if err := vm.read(q.Op3); err != nil {
			return err
		}

	case bytecode.OpJump:
		vm.pc = q.Op3
		return nil

	case bytecode.OpJumpZero, bytecode.OpJumpPositive, bytecode.OpJumpNegative,
		bytecode.OpJumpNonZero, bytecode.OpJumpNonPositive, bytecode.OpJumpNonNegative:
		v, err := vm.intOperand(q.Op1)
		if err != nil {
			return err
		}
		if taken(q.Op, v) {
			vm.pc = q.Op3
			return nil
		}

	case bytecode.OpJumpIndirect:
		target, err := vm.intOperand(q.Op3)
		if err != nil {
			return err
		}
		if target < 0 {
			return qerr.NewRuntimeError(ErrBadAddress, vm.pc, "indirect jump to %d", target)
		}
		if target > bytecode.MaxQuads {
			target = bytecode.MaxQuads
		}
		vm.pc = int(target)
		return nil

	default:
		return qerr.NewDecodeError(ErrUnknownOpcode, int(q.Op), vm.pc)
	}
	vm.pc++
	return nil
}

func taken(op bytecode.Opcode, v int64) bool {
	switch op {
	case bytecode.OpJumpZero:
		return v == 0
	case bytecode.OpJumpPositive:
		return v > 0
	case bytecode.OpJumpNegative:
		return v < 0
	case bytecode.OpJumpNonZero:
		return v != 0
	case bytecode.OpJumpNonPositive:
		return v <= 0
	case bytecode.OpJumpNonNegative:
		return v >= 0
	}
	return false
}

func (vm *VM) symbol(index int) (symtab.Symbol, error) {
	sym, err := vm.symbols.Get(index)
	if err != nil {
		return symtab.Symbol{}, qerr.NewRuntimeError(err, vm.pc, "operand %d: %v", index, err)
	}
	return sym, nil
}

func (vm *VM) intOperand(index int) (int64, error) {
	sym, err := vm.symbol(index)
	if err != nil {
		return 0, err
	}
	v, ok := symtab.AsInt(sym.Value)
	if !ok {
		return 0, qerr.NewRuntimeError(ErrNotNumeric, vm.pc, "%s has data type %s", sym.Name, sym.DataType())
	}
	return v, nil
}

// store writes an integer into index, keeping its kind.
func (vm *VM) store(index int, v int64) error {
	sym, err := vm.symbol(index)
	if err != nil {
		return err
	}
	if err := vm.symbols.Update(index, sym.Kind, symtab.Int(v)); err != nil {
		return qerr.NewRuntimeError(err, vm.pc, "store to %d", index)
	}
	return nil
}

func (vm *VM) print(index int) error {
	sym, err := vm.symbol(index)
	if err != nil {
		return err
	}
	if sym.DataType() == symtab.String {
		fmt.Fprintln(vm.cfg.Output, sym.Value)
		return nil
	}
	fmt.Fprintf(vm.cfg.Output, "%s = %s\n", sym.Name, sym.Value)
	return nil
}

// read accepts one integer for index. A rejected response is reported and
// leaves the symbol untouched.
func (vm *VM) read(index int) error {
	sym, err := vm.symbol(index)
	if err != nil {
		return err
	}
	fmt.Fprintf(vm.cfg.Output, "Enter an integer value into '%s': ", sym.Name)

	line, err := vm.cfg.Input.ReadLine()
	if err != nil && err != io.EOF {
		return qerr.NewRuntimeError(err, vm.pc, "reading input for %s", sym.Name)
	}
	n, convErr := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err == io.EOF || convErr != nil {
		fmt.Fprintln(vm.cfg.Output, "ERROR: You did not enter an int! Ignoring input.")
		vm.inputErrors = append(vm.inputErrors, qerr.NewInputError(fmt.Sprintf("rejected %q for %s", line, sym.Name), vm.pc))
		return nil
	}
	if err := vm.store(index, n); err != nil {
		return err
	}
	fmt.Fprintf(vm.cfg.Output, "Integer accepted! %s is now %d\n", sym.Name, n)
	return nil
}
