// internal/build/builder.go
package build

import (
	"fmt"
	"io"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	"quadlang/internal/bytecode"
	"quadlang/internal/symtab"
)

var ErrUnknownOpcode = errors.New("unknown opcode")

// Builder lowers one quad program to an LLVM module. Every symbol becomes an i64
// global (floats truncated, as the interpreter does), every quad a basic block.
type Builder struct {
	symbols *symtab.Table
	quads   *bytecode.QuadTable

	module  *ir.Module
	main    *ir.Func
	blocks  []*ir.Block
	end     *ir.Block
	globals []*ir.Global
	strs    map[string]*ir.Global

	printf *ir.Func
	scanf  *ir.Func
	exit   *ir.Func
}

// EmitLLVM lowers the program to a module whose main runs it once.
func EmitLLVM(name string, symbols *symtab.Table, quads *bytecode.QuadTable) (*ir.Module, error) {
	b := &Builder{
		symbols: symbols,
		quads:   quads,
		module:  ir.NewModule(),
		strs:    make(map[string]*ir.Global),
	}
	b.module.SourceFilename = name
	return b.build()
}

// WriteIR writes the textual IR of m.
func WriteIR(w io.Writer, m *ir.Module) error {
	_, err := io.WriteString(w, m.String())
	return err
}

func (b *Builder) build() (*ir.Module, error) {
	m := b.module

	b.printf = m.NewFunc("printf", types.I32, ir.NewParam("format", types.I8Ptr))
	b.printf.Sig.Variadic = true
	b.scanf = m.NewFunc("scanf", types.I32, ir.NewParam("format", types.I8Ptr))
	b.scanf.Sig.Variadic = true
	b.exit = m.NewFunc("exit", types.Void, ir.NewParam("status", types.I32))

	for i, sym := range b.symbols.Symbols() {
		v, _ := symtab.AsInt(sym.Value)
		g := m.NewGlobalDef(fmt.Sprintf("s%d", i), constant.NewInt(types.I64, v))
		b.globals = append(b.globals, g)
	}

	b.main = m.NewFunc("main", types.I32)
	entry := b.main.NewBlock("entry")
	for addr := 0; addr < b.quads.Len(); addr++ {
		b.blocks = append(b.blocks, b.main.NewBlock(fmt.Sprintf("q%d", addr)))
	}
	b.end = b.main.NewBlock("end")
	b.end.NewRet(constant.NewInt(types.I32, 0))
	entry.NewBr(b.target(0))

	for addr, q := range b.quads.Quads() {
		if err := b.lower(addr, q); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// target maps a quad address to its block; addresses past the table end the run.
func (b *Builder) target(addr int) *ir.Block {
	if addr >= 0 && addr < len(b.blocks) {
		return b.blocks[addr]
	}
	return b.end
}

func (b *Builder) global(index int) (*ir.Global, error) {
	if index < 0 || index >= len(b.globals) {
		return nil, errors.Wrapf(symtab.ErrOutOfRange, "operand %d", index)
	}
	return b.globals[index], nil
}

func (b *Builder) load(blk *ir.Block, index int) (value.Value, error) {
	g, err := b.global(index)
	if err != nil {
		return nil, err
	}
	return blk.NewLoad(types.I64, g), nil
}

func (b *Builder) lower(addr int, q bytecode.Quad) error {
	blk := b.blocks[addr]
	next := b.target(addr + 1)

	switch q.Op {
	case bytecode.OpStop:
		blk.NewBr(b.end)

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv:
		x, err := b.load(blk, q.Op1)
		if err != nil {
			return err
		}
		y, err := b.load(blk, q.Op2)
		if err != nil {
			return err
		}
		dst, err := b.global(q.Op3)
		if err != nil {
			return err
		}
		var result value.Value
		switch q.Op {
		case bytecode.OpAdd:
			result = blk.NewAdd(x, y)
		case bytecode.OpSub:
			result = blk.NewSub(x, y)
		case bytecode.OpMul:
			result = blk.NewMul(x, y)
		case bytecode.OpDiv:
			zero := blk.NewICmp(enum.IPredEQ, y, constant.NewInt(types.I64, 0))
			fault := b.main.NewBlock(fmt.Sprintf("q%d.divzero", addr))
			b.fail(fault, fmt.Sprintf("RuntimeError: division by zero at PC %04d\n", addr))
			divide := b.main.NewBlock(fmt.Sprintf("q%d.div", addr))
			blk.NewCondBr(zero, fault, divide)
			blk = divide
			result = blk.NewSDiv(x, y)
		}
		blk.NewStore(result, dst)
		blk.NewBr(next)

	case bytecode.OpMove:
		x, err := b.load(blk, q.Op1)
		if err != nil {
			return err
		}
		dst, err := b.global(q.Op3)
		if err != nil {
			return err
		}
		blk.NewStore(x, dst)
		blk.NewBr(next)

	case bytecode.OpPrint:
		if err := b.lowerPrint(blk, q.Op3); err != nil {
			return err
		}
		blk.NewBr(next)

	case bytecode.OpRead:
		return b.lowerRead(addr, blk, q.Op3, next)

	case bytecode.OpJump:
		blk.NewBr(b.target(q.Op3))

	case bytecode.OpJumpZero, bytecode.OpJumpPositive, bytecode.OpJumpNegative,
		bytecode.OpJumpNonZero, bytecode.OpJumpNonPositive, bytecode.OpJumpNonNegative:
		x, err := b.load(blk, q.Op1)
		if err != nil {
			return err
		}
		cond := blk.NewICmp(predicate(q.Op), x, constant.NewInt(types.I64, 0))
		blk.NewCondBr(cond, b.target(q.Op3), next)

	case bytecode.OpJumpIndirect:
		x, err := b.load(blk, q.Op3)
		if err != nil {
			return err
		}
		out := b.main.NewBlock(fmt.Sprintf("q%d.out", addr))
		cases := make([]*ir.Case, 0, len(b.blocks))
		for i, target := range b.blocks {
			cases = append(cases, ir.NewCase(constant.NewInt(types.I64, int64(i)), target))
		}
		blk.NewSwitch(x, out, cases...)

		negative := out.NewICmp(enum.IPredSLT, x, constant.NewInt(types.I64, 0))
		fault := b.main.NewBlock(fmt.Sprintf("q%d.badaddr", addr))
		b.fail(fault, fmt.Sprintf("RuntimeError: bad address at PC %04d\n", addr))
		out.NewCondBr(negative, fault, b.end)

	default:
		return errors.Wrapf(ErrUnknownOpcode, "%d at %d", int(q.Op), addr)
	}
	return nil
}

// predicate is the icmp against zero that makes a conditional jump take its branch.
func predicate(op bytecode.Opcode) enum.IPred {
	switch op {
	case bytecode.OpJumpZero:
		return enum.IPredEQ
	case bytecode.OpJumpPositive:
		return enum.IPredSGT
	case bytecode.OpJumpNegative:
		return enum.IPredSLT
	case bytecode.OpJumpNonZero:
		return enum.IPredNE
	case bytecode.OpJumpNonPositive:
		return enum.IPredSLE
	default:
		return enum.IPredSGE
	}
}

func (b *Builder) lowerPrint(blk *ir.Block, index int) error {
	sym, err := b.symbols.Get(index)
	if err != nil {
		return err
	}
	switch sym.DataType() {
	case symtab.String:
		blk.NewCall(b.printf, b.cstr("%s\n"), b.cstr(sym.Value.String()))
	case symtab.Float:
		blk.NewCall(b.printf, b.cstr("%s = %s\n"), b.cstr(sym.Name), b.cstr(sym.Value.String()))
	default:
		x, err := b.load(blk, index)
		if err != nil {
			return err
		}
		blk.NewCall(b.printf, b.cstr("%s = %lld\n"), b.cstr(sym.Name), x)
	}
	return nil
}

func (b *Builder) lowerRead(addr int, blk *ir.Block, index int, next *ir.Block) error {
	sym, err := b.symbols.Get(index)
	if err != nil {
		return err
	}
	dst, err := b.global(index)
	if err != nil {
		return err
	}
	blk.NewCall(b.printf, b.cstr("Enter an integer value into '%s': "), b.cstr(sym.Name))
	n := blk.NewCall(b.scanf, b.cstr("%lld"), dst)
	ok := blk.NewICmp(enum.IPredEQ, n, constant.NewInt(types.I32, 1))

	accepted := b.main.NewBlock(fmt.Sprintf("q%d.accepted", addr))
	rejected := b.main.NewBlock(fmt.Sprintf("q%d.rejected", addr))
	blk.NewCondBr(ok, accepted, rejected)

	v := accepted.NewLoad(types.I64, dst)
	accepted.NewCall(b.printf, b.cstr("Integer accepted! %s is now %lld\n"), b.cstr(sym.Name), v)
	accepted.NewBr(next)

	rejected.NewCall(b.scanf, b.cstr("%*s"))
	rejected.NewCall(b.printf, b.cstr("%s\n"), b.cstr("ERROR: You did not enter an int! Ignoring input."))
	rejected.NewBr(next)
	return nil
}

// fail prints msg and exits with status 1.
func (b *Builder) fail(blk *ir.Block, msg string) {
	blk.NewCall(b.printf, b.cstr("%s"), b.cstr(msg))
	blk.NewCall(b.exit, constant.NewInt(types.I32, 1))
	blk.NewUnreachable()
}

// cstr returns an i8* to a private NUL-terminated copy of s, shared per string.
func (b *Builder) cstr(s string) constant.Constant {
	g, ok := b.strs[s]
	if !ok {
		g = b.module.NewGlobalDef(fmt.Sprintf(".str.%d", len(b.strs)), constant.NewCharArrayFromString(s+"\x00"))
		g.Immutable = true
		b.strs[s] = g
	}
	zero := constant.NewInt(types.I64, 0)
	return constant.NewGetElementPtr(g.ContentType, g, zero, zero)
}

// Describe summarizes m for the CLI.
func Describe(m *ir.Module) string {
	var sb strings.Builder
	for _, f := range m.Funcs {
		if len(f.Blocks) > 0 {
			fmt.Fprintf(&sb, "%s: %d blocks\n", f.Name(), len(f.Blocks))
		}
	}
	fmt.Fprintf(&sb, "%d globals\n", len(m.Globals))
	return sb.String()
}
