// internal/parser/parser.go
package parser

import (
	"fmt"
	"io"
	"strings"

	"quadlang/internal/bytecode"
	qerr "quadlang/internal/errors"
	"quadlang/internal/lexer"
	"quadlang/internal/symtab"
)

// Options tune a Parser. The zero value parses silently.
type Options struct {
	File string
	// Trace receives an Entering/Exiting line for every production.
	Trace io.Writer
}

// Parser is a one-token-lookahead recursive descent parser that emits quads while
// it recognizes the program. Every production returns the symbol index holding
// its value and the first error met; callers stop at the first error.
type Parser struct {
	scanner *lexer.Scanner
	symbols *symtab.Table
	quads   *bytecode.QuadTable
	opts    Options

	tok       lexer.Token
	level     int
	tempCount int
	program   string

	minusOne int
	plusOne  int
}

// New preloads the constants -1 and 1 and returns a parser reading from scanner.
func New(scanner *lexer.Scanner, symbols *symtab.Table, quads *bytecode.QuadTable, opts Options) (*Parser, error) {
	p := &Parser{
		scanner: scanner,
		symbols: symbols,
		quads:   quads,
		opts:    opts,
	}
	var err error
	if p.minusOne, err = symbols.Add("-1", symtab.Constant, symtab.Int(-1)); err != nil {
		return nil, qerr.NewCapacityError(err, qerr.SourceLocation{File: opts.File})
	}
	if p.plusOne, err = symbols.Add("1", symtab.Constant, symtab.Int(1)); err != nil {
		return nil, qerr.NewCapacityError(err, qerr.SourceLocation{File: opts.File})
	}
	return p, nil
}

// Parse compiles the whole input and appends the final STOP. On error the rest of
// the input is still consumed so token output stays complete.
func (p *Parser) Parse() error {
	err := p.advance()
	if err == nil {
		err = p.parseProgram()
	}
	if err != nil {
		p.drain()
	}
	if _, stopErr := p.emit(bytecode.OpStop, 0, 0, 0); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}

// ProgramName returns the identifier following PROGRAM.
func (p *Parser) ProgramName() string { return p.program }

// <program> -> PROGRAM <prog-identifier> ; <block> .
func (p *Parser) parseProgram() error {
	defer p.trace("Program")()

	if err := p.consume(lexer.KindProgram, lexer.KindProgram.Spelling()); err != nil {
		return err
	}
	if err := p.progIdentifier(); err != nil {
		return err
	}
	if err := p.consume(lexer.KindSemicolon, lexer.KindSemicolon.Spelling()); err != nil {
		return err
	}
	if _, err := p.block(); err != nil {
		return err
	}
	if !p.check(lexer.KindPeriod) {
		return p.errorf(lexer.KindPeriod.Spelling())
	}
	return nil
}

// <prog-identifier> -> <identifier>
func (p *Parser) progIdentifier() error {
	defer p.trace("ProgIdentifier")()

	if !p.check(lexer.KindIdent) || p.tok.Symbol == symtab.NotFound {
		return p.errorf("<prog_identifier>")
	}
	if err := p.symbols.Update(p.tok.Symbol, symtab.ProgramName, symtab.Int(0)); err != nil {
		return err
	}
	p.program = p.tok.Lexeme
	return p.advance()
}

// <simple expression> -> [<sign>] <term> {<addop> <term>}*
func (p *Parser) simpleExpression() (int, error) {
	defer p.trace("SimpleExpression")()

	negate := false
	if p.check(lexer.KindPlus) || p.check(lexer.KindMinus) {
		negate = p.check(lexer.KindMinus)
		if err := p.advance(); err != nil {
			return 0, err
		}
	}

	left, err := p.term()
	if err != nil {
		return 0, err
	}
	if negate {
		if left, err = p.emitTemp(bytecode.OpMul, left, p.minusOne); err != nil {
			return 0, err
		}
	}

	for p.check(lexer.KindPlus) || p.check(lexer.KindMinus) {
		op := bytecode.OpAdd
		if p.check(lexer.KindMinus) {
			op = bytecode.OpSub
		}
		if err := p.advance(); err != nil {
			return 0, err
		}
		right, err := p.term()
		if err != nil {
			return 0, err
		}
		if left, err = p.emitTemp(op, left, right); err != nil {
			return 0, err
		}
	}
	return left, nil
}

// <term> -> <factor> {<mulop> <factor>}*
func (p *Parser) term() (int, error) {
	defer p.trace("Term")()

	left, err := p.factor()
	if err != nil {
		return 0, err
	}
	for p.check(lexer.KindStar) || p.check(lexer.KindSlash) {
		op := bytecode.OpMul
		if p.check(lexer.KindSlash) {
			op = bytecode.OpDiv
		}
		if err := p.advance(); err != nil {
			return 0, err
		}
		right, err := p.factor()
		if err != nil {
			return 0, err
		}
		if left, err = p.emitTemp(op, left, right); err != nil {
			return 0, err
		}
	}
	return left, nil
}

// <factor> -> <unsigned constant> | <variable> | ( <simple expression> )
func (p *Parser) factor() (int, error) {
	defer p.trace("Factor")()

	switch p.tok.Kind {
	case lexer.KindIntLit, lexer.KindFloatLit, lexer.KindIdent:
		idx := p.tok.Symbol
		if idx == symtab.NotFound {
			return 0, p.errorf("constant or variable")
		}
		return idx, p.advance()
	case lexer.KindLParen:
		if err := p.advance(); err != nil {
			return 0, err
		}
		idx, err := p.simpleExpression()
		if err != nil {
			return 0, err
		}
		return idx, p.consume(lexer.KindRParen, lexer.KindRParen.Spelling())
	}
	return 0, p.errorf("constant, variable, or simple expression")
}

// <variable> -> <identifier>, excluding the program name.
func (p *Parser) variable() (int, error) {
	defer p.trace("Variable")()

	if !p.check(lexer.KindIdent) || p.tok.Symbol == symtab.NotFound {
		return 0, p.errorf("<variable>")
	}
	sym, err := p.symbols.Get(p.tok.Symbol)
	if err != nil {
		return 0, err
	}
	if sym.Kind == symtab.ProgramName {
		return 0, p.errorf("<variable>")
	}
	idx := p.tok.Symbol
	return idx, p.advance()
}

// <relexpression> -> <simple expression> <relop> <simple expression>
//
// A relation is lowered to SUB left,right,t followed by a branch on t that skips
// the true branch when the relation does not hold. The branch target is left at 0
// and its address is returned for patching.
func (p *Parser) relExpression() (int, error) {
	defer p.trace("RelExpression")()

	left, err := p.simpleExpression()
	if err != nil {
		return 0, err
	}
	branch, ok := falseBranch[p.tok.Kind]
	if !ok {
		return 0, p.errorf("relational operator")
	}
	if err := p.advance(); err != nil {
		return 0, err
	}
	right, err := p.simpleExpression()
	if err != nil {
		return 0, err
	}
	diff, err := p.emitTemp(bytecode.OpSub, left, right)
	if err != nil {
		return 0, err
	}
	return p.emit(branch, diff, 0, 0)
}

// falseBranch maps a relop to the branch taken when the relation is false.
var falseBranch = map[lexer.Kind]bytecode.Opcode{
	lexer.KindEqual:    bytecode.OpJumpNonZero,
	lexer.KindNotEqual: bytecode.OpJumpZero,
	lexer.KindLT:       bytecode.OpJumpNonNegative,
	lexer.KindGT:       bytecode.OpJumpNonPositive,
	lexer.KindLE:       bytecode.OpJumpPositive,
	lexer.KindGE:       bytecode.OpJumpNegative,
}

// genSymbol creates the next compiler temporary (@0, @1, ...).
func (p *Parser) genSymbol() (int, error) {
	name := fmt.Sprintf("@%d", p.tempCount)
	p.tempCount++
	idx, err := p.symbols.Add(name, symtab.Variable, symtab.Int(0))
	if err != nil {
		return 0, qerr.NewCapacityError(err, p.location())
	}
	return idx, nil
}

// emitTemp emits op a,b -> new temporary and returns the temporary.
func (p *Parser) emitTemp(op bytecode.Opcode, a, b int) (int, error) {
	temp, err := p.genSymbol()
	if err != nil {
		return 0, err
	}
	if _, err := p.emit(op, a, b, temp); err != nil {
		return 0, err
	}
	return temp, nil
}

func (p *Parser) emit(op bytecode.Opcode, op1, op2, op3 int) (int, error) {
	addr, err := p.quads.Append(op, op1, op2, op3)
	if err != nil {
		return 0, qerr.NewCapacityError(err, p.location())
	}
	return addr, nil
}

// patch points the branch at addr to the next quad address.
func (p *Parser) patch(addr int) error {
	return p.quads.SetBranchTarget(addr, p.quads.NextAddress())
}

func (p *Parser) check(kind lexer.Kind) bool {
	return p.tok.Kind == kind
}

func (p *Parser) consume(kind lexer.Kind, expected string) error {
	if !p.check(kind) {
		return p.errorf(expected)
	}
	return p.advance()
}

func (p *Parser) advance() error {
	p.tok = p.scanner.Next()
	return p.scanner.Err()
}

func (p *Parser) drain() {
	for p.tok.Kind != lexer.KindEOF {
		p.tok = p.scanner.Next()
	}
}

func (p *Parser) errorf(expected string) error {
	return qerr.NewSyntaxError(expected, p.tok.Found(), p.location())
}

func (p *Parser) location() qerr.SourceLocation {
	return qerr.SourceLocation{File: p.opts.File, Line: p.tok.Line, Column: p.tok.Column}
}

// trace prints the entry line for name and returns the matching exit.
func (p *Parser) trace(name string) func() {
	if p.opts.Trace == nil {
		return func() {}
	}
	fmt.Fprintf(p.opts.Trace, "%s--> Entering %s\n", strings.Repeat(" ", p.level), name)
	p.level++
	return func() {
		if p.level > 0 {
			p.level--
		}
		fmt.Fprintf(p.opts.Trace, "%s<-- Exiting %s\n", strings.Repeat(" ", p.level), name)
	}
}
