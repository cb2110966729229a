package parser

import (
	"quadlang/internal/bytecode"
	"quadlang/internal/lexer"
)

// <block> -> <block-body>
func (p *Parser) block() (int, error) {
	defer p.trace("Block")()
	return p.blockBody()
}

// <block-body> -> BEGIN <statement> {; <statement>}* END
func (p *Parser) blockBody() (int, error) {
	defer p.trace("BlockBody")()

	if err := p.consume(lexer.KindBegin, lexer.KindBegin.Spelling()); err != nil {
		return 0, err
	}
	if _, err := p.statement(); err != nil {
		return 0, err
	}
	for p.check(lexer.KindSemicolon) {
		if err := p.advance(); err != nil {
			return 0, err
		}
		if _, err := p.statement(); err != nil {
			return 0, err
		}
	}
	return 0, p.consume(lexer.KindEnd, lexer.KindEnd.Spelling())
}

func (p *Parser) statement() (int, error) {
	defer p.trace("Statement")()

	switch p.tok.Kind {
	case lexer.KindBegin:
		return p.blockBody()
	case lexer.KindIdent:
		return p.assignment()
	case lexer.KindIf:
		return p.ifStatement()
	case lexer.KindDoWhile:
		return p.whileStatement()
	case lexer.KindPrintln:
		return p.printStatement()
	case lexer.KindReadln:
		return p.readStatement()
	}
	return 0, p.errorf("start of statement")
}

// <variable> := <simple expression>
func (p *Parser) assignment() (int, error) {
	defer p.trace("Assignment")()

	left, err := p.variable()
	if err != nil {
		return 0, err
	}
	if err := p.consume(lexer.KindAssign, lexer.KindAssign.Spelling()); err != nil {
		return 0, err
	}
	right, err := p.simpleExpression()
	if err != nil {
		return 0, err
	}
	_, err = p.emit(bytecode.OpMove, right, 0, left)
	return left, err
}

// IF <relexpression> THEN <statement> [ELSE <statement>]
func (p *Parser) ifStatement() (int, error) {
	defer p.trace("IfStatement")()

	if err := p.advance(); err != nil {
		return 0, err
	}
	branch, err := p.relExpression()
	if err != nil {
		return 0, err
	}
	if err := p.consume(lexer.KindThen, lexer.KindThen.Spelling()); err != nil {
		return 0, err
	}
	if _, err := p.statement(); err != nil {
		return 0, err
	}

	if !p.check(lexer.KindElse) {
		return 0, p.patch(branch)
	}
	if err := p.advance(); err != nil {
		return 0, err
	}
	skipElse, err := p.emit(bytecode.OpJump, 0, 0, 0)
	if err != nil {
		return 0, err
	}
	if err := p.patch(branch); err != nil {
		return 0, err
	}
	if _, err := p.statement(); err != nil {
		return 0, err
	}
	return 0, p.patch(skipElse)
}

// DOWHILE <relexpression> DO <statement>
func (p *Parser) whileStatement() (int, error) {
	defer p.trace("WhileStatement")()

	if err := p.advance(); err != nil {
		return 0, err
	}
	top := p.quads.NextAddress()
	branch, err := p.relExpression()
	if err != nil {
		return 0, err
	}
	if err := p.consume(lexer.KindDo, lexer.KindDo.Spelling()); err != nil {
		return 0, err
	}
	if _, err := p.statement(); err != nil {
		return 0, err
	}
	if _, err := p.emit(bytecode.OpJump, 0, 0, top); err != nil {
		return 0, err
	}
	return 0, p.patch(branch)
}

// PRINTLN ( <simple expression> | <stringconst> )
func (p *Parser) printStatement() (int, error) {
	defer p.trace("PrintStatement")()

	if err := p.advance(); err != nil {
		return 0, err
	}
	if err := p.consume(lexer.KindLParen, lexer.KindLParen.Spelling()); err != nil {
		return 0, err
	}

	var (
		value int
		err   error
	)
	switch p.tok.Kind {
	case lexer.KindStringLit:
		value, err = p.stringConst()
	case lexer.KindPlus, lexer.KindMinus, lexer.KindIntLit, lexer.KindFloatLit, lexer.KindIdent, lexer.KindLParen:
		value, err = p.simpleExpression()
	default:
		err = p.errorf("<simple expression> or <string constant> or <identifier>")
	}
	if err != nil {
		return 0, err
	}
	if _, err := p.emit(bytecode.OpPrint, 0, 0, value); err != nil {
		return 0, err
	}
	return value, p.consume(lexer.KindRParen, lexer.KindRParen.Spelling())
}

// READLN ( <variable> )
func (p *Parser) readStatement() (int, error) {
	defer p.trace("ReadStatement")()

	if err := p.advance(); err != nil {
		return 0, err
	}
	if err := p.consume(lexer.KindLParen, lexer.KindLParen.Spelling()); err != nil {
		return 0, err
	}
	target, err := p.variable()
	if err != nil {
		return 0, err
	}
	if err := p.consume(lexer.KindRParen, lexer.KindRParen.Spelling()); err != nil {
		return 0, err
	}
	_, err = p.emit(bytecode.OpRead, 0, 0, target)
	return target, err
}

// <stringconst> -> <string literal>
func (p *Parser) stringConst() (int, error) {
	defer p.trace("StringConst")()

	idx := p.tok.Symbol
	if !p.check(lexer.KindStringLit) || idx < 0 {
		return 0, p.errorf("<string constant>")
	}
	return idx, p.advance()
}
