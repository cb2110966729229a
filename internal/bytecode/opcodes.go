package bytecode

import "quadlang/internal/nametable"

type Opcode int

const (
	OpStop Opcode = iota
	OpDiv
	OpMul
	OpSub
	OpAdd
	OpMove
	OpPrint
	OpRead
	OpJump
	OpJumpZero
	OpJumpPositive
	OpJumpNegative
	OpJumpNonZero
	OpJumpNonPositive
	OpJumpNonNegative
	OpJumpIndirect
)

// Mnemonics is the opcode name table used for decoding and trace output.
var Mnemonics = func() *nametable.Table[Opcode] {
	t := nametable.New[Opcode]()
	t.Add("STOP", OpStop)
	t.Add("DIV", OpDiv)
	t.Add("MUL", OpMul)
	t.Add("SUB", OpSub)
	t.Add("ADD", OpAdd)
	t.Add("MOV", OpMove)
	t.Add("PRINT", OpPrint)
	t.Add("READ", OpRead)
	t.Add("JMP", OpJump)
	t.Add("JZ", OpJumpZero)
	t.Add("JP", OpJumpPositive)
	t.Add("JN", OpJumpNegative)
	t.Add("JNZ", OpJumpNonZero)
	t.Add("JNP", OpJumpNonPositive)
	t.Add("JNN", OpJumpNonNegative)
	t.Add("JINDR", OpJumpIndirect)
	return t
}()

// Mnemonic returns the registered name of op.
func (op Opcode) Mnemonic() (string, bool) {
	name := Mnemonics.LookupCode(op)
	return name, name != ""
}

func (op Opcode) String() string {
	if name, ok := op.Mnemonic(); ok {
		return name
	}
	return "OP?"
}

// IsBranch reports whether op3 of op is a quad address.
func (op Opcode) IsBranch() bool {
	return op >= OpJump && op <= OpJumpNonNegative
}
