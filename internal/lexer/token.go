package lexer

import (
	"fmt"

	"quadlang/internal/nametable"
)

// Kind classifies a token. The numeric values are the language's token codes.
type Kind int

const (
	// Reserved words
	KindGoTo      Kind = 0
	KindInteger   Kind = 1
	KindTo        Kind = 2
	KindDo        Kind = 3
	KindIf        Kind = 4
	KindThen      Kind = 5
	KindElse      Kind = 6
	KindFor       Kind = 7
	KindOf        Kind = 8
	KindPrintln   Kind = 9
	KindReadln    Kind = 10
	KindBegin     Kind = 11
	KindEnd       Kind = 12
	KindVar       Kind = 13
	KindDoWhile   Kind = 14
	KindProgram   Kind = 15
	KindLabel     Kind = 16
	KindRepeat    Kind = 17
	KindUntil     Kind = 18
	KindProcedure Kind = 19
	KindDownTo    Kind = 20
	KindFunction  Kind = 21
	KindReturn    Kind = 22
	KindFloat     Kind = 23
	KindString    Kind = 24
	KindArray     Kind = 25

	// One and two character tokens
	KindSlash     Kind = 30
	KindStar      Kind = 31
	KindPlus      Kind = 32
	KindMinus     Kind = 33
	KindLParen    Kind = 34
	KindRParen    Kind = 35
	KindSemicolon Kind = 36
	KindAssign    Kind = 37
	KindGT        Kind = 38
	KindLT        Kind = 39
	KindGE        Kind = 40
	KindLE        Kind = 41
	KindEqual     Kind = 42
	KindNotEqual  Kind = 43
	KindComma     Kind = 44
	KindLBracket  Kind = 45
	KindRBracket  Kind = 46
	KindColon     Kind = 47
	KindPeriod    Kind = 48

	// Literals
	KindIdent     Kind = 50
	KindIntLit    Kind = 51
	KindFloatLit  Kind = 52
	KindStringLit Kind = 53

	KindUnknown Kind = 99
	KindEOF     Kind = 100
)

// Reserved maps reserved words and punctuation to their kinds. WHILE, PRINT and
// READ are aliases; the first spelling of each code is the canonical one.
var Reserved = func() *nametable.Table[Kind] {
	t := nametable.New[Kind]()
	for _, e := range []nametable.Entry[Kind]{
		{Name: "GO_TO", Code: KindGoTo}, {Name: "INTEGER", Code: KindInteger}, {Name: "TO", Code: KindTo}, {Name: "DO", Code: KindDo},
		{Name: "IF", Code: KindIf}, {Name: "THEN", Code: KindThen}, {Name: "ELSE", Code: KindElse}, {Name: "FOR", Code: KindFor},
		{Name: "OF", Code: KindOf}, {Name: "PRINTLN", Code: KindPrintln}, {Name: "READLN", Code: KindReadln},
		{Name: "BEGIN", Code: KindBegin}, {Name: "END", Code: KindEnd}, {Name: "VAR", Code: KindVar},
		{Name: "DOWHILE", Code: KindDoWhile}, {Name: "PROGRAM", Code: KindProgram}, {Name: "LABEL", Code: KindLabel},
		{Name: "REPEAT", Code: KindRepeat}, {Name: "UNTIL", Code: KindUntil}, {Name: "PROCEDURE", Code: KindProcedure},
		{Name: "DOWNTO", Code: KindDownTo}, {Name: "FUNCTION", Code: KindFunction}, {Name: "RETURN", Code: KindReturn},
		{Name: "FLOAT", Code: KindFloat}, {Name: "STRING", Code: KindString}, {Name: "ARRAY", Code: KindArray},
		{Name: "WHILE", Code: KindDoWhile}, {Name: "PRINT", Code: KindPrintln}, {Name: "READ", Code: KindReadln},

		{Name: "/", Code: KindSlash}, {Name: "*", Code: KindStar}, {Name: "+", Code: KindPlus}, {Name: "-", Code: KindMinus},
		{Name: "(", Code: KindLParen}, {Name: ")", Code: KindRParen}, {Name: ";", Code: KindSemicolon}, {Name: ":=", Code: KindAssign},
		{Name: ">", Code: KindGT}, {Name: "<", Code: KindLT}, {Name: ">=", Code: KindGE}, {Name: "<=", Code: KindLE},
		{Name: "=", Code: KindEqual}, {Name: "<>", Code: KindNotEqual}, {Name: ",", Code: KindComma}, {Name: "[", Code: KindLBracket},
		{Name: "]", Code: KindRBracket}, {Name: ":", Code: KindColon}, {Name: ".", Code: KindPeriod},
	} {
		t.Add(e.Name, e.Code)
	}
	return t
}()

// Mnemonics holds the fixed-width display name of every kind.
var Mnemonics = func() *nametable.Table[Kind] {
	t := nametable.New[Kind]()
	for _, e := range []nametable.Entry[Kind]{
		{Name: "GOTO_", Code: KindGoTo}, {Name: "INTGR", Code: KindInteger}, {Name: "TO___", Code: KindTo}, {Name: "DO___", Code: KindDo},
		{Name: "IF___", Code: KindIf}, {Name: "THEN_", Code: KindThen}, {Name: "ELSE_", Code: KindElse}, {Name: "FOR__", Code: KindFor},
		{Name: "OF___", Code: KindOf}, {Name: "PRINT", Code: KindPrintln}, {Name: "READL", Code: KindReadln},
		{Name: "BEGIN", Code: KindBegin}, {Name: "END__", Code: KindEnd}, {Name: "VAR__", Code: KindVar},
		{Name: "DOWHI", Code: KindDoWhile}, {Name: "PROGR", Code: KindProgram}, {Name: "LABEL", Code: KindLabel},
		{Name: "REPEA", Code: KindRepeat}, {Name: "UNTIL", Code: KindUntil}, {Name: "PROCE", Code: KindProcedure},
		{Name: "DOWNT", Code: KindDownTo}, {Name: "FUNCT", Code: KindFunction}, {Name: "RETUR", Code: KindReturn},
		{Name: "FLOAT", Code: KindFloat}, {Name: "STRIN", Code: KindString}, {Name: "ARRAY", Code: KindArray},

		{Name: "_FRSL", Code: KindSlash}, {Name: "_STAR", Code: KindStar}, {Name: "_PLUS", Code: KindPlus}, {Name: "_DASH", Code: KindMinus},
		{Name: "_FPAR", Code: KindLParen}, {Name: "_BPAR", Code: KindRParen}, {Name: "_SEMI", Code: KindSemicolon},
		{Name: "_CEQA", Code: KindAssign}, {Name: "_GRTR", Code: KindGT}, {Name: "_LESS", Code: KindLT}, {Name: "_GREQ", Code: KindGE},
		{Name: "_LEEQ", Code: KindLE}, {Name: "_EQUA", Code: KindEqual}, {Name: "_COMP", Code: KindNotEqual},
		{Name: "_COMA", Code: KindComma}, {Name: "_FBRC", Code: KindLBracket}, {Name: "_BBRC", Code: KindRBracket},
		{Name: "_COLO", Code: KindColon}, {Name: "_PERI", Code: KindPeriod},

		{Name: "_IDNT", Code: KindIdent}, {Name: "_INTG", Code: KindIntLit}, {Name: "_FLOA", Code: KindFloatLit},
		{Name: "_STRN", Code: KindStringLit},

		{Name: "UNKWN", Code: KindUnknown}, {Name: "_EOF_", Code: KindEOF},
	} {
		t.Add(e.Name, e.Code)
	}
	return t
}()

// Mnemonic returns the fixed-width display name of k.
func (k Kind) Mnemonic() string {
	return Mnemonics.LookupCode(k)
}

// Spelling returns the canonical source spelling of a reserved kind, or its
// mnemonic for literal classes.
func (k Kind) Spelling() string {
	if s := Reserved.LookupCode(k); s != "" {
		return s
	}
	switch k {
	case KindIdent:
		return "<identifier>"
	case KindIntLit:
		return "<integer>"
	case KindFloatLit:
		return "<float>"
	case KindStringLit:
		return "<string>"
	case KindEOF:
		return "end of input"
	}
	return k.Mnemonic()
}

type Token struct {
	Lexeme   string
	Kind     Kind
	Mnemonic string
	Line     int
	Column   int
	// Symbol is the symbol table index of an identifier or literal, or -1.
	Symbol int
}

func (t Token) String() string {
	return fmt.Sprintf("[%s] '%s'", t.Mnemonic, t.Lexeme)
}

// Found renders the token for "expected X but found Y" diagnostics.
func (t Token) Found() string {
	if t.Kind == KindEOF {
		return "end of input"
	}
	return t.Lexeme
}
