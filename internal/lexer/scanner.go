package lexer

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	qerr "quadlang/internal/errors"
	"quadlang/internal/symtab"
)

const (
	MaxIdentLength  = 20
	MaxNumberLength = 9
)

// Options tune a Scanner. The zero value is silent.
type Options struct {
	File string
	// Logger receives every warning as it happens.
	Logger *log.Logger
	// Echo receives each source line, numbered, as it is read.
	Echo io.Writer
	// PrintTokens receives each token as it is produced.
	PrintTokens io.Writer
}

// Scanner turns source text into tokens on demand. It reads one line at a time and
// hands the classifier one character at a time, with a '\n' at every line end.
type Scanner struct {
	reader  *bufio.Reader
	symbols *symtab.Table
	opts    Options

	line     []rune
	pos      int
	lineNo   int
	needLine bool
	eof      bool
	current  rune

	warnings []*qerr.Error
	err      *qerr.Error
}

func NewScanner(r io.Reader, symbols *symtab.Table, opts Options) *Scanner {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	s := &Scanner{
		reader:   bufio.NewReader(r),
		symbols:  symbols,
		opts:     opts,
		pos:      -1,
		needLine: true,
	}
	s.current = s.nextChar()
	return s
}

// Warnings returns the lexical warnings recorded so far.
func (s *Scanner) Warnings() []*qerr.Error { return s.warnings }

// Err returns the first symbol table failure, if any.
func (s *Scanner) Err() error {
	if s.err == nil {
		return nil
	}
	return s.err
}

// Next returns the next token; at end of input it returns a KindEOF token forever.
func (s *Scanner) Next() Token {
	s.skipBlank()
	if s.eof {
		return Token{Kind: KindEOF, Mnemonic: KindEOF.Mnemonic(), Line: s.lineNo, Symbol: symtab.NotFound}
	}

	tok := Token{Line: s.lineNo, Column: s.pos + 1, Symbol: symtab.NotFound}
	c := s.current
	switch {
	case isLetter(c):
		s.identifier(&tok)
	case isDigit(c):
		s.number(&tok)
	case c == '"':
		s.string(&tok)
	default:
		s.oneTwoChar(&tok)
	}
	tok.Mnemonic = tok.Kind.Mnemonic()

	truncated := s.truncate(&tok)
	s.register(&tok, truncated)

	if s.opts.PrintTokens != nil {
		fmt.Fprintf(s.opts.PrintTokens, "\t%s | \t%04d | \t%s\n", tok.Mnemonic, int(tok.Kind), tok.Lexeme)
	}
	return tok
}

func (s *Scanner) identifier(tok *Token) {
	var sb strings.Builder
	for isLetter(s.current) || isDigit(s.current) || s.current == '|' || s.current == '_' {
		sb.WriteRune(s.current)
		s.current = s.nextChar()
	}
	tok.Lexeme = sb.String()
	if kind, ok := Reserved.Lookup(tok.Lexeme); ok && isWord(kind) {
		tok.Kind = kind
		return
	}
	tok.Kind = KindIdent
}

// number scans <digit>+ [. <digit>*] [E [+|-] <digit>+].
func (s *Scanner) number(tok *Token) {
	var sb strings.Builder
	digits := func() {
		for isDigit(s.current) {
			sb.WriteRune(s.current)
			s.current = s.nextChar()
		}
	}
	digits()
	if s.current == '.' {
		sb.WriteRune(s.current)
		s.current = s.nextChar()
		digits()
	}
	if s.current == 'e' || s.current == 'E' {
		sb.WriteRune(s.current)
		s.current = s.nextChar()
		if s.current == '+' || s.current == '-' {
			sb.WriteRune(s.current)
			s.current = s.nextChar()
		}
		digits()
	}
	tok.Lexeme = sb.String()

	if _, err := strconv.ParseInt(tok.Lexeme, 10, 64); err == nil {
		tok.Kind = KindIntLit
	} else if _, err := strconv.ParseFloat(tok.Lexeme, 64); err == nil {
		tok.Kind = KindFloatLit
	} else {
		tok.Kind = KindUnknown
	}
}

func (s *Scanner) string(tok *Token) {
	var sb strings.Builder
	s.current = s.nextChar()
	for s.current != '"' {
		if s.current == '\n' {
			s.warn("unterminated string", tok.Line, tok.Column)
			tok.Lexeme = sb.String()
			tok.Kind = KindUnknown
			return
		}
		sb.WriteRune(s.current)
		s.current = s.nextChar()
	}
	s.current = s.nextChar()
	tok.Lexeme = sb.String()
	tok.Kind = KindStringLit
}

func (s *Scanner) oneTwoChar(tok *Token) {
	lexeme := string(s.current)
	if isPrefix(s.current) {
		if pair := lexeme + string(s.peekChar()); isPair(pair) {
			s.current = s.nextChar()
			lexeme = pair
		}
	}
	s.current = s.nextChar()
	tok.Lexeme = lexeme
	if kind, ok := Reserved.Lookup(lexeme); ok && !isWord(kind) {
		tok.Kind = kind
		return
	}
	tok.Kind = KindUnknown
}

func (s *Scanner) truncate(tok *Token) bool {
	limit := 0
	switch tok.Kind {
	case KindIdent:
		limit = MaxIdentLength
	case KindIntLit, KindFloatLit:
		limit = MaxNumberLength
	default:
		return false
	}
	runes := []rune(tok.Lexeme)
	if len(runes) <= limit {
		return false
	}
	tok.Lexeme = string(runes[:limit])
	s.warn(fmt.Sprintf("%s truncated to %d characters: %s", kindNoun(tok.Kind), limit, tok.Lexeme), tok.Line, tok.Column)
	return true
}

func (s *Scanner) register(tok *Token, truncated bool) {
	var (
		name  = tok.Lexeme
		value symtab.Value
		kind  = symtab.Constant
	)
	switch tok.Kind {
	case KindIdent:
		kind, value = symtab.Variable, symtab.Int(0)
	case KindIntLit:
		value = symtab.Zero(symtab.Integer)
		if !truncated {
			n, _ := strconv.ParseInt(tok.Lexeme, 10, 64)
			value = symtab.Int(n)
		}
	case KindFloatLit:
		value = symtab.Zero(symtab.Float)
		if !truncated {
			f, _ := strconv.ParseFloat(tok.Lexeme, 64)
			value = symtab.Real(f)
		}
	case KindStringLit:
		name, value = StringSymbolName(tok.Lexeme), symtab.Text(tok.Lexeme)
	default:
		return
	}

	idx, err := s.symbols.Add(name, kind, value)
	if err != nil {
		if s.err == nil {
			s.err = qerr.NewCapacityError(err, s.location(tok.Line, tok.Column))
		}
		return
	}
	tok.Symbol = idx
}

// StringSymbolName is the symbol table name of a string literal. Quoting keeps
// literals apart from identifiers with the same spelling.
func StringSymbolName(text string) string {
	return `"` + text + `"`
}

func (s *Scanner) warn(msg string, line, col int) {
	w := qerr.NewWarning(msg, s.location(line, col))
	s.warnings = append(s.warnings, w)
	s.opts.Logger.Printf("WARNING: %s (line %d)", msg, line)
}

func (s *Scanner) location(line, col int) qerr.SourceLocation {
	return qerr.SourceLocation{File: s.opts.File, Line: line, Column: col}
}

// skipBlank moves past whitespace and both comment forms.
func (s *Scanner) skipBlank() {
	for {
		for isWhitespace(s.current) && !s.eof {
			s.current = s.nextChar()
		}
		if s.eof {
			return
		}
		switch {
		case s.current == '{':
			s.braceComment()
		case s.current == '(' && s.peekChar() == '*':
			s.parenComment()
		default:
			return
		}
	}
}

func (s *Scanner) braceComment() {
	line, col := s.lineNo, s.pos+1
	s.current = s.nextChar()
	for s.current != '}' && !s.eof {
		s.current = s.nextChar()
	}
	if s.eof {
		s.warn("comment not terminated before end of file", line, col)
		return
	}
	s.current = s.nextChar()
}

func (s *Scanner) parenComment() {
	line, col := s.lineNo, s.pos+1
	s.current = s.nextChar() // '*'
	s.current = s.nextChar()
	for !(s.current == '*' && s.peekChar() == ')') && !s.eof {
		s.current = s.nextChar()
	}
	if s.eof {
		s.warn("comment not terminated before end of file", line, col)
		return
	}
	s.current = s.nextChar()
	s.current = s.nextChar()
}

// nextChar returns the next character, or '\n' at the end of each line and at EOF.
func (s *Scanner) nextChar() rune {
	if s.needLine {
		s.readLine()
	}
	if s.eof {
		s.needLine = false
		return '\n'
	}
	if s.pos < len(s.line)-1 {
		s.pos++
		return s.line[s.pos]
	}
	s.needLine = true
	return '\n'
}

// peekChar returns the character after the current one without consuming it.
func (s *Scanner) peekChar() rune {
	if s.needLine || s.eof {
		return ' '
	}
	if s.pos+1 < len(s.line) {
		return s.line[s.pos+1]
	}
	return ' '
}

func (s *Scanner) readLine() {
	text, err := s.reader.ReadString('\n')
	if text == "" && err != nil {
		if err != io.EOF {
			s.opts.Logger.Printf("WARNING: read failed after line %d: %v", s.lineNo, err)
		}
		s.eof = true
		s.line = nil
	} else {
		text = strings.TrimRight(text, "\r\n")
		s.lineNo++
		s.line = []rune(text)
		if s.opts.Echo != nil {
			fmt.Fprintf(s.opts.Echo, "%04d %s\n", s.lineNo, text)
		}
	}
	s.pos = -1
	s.needLine = false
}

func isLetter(c rune) bool {
	return ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z')
}

func isDigit(c rune) bool {
	return '0' <= c && c <= '9'
}

func isWhitespace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isPrefix(c rune) bool {
	return c == ':' || c == '<' || c == '>'
}

func isPair(s string) bool {
	switch s {
	case ":=", "<=", ">=", "<>":
		return true
	}
	return false
}

func isWord(k Kind) bool {
	return k >= KindGoTo && k <= KindArray
}

func kindNoun(k Kind) string {
	if k == KindIdent {
		return "identifier"
	}
	return "number"
}
