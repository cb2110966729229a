// Package symtab holds program symbols: identifiers, literal constants, the
// program name and compiler temporaries.
//
// The table is append-only with a fixed capacity. Names are unique ignoring case:
// Add is find-or-create and never touches an existing entry. The only mutation is
// Update, which replaces kind and value of one entry together.
package symtab

import (
	"strings"

	"github.com/pkg/errors"
)

// MaxSymbols is the capacity of a Table.
const MaxSymbols = 250

// NotFound is returned by Lookup for unknown names.
const NotFound = -1

var (
	ErrTableFull  = errors.New("symbol table full")
	ErrOutOfRange = errors.New("symbol index out of range")
)

// Kind is the role of a symbol.
type Kind byte

const (
	Variable    Kind = 'V'
	Constant    Kind = 'C'
	Label       Kind = 'L'
	ProgramName Kind = 'P'
)

func (k Kind) String() string { return string(k) }

type Symbol struct {
	Name  string
	Kind  Kind
	Value Value
}

// DataType is a shorthand for s.Value.DataType().
func (s Symbol) DataType() DataType { return s.Value.DataType() }

type Table struct {
	symbols  []Symbol
	capacity int
}

// New returns an empty table holding at most MaxSymbols entries.
func New() *Table {
	return NewWithCapacity(MaxSymbols)
}

func NewWithCapacity(capacity int) *Table {
	return &Table{
		symbols:  make([]Symbol, 0, capacity),
		capacity: capacity,
	}
}

// Add returns the index of name, inserting it with kind and value if it is new.
// An existing entry is returned untouched.
func (t *Table) Add(name string, kind Kind, value Value) (int, error) {
	if idx := t.Lookup(name); idx != NotFound {
		return idx, nil
	}
	if len(t.symbols) >= t.capacity {
		return NotFound, errors.Wrapf(ErrTableFull, "cannot add %q (capacity %d)", name, t.capacity)
	}
	if value == nil {
		value = Int(0)
	}
	t.symbols = append(t.symbols, Symbol{Name: name, Kind: kind, Value: value})
	return len(t.symbols) - 1, nil
}

// Lookup returns the index of name, ignoring case, or NotFound.
func (t *Table) Lookup(name string) int {
	for i, s := range t.symbols {
		if strings.EqualFold(s.Name, name) {
			return i
		}
	}
	return NotFound
}

func (t *Table) Get(index int) (Symbol, error) {
	if index < 0 || index >= len(t.symbols) {
		return Symbol{}, errors.Wrapf(ErrOutOfRange, "index %d (len %d)", index, len(t.symbols))
	}
	return t.symbols[index], nil
}

// Name returns the name at index, or "" when index is out of range.
func (t *Table) Name(index int) string {
	if index < 0 || index >= len(t.symbols) {
		return ""
	}
	return t.symbols[index].Name
}

// Update replaces kind and value of an existing entry.
func (t *Table) Update(index int, kind Kind, value Value) error {
	if index < 0 || index >= len(t.symbols) {
		return errors.Wrapf(ErrOutOfRange, "update of index %d (len %d)", index, len(t.symbols))
	}
	if value == nil {
		value = Int(0)
	}
	t.symbols[index].Kind = kind
	t.symbols[index].Value = value
	return nil
}

func (t *Table) Len() int { return len(t.symbols) }

func (t *Table) Cap() int { return t.capacity }

// Symbols returns a snapshot of the table in index order.
func (t *Table) Symbols() []Symbol {
	out := make([]Symbol, len(t.symbols))
	copy(out, t.symbols)
	return out
}
