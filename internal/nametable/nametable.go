// Package nametable maps symbolic names to small integer codes and back.
//
// A Table is an ordered list of (name, code) pairs. Lookups are linear scans over
// insertion order; name lookups ignore case. Duplicate names or codes are allowed
// and the first registered entry wins. Tables are filled once at startup and then
// only read.
package nametable

import (
	"strings"

	"golang.org/x/exp/constraints"
)

// NotFound is returned by LookupName when no entry carries the name.
const NotFound = -1

// Entry is a single row of a Table.
type Entry[C constraints.Signed] struct {
	Name string
	Code C
}

type Table[C constraints.Signed] struct {
	entries []Entry[C]
}

func New[C constraints.Signed]() *Table[C] {
	return &Table[C]{}
}

// Add appends a row and returns its index.
func (t *Table[C]) Add(name string, code C) int {
	t.entries = append(t.entries, Entry[C]{Name: name, Code: code})
	return len(t.entries) - 1
}

// LookupName returns the code registered for name, or NotFound.
func (t *Table[C]) LookupName(name string) C {
	if code, ok := t.Lookup(name); ok {
		return code
	}
	return C(NotFound)
}

// Lookup is the comma-ok form of LookupName.
func (t *Table[C]) Lookup(name string) (C, bool) {
	for _, e := range t.entries {
		if strings.EqualFold(e.Name, name) {
			return e.Code, true
		}
	}
	return 0, false
}

// LookupCode returns the first name registered for code, or "" if there is none.
func (t *Table[C]) LookupCode(code C) string {
	for _, e := range t.entries {
		if e.Code == code {
			return e.Name
		}
	}
	return ""
}

func (t *Table[C]) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the rows in insertion order.
func (t *Table[C]) Entries() []Entry[C] {
	out := make([]Entry[C], len(t.entries))
	copy(out, t.entries)
	return out
}
