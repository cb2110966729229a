// Package reporting renders the symbol, quad and name tables as fixed-layout text
// dumps, and as JSON or CSV for tooling.
package reporting

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"quadlang/internal/bytecode"
	"quadlang/internal/nametable"
	"quadlang/internal/symtab"
)

const rule = "----------------------------------------------------------------"

type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	CSV  Format = "csv"
)

var ErrUnsupportedFormat = errors.New("unsupported format")

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Text, JSON, CSV:
		return f, nil
	}
	return "", errors.Wrap(ErrUnsupportedFormat, s)
}

// Ext is the file extension used for dumps in f.
func (f Format) Ext() string {
	if f == Text {
		return ".txt"
	}
	return "." + string(f)
}

// SymbolRow is the exported form of one symbol table entry.
type SymbolRow struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	DataType string `json:"data_type"`
	Value    string `json:"value"`
}

// QuadRow is the exported form of one quad.
type QuadRow struct {
	Address  int    `json:"address"`
	Opcode   int    `json:"opcode"`
	Mnemonic string `json:"mnemonic"`
	Op1      int    `json:"op1"`
	Op2      int    `json:"op2"`
	Op3      int    `json:"op3"`
}

func symbolRows(symbols *symtab.Table) []SymbolRow {
	rows := make([]SymbolRow, 0, symbols.Len())
	for i, s := range symbols.Symbols() {
		rows = append(rows, SymbolRow{
			Index:    i,
			Name:     s.Name,
			Kind:     s.Kind.String(),
			DataType: s.DataType().String(),
			Value:    s.Value.String(),
		})
	}
	return rows
}

func quadRows(quads *bytecode.QuadTable) []QuadRow {
	rows := make([]QuadRow, 0, quads.Len())
	for addr, q := range quads.Quads() {
		rows = append(rows, QuadRow{
			Address:  addr,
			Opcode:   int(q.Op),
			Mnemonic: q.Op.String(),
			Op1:      q.Op1,
			Op2:      q.Op2,
			Op3:      q.Op3,
		})
	}
	return rows
}

// WriteSymbolTable dumps every symbol in index order.
func WriteSymbolTable(w io.Writer, symbols *symtab.Table, format Format) error {
	rows := symbolRows(symbols)
	switch format {
	case JSON:
		return encodeJSON(w, rows)
	case CSV:
		records := make([][]string, 0, len(rows)+1)
		records = append(records, []string{"index", "name", "kind", "data_type", "value"})
		for _, r := range rows {
			records = append(records, []string{strconv.Itoa(r.Index), r.Name, r.Kind, r.DataType, r.Value})
		}
		return writeCSV(w, records)
	case Text:
		var sb strings.Builder
		sb.WriteString("Symbol Table\n")
		sb.WriteString(rule + "\n")
		fmt.Fprintf(&sb, "%-3s| %-30s| %-3s| %-3s| %s\n", "I", "Symbol", "K", "DT", "Val")
		sb.WriteString(rule + "\n")
		for _, r := range rows {
			fmt.Fprintf(&sb, "%-3d| %-30s| %-3s| %-3s| %s\n", r.Index, r.Name, r.Kind, r.DataType, r.Value)
		}
		sb.WriteString(rule + "\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}
	return errors.Wrap(ErrUnsupportedFormat, string(format))
}

// WriteQuadTable dumps every quad in address order.
func WriteQuadTable(w io.Writer, quads *bytecode.QuadTable, format Format) error {
	rows := quadRows(quads)
	switch format {
	case JSON:
		return encodeJSON(w, rows)
	case CSV:
		records := make([][]string, 0, len(rows)+1)
		records = append(records, []string{"address", "opcode", "mnemonic", "op1", "op2", "op3"})
		for _, r := range rows {
			records = append(records, []string{
				strconv.Itoa(r.Address), strconv.Itoa(r.Opcode), r.Mnemonic,
				strconv.Itoa(r.Op1), strconv.Itoa(r.Op2), strconv.Itoa(r.Op3),
			})
		}
		return writeCSV(w, records)
	case Text:
		var sb strings.Builder
		sb.WriteString("Quad Table\n")
		sb.WriteString(rule + "\n")
		fmt.Fprintf(&sb, "%-8s| %-8s| %-8s| %-8s| %s\n", "Index", "opcode", "op1", "op2", "op3")
		sb.WriteString(rule + "\n")
		for _, r := range rows {
			fmt.Fprintf(&sb, "%-8d| %-8d| %-8d| %-8d| %d\n", r.Address, r.Opcode, r.Op1, r.Op2, r.Op3)
		}
		sb.WriteString(rule + "\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}
	return errors.Wrap(ErrUnsupportedFormat, string(format))
}

// WriteNameTable dumps a name table in insertion order. Only the text layout
// exists for name tables.
func WriteNameTable[C constraints.Signed](w io.Writer, title string, t *nametable.Table[C]) error {
	var sb strings.Builder
	sb.WriteString(title + "\n")
	sb.WriteString(rule + "\n")
	fmt.Fprintf(&sb, "%-12s%-12s%s\n", "Index", "Name", "Code")
	sb.WriteString(rule + "\n")
	for i, e := range t.Entries() {
		fmt.Fprintf(&sb, "%-12d%-12s%d\n", i, e.Name, e.Code)
	}
	sb.WriteString(rule + "\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteFile creates path and hands it to write.
func WriteFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "could not create file %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return f.Close()
}

func encodeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeCSV(w io.Writer, records [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(records); err != nil {
		return err
	}
	return writer.Error()
}
