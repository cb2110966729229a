// Package database persists compiled programs in SQLite so they can be executed
// later without recompiling.
package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"quadlang/internal/bytecode"
	"quadlang/internal/symtab"
)

var (
	ErrNotFound  = errors.New("program not found")
	ErrInvalidID = errors.New("invalid program id")
	ErrCorrupt   = errors.New("stored program is corrupt")
)

const schema = `
CREATE TABLE IF NOT EXISTS programs (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	source     TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	symbols    INTEGER NOT NULL,
	quads      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS symbols (
	program_id  TEXT NOT NULL,
	idx         INTEGER NOT NULL,
	name        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	data_type   TEXT NOT NULL,
	int_value   INTEGER,
	float_value REAL,
	text_value  TEXT,
	PRIMARY KEY (program_id, idx)
);
CREATE TABLE IF NOT EXISTS quads (
	program_id TEXT NOT NULL,
	addr       INTEGER NOT NULL,
	opcode     INTEGER NOT NULL,
	op1        INTEGER NOT NULL,
	op2        INTEGER NOT NULL,
	op3        INTEGER NOT NULL,
	PRIMARY KEY (program_id, addr)
);`

// Store is a program store backed by one SQLite file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Summary describes a stored program without its tables.
type Summary struct {
	ID      string
	Name    string
	Created time.Time
	Symbols int
	Quads   int
}

// Stored is a program loaded back from the store.
type Stored struct {
	Summary
	Source  string
	Symbols *symtab.Table
	Quads   *bytecode.QuadTable
}

// Open opens (creating if needed) the store at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open store")
	}

	// a :memory: database lives and dies with its connection
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping store")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a compiled program and returns its new id.
func (s *Store) Save(ctx context.Context, name, source string, symbols *symtab.Table, quads *bytecode.QuadTable) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(err, "begin save")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO programs (id, name, source, created_at, symbols, quads) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, source, s.now().UnixNano(), symbols.Len(), quads.Len()); err != nil {
		return "", errors.Wrap(err, "insert program")
	}

	symStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO symbols (program_id, idx, name, kind, data_type, int_value, float_value, text_value) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", errors.Wrap(err, "prepare symbols")
	}
	defer symStmt.Close()
	for i, sym := range symbols.Symbols() {
		var (
			iv sql.NullInt64
			fv sql.NullFloat64
			tv sql.NullString
		)
		switch v := sym.Value.(type) {
		case symtab.Int:
			iv = sql.NullInt64{Int64: int64(v), Valid: true}
		case symtab.Real:
			fv = sql.NullFloat64{Float64: float64(v), Valid: true}
		case symtab.Text:
			tv = sql.NullString{String: string(v), Valid: true}
		}
		if _, err := symStmt.ExecContext(ctx, id, i, sym.Name, sym.Kind.String(), sym.DataType().String(), iv, fv, tv); err != nil {
			return "", errors.Wrapf(err, "insert symbol %d", i)
		}
	}

	quadStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO quads (program_id, addr, opcode, op1, op2, op3) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", errors.Wrap(err, "prepare quads")
	}
	defer quadStmt.Close()
	for addr, q := range quads.Quads() {
		if _, err := quadStmt.ExecContext(ctx, id, addr, int(q.Op), q.Op1, q.Op2, q.Op3); err != nil {
			return "", errors.Wrapf(err, "insert quad %d", addr)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(err, "commit save")
	}
	return id, nil
}

// Load rebuilds the tables of a stored program. Indices and addresses come back
// exactly as saved; anything else is reported as ErrCorrupt.
func (s *Store) Load(ctx context.Context, id string) (*Stored, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.Wrap(ErrInvalidID, id)
	}

	out := &Stored{}
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, source, created_at, symbols, quads FROM programs WHERE id = ?`, id).
		Scan(&out.ID, &out.Name, &out.Source, &created, &out.Summary.Symbols, &out.Summary.Quads)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(ErrNotFound, id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "load program")
	}
	out.Created = time.Unix(0, created)

	if out.Symbols, err = s.loadSymbols(ctx, id); err != nil {
		return nil, err
	}
	if out.Quads, err = s.loadQuads(ctx, id); err != nil {
		return nil, err
	}
	if out.Symbols.Len() != out.Summary.Symbols || out.Quads.Len() != out.Summary.Quads {
		return nil, errors.Wrapf(ErrCorrupt, "%s: have %d symbols and %d quads, want %d and %d",
			id, out.Symbols.Len(), out.Quads.Len(), out.Summary.Symbols, out.Summary.Quads)
	}
	return out, nil
}

func (s *Store) loadSymbols(ctx context.Context, id string) (*symtab.Table, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, name, kind, data_type, int_value, float_value, text_value FROM symbols WHERE program_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, errors.Wrap(err, "query symbols")
	}
	defer rows.Close()

	table := symtab.New()
	for rows.Next() {
		var (
			idx            int
			name, kind, dt string
			iv             sql.NullInt64
			fv             sql.NullFloat64
			tv             sql.NullString
		)
		if err := rows.Scan(&idx, &name, &kind, &dt, &iv, &fv, &tv); err != nil {
			return nil, errors.Wrap(err, "scan symbol")
		}
		var value symtab.Value
		switch symtab.DataType(firstByte(dt)) {
		case symtab.Integer:
			value = symtab.Int(iv.Int64)
		case symtab.Float:
			value = symtab.Real(fv.Float64)
		case symtab.String:
			value = symtab.Text(tv.String)
		default:
			return nil, errors.Wrapf(ErrCorrupt, "symbol %d has data type %q", idx, dt)
		}
		got, err := table.Add(name, symtab.Kind(firstByte(kind)), value)
		if err != nil {
			return nil, errors.Wrapf(ErrCorrupt, "symbol %d: %v", idx, err)
		}
		if got != idx {
			return nil, errors.Wrapf(ErrCorrupt, "symbol %q reloaded at %d, saved at %d", name, got, idx)
		}
	}
	return table, errors.Wrap(rows.Err(), "read symbols")
}

func (s *Store) loadQuads(ctx context.Context, id string) (*bytecode.QuadTable, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT addr, opcode, op1, op2, op3 FROM quads WHERE program_id = ? ORDER BY addr`, id)
	if err != nil {
		return nil, errors.Wrap(err, "query quads")
	}
	defer rows.Close()

	table := bytecode.NewQuadTable()
	for rows.Next() {
		var addr, op, op1, op2, op3 int
		if err := rows.Scan(&addr, &op, &op1, &op2, &op3); err != nil {
			return nil, errors.Wrap(err, "scan quad")
		}
		got, err := table.Append(bytecode.Opcode(op), op1, op2, op3)
		if err != nil {
			return nil, errors.Wrapf(ErrCorrupt, "quad %d: %v", addr, err)
		}
		if got != addr {
			return nil, errors.Wrapf(ErrCorrupt, "quad reloaded at %d, saved at %d", got, addr)
		}
	}
	return table, errors.Wrap(rows.Err(), "read quads")
}

// List returns every stored program, newest first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, symbols, quads FROM programs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list programs")
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			created int64
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &created, &sum.Symbols, &sum.Quads); err != nil {
			return nil, errors.Wrap(err, "scan program")
		}
		sum.Created = time.Unix(0, created)
		out = append(out, sum)
	}
	return out, errors.Wrap(rows.Err(), "read programs")
}

// Delete removes a program and its tables.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin delete")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM programs WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete program")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrap(ErrNotFound, id)
	}
	for _, table := range []string{"symbols", "quads"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE program_id = ?`, id); err != nil {
			return errors.Wrapf(err, "delete %s", table)
		}
	}
	return errors.Wrap(tx.Commit(), "commit delete")
}

func firstByte(s string) byte {
	if s == "" {
		return 0
	}
	return s[0]
}
