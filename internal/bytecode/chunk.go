package bytecode

import (
	"github.com/pkg/errors"
)

// MaxQuads is the capacity of a QuadTable and the interpreter's pointer ceiling.
const MaxQuads = 1000

var (
	ErrTableFull  = errors.New("quad table full")
	ErrOutOfRange = errors.New("quad address out of range")
	ErrNotBranch  = errors.New("quad is not a branch")
)

// Quad is one three-address instruction. Whether an operand is a symbol index, a
// quad address or unused depends on the opcode.
type Quad struct {
	Op  Opcode
	Op1 int
	Op2 int
	Op3 int
}

// QuadTable is an append-only instruction list. Addresses are stable; the only
// post-append change allowed is resolving a branch target.
type QuadTable struct {
	quads    []Quad
	capacity int
}

func NewQuadTable() *QuadTable {
	return NewQuadTableWithCapacity(MaxQuads)
}

func NewQuadTableWithCapacity(capacity int) *QuadTable {
	return &QuadTable{
		quads:    make([]Quad, 0, capacity),
		capacity: capacity,
	}
}

// NextAddress is the address the next Append will use.
func (t *QuadTable) NextAddress() int {
	return len(t.quads)
}

// Append adds a quad and returns its address.
func (t *QuadTable) Append(op Opcode, op1, op2, op3 int) (int, error) {
	if len(t.quads) >= t.capacity {
		return -1, errors.Wrapf(ErrTableFull, "cannot append %s (capacity %d)", op, t.capacity)
	}
	t.quads = append(t.quads, Quad{Op: op, Op1: op1, Op2: op2, Op3: op3})
	return len(t.quads) - 1, nil
}

func (t *QuadTable) Get(addr int) (Quad, error) {
	if addr < 0 || addr >= len(t.quads) {
		return Quad{}, errors.Wrapf(ErrOutOfRange, "address %d (len %d)", addr, len(t.quads))
	}
	return t.quads[addr], nil
}

// SetBranchTarget resolves the forward reference held by the branch at addr.
func (t *QuadTable) SetBranchTarget(addr, target int) error {
	if addr < 0 || addr >= len(t.quads) {
		return errors.Wrapf(ErrOutOfRange, "patch of address %d (len %d)", addr, len(t.quads))
	}
	if !t.quads[addr].Op.IsBranch() {
		return errors.Wrapf(ErrNotBranch, "patch of %s at %d", t.quads[addr].Op, addr)
	}
	t.quads[addr].Op3 = target
	return nil
}

func (t *QuadTable) Len() int { return len(t.quads) }

func (t *QuadTable) Cap() int { return t.capacity }

// Quads returns a snapshot of the table in address order.
func (t *QuadTable) Quads() []Quad {
	out := make([]Quad, len(t.quads))
	copy(out, t.quads)
	return out
}
