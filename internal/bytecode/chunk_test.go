package bytecode

import (
	"testing"

	"github.com/kr/pretty"
	"github.com/pkg/errors"
)

func TestAppendIsMonotonic(t *testing.T) {
	table := NewQuadTable()
	for i := 0; i < 5; i++ {
		before := table.NextAddress()
		addr, err := table.Append(OpAdd, i, i, i)
		if err != nil {
			t.Fatal(err)
		}
		if addr != before || table.NextAddress() != before+1 {
			t.Errorf("append %d: addr %d, next %d", i, addr, table.NextAddress())
		}
	}
}

func TestSetBranchTargetTouchesOnlyOp3(t *testing.T) {
	table := NewQuadTable()
	table.Append(OpSub, 4, 5, 6)
	branch, _ := table.Append(OpJumpNonNegative, 6, 0, 0)
	table.Append(OpMove, 1, 0, 4)

	before := table.Quads()
	if err := table.SetBranchTarget(branch, 3); err != nil {
		t.Fatal(err)
	}
	after := table.Quads()

	want := before
	want[branch].Op3 = 3
	if diff := pretty.Diff(after, want); len(diff) > 0 {
		t.Errorf("unexpected table after patch:\n%s", diff)
	}
}

func TestSetBranchTargetRejects(t *testing.T) {
	table := NewQuadTable()
	move, _ := table.Append(OpMove, 1, 0, 2)

	tests := []struct {
		name string
		addr int
		want error
	}{
		{"not a branch", move, ErrNotBranch},
		{"past end", 5, ErrOutOfRange},
		{"negative", -1, ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := table.SetBranchTarget(tt.addr, 9); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCapacity(t *testing.T) {
	table := NewQuadTableWithCapacity(1)
	if _, err := table.Append(OpStop, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	addr, err := table.Append(OpStop, 0, 0, 0)
	if !errors.Is(err, ErrTableFull) || addr != -1 {
		t.Errorf("Append on full table = %d, %v", addr, err)
	}
	if table.Len() != 1 {
		t.Errorf("Len = %d after failed append", table.Len())
	}
	if _, err := table.Get(1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Get(1) err = %v", err)
	}
}

func TestMnemonics(t *testing.T) {
	for op := OpStop; op <= OpJumpIndirect; op++ {
		name, ok := op.Mnemonic()
		if !ok {
			t.Errorf("opcode %d has no mnemonic", op)
			continue
		}
		if back := Mnemonics.LookupName(name); back != op {
			t.Errorf("%s maps back to %d, want %d", name, back, op)
		}
	}
	if _, ok := Opcode(42).Mnemonic(); ok {
		t.Error("opcode 42 should be unknown")
	}
	if OpMove.String() != "MOV" || Opcode(42).String() != "OP?" {
		t.Error("String() mismatch")
	}
	if !OpJump.IsBranch() || OpJumpIndirect.IsBranch() || !OpJumpNonZero.IsBranch() || OpMove.IsBranch() {
		t.Error("branch classification wrong")
	}
}
