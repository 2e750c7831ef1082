package xlate

import (
	"testing"

	"github.com/intuitionamiga/aarch64x/internal/guest"
)

// TestCbzTaken reproduces spec.md section 8 scenario 4: CBZ X0, label with
// X0==0 takes the branch, landing PC at pc+imm19<<2.
func TestCbzTaken(t *testing.T) {
	env := newTestEnv()
	env.PC = 0x10000
	env.Ctx.X[0] = 0

	// rt=0 (Rd slot), imm19 raw=2 -> byte offset 8.
	w := guest.Word(formCBZ.value | uint32(2)<<5)
	out := TranslateBranch(w, env)
	if out.Status != Hit || !out.Terminated {
		t.Fatalf("CBZ must hit and terminate the block")
	}
	if env.Ctx.PC != env.PC+8 {
		t.Fatalf("PC = %#x, want %#x (branch taken)", env.Ctx.PC, env.PC+8)
	}
}

func TestCbzNotTaken(t *testing.T) {
	env := newTestEnv()
	env.PC = 0x10000
	env.Ctx.X[0] = 42

	w := guest.Word(formCBZ.value | uint32(2)<<5)
	TranslateBranch(w, env)
	if env.Ctx.PC != env.PC+4 {
		t.Fatalf("PC = %#x, want %#x (fall through)", env.Ctx.PC, env.PC+4)
	}
}

// TestBranchDirect checks B imm26 computes an absolute target relative to PC.
func TestBranchDirect(t *testing.T) {
	env := newTestEnv()
	env.PC = 0x1000
	w := guest.Word(formB.value | 4) // imm26 raw=4 -> byte offset 16
	out := TranslateBranch(w, env)
	if !out.Terminated {
		t.Fatalf("B must terminate the block")
	}
	if env.Ctx.PC != 0x1010 {
		t.Fatalf("PC = %#x, want 0x1010", env.Ctx.PC)
	}
}

func TestBranchMiss(t *testing.T) {
	env := newTestEnv()
	if out := TranslateBranch(guest.Word(0), env); out.Status != Miss {
		t.Fatalf("zero word should miss the branch class")
	}
}
