package xlate

import (
	"testing"

	"github.com/intuitionamiga/aarch64x/internal/guest"
)

// TestMovz reproduces spec.md section 8 scenario 1: MOVZ X0,#5 leaves X0=5.
func TestMovz(t *testing.T) {
	env := newTestEnv()
	w := guest.Word(formMOVZ.value | uint32(5)<<5) // rd=0, imm16=5, hw=0
	out := TranslateMov(w, env)
	if out.Status != Hit {
		t.Fatalf("MOVZ should hit")
	}
	if env.Ctx.X[0] != 5 {
		t.Fatalf("X0 = %d, want 5", env.Ctx.X[0])
	}
}

func TestMovzShifted(t *testing.T) {
	env := newTestEnv()
	// MOVZ X1, #0x1234, LSL #16 -> hw=1 at bits 21:22.
	w := guest.Word(formMOVZ.value | uint32(1)<<21 | uint32(0x1234)<<5 | 1)
	TranslateMov(w, env)
	if env.Ctx.X[1] != 0x1234<<16 {
		t.Fatalf("X1 = %#x, want %#x", env.Ctx.X[1], uint64(0x1234)<<16)
	}
}

func TestMovk(t *testing.T) {
	env := newTestEnv()
	env.Ctx.X[0] = 0xFFFFFFFFFFFFFFFF
	w := guest.Word(formMOVK.value | uint32(0)<<5) // imm16=0, hw=0, rd=0
	TranslateMov(w, env)
	if env.Ctx.X[0] != 0xFFFFFFFFFFFF0000 {
		t.Fatalf("X0 = %#x, want low halfword cleared", env.Ctx.X[0])
	}
}

func TestMovMiss(t *testing.T) {
	env := newTestEnv()
	if out := TranslateMov(guest.Word(0), env); out.Status != Miss {
		t.Fatalf("zero word should miss the MOV class")
	}
}
