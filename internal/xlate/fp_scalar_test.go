package xlate

import (
	"math"
	"testing"

	"github.com/intuitionamiga/aarch64x/internal/guest"
)

// TestFpScalarAddSingle checks FADD S0,S1,S2 (single precision, opcode=0x2
// at bits 15:12) against the shadow V register halves.
func TestFpScalarAddSingle(t *testing.T) {
	env := newTestEnv()
	env.Ctx.V[1][0] = uint64(math.Float32bits(1.5))
	env.Ctx.V[2][0] = uint64(math.Float32bits(2.25))

	w := guest.Word(formFPArith2.value | uint32(0x2)<<12 | uint32(2)<<16 | uint32(1)<<5)
	out := TranslateFPScalar(w, env)
	if out.Status != Hit {
		t.Fatalf("FADD should hit")
	}
	got := math.Float32frombits(uint32(env.Ctx.V[0][0]))
	if got != 3.75 {
		t.Fatalf("S0 = %v, want 3.75", got)
	}
}

func TestFpScalarMiss(t *testing.T) {
	env := newTestEnv()
	if out := TranslateFPScalar(guest.Word(0), env); out.Status != Miss {
		t.Fatalf("zero word should miss the scalar-FP class")
	}
}
