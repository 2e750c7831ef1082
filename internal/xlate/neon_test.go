package xlate

import (
	"testing"

	"github.com/intuitionamiga/aarch64x/internal/guest"
)

// TestNeonVecAddBytes reproduces spec.md section 8 scenario 5: a NEON vector
// add over byte lanes (size=00), Vd = Vn + Vm per-lane.
func TestNeonVecAddBytes(t *testing.T) {
	env := newTestEnv()
	env.Ctx.V[1] = [2]uint64{0x0101010101010101, 0x0101010101010101}
	env.Ctx.V[2] = [2]uint64{0x0202020202020202, 0x0202020202020202}

	w := guest.Word(formVAdd.value | uint32(2)<<16 | uint32(1)<<5) // Vd=0,Vn=1,Vm=2
	out := TranslateNEON(w, env)
	if out.Status != Hit {
		t.Fatalf("vector ADD should hit")
	}
	want := [2]uint64{0x0303030303030303, 0x0303030303030303}
	if env.Ctx.V[0] != want {
		t.Fatalf("V0 = %#x, want %#x", env.Ctx.V[0], want)
	}
	if env.Buf.Len() == 0 {
		t.Fatalf("vector ADD must emit host code")
	}
}

// TestNeonVecAnd checks the logical group (AND), a separate mask/opcode
// family from the 3-same arithmetic group.
func TestNeonVecAnd(t *testing.T) {
	env := newTestEnv()
	env.Ctx.V[1] = [2]uint64{0xFF00FF00FF00FF00, 0xFFFFFFFFFFFFFFFF}
	env.Ctx.V[2] = [2]uint64{0x0F0F0F0F0F0F0F0F, 0x00000000FFFFFFFF}

	w := guest.Word(formVAnd.value | uint32(2)<<16 | uint32(1)<<5)
	out := TranslateNEON(w, env)
	if out.Status != Hit {
		t.Fatalf("vector AND should hit")
	}
	want := [2]uint64{0x0F000F000F000F00, 0x00000000FFFFFFFF}
	if env.Ctx.V[0] != want {
		t.Fatalf("V0 = %#x, want %#x", env.Ctx.V[0], want)
	}
}

func TestNeonMiss(t *testing.T) {
	env := newTestEnv()
	if out := TranslateNEON(guest.Word(0), env); out.Status != Miss {
		t.Fatalf("zero word should miss the NEON class")
	}
}
