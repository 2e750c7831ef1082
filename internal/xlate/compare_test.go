package xlate

import (
	"testing"

	"github.com/intuitionamiga/aarch64x/internal/guest"
)

// TestCompareCmp checks CMP X1,X2 sets flags without touching any Rd slot.
func TestCompareCmp(t *testing.T) {
	env := newTestEnv()
	env.Ctx.X[1], env.Ctx.X[2] = 5, 3

	w := guest.Word(formCMP.value | uint32(2)<<16 | uint32(1)<<5)
	out := TranslateCompare(w, env)
	if out.Status != Hit {
		t.Fatalf("CMP should hit")
	}
	n, z, c, v := env.Ctx.NZCV()
	if n || z || !c || v {
		t.Fatalf("NZCV = %v %v %v %v, want false false true false (5-3, no borrow)", n, z, c, v)
	}
	if env.Ctx.X[0] != 0 {
		t.Fatalf("CMP must never write a destination register, X0 = %d", env.Ctx.X[0])
	}
}

func TestCompareMiss(t *testing.T) {
	env := newTestEnv()
	if out := TranslateCompare(guest.Word(0x00000000), env); out.Status != Miss {
		t.Fatalf("zero word should miss the compare class")
	}
}
