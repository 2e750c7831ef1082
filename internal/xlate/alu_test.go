package xlate

import (
	"testing"

	"github.com/intuitionamiga/aarch64x/internal/guest"
)

// encALU builds a three-register ALU word: base | (rm<<16) | (rn<<5) | rd.
func encALU(base uint32, rd, rn, rm uint8) guest.Word {
	return guest.Word(base | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd))
}

// TestALUAdd reproduces spec.md section 8 scenario 2: ADD X0,X1,X2 with
// X1=3, X2=4 must leave X0=7 and emit a hit.
func TestALUAdd(t *testing.T) {
	env := newTestEnv()
	env.Ctx.X[1] = 3
	env.Ctx.X[2] = 4

	out := TranslateALU(encALU(formADD.value, 0, 1, 2), env)
	if out.Status != Hit {
		t.Fatalf("ADD should hit, got %v", out.Status)
	}
	if env.Ctx.X[0] != 7 {
		t.Fatalf("X0 = %d, want 7", env.Ctx.X[0])
	}
	if env.Buf.Len() == 0 {
		t.Fatalf("ADD must emit host code")
	}
}

// TestALUAddChain covers a two-instruction block: ADD X0,X1,X2 then
// ADD X0,X0,X3, checking the second instruction sees the first's result.
func TestALUAddChain(t *testing.T) {
	env := newTestEnv()
	env.Ctx.X[1], env.Ctx.X[2], env.Ctx.X[3] = 3, 4, 10

	TranslateALU(encALU(formADD.value, 0, 1, 2), env)
	TranslateALU(encALU(formADD.value, 0, 0, 3), env)

	if env.Ctx.X[0] != 17 {
		t.Fatalf("X0 = %d, want 17", env.Ctx.X[0])
	}
}

// TestALUSubsFlags reproduces spec.md section 8 scenario 3: SUBS X0,X1,X2
// with X1==X2==7 clears N/V, sets Z and C (no borrow).
func TestALUSubsFlags(t *testing.T) {
	env := newTestEnv()
	env.Ctx.X[1], env.Ctx.X[2] = 7, 7

	out := TranslateALU(encALU(formSUBS.value, 0, 1, 2), env)
	if out.Status != Hit {
		t.Fatalf("SUBS should hit")
	}
	n, z, c, v := env.Ctx.NZCV()
	if n || !z || !c || v {
		t.Fatalf("NZCV = %v %v %v %v, want false true true false", n, z, c, v)
	}
	if env.Ctx.X[0] != 0 {
		t.Fatalf("X0 = %d, want 0", env.Ctx.X[0])
	}
}

func TestALUMiss(t *testing.T) {
	env := newTestEnv()
	out := TranslateALU(guest.Word(0xFFFFFFFF), env)
	if out.Status != Miss {
		t.Fatalf("garbage word should miss")
	}
}
