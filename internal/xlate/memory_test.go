package xlate

import (
	"testing"

	"github.com/intuitionamiga/aarch64x/internal/guest"
)

// fakeMemory is a tiny map-backed GuestMemory for translator tests that
// don't need internal/loader's flat-image semantics.
type fakeMemory struct {
	words map[uint64]uint64
}

func newFakeMemory() *fakeMemory { return &fakeMemory{words: map[uint64]uint64{}} }

func (m *fakeMemory) Read(addr uint64, size int) uint64 { return m.words[addr] }

func (m *fakeMemory) Write(addr uint64, size int, value uint64) {
	mask := uint64(1)<<(uint(size)*8) - 1
	if size == 8 {
		mask = ^uint64(0)
	}
	m.words[addr] = value & mask
}

// TestMemoryStoreThenLoad round-trips STR/LDR through the shadow memory,
// the equivalence contract spec.md section 4.4 requires.
func TestMemoryStoreThenLoad(t *testing.T) {
	env := newTestEnv()
	env.Mem = newFakeMemory()
	env.Ctx.X[1] = 0x2000 // base register Xn
	env.Ctx.X[0] = 0xDEADBEEF

	str := guest.Word(formSTR64.value | uint32(1)<<5) // STR X0, [X1]
	if out := TranslateMemory(str, env); out.Status != Hit {
		t.Fatalf("STR64 should hit")
	}

	env.Ctx.X[0] = 0 // clobber before reload to prove the load actually ran
	ldr := guest.Word(formLDR64.value | uint32(1)<<5 | 0) // LDR X0, [X1]
	if out := TranslateMemory(ldr, env); out.Status != Hit {
		t.Fatalf("LDR64 should hit")
	}
	if env.Ctx.X[0] != 0xDEADBEEF {
		t.Fatalf("X0 = %#x, want 0xDEADBEEF", env.Ctx.X[0])
	}
}

func TestMemoryMiss(t *testing.T) {
	env := newTestEnv()
	if out := TranslateMemory(guest.Word(0), env); out.Status != Miss {
		t.Fatalf("zero word should miss the memory class")
	}
}
