package jit

import (
	"testing"

	"github.com/intuitionamiga/aarch64x/internal/codecache"
	"github.com/intuitionamiga/aarch64x/internal/guest"
	"github.com/intuitionamiga/aarch64x/internal/loader"
)

const (
	wordNOP  = 0xD503201F
	wordRET  = 0xD65F03C0 // RET (X30, forced regardless of encoded Rn)
	wordMOVZ = 0x528000A0 // MOVZ X0, #5
)

func newTestDriver(t *testing.T, txBits int) (*Driver, *loader.Image) {
	t.Helper()
	img := loader.NewBlank(0x10000, 1<<16)
	tx := codecache.NewTranslationCache(txBits)
	code, err := codecache.New(1 << 16)
	if err != nil {
		t.Fatalf("codecache.New: %v", err)
	}
	t.Cleanup(func() { code.Close() })
	ctx := guest.New(img.Base(), img.Base()+0x8000)
	return New(tx, code, img, ctx), img
}

func encALU(base uint32, rd, rn, rm uint8) uint32 {
	return base | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

// --- spec.md section 8 scenario 1: MOVZ ---

func TestDriverScenarioMovz(t *testing.T) {
	d, img := newTestDriver(t, 8)
	pc := img.Base()
	img.PutWord(pc, wordMOVZ)
	img.PutWord(pc+4, wordRET)

	hostAddr, err := d.Translate(pc)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if hostAddr == 0 {
		t.Fatalf("host address must be non-zero")
	}
	if d.Ctx.X[0] != 5 {
		t.Fatalf("X0 = %d, want 5", d.Ctx.X[0])
	}
}

// --- spec.md section 8 scenario 2: two-instruction ADD ---

func TestDriverScenarioAddChain(t *testing.T) {
	const formADD = 0x0B000000
	d, img := newTestDriver(t, 8)
	pc := img.Base()
	d.Ctx.X[1], d.Ctx.X[2], d.Ctx.X[3] = 3, 4, 10

	img.PutWord(pc, encALU(formADD, 0, 1, 2))   // ADD X0, X1, X2 -> 7
	img.PutWord(pc+4, encALU(formADD, 0, 0, 3)) // ADD X0, X0, X3 -> 17
	img.PutWord(pc+8, wordRET)

	if _, err := d.Translate(pc); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if d.Ctx.X[0] != 17 {
		t.Fatalf("X0 = %d, want 17", d.Ctx.X[0])
	}
}

// --- spec.md section 8 scenario 3: SUBS flag case ---

func TestDriverScenarioSubsFlags(t *testing.T) {
	const formSUBS = 0x6B000000
	d, img := newTestDriver(t, 8)
	pc := img.Base()
	d.Ctx.X[1], d.Ctx.X[2] = 7, 7

	img.PutWord(pc, encALU(formSUBS, 0, 1, 2))
	img.PutWord(pc+4, wordRET)

	if _, err := d.Translate(pc); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	n, z, c, v := d.Ctx.NZCV()
	if n || !z || !c || v {
		t.Fatalf("NZCV = %v %v %v %v, want false true true false", n, z, c, v)
	}
}

// --- spec.md section 8 scenario 4: CBZ branch taken ---

func TestDriverScenarioCbzTaken(t *testing.T) {
	const wordCBZ = 0x34000040 // CBZ X0, #8
	d, img := newTestDriver(t, 8)
	pc := img.Base()
	d.Ctx.X[0] = 0
	img.PutWord(pc, wordCBZ)

	if _, err := d.Translate(pc); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if d.Ctx.PC != pc+8 {
		t.Fatalf("PC = %#x, want %#x", d.Ctx.PC, pc+8)
	}
}

// --- spec.md section 8 scenario 5: vector add ---

func TestDriverScenarioVectorAdd(t *testing.T) {
	const formVAdd = 0x0E208400 // size=00 (byte lanes)
	d, img := newTestDriver(t, 8)
	pc := img.Base()
	d.Ctx.V[1] = [2]uint64{0x0101010101010101, 0x0101010101010101}
	d.Ctx.V[2] = [2]uint64{0x0202020202020202, 0x0202020202020202}

	img.PutWord(pc, encALU(formVAdd, 0, 1, 2))
	img.PutWord(pc+4, wordRET)

	if _, err := d.Translate(pc); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	want := [2]uint64{0x0303030303030303, 0x0303030303030303}
	if d.Ctx.V[0] != want {
		t.Fatalf("V0 = %#x, want %#x", d.Ctx.V[0], want)
	}
}

// --- spec.md section 8 scenario 6: translation-cache collision ---

func TestDriverScenarioCacheCollision(t *testing.T) {
	// bits=2 -> 4 slots; pc1 and pc2 both hash to slot 0 since
	// (pc ^ (pc>>32)) & 3 == 0 for both (pc>>32 is 0 for these addresses).
	d, img := newTestDriver(t, 2)
	pc1 := img.Base() + 0x1000 // 0x11000, &3 == 0
	pc2 := img.Base() + 0x2000 // 0x12000, &3 == 0

	img.PutWord(pc1, wordNOP)
	img.PutWord(pc1+4, wordRET)
	img.PutWord(pc2, wordNOP)
	img.PutWord(pc2+4, wordRET)

	addr1, err := d.Translate(pc1)
	if err != nil {
		t.Fatalf("translate pc1: %v", err)
	}
	if _, ok := d.TxCache.Lookup(pc1); !ok {
		t.Fatalf("pc1 should be resolvable right after its own translation")
	}

	addr2, err := d.Translate(pc2)
	if err != nil {
		t.Fatalf("translate pc2: %v", err)
	}
	if addr1 == addr2 {
		t.Fatalf("pc1 and pc2 must land in distinct code cache slots")
	}

	// pc2 overwrote pc1's direct-mapped slot: pc1 is no longer resolvable
	// without retranslating.
	if _, ok := d.TxCache.Lookup(pc1); ok {
		t.Fatalf("pc1 should have been evicted by pc2's colliding insert")
	}

	addr1b, err := d.Translate(pc1)
	if err != nil {
		t.Fatalf("retranslate pc1: %v", err)
	}
	if addr1b == 0 {
		t.Fatalf("retranslated pc1 must still produce a valid host address")
	}
}
