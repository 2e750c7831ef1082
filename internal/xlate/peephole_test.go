package xlate

import (
	"testing"

	"github.com/intuitionamiga/aarch64x/internal/hostasm"
)

// TestPeepholeFoldsMovSame checks RunPeephole replaces a no-op `MOV r,r`
// with NOPs in place, preserving total length so earlier branch offsets
// stay valid.
func TestPeepholeFoldsMovSame(t *testing.T) {
	buf := hostasm.NewBuffer(64)
	buf.EmitMovRegReg(0, 0) // mov rax, rax -- a no-op the peephole must fold
	movLen := buf.Len()
	buf.EmitMovRegImm32(1, 0x42) // a real instruction that must survive untouched

	before := append([]byte{}, buf.Bytes()...)
	RunPeephole(buf)
	after := buf.Bytes()

	if len(after) != len(before) {
		t.Fatalf("peephole changed buffer length: %d -> %d", len(before), len(after))
	}
	for i := 0; i < movLen; i++ {
		if after[i] != 0x90 {
			t.Fatalf("byte %d = %#x, want 0x90 (folded nop)", i, after[i])
		}
	}
	for i := movLen; i < len(after); i++ {
		if after[i] != before[i] {
			t.Fatalf("byte %d changed from %#x to %#x, want untouched", i, before[i], after[i])
		}
	}
}
