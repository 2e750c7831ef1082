package hostasm

import (
	"bytes"
	"testing"
)

func TestBufferOverflow(t *testing.T) {
	b := NewBuffer(2)
	b.EmitByte(0x90)
	b.EmitByte(0x90)
	if b.Overflowed {
		t.Fatalf("buffer should not have overflowed yet")
	}
	b.EmitByte(0x90)
	if !b.Overflowed {
		t.Fatalf("buffer should report overflow past capacity")
	}
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (discarded write must not advance cursor)", b.Len())
	}
}

func TestEmitMovRegReg(t *testing.T) {
	b := NewBuffer(16)
	b.EmitMovRegReg(0, 1) // mov rax, rcx
	want := []byte{0x48, 0x89, 0xC8}
	if !bytes.Equal(b.Bytes(), want) {
		t.Fatalf("EmitMovRegReg(rax,rcx) = % x, want % x", b.Bytes(), want)
	}
}

func TestEmitMovRegImm32(t *testing.T) {
	b := NewBuffer(16)
	b.EmitMovRegImm32(0, 0x1234)
	want := []byte{0xB8, 0x34, 0x12, 0x00, 0x00}
	if !bytes.Equal(b.Bytes(), want) {
		t.Fatalf("EmitMovRegImm32 = % x, want % x", b.Bytes(), want)
	}
}

func TestEmitAddRegRegHighRegs(t *testing.T) {
	b := NewBuffer(16)
	b.EmitAddRegReg(8, 9) // add r8, r9 -- both need REX extension bits
	want := []byte{0x4D, 0x01, 0xC8}
	if !bytes.Equal(b.Bytes(), want) {
		t.Fatalf("EmitAddRegReg(r8,r9) = % x, want % x", b.Bytes(), want)
	}
}

func TestEmitRet(t *testing.T) {
	b := NewBuffer(4)
	b.EmitRet()
	if !bytes.Equal(b.Bytes(), []byte{0xC3}) {
		t.Fatalf("EmitRet = % x, want c3", b.Bytes())
	}
}

func TestJmpRel32Patch(t *testing.T) {
	b := NewBuffer(16)
	cur := uint64(0x1000)
	off := b.EmitJmpRel32(0x1000, cur+5) // placeholder target
	b.PatchU32LE(off, 0xAABBCCDD)
	got := b.Bytes()[1:5]
	want := []byte{0xDD, 0xCC, 0xBB, 0xAA}
	if !bytes.Equal(got, want) {
		t.Fatalf("patched rel32 = % x, want % x", got, want)
	}
}

func TestPoolDedup(t *testing.T) {
	var p Pool
	i1 := p.Add(AbsMaskF32)
	i2 := p.Add(AbsMaskF32)
	if i1 != i2 {
		t.Fatalf("identical constants should dedupe: got %d and %d", i1, i2)
	}
	i3 := p.Add(NegMaskF32)
	if i3 == i1 {
		t.Fatalf("distinct constants must not collide")
	}
}
