// Package hostasm is the host code buffer (C1) and x86_64 byte-level
// emitter (C2): append-only byte sink plus helpers that encode the exact
// REX/opcode/ModR/M sequences the translators in internal/xlate need.
//
// Style model: github.com/intuitionamiga/IntuitionEngine's direct
// byte/field manipulation in cpu_ie64.go, and the standalone wazero
// amd64 backend (internal/engine/wazevo/backend/isa/amd64/machine.go)
// for REX/ModRM shape.
package hostasm

// Buffer is an append-only host code sink with a cursor and a fixed
// capacity (spec.md "CodeBuffer"). Writes past capacity are discarded and
// set Overflowed; every translation after that point must be treated as
// invalid by the caller.
type Buffer struct {
	base       []byte
	cursor     int
	Overflowed bool
}

// NewBuffer allocates a scratch buffer of the given capacity. The block
// driver uses a fixed 64 KiB scratch buffer per spec.md section 4.10.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{base: make([]byte, capacity)}
}

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int { return b.cursor }

// Cap returns the buffer's total capacity.
func (b *Buffer) Cap() int { return len(b.base) }

// Bytes returns the written prefix of the buffer. Callers must not retain
// the slice past the buffer's reuse.
func (b *Buffer) Bytes() []byte { return b.base[:b.cursor] }

// Reset rewinds the cursor and clears the overflow flag for reuse.
func (b *Buffer) Reset() {
	b.cursor = 0
	b.Overflowed = false
}

// EmitByte appends a single raw byte.
func (b *Buffer) EmitByte(v byte) {
	if b.cursor >= len(b.base) {
		b.Overflowed = true
		return
	}
	b.base[b.cursor] = v
	b.cursor++
}

// EmitBytes appends a raw byte slice.
func (b *Buffer) EmitBytes(vs ...byte) {
	for _, v := range vs {
		b.EmitByte(v)
	}
}

// EmitU32LE appends a 32-bit value, little-endian.
func (b *Buffer) EmitU32LE(w uint32) {
	b.EmitByte(byte(w))
	b.EmitByte(byte(w >> 8))
	b.EmitByte(byte(w >> 16))
	b.EmitByte(byte(w >> 24))
}

// EmitU64LE appends a 64-bit value, little-endian.
func (b *Buffer) EmitU64LE(q uint64) {
	b.EmitU32LE(uint32(q))
	b.EmitU32LE(uint32(q >> 32))
}

// PatchU32LE overwrites 4 already-written bytes at offset with w,
// little-endian. Used by branch translators to fix up rel32 displacements
// once the target address is known, and by the block driver for block
// chaining tail-patches.
func (b *Buffer) PatchU32LE(offset int, w uint32) {
	if offset < 0 || offset+4 > b.cursor {
		return
	}
	b.base[offset] = byte(w)
	b.base[offset+1] = byte(w >> 8)
	b.base[offset+2] = byte(w >> 16)
	b.base[offset+3] = byte(w >> 24)
}
