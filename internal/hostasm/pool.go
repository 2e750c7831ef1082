package hostasm

import "encoding/binary"

// Pool is the per-block constant/data pool resolving spec.md section 9's
// second open question: FABS/FNEG need a sign-mask bit pattern the source
// referenced via an unpatched RIP-relative zero displacement. aarch64x
// instead lays the pool out immediately after a block's instruction bytes
// inside the same scratch Buffer, and patches the real displacement once
// both the instruction using it and the pool's final address are known.
type Pool struct {
	entries []poolEntry
}

type poolEntry struct {
	value [16]byte
	// patchOffsets are buffer offsets of the rel32 field of every
	// RIP-relative load that references this entry.
	patchOffsets []int
}

// Masks used by FABS (AND with the non-sign bits) and FNEG (XOR the sign
// bit), for both single- and double-precision lanes, replicated across the
// 128-bit entry so the same pool slot serves both scalar and packed forms.
var (
	AbsMaskF32 = repeat32(0x7FFFFFFF)
	NegMaskF32 = repeat32(0x80000000)
	AbsMaskF64 = repeat64(0x7FFFFFFFFFFFFFFF)
	NegMaskF64 = repeat64(0x8000000000000000)
)

func repeat32(v uint32) [16]byte {
	var out [16]byte
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

func repeat64(v uint64) [16]byte {
	var out [16]byte
	binary.LittleEndian.PutUint64(out[0:], v)
	binary.LittleEndian.PutUint64(out[8:], v)
	return out
}

// Add registers a 16-byte constant, returning its index for later patch
// bookkeeping. Identical values are deduplicated.
func (p *Pool) Add(value [16]byte) int {
	for i, e := range p.entries {
		if e.value == value {
			return i
		}
	}
	p.entries = append(p.entries, poolEntry{value: value})
	return len(p.entries) - 1
}

// RecordPatch notes that the 4-byte field at patchOffset (within the host
// Buffer that will also hold the pool) needs fixing up once the pool is
// laid out, for the constant at index.
func (p *Pool) RecordPatch(index, patchOffset int) {
	p.entries[index].patchOffsets = append(p.entries[index].patchOffsets, patchOffset)
}

// Layout appends every registered constant to buf (called once, after all
// instructions for the block have been emitted) and patches every
// RIP-relative displacement recorded via RecordPatch to point at it.
func (p *Pool) Layout(buf *Buffer) {
	for _, e := range p.entries {
		poolAddr := buf.cursor
		buf.EmitBytes(e.value[:]...)
		for _, patchOffset := range e.patchOffsets {
			// RIP-relative displacement is relative to the address of the
			// byte following the 4-byte field itself.
			ripNext := patchOffset + 4
			disp := int32(poolAddr - ripNext)
			buf.PatchU32LE(patchOffset, uint32(disp))
		}
	}
}

// Empty reports whether any constants were registered.
func (p *Pool) Empty() bool { return len(p.entries) == 0 }
