package xlate

import "github.com/intuitionamiga/aarch64x/internal/hostasm"

// RunPeephole implements C16: a single forward pass over a block's already-
// emitted host bytes, folding `MOV r,r` and `ADD r,0` down to NOPs. It never
// changes the buffer's length (both targets are replaced byte-for-byte with
// 0x90), so offsets recorded earlier for branch patching or block chaining
// stay valid.
//
// The pass walks the buffer with its own minimal x86_64 instruction-length
// decoder rather than reusing translator-level bookkeeping, since the
// buffer, once emitted, is just bytes: decoding here is scoped to exactly
// the prefix/opcode/ModRM/immediate shapes internal/hostasm's emitters
// produce (see emit.go and emit_vec.go) and is not a general x86 disassembler.
func RunPeephole(buf *hostasm.Buffer) {
	code := buf.Bytes()
	i := 0
	for i < len(code) {
		length, movSame, addZero := decodeOne(code, i)
		if length <= 0 {
			break
		}
		if movSame || addZero {
			for j := i; j < i+length; j++ {
				code[j] = 0x90
			}
		}
		i += length
	}
}

func boolBit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// modrmDispLen reports how many displacement bytes follow a ModR/M byte,
// per the standard mod-field rule (mod=00/rm=101 is the RIP-relative
// special case internal/hostasm's EmitLoadMem64RipRel uses).
func modrmDispLen(m byte) int {
	switch m >> 6 {
	case 0:
		if m&7 == 5 {
			return 4
		}
		return 0
	case 1:
		return 1
	case 2:
		return 4
	default:
		return 0
	}
}

// decodeOne decodes the single instruction starting at code[i], returning
// its total byte length and whether it is one of the two peephole targets.
func decodeOne(code []byte, i int) (length int, movSame bool, addZero bool) {
	start := i
	for i < len(code) {
		switch code[i] {
		case 0x66, 0xF2, 0xF3:
			i++
			continue
		}
		break
	}

	rexW, rexR, rexB := false, false, false
	if i < len(code) && code[i] >= 0x40 && code[i] <= 0x4F {
		rexW = code[i]&0x08 != 0
		rexR = code[i]&0x04 != 0
		rexB = code[i]&0x01 != 0
		i++
	}
	if i >= len(code) {
		return i - start, false, false
	}

	readModRM := func() (reg, mod int, dispLen int) {
		if i >= len(code) {
			return 0, 3, 0
		}
		m := code[i]
		i++
		reg = int((m>>3)&7) | boolBit(rexR)<<3
		dispLen = modrmDispLen(m)
		i += dispLen
		return reg, int(m >> 6), dispLen
	}
	readModRMFull := func() (reg, rm, mod int) {
		if i >= len(code) {
			return 0, 0, 3
		}
		m := code[i]
		i++
		reg = int((m>>3)&7) | boolBit(rexR)<<3
		rm = int(m&7) | boolBit(rexB)<<3
		mod = int(m >> 6)
		i += modrmDispLen(m)
		return reg, rm, mod
	}

	op := code[i]
	i++

	switch op {
	case 0x0F:
		if i >= len(code) {
			return i - start, false, false
		}
		b2 := code[i]
		i++
		switch {
		case b2 >= 0x80 && b2 <= 0x8F: // Jcc rel32
			i += 4
			return i - start, false, false
		case b2 == 0x38: // pcmpgtq/pmulld
			i++ // real opcode byte
			readModRMFull()
			return i - start, false, false
		case b2 == 0x3A: // palignr
			i++ // real opcode byte
			readModRMFull()
			i++ // imm8
			return i - start, false, false
		case b2 == 0x70: // pshufd
			readModRMFull()
			i++ // imm8
			return i - start, false, false
		case b2 == 0x71 || b2 == 0x72 || b2 == 0x73: // packed shift imm8
			readModRMFull()
			i++ // imm8
			return i - start, false, false
		default: // AF, 28, 2E, 54, 57, 58/59/5C/5D/5E/5F, 51, 6E, 6F, 7E, 7F, 74-76, 64-66, D4, D5, DB, EB, EF, F8-FE
			readModRMFull()
			return i - start, false, false
		}
	case 0x89: // MOV r/m64,r64 (reg-reg when mod==3) or frame-relative store
		reg, rm, mod := readModRMFull()
		same := mod == 3 && reg == rm
		return i - start, same, false
	case 0x8B: // MOV r64,r/m64 (load forms; never reg-reg in this emitter)
		readModRMFull()
		return i - start, false, false
	case 0x01, 0x29, 0x21, 0x09, 0x31, 0x39, 0x85:
		readModRMFull()
		return i - start, false, false
	case 0x81:
		reg, _, _ := readModRM()
		if i+4 > len(code) {
			return len(code) - start, false, false
		}
		imm := uint32(code[i]) | uint32(code[i+1])<<8 | uint32(code[i+2])<<16 | uint32(code[i+3])<<24
		i += 4
		return i - start, false, reg&7 == 0 && imm == 0
	case 0xC1:
		readModRM()
		i++ // imm8
		return i - start, false, false
	case 0xD3, 0xF7, 0xFF:
		readModRMFull()
		return i - start, false, false
	case 0xE9:
		i += 4
		return i - start, false, false
	case 0xC3, 0x90:
		return i - start, false, false
	case 0x99:
		return i - start, false, false
	default:
		if op >= 0xB8 && op <= 0xBF {
			if rexW {
				i += 8
			} else {
				i += 4
			}
			return i - start, false, false
		}
		if (op >= 0x50 && op <= 0x57) || (op >= 0x58 && op <= 0x5F) {
			return i - start, false, false
		}
		// Unrecognized opcode: stop the pass rather than risk
		// misaligning on an opcode this emitter never produces.
		return -1, false, false
	}
}
