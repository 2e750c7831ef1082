package hostasm

// Vector/FP helpers emitting the SSE2/SSSE3/SSE4.1 opcodes used by the
// scalar-FP (C11) and NEON (C12) translators. XMM registers use the same
// 0-15 numbering and REX.R/REX.B extension rules as general-purpose
// registers; only the ModR/M reg/rm fields mean "xmm" here instead of "r64".

// xmmRexIfNeeded emits a REX prefix (no W bit: SSE/SSE2 ops operate on the
// 128-bit XMM bank directly) when either operand needs bit 3.
func (b *Buffer) xmmRexIfNeeded(reg, rm int) {
	if reg >= 8 || rm >= 8 {
		b.EmitByte(rex(false, reg >= 8, false, rm >= 8))
	}
}

// xmmOp emits: [mandatory prefix] [REX] 0F [opcode...] ModRM(reg=dst,rm=src).
func (b *Buffer) xmmOp(prefix byte, opcode []byte, dst, src int) {
	if prefix != 0 {
		b.EmitByte(prefix)
	}
	b.xmmRexIfNeeded(dst, src)
	b.EmitByte(0x0F)
	for i, ob := range opcode {
		if i == len(opcode)-1 {
			b.EmitByte(ob)
		} else {
			b.EmitByte(ob)
		}
	}
	b.emitRegDirect(dst, src)
}

// Scalar moves used to stage an operand before a unary/binary op (C11 step
// 1: "copy lane 0").
func (b *Buffer) EmitMovapsRegReg(dst, src int) { b.xmmOp(0x00, []byte{0x28}, dst, src) }
func (b *Buffer) EmitMovapdRegReg(dst, src int) { b.xmmOp(0x66, []byte{0x28}, dst, src) }
func (b *Buffer) EmitMovdquRegReg(dst, src int) { b.xmmOp(0xF3, []byte{0x6F}, dst, src) }

// Scalar single/double precision arithmetic (F3=SS, F2=SD prefixes).
func (b *Buffer) EmitAddssRegReg(dst, src int)  { b.xmmOp(0xF3, []byte{0x58}, dst, src) }
func (b *Buffer) EmitAddsdRegReg(dst, src int)  { b.xmmOp(0xF2, []byte{0x58}, dst, src) }
func (b *Buffer) EmitSubssRegReg(dst, src int)  { b.xmmOp(0xF3, []byte{0x5C}, dst, src) }
func (b *Buffer) EmitSubsdRegReg(dst, src int)  { b.xmmOp(0xF2, []byte{0x5C}, dst, src) }
func (b *Buffer) EmitMulssRegReg(dst, src int)  { b.xmmOp(0xF3, []byte{0x59}, dst, src) }
func (b *Buffer) EmitMulsdRegReg(dst, src int)  { b.xmmOp(0xF2, []byte{0x59}, dst, src) }
func (b *Buffer) EmitDivssRegReg(dst, src int)  { b.xmmOp(0xF3, []byte{0x5E}, dst, src) }
func (b *Buffer) EmitDivsdRegReg(dst, src int)  { b.xmmOp(0xF2, []byte{0x5E}, dst, src) }
func (b *Buffer) EmitSqrtssRegReg(dst, src int) { b.xmmOp(0xF3, []byte{0x51}, dst, src) }
func (b *Buffer) EmitSqrtsdRegReg(dst, src int) { b.xmmOp(0xF2, []byte{0x51}, dst, src) }
func (b *Buffer) EmitMaxssRegReg(dst, src int)  { b.xmmOp(0xF3, []byte{0x5F}, dst, src) }
func (b *Buffer) EmitMaxsdRegReg(dst, src int)  { b.xmmOp(0xF2, []byte{0x5F}, dst, src) }
func (b *Buffer) EmitMinssRegReg(dst, src int)  { b.xmmOp(0xF3, []byte{0x5D}, dst, src) }
func (b *Buffer) EmitMinsdRegReg(dst, src int)  { b.xmmOp(0xF2, []byte{0x5D}, dst, src) }

// ANDPS/XORPS back FABS/FNEG's sign-mask bitwise ops (C11).
func (b *Buffer) EmitAndpsRegReg(dst, src int) { b.xmmOp(0x00, []byte{0x54}, dst, src) }
func (b *Buffer) EmitXorpsRegReg(dst, src int) { b.xmmOp(0x00, []byte{0x57}, dst, src) }

// UCOMISS/UCOMISD compare and set host ZF/PF/CF for FCMP/FCMP[E] lowering.
func (b *Buffer) EmitUcomissRegReg(a, bReg int) { b.xmmOp(0x00, []byte{0x2E}, a, bReg) }
func (b *Buffer) EmitUcomisdRegReg(a, bReg int) { b.xmmOp(0x66, []byte{0x2E}, a, bReg) }

// Packed-integer arithmetic (NEON element-wise translators), keyed by
// guest element size per spec.md section 4.9's table.
func (b *Buffer) EmitPaddb(dst, src int) { b.xmmOp(0x66, []byte{0xFC}, dst, src) }
func (b *Buffer) EmitPaddw(dst, src int) { b.xmmOp(0x66, []byte{0xFD}, dst, src) }
func (b *Buffer) EmitPaddd(dst, src int) { b.xmmOp(0x66, []byte{0xFE}, dst, src) }
func (b *Buffer) EmitPaddq(dst, src int) { b.xmmOp(0x66, []byte{0xD4}, dst, src) }

func (b *Buffer) EmitPsubb(dst, src int) { b.xmmOp(0x66, []byte{0xF8}, dst, src) }
func (b *Buffer) EmitPsubw(dst, src int) { b.xmmOp(0x66, []byte{0xF9}, dst, src) }
func (b *Buffer) EmitPsubd(dst, src int) { b.xmmOp(0x66, []byte{0xFA}, dst, src) }
func (b *Buffer) EmitPsubq(dst, src int) { b.xmmOp(0x66, []byte{0xFB}, dst, src) }

func (b *Buffer) EmitPcmpeqb(dst, src int) { b.xmmOp(0x66, []byte{0x74}, dst, src) }
func (b *Buffer) EmitPcmpeqw(dst, src int) { b.xmmOp(0x66, []byte{0x75}, dst, src) }
func (b *Buffer) EmitPcmpeqd(dst, src int) { b.xmmOp(0x66, []byte{0x76}, dst, src) }

func (b *Buffer) EmitPcmpgtb(dst, src int) { b.xmmOp(0x66, []byte{0x64}, dst, src) }
func (b *Buffer) EmitPcmpgtw(dst, src int) { b.xmmOp(0x66, []byte{0x65}, dst, src) }
func (b *Buffer) EmitPcmpgtd(dst, src int) { b.xmmOp(0x66, []byte{0x66}, dst, src) }

// EmitPcmpgtq emits SSE4.2's 66 0F 38 37 /r (PCMPGTQ); three-byte opcode so
// it bypasses the generic two-byte xmmOp helper.
func (b *Buffer) EmitPcmpgtq(dst, src int) {
	b.EmitByte(0x66)
	b.xmmRexIfNeeded(dst, src)
	b.EmitByte(0x0F)
	b.EmitByte(0x38)
	b.EmitByte(0x37)
	b.emitRegDirect(dst, src)
}

func (b *Buffer) EmitPmullw(dst, src int) { b.xmmOp(0x66, []byte{0xD5}, dst, src) }

// EmitPmulld emits SSE4.1's 66 0F 38 40 /r (PMULLD).
func (b *Buffer) EmitPmulld(dst, src int) {
	b.EmitByte(0x66)
	b.xmmRexIfNeeded(dst, src)
	b.EmitByte(0x0F)
	b.EmitByte(0x38)
	b.EmitByte(0x40)
	b.emitRegDirect(dst, src)
}

// Logical ops ignore element size (spec.md section 4.9).
func (b *Buffer) EmitPand(dst, src int) { b.xmmOp(0x66, []byte{0xDB}, dst, src) }
func (b *Buffer) EmitPor(dst, src int)  { b.xmmOp(0x66, []byte{0xEB}, dst, src) }
func (b *Buffer) EmitPxor(dst, src int) { b.xmmOp(0x66, []byte{0xEF}, dst, src) }

// Immediate shifts use the /digit sub-opcode forms of 71/72/73.
func (b *Buffer) psllShiftImm8(opcode byte, digit byte, reg int, imm8 uint8) {
	b.EmitByte(0x66)
	b.xmmRexIfNeeded(0, reg)
	b.EmitByte(0x0F)
	b.EmitByte(opcode)
	b.emitRegDirect(int(digit), reg)
	b.EmitByte(imm8)
}

func (b *Buffer) EmitPsllwImm8(reg int, imm8 uint8) { b.psllShiftImm8(0x71, 6, reg, imm8) }
func (b *Buffer) EmitPsrlwImm8(reg int, imm8 uint8) { b.psllShiftImm8(0x71, 2, reg, imm8) }
func (b *Buffer) EmitPsrawImm8(reg int, imm8 uint8) { b.psllShiftImm8(0x71, 4, reg, imm8) }
func (b *Buffer) EmitPslldImm8(reg int, imm8 uint8) { b.psllShiftImm8(0x72, 6, reg, imm8) }
func (b *Buffer) EmitPsrldImm8(reg int, imm8 uint8) { b.psllShiftImm8(0x72, 2, reg, imm8) }
func (b *Buffer) EmitPsradImm8(reg int, imm8 uint8) { b.psllShiftImm8(0x72, 4, reg, imm8) }
func (b *Buffer) EmitPsllqImm8(reg int, imm8 uint8) { b.psllShiftImm8(0x73, 6, reg, imm8) }
func (b *Buffer) EmitPsrlqImm8(reg int, imm8 uint8) { b.psllShiftImm8(0x73, 2, reg, imm8) }

// EmitPshufd emits 66 0F 70 /r ib with a replicated-index control byte, used
// by DUP.
func (b *Buffer) EmitPshufd(dst, src int, control uint8) {
	b.EmitByte(0x66)
	b.xmmRexIfNeeded(dst, src)
	b.EmitByte(0x0F)
	b.EmitByte(0x70)
	b.emitRegDirect(dst, src)
	b.EmitByte(control)
}

// EmitPalignr emits SSSE3's 66 0F 3A 0F /r ib, used by EXT's immediate byte
// offset.
func (b *Buffer) EmitPalignr(dst, src int, imm8 uint8) {
	b.EmitByte(0x66)
	b.xmmRexIfNeeded(dst, src)
	b.EmitByte(0x0F)
	b.EmitByte(0x3A)
	b.EmitByte(0x0F)
	b.emitRegDirect(dst, src)
	b.EmitByte(imm8)
}

// Packed FP-vector ops (size bit 22 of the guest word selects S vs D).
func (b *Buffer) EmitAddps(dst, src int) { b.xmmOp(0x00, []byte{0x58}, dst, src) }
func (b *Buffer) EmitAddpd(dst, src int) { b.xmmOp(0x66, []byte{0x58}, dst, src) }
func (b *Buffer) EmitSubps(dst, src int) { b.xmmOp(0x00, []byte{0x5C}, dst, src) }
func (b *Buffer) EmitSubpd(dst, src int) { b.xmmOp(0x66, []byte{0x5C}, dst, src) }
func (b *Buffer) EmitMulps(dst, src int) { b.xmmOp(0x00, []byte{0x59}, dst, src) }
func (b *Buffer) EmitMulpd(dst, src int) { b.xmmOp(0x66, []byte{0x59}, dst, src) }
func (b *Buffer) EmitDivps(dst, src int) { b.xmmOp(0x00, []byte{0x5E}, dst, src) }
func (b *Buffer) EmitDivpd(dst, src int) { b.xmmOp(0x66, []byte{0x5E}, dst, src) }
func (b *Buffer) EmitMaxps(dst, src int) { b.xmmOp(0x00, []byte{0x5F}, dst, src) }
func (b *Buffer) EmitMaxpd(dst, src int) { b.xmmOp(0x66, []byte{0x5F}, dst, src) }
func (b *Buffer) EmitMinps(dst, src int) { b.xmmOp(0x00, []byte{0x5D}, dst, src) }
func (b *Buffer) EmitMinpd(dst, src int) { b.xmmOp(0x66, []byte{0x5D}, dst, src) }

// EmitMovdquLoadDisp32/EmitMovdquStoreDisp32 move a full 128-bit lane between
// an XMM register and a disp32 memory operand, used by the NEON load/store
// translator (spec.md section 4.9).
func (b *Buffer) EmitMovdquLoadDisp32(dstXmm, baseGpr int, disp32 int32) {
	b.EmitByte(0xF3)
	b.xmmRexIfNeeded(dstXmm, baseGpr)
	b.EmitByte(0x0F)
	b.EmitByte(0x6F)
	b.EmitByte(modrm(0x2, byte(dstXmm), byte(baseGpr)))
	b.EmitU32LE(uint32(disp32))
}

func (b *Buffer) EmitMovdquStoreDisp32(baseGpr int, disp32 int32, srcXmm int) {
	b.EmitByte(0xF3)
	b.xmmRexIfNeeded(srcXmm, baseGpr)
	b.EmitByte(0x0F)
	b.EmitByte(0x7F)
	b.EmitByte(modrm(0x2, byte(srcXmm), byte(baseGpr)))
	b.EmitU32LE(uint32(disp32))
}

// EmitMovqXmmToGpr/EmitMovqGprToXmm move the low 64 bits between a GPR and
// an XMM register (66 REX.W 0F 7E /r and 66 REX.W 0F 6E /r), used by NEON
// lane extraction and scalar load/store paths.
func (b *Buffer) EmitMovqXmmToGpr(dstGpr, srcXmm int) {
	b.EmitByte(0x66)
	b.EmitByte(rex(true, srcXmm >= 8, false, dstGpr >= 8))
	b.EmitByte(0x0F)
	b.EmitByte(0x7E)
	b.emitRegDirect(srcXmm, dstGpr)
}

func (b *Buffer) EmitMovqGprToXmm(dstXmm, srcGpr int) {
	b.EmitByte(0x66)
	b.EmitByte(rex(true, dstXmm >= 8, false, srcGpr >= 8))
	b.EmitByte(0x0F)
	b.EmitByte(0x6E)
	b.emitRegDirect(dstXmm, srcGpr)
}
