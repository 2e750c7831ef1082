package hostasm

// This file implements the general-purpose-register x86_64 encodings C2
// needs. Every helper writes the exact byte sequence named in spec.md
// section 4.1; REX is omitted when its payload would be zero, matching the
// spec's "REX is suppressed when its payload is zero" rule.

const (
	modDirect = 0x3 // mod=11: register-direct addressing
)

// rex builds a REX prefix byte. w selects the 64-bit operand size, r
// extends ModRM.reg, x extends SIB.index (unused by the register-direct
// forms below, kept for completeness), b extends ModRM.rm / opcode-reg.
func rex(w, r, x, b bool) byte {
	v := byte(0x40)
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}
	return v
}

func modrm(mod, reg, rm byte) byte {
	return (mod << 6) | ((reg & 7) << 3) | (rm & 7)
}

// emitRexIfNeeded emits a REX prefix only if w is set or either register
// index needs its high bit (8-15).
func (b *Buffer) emitRexIfNeeded(w bool, reg, rm int) {
	r := reg >= 8
	x := rm >= 8
	if w || r || x {
		b.EmitByte(rex(w, r, false, x))
	}
}

// emitRegDirect emits the ModR/M byte for a register-direct operand pair:
// reg is the ModRM.reg field operand, rm is the ModRM.rm field operand.
func (b *Buffer) emitRegDirect(reg, rm int) {
	b.EmitByte(modrm(modDirect, byte(reg), byte(rm)))
}

// EmitMovRegReg emits a 64-bit register move: REX.W + 89 /r (MOV r/m64,r64).
func (b *Buffer) EmitMovRegReg(dst, src int) {
	b.emitRexIfNeeded(true, src, dst)
	b.EmitByte(0x89)
	b.emitRegDirect(src, dst)
}

// EmitMovRegImm32 emits MOV r32, imm32 (B8+rd id); the write zero-extends
// the destination's high 32 bits, matching x86_64's natural 32-bit-write
// semantics.
func (b *Buffer) EmitMovRegImm32(dst int, imm uint32) {
	if dst >= 8 {
		b.EmitByte(rex(false, false, false, true))
	}
	b.EmitByte(0xB8 + byte(dst&7))
	b.EmitU32LE(imm)
}

// EmitMovRegImm64 emits MOV r64, imm64 (REX.W + B8+rd io).
func (b *Buffer) EmitMovRegImm64(dst int, imm uint64) {
	b.EmitByte(rex(true, false, false, dst >= 8))
	b.EmitByte(0xB8 + byte(dst&7))
	b.EmitU64LE(imm)
}

// aluRegReg emits a two-register ALU op of the form `OP r/m64, r64` (the
// destination is the r/m operand, matching ADD/SUB/AND/OR/XOR's primary
// encoding).
func (b *Buffer) aluRegReg(opcode byte, dst, src int) {
	b.emitRexIfNeeded(true, src, dst)
	b.EmitByte(opcode)
	b.emitRegDirect(src, dst)
}

func (b *Buffer) EmitAddRegReg(dst, src int) { b.aluRegReg(0x01, dst, src) }
func (b *Buffer) EmitSubRegReg(dst, src int) { b.aluRegReg(0x29, dst, src) }
func (b *Buffer) EmitAndRegReg(dst, src int) { b.aluRegReg(0x21, dst, src) }
func (b *Buffer) EmitOrRegReg(dst, src int)  { b.aluRegReg(0x09, dst, src) }
func (b *Buffer) EmitXorRegReg(dst, src int) { b.aluRegReg(0x31, dst, src) }

// aluRegImm32 emits `OP r/m64, imm32` via the 81 /digit encoding, imm32
// sign-extended to 64 bits by the CPU.
func (b *Buffer) aluRegImm32(digit byte, dst int, imm uint32) {
	b.emitRexIfNeeded(true, 0, dst)
	b.EmitByte(0x81)
	b.emitRegDirect(int(digit), dst)
	b.EmitU32LE(imm)
}

func (b *Buffer) EmitAddRegImm32(dst int, imm uint32) { b.aluRegImm32(0, dst, imm) }
func (b *Buffer) EmitSubRegImm32(dst int, imm uint32) { b.aluRegImm32(5, dst, imm) }
func (b *Buffer) EmitAndRegImm32(dst int, imm uint32) { b.aluRegImm32(4, dst, imm) }

// EmitNotReg emits NOT r/m64 (F7 /2).
func (b *Buffer) EmitNotReg(r int) { b.unaryF7(2, r) }

// EmitNegReg emits NEG r/m64 (F7 /3).
func (b *Buffer) EmitNegReg(r int) { b.unaryF7(3, r) }

func (b *Buffer) unaryF7(digit byte, r int) {
	b.emitRexIfNeeded(true, 0, r)
	b.EmitByte(0xF7)
	b.emitRegDirect(int(digit), r)
}

// EmitIncReg emits INC r/m64 (FF /0).
func (b *Buffer) EmitIncReg(r int) { b.unaryFF(0, r) }

// EmitDecReg emits DEC r/m64 (FF /1).
func (b *Buffer) EmitDecReg(r int) { b.unaryFF(1, r) }

func (b *Buffer) unaryFF(digit byte, r int) {
	b.emitRexIfNeeded(true, 0, r)
	b.EmitByte(0xFF)
	b.emitRegDirect(int(digit), r)
}

// shiftRegCL emits `OP r/m64, CL` (D3 /digit); CL must already hold the
// shift count (internal/xlate copies the guest shift amount's low byte
// into CL before calling this).
func (b *Buffer) shiftRegCL(digit byte, r int) {
	b.emitRexIfNeeded(true, 0, r)
	b.EmitByte(0xD3)
	b.emitRegDirect(int(digit), r)
}

func (b *Buffer) EmitShlRegCL(r int) { b.shiftRegCL(4, r) }
func (b *Buffer) EmitShrRegCL(r int) { b.shiftRegCL(5, r) }
func (b *Buffer) EmitSarRegCL(r int) { b.shiftRegCL(7, r) }
func (b *Buffer) EmitRolRegCL(r int) { b.shiftRegCL(0, r) }
func (b *Buffer) EmitRorRegCL(r int) { b.shiftRegCL(1, r) }

// shiftRegImm8 emits `OP r/m64, imm8` (C1 /digit ib).
func (b *Buffer) shiftRegImm8(digit byte, r int, imm8 uint8) {
	b.emitRexIfNeeded(true, 0, r)
	b.EmitByte(0xC1)
	b.emitRegDirect(int(digit), r)
	b.EmitByte(imm8)
}

func (b *Buffer) EmitShlRegImm8(r int, imm8 uint8) { b.shiftRegImm8(4, r, imm8) }
func (b *Buffer) EmitShrRegImm8(r int, imm8 uint8) { b.shiftRegImm8(5, r, imm8) }
func (b *Buffer) EmitSarRegImm8(r int, imm8 uint8) { b.shiftRegImm8(7, r, imm8) }
func (b *Buffer) EmitRolRegImm8(r int, imm8 uint8) { b.shiftRegImm8(0, r, imm8) }
func (b *Buffer) EmitRorRegImm8(r int, imm8 uint8) { b.shiftRegImm8(1, r, imm8) }

// EmitTestRegReg emits TEST r/m64, r64 (85 /r).
func (b *Buffer) EmitTestRegReg(a, bReg int) {
	b.emitRexIfNeeded(true, bReg, a)
	b.EmitByte(0x85)
	b.emitRegDirect(bReg, a)
}

// EmitCmpRegReg emits CMP r/m64, r64 (39 /r).
func (b *Buffer) EmitCmpRegReg(a, bReg int) {
	b.emitRexIfNeeded(true, bReg, a)
	b.EmitByte(0x39)
	b.emitRegDirect(bReg, a)
}

// EmitCmpRegImm32 emits CMP r/m64, imm32 (81 /7 id).
func (b *Buffer) EmitCmpRegImm32(r int, imm uint32) { b.aluRegImm32(7, r, imm) }

// EmitImulRegReg emits the two-operand form IMUL r64, r/m64 (0F AF /r):
// dst *= src.
func (b *Buffer) EmitImulRegReg(dst, src int) {
	b.emitRexIfNeeded(true, dst, src)
	b.EmitByte(0x0F)
	b.EmitByte(0xAF)
	b.emitRegDirect(dst, src)
}

// EmitDivReg emits unsigned DIV r/m64 (F7 /6): RDX:RAX / r -> RAX, RDX.
func (b *Buffer) EmitDivReg(r int) { b.unaryF7(6, r) }

// EmitIdivReg emits signed IDIV r/m64 (F7 /7).
func (b *Buffer) EmitIdivReg(r int) { b.unaryF7(7, r) }

// EmitCqo emits CQO (REX.W 99), sign-extending RAX into RDX:RAX ahead of a
// signed 64-bit IDIV.
func (b *Buffer) EmitCqo() {
	b.EmitByte(rex(true, false, false, false))
	b.EmitByte(0x99)
}

// EmitXorZero32 zeroes RDX (or any register) ahead of an unsigned DIV via
// XOR r32, r32 (31 /r) — the natural 32-bit write also zeroes the high
// 32 bits, clearing the full 64-bit register.
func (b *Buffer) EmitXorZero32(r int) {
	if r >= 8 {
		b.EmitByte(rex(false, true, false, true))
	}
	b.EmitByte(0x31)
	b.emitRegDirect(r, r)
}

// EmitJmpReg emits an indirect jump through a register: FF /4.
func (b *Buffer) EmitJmpReg(r int) {
	b.emitRexIfNeeded(false, 0, r)
	b.EmitByte(0xFF)
	b.emitRegDirect(4, r)
}

// EmitCallReg emits an indirect call through a register: FF /2 (used by the
// BLR translator before pushing the link register semantics in software).
func (b *Buffer) EmitCallReg(r int) {
	b.emitRexIfNeeded(false, 0, r)
	b.EmitByte(0xFF)
	b.emitRegDirect(2, r)
}

// EmitJmpRel32 emits an unconditional relative jump (E9 cd). target and cur
// are host addresses; cur is the address of the 4-byte displacement field
// itself (the displacement is computed as target - cur - 4). Returns the
// buffer offset of the displacement, for later patching if target isn't
// known yet.
func (b *Buffer) EmitJmpRel32(target, cur uint64) int {
	b.EmitByte(0xE9)
	off := b.cursor
	b.EmitU32LE(uint32(int32(int64(target) - int64(cur) - 4)))
	return off
}

// EmitJccRel32 emits a two-byte conditional relative jump (0F 8x cd) for the
// given host Jcc opcode (see internal/guest.JccOpcode). cur has the same
// meaning as for EmitJmpRel32. Returns the displacement's buffer offset.
func (b *Buffer) EmitJccRel32(jccOpcode byte, target, cur uint64) int {
	b.EmitByte(0x0F)
	b.EmitByte(jccOpcode)
	off := b.cursor
	b.EmitU32LE(uint32(int32(int64(target) - int64(cur) - 4)))
	return off
}

// EmitRet emits RET (C3).
func (b *Buffer) EmitRet() { b.EmitByte(0xC3) }

// EmitNop emits a single-byte NOP (90).
func (b *Buffer) EmitNop() { b.EmitByte(0x90) }

// EmitPushReg/EmitPopReg emit 64-bit PUSH/POP r64 (50+rd / 58+rd). The
// block driver emits no prologue/epilogue, and nothing in it calls these.
func (b *Buffer) EmitPushReg(r int) {
	if r >= 8 {
		b.EmitByte(rex(false, false, false, true))
	}
	b.EmitByte(0x50 + byte(r&7))
}

func (b *Buffer) EmitPopReg(r int) {
	if r >= 8 {
		b.EmitByte(rex(false, false, false, true))
	}
	b.EmitByte(0x58 + byte(r&7))
}

// EmitLoadMem64/EmitStoreMem64 emit a 64-bit load/store with an 8-bit
// displacement through a base register: MOV r64, [base+disp8] (8B /r) and
// MOV [base+disp8], r64 (89 /r), mod=01. These back the frame-relative
// operand path for guest registers aliased onto the host stack/frame
// pointers (internal/guest.IsFrameBacked) and the GuestContext spill/reload
// sequences at block entry and exit.
func (b *Buffer) EmitLoadMem64(dst, base int, disp8 int8) {
	b.emitRexIfNeeded(true, dst, base)
	b.EmitByte(0x8B)
	b.EmitByte(modrm(0x1, byte(dst), byte(base)))
	b.EmitByte(byte(disp8))
}

func (b *Buffer) EmitStoreMem64(base int, disp8 int8, src int) {
	b.emitRexIfNeeded(true, src, base)
	b.EmitByte(0x89)
	b.EmitByte(modrm(0x1, byte(src), byte(base)))
	b.EmitByte(byte(disp8))
}

// EmitLoadMem64Disp32/EmitStoreMem64Disp32 are the mod=10 (disp32) forms of
// the two helpers above, for GuestContext fields that fall outside disp8's
// [-128,127] range — the V[32][2]uint64 array in particular starts well past
// that once X[32] and PC/Fpcr/Fpsr/Pstate precede it.
func (b *Buffer) EmitLoadMem64Disp32(dst, base int, disp32 int32) {
	b.emitRexIfNeeded(true, dst, base)
	b.EmitByte(0x8B)
	b.EmitByte(modrm(0x2, byte(dst), byte(base)))
	b.EmitU32LE(uint32(disp32))
}

func (b *Buffer) EmitStoreMem64Disp32(base int, disp32 int32, src int) {
	b.emitRexIfNeeded(true, src, base)
	b.EmitByte(0x89)
	b.EmitByte(modrm(0x2, byte(src), byte(base)))
	b.EmitU32LE(uint32(disp32))
}

// EmitLoadMem64RipRel emits MOV r64, [RIP+disp32] with a zero displacement
// placeholder and returns that field's buffer offset, for the caller to
// patch against a constant in the pool (see pool.go). dispOffset is unused.
func (b *Buffer) EmitLoadMem64RipRel(dst int, dispOffset int) int {
	b.emitRexIfNeeded(true, dst, 0)
	b.EmitByte(0x8B)
	b.EmitByte(modrm(0x0, byte(dst), 0x5)) // mod=00, rm=101: RIP-relative
	off := b.cursor
	b.EmitU32LE(0) // patched once the pool's absolute address is known
	_ = dispOffset
	return off
}
