package xlate

import "github.com/intuitionamiga/aarch64x/internal/guest"

var (
	formMOVZ = aluForm{0x7F800000, 0x52800000}
	formMOVN = aluForm{0x7F800000, 0x12800000}
	formMOVK = aluForm{0x7F800000, 0x72800000}
)

// TranslateMov implements C10 (spec.md section 4.7).
func TranslateMov(w guest.Word, env *Env) Outcome {
	raw := uint32(w)
	switch {
	case formMOVZ.matches(raw):
		return movz(w, env)
	case formMOVN.matches(raw):
		return movn(w, env)
	case formMOVK.matches(raw):
		return movk(w, env)
	}
	return missOutcome
}

// movz writes imm16 << (16*hw) into Rd, zeroing the rest.
func movz(w guest.Word, env *Env) Outcome {
	rd := w.Rd()
	shift := uint(w.Hw()) * 16
	value := uint64(w.Imm16()) << shift

	sd := stageOperand(rd)
	env.Buf.EmitMovRegImm64(sd.reg, value)
	env.Ctx.X[rd] = value
	storeResult(env.Buf, rd, sd.reg)
	return Outcome{Status: Hit}
}

// movn writes ~(imm16 << (16*hw)) into Rd.
func movn(w guest.Word, env *Env) Outcome {
	rd := w.Rd()
	shift := uint(w.Hw()) * 16
	value := ^(uint64(w.Imm16()) << shift)

	sd := stageOperand(rd)
	env.Buf.EmitMovRegImm64(sd.reg, value)
	env.Ctx.X[rd] = value
	storeResult(env.Buf, rd, sd.reg)
	return Outcome{Status: Hit}
}

// movk replaces the 16-bit field at hw*16 of Rd, preserving the rest.
func movk(w guest.Word, env *Env) Outcome {
	rd := w.Rd()
	shift := uint(w.Hw()) * 16
	mask := uint64(0xFFFF) << shift
	imm := uint64(w.Imm16()) << shift

	sd := stageOperand(rd)
	loadOperand(env.Buf, sd)

	scratch := guest.ScratchExcluding(sd.reg, CtxBaseReg)
	env.Buf.EmitMovRegImm64(scratch, ^mask)
	env.Buf.EmitAndRegReg(sd.reg, scratch)
	env.Buf.EmitMovRegImm64(scratch, imm)
	env.Buf.EmitOrRegReg(sd.reg, scratch)

	env.Ctx.X[rd] = (env.Ctx.X[rd] &^ mask) | imm
	storeResult(env.Buf, rd, sd.reg)
	return Outcome{Status: Hit}
}
