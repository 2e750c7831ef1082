package xlate

import "github.com/intuitionamiga/aarch64x/internal/guest"

// Encodings for CMP/CMN/TST: the same three-register ALU group as SUBS,
// ADDS, ANDS but with Rd forced to 11111 (the discard register). spec.md
// section 4.5: "the implementer emits only the flag-updating host sequence
// and does not write a destination register."
var (
	formCMP = aluForm{0x7F00001F, 0x6B00001F} // SUBS rd=31
	formCMN = aluForm{0x7F00001F, 0x2B00001F} // ADDS rd=31
	formTST = aluForm{0x7F20001F, 0x6A00001F} // ANDS rd=31
)

// TranslateCompare implements C7. It emits the same flag-computing host
// instruction SUBS/ADDS/ANDS would, just never stores to a destination.
func TranslateCompare(w guest.Word, env *Env) Outcome {
	raw := uint32(w)
	switch {
	case formCMP.matches(raw):
		return cmpLike(w, env, subOp)
	case formCMN.matches(raw):
		return cmpLike(w, env, addOp)
	case formTST.matches(raw):
		return cmpLike(w, env, andOp)
	}
	return missOutcome
}

func cmpLike(w guest.Word, env *Env, op binOp) Outcome {
	rn, rm := w.Rn(), w.Rm()

	sn := stageOperand(rn)
	sm := stageOperand(rm, sn.reg)
	loadOperand(env.Buf, sn)
	loadOperand(env.Buf, sm)

	switch op {
	case subOp:
		env.Buf.EmitCmpRegReg(sn.reg, sm.reg)
	case addOp:
		env.Buf.EmitAddRegReg(sn.reg, sm.reg)
	case andOp:
		env.Buf.EmitTestRegReg(sn.reg, sm.reg)
	}

	nVal, mVal := env.Ctx.X[rn], env.Ctx.X[rm]
	switch op {
	case subOp:
		env.Ctx.SetNZCV(guest.SubFlags(nVal, mVal, nVal-mVal))
	case addOp:
		env.Ctx.SetNZCV(guest.AddFlags(nVal, mVal, nVal+mVal))
	case andOp:
		env.Ctx.SetNZCV(guest.LogicalFlags(nVal & mVal))
	}
	return Outcome{Status: Hit}
}
