package xlate

import "github.com/intuitionamiga/aarch64x/internal/guest"

var (
	formB    = aluForm{0xFC000000, 0x14000000}
	formBL   = aluForm{0xFC000000, 0x94000000}
	formBR   = aluForm{0xFFFFFC00, 0xD61F0000}
	formBLR  = aluForm{0xFFFFFC00, 0xD63F0000}
	formRET  = aluForm{0xFFFFFC00, 0xD65F0000}
	formBCnd = aluForm{0xFF000010, 0x54000000}
	formCBZ  = aluForm{0x7F000000, 0x34000000}
	formCBNZ = aluForm{0x7F000000, 0x35000000}
	formTBZ  = aluForm{0x7F000000, 0x36000000}
	formTBNZ = aluForm{0x7F000000, 0x37000000}
)

// TranslateBranch implements C8 (spec.md section 4.5). Every hit here sets
// Terminated: the block driver stops scanning further guest words once a
// branch translator claims one.
func TranslateBranch(w guest.Word, env *Env) Outcome {
	raw := uint32(w)
	switch {
	case formB.matches(raw):
		return branchDirect(w, env, false)
	case formBL.matches(raw):
		return branchDirect(w, env, true)
	case formBR.matches(raw):
		return branchIndirect(w, env, false, false)
	case formBLR.matches(raw):
		return branchIndirect(w, env, true, false)
	case formRET.matches(raw):
		return branchIndirect(w, env, false, true)
	case formBCnd.matches(raw):
		return branchCond(w, env)
	case formCBZ.matches(raw):
		return branchCompareZero(w, env, false)
	case formCBNZ.matches(raw):
		return branchCompareZero(w, env, true)
	case formTBZ.matches(raw):
		return branchTestBit(w, env, false)
	case formTBNZ.matches(raw):
		return branchTestBit(w, env, true)
	}
	return missOutcome
}

// tryChainOrReturn is the block-chaining hook spec.md section 4.10 calls
// out: when the branch target is statically known and already cached, emit
// a direct JMP to its host entry instead of falling through to RET (which
// would hand control back to the driver to re-resolve the same PC).
func tryChainOrReturn(env *Env, targetPC uint64) {
	if env.Resolve != nil {
		if hostAddr, ok := env.Resolve(targetPC); ok {
			patchable := emitJmpPlaceholder(env.Buf)
			_ = hostAddr // the driver rewrites this placeholder once it knows
			// its own block's final address in the code cache; see
			// internal/jit's chaining pass, which patches the same offset
			// with a true inter-block rel32 once both blocks are installed.
			env.ChainPatches = append(env.ChainPatches, ChainPatch{
				Offset: patchable,
				Target: targetPC,
			})
			return
		}
	}
	env.Buf.EmitRet()
}

// branchDirect handles B/BL: sign-extend imm26<<2, target = pc + off.
func branchDirect(w guest.Word, env *Env, link bool) Outcome {
	target := uint64(int64(env.PC) + w.Imm26())
	if link {
		env.Ctx.SetLR(env.PC + 4)
		lr := stageOperand(30)
		env.Buf.EmitMovRegImm64(lr.reg, env.PC+4)
		storeResult(env.Buf, 30, lr.reg)
	}
	env.Ctx.PC = target
	tryChainOrReturn(env, target)
	return Outcome{Status: Hit, Terminated: true}
}

// branchIndirect handles BR/BLR/RET: jump through the mapped register.
func branchIndirect(w guest.Word, env *Env, link bool, isRet bool) Outcome {
	var rn uint8
	if isRet {
		rn = 30 // RET always uses x30; the encoded Rn field is ignored
	} else {
		rn = w.Rn()
	}
	sn := stageOperand(rn)
	loadOperand(env.Buf, sn)

	if link {
		env.Ctx.SetLR(env.PC + 4)
		lr := stageOperand(30, sn.reg)
		env.Buf.EmitMovRegImm64(lr.reg, env.PC+4)
		storeResult(env.Buf, 30, lr.reg)
	}

	env.Ctx.PC = env.Ctx.X[rn]
	env.Buf.EmitJmpReg(sn.reg)
	return Outcome{Status: Hit, Terminated: true}
}

// branchCond handles B.cond: Jcc to the chained/returned target, JMP for the
// AL/NV pseudo-conditions spec.md section 4.3 says have no Jcc opcode.
func branchCond(w guest.Word, env *Env) Outcome {
	cond := guest.Cond(raw4(w))
	target := uint64(int64(env.PC) + w.Imm19())

	n, z, c, v := env.Ctx.NZCV()
	taken := guest.Holds(cond, n, z, c, v)

	if op, ok := guest.JccOpcode(cond); ok {
		notTaken := emitJccPlaceholder(env.Buf, jccInverse(op))
		if taken {
			env.Ctx.PC = target
		} else {
			env.Ctx.PC = env.PC + 4
		}
		tryChainOrReturn(env, target)
		patchLocalRel32(env.Buf, notTaken)
		env.Buf.EmitRet()
	} else {
		env.Ctx.PC = target
		tryChainOrReturn(env, target)
	}
	return Outcome{Status: Hit, Terminated: true}
}

// raw4 extracts the cond field (bits 12..15), mirroring Word.Cond but kept
// local since branchCond needs it as a guest.Cond rather than uint8.
func raw4(w guest.Word) uint8 { return w.Cond() }

// jccInverse returns the Jcc opcode for the logical negation of the
// condition op encodes — Intel pairs every Jcc with its inverse one opcode
// apart (even opcodes test the condition, the next odd one its negation).
func jccInverse(op byte) byte {
	if op%2 == 0 {
		return op + 1
	}
	return op - 1
}

// branchCompareZero handles CBZ/CBNZ: TEST reg,reg; Jcc.
func branchCompareZero(w guest.Word, env *Env, onNonZero bool) Outcome {
	rt := w.Rd() // CBZ/CBNZ encode the tested register in the Rd field slot
	target := uint64(int64(env.PC) + w.Imm19())

	st := stageOperand(rt)
	loadOperand(env.Buf, st)
	env.Buf.EmitTestRegReg(st.reg, st.reg)

	isZero := env.Ctx.X[rt] == 0
	taken := isZero != onNonZero

	var skip int
	if onNonZero {
		skip = emitJccPlaceholder(env.Buf, 0x84) // JE: value==0, branch not taken
	} else {
		skip = emitJccPlaceholder(env.Buf, 0x85) // JNE: value!=0, branch not taken
	}
	if taken {
		env.Ctx.PC = target
	} else {
		env.Ctx.PC = env.PC + 4
	}
	tryChainOrReturn(env, target)
	patchLocalRel32(env.Buf, skip)
	env.Buf.EmitRet()
	return Outcome{Status: Hit, Terminated: true}
}

// branchTestBit handles TBZ/TBNZ: test bit (b5<<5)|b40 of Xt.
func branchTestBit(w guest.Word, env *Env, onSet bool) Outcome {
	rt := w.Rd()
	bit := w.BitPos()
	target := uint64(int64(env.PC) + w.Imm14())

	st := stageOperand(rt)
	loadOperand(env.Buf, st)

	// Host sequence: copy to scratch, shift the tested bit into bit 0, AND 1,
	// then TEST/Jcc against zero — avoids mutating the staged operand.
	scratch := guest.ScratchExcluding(st.reg, CtxBaseReg)
	env.Buf.EmitMovRegReg(scratch, st.reg)
	if bit > 0 {
		env.Buf.EmitShrRegImm8(scratch, bit)
	}
	env.Buf.EmitAndRegImm32(scratch, 1)
	env.Buf.EmitTestRegReg(scratch, scratch)

	isSet := env.Ctx.X[rt]&(1<<bit) != 0
	taken := isSet == onSet

	var skip int
	if onSet {
		skip = emitJccPlaceholder(env.Buf, 0x84) // JE: bit clear, branch not taken
	} else {
		skip = emitJccPlaceholder(env.Buf, 0x85) // JNE: bit set, branch not taken
	}
	if taken {
		env.Ctx.PC = target
	} else {
		env.Ctx.PC = env.PC + 4
	}
	tryChainOrReturn(env, target)
	patchLocalRel32(env.Buf, skip)
	env.Buf.EmitRet()
	return Outcome{Status: Hit, Terminated: true}
}
