package xlate

import "github.com/intuitionamiga/aarch64x/internal/guest"

// SVC #imm16: 1101 0100 000 imm16 00001. NOP is one encoding of the hint-
// instructions group (1101010100 0 00 011 0010 imm7 11111) and is claimed
// here since it needs no shadow-state effect; other HINT encodings are not
// claimed.
var (
	formSVC = aluForm{0xFFE0001F, 0xD4000001}
	formNOP = aluForm{0xFFFFFFFF, 0xD503201F}
)

// TranslateSystem implements the SVC/NOP corner of C10 spec.md section 4.7
// groups under the MOV-family class header but splits out here since it
// shares nothing with MOVZ/MOVN/MOVK's bit layout.
func TranslateSystem(w guest.Word, env *Env) Outcome {
	raw := uint32(w)
	switch {
	case formNOP.matches(raw):
		return Outcome{Status: Hit}
	case formSVC.matches(raw):
		return svcCall(w, env)
	}
	return missOutcome
}

// svcCall records the trap on the shadow context (SvcPending/SvcImm), emits
// RET and marks the block boundary, mirroring how branch.go terminates a
// block on RET. No host call is emitted; the trap is serviced afterwards
// through internal/jit's Driver.ServiceSyscall.
func svcCall(w guest.Word, env *Env) Outcome {
	imm16 := (uint32(w) >> 5) & 0xFFFF
	env.Ctx.SvcPending = true
	env.Ctx.SvcImm = uint16(imm16)
	env.Buf.EmitRet()
	return Outcome{Status: Hit, Terminated: true}
}
