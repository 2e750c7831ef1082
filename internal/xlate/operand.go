package xlate

import (
	"unsafe"

	"github.com/intuitionamiga/aarch64x/internal/guest"
	"github.com/intuitionamiga/aarch64x/internal/hostasm"
)

// CtxBaseReg is the host GPR every GuestContext-relative load/store a
// translator emits uses as its base. It is one of the three registers
// internal/guest.IsFrameBacked reserves. The block driver emits no prologue
// that loads it: translated code takes R13 to already hold the
// *guest.Context pointer on entry.
const CtxBaseReg = 13

var (
	xOffset  = int(unsafe.Offsetof(guest.Context{}.X))
	pcOffset = int(unsafe.Offsetof(guest.Context{}.PC))
	vOffset  = int(unsafe.Offsetof(guest.Context{}.V))
)

func xSlotOffset(g uint8) int32 { return int32(xOffset + 8*int(g)) }

func vSlotOffset(v uint8, half int) int32 {
	return int32(vOffset + 16*int(v) + 8*half)
}

// loadX emits a load of GuestContext.X[g] into host register dst, using the
// disp8 form when the field offset fits and disp32 otherwise.
func loadX(buf *hostasm.Buffer, dst int, g uint8) {
	off := xSlotOffset(g)
	if off >= -128 && off <= 127 {
		buf.EmitLoadMem64(dst, CtxBaseReg, int8(off))
		return
	}
	buf.EmitLoadMem64Disp32(dst, CtxBaseReg, off)
}

// storeX emits a store of host register src into GuestContext.X[g].
func storeX(buf *hostasm.Buffer, g uint8, src int) {
	off := xSlotOffset(g)
	if off >= -128 && off <= 127 {
		buf.EmitStoreMem64(CtxBaseReg, int8(off), src)
		return
	}
	buf.EmitStoreMem64Disp32(CtxBaseReg, off, src)
}

// loadV/storeV are the vector-slot equivalents, used by the NEON and
// scalar-FP translators (spec.md sections 4.8/4.9).
func loadV(buf *hostasm.Buffer, dst int, v uint8, half int) {
	buf.EmitLoadMem64Disp32(dst, CtxBaseReg, vSlotOffset(v, half))
}

func storeV(buf *hostasm.Buffer, v uint8, half int, src int) {
	buf.EmitStoreMem64Disp32(CtxBaseReg, vSlotOffset(v, half), src)
}

// stage is one guest GPR operand's host-register assignment for the
// duration of translating a single instruction. Every operand reference —
// read or write — goes through the GuestContext rather than staying pinned
// across instruction boundaries: spec.md's literal g&0x0F mapping is a
// naming convention for which physical register backs a given operand
// within one instruction's emission, not a promise that the value survives
// in that register afterward. This keeps the scheme uniform (every guest
// register, frame-backed or not, is handled the same way by the caller) and
// sidesteps any question of what a translated block leaves in RSP/RBP when
// it reaches its closing RET.
type stage struct {
	reg       int
	g         uint8
	frameBack bool
}

// stageOperand picks the host register that will hold guest register g's
// value while this instruction is translated. Ordinary registers use their
// own mapped alias; reserved ones (see internal/guest.IsFrameBacked) borrow
// a free scratch register instead, excluding CtxBaseReg and any registers
// already committed to other operands of the same instruction.
func stageOperand(g uint8, used ...int) stage {
	return stageOperandAvoiding(g, nil, used...)
}

// stageOperandAvoiding is stageOperand plus a caller-supplied set of host
// registers g's natural alias must not collide with even when g is not
// itself frame-backed — used by the shift translator, whose host encoding
// hard-codes the shift count in CL (host register 1) regardless of which
// guest register happens to carry it.
//
// used also guards a second, easy-to-miss collision: the guest-to-host map
// is only idempotent within each half (0..15, 16..31), so two operands of
// the very same instruction can be distinct guest registers that alias the
// same host register (e.g. rn=3, rm=19). Whichever operand is staged second
// must fall back to a scratch register in that case, or loading it would
// clobber the first operand's already-staged value.
func stageOperandAvoiding(g uint8, avoid []int, used ...int) stage {
	h := guest.HostReg(g)
	forceScratch := guest.IsFrameBacked(g)
	for _, a := range avoid {
		if h == a {
			forceScratch = true
		}
	}
	for _, u := range used {
		if h == u {
			forceScratch = true
		}
	}
	if !forceScratch {
		return stage{reg: h, g: g}
	}
	excl := append(append(append([]int{}, used...), avoid...), CtxBaseReg)
	return stage{reg: guest.ScratchExcluding(excl...), g: g, frameBack: true}
}

// loadOperand emits whatever load is needed to bring guest register g's
// current value into its staged host register, and returns that register
// number for the translator to compute with.
func loadOperand(buf *hostasm.Buffer, s stage) int {
	loadX(buf, s.reg, s.g)
	return s.reg
}

// storeResult emits the store that commits hostReg back to guest register
// g's GuestContext slot. Writes to the architectural zero/discard register
// (X31 in its zero-register reading, spec.md section 4.2) are the caller's
// responsibility to suppress before calling this.
func storeResult(buf *hostasm.Buffer, g uint8, hostReg int) {
	storeX(buf, g, hostReg)
}

// patchLocalRel32 fixes up a rel32 displacement previously reserved at
// dispOffset (the value returned by EmitJmpRel32/EmitJccRel32) so that it
// lands on the buffer's current write position. Both ends of the branch
// live in the same scratch buffer, so a purely offset-relative computation
// is correct regardless of where the buffer is eventually copied in the
// code cache: the displacement is invariant under that shift.
func patchLocalRel32(buf *hostasm.Buffer, dispOffset int) {
	target := buf.Len()
	disp := int32(target - (dispOffset + 4))
	buf.PatchU32LE(dispOffset, uint32(disp))
}

// emitJmpPlaceholder/emitJccPlaceholder reserve a rel32 forward branch whose
// target isn't known yet (e.g. the divide-by-zero skip path), to be fixed up
// with patchLocalRel32 once the fall-through point is reached.
func emitJmpPlaceholder(buf *hostasm.Buffer) int {
	buf.EmitByte(0xE9)
	off := buf.Len()
	buf.EmitU32LE(0)
	return off
}

func emitJccPlaceholder(buf *hostasm.Buffer, jccOpcode byte) int {
	buf.EmitByte(0x0F)
	buf.EmitByte(jccOpcode)
	off := buf.Len()
	buf.EmitU32LE(0)
	return off
}
