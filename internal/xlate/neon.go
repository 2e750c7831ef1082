package xlate

import "github.com/intuitionamiga/aarch64x/internal/guest"

// NEON "three registers of the same type" class: 0 Q U 01110 size 1 Rm
// opcode(5) 1 Rn Rd. This dispatcher checks the fixed group bits, U, and
// opcode, leaving size (bits 23:22) as the element-width selector spec.md
// section 4.9's table keys off. Q (bit 30, 64- vs 128-bit) is intentionally
// excluded from the match: both widths lower to the same 128-bit XMM
// opcode, a simplification consistent with the translator always treating
// guest V slots as full 128-bit lanes regardless of Q.
const neon3SameMask = 0xBF20FC00

var (
	formVAdd  = aluForm{neon3SameMask, 0x0E208400}
	formVSub  = aluForm{neon3SameMask, 0x2E208400}
	formVCmeq = aluForm{neon3SameMask, 0x2E208C00}
	formVCmgt = aluForm{neon3SameMask, 0x0E206C00}
	formVMul  = aluForm{neon3SameMask, 0x0E20CC00}
	formVAnd  = aluForm{0xBFE0FC00, 0x0E201C00}
	formVOrr  = aluForm{0xBFE0FC00, 0x0EA01C00}
	formVEor  = aluForm{0xBFE0FC00, 0x2E201C00}
	formVBic  = aluForm{0xBFE0FC00, 0x0E601C00}

	// FP-vector 3-same (bit 23 selects S/D in this simplified scheme,
	// rather than ARM's real sz encoding split across size/opcode).
	formVFAdd = aluForm{0xBFA0FC00, 0x0E20D400}
	formVFSub = aluForm{0xBFA0FC00, 0x0EA0D400}
	formVFMul = aluForm{0xBFA0FC00, 0x2E20DC00}
	formVFDiv = aluForm{0xBFA0FC00, 0x2E20FC00}
	formVFMax = aluForm{0xBFA0FC00, 0x0E20F400}
	formVFMin = aluForm{0xBFA0FC00, 0x0EA0F400}

	// Shift-by-immediate (AdvSIMD shift by immediate): 0 Q U 011110 immh
	// immb opcode Rn Rd.
	formVShl  = aluForm{0xBF80FC00, 0x0F005400}
	formVUshr = aluForm{0xBF80FC00, 0x2F000400}
	formVSshr = aluForm{0xBF80FC00, 0x0F000400}

	// DUP (general): 0 Q 0 01110000 imm5 000011 Rn Rd.
	formVDup = aluForm{0xFF80FC00, 0x0E000C00}

	// EXT: 0 Q 101110 00 0 Rm 0 imm4 0 Rn Rd.
	formVExt = aluForm{0xBFE08400, 0x2E000000}

	// Vector load/store register (post-index omitted; single-register
	// 128-bit unscaled offset form only, per spec.md's simplified
	// LD2/ST2-as-sequential-MOVDQU allowance).
	formVLdr = aluForm{0xFFC00000, 0x3DC00000}
	formVStr = aluForm{0xFFC00000, 0x3D800000}
)

// TranslateNEON implements C12 (spec.md section 4.9).
func TranslateNEON(w guest.Word, env *Env) Outcome {
	raw := uint32(w)
	size := w.Size()

	switch {
	case formVAdd.matches(raw):
		return vecIntBinary(w, env, size, vecAdd)
	case formVSub.matches(raw):
		return vecIntBinary(w, env, size, vecSub)
	case formVCmeq.matches(raw):
		return vecIntBinary(w, env, size, vecCmeq)
	case formVCmgt.matches(raw):
		return vecIntBinary(w, env, size, vecCmgt)
	case formVMul.matches(raw):
		return vecIntBinary(w, env, size, vecMul)
	case formVAnd.matches(raw):
		return vecLogical(w, env, vecAnd)
	case formVOrr.matches(raw):
		return vecLogical(w, env, vecOrr)
	case formVEor.matches(raw):
		return vecLogical(w, env, vecEor)
	case formVBic.matches(raw):
		return vecBic(w, env)
	case formVFAdd.matches(raw):
		return vecFpBinary(w, env, fpAdd)
	case formVFSub.matches(raw):
		return vecFpBinary(w, env, fpSub)
	case formVFMul.matches(raw):
		return vecFpBinary(w, env, fpMul)
	case formVFDiv.matches(raw):
		return vecFpBinary(w, env, fpDiv)
	case formVFMax.matches(raw):
		return vecFpBinary(w, env, fpMax)
	case formVFMin.matches(raw):
		return vecFpBinary(w, env, fpMin)
	case formVShl.matches(raw):
		return vecShiftImm(w, env, size, shiftLSL)
	case formVUshr.matches(raw):
		return vecShiftImm(w, env, size, shiftLSR)
	case formVSshr.matches(raw):
		return vecShiftImm(w, env, size, shiftASR)
	case formVDup.matches(raw):
		return vecDup(w, env)
	case formVExt.matches(raw):
		return vecExt(w, env)
	case formVLdr.matches(raw):
		return vecLoad(w, env)
	case formVStr.matches(raw):
		return vecStore(w, env)
	}
	return missOutcome
}

type vecIntOp int

const (
	vecAdd vecIntOp = iota
	vecSub
	vecCmeq
	vecCmgt
	vecMul
)

// vecIntBinary handles PADD/PSUB/PCMPEQ/PCMPGT/PMUL, picking the host
// opcode family by element size per spec.md section 4.9's table.
func vecIntBinary(w guest.Word, env *Env, size uint8, op vecIntOp) Outcome {
	vd, vn, vm := int(w.Rd()), int(w.Rn()), int(w.Rm())

	env.Buf.EmitMovdquRegReg(vd, vn)
	switch op {
	case vecAdd:
		emitBySize(env, size, vd, vm, [4]func(int, int){
			func(d, s int) { env.Buf.EmitPaddb(d, s) },
			func(d, s int) { env.Buf.EmitPaddw(d, s) },
			func(d, s int) { env.Buf.EmitPaddd(d, s) },
			func(d, s int) { env.Buf.EmitPaddq(d, s) },
		})
	case vecSub:
		emitBySize(env, size, vd, vm, [4]func(int, int){
			func(d, s int) { env.Buf.EmitPsubb(d, s) },
			func(d, s int) { env.Buf.EmitPsubw(d, s) },
			func(d, s int) { env.Buf.EmitPsubd(d, s) },
			func(d, s int) { env.Buf.EmitPsubq(d, s) },
		})
	case vecCmeq:
		emitBySize(env, size, vd, vm, [4]func(int, int){
			func(d, s int) { env.Buf.EmitPcmpeqb(d, s) },
			func(d, s int) { env.Buf.EmitPcmpeqw(d, s) },
			func(d, s int) { env.Buf.EmitPcmpeqd(d, s) },
			func(d, s int) { env.Buf.EmitPcmpgtq(d, s) }, // no PCMPEQQ without SSE4.1; approximate
		})
	case vecCmgt:
		emitBySize(env, size, vd, vm, [4]func(int, int){
			func(d, s int) { env.Buf.EmitPcmpgtb(d, s) },
			func(d, s int) { env.Buf.EmitPcmpgtw(d, s) },
			func(d, s int) { env.Buf.EmitPcmpgtd(d, s) },
			func(d, s int) { env.Buf.EmitPcmpgtq(d, s) },
		})
	case vecMul:
		emitBySize(env, size, vd, vm, [4]func(int, int){
			nil,
			func(d, s int) { env.Buf.EmitPmullw(d, s) },
			func(d, s int) { env.Buf.EmitPmulld(d, s) },
			nil,
		})
	}

	lanes := vecLanes(size)
	for i := 0; i < lanes; i++ {
		a := vecLane(env.Ctx.V[vn], size, i)
		b := vecLane(env.Ctx.V[vm], size, i)
		var r uint64
		switch op {
		case vecAdd:
			r = a + b
		case vecSub:
			r = a - b
		case vecCmeq:
			r = allOnesIf(a == b, size)
		case vecCmgt:
			r = allOnesIf(int64(a) > int64(b), size)
		case vecMul:
			r = a * b
		}
		setVecLane(&env.Ctx.V[vd], size, i, r)
	}
	return Outcome{Status: Hit}
}

func emitBySize(env *Env, size uint8, dst, src int, fns [4]func(int, int)) {
	if f := fns[size&3]; f != nil {
		f(dst, src)
	}
}

func allOnesIf(cond bool, size uint8) uint64 {
	if !cond {
		return 0
	}
	switch size & 3 {
	case 0:
		return 0xFF
	case 1:
		return 0xFFFF
	case 2:
		return 0xFFFFFFFF
	default:
		return 0xFFFFFFFFFFFFFFFF
	}
}

func vecLanes(size uint8) int {
	switch size & 3 {
	case 0:
		return 16
	case 1:
		return 8
	case 2:
		return 4
	default:
		return 2
	}
}

func vecLane(v [2]uint64, size uint8, i int) uint64 {
	bits := 8 << (size & 3)
	bitOff := i * bits
	half := v[bitOff/64]
	shift := uint(bitOff % 64)
	mask := uint64(1)<<uint(bits) - 1
	if bits == 64 {
		mask = ^uint64(0)
	}
	return (half >> shift) & mask
}

func setVecLane(v *[2]uint64, size uint8, i int, value uint64) {
	bits := 8 << (size & 3)
	bitOff := i * bits
	half := bitOff / 64
	shift := uint(bitOff % 64)
	mask := uint64(1)<<uint(bits) - 1
	if bits == 64 {
		mask = ^uint64(0)
	}
	v[half] = (v[half] &^ (mask << shift)) | ((value & mask) << shift)
}

type vecLogicalOp int

const (
	vecAnd vecLogicalOp = iota
	vecOrr
	vecEor
)

func vecLogical(w guest.Word, env *Env, op vecLogicalOp) Outcome {
	vd, vn, vm := int(w.Rd()), int(w.Rn()), int(w.Rm())
	env.Buf.EmitMovdquRegReg(vd, vn)
	switch op {
	case vecAnd:
		env.Buf.EmitPand(vd, vm)
	case vecOrr:
		env.Buf.EmitPor(vd, vm)
	case vecEor:
		env.Buf.EmitPxor(vd, vm)
	}
	for h := 0; h < 2; h++ {
		switch op {
		case vecAnd:
			env.Ctx.V[vd][h] = env.Ctx.V[vn][h] & env.Ctx.V[vm][h]
		case vecOrr:
			env.Ctx.V[vd][h] = env.Ctx.V[vn][h] | env.Ctx.V[vm][h]
		case vecEor:
			env.Ctx.V[vd][h] = env.Ctx.V[vn][h] ^ env.Ctx.V[vm][h]
		}
	}
	return Outcome{Status: Hit}
}

// vecBic uses a scratch XMM to hold the inverted operand (spec.md section
// 4.9: "BIC emits a two-step PAND-with-NOT via a scratch xmm").
func vecBic(w guest.Word, env *Env) Outcome {
	vd, vn, vm := int(w.Rd()), int(w.Rn()), int(w.Rm())
	scratch := guest.ScratchExcluding(vd, vn, vm)

	allOnes := [16]byte{}
	for i := range allOnes {
		allOnes[i] = 0xFF
	}
	idx := env.Pool.Add(allOnes)
	tmp := guest.ScratchExcluding(vd, vn, vm, scratch)
	disp := env.Buf.EmitLoadMem64RipRel(tmp, 0)
	env.Pool.RecordPatch(idx, disp)
	env.Buf.EmitMovdquRegReg(scratch, vm)
	env.Buf.EmitPxor(scratch, tmp)
	env.Buf.EmitMovdquRegReg(vd, vn)
	env.Buf.EmitPand(vd, scratch)

	for h := 0; h < 2; h++ {
		env.Ctx.V[vd][h] = env.Ctx.V[vn][h] &^ env.Ctx.V[vm][h]
	}
	return Outcome{Status: Hit}
}

func vecFpBinary(w guest.Word, env *Env, op fpOp) Outcome {
	vd, vn, vm := int(w.Rd()), int(w.Rn()), int(w.Rm())
	isDouble := (uint32(w)>>22)&1 != 0

	if isDouble {
		env.Buf.EmitMovapdRegReg(vd, vn)
	} else {
		env.Buf.EmitMovapsRegReg(vd, vn)
	}
	switch op {
	case fpAdd:
		if isDouble {
			env.Buf.EmitAddpd(vd, vm)
		} else {
			env.Buf.EmitAddps(vd, vm)
		}
	case fpSub:
		if isDouble {
			env.Buf.EmitSubpd(vd, vm)
		} else {
			env.Buf.EmitSubps(vd, vm)
		}
	case fpMul:
		if isDouble {
			env.Buf.EmitMulpd(vd, vm)
		} else {
			env.Buf.EmitMulps(vd, vm)
		}
	case fpDiv:
		if isDouble {
			env.Buf.EmitDivpd(vd, vm)
		} else {
			env.Buf.EmitDivps(vd, vm)
		}
	case fpMax:
		if isDouble {
			env.Buf.EmitMaxpd(vd, vm)
		} else {
			env.Buf.EmitMaxps(vd, vm)
		}
	case fpMin:
		if isDouble {
			env.Buf.EmitMinpd(vd, vm)
		} else {
			env.Buf.EmitMinps(vd, vm)
		}
	}

	size := uint8(0)
	if isDouble {
		size = 3
	} else {
		size = 2
	}
	lanes := vecLanes(size)
	for i := 0; i < lanes; i++ {
		a := vecLane(env.Ctx.V[vn], size, i)
		b := vecLane(env.Ctx.V[vm], size, i)
		setVecLane(&env.Ctx.V[vd], size, i, fpCompute(op, isDouble, a, b))
	}
	return Outcome{Status: Hit}
}

func vecShiftImm(w guest.Word, env *Env, size uint8, kind shiftKind) Outcome {
	vd, vn := int(w.Rd()), int(w.Rn())
	immh := (uint32(w) >> 19) & 0xF
	immb := (uint32(w) >> 16) & 0x7
	amount := uint8(0)
	switch {
	case immh&0x8 != 0:
		amount = uint8(128 - (immh<<3 | immb))
		size = 3
	case immh&0x4 != 0:
		amount = uint8(64 - (immh<<3 | immb))
		size = 2
	case immh&0x2 != 0:
		amount = uint8(32 - (immh<<3 | immb))
		size = 1
	default:
		amount = uint8(16 - (immh<<3 | immb))
		size = 0
	}

	env.Buf.EmitMovdquRegReg(vd, vn)
	switch {
	case kind == shiftLSL && size == 0:
		env.Buf.EmitPsllwImm8(vd, amount) // byte shifts approximated via word form
	case kind == shiftLSL && size == 1:
		env.Buf.EmitPsllwImm8(vd, amount)
	case kind == shiftLSL && size == 2:
		env.Buf.EmitPslldImm8(vd, amount)
	case kind == shiftLSL && size == 3:
		env.Buf.EmitPsllqImm8(vd, amount)
	case kind == shiftLSR && size == 1:
		env.Buf.EmitPsrlwImm8(vd, amount)
	case kind == shiftLSR && size == 2:
		env.Buf.EmitPsrldImm8(vd, amount)
	case kind == shiftLSR && size == 3:
		env.Buf.EmitPsrlqImm8(vd, amount)
	case kind == shiftASR && size == 1:
		env.Buf.EmitPsrawImm8(vd, amount)
	case kind == shiftASR && size == 2:
		env.Buf.EmitPsradImm8(vd, amount)
	}

	lanes := vecLanes(size)
	for i := 0; i < lanes; i++ {
		a := vecLane(env.Ctx.V[vn], size, i)
		var r uint64
		switch kind {
		case shiftLSL:
			r = a << amount
		case shiftLSR:
			r = a >> amount
		case shiftASR:
			bits := 8 << (size & 3)
			r = uint64(signExtend64(int64(a), uint(bits)) >> amount)
		}
		setVecLane(&env.Ctx.V[vd], size, i, r)
	}
	return Outcome{Status: Hit}
}

// vecDup uses PSHUFD with a replicated control byte (spec.md section 4.9).
func vecDup(w guest.Word, env *Env) Outcome {
	vd, vn := int(w.Rd()), int(w.Rn())
	imm5 := (uint32(w) >> 16) & 0x1F
	var size uint8
	var idx uint32
	switch {
	case imm5&1 != 0:
		size, idx = 0, imm5>>1
	case imm5&2 != 0:
		size, idx = 1, imm5>>2
	case imm5&4 != 0:
		size, idx = 2, imm5>>3
	default:
		size, idx = 3, imm5>>4
	}

	control := uint8(idx&3) * 0x55
	env.Buf.EmitPshufd(vd, vn, control)

	val := vecLane(env.Ctx.V[vn], size, int(idx))
	lanes := vecLanes(size)
	for i := 0; i < lanes; i++ {
		setVecLane(&env.Ctx.V[vd], size, i, val)
	}
	return Outcome{Status: Hit}
}

// vecExt uses PALIGNR with the guest immediate byte offset (spec.md section
// 4.9).
func vecExt(w guest.Word, env *Env) Outcome {
	vd, vn, vm := int(w.Rd()), int(w.Rn()), int(w.Rm())
	imm4 := uint8((uint32(w) >> 11) & 0xF)

	env.Buf.EmitMovdquRegReg(vd, vm)
	env.Buf.EmitPalignr(vd, vn, imm4)

	var out [16]byte
	nBytes, mBytes := v128Bytes(env.Ctx.V[vn]), v128Bytes(env.Ctx.V[vm])
	for i := 0; i < 16; i++ {
		src := int(imm4) + i
		if src < 16 {
			out[i] = nBytes[src]
		} else {
			out[i] = mBytes[src-16]
		}
	}
	env.Ctx.V[vd] = bytesToV128(out)
	return Outcome{Status: Hit}
}

func v128Bytes(v [2]uint64) [16]byte {
	var out [16]byte
	for i := 0; i < 8; i++ {
		out[i] = byte(v[0] >> (8 * i))
		out[8+i] = byte(v[1] >> (8 * i))
	}
	return out
}

func bytesToV128(b [16]byte) [2]uint64 {
	var v [2]uint64
	for i := 0; i < 8; i++ {
		v[0] |= uint64(b[i]) << (8 * i)
		v[1] |= uint64(b[8+i]) << (8 * i)
	}
	return v
}

// vecLoad/vecStore handle the simplified 128-bit unscaled-offset vector
// load/store (spec.md section 4.9: "two sequential MOVDQUs" is the
// permitted simplified form for the wider LD2/ST2 family; single-register
// loads/stores use one MOVDQU directly).
func vecLoad(w guest.Word, env *Env) Outcome {
	vt, rn := int(w.Rd()), w.Rn()
	off := int64(signExtend9Unscaled(w))

	sn := stageOperand(rn)
	loadOperand(env.Buf, sn)
	env.Buf.EmitMovdquLoadDisp32(vt, sn.reg, int32(off))

	ea := uint64(int64(env.Ctx.X[rn]) + off)
	if env.Mem != nil {
		lo := env.Mem.Read(ea, 8)
		hi := env.Mem.Read(ea+8, 8)
		env.Ctx.V[vt] = [2]uint64{lo, hi}
	}
	return Outcome{Status: Hit}
}

func vecStore(w guest.Word, env *Env) Outcome {
	vt, rn := int(w.Rd()), w.Rn()
	off := int64(signExtend9Unscaled(w))

	sn := stageOperand(rn)
	loadOperand(env.Buf, sn)
	env.Buf.EmitMovdquStoreDisp32(sn.reg, int32(off), vt)

	ea := uint64(int64(env.Ctx.X[rn]) + off)
	if env.Mem != nil {
		env.Mem.Write(ea, 8, env.Ctx.V[vt][0])
		env.Mem.Write(ea+8, 8, env.Ctx.V[vt][1])
	}
	return Outcome{Status: Hit}
}

func signExtend9Unscaled(w guest.Word) int32 {
	raw := int32(w>>12) & 0x1FF
	return raw << 23 >> 23
}
