package xlate

import "github.com/intuitionamiga/aarch64x/internal/guest"

// Floating-point data-processing (2-source) forms: the scalar
// ADD/SUB/MUL/DIV/MAX/MIN group shares one fixed field pattern, with the
// 4-bit opcode at bits 15:12 selecting the operation and bit 22 selecting
// single (0) vs double (1) precision.
var (
	formFPArith2 = aluForm{0xFF200C00, 0x1E200800}
	formFCmp     = aluForm{0xFFA0FC0F, 0x1E202000}
	formFCmpZero = aluForm{0xFFA0FC0F, 0x1E202008}
)

type fpOp int

const (
	fpAdd fpOp = iota
	fpSub
	fpMul
	fpDiv
	fpMax
	fpMin
)

// fpArithOpcode decodes the 2-source opcode field (bits 15:12) into the
// operation it selects, mirroring the ARM64 "Floating-point data-processing
// (2 source)" table (spec.md section 4.8 only lists the six arithmetic
// ops this translator claims).
func fpArithOpcode(w guest.Word) (fpOp, bool) {
	switch (uint32(w) >> 12) & 0xF {
	case 0x2:
		return fpAdd, true
	case 0x3:
		return fpSub, true
	case 0x0:
		return fpMul, true
	case 0x1:
		return fpDiv, true
	case 0x4:
		return fpMax, true
	case 0x5:
		return fpMin, true
	}
	return 0, false
}

// TranslateFPScalar implements C11 (spec.md section 4.8).
func TranslateFPScalar(w guest.Word, env *Env) Outcome {
	raw := uint32(w)
	isDouble := (raw>>22)&1 != 0

	switch {
	case formFPArith2.matches(raw):
		if op, ok := fpArithOpcode(w); ok {
			return fpArith(w, env, op, isDouble)
		}
	case formFCmpZero.matches(raw):
		return fpCompare(w, env, isDouble, true)
	case formFCmp.matches(raw):
		return fpCompare(w, env, isDouble, false)
	}

	// FABS/FNEG/FSQRT share the data-processing-1-source encoding, opcode
	// field at bits 20:15.
	if (raw & 0xFF3E0000) == 0x1E200000 {
		switch (raw >> 15) & 0x3F {
		case 0x1:
			return fpAbsNeg(w, env, isDouble, false)
		case 0x2:
			return fpAbsNeg(w, env, isDouble, true)
		case 0x3:
			return fpSqrt(w, env, isDouble)
		}
	}
	return missOutcome
}

// fpArith handles FADD/FSUB/FMUL/FDIV/FMAX/FMIN: Vd = Vn OP Vm, lane 0 only.
func fpArith(w guest.Word, env *Env, op fpOp, isDouble bool) Outcome {
	vd, vn, vm := w.Rd(), w.Rn(), w.Rm()

	if isDouble {
		env.Buf.EmitMovapdRegReg(int(vd), int(vn))
	} else {
		env.Buf.EmitMovapsRegReg(int(vd), int(vn))
	}
	emitFpArithOp(env, op, isDouble, int(vd), int(vm))

	nVal := env.Ctx.V[vn][0]
	mVal := env.Ctx.V[vm][0]
	env.Ctx.V[vd][0] = fpCompute(op, isDouble, nVal, mVal)
	return Outcome{Status: Hit}
}

func emitFpArithOp(env *Env, op fpOp, isDouble bool, dst, src int) {
	switch op {
	case fpAdd:
		if isDouble {
			env.Buf.EmitAddsdRegReg(dst, src)
		} else {
			env.Buf.EmitAddssRegReg(dst, src)
		}
	case fpSub:
		if isDouble {
			env.Buf.EmitSubsdRegReg(dst, src)
		} else {
			env.Buf.EmitSubssRegReg(dst, src)
		}
	case fpMul:
		if isDouble {
			env.Buf.EmitMulsdRegReg(dst, src)
		} else {
			env.Buf.EmitMulssRegReg(dst, src)
		}
	case fpDiv:
		if isDouble {
			env.Buf.EmitDivsdRegReg(dst, src)
		} else {
			env.Buf.EmitDivssRegReg(dst, src)
		}
	case fpMax:
		if isDouble {
			env.Buf.EmitMaxsdRegReg(dst, src)
		} else {
			env.Buf.EmitMaxssRegReg(dst, src)
		}
	case fpMin:
		if isDouble {
			env.Buf.EmitMinsdRegReg(dst, src)
		} else {
			env.Buf.EmitMinssRegReg(dst, src)
		}
	}
}

func fpCompute(op fpOp, isDouble bool, a, b uint64) uint64 {
	if isDouble {
		af, bf := bitsToF64(a), bitsToF64(b)
		var r float64
		switch op {
		case fpAdd:
			r = af + bf
		case fpSub:
			r = af - bf
		case fpMul:
			r = af * bf
		case fpDiv:
			r = af / bf
		case fpMax:
			r = maxF64(af, bf)
		case fpMin:
			r = minF64(af, bf)
		}
		return f64ToBits(r)
	}
	af, bf := bitsToF32(uint32(a)), bitsToF32(uint32(b))
	var r float32
	switch op {
	case fpAdd:
		r = af + bf
	case fpSub:
		r = af - bf
	case fpMul:
		r = af * bf
	case fpDiv:
		r = af / bf
	case fpMax:
		if af > bf {
			r = af
		} else {
			r = bf
		}
	case fpMin:
		if af < bf {
			r = af
		} else {
			r = bf
		}
	}
	return uint64(f32ToBits(r))
}

func maxF64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// fpAbsNeg handles FABS/FNEG via the constant-pool sign masks (spec.md
// section 4.8: "bitwise AND/XOR with sign masks... held in a constant
// pool").
func fpAbsNeg(w guest.Word, env *Env, isDouble bool, negate bool) Outcome {
	vd, vn := w.Rd(), w.Rn()

	var mask [16]byte
	if isDouble {
		if negate {
			mask = negMaskF64()
		} else {
			mask = absMaskF64()
		}
	} else {
		if negate {
			mask = negMaskF32()
		} else {
			mask = absMaskF32()
		}
	}
	idx := env.Pool.Add(mask)

	scratch := guest.ScratchExcluding(int(vd), int(vn))
	disp := env.Buf.EmitLoadMem64RipRel(scratch, 0)
	env.Pool.RecordPatch(idx, disp)

	if isDouble {
		env.Buf.EmitMovapdRegReg(int(vd), int(vn))
	} else {
		env.Buf.EmitMovapsRegReg(int(vd), int(vn))
	}
	if negate {
		env.Buf.EmitXorpsRegReg(int(vd), scratch)
	} else {
		env.Buf.EmitAndpsRegReg(int(vd), scratch)
	}

	if isDouble {
		f := bitsToF64(env.Ctx.V[vn][0])
		if negate {
			f = -f
		} else if f < 0 {
			f = -f
		}
		env.Ctx.V[vd][0] = f64ToBits(f)
	} else {
		f := bitsToF32(uint32(env.Ctx.V[vn][0]))
		if negate {
			f = -f
		} else if f < 0 {
			f = -f
		}
		env.Ctx.V[vd][0] = uint64(f32ToBits(f))
	}
	return Outcome{Status: Hit}
}

func fpSqrt(w guest.Word, env *Env, isDouble bool) Outcome {
	vd, vn := w.Rd(), w.Rn()
	if isDouble {
		env.Buf.EmitMovapdRegReg(int(vd), int(vn))
		env.Buf.EmitSqrtsdRegReg(int(vd), int(vd))
		env.Ctx.V[vd][0] = f64ToBits(sqrtF64(bitsToF64(env.Ctx.V[vn][0])))
	} else {
		env.Buf.EmitMovapsRegReg(int(vd), int(vn))
		env.Buf.EmitSqrtssRegReg(int(vd), int(vd))
		env.Ctx.V[vd][0] = uint64(f32ToBits(sqrtF32(bitsToF32(uint32(env.Ctx.V[vn][0])))))
	}
	return Outcome{Status: Hit}
}

// fpCompare handles FCMP/FCMPE (vs register) and FCMP #0 (vs a synthesised
// zero via XORPS), translating UCOMISS/UCOMISD's ZF/PF/CF into NZCV per
// spec.md section 4.8. ARM64's FP comparison sets C=1,Z=1,N=0,V=0 for
// equal; C=1 for greater; N=1 for less; C=1,V=1 for unordered.
func fpCompare(w guest.Word, env *Env, isDouble bool, vsZero bool) Outcome {
	vn := w.Rn()
	var bReg int
	if vsZero {
		bReg = guest.ScratchExcluding(int(vn))
		env.Buf.EmitXorpsRegReg(bReg, bReg)
	} else {
		bReg = int(w.Rm())
	}

	if isDouble {
		env.Buf.EmitUcomisdRegReg(int(vn), bReg)
	} else {
		env.Buf.EmitUcomissRegReg(int(vn), bReg)
	}

	aVal := env.Ctx.V[vn][0]
	var bVal uint64
	if !vsZero {
		bVal = env.Ctx.V[w.Rm()][0]
	}

	var af, bf float64
	if isDouble {
		af, bf = bitsToF64(aVal), bitsToF64(bVal)
	} else {
		af, bf = float64(bitsToF32(uint32(aVal))), float64(bitsToF32(uint32(bVal)))
	}

	var n, z, c, v bool
	switch {
	case af != af || bf != bf: // unordered (NaN)
		n, z, c, v = false, false, true, true
	case af == bf:
		n, z, c, v = false, true, true, false
	case af < bf:
		n, z, c, v = true, false, false, false
	default:
		n, z, c, v = false, false, true, false
	}
	env.Ctx.SetNZCV(n, z, c, v)
	return Outcome{Status: Hit}
}
