package guest

// HostReg maps a guest general-purpose register index (0..31) onto a host
// x86_64 general-purpose register number (0..15). Guest regs 0-15 map 1:1;
// guest regs 16-31 alias host 0-15 again (spec.md section 4.2). Because of
// the &0x0F, map(g1) == map(g2) for g1 != g2 exactly when one is g in
// {0..15} and the other is g+16; no two registers of the same half collide.
func HostReg(g uint8) int { return int(g & 0x0F) }

// HostVReg maps a guest vector register index (0..31, only 0..31 of the 32
// V slots are addressable by NEON/FP encodings) onto a host XMM register
// number (0..15) the same way: v[i] -> xmm[i & 0xF].
func HostVReg(v uint8) int { return int(v & 0x0F) }

// The three host GPRs a translated block can never use to stage a guest
// value: RSP and RBP, because every block both begins and ends with a real
// x86_64 CALL/RET pair whose validity depends on RSP never being clobbered
// (and RBP is kept reserved alongside it rather than relying on the
// trampoline's save/restore to make it safe mid-block), and R13, which the
// emitted code uses as the GuestContext base of every frame-relative
// load/store a translator emits (see internal/xlate's CtxBaseReg; no block
// prologue loads it). Guest registers whose host alias lands on one of the three
// (4, 5, 13, 20, 21, 29) are therefore never pinned in that physical
// register; internal/xlate routes their operands through a GuestContext
// spill slot via a displaced scratch register instead. IsFrameBacked is the
// query translators use to tell the two cases apart for rd/rn/rm/ra.
const (
	hostRSP     = 4
	hostRBP     = 5
	hostCtxBase = 13
)

// IsFrameBacked reports whether guest register g's host alias collides with
// one of the three reserved host registers above and must therefore be
// addressed through the GuestContext's spill slot rather than held live in
// a physical register across the block.
func IsFrameBacked(g uint8) bool {
	h := HostReg(g)
	return h == hostRSP || h == hostRBP || h == hostCtxBase
}

// ScratchExcluding returns a host GPR number in 0..15, other than any of the
// registers named in used, suitable as a scratch register for translators
// that need one beyond their own operands (e.g. BIC's inverted operand,
// MLA/MLS's accumulate-without-clobber). It prefers R15 (per the teacher's
// convention of keeping one high register free, mirrored from cpu_x86_ops.go
// style ModRM helpers that always leave a spare temp) and falls back linearly.
func ScratchExcluding(used ...int) int {
	isUsed := func(r int) bool {
		for _, u := range used {
			if u == r {
				return true
			}
		}
		return false
	}
	if !isUsed(15) {
		return 15
	}
	for r := 14; r >= 0; r-- {
		if !isUsed(r) {
			return r
		}
	}
	return 15
}
