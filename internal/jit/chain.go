package jit

import "unsafe"

// patchInterBlockJump rewrites the rel32 field of a JMP placeholder
// (opcode E9) left by xlate.tryChainOrReturn at blockHostAddr+offset, now
// that target's host address is known. The write lands in the code cache's
// executable pages; x86_64 requires no separate instruction-cache flush for
// self-modifying code to become visible to later fetches on the same core.
func patchInterBlockJump(blockHostAddr uintptr, offset int, target uintptr) {
	fieldAddr := blockHostAddr + uintptr(offset)
	nextInsnAddr := fieldAddr + 4
	disp := int32(int64(target) - int64(nextInsnAddr))

	p := (*[4]byte)(unsafe.Pointer(fieldAddr))
	p[0] = byte(disp)
	p[1] = byte(disp >> 8)
	p[2] = byte(disp >> 16)
	p[3] = byte(disp >> 24)
}
