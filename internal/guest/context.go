// Package guest holds the architectural state translated ARM64 programs
// execute against (GuestContext, spec.md section 3), the pure bit-field
// extractors over a 32-bit guest word (C3), the guest-to-host register map
// (C4), and the NZCV flag model (C5).
//
// Structural model: github.com/intuitionamiga/IntuitionEngine's cpu_ie64.go
// CPU64 struct (register file, Reset, size masking, atomic run bookkeeping).
package guest

import "sync/atomic"

// NZCV bit positions within Pstate, matching the ARM64 PSTATE layout.
const (
	FlagN uint64 = 1 << 31
	FlagZ uint64 = 1 << 30
	FlagC uint64 = 1 << 29
	FlagV uint64 = 1 << 28

	NZCVMask = FlagN | FlagZ | FlagC | FlagV
)

// Context is the persistent per-thread architectural state carried across
// block invocations (spec.md "GuestContext").
type Context struct {
	// X holds the 32 general-purpose 64-bit slots. X[31] is SP or the
	// zero register depending on the instruction's own addressing mode;
	// ALU translators must never write X[31] directly (see RegMap).
	X [32]uint64

	PC uint64

	// V holds the 32 vector slots, each 128 bits split into two 64-bit
	// halves. The halves may be read/written independently; callers must
	// not assume either half is stale while the other is live.
	V [32][2]uint64

	Fpcr uint32
	Fpsr uint32

	Pstate uint64

	// Per-thread syscall bookkeeping (spec.md "External Interfaces").
	LastSyscallNr     int64
	LastSyscallResult int64
	ThreadID          uint64

	// SvcPending and SvcImm record an SVC trap the block driver must service
	// (internal/jit) before resuming translation at the next guest PC: the
	// translator itself never performs the syscall.
	SvcPending bool
	SvcImm     uint16

	// running mirrors the teacher's atomic.Bool run-flag pattern
	// (cpu_ie64.go): the embedding daemon may request a stop from another
	// goroutine without the translator taking a lock on every block.
	running atomic.Bool
}

// New returns a Context with the program counter set to entryPC and the
// stack pointer (X[31]) set to initialSP, as supplied by the loader
// collaborator (spec.md section 6).
func New(entryPC, initialSP uint64) *Context {
	ctx := &Context{PC: entryPC}
	ctx.X[31] = initialSP
	ctx.running.Store(true)
	return ctx
}

// LR returns the link register, the architectural alias of X[30].
func (c *Context) LR() uint64 { return c.X[30] }

// SetLR writes the link register.
func (c *Context) SetLR(v uint64) { c.X[30] = v }

// SP returns the stack pointer, the architectural alias of X[31].
func (c *Context) SP() uint64 { return c.X[31] }

// SetSP writes the stack pointer.
func (c *Context) SetSP(v uint64) { c.X[31] = v }

// Running reports whether the guest thread should keep executing.
func (c *Context) Running() bool { return c.running.Load() }

// Stop requests the guest thread halt at its next block boundary.
func (c *Context) Stop() { c.running.Store(false) }

// Reset restores a Context to its post-load state, mirroring the teacher's
// CPU64.Reset convention: zero the register file and flags, keep PC/SP as
// supplied by the caller.
func (c *Context) Reset(entryPC, initialSP uint64) {
	for i := range c.X {
		c.X[i] = 0
	}
	for i := range c.V {
		c.V[i] = [2]uint64{}
	}
	c.PC = entryPC
	c.X[31] = initialSP
	c.Pstate = 0
	c.Fpcr, c.Fpsr = 0, 0
	c.running.Store(true)
}

// NZCV reports the four condition flags as booleans.
func (c *Context) NZCV() (n, z, cf, v bool) {
	return c.Pstate&FlagN != 0, c.Pstate&FlagZ != 0, c.Pstate&FlagC != 0, c.Pstate&FlagV != 0
}

// SetNZCV writes all four condition flags in one read-modify-write under
// the NZCV mask (spec.md section 4.3, step 1).
func (c *Context) SetNZCV(n, z, cf, v bool) {
	c.Pstate &^= NZCVMask
	if n {
		c.Pstate |= FlagN
	}
	if z {
		c.Pstate |= FlagZ
	}
	if cf {
		c.Pstate |= FlagC
	}
	if v {
		c.Pstate |= FlagV
	}
}
