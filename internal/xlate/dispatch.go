// Package xlate holds the instruction translators: ALU (C6), compare (C7),
// branch (C8), memory (C9), MOV-family (C10), scalar-FP (C11), NEON (C12),
// and the post-emission peephole pass (C16). Each translator follows the
// shape spec.md section 9 recommends: a plain function over
// (encoding, buffer, guest state, pc) returning a miss/hit status plus
// whether the instruction terminated the block, rather than a type
// hierarchy.
//
// Style model: github.com/intuitionamiga/IntuitionEngine's cpu_x86_ops.go /
// cpu_x86_grp.go (flag-setting ALU dispatch shape) and cpu_ie64.go (opcode
// constant blocks, switch-dispatch structure).
package xlate

import (
	"github.com/intuitionamiga/aarch64x/internal/guest"
	"github.com/intuitionamiga/aarch64x/internal/hostasm"
)

// Status is a translator's hit/miss sentinel (spec.md section 4.4: "Returns
// 0 on hit; -1 on miss so the next class is tried").
type Status int

const (
	// Miss is the ClassMiss sentinel: this translator does not claim the
	// word; the dispatcher chain falls through to the next class.
	Miss Status = iota
	// Hit means this translator claimed and translated the word.
	Hit
)

// Outcome is one translator call's full result.
type Outcome struct {
	Status     Status
	Terminated bool
}

var missOutcome = Outcome{Status: Miss}

// Env bundles everything a translator needs beyond the guest word itself:
// the scratch buffer it emits into, the shadow GuestContext it both reads
// operands from and mutates in parallel (spec.md section 4.4's "the
// translator both mutates the guest register array and emits host code"),
// the per-block constant pool for FP sign masks, and the guest PC of the
// word being translated (branches need it to compute absolute targets).
type Env struct {
	Buf  *hostasm.Buffer
	Ctx  *guest.Context
	Pool *hostasm.Pool
	PC   uint64

	// Resolve looks up a guest PC in the translation cache, used by the
	// branch translator to emit a chained direct jump instead of falling
	// back to the driver (spec.md section 4.10 "Block chaining"). It may
	// be nil, in which case chaining is simply not attempted.
	Resolve func(guestPC uint64) (hostAddr uintptr, ok bool)

	// ChainPatches accumulates the rel32 offsets a branch translator left
	// for a target that is already cached, for internal/jit to patch once
	// this block's own host address is known (spec.md section
	// 4.10's "Block chaining" hook, try_chain_block).
	ChainPatches []ChainPatch

	// Mem is the guest's mapped address space, consulted during the
	// interpreted half of a memory-class translation (spec.md section 4.4's
	// equivalence requirement applied to loads/stores). May be nil in tests
	// that only care about the emitted host bytes, in which case loads read
	// as zero and stores are dropped.
	Mem GuestMemory
}

// GuestMemory is the minimal interface internal/loader.Image satisfies;
// kept local to avoid an import cycle (loader depends on nothing in this
// package, but jit wires both together and must not see xlate import
// loader or vice versa).
type GuestMemory interface {
	Read(addr uint64, size int) uint64
	Write(addr uint64, size int, value uint64)
}

// ChainPatch is one outstanding inter-block jump internal/jit must rewrite
// once both the source block and its target are installed in the code
// cache.
type ChainPatch struct {
	Offset int
	Target uint64
}

// Translator is the common shape of every instruction-class handler.
type Translator func(w guest.Word, env *Env) Outcome

// Chain is the dispatcher's ordered list of translator classes, tried in
// the priority order spec.md section 4.10 specifies: ALU (flag-setting
// forms first; no bitfield or shift-immediate forms are translated) -> compare ->
// MOV-family -> memory -> branch -> NEON -> scalar-FP -> system.
var Chain = []Translator{
	TranslateALU,
	TranslateCompare,
	TranslateMov,
	TranslateMemory,
	TranslateBranch,
	TranslateNEON,
	TranslateFPScalar,
	TranslateSystem,
}

// Dispatch tries every translator in Chain in order and returns the first
// hit. If none claims the word, the caller (internal/jit) emits a NOP and
// continues (spec.md section 7, UnknownEncoding).
func Dispatch(w guest.Word, env *Env) Outcome {
	for _, t := range Chain {
		if o := t(w, env); o.Status == Hit {
			return o
		}
	}
	return missOutcome
}
