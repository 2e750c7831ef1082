// Package jit is the block driver (C13): the entry point an embedding host
// calls with a guest PC, which returns an executable host address for that
// guest block, translating and installing it on a first-touch miss.
//
// Structural model: github.com/intuitionamiga/IntuitionEngine's
// cpu_ie64.go Execute() fetch-decode-dispatch loop, generalized from a
// direct interpreter loop into a "translate once, cache, return" driver.
package jit

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/intuitionamiga/aarch64x/internal/codecache"
	"github.com/intuitionamiga/aarch64x/internal/guest"
	"github.com/intuitionamiga/aarch64x/internal/hostasm"
	"github.com/intuitionamiga/aarch64x/internal/loader"
	"github.com/intuitionamiga/aarch64x/internal/script"
	"github.com/intuitionamiga/aarch64x/internal/xerr"
	"github.com/intuitionamiga/aarch64x/internal/xlate"
	"github.com/intuitionamiga/aarch64x/internal/xlog"
)

// ScratchBufferSize is the fixed per-block scratch buffer capacity spec.md
// section 4.10 specifies.
const ScratchBufferSize = 64 << 10

// MaxWordsPerBlock bounds how many guest words one translation scans before
// the driver forces a block boundary (spec.md section 4.10 step 3: "up to
// 64 words").
const MaxWordsPerBlock = 64

var log = xlog.New("jit")

// Driver owns the translation cache, code cache, and per-PC singleflight
// group a running guest thread calls through.
type Driver struct {
	TxCache   *codecache.TranslationCache
	CodeCache *codecache.Cache
	Mem       xlate.GuestMemory
	Ctx       *guest.Context

	// Syscalls services an SVC trap a translated block reports via
	// Ctx.SvcPending. May be nil, in which case ServiceSyscall is a no-op and
	// the caller is responsible for clearing the trap itself.
	Syscalls *loader.SyscallBridge

	// Hooks, if set, receives instrumentation callbacks around translation
	// and cache eviction (-script). May be nil.
	Hooks *script.Hooks

	group singleflight.Group

	mu      sync.Mutex
	pending []pendingChain
}

// pendingChain is a branch chain patch left in an installed block, waiting
// on its target PC to also be installed.
type pendingChain struct {
	blockHostAddr uintptr
	patch         xlate.ChainPatch
}

// New constructs a Driver over the given translation/code caches.
func New(tx *codecache.TranslationCache, code *codecache.Cache, mem xlate.GuestMemory, ctx *guest.Context) *Driver {
	return &Driver{TxCache: tx, CodeCache: code, Mem: mem, Ctx: ctx}
}

// Resolve looks up a guest PC in the translation cache, the shape
// xlate.Env.Resolve expects.
func (d *Driver) Resolve(guestPC uint64) (uintptr, bool) {
	return d.TxCache.Lookup(guestPC)
}

// Translate returns a host address for guestPC, translating and installing
// the block first if this is a cache miss (spec.md section 4.10's 5-step
// algorithm). Concurrent callers requesting the same guestPC collapse onto
// one translation via singleflight.
func (d *Driver) Translate(guestPC uint64) (uintptr, error) {
	if hostAddr, ok := d.TxCache.Lookup(guestPC); ok {
		return hostAddr, nil
	}
	if guestPC == 0 {
		return 0, xerr.ErrNullGuestPointer
	}

	v, err, _ := d.group.Do(guestPc2key(guestPC), func() (any, error) {
		if hostAddr, ok := d.TxCache.Lookup(guestPC); ok {
			return hostAddr, nil
		}
		return d.translateBlock(guestPC)
	})
	if err != nil {
		return 0, err
	}
	return v.(uintptr), nil
}

func guestPc2key(pc uint64) string {
	var buf [16]byte
	const hex = "0123456789abcdef"
	for i := 0; i < 16; i++ {
		buf[15-i] = hex[(pc>>(4*uint(i)))&0xF]
	}
	return string(buf[:])
}

// translateBlock implements the actual scan-translate-install sequence.
func (d *Driver) translateBlock(entryPC uint64) (uintptr, error) {
	buf := hostasm.NewBuffer(ScratchBufferSize)
	pool := &hostasm.Pool{}
	env := &xlate.Env{
		Buf:     buf,
		Ctx:     d.Ctx,
		Pool:    pool,
		Resolve: d.Resolve,
		Mem:     d.Mem,
	}

	pc := entryPC
	terminated := false
	for n := 0; n < MaxWordsPerBlock && !terminated; n++ {
		raw := d.Mem.Read(pc, 4)
		word := guest.Word(uint32(raw))
		env.PC = pc

		outcome := xlate.Dispatch(word, env)
		if outcome.Status == xlate.Miss {
			log.Tracef("unknown encoding %#08x at pc=%#x, emitting nop", uint32(word), pc)
			buf.EmitNop()
		}
		terminated = outcome.Terminated
		pc += 4
	}
	if !terminated {
		buf.EmitRet()
	}
	// The peephole pass must run before the constant pool is appended: its
	// decoder only understands instruction encodings, and pool.Layout's
	// raw 16-byte constants are not guaranteed to parse safely as one.
	xlate.RunPeephole(buf)
	if !pool.Empty() {
		pool.Layout(buf)
	}
	if buf.Overflowed {
		return 0, xerr.ErrCodeBufferOverflow
	}

	size := buf.Len()
	dst, hostAddr, err := d.CodeCache.Alloc(size)
	if err != nil {
		// One flush-and-retry: reclaim the arena together with the
		// translation cache, then try the allocation once more.
		log.Printf("code cache exhausted allocating %d bytes, flushing and retrying", size)
		d.Reset()
		dst, hostAddr, err = d.CodeCache.Alloc(size)
		if err != nil {
			return 0, err
		}
	}
	copy(dst, buf.Bytes())

	d.TxCache.Insert(entryPC, hostAddr, size)
	d.recordChains(hostAddr, env.ChainPatches)
	d.resolveChains()
	if d.Hooks != nil {
		d.Hooks.OnBlockTranslated(entryPC, hostAddr, size)
	}

	return hostAddr, nil
}

// ServiceSyscall hands a pending SVC trap on the driver's Ctx to Syscalls,
// if both are set. Callers running translated code must check
// Ctx.SvcPending after a block returns and call this before resuming
// translation at the next guest PC.
func (d *Driver) ServiceSyscall() {
	if d.Syscalls == nil {
		return
	}
	d.Syscalls.Service(d.Ctx)
}

// recordChains stashes a freshly installed block's outstanding chain
// patches for resolveChains to fix up once their targets are also
// installed (spec.md section 4.10 "Block chaining").
func (d *Driver) recordChains(hostAddr uintptr, patches []xlate.ChainPatch) {
	if len(patches) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range patches {
		d.pending = append(d.pending, pendingChain{blockHostAddr: hostAddr, patch: p})
	}
}

// resolveChains patches every pending chain whose target has since become
// resolvable, rewriting the placeholder jump left by
// xlate.tryChainOrReturn into a true inter-block rel32.
func (d *Driver) resolveChains() {
	d.mu.Lock()
	defer d.mu.Unlock()

	remaining := d.pending[:0]
	for _, pc := range d.pending {
		target, ok := d.TxCache.Lookup(pc.patch.Target)
		if !ok {
			remaining = append(remaining, pc)
			continue
		}
		patchInterBlockJump(pc.blockHostAddr, pc.patch.Offset, target)
	}
	d.pending = remaining
}

// Invalidate drops guestPC's cached translation, forcing a retranslation on
// its next Translate call.
func (d *Driver) Invalidate(guestPC uint64) {
	d.TxCache.Invalidate(guestPC)
}

// Reset discards the entire code cache and translation cache together, per
// spec.md section 4.11's "single logical step" requirement.
func (d *Driver) Reset() {
	if d.Hooks != nil {
		for _, pc := range d.TxCache.LiveGuestAddrs() {
			d.Hooks.OnCacheEvict(pc)
		}
	}
	d.CodeCache.Reset()
	d.TxCache.Flush()
	d.mu.Lock()
	d.pending = nil
	d.mu.Unlock()
}
