package xlate

import (
	"github.com/intuitionamiga/aarch64x/internal/guest"
	"github.com/intuitionamiga/aarch64x/internal/hostasm"
)

// newTestEnv returns a fresh Env over a scratch buffer and pool, the shape
// every translator test in this package builds on. Mem is left nil: these
// tests care about the shadow GuestContext and emitted host bytes, not
// guest memory contents.
func newTestEnv() *Env {
	return &Env{
		Buf:  hostasm.NewBuffer(4096),
		Ctx:  &guest.Context{},
		Pool: &hostasm.Pool{},
	}
}
