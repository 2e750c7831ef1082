// Package loader is the guest's external collaborator (spec.md section 6):
// a minimal flat-image loader that maps a raw byte image into a guest
// address space at a fixed base, and a syscall bridge stub the block driver
// calls into when a translated block reports a pending SVC.
//
// Structural model: github.com/intuitionamiga/IntuitionEngine's machine_bus.go
// address-decode style (a base-relative byte slice addressed by a flat
// uint64), generalized from its multi-device MMIO map down to the single
// contiguous region a userspace ARM64 guest needs.
package loader

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/intuitionamiga/aarch64x/internal/guest"
	"github.com/intuitionamiga/aarch64x/internal/xlog"
)

var log = xlog.New("loader")

// Image is a flat, contiguous guest address space backed by one Go byte
// slice. It satisfies xlate.GuestMemory without importing internal/xlate,
// keeping the dependency direction loader -> (nothing translator-shaped).
type Image struct {
	base uint64
	mem  []byte
}

// LoadFlat reads path into a fresh Image of size bytes (at least len(file)),
// mapped starting at guest address base. size lets the caller reserve extra
// room above the image itself for a stack or heap; a size smaller than the
// file's length is raised to it.
func LoadFlat(path string, base uint64, size int) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	if size < len(data) {
		size = len(data)
	}
	mem := make([]byte, size)
	copy(mem, data)
	log.Printf("loaded %s: %d bytes at base %#x (region %d bytes)", path, len(data), base, size)
	return &Image{base: base, mem: mem}, nil
}

// NewBlank returns an empty Image of size bytes at base, for callers (tests,
// the self-test harness) that want to place synthetic guest words directly
// rather than loading a file.
func NewBlank(base uint64, size int) *Image {
	return &Image{base: base, mem: make([]byte, size)}
}

// Base returns the guest address the image starts at.
func (img *Image) Base() uint64 { return img.base }

// Len returns the image's mapped region size in bytes.
func (img *Image) Len() int { return len(img.mem) }

// offset translates a guest address into a byte offset, reporting whether
// the full access of size bytes at addr falls within the mapped region.
func (img *Image) offset(addr uint64, size int) (int, bool) {
	if addr < img.base {
		return 0, false
	}
	off := addr - img.base
	if off > uint64(len(img.mem)) || uint64(len(img.mem))-off < uint64(size) {
		return 0, false
	}
	return int(off), true
}

// Read implements xlate.GuestMemory. An out-of-range access reads as zero,
// matching spec.md section 6's "unmapped guest memory behaves as zeroed
// scratch, not a fault" stance for this userspace translator.
func (img *Image) Read(addr uint64, size int) uint64 {
	off, ok := img.offset(addr, size)
	if !ok {
		log.Tracef("read outside mapped region: addr=%#x size=%d", addr, size)
		return 0
	}
	switch size {
	case 1:
		return uint64(img.mem[off])
	case 2:
		return uint64(binary.LittleEndian.Uint16(img.mem[off:]))
	case 4:
		return uint64(binary.LittleEndian.Uint32(img.mem[off:]))
	case 8:
		return binary.LittleEndian.Uint64(img.mem[off:])
	default:
		log.Printf("read: unsupported size %d at addr=%#x", size, addr)
		return 0
	}
}

// Write implements xlate.GuestMemory. An out-of-range write is dropped
// silently, the write-side mirror of Read's zeroed-scratch stance.
func (img *Image) Write(addr uint64, size int, value uint64) {
	off, ok := img.offset(addr, size)
	if !ok {
		log.Tracef("write outside mapped region: addr=%#x size=%d", addr, size)
		return
	}
	switch size {
	case 1:
		img.mem[off] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(img.mem[off:], uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(img.mem[off:], uint32(value))
	case 8:
		binary.LittleEndian.PutUint64(img.mem[off:], value)
	default:
		log.Printf("write: unsupported size %d at addr=%#x", size, addr)
	}
}

// PutWord stores a raw 32-bit guest instruction word at addr, a convenience
// for building synthetic blocks (the self-test harness, tests) without
// going through a file.
func (img *Image) PutWord(addr uint64, w uint32) {
	img.Write(addr, 4, uint64(w))
}

// SyscallBridge services a pending SVC trap recorded on ctx by a translated
// block (guest.Context.SvcPending). This is a stub: spec.md's Non-goals
// exclude real host syscall execution, so the bridge only records the
// requested syscall number and a deterministic result, clearing the trap so
// the driver can resume translation at the next guest PC.
type SyscallBridge struct {
	// Handle, if set, is consulted for the syscall result instead of the
	// default stub (0). Tests and cmd/aarch64x's -trace mode can install a
	// handler that logs or fakes specific syscall numbers.
	Handle func(ctx *guest.Context, nr uint16) int64
}

// Service clears ctx's pending SVC and records its outcome. It is a no-op if
// no SVC is pending.
func (b *SyscallBridge) Service(ctx *guest.Context) {
	if !ctx.SvcPending {
		return
	}
	nr := ctx.SvcImm
	var result int64
	if b.Handle != nil {
		result = b.Handle(ctx, nr)
	}
	ctx.LastSyscallNr = int64(nr)
	ctx.LastSyscallResult = result
	ctx.SvcPending = false
}
