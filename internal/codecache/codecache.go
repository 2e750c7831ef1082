package codecache

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/intuitionamiga/aarch64x/internal/xerr"
	"github.com/intuitionamiga/aarch64x/internal/xlog"
)

// DefaultSize is the code_cache_size default of spec.md section 6: 16 MiB.
const DefaultSize = 16 << 20

var log = xlog.New("codecache")

// Cache is the single bump-allocated executable arena backing every
// installed translation block (spec.md "CodeCache" / C15). Allocation is
// append-only within a generation; Reset() discards the whole arena and
// the caller MUST also flush the translation cache, since every previously
// issued host pointer becomes dangling (spec.md section 4.11: "these two
// operations are a single logical step").
type Cache struct {
	mu     sync.Mutex
	region []byte // mmap'd PROT_READ|PROT_WRITE|PROT_EXEC pages
	offset int
}

// New allocates an executable arena of at least size bytes via
// golang.org/x/sys/unix, using W^X-toggle-free RWX pages for simplicity
// (spec.md section 5 permits either discipline; the platform-specific
// coherence barrier it also calls for is a no-op on x86_64).
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	region, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}
	return &Cache{region: region}, nil
}

// Alloc bumps the arena pointer and returns a slice of n bytes, or
// xerr.ErrCodeCacheExhausted if the arena is full.
func (c *Cache) Alloc(n int) ([]byte, uintptr, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.offset+n > len(c.region) {
		return nil, 0, xerr.ErrCodeCacheExhausted
	}
	start := c.offset
	c.offset += n
	slice := c.region[start : start+n]
	hostAddr := uintptr(unsafe.Pointer(&c.region[start]))
	return slice, hostAddr, nil
}

// Reset discards every previously installed block by rewinding the bump
// pointer to zero. Callers MUST flush the translation cache in the same
// step (see internal/jit.Driver.Reset).
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = 0
	log.Printf("code cache reset, %d bytes reclaimed", len(c.region))
}

// Remaining reports the number of bytes left before the arena is
// exhausted.
func (c *Cache) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.region) - c.offset
}

// Close releases the backing mmap region.
func (c *Cache) Close() error {
	if c.region == nil {
		return nil
	}
	err := unix.Munmap(c.region)
	c.region = nil
	return err
}
