// Command aarch64x is the pipeline's CLI entry point: it loads a flat ARM64
// guest image (or runs a built-in self-test), wires the translation and code
// caches, an optional Lua instrumentation script, and a trace REPL together,
// then drives translation through internal/jit.Driver.
//
// Style model: github.com/intuitionamiga/IntuitionEngine's cmd/ie32to64/main.go
// (flag parsing, usage/error conventions) and terminal_host.go (x/term
// interactive-mode detection).
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/intuitionamiga/aarch64x/internal/codecache"
	"github.com/intuitionamiga/aarch64x/internal/guest"
	"github.com/intuitionamiga/aarch64x/internal/jit"
	"github.com/intuitionamiga/aarch64x/internal/loader"
	"github.com/intuitionamiga/aarch64x/internal/script"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg Config) error {
	var img *loader.Image
	var err error
	if cfg.SelfTest {
		img = loader.NewBlank(cfg.Base, cfg.RegionSZ)
	} else {
		img, err = loader.LoadFlat(cfg.Image, cfg.Base, cfg.RegionSZ)
		if err != nil {
			return err
		}
	}

	ctx := guest.New(cfg.Entry, cfg.SP)
	tx := codecache.NewTranslationCache(cfg.TxBits)
	code, err := codecache.New(cfg.CodeSize)
	if err != nil {
		return fmt.Errorf("allocating code cache: %w", err)
	}
	defer code.Close()

	d := jit.New(tx, code, img, ctx)
	d.Syscalls = &loader.SyscallBridge{}

	if cfg.Script != "" {
		hooks, err := script.Load(cfg.Script)
		if err != nil {
			return err
		}
		defer hooks.Close()
		d.Hooks = hooks
	}

	if cfg.SelfTest {
		return selfTest(d, img, cfg)
	}

	if cfg.Trace && term.IsTerminal(int(os.Stdin.Fd())) {
		return traceREPL(d)
	}

	hostAddr, err := d.Translate(cfg.Entry)
	if err != nil {
		return fmt.Errorf("translating entry point %#x: %w", cfg.Entry, err)
	}
	fmt.Printf("entry %#x -> host %#x\n", cfg.Entry, hostAddr)
	return nil
}

// selfTest exercises the driver concurrently: each worker translates its
// own distinct slice of synthetic NOP block PCs, so no two workers request
// the same PC; what runs concurrently is translation into the shared
// translation and code caches. A batch
// self-test harness built from errgroup, following the pattern
// spec.md section 8's scenario set establishes for the pipeline's
// end-to-end checks, just run at volume instead of one-shot.
func selfTest(d *jit.Driver, img *loader.Image, cfg Config) error {
	const nopWord = 0xD503201F // NOP, per internal/xlate/system.go's formNOP
	const blocksPerWorker = 16

	base := img.Base() + 0x1000
	for i := 0; i < cfg.Workers*blocksPerWorker; i++ {
		img.PutWord(base+uint64(i)*4, nopWord)
	}

	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < cfg.Workers; w++ {
		w := w
		g.Go(func() error {
			for i := 0; i < blocksPerWorker; i++ {
				pc := base + uint64(w*blocksPerWorker+i)*4
				if _, err := d.Translate(pc); err != nil {
					return fmt.Errorf("worker %d: translate %#x: %w", w, pc, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Printf("selftest: %d blocks translated across %d workers, cache size %d\n",
		cfg.Workers*blocksPerWorker, cfg.Workers, d.TxCache.Size())
	return nil
}

// traceREPL is an interactive loop for stepping translation one guest PC at
// a time, entered only when stdin is a real terminal (golang.org/x/term).
func traceREPL(d *jit.Driver) error {
	fmt.Println("aarch64x trace REPL: enter a guest PC (hex, e.g. 0x10000), or 'q' to quit")
	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("pc> ")
		if !sc.Scan() {
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "q" || line == "quit" {
			return nil
		}
		pc, err := strconv.ParseUint(strings.TrimPrefix(line, "0x"), 16, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		hostAddr, err := d.Translate(pc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Printf("pc=%#x -> host=%#x\n", pc, hostAddr)
		d.ServiceSyscall()
	}
}
