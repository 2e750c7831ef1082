package main

import (
	"flag"
	"fmt"
	"os"
)

// Config holds the parsed command-line configuration, grounded on
// cmd/ie32to64/main.go's flag.String/flag.Bool plus custom flag.Usage
// convention.
type Config struct {
	Image    string
	Base     uint64
	Entry    uint64
	SP       uint64
	RegionSZ int

	Trace    bool
	Script   string
	SelfTest bool
	Workers  int

	TxBits   int
	CodeSize int
}

func parseFlags(args []string) (Config, error) {
	fs := flag.NewFlagSet("aarch64x", flag.ContinueOnError)

	var cfg Config
	fs.StringVar(&cfg.Image, "image", "", "path to a flat ARM64 guest image")
	fs.Uint64Var(&cfg.Base, "base", 0x10000, "guest base address the image is loaded at")
	fs.Uint64Var(&cfg.Entry, "entry", 0x10000, "guest entry program counter")
	fs.Uint64Var(&cfg.SP, "sp", 0x100000, "initial guest stack pointer")
	fs.IntVar(&cfg.RegionSZ, "region", 1<<20, "guest address space size in bytes, image included")

	fs.BoolVar(&cfg.Trace, "trace", false, "enter the interactive translation REPL (only when stdin is a terminal)")
	fs.StringVar(&cfg.Script, "script", "", "optional Lua instrumentation script")
	fs.BoolVar(&cfg.SelfTest, "selftest", false, "run the built-in translation self-test instead of loading -image")
	fs.IntVar(&cfg.Workers, "workers", 4, "concurrent translation workers for -selftest")

	fs.IntVar(&cfg.TxBits, "tx-bits", 12, "translation cache size, log2 of entry count")
	fs.IntVar(&cfg.CodeSize, "code-size", 16<<20, "code cache arena size in bytes")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "aarch64x: a userspace ARM64-to-x86_64 dynamic binary translator\n\n")
		fmt.Fprintf(os.Stderr, "usage: aarch64x -image PATH [flags]\n")
		fmt.Fprintf(os.Stderr, "       aarch64x -selftest [flags]\n\n")
		fmt.Fprintf(os.Stderr, "examples:\n")
		fmt.Fprintf(os.Stderr, "  aarch64x -image prog.bin -entry 0x10000 -trace\n")
		fmt.Fprintf(os.Stderr, "  aarch64x -selftest -workers 8\n\n")
		fmt.Fprintf(os.Stderr, "flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if !cfg.SelfTest && cfg.Image == "" {
		fs.Usage()
		return Config{}, fmt.Errorf("error: -image is required unless -selftest is set")
	}
	return cfg, nil
}
