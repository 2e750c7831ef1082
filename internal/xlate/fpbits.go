package xlate

import (
	"math"

	"github.com/intuitionamiga/aarch64x/internal/hostasm"
)

// These wrap math's IEEE-754 bit conversions so the fp_scalar translator
// can compute the interpreted half of an FP op against the same uint64
// lanes GuestContext.V stores, without spreading math.Float*bits calls
// across the file.
func bitsToF64(b uint64) float64 { return math.Float64frombits(b) }
func f64ToBits(f float64) uint64 { return math.Float64bits(f) }
func bitsToF32(b uint32) float32 { return math.Float32frombits(b) }
func f32ToBits(f float32) uint32 { return math.Float32bits(f) }
func sqrtF64(f float64) float64  { return math.Sqrt(f) }
func sqrtF32(f float32) float32  { return float32(math.Sqrt(float64(f))) }

func absMaskF32() [16]byte { return hostasm.AbsMaskF32 }
func negMaskF32() [16]byte { return hostasm.NegMaskF32 }
func absMaskF64() [16]byte { return hostasm.AbsMaskF64 }
func negMaskF64() [16]byte { return hostasm.NegMaskF64 }
