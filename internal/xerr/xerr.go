// Package xerr defines the small, closed error taxonomy of the translation
// pipeline (see spec.md "Error Handling Design").
package xerr

import "errors"

// Sentinel errors for the conditions the pipeline propagates to its caller.
// UnknownEncoding and DivisionByZero are handled in-band by the translators
// and never surface here.
var (
	// ErrCodeBufferOverflow is returned when emission into a scratch
	// CodeBuffer ran past its capacity; the block that triggered it must be
	// discarded.
	ErrCodeBufferOverflow = errors.New("aarch64x: host code buffer overflowed")

	// ErrCodeCacheExhausted is returned when the code cache arena could not
	// satisfy an allocation even after one flush-and-retry.
	ErrCodeCacheExhausted = errors.New("aarch64x: code cache exhausted")

	// ErrNullGuestPointer is returned when the block driver is asked to
	// translate guest PC 0. Only PC 0 is checked; the driver does not test
	// other PCs against readable guest memory.
	ErrNullGuestPointer = errors.New("aarch64x: null or unreadable guest pc")
)
