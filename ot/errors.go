package ot

import "errors"

// Error kinds surfaced by the operation algebra. Each is a sentinel so
// callers can compare with errors.Is even though the concrete error returned
// is usually wrapped with positional context via xerrors.Errorf.
var (
	ErrBuilderType           = errors.New("ot: builder argument of wrong kind")
	ErrBaseLengthMismatch    = errors.New("ot: base length mismatch")
	ErrRetainOverflow        = errors.New("ot: retain overflows input")
	ErrIncompleteApply       = errors.New("ot: apply did not consume entire input")
	ErrComposeLengthMismatch = errors.New("ot: compose target/base length mismatch")
	ErrComposeStructural     = errors.New("ot: compose operands exhausted mid-sequence")
	ErrTransformLengthMismatch = errors.New("ot: transform base length mismatch")
	ErrTransformIncompatible = errors.New("ot: transform operands aren't compatible")
	ErrDeserializationMismatch = errors.New("ot: deserialized lengths don't match recorded lengths")
	ErrUnknownAction         = errors.New("ot: unknown action tag")
)
