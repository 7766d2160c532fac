package ot

import (
	"strings"

	"golang.org/x/xerrors"
)

// Apply runs o against str, which must have length o.BaseLength(). It walks
// the action sequence left to right, copying retained runs, skipping deleted
// runs, and splicing in inserted text.
func (o *Operation) Apply(str string) (string, error) {
	runes := []rune(str)
	if len(runes) != o.baseLength {
		return "", xerrors.Errorf("ot: apply len(str)=%d baseLength=%d: %w", len(runes), o.baseLength, ErrBaseLengthMismatch)
	}

	var out strings.Builder
	i := 0
	for _, a := range o.ops {
		switch a.Kind {
		case Retain:
			if i+a.Len > len(runes) {
				return "", xerrors.Errorf("ot: retain(%d) at %d overflows input of length %d: %w", a.Len, i, len(runes), ErrRetainOverflow)
			}
			out.WriteString(string(runes[i : i+a.Len]))
			i += a.Len
		case Insert:
			out.WriteString(a.Str)
		case Delete:
			if i+a.Len > len(runes) {
				return "", xerrors.Errorf("ot: delete(%d) at %d overflows input of length %d: %w", a.Len, i, len(runes), ErrRetainOverflow)
			}
			i += a.Len
		}
	}
	if i != len(runes) {
		return "", xerrors.Errorf("ot: apply consumed %d of %d input runes: %w", i, len(runes), ErrIncompleteApply)
	}
	return out.String(), nil
}
