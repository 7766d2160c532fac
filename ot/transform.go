package ot

import "golang.org/x/xerrors"

// Transform resolves two concurrent Operations a and b, both applicable to a
// string of the same baseLength, into a pair (a', b') such that
// Apply(b', Apply(a, S)) == Apply(a', Apply(b, S)) for every S of that
// length. When a and b both insert at the same position, a's insertion is
// ordered first in both resulting documents; callers pick which operand is
// "a" (conventionally the local client's own operation) to get a consistent
// tie-break across all participants.
func Transform(a, b *Operation) (aPrime, bPrime *Operation, err error) {
	if a.baseLength != b.baseLength {
		return nil, nil, xerrors.Errorf("ot: transform a.baseLength=%d b.baseLength=%d: %w", a.baseLength, b.baseLength, ErrTransformLengthMismatch)
	}

	aPrime, bPrime = New(), New()
	ia, ib := 0, 0
	aOps, bOps := a.ops, b.ops
	var aCur, bCur Action
	aHas, bHas := false, false

	next := func() {
		if !aHas && ia < len(aOps) {
			aCur, aHas = aOps[ia], true
			ia++
		}
		if !bHas && ib < len(bOps) {
			bCur, bHas = bOps[ib], true
			ib++
		}
	}

	for {
		next()
		if !aHas && !bHas {
			break
		}

		if aHas && aCur.Kind == Insert {
			aPrime.Insert(aCur.Str)
			bPrime.Retain(aCur.Len)
			aHas = false
			continue
		}
		if bHas && bCur.Kind == Insert {
			aPrime.Retain(bCur.Len)
			bPrime.Insert(bCur.Str)
			bHas = false
			continue
		}

		if !aHas || !bHas {
			return nil, nil, xerrors.Errorf("ot: transform ran out of ops on one side: %w", ErrTransformIncompatible)
		}

		switch aCur.Kind {
		case Retain:
			switch bCur.Kind {
			case Retain:
				min := minInt(aCur.Len, bCur.Len)
				aPrime.Retain(min)
				bPrime.Retain(min)
				aCur, bCur, aHas, bHas = shrink(aCur, bCur, min)
			case Delete:
				min := minInt(aCur.Len, bCur.Len)
				bPrime.Delete(min)
				aCur, bCur, aHas, bHas = shrink(aCur, bCur, min)
			default:
				return nil, nil, xerrors.Errorf("ot: unexpected action kind %v on b: %w", bCur.Kind, ErrTransformIncompatible)
			}
		case Delete:
			switch bCur.Kind {
			case Retain:
				min := minInt(aCur.Len, bCur.Len)
				aPrime.Delete(min)
				aCur, bCur, aHas, bHas = shrink(aCur, bCur, min)
			case Delete:
				min := minInt(aCur.Len, bCur.Len)
				// Both sides delete the same runs; nothing to emit.
				aCur, bCur, aHas, bHas = shrink(aCur, bCur, min)
			default:
				return nil, nil, xerrors.Errorf("ot: unexpected action kind %v on b: %w", bCur.Kind, ErrTransformIncompatible)
			}
		default:
			return nil, nil, xerrors.Errorf("ot: unexpected action kind %v on a: %w", aCur.Kind, ErrTransformIncompatible)
		}
	}

	return aPrime, bPrime, nil
}

// shrink consumes min from both retain/delete actions, returning whichever
// side still has a remainder as the new "current" action for that side, and
// marking the exhausted side(s) as no longer current.
func shrink(a, b Action, min int) (aOut, bOut Action, aHas, bHas bool) {
	if a.Len > min {
		aOut, aHas = Action{Kind: a.Kind, Len: a.Len - min}, true
	}
	if b.Len > min {
		bOut, bHas = Action{Kind: b.Kind, Len: b.Len - min}, true
	}
	return
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
