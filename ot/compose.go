package ot

import "golang.org/x/xerrors"

// Compose combines a followed by b into a single Operation c such that for
// every S of length a.BaseLength(), Apply(c, S) == Apply(b, Apply(a, S)).
// a.TargetLength() must equal b.BaseLength().
func Compose(a, b *Operation) (*Operation, error) {
	if a.targetLength != b.baseLength {
		return nil, xerrors.Errorf("ot: compose a.targetLength=%d b.baseLength=%d: %w", a.targetLength, b.baseLength, ErrComposeLengthMismatch)
	}

	c := New()
	ia, ib := 0, 0
	aOps, bOps := a.ops, b.ops
	// Mutable working copies of the current action on each side, since a
	// split leaves a remainder that must be reconsidered against the next
	// action on the other side.
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

		if aHas && aCur.Kind == Delete {
			c.Delete(aCur.Len)
			aHas = false
			continue
		}
		if bHas && bCur.Kind == Insert {
			c.Insert(bCur.Str)
			bHas = false
			continue
		}

		if !aHas || !bHas {
			return nil, xerrors.Errorf("ot: compose ran out of ops on one side: %w", ErrComposeStructural)
		}

		switch aCur.Kind {
		case Retain:
			switch bCur.Kind {
			case Retain:
				switch {
				case aCur.Len < bCur.Len:
					c.Retain(aCur.Len)
					bCur = retainAction(bCur.Len - aCur.Len)
					aHas = false
				case aCur.Len > bCur.Len:
					c.Retain(bCur.Len)
					aCur = retainAction(aCur.Len - bCur.Len)
					bHas = false
				default:
					c.Retain(aCur.Len)
					aHas, bHas = false, false
				}
			case Delete:
				switch {
				case aCur.Len < bCur.Len:
					c.Delete(aCur.Len)
					bCur = deleteAction(bCur.Len - aCur.Len)
					aHas = false
				case aCur.Len > bCur.Len:
					c.Delete(bCur.Len)
					aCur = retainAction(aCur.Len - bCur.Len)
					bHas = false
				default:
					c.Delete(aCur.Len)
					aHas, bHas = false, false
				}
			default:
				return nil, xerrors.Errorf("ot: unexpected action kind %v on b: %w", bCur.Kind, ErrTransformIncompatible)
			}
		case Insert:
			aLen := aCur.Len
			switch bCur.Kind {
			case Delete:
				switch {
				case aLen < bCur.Len:
					bCur = deleteAction(bCur.Len - aLen)
					aHas = false
				case aLen > bCur.Len:
					aCur = insertAction(string([]rune(aCur.Str)[bCur.Len:]))
					bHas = false
				default:
					aHas, bHas = false, false
				}
			case Retain:
				switch {
				case aLen < bCur.Len:
					c.Insert(aCur.Str)
					bCur = retainAction(bCur.Len - aLen)
					aHas = false
				case aLen > bCur.Len:
					runes := []rune(aCur.Str)
					c.Insert(string(runes[:bCur.Len]))
					aCur = insertAction(string(runes[bCur.Len:]))
					bHas = false
				default:
					c.Insert(aCur.Str)
					aHas, bHas = false, false
				}
			default:
				return nil, xerrors.Errorf("ot: unexpected action kind %v on b: %w", bCur.Kind, ErrTransformIncompatible)
			}
		default:
			return nil, xerrors.Errorf("ot: unexpected action kind %v on a: %w", aCur.Kind, ErrTransformIncompatible)
		}
	}

	return c, nil
}
