package ot

import (
	"encoding/json"

	"golang.org/x/xerrors"
)

// wireAction is one action on the wire: exactly one of Retain, Insert,
// Delete is set, per spec.md §6.3.
type wireAction struct {
	Retain *int    `json:"retain,omitempty"`
	Insert *string `json:"insert,omitempty"`
	Delete *int    `json:"delete,omitempty"`
}

// wireOperation is the record form of an Operation: spec.md §4.1.6/§6.3.
type wireOperation struct {
	Ops          []wireAction `json:"ops"`
	BaseLength   int          `json:"baseLength"`
	TargetLength int          `json:"targetLength"`
}

func (o *Operation) toWire() wireOperation {
	w := wireOperation{
		Ops:          make([]wireAction, len(o.ops)),
		BaseLength:   o.baseLength,
		TargetLength: o.targetLength,
	}
	for i, a := range o.ops {
		switch a.Kind {
		case Retain:
			n := a.Len
			w.Ops[i] = wireAction{Retain: &n}
		case Insert:
			s := a.Str
			w.Ops[i] = wireAction{Insert: &s}
		case Delete:
			n := a.Len
			w.Ops[i] = wireAction{Delete: &n}
		}
	}
	return w
}

// MarshalJSON encodes o as {ops, baseLength, targetLength} per spec.md §6.3.
func (o *Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.toWire())
}

// UnmarshalJSON rebuilds an Operation via the builders (re-enforcing the
// coalescing invariant) and then verifies the computed baseLength/
// targetLength match the record, per spec.md §4.1.6.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var w wireOperation
	if err := json.Unmarshal(data, &w); err != nil {
		return xerrors.Errorf("ot: decode operation: %w", err)
	}
	built := New()
	for _, a := range w.Ops {
		switch {
		case a.Retain != nil:
			built.Retain(*a.Retain)
		case a.Insert != nil:
			built.Insert(*a.Insert)
		case a.Delete != nil:
			built.Delete(*a.Delete)
		default:
			return xerrors.Errorf("ot: action has no retain/insert/delete field: %w", ErrUnknownAction)
		}
	}
	if built.baseLength != w.BaseLength || built.targetLength != w.TargetLength {
		return xerrors.Errorf("ot: decoded baseLength=%d targetLength=%d, record says baseLength=%d targetLength=%d: %w",
			built.baseLength, built.targetLength, w.BaseLength, w.TargetLength, ErrDeserializationMismatch)
	}
	*o = *built
	return nil
}
