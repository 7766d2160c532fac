package ot

import "encoding/json"

// Meta is an opaque mapping from names to values attached to an Operation:
// clientId, cursor, selectionEnd, or whatever else a caller needs to carry
// alongside an edit. The algebra never interprets Meta's keys.
type Meta map[string]any

// Clone returns a shallow copy of m.
func (m Meta) Clone() Meta {
	if m == nil {
		return nil
	}
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// mergeMeta returns a's keys overlaid with b's, b winning on conflict
// (spec.md §4.2's right-biased merge for Compose).
func mergeMeta(a, b Meta) Meta {
	out := make(Meta, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// WrappedOperation pairs an Operation with opaque Meta, preserving Meta
// across Apply, Invert, Compose and Transform per spec.md §4.2.
type WrappedOperation struct {
	Op   *Operation
	Meta Meta
}

// Wrap attaches meta to op.
func Wrap(op *Operation, meta Meta) *WrappedOperation {
	return &WrappedOperation{Op: op, Meta: meta}
}

// Apply delegates to the wrapped Operation.
func (w *WrappedOperation) Apply(str string) (string, error) {
	return w.Op.Apply(str)
}

// Invert delegates to the wrapped Operation; the inverted wrapper carries the
// same metadata as w.
func (w *WrappedOperation) Invert(str string) *WrappedOperation {
	return &WrappedOperation{Op: w.Op.Invert(str), Meta: w.Meta.Clone()}
}

// ComposeWrapped composes a then b. The wrapped Operations are composed; the
// metadata is a's keys overlaid with b's, b winning on conflict.
func ComposeWrapped(a, b *WrappedOperation) (*WrappedOperation, error) {
	op, err := Compose(a.Op, b.Op)
	if err != nil {
		return nil, err
	}
	return &WrappedOperation{Op: op, Meta: mergeMeta(a.Meta, b.Meta)}, nil
}

// TransformWrapped transforms a against b. a' carries a's metadata, b'
// carries b's; there is no merging between the two sides.
func TransformWrapped(a, b *WrappedOperation) (aPrime, bPrime *WrappedOperation, err error) {
	opA, opB, err := Transform(a.Op, b.Op)
	if err != nil {
		return nil, nil, err
	}
	return &WrappedOperation{Op: opA, Meta: a.Meta.Clone()},
		&WrappedOperation{Op: opB, Meta: b.Meta.Clone()},
		nil
}

// wireWrappedOperation is the record form of a WrappedOperation: spec.md
// §6.4's {operation, meta}, not Go's default {Op, Meta} field names.
type wireWrappedOperation struct {
	Operation *Operation `json:"operation"`
	Meta      Meta       `json:"meta"`
}

// MarshalJSON encodes w as {operation, meta} per spec.md §6.4.
func (w *WrappedOperation) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireWrappedOperation{Operation: w.Op, Meta: w.Meta})
}

// UnmarshalJSON decodes {operation, meta} per spec.md §6.4.
func (w *WrappedOperation) UnmarshalJSON(data []byte) error {
	var wire wireWrappedOperation
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	w.Op = wire.Operation
	w.Meta = wire.Meta
	return nil
}
