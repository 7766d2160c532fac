package otclient

import (
	"sync"

	"golang.org/x/xerrors"

	"github.com/otlabs/collabtext/ot"
)

// StringEditor is a minimal in-memory EditorAdapter: it holds the document
// as a plain string and applies operations to it directly. It has no
// rendering, undo stack, or cursor tracking of its own — those are editor
// concerns outside this module's scope. Used by the CLI demo and by
// state-machine tests that need a real (if trivial) document to converge.
type StringEditor struct {
	mu      sync.Mutex
	content string
}

// NewStringEditor returns a StringEditor seeded with content.
func NewStringEditor(content string) *StringEditor {
	return &StringEditor{content: content}
}

// Value returns the current document text.
func (e *StringEditor) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.content
}

// ApplyOperation applies op.Op to the document in place.
func (e *StringEditor) ApplyOperation(op *ot.WrappedOperation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	out, err := op.Apply(e.content)
	if err != nil {
		return xerrors.Errorf("otclient: string editor apply: %w", err)
	}
	e.content = out
	return nil
}
