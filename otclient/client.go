// Package otclient implements the client-side synchronization state
// machine: the controller that mediates local edits, remote edits, and
// server acknowledgements so a client's document converges with the
// server's, regardless of interleaving. It is deliberately free of any
// concrete transport or editor — callers supply those via the
// TransportAdapter and EditorAdapter interfaces.
package otclient

import (
	"golang.org/x/xerrors"

	"github.com/otlabs/collabtext/ot"
)

// EditorAdapter is the boundary consumed by Client to apply a transformed
// remote operation to the local document (spec.md §6.1). A concrete editor
// integration lives outside this module; StringEditor in editor.go is a
// minimal in-memory implementation used by tests and the CLI demo.
type EditorAdapter interface {
	ApplyOperation(op *ot.WrappedOperation) error
}

// TransportAdapter is the boundary consumed by Client to submit a pending
// operation to the server (spec.md §6.2). A concrete websocket
// implementation lives in internal/transport.
type TransportAdapter interface {
	SendOperation(revision int, op *ot.WrappedOperation) error
}

// Client mediates the outstanding/buffered operations a client holds while
// awaiting server acknowledgement (spec.md §3.3/§4.3).
type Client struct {
	revision  int
	docLen    int // length of the document as this client currently sees it
	state     state
	editor    EditorAdapter
	transport TransportAdapter
}

// New returns a Client starting Synchronized at revision rev with a document
// of the given initial length, driving editor and transport per spec.md §6.
func New(rev, initialDocLength int, editor EditorAdapter, transport TransportAdapter) *Client {
	return &Client{
		revision:  rev,
		docLen:    initialDocLength,
		state:     synchronizedState{},
		editor:    editor,
		transport: transport,
	}
}

// Revision is the server revision this client expects next. It increases by
// exactly one on every ApplyServer and ServerAck call, and is unaffected by
// ApplyClient (spec.md §4.3, property 11).
func (c *Client) Revision() int { return c.revision }

// Outstanding returns the in-flight operation awaiting acknowledgement, or
// nil if the client is Synchronized.
func (c *Client) Outstanding() *ot.WrappedOperation { return c.state.outstanding() }

// Buffer returns the locally-buffered operation accumulated while an
// outstanding operation is unacknowledged, or nil if there is none.
func (c *Client) Buffer() *ot.WrappedOperation { return c.state.buffer() }

// IsSynchronized reports whether no local operation is in flight (property
// 12: at most one operation per client is in flight at any time).
func (c *Client) IsSynchronized() bool {
	_, ok := c.state.(synchronizedState)
	return ok
}

// serverBaseLength is the length of the document the server last
// acknowledged from this client: outstanding.baseLength when an operation is
// in flight, or the current document length when Synchronized (spec.md
// §3.3's invariant, restated for validation in ApplyServer).
func (c *Client) serverBaseLength() int {
	if o := c.state.outstanding(); o != nil {
		return o.Op.BaseLength()
	}
	return c.docLen
}

// ApplyClient handles a local edit against the client's current document. In
// Synchronized it sends op immediately; otherwise op is buffered
// (AwaitingConfirm) or composed into the existing buffer
// (AwaitingWithBuffer) without being sent, per spec.md §4.3's transition
// table.
func (c *Client) ApplyClient(op *ot.WrappedOperation) error {
	if op.Op.BaseLength() != c.docLen {
		return xerrors.Errorf("ot client: local op baseLength=%d, document length=%d: %w",
			op.Op.BaseLength(), c.docLen, ErrRevisionDesync)
	}
	next, err := c.state.applyClient(c, op)
	if err != nil {
		return err
	}
	c.state = next
	c.docLen = op.Op.TargetLength()
	return nil
}

// ApplyServer handles a remote operation arriving at the client's current
// revision. It transforms op against outstanding/buffered local operations
// as needed, applies the result to the editor, and advances revision by one.
func (c *Client) ApplyServer(op *ot.WrappedOperation) error {
	if op.Op.BaseLength() != c.serverBaseLength() {
		return xerrors.Errorf("ot client: incoming op baseLength=%d, expected %d: %w",
			op.Op.BaseLength(), c.serverBaseLength(), ErrRevisionDesync)
	}
	next, applied, err := c.state.applyServer(c, op)
	if err != nil {
		return err
	}
	c.state = next
	c.docLen = applied.Op.TargetLength()
	c.revision++
	return nil
}

// ServerAck handles the server's acknowledgement of this client's most
// recently sent operation. Calling it while Synchronized is a protocol
// violation: it means the server acked something the client never sent.
func (c *Client) ServerAck() error {
	next, err := c.state.serverAck(c)
	if err != nil {
		return err
	}
	c.state = next
	c.revision++
	return nil
}

func (c *Client) send(op *ot.WrappedOperation) error {
	if c.transport == nil {
		return xerrors.Errorf("ot client: transport.SendOperation: %w", ErrNotImplemented)
	}
	return c.transport.SendOperation(c.revision, op)
}

func (c *Client) apply(op *ot.WrappedOperation) error {
	if c.editor == nil {
		return xerrors.Errorf("ot client: editor.ApplyOperation: %w", ErrNotImplemented)
	}
	if err := c.editor.ApplyOperation(op); err != nil {
		return err
	}
	return nil
}
