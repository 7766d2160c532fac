package otclient

import (
	"golang.org/x/xerrors"

	"github.com/otlabs/collabtext/ot"
)

// state is the closed set of variants Synchronized / AwaitingConfirm /
// AwaitingWithBuffer (spec.md §3.3/§4.3). Each variant implements this
// interface and Client calls through it; there is no central type switch
// over the variants, so the compiler does not check exhaustiveness.
type state interface {
	outstanding() *ot.WrappedOperation
	buffer() *ot.WrappedOperation
	applyClient(c *Client, op *ot.WrappedOperation) (state, error)
	// applyServer returns the next state and the operation actually handed
	// to the editor (its TargetLength becomes the client's new document
	// length).
	applyServer(c *Client, op *ot.WrappedOperation) (next state, applied *ot.WrappedOperation, err error)
	serverAck(c *Client) (state, error)
}

// synchronizedState: no local operation in flight.
type synchronizedState struct{}

func (synchronizedState) outstanding() *ot.WrappedOperation { return nil }
func (synchronizedState) buffer() *ot.WrappedOperation      { return nil }

func (synchronizedState) applyClient(c *Client, op *ot.WrappedOperation) (state, error) {
	if err := c.send(op); err != nil {
		return nil, err
	}
	return awaitingConfirmState{outstandingOp: op}, nil
}

func (synchronizedState) applyServer(c *Client, op *ot.WrappedOperation) (state, *ot.WrappedOperation, error) {
	if err := c.apply(op); err != nil {
		return nil, nil, err
	}
	return synchronizedState{}, op, nil
}

func (synchronizedState) serverAck(c *Client) (state, error) {
	return nil, xerrors.Errorf("ot client: serverAck with no outstanding operation: %w", ErrNoPendingAck)
}

// awaitingConfirmState: one operation sent, awaiting ack.
type awaitingConfirmState struct {
	outstandingOp *ot.WrappedOperation
}

func (s awaitingConfirmState) outstanding() *ot.WrappedOperation { return s.outstandingOp }
func (awaitingConfirmState) buffer() *ot.WrappedOperation        { return nil }

func (s awaitingConfirmState) applyClient(c *Client, op *ot.WrappedOperation) (state, error) {
	// Do not send: the server may see at most one unacknowledged operation
	// per client at a time, so local edits made while awaiting an ack are
	// buffered instead of pipelined.
	return awaitingWithBufferState{outstandingOp: s.outstandingOp, bufferOp: op}, nil
}

func (s awaitingConfirmState) applyServer(c *Client, op *ot.WrappedOperation) (state, *ot.WrappedOperation, error) {
	outstandingPrime, opPrime, err := ot.TransformWrapped(s.outstandingOp, op)
	if err != nil {
		return nil, nil, err
	}
	if err := c.apply(opPrime); err != nil {
		return nil, nil, err
	}
	return awaitingConfirmState{outstandingOp: outstandingPrime}, opPrime, nil
}

func (s awaitingConfirmState) serverAck(c *Client) (state, error) {
	return synchronizedState{}, nil
}

// awaitingWithBufferState: one operation in flight, plus additional local
// edits accumulated in buffer.
type awaitingWithBufferState struct {
	outstandingOp *ot.WrappedOperation
	bufferOp      *ot.WrappedOperation
}

func (s awaitingWithBufferState) outstanding() *ot.WrappedOperation { return s.outstandingOp }
func (s awaitingWithBufferState) buffer() *ot.WrappedOperation      { return s.bufferOp }

func (s awaitingWithBufferState) applyClient(c *Client, op *ot.WrappedOperation) (state, error) {
	composed, err := ot.ComposeWrapped(s.bufferOp, op)
	if err != nil {
		return nil, err
	}
	return awaitingWithBufferState{outstandingOp: s.outstandingOp, bufferOp: composed}, nil
}

func (s awaitingWithBufferState) applyServer(c *Client, op *ot.WrappedOperation) (state, *ot.WrappedOperation, error) {
	// The double transform is the sole point where three concurrent edits
	// (own-outstanding, own-buffer, remote) are reconciled; both transforms
	// must be applied in this order.
	outstandingPrime, t1, err := ot.TransformWrapped(s.outstandingOp, op)
	if err != nil {
		return nil, nil, err
	}
	bufferPrime, opPrime, err := ot.TransformWrapped(s.bufferOp, t1)
	if err != nil {
		return nil, nil, err
	}
	if err := c.apply(opPrime); err != nil {
		return nil, nil, err
	}
	return awaitingWithBufferState{outstandingOp: outstandingPrime, bufferOp: bufferPrime}, opPrime, nil
}

func (s awaitingWithBufferState) serverAck(c *Client) (state, error) {
	if err := c.send(s.bufferOp); err != nil {
		return nil, err
	}
	return awaitingConfirmState{outstandingOp: s.bufferOp}, nil
}
