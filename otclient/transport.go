package otclient

import "github.com/otlabs/collabtext/ot"

// RecordingTransport is an in-memory TransportAdapter that records every
// operation handed to SendOperation instead of putting it on the wire. Used
// by tests and the CLI demo to inspect exactly what a Client would have sent.
type RecordingTransport struct {
	Sent []SentOp
}

// SentOp is one recorded call to SendOperation.
type SentOp struct {
	Revision int
	Op       *ot.WrappedOperation
}

// SendOperation appends to Sent and always succeeds.
func (t *RecordingTransport) SendOperation(revision int, op *ot.WrappedOperation) error {
	t.Sent = append(t.Sent, SentOp{Revision: revision, Op: op})
	return nil
}

// Last returns the most recently sent operation, or nil if none was sent.
func (t *RecordingTransport) Last() *SentOp {
	if len(t.Sent) == 0 {
		return nil
	}
	return &t.Sent[len(t.Sent)-1]
}
