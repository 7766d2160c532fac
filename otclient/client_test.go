package otclient_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/otlabs/collabtext/ot"
	"github.com/otlabs/collabtext/otclient"
)

func wrap(op *ot.Operation) *ot.WrappedOperation {
	return ot.Wrap(op, ot.Meta{"clientId": "local"})
}

// applyLocal tells the state machine about a local edit and mirrors it into
// editor, exactly as a real editor integration would: the editor already
// contains the user's keystrokes before ApplyClient is ever called, so tests
// using a detached StringEditor must apply the same op to keep it in sync.
func applyLocal(t *testing.T, c *otclient.Client, editor *otclient.StringEditor, op *ot.WrappedOperation) {
	t.Helper()
	require.NoError(t, c.ApplyClient(op))
	require.NoError(t, editor.ApplyOperation(op))
}

func TestSynchronizedApplyClientSends(t *testing.T) {
	editor := otclient.NewStringEditor("go")
	transport := &otclient.RecordingTransport{}
	c := otclient.New(7, 2, editor, transport)

	op := wrap(ot.New().Insert("x").Retain(2))
	require.NoError(t, c.ApplyClient(op))

	require.False(t, c.IsSynchronized())
	require.NotNil(t, transport.Last())
	require.Equal(t, 7, transport.Last().Revision)
	require.Equal(t, 7, c.Revision(), "ApplyClient must not change revision")
}

func TestSynchronizedApplyServerApplies(t *testing.T) {
	editor := otclient.NewStringEditor("go")
	c := otclient.New(0, 2, editor, nil)

	op := wrap(ot.New().Insert("y").Retain(2))
	require.NoError(t, c.ApplyServer(op))
	require.Equal(t, "ygo", editor.Value())
	require.Equal(t, 1, c.Revision())
}

func TestSynchronizedServerAckIsFatal(t *testing.T) {
	c := otclient.New(0, 0, otclient.NewStringEditor(""), nil)
	err := c.ServerAck()
	require.ErrorIs(t, err, otclient.ErrNoPendingAck)
}

// TestStateMachineInterleaving reproduces spec.md §8's literal scenario:
// client synchronized at rev 7 types "x", a remote insert("y") arrives, then
// the ack for "x" arrives.
func TestStateMachineInterleaving(t *testing.T) {
	editor := otclient.NewStringEditor("go")
	transport := &otclient.RecordingTransport{}
	c := otclient.New(7, 2, editor, transport)

	applyLocal(t, c, editor, wrap(ot.New().Insert("x").Retain(2)))
	require.False(t, c.IsSynchronized())
	require.Equal(t, 7, transport.Last().Revision)

	require.NoError(t, c.ApplyServer(wrap(ot.New().Insert("y").Retain(2))))
	require.Equal(t, 8, c.Revision())
	require.Equal(t, "xygo", editor.Value())
	require.NotNil(t, c.Outstanding())

	require.NoError(t, c.ServerAck())
	require.Equal(t, 9, c.Revision())
	require.True(t, c.IsSynchronized())
}

// TestBufferedRemoteReconciliation reproduces spec.md §8's literal buffered
// scenario: from AwaitingConfirm(insert("A")), the user types "B" (buffered),
// then a remote insert("C") arrives and must be reconciled against both,
// landing after both local insertions (the outstanding op wins the tie-break
// as the first argument to Transform, so the client's own edits always
// precede a concurrent remote edit at the same position).
func TestBufferedRemoteReconciliation(t *testing.T) {
	editor := otclient.NewStringEditor("")
	transport := &otclient.RecordingTransport{}
	c := otclient.New(0, 0, editor, transport)

	applyLocal(t, c, editor, wrap(ot.New().Insert("A")))
	require.Len(t, transport.Sent, 1)

	applyLocal(t, c, editor, wrap(ot.New().Retain(1).Insert("B")))
	require.Len(t, transport.Sent, 1, "buffered edit must not be sent")
	require.NotNil(t, c.Buffer())
	require.Equal(t, "AB", editor.Value())

	require.NoError(t, c.ApplyServer(wrap(ot.New().Insert("C"))))
	require.Equal(t, "ABC", editor.Value())

	require.NoError(t, c.ServerAck())
	require.Len(t, transport.Sent, 2, "serverAck in AwaitingWithBuffer must send the buffer")
	require.False(t, c.IsSynchronized())
}

func TestRevisionDesyncOnBaseLengthMismatch(t *testing.T) {
	c := otclient.New(0, 5, otclient.NewStringEditor("hello"), nil)
	err := c.ApplyServer(wrap(ot.New().Retain(3)))
	require.ErrorIs(t, err, otclient.ErrRevisionDesync)
}

func TestNotImplementedWhenAdapterMissing(t *testing.T) {
	c := otclient.New(0, 2, nil, nil)
	err := c.ApplyClient(wrap(ot.New().Retain(2)))
	require.ErrorIs(t, err, otclient.ErrNotImplemented)
}

// TestRevisionMonotonicity checks property 11: revision strictly increases
// on ApplyServer/ServerAck, unchanged on ApplyClient.
func TestRevisionMonotonicity(t *testing.T) {
	editor := otclient.NewStringEditor("ab")
	transport := &otclient.RecordingTransport{}
	c := otclient.New(0, 2, editor, transport)

	applyLocal(t, c, editor, wrap(ot.New().Retain(2).Insert("!")))
	require.Equal(t, 0, c.Revision())

	require.NoError(t, c.ApplyServer(wrap(ot.New().Retain(2))))
	require.Equal(t, 1, c.Revision())

	require.NoError(t, c.ServerAck())
	require.Equal(t, 2, c.Revision())
}

// TestUnacknowledgedBound checks property 12: at most one operation per
// client is in flight (sent but unacked) at any time, even while buffering.
func TestUnacknowledgedBound(t *testing.T) {
	editor := otclient.NewStringEditor("")
	transport := &otclient.RecordingTransport{}
	c := otclient.New(0, 0, editor, transport)

	applyLocal(t, c, editor, wrap(ot.New().Insert("A")))
	applyLocal(t, c, editor, wrap(ot.New().Retain(1).Insert("B")))
	applyLocal(t, c, editor, wrap(ot.New().Retain(2).Insert("C")))
	require.Len(t, transport.Sent, 1, "only the first edit is ever sent while one is outstanding")
}
