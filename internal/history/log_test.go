package history_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/otlabs/collabtext/internal/history"
	"github.com/otlabs/collabtext/ot"
)

func wrap(op *ot.Operation, clientID string) *ot.WrappedOperation {
	return ot.Wrap(op, ot.Meta{"clientId": clientID})
}

func TestAppendSequential(t *testing.T) {
	l := history.New("hello")

	op, rev, err := l.Append("alice", 0, wrap(ot.New().Retain(5).Insert("!"), "alice"))
	require.NoError(t, err)
	require.Equal(t, 1, rev)
	require.Equal(t, "hello!", l.Value())

	applied, err := op.Apply("hello")
	require.NoError(t, err)
	require.Equal(t, "hello!", applied)
}

func TestAppendTransformsAgainstIntervening(t *testing.T) {
	l := history.New("hello")

	_, _, err := l.Append("alice", 0, wrap(ot.New().Retain(5).Insert(" alice"), "alice"))
	require.NoError(t, err)

	// Bob's op was composed against revision 0, concurrently with alice's.
	transformed, rev, err := l.Append("bob", 0, wrap(ot.New().Insert("bob says: ").Retain(5), "bob"))
	require.NoError(t, err)
	require.Equal(t, 2, rev)
	require.Equal(t, "bob says: hello alice", l.Value())
	require.Equal(t, 5+len(" alice"), transformed.Op.BaseLength())
}

func TestAppendRejectsUnparentedSameClient(t *testing.T) {
	l := history.New("hi")

	_, _, err := l.Append("alice", 0, wrap(ot.New().Retain(2).Insert("!"), "alice"))
	require.NoError(t, err)

	_, _, err = l.Append("alice", 0, wrap(ot.New().Retain(2).Insert("?"), "alice"))
	require.ErrorIs(t, err, history.ErrNotParented)
}

func TestAppendRejectsOutOfRangeBase(t *testing.T) {
	l := history.New("hi")
	_, _, err := l.Append("alice", 5, wrap(ot.New().Retain(2), "alice"))
	require.Error(t, err)
}

func TestSince(t *testing.T) {
	l := history.New("hi")
	_, _, err := l.Append("alice", 0, wrap(ot.New().Retain(2).Insert("!"), "alice"))
	require.NoError(t, err)
	_, _, err = l.Append("bob", 1, wrap(ot.New().Retain(3).Insert("?"), "bob"))
	require.NoError(t, err)

	entries := l.Since(0)
	require.Len(t, entries, 2)
	require.Equal(t, "alice", entries[0].ClientID)
	require.Equal(t, "bob", entries[1].ClientID)

	require.Empty(t, l.Since(2))
}

func TestRecordRemoteAppliesAndAdvancesRevision(t *testing.T) {
	l := history.New("hi")
	entry := history.Entry{Revision: 1, EntryID: "e1", ClientID: "alice", Op: wrap(ot.New().Retain(2).Insert("!"), "alice")}

	require.NoError(t, l.RecordRemote(entry))
	require.Equal(t, 1, l.Revision())
	require.Equal(t, "hi!", l.Value())
}

func TestRecordRemoteRejectsOutOfOrder(t *testing.T) {
	l := history.New("hi")
	entry := history.Entry{Revision: 2, EntryID: "e2", ClientID: "bob", Op: wrap(ot.New().Retain(2).Insert("!"), "bob")}

	err := l.RecordRemote(entry)
	require.ErrorIs(t, err, history.ErrRemoteOutOfOrder)
	require.Equal(t, 0, l.Revision())
}

func TestNewFromSnapshotResumesAtOffsetRevision(t *testing.T) {
	l := history.NewFromSnapshot("hello!", 4)
	require.Equal(t, 4, l.Revision())
	require.Empty(t, l.Since(0))

	transformed, rev, err := l.Append("bob", 4, wrap(ot.New().Retain(6).Insert("?"), "bob"))
	require.NoError(t, err)
	require.Equal(t, 5, rev)
	require.Equal(t, "hello!?", l.Value())

	applied, err := transformed.Apply("hello!")
	require.NoError(t, err)
	require.Equal(t, "hello!?", applied)
}

func TestAppendEntryAssignsUniqueEntryIDs(t *testing.T) {
	l := history.New("hi")

	e1, err := l.AppendEntry("alice", 0, wrap(ot.New().Retain(2).Insert("!"), "alice"))
	require.NoError(t, err)
	require.NotEmpty(t, e1.EntryID)

	e2, err := l.AppendEntry("bob", 1, wrap(ot.New().Retain(3).Insert("?"), "bob"))
	require.NoError(t, err)
	require.NotEmpty(t, e2.EntryID)

	require.NotEqual(t, e1.EntryID, e2.EntryID)
}
