package server

import (
	"encoding/json"
	"time"

	"golang.org/x/xerrors"

	"github.com/otlabs/collabtext/internal/broadcast"
	"github.com/otlabs/collabtext/internal/history"
	"github.com/otlabs/collabtext/internal/store"
	"github.com/otlabs/collabtext/ot"
)

func encodeEvent(docID, clientID, entryID string, revision int, op *ot.WrappedOperation) (broadcast.OpEvent, error) {
	opJSON, err := json.Marshal(op)
	if err != nil {
		return broadcast.OpEvent{}, xerrors.Errorf("server: marshal op: %w", err)
	}
	return broadcast.OpEvent{
		DocID:     docID,
		ClientID:  clientID,
		EntryID:   entryID,
		Revision:  revision,
		OpJSON:    opJSON,
		AppliedAt: time.Now(),
	}, nil
}

func decodeEvent(evt broadcast.OpEvent) (*ot.WrappedOperation, error) {
	var op ot.WrappedOperation
	if err := json.Unmarshal(evt.OpJSON, &op); err != nil {
		return nil, xerrors.Errorf("server: unmarshal op: %w", err)
	}
	return &op, nil
}

// decodeHistoryEntry turns a persisted store.HistoryEntry back into the
// history.Entry form RecordRemote expects, for replaying a document's
// history on top of its latest snapshot.
func decodeHistoryEntry(row store.HistoryEntry) (history.Entry, error) {
	var op ot.WrappedOperation
	if err := json.Unmarshal(row.OpJSON, &op); err != nil {
		return history.Entry{}, xerrors.Errorf("server: unmarshal history row: %w", err)
	}
	return history.Entry{
		Revision: row.Revision,
		EntryID:  row.EntryID,
		ClientID: row.ClientID,
		Op:       &op,
	}, nil
}
