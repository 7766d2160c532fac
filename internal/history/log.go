// Package history holds the server-side authoritative state for one
// document: the accepted-operation log used to transform an incoming
// operation against everything committed since the revision it was based
// on.
package history

import (
	"sync"

	"github.com/rs/xid"
	"golang.org/x/xerrors"

	"github.com/otlabs/collabtext/ot"
)

// Entry is one operation the log has accepted, at the revision it produced.
// EntryID is a compact sortable identifier used only to correlate log lines
// across a request's lifecycle; Revision remains the authoritative ordering
// key clients and history itself reason about.
type Entry struct {
	Revision int
	EntryID  string
	ClientID string
	Op       *ot.WrappedOperation
}

// Log is the authoritative, serialized history of operations applied to a
// single document. Append, AppendEntry and RecordRemote are its mutating
// methods; every method takes the Log's own mutex, so all are safe for
// concurrent use. internal/server calls AppendEntry once per incoming client
// operation.
//
// baseRevision is the revision value's content already reflects before
// entries begins: zero for a Log built with New, or a persisted snapshot's
// revision for one built with NewFromSnapshot. entries holds only the
// operations accepted since baseRevision, each carrying its own absolute
// Revision, so a Log seeded from a snapshot need not hold the discarded
// history before it to report revisions and transform correctly.
type Log struct {
	mu           sync.Mutex
	value        string
	baseRevision int
	entries      []Entry
}

// New returns a Log seeded with initial document content and no history.
func New(initial string) *Log {
	return &Log{value: initial}
}

// NewFromSnapshot returns a Log whose content already reflects revision:
// the starting point for a document recovered from a persisted snapshot,
// before any history entries committed since that snapshot are replayed
// back in with RecordRemote.
func NewFromSnapshot(content string, revision int) *Log {
	return &Log{value: content, baseRevision: revision}
}

// Value returns the document's current text.
func (l *Log) Value() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// Revision returns the number of operations accepted so far, including any
// folded into the snapshot a Log built with NewFromSnapshot started from.
func (l *Log) Revision() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.revisionLocked()
}

func (l *Log) revisionLocked() int {
	return l.baseRevision + len(l.entries)
}

// Since returns every accepted Entry with Revision > after, oldest first.
// after may be as small as the Log's baseRevision; anything earlier than
// that was folded into the snapshot this Log started from and is no longer
// retained here.
func (l *Log) Since(after int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, entry := range l.entries {
		if entry.Revision > after {
			out = append(out, entry)
		}
	}
	return out
}

// Append transforms op (submitted by clientID against revision base) over
// every entry accepted since base, applies the result to the document, and
// records it as the next entry. It returns the transformed operation (what
// every other subscriber must apply) and the revision it was accepted at.
//
// If the server has already accepted a different operation from the same
// clientID after base (an entry whose Revision is greater than base), op is rejected with ErrNotParented: a well
// behaved client buffers its own concurrent edits and never submits a second
// operation before its first is acknowledged, so seeing one here means the
// client and server have desynchronized.
func (l *Log) Append(clientID string, base int, op *ot.WrappedOperation) (*ot.WrappedOperation, int, error) {
	entry, err := l.append(clientID, base, op)
	if err != nil {
		return nil, 0, err
	}
	return entry.Op, entry.Revision, nil
}

// AppendEntry behaves like Append but returns the full Entry recorded,
// including its EntryID, for callers that want to correlate log lines
// across the request (internal/server's Hub does).
func (l *Log) AppendEntry(clientID string, base int, op *ot.WrappedOperation) (Entry, error) {
	return l.append(clientID, base, op)
}

func (l *Log) append(clientID string, base int, op *ot.WrappedOperation) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if base < l.baseRevision || base > l.revisionLocked() {
		return Entry{}, xerrors.Errorf("history: base revision %d out of range [%d,%d]", base, l.baseRevision, l.revisionLocked())
	}

	transformed := op
	for _, entry := range l.entries {
		if entry.Revision <= base {
			continue
		}
		if entry.ClientID == clientID {
			return Entry{}, ErrNotParented
		}
		_, opPrime, err := ot.TransformWrapped(entry.Op, transformed)
		if err != nil {
			return Entry{}, xerrors.Errorf("history: transform against revision %d: %w", entry.Revision, err)
		}
		transformed = opPrime
	}

	value, err := transformed.Apply(l.value)
	if err != nil {
		return Entry{}, xerrors.Errorf("history: apply: %w", err)
	}

	l.value = value
	entry := Entry{
		Revision: l.revisionLocked() + 1,
		EntryID:  xid.New().String(),
		ClientID: clientID,
		Op:       transformed,
	}
	l.entries = append(l.entries, entry)
	return entry, nil
}

// RecordRemote appends an entry already accepted and transformed elsewhere,
// without re-transforming it against local history: the instance (or
// persisted history replay) that produced it has already done that against
// its own copy of the same history, and transforming twice would corrupt
// the operation. entry.Revision must equal the next revision this log
// expects; a gap means a broadcast event or history row was missed, and
// there is no history here to safely transform a later entry against, so it
// returns ErrRemoteOutOfOrder instead of guessing.
func (l *Log) RecordRemote(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Revision != l.revisionLocked()+1 {
		return ErrRemoteOutOfOrder
	}

	value, err := entry.Op.Apply(l.value)
	if err != nil {
		return xerrors.Errorf("history: apply remote entry: %w", err)
	}

	l.value = value
	l.entries = append(l.entries, entry)
	return nil
}
