// Package server hosts one Hub per open document: the in-memory fan-out
// point that serializes incoming client operations through an
// internal/history.Log and broadcasts the accepted result to every other
// subscriber, optionally publishing it to internal/broadcast for other
// server instances to pick up.
package server

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/xerrors"

	"github.com/otlabs/collabtext/internal/broadcast"
	"github.com/otlabs/collabtext/internal/history"
	"github.com/otlabs/collabtext/internal/store"
	"github.com/otlabs/collabtext/internal/transport"
	"github.com/otlabs/collabtext/ot"
)

// snapshotInterval is how many accepted operations pass between persisted
// snapshots: frequent enough that a restart replays at most this many
// history rows, infrequent enough that most accepted operations only cost
// one history insert instead of two writes.
const snapshotInterval = 20

// Hub owns one document's history and the set of connections currently
// subscribed to it.
type Hub struct {
	docID string
	log   zerolog.Logger

	history *history.Log
	store   *store.DocumentStore

	publisher     *broadcast.Publisher
	revisionCache *store.RevisionCache

	mu          sync.Mutex
	subscribers map[*transport.Connection]bool
}

// NewHub returns a Hub for docID backed by seed, a Log already positioned at
// whatever revision that document was last known at (built fresh, or
// recovered from a persisted snapshot plus replayed history by HubSet.Get).
// st, publisher and revisionCache may all be nil, in which case accepted
// operations are fanned out only to local subscribers, never persisted, and
// the revision is never cached.
func NewHub(docID string, seed *history.Log, st *store.DocumentStore, publisher *broadcast.Publisher, revisionCache *store.RevisionCache, log zerolog.Logger) *Hub {
	return &Hub{
		docID:         docID,
		log:           log.With().Str("doc_id", docID).Logger(),
		history:       seed,
		store:         st,
		publisher:     publisher,
		revisionCache: revisionCache,
		subscribers:   make(map[*transport.Connection]bool),
	}
}

// Subscribe registers conn to receive future broadcasts and returns the
// document's current content and revision, for the init message.
func (h *Hub) Subscribe(conn *transport.Connection) (content string, revision int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[conn] = true
	return h.history.Value(), h.history.Revision()
}

// Unsubscribe removes conn; it is safe to call even if conn was never
// subscribed.
func (h *Hub) Unsubscribe(conn *transport.Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, conn)
}

// SubscriberCount reports how many connections are currently subscribed.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Submit accepts an operation submitted by clientID against revision base,
// transforms it through any history committed since, applies it, and
// broadcasts the transformed result to every other subscriber (and,
// if configured, to other server instances via the Publisher).
func (h *Hub) Submit(ctx context.Context, from *transport.Connection, clientID string, base int, op *ot.WrappedOperation) error {
	entry, err := h.history.AppendEntry(clientID, base, op)
	if err != nil {
		return xerrors.Errorf("server: submit: %w", err)
	}
	transformed, revision := entry.Op, entry.Revision

	h.log.Debug().
		Str("client_id", clientID).
		Str("entry_id", entry.EntryID).
		Int("revision", revision).
		Msg("server: accepted operation")

	h.broadcastLocal(from, clientID, revision, transformed)

	if h.store != nil {
		h.persist(ctx, entry, revision)
	}

	if h.publisher != nil {
		evt, err := encodeEvent(h.docID, clientID, entry.EntryID, revision, transformed)
		if err != nil {
			h.log.Warn().Err(err).Msg("server: encode broadcast event")
		} else if err := h.publisher.Enqueue(ctx, evt); err != nil {
			h.log.Warn().Err(err).Msg("server: enqueue broadcast event")
		}
	}

	if h.revisionCache != nil {
		if err := h.revisionCache.SetRevision(ctx, h.docID, revision); err != nil {
			h.log.Warn().Err(err).Msg("server: cache revision")
		}
	}

	return from.WriteAck(revision)
}

// persist records entry to MySQL and, every snapshotInterval revisions,
// saves the document's full current content so a future restart need only
// replay history back to the nearest snapshot instead of from revision 0.
func (h *Hub) persist(ctx context.Context, entry history.Entry, revision int) {
	opJSON, err := json.Marshal(entry.Op)
	if err != nil {
		h.log.Warn().Err(err).Msg("server: marshal history entry")
		return
	}
	record := store.HistoryEntry{
		DocID:    h.docID,
		Revision: revision,
		ClientID: entry.ClientID,
		EntryID:  entry.EntryID,
		OpJSON:   opJSON,
	}
	if err := h.store.AppendHistory(ctx, record); err != nil {
		h.log.Warn().Err(err).Msg("server: persist history entry")
		return
	}

	if revision%snapshotInterval == 0 {
		if err := h.store.SaveSnapshot(ctx, h.docID, revision, h.history.Value()); err != nil {
			h.log.Warn().Err(err).Msg("server: save snapshot")
		}
	}
}

// ApplyRemote records an operation accepted by another server instance
// (received via internal/broadcast) into this Hub's history and fans it out
// to local subscribers. It never re-publishes: the instance that originally
// accepted the operation already did that. A revision this log has already
// passed is a duplicate delivery and is ignored; a revision that does not
// immediately follow the log's current revision means this instance missed
// an earlier event, which is logged and otherwise dropped rather than
// silently desynchronizing local subscribers' content/revision.
func (h *Hub) ApplyRemote(clientID, entryID string, revision int, op *ot.WrappedOperation) {
	if revision <= h.history.Revision() {
		return
	}

	entry := history.Entry{Revision: revision, EntryID: entryID, ClientID: clientID, Op: op}
	if err := h.history.RecordRemote(entry); err != nil {
		h.log.Warn().Err(err).Str("client_id", clientID).Int("revision", revision).
			Msg("server: dropping remote operation")
		return
	}

	h.broadcastLocal(nil, clientID, revision, op)
}

func (h *Hub) broadcastLocal(except *transport.Connection, clientID string, revision int, op *ot.WrappedOperation) {
	h.mu.Lock()
	targets := make([]*transport.Connection, 0, len(h.subscribers))
	for c := range h.subscribers {
		if c == except {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.WriteOperation(clientID, revision, op); err != nil {
			h.log.Warn().Err(err).Msg("server: broadcast write failed")
		}
	}
}
