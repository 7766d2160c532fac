package server

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/otlabs/collabtext/internal/broadcast"
	"github.com/otlabs/collabtext/internal/history"
	"github.com/otlabs/collabtext/internal/store"
)

// HubSet is the process-wide registry of open document Hubs, created
// lazily on first subscription and backed by store.DocumentStore for
// initial content.
type HubSet struct {
	store         *store.DocumentStore
	publisher     *broadcast.Publisher
	revisionCache *store.RevisionCache
	log           zerolog.Logger

	mu   sync.Mutex
	hubs map[string]*Hub
}

// NewHubSet returns an empty HubSet. Any of st, publisher, and
// revisionCache may be nil, in which case the corresponding feature
// (persistence, cross-instance broadcast, revision caching) is disabled.
func NewHubSet(st *store.DocumentStore, publisher *broadcast.Publisher, revisionCache *store.RevisionCache, log zerolog.Logger) *HubSet {
	return &HubSet{
		store:         st,
		publisher:     publisher,
		revisionCache: revisionCache,
		log:           log,
		hubs:          make(map[string]*Hub),
	}
}

// Get returns the Hub for docID, creating and seeding it from the latest
// stored snapshot (plus any history committed since) if this is the first
// reference to that document on this instance.
func (s *HubSet) Get(ctx context.Context, docID string) *Hub {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.hubs[docID]; ok {
		return h
	}

	seed := s.loadSeed(ctx, docID)
	h := NewHub(docID, seed, s.store, s.publisher, s.revisionCache, s.log)
	s.hubs[docID] = h
	return h
}

// loadSeed recovers a document's Log from persistence. The revision cache is
// consulted first: a cached revision of zero means the document has no
// history at all, and MySQL need not be queried to find that out. Otherwise
// it falls back to the latest MySQL snapshot (if any) plus every history row
// committed since, so a restart need only replay the tail of the log rather
// than all of it.
func (s *HubSet) loadSeed(ctx context.Context, docID string) *history.Log {
	if s.revisionCache != nil {
		if rev, ok, err := s.revisionCache.Revision(ctx, docID); err == nil && ok && rev == 0 {
			return history.New("")
		}
	}

	if s.store == nil {
		return history.New("")
	}

	snap, err := s.store.LatestSnapshot(ctx, docID)
	content, fromRevision := "", 0
	if err == nil {
		content, fromRevision = snap.Content, snap.Revision
	}

	rows, err := s.store.HistorySince(ctx, docID, fromRevision)
	if err != nil || len(rows) == 0 {
		if fromRevision == 0 {
			return history.New(content)
		}
		return history.NewFromSnapshot(content, fromRevision)
	}

	l := history.NewFromSnapshot(content, fromRevision)
	for _, row := range rows {
		entry, err := decodeHistoryEntry(row)
		if err != nil {
			s.log.Warn().Err(err).Str("doc_id", docID).Msg("server: dropping undecodable history row")
			continue
		}
		if err := l.RecordRemote(entry); err != nil {
			s.log.Warn().Err(err).Str("doc_id", docID).Int("revision", entry.Revision).
				Msg("server: stopping history replay")
			break
		}
	}
	return l
}

// HandleRemoteEvent routes an OpEvent received from internal/broadcast to
// the Hub for its document, applying it only if that document's Hub is
// already open locally: a document nobody is editing on this instance has
// no subscribers to notify and no need to track remote history.
func (s *HubSet) HandleRemoteEvent(evt broadcast.OpEvent) {
	s.mu.Lock()
	h, ok := s.hubs[evt.DocID]
	s.mu.Unlock()
	if !ok {
		return
	}
	op, err := decodeEvent(evt)
	if err != nil {
		s.log.Warn().Err(err).Str("doc_id", evt.DocID).Msg("server: dropping undecodable remote event")
		return
	}
	h.ApplyRemote(evt.ClientID, evt.EntryID, evt.Revision, op)
}
