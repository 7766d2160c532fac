// Package store persists document snapshots and operation history to MySQL
// via GORM, and caches the latest known revision per document in Redis.
package store

import (
	"context"
	"time"

	"golang.org/x/xerrors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// DocumentSnapshot is a point-in-time copy of a document's text at a given
// revision, used to bound how far back the server must replay history.
type DocumentSnapshot struct {
	ID        uint      `gorm:"primarykey"`
	DocID     string    `gorm:"index:idx_doc_rev,unique"`
	Revision  int       `gorm:"index:idx_doc_rev,unique"`
	Content   string    `gorm:"type:longtext"`
	CreatedAt time.Time
}

// HistoryEntry is one accepted operation against a document, stored for
// replay and audit; it mirrors history.Entry without importing it, since
// store must not depend on the server-side history package.
type HistoryEntry struct {
	ID        uint   `gorm:"primarykey"`
	DocID     string `gorm:"index:idx_doc_hist_rev,unique"`
	Revision  int    `gorm:"index:idx_doc_hist_rev,unique"`
	ClientID  string
	EntryID   string
	OpJSON    []byte `gorm:"type:longtext"`
	CreatedAt time.Time
}

// DocumentStore is the GORM-backed persistence layer for documents.
type DocumentStore struct {
	db *gorm.DB
}

// Open connects to MySQL at dsn and migrates the document tables.
func Open(dsn string) (*DocumentStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, xerrors.Errorf("store: open mysql: %w", err)
	}
	if err := db.AutoMigrate(&DocumentSnapshot{}, &HistoryEntry{}); err != nil {
		return nil, xerrors.Errorf("store: automigrate: %w", err)
	}
	return &DocumentStore{db: db}, nil
}

// NewWithDB wraps an already-opened *gorm.DB, e.g. from a test's in-memory
// sqlite connection.
func NewWithDB(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// SaveSnapshot records content as the document's state at revision.
func (s *DocumentStore) SaveSnapshot(ctx context.Context, docID string, revision int, content string) error {
	snap := DocumentSnapshot{DocID: docID, Revision: revision, Content: content}
	if err := s.db.WithContext(ctx).Create(&snap).Error; err != nil {
		return xerrors.Errorf("store: save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the highest-revision snapshot for docID, or
// gorm.ErrRecordNotFound if none exists.
func (s *DocumentStore) LatestSnapshot(ctx context.Context, docID string) (*DocumentSnapshot, error) {
	var snap DocumentSnapshot
	err := s.db.WithContext(ctx).
		Where("doc_id = ?", docID).
		Order("revision desc").
		First(&snap).Error
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// AppendHistory records an accepted operation for replay/audit.
func (s *DocumentStore) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return xerrors.Errorf("store: append history: %w", err)
	}
	return nil
}

// HistorySince returns every HistoryEntry for docID with revision > after,
// ordered oldest first.
func (s *DocumentStore) HistorySince(ctx context.Context, docID string, after int) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := s.db.WithContext(ctx).
		Where("doc_id = ? AND revision > ?", docID, after).
		Order("revision asc").
		Find(&entries).Error
	if err != nil {
		return nil, xerrors.Errorf("store: history since: %w", err)
	}
	return entries, nil
}
