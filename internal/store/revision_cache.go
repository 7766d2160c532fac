package store

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"golang.org/x/xerrors"
)

// RevisionCache tracks each document's latest known revision in Redis, so a
// newly connecting server instance can answer "what revision is doc X at"
// without a MySQL round trip.
type RevisionCache struct {
	rdb *redis.Client
}

// NewRevisionCache wraps an already-configured redis.Client.
func NewRevisionCache(rdb *redis.Client) *RevisionCache {
	return &RevisionCache{rdb: rdb}
}

func revisionKey(docID string) string {
	return "otctl:revision:" + docID
}

// SetRevision records revision as docID's latest known revision.
func (c *RevisionCache) SetRevision(ctx context.Context, docID string, revision int) error {
	if err := c.rdb.Set(ctx, revisionKey(docID), revision, 0).Err(); err != nil {
		return xerrors.Errorf("store: cache set revision: %w", err)
	}
	return nil
}

// Revision returns docID's cached revision, and false if nothing is cached.
func (c *RevisionCache) Revision(ctx context.Context, docID string) (int, bool, error) {
	s, err := c.rdb.Get(ctx, revisionKey(docID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, xerrors.Errorf("store: cache get revision: %w", err)
	}
	rev, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, xerrors.Errorf("store: cache parse revision: %w", err)
	}
	return rev, true, nil
}
