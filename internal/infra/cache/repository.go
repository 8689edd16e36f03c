package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	domain "github.com/bryanwahyu/argus/internal/domain/analysis"
)

const keyPrefix = "argus:analysis:"

// CachedRepository serves FindByID from the cache. Records are immutable
// after save, so entries never need invalidation.
type CachedRepository struct {
	domain.Repository
	kv     KV
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedRepository(next domain.Repository, kv KV, ttl time.Duration, logger *slog.Logger) *CachedRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedRepository{Repository: next, kv: kv, ttl: ttl, logger: logger}
}

// Save writes through to the cache after the store accepted the record.
func (c *CachedRepository) Save(ctx context.Context, r domain.Record) (domain.Record, error) {
	saved, err := c.Repository.Save(ctx, r)
	if err != nil {
		return domain.Record{}, err
	}
	c.put(ctx, saved)
	return saved, nil
}

// FindByID falls back to the store on a miss or a cache failure.
func (c *CachedRepository) FindByID(ctx context.Context, id domain.ID) (domain.Record, error) {
	raw, ok, err := c.kv.Get(ctx, key(id))
	if err != nil {
		c.logger.WarnContext(ctx, "cache get failed", "id", id, "error", err)
	}
	if ok {
		var r domain.Record
		if err := json.Unmarshal([]byte(raw), &r); err == nil {
			return r, nil
		}
		c.logger.WarnContext(ctx, "cache entry unreadable", "id", id)
	}

	r, err := c.Repository.FindByID(ctx, id)
	if err != nil {
		return domain.Record{}, err
	}
	c.put(ctx, r)
	return r, nil
}

func (c *CachedRepository) put(ctx context.Context, r domain.Record) {
	b, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := c.kv.Set(ctx, key(r.ID), string(b), c.ttl); err != nil {
		c.logger.WarnContext(ctx, "cache set failed", "id", r.ID, "error", err)
	}
}

func key(id domain.ID) string {
	return keyPrefix + strconv.FormatInt(int64(id), 10)
}
