package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/dal/interfaces/iexcludedrepo"
	"github.com/redis/go-redis/v9"
)

const defaultKey = "kitchen:excluded_products"

// CachedExcludedRepository caches the excluded product set in Redis in front of another repository.
// The set is stored as a JSON array so an empty set is cacheable too. Entries live under a
// generation-numbered key; Replace bumps the generation, so a read that raced with it can
// only repopulate a key nobody reads anymore.
type CachedExcludedRepository struct {
	next   iexcludedrepo.IExcludedRepository
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewCachedExcludedRepository wraps next with a Redis cache.
func NewCachedExcludedRepository(
	next iexcludedrepo.IExcludedRepository,
	client *redis.Client,
	ttl time.Duration,
) *CachedExcludedRepository {
	return &CachedExcludedRepository{
		next:   next,
		client: client,
		key:    defaultKey,
		ttl:    ttl,
	}
}

func (r *CachedExcludedRepository) generationKey() string {
	return r.key + ":gen"
}

// entryKey returns the key of the current generation. ok is false when Redis is unreachable.
func (r *CachedExcludedRepository) entryKey(ctx context.Context) (key string, ok bool) {
	gen, err := r.client.Get(ctx, r.generationKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		slog.Warn("Excluded products cache read failed", "error", err)

		return "", false
	}

	return fmt.Sprintf("%s:%d", r.key, gen), true
}

// List serves the set from Redis and falls back to the wrapped repository on a miss.
// Redis failures degrade to an uncached read.
func (r *CachedExcludedRepository) List(ctx context.Context) ([]string, error) {
	key, cached := r.entryKey(ctx)
	if cached {
		raw, err := r.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var ids []string
			if err := json.Unmarshal(raw, &ids); err == nil {
				return ids, nil
			}
			slog.Warn("Dropping malformed excluded products cache entry", "key", key)
		case !errors.Is(err, redis.Nil):
			slog.Warn("Excluded products cache read failed", "error", err)
		}
	}

	ids, err := r.next.List(ctx)
	if err != nil {
		return nil, err
	}

	if ids == nil {
		ids = []string{}
	}
	if !cached {
		return ids, nil
	}

	payload, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal excluded products: %w", err)
	}
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		slog.Warn("Excluded products cache write failed", "error", err)
	}

	return ids, nil
}

// Replace writes through and moves the cache to a new generation. The write is
// durable once the wrapped repository returns; a failed invalidation is only logged
// and the old entry ages out with its TTL.
func (r *CachedExcludedRepository) Replace(ctx context.Context, ids []string) error {
	if err := r.next.Replace(ctx, ids); err != nil {
		return err
	}

	if err := r.client.Incr(ctx, r.generationKey()).Err(); err != nil {
		slog.Warn("Excluded products cache invalidation failed", "ttl", r.ttl, "error", err)
	}

	return nil
}
