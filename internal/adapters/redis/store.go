package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"review_analyzer/internal/adapters/observability"
	"review_analyzer/internal/domain"
)

// appendScript claims the id in the id set and pushes the record only if
// the id was new, so the pair is atomic.
// KEYS: [1]=log list, [2]=id set. ARGV: [1]=id, [2]=record JSON.
// Returns the new list length, or 0 on a duplicate id.
var appendScript = redis.NewScript(`
if redis.call('SADD', KEYS[2], ARGV[1]) == 0 then
  return 0
end
return redis.call('RPUSH', KEYS[1], ARGV[2])
`)

// Store keeps reviews as JSON entries of a Redis list, in append order.
type Store struct {
	c      redis.UniversalClient
	logKey string
	idsKey string
}

func New(addr, pass string, db int, prefix string) *Store {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}), prefix)
}

func NewWithClient(c redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "reviews"
	}
	return &Store{c: c, logKey: prefix + ":log", idsKey: prefix + ":ids"}
}

func (s *Store) Ping(ctx context.Context) error { return s.c.Ping(ctx).Err() }

func (s *Store) Close() error { return s.c.Close() }

func (s *Store) Append(ctx context.Context, r domain.Review) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	n, err := appendScript.Run(ctx, s.c, []string{s.logKey, s.idsKey}, r.ID, b).Int64()
	if err != nil {
		observability.ObserveAppend("redis", "error")
		return "", fmt.Errorf("redis append %s: %w", r.ID, err)
	}
	if n == 0 {
		observability.ObserveAppend("redis", "duplicate")
		return "", fmt.Errorf("append %s: %w", r.ID, domain.ErrDuplicateID)
	}
	observability.ObserveAppend("redis", "ok")
	observability.SetStoreSize("redis", int(n))
	return r.ID, nil
}

// Snapshot is a single LRANGE, which Redis serves atomically.
func (s *Store) Snapshot(ctx context.Context) ([]domain.Review, error) {
	raw, err := s.c.LRange(ctx, s.logKey, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis snapshot: %w", err)
	}
	out := make([]domain.Review, 0, len(raw))
	for i, item := range raw {
		var r domain.Review
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("redis snapshot: entry %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) Len(ctx context.Context) (int, error) {
	n, err := s.c.LLen(ctx, s.logKey).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
