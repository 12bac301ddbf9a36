// Package adapters provides the pending-guess queue implementation.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"updown_backend/internal/feature/guess/domain/entity"
)

// drainScript removes and returns every member due at or before the given
// unix-millisecond deadline. Range and removal run inside one script, so an
// entry is either returned exactly once or kept, never both and never
// dropped.
var drainScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
if #due > 0 then
  redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
end
return due
`)

// QueueRedis stores pending guesses in a sorted set scored by resolution
// deadline, so draining everything due needs no scan over future entries.
type QueueRedis struct {
	rdb *redis.Client
	key string
}

// NewQueueRedis creates a new QueueRedis instance. An empty key defaults to
// "guesses:pending".
func NewQueueRedis(rdb *redis.Client, key string) *QueueRedis {
	if key == "" {
		key = "guesses:pending"
	}
	return &QueueRedis{rdb: rdb, key: key}
}

// Enqueue inserts a guess keyed by its resolution deadline.
func (q *QueueRedis) Enqueue(ctx context.Context, g entity.PendingGuess) error {
	member, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal guess: %w", err)
	}
	err = q.rdb.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(g.ResolveAt.UnixMilli()),
		Member: string(member),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue guess: %w", err)
	}
	return nil
}

// DrainDue atomically removes and returns every guess with ResolveAt <= now,
// ordered by deadline with ties broken by submission time. A guess returned
// once is never returned again.
func (q *QueueRedis) DrainDue(ctx context.Context, now time.Time) ([]entity.PendingGuess, error) {
	raw, err := drainScript.Run(ctx, q.rdb, []string{q.key}, now.UnixMilli()).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to drain due guesses: %w", err)
	}

	due := make([]entity.PendingGuess, 0, len(raw))
	for _, member := range raw {
		var g entity.PendingGuess
		if err := json.Unmarshal([]byte(member), &g); err != nil {
			// A corrupt member is dropped; it can never resolve anyway.
			continue
		}
		due = append(due, g)
	}

	SortByDeadline(due)
	return due, nil
}

// SortByDeadline orders guesses by ResolveAt ascending, ties broken by
// SubmittedAt ascending. ZRANGEBYSCORE already yields score order, but ties
// come back in member-lexicographic order, so the tie-break is applied here.
func SortByDeadline(guesses []entity.PendingGuess) {
	sort.SliceStable(guesses, func(i, j int) bool {
		if guesses[i].ResolveAt.Equal(guesses[j].ResolveAt) {
			return guesses[i].SubmittedAt.Before(guesses[j].SubmittedAt)
		}
		return guesses[i].ResolveAt.Before(guesses[j].ResolveAt)
	})
}
