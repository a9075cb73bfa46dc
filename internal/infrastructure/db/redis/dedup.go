package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = time.Hour

// DedupChecker provides idempotency checks backed by Redis.
// Key format: portal:dedup:<session_id>:<state>
type DedupChecker struct {
	client *redis.Client
}

// NewDedupChecker creates a DedupChecker wrapping the given Redis client.
func NewDedupChecker(client *redis.Client) *DedupChecker {
	return &DedupChecker{client: client}
}

// IsDuplicate reports whether this session state was already recorded.
func (d *DedupChecker) IsDuplicate(ctx context.Context, sessionID, state string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(sessionID, state)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records the session state (expires after dedupTTL).
func (d *DedupChecker) Mark(ctx context.Context, sessionID, state string) error {
	return d.client.Set(ctx, d.key(sessionID, state), "1", dedupTTL).Err()
}

// Reset deletes every mark of the session.
func (d *DedupChecker) Reset(ctx context.Context, sessionID string) error {
	iter := d.client.Scan(ctx, 0, d.key(sessionID, "*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("dedup scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := d.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("dedup reset: %w", err)
	}
	return nil
}

func (d *DedupChecker) key(sessionID, state string) string {
	return fmt.Sprintf("portal:dedup:%s:%s", sessionID, state)
}
