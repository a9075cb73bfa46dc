package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/projecthub/portal/internal/core/ports"
)

const (
	fieldToken = "token"
	fieldUser  = "user"
)

// SessionStorage keeps each session as a hash with the fields `token` and
// `user`. The hash expires ttl after the last Put; reads do not extend it.
// Key format: portal:session:<session_id>
type SessionStorage struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.SessionStorage = (*SessionStorage)(nil)

func NewSessionStorage(client *redis.Client, ttl time.Duration) *SessionStorage {
	return &SessionStorage{client: client, ttl: ttl}
}

func (s *SessionStorage) Get(ctx context.Context, sessionID string) (ports.StoredSession, error) {
	vals, err := s.client.HMGet(ctx, s.key(sessionID), fieldToken, fieldUser).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ports.StoredSession{}, ports.ErrNoSession
		}
		return ports.StoredSession{}, fmt.Errorf("redis get session: %w", err)
	}

	token, _ := vals[0].(string)
	user, _ := vals[1].(string)
	if token == "" && user == "" {
		return ports.StoredSession{}, ports.ErrNoSession
	}
	return ports.StoredSession{Token: token, User: user}, nil
}

// Put replaces both fields in one MULTI so a reader never sees a token from
// one login next to the user of another.
func (s *SessionStorage) Put(ctx context.Context, sessionID string, st ports.StoredSession) error {
	key := s.key(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fieldToken, st.Token, fieldUser, st.User)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put session: %w", err)
	}
	return nil
}

func (s *SessionStorage) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func (s *SessionStorage) key(sessionID string) string {
	return "portal:session:" + sessionID
}
