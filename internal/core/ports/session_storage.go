package ports

import (
	"context"
	"errors"
)

// ErrNoSession is returned by SessionStorage.Get when nothing is persisted
// for the session id.
var ErrNoSession = errors.New("no persisted session")

// StoredSession is the durable form of a session: the raw `token` and `user`
// fields exactly as written to client storage.
type StoredSession struct {
	Token string
	User  string
}

// SessionStorage is the durable key-value store behind the Session Store.
// Put must write both fields atomically.
type SessionStorage interface {
	Get(ctx context.Context, sessionID string) (StoredSession, error)
	Put(ctx context.Context, sessionID string, s StoredSession) error
	Delete(ctx context.Context, sessionID string) error
}
