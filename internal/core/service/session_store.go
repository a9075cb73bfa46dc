package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/projecthub/portal/internal/api/metrics"
	"github.com/projecthub/portal/internal/core/domain"
	"github.com/projecthub/portal/internal/core/ports"
)

// SessionStatus tells readers whether the durable state has been read yet.
type SessionStatus int

const (
	StatusLoading SessionStatus = iota
	StatusReady
)

func (s SessionStatus) String() string {
	if s == StatusReady {
		return "ready"
	}
	return "loading"
}

// Snapshot is a consistent read of one session.
type Snapshot struct {
	Status  SessionStatus
	Session domain.Session
}

func (s Snapshot) Loading() bool { return s.Status == StatusLoading }

// User returns the session user, or nil while loading or logged out.
func (s Snapshot) User() *domain.User {
	if s.Status != StatusReady {
		return nil
	}
	return s.Session.User
}

var errIncompleteSession = errors.New("token and user must both be present")

type sessionEntry struct {
	mu       sync.Mutex
	status   SessionStatus
	loading  bool
	gen      uint64
	session  domain.Session
	lastSeen time.Time
}

// SessionStore is the single source of truth for "who is logged in" per
// browser session. Memory mirrors durable storage; every write goes to
// storage first and memory only after the write succeeded.
type SessionStore struct {
	storage ports.SessionStorage
	log     zerolog.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

func NewSessionStore(storage ports.SessionStorage, log zerolog.Logger) *SessionStore {
	return &SessionStore{
		storage: storage,
		log:     log,
		now:     time.Now,
		entries: make(map[string]*sessionEntry),
	}
}

func (s *SessionStore) entry(sessionID string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionID]
	if !ok {
		e = &sessionEntry{status: StatusLoading}
		s.entries[sessionID] = e
	}
	e.lastSeen = s.now()
	return e
}

// Snapshot returns the in-memory state without touching storage. A session
// that was never loaded reports StatusLoading.
func (s *SessionStore) Snapshot(sessionID string) Snapshot {
	e := s.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{Status: e.status, Session: e.session}
}

// Load reads the persisted token and user into memory. If another caller is
// already loading the same session, Load returns the loading snapshot
// immediately. A storage failure leaves the session loading and is returned.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (Snapshot, error) {
	e := s.entry(sessionID)

	e.mu.Lock()
	if e.status == StatusReady || e.loading {
		snap := Snapshot{Status: e.status, Session: e.session}
		e.mu.Unlock()
		return snap, nil
	}
	e.loading = true
	gen := e.gen
	e.mu.Unlock()

	session, err := s.read(ctx, sessionID)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.loading = false
	if err != nil {
		metrics.SessionsLoadedTotal.WithLabelValues("error").Inc()
		return Snapshot{Status: e.status, Session: e.session}, err
	}
	if session.Authenticated() {
		metrics.SessionsLoadedTotal.WithLabelValues("authenticated").Inc()
	} else {
		metrics.SessionsLoadedTotal.WithLabelValues("anonymous").Inc()
	}
	// A Save or Clear that landed while we were reading is newer than what
	// we read; keep it.
	if e.gen == gen {
		e.session = session
		e.status = StatusReady
	}
	return Snapshot{Status: e.status, Session: e.session}, nil
}

func (s *SessionStore) read(ctx context.Context, sessionID string) (domain.Session, error) {
	stored, err := s.storage.Get(ctx, sessionID)
	if errors.Is(err, ports.ErrNoSession) {
		return domain.Session{}, nil
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	if stored.Token == "" || stored.User == "" {
		return domain.Session{}, nil
	}

	var user domain.User
	if err := json.Unmarshal([]byte(stored.User), &user); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("discarding undecodable stored user")
		s.discard(ctx, sessionID)
		return domain.Session{}, nil
	}

	if expired(stored.Token, s.now()) {
		s.log.Info().Str("session_id", sessionID).Str("email", user.Email).Msg("stored token expired")
		s.discard(ctx, sessionID)
		return domain.Session{}, nil
	}

	return domain.Session{Token: stored.Token, User: &user}, nil
}

func (s *SessionStore) discard(ctx context.Context, sessionID string) {
	if err := s.storage.Delete(ctx, sessionID); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to delete stale session")
	}
}

// Save persists token and user as one write, then mirrors them in memory.
func (s *SessionStore) Save(ctx context.Context, sessionID, token string, user *domain.User) error {
	if token == "" || user == nil {
		return fmt.Errorf("save session: %w", errIncompleteSession)
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("save session: encode user: %w", err)
	}

	e := s.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.storage.Put(ctx, sessionID, ports.StoredSession{Token: token, User: string(raw)}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	copied := *user
	e.session = domain.Session{Token: token, User: &copied}
	e.status = StatusReady
	e.gen++
	return nil
}

// Clear removes both fields from storage and memory.
func (s *SessionStore) Clear(ctx context.Context, sessionID string) error {
	e := s.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.storage.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	e.session = domain.Session{}
	e.status = StatusReady
	e.gen++
	return nil
}

// Sweep drops in-memory entries idle for longer than idle. Durable state is
// untouched; the next request for a swept session loads it again.
func (s *SessionStore) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.entries {
		e.mu.Lock()
		stale := !e.loading && e.lastSeen.Before(cutoff)
		e.mu.Unlock()
		if stale {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// expired peeks at a JWT's exp claim without verifying the signature; the
// token is the backend's and we hold no key for it. Tokens that are not
// JWTs, or carry no exp, never expire here.
func expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
