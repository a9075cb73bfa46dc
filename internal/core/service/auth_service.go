package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/projecthub/portal/internal/api/metrics"
	"github.com/projecthub/portal/internal/core/domain"
	"github.com/projecthub/portal/internal/core/ports"
)

// AuthService is the Auth Gateway: it turns credentials into a session.
type AuthService struct {
	backend  ports.AuthBackend
	sessions *SessionStore
	audit    ports.AuditRecorder
	log      zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(backend ports.AuthBackend, sessions *SessionStore, audit ports.AuditRecorder, log zerolog.Logger) *AuthService {
	if audit == nil {
		audit = nopRecorder{}
	}
	return &AuthService{
		backend:  backend,
		sessions: sessions,
		audit:    audit,
		log:      log,
		now:      time.Now,
		inflight: make(map[string]struct{}),
	}
}

// Login authenticates against the backend, confirms the profile, persists
// the session and returns the dashboard to redirect to. The token is only
// saved once /auth/me has returned the matching user.
func (s *AuthService) Login(ctx context.Context, sessionID string, in ports.LoginInput) (*ports.LoginResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	if !s.begin(sessionID) {
		metrics.LoginsTotal.WithLabelValues("in_progress").Inc()
		return nil, domain.ErrLoginInProgress
	}
	defer s.end(sessionID)

	token, err := s.backend.Login(ctx, in)
	if err != nil {
		s.failed(sessionID, in.Email, err)
		return nil, err
	}

	user, err := s.backend.Me(ctx, token)
	if err != nil {
		err = &domain.ProfileFetchError{Cause: err}
		s.failed(sessionID, in.Email, err)
		return nil, err
	}

	if err := s.sessions.Save(ctx, sessionID, token, user); err != nil {
		s.failed(sessionID, in.Email, err)
		return nil, err
	}

	redirect := user.Role.DashboardRoute()
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.audit.Record(domain.AuthEvent{
		Type:       domain.EventLoginSucceeded,
		SessionID:  sessionID,
		Email:      user.Email,
		Role:       user.Role,
		Target:     redirect,
		OccurredAt: s.now().UTC(),
	})
	s.log.Info().
		Str("session_id", sessionID).
		Str("email", user.Email).
		Str("role", user.Role.String()).
		Str("redirect_to", redirect).
		Msg("login succeeded")

	return &ports.LoginResult{User: user, RedirectTo: redirect}, nil
}

// Logout clears the session. Bearer tokens are stateless, so the backend is
// not told.
func (s *AuthService) Logout(ctx context.Context, sessionID string) (string, error) {
	var email string
	if u := s.sessions.Snapshot(sessionID).User(); u != nil {
		email = u.Email
	}

	if err := s.sessions.Clear(ctx, sessionID); err != nil {
		return "", err
	}

	s.audit.Record(domain.AuthEvent{
		Type:       domain.EventLogout,
		SessionID:  sessionID,
		Email:      email,
		Target:     domain.LoginRoute,
		OccurredAt: s.now().UTC(),
	})
	s.log.Info().Str("session_id", sessionID).Str("email", email).Msg("logged out")

	return domain.LoginRoute, nil
}

func (s *AuthService) begin(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[sessionID]; busy {
		return false
	}
	s.inflight[sessionID] = struct{}{}
	return true
}

func (s *AuthService) end(sessionID string) {
	s.mu.Lock()
	delete(s.inflight, sessionID)
	s.mu.Unlock()
}

func (s *AuthService) failed(sessionID, email string, err error) {
	reason := "error"
	var authErr *domain.AuthenticationError
	var profileErr *domain.ProfileFetchError
	var netErr *domain.NetworkError
	switch {
	case errors.As(err, &authErr):
		reason = "rejected"
	case errors.As(err, &profileErr):
		reason = "profile_fetch"
	case errors.As(err, &netErr):
		reason = "network"
	}

	metrics.LoginsTotal.WithLabelValues(reason).Inc()
	s.audit.Record(domain.AuthEvent{
		Type:       domain.EventLoginFailed,
		SessionID:  sessionID,
		Email:      email,
		Reason:     reason,
		OccurredAt: s.now().UTC(),
	})
	s.log.Warn().Err(err).
		Str("session_id", sessionID).
		Str("email", email).
		Str("reason", reason).
		Msg("login failed")
}

type nopRecorder struct{}

func (nopRecorder) Record(domain.AuthEvent) {}
