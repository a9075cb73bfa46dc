package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/projecthub/portal/internal/core/domain"
	"github.com/projecthub/portal/internal/core/ports"
)

// DedupChecker abstracts the idempotency store (Redis) used to record each
// guard redirect once per session state. Reset forgets every state of a
// session.
type DedupChecker interface {
	IsDuplicate(ctx context.Context, sessionID, state string) (bool, error)
	Mark(ctx context.Context, sessionID, state string) error
	Reset(ctx context.Context, sessionID string) error
}

type auditService struct {
	repo  ports.AuditRepository
	dedup DedupChecker
	log   zerolog.Logger
}

// NewAuditService returns an AuditService. repo and dedup may be nil: without
// a repository events are only logged, without dedup every redirect counts.
func NewAuditService(repo ports.AuditRepository, dedup DedupChecker, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, dedup: dedup, log: log}
}

// Process deduplicates guard redirects, then persists and logs the event.
// Login and logout start a new run of session states, so they clear the
// session's redirect marks.
func (s *auditService) Process(ctx context.Context, ev domain.AuthEvent) error {
	if (ev.Type == domain.EventLoginSucceeded || ev.Type == domain.EventLogout) && s.dedup != nil {
		if err := s.dedup.Reset(ctx, ev.SessionID); err != nil {
			s.log.Warn().Err(err).Str("session_id", ev.SessionID).Msg("failed to reset dedup keys")
		}
	}

	if ev.Type == domain.EventGuardRedirect && s.dedup != nil {
		state := redirectState(ev)
		isDup, err := s.dedup.IsDuplicate(ctx, ev.SessionID, state)
		if err != nil {
			s.log.Warn().Err(err).Str("session_id", ev.SessionID).Msg("dedup check failed, recording anyway")
		} else if isDup {
			s.log.Debug().Str("session_id", ev.SessionID).Str("target", ev.Target).Msg("duplicate redirect skipped")
			return nil
		}
		if markErr := s.dedup.Mark(ctx, ev.SessionID, state); markErr != nil {
			s.log.Warn().Err(markErr).Str("session_id", ev.SessionID).Msg("failed to set dedup key")
		}
	}

	if s.repo != nil {
		if err := s.repo.InsertEvent(ctx, &ev); err != nil {
			return fmt.Errorf("record %s: %w", ev.Type, err)
		}
	}

	s.log.Info().
		Str("event", string(ev.Type)).
		Str("session_id", ev.SessionID).
		Str("email", ev.Email).
		Str("target", ev.Target).
		Str("reason", ev.Reason).
		Msg("auth event")

	return nil
}

// redirectState keys a redirect by who was redirected and where, so a
// repeated evaluation of the same session state is recorded once.
func redirectState(ev domain.AuthEvent) string {
	return fmt.Sprintf("%s:%s:%s", ev.Email, ev.Role, ev.Target)
}
