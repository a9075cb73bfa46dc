package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/projecthub/portal/internal/api/metrics"
	"github.com/projecthub/portal/internal/core/domain"
	"github.com/projecthub/portal/internal/core/guard"
	"github.com/projecthub/portal/internal/core/ports"
	"github.com/projecthub/portal/internal/core/service"
)

// SessionLoader is the part of the session store the guards need.
type SessionLoader interface {
	Load(ctx context.Context, sessionID string) (service.Snapshot, error)
}

// Guards builds route guards over one session store.
type Guards struct {
	sessions SessionLoader
	audit    ports.AuditRecorder
	log      zerolog.Logger
}

func NewGuards(sessions SessionLoader, audit ports.AuditRecorder, log zerolog.Logger) *Guards {
	return &Guards{sessions: sessions, audit: audit, log: log}
}

// RequireAuth admits any logged-in user.
func (g *Guards) RequireAuth() echo.MiddlewareFunc {
	return g.enforce(guard.Authenticated())
}

// RequireRole admits logged-in users with one of allowed. Anyone else who is
// logged in is sent to their own dashboard.
func (g *Guards) RequireRole(allowed ...domain.Role) echo.MiddlewareFunc {
	return g.enforce(guard.Roles(allowed...))
}

func (g *Guards) enforce(policy guard.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := SessionID(c)
			snap, err := g.sessions.Load(c.Request().Context(), sid)
			if err != nil {
				g.log.Warn().Err(err).Str("session_id", sid).Msg("session load failed")
			}

			// Each request is one page instance, so it gets its own machine.
			// Repeat redirects across requests are deduplicated by the audit
			// service.
			m := guard.NewMachine(policy)
			d, redirect := m.Update(guard.Input{Loading: snap.Loading(), User: snap.User()})
			metrics.GuardDecisionsTotal.WithLabelValues(policy.Name(), d.State.String()).Inc()

			switch d.State {
			case guard.StateLoading:
				return domain.ErrSessionLoading
			case guard.StateRedirecting:
				if redirect {
					g.recordRedirect(c, sid, snap.User(), d)
				}
				return c.Redirect(http.StatusFound, d.RedirectTo)
			}

			c.Set(keyUser, snap.User())
			c.Set(keyToken, snap.Session.Token)
			return next(c)
		}
	}
}

func (g *Guards) recordRedirect(c echo.Context, sid string, user *domain.User, d guard.Decision) {
	ev := domain.AuthEvent{
		Type:       domain.EventGuardRedirect,
		SessionID:  sid,
		Target:     d.RedirectTo,
		Reason:     d.Reason,
		OccurredAt: time.Now().UTC(),
	}
	if user != nil {
		ev.Email = user.Email
		ev.Role = user.Role
	}
	if g.audit != nil {
		g.audit.Record(ev)
	}
	g.log.Debug().
		Str("session_id", sid).
		Str("path", c.Path()).
		Str("target", d.RedirectTo).
		Str("reason", d.Reason).
		Msg("guard redirect")
}
