package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/projecthub/portal/internal/core/domain"
	"github.com/projecthub/portal/internal/core/service"
)

const testSID = "sid-1"

// newContext builds a request context the way the Session middleware and a
// guard would leave it. A nil user leaves the request unauthenticated.
func newContext(method, target string, body io.Reader, contentType string, user *domain.User) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("session_id", testSID)
	if user != nil {
		c.Set("user", user)
		c.Set("token", "tok")
	}
	return c, rec
}

type stubSessions struct {
	mu       sync.Mutex
	snap     service.Snapshot
	loadErr  error
	clearErr error
	cleared  []string
}

func (s *stubSessions) Load(ctx context.Context, sessionID string) (service.Snapshot, error) {
	return s.snap, s.loadErr
}

func (s *stubSessions) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	s.cleared = append(s.cleared, sessionID)
	return nil
}

func loggedIn(user *domain.User) service.Snapshot {
	return service.Snapshot{Status: service.StatusReady, Session: domain.Session{Token: "tok", User: user}}
}
