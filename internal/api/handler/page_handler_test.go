package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/projecthub/portal/internal/core/domain"
	"github.com/projecthub/portal/internal/core/ports"
	"github.com/projecthub/portal/internal/core/service"
)

type stubStats struct {
	fn func(ctx context.Context, token string, role domain.Role) (*ports.DashboardStats, error)
}

func (s *stubStats) Dashboard(ctx context.Context, token string, role domain.Role) (*ports.DashboardStats, error) {
	return s.fn(ctx, token, role)
}

func TestPageHandler_Home(t *testing.T) {
	manager := &domain.User{ID: "u1", Role: domain.RoleManager}
	cases := []struct {
		name     string
		snap     service.Snapshot
		code     int
		location string
	}{
		{"anonymous", service.Snapshot{Status: service.StatusReady}, http.StatusOK, ""},
		{"logged in", loggedIn(manager), http.StatusFound, domain.ManagerDashboardRoute},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewPageHandler(&stubSessions{snap: tc.snap}, &stubStats{}, zerolog.Nop())
			c, rec := newContext(http.MethodGet, "/", nil, "", nil)

			if err := h.Home(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			if got := rec.Header().Get("Location"); got != tc.location {
				t.Fatalf("location = %q, want %q", got, tc.location)
			}
		})
	}
}

func TestPageHandler_LoadingReturnsSessionLoading(t *testing.T) {
	h := NewPageHandler(&stubSessions{snap: service.Snapshot{Status: service.StatusLoading}, loadErr: errors.New("redis down")}, &stubStats{}, zerolog.Nop())

	for name, fn := range map[string]func(echo.Context) error{"home": h.Home, "login": h.LoginView} {
		c, rec := newContext(http.MethodGet, "/", nil, "", nil)
		if err := fn(c); !errors.Is(err, domain.ErrSessionLoading) {
			t.Fatalf("%s: expected ErrSessionLoading, got %v", name, err)
		}
		if rec.Body.Len() != 0 {
			t.Fatalf("%s: nothing may be written while loading, got %q", name, rec.Body.String())
		}
	}
}

func TestPageHandler_RoleDashboard(t *testing.T) {
	var gotRole domain.Role
	stats := &stubStats{fn: func(ctx context.Context, token string, role domain.Role) (*ports.DashboardStats, error) {
		if token != "tok" {
			t.Fatalf("unexpected token %q", token)
		}
		gotRole = role
		return service.BuildDashboard(domain.StatsOverview{Teams: 2}, role), nil
	}}
	h := NewPageHandler(&stubSessions{}, stats, zerolog.Nop())

	c, rec := newContext(http.MethodGet, "/user/dashboard", nil, "", &domain.User{ID: "u1", Role: domain.RoleUnknown})
	if err := h.RoleDashboard(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotRole != domain.RoleUnknown {
		t.Fatalf("stats asked for role %q", gotRole)
	}

	var view struct {
		View  string `json:"view"`
		Stats struct {
			Cards []ports.StatCard `json:"cards"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if view.View != "member_dashboard" {
		t.Fatalf("view = %q", view.View)
	}
	if len(view.Stats.Cards) != 1 {
		t.Fatalf("member should see one card, got %d", len(view.Stats.Cards))
	}
}

func TestPageHandler_RoleDashboard_ExpiredTokenLogsOut(t *testing.T) {
	sessions := &stubSessions{}
	stats := &stubStats{fn: func(ctx context.Context, token string, role domain.Role) (*ports.DashboardStats, error) {
		return nil, domain.ErrSessionExpired
	}}
	h := NewPageHandler(sessions, stats, zerolog.Nop())

	c, rec := newContext(http.MethodGet, "/admin/dashboard", nil, "", &domain.User{ID: "u1", Role: domain.RoleAdmin})
	if err := h.RoleDashboard(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != domain.LoginRoute {
		t.Fatalf("got %d to %q", rec.Code, rec.Header().Get("Location"))
	}
	if len(sessions.cleared) != 1 || sessions.cleared[0] != testSID {
		t.Fatalf("session not cleared: %v", sessions.cleared)
	}
}

func TestPageHandler_RoleDashboard_DiscardedWritesNothing(t *testing.T) {
	stats := &stubStats{fn: func(ctx context.Context, token string, role domain.Role) (*ports.DashboardStats, error) {
		return nil, domain.ErrDiscarded
	}}
	h := NewPageHandler(&stubSessions{}, stats, zerolog.Nop())

	c, rec := newContext(http.MethodGet, "/admin/dashboard", nil, "", &domain.User{ID: "u1", Role: domain.RoleAdmin})
	if err := h.RoleDashboard(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if c.Response().Committed || rec.Body.Len() != 0 {
		t.Fatalf("nothing should be written, got %q", rec.Body.String())
	}
}

func TestPageHandler_Dashboard(t *testing.T) {
	h := NewPageHandler(&stubSessions{}, &stubStats{}, zerolog.Nop())
	c, rec := newContext(http.MethodGet, "/dashboard", nil, "", &domain.User{ID: "u1", Role: domain.RoleMember})

	if err := h.Dashboard(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
