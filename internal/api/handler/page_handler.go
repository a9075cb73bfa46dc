package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/projecthub/portal/internal/api/middleware"
	"github.com/projecthub/portal/internal/core/domain"
	"github.com/projecthub/portal/internal/core/ports"
)

// PageHandler serves the home, login and dashboard views.
type PageHandler struct {
	sessions Sessions
	stats    ports.StatsService
	log      zerolog.Logger
}

func NewPageHandler(sessions Sessions, stats ports.StatsService, log zerolog.Logger) *PageHandler {
	return &PageHandler{sessions: sessions, stats: stats, log: log}
}

// Home sends a logged-in user to their dashboard and shows the landing view
// to everyone else.
//
// @Summary      Landing page
// @Tags         pages
// @Produce      json
// @Success      200  {object}  homeView
// @Success      302  "logged in, redirected to the role dashboard"
// @Failure      503  {object}  errorResponse
// @Router       / [get]
func (h *PageHandler) Home(c echo.Context) error {
	return h.anonymous(c, homeView{View: "home", Title: "Project Manager", Login: domain.LoginRoute})
}

// LoginView shows the login form, or the dashboard when already logged in.
//
// @Summary      Login page
// @Tags         pages
// @Produce      json
// @Success      200  {object}  loginView
// @Success      302  "logged in, redirected to the role dashboard"
// @Failure      503  {object}  errorResponse
// @Router       /login [get]
func (h *PageHandler) LoginView(c echo.Context) error {
	return h.anonymous(c, loginView{View: "login", Fields: []string{"email", "password", "secret_code"}})
}

func (h *PageHandler) anonymous(c echo.Context, view any) error {
	sid := middleware.SessionID(c)
	snap, err := h.sessions.Load(c.Request().Context(), sid)
	if err != nil {
		h.log.Warn().Err(err).Str("session_id", sid).Msg("session load failed")
	}
	if snap.Loading() {
		return domain.ErrSessionLoading
	}
	if user := snap.User(); user != nil {
		return c.Redirect(http.StatusFound, user.Role.DashboardRoute())
	}
	return c.JSON(http.StatusOK, view)
}

// Dashboard is the generic dashboard open to every logged-in user.
//
// @Summary      Generic dashboard
// @Tags         pages
// @Produce      json
// @Success      200  {object}  dashboardView
// @Failure      302  "not logged in, redirected to /login"
// @Failure      503  {object}  errorResponse
// @Router       /dashboard [get]
func (h *PageHandler) Dashboard(c echo.Context) error {
	_, _, user, err := ctxSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dashboardView{View: "dashboard", User: user})
}

// RoleDashboard renders the statistics dashboard of the current role. A
// failed stats fetch still renders, with zeros and a notice.
//
// @Summary      Role dashboard
// @Tags         pages
// @Produce      json
// @Success      200  {object}  statsDashboardView
// @Failure      302  "redirected to /login or to the role's own dashboard"
// @Failure      503  {object}  errorResponse
// @Router       /admin/dashboard [get]
// @Router       /manager/dashboard [get]
// @Router       /user/dashboard [get]
func (h *PageHandler) RoleDashboard(c echo.Context) error {
	sid, token, user, err := ctxSession(c)
	if err != nil {
		return err
	}

	stats, err := h.stats.Dashboard(c.Request().Context(), token, user.Role)
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return expireSession(c, h.sessions, sid)
	case errors.Is(err, domain.ErrDiscarded):
		return nil
	case err != nil:
		return err
	}

	return c.JSON(http.StatusOK, statsDashboardView{
		View:  string(user.Role.Routing()) + "_dashboard",
		User:  user,
		Stats: *stats,
	})
}
