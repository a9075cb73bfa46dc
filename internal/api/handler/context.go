package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/projecthub/portal/internal/api/middleware"
	"github.com/projecthub/portal/internal/core/domain"
	"github.com/projecthub/portal/internal/core/service"
)

// Sessions is the slice of the session store the handlers use.
type Sessions interface {
	Load(ctx context.Context, sessionID string) (service.Snapshot, error)
	Clear(ctx context.Context, sessionID string) error
}

// ctxSession extracts what the Session middleware and the guards put on the
// context. A missing user means the route was mounted without a guard.
func ctxSession(c echo.Context) (sid, token string, user *domain.User, err error) {
	sid = middleware.SessionID(c)
	if sid == "" {
		return "", "", nil, echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}
	user = middleware.CurrentUser(c)
	token = middleware.Token(c)
	if user == nil || token == "" {
		return "", "", nil, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return sid, token, user, nil
}

// expireSession drops a session whose backend token was rejected and sends
// the browser to the login page.
func expireSession(c echo.Context, sessions Sessions, sid string) error {
	if err := sessions.Clear(c.Request().Context(), sid); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, domain.LoginRoute)
}
