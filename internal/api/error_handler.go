package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/projecthub/portal/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error      string `json:"error"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// listRoutes is where a page goes when the item it asked for is gone.
var listRoutes = map[string]string{
	"task":    "/tasks",
	"project": "/projects",
	"team":    "/teams",
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, resp := resolveError(err, log, c)
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var authErr *domain.AuthenticationError
	var profileErr *domain.ProfileFetchError
	var netErr *domain.NetworkError
	var notFound *domain.NotFoundError

	switch {
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, errorResponse{Error: authErr.Error()}
	case errors.As(err, &profileErr):
		log.Warn().Err(err).Str("path", c.Path()).Msg("profile fetch failed")
		return http.StatusBadGateway, errorResponse{Error: "failed to fetch user profile"}
	case errors.As(err, &notFound):
		return http.StatusNotFound, errorResponse{Error: notFound.Error(), RedirectTo: listRoutes[notFound.Kind]}
	case errors.As(err, &netErr) && netErr.Status >= 400 && netErr.Status < 500:
		return netErr.Status, errorResponse{Error: http.StatusText(netErr.Status)}
	case errors.As(err, &netErr):
		log.Warn().Err(err).Str("path", c.Path()).Msg("backend unavailable")
		return http.StatusBadGateway, errorResponse{Error: "backend unavailable"}
	case errors.Is(err, domain.ErrLoginInProgress):
		return http.StatusConflict, errorResponse{Error: "login already in progress"}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnprocessableEntity, errorResponse{Error: "email and password are required"}
	case errors.Is(err, domain.ErrSessionLoading):
		c.Response().Header().Set("Retry-After", "1")
		return http.StatusServiceUnavailable, errorResponse{Error: "session is loading"}
	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusUnauthorized, errorResponse{Error: "session expired", RedirectTo: domain.LoginRoute}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}
