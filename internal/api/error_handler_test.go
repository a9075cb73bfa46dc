package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/projecthub/portal/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		code     int
		message  string
		redirect string
	}{
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), http.StatusBadRequest, "invalid payload", ""},
		{"login rejected", &domain.AuthenticationError{Status: 401, Message: "Incorrect email or password"}, http.StatusUnauthorized, "Incorrect email or password", ""},
		{"login rejected without detail", &domain.AuthenticationError{Status: 400}, http.StatusUnauthorized, domain.DefaultLoginFailure, ""},
		{"profile fetch", &domain.ProfileFetchError{Cause: errors.New("boom")}, http.StatusBadGateway, "failed to fetch user profile", ""},
		{"task missing", &domain.NotFoundError{Kind: "task", ID: "t-1"}, http.StatusNotFound, "task t-1 not found", "/tasks"},
		{"backend forbids", &domain.NetworkError{Endpoint: "/teams/", Status: http.StatusForbidden}, http.StatusForbidden, "Forbidden", ""},
		{"backend down", &domain.NetworkError{Endpoint: "/teams/", Cause: errors.New("dial tcp")}, http.StatusBadGateway, "backend unavailable", ""},
		{"backend 500", &domain.NetworkError{Endpoint: "/teams/", Status: 500}, http.StatusBadGateway, "backend unavailable", ""},
		{"login in progress", domain.ErrLoginInProgress, http.StatusConflict, "login already in progress", ""},
		{"missing credentials", domain.ErrInvalidCredentials, http.StatusUnprocessableEntity, "email and password are required", ""},
		{"session loading", domain.ErrSessionLoading, http.StatusServiceUnavailable, "session is loading", ""},
		{"session expired", fmt.Errorf("/teams/: %w", domain.ErrSessionExpired), http.StatusUnauthorized, "session expired", domain.LoginRoute},
		{"unexpected", errors.New("nil map"), http.StatusInternalServerError, "internal server error", ""},
	}

	handler := NewHTTPErrorHandler(zerolog.Nop())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			handler(tc.err, c)

			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Error != tc.message || resp.RedirectTo != tc.redirect {
				t.Fatalf("got %+v", resp)
			}
		})
	}
}

func TestHTTPErrorHandler_LoadingSetsRetryAfter(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop())(domain.ErrSessionLoading, c)
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After: 1, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestHTTPErrorHandler_CommittedResponseUntouched(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = c.String(http.StatusOK, "done")

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("late"), c)
	if rec.Code != http.StatusOK || rec.Body.String() != "done" {
		t.Fatalf("committed response changed: %d %q", rec.Code, rec.Body.String())
	}
}
