package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("email and password are required")
	ErrLoginInProgress    = errors.New("a login is already in progress for this session")
	ErrSessionExpired     = errors.New("session expired")
	ErrSessionLoading     = errors.New("session is still loading")
	ErrDiscarded          = errors.New("result discarded: request no longer active")
)

// DefaultLoginFailure is shown when the backend rejects a login without a detail.
const DefaultLoginFailure = "Login failed"

// AuthenticationError is a login rejected by the backend (4xx from /auth/login).
type AuthenticationError struct {
	Status  int
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return DefaultLoginFailure
	}
	return e.Message
}

// ProfileFetchError means a token was issued but /auth/me did not confirm it.
type ProfileFetchError struct {
	Cause error
}

func (e *ProfileFetchError) Error() string {
	return fmt.Sprintf("failed to fetch user profile: %v", e.Cause)
}

func (e *ProfileFetchError) Unwrap() error { return e.Cause }

// NetworkError is a failed round-trip to a backend endpoint, including
// non-success statuses outside the login call.
type NetworkError struct {
	Endpoint string
	Status   int
	Cause    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// NotFoundError is an entity missing from what the backend returned.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}
