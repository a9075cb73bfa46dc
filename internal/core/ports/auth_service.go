package ports

import (
	"context"

	"github.com/projecthub/portal/internal/core/domain"
)

// LoginResult is what the login form needs: who logged in and where to go.
type LoginResult struct {
	User       *domain.User
	RedirectTo string
}

type AuthService interface {
	Login(ctx context.Context, sessionID string, in LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) (redirectTo string, err error)
}
