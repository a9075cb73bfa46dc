package ports

import (
	"context"

	"github.com/projecthub/portal/internal/core/domain"
)

// WorkspaceService serves the collaborator pages. List methods never fail
// for backend trouble: they return an empty list and a Notice instead. Only
// ErrSessionExpired and ErrDiscarded escape.
type WorkspaceService interface {
	Teams(ctx context.Context, token string) ([]domain.Team, *Notice, error)
	CreateTeam(ctx context.Context, token string, in TeamInput) (*domain.Team, error)
	Projects(ctx context.Context, token, statusFilter string) ([]domain.Project, *Notice, error)
	CreateProject(ctx context.Context, token string, in ProjectInput) (*domain.Project, error)
	Tasks(ctx context.Context, token, statusFilter string) ([]domain.Task, *Notice, error)
	Task(ctx context.Context, token, taskID string) (*domain.Task, error)
	UpdateTask(ctx context.Context, token, taskID string, in TaskUpdateInput) (*domain.Task, error)
	Comments(ctx context.Context, token, taskID string) ([]domain.Comment, *Notice, error)
	AddComment(ctx context.Context, token, taskID, message string) (*domain.Comment, error)
}
