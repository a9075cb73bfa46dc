package ports

import (
	"context"

	"github.com/projecthub/portal/internal/core/domain"
)

// LoginInput is the body forwarded to POST /auth/login. SecretCode is passed
// through untouched; role assignment is the backend's business.
type LoginInput struct {
	Email      string
	Password   string
	SecretCode string
}

type TeamInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TeamID      string `json:"team_id"`
	Status      string `json:"status,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

type TaskUpdateInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
	Status      *string `json:"status,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

// AuthBackend covers the two calls the Auth Gateway makes.
type AuthBackend interface {
	Login(ctx context.Context, in LoginInput) (token string, err error)
	Me(ctx context.Context, token string) (*domain.User, error)
}

// StatsBackend fetches the aggregate statistics for the bearer's scope.
type StatsBackend interface {
	StatsOverview(ctx context.Context, token string) (*domain.StatsOverview, error)
}

// WorkspaceBackend covers the team/project/task/comment collaborators.
type WorkspaceBackend interface {
	ListTeams(ctx context.Context, token string) ([]domain.Team, error)
	CreateTeam(ctx context.Context, token string, in TeamInput) (*domain.Team, error)
	ListProjects(ctx context.Context, token, statusFilter string) ([]domain.Project, error)
	CreateProject(ctx context.Context, token string, in ProjectInput) (*domain.Project, error)
	ListTasks(ctx context.Context, token, statusFilter string) ([]domain.Task, error)
	UpdateTask(ctx context.Context, token, taskID string, in TaskUpdateInput) (*domain.Task, error)
	ListComments(ctx context.Context, token, taskID string) ([]domain.Comment, error)
	CreateComment(ctx context.Context, token, taskID, message string) (*domain.Comment, error)
}

// BackendClient is the full REST surface the portal consumes.
type BackendClient interface {
	AuthBackend
	StatsBackend
	WorkspaceBackend
	Ping(ctx context.Context) error
}
