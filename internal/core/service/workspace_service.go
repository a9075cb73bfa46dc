package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/projecthub/portal/internal/core/domain"
	"github.com/projecthub/portal/internal/core/ports"
)

// WorkspaceService fronts the team/project/task/comment collaborators.
// Listing failures degrade to an empty list plus a notice.
type WorkspaceService struct {
	backend ports.WorkspaceBackend
	log     zerolog.Logger
}

var _ ports.WorkspaceService = (*WorkspaceService)(nil)

func NewWorkspaceService(backend ports.WorkspaceBackend, log zerolog.Logger) *WorkspaceService {
	return &WorkspaceService{backend: backend, log: log}
}

func (s *WorkspaceService) Teams(ctx context.Context, token string) ([]domain.Team, *ports.Notice, error) {
	teams, err := s.backend.ListTeams(ctx, token)
	return settle(ctx, s.log, "teams", teams, err)
}

func (s *WorkspaceService) CreateTeam(ctx context.Context, token string, in ports.TeamInput) (*domain.Team, error) {
	return s.backend.CreateTeam(ctx, token, in)
}

func (s *WorkspaceService) Projects(ctx context.Context, token, statusFilter string) ([]domain.Project, *ports.Notice, error) {
	projects, err := s.backend.ListProjects(ctx, token, normaliseFilter(statusFilter))
	return settle(ctx, s.log, "projects", projects, err)
}

func (s *WorkspaceService) CreateProject(ctx context.Context, token string, in ports.ProjectInput) (*domain.Project, error) {
	return s.backend.CreateProject(ctx, token, in)
}

func (s *WorkspaceService) Tasks(ctx context.Context, token, statusFilter string) ([]domain.Task, *ports.Notice, error) {
	tasks, err := s.backend.ListTasks(ctx, token, normaliseFilter(statusFilter))
	return settle(ctx, s.log, "tasks", tasks, err)
}

// Task looks a task up in the caller's task listing; the backend has no
// single-task read.
func (s *WorkspaceService) Task(ctx context.Context, token, taskID string) (*domain.Task, error) {
	tasks, err := s.backend.ListTasks(ctx, token, "")
	if ctx.Err() != nil {
		return nil, domain.ErrDiscarded
	}
	if err != nil {
		return nil, err
	}
	return domain.FindTask(tasks, taskID)
}

func (s *WorkspaceService) UpdateTask(ctx context.Context, token, taskID string, in ports.TaskUpdateInput) (*domain.Task, error) {
	return s.backend.UpdateTask(ctx, token, taskID, in)
}

func (s *WorkspaceService) Comments(ctx context.Context, token, taskID string) ([]domain.Comment, *ports.Notice, error) {
	comments, err := s.backend.ListComments(ctx, token, taskID)
	return settle(ctx, s.log, "comments", comments, err)
}

func (s *WorkspaceService) AddComment(ctx context.Context, token, taskID, message string) (*domain.Comment, error) {
	return s.backend.CreateComment(ctx, token, taskID, message)
}

// settle applies the list failure policy: expired sessions and dropped
// requests propagate, everything else becomes an empty list and a notice.
func settle[T any](ctx context.Context, log zerolog.Logger, what string, items []T, err error) ([]T, *ports.Notice, error) {
	if ctx.Err() != nil {
		return nil, nil, domain.ErrDiscarded
	}
	if err == nil {
		if items == nil {
			items = []T{}
		}
		return items, nil, nil
	}
	if errors.Is(err, domain.ErrSessionExpired) {
		return nil, nil, err
	}
	log.Warn().Err(err).Str("list", what).Msg("list fetch failed")
	return []T{}, &ports.Notice{
		Level:   "error",
		Title:   "Error",
		Message: "Failed to fetch " + what,
	}, nil
}

func normaliseFilter(f string) string {
	f = strings.ToLower(strings.TrimSpace(f))
	if f == "all" {
		return ""
	}
	return f
}
