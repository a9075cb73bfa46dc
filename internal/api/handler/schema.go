package handler

import (
	"github.com/projecthub/portal/internal/core/domain"
	"github.com/projecthub/portal/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error      string `json:"error"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// --- Pages ---

type homeView struct {
	View  string `json:"view"`
	Title string `json:"title"`
	Login string `json:"login"`
}

type loginView struct {
	View   string   `json:"view"`
	Fields []string `json:"fields"`
}

type dashboardView struct {
	View string       `json:"view"`
	User *domain.User `json:"user"`
}

type statsDashboardView struct {
	View  string               `json:"view"`
	User  *domain.User         `json:"user"`
	Stats ports.DashboardStats `json:"stats"`
}

// --- Workspace ---

type listResponse[T any] struct {
	Items  []T           `json:"items"`
	Notice *ports.Notice `json:"notice,omitempty"`
}

// Concrete list shapes for the API docs.
type (
	teamList    = listResponse[domain.Team]
	projectList = listResponse[domain.Project]
	taskList    = listResponse[domain.Task]
	commentList = listResponse[domain.Comment]
)

type teamRequest struct {
	Name        string `json:"name" validate:"required,min=1"`
	Description string `json:"description"`
}

type projectRequest struct {
	Name        string `json:"name"        validate:"required,min=1"`
	Description string `json:"description"`
	TeamID      string `json:"team_id"     validate:"required"`
	Status      string `json:"status"      validate:"omitempty,oneof=active completed"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

type taskUpdateRequest struct {
	Title       *string `json:"title"       validate:"omitempty,min=1"`
	Description *string `json:"description"`
	AssignedTo  *string `json:"assigned_to"`
	Status      *string `json:"status"      validate:"omitempty,oneof=todo in_progress done"`
	DueDate     *string `json:"due_date"`
}

type commentRequest struct {
	Message string `json:"message" validate:"required,min=1"`
}
