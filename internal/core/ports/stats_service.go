package ports

import (
	"context"

	"github.com/projecthub/portal/internal/core/domain"
)

// Notice is a transient, non-blocking message for the page (a toast).
type Notice struct {
	Level   string `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// StatCard is one role-appropriate tile on a dashboard.
type StatCard struct {
	Key        string         `json:"key"`
	Title      string         `json:"title"`
	Subtitle   string         `json:"subtitle"`
	Value      int            `json:"value"`
	Breakdown  map[string]int `json:"breakdown,omitempty"`
	Percentage *int           `json:"completion_percent,omitempty"`
}

// DashboardStats is the stats slice handed to a dashboard view.
type DashboardStats struct {
	Overview domain.StatsOverview `json:"overview"`
	Cards    []StatCard           `json:"cards"`
	NoData   bool                 `json:"no_data"`
	Notice   *Notice              `json:"notice,omitempty"`
}

type StatsService interface {
	Dashboard(ctx context.Context, token string, role domain.Role) (*DashboardStats, error)
}
