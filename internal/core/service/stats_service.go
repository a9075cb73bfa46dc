package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/projecthub/portal/internal/api/metrics"
	"github.com/projecthub/portal/internal/core/domain"
	"github.com/projecthub/portal/internal/core/ports"
)

const statsFailureMessage = "Failed to fetch statistics"

// StatsService is the Stats Consumer. It hands the backend overview to the
// dashboard unmodified and only adds completion ratios and captions.
type StatsService struct {
	backend ports.StatsBackend
	log     zerolog.Logger
}

var _ ports.StatsService = (*StatsService)(nil)

func NewStatsService(backend ports.StatsBackend, log zerolog.Logger) *StatsService {
	return &StatsService{backend: backend, log: log}
}

// Dashboard fetches the overview for token and shapes it for role. A fetch
// failure yields zeroed stats and a notice, not an error. If ctx ends before
// the fetch resolves, the result is dropped with ErrDiscarded.
func (s *StatsService) Dashboard(ctx context.Context, token string, role domain.Role) (*ports.DashboardStats, error) {
	overview, err := s.backend.StatsOverview(ctx, token)
	if ctx.Err() != nil {
		return nil, domain.ErrDiscarded
	}
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			return nil, err
		}
		metrics.StatsFetchErrorsTotal.Inc()
		s.log.Warn().Err(err).Str("role", role.String()).Msg("stats fetch failed")
		out := BuildDashboard(domain.StatsOverview{}, role)
		out.NoData = true
		out.Notice = &ports.Notice{Level: "error", Title: "Error", Message: statsFailureMessage}
		return out, nil
	}
	return BuildDashboard(*overview, role), nil
}

// BuildDashboard picks the cards a role sees. Admins and managers see every
// counter; members see their tasks only.
func BuildDashboard(o domain.StatsOverview, role domain.Role) *ports.DashboardStats {
	out := &ports.DashboardStats{Overview: o}

	switch role.Routing() {
	case domain.RoleAdmin:
		out.Cards = []ports.StatCard{
			projectCard(o, "Total Projects", "All projects in system"),
			taskCard(o, "Total Tasks", "All tasks in system"),
			{Key: "teams", Title: "Teams", Subtitle: "Total teams", Value: o.Teams},
			{Key: "users", Title: "Team Members", Subtitle: "Active users", Value: o.Users},
		}
	case domain.RoleManager:
		out.Cards = []ports.StatCard{
			projectCard(o, "My Projects", "Projects you manage"),
			taskCard(o, "Project Tasks", "Tasks in your projects"),
			{Key: "teams", Title: "Teams", Subtitle: "Available teams", Value: o.Teams},
			{Key: "users", Title: "Team Members", Subtitle: "Users in system", Value: o.Users},
		}
	default:
		out.Cards = []ports.StatCard{
			taskCard(o, "My Tasks", "Tasks assigned to you"),
		}
	}
	return out
}

func projectCard(o domain.StatsOverview, title, subtitle string) ports.StatCard {
	pct := domain.CompletionPercent(o.Projects.Completed, o.Projects.Total)
	return ports.StatCard{
		Key:      "projects",
		Title:    title,
		Subtitle: subtitle,
		Value:    o.Projects.Total,
		Breakdown: map[string]int{
			"active":    o.Projects.Active,
			"completed": o.Projects.Completed,
		},
		Percentage: &pct,
	}
}

func taskCard(o domain.StatsOverview, title, subtitle string) ports.StatCard {
	pct := domain.CompletionPercent(o.Tasks.Done, o.Tasks.Total)
	return ports.StatCard{
		Key:      "tasks",
		Title:    title,
		Subtitle: subtitle,
		Value:    o.Tasks.Total,
		Breakdown: map[string]int{
			"todo":        o.Tasks.Todo,
			"in_progress": o.Tasks.InProgress,
			"done":        o.Tasks.Done,
		},
		Percentage: &pct,
	}
}
