package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/projecthub/portal/internal/core/domain"
)

type stubStatsBackend struct {
	overview *domain.StatsOverview
	err      error
	before   func()
}

func (b *stubStatsBackend) StatsOverview(context.Context, string) (*domain.StatsOverview, error) {
	if b.before != nil {
		b.before()
	}
	return b.overview, b.err
}

func sampleOverview() *domain.StatsOverview {
	return &domain.StatsOverview{
		Projects: domain.ProjectStats{Active: 3, Completed: 1, Total: 4},
		Tasks:    domain.TaskStats{Todo: 2, InProgress: 1, Done: 1, Total: 4},
		Teams:    2,
		Users:    7,
	}
}

func TestCompletionPercent(t *testing.T) {
	cases := []struct{ part, total, want int }{
		{0, 0, 0},
		{3, 0, 0},
		{1, 4, 25},
		{1, 3, 33},
		{2, 3, 67},
		{4, 4, 100},
	}
	for _, tc := range cases {
		if got := domain.CompletionPercent(tc.part, tc.total); got != tc.want {
			t.Errorf("CompletionPercent(%d,%d) = %d, want %d", tc.part, tc.total, got, tc.want)
		}
	}
}

func TestDashboard_AdminSeesEverything(t *testing.T) {
	svc := NewStatsService(&stubStatsBackend{overview: sampleOverview()}, zerolog.Nop())

	out, err := svc.Dashboard(context.Background(), "tok", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.NoData || out.Notice != nil {
		t.Fatalf("unexpected failure markers: %+v", out)
	}
	if out.Overview != *sampleOverview() {
		t.Fatalf("overview must be passed through unmodified, got %+v", out.Overview)
	}
	if len(out.Cards) != 4 {
		t.Fatalf("admin should see 4 cards, got %d", len(out.Cards))
	}
	if out.Cards[0].Subtitle != "All projects in system" {
		t.Errorf("admin project caption = %q", out.Cards[0].Subtitle)
	}
	if p := out.Cards[0].Percentage; p == nil || *p != 25 {
		t.Errorf("project completion = %v, want 25", p)
	}
	if p := out.Cards[1].Percentage; p == nil || *p != 25 {
		t.Errorf("task completion = %v, want 25", p)
	}
	if out.Cards[3].Value != 7 {
		t.Errorf("users = %d, want 7", out.Cards[3].Value)
	}
}

func TestDashboard_ManagerCaptions(t *testing.T) {
	out := BuildDashboard(*sampleOverview(), domain.RoleManager)
	if len(out.Cards) != 4 {
		t.Fatalf("manager should see 4 cards, got %d", len(out.Cards))
	}
	if out.Cards[0].Subtitle != "Projects you manage" {
		t.Errorf("manager project caption = %q", out.Cards[0].Subtitle)
	}
	if out.Cards[1].Subtitle != "Tasks in your projects" {
		t.Errorf("manager task caption = %q", out.Cards[1].Subtitle)
	}
}

func TestDashboard_MemberSeesTasksOnly(t *testing.T) {
	for _, role := range []domain.Role{domain.RoleMember, domain.RoleUnknown} {
		out := BuildDashboard(*sampleOverview(), role)
		if len(out.Cards) != 1 || out.Cards[0].Key != "tasks" {
			t.Fatalf("%s should see only the task card, got %+v", role, out.Cards)
		}
		if out.Cards[0].Breakdown["in_progress"] != 1 {
			t.Errorf("in_progress breakdown = %d", out.Cards[0].Breakdown["in_progress"])
		}
	}
}

func TestDashboard_EmptyTotalsShowZeroPercent(t *testing.T) {
	out := BuildDashboard(domain.StatsOverview{}, domain.RoleAdmin)
	for _, card := range out.Cards[:2] {
		if card.Percentage == nil || *card.Percentage != 0 {
			t.Fatalf("%s completion should be 0 with no items, got %v", card.Key, card.Percentage)
		}
	}
}

func TestDashboard_FailureRendersZerosWithNotice(t *testing.T) {
	backend := &stubStatsBackend{err: &domain.NetworkError{Endpoint: "/stats/overview", Status: 500}}
	svc := NewStatsService(backend, zerolog.Nop())

	out, err := svc.Dashboard(context.Background(), "tok", domain.RoleManager)
	if err != nil {
		t.Fatalf("stats failure must not be an error, got %v", err)
	}
	if !out.NoData {
		t.Fatal("expected NoData")
	}
	if out.Notice == nil || out.Notice.Level != "error" || out.Notice.Message != "Failed to fetch statistics" {
		t.Fatalf("unexpected notice: %+v", out.Notice)
	}
	if out.Overview != (domain.StatsOverview{}) {
		t.Fatalf("overview should be zero-valued, got %+v", out.Overview)
	}
	if len(out.Cards) != 4 {
		t.Fatalf("cards should still render, got %d", len(out.Cards))
	}
}

func TestDashboard_ExpiredSessionPropagates(t *testing.T) {
	backend := &stubStatsBackend{err: fmt.Errorf("/stats/overview: %w", domain.ErrSessionExpired)}
	svc := NewStatsService(backend, zerolog.Nop())

	if _, err := svc.Dashboard(context.Background(), "tok", domain.RoleAdmin); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestDashboard_DiscardedWhenRequestGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	backend := &stubStatsBackend{overview: sampleOverview(), before: cancel}
	svc := NewStatsService(backend, zerolog.Nop())

	if _, err := svc.Dashboard(ctx, "tok", domain.RoleAdmin); !errors.Is(err, domain.ErrDiscarded) {
		t.Fatalf("expected ErrDiscarded, got %v", err)
	}
}
