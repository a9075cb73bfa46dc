package domain

import "math"

// ProjectStats counts projects by status.
type ProjectStats struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// TaskStats counts tasks by status.
type TaskStats struct {
	Todo       int `json:"todo"`
	InProgress int `json:"in_progress"`
	Done       int `json:"done"`
	Total      int `json:"total"`
}

// StatsOverview is the backend's aggregate projection. Totals are computed
// server-side and are not re-derived here.
type StatsOverview struct {
	Projects ProjectStats `json:"projects"`
	Tasks    TaskStats    `json:"tasks"`
	Teams    int          `json:"teams"`
	Users    int          `json:"users"`
}

// CompletionPercent returns round(part*100/total), or 0 when total is not positive.
func CompletionPercent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}
