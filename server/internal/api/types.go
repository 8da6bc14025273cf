package api

import (
	"github.com/testr/testr-dashboard/server/internal/view"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State    view.Phase `json:"state"`
	Error    string     `json:"error,omitempty"`
	RunCount int        `json:"run_count"`
	LoadedAt string     `json:"loaded_at,omitempty"` // RFC3339
}

// RunsResponse is the payload for GET /api/v1/runs.
type RunsResponse struct {
	Query   string     `json:"query"`
	Showing int        `json:"showing"`
	Total   int        `json:"total"`
	Runs    []view.Row `json:"runs"`
}

// DashboardResponse is the payload for GET /api/v1/dashboard and the data
// of every WebSocket message.
type DashboardResponse struct {
	view.Dashboard
	GeneratedAt string `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	State view.Phase `json:"state,omitempty"`
	Error string     `json:"error"`
}
