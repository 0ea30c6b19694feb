package api

import "github.com/obsidianstack/usagestats/pkg/types"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State        string `json:"state"`
	SessionCount int    `json:"session_count"`
	// FailingCount is the number of live sessions whose latest report shows
	// more failed than successful deliveries.
	FailingCount int `json:"failing_count"`
}

// ReportResponse is one session entry in GET /api/v1/reports or
// GET /api/v1/reports/{session_id}.
type ReportResponse struct {
	Report   types.Report `json:"report"`
	LastSeen string       `json:"last_seen"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
