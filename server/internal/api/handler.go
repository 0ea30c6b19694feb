package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/obsidianstack/usagestats/server/internal/store"
)

// Handler is the HTTP handler for the read-only /api/v1/* endpoints.
// It reads reports from the store and returns JSON responses.
type Handler struct {
	store *store.Store
	mux   *http.ServeMux
}

// New creates a Handler wired to the given report store and registers all routes.
func New(st *store.Store) http.Handler {
	h := &Handler{store: st, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/reports", h.listReports)
	h.mux.HandleFunc("/api/v1/reports/", h.getReport) // subtree, extracts {session_id}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health with the live session count.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	resp := HealthResponse{State: "ok", SessionCount: len(entries)}
	if len(entries) == 0 {
		resp.State = "idle"
	}
	for _, e := range entries {
		if e.Report.TotalFailed > e.Report.TotalSuccess {
			resp.FailingCount++
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// listReports returns GET /api/v1/reports, the latest report of every live session.
func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	out := make([]ReportResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toReportResponse(e))
	}
	jsonResp(w, http.StatusOK, out)
}

// getReport returns GET /api/v1/reports/{session_id}.
func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/reports/")
	if id == "" {
		h.listReports(w, r)
		return
	}

	e, ok := h.store.Get(id)
	// Stale entries are treated as not found.
	if !ok || time.Since(e.UpdatedAt) > h.store.TTL() {
		jsonErr(w, http.StatusNotFound, "session not found")
		return
	}
	jsonResp(w, http.StatusOK, toReportResponse(e))
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

func toReportResponse(e *store.Entry) ReportResponse {
	return ReportResponse{
		Report:   e.Report,
		LastSeen: e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
