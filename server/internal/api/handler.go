package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/testr/testr-dashboard/server/internal/view"
)

// QueryParam is the URL parameter carrying the device-model filter.
const QueryParam = "model"

// Message returned while the initial fetch has not completed.
const msgLoading = "diagnostics are still loading"

// Handler is the HTTP handler for all /api/v1/* endpoints and /metrics.
// It reads the current view state on every request.
type Handler struct {
	view *view.View
	mux  *http.ServeMux
	now  func() time.Time
}

// New creates a Handler wired to the given view and registers all routes.
func New(v *view.View) http.Handler {
	h := &Handler{view: v, mux: http.NewServeMux(), now: time.Now}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/summary", h.summary)
	h.mux.HandleFunc("/api/v1/runs", h.listRuns)
	h.mux.HandleFunc("/api/v1/runs/", h.getRun) // subtree, extracts {id}
	h.mux.HandleFunc("/api/v1/dashboard", h.dashboard)
	h.mux.HandleFunc("/metrics", h.metrics)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// BuildDashboard returns the dashboard payload for query at the current
// state. The WebSocket hub uses it for its messages.
func BuildDashboard(v *view.View, query string, now time.Time) DashboardResponse {
	return DashboardResponse{
		Dashboard:   view.Build(v.State(), query),
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: view phase and run count.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	st := h.view.State()
	resp := HealthResponse{
		State:    st.Phase,
		Error:    st.Err,
		RunCount: len(st.Runs),
	}
	if !st.LoadedAt.IsZero() {
		resp.LoadedAt = st.LoadedAt.UTC().Format(time.RFC3339)
	}
	jsonResp(w, http.StatusOK, resp)
}

// summary returns GET /api/v1/summary: fleet summary over all runs.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	st := h.view.State()
	if !ready(w, st) {
		return
	}
	jsonResp(w, http.StatusOK, view.Build(st, "").Summary)
}

// listRuns returns GET /api/v1/runs?model=q: the filtered table rows.
func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	st := h.view.State()
	if !ready(w, st) {
		return
	}
	d := view.Build(st, r.URL.Query().Get(QueryParam))
	jsonResp(w, http.StatusOK, RunsResponse{
		Query:   d.Query,
		Showing: d.Showing,
		Total:   d.Total,
		Runs:    d.Runs,
	})
}

// getRun returns GET /api/v1/runs/{id}: a single scored run.
func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	if id == "" {
		h.listRuns(w, r)
		return
	}

	st := h.view.State()
	if !ready(w, st) {
		return
	}
	row, ok := view.Find(st, id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "run not found")
		return
	}
	jsonResp(w, http.StatusOK, row)
}

// dashboard returns GET /api/v1/dashboard?model=q: everything the UI renders,
// in any phase.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildDashboard(h.view, r.URL.Query().Get(QueryParam), h.now()))
}

// --- helpers ----------------------------------------------------------------

// ready writes the phase error and returns false unless st is ready.
// Loading answers 503; a failed fetch answers 502 with its message verbatim.
func ready(w http.ResponseWriter, st *view.State) bool {
	switch st.Phase {
	case view.PhaseReady:
		return true
	case view.PhaseFailed:
		jsonResp(w, http.StatusBadGateway, errorResponse{State: st.Phase, Error: st.Err})
	default:
		jsonResp(w, http.StatusServiceUnavailable, errorResponse{State: st.Phase, Error: msgLoading})
	}
	return false
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
