package view

import (
	"time"

	"github.com/testr/testr-dashboard/server/internal/diagnostics"
)

// Row is one table row: a run plus its derived overall score and grade.
type Row struct {
	diagnostics.Run
	OverallScore int    `json:"overall_score"`
	Grade        string `json:"grade"`
}

// Dashboard is everything the presentation layer renders for one filter
// query. Summary is nil and Runs is empty unless the view is ready.
type Dashboard struct {
	State    Phase                `json:"state"`
	Error    string               `json:"error,omitempty"`
	Query    string               `json:"query"`
	Summary  *diagnostics.Summary `json:"summary,omitempty"`
	Showing  int                  `json:"showing"`
	Total    int                  `json:"total"`
	Runs     []Row                `json:"runs"`
	LoadedAt string               `json:"loaded_at,omitempty"` // RFC3339
}

// Build recomputes the dashboard from scratch for st and query. The summary
// always covers every loaded run; only the rows are filtered.
func Build(st *State, query string) Dashboard {
	d := Dashboard{
		State: st.Phase,
		Error: st.Err,
		Query: query,
		Runs:  []Row{},
	}
	if !st.LoadedAt.IsZero() {
		d.LoadedAt = st.LoadedAt.UTC().Format(time.RFC3339)
	}
	if st.Phase != PhaseReady {
		return d
	}

	summary := diagnostics.ComputeSummary(st.Runs)
	filtered := diagnostics.FilterByModel(st.Runs, query)

	d.Summary = &summary
	d.Total = len(st.Runs)
	d.Showing = len(filtered)
	d.Runs = Rows(filtered)
	return d
}

// Rows derives a Row for each run, preserving order.
func Rows(runs []diagnostics.Run) []Row {
	out := make([]Row, 0, len(runs))
	for _, r := range runs {
		out = append(out, NewRow(r))
	}
	return out
}

// NewRow scores a single run.
func NewRow(r diagnostics.Run) Row {
	return Row{
		Run:          r,
		OverallScore: diagnostics.OverallScore(r),
		Grade:        diagnostics.GradeOf(r),
	}
}

// Find returns the row for the run with the given id. It reports false when
// the view is not ready or no run has that id.
func Find(st *State, id string) (Row, bool) {
	if st.Phase != PhaseReady {
		return Row{}, false
	}
	for _, r := range st.Runs {
		if r.ID == id {
			return NewRow(r), true
		}
	}
	return Row{}, false
}
