package view

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/testr/testr-dashboard/server/internal/diagnostics"
)

// Phase is the lifecycle phase of the dashboard view.
type Phase string

// Phases of the view. Loading is initial; Ready and Failed are terminal.
const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseFailed  Phase = "failed"
)

// State is an immutable snapshot of the view. A new State replaces the old
// one wholesale on every transition; callers must not modify Runs.
type State struct {
	Phase Phase
	Runs  []diagnostics.Run
	// Err is the user-visible failure text, set only in PhaseFailed.
	Err      string
	LoadedAt time.Time
}

// Source provides the run collection. *fetcher.Fetcher implements it.
type Source interface {
	Fetch(ctx context.Context) ([]diagnostics.Run, error)
}

// View owns the dashboard state. It starts in PhaseLoading and moves to
// PhaseReady or PhaseFailed exactly once, driven by Load.
//
// All methods are safe for concurrent use.
type View struct {
	state atomic.Pointer[State]
	once  sync.Once
	done  chan struct{}
	now   func() time.Time // injectable for deterministic tests
}

// New returns a View in PhaseLoading.
func New() *View {
	v := &View{done: make(chan struct{}), now: time.Now}
	v.state.Store(&State{Phase: PhaseLoading})
	return v
}

// State returns the current state snapshot.
func (v *View) State() *State {
	return v.state.Load()
}

// Done is closed once the view has left PhaseLoading.
func (v *View) Done() <-chan struct{} {
	return v.done
}

// Load fetches the runs from src and performs the view's single transition.
// Only the first call does anything; later calls return immediately. Load
// blocks until the fetch completes.
func (v *View) Load(ctx context.Context, src Source) {
	v.once.Do(func() {
		runs, err := src.Fetch(ctx)
		if err != nil {
			v.transition(&State{Phase: PhaseFailed, Err: err.Error(), LoadedAt: v.now()})
			slog.Warn("view: diagnostics unavailable", "err", err)
			return
		}
		if runs == nil {
			runs = []diagnostics.Run{}
		}
		v.transition(&State{Phase: PhaseReady, Runs: runs, LoadedAt: v.now()})
		slog.Info("view: diagnostics ready", "runs", len(runs))
	})
}

func (v *View) transition(next *State) {
	v.state.Store(next)
	close(v.done)
}
