// Package view owns the dashboard's process-wide state.
//
// View starts in PhaseLoading. Load(ctx, source) is dispatched once at
// startup; its single fetch moves the view to PhaseReady (runs stored) or
// PhaseFailed (error text stored verbatim). There is no way back to loading,
// no retry and no refresh. Each state is an immutable *State swapped in
// atomically, and Done() is closed after the transition.
//
// Build(state, query) turns a state and a filter query into the Dashboard
// payload rendered by the REST API and the WebSocket stream. The filter query
// is not stored here: every consumer holds its own and calls Build again
// whenever it changes.
package view
