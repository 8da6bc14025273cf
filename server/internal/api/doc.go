// Package api implements the HTTP REST API for testr-dashboard.
//
// New(view) returns an http.Handler that serves:
//
//	GET /api/v1/health            view phase, failure text, run count
//	GET /api/v1/summary           fleet summary (devices, avg battery/cpu/storage)
//	GET /api/v1/runs?model=q      filtered, scored rows plus showing/total
//	GET /api/v1/runs/{id}         single scored run; 404 if unknown
//	GET /api/v1/dashboard?model=q full dashboard payload + generated_at
//	GET /metrics                  Prometheus text exposition of the same data
//
// JSON endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for non-GET methods
//   - summary and runs answer 503 while loading and 502 with the fetch error
//     once failed; dashboard and health always answer 200
//
// Every request recomputes from the current view state; nothing is cached.
// JSON types are defined in types.go.
package api
