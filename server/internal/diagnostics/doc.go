// Package diagnostics holds the device-diagnostics data model and the pure
// aggregation functions the dashboard is built from.
//
// run.go defines Run (one diagnostics session for one device) and ParseRuns,
// which decodes the remote API's JSON array with gjson. Check fields are
// *float64: nil means the run did not report that check.
//
// aggregate.go provides the three operations, all total and side-effect free:
//
//	ComputeSummary(runs)        fleet totals; absent fields count as 0
//	FilterByModel(runs, query)  case-insensitive substring match on DeviceModel
//	OverallScore(run)           mean of the present check fields only
//
// The fleet averages and the per-run score use different missing-value
// policies. Both are kept as-is and tested separately.
//
// grade.go maps an overall score to a display grade using the same
// healthy/degraded/critical thresholds as the pipeline strength score.
package diagnostics
