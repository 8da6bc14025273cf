package diagnostics

import (
	"math"
	"strings"

	"github.com/montanaflynn/stats"
)

// Summary is the fleet-wide view over all currently loaded runs.
type Summary struct {
	TotalDevices    int `json:"total_devices"`
	AvgBattery      int `json:"avg_battery"`
	AvgCPU          int `json:"avg_cpu"`
	AvgStorageSpeed int `json:"avg_storage_speed"`
}

// ComputeSummary returns the device count and the rounded fleet averages for
// battery health, CPU performance and storage speed.
//
// A run that did not report a field contributes 0 to that field's sum but is
// still counted in the denominator, so every average divides by len(runs).
// An empty slice yields the zero Summary.
func ComputeSummary(runs []Run) Summary {
	if len(runs) == 0 {
		return Summary{}
	}
	return Summary{
		TotalDevices:    len(runs),
		AvgBattery:      fleetAverage(runs, func(r Run) *float64 { return r.BatteryHealth }),
		AvgCPU:          fleetAverage(runs, func(r Run) *float64 { return r.CPUPerformancePct }),
		AvgStorageSpeed: fleetAverage(runs, func(r Run) *float64 { return r.StorageSpeedPct }),
	}
}

// fleetAverage averages one field over all runs, missing values as zero.
func fleetAverage(runs []Run, field func(Run) *float64) int {
	values := make(stats.Float64Data, len(runs))
	for i, r := range runs {
		if v := field(r); v != nil {
			values[i] = *v
		}
	}
	mean, err := values.Mean()
	if err != nil {
		return 0
	}
	return Round(mean)
}

// FilterByModel returns the runs whose DeviceModel contains query, compared
// case-insensitively, in their original order.
//
// An empty query matches every run, including runs without a model. A run
// without a model never matches a non-empty query. The result is always a new
// slice.
func FilterByModel(runs []Run, query string) []Run {
	out := make([]Run, 0, len(runs))
	if query == "" {
		return append(out, runs...)
	}
	needle := strings.ToLower(query)
	for _, r := range runs {
		if r.DeviceModel == nil {
			continue
		}
		if strings.Contains(strings.ToLower(*r.DeviceModel), needle) {
			out = append(out, r)
		}
	}
	return out
}

// OverallScore returns the rounded mean of the check fields the run actually
// reported. Missing fields are left out of both the sum and the count, so a
// run with only two checks is scored on those two. A run with no checks
// scores 0.
func OverallScore(r Run) int {
	var present stats.Float64Data
	for _, v := range r.checks() {
		if v != nil {
			present = append(present, *v)
		}
	}
	if len(present) == 0 {
		return 0
	}
	mean, err := stats.Mean(present)
	if err != nil {
		return 0
	}
	return Round(mean)
}

// Round rounds v to the nearest integer, with halves going up (2.5 → 3,
// -2.5 → -2).
func Round(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Floor(v + 0.5))
}
