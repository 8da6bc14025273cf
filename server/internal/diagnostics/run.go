package diagnostics

import (
	"errors"

	"github.com/tidwall/gjson"
)

// JSON field names used by the diagnostics API.
const (
	fieldID              = "id"
	fieldDeviceModel     = "deviceModel"
	fieldBattery         = "batteryHealth"
	fieldStorageSpeed    = "storageSpeedPct"
	fieldCPU             = "cpuPerformancePct"
	fieldRAM             = "ramHealthPct"
	fieldCamera          = "cameraCheckPct"
	fieldDisplayTouch    = "displayTouchPct"
	fieldCreatedAt       = "createdAt"
	fieldTimestampLegacy = "timestamp"
)

// Run is one completed diagnostics session for a single device.
// All percentage fields are conceptually 0–100 and nil when the run did not
// report them. Values are used exactly as received.
type Run struct {
	ID                string   `json:"id"`
	DeviceModel       *string  `json:"device_model,omitempty"`
	BatteryHealth     *float64 `json:"battery_health,omitempty"`
	StorageSpeedPct   *float64 `json:"storage_speed_pct,omitempty"`
	CPUPerformancePct *float64 `json:"cpu_performance_pct,omitempty"`
	RAMHealthPct      *float64 `json:"ram_health_pct,omitempty"`
	CameraCheckPct    *float64 `json:"camera_check_pct,omitempty"`
	DisplayTouchPct   *float64 `json:"display_touch_pct,omitempty"`

	// TestedAt is the run time as sent by the API (createdAt, or the legacy
	// timestamp field). It is only displayed, never parsed.
	TestedAt string `json:"tested_at,omitempty"`
}

// Model returns the device model, or "" when the run has none.
func (r Run) Model() string {
	if r.DeviceModel == nil {
		return ""
	}
	return *r.DeviceModel
}

// checks returns the six check fields in display order.
func (r Run) checks() [6]*float64 {
	return [6]*float64{
		r.BatteryHealth,
		r.StorageSpeedPct,
		r.CPUPerformancePct,
		r.RAMHealthPct,
		r.CameraCheckPct,
		r.DisplayTouchPct,
	}
}

// Errors returned by ParseRuns.
var (
	ErrInvalidJSON = errors.New("diagnostics payload is not valid JSON")
	ErrNotArray    = errors.New("diagnostics payload is not a JSON array")
)

// ParseRuns decodes the diagnostics API response body into runs, preserving
// the order of the array.
//
// A check field that is missing, null or not a JSON number is treated as
// absent. Non-object array elements are skipped.
func ParseRuns(body []byte) ([]Run, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidJSON
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsArray() {
		return nil, ErrNotArray
	}

	runs := make([]Run, 0, len(doc.Array()))
	doc.ForEach(func(_, v gjson.Result) bool {
		if v.IsObject() {
			runs = append(runs, runFromJSON(v))
		}
		return true
	})
	return runs, nil
}

func runFromJSON(v gjson.Result) Run {
	r := Run{
		ID:                v.Get(fieldID).String(),
		DeviceModel:       stringField(v, fieldDeviceModel),
		BatteryHealth:     numberField(v, fieldBattery),
		StorageSpeedPct:   numberField(v, fieldStorageSpeed),
		CPUPerformancePct: numberField(v, fieldCPU),
		RAMHealthPct:      numberField(v, fieldRAM),
		CameraCheckPct:    numberField(v, fieldCamera),
		DisplayTouchPct:   numberField(v, fieldDisplayTouch),
	}
	if ts := v.Get(fieldCreatedAt); ts.Exists() && ts.Type != gjson.Null {
		r.TestedAt = ts.String()
	} else if ts := v.Get(fieldTimestampLegacy); ts.Exists() && ts.Type != gjson.Null {
		r.TestedAt = ts.String()
	}
	return r
}

func numberField(v gjson.Result, name string) *float64 {
	f := v.Get(name)
	if f.Type != gjson.Number {
		return nil
	}
	n := f.Float()
	return &n
}

func stringField(v gjson.Result, name string) *string {
	f := v.Get(name)
	if f.Type != gjson.String {
		return nil
	}
	s := f.String()
	return &s
}
