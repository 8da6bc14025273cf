package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `[
  {"id": 1, "deviceModel": "Pixel 7", "batteryHealth": 90, "cpuPerformancePct": 80,
   "storageSpeedPct": 70, "createdAt": "2025-11-03T10:15:00Z"},
  {"id": 2, "deviceModel": "Galaxy S21", "batteryHealth": 60, "timestamp": "2025-11-02T08:00:00"},
  {"id": "abc", "ramHealthPct": 88.5, "cameraCheckPct": null, "displayTouchPct": "95"}
]`

func TestParseRuns(t *testing.T) {
	runs, err := ParseRuns([]byte(samplePayload))
	require.NoError(t, err)
	require.Len(t, runs, 3)

	first := runs[0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "Pixel 7", first.Model())
	require.NotNil(t, first.BatteryHealth)
	assert.Equal(t, 90.0, *first.BatteryHealth)
	require.NotNil(t, first.CPUPerformancePct)
	assert.Equal(t, 80.0, *first.CPUPerformancePct)
	require.NotNil(t, first.StorageSpeedPct)
	assert.Equal(t, 70.0, *first.StorageSpeedPct)
	assert.Nil(t, first.RAMHealthPct)
	assert.Equal(t, "2025-11-03T10:15:00Z", first.TestedAt)

	// Legacy timestamp field is used when createdAt is missing.
	assert.Equal(t, "2025-11-02T08:00:00", runs[1].TestedAt)

	third := runs[2]
	assert.Equal(t, "abc", third.ID)
	assert.Nil(t, third.DeviceModel)
	assert.Equal(t, "", third.Model())
	require.NotNil(t, third.RAMHealthPct)
	assert.Equal(t, 88.5, *third.RAMHealthPct)
	assert.Nil(t, third.CameraCheckPct, "null is absent")
	assert.Nil(t, third.DisplayTouchPct, "a string is not numeric")
}

func TestParseRuns_SummaryMatchesExample(t *testing.T) {
	runs, err := ParseRuns([]byte(samplePayload))
	require.NoError(t, err)

	got := ComputeSummary(runs[:2])
	assert.Equal(t, Summary{TotalDevices: 2, AvgBattery: 75, AvgCPU: 40, AvgStorageSpeed: 35}, got)
}

func TestParseRuns_CreatedAtWins(t *testing.T) {
	runs, err := ParseRuns([]byte(`[{"id":1,"createdAt":"new","timestamp":"old"}]`))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "new", runs[0].TestedAt)
}

func TestParseRuns_EmptyArray(t *testing.T) {
	runs, err := ParseRuns([]byte(`[]`))
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestParseRuns_SkipsNonObjects(t *testing.T) {
	runs, err := ParseRuns([]byte(`[1, "x", {"id": 7}, null]`))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "7", runs[0].ID)
}

func TestParseRuns_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"invalid json", `[{"id": 1,`, ErrInvalidJSON},
		{"empty body", ``, ErrInvalidJSON},
		{"object instead of array", `{"runs": []}`, ErrNotArray},
		{"scalar", `42`, ErrNotArray},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRuns([]byte(tc.body))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
