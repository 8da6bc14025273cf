package api

import (
	"log/slog"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/testr/testr-dashboard/server/internal/diagnostics"
	"github.com/testr/testr-dashboard/server/internal/view"
)

// Exposed metric names.
const (
	metricState           = "testr_dashboard_state"
	metricDevices         = "testr_dashboard_devices"
	metricAvgBattery      = "testr_dashboard_avg_battery_health_pct"
	metricAvgCPU          = "testr_dashboard_avg_cpu_performance_pct"
	metricAvgStorageSpeed = "testr_dashboard_avg_storage_speed_pct"
	metricRunScore        = "testr_dashboard_run_overall_score"
)

var phases = []view.Phase{view.PhaseLoading, view.PhaseReady, view.PhaseFailed}

// metrics returns GET /metrics: the fleet summary in Prometheus text format.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range metricFamilies(h.view.State()) {
		if err := enc.Encode(mf); err != nil {
			slog.Warn("api: encode metrics failed", "metric", mf.GetName(), "err", err)
			return
		}
	}
}

// metricFamilies renders the view state as gauges. Summary and per-run
// gauges are only present once the view is ready.
func metricFamilies(st *view.State) []*dto.MetricFamily {
	stateFam := gaugeFamily(metricState, "Current phase of the dashboard view (1 for the active phase).")
	for _, p := range phases {
		v := 0.0
		if st.Phase == p {
			v = 1
		}
		stateFam.Metric = append(stateFam.Metric, gauge(v, "state", string(p)))
	}
	out := []*dto.MetricFamily{stateFam}

	if st.Phase != view.PhaseReady {
		return out
	}

	s := diagnostics.ComputeSummary(st.Runs)
	out = append(out,
		singleGauge(metricDevices, "Number of diagnostic runs loaded.", float64(s.TotalDevices)),
		singleGauge(metricAvgBattery, "Fleet average battery health, missing values counted as 0.", float64(s.AvgBattery)),
		singleGauge(metricAvgCPU, "Fleet average CPU performance, missing values counted as 0.", float64(s.AvgCPU)),
		singleGauge(metricAvgStorageSpeed, "Fleet average storage speed, missing values counted as 0.", float64(s.AvgStorageSpeed)),
	)

	if len(st.Runs) > 0 {
		scores := gaugeFamily(metricRunScore, "Overall score of each run over the checks it reported.")
		for _, r := range st.Runs {
			scores.Metric = append(scores.Metric,
				gauge(float64(diagnostics.OverallScore(r)), "id", r.ID, "model", r.Model()))
		}
		out = append(out, scores)
	}
	return out
}

func gaugeFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

func singleGauge(name, help string, v float64) *dto.MetricFamily {
	mf := gaugeFamily(name, help)
	mf.Metric = []*dto.Metric{gauge(v)}
	return mf
}

// gauge builds one gauge sample; labels are name/value pairs.
func gauge(v float64, labels ...string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(v)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  proto.String(labels[i]),
			Value: proto.String(labels[i+1]),
		})
	}
	return m
}
