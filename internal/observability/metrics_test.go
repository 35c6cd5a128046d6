package observability

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRunCollectorRecordsEngineEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRunCollector(reg)
	if err != nil {
		t.Fatalf("NewRunCollector: %v", err)
	}

	collector.ObservePhase("fields", 20*time.Millisecond)
	collector.SetSystems(9)
	collector.AddWaypoints("non_cattle_agriculture", 3)
	collector.IncAllocation("beef_residual")
	collector.AddBalanceAdjustments("spared_area", 31)
	collector.IncRun("success")

	if got := testutil.ToFloat64(collector.Systems); got != 9 {
		t.Fatalf("simulation_systems = %v, want 9", got)
	}
	if got := testutil.ToFloat64(collector.WaypointsApplied.WithLabelValues("non_cattle_agriculture")); got != 3 {
		t.Fatalf("simulation_waypoints_applied_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(collector.BudgetAllocations.WithLabelValues("beef_residual")); got != 1 {
		t.Fatalf("simulation_budget_allocations_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.BalanceAdjusts.WithLabelValues("spared_area")); got != 31 {
		t.Fatalf("simulation_area_balance_adjustments_total = %v, want 31", got)
	}
	if got := testutil.ToFloat64(collector.Runs.WithLabelValues("success")); got != 1 {
		t.Fatalf("simulation_runs_total = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "simulation_phase_duration_seconds", map[string]string{"phase": "fields"}); count != 1 {
		t.Fatalf("simulation_phase_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestRunCollectorReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewRunCollector(reg)
	if err != nil {
		t.Fatalf("NewRunCollector: %v", err)
	}
	second, err := NewRunCollector(reg)
	if err != nil {
		t.Fatalf("second NewRunCollector: %v", err)
	}
	first.IncRun("error")
	if got := testutil.ToFloat64(second.Runs.WithLabelValues("error")); got != 1 {
		t.Fatalf("collectors not shared: %v", got)
	}
}

func TestNilRunCollectorIsSafe(t *testing.T) {
	var c *RunCollector
	c.ObservePhase("load", time.Second)
	c.SetSystems(1)
	c.AddWaypoints("forestry", 1)
	c.IncAllocation("ample")
	c.AddBalanceAdjustments("crops", 1)
	c.IncRun("success")
}

func TestMetricsHandlerAndTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRunCollector(reg)
	if err != nil {
		t.Fatalf("NewRunCollector: %v", err)
	}
	collector.IncRun("success")
	collector.ObservePhase("load", time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	if body := rr.Body.String(); !strings.Contains(body, `simulation_runs_total{outcome="success"} 1`) {
		t.Fatalf("/metrics output missing run counter: %s", body)
	}

	path := filepath.Join(t.TempDir(), "simulation.prom")
	if err := collector.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	for _, metric := range []string{"simulation_runs_total", "simulation_phase_duration_seconds"} {
		if !strings.Contains(string(data), metric) {
			t.Fatalf("expected %q in textfile output", metric)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
