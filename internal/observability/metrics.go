package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunCollector bundles Prometheus metrics for simulation runs. It satisfies
// core.MetricsRecorder.
type RunCollector struct {
	gatherer prometheus.Gatherer

	Runs              *prometheus.CounterVec
	PhaseDurations    *prometheus.HistogramVec
	Systems           prometheus.Gauge
	WaypointsApplied  *prometheus.CounterVec
	BudgetAllocations *prometheus.CounterVec
	BalanceAdjusts    *prometheus.CounterVec
}

// NewRunCollector registers run metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewRunCollector(reg prometheus.Registerer) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_runs_total",
		Help: "Completed simulation runs, labeled by outcome.",
	}, []string{"outcome"}), "simulation_runs_total")
	if err != nil {
		return nil, err
	}
	phases, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simulation_phase_duration_seconds",
		Help:    "Wall time of each engine phase in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"phase"}), "simulation_phase_duration_seconds")
	if err != nil {
		return nil, err
	}
	systems, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simulation_systems",
		Help: "Number of systems loaded for the current scenario.",
	}), "simulation_systems")
	if err != nil {
		return nil, err
	}
	waypoints, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_waypoints_applied_total",
		Help: "Scenario waypoints applied, labeled by field.",
	}, []string{"field"}), "simulation_waypoints_applied_total")
	if err != nil {
		return nil, err
	}
	allocations, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_budget_allocations_total",
		Help: "Cattle budget allocations, labeled by allocation branch.",
	}, []string{"branch"}), "simulation_budget_allocations_total")
	if err != nil {
		return nil, err
	}
	adjustments, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_area_balance_adjustments_total",
		Help: "Yearly area entries rewritten by balancing, labeled by pass.",
	}, []string{"pass"}), "simulation_area_balance_adjustments_total")
	if err != nil {
		return nil, err
	}

	return &RunCollector{
		gatherer:          gatherer,
		Runs:              runs,
		PhaseDurations:    phases,
		Systems:           systems,
		WaypointsApplied:  waypoints,
		BudgetAllocations: allocations,
		BalanceAdjusts:    adjustments,
	}, nil
}

// Gatherer returns the gatherer backing Handler and WriteTextfile.
func (c *RunCollector) Gatherer() prometheus.Gatherer {
	if c == nil || c.gatherer == nil {
		return prometheus.DefaultGatherer
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *RunCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Gatherer(), promhttp.HandlerOpts{})
}

// WriteTextfile writes every gathered metric to path in the text exposition
// format read by the node exporter textfile collector.
func (c *RunCollector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.Gatherer()); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func (c *RunCollector) ObservePhase(phase string, d time.Duration) {
	if c == nil || c.PhaseDurations == nil {
		return
	}
	c.PhaseDurations.WithLabelValues(phase).Observe(d.Seconds())
}

func (c *RunCollector) SetSystems(n int) {
	if c == nil || c.Systems == nil {
		return
	}
	c.Systems.Set(float64(n))
}

func (c *RunCollector) AddWaypoints(field string, n int) {
	if c == nil || c.WaypointsApplied == nil {
		return
	}
	c.WaypointsApplied.WithLabelValues(field).Add(float64(n))
}

func (c *RunCollector) IncAllocation(branch string) {
	if c == nil || c.BudgetAllocations == nil {
		return
	}
	c.BudgetAllocations.WithLabelValues(branch).Inc()
}

func (c *RunCollector) AddBalanceAdjustments(pass string, n int) {
	if c == nil || c.BalanceAdjusts == nil {
		return
	}
	c.BalanceAdjusts.WithLabelValues(pass).Add(float64(n))
}

func (c *RunCollector) IncRun(outcome string) {
	if c == nil || c.Runs == nil {
		return
	}
	c.Runs.WithLabelValues(outcome).Inc()
}

// register adds col to reg. A collector already registered under the same
// descriptor is reused when it has the same type.
func register[C prometheus.Collector](reg prometheus.Registerer, col C, name string) (C, error) {
	if err := reg.Register(col); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			var zero C
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero C
		return zero, err
	}
	return col, nil
}
