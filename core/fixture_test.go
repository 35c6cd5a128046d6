package core

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/signalsfoundry/landuse-simulator/kb"
	"github.com/signalsfoundry/landuse-simulator/model"
)

const (
	testBaseline = 2020
	testTarget   = 2030
	testSpan     = testTarget - testBaseline + 1
)

func record(kv ...any) *model.Record {
	r := model.NewRecord()
	for i := 0; i+1 < len(kv); i += 2 {
		key := kv[i].(string)
		switch v := kv[i+1].(type) {
		case float64:
			r.Set(key, model.Num(v))
		case int:
			r.Set(key, model.Num(float64(v)))
		case string:
			r.Set(key, model.Text(v))
		}
	}
	return r
}

func series(n int, metrics map[string]func(i int) float64) *model.TimeSeries {
	ts := model.NewTimeSeries()
	for _, k := range []string{
		model.MetricArea, model.MetricOrganicSoilArea, "forest_emissions", "hwp_emissions",
		model.MetricHarvestVolume, model.MetricCO2e, model.MetricBiomethaneEnergy, model.MetricBECCS,
		model.MetricADAdditionalArea, model.MetricADWillowArea,
	} {
		f, ok := metrics[k]
		if !ok {
			continue
		}
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = f(i)
		}
		ts.PutFloats(k, vals)
	}
	return ts
}

// testLookup returns reference data covering every sector. Tables are
// indexed from 2020.
func testLookup() *kb.MemoryLookup {
	m := kb.NewMemoryLookup()

	// Forestry tables run past the horizon and are trimmed on load.
	m.PutExistingForest("high", false, series(15, map[string]func(int) float64{
		model.MetricArea:          func(int) float64 { return 700 },
		"forest_emissions":        func(i int) float64 { return -100 + float64(i) },
		"hwp_emissions":           func(i int) float64 { return 2 * float64(i) },
		model.MetricHarvestVolume: func(i int) float64 { return 50 },
	}))
	m.PutAfforestation("high", false, 0.3, 0.1, series(15, map[string]func(int) float64{
		model.MetricArea:            func(i int) float64 { return 10 * float64(i) },
		model.MetricOrganicSoilArea: func(i int) float64 { return float64(i) },
		"forest_emissions":          func(i int) float64 { return -float64(i) },
	}))
	m.PutNetZeroMetrics(model.SystemExistingForest, false, []string{"forest_emissions", "hwp_emissions"})
	m.PutNetZeroMetrics(model.SystemAfforestation, false, []string{"forest_emissions"})

	nc := kb.KindNonCattle
	m.PutAgriculture(nc, model.SystemSheep, "baseline", "medium",
		record(model.MetricArea, 500, model.MetricCO2e, 50, model.MetricProtein, 10, model.UnitKey(model.MetricArea), "kha"))
	m.PutAgriculture(nc, model.SystemSheep, "baseline", "high",
		record(model.MetricArea, 400, model.MetricCO2e, 40, model.MetricProtein, 12, model.UnitKey(model.MetricArea), "kha"))
	m.PutAgriculture(nc, model.SystemCrops, "baseline", "medium",
		record(model.MetricArea, 300, model.MetricCO2e, 30, model.MetricProtein, 20))
	m.PutAgriculture(nc, model.SystemCrops, "baseline", "high",
		record(model.MetricArea, 250, model.MetricCO2e, 25, model.MetricProtein, 18))
	m.PutAgriculture(nc, model.SystemNoCrops, "baseline", "medium",
		record(model.MetricArea, 200, model.MetricCO2e, 0, model.MetricProtein, 0))

	c := kb.KindCattle
	m.PutAgriculture(c, model.SystemDairy, "baseline", "medium",
		record(model.MetricProtein, 100, model.MetricDairyArea, 1000, model.MetricBeefArea, 200, model.MetricCO2e, 400,
			model.MetricProteinMilk, 90, model.MetricProteinBeef, 10))
	m.PutAgriculture(c, model.SystemDairy, "baseline", "high",
		record(model.MetricProtein, 120, model.MetricDairyArea, 1100, model.MetricBeefArea, 200, model.MetricCO2e, 420,
			model.MetricProteinMilk, 108, model.MetricProteinBeef, 12))
	m.PutAgriculture(c, model.SystemBeef, "baseline", "medium",
		record(model.MetricProtein, 50, model.MetricDairyArea, 0, model.MetricBeefArea, 800, model.MetricCO2e, 300,
			model.MetricProteinMilk, 0, model.MetricProteinBeef, 50))
	m.PutAgriculture(c, model.SystemBeef, "baseline", "high",
		record(model.MetricProtein, 60, model.MetricDairyArea, 0, model.MetricBeefArea, 900, model.MetricCO2e, 320,
			model.MetricProteinMilk, 0, model.MetricProteinBeef, 60))
	m.PutAgriculture(c, model.SystemSparedArea, "baseline", "medium",
		record(model.MetricArea, 0, model.MetricCO2e, 0))

	m.PutOrganicSoil(model.SystemOrganicSoilUnderGrass, model.Drained,
		record(model.MetricArea, 1000, model.MetricCO2e, 0.44455, model.MetricHNVArea, 0))
	m.PutOrganicSoil(model.SystemOrganicSoilUnderGrass, model.Rewetted,
		record(model.MetricArea, 1334.04/0.9494, model.MetricCO2e, 0.9494, model.MetricHNVArea, 0.5))

	m.PutADComponent(kb.ADBiomethane, 2025, series(testSpan, map[string]func(int) float64{
		model.MetricArea:             func(i int) float64 { return 20 * float64(min(i, 5)) },
		model.MetricCO2e:             func(i int) float64 { return -10 * float64(min(i, 5)) },
		model.MetricBiomethaneEnergy: func(i int) float64 { return 5700 * float64(min(i, 5)) / 5 },
		model.MetricBECCS:            func(i int) float64 { return 3 },
	}))
	// Per unit of requested magnitude.
	m.PutADComponent(kb.ADAdditional, 2025, series(testSpan, map[string]func(int) float64{
		model.MetricADAdditionalArea: func(i int) float64 { return 10 * float64(min(i, 5)) },
	}))
	m.PutADComponent(kb.ADWillow, 2025, series(testSpan, map[string]func(int) float64{
		model.MetricADWillowArea: func(i int) float64 { return 4 * float64(min(i, 5)) },
	}))
	return m
}

func forestryConfigs() []model.ForestryConfig {
	return []model.ForestryConfig{
		{Name: model.SystemExistingForest, Harvest: "high"},
		{Name: model.SystemAfforestation, Harvest: "high", AfforestationRate: 2, BroadleafFrac: 0.3, OrganicSoil: 0.1},
	}
}

func nonCattleConfigs() []model.NonCattleConfig {
	return []model.NonCattleConfig{
		{Name: model.SystemSheep, Abatement: "baseline", Productivity: "medium"},
		{Name: model.SystemCrops, Abatement: "baseline", Productivity: "medium"},
	}
}

func cattleConfig(wps ...model.CattleWayPoint) *model.CattleConfig {
	return &model.CattleConfig{Abatement: "baseline", Productivity: "medium", WayPoints: wps}
}

func organicSoilConfigs(wps ...model.OrganicSoilWayPoint) []model.OrganicSoilConfig {
	return []model.OrganicSoilConfig{{
		Name:           model.SystemOrganicSoilUnderGrass,
		DrainageStatus: []string{model.Drained, model.Rewetted},
		WayPoints:      wps,
	}}
}

func scenario() *model.Scenario {
	return &model.Scenario{BaselineYear: testBaseline, TargetYear: testTarget}
}

// runEngine builds, loads and runs sc against lookup.
func runEngine(t *testing.T, sc *model.Scenario, lookup kb.Lookup, opts ...EngineOption) *SimulationEngine {
	t.Helper()
	se, err := NewSimulationEngine(sc, lookup, opts...)
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}
	ctx := context.Background()
	if err := se.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := se.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return se
}

func mustSystem(t *testing.T, se *SimulationEngine, field, name string) System {
	t.Helper()
	s, ok := se.System(field, name)
	if !ok {
		t.Fatalf("system %s/%s not found", field, name)
	}
	return s
}

func mustFloats(t *testing.T, s System, metric string) []float64 {
	t.Helper()
	vals, err := s.Series().Floats(metric)
	if err != nil {
		t.Fatalf("%s %s: %v", s.Name(), metric, err)
	}
	return vals
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// recordingMetrics captures MetricsRecorder calls.
type recordingMetrics struct {
	mu          sync.Mutex
	phases      []string
	systems     int
	waypoints   map[string]int
	allocations map[string]int
	adjustments map[string]int
	runs        map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		waypoints:   make(map[string]int),
		allocations: make(map[string]int),
		adjustments: make(map[string]int),
		runs:        make(map[string]int),
	}
}

func (r *recordingMetrics) ObservePhase(phase string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, phase)
}

func (r *recordingMetrics) SetSystems(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.systems = n
}

func (r *recordingMetrics) AddWaypoints(field string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waypoints[field] += n
}

func (r *recordingMetrics) IncAllocation(branch string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allocations[branch]++
}

func (r *recordingMetrics) AddBalanceAdjustments(pass string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adjustments[pass] += n
}

func (r *recordingMetrics) IncRun(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[outcome]++
}
