package core

import (
	"context"
	"errors"
	"testing"

	"github.com/signalsfoundry/landuse-simulator/kb"
	"github.com/signalsfoundry/landuse-simulator/model"
)

func sheepWayPoint(scaler float64, absolute bool) model.AgricultureWayPoint {
	return model.AgricultureWayPoint{
		Year:           2025,
		Abatement:      "baseline",
		Productivity:   "high",
		Scaler:         scaler,
		ScaleParameter: model.MetricProtein,
		Absolute:       absolute,
	}
}

func TestNonCattleAbsoluteWayPoint(t *testing.T) {
	sc := scenario()
	sc.NonCattleAgriculture = nonCattleConfigs()
	sc.NonCattleAgriculture[0].WayPoints = []model.AgricultureWayPoint{sheepWayPoint(20, true)}

	se := runEngine(t, sc, testLookup())
	sheep := mustSystem(t, se, model.FieldNonCattle, model.SystemSheep)

	protein := mustFloats(t, sheep, model.MetricProtein)
	if len(protein) != testSpan {
		t.Fatalf("expected %d entries, got %d", testSpan, len(protein))
	}
	// 10 at 2020 ramps to 20 at 2025 and holds.
	want := []float64{10, 12, 14, 16, 18, 20, 20, 20, 20, 20, 20}
	for i := range want {
		if !approx(protein[i], want[i], 1e-9) {
			t.Fatalf("protein[%d] = %v, want %v", i, protein[i], want[i])
		}
	}
	area := mustFloats(t, sheep, model.MetricArea)
	if !approx(area[5], 400*20.0/12, 1e-9) {
		t.Fatalf("area at waypoint = %v, want %v", area[5], 400*20.0/12)
	}
}

func TestNonCattlePercentageWayPoint(t *testing.T) {
	sc := scenario()
	sc.NonCattleAgriculture = nonCattleConfigs()
	sc.NonCattleAgriculture[0].WayPoints = []model.AgricultureWayPoint{sheepWayPoint(0.5, false)}

	se := runEngine(t, sc, testLookup())
	sheep := mustSystem(t, se, model.FieldNonCattle, model.SystemSheep)

	protein := mustFloats(t, sheep, model.MetricProtein)
	if !approx(protein[5], 5, 1e-9) {
		t.Fatalf("protein at waypoint = %v, want 5", protein[5])
	}
	if !approx(protein[testSpan-1], 5, 1e-9) {
		t.Fatalf("protein at target = %v, want 5", protein[testSpan-1])
	}
}

func TestNonCattleWayPointsAreSortedByYear(t *testing.T) {
	late := sheepWayPoint(0.5, false)
	late.Year = 2029
	early := sheepWayPoint(20, true)
	early.Year = 2023
	sc := scenario()
	sc.NonCattleAgriculture = nonCattleConfigs()
	sc.NonCattleAgriculture[0].WayPoints = []model.AgricultureWayPoint{late, sheepWayPoint(0.8, false), early}

	se := runEngine(t, sc, testLookup())
	sheep, ok := mustSystem(t, se, model.FieldNonCattle, model.SystemSheep).(*AgricultureSystem)
	if !ok {
		t.Fatalf("sheep is not an agriculture system")
	}
	wps := sheep.WayPoints()
	var years []int
	for _, wp := range wps {
		years = append(years, wp.Year)
	}
	if len(years) != 3 || years[0] != 2023 || years[1] != 2025 || years[2] != 2029 {
		t.Fatalf("waypoint years = %v, want [2023 2025 2029]", years)
	}
	wps[0].Year = 2100
	if sheep.WayPoints()[0].Year != 2023 {
		t.Fatalf("WayPoints exposed internal state")
	}
	if sc.NonCattleAgriculture[0].WayPoints[0].Year != 2029 {
		t.Fatalf("scenario waypoints were reordered in place")
	}
}

func TestNonCattleUnitLabelsSurviveRun(t *testing.T) {
	sc := scenario()
	sc.NonCattleAgriculture = nonCattleConfigs()
	sc.NonCattleAgriculture[0].WayPoints = []model.AgricultureWayPoint{sheepWayPoint(20, true)}

	se := runEngine(t, sc, testLookup())
	sheep := mustSystem(t, se, model.FieldNonCattle, model.SystemSheep)
	units, ok := sheep.Series().Get(model.UnitKey(model.MetricArea))
	if !ok || len(units) != testSpan {
		t.Fatalf("expected %d unit labels, got %d", testSpan, len(units))
	}
	if s, _ := units[testSpan-1].Str(); s != "kha" {
		t.Fatalf("last unit label = %q, want kha", s)
	}
}

func TestCropsAreaIsConservedWithNoCrops(t *testing.T) {
	sc := scenario()
	sc.NonCattleAgriculture = nonCattleConfigs()
	sc.NonCattleAgriculture[1].WayPoints = []model.AgricultureWayPoint{{
		Year:           2028,
		Abatement:      "baseline",
		Productivity:   "high",
		Scaler:         0.6,
		ScaleParameter: model.MetricArea,
	}}
	metrics := newRecordingMetrics()
	se := runEngine(t, sc, testLookup(), WithMetricsRecorder(metrics))

	crops := mustFloats(t, mustSystem(t, se, model.FieldNonCattle, model.SystemCrops), model.MetricArea)
	noCrops := mustFloats(t, mustSystem(t, se, model.FieldNonCattle, model.SystemNoCrops), model.MetricArea)
	if len(crops) != testSpan || len(noCrops) != testSpan {
		t.Fatalf("unexpected lengths crops=%d no_crops=%d", len(crops), len(noCrops))
	}
	if !approx(crops[8], 180, 1e-9) {
		t.Fatalf("crops area at waypoint = %v, want 180", crops[8])
	}
	total := crops[0] + noCrops[0]
	for i := range crops {
		if !approx(crops[i]+noCrops[i], total, 1e-2) {
			t.Fatalf("year %d: crops+no crops = %v, want %v", testBaseline+i, crops[i]+noCrops[i], total)
		}
	}
	if metrics.adjustments[passCrops] != testSpan {
		t.Fatalf("expected %d crop adjustments, got %d", testSpan, metrics.adjustments[passCrops])
	}
	if metrics.waypoints[model.FieldNonCattle] != 1 {
		t.Fatalf("expected 1 non-cattle waypoint, got %d", metrics.waypoints[model.FieldNonCattle])
	}
}

func TestNonCattleZeroHypotheticalIsDegenerate(t *testing.T) {
	lookup := testLookup()
	lookup.PutAgriculture(kb.KindNonCattle, model.SystemSheep, "baseline", "zero",
		record(model.MetricArea, 0, model.MetricCO2e, 0, model.MetricProtein, 0))

	sc := scenario()
	sc.NonCattleAgriculture = nonCattleConfigs()
	wp := sheepWayPoint(20, true)
	wp.Productivity = "zero"
	sc.NonCattleAgriculture[0].WayPoints = []model.AgricultureWayPoint{wp}

	se, err := NewSimulationEngine(sc, lookup)
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}
	ctx := context.Background()
	if err := se.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := se.Run(ctx); !errors.Is(err, ErrDegenerateAllocation) {
		t.Fatalf("expected ErrDegenerateAllocation, got %v", err)
	}
}

func TestScalersRescaleBaselineBeforeRun(t *testing.T) {
	lookup := testLookup()
	st := kb.NewScalerTable([]int{2022, 2040})
	if err := st.AddColumn(model.SystemSheep, []float64{1.2, 5}); err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	lookup.PutScalers(st)

	sc := scenario()
	sc.NonCattleAgriculture = nonCattleConfigs()
	se := runEngine(t, sc, lookup)

	area := mustFloats(t, mustSystem(t, se, model.FieldNonCattle, model.SystemSheep), model.MetricArea)
	// 2040 is outside the horizon and skipped.
	want := []float64{500, 550, 600, 600}
	for i := range want {
		if !approx(area[i], want[i], 1e-9) {
			t.Fatalf("area[%d] = %v, want %v", i, area[i], want[i])
		}
	}
	if !approx(area[testSpan-1], 600, 1e-9) {
		t.Fatalf("area at target = %v, want 600", area[testSpan-1])
	}
	crops := mustFloats(t, mustSystem(t, se, model.FieldNonCattle, model.SystemCrops), model.MetricArea)
	if crops[testSpan-1] != 300 {
		t.Fatalf("unscaled crops area changed: %v", crops[testSpan-1])
	}
}
