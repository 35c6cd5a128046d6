package core

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/signalsfoundry/landuse-simulator/model"
)

func fullScenario() *model.Scenario {
	sc := scenario()
	sc.Forestry = forestryConfigs()
	sc.NonCattleAgriculture = nonCattleConfigs()
	sc.NonCattleAgriculture[0].WayPoints = []model.AgricultureWayPoint{sheepWayPoint(0.5, false)}
	sc.CattleSystems = cattleConfig(cattleWayPoint(120, true))
	sc.OrganicSoils = organicSoilConfigs(model.OrganicSoilWayPoint{Year: 2024, RewettingRatio: 0.3})
	sc.ADEmissions = &model.ADConfig{ImplementationYear: 2027}
	return sc
}

func TestForestryNetEmissions(t *testing.T) {
	sc := scenario()
	sc.Forestry = forestryConfigs()
	se := runEngine(t, sc, testLookup())

	existing := mustFloats(t, mustSystem(t, se, model.FieldForestry, model.SystemExistingForest), model.MetricCO2e)
	if len(existing) != testSpan {
		t.Fatalf("existing forest co2e has %d entries, want %d", len(existing), testSpan)
	}
	for i, v := range existing {
		if want := -100 + 3*float64(i); !approx(v, want, 1e-9) {
			t.Fatalf("existing co2e[%d] = %v, want %v", i, v, want)
		}
	}

	nz := map[string][]string{
		model.SystemExistingForest: {"forest_emissions", "hwp_emissions"},
		model.SystemAfforestation:  {"forest_emissions"},
	}
	for name, want := range nz {
		fs, ok := mustSystem(t, se, model.FieldForestry, name).(*ForestrySystem)
		if !ok {
			t.Fatalf("%s is not a forestry system", name)
		}
		if diff := cmp.Diff(want, fs.NetZeroMetrics()); diff != "" {
			t.Fatalf("%s net-zero metrics mismatch (-want +got):\n%s", name, diff)
		}
	}

	aff := mustSystem(t, se, model.FieldForestry, model.SystemAfforestation)
	area := mustFloats(t, aff, model.MetricArea)
	co2e := mustFloats(t, aff, model.MetricCO2e)
	if area[4] != 80 || co2e[4] != -8 {
		t.Fatalf("afforestation at 2024 area=%v co2e=%v, want 80 and -8", area[4], co2e[4])
	}
}

func TestOrganicSoilRewetting(t *testing.T) {
	sc := scenario()
	sc.OrganicSoils = organicSoilConfigs(
		model.OrganicSoilWayPoint{Year: 2024, RewettingRatio: 0.3},
		model.OrganicSoilWayPoint{Year: 2022, RewettingRatio: 0.1},
	)
	se := runEngine(t, sc, testLookup())
	soil := mustSystem(t, se, model.FieldOrganicSoils, model.SystemOrganicSoilUnderGrass)

	drained := mustFloats(t, soil, model.StatusKey(model.Drained, model.MetricCO2e))
	rewetted := mustFloats(t, soil, model.StatusKey(model.Rewetted, model.MetricCO2e))
	total := mustFloats(t, soil, model.MetricCO2e)

	checks := []struct {
		idx                int
		drained, rewetted float64
	}{
		{0, 444.55, 1334.04},
		{2, 400.09, 1428.98},
		{4, 311.18, 1618.86},
		{testSpan - 1, 311.18, 1618.86},
	}
	for _, c := range checks {
		if !approx(drained[c.idx], c.drained, 1e-2) {
			t.Fatalf("drained co2e[%d] = %v, want %v", c.idx, drained[c.idx], c.drained)
		}
		if !approx(rewetted[c.idx], c.rewetted, 1e-2) {
			t.Fatalf("rewetted co2e[%d] = %v, want %v", c.idx, rewetted[c.idx], c.rewetted)
		}
		if !approx(total[c.idx], drained[c.idx]+rewetted[c.idx], 1e-9) {
			t.Fatalf("aggregate co2e[%d] = %v, want %v", c.idx, total[c.idx], drained[c.idx]+rewetted[c.idx])
		}
	}
}

func TestOrganicSoilRewettingOverThreeDecades(t *testing.T) {
	sc := &model.Scenario{BaselineYear: 2020, TargetYear: 2040}
	sc.OrganicSoils = organicSoilConfigs(
		model.OrganicSoilWayPoint{Year: 2030, RewettingRatio: 0.1},
		model.OrganicSoilWayPoint{Year: 2040, RewettingRatio: 0.3},
	)
	se := runEngine(t, sc, testLookup())
	soil := mustSystem(t, se, model.FieldOrganicSoils, model.SystemOrganicSoilUnderGrass)

	drained := mustFloats(t, soil, model.StatusKey(model.Drained, model.MetricCO2e))
	rewetted := mustFloats(t, soil, model.StatusKey(model.Rewetted, model.MetricCO2e))
	if len(drained) != 21 || len(rewetted) != 21 {
		t.Fatalf("co2e histories have %d and %d entries, want 21", len(drained), len(rewetted))
	}

	tests := []struct {
		year              int
		drained, rewetted float64
	}{
		{2020, 444.55, 1334.04},
		{2025, 422.32, 1381.51},
		{2030, 400.09, 1428.98},
		{2035, 355.64, 1523.92},
		{2040, 311.18, 1618.86},
	}
	for _, tt := range tests {
		i := tt.year - 2020
		if !approx(drained[i], tt.drained, 1e-2) {
			t.Fatalf("drained co2e at %d = %v, want %v", tt.year, drained[i], tt.drained)
		}
		if !approx(rewetted[i], tt.rewetted, 1e-2) {
			t.Fatalf("rewetted co2e at %d = %v, want %v", tt.year, rewetted[i], tt.rewetted)
		}
	}
}

func TestAfforestationOrganicSoilBalancing(t *testing.T) {
	sc := scenario()
	sc.Forestry = forestryConfigs()
	sc.OrganicSoils = organicSoilConfigs()
	se := runEngine(t, sc, testLookup())

	affOS := mustFloats(t, mustSystem(t, se, model.FieldForestry, model.SystemAfforestation), model.MetricOrganicSoilArea)
	soil := mustSystem(t, se, model.FieldOrganicSoils, model.SystemOrganicSoilUnderGrass)
	drained := mustFloats(t, soil, model.StatusKey(model.Drained, model.MetricArea))
	drainedCO2e := mustFloats(t, soil, model.StatusKey(model.Drained, model.MetricCO2e))
	total := mustFloats(t, soil, model.MetricCO2e)

	for i := 0; i < testSpan; i++ {
		if !approx(drained[i]+affOS[i], drained[0]+affOS[0], 1e-9) {
			t.Fatalf("year %d: drained+afforested organic soil = %v, want %v", testBaseline+i, drained[i]+affOS[i], drained[0]+affOS[0])
		}
		if !approx(drainedCO2e[i], 0.44455*drained[i], 1e-9) {
			t.Fatalf("drained co2e[%d] not re-derived: %v", i, drainedCO2e[i])
		}
		if !approx(total[i], drainedCO2e[i]+1334.04, 1e-6) {
			t.Fatalf("aggregate co2e[%d] = %v, want %v", i, total[i], drainedCO2e[i]+1334.04)
		}
	}
	if drained[testSpan-1] != 1000-2*float64(testSpan-1) {
		t.Fatalf("drained area at target = %v", drained[testSpan-1])
	}
}

func TestSparedAreaAbsorbsContractions(t *testing.T) {
	metrics := newRecordingMetrics()
	se := runEngine(t, fullScenario(), testLookup(), WithMetricsRecorder(metrics))

	members := [][]float64{
		mustFloats(t, mustSystem(t, se, model.FieldCattle, model.SystemDairy), model.MetricDairyArea),
		mustFloats(t, mustSystem(t, se, model.FieldCattle, model.SystemDairy), model.MetricBeefArea),
		mustFloats(t, mustSystem(t, se, model.FieldCattle, model.SystemBeef), model.MetricBeefArea),
		mustFloats(t, mustSystem(t, se, model.FieldNonCattle, model.SystemSheep), model.MetricArea),
		mustFloats(t, mustSystem(t, se, model.FieldForestry, model.SystemAfforestation), model.MetricArea),
		mustFloats(t, mustSystem(t, se, model.FieldAD, model.SystemAD), model.MetricArea),
	}
	spared := mustFloats(t, mustSystem(t, se, model.FieldCattle, model.SystemSparedArea), model.MetricArea)

	for i := 0; i < testSpan; i++ {
		freed := 0.0
		for _, m := range members {
			freed += m[0] - m[i]
		}
		if !approx(spared[i]-spared[0], freed, 1e-6) {
			t.Fatalf("year %d: spared area gained %v, members freed %v", testBaseline+i, spared[i]-spared[0], freed)
		}
	}
	if metrics.adjustments[passSparedArea] != testSpan {
		t.Fatalf("expected %d spared-area adjustments, got %d", testSpan, metrics.adjustments[passSparedArea])
	}
	if metrics.adjustments[passOrganicSoil] != testSpan {
		t.Fatalf("expected %d organic-soil adjustments, got %d", testSpan, metrics.adjustments[passOrganicSoil])
	}
}

func TestLandChainIsConservedWithEveryADComponent(t *testing.T) {
	sc := fullScenario()
	sc.ADEmissions = &model.ADConfig{
		ImplementationYear:        2027,
		AdditionalBiomethaneYear:  2026,
		AdditionalGrassBiomethane: 3,
		WillowYear:                2028,
		CDRBioenergy:              2,
	}
	se := runEngine(t, sc, testLookup())

	dairy := mustSystem(t, se, model.FieldCattle, model.SystemDairy)
	ad := mustSystem(t, se, model.FieldAD, model.SystemAD)
	additional := mustFloats(t, ad, model.MetricADAdditionalArea)
	willow := mustFloats(t, ad, model.MetricADWillowArea)
	if additional[0] != 0 || additional[testSpan-1] != 150 {
		t.Fatalf("additional AD area = %v, want a 0 to 150 ramp", additional)
	}
	if willow[0] != 0 || willow[testSpan-1] != 40 {
		t.Fatalf("willow AD area = %v, want a 0 to 40 ramp", willow)
	}

	chain := [][]float64{
		mustFloats(t, dairy, model.MetricDairyArea),
		mustFloats(t, dairy, model.MetricBeefArea),
		mustFloats(t, mustSystem(t, se, model.FieldCattle, model.SystemBeef), model.MetricBeefArea),
		mustFloats(t, mustSystem(t, se, model.FieldNonCattle, model.SystemSheep), model.MetricArea),
		mustFloats(t, mustSystem(t, se, model.FieldForestry, model.SystemAfforestation), model.MetricArea),
		mustFloats(t, ad, model.MetricArea),
		additional,
		willow,
		mustFloats(t, mustSystem(t, se, model.FieldCattle, model.SystemSparedArea), model.MetricArea),
	}
	for i := 0; i < testSpan; i++ {
		sum := 0.0
		for _, m := range chain {
			sum += m[i]
		}
		if !approx(sum, 2500, 1e-6) {
			t.Fatalf("year %d: land chain sums to %v, want 2500", testBaseline+i, sum)
		}
	}
}

func TestEverySeriesSpansTheHorizon(t *testing.T) {
	se := runEngine(t, fullScenario(), testLookup())
	if err := se.VerifyHorizon(); err != nil {
		t.Fatalf("VerifyHorizon: %v", err)
	}
	for _, f := range se.Fields() {
		for _, s := range f.Systems() {
			for _, k := range s.Series().Keys() {
				if n := s.Series().Len(k); n != testSpan {
					t.Fatalf("%s/%s/%s has %d entries, want %d", f.Name(), s.Name(), k, n, testSpan)
				}
			}
		}
	}
}

func TestVerifyHorizonReportsShortSeries(t *testing.T) {
	se := runEngine(t, fullScenario(), testLookup())
	sheep := mustSystem(t, se, model.FieldNonCattle, model.SystemSheep)
	sheep.Series().Truncate(3)
	if err := se.VerifyHorizon(); !errors.Is(err, ErrIncompleteSeries) {
		t.Fatalf("expected ErrIncompleteSeries, got %v", err)
	}
}

func TestAnaerobicDigestionSnapsToImplementationYear(t *testing.T) {
	for _, ccs := range []bool{false, true} {
		sc := scenario()
		sc.ADEmissions = &model.ADConfig{ImplementationYear: 2027, CCS: ccs}
		se := runEngine(t, sc, testLookup())
		ad := mustSystem(t, se, model.FieldAD, model.SystemAD)

		energy := mustFloats(t, ad, model.MetricBiomethaneEnergy)
		if energy[7] != 5700 {
			t.Fatalf("ccs=%t: biomethane energy at 2027 = %v, want 5700", ccs, energy[7])
		}
		if energy[6] != 4560 || energy[2] != 0 {
			t.Fatalf("ccs=%t: ramp not shifted: %v", ccs, energy)
		}
		beccs := mustFloats(t, ad, model.MetricBECCS)
		want := 0.0
		if ccs {
			want = 3
		}
		if beccs[testSpan-1] != want {
			t.Fatalf("ccs=%t: BECCS = %v, want %v", ccs, beccs[testSpan-1], want)
		}
	}
}

func TestEvaluationDropsZeroSeriesAndAddsTotal(t *testing.T) {
	sc := scenario()
	sc.NonCattleAgriculture = nonCattleConfigs()
	se := runEngine(t, sc, testLookup())

	rows := se.Evaluation(model.ParamCO2e)
	var labels []string
	for _, r := range rows {
		labels = append(labels, r.Label)
	}
	if diff := cmp.Diff([]string{model.SystemSheep, model.SystemCrops, "total"}, labels); diff != "" {
		t.Fatalf("evaluation labels mismatch (-want +got):\n%s", diff)
	}
	total := rows[len(rows)-1].Values
	if len(total) != testSpan || total[0] != 80 || total[testSpan-1] != 80 {
		t.Fatalf("unexpected total row %v", total)
	}

	if rows := se.Evaluation(model.ParamHWP); rows != nil {
		t.Fatalf("expected no hwp rows without forestry, got %v", rows)
	}
}

func TestAbsentFieldsAreReportedAsMissing(t *testing.T) {
	sc := scenario()
	sc.NonCattleAgriculture = nonCattleConfigs()
	se, err := NewSimulationEngine(sc, testLookup())
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}
	if _, ok := se.Field(model.FieldForestry); ok {
		t.Fatalf("forestry field should be absent")
	}
	if _, ok := se.System(model.FieldNonCattle, "Pigs"); ok {
		t.Fatalf("Pigs system should be absent")
	}
	if _, ok := se.System(model.FieldNonCattle, model.SystemNoCrops); !ok {
		t.Fatalf("No crops companion should exist alongside Crops")
	}
}

func TestRunBeforeLoad(t *testing.T) {
	sc := scenario()
	sc.NonCattleAgriculture = nonCattleConfigs()
	metrics := newRecordingMetrics()
	se, err := NewSimulationEngine(sc, testLookup(), WithMetricsRecorder(metrics))
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}
	if err := se.Run(context.Background()); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if metrics.runs["error"] != 1 {
		t.Fatalf("expected one failed run, got %v", metrics.runs)
	}
}

func TestEngineRecordsPhases(t *testing.T) {
	metrics := newRecordingMetrics()
	se := runEngine(t, fullScenario(), testLookup(), WithMetricsRecorder(metrics))

	want := []string{PhaseLoad, PhaseScalers, PhaseFields, PhaseCattleAllocation, PhaseAreaBalancing}
	if diff := cmp.Diff(want, metrics.phases); diff != "" {
		t.Fatalf("phase order mismatch (-want +got):\n%s", diff)
	}
	if metrics.runs["success"] != 1 {
		t.Fatalf("expected one successful run, got %v", metrics.runs)
	}
	var systems int
	for _, f := range se.Fields() {
		systems += len(f.Systems())
	}
	if metrics.systems != systems {
		t.Fatalf("systems gauge = %d, want %d", metrics.systems, systems)
	}
}

func TestLoadFailsForUnknownTier(t *testing.T) {
	sc := scenario()
	sc.NonCattleAgriculture = []model.NonCattleConfig{{Name: "Pigs", Abatement: "baseline", Productivity: "medium"}}
	se, err := NewSimulationEngine(sc, testLookup())
	if err != nil {
		t.Fatalf("NewSimulationEngine: %v", err)
	}
	if err := se.Load(context.Background()); err == nil {
		t.Fatalf("expected load failure for Pigs")
	}
}
