package core

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/landuse-simulator/model"
)

// ForestrySystem is existing_forest or afforestation. Its baseline is a
// multi-year table; its co2e is the sum of the net-zero metric set.
type ForestrySystem struct {
	baseSystem
	cfg       model.ForestryConfig
	nzMetrics []string
}

func newForestrySystem(cfg model.ForestryConfig, e *env) *ForestrySystem {
	return &ForestrySystem{baseSystem: newBaseSystem(cfg.Name, e), cfg: cfg}
}

// NetZeroMetrics returns the metrics summed into co2e, in lookup order.
func (s *ForestrySystem) NetZeroMetrics() []string {
	return append([]string(nil), s.nzMetrics...)
}

func (s *ForestrySystem) Load(ctx context.Context) error {
	nz, err := s.env.lookup.NetZeroMetrics(ctx, s.name, s.cfg.CCS)
	if err != nil {
		return lookupFailed(s.name, err)
	}
	s.nzMetrics = nz

	var table *model.TimeSeries
	switch s.name {
	case model.SystemAfforestation:
		table, err = s.env.lookup.Afforestation(ctx, s.cfg.AfforestationRate, s.cfg.BroadleafFrac, s.cfg.OrganicSoil, s.cfg.Harvest, s.cfg.CCS)
	default:
		table, err = s.env.lookup.ExistingForest(ctx, s.cfg.Harvest, s.cfg.CCS)
	}
	if err != nil {
		return lookupFailed(s.name, err)
	}
	s.ts = table
	s.trimToHorizon()
	return nil
}

// Run extends the table to the target year and derives co2e.
func (s *ForestrySystem) Run(ctx context.Context) error {
	if err := s.baseSystem.Run(ctx); err != nil {
		return err
	}
	co2e, err := s.netEmissions()
	if err != nil {
		return err
	}
	s.ts.PutFloats(model.MetricCO2e, co2e)
	return nil
}

func (s *ForestrySystem) netEmissions() ([]float64, error) {
	n, _ := s.ts.Lengths()
	total := make([]float64, n)
	for _, m := range s.nzMetrics {
		vals, err := s.ts.Floats(m)
		if err != nil {
			return nil, fmt.Errorf("%q net-zero metric: %w", s.name, err)
		}
		for i := 0; i < len(vals) && i < n; i++ {
			total[i] += vals[i]
		}
	}
	return total, nil
}

// ForestryField holds existing_forest and afforestation.
type ForestryField struct {
	baseField
}

func newForestryField(cfgs []model.ForestryConfig, e *env) *ForestryField {
	f := &ForestryField{baseField{name: model.FieldForestry, env: e}}
	for _, c := range cfgs {
		f.systems = append(f.systems, newForestrySystem(c, e))
	}
	return f
}

func (f *ForestryField) Evaluate(p model.Parameter) []LabeledSeries {
	switch p {
	case model.ParamCO2e:
		return f.metricRows(model.MetricCO2e, "")
	case model.ParamArea:
		return f.metricRows(model.MetricArea, "_area")
	case model.ParamBioEnergy:
		return f.metricRows(model.MetricWoodEnergy, "_wood_energy")
	case model.ParamHWP:
		return f.metricRows(model.MetricHarvestVolume, "_harvest_volume")
	case model.ParamSubstitution:
		rows := f.metricRows(model.MetricMaterialSubstitution, "_"+model.MetricMaterialSubstitution)
		return append(rows, f.metricRows(model.MetricEnergySubstitution, "_"+model.MetricEnergySubstitution)...)
	case model.ParamBiodiversity:
		return f.metricRows(model.MetricHNVArea, "_hnv_area")
	}
	return nil
}
