package core

import (
	"context"

	"github.com/signalsfoundry/landuse-simulator/kb"
	"github.com/signalsfoundry/landuse-simulator/model"
)

// ADSystem is the single anaerobic digestion system. Its baseline is the
// year-shifted multi-table series returned by the lookup.
type ADSystem struct {
	baseSystem
	cfg model.ADConfig
}

func (s *ADSystem) Load(ctx context.Context) error {
	ts, err := s.env.lookup.AnaerobicDigestion(ctx, kb.ADRequest{
		ImplementationYear:        s.cfg.ImplementationYear,
		CCS:                       s.cfg.CCS,
		AdditionalBiomethaneYear:  s.cfg.AdditionalBiomethaneYear,
		AdditionalGrassBiomethane: s.cfg.AdditionalGrassBiomethane,
		WillowYear:                s.cfg.WillowYear,
		CDRBioenergy:              s.cfg.CDRBioenergy,
	})
	if err != nil {
		return lookupFailed(s.name, err)
	}
	s.ts = ts
	s.trimToHorizon()
	return nil
}

// ADField wraps the anaerobic digestion system.
type ADField struct {
	baseField
}

func newADField(cfg *model.ADConfig, e *env) *ADField {
	sys := &ADSystem{baseSystem: newBaseSystem(model.SystemAD, e), cfg: *cfg}
	return &ADField{baseField{name: model.FieldAD, env: e, systems: []System{sys}}}
}

func (f *ADField) Evaluate(p model.Parameter) []LabeledSeries {
	switch p {
	case model.ParamCO2e:
		return f.metricRows(model.MetricCO2e, "")
	case model.ParamArea:
		rows := f.metricRows(model.MetricArea, "_area")
		rows = append(rows, f.metricRows(model.MetricADAdditionalArea, "_"+model.MetricADAdditionalArea)...)
		return append(rows, f.metricRows(model.MetricADWillowArea, "_"+model.MetricADWillowArea)...)
	case model.ParamBioEnergy:
		rows := f.metricRows(model.MetricBiomethaneEnergy, "_"+model.MetricBiomethaneEnergy)
		return append(rows, f.metricRows(model.MetricAdditionalBiomethaneEnergy, "_"+model.MetricAdditionalBiomethaneEnergy)...)
	}
	return nil
}
