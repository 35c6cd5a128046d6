package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/signalsfoundry/landuse-simulator/model"
)

// OrganicSoilSystem tracks one organic soil across its drainage statuses.
// Series keys are "<status>_area", "<status>_<metric>" (coefficient × area)
// and the aggregate "<metric>" summed over statuses.
type OrganicSoilSystem struct {
	baseSystem
	statuses  []string
	waypoints []model.OrganicSoilWayPoint
	soilTypes []model.SoilType
}

func newOrganicSoilSystem(cfg model.OrganicSoilConfig, e *env) *OrganicSoilSystem {
	wps := append([]model.OrganicSoilWayPoint(nil), cfg.WayPoints...)
	sort.SliceStable(wps, func(i, j int) bool { return wps[i].Year < wps[j].Year })
	return &OrganicSoilSystem{
		baseSystem: newBaseSystem(cfg.Name, e),
		statuses:   append([]string(nil), cfg.DrainageStatus...),
		waypoints:  wps,
	}
}

// SoilType returns the baseline soil type for a drainage status.
func (s *OrganicSoilSystem) SoilType(status string) (model.SoilType, bool) {
	for _, st := range s.soilTypes {
		if st.DrainageStatus == status {
			return st, true
		}
	}
	return model.SoilType{}, false
}

func (s *OrganicSoilSystem) Load(ctx context.Context) error {
	soilTypes := make([]model.SoilType, 0, len(s.statuses))
	for _, status := range s.statuses {
		r, err := s.env.lookup.OrganicSoil(ctx, s.name, status)
		if err != nil {
			return lookupFailed(s.name, err)
		}
		area, err := r.Float(model.MetricArea)
		if err != nil {
			return fmt.Errorf("%q %s: %w", s.name, status, err)
		}
		params := r.Clone()
		params.Delete(model.MetricArea)
		soilTypes = append(soilTypes, model.SoilType{Area: area, DrainageStatus: status, Parameters: params})
	}
	s.soilTypes = soilTypes
	s.ts = model.FromRecord(s.compose(func(st model.SoilType) float64 { return st.Area }))
	return nil
}

// compose derives every status and aggregate metric for the areas returned
// by areaOf.
func (s *OrganicSoilSystem) compose(areaOf func(model.SoilType) float64) *model.Record {
	r := model.NewRecord()
	for _, st := range s.soilTypes {
		area := areaOf(st)
		r.Set(model.StatusKey(st.DrainageStatus, model.MetricArea), model.Num(area))
		for _, k := range st.Parameters.Keys() {
			v, _ := st.Parameters.Get(k)
			coef, ok := v.Float()
			if !ok {
				r.Set(model.StatusKey(st.DrainageStatus, k), v)
				continue
			}
			r.Set(model.StatusKey(st.DrainageStatus, k), model.Num(coef*area))
			total := coef * area
			if cur, err := r.Float(k); err == nil {
				total += cur
			}
			r.Set(k, model.Num(total))
		}
	}
	return r
}

// Rewet moves ratio of the baseline drained area to the rewetted class and
// feeds the recomputed metrics through the interpolator at year.
func (s *OrganicSoilSystem) Rewet(ctx context.Context, ratio float64, year int) error {
	baselineDrained := 0.0
	if st, ok := s.SoilType(model.Drained); ok {
		baselineDrained = st.Area
	}
	target := s.compose(func(st model.SoilType) float64 {
		switch st.DrainageStatus {
		case model.Drained:
			return (1 - ratio) * baselineDrained
		case model.Rewetted:
			return st.Area + ratio*baselineDrained
		}
		return st.Area
	})
	return s.env.interp.Update(ctx, s, target, year)
}

// AreaBalance rewrites the area of status at idx, re-derives its per-hectare
// metrics and re-aggregates the totals at idx.
func (s *OrganicSoilSystem) AreaBalance(idx int, area float64, status string) error {
	st, ok := s.SoilType(status)
	if !ok {
		return fmt.Errorf("%q has no %s soil type", s.name, status)
	}
	if err := s.ts.SetFloat(model.StatusKey(status, model.MetricArea), idx, area); err != nil {
		return err
	}
	for _, k := range st.Parameters.Keys() {
		coef, err := st.Parameters.Float(k)
		if err != nil {
			continue
		}
		if err := s.ts.SetFloat(model.StatusKey(status, k), idx, coef*area); err != nil {
			return err
		}
	}
	return s.reaggregate(idx)
}

func (s *OrganicSoilSystem) reaggregate(idx int) error {
	var keys []string
	seen := make(map[string]bool)
	for _, st := range s.soilTypes {
		for _, k := range st.Parameters.Keys() {
			if _, err := st.Parameters.Float(k); err != nil || seen[k] {
				continue
			}
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		total := 0.0
		for _, st := range s.soilTypes {
			if _, err := st.Parameters.Float(k); err != nil {
				continue
			}
			v, err := s.ts.Float(model.StatusKey(st.DrainageStatus, k), idx)
			if err != nil {
				return err
			}
			total += v
		}
		if err := s.ts.SetFloat(k, idx, total); err != nil {
			return err
		}
	}
	return nil
}

// Run applies each rewetting waypoint and extends flat to the target year.
func (s *OrganicSoilSystem) Run(ctx context.Context) error {
	for _, wp := range s.waypoints {
		if err := s.Rewet(ctx, wp.RewettingRatio, wp.Year); err != nil {
			return fmt.Errorf("%q rewetting %d: %w", s.name, wp.Year, err)
		}
	}
	if n := len(s.waypoints); n > 0 {
		s.env.metrics.AddWaypoints(model.FieldOrganicSoils, n)
	}
	return s.baseSystem.Run(ctx)
}

// OrganicSoilsField holds one system per organic soil type.
type OrganicSoilsField struct {
	baseField
}

func newOrganicSoilsField(cfgs []model.OrganicSoilConfig, e *env) *OrganicSoilsField {
	f := &OrganicSoilsField{baseField{name: model.FieldOrganicSoils, env: e}}
	for _, c := range cfgs {
		f.systems = append(f.systems, newOrganicSoilSystem(c, e))
	}
	return f
}

func (f *OrganicSoilsField) Evaluate(p model.Parameter) []LabeledSeries {
	switch p {
	case model.ParamCO2e:
		return f.statusRows(model.MetricCO2e)
	case model.ParamArea:
		return f.statusRows(model.MetricArea)
	case model.ParamBiodiversity:
		return f.statusRows(model.MetricHNVArea)
	}
	return nil
}

// statusRows reports metric per drainage status, labelled "<status>_<soil>".
func (f *OrganicSoilsField) statusRows(metric string) []LabeledSeries {
	span := f.env.horizon.Span()
	var rows []LabeledSeries
	for _, sys := range f.systems {
		s, ok := sys.(*OrganicSoilSystem)
		if !ok {
			continue
		}
		for _, status := range s.statuses {
			if vals, ok := numericSeries(s.ts, model.StatusKey(status, metric), span); ok {
				rows = append(rows, LabeledSeries{Label: model.StatusKey(status, s.name), Values: vals})
			}
		}
	}
	return rows
}
