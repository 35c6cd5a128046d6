package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/signalsfoundry/landuse-simulator/kb"
	"github.com/signalsfoundry/landuse-simulator/model"
)

// AgricultureSystem is a livestock or crop system whose baseline is a
// single-year snapshot selected by abatement and productivity tier.
type AgricultureSystem struct {
	baseSystem
	kind         kb.AgricultureKind
	abatement    string
	productivity string
	waypoints    []model.AgricultureWayPoint
}

func newAgricultureSystem(kind kb.AgricultureKind, name, abatement, productivity string, wps []model.AgricultureWayPoint, e *env) *AgricultureSystem {
	sorted := append([]model.AgricultureWayPoint(nil), wps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })
	return &AgricultureSystem{
		baseSystem:   newBaseSystem(name, e),
		kind:         kind,
		abatement:    abatement,
		productivity: productivity,
		waypoints:    sorted,
	}
}

// WayPoints returns the waypoints in ascending year order.
func (s *AgricultureSystem) WayPoints() []model.AgricultureWayPoint {
	return append([]model.AgricultureWayPoint(nil), s.waypoints...)
}

func (s *AgricultureSystem) Load(ctx context.Context) error {
	r, err := s.env.lookup.Agriculture(ctx, s.kind, s.name, s.abatement, s.productivity)
	if err != nil {
		return lookupFailed(s.name, err)
	}
	s.ts = model.FromRecord(r)
	return nil
}

// ApplyScaler feeds the baseline row times multiplier through the
// interpolator at year.
func (s *AgricultureSystem) ApplyScaler(ctx context.Context, multiplier float64, year int) error {
	return s.env.interp.Update(ctx, s, s.ts.Row(0).Scaled(multiplier), year)
}

// Run applies each waypoint in year order and extends flat to the target.
func (s *AgricultureSystem) Run(ctx context.Context) error {
	for _, wp := range s.waypoints {
		if err := s.applyWayPoint(ctx, wp); err != nil {
			return err
		}
	}
	if n := len(s.waypoints); n > 0 {
		s.env.metrics.AddWaypoints(model.FieldNonCattle, n)
	}
	return s.baseSystem.Run(ctx)
}

func (s *AgricultureSystem) applyWayPoint(ctx context.Context, wp model.AgricultureWayPoint) error {
	hyp, err := s.env.lookup.Agriculture(ctx, s.kind, s.name, wp.Abatement, wp.Productivity)
	if err != nil {
		return lookupFailed(s.name, err)
	}
	hypValue, err := hyp.Float(wp.ScaleParameter)
	if err != nil {
		return fmt.Errorf("%q waypoint %d: %w", s.name, wp.Year, err)
	}
	if hypValue == 0 {
		return fmt.Errorf("%w: %q waypoint %d: hypothetical %s is zero", ErrDegenerateAllocation, s.name, wp.Year, wp.ScaleParameter)
	}

	scaler := wp.Scaler / hypValue
	if !wp.Absolute {
		base, err := s.ts.Float(wp.ScaleParameter, 0)
		if err != nil {
			return fmt.Errorf("%q waypoint %d: %w", s.name, wp.Year, err)
		}
		scaler = base / hypValue * wp.Scaler
	}
	return s.env.interp.Update(ctx, s, hyp.Scaled(scaler), wp.Year)
}

// NonCattleField holds pigs, poultry, sheep, crops and the companion
// "No crops" system.
type NonCattleField struct {
	baseField
}

func newNonCattleField(cfgs []model.NonCattleConfig, e *env) *NonCattleField {
	f := &NonCattleField{baseField{name: model.FieldNonCattle, env: e}}
	for _, c := range cfgs {
		f.systems = append(f.systems, newAgricultureSystem(kb.KindNonCattle, c.Name, c.Abatement, c.Productivity, c.WayPoints, e))
		if c.Name == model.SystemCrops {
			f.systems = append(f.systems, newAgricultureSystem(kb.KindNonCattle, model.SystemNoCrops, c.Abatement, c.Productivity, nil, e))
		}
	}
	return f
}

// Run projects every system and then mirrors crop area changes into the
// "No crops" area.
func (f *NonCattleField) Run(ctx context.Context) error {
	if err := f.baseField.Run(ctx); err != nil {
		return err
	}
	return f.balanceCrops()
}

func (f *NonCattleField) balanceCrops() error {
	crops, ok := f.System(model.SystemCrops)
	if !ok {
		return nil
	}
	noCrops, ok := f.System(model.SystemNoCrops)
	if !ok {
		return nil
	}
	c, err := crops.Series().Floats(model.MetricArea)
	if err != nil {
		return fmt.Errorf("crop balancing: %w", err)
	}
	nc, err := noCrops.Series().Floats(model.MetricArea)
	if err != nil {
		return fmt.Errorf("crop balancing: %w", err)
	}
	if len(c) == 0 || len(nc) == 0 {
		return nil
	}
	n := min(len(c), len(nc))
	for i := 0; i < n; i++ {
		if err := noCrops.Series().SetFloat(model.MetricArea, i, nc[0]-(c[i]-c[0])); err != nil {
			return err
		}
	}
	f.env.metrics.AddBalanceAdjustments(passCrops, n)
	return nil
}

// Totals sums metric across every system of the field.
func (f *NonCattleField) Totals(metric string) ([]float64, error) {
	var total []float64
	for _, s := range f.systems {
		vals, err := s.Series().Floats(metric)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s.Name(), err)
		}
		if total == nil {
			total = vals
			continue
		}
		for i := 0; i < len(total) && i < len(vals); i++ {
			total[i] += vals[i]
		}
		if len(vals) < len(total) {
			total = total[:len(vals)]
		}
	}
	return total, nil
}

func (f *NonCattleField) Evaluate(p model.Parameter) []LabeledSeries {
	switch p {
	case model.ParamCO2e:
		return f.metricRows(model.MetricCO2e, "")
	case model.ParamArea:
		return f.metricRows(model.MetricArea, "_area")
	case model.ParamProtein:
		return f.metricRows(model.MetricProtein, "_protein")
	case model.ParamBiodiversity:
		return f.metricRows(model.MetricHNVArea, "_hnv_area")
	}
	return nil
}
