package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/signalsfoundry/landuse-simulator/internal/logging"
	"github.com/signalsfoundry/landuse-simulator/kb"
	"github.com/signalsfoundry/landuse-simulator/model"
)

// Budget allocation branches.
const (
	BranchAmple        = "ample"
	BranchBeefResidual = "beef_residual"
	BranchDairyOnly    = "dairy_only"
)

// Allocation is the outcome of splitting one waypoint budget.
type Allocation struct {
	DairyScaler float64
	BeefScaler  float64
	Branch      string
}

// AllocateBudget splits budget between dairy and beef given their current
// values and the hypothetical values of the waypoint tier. Dairy is funded
// before beef:
//
//	budget >= cur_d + cur_b      both held at their current level
//	cur_d < budget < cur_d+cur_b dairy held, beef takes (budget - cur_d)/cur_b
//	budget <= cur_d              beef zeroed, dairy takes budget/hyp_d
//
// With surplusToDairy an ample budget holds beef and gives dairy the rest.
func AllocateBudget(budget, curDairy, curBeef, hypDairy, hypBeef float64, surplusToDairy bool) (Allocation, error) {
	if hypDairy == 0 {
		return Allocation{}, fmt.Errorf("%w: hypothetical dairy value is zero", ErrDegenerateAllocation)
	}
	switch {
	case budget >= curDairy+curBeef:
		a := Allocation{DairyScaler: curDairy / hypDairy, Branch: BranchAmple}
		// No current beef keeps beef at zero whatever the hypothetical is.
		if curBeef != 0 {
			if hypBeef == 0 {
				return Allocation{}, fmt.Errorf("%w: hypothetical beef value is zero", ErrDegenerateAllocation)
			}
			a.BeefScaler = curBeef / hypBeef
		}
		if surplusToDairy {
			a.DairyScaler = (budget - curBeef) / hypDairy
		}
		return a, nil
	case budget > curDairy:
		if curBeef == 0 {
			return Allocation{}, fmt.Errorf("%w: current beef value is zero", ErrDegenerateAllocation)
		}
		return Allocation{
			DairyScaler: curDairy / hypDairy,
			BeefScaler:  (budget - curDairy) / curBeef,
			Branch:      BranchBeefResidual,
		}, nil
	default:
		return Allocation{
			DairyScaler: budget / hypDairy,
			BeefScaler:  0,
			Branch:      BranchDairyOnly,
		}, nil
	}
}

// CattleField holds Dairy, Beef and the "Spared area" balancing system.
// Dairy and Beef are projected by Allocate once non-cattle totals exist.
type CattleField struct {
	baseField
	dairy, beef, spared *AgricultureSystem

	waypoints      []model.CattleWayPoint
	surplusToDairy bool
}

func newCattleField(cfg *model.CattleConfig, e *env) *CattleField {
	mk := func(name string) *AgricultureSystem {
		return newAgricultureSystem(kb.KindCattle, name, cfg.Abatement, cfg.Productivity, nil, e)
	}
	f := &CattleField{
		baseField:      baseField{name: model.FieldCattle, env: e},
		dairy:          mk(model.SystemDairy),
		beef:           mk(model.SystemBeef),
		spared:         mk(model.SystemSparedArea),
		surplusToDairy: cfg.SurplusToDairy,
	}
	f.systems = []System{f.dairy, f.beef, f.spared}
	f.waypoints = append([]model.CattleWayPoint(nil), cfg.WayPoints...)
	sort.SliceStable(f.waypoints, func(i, j int) bool { return f.waypoints[i].Year < f.waypoints[j].Year })
	return f
}

// Run extends the spared area flat. Dairy and Beef wait for Allocate.
func (f *CattleField) Run(ctx context.Context) error {
	return f.spared.Run(ctx)
}

// Allocate resolves each cattle waypoint budget net of non-cattle
// consumption and extends Dairy and Beef flat to the target year. A nil
// nonCattle field counts as zero consumption.
func (f *CattleField) Allocate(ctx context.Context, nonCattle *NonCattleField) error {
	for _, wp := range f.waypoints {
		if err := f.allocateWayPoint(ctx, wp, nonCattle); err != nil {
			return fmt.Errorf("cattle waypoint %d: %w", wp.Year, err)
		}
	}
	if n := len(f.waypoints); n > 0 {
		f.env.metrics.AddWaypoints(model.FieldCattle, n)
	}
	if err := f.dairy.baseSystem.Run(ctx); err != nil {
		return err
	}
	return f.beef.baseSystem.Run(ctx)
}

func (f *CattleField) allocateWayPoint(ctx context.Context, wp model.CattleWayPoint, nonCattle *NonCattleField) error {
	lookup := f.env.lookup
	p := wp.ScaleParameter

	dairyHyp, err := lookup.Agriculture(ctx, kb.KindCattle, model.SystemDairy, wp.Abatement, wp.DairyProductivity)
	if err != nil {
		return lookupFailed(model.SystemDairy, err)
	}
	beefHyp, err := lookup.Agriculture(ctx, kb.KindCattle, model.SystemBeef, wp.Abatement, wp.BeefProductivity)
	if err != nil {
		return lookupFailed(model.SystemBeef, err)
	}
	hypDairy, err := dairyHyp.Float(p)
	if err != nil {
		return fmt.Errorf("dairy hypothetical: %w", err)
	}
	hypBeef, err := beefHyp.Float(p)
	if err != nil {
		return fmt.Errorf("beef hypothetical: %w", err)
	}

	ncBase, ncAtYear, err := f.nonCattleConsumption(nonCattle, p, wp.Year)
	if err != nil {
		return err
	}
	d0, err := f.dairy.ts.Float(p, 0)
	if err != nil {
		return err
	}
	b0, err := f.beef.ts.Float(p, 0)
	if err != nil {
		return err
	}

	limit := wp.Scaler
	if !wp.Absolute {
		limit = wp.Scaler * (ncBase + d0 + b0)
	}
	budget := limit - ncAtYear
	if budget < 0 {
		f.env.log.Warn(ctx, "negative cattle budget clamped to zero",
			logging.Int("year", wp.Year),
			logging.String("scale_parameter", p),
			logging.Float("budget", budget),
		)
		budget = 0
	}

	curDairy, err := f.dairy.ts.Float(p, -1)
	if err != nil {
		return err
	}
	curBeef, err := f.beef.ts.Float(p, -1)
	if err != nil {
		return err
	}

	alloc, err := AllocateBudget(budget, curDairy, curBeef, hypDairy, hypBeef, f.surplusToDairy)
	if err != nil {
		return err
	}
	f.env.log.Debug(ctx, "cattle budget allocated",
		logging.Int("year", wp.Year),
		logging.String("branch", alloc.Branch),
		logging.Float("budget", budget),
		logging.Float("dairy_scaler", alloc.DairyScaler),
		logging.Float("beef_scaler", alloc.BeefScaler),
	)
	f.env.metrics.IncAllocation(alloc.Branch)

	if err := f.env.interp.Update(ctx, f.dairy, dairyHyp.Scaled(alloc.DairyScaler), wp.Year); err != nil {
		return err
	}
	return f.env.interp.Update(ctx, f.beef, beefHyp.Scaled(alloc.BeefScaler), wp.Year)
}

// nonCattleConsumption returns the non-cattle total of metric at the
// baseline and at year.
func (f *CattleField) nonCattleConsumption(nonCattle *NonCattleField, metric string, year int) (float64, float64, error) {
	if nonCattle == nil {
		return 0, 0, nil
	}
	totals, err := nonCattle.Totals(metric)
	if err != nil {
		return 0, 0, fmt.Errorf("non-cattle totals: %w", err)
	}
	if len(totals) == 0 {
		return 0, 0, nil
	}
	idx := f.env.horizon.Index(year)
	if idx < 0 || idx >= len(totals) {
		return 0, 0, fmt.Errorf("%w: non-cattle %s has no entry for %d", ErrYearOutOfRange, metric, year)
	}
	return totals[0], totals[idx], nil
}

func (f *CattleField) Evaluate(p model.Parameter) []LabeledSeries {
	switch p {
	case model.ParamCO2e:
		return f.metricRows(model.MetricCO2e, "")
	case model.ParamArea:
		rows := f.metricRows(model.MetricDairyArea, "_"+model.MetricDairyArea)
		rows = append(rows, f.metricRows(model.MetricBeefArea, "_"+model.MetricBeefArea)...)
		return append(rows, f.metricRows(model.MetricArea, "_area")...)
	case model.ParamProtein:
		var rows []LabeledSeries
		if milk, ok := f.sum(model.MetricProteinMilk); ok {
			rows = append(rows, LabeledSeries{Label: "Cattle Protein Milk", Values: milk})
		}
		if beef, ok := f.sum(model.MetricProteinBeef); ok {
			rows = append(rows, LabeledSeries{Label: "Cattle Protein Beef", Values: beef})
		}
		return rows
	case model.ParamBiodiversity:
		return f.metricRows(model.MetricHNVArea, "_hnv_area")
	}
	return nil
}

// sum adds metric over the systems that hold it.
func (f *CattleField) sum(metric string) ([]float64, bool) {
	span := f.env.horizon.Span()
	var total []float64
	for _, s := range f.systems {
		vals, ok := numericSeries(s.Series(), metric, span)
		if !ok {
			continue
		}
		if total == nil {
			total = make([]float64, len(vals))
		}
		for i := 0; i < len(total) && i < len(vals); i++ {
			total[i] += vals[i]
		}
	}
	return total, total != nil
}
