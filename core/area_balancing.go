package core

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/landuse-simulator/internal/logging"
	"github.com/signalsfoundry/landuse-simulator/model"
)

// Balancing passes, also used as metric labels.
const (
	passCrops       = "crops"
	passSparedArea  = "spared_area"
	passOrganicSoil = "afforestation_organic_soil"
)

// areaTerm is one member of a balancing chain.
type areaTerm struct {
	system System
	metric string
}

// AreaBalancer enforces area conservation across sector boundaries once
// every sector has run. Each pass runs only when both sides are present.
type AreaBalancer struct {
	env    *env
	fields func(name string) (Field, bool)
}

// Balance runs the spared-area and afforestation/organic-soil passes.
func (ab *AreaBalancer) Balance(ctx context.Context) error {
	if cattle, ok := ab.fields(model.FieldCattle); ok {
		if err := ab.balanceSparedArea(ctx, cattle); err != nil {
			return fmt.Errorf("spared area balancing: %w", err)
		}
	}
	aff, affOK := ab.system(model.FieldForestry, model.SystemAfforestation)
	soil, soilOK := ab.system(model.FieldOrganicSoils, model.SystemOrganicSoilUnderGrass)
	if affOK && soilOK {
		if err := ab.balanceAfforestationOrganicSoil(ctx, aff, soil); err != nil {
			return fmt.Errorf("afforestation/organic soil balancing: %w", err)
		}
	}
	return nil
}

func (ab *AreaBalancer) system(field, name string) (System, bool) {
	f, ok := ab.fields(field)
	if !ok {
		return nil, false
	}
	return f.System(name)
}

// balanceSparedArea adds every contraction of dairy, beef, sheep,
// afforestation and AD area into the spared area.
func (ab *AreaBalancer) balanceSparedArea(ctx context.Context, cattle Field) error {
	dairy, ok := cattle.System(model.SystemDairy)
	if !ok {
		return nil
	}
	beef, ok := cattle.System(model.SystemBeef)
	if !ok {
		return nil
	}
	spared, ok := cattle.System(model.SystemSparedArea)
	if !ok {
		return nil
	}

	required := []areaTerm{
		{dairy, model.MetricDairyArea},
		{dairy, model.MetricBeefArea},
		{beef, model.MetricBeefArea},
	}
	var optional []areaTerm
	if sheep, ok := ab.system(model.FieldNonCattle, model.SystemSheep); ok {
		optional = append(optional, areaTerm{sheep, model.MetricArea})
	}
	if aff, ok := ab.system(model.FieldForestry, model.SystemAfforestation); ok {
		optional = append(optional, areaTerm{aff, model.MetricArea})
	}
	if ad, ok := ab.system(model.FieldAD, model.SystemAD); ok {
		optional = append(optional,
			areaTerm{ad, model.MetricArea},
			areaTerm{ad, model.MetricADAdditionalArea},
			areaTerm{ad, model.MetricADWillowArea},
		)
	}

	span := ab.env.horizon.Span()
	var members [][]float64
	for _, t := range required {
		vals, err := ab.areaSeries(t, span)
		if err != nil {
			return err
		}
		members = append(members, vals)
	}
	for _, t := range optional {
		if !t.system.Series().Has(t.metric) {
			ab.env.log.Debug(ctx, "balancing member has no area metric; skipped",
				logging.String("system", t.system.Name()),
				logging.String("metric", t.metric),
			)
			continue
		}
		vals, err := ab.areaSeries(t, span)
		if err != nil {
			return err
		}
		members = append(members, vals)
	}

	target := spared.Series()
	if target.Len(model.MetricArea) < span {
		return fmt.Errorf("%w: %q area has %d entries, want %d", model.ErrIndexOutOfRange, spared.Name(), target.Len(model.MetricArea), span)
	}
	for i := 0; i < span; i++ {
		diff := 0.0
		for _, vals := range members {
			diff += vals[0] - vals[i]
		}
		cur, err := target.Float(model.MetricArea, i)
		if err != nil {
			return err
		}
		if err := target.SetFloat(model.MetricArea, i, cur+diff); err != nil {
			return err
		}
	}
	ab.env.metrics.AddBalanceAdjustments(passSparedArea, span)
	return nil
}

// balanceAfforestationOrganicSoil moves afforested organic soil out of the
// drained area of organic soil under grass.
func (ab *AreaBalancer) balanceAfforestationOrganicSoil(_ context.Context, aff, soil System) error {
	grass, ok := soil.(*OrganicSoilSystem)
	if !ok {
		return fmt.Errorf("%q is not an organic soil system", soil.Name())
	}
	span := ab.env.horizon.Span()
	affArea, err := ab.areaSeries(areaTerm{aff, model.MetricOrganicSoilArea}, span)
	if err != nil {
		return err
	}
	drained, err := ab.areaSeries(areaTerm{grass, model.StatusKey(model.Drained, model.MetricArea)}, span)
	if err != nil {
		return err
	}
	for i := 0; i < span; i++ {
		diff := affArea[0] - affArea[i]
		if err := grass.AreaBalance(i, drained[i]+diff, model.Drained); err != nil {
			return err
		}
	}
	ab.env.metrics.AddBalanceAdjustments(passOrganicSoil, span)
	return nil
}

func (ab *AreaBalancer) areaSeries(t areaTerm, span int) ([]float64, error) {
	vals, err := t.system.Series().Floats(t.metric)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", t.system.Name(), err)
	}
	if len(vals) < span {
		return nil, fmt.Errorf("%w: %q %s has %d entries, want %d", model.ErrIndexOutOfRange, t.system.Name(), t.metric, len(vals), span)
	}
	return vals, nil
}
