package core

import (
	"context"

	"github.com/signalsfoundry/landuse-simulator/model"
)

// Field groups the Systems of one land-use sector and owns them exclusively.
type Field interface {
	Name() string
	Systems() []System
	System(name string) (System, bool)
	Load(ctx context.Context) error
	Run(ctx context.Context) error
	// Evaluate reports the labelled series this field contributes for p.
	// Fields with nothing to say for p return nil.
	Evaluate(p model.Parameter) []LabeledSeries
}

// LabeledSeries is one evaluation row.
type LabeledSeries struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

type baseField struct {
	name    string
	systems []System
	env     *env
}

func (f *baseField) Name() string { return f.name }

func (f *baseField) Systems() []System {
	out := make([]System, len(f.systems))
	copy(out, f.systems)
	return out
}

func (f *baseField) System(name string) (System, bool) {
	for _, s := range f.systems {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

func (f *baseField) Load(ctx context.Context) error {
	for _, s := range f.systems {
		if err := s.Load(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (f *baseField) Run(ctx context.Context) error {
	for _, s := range f.systems {
		if err := s.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}

// metricRows returns one labelled row per system holding metric. Systems
// without the metric are skipped.
func (f *baseField) metricRows(metric, suffix string) []LabeledSeries {
	span := f.env.horizon.Span()
	var rows []LabeledSeries
	for _, s := range f.systems {
		if vals, ok := numericSeries(s.Series(), metric, span); ok {
			rows = append(rows, LabeledSeries{Label: s.Name() + suffix, Values: vals})
		}
	}
	return rows
}

// numericSeries returns the first span values of metric, or false when the
// metric is absent or not numeric.
func numericSeries(ts *model.TimeSeries, metric string, span int) ([]float64, bool) {
	vals, err := ts.Floats(metric)
	if err != nil {
		return nil, false
	}
	if len(vals) > span {
		vals = vals[:span]
	}
	return vals, true
}
