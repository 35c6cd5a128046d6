package core

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/landuse-simulator/internal/logging"
	"github.com/signalsfoundry/landuse-simulator/model"
	"github.com/signalsfoundry/landuse-simulator/timectrl"
)

// seriesOwner is the part of a System the interpolator needs.
type seriesOwner interface {
	Name() string
	Series() *model.TimeSeries
}

// Interpolator turns sparse targets into dense annual series.
type Interpolator struct {
	horizon timectrl.Horizon
	log     logging.Logger
}

// NewInterpolator constructs an interpolator over horizon.
func NewInterpolator(horizon timectrl.Horizon, log logging.Logger) *Interpolator {
	if log == nil {
		log = logging.Noop()
	}
	return &Interpolator{horizon: horizon, log: log}
}

// CurrentYear is the calendar year of the longest history of s. Histories
// of unequal length are logged and the longest one wins.
func (ip *Interpolator) CurrentYear(ctx context.Context, s seriesOwner) int {
	n, consistent := s.Series().Lengths()
	if !consistent {
		ip.log.Warn(ctx, "inconsistent time series length",
			logging.String("system", s.Name()),
			logging.Int("max_length", n),
		)
	}
	return ip.horizon.CurrentYear(n)
}

// Update moves the metrics named in target towards their target values at
// year. When year is already populated the single entry for year is
// overwritten; otherwise every metric ramps linearly from its last value and
// one entry per year is appended. Text targets are appended unchanged.
// Metrics absent from target are left alone. The series is only mutated
// once the whole update has been validated.
func (ip *Interpolator) Update(ctx context.Context, s seriesOwner, target *model.Record, year int) error {
	if year < ip.horizon.BaselineYear {
		return fmt.Errorf("%w: %q target year %d before baseline %d", ErrYearOutOfRange, s.Name(), year, ip.horizon.BaselineYear)
	}
	ts := s.Series()
	current := ip.CurrentYear(ctx, s)

	if year <= current {
		return ip.overwrite(s, target, ip.horizon.Index(year))
	}

	steps := year - current
	ramps := make([]ramp, 0, target.Len())
	for _, key := range target.Keys() {
		if !ts.Has(key) {
			return fmt.Errorf("%q: %w: %q", s.Name(), model.ErrUnknownMetric, key)
		}
		tv, _ := target.Get(key)
		r := ramp{key: key, target: tv}
		if goal, ok := tv.Float(); ok && ts.Len(key) > 0 {
			start, err := ts.Float(key, -1)
			if err != nil {
				return fmt.Errorf("%q ramp start: %w", s.Name(), err)
			}
			r.start, r.goal, r.numeric = start, goal, true
		}
		ramps = append(ramps, r)
	}

	for i := 1; i <= steps; i++ {
		f := float64(i) / float64(steps)
		for _, r := range ramps {
			v := r.target
			if r.numeric {
				v = model.Num((r.goal-r.start)*f + r.start)
			}
			if err := ts.Append(r.key, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// ramp is one metric's linear path. Non-numeric targets and metrics with no
// history are held at the target value.
type ramp struct {
	key         string
	target      model.Value
	start, goal float64
	numeric     bool
}

func (ip *Interpolator) overwrite(s seriesOwner, target *model.Record, idx int) error {
	ts := s.Series()
	for _, key := range target.Keys() {
		if !ts.Has(key) {
			return fmt.Errorf("%q: %w: %q", s.Name(), model.ErrUnknownMetric, key)
		}
		if idx >= ts.Len(key) {
			return fmt.Errorf("%q: %w: %q[%d] (len %d)", s.Name(), model.ErrIndexOutOfRange, key, idx, ts.Len(key))
		}
	}
	for _, key := range target.Keys() {
		v, _ := target.Get(key)
		if err := ts.Set(key, idx, v); err != nil {
			return err
		}
	}
	return nil
}

// ExtendFlat holds the last values of s constant up to the target year.
func (ip *Interpolator) ExtendFlat(ctx context.Context, s seriesOwner) error {
	if ip.CurrentYear(ctx, s) >= ip.horizon.TargetYear {
		return nil
	}
	return ip.Update(ctx, s, s.Series().Row(-1), ip.horizon.TargetYear)
}
