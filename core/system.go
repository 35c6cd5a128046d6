package core

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/landuse-simulator/internal/logging"
	"github.com/signalsfoundry/landuse-simulator/kb"
	"github.com/signalsfoundry/landuse-simulator/model"
	"github.com/signalsfoundry/landuse-simulator/timectrl"
)

// System is a named entity owning one time series. Systems belong to exactly
// one Field and are mutated by one component at a time.
type System interface {
	Name() string
	Series() *model.TimeSeries
	// Load replaces the series with baseline data from the lookup.
	Load(ctx context.Context) error
	// Run projects the series to the target year.
	Run(ctx context.Context) error
}

// Scalable systems accept baseline scalers before the run.
type Scalable interface {
	System
	ApplyScaler(ctx context.Context, multiplier float64, year int) error
}

// env carries the collaborators every system of one engine shares.
type env struct {
	horizon timectrl.Horizon
	lookup  kb.Lookup
	interp  *Interpolator
	log     logging.Logger
	metrics MetricsRecorder
}

type baseSystem struct {
	name string
	ts   *model.TimeSeries
	env  *env
}

func newBaseSystem(name string, e *env) baseSystem {
	return baseSystem{name: name, ts: model.NewTimeSeries(), env: e}
}

func (b *baseSystem) Name() string              { return b.name }
func (b *baseSystem) Series() *model.TimeSeries { return b.ts }

// Run holds the last values flat up to the target year.
func (b *baseSystem) Run(ctx context.Context) error {
	return b.env.interp.ExtendFlat(ctx, b)
}

// CurrentYear returns the calendar year of the last populated entry.
func (b *baseSystem) CurrentYear(ctx context.Context) int {
	return b.env.interp.CurrentYear(ctx, b)
}

// trimToHorizon drops entries beyond the target year from multi-year tables.
func (b *baseSystem) trimToHorizon() {
	b.ts.Truncate(b.env.horizon.Span())
}

// lookupFailed wraps a lookup error with the system that issued it.
func lookupFailed(system string, err error) error {
	return fmt.Errorf("load %q: %w", system, err)
}
