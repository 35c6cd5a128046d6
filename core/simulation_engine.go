package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/landuse-simulator/internal/logging"
	"github.com/signalsfoundry/landuse-simulator/kb"
	"github.com/signalsfoundry/landuse-simulator/model"
	"github.com/signalsfoundry/landuse-simulator/timectrl"
)

// Engine phases, also used as metric and span labels.
const (
	PhaseLoad             = "load"
	PhaseScalers          = "scalers"
	PhaseFields           = "fields"
	PhaseCattleAllocation = "cattle_allocation"
	PhaseAreaBalancing    = "area_balancing"
)

// MetricsRecorder receives engine progress. observability.RunCollector
// implements it.
type MetricsRecorder interface {
	ObservePhase(phase string, d time.Duration)
	SetSystems(n int)
	AddWaypoints(field string, n int)
	IncAllocation(branch string)
	AddBalanceAdjustments(pass string, n int)
	IncRun(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) ObservePhase(string, time.Duration) {}
func (noopMetrics) SetSystems(int)                     {}
func (noopMetrics) AddWaypoints(string, int)           {}
func (noopMetrics) IncAllocation(string)               {}
func (noopMetrics) AddBalanceAdjustments(string, int)  {}
func (noopMetrics) IncRun(string)                      {}

// EngineOption configures a SimulationEngine.
type EngineOption func(*SimulationEngine)

// WithLogger sets the engine logger.
func WithLogger(l logging.Logger) EngineOption {
	return func(se *SimulationEngine) {
		if l != nil {
			se.log = l
		}
	}
}

// WithMetricsRecorder wires a metrics sink for phase timings and counters.
func WithMetricsRecorder(m MetricsRecorder) EngineOption {
	return func(se *SimulationEngine) {
		if m != nil {
			se.metrics = m
		}
	}
}

// WithTracer overrides the tracer used for phase spans.
func WithTracer(t trace.Tracer) EngineOption {
	return func(se *SimulationEngine) {
		if t != nil {
			se.tracer = t
		}
	}
}

// SimulationEngine projects one scenario from the baseline year to the
// target year. It is single-threaded: Load then Run, then read results.
type SimulationEngine struct {
	Scenario model.Scenario
	Horizon  timectrl.Horizon

	lookup  kb.Lookup
	fields  []Field
	env     *env
	log     logging.Logger
	metrics MetricsRecorder
	tracer  trace.Tracer

	loaded bool
}

// NewSimulationEngine validates sc and builds its fields in the fixed order
// forestry, non-cattle agriculture, cattle agriculture, organic soils,
// anaerobic digestion.
func NewSimulationEngine(sc *model.Scenario, lookup kb.Lookup, opts ...EngineOption) (*SimulationEngine, error) {
	if sc == nil {
		return nil, fmt.Errorf("%w: nil scenario", ErrInvalidScenario)
	}
	if lookup == nil {
		return nil, fmt.Errorf("NewSimulationEngine: lookup is nil")
	}
	if err := ValidateScenario(sc); err != nil {
		return nil, err
	}
	horizon, err := timectrl.NewHorizon(sc.BaselineYear, sc.TargetYear)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}

	se := &SimulationEngine{
		Scenario: *sc,
		Horizon:  horizon,
		lookup:   lookup,
		log:      logging.Noop(),
		metrics:  noopMetrics{},
		tracer:   otel.Tracer("github.com/signalsfoundry/landuse-simulator/core"),
	}
	for _, opt := range opts {
		opt(se)
	}
	se.env = &env{
		horizon: horizon,
		lookup:  lookup,
		interp:  NewInterpolator(horizon, se.log),
		log:     se.log,
		metrics: se.metrics,
	}

	if len(sc.Forestry) > 0 {
		se.fields = append(se.fields, newForestryField(sc.Forestry, se.env))
	}
	if len(sc.NonCattleAgriculture) > 0 {
		se.fields = append(se.fields, newNonCattleField(sc.NonCattleAgriculture, se.env))
	}
	if sc.CattleSystems != nil {
		se.fields = append(se.fields, newCattleField(sc.CattleSystems, se.env))
	}
	if len(sc.OrganicSoils) > 0 {
		se.fields = append(se.fields, newOrganicSoilsField(sc.OrganicSoils, se.env))
	}
	if sc.ADEmissions != nil {
		se.fields = append(se.fields, newADField(sc.ADEmissions, se.env))
	}
	return se, nil
}

// Load reads baseline data for every system and applies the scaler table.
func (se *SimulationEngine) Load(ctx context.Context) error {
	err := se.phase(ctx, PhaseLoad, func(ctx context.Context) error {
		for _, f := range se.fields {
			if err := f.Load(ctx); err != nil {
				return fmt.Errorf("%s: %w", f.Name(), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = se.phase(ctx, PhaseScalers, func(ctx context.Context) error {
		table, err := se.lookup.Scalers(ctx)
		if err != nil {
			return fmt.Errorf("load scalers: %w", err)
		}
		applier := &ScalerApplier{env: se.env}
		n, err := applier.Apply(ctx, se.fields, table)
		if err != nil {
			return err
		}
		se.log.Debug(ctx, "scalers applied", logging.Int("entries", n))
		return nil
	})
	if err != nil {
		return err
	}

	systems := 0
	for _, f := range se.fields {
		systems += len(f.Systems())
	}
	se.metrics.SetSystems(systems)
	se.loaded = true
	se.log.Info(ctx, "scenario loaded",
		logging.Int("fields", len(se.fields)),
		logging.Int("systems", systems),
		logging.Int("baseline_year", se.Horizon.BaselineYear),
		logging.Int("target_year", se.Horizon.TargetYear),
	)
	return nil
}

// Run projects every field, allocates the cattle budget and balances area
// across sectors. Series whose length differs from the horizon are logged
// as warnings.
func (se *SimulationEngine) Run(ctx context.Context) (err error) {
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		se.metrics.IncRun(outcome)
	}()
	if !se.loaded {
		return ErrNotLoaded
	}

	if err := se.phase(ctx, PhaseFields, func(ctx context.Context) error {
		for _, f := range se.fields {
			if err := f.Run(ctx); err != nil {
				return fmt.Errorf("%s: %w", f.Name(), err)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := se.phase(ctx, PhaseCattleAllocation, func(ctx context.Context) error {
		f, ok := se.Field(model.FieldCattle)
		if !ok {
			return nil
		}
		cattle := f.(*CattleField)
		var nonCattle *NonCattleField
		if nc, ok := se.Field(model.FieldNonCattle); ok {
			nonCattle = nc.(*NonCattleField)
		}
		return cattle.Allocate(ctx, nonCattle)
	}); err != nil {
		return err
	}

	if err := se.phase(ctx, PhaseAreaBalancing, func(ctx context.Context) error {
		balancer := &AreaBalancer{env: se.env, fields: se.Field}
		return balancer.Balance(ctx)
	}); err != nil {
		return err
	}

	if err := se.VerifyHorizon(); err != nil {
		se.log.Warn(ctx, "simulation finished with incomplete series", logging.Err(err))
	}
	se.log.Info(ctx, "simulation finished", logging.Int("years", se.Horizon.Span()))
	return nil
}

// phase runs fn inside a span and records its duration.
func (se *SimulationEngine) phase(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := se.tracer.Start(ctx, "simulation."+name, trace.WithAttributes(attribute.String("phase", name)))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	se.metrics.ObservePhase(name, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		se.log.Error(ctx, "simulation phase failed", logging.String("phase", name), logging.Err(err))
		return err
	}
	se.log.Debug(ctx, "simulation phase done",
		logging.String("phase", name),
		logging.Duration("duration", time.Since(start)),
	)
	return nil
}

// Fields returns the configured fields in run order.
func (se *SimulationEngine) Fields() []Field {
	out := make([]Field, len(se.fields))
	copy(out, se.fields)
	return out
}

// Field returns the field called name, or false when it is not configured.
func (se *SimulationEngine) Field(name string) (Field, bool) {
	for _, f := range se.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// System returns a system of a field, or false when either is absent.
func (se *SimulationEngine) System(field, name string) (System, bool) {
	f, ok := se.Field(field)
	if !ok {
		return nil, false
	}
	return f.System(name)
}

// VerifyHorizon reports every metric whose history does not match the
// horizon span.
func (se *SimulationEngine) VerifyHorizon() error {
	span := se.Horizon.Span()
	var bad []string
	for _, f := range se.fields {
		for _, s := range f.Systems() {
			ts := s.Series()
			for _, k := range ts.Keys() {
				if n := ts.Len(k); n != span {
					bad = append(bad, fmt.Sprintf("%s/%s/%s=%d", f.Name(), s.Name(), k, n))
				}
			}
		}
	}
	if len(bad) == 0 {
		return nil
	}
	return fmt.Errorf("%w (want %d): %s", ErrIncompleteSeries, span, strings.Join(bad, ", "))
}

// Evaluation returns every labelled series the fields report for p, drops
// series that are zero throughout and appends their element-wise "total".
func (se *SimulationEngine) Evaluation(p model.Parameter) []LabeledSeries {
	var rows []LabeledSeries
	for _, f := range se.fields {
		for _, r := range f.Evaluate(p) {
			if allZero(r.Values) {
				continue
			}
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	total := make([]float64, se.Horizon.Span())
	for _, r := range rows {
		for i := 0; i < len(total) && i < len(r.Values); i++ {
			total[i] += r.Values[i]
		}
	}
	return append(rows, LabeledSeries{Label: "total", Values: total})
}

func allZero(vals []float64) bool {
	for _, v := range vals {
		if v != 0 {
			return false
		}
	}
	return true
}
