package core

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/landuse-simulator/internal/logging"
	"github.com/signalsfoundry/landuse-simulator/kb"
)

// ScalerApplier feeds baseline scalers through the interpolator before the
// sector runs.
type ScalerApplier struct {
	env *env
}

// Apply rescales the baseline row of every Scalable system with a column in
// table, one (year, multiplier) pair at a time in table order. It returns the
// number of scaler entries applied.
func (sa *ScalerApplier) Apply(ctx context.Context, fields []Field, table *kb.ScalerTable) (int, error) {
	if table == nil {
		return 0, nil
	}
	h := sa.env.horizon
	applied := 0
	for _, f := range fields {
		for _, s := range f.Systems() {
			sc, ok := s.(Scalable)
			if !ok {
				continue
			}
			column, ok := table.Column(s.Name())
			if !ok {
				continue
			}
			for i, year := range table.Years {
				if !h.Contains(year) {
					sa.env.log.Debug(ctx, "scaler year outside horizon; skipped",
						logging.String("system", s.Name()),
						logging.Int("year", year),
					)
					continue
				}
				if err := sc.ApplyScaler(ctx, column[i], year); err != nil {
					return applied, fmt.Errorf("apply scaler %q year %d: %w", s.Name(), year, err)
				}
				applied++
			}
		}
	}
	return applied, nil
}
