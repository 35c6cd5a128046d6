package kb

import (
	"fmt"
	"strings"

	"github.com/signalsfoundry/landuse-simulator/model"
)

// AD component names.
const (
	ADBiomethane = "biomethane"
	ADAdditional = "additional"
	ADWillow     = "willow"
)

// ADComponent is one anaerobic digestion reference table. ReferenceYear is
// the calendar year at which the table's ramp reaches its nominal value.
// Additional and willow tables hold values per unit of requested magnitude.
type ADComponent struct {
	ReferenceYear int
	Series        *model.TimeSeries
}

// ShiftToYear moves every numeric history of ts so the entry for reference
// lands on year. Shifting later pads the front with the first value; shifting
// earlier drops leading entries and holds the last value. Lengths are
// preserved and text histories are left alone.
func ShiftToYear(ts *model.TimeSeries, reference, year int) *model.TimeSeries {
	shift := year - reference
	out := model.NewTimeSeries()
	for _, k := range ts.Keys() {
		vals, _ := ts.Get(k)
		if model.IsUnitKey(k) || shift == 0 || len(vals) == 0 {
			out.Put(k, vals)
			continue
		}
		out.Put(k, shiftValues(vals, shift))
	}
	return out
}

func shiftValues(vals []model.Value, shift int) []model.Value {
	n := len(vals)
	out := make([]model.Value, n)
	for i := range out {
		src := i - shift
		switch {
		case src < 0:
			src = 0
		case src >= n:
			src = n - 1
		}
		out[i] = vals[src]
	}
	return out
}

// BuildAD assembles the anaerobic digestion series for req from its
// component tables. The biomethane component is required; the others are
// included when present. Metrics shared by several components are summed.
func BuildAD(req ADRequest, components map[string]ADComponent) (*model.TimeSeries, error) {
	base, ok := components[ADBiomethane]
	if !ok || base.Series == nil {
		return nil, fmt.Errorf("%w: anaerobic digestion component %q", ErrNotFound, ADBiomethane)
	}

	out := ShiftToYear(base.Series, base.ReferenceYear, req.ImplementationYear)

	parts := []struct {
		name  string
		year  int
		scale float64
	}{
		{ADAdditional, req.AdditionalBiomethaneYear, req.AdditionalGrassBiomethane},
		{ADWillow, req.WillowYear, req.CDRBioenergy},
	}
	for _, p := range parts {
		c, ok := components[p.name]
		if !ok || c.Series == nil {
			continue
		}
		shifted := ShiftToYear(c.Series, c.ReferenceYear, p.year)
		if err := addScaled(out, shifted, p.scale); err != nil {
			return nil, fmt.Errorf("anaerobic digestion component %q: %w", p.name, err)
		}
	}

	if !req.CCS {
		for _, k := range out.Keys() {
			if model.IsUnitKey(k) || !strings.Contains(k, model.MetricBECCS) {
				continue
			}
			out.PutFloats(k, make([]float64, out.Len(k)))
		}
	}
	return out, nil
}

// addScaled adds src×scale into dst metric by metric. New metrics are
// declared on dst; histories of different lengths are an error.
func addScaled(dst, src *model.TimeSeries, scale float64) error {
	for _, k := range src.Keys() {
		vals, _ := src.Get(k)
		if model.IsUnitKey(k) {
			if !dst.Has(k) {
				dst.Put(k, vals)
			}
			continue
		}
		for i := range vals {
			vals[i] = vals[i].Scale(scale)
		}
		if !dst.Has(k) {
			dst.Put(k, vals)
			continue
		}
		cur, err := dst.Floats(k)
		if err != nil {
			return err
		}
		if len(cur) != len(vals) {
			return fmt.Errorf("metric %q has %d entries, want %d", k, len(vals), len(cur))
		}
		for i := range cur {
			f, ok := vals[i].Float()
			if !ok {
				return fmt.Errorf("%w: %q[%d]", model.ErrNotNumeric, k, i)
			}
			cur[i] += f
		}
		dst.PutFloats(k, cur)
	}
	return nil
}
