package timectrl

import (
	"errors"
	"fmt"
)

// ErrInvalidHorizon is returned when the target year does not follow the
// baseline year.
var ErrInvalidHorizon = errors.New("target year must be after baseline year")

// Horizon is the annual time grid of a scenario. Index 0 is the baseline
// year and the last index is the target year.
type Horizon struct {
	BaselineYear int
	TargetYear   int
}

// NewHorizon constructs a validated horizon.
func NewHorizon(baseline, target int) (Horizon, error) {
	if target <= baseline {
		return Horizon{}, fmt.Errorf("%w: baseline %d, target %d", ErrInvalidHorizon, baseline, target)
	}
	return Horizon{BaselineYear: baseline, TargetYear: target}, nil
}

// Span is the number of annual entries a complete series holds.
func (h Horizon) Span() int {
	return h.TargetYear - h.BaselineYear + 1
}

// Index converts a calendar year to a series offset. It does not check bounds.
func (h Horizon) Index(year int) int {
	return year - h.BaselineYear
}

// Year converts a series offset back to a calendar year.
func (h Horizon) Year(idx int) int {
	return h.BaselineYear + idx
}

// Contains reports whether year lies on the grid.
func (h Horizon) Contains(year int) bool {
	return year >= h.BaselineYear && year <= h.TargetYear
}

// Years returns every year on the grid in ascending order.
func (h Horizon) Years() []int {
	out := make([]int, 0, h.Span())
	for y := h.BaselineYear; y <= h.TargetYear; y++ {
		out = append(out, y)
	}
	return out
}

// CurrentYear is the calendar year of the last populated entry of a series
// holding n entries. An empty series sits one year before the baseline.
func (h Horizon) CurrentYear(n int) int {
	return h.BaselineYear + n - 1
}
