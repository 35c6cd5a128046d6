package core

import "errors"

var (
	// ErrDegenerateAllocation is returned when a scaler or budget split would
	// divide by a zero hypothetical or current value.
	ErrDegenerateAllocation = errors.New("degenerate allocation")
	// ErrYearOutOfRange is returned for years outside the simulation horizon.
	ErrYearOutOfRange = errors.New("year out of range")
	// ErrInvalidScenario wraps every scenario configuration failure.
	ErrInvalidScenario = errors.New("invalid scenario")
	// ErrIncompleteSeries is returned when a series does not span the horizon.
	ErrIncompleteSeries = errors.New("series does not span the horizon")
	// ErrNotLoaded is returned when Run is called before Load.
	ErrNotLoaded = errors.New("simulation not loaded")
)
