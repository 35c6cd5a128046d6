package model

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownMetric   = errors.New("unknown metric")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNotNumeric      = errors.New("metric value is not numeric")
)

// TimeSeries maps metric names to per-year values. Index 0 is the baseline
// year. The metric schema is fixed by Declare/Put; writes to undeclared
// metrics fail with ErrUnknownMetric.
//
// TimeSeries is not safe for concurrent use. Each series has exactly one
// owning System and is mutated by one component at a time.
type TimeSeries struct {
	keys   []string
	series map[string][]Value
}

// NewTimeSeries returns an empty series with no declared metrics.
func NewTimeSeries() *TimeSeries {
	return &TimeSeries{series: make(map[string][]Value)}
}

// FromRecord builds a single-year series from a record.
func FromRecord(r *Record) *TimeSeries {
	ts := NewTimeSeries()
	for _, k := range r.Keys() {
		v, _ := r.Get(k)
		ts.Put(k, []Value{v})
	}
	return ts
}

// Declare adds key to the schema with an empty history. It is a no-op for
// keys that already exist.
func (ts *TimeSeries) Declare(key string) {
	if _, ok := ts.series[key]; ok {
		return
	}
	ts.keys = append(ts.keys, key)
	ts.series[key] = nil
}

// Put declares key if needed and replaces its whole history with a copy of vals.
func (ts *TimeSeries) Put(key string, vals []Value) {
	ts.Declare(key)
	cp := make([]Value, len(vals))
	copy(cp, vals)
	ts.series[key] = cp
}

// PutFloats is Put for numeric histories.
func (ts *TimeSeries) PutFloats(key string, vals []float64) {
	cp := make([]Value, len(vals))
	for i, v := range vals {
		cp[i] = Num(v)
	}
	ts.Declare(key)
	ts.series[key] = cp
}

// Has reports whether key is part of the schema.
func (ts *TimeSeries) Has(key string) bool {
	if ts == nil {
		return false
	}
	_, ok := ts.series[key]
	return ok
}

// Keys returns the declared metrics in declaration order.
func (ts *TimeSeries) Keys() []string {
	if ts == nil {
		return nil
	}
	out := make([]string, len(ts.keys))
	copy(out, ts.keys)
	return out
}

// Get returns a copy of the history for key.
func (ts *TimeSeries) Get(key string) ([]Value, bool) {
	if !ts.Has(key) {
		return nil, false
	}
	src := ts.series[key]
	out := make([]Value, len(src))
	copy(out, src)
	return out, true
}

// Floats returns the numeric history for key. Any text entry is an error.
func (ts *TimeSeries) Floats(key string) ([]float64, error) {
	if !ts.Has(key) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, key)
	}
	src := ts.series[key]
	out := make([]float64, len(src))
	for i, v := range src {
		f, ok := v.Float()
		if !ok {
			return nil, fmt.Errorf("%w: %q[%d]", ErrNotNumeric, key, i)
		}
		out[i] = f
	}
	return out, nil
}

// At returns the value at idx. Negative indices count from the end.
func (ts *TimeSeries) At(key string, idx int) (Value, error) {
	if !ts.Has(key) {
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownMetric, key)
	}
	s := ts.series[key]
	i, ok := resolve(idx, len(s))
	if !ok {
		return Value{}, fmt.Errorf("%w: %q[%d] (len %d)", ErrIndexOutOfRange, key, idx, len(s))
	}
	return s[i], nil
}

// Float returns the numeric value at idx.
func (ts *TimeSeries) Float(key string, idx int) (float64, error) {
	v, err := ts.At(key, idx)
	if err != nil {
		return 0, err
	}
	f, ok := v.Float()
	if !ok {
		return 0, fmt.Errorf("%w: %q[%d]", ErrNotNumeric, key, idx)
	}
	return f, nil
}

// Set overwrites the value at idx.
func (ts *TimeSeries) Set(key string, idx int, v Value) error {
	if !ts.Has(key) {
		return fmt.Errorf("%w: %q", ErrUnknownMetric, key)
	}
	s := ts.series[key]
	i, ok := resolve(idx, len(s))
	if !ok {
		return fmt.Errorf("%w: %q[%d] (len %d)", ErrIndexOutOfRange, key, idx, len(s))
	}
	s[i] = v
	return nil
}

// SetFloat is Set for numeric values.
func (ts *TimeSeries) SetFloat(key string, idx int, v float64) error {
	return ts.Set(key, idx, Num(v))
}

// Append grows the history of key by one entry.
func (ts *TimeSeries) Append(key string, v Value) error {
	if !ts.Has(key) {
		return fmt.Errorf("%w: %q", ErrUnknownMetric, key)
	}
	ts.series[key] = append(ts.series[key], v)
	return nil
}

// Len returns the length of the history for key, or 0 when absent.
func (ts *TimeSeries) Len(key string) int {
	if !ts.Has(key) {
		return 0
	}
	return len(ts.series[key])
}

// Lengths returns the longest history and whether every metric has that length.
func (ts *TimeSeries) Lengths() (max int, consistent bool) {
	consistent = true
	first := true
	for _, k := range ts.keys {
		n := len(ts.series[k])
		if first {
			max = n
			first = false
			continue
		}
		if n != max {
			consistent = false
			if n > max {
				max = n
			}
		}
	}
	return max, consistent
}

// Row returns the values of every metric at idx. Negative indices count from
// the end of each metric's own history; metrics that are too short are omitted.
func (ts *TimeSeries) Row(idx int) *Record {
	r := NewRecord()
	for _, k := range ts.keys {
		s := ts.series[k]
		if i, ok := resolve(idx, len(s)); ok {
			r.Set(k, s[i])
		}
	}
	return r
}

// Truncate shortens every history to at most n entries.
func (ts *TimeSeries) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	for _, k := range ts.keys {
		if len(ts.series[k]) > n {
			ts.series[k] = ts.series[k][:n]
		}
	}
}

// Clone returns a deep copy.
func (ts *TimeSeries) Clone() *TimeSeries {
	out := NewTimeSeries()
	for _, k := range ts.keys {
		out.Put(k, ts.series[k])
	}
	return out
}

func resolve(idx, n int) (int, bool) {
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}
