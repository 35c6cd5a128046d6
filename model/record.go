package model

import "fmt"

// Record is an ordered single-year mapping of metric name to value. Lookup
// snapshots and waypoint targets are records.
type Record struct {
	keys []string
	vals map[string]Value
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{vals: make(map[string]Value)}
}

// Set stores v under key, appending key to the order on first use.
func (r *Record) Set(key string, v Value) {
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = v
}

// Get returns the value for key and whether it is present.
func (r *Record) Get(key string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	v, ok := r.vals[key]
	return v, ok
}

// Float returns the numeric value stored under key.
func (r *Record) Float(key string) (float64, error) {
	v, ok := r.Get(key)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, key)
	}
	f, ok := v.Float()
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotNumeric, key)
	}
	return f, nil
}

// Delete removes key from the record.
func (r *Record) Delete(key string) {
	if _, ok := r.vals[key]; !ok {
		return
	}
	delete(r.vals, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the metric names in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of metrics.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Scaled returns a copy with every numeric value multiplied by f.
func (r *Record) Scaled(f float64) *Record {
	out := NewRecord()
	for _, k := range r.keys {
		out.Set(k, r.vals[k].Scale(f))
	}
	return out
}

// Clone returns a copy that shares no state with r.
func (r *Record) Clone() *Record {
	out := NewRecord()
	for _, k := range r.keys {
		out.Set(k, r.vals[k])
	}
	return out
}
