// Package status is the central metrics facade. Subsystems cache metric
// pointers at construction and write atomics directly; readers (the
// monitor console, tests) snapshot by key.
package status

import "sync/atomic"

// Registry groups typed metric maps. Keys are dotted paths, e.g.
// "engine.ticks", "artnet.nodes.alive", "beat.bpm".
type Registry struct {
	Bools   *MetricMap[atomic.Bool]
	Ints    *MetricMap[atomic.Int64]
	Floats  *MetricMap[AtomicFloat]
	Strings *MetricMap[AtomicString]
}

func NewRegistry() *Registry {
	return &Registry{
		Bools:   NewMetricMap[atomic.Bool](),
		Ints:    NewMetricMap[atomic.Int64](),
		Floats:  NewMetricMap[AtomicFloat](),
		Strings: NewMetricMap[AtomicString](),
	}
}

// TotalCount returns total metrics across all types.
func (r *Registry) TotalCount() int {
	return r.Bools.Count() + r.Ints.Count() + r.Floats.Count() + r.Strings.Count()
}

// Snapshot is a point-in-time export of every metric, keyed the same way
// the registry is. Used by the monitor console refresh.
type Snapshot struct {
	Bools   map[string]bool
	Ints    map[string]int64
	Floats  map[string]float64
	Strings map[string]string
}

// Export reads every metric once. Values are individually atomic; the
// snapshot as a whole is not a consistent cut and does not need to be.
func (r *Registry) Export() Snapshot {
	snap := Snapshot{
		Bools:   make(map[string]bool, r.Bools.Count()),
		Ints:    make(map[string]int64, r.Ints.Count()),
		Floats:  make(map[string]float64, r.Floats.Count()),
		Strings: make(map[string]string, r.Strings.Count()),
	}
	r.Bools.Range(func(key string, ptr *atomic.Bool) {
		snap.Bools[key] = ptr.Load()
	})
	r.Ints.Range(func(key string, ptr *atomic.Int64) {
		snap.Ints[key] = ptr.Load()
	})
	r.Floats.Range(func(key string, ptr *AtomicFloat) {
		snap.Floats[key] = ptr.Get()
	})
	r.Strings.Range(func(key string, ptr *AtomicString) {
		snap.Strings[key] = ptr.Load()
	})
	return snap
}
