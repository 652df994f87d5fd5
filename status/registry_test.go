package status

import (
	"sync"
	"sync/atomic"
	"testing"
)

// TestMetricMapCachedPointer verifies repeated Get returns one pointer
func TestMetricMapCachedPointer(t *testing.T) {
	m := NewMetricMap[atomic.Int64]()

	a := m.Get("engine.ticks")
	b := m.Get("engine.ticks")
	if a != b {
		t.Error("Get returned different pointers for the same key")
	}

	a.Store(42)
	if got := b.Load(); got != 42 {
		t.Errorf("value through second pointer: got %d, want 42", got)
	}
}

// TestMetricMapConcurrentGet verifies concurrent creation is safe
func TestMetricMapConcurrentGet(t *testing.T) {
	m := NewMetricMap[atomic.Int64]()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Get("shared").Add(1)
			}
		}()
	}
	wg.Wait()

	if got := m.Get("shared").Load(); got != 1600 {
		t.Errorf("counter: got %d, want 1600", got)
	}
	if m.Count() != 1 {
		t.Errorf("count: got %d, want 1", m.Count())
	}
}

// TestMetricMapRangeSorted verifies deterministic iteration order
func TestMetricMapRangeSorted(t *testing.T) {
	m := NewMetricMap[atomic.Bool]()
	m.Get("z")
	m.Get("a")
	m.Get("m")

	var keys []string
	m.Range(func(key string, ptr *atomic.Bool) {
		keys = append(keys, key)
	})

	want := []string{"a", "m", "z"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("order: got %v, want %v", keys, want)
		}
	}
}

// TestAtomicFloat verifies set/get/add round the bit conversion
func TestAtomicFloat(t *testing.T) {
	var f AtomicFloat

	if got := f.Get(); got != 0 {
		t.Errorf("zero value: got %v", got)
	}

	f.Set(120.5)
	if got := f.Get(); got != 120.5 {
		t.Errorf("after Set: got %v", got)
	}

	if got := f.Add(-0.5); got != 120 {
		t.Errorf("Add return: got %v", got)
	}
	if got := f.Get(); got != 120 {
		t.Errorf("after Add: got %v", got)
	}
}

// TestAtomicFloatConcurrentAdd verifies the CAS loop under contention
func TestAtomicFloatConcurrentAdd(t *testing.T) {
	var f AtomicFloat

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				f.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := f.Get(); got != 8000 {
		t.Errorf("got %v, want 8000", got)
	}
}

// TestAtomicString verifies store/load and the empty zero value
func TestAtomicString(t *testing.T) {
	var s AtomicString

	if got := s.Load(); got != "" {
		t.Errorf("zero value: got %q", got)
	}

	s.Store("connected")
	if got := s.Load(); got != "connected" {
		t.Errorf("got %q", got)
	}
}

// TestRegistryExport verifies the snapshot carries every metric type
func TestRegistryExport(t *testing.T) {
	r := NewRegistry()
	r.Bools.Get("sync.enabled").Store(true)
	r.Ints.Get("engine.ticks").Store(7)
	r.Floats.Get("beat.bpm").Set(128)
	r.Strings.Get("sync.state").Store("searching")

	snap := r.Export()
	if !snap.Bools["sync.enabled"] {
		t.Error("bool missing")
	}
	if snap.Ints["engine.ticks"] != 7 {
		t.Errorf("int: got %d", snap.Ints["engine.ticks"])
	}
	if snap.Floats["beat.bpm"] != 128 {
		t.Errorf("float: got %v", snap.Floats["beat.bpm"])
	}
	if snap.Strings["sync.state"] != "searching" {
		t.Errorf("string: got %q", snap.Strings["sync.state"])
	}
	if r.TotalCount() != 4 {
		t.Errorf("total: got %d, want 4", r.TotalCount())
	}
}
