package scene

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lixenwraith/helios/parameter"
	"github.com/lixenwraith/helios/vmath"
)

// snapshot is one published stack state. The layers slice is never
// mutated after publication; mutators build a fresh one.
type snapshot struct {
	layers    []Layer
	master    float64
	tempoMult float64
}

// Stack is the ordered layer list plus master dimmer. Mutators serialize
// through a mutex, build the next state aside, and publish it with one
// atomic swap; the per-frame read path only dereferences the current
// snapshot and never takes the lock. A reader can therefore never observe
// a half-applied mutation, including a whole-scene replace.
type Stack struct {
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
}

func NewStack() *Stack {
	s := &Stack{}
	s.current.Store(&snapshot{
		master:    parameter.DefaultMaster,
		tempoMult: parameter.DefaultTempoMult,
	})
	return s
}

// cloneLocked requires s.mu held. Returns a mutable copy of the current
// layer list.
func (s *Stack) cloneLocked() []Layer {
	cur := s.current.Load()
	next := make([]Layer, len(cur.layers))
	copy(next, cur.layers)
	return next
}

// publishLocked requires s.mu held.
func (s *Stack) publishLocked(layers []Layer, master, tempoMult float64) {
	s.current.Store(&snapshot{
		layers:    layers,
		master:    vmath.Clamp01(master),
		tempoMult: tempoMult,
	})
}

// AddLayer appends on top of the stack and returns the new layer's index.
func (s *Stack) AddLayer(l Layer) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	next := append(s.cloneLocked(), l)
	s.publishLocked(next, cur.master, cur.tempoMult)
	return len(next) - 1
}

// RemoveAt deletes the layer at index. Panics on an out-of-range index:
// that is a caller bug, not a runtime condition.
func (s *Stack) RemoveAt(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	s.checkIndex(index, len(cur.layers))

	next := make([]Layer, 0, len(cur.layers)-1)
	next = append(next, cur.layers[:index]...)
	next = append(next, cur.layers[index+1:]...)
	s.publishLocked(next, cur.master, cur.tempoMult)
}

// Set replaces the layer at index.
func (s *Stack) Set(index int, l Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	s.checkIndex(index, len(cur.layers))

	next := s.cloneLocked()
	next[index] = l
	s.publishLocked(next, cur.master, cur.tempoMult)
}

// Move reorders the layer at from to position to.
func (s *Stack) Move(from, to int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	s.checkIndex(from, len(cur.layers))
	s.checkIndex(to, len(cur.layers))
	if from == to {
		return
	}

	next := s.cloneLocked()
	l := next[from]
	next = append(next[:from], next[from+1:]...)

	tail := make([]Layer, 0, len(cur.layers))
	tail = append(tail, next[:to]...)
	tail = append(tail, l)
	tail = append(tail, next[to:]...)
	s.publishLocked(tail, cur.master, cur.tempoMult)
}

// Clear drops every layer, keeping dimmer and tempo multiplier.
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	s.publishLocked(nil, cur.master, cur.tempoMult)
}

// ReplaceAll swaps in a whole new stack state in one publication: layers,
// master dimmer, and tempo multiplier together. No intermediate state is
// ever visible to the render tick.
func (s *Stack) ReplaceAll(layers []Layer, master, tempoMult float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]Layer, len(layers))
	copy(next, layers)
	s.publishLocked(next, master, tempoMult)
}

// SetMaster sets the master dimmer, clamped to [0,1].
func (s *Stack) SetMaster(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	s.publishLocked(cur.layers, v, cur.tempoMult)
}

// SetTempoMultiplier sets the playback speed scale applied to the beat
// state during evaluation. Non-positive values are treated as 1.
func (s *Stack) SetTempoMultiplier(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v <= 0 {
		v = 1
	}
	cur := s.current.Load()
	s.publishLocked(cur.layers, cur.master, v)
}

func (s *Stack) checkIndex(i, n int) {
	if i < 0 || i >= n {
		panic(fmt.Sprintf("scene: layer index %d out of range [0,%d)", i, n))
	}
}

// Len returns the layer count.
func (s *Stack) Len() int {
	return len(s.current.Load().layers)
}

// Layer returns the layer at index. Panics out of range.
func (s *Stack) Layer(index int) Layer {
	cur := s.current.Load()
	s.checkIndex(index, len(cur.layers))
	return cur.layers[index]
}

// Layers returns a copy of the current layer list, bottom to top.
func (s *Stack) Layers() []Layer {
	cur := s.current.Load()
	out := make([]Layer, len(cur.layers))
	copy(out, cur.layers)
	return out
}

// Master returns the master dimmer.
func (s *Stack) Master() float64 {
	return s.current.Load().master
}

// TempoMultiplier returns the playback speed scale.
func (s *Stack) TempoMultiplier() float64 {
	return s.current.Load().tempoMult
}
