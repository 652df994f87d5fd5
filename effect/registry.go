package effect

import (
	"sort"
	"sync"
)

// Registry is the id->effect lookup table layers resolve through.
// Registration overwrites on id collision. Spatial and movement effects
// share the id namespace; an effect implementing both registers in both
// tables under one id.
type Registry struct {
	mu       sync.RWMutex
	spatial  map[string]Effect
	movement map[string]MovementEffect
}

func NewRegistry() *Registry {
	return &Registry{
		spatial:  make(map[string]Effect),
		movement: make(map[string]MovementEffect),
	}
}

// Register adds a spatial effect, and its movement side when present.
func (r *Registry) Register(e Effect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spatial[e.ID()] = e
	if m, ok := e.(MovementEffect); ok {
		r.movement[m.ID()] = m
	}
}

// RegisterMovement adds a movement-only effect.
func (r *Registry) RegisterMovement(m MovementEffect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movement[m.ID()] = m
	if e, ok := m.(Effect); ok {
		r.spatial[e.ID()] = e
	}
}

// Get retrieves a spatial effect by id.
func (r *Registry) Get(id string) (Effect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.spatial[id]
	return e, ok
}

// GetMovement retrieves a movement effect by id.
func (r *Registry) GetMovement(id string) (MovementEffect, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.movement[id]
	return m, ok
}

// Unregister removes an id from both tables.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.spatial, id)
	delete(r.movement, id)
}

// Names returns all registered ids, sorted, without duplicates.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.spatial)+len(r.movement))
	for id := range r.spatial {
		seen[id] = struct{}{}
	}
	for id := range r.movement {
		seen[id] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for id := range seen {
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}
