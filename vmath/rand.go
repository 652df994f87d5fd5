package vmath

// FastRand is a xorshift64 generator for hot-path procedural values.
// Not safe for concurrent use; give each call site its own instance.
type FastRand struct {
	state uint64
}

func NewFastRand(seed uint64) *FastRand {
	if seed == 0 {
		seed = 1
	}
	return &FastRand{state: seed}
}

func (r *FastRand) Next() uint64 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return x
}

func (r *FastRand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Next() % uint64(n))
}

// Float01 returns a value in [0,1) from the top 53 bits of the next state.
func (r *FastRand) Float01() float64 {
	return float64(r.Next()>>11) / (1 << 53)
}

// Mix64 folds v into h with a golden-ratio multiply for full avalanche.
// Used to derive stable per-key seeds from composite inputs.
func Mix64(h, v uint64) uint64 {
	h ^= v * 0x9E3779B97F4A7C15
	h ^= h >> 29
	h *= 0xBF58476D1CE4E5B9
	h ^= h >> 32
	return h
}
