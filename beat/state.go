// Package beat provides the tempo subsystem: an immutable per-tick beat
// snapshot, a common clock interface, a manual tap estimator, and a wrapper
// around an external sync session.
package beat

import (
	"time"

	"github.com/lixenwraith/helios/parameter"
	"github.com/lixenwraith/helios/vmath"
)

// State is an immutable tempo snapshot taken once per render tick.
// Phases live in [0,1); a bar is four beats.
type State struct {
	BPM       float64
	BeatPhase float64
	BarPhase  float64
	Elapsed   time.Duration
}

// WithMultiplier returns the state scaled for scene playback speed:
// bpm and both phases advance mult times faster. Non-positive mult is
// treated as 1.
func (s State) WithMultiplier(mult float64) State {
	if mult <= 0 || mult == 1 {
		return s
	}
	return State{
		BPM:       vmath.Clamp(s.BPM*mult, parameter.MinBPM, parameter.MaxBPM),
		BeatPhase: vmath.Wrap01(s.BeatPhase * mult),
		BarPhase:  vmath.Wrap01(s.BarPhase * mult),
		Elapsed:   s.Elapsed,
	}
}

// Clock is the surface the render tick samples. Values are pulled, never
// pushed into the effect layer. Start and Stop are idempotent.
type Clock interface {
	BPM() float64
	BeatPhase() float64
	BarPhase() float64
	IsRunning() bool
	Elapsed() time.Duration
	State() State
	Start()
	Stop()
}
