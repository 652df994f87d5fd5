// Package effect defines the pure-function effect contract and the id-keyed
// registry the compositing stack resolves layers through.
//
// Evaluation is two-phase. Prepare runs once per stack pass and bakes
// params, time, and beat state into an opaque context (trig, palette
// resolution, RNG seeding). Compute/Move then run once per fixture against
// that context. Effects must be stateless, side-effect-free, and
// deterministic: identical inputs always produce identical outputs.
package effect

import (
	"time"

	"github.com/lixenwraith/helios/beat"
	"github.com/lixenwraith/helios/chroma"
	"github.com/lixenwraith/helios/vmath"
)

// Context is the opaque per-pass state returned by Prepare and handed back
// to every Compute/Move call of the same pass.
type Context any

// Effect produces a color per fixture position.
type Effect interface {
	ID() string
	Prepare(params Params, now time.Duration, bs beat.State) Context
	Compute(pos vmath.Vec3, ctx Context) chroma.Color
}

// MovementEffect produces optional movement channels per fixture position.
// An effect may implement both interfaces.
type MovementEffect interface {
	ID() string
	Prepare(params Params, now time.Duration, bs beat.State) Context
	Move(pos vmath.Vec3, ctx Context) Movement
}
