package effect

import (
	"github.com/lixenwraith/helios/chroma"
	"github.com/lixenwraith/helios/vmath"
)

// Channel is an optional normalized movement value in [0,1]. An unset
// channel means "no opinion": blending never lets it override a set base.
type Channel struct {
	value float64
	valid bool
}

// Set constructs a set channel, clamping into [0,1].
func Set(v float64) Channel {
	return Channel{value: vmath.Clamp01(v), valid: true}
}

// Unset is the zero Channel, named for readability at call sites.
func Unset() Channel {
	return Channel{}
}

func (c Channel) Get() (float64, bool) {
	return c.value, c.valid
}

func (c Channel) IsSet() bool {
	return c.valid
}

// Or returns the channel value, or def when unset.
func (c Channel) Or(def float64) float64 {
	if c.valid {
		return c.value
	}
	return def
}

// Gobo is an optional wheel slot index. Gobo selection never interpolates:
// blending is integer replacement only.
type Gobo struct {
	slot  int
	valid bool
}

func SetGobo(slot int) Gobo {
	if slot < 0 {
		slot = 0
	}
	return Gobo{slot: slot, valid: true}
}

func (g Gobo) Get() (int, bool) {
	return g.slot, g.valid
}

func (g Gobo) IsSet() bool {
	return g.valid
}

// Movement is one fixture's optional movement channels for a frame.
// The zero value has no opinion on any channel.
type Movement struct {
	Pan    Channel
	Tilt   Channel
	Focus  Channel
	Zoom   Channel
	Strobe Channel
	Gobo   Gobo
}

// IsZero reports whether no channel is set.
func (m Movement) IsZero() bool {
	return !m.Pan.IsSet() && !m.Tilt.IsSet() && !m.Focus.IsSet() &&
		!m.Zoom.IsSet() && !m.Strobe.IsSet() && !m.Gobo.IsSet()
}

// BlendMovement folds overlay over base. Unset overlay channels keep the
// base untouched. For set channels, additive mode accumulates
// overlay*opacity onto the base; every other mode lerps base toward
// overlay by opacity. A set overlay over an unset base takes the overlay
// value (scaled by opacity only in additive mode). Gobo replaces outright.
func BlendMovement(base, overlay Movement, mode chroma.BlendMode, opacity float64) Movement {
	opacity = vmath.Clamp01(opacity)
	out := Movement{
		Pan:    blendChannel(base.Pan, overlay.Pan, mode, opacity),
		Tilt:   blendChannel(base.Tilt, overlay.Tilt, mode, opacity),
		Focus:  blendChannel(base.Focus, overlay.Focus, mode, opacity),
		Zoom:   blendChannel(base.Zoom, overlay.Zoom, mode, opacity),
		Strobe: blendChannel(base.Strobe, overlay.Strobe, mode, opacity),
		Gobo:   base.Gobo,
	}
	if overlay.Gobo.IsSet() && opacity > 0 {
		out.Gobo = overlay.Gobo
	}
	return out
}

func blendChannel(base, overlay Channel, mode chroma.BlendMode, opacity float64) Channel {
	if !overlay.IsSet() || opacity == 0 {
		return base
	}

	ov, _ := overlay.Get()
	bv, baseSet := base.Get()

	if mode == chroma.BlendAdditive {
		if !baseSet {
			bv = 0
		}
		return Set(bv + ov*opacity)
	}

	if !baseSet {
		return overlay
	}
	return Set(vmath.Lerp(bv, ov, opacity))
}
