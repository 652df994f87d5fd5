// Package scene holds the compositing stack: an ordered layer list with a
// master dimmer, mutated copy-on-write and read lock-free by the render
// tick.
package scene

import (
	"github.com/lixenwraith/helios/chroma"
	"github.com/lixenwraith/helios/effect"
	"github.com/lixenwraith/helios/vmath"
)

// Layer is one slot in the compositing stack: an effect reference with its
// parameters and compositing controls. Layers are immutable values; edits
// derive a new Layer and Set it into the stack.
type Layer struct {
	EffectID string
	Params   effect.Params
	Blend    chroma.BlendMode
	Opacity  float64
	Enabled  bool
}

// NewLayer builds a layer with full opacity, normal blend, enabled.
func NewLayer(effectID string, params effect.Params) Layer {
	return Layer{
		EffectID: effectID,
		Params:   params,
		Blend:    chroma.BlendNormal,
		Opacity:  1,
		Enabled:  true,
	}
}

func (l Layer) WithBlend(mode chroma.BlendMode) Layer {
	l.Blend = mode
	return l
}

func (l Layer) WithOpacity(opacity float64) Layer {
	l.Opacity = vmath.Clamp01(opacity)
	return l
}

func (l Layer) WithEnabled(enabled bool) Layer {
	l.Enabled = enabled
	return l
}

func (l Layer) WithParams(params effect.Params) Layer {
	l.Params = params
	return l
}
