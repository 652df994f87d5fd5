package scene

import (
	"time"

	"github.com/lixenwraith/helios/beat"
	"github.com/lixenwraith/helios/chroma"
	"github.com/lixenwraith/helios/effect"
	"github.com/lixenwraith/helios/vmath"
)

// boundLayer is a layer resolved against the registry with its context
// prepared. Layers whose id resolves to nothing are dropped at bind time,
// which is the "unknown effect is a no-op" rule.
type boundLayer struct {
	layer    Layer
	spatial  effect.Effect
	movement effect.MovementEffect
	ctx      effect.Context
}

// Pass is one tick's evaluation unit. BeginPass resolves and prepares
// every enabled layer exactly once; Color and Movement then fold the same
// prepared contexts for every fixture, so a whole frame sees one
// consistent stack state and one consistent set of contexts.
type Pass struct {
	layers []boundLayer
	master float64
	beat   beat.State
}

// BeginPass snapshots the stack and prepares all enabled layers.
// The beat state is scaled by the stack's tempo multiplier before any
// effect sees it.
func (s *Stack) BeginPass(reg *effect.Registry, now time.Duration, bs beat.State) Pass {
	snap := s.current.Load()
	scaled := bs.WithMultiplier(snap.tempoMult)

	bound := make([]boundLayer, 0, len(snap.layers))
	for _, l := range snap.layers {
		if !l.Enabled {
			continue
		}

		bl := boundLayer{layer: l}
		if sp, ok := reg.Get(l.EffectID); ok {
			bl.spatial = sp
			bl.ctx = sp.Prepare(l.Params, now, scaled)
		}
		if mv, ok := reg.GetMovement(l.EffectID); ok {
			bl.movement = mv
			if bl.spatial == nil {
				bl.ctx = mv.Prepare(l.Params, now, scaled)
			}
		}
		if bl.spatial == nil && bl.movement == nil {
			continue
		}
		bound = append(bound, bl)
	}

	return Pass{
		layers: bound,
		master: snap.master,
		beat:   scaled,
	}
}

// Color folds the spatial layers bottom to top for one fixture position,
// then applies the master dimmer. The dimmer multiply is bypassed at the
// endpoints: 0 short-circuits to black, 1 leaves the fold untouched.
func (p Pass) Color(pos vmath.Vec3) chroma.Color {
	if p.master <= 0 {
		return chroma.Black
	}

	result := chroma.Black
	for i := range p.layers {
		bl := &p.layers[i]
		if bl.spatial == nil {
			continue
		}
		overlay := bl.spatial.Compute(pos, bl.ctx)
		result = bl.layer.Blend.Apply(result, overlay, bl.layer.Opacity)
	}

	if p.master >= 1 {
		return result
	}
	return result.Scale(p.master)
}

// Movement folds the movement layers bottom to top for one fixture
// position. Unset channels never override set ones beneath them. The
// master dimmer does not touch movement.
func (p Pass) Movement(pos vmath.Vec3) effect.Movement {
	var result effect.Movement
	for i := range p.layers {
		bl := &p.layers[i]
		if bl.movement == nil {
			continue
		}
		overlay := bl.movement.Move(pos, bl.ctx)
		result = effect.BlendMovement(result, overlay, bl.layer.Blend, bl.layer.Opacity)
	}
	return result
}

// Beat returns the tempo snapshot this pass was prepared with, after the
// tempo multiplier.
func (p Pass) Beat() beat.State {
	return p.beat
}

// LayerCount returns the number of bound (enabled, resolvable) layers.
func (p Pass) LayerCount() int {
	return len(p.layers)
}

// HasMovement reports whether any bound layer drives movement channels.
func (p Pass) HasMovement() bool {
	for i := range p.layers {
		if p.layers[i].movement != nil {
			return true
		}
	}
	return false
}
