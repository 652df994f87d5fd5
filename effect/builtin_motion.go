package effect

import (
	"math"
	"time"

	"github.com/lixenwraith/helios/beat"
	"github.com/lixenwraith/helios/vmath"
)

// orbitEffect traces a pan/tilt circle, one revolution per bar when
// beat-locked. All channels live in normalized [0,1] range.
// Params: pan (0.5), tilt (0.5), radius (0.25), beat (true),
// speed (0.25 revolutions/s when beat=false), stagger (0, phase offset per
// unit of x so a fixture row orbits as a fan).
type orbitEffect struct{}

type orbitCtx struct {
	panCenter  float64
	tiltCenter float64
	radius     float64
	angle      float64
	stagger    float64
}

func (orbitEffect) ID() string { return "orbit" }

func (orbitEffect) Prepare(p Params, now time.Duration, bs beat.State) Context {
	var turn float64
	if p.Bool("beat", true) {
		turn = bs.BarPhase
	} else {
		turn = vmath.Wrap01(now.Seconds() * p.Float("speed", 0.25))
	}
	return orbitCtx{
		panCenter:  vmath.Clamp01(p.Float("pan", 0.5)),
		tiltCenter: vmath.Clamp01(p.Float("tilt", 0.5)),
		radius:     vmath.Clamp(p.Float("radius", 0.25), 0, 0.5),
		angle:      2 * math.Pi * turn,
		stagger:    p.Float("stagger", 0),
	}
}

func (orbitEffect) Move(pos vmath.Vec3, ctx Context) Movement {
	c := ctx.(orbitCtx)
	a := c.angle + 2*math.Pi*c.stagger*pos.X
	return Movement{
		Pan:  Set(vmath.Clamp01(c.panCenter + c.radius*math.Cos(a))),
		Tilt: Set(vmath.Clamp01(c.tiltCenter + c.radius*math.Sin(a))),
	}
}

// sweepEffect swings pan on a sine while holding tilt, the classic
// back-and-forth fan wash. Tilt stays unset unless the param is given, so
// a sweep layered over another look leaves the base tilt alone.
// Params: pan (0.5), width (0.5 full swing), tilt (unset), beat (true),
// speed (0.25 swings/s when beat=false).
type sweepEffect struct{}

type sweepCtx struct {
	pan  float64
	tilt Channel
}

func (sweepEffect) ID() string { return "sweep" }

func (sweepEffect) Prepare(p Params, now time.Duration, bs beat.State) Context {
	var turn float64
	if p.Bool("beat", true) {
		turn = bs.BarPhase
	} else {
		turn = vmath.Wrap01(now.Seconds() * p.Float("speed", 0.25))
	}

	center := vmath.Clamp01(p.Float("pan", 0.5))
	width := vmath.Clamp(p.Float("width", 0.5), 0, 1)
	pan := vmath.Clamp01(center + 0.5*width*math.Sin(2*math.Pi*turn))

	tilt := Unset()
	if p.Has("tilt") {
		tilt = Set(vmath.Clamp01(p.Float("tilt", 0.5)))
	}
	return sweepCtx{pan: pan, tilt: tilt}
}

func (sweepEffect) Move(pos vmath.Vec3, ctx Context) Movement {
	c := ctx.(sweepCtx)
	return Movement{Pan: Set(c.pan), Tilt: c.tilt}
}

// pointEffect aims fixtures at fixed channel values. Only channels whose
// params are present are set; everything else keeps whatever the layers
// below decided.
// Params: pan, tilt, focus, zoom, strobe (all optional), gobo (optional
// slot index).
type pointEffect struct{}

type pointCtx struct {
	move Movement
}

func (pointEffect) ID() string { return "point" }

func (pointEffect) Prepare(p Params, now time.Duration, bs beat.State) Context {
	var m Movement
	for _, ch := range []struct {
		key string
		dst *Channel
	}{
		{"pan", &m.Pan},
		{"tilt", &m.Tilt},
		{"focus", &m.Focus},
		{"zoom", &m.Zoom},
		{"strobe", &m.Strobe},
	} {
		if p.Has(ch.key) {
			*ch.dst = Set(vmath.Clamp01(p.Float(ch.key, 0)))
		}
	}
	if p.Has("gobo") {
		m.Gobo = SetGobo(p.Int("gobo", 0))
	}
	return pointCtx{move: m}
}

func (pointEffect) Move(pos vmath.Vec3, ctx Context) Movement {
	return ctx.(pointCtx).move
}
