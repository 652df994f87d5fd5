package effect

import (
	"math"
	"time"

	"github.com/lixenwraith/helios/beat"
	"github.com/lixenwraith/helios/chroma"
	"github.com/lixenwraith/helios/vmath"
)

// solidEffect fills every fixture with one color.
// Params: color (white).
type solidEffect struct{}

func (solidEffect) ID() string { return "solid" }

func (solidEffect) Prepare(p Params, now time.Duration, bs beat.State) Context {
	return p.Color("color", chroma.White)
}

func (solidEffect) Compute(pos vmath.Vec3, ctx Context) chroma.Color {
	return ctx.(chroma.Color)
}

// gradientEffect lerps between two colors along one axis.
// Params: from (red), to (blue), axis (x), scale (1), offset (0).
// A palette with two or more entries supplies from/to when the explicit
// params are absent, so scene palettes color the gradient automatically.
type gradientEffect struct{}

type gradientCtx struct {
	from, to chroma.Color
	axis     func(x, y, z float64) float64
	scale    float64
	offset   float64
}

func (gradientEffect) ID() string { return "gradient" }

func (gradientEffect) Prepare(p Params, now time.Duration, bs beat.State) Context {
	from := chroma.Red
	to := chroma.Blue
	if pal := p.Colors("palette", nil); len(pal) >= 2 {
		from = pal[0]
		to = pal[len(pal)-1]
	}
	return gradientCtx{
		from:   p.Color("from", from),
		to:     p.Color("to", to),
		axis:   axisOf(p),
		scale:  p.Float("scale", 1),
		offset: p.Float("offset", 0),
	}
}

func (gradientEffect) Compute(pos vmath.Vec3, ctx Context) chroma.Color {
	c := ctx.(gradientCtx)
	t := vmath.Clamp01(c.axis(pos.X, pos.Y, pos.Z)*c.scale + c.offset)
	return c.from.Lerp(c.to, t)
}

// rainbowEffect maps hue to position along one axis and scrolls it over time.
// Params: axis (x), scale (0.5 hue cycles per unit), speed (0.1 cycles/s),
// saturation (1), value (1).
type rainbowEffect struct{}

type rainbowCtx struct {
	axis       func(x, y, z float64) float64
	scale      float64
	shift      float64
	saturation float64
	value      float64
}

func (rainbowEffect) ID() string { return "rainbow" }

func (rainbowEffect) Prepare(p Params, now time.Duration, bs beat.State) Context {
	return rainbowCtx{
		axis:       axisOf(p),
		scale:      p.Float("scale", 0.5),
		shift:      now.Seconds() * p.Float("speed", 0.1),
		saturation: vmath.Clamp01(p.Float("saturation", 1)),
		value:      vmath.Clamp01(p.Float("value", 1)),
	}
}

func (rainbowEffect) Compute(pos vmath.Vec3, ctx Context) chroma.Color {
	c := ctx.(rainbowCtx)
	hue := vmath.Wrap01(c.axis(pos.X, pos.Y, pos.Z)*c.scale + c.shift)
	return chroma.FromHSV(hue, c.saturation, c.value)
}

// waveEffect runs a sine brightness wave along one axis.
// Params: color (white), axis (x), wavelength (2 units), beat (true),
// speed (1, cycles per second when beat=false, cycles per beat otherwise).
type waveEffect struct{}

type waveCtx struct {
	color      chroma.Color
	axis       func(x, y, z float64) float64
	wavelength float64
	phase      float64
}

func (waveEffect) ID() string { return "wave" }

func (waveEffect) Prepare(p Params, now time.Duration, bs beat.State) Context {
	speed := p.Float("speed", 1)
	var phase float64
	if p.Bool("beat", true) {
		phase = bs.BeatPhase * speed
	} else {
		phase = now.Seconds() * speed
	}
	wl := p.Float("wavelength", 2)
	if wl <= 0 {
		wl = 2
	}
	return waveCtx{
		color:      p.Color("color", chroma.White),
		axis:       axisOf(p),
		wavelength: wl,
		phase:      phase,
	}
}

func (waveEffect) Compute(pos vmath.Vec3, ctx Context) chroma.Color {
	c := ctx.(waveCtx)
	x := c.axis(pos.X, pos.Y, pos.Z) / c.wavelength
	brightness := 0.5 + 0.5*math.Sin(2*math.Pi*(x-c.phase))
	return c.color.Scale(brightness)
}

// chaseEffect sweeps a pulse window with a trailing tail along one axis,
// once per bar when beat-locked. The window color tracks the palette as the
// head moves, falling back to the color param.
// Params: color (white), axis (x), span (4 units), width (0.25 of span),
// beat (true), speed (0.25 sweeps/s when beat=false).
type chaseEffect struct{}

type chaseCtx struct {
	color chroma.Color
	axis  func(x, y, z float64) float64
	span  float64
	width float64
	head  float64
}

func (chaseEffect) ID() string { return "chase" }

func (chaseEffect) Prepare(p Params, now time.Duration, bs beat.State) Context {
	var head float64
	if p.Bool("beat", true) {
		head = bs.BarPhase
	} else {
		head = vmath.Wrap01(now.Seconds() * p.Float("speed", 0.25))
	}

	span := p.Float("span", 4)
	if span <= 0 {
		span = 4
	}

	color := p.Color("color", chroma.White)
	if pal := p.Colors("palette", nil); len(pal) > 0 {
		color = pal.Sample(head)
	}

	return chaseCtx{
		color: color,
		axis:  axisOf(p),
		span:  span,
		width: vmath.Clamp(p.Float("width", 0.25), 0.01, 1),
		head:  head,
	}
}

func (chaseEffect) Compute(pos vmath.Vec3, ctx Context) chroma.Color {
	c := ctx.(chaseCtx)
	// Distance behind the head in normalized span units, wrapped so the
	// window chases seamlessly across the span boundary.
	d := vmath.Wrap01(c.head - c.axis(pos.X, pos.Y, pos.Z)/c.span)
	if d >= c.width {
		return chroma.Black
	}
	return c.color.Scale(1 - d/c.width)
}

// pulseEffect flashes on the downbeat and decays over the beat. Uniform
// across fixtures; the envelope is baked once per pass.
// Params: color (white), sharpness (2, higher decays faster), floor (0).
type pulseEffect struct{}

func (pulseEffect) ID() string { return "pulse" }

func (pulseEffect) Prepare(p Params, now time.Duration, bs beat.State) Context {
	sharpness := p.Float("sharpness", 2)
	if sharpness < 1 {
		sharpness = 1
	}
	floor := vmath.Clamp01(p.Float("floor", 0))
	envelope := math.Pow(1-bs.BeatPhase, sharpness)
	return p.Color("color", chroma.White).Scale(floor + (1-floor)*envelope)
}

func (pulseEffect) Compute(pos vmath.Vec3, ctx Context) chroma.Color {
	return ctx.(chroma.Color)
}

// strobeEffect switches hard on/off subdivided from the beat.
// Params: color (white), rate (2 flashes per beat), duty (0.2).
type strobeEffect struct{}

func (strobeEffect) ID() string { return "strobe" }

func (strobeEffect) Prepare(p Params, now time.Duration, bs beat.State) Context {
	rate := p.Float("rate", 2)
	if rate < 1 {
		rate = 1
	}
	duty := vmath.Clamp(p.Float("duty", 0.2), 0.01, 1)

	if phase := bs.BeatPhase * rate; phase-math.Floor(phase) < duty {
		return p.Color("color", chroma.White)
	}
	return chroma.Black
}

func (strobeEffect) Compute(pos vmath.Vec3, ctx Context) chroma.Color {
	return ctx.(chroma.Color)
}

// sparkleEffect twinkles a random subset of fixtures, re-rolled every time
// bucket. Per-fixture randomness hashes the seed, the bucket, and the
// quantized position, so a fixture's fate in a given bucket is stable
// across passes and across processes.
// Params: color (white), density (0.3), rate (8 re-rolls/s), seed (1).
// A palette assigns each lit fixture a random palette color.
type sparkleEffect struct{}

type sparkleCtx struct {
	color   chroma.Color
	palette chroma.Palette
	density float64
	seed    uint64
}

func (sparkleEffect) ID() string { return "sparkle" }

func (sparkleEffect) Prepare(p Params, now time.Duration, bs beat.State) Context {
	rate := p.Float("rate", 8)
	if rate <= 0 {
		rate = 8
	}
	bucket := uint64(now.Seconds() * rate)

	return sparkleCtx{
		color:   p.Color("color", chroma.White),
		palette: p.Colors("palette", nil),
		density: vmath.Clamp01(p.Float("density", 0.3)),
		seed:    vmath.Mix64(uint64(p.Int("seed", 1)), bucket),
	}
}

func (sparkleEffect) Compute(pos vmath.Vec3, ctx Context) chroma.Color {
	c := ctx.(sparkleCtx)

	// Quantize to millimeters so float noise in rig files cannot flip a
	// fixture's hash.
	h := vmath.Mix64(c.seed, uint64(int64(math.Round(pos.X*1000))))
	h = vmath.Mix64(h, uint64(int64(math.Round(pos.Y*1000))))
	h = vmath.Mix64(h, uint64(int64(math.Round(pos.Z*1000))))

	rng := vmath.NewFastRand(h)
	if rng.Float01() >= c.density {
		return chroma.Black
	}

	color := c.color
	if len(c.palette) > 0 {
		color = c.palette.Sample(rng.Float01())
	}
	// Lit fixtures twinkle between half and full brightness
	return color.Scale(0.5 + 0.5*rng.Float01())
}
