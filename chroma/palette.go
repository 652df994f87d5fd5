package chroma

import (
	"github.com/lixenwraith/helios/vmath"
)

// Palette is an ordered color list sampled positionally. Effects treat a
// palette as a closed loop so scrolling wraps without a seam.
type Palette []Color

// Sample interpolates the palette at position t. t wraps into [0,1).
// An empty palette samples black, a single entry samples itself.
func (p Palette) Sample(t float64) Color {
	switch len(p) {
	case 0:
		return Black
	case 1:
		return p[0]
	}

	t = vmath.Wrap01(t)
	scaled := t * float64(len(p))
	i := int(scaled)
	frac := scaled - float64(i)

	next := (i + 1) % len(p)
	return p[i].Lerp(p[next], frac)
}

// Steps renders the palette into n evenly spaced samples.
func (p Palette) Steps(n int) []Color {
	if n <= 0 {
		return nil
	}
	out := make([]Color, n)
	for i := range out {
		out[i] = p.Sample(float64(i) / float64(n))
	}
	return out
}
