package chroma

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/helios/vmath"
)

// BlendMode selects the compositing rule applied when a layer's output
// is folded over the accumulated result beneath it.
type BlendMode uint8

const (
	BlendNormal BlendMode = iota
	BlendAdditive
	BlendMultiply
	BlendOverlay
	BlendScreen
)

func (m BlendMode) String() string {
	switch m {
	case BlendNormal:
		return "normal"
	case BlendAdditive:
		return "additive"
	case BlendMultiply:
		return "multiply"
	case BlendOverlay:
		return "overlay"
	case BlendScreen:
		return "screen"
	default:
		return "normal"
	}
}

// ParseBlendMode maps a mode name to its BlendMode. Unknown names fall
// back to BlendNormal so a bad preset degrades instead of failing a frame.
func ParseBlendMode(s string) BlendMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "additive", "add":
		return BlendAdditive
	case "multiply":
		return BlendMultiply
	case "overlay":
		return BlendOverlay
	case "screen":
		return BlendScreen
	default:
		return BlendNormal
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m BlendMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *BlendMode) UnmarshalText(text []byte) error {
	*m = ParseBlendMode(string(text))
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (m BlendMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler. Unknown names degrade to
// normal, matching ParseBlendMode.
func (m *BlendMode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("chroma: blend mode must be a string: %w", err)
	}
	*m = ParseBlendMode(s)
	return nil
}

// Apply composites overlay onto base at the given opacity.
// Normal, multiply, overlay and screen lerp base toward the mode's blended
// color; additive accumulates overlay*opacity and clamps.
func (m BlendMode) Apply(base, overlay Color, opacity float64) Color {
	opacity = vmath.Clamp01(opacity)
	if opacity == 0 {
		return base
	}

	switch m {
	case BlendAdditive:
		return base.Add(overlay.Scale(opacity))
	case BlendMultiply:
		return base.Lerp(base.Mul(overlay), opacity)
	case BlendOverlay:
		blended := Color{
			overlayChannel(base.R, overlay.R),
			overlayChannel(base.G, overlay.G),
			overlayChannel(base.B, overlay.B),
		}
		return base.Lerp(blended, opacity)
	case BlendScreen:
		blended := Color{
			screenChannel(base.R, overlay.R),
			screenChannel(base.G, overlay.G),
			screenChannel(base.B, overlay.B),
		}
		return base.Lerp(blended, opacity)
	default:
		return base.Lerp(overlay, opacity)
	}
}

// overlayChannel doubles contrast around mid-gray: multiply below 0.5,
// screen at and above it.
func overlayChannel(b, o float64) float64 {
	if b < 0.5 {
		return 2 * b * o
	}
	return 1 - 2*(1-b)*(1-o)
}

func screenChannel(b, o float64) float64 {
	return 1 - (1-b)*(1-o)
}
