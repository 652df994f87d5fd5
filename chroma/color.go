// Package chroma provides the color primitives for effect evaluation:
// clamped float RGB, DMX byte conversion, blend modes, and palettes.
package chroma

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/helios/vmath"
)

// Color is an RGB triple with components clamped to [0,1].
// Construct through New or the conversion helpers to keep the clamp invariant.
type Color struct {
	R, G, B float64
}

func New(r, g, b float64) Color {
	return Color{vmath.Clamp01(r), vmath.Clamp01(g), vmath.Clamp01(b)}
}

var (
	Black   = Color{0, 0, 0}
	White   = Color{1, 1, 1}
	Red     = Color{1, 0, 0}
	Green   = Color{0, 1, 0}
	Blue    = Color{0, 0, 1}
	Yellow  = Color{1, 1, 0}
	Cyan    = Color{0, 1, 1}
	Magenta = Color{1, 0, 1}
	Orange  = Color{1, 0.5, 0}
	Amber   = Color{1, 0.75, 0}
)

var named = map[string]Color{
	"black":   Black,
	"white":   White,
	"red":     Red,
	"green":   Green,
	"blue":    Blue,
	"yellow":  Yellow,
	"cyan":    Cyan,
	"magenta": Magenta,
	"orange":  Orange,
	"amber":   Amber,
}

// Add sums component-wise and clamps.
func (c Color) Add(o Color) Color {
	return New(c.R+o.R, c.G+o.G, c.B+o.B)
}

// Mul multiplies component-wise. Both inputs in range keeps the result in range.
func (c Color) Mul(o Color) Color {
	return Color{c.R * o.R, c.G * o.G, c.B * o.B}
}

// Scale multiplies all components by s and clamps.
func (c Color) Scale(s float64) Color {
	return New(c.R*s, c.G*s, c.B*s)
}

// Lerp interpolates toward o. t is clamped to [0,1].
func (c Color) Lerp(o Color, t float64) Color {
	t = vmath.Clamp01(t)
	return Color{
		c.R + (o.R-c.R)*t,
		c.G + (o.G-c.G)*t,
		c.B + (o.B-c.B)*t,
	}
}

// Luminance is the Rec.601 weighted brightness.
func (c Color) Luminance() float64 {
	return 0.299*c.R + 0.587*c.G + 0.114*c.B
}

// DMX converts to three channel bytes, rounding half up.
func (c Color) DMX() (r, g, b byte) {
	return byte(c.R*255 + 0.5), byte(c.G*255 + 0.5), byte(c.B*255 + 0.5)
}

// FromDMX converts three channel bytes to a Color.
func FromDMX(r, g, b byte) Color {
	const inv = 1.0 / 255.0
	return Color{float64(r) * inv, float64(g) * inv, float64(b) * inv}
}

// FromHSV converts hue [0,1), saturation and value [0,1] to RGB.
// Hue wraps, s and v clamp.
func FromHSV(h, s, v float64) Color {
	h = vmath.Wrap01(h)
	s = vmath.Clamp01(s)
	v = vmath.Clamp01(v)

	if s == 0 {
		return Color{v, v, v}
	}

	h *= 6
	sector := int(h) % 6
	f := h - math.Floor(h)
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	switch sector {
	case 0:
		return Color{v, t, p}
	case 1:
		return Color{q, v, p}
	case 2:
		return Color{p, v, t}
	case 3:
		return Color{p, q, v}
	case 4:
		return Color{t, p, v}
	default:
		return Color{v, p, q}
	}
}

// Hex formats as "#rrggbb".
func (c Color) Hex() string {
	r, g, b := c.DMX()
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// Parse accepts "#rrggbb", "rrggbb", or a known color name.
func Parse(s string) (Color, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if c, ok := named[key]; ok {
		return c, nil
	}

	hex := strings.TrimPrefix(key, "#")
	if len(hex) != 6 {
		return Black, fmt.Errorf("chroma: cannot parse color %q", s)
	}
	var r, g, b byte
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return Black, fmt.Errorf("chroma: cannot parse color %q: %w", s, err)
	}
	return FromDMX(r, g, b), nil
}

// MarshalText implements encoding.TextMarshaler for config files.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler. yaml.v3 does not consult the
// encoding.Text interfaces.
func (c Color) MarshalYAML() (any, error) {
	return c.Hex(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Color) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("chroma: color must be a string: %w", err)
	}
	return c.UnmarshalText([]byte(s))
}
