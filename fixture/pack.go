package fixture

import (
	"fmt"
	"math"

	"github.com/lixenwraith/helios/chroma"
	"github.com/lixenwraith/helios/effect"
	"github.com/lixenwraith/helios/parameter"
)

// Output is the evaluated state of one fixture for one frame.
type Output struct {
	Color chroma.Color
	Move  effect.Movement
}

// Pack writes outputs into per-universe DMX buffers keyed by universe
// number. Missing universes are allocated; existing 512-byte buffers are
// reused in place.
//
// Color channels are written every frame. Movement channels are written
// only when set, so a fixture holds its last wire value when no effect
// drives it. A dimmer channel runs at full on color fixtures (intensity
// lives in the RGB values) and carries the color's luminance otherwise.
//
// len(outputs) must equal the patch's fixture count; a mismatch is a
// programmer error and panics.
func (p *Patch) Pack(outputs []Output, frames map[int][]byte) {
	if len(outputs) != len(p.fixtures) {
		panic(fmt.Sprintf("fixture: pack with %d outputs for %d fixtures", len(outputs), len(p.fixtures)))
	}
	for _, u := range p.universes {
		if _, ok := frames[u]; !ok {
			frames[u] = make([]byte, parameter.UniverseSize)
		}
	}

	for i, f := range p.fixtures {
		buf := frames[f.Universe]
		out := outputs[i]
		r, g, b := out.Color.DMX()

		for attr, ch := range f.Profile.Channels {
			// 1-based address + 1-based offset onto a 0-based buffer.
			idx := f.Address + ch - 2
			switch attr {
			case AttrRed:
				buf[idx] = r
			case AttrGreen:
				buf[idx] = g
			case AttrBlue:
				buf[idx] = b
			case AttrDimmer:
				if f.Profile.HasColor() {
					buf[idx] = 255
				} else {
					buf[idx] = channelByte(out.Color.Luminance())
				}
			case AttrPan:
				writeChannel(buf, idx, out.Move.Pan)
			case AttrTilt:
				writeChannel(buf, idx, out.Move.Tilt)
			case AttrFocus:
				writeChannel(buf, idx, out.Move.Focus)
			case AttrZoom:
				writeChannel(buf, idx, out.Move.Zoom)
			case AttrStrobe:
				writeChannel(buf, idx, out.Move.Strobe)
			case AttrGobo:
				if slot, ok := out.Move.Gobo.Get(); ok {
					if slot > 255 {
						slot = 255
					}
					buf[idx] = byte(slot)
				}
			}
		}
	}
}

func writeChannel(buf []byte, idx int, c effect.Channel) {
	if v, ok := c.Get(); ok {
		buf[idx] = channelByte(v)
	}
}

func channelByte(v float64) byte {
	return byte(math.Round(v * 255))
}
