// Package fixture models the rig: addressable lighting devices, their
// channel profiles, and the packing of evaluated frames into DMX
// universe buffers.
package fixture

import (
	"fmt"

	"github.com/lixenwraith/helios/parameter"
	"github.com/lixenwraith/helios/vmath"
)

// Attr names one channel function within a profile.
type Attr string

const (
	AttrRed    Attr = "red"
	AttrGreen  Attr = "green"
	AttrBlue   Attr = "blue"
	AttrDimmer Attr = "dimmer"
	AttrPan    Attr = "pan"
	AttrTilt   Attr = "tilt"
	AttrFocus  Attr = "focus"
	AttrZoom   Attr = "zoom"
	AttrStrobe Attr = "strobe"
	AttrGobo   Attr = "gobo"
)

var knownAttrs = map[Attr]struct{}{
	AttrRed: {}, AttrGreen: {}, AttrBlue: {}, AttrDimmer: {},
	AttrPan: {}, AttrTilt: {}, AttrFocus: {}, AttrZoom: {},
	AttrStrobe: {}, AttrGobo: {},
}

// Profile maps attribute names to 1-based channel offsets within a
// fixture's footprint. Offsets start at 1 so they read the same way
// fixture manuals print them.
type Profile struct {
	Name     string
	Channels map[Attr]int
}

// Footprint returns the number of DMX channels the profile occupies,
// which is the highest channel offset it names.
func (p Profile) Footprint() int {
	max := 0
	for _, ch := range p.Channels {
		if ch > max {
			max = ch
		}
	}
	return max
}

// HasColor reports whether the profile drives any RGB channel.
func (p Profile) HasColor() bool {
	for _, a := range []Attr{AttrRed, AttrGreen, AttrBlue} {
		if _, ok := p.Channels[a]; ok {
			return true
		}
	}
	return false
}

// Validate checks offsets are positive and attrs are known.
func (p Profile) Validate() error {
	if len(p.Channels) == 0 {
		return fmt.Errorf("profile %q has no channels", p.Name)
	}
	seen := make(map[int]Attr, len(p.Channels))
	for attr, ch := range p.Channels {
		if _, ok := knownAttrs[attr]; !ok {
			return fmt.Errorf("profile %q: unknown attribute %q", p.Name, attr)
		}
		if ch < 1 || ch > parameter.MaxChannelsPerFix {
			return fmt.Errorf("profile %q: attribute %q has channel %d, must be 1..%d",
				p.Name, attr, ch, parameter.MaxChannelsPerFix)
		}
		if prev, dup := seen[ch]; dup {
			return fmt.Errorf("profile %q: channel %d assigned to both %q and %q", p.Name, ch, prev, attr)
		}
		seen[ch] = attr
	}
	return nil
}

// BuiltinProfiles returns the stock profile set. Callers may extend or
// override entries before building a patch.
func BuiltinProfiles() map[string]Profile {
	return map[string]Profile{
		"rgb": {
			Name:     "rgb",
			Channels: map[Attr]int{AttrRed: 1, AttrGreen: 2, AttrBlue: 3},
		},
		"rgbd": {
			Name:     "rgbd",
			Channels: map[Attr]int{AttrDimmer: 1, AttrRed: 2, AttrGreen: 3, AttrBlue: 4},
		},
		"dimmer": {
			Name:     "dimmer",
			Channels: map[Attr]int{AttrDimmer: 1},
		},
		"moving-head": {
			Name: "moving-head",
			Channels: map[Attr]int{
				AttrPan: 1, AttrTilt: 2, AttrDimmer: 3,
				AttrRed: 4, AttrGreen: 5, AttrBlue: 6,
				AttrFocus: 7, AttrZoom: 8, AttrGobo: 9, AttrStrobe: 10,
			},
		},
	}
}

// Fixture is one patched device: a profile instance at a start address
// in a universe, positioned in rig space (meters).
type Fixture struct {
	ID       string
	Profile  Profile
	Universe int
	Address  int // 1-based DMX start address
	Position vmath.Vec3
}
