package fixture

import (
	"fmt"

	"github.com/lixenwraith/helios/vmath"
)

// RigFile is the YAML shape of a rig definition: custom profiles plus
// the patch list. Builtin profiles are available without declaring them;
// a declared profile of the same name wins.
type RigFile struct {
	Profiles map[string]ProfileDef `yaml:"profiles"`
	Patch    []FixtureDef          `yaml:"patch"`
}

// ProfileDef declares one channel layout: attribute name to 1-based
// channel offset.
type ProfileDef struct {
	Channels map[string]int `yaml:"channels"`
}

// FixtureDef patches one fixture, or a run of identical fixtures when
// count > 1. Repeats advance the address by the profile footprint and
// the position by spacing, and get ids "name-1", "name-2", ...
type FixtureDef struct {
	ID       string     `yaml:"id"`
	Profile  string     `yaml:"profile"`
	Universe int        `yaml:"universe"`
	Address  int        `yaml:"address"`
	Position [3]float64 `yaml:"position,flow"`
	Count    int        `yaml:"count"`
	Spacing  [3]float64 `yaml:"spacing,flow"`
}

// BuildPatch resolves profile references and expands fixture runs into a
// validated patch.
func BuildPatch(rig RigFile) (*Patch, error) {
	profiles := BuiltinProfiles()
	for name, def := range rig.Profiles {
		channels := make(map[Attr]int, len(def.Channels))
		for attr, ch := range def.Channels {
			channels[Attr(attr)] = ch
		}
		profiles[name] = Profile{Name: name, Channels: channels}
	}

	var fixtures []Fixture
	for _, def := range rig.Patch {
		prof, ok := profiles[def.Profile]
		if !ok {
			return nil, fmt.Errorf("fixture %q: unknown profile %q", def.ID, def.Profile)
		}
		count := def.Count
		if count < 1 {
			count = 1
		}
		addr := def.Address
		pos := vmath.Vec3{X: def.Position[0], Y: def.Position[1], Z: def.Position[2]}
		step := vmath.Vec3{X: def.Spacing[0], Y: def.Spacing[1], Z: def.Spacing[2]}
		for i := 0; i < count; i++ {
			id := def.ID
			if count > 1 {
				id = fmt.Sprintf("%s-%d", def.ID, i+1)
			}
			fixtures = append(fixtures, Fixture{
				ID:       id,
				Profile:  prof,
				Universe: def.Universe,
				Address:  addr,
				Position: pos,
			})
			addr += prof.Footprint()
			pos = pos.Add(step)
		}
	}
	return NewPatch(fixtures)
}
