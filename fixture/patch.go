package fixture

import (
	"fmt"
	"sort"

	"github.com/lixenwraith/helios/parameter"
	"github.com/lixenwraith/helios/vmath"
)

// MaxUniverse is the highest Art-Net port-address (15-bit).
const MaxUniverse = 0x7FFF

// Patch is an immutable, validated fixture list. Fixture order is the
// frame order: output slot i belongs to Fixtures()[i].
type Patch struct {
	fixtures  []Fixture
	universes []int
}

// NewPatch validates the fixtures and returns a patch. It rejects
// duplicate IDs, addresses outside 1..512, footprints crossing the
// universe boundary, and channel overlap between fixtures sharing a
// universe.
func NewPatch(fixtures []Fixture) (*Patch, error) {
	if len(fixtures) > parameter.MaxFixtures {
		return nil, fmt.Errorf("%d fixtures exceeds the %d limit", len(fixtures), parameter.MaxFixtures)
	}

	byID := make(map[string]struct{}, len(fixtures))
	type span struct {
		id       string
		lo, hi   int // inclusive 1-based channel range
		universe int
	}
	spans := make([]span, 0, len(fixtures))

	for _, f := range fixtures {
		if f.ID == "" {
			return nil, fmt.Errorf("fixture with empty id")
		}
		if _, dup := byID[f.ID]; dup {
			return nil, fmt.Errorf("duplicate fixture id %q", f.ID)
		}
		byID[f.ID] = struct{}{}

		if err := f.Profile.Validate(); err != nil {
			return nil, fmt.Errorf("fixture %q: %w", f.ID, err)
		}
		if f.Universe < 0 || f.Universe > MaxUniverse {
			return nil, fmt.Errorf("fixture %q: universe %d out of range 0..%d", f.ID, f.Universe, MaxUniverse)
		}
		fp := f.Profile.Footprint()
		if f.Address < 1 || f.Address+fp-1 > parameter.UniverseSize {
			return nil, fmt.Errorf("fixture %q: channels %d..%d outside universe (1..%d)",
				f.ID, f.Address, f.Address+fp-1, parameter.UniverseSize)
		}
		spans = append(spans, span{id: f.ID, lo: f.Address, hi: f.Address + fp - 1, universe: f.Universe})
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].universe != spans[j].universe {
			return spans[i].universe < spans[j].universe
		}
		return spans[i].lo < spans[j].lo
	})
	for i := 1; i < len(spans); i++ {
		a, b := spans[i-1], spans[i]
		if a.universe == b.universe && b.lo <= a.hi {
			return nil, fmt.Errorf("fixtures %q and %q overlap in universe %d (channels %d..%d vs %d..%d)",
				a.id, b.id, a.universe, a.lo, a.hi, b.lo, b.hi)
		}
	}

	p := &Patch{fixtures: append([]Fixture(nil), fixtures...)}
	seen := make(map[int]struct{})
	for _, f := range p.fixtures {
		if _, ok := seen[f.Universe]; !ok {
			seen[f.Universe] = struct{}{}
			p.universes = append(p.universes, f.Universe)
		}
	}
	sort.Ints(p.universes)
	return p, nil
}

// Count returns the number of patched fixtures.
func (p *Patch) Count() int { return len(p.fixtures) }

// Fixtures returns the patch in frame order. The slice is shared; do
// not mutate.
func (p *Patch) Fixtures() []Fixture { return p.fixtures }

// Universes returns the sorted set of universe numbers the patch
// touches.
func (p *Patch) Universes() []int { return p.universes }

// Positions returns one position per fixture, in frame order.
func (p *Patch) Positions() []vmath.Vec3 {
	out := make([]vmath.Vec3, len(p.fixtures))
	for i, f := range p.fixtures {
		out[i] = f.Position
	}
	return out
}

// ByID returns the fixture with the given id, or false.
func (p *Patch) ByID(id string) (Fixture, bool) {
	for _, f := range p.fixtures {
		if f.ID == id {
			return f, true
		}
	}
	return Fixture{}, false
}
