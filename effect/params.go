package effect

import (
	"sort"

	"github.com/lixenwraith/helios/chroma"
)

// Params is an immutable typed parameter bag keyed by name. Accessors
// return the supplied default on a missing key or an inconvertible value.
//
// The coercion ruleset is total and explicit:
//
//	Float:  float64, int (widened)
//	Int:    int, float64 (truncated toward zero)
//	Bool:   bool only
//	String: string only
//	Color:  chroma.Color, string (parsed, hex or name)
//	Colors: chroma.Palette, []chroma.Color, []any of Color/string
//
// Anything else misses and yields the default.
type Params struct {
	m map[string]any
}

// NewParams copies the given map so later caller mutation cannot leak in.
func NewParams(values map[string]any) Params {
	if len(values) == 0 {
		return Params{}
	}
	m := make(map[string]any, len(values))
	for k, v := range values {
		m[k] = v
	}
	return Params{m: m}
}

// With derives a new bag with one key replaced. The receiver is unchanged.
func (p Params) With(key string, value any) Params {
	m := make(map[string]any, len(p.m)+1)
	for k, v := range p.m {
		m[k] = v
	}
	m[key] = value
	return Params{m: m}
}

// Without derives a new bag with one key removed.
func (p Params) Without(key string) Params {
	if _, ok := p.m[key]; !ok {
		return p
	}
	m := make(map[string]any, len(p.m))
	for k, v := range p.m {
		if k != key {
			m[k] = v
		}
	}
	return Params{m: m}
}

func (p Params) Has(key string) bool {
	_, ok := p.m[key]
	return ok
}

func (p Params) Len() int {
	return len(p.m)
}

// Keys returns the key set in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p.m))
	for k := range p.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Raw exposes a copy of the underlying map for serialization boundaries.
func (p Params) Raw() map[string]any {
	if len(p.m) == 0 {
		return nil
	}
	m := make(map[string]any, len(p.m))
	for k, v := range p.m {
		m[k] = v
	}
	return m
}

func (p Params) Float(key string, def float64) float64 {
	switch v := p.m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

func (p Params) Int(key string, def int) int {
	switch v := p.m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

func (p Params) Bool(key string, def bool) bool {
	if v, ok := p.m[key].(bool); ok {
		return v
	}
	return def
}

func (p Params) String(key string, def string) string {
	if v, ok := p.m[key].(string); ok {
		return v
	}
	return def
}

func (p Params) Color(key string, def chroma.Color) chroma.Color {
	switch v := p.m[key].(type) {
	case chroma.Color:
		return v
	case string:
		if c, err := chroma.Parse(v); err == nil {
			return c
		}
		return def
	default:
		return def
	}
}

func (p Params) Colors(key string, def chroma.Palette) chroma.Palette {
	switch v := p.m[key].(type) {
	case chroma.Palette:
		return v
	case []chroma.Color:
		return chroma.Palette(v)
	case []any:
		out := make(chroma.Palette, 0, len(v))
		for _, item := range v {
			switch c := item.(type) {
			case chroma.Color:
				out = append(out, c)
			case string:
				parsed, err := chroma.Parse(c)
				if err != nil {
					return def
				}
				out = append(out, parsed)
			default:
				return def
			}
		}
		return out
	default:
		return def
	}
}
