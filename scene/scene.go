package scene

import (
	"github.com/lixenwraith/helios/chroma"
	"github.com/lixenwraith/helios/effect"
	"github.com/lixenwraith/helios/parameter"
)

// LayerSpec is the serializable form of a layer. Zero-value blend is
// normal; nil opacity and enabled take their defaults (1, true).
type LayerSpec struct {
	Effect  string           `yaml:"effect"`
	Params  map[string]any   `yaml:"params,omitempty"`
	Blend   chroma.BlendMode `yaml:"blend,omitempty"`
	Opacity *float64         `yaml:"opacity,omitempty"`
	Enabled *bool            `yaml:"enabled,omitempty"`
}

// Scene is a whole stack state as plain data: the unit of preset load and
// save. Applying a scene replaces layers, palette, master dimmer, and
// tempo multiplier in a single publication.
type Scene struct {
	Name    string         `yaml:"name,omitempty"`
	Palette chroma.Palette `yaml:"palette,omitempty"`
	Master  *float64       `yaml:"master,omitempty"`
	Tempo   *float64       `yaml:"tempo_multiplier,omitempty"`
	Layers  []LayerSpec    `yaml:"layers"`
}

// Build converts the scene to stack state. A scene-level palette is
// injected into every layer that does not carry its own.
func (sc Scene) Build() (layers []Layer, master, tempoMult float64) {
	layers = make([]Layer, 0, len(sc.Layers))
	for _, spec := range sc.Layers {
		params := effect.NewParams(spec.Params)
		if len(sc.Palette) > 0 && !params.Has("palette") {
			params = params.With("palette", sc.Palette)
		}

		l := Layer{
			EffectID: spec.Effect,
			Params:   params,
			Blend:    spec.Blend,
			Opacity:  1,
			Enabled:  true,
		}
		if spec.Opacity != nil {
			l = l.WithOpacity(*spec.Opacity)
		}
		if spec.Enabled != nil {
			l.Enabled = *spec.Enabled
		}
		layers = append(layers, l)
	}

	master = parameter.DefaultMaster
	if sc.Master != nil {
		master = *sc.Master
	}
	tempoMult = parameter.DefaultTempoMult
	if sc.Tempo != nil && *sc.Tempo > 0 {
		tempoMult = *sc.Tempo
	}
	return layers, master, tempoMult
}

// ApplyScene replaces the whole stack state atomically.
func (s *Stack) ApplyScene(sc Scene) {
	layers, master, tempoMult := sc.Build()
	s.ReplaceAll(layers, master, tempoMult)
}

// SceneOf captures the current stack state as plain data.
func SceneOf(s *Stack) Scene {
	layers := s.Layers()
	specs := make([]LayerSpec, 0, len(layers))
	for _, l := range layers {
		opacity := l.Opacity
		enabled := l.Enabled
		specs = append(specs, LayerSpec{
			Effect:  l.EffectID,
			Params:  l.Params.Raw(),
			Blend:   l.Blend,
			Opacity: &opacity,
			Enabled: &enabled,
		})
	}

	master := s.Master()
	tempo := s.TempoMultiplier()
	return Scene{
		Master: &master,
		Tempo:  &tempo,
		Layers: specs,
	}
}
