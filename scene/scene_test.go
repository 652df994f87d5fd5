package scene

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/helios/chroma"
	"github.com/lixenwraith/helios/effect"
)

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestSceneBuildDefaults(t *testing.T) {
	sc := Scene{
		Layers: []LayerSpec{{Effect: "solid"}},
	}

	layers, master, tempo := sc.Build()
	if len(layers) != 1 {
		t.Fatalf("layers: got %d, want 1", len(layers))
	}
	l := layers[0]
	if l.Opacity != 1 || !l.Enabled || l.Blend != chroma.BlendNormal {
		t.Errorf("layer defaults: got %+v", l)
	}
	if master != 1 {
		t.Errorf("master: got %v, want 1", master)
	}
	if tempo != 1 {
		t.Errorf("tempo: got %v, want 1", tempo)
	}
}

func TestSceneBuildExplicitValues(t *testing.T) {
	sc := Scene{
		Master: floatPtr(0.6),
		Tempo:  floatPtr(2),
		Layers: []LayerSpec{
			{Effect: "wave", Blend: chroma.BlendAdditive, Opacity: floatPtr(0.25), Enabled: boolPtr(false)},
		},
	}

	layers, master, tempo := sc.Build()
	l := layers[0]
	if l.Blend != chroma.BlendAdditive {
		t.Errorf("blend: got %v", l.Blend)
	}
	if l.Opacity != 0.25 {
		t.Errorf("opacity: got %v, want 0.25", l.Opacity)
	}
	if l.Enabled {
		t.Error("enabled: got true, want false")
	}
	if master != 0.6 {
		t.Errorf("master: got %v, want 0.6", master)
	}
	if tempo != 2 {
		t.Errorf("tempo: got %v, want 2", tempo)
	}
}

func TestSceneBuildInjectsPalette(t *testing.T) {
	sc := Scene{
		Palette: chroma.Palette{chroma.Red, chroma.Blue},
		Layers: []LayerSpec{
			{Effect: "gradient"},
			{Effect: "chase", Params: map[string]any{"palette": []any{"#00ff00"}}},
		},
	}

	layers, _, _ := sc.Build()

	got := layers[0].Params.Colors("palette", nil)
	if len(got) != 2 || got[0] != chroma.Red || got[1] != chroma.Blue {
		t.Errorf("scene palette not injected: got %v", got)
	}

	own := layers[1].Params.Colors("palette", nil)
	if len(own) != 1 || own[0] != chroma.Green {
		t.Errorf("layer's own palette overridden: got %v", own)
	}
}

func TestSceneBuildNonPositiveTempoIgnored(t *testing.T) {
	sc := Scene{Tempo: floatPtr(-2)}
	_, _, tempo := sc.Build()
	if tempo != 1 {
		t.Errorf("tempo: got %v, want 1", tempo)
	}
}

func TestApplySceneReplacesStack(t *testing.T) {
	s := NewStack()
	s.AddLayer(NewLayer("old", effect.Params{}))
	s.SetMaster(0.1)

	s.ApplyScene(Scene{
		Master: floatPtr(0.9),
		Layers: []LayerSpec{{Effect: "new"}},
	})

	layers := s.Layers()
	if len(layers) != 1 || layers[0].EffectID != "new" {
		t.Errorf("layers after apply: got %+v", layers)
	}
	if got := s.Master(); got != 0.9 {
		t.Errorf("master after apply: got %v, want 0.9", got)
	}
}

func TestSceneOfRoundTrip(t *testing.T) {
	s := NewStack()
	s.AddLayer(NewLayer("solid", effect.NewParams(map[string]any{"color": "#ff0000"})).
		WithOpacity(0.5).
		WithBlend(chroma.BlendScreen))
	s.SetMaster(0.75)
	s.SetTempoMultiplier(2)

	sc := SceneOf(s)

	other := NewStack()
	other.ApplyScene(sc)

	layers := other.Layers()
	if len(layers) != 1 {
		t.Fatalf("layers: got %d, want 1", len(layers))
	}
	l := layers[0]
	if l.EffectID != "solid" || l.Opacity != 0.5 || l.Blend != chroma.BlendScreen {
		t.Errorf("layer: got %+v", l)
	}
	if got := other.Master(); got != 0.75 {
		t.Errorf("master: got %v, want 0.75", got)
	}
	if got := other.TempoMultiplier(); got != 2 {
		t.Errorf("tempo: got %v, want 2", got)
	}
}

func TestSceneYAMLDecode(t *testing.T) {
	src := `
name: warm wash
palette: ["#ff0000", "#ffaa00"]
master: 0.8
tempo_multiplier: 0.5
layers:
  - effect: gradient
    params:
      axis: x
  - effect: pulse
    blend: additive
    opacity: 0.4
  - effect: strobe
    enabled: false
`
	var sc Scene
	if err := yaml.Unmarshal([]byte(src), &sc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if sc.Name != "warm wash" {
		t.Errorf("name: got %q", sc.Name)
	}
	if len(sc.Palette) != 2 || sc.Palette[0] != chroma.Red {
		t.Errorf("palette: got %v", sc.Palette)
	}
	if sc.Master == nil || *sc.Master != 0.8 {
		t.Errorf("master: got %v", sc.Master)
	}
	if sc.Tempo == nil || *sc.Tempo != 0.5 {
		t.Errorf("tempo: got %v", sc.Tempo)
	}
	if len(sc.Layers) != 3 {
		t.Fatalf("layers: got %d, want 3", len(sc.Layers))
	}
	if sc.Layers[1].Blend != chroma.BlendAdditive {
		t.Errorf("layer 1 blend: got %v", sc.Layers[1].Blend)
	}
	if sc.Layers[1].Opacity == nil || *sc.Layers[1].Opacity != 0.4 {
		t.Errorf("layer 1 opacity: got %v", sc.Layers[1].Opacity)
	}
	if sc.Layers[2].Enabled == nil || *sc.Layers[2].Enabled {
		t.Error("layer 2 should decode disabled")
	}

	layers, master, tempo := sc.Build()
	if len(layers) != 3 || master != 0.8 || tempo != 0.5 {
		t.Errorf("build: layers=%d master=%v tempo=%v", len(layers), master, tempo)
	}
	if got := layers[0].Params.String("axis", ""); got != "x" {
		t.Errorf("params did not survive decode: axis=%q", got)
	}
}
