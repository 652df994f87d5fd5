// Package config owns file I/O: the daemon configuration file, rig
// files, and scene files, plus the watcher that hot-reloads scenes.
// Everything else in the repo works on decoded values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/helios/artnet"
	"github.com/lixenwraith/helios/fixture"
	"github.com/lixenwraith/helios/parameter"
	"github.com/lixenwraith/helios/scene"
)

// Duration is a time.Duration that unmarshals from scalars like
// "250ms" or "3s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("config: duration must be a string like \"250ms\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// EngineConfig sets the render cadence and the starting tempo.
type EngineConfig struct {
	TickRate int     `yaml:"tick_rate"`
	BPM      float64 `yaml:"bpm"`
}

// WireConfig sets the network side: addresses, discovery cadence, and
// data-frame behavior.
type WireConfig struct {
	Bind         string   `yaml:"bind"`
	Broadcast    string   `yaml:"broadcast"`
	PollInterval Duration `yaml:"poll_interval"`
	NodeTimeout  Duration `yaml:"node_timeout"`
	KeepAlive    Duration `yaml:"keep_alive"`
	UseSync      bool     `yaml:"use_sync"`
	Sequence     bool     `yaml:"sequence"`
	Unicast      bool     `yaml:"unicast"`
}

// MetronomeConfig sets the click output.
type MetronomeConfig struct {
	Enabled bool    `yaml:"enabled"`
	Volume  float64 `yaml:"volume"`
}

// PathsConfig points at the data files. Rig is required to output
// anything; Scene is optional and hot-reloaded while the daemon runs.
type PathsConfig struct {
	Rig   string `yaml:"rig"`
	Scene string `yaml:"scene"`
}

// Config is the daemon configuration file.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Wire      WireConfig      `yaml:"artnet"`
	Metronome MetronomeConfig `yaml:"metronome"`
	Paths     PathsConfig     `yaml:"paths"`
}

// Default returns the stock configuration.
func Default() *Config {
	wire := artnet.DefaultConfig()
	return &Config{
		Engine: EngineConfig{
			TickRate: parameter.DefaultTickRate,
			BPM:      parameter.DefaultBPM,
		},
		Wire: WireConfig{
			Bind:         wire.BindAddress,
			Broadcast:    wire.BroadcastAddress,
			PollInterval: Duration(wire.PollInterval),
			NodeTimeout:  Duration(wire.NodeTimeout),
			KeepAlive:    Duration(wire.KeepAlive),
			UseSync:      wire.UseSync,
			Sequence:     wire.SequenceEnabled,
			Unicast:      wire.Unicast,
		},
		Metronome: MetronomeConfig{
			Enabled: false,
			Volume:  parameter.ClickVolume,
		},
	}
}

// Load reads path over the defaults: absent keys keep their default
// values, present keys override.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges. Paths are not checked here; missing files
// surface when they are read.
func (c *Config) Validate() error {
	if c.Engine.TickRate < parameter.MinTickRate || c.Engine.TickRate > parameter.MaxTickRate {
		return fmt.Errorf("engine.tick_rate %d outside %d..%d",
			c.Engine.TickRate, parameter.MinTickRate, parameter.MaxTickRate)
	}
	if c.Engine.BPM < parameter.MinBPM || c.Engine.BPM > parameter.MaxBPM {
		return fmt.Errorf("engine.bpm %g outside %g..%g",
			c.Engine.BPM, parameter.MinBPM, parameter.MaxBPM)
	}
	if c.Wire.Bind == "" {
		return fmt.Errorf("artnet.bind is empty")
	}
	if c.Wire.Broadcast == "" {
		return fmt.Errorf("artnet.broadcast is empty")
	}
	if c.Wire.PollInterval.Std() <= 0 {
		return fmt.Errorf("artnet.poll_interval %v must be positive", c.Wire.PollInterval.Std())
	}
	if c.Wire.NodeTimeout.Std() <= c.Wire.PollInterval.Std() {
		return fmt.Errorf("artnet.node_timeout %v must exceed poll_interval %v",
			c.Wire.NodeTimeout.Std(), c.Wire.PollInterval.Std())
	}
	if c.Wire.KeepAlive.Std() <= 0 {
		return fmt.Errorf("artnet.keep_alive %v must be positive", c.Wire.KeepAlive.Std())
	}
	if c.Metronome.Volume < 0 || c.Metronome.Volume > 1 {
		return fmt.Errorf("metronome.volume %g outside 0..1", c.Metronome.Volume)
	}
	return nil
}

// WireSettings converts the file's network section into the transport
// layer's config.
func (c *Config) WireSettings() *artnet.Config {
	cfg := artnet.DefaultConfig()
	cfg.BindAddress = c.Wire.Bind
	cfg.BroadcastAddress = c.Wire.Broadcast
	cfg.PollInterval = c.Wire.PollInterval.Std()
	cfg.NodeTimeout = c.Wire.NodeTimeout.Std()
	cfg.KeepAlive = c.Wire.KeepAlive.Std()
	cfg.UseSync = c.Wire.UseSync
	cfg.SequenceEnabled = c.Wire.Sequence
	cfg.Unicast = c.Wire.Unicast
	return cfg
}

// LoadRig reads and builds a patch from a rig file.
func LoadRig(path string) (*fixture.Patch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read rig %s: %w", path, err)
	}
	var rig fixture.RigFile
	if err := yaml.Unmarshal(data, &rig); err != nil {
		return nil, fmt.Errorf("config: parse rig %s: %w", path, err)
	}
	patch, err := fixture.BuildPatch(rig)
	if err != nil {
		return nil, fmt.Errorf("config: rig %s: %w", path, err)
	}
	return patch, nil
}

// LoadScene reads one scene file.
func LoadScene(path string) (scene.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scene.Scene{}, fmt.Errorf("config: read scene %s: %w", path, err)
	}
	var sc scene.Scene
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return scene.Scene{}, fmt.Errorf("config: parse scene %s: %w", path, err)
	}
	return sc, nil
}

// SaveScene writes a scene file, for capturing the live stack as a
// preset.
func SaveScene(path string, sc scene.Scene) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return fmt.Errorf("config: encode scene: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write scene %s: %w", path, err)
	}
	return nil
}
