package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/lixenwraith/helios/artnet"
	"github.com/lixenwraith/helios/beat"
	"github.com/lixenwraith/helios/config"
	"github.com/lixenwraith/helios/core"
	"github.com/lixenwraith/helios/effect"
	"github.com/lixenwraith/helios/event"
	"github.com/lixenwraith/helios/metronome"
	"github.com/lixenwraith/helios/midisync"
	"github.com/lixenwraith/helios/render"
	"github.com/lixenwraith/helios/scene"
	"github.com/lixenwraith/helios/status"
)

const (
	refreshInterval = 50 * time.Millisecond
	eventLogDepth   = 8
	masterStep      = 0.05
	nudgeStep       = 0.1
)

var (
	configFlag = flag.String("config", "", "daemon config file (yaml)")
	rigFlag    = flag.String("rig", "", "rig file, overrides paths.rig from the config")
	sceneFlag  = flag.String("scene", "", "scene file, overrides paths.scene from the config")
	midiFlag   = flag.String("midi", "", "follow MIDI clock from the input port matching this name")
)

// monitor is the console state: the full engine plus the screen and a
// ring of recent event lines.
type monitor struct {
	screen tcell.Screen
	tp     core.TimeProvider

	cfg      *config.Config
	stack    *scene.Stack
	engine   *render.Engine
	clock    beat.Clock
	tap      *beat.Tap  // nil when following MIDI
	sync     *beat.Sync // nil when tapping
	disc     *artnet.Discovery
	streamer *artnet.Streamer
	met      *metronome.Metronome
	status   *status.Registry
	events   *event.Queue

	sceneName string
	scenePath string // absolute, "" when no scene file
	rigPath   string // absolute

	lines []string
}

func main() {
	flag.Parse()

	defer midi.CloseDriver()

	cfg := config.Default()
	if *configFlag != "" {
		var err error
		cfg, err = config.Load(*configFlag)
		if err != nil {
			log.Fatal(err)
		}
	}

	rigPath := cfg.Paths.Rig
	if *rigFlag != "" {
		rigPath = *rigFlag
	}
	if rigPath == "" {
		log.Fatal("no rig file: pass -rig or set paths.rig in the config")
	}
	patch, err := config.LoadRig(rigPath)
	if err != nil {
		log.Fatal(err)
	}

	m := &monitor{
		tp:     core.NewMonotonicTimeProvider(),
		cfg:    cfg,
		stack:  scene.NewStack(),
		status: status.NewRegistry(),
		events: event.NewQueue(),
	}
	m.rigPath, _ = filepath.Abs(rigPath)

	registry := effect.NewRegistry()
	effect.InstallBuiltins(registry)

	scenePath := cfg.Paths.Scene
	if *sceneFlag != "" {
		scenePath = *sceneFlag
	}
	if scenePath != "" {
		sc, err := config.LoadScene(scenePath)
		if err != nil {
			log.Fatal(err)
		}
		m.stack.ApplyScene(sc)
		m.sceneName = sc.Name
		m.scenePath, _ = filepath.Abs(scenePath)
	}

	if *midiFlag != "" {
		m.sync = beat.NewSync(m.tp, midisync.New(m.tp, *midiFlag))
		m.sync.OnStateChange = func(from, to beat.SyncState) {
			m.events.Emit(event.TypeSyncStateChanged, &event.SyncStatePayload{
				From: from.String(),
				To:   to.String(),
			})
		}
		m.sync.OnTempoChange = func(bpm float64) {
			m.events.Emit(event.TypeTempoChanged, &event.TempoPayload{
				BPM:    bpm,
				Source: "sync",
			})
		}
		m.sync.Start()
		defer m.sync.Stop()
		m.clock = m.sync
	} else {
		m.tap = beat.NewTap(m.tp)
		m.tap.SetBPM(cfg.Engine.BPM)
		m.tap.Start()
		defer m.tap.Stop()
		m.clock = m.tap
	}

	m.engine = render.NewEngine(m.stack, registry, m.clock, patch, render.Config{
		TickRate:     cfg.Engine.TickRate,
		TimeProvider: m.tp,
		Status:       m.status,
		Events:       m.events,
	})
	m.engine.Start()
	defer m.engine.Stop()

	transport, err := artnet.NewUDPTransport(cfg.Wire.Bind, cfg.Wire.Broadcast)
	if err != nil {
		log.Fatal(err)
	}
	defer transport.Close()

	wire := cfg.WireSettings()
	m.disc = artnet.NewDiscovery(transport, wire, artnet.DiscoveryOptions{
		TimeProvider: m.tp,
		Status:       m.status,
		Events:       m.events,
	})
	m.disc.Start()
	defer m.disc.Stop()

	m.streamer = artnet.NewStreamer(m.engine, transport, wire, artnet.StreamerOptions{
		TimeProvider: m.tp,
		Status:       m.status,
		Discovery:    m.disc,
	})
	m.streamer.Start()
	defer m.streamer.Stop()

	m.met = metronome.NewMetronome(m.clock, metronome.Options{Status: m.status})
	if err := m.met.Initialize(); err != nil {
		log.Printf("metronome: %v (continuing without audio)", err)
	}
	m.met.SetVolume(cfg.Metronome.Volume)
	if !cfg.Metronome.Enabled {
		m.met.ToggleMute()
	}
	m.met.Start()
	defer m.met.Stop()

	watcher, err := config.NewWatcher(m.events, scenePath, rigPath)
	if err != nil {
		log.Printf("hot reload disabled: %v", err)
	} else {
		watcher.Start()
		defer watcher.Stop()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatal(err)
	}
	if err := screen.Init(); err != nil {
		log.Fatal(err)
	}
	// A panic in any goroutine must reset the terminal before the
	// report prints, or the trace is unreadable.
	core.RegisterCrashHook(func() { screen.Fini() })
	defer func() {
		if r := recover(); r != nil {
			core.HandleCrash(r)
		}
	}()
	defer screen.Fini()
	m.screen = screen

	m.run()
}

func (m *monitor) run() {
	keys := make(chan tcell.Event, 64)
	core.Go(func() {
		for {
			ev := m.screen.PollEvent()
			if ev == nil {
				return
			}
			keys <- ev
		}
	})

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-keys:
			switch tev := ev.(type) {
			case *tcell.EventKey:
				if !m.handleKey(tev) {
					return
				}
			case *tcell.EventResize:
				m.screen.Sync()
			}
		case <-ticker.C:
			m.consumeEvents()
			m.draw()
		}
	}
}

func (m *monitor) handleKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
		return false
	}
	if ev.Key() != tcell.KeyRune {
		return true
	}

	switch ev.Rune() {
	case 'q':
		return false
	case ' ':
		if m.tap != nil {
			m.tap.Tap()
			m.events.Emit(event.TypeTempoChanged, &event.TempoPayload{
				BPM:    m.tap.BPM(),
				Source: "tap",
			})
		}
	case '+', '=':
		m.stack.SetMaster(m.stack.Master() + masterStep)
	case '-', '_':
		m.stack.SetMaster(m.stack.Master() - masterStep)
	case '[':
		if m.tap != nil {
			m.tap.Nudge(-nudgeStep)
		}
	case ']':
		if m.tap != nil {
			m.tap.Nudge(nudgeStep)
		}
	case 'm':
		if m.met.ToggleMute() {
			m.pushLine("click on")
		} else {
			m.pushLine("click off")
		}
	case 's':
		m.saveScene()
	}
	return true
}

// saveScene captures the live stack back into the scene file.
func (m *monitor) saveScene() {
	if m.scenePath == "" {
		m.pushLine("no scene file to save to")
		return
	}
	sc := scene.SceneOf(m.stack)
	sc.Name = m.sceneName
	if err := config.SaveScene(m.scenePath, sc); err != nil {
		m.pushLine(err.Error())
		return
	}
	m.pushLine(fmt.Sprintf("scene saved to %s", m.scenePath))
}

// consumeEvents drains the queue into the on-screen event log and
// applies hot reloads.
func (m *monitor) consumeEvents() {
	for _, ev := range m.events.Consume() {
		switch p := ev.Payload.(type) {
		case *event.NodePayload:
			if ev.Type == event.TypeNodeUp {
				m.pushLine(fmt.Sprintf("node up: %s (%s) universes %v", p.ShortName, p.IP, p.Universes))
			} else {
				m.pushLine(fmt.Sprintf("node lost: %s (%s)", p.ShortName, p.IP))
			}
		case *event.SyncStatePayload:
			m.pushLine(fmt.Sprintf("sync %s -> %s", p.From, p.To))
		case *event.TempoPayload:
			m.pushLine(fmt.Sprintf("tempo %.1f bpm via %s", p.BPM, p.Source))
		case *event.ScenePayload:
			m.pushLine(fmt.Sprintf("scene applied: %q, %d layers", p.Name, p.Layers))
		case *event.FrameDropPayload:
			m.pushLine(fmt.Sprintf("tick %d behind by %v", p.FrameNumber, p.Behind))
		case *event.ConfigPayload:
			m.reload(p.Path)
		}
	}
}

func (m *monitor) reload(path string) {
	switch path {
	case m.scenePath:
		sc, err := config.LoadScene(path)
		if err != nil {
			m.pushLine(fmt.Sprintf("scene reload rejected: %v", err))
			return
		}
		m.stack.ApplyScene(sc)
		m.sceneName = sc.Name
		m.events.Emit(event.TypeSceneApplied, &event.ScenePayload{
			Name:   sc.Name,
			Layers: m.stack.Len(),
		})
	case m.rigPath:
		patch, err := config.LoadRig(path)
		if err != nil {
			m.pushLine(fmt.Sprintf("rig reload rejected: %v", err))
			return
		}
		m.engine.SetPatch(patch)
		m.pushLine(fmt.Sprintf("rig reloaded: %d fixtures", patch.Count()))
	}
}

func (m *monitor) pushLine(line string) {
	stamp := time.Now().Format("15:04:05")
	m.lines = append(m.lines, stamp+"  "+line)
	if len(m.lines) > eventLogDepth {
		m.lines = m.lines[len(m.lines)-eventLogDepth:]
	}
}
