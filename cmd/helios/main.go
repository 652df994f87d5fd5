package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

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

const dispatchInterval = 50 * time.Millisecond

var (
	configFlag = flag.String("config", "", "daemon config file (yaml)")
	rigFlag    = flag.String("rig", "", "rig file, overrides paths.rig from the config")
	sceneFlag  = flag.String("scene", "", "scene file, overrides paths.scene from the config")
	midiFlag   = flag.String("midi", "", "follow MIDI clock from the input port matching this name")
	clickFlag  = flag.Bool("click", false, "force the metronome on")
)

func main() {
	flag.Parse()
	log.SetPrefix("helios: ")
	log.SetFlags(log.Ltime)

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
	log.Printf("rig %s: %d fixtures on universes %v", rigPath, patch.Count(), patch.Universes())

	statusReg := status.NewRegistry()
	events := event.NewQueue()
	registry := effect.NewRegistry()
	effect.InstallBuiltins(registry)
	stack := scene.NewStack()

	scenePath := cfg.Paths.Scene
	if *sceneFlag != "" {
		scenePath = *sceneFlag
	}
	if scenePath != "" {
		sc, err := config.LoadScene(scenePath)
		if err != nil {
			log.Fatal(err)
		}
		stack.ApplyScene(sc)
		log.Printf("scene %s: %q, %d layers", scenePath, sc.Name, stack.Len())
	}

	tp := core.NewMonotonicTimeProvider()
	var clock beat.Clock
	if *midiFlag != "" {
		sync := beat.NewSync(tp, midisync.New(tp, *midiFlag))
		sync.OnStateChange = func(from, to beat.SyncState) {
			events.Emit(event.TypeSyncStateChanged, &event.SyncStatePayload{
				From: from.String(),
				To:   to.String(),
			})
		}
		sync.OnTempoChange = func(bpm float64) {
			events.Emit(event.TypeTempoChanged, &event.TempoPayload{
				BPM:    bpm,
				Source: "sync",
			})
		}
		sync.Start()
		defer sync.Stop()
		clock = sync
	} else {
		tap := beat.NewTap(tp)
		tap.SetBPM(cfg.Engine.BPM)
		tap.Start()
		defer tap.Stop()
		clock = tap
	}

	eng := render.NewEngine(stack, registry, clock, patch, render.Config{
		TickRate:     cfg.Engine.TickRate,
		TimeProvider: tp,
		Status:       statusReg,
		Events:       events,
	})
	eng.Start()
	defer eng.Stop()

	transport, err := artnet.NewUDPTransport(cfg.Wire.Bind, cfg.Wire.Broadcast)
	if err != nil {
		log.Fatal(err)
	}
	defer transport.Close()

	wire := cfg.WireSettings()
	disc := artnet.NewDiscovery(transport, wire, artnet.DiscoveryOptions{
		TimeProvider: tp,
		Status:       statusReg,
		Events:       events,
	})
	disc.Start()
	defer disc.Stop()

	streamer := artnet.NewStreamer(eng, transport, wire, artnet.StreamerOptions{
		TimeProvider: tp,
		Status:       statusReg,
		Discovery:    disc,
	})
	streamer.Start()
	defer streamer.Stop()

	if cfg.Metronome.Enabled || *clickFlag {
		met := metronome.NewMetronome(clock, metronome.Options{Status: statusReg})
		if err := met.Initialize(); err != nil {
			log.Printf("metronome: %v (continuing without audio)", err)
		}
		met.SetVolume(cfg.Metronome.Volume)
		met.Start()
		defer met.Stop()
	}

	router := event.NewRouter(events)
	router.Register(eventLogger{})
	reload := &reloader{stack: stack, engine: eng, events: events}
	if scenePath != "" {
		reload.scenePath, _ = filepath.Abs(scenePath)
	}
	reload.rigPath, _ = filepath.Abs(rigPath)
	router.Register(reload)

	watcher, err := config.NewWatcher(events, scenePath, rigPath)
	if err != nil {
		log.Printf("hot reload disabled: %v", err)
	} else {
		watcher.Start()
		defer watcher.Stop()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	dispatch := time.NewTicker(dispatchInterval)
	defer dispatch.Stop()

	log.Printf("up: %d Hz, %.1f bpm, streaming to %s", cfg.Engine.TickRate, clock.BPM(), cfg.Wire.Broadcast)
	for {
		select {
		case <-sig:
			log.Print("shutting down")
			return
		case <-dispatch.C:
			router.DispatchAll()
		}
	}
}

// eventLogger turns engine events into log lines.
type eventLogger struct{}

func (eventLogger) EventTypes() []event.Type {
	return []event.Type{
		event.TypeNodeUp,
		event.TypeNodeLost,
		event.TypeSyncStateChanged,
		event.TypeTempoChanged,
		event.TypeSceneApplied,
		event.TypeFrameDrop,
	}
}

func (eventLogger) HandleEvent(ev event.Event) {
	switch p := ev.Payload.(type) {
	case *event.NodePayload:
		if ev.Type == event.TypeNodeUp {
			log.Printf("node up: %s (%s) universes %v", p.ShortName, p.IP, p.Universes)
		} else {
			log.Printf("node lost: %s (%s)", p.ShortName, p.IP)
		}
	case *event.SyncStatePayload:
		log.Printf("sync %s -> %s", p.From, p.To)
	case *event.TempoPayload:
		log.Printf("tempo %.1f bpm via %s", p.BPM, p.Source)
	case *event.ScenePayload:
		log.Printf("scene applied: %q, %d layers", p.Name, p.Layers)
	case *event.FrameDropPayload:
		log.Printf("tick %d behind by %v", p.FrameNumber, p.Behind)
	}
}

// reloader re-reads a changed scene or rig file and swaps it into the
// running engine. A file that no longer parses is rejected and the
// previous state keeps running.
type reloader struct {
	scenePath string
	rigPath   string
	stack     *scene.Stack
	engine    *render.Engine
	events    *event.Queue
}

func (r *reloader) EventTypes() []event.Type {
	return []event.Type{event.TypeConfigReloaded}
}

func (r *reloader) HandleEvent(ev event.Event) {
	path := ev.Payload.(*event.ConfigPayload).Path
	switch path {
	case r.scenePath:
		sc, err := config.LoadScene(path)
		if err != nil {
			log.Printf("scene reload rejected: %v", err)
			return
		}
		r.stack.ApplyScene(sc)
		r.events.Emit(event.TypeSceneApplied, &event.ScenePayload{
			Name:   sc.Name,
			Layers: r.stack.Len(),
		})
	case r.rigPath:
		patch, err := config.LoadRig(path)
		if err != nil {
			log.Printf("rig reload rejected: %v", err)
			return
		}
		r.engine.SetPatch(patch)
		log.Printf("rig reloaded: %d fixtures on universes %v", patch.Count(), patch.Universes())
	}
}
