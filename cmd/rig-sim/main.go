// rig-sim runs the full pipeline against an in-memory wire: emulated
// nodes on a simulated bus, a generated rig, discovery, streaming, and
// an optional fault profile stressing it all. Nothing touches the real
// network, so it runs anywhere the tests run.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lixenwraith/helios/artnet"
	"github.com/lixenwraith/helios/beat"
	"github.com/lixenwraith/helios/chroma"
	"github.com/lixenwraith/helios/core"
	"github.com/lixenwraith/helios/effect"
	"github.com/lixenwraith/helios/event"
	"github.com/lixenwraith/helios/fixture"
	"github.com/lixenwraith/helios/parameter"
	"github.com/lixenwraith/helios/render"
	"github.com/lixenwraith/helios/scene"
	"github.com/lixenwraith/helios/status"
	"github.com/lixenwraith/helios/vmath"
)

var (
	nodesFlag    = flag.Int("nodes", 3, "emulated node count, one universe each")
	fixturesFlag = flag.Int("fixtures", 8, "rgb fixtures per universe")
	profileFlag  = flag.String("profile", "stable", "fault profile: stable, flaky, partial, overloaded")
	seedFlag     = flag.Uint64("seed", 1, "rng seed for bus loss and fault schedules")
	lossFlag     = flag.Float64("loss", 0, "base packet loss probability on the bus")
	rateFlag     = flag.Int("rate", parameter.DefaultTickRate, "render tick rate in Hz")
	bpmFlag      = flag.Float64("bpm", parameter.DefaultBPM, "tempo")
	durationFlag = flag.Duration("duration", 0, "stop after this long (0 = run until interrupted)")
	reportFlag   = flag.Duration("report", 2*time.Second, "status report period")
	unicastFlag  = flag.Bool("unicast", false, "send universe data to discovered owners instead of broadcasting")
	syncFlag     = flag.Bool("artsync", false, "trail each frame with a sync packet")
)

func main() {
	flag.Parse()
	log.SetPrefix("rig-sim: ")
	log.SetFlags(log.Ltime)

	if *nodesFlag < 1 {
		log.Fatal("need at least one node")
	}
	if *fixturesFlag < 1 || *fixturesFlag*3 > parameter.UniverseSize {
		log.Fatalf("fixtures per universe must be 1..%d", parameter.UniverseSize/3)
	}

	bus := artnet.NewSimBus(*seedFlag)
	bus.SetLoss(*lossFlag)

	simNodes := make([]*artnet.SimNode, 0, *nodesFlag)
	for i := 0; i < *nodesFlag; i++ {
		ep := bus.Connect(fmt.Sprintf("10.1.0.%d:6454", i+1))
		n := artnet.NewSimNode(ep, artnet.SimNodeConfig{
			ShortName: fmt.Sprintf("node-%02d", i+1),
			IP:        net.IPv4(10, 1, 0, byte(i+1)),
			Universes: []int{i},
		})
		n.Start()
		simNodes = append(simNodes, n)
	}

	patch, err := fixture.NewPatch(buildRig(*nodesFlag, *fixturesFlag))
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("rig: %d fixtures across %d universes, %d emulated nodes",
		patch.Count(), len(patch.Universes()), len(simNodes))

	registry := effect.NewRegistry()
	effect.InstallBuiltins(registry)

	stack := scene.NewStack()
	stack.ApplyScene(demoScene())

	tp := core.NewMonotonicTimeProvider()
	statusReg := status.NewRegistry()
	events := event.NewQueue()

	tap := beat.NewTap(tp)
	tap.SetBPM(*bpmFlag)
	tap.Start()

	eng := render.NewEngine(stack, registry, tap, patch, render.Config{
		TickRate:     *rateFlag,
		TimeProvider: tp,
		Status:       statusReg,
		Events:       events,
	})
	eng.Start()

	wire := artnet.SimConfig()
	wire.Unicast = *unicastFlag
	wire.UseSync = *syncFlag

	ctrl := bus.Connect("10.1.0.100:6454")
	disc := artnet.NewDiscovery(ctrl, wire, artnet.DiscoveryOptions{
		TimeProvider: tp,
		Status:       statusReg,
		Events:       events,
	})
	disc.Start()

	streamer := artnet.NewStreamer(eng, ctrl, wire, artnet.StreamerOptions{
		TimeProvider: tp,
		Status:       statusReg,
		Discovery:    disc,
	})
	streamer.Start()

	profile, err := buildProfile(*profileFlag, bus, simNodes, *seedFlag)
	if err != nil {
		log.Fatal(err)
	}
	profile.Start()
	log.Printf("profile %s, seed %d, %d Hz, %.0f bpm", profile.Name(), *seedFlag, *rateFlag, *bpmFlag)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	var timeout <-chan time.Time
	if *durationFlag > 0 {
		timeout = time.After(*durationFlag)
	}

	report := time.NewTicker(*reportFlag)
	defer report.Stop()

loop:
	for {
		select {
		case <-sig:
			break loop
		case <-timeout:
			break loop
		case <-report.C:
			drainEvents(events)
			logReport(disc, streamer, simNodes, bus)
		}
	}

	profile.Stop()
	streamer.Stop()
	disc.Stop()
	eng.Stop()
	for _, n := range simNodes {
		n.Stop()
	}
	tap.Stop()
	ctrl.Close()

	drainEvents(events)
	log.Print("final:")
	logReport(disc, streamer, simNodes, bus)
}

// buildRig lays out a run of rgb fixtures per universe, one truss per
// node stacked along Z.
func buildRig(universes, perUniverse int) []fixture.Fixture {
	rgb := fixture.BuiltinProfiles()["rgb"]
	fixtures := make([]fixture.Fixture, 0, universes*perUniverse)
	for u := 0; u < universes; u++ {
		for i := 0; i < perUniverse; i++ {
			fixtures = append(fixtures, fixture.Fixture{
				ID:       fmt.Sprintf("n%02d-f%02d", u+1, i+1),
				Profile:  rgb,
				Universe: u,
				Address:  1 + i*3,
				Position: vmath.Vec3{X: float64(i) * 0.5, Z: float64(u)},
			})
		}
	}
	return fixtures
}

// demoScene is a look that keeps every universe changing: a scrolling
// rainbow with a beat pulse layered on top.
func demoScene() scene.Scene {
	return scene.Scene{
		Name: "sim",
		Layers: []scene.LayerSpec{
			{Effect: "rainbow", Params: map[string]any{"scale": 0.3, "speed": 0.2}},
			{Effect: "pulse", Blend: chroma.BlendAdditive, Params: map[string]any{
				"color":     "#303030",
				"sharpness": 3,
			}},
		},
	}
}

func buildProfile(name string, bus *artnet.SimBus, nodes []*artnet.SimNode, seed uint64) (artnet.FaultProfile, error) {
	switch name {
	case "stable":
		return artnet.StableProfile{}, nil
	case "flaky":
		return artnet.NewFlakyProfile(bus, nodes, seed, nil), nil
	case "partial":
		return artnet.NewPartialFailureProfile(nodes, seed, nil), nil
	case "overloaded":
		return artnet.NewOverloadedProfile(nodes, seed, nil), nil
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}
}

func drainEvents(q *event.Queue) {
	for _, ev := range q.Consume() {
		switch p := ev.Payload.(type) {
		case *event.NodePayload:
			if ev.Type == event.TypeNodeUp {
				log.Printf("node up: %s (%s) universes %v", p.ShortName, p.IP, p.Universes)
			} else {
				log.Printf("node lost: %s (%s)", p.ShortName, p.IP)
			}
		case *event.FrameDropPayload:
			log.Printf("tick %d behind by %v", p.FrameNumber, p.Behind)
		}
	}
}

func logReport(disc *artnet.Discovery, s *artnet.Streamer, nodes []*artnet.SimNode, bus *artnet.SimBus) {
	log.Printf("alive %d/%d | streamed %d frames, %d packets | bus loss %.2f",
		disc.AliveCount(), len(nodes), s.FramesStreamed(), s.PacketsSent(), bus.Loss())
	for _, n := range nodes {
		log.Printf("  %-8s %v  frames %-6d stale %-4d delay %-8s dark %v",
			n.ShortName(), n.Universes(), n.TotalFrames(), n.StaleFrames(), n.ReplyDelay(), n.IsDark())
	}
}
