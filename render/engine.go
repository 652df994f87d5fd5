package render

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/helios/beat"
	"github.com/lixenwraith/helios/core"
	"github.com/lixenwraith/helios/effect"
	"github.com/lixenwraith/helios/event"
	"github.com/lixenwraith/helios/fixture"
	"github.com/lixenwraith/helios/parameter"
	"github.com/lixenwraith/helios/scene"
	"github.com/lixenwraith/helios/status"
)

// Config carries the engine's ambient wiring. Zero fields fall back to
// defaults, so tests can construct an engine from almost nothing.
type Config struct {
	TickRate     int               // evaluation rate in Hz
	TimeProvider core.TimeProvider // engine clock source
	Status       *status.Registry  // metrics sink
	Events       *event.Queue      // optional lifecycle event sink
}

func (c Config) withDefaults() Config {
	if c.TickRate < parameter.MinTickRate || c.TickRate > parameter.MaxTickRate {
		c.TickRate = parameter.DefaultTickRate
	}
	if c.TimeProvider == nil {
		c.TimeProvider = core.NewMonotonicTimeProvider()
	}
	if c.Status == nil {
		c.Status = status.NewRegistry()
	}
	return c
}

// Engine evaluates the scene stack against the patch at a fixed rate
// and publishes frames through a triple buffer. One goroutine produces;
// the output streamer consumes. Everything mutable from outside flows
// through atomics, so a running engine is reconfigured without locks in
// the tick path.
type Engine struct {
	stack    *scene.Stack
	registry *effect.Registry
	clock    beat.Clock
	tp       core.TimeProvider
	events   *event.Queue

	patch  atomic.Pointer[fixture.Patch]
	buffer atomic.Pointer[TripleBuffer[*Frame]]

	tickInterval     time.Duration
	epoch            time.Time
	nextTickDeadline time.Time
	frameNumber      atomic.Uint64

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool

	statTicks    *atomic.Int64
	statDrops    *atomic.Int64
	statFixtures *atomic.Int64
	statBPM      *status.AtomicFloat
	statTickMs   *status.AtomicFloat
}

// NewEngine wires an engine over the stack, effect registry, and beat
// clock. A nil patch starts the engine empty; SetPatch installs the rig
// later.
func NewEngine(stack *scene.Stack, registry *effect.Registry, clock beat.Clock, patch *fixture.Patch, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	if patch == nil {
		patch, _ = fixture.NewPatch(nil)
	}

	e := &Engine{
		stack:        stack,
		registry:     registry,
		clock:        clock,
		tp:           cfg.TimeProvider,
		events:       cfg.Events,
		tickInterval: parameter.TickInterval(cfg.TickRate),
		stopChan:     make(chan struct{}),
		statTicks:    cfg.Status.Ints.Get("engine.ticks"),
		statDrops:    cfg.Status.Ints.Get("engine.frame_drops"),
		statFixtures: cfg.Status.Ints.Get("engine.fixtures"),
		statBPM:      cfg.Status.Floats.Get("beat.bpm"),
		statTickMs:   cfg.Status.Floats.Get("engine.tick_ms"),
	}
	e.epoch = e.tp.Now()
	e.patch.Store(patch)
	e.buffer.Store(newFrameBuffer(patch))
	e.statFixtures.Store(int64(patch.Count()))
	return e
}

// SetPatch swaps the rig under a running engine. The frame buffer is
// reallocated wholesale for the new fixture count; in-flight frames
// keep their old patch pointer and stay internally consistent.
func (e *Engine) SetPatch(p *fixture.Patch) {
	if p == nil {
		p, _ = fixture.NewPatch(nil)
	}
	e.buffer.Store(newFrameBuffer(p))
	e.patch.Store(p)
	e.statFixtures.Store(int64(p.Count()))
}

// Patch returns the patch the next tick will render against.
func (e *Engine) Patch() *fixture.Patch {
	return e.patch.Load()
}

// Buffer returns the current frame buffer. Consumers reload it each
// cycle; a patch swap replaces the buffer outright.
func (e *Engine) Buffer() *TripleBuffer[*Frame] {
	return e.buffer.Load()
}

// TickInterval returns the evaluation period.
func (e *Engine) TickInterval() time.Duration {
	return e.tickInterval
}

// FrameCount returns the number of frames published so far.
func (e *Engine) FrameCount() uint64 {
	return e.frameNumber.Load()
}

// Start launches the render loop. Calling Start on a running engine is
// a no-op.
func (e *Engine) Start() {
	if e.running.CompareAndSwap(false, true) {
		e.wg.Add(1)
		core.Go(e.renderLoop)
	}
}

// Stop halts the render loop and waits for it to exit.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if e.running.CompareAndSwap(true, false) {
			close(e.stopChan)
			e.wg.Wait()
		}
	})
}

// IsRunning reports whether the render loop is active.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// Tick evaluates one frame at the given instant and publishes it. The
// render loop calls this on schedule; tests call it directly.
func (e *Engine) Tick(now time.Time) {
	started := time.Now() // wall clock; the injected provider may be frozen in tests
	buf := e.buffer.Load()
	frame := buf.WriteSlot()
	patch := frame.Patch

	elapsed := now.Sub(e.epoch)
	bs := e.clock.State()
	pass := e.stack.BeginPass(e.registry, elapsed, bs)
	hasMove := pass.HasMovement()

	fixtures := patch.Fixtures()
	for i := range fixtures {
		pos := fixtures[i].Position
		out := &frame.Outputs[i]
		out.Color = pass.Color(pos)
		if hasMove {
			out.Move = pass.Movement(pos)
		} else {
			out.Move = effect.Movement{}
		}
	}

	frame.Number = e.frameNumber.Add(1)
	frame.Time = elapsed
	frame.Beat = pass.Beat()
	buf.Publish()

	e.statTicks.Add(1)
	e.statBPM.Set(bs.BPM)
	e.statTickMs.Set(float64(time.Since(started).Microseconds()) / 1000)
}

func (e *Engine) renderLoop() {
	defer e.wg.Done()

	e.nextTickDeadline = e.tp.Now().Add(e.tickInterval)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	defer timer.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		default:
		}

		now := e.tp.Now()
		var sleep time.Duration

		if !now.Before(e.nextTickDeadline) {
			e.Tick(now)

			e.nextTickDeadline = e.nextTickDeadline.Add(e.tickInterval)

			maxBehind := e.tickInterval * parameter.TickMaxBehind
			if behind := now.Sub(e.nextTickDeadline); behind > maxBehind {
				e.nextTickDeadline = now.Add(e.tickInterval)
				e.statDrops.Add(1)
				if e.events != nil {
					e.events.Emit(event.TypeFrameDrop, &event.FrameDropPayload{
						FrameNumber: e.frameNumber.Load(),
						Behind:      behind,
					})
				}
			}

			sleep = e.nextTickDeadline.Sub(e.tp.Now())
			if sleep < 0 {
				sleep = 0
			}
		} else {
			sleep = e.nextTickDeadline.Sub(now)
		}

		if sleep > 0 {
			timer.Reset(sleep)
			select {
			case <-timer.C:
			case <-e.stopChan:
				return
			}
		}
	}
}
