package render

import (
	"testing"
	"time"

	"github.com/lixenwraith/helios/beat"
	"github.com/lixenwraith/helios/chroma"
	"github.com/lixenwraith/helios/core"
	"github.com/lixenwraith/helios/effect"
	"github.com/lixenwraith/helios/fixture"
	"github.com/lixenwraith/helios/scene"
	"github.com/lixenwraith/helios/status"
)

// fixedClock serves a constant beat snapshot.
type fixedClock struct {
	state beat.State
}

func (c *fixedClock) BPM() float64           { return c.state.BPM }
func (c *fixedClock) BeatPhase() float64     { return c.state.BeatPhase }
func (c *fixedClock) BarPhase() float64      { return c.state.BarPhase }
func (c *fixedClock) IsRunning() bool        { return true }
func (c *fixedClock) Elapsed() time.Duration { return c.state.Elapsed }
func (c *fixedClock) State() beat.State      { return c.state }
func (c *fixedClock) Start()                 {}
func (c *fixedClock) Stop()                  {}

func rowPatch(t *testing.T, n int) *fixture.Patch {
	t.Helper()
	p, err := fixture.BuildPatch(fixture.RigFile{
		Patch: []fixture.FixtureDef{{
			ID: "px", Profile: "rgb", Universe: 0, Address: 1,
			Count: n, Spacing: [3]float64{1, 0, 0},
		}},
	})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	return p
}

func solidStack(c chroma.Color) *scene.Stack {
	s := scene.NewStack()
	s.AddLayer(scene.NewLayer("solid", effect.NewParams(map[string]any{"color": c})))
	return s
}

func newTestEngine(t *testing.T, n int, stack *scene.Stack) (*Engine, *core.MockTimeProvider) {
	t.Helper()
	reg := effect.NewRegistry()
	effect.InstallBuiltins(reg)
	mock := core.NewMockTimeProvider(time.Unix(1000, 0))
	clock := &fixedClock{state: beat.State{BPM: 120, BeatPhase: 0.25, BarPhase: 0.0625}}
	eng := NewEngine(stack, reg, clock, rowPatch(t, n), Config{
		TimeProvider: mock,
	})
	return eng, mock
}

// TestEngineTickPublishesFrame verifies one tick evaluates every
// fixture and lands in the consumer's hands.
func TestEngineTickPublishesFrame(t *testing.T) {
	eng, mock := newTestEngine(t, 4, solidStack(chroma.Red))

	mock.Advance(25 * time.Millisecond)
	eng.Tick(mock.Now())

	buf := eng.Buffer()
	if !buf.TrySwapRead() {
		t.Fatal("no frame published after tick")
	}
	frame := buf.ReadSlot()
	if frame.Number != 1 {
		t.Errorf("frame number: got %d, want 1", frame.Number)
	}
	if frame.Time != 25*time.Millisecond {
		t.Errorf("frame time: got %v, want 25ms", frame.Time)
	}
	if len(frame.Outputs) != 4 {
		t.Fatalf("outputs: got %d, want 4", len(frame.Outputs))
	}
	for i, out := range frame.Outputs {
		if out.Color != chroma.Red {
			t.Errorf("fixture %d: got %+v, want red", i, out.Color)
		}
		if !out.Move.IsZero() {
			t.Errorf("fixture %d: movement set with no movement layers", i)
		}
	}
}

// TestEngineLatestFrameWins verifies an unread frame is replaced, not
// queued.
func TestEngineLatestFrameWins(t *testing.T) {
	eng, mock := newTestEngine(t, 1, solidStack(chroma.Red))

	for i := 0; i < 3; i++ {
		mock.Advance(10 * time.Millisecond)
		eng.Tick(mock.Now())
	}

	buf := eng.Buffer()
	if !buf.TrySwapRead() {
		t.Fatal("no frame to read")
	}
	if got := buf.ReadSlot().Number; got != 3 {
		t.Errorf("frame number: got %d, want 3", got)
	}
	if buf.TrySwapRead() {
		t.Error("stale frame still marked unread")
	}
}

// TestEngineBeatSnapshotCarriesMultiplier verifies the frame's beat
// state reflects the stack's tempo multiplier.
func TestEngineBeatSnapshotCarriesMultiplier(t *testing.T) {
	stack := solidStack(chroma.White)
	stack.SetTempoMultiplier(2)
	eng, mock := newTestEngine(t, 1, stack)

	eng.Tick(mock.Now())
	buf := eng.Buffer()
	if !buf.TrySwapRead() {
		t.Fatal("no frame")
	}
	bs := buf.ReadSlot().Beat
	if bs.BPM != 240 {
		t.Errorf("bpm: got %v, want 240", bs.BPM)
	}
	if bs.BeatPhase != 0.5 {
		t.Errorf("beat phase: got %v, want 0.5", bs.BeatPhase)
	}
}

// TestEngineMovementLayers verifies movement channels reach the frame.
func TestEngineMovementLayers(t *testing.T) {
	stack := scene.NewStack()
	stack.AddLayer(scene.NewLayer("point", effect.NewParams(map[string]any{
		"pan": 0.5, "tilt": 0.5,
	})))
	eng, mock := newTestEngine(t, 2, stack)

	eng.Tick(mock.Now())
	buf := eng.Buffer()
	if !buf.TrySwapRead() {
		t.Fatal("no frame")
	}
	for i, out := range buf.ReadSlot().Outputs {
		if v, ok := out.Move.Pan.Get(); !ok || v != 0.5 {
			t.Errorf("fixture %d pan: got %v set=%v, want 0.5", i, v, ok)
		}
	}
}

// TestEngineSetPatchReplacesBuffer verifies a patch swap reallocates
// the frame buffer and later frames carry the new layout.
func TestEngineSetPatchReplacesBuffer(t *testing.T) {
	eng, mock := newTestEngine(t, 2, solidStack(chroma.Blue))
	oldBuf := eng.Buffer()

	eng.Tick(mock.Now())

	bigger := rowPatch(t, 5)
	eng.SetPatch(bigger)
	if eng.Buffer() == oldBuf {
		t.Fatal("buffer not replaced on patch change")
	}
	if eng.Patch() != bigger {
		t.Error("patch accessor does not return the new patch")
	}

	mock.Advance(10 * time.Millisecond)
	eng.Tick(mock.Now())

	buf := eng.Buffer()
	if !buf.TrySwapRead() {
		t.Fatal("no frame after patch swap")
	}
	frame := buf.ReadSlot()
	if frame.Patch != bigger {
		t.Error("frame does not reference the patch it was rendered against")
	}
	if len(frame.Outputs) != 5 {
		t.Errorf("outputs after swap: got %d, want 5", len(frame.Outputs))
	}
}

// TestEngineEmptyPatch verifies an engine without a rig still ticks.
func TestEngineEmptyPatch(t *testing.T) {
	reg := effect.NewRegistry()
	effect.InstallBuiltins(reg)
	mock := core.NewMockTimeProvider(time.Unix(0, 0))
	eng := NewEngine(solidStack(chroma.Red), reg, &fixedClock{}, nil, Config{TimeProvider: mock})

	eng.Tick(mock.Now())
	buf := eng.Buffer()
	if !buf.TrySwapRead() {
		t.Fatal("no frame from empty engine")
	}
	if got := len(buf.ReadSlot().Outputs); got != 0 {
		t.Errorf("outputs: got %d, want 0", got)
	}
}

// TestEngineMetrics verifies tick and fixture counters feed the status
// registry.
func TestEngineMetrics(t *testing.T) {
	reg := effect.NewRegistry()
	effect.InstallBuiltins(reg)
	mock := core.NewMockTimeProvider(time.Unix(0, 0))
	statusReg := status.NewRegistry()
	clock := &fixedClock{state: beat.State{BPM: 128}}
	eng := NewEngine(solidStack(chroma.Red), reg, clock, rowPatch(t, 3), Config{
		TimeProvider: mock,
		Status:       statusReg,
	})

	for i := 0; i < 5; i++ {
		mock.Advance(10 * time.Millisecond)
		eng.Tick(mock.Now())
	}

	if got := statusReg.Ints.Get("engine.ticks").Load(); got != 5 {
		t.Errorf("engine.ticks: got %d, want 5", got)
	}
	if got := statusReg.Ints.Get("engine.fixtures").Load(); got != 3 {
		t.Errorf("engine.fixtures: got %d, want 3", got)
	}
	if got := statusReg.Floats.Get("beat.bpm").Get(); got != 128 {
		t.Errorf("beat.bpm: got %v, want 128", got)
	}
}

// TestEngineStartStop verifies the render loop runs on real time and
// start/stop are idempotent.
func TestEngineStartStop(t *testing.T) {
	reg := effect.NewRegistry()
	effect.InstallBuiltins(reg)
	eng := NewEngine(solidStack(chroma.Red), reg, &fixedClock{}, rowPatch(t, 1), Config{
		TickRate: 100,
	})

	eng.Start()
	eng.Start()
	if !eng.IsRunning() {
		t.Fatal("engine not running after Start")
	}

	deadline := time.Now().Add(2 * time.Second)
	for eng.FrameCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if eng.FrameCount() == 0 {
		t.Error("no frames rendered while running")
	}

	eng.Stop()
	eng.Stop()
	if eng.IsRunning() {
		t.Error("engine still running after Stop")
	}
}
