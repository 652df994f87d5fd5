package midisync

import (
	"math"
	"testing"
	"time"

	"github.com/lixenwraith/helios/core"
	"github.com/lixenwraith/helios/parameter"
)

func newTestClock() (*Clock, *core.MockTimeProvider) {
	mock := core.NewMockTimeProvider(time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC))
	return New(mock, "test"), mock
}

// feedTicks sends n clock pulses spaced for the given bpm.
func feedTicks(c *Clock, mock *core.MockTimeProvider, n int, bpm float64) {
	tickDur := parameter.BeatDuration(bpm) / parameter.MidiTicksPerBeat
	for i := 0; i < n; i++ {
		c.OnTick(mock.Now())
		mock.Advance(tickDur)
	}
}

func TestClockBPMConverges(t *testing.T) {
	c, mock := newTestClock()

	c.OnStart()
	feedTicks(c, mock, 96, 240)

	if got := c.BPM(); math.Abs(got-240) > 2 {
		t.Errorf("bpm: got %v, want within 2 of 240", got)
	}
}

func TestClockBeatPhaseFromPulseCount(t *testing.T) {
	c, mock := newTestClock()

	c.OnStart()
	// Pulse 1 is the downbeat; pulse 13 lands at phase 0.5
	feedTicks(c, mock, 12, 120)
	c.OnTick(mock.Now())

	if got := c.BeatPhase(); math.Abs(got-0.5) > 0.05 {
		t.Errorf("beat phase at pulse 13: got %v, want 0.5", got)
	}
}

func TestClockBarPhaseSpansFourBeats(t *testing.T) {
	c, mock := newTestClock()

	c.OnStart()
	// Two full beats of pulses puts the bar phase at 0.5
	feedTicks(c, mock, 48, 120)
	c.OnTick(mock.Now())

	if got := c.BarPhase(); math.Abs(got-0.5) > 0.05 {
		t.Errorf("bar phase after two beats: got %v, want 0.5", got)
	}
}

func TestClockStartResetsDownbeat(t *testing.T) {
	c, mock := newTestClock()

	c.OnStart()
	feedTicks(c, mock, 30, 120)

	c.OnStart()
	c.OnTick(mock.Now())
	if got := c.BeatPhase(); got > 0.05 {
		t.Errorf("phase after start+first pulse: got %v, want ~0", got)
	}
}

func TestClockPeerPresence(t *testing.T) {
	c, mock := newTestClock()

	if got := c.PeerCount(); got != 0 {
		t.Errorf("before any pulse: got %d peers, want 0", got)
	}

	c.OnTick(mock.Now())
	if got := c.PeerCount(); got != 1 {
		t.Errorf("while ticking: got %d peers, want 1", got)
	}

	mock.Advance(parameter.MidiClockTimeout + time.Second)
	if got := c.PeerCount(); got != 0 {
		t.Errorf("after clock silence: got %d peers, want 0", got)
	}
}

func TestClockStopFreezesInterpolation(t *testing.T) {
	c, mock := newTestClock()

	c.OnStart()
	feedTicks(c, mock, 12, 120)
	c.OnTick(mock.Now())
	c.OnStop()

	frozen := c.BeatPhase()
	mock.Advance(100 * time.Millisecond)
	if got := c.BeatPhase(); math.Abs(got-frozen) > 1e-9 {
		t.Errorf("phase advanced while stopped: %v then %v", frozen, got)
	}

	c.OnContinue()
	mock.Advance(parameter.BeatDuration(120) / parameter.MidiTicksPerBeat / 2)
	if got := c.BeatPhase(); got <= frozen {
		t.Errorf("phase should advance after continue: %v then %v", frozen, got)
	}
}

func TestClockIgnoresStaleGapInTempo(t *testing.T) {
	c, mock := newTestClock()

	c.OnStart()
	feedTicks(c, mock, 48, 120)
	before := c.BPM()

	// A silence longer than the clock timeout must not drag the estimate
	mock.Advance(5 * time.Second)
	c.OnTick(mock.Now())

	if got := c.BPM(); math.Abs(got-before) > 1 {
		t.Errorf("stale gap moved bpm: %v then %v", before, got)
	}
}
