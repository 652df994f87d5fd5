// Package midisync implements the beat session interface on top of MIDI
// real-time clock. A console or DAW sending clock (24 pulses per quarter
// note) acts as the tempo peer: bpm comes from smoothed pulse intervals,
// phase from the pulse counter, and peer presence from pulse recency.
package midisync

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/lixenwraith/helios/core"
	"github.com/lixenwraith/helios/parameter"
	"github.com/lixenwraith/helios/vmath"
)

// Clock consumes MIDI clock from one input port. It satisfies
// beat.Session; the pulse handlers are exported so tests can drive them
// without a MIDI driver.
type Clock struct {
	tp       core.TimeProvider
	portName string

	mu       sync.Mutex
	bpm      float64
	ticks    int64
	lastTick time.Time
	running  bool // transport running per Start/Stop/Continue messages
	stopFn   func()
}

func New(tp core.TimeProvider, portName string) *Clock {
	return &Clock{
		tp:       tp,
		portName: portName,
		bpm:      parameter.DefaultBPM,
	}
}

// findInPort matches a MIDI input port by case-insensitive substring.
func findInPort(substr string) (drivers.In, error) {
	lower := strings.ToLower(substr)
	for _, port := range midi.GetInPorts() {
		if strings.Contains(strings.ToLower(port.String()), lower) {
			return port, nil
		}
	}
	return nil, fmt.Errorf("midisync: no MIDI input port matching %q", substr)
}

// SetEnabled opens or closes the MIDI listener. The error path (port
// missing) leaves the session peerless rather than failing the caller;
// the sync wrapper then reports NO_LINK.
func (c *Clock) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !enabled {
		if c.stopFn != nil {
			c.stopFn()
			c.stopFn = nil
		}
		c.lastTick = time.Time{}
		return
	}

	if c.stopFn != nil {
		return
	}

	port, err := findInPort(c.portName)
	if err != nil {
		return
	}

	stop, err := midi.ListenTo(port, func(msg midi.Message, timestampms int32) {
		c.handle(msg)
	})
	if err != nil {
		return
	}
	c.stopFn = stop
}

func (c *Clock) handle(msg midi.Message) {
	switch {
	case msg.Is(midi.TimingClockMsg):
		c.OnTick(c.tp.Now())
	case msg.Is(midi.StartMsg):
		c.OnStart()
	case msg.Is(midi.ContinueMsg):
		c.OnContinue()
	case msg.Is(midi.StopMsg):
		c.OnStop()
	}
}

// OnTick advances the pulse counter and folds the new pulse interval into
// the smoothed tempo estimate.
func (c *Clock) OnTick(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastTick.IsZero() {
		delta := now.Sub(c.lastTick)
		if delta > 0 && delta < parameter.MidiClockTimeout {
			instant := 60.0 / (delta.Seconds() * parameter.MidiTicksPerBeat)
			instant = vmath.Clamp(instant, parameter.MinBPM, parameter.MaxBPM)
			c.bpm += parameter.MidiBPMSmoothing * (instant - c.bpm)
		}
	}

	c.ticks++
	c.lastTick = now
	c.running = true
}

// OnStart resets the pulse counter to the downbeat.
func (c *Clock) OnStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
	c.running = true
}

// OnContinue resumes without resetting the pulse counter.
func (c *Clock) OnContinue() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
}

// OnStop halts phase advancement until the next tick run.
func (c *Clock) OnStop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
}

func (c *Clock) BPM() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bpm
}

// BeatPhase interpolates between pulses: counter position plus the
// fraction of the current pulse interval already elapsed.
func (c *Clock) BeatPhase() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phaseLocked(parameter.MidiTicksPerBeat)
}

func (c *Clock) BarPhase() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phaseLocked(parameter.MidiTicksPerBeat * parameter.BeatsPerBar)
}

// phaseLocked requires c.mu held. span is the pulse count per cycle.
func (c *Clock) phaseLocked(span int64) float64 {
	if c.lastTick.IsZero() {
		return 0
	}

	frac := 0.0
	if c.running && c.bpm > 0 {
		tickDur := parameter.BeatDuration(c.bpm) / parameter.MidiTicksPerBeat
		if tickDur > 0 {
			frac = vmath.Clamp01(float64(c.tp.Now().Sub(c.lastTick)) / float64(tickDur))
		}
	}

	pos := float64((c.ticks-1)%span) + frac
	if pos < 0 {
		pos = 0
	}
	return vmath.Wrap01(pos / float64(span))
}

// PeerCount reports one peer while clock pulses are arriving.
func (c *Clock) PeerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastTick.IsZero() {
		return 0
	}
	if c.tp.Now().Sub(c.lastTick) > parameter.MidiClockTimeout {
		return 0
	}
	return 1
}
