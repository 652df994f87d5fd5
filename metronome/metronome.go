// Package metronome renders an audible click on every beat of the
// active clock, accented on the bar downbeat. When no audio device is
// available it runs silently and keeps counting, so beat-locked logic
// can still be observed.
package metronome

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/lixenwraith/helios/beat"
	"github.com/lixenwraith/helios/core"
	"github.com/lixenwraith/helios/parameter"
	"github.com/lixenwraith/helios/status"
)

const sampleRate = beep.SampleRate(parameter.AudioSampleRate)

// Options carries the metronome's ambient wiring.
type Options struct {
	Status *status.Registry
}

// Metronome watches a clock's phases and fires a short ping on every
// wrap. Downbeats get a higher pitch. All sound flows through one
// mixer attached to the speaker once.
type Metronome struct {
	clock beat.Clock
	mixer *beep.Mixer

	mu          sync.Mutex
	volume      float64
	initialized bool

	silent atomic.Bool
	muted  atomic.Bool

	// loop-owned phase memory
	prevBeat float64
	prevBar  float64
	primed   bool

	statClicks  *atomic.Int64
	statAccents *atomic.Int64

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool
}

func NewMetronome(clock beat.Clock, opts Options) *Metronome {
	if opts.Status == nil {
		opts.Status = status.NewRegistry()
	}
	return &Metronome{
		clock:       clock,
		mixer:       &beep.Mixer{},
		volume:      parameter.ClickVolume,
		statClicks:  opts.Status.Ints.Get("metronome.clicks"),
		statAccents: opts.Status.Ints.Get("metronome.accents"),
		stopChan:    make(chan struct{}),
	}
}

// Initialize opens the speaker and attaches the mixer. A device that
// cannot be opened drops the metronome into silent mode and reports
// the device error; the metronome still runs and counts.
func (m *Metronome) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	if err := speaker.Init(sampleRate, sampleRate.N(parameter.AudioBufferLen)); err != nil {
		m.silent.Store(true)
		return fmt.Errorf("open audio device: %w", err)
	}

	speaker.Play(m.mixer)
	m.initialized = true
	return nil
}

// Start launches the phase-watch loop.
func (m *Metronome) Start() {
	if m.running.CompareAndSwap(false, true) {
		m.wg.Add(1)
		core.Go(m.loop)
	}
}

// Stop halts the loop. No click fires after Stop returns.
func (m *Metronome) Stop() {
	m.stopOnce.Do(func() {
		if m.running.CompareAndSwap(true, false) {
			close(m.stopChan)
			m.wg.Wait()
		}
	})
}

func (m *Metronome) IsRunning() bool {
	return m.running.Load()
}

// ToggleMute flips the mute state and reports whether sound is now on.
func (m *Metronome) ToggleMute() bool {
	newMute := !m.muted.Load()
	m.muted.Store(newMute)
	return !newMute
}

func (m *Metronome) IsMuted() bool {
	return m.muted.Load()
}

// SetVolume updates click volume, clamped to 0..1.
func (m *Metronome) SetVolume(vol float64) {
	if vol < 0 {
		vol = 0
	} else if vol > 1 {
		vol = 1
	}
	m.mu.Lock()
	m.volume = vol
	m.mu.Unlock()
}

func (m *Metronome) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// Clicks returns the number of beats voiced, accents included.
func (m *Metronome) Clicks() int64 { return m.statClicks.Load() }

// Accents returns the number of downbeats voiced.
func (m *Metronome) Accents() int64 { return m.statAccents.Load() }

func (m *Metronome) loop() {
	defer m.wg.Done()

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
		case <-m.stopChan:
			return
		default:
		}

		m.observe(m.clock.State())

		timer.Reset(parameter.MetronomePollRate)
		select {
		case <-timer.C:
		case <-m.stopChan:
			return
		}
	}
}

// observe compares phases against the previous sample and voices a
// click on each wrap. The first sample only primes the memory. A bar
// wrap implies a beat wrap and voices the accent alone.
func (m *Metronome) observe(s beat.State) {
	if !m.primed {
		m.prevBeat = s.BeatPhase
		m.prevBar = s.BarPhase
		m.primed = true
		return
	}

	barWrap := s.BarPhase < m.prevBar
	beatWrap := s.BeatPhase < m.prevBeat
	m.prevBeat = s.BeatPhase
	m.prevBar = s.BarPhase

	if barWrap {
		m.click(true)
	} else if beatWrap {
		m.click(false)
	}
}

// click voices one ping. Muted drops it entirely; silent mode counts
// it without touching the mixer.
func (m *Metronome) click(accent bool) {
	if m.muted.Load() {
		return
	}

	m.statClicks.Add(1)
	freq := parameter.ClickFrequency
	if accent {
		m.statAccents.Add(1)
		freq = parameter.AccentFrequency
	}

	m.mu.Lock()
	ready := m.initialized
	vol := m.volume
	m.mu.Unlock()
	if !ready || m.silent.Load() {
		return
	}

	ping := beep.Take(sampleRate.N(parameter.ClickDuration), &clickGenerator{
		sr:     sampleRate,
		freq:   freq,
		volume: vol,
	})
	speaker.Lock()
	m.mixer.Add(ping)
	speaker.Unlock()
}

// clickGenerator produces a decaying sine ping.
type clickGenerator struct {
	sr     beep.SampleRate
	freq   float64
	volume float64
	pos    int
}

func (g *clickGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)

		// Sharp attack, exponential ring-down
		envelope := math.Exp(-t * 90)
		sample := g.volume * envelope * math.Sin(2*math.Pi*g.freq*t)

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *clickGenerator) Err() error {
	return nil
}
