package beat

import (
	"sort"
	"sync"
	"time"

	"github.com/lixenwraith/helios/core"
	"github.com/lixenwraith/helios/parameter"
	"github.com/lixenwraith/helios/vmath"
)

// Tap estimates tempo from discrete tap events. Each tap defines the
// downbeat: phase snaps to zero and the clock auto-starts. The estimate is
// the median of a bounded inter-tap interval history with outliers
// rejected, so a missed or doubled tap does not corrupt the tempo.
type Tap struct {
	mu    sync.Mutex
	clock core.TimeProvider

	bpm     float64
	running bool

	anchor    time.Time // phase zero reference
	lastTap   time.Time
	startedAt time.Time
	intervals []time.Duration

	frozenBeat    float64 // phase held while stopped
	frozenBar     float64
	frozenElapsed time.Duration
}

func NewTap(tp core.TimeProvider) *Tap {
	return &Tap{
		clock: tp,
		bpm:   parameter.DefaultBPM,
	}
}

// Tap records a tap at the provider's current time. A gap longer than the
// reset timeout discards the history so a stale tempo never blends into a
// new one.
func (t *Tap) Tap() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	if !t.lastTap.IsZero() {
		gap := now.Sub(t.lastTap)
		if gap > parameter.TapResetTimeout {
			t.intervals = t.intervals[:0]
		} else {
			t.intervals = append(t.intervals, gap)
			if len(t.intervals) > parameter.TapHistorySize {
				t.intervals = t.intervals[1:]
			}
			t.bpm = estimateBPM(t.intervals)
		}
	}

	t.lastTap = now
	t.anchor = now
	if !t.running {
		t.running = true
		t.startedAt = now.Add(-t.frozenElapsed)
	}
}

// estimateBPM takes the median interval after discarding outliers further
// than TapOutlierSpan medians from the median.
func estimateBPM(intervals []time.Duration) float64 {
	med := median(intervals)
	if med <= 0 {
		return parameter.DefaultBPM
	}

	span := time.Duration(parameter.TapOutlierSpan * float64(med))
	filtered := make([]time.Duration, 0, len(intervals))
	for _, iv := range intervals {
		diff := iv - med
		if diff < 0 {
			diff = -diff
		}
		if diff <= span {
			filtered = append(filtered, iv)
		}
	}
	if len(filtered) > 0 {
		med = median(filtered)
	}

	return vmath.Clamp(60.0/med.Seconds(), parameter.MinBPM, parameter.MaxBPM)
}

func median(intervals []time.Duration) time.Duration {
	if len(intervals) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// SetBPM overrides the tempo directly, preserving the current phase.
func (t *Tap) SetBPM(bpm float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	bpm = vmath.Clamp(bpm, parameter.MinBPM, parameter.MaxBPM)
	if t.running {
		now := t.clock.Now()
		bar := t.barPhaseAt(now)
		t.bpm = bpm
		t.anchor = now.Add(-time.Duration(bar * parameter.BeatsPerBar * float64(parameter.BeatDuration(bpm))))
	} else {
		t.bpm = bpm
	}
	t.intervals = t.intervals[:0]
}

// Nudge shifts the phase anchor by a beat fraction for manual drift
// correction. Positive values push the phase forward.
func (t *Tap) Nudge(beats float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		shift := time.Duration(beats * float64(parameter.BeatDuration(t.bpm)))
		t.anchor = t.anchor.Add(-shift)
	} else {
		t.frozenBeat = vmath.Wrap01(t.frozenBeat + beats)
		t.frozenBar = vmath.Wrap01(t.frozenBar + beats/parameter.BeatsPerBar)
	}
}

// Start resumes from the frozen phase. Running clocks are unaffected.
func (t *Tap) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}
	now := t.clock.Now()
	barSpan := time.Duration(t.frozenBar * parameter.BeatsPerBar * float64(parameter.BeatDuration(t.bpm)))
	t.anchor = now.Add(-barSpan)
	t.startedAt = now.Add(-t.frozenElapsed)
	t.running = true
}

// Stop freezes the phase at its current value. It neither advances nor
// resets to zero.
func (t *Tap) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	now := t.clock.Now()
	t.frozenBeat = t.beatPhaseAt(now)
	t.frozenBar = t.barPhaseAt(now)
	t.frozenElapsed = now.Sub(t.startedAt)
	t.running = false
}

func (t *Tap) beatPhaseAt(now time.Time) float64 {
	beatDur := parameter.BeatDuration(t.bpm)
	if beatDur <= 0 {
		return 0
	}
	return vmath.Wrap01(float64(now.Sub(t.anchor)) / float64(beatDur))
}

func (t *Tap) barPhaseAt(now time.Time) float64 {
	barDur := time.Duration(parameter.BeatsPerBar) * parameter.BeatDuration(t.bpm)
	if barDur <= 0 {
		return 0
	}
	return vmath.Wrap01(float64(now.Sub(t.anchor)) / float64(barDur))
}

func (t *Tap) BPM() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bpm
}

func (t *Tap) BeatPhase() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return t.frozenBeat
	}
	return t.beatPhaseAt(t.clock.Now())
}

func (t *Tap) BarPhase() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return t.frozenBar
	}
	return t.barPhaseAt(t.clock.Now())
}

func (t *Tap) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Tap) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return t.frozenElapsed
	}
	return t.clock.Now().Sub(t.startedAt)
}

// State returns a consistent snapshot under one lock acquisition.
func (t *Tap) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return State{BPM: t.bpm, BeatPhase: t.frozenBeat, BarPhase: t.frozenBar, Elapsed: t.frozenElapsed}
	}
	now := t.clock.Now()
	return State{
		BPM:       t.bpm,
		BeatPhase: t.beatPhaseAt(now),
		BarPhase:  t.barPhaseAt(now),
		Elapsed:   now.Sub(t.startedAt),
	}
}
