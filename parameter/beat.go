package parameter

import (
	"time"
)

// Tempo and timing
const (
	DefaultBPM  = 120.0
	MinBPM      = 20.0 // slow ballad floor, also sanity clamp for sync sources
	MaxBPM      = 300.0
	BeatsPerBar = 4 // 4/4 time
)

// Tap estimator
const (
	TapHistorySize  = 8 // inter-tap intervals kept for the median
	TapResetTimeout = 3 * time.Second
	TapOutlierSpan  = 2.0 // intervals further than span*median from the median are discarded
)

// External sync wrapper
const (
	SyncPollInterval  = 100 * time.Millisecond
	SyncSearchTimeout = 10 * time.Second // SEARCHING with zero peers ever seen -> NO_LINK
	SyncTempoDeadband = 1.0              // bpm moves smaller than this are not reported
)

// MIDI clock
const (
	MidiTicksPerBeat = 24 // real-time clock pulses per quarter note
	MidiClockTimeout = 2 * time.Second
	MidiBPMSmoothing = 0.2 // EMA weight for new tick intervals
)

// BeatDuration converts a tempo to the length of one beat.
func BeatDuration(bpm float64) time.Duration {
	if bpm <= 0 {
		return 0
	}
	return time.Duration(float64(time.Minute) / bpm)
}
