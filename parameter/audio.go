package parameter

import (
	"time"
)

// Metronome output
const (
	AudioSampleRate   = 44100
	AudioBufferLen    = 100 * time.Millisecond
	ClickFrequency    = 880.0  // A5, off-beat click
	AccentFrequency   = 1760.0 // A6, bar downbeat
	ClickDuration     = 30 * time.Millisecond
	ClickVolume       = 0.6
	MetronomePollRate = 4 * time.Millisecond // phase-edge detection granularity
)
