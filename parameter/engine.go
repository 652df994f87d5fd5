package parameter

import (
	"time"
)

// Render cadence
const (
	DefaultTickRate  = 40 // Hz, DMX refresh ceiling is 44 Hz for full universes
	MinTickRate      = 1
	MaxTickRate      = 120
	TickMaxBehind    = 2 // ticks of accumulated lag before the scheduler resets its deadline
	DefaultMaster    = 1.0
	DefaultTempoMult = 1.0
)

// Fixture limits
const (
	MaxFixtures       = 4096
	MaxChannelsPerFix = 32
)

// TickInterval converts a rate in Hz to the tick period.
func TickInterval(hz int) time.Duration {
	if hz <= 0 {
		hz = DefaultTickRate
	}
	return time.Second / time.Duration(hz)
}
