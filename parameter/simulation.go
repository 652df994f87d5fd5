package parameter

import (
	"time"
)

// Simulated bus defaults
const (
	SimQueueSize = 256 // datagrams buffered per endpoint before tail drop
)

// Fault profile timing
const (
	FlakyBurstMin     = 500 * time.Millisecond
	FlakyBurstMax     = 3 * time.Second
	FlakyCalmMin      = 2 * time.Second
	FlakyCalmMax      = 8 * time.Second
	FlakyBurstLoss    = 0.4
	FlakyBurstLatency = 120 * time.Millisecond

	PartialDarkMin     = 2 * time.Second
	PartialDarkMax     = 10 * time.Second
	PartialRecoverProb = 0.8

	OverloadLatency       = 80 * time.Millisecond
	OverloadLatencyJitter = 40 * time.Millisecond
)
