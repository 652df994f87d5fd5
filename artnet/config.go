package artnet

import (
	"time"

	"github.com/lixenwraith/helios/parameter"
)

// Config holds wire-layer configuration shared by discovery and the
// streamer.
type Config struct {
	// BindAddress is the local UDP listen address.
	BindAddress string

	// BroadcastAddress receives polls and broadcast data frames.
	BroadcastAddress string

	// Poll cadence, node expiry, and the expiry scan period.
	PollInterval  time.Duration
	NodeTimeout   time.Duration
	SweepInterval time.Duration

	// ReceiveTimeout paces the receive loops; it bounds how long Stop
	// can take.
	ReceiveTimeout time.Duration

	// KeepAlive forces retransmission of unchanged universes under this
	// period so receivers holding last-value do not fade to timeout.
	KeepAlive time.Duration

	// UseSync trails each frame's universes with a sync packet so
	// receivers latch them together.
	UseSync bool

	// SequenceEnabled numbers data packets 1..255 per universe. When
	// false the sequence field is 0, which disables reordering checks
	// at receivers.
	SequenceEnabled bool

	// Unicast sends universe data directly to discovered owners instead
	// of broadcasting, falling back to broadcast for orphan universes.
	Unicast bool
}

// DefaultConfig returns production-safe defaults.
func DefaultConfig() *Config {
	return &Config{
		BindAddress:      ":6454",
		BroadcastAddress: "255.255.255.255:6454",
		PollInterval:     parameter.PollInterval,
		NodeTimeout:      parameter.NodeTimeout,
		SweepInterval:    parameter.SweepInterval,
		ReceiveTimeout:   parameter.ReceiveTimeout,
		KeepAlive:        parameter.KeepAliveInterval,
		UseSync:          false,
		SequenceEnabled:  true,
		Unicast:          false,
	}
}

// SimConfig returns timings tightened for in-memory bus tests.
func SimConfig() *Config {
	cfg := DefaultConfig()
	cfg.PollInterval = 50 * time.Millisecond
	cfg.NodeTimeout = 250 * time.Millisecond
	cfg.SweepInterval = 20 * time.Millisecond
	cfg.ReceiveTimeout = 5 * time.Millisecond
	cfg.KeepAlive = 100 * time.Millisecond
	return cfg
}
