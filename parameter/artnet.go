package parameter

import (
	"time"
)

// Wire protocol
const (
	ArtNetPort     = 6454
	ProtocolVer    = 14
	UniverseSize   = 512
	ShortNameMax   = 17 // excludes the terminating null
	LongNameMax    = 63
	PollReplySize  = 239
	MaxDmxSequence = 255 // wraps to 1; 0 disables sequence tracking
)

// Discovery
const (
	PollInterval   = 3 * time.Second
	NodeTimeout    = 10 * time.Second
	SweepInterval  = time.Second
	ReceiveTimeout = 250 * time.Millisecond
)

// Streamer
const (
	KeepAliveInterval = 800 * time.Millisecond // resend unchanged universes under this period
)
