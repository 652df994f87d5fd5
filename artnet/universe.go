// Package artnet implements the lighting wire layer: the binary packet
// codec, a broadcast UDP transport, node discovery and health tracking,
// the frame streamer, and an in-memory simulated network with fault
// injection for protocol tests without hardware.
package artnet

import (
	"fmt"

	"github.com/lixenwraith/helios/parameter"
)

// Universe is exactly 512 channel bytes. The size is fixed by the type;
// channel indexes are 0-based and out-of-range access panics, since a
// bad index is a caller bug rather than a runtime condition.
type Universe struct {
	data [parameter.UniverseSize]byte
}

// NewUniverse returns a zeroed universe.
func NewUniverse() *Universe {
	return &Universe{}
}

// At returns the value of channel ch (0-based).
func (u *Universe) At(ch int) byte {
	u.check(ch)
	return u.data[ch]
}

// Set stores v into channel ch (0-based).
func (u *Universe) Set(ch int, v byte) {
	u.check(ch)
	u.data[ch] = v
}

func (u *Universe) check(ch int) {
	if ch < 0 || ch >= parameter.UniverseSize {
		panic(fmt.Sprintf("artnet: channel %d out of range 0..%d", ch, parameter.UniverseSize-1))
	}
}

// Bytes returns the backing channel slice. Mutations write through.
func (u *Universe) Bytes() []byte {
	return u.data[:]
}

// CopyFrom overwrites the first len(p) channels with p and zeroes the
// rest. Payloads longer than 512 bytes are a caller bug and panic.
func (u *Universe) CopyFrom(p []byte) {
	if len(p) > parameter.UniverseSize {
		panic(fmt.Sprintf("artnet: payload of %d bytes exceeds universe size", len(p)))
	}
	n := copy(u.data[:], p)
	for i := n; i < parameter.UniverseSize; i++ {
		u.data[i] = 0
	}
}

// Clone returns an independent copy.
func (u *Universe) Clone() *Universe {
	c := &Universe{}
	c.data = u.data
	return c
}
