package render

import (
	"time"

	"github.com/lixenwraith/helios/beat"
	"github.com/lixenwraith/helios/fixture"
)

// Frame is one evaluated tick: per-fixture outputs aligned to the patch
// the engine rendered against. Carrying the patch pointer keeps a frame
// and its layout inseparable across the buffer handoff, so a patch swap
// mid-stream can never mis-index a stale frame.
type Frame struct {
	Number  uint64
	Time    time.Duration // engine clock at evaluation
	Beat    beat.State
	Patch   *fixture.Patch
	Outputs []fixture.Output
}

// newFrameBuffer allocates a triple buffer whose slots are sized for
// the given patch. Slots are reused in place; a patch change allocates
// a whole new buffer instead of resizing.
func newFrameBuffer(p *fixture.Patch) *TripleBuffer[*Frame] {
	return NewTripleBuffer(func() *Frame {
		return &Frame{
			Patch:   p,
			Outputs: make([]fixture.Output, p.Count()),
		}
	})
}
