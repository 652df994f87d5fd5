package artnet

import (
	"bytes"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/helios/core"
	"github.com/lixenwraith/helios/fixture"
	"github.com/lixenwraith/helios/render"
	"github.com/lixenwraith/helios/status"
)

// FrameSource is the render side of the handoff. The engine satisfies
// it; tests satisfy it with a bare buffer.
type FrameSource interface {
	Buffer() *render.TripleBuffer[*render.Frame]
	TickInterval() time.Duration
}

// StreamerOptions carries the streamer's ambient wiring. Discovery is
// optional and only consulted for unicast sends.
type StreamerOptions struct {
	TimeProvider core.TimeProvider
	Status       *status.Registry
	Discovery    *Discovery
}

// Streamer drains the frame buffer and turns frames into data packets:
// one per universe, numbered per-universe, sent on change or on the
// keep-alive period. Network sends block the streamer only, never the
// render tick.
type Streamer struct {
	source    FrameSource
	transport Transport
	discovery *Discovery
	cfg       *Config
	tp        core.TimeProvider

	activePatch *fixture.Patch
	packed      map[int][]byte
	lastData    map[int][]byte
	lastSent    map[int]time.Time
	seq         map[int]byte

	statPackets *atomic.Int64
	statFrames  *atomic.Int64
	statSyncs   *atomic.Int64

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool
}

// NewStreamer wires a streamer between a frame source and a transport.
// A nil config uses defaults.
func NewStreamer(source FrameSource, transport Transport, cfg *Config, opts StreamerOptions) *Streamer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if opts.TimeProvider == nil {
		opts.TimeProvider = core.NewMonotonicTimeProvider()
	}
	if opts.Status == nil {
		opts.Status = status.NewRegistry()
	}

	return &Streamer{
		source:      source,
		transport:   transport,
		discovery:   opts.Discovery,
		cfg:         cfg,
		tp:          opts.TimeProvider,
		packed:      make(map[int][]byte),
		lastData:    make(map[int][]byte),
		lastSent:    make(map[int]time.Time),
		seq:         make(map[int]byte),
		statPackets: opts.Status.Ints.Get("artnet.packets_sent"),
		statFrames:  opts.Status.Ints.Get("artnet.frames_streamed"),
		statSyncs:   opts.Status.Ints.Get("artnet.syncs_sent"),
		stopChan:    make(chan struct{}),
	}
}

// Start launches the drain loop.
func (s *Streamer) Start() {
	if s.running.CompareAndSwap(false, true) {
		s.wg.Add(1)
		core.Go(s.loop)
	}
}

// Stop halts the drain loop. No packet leaves after Stop returns.
func (s *Streamer) Stop() {
	s.stopOnce.Do(func() {
		if s.running.CompareAndSwap(true, false) {
			close(s.stopChan)
			s.wg.Wait()
		}
	})
}

func (s *Streamer) loop() {
	defer s.wg.Done()

	poll := s.source.TickInterval() / 2
	if poll <= 0 {
		poll = 5 * time.Millisecond
	}

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
		case <-s.stopChan:
			return
		default:
		}

		buf := s.source.Buffer()
		now := s.tp.Now()
		if buf.TrySwapRead() {
			s.streamFrame(buf.ReadSlot(), now)
		} else {
			s.keepAlive(now)
		}

		timer.Reset(poll)
		select {
		case <-timer.C:
		case <-s.stopChan:
			return
		}
	}
}

// streamFrame packs one frame into its universes and sends whichever
// changed or ran past the keep-alive period.
func (s *Streamer) streamFrame(frame *render.Frame, now time.Time) {
	patch := frame.Patch
	if patch == nil || patch.Count() == 0 {
		return
	}
	if patch != s.activePatch {
		s.adoptPatch(patch)
	}

	patch.Pack(frame.Outputs, s.packed)

	sent := false
	for _, u := range patch.Universes() {
		data := s.packed[u]
		if s.dueToSend(u, data, now) {
			s.sendUniverse(u, data, now)
			sent = true
		}
	}
	if sent && s.cfg.UseSync {
		if err := s.transport.Broadcast((&Sync{}).Marshal()); err == nil {
			s.statSyncs.Add(1)
		}
	}
	s.statFrames.Add(1)
}

// keepAlive resends unchanged universes whose silence would outlast the
// keep-alive period, so hold-last-value receivers never time out.
func (s *Streamer) keepAlive(now time.Time) {
	if s.activePatch == nil {
		return
	}
	for _, u := range s.activePatch.Universes() {
		data, ok := s.lastData[u]
		if ok && now.Sub(s.lastSent[u]) >= s.cfg.KeepAlive {
			s.sendUniverse(u, data, now)
		}
	}
}

// adoptPatch drops per-universe state for universes the new patch no
// longer touches.
func (s *Streamer) adoptPatch(patch *fixture.Patch) {
	s.activePatch = patch
	active := make(map[int]struct{}, len(patch.Universes()))
	for _, u := range patch.Universes() {
		active[u] = struct{}{}
	}
	for u := range s.lastData {
		if _, ok := active[u]; !ok {
			delete(s.packed, u)
			delete(s.lastData, u)
			delete(s.lastSent, u)
			delete(s.seq, u)
		}
	}
}

func (s *Streamer) dueToSend(u int, data []byte, now time.Time) bool {
	prev, ok := s.lastData[u]
	if !ok || !bytes.Equal(prev, data) {
		return true
	}
	return now.Sub(s.lastSent[u]) >= s.cfg.KeepAlive
}

func (s *Streamer) sendUniverse(u int, data []byte, now time.Time) {
	var seq byte
	if s.cfg.SequenceEnabled {
		seq = s.nextSeq(u)
	}
	pkt := (&Dmx{Sequence: seq, Universe: u, Data: data}).Marshal()

	delivered := false
	if s.cfg.Unicast && s.discovery != nil {
		for _, n := range s.discovery.OwnersOf(u) {
			if err := s.transport.Send(pkt, n.Addr); err == nil {
				delivered = true
			}
		}
	}
	if !delivered {
		if err := s.transport.Broadcast(pkt); err != nil {
			return
		}
	}

	prev, ok := s.lastData[u]
	if !ok {
		prev = make([]byte, len(data))
		s.lastData[u] = prev
	}
	copy(prev, data)
	s.lastSent[u] = now
	s.statPackets.Add(1)
}

// nextSeq advances a universe's wrapping 1..255 counter. Zero is
// reserved for "sequence disabled" and is skipped on wrap.
func (s *Streamer) nextSeq(u int) byte {
	n := s.seq[u] + 1
	if n == 0 {
		n = 1
	}
	s.seq[u] = n
	return n
}

// PacketsSent returns the number of data packets transmitted.
func (s *Streamer) PacketsSent() int64 { return s.statPackets.Load() }

// FramesStreamed returns the number of frames drained from the buffer.
func (s *Streamer) FramesStreamed() int64 { return s.statFrames.Load() }
