package beat

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/helios/core"
	"github.com/lixenwraith/helios/parameter"
	"github.com/lixenwraith/helios/vmath"
)

// Session is the external tempo source the sync clock wraps. The session
// owns peer negotiation; the wrapper only polls, clamps, and tracks link
// health. Implementations: midisync.Clock, test fakes.
type Session interface {
	BPM() float64
	BeatPhase() float64
	BarPhase() float64
	PeerCount() int
	SetEnabled(enabled bool)
}

// SyncState is the link-health state of the sync clock.
type SyncState uint8

const (
	SyncDisabled SyncState = iota
	SyncSearching
	SyncConnected
	SyncNoLink
)

func (s SyncState) String() string {
	switch s {
	case SyncDisabled:
		return "disabled"
	case SyncSearching:
		return "searching"
	case SyncConnected:
		return "connected"
	case SyncNoLink:
		return "no-link"
	default:
		return "unknown"
	}
}

// Sync adapts an external session to the Clock interface. Each poll reads
// the session's raw values, clamps them into range, publishes an atomic
// snapshot for the render tick, and advances the link state machine:
//
//	DISABLED -Start-> SEARCHING -peer-> CONNECTED
//	CONNECTED -peers drop to 0-> SEARCHING
//	SEARCHING -timeout, no peer ever seen-> NO_LINK
//	NO_LINK -peer appears-> CONNECTED (directly, no search pass)
type Sync struct {
	clock   core.TimeProvider
	session Session

	running  atomic.Bool
	snapshot atomic.Pointer[State]

	mu           sync.Mutex
	state        SyncState
	startedAt    time.Time
	lastPeerAt   time.Time
	everSeenPeer bool
	reportedBPM  float64

	// OnStateChange, when set before Start, observes link transitions.
	// Invoked outside internal locks.
	OnStateChange func(from, to SyncState)

	// OnTempoChange, when set before Start, observes bpm moves past the
	// deadband. Smoothed sources drift every poll; the deadband keeps the
	// callback to musically meaningful changes.
	OnTempoChange func(bpm float64)

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewSync(tp core.TimeProvider, session Session) *Sync {
	s := &Sync{
		clock:       tp,
		session:     session,
		state:       SyncDisabled,
		reportedBPM: parameter.DefaultBPM,
	}
	s.snapshot.Store(&State{BPM: parameter.DefaultBPM})
	return s
}

// Start enables the session and begins polling. Idempotent.
func (s *Sync) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}

	s.mu.Lock()
	s.startedAt = s.clock.Now()
	s.everSeenPeer = false
	change := s.transitionLocked(SyncSearching)
	s.mu.Unlock()
	s.emit(change)

	s.session.SetEnabled(true)
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	core.Go(s.pollLoop)
}

// Stop disables the session and returns to DISABLED. Synchronous: when it
// returns, the poll goroutine has exited. Idempotent.
func (s *Sync) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}

	close(s.stopCh)
	s.wg.Wait()
	s.session.SetEnabled(false)

	s.mu.Lock()
	change := s.transitionLocked(SyncDisabled)
	s.mu.Unlock()
	s.emit(change)
}

func (s *Sync) pollLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(parameter.SyncPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Poll(s.clock.Now())
		}
	}
}

// Poll performs one sample of the session. Exposed so tests drive the
// state machine deterministically without the ticker goroutine.
func (s *Sync) Poll(now time.Time) {
	bpm := vmath.Clamp(s.session.BPM(), parameter.MinBPM, parameter.MaxBPM)
	beatPhase := vmath.Wrap01(s.session.BeatPhase())
	barPhase := vmath.Wrap01(s.session.BarPhase())
	peers := s.session.PeerCount()

	s.mu.Lock()
	elapsed := now.Sub(s.startedAt)
	var change [2]SyncState
	if peers > 0 {
		s.everSeenPeer = true
		s.lastPeerAt = now
		if s.state == SyncSearching || s.state == SyncNoLink {
			change = s.transitionLocked(SyncConnected)
		}
	} else {
		switch s.state {
		case SyncConnected:
			change = s.transitionLocked(SyncSearching)
		case SyncSearching:
			// Timeout counts from the last peer sighting, or from Start
			// when no peer was ever seen.
			since := s.startedAt
			if s.everSeenPeer {
				since = s.lastPeerAt
			}
			if now.Sub(since) >= parameter.SyncSearchTimeout {
				change = s.transitionLocked(SyncNoLink)
			}
		}
	}
	tempoMoved := false
	if diff := bpm - s.reportedBPM; diff >= parameter.SyncTempoDeadband || -diff >= parameter.SyncTempoDeadband {
		s.reportedBPM = bpm
		tempoMoved = true
	}
	s.mu.Unlock()
	s.emit(change)

	s.snapshot.Store(&State{
		BPM:       bpm,
		BeatPhase: beatPhase,
		BarPhase:  barPhase,
		Elapsed:   elapsed,
	})

	if tempoMoved {
		if cb := s.OnTempoChange; cb != nil {
			cb(bpm)
		}
	}
}

// transitionLocked requires s.mu held. Returns the transition pair, or the
// zero pair when no change happened.
func (s *Sync) transitionLocked(to SyncState) [2]SyncState {
	if s.state == to {
		return [2]SyncState{}
	}
	from := s.state
	s.state = to
	return [2]SyncState{from, to}
}

func (s *Sync) emit(change [2]SyncState) {
	if change[0] == change[1] {
		return
	}
	if cb := s.OnStateChange; cb != nil {
		cb(change[0], change[1])
	}
}

// LinkState returns the current link-health state.
func (s *Sync) LinkState() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sync) BPM() float64 {
	return s.snapshot.Load().BPM
}

func (s *Sync) BeatPhase() float64 {
	return s.snapshot.Load().BeatPhase
}

func (s *Sync) BarPhase() float64 {
	return s.snapshot.Load().BarPhase
}

func (s *Sync) IsRunning() bool {
	return s.running.Load()
}

func (s *Sync) Elapsed() time.Duration {
	return s.snapshot.Load().Elapsed
}

func (s *Sync) State() State {
	return *s.snapshot.Load()
}
