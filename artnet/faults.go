package artnet

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/helios/core"
	"github.com/lixenwraith/helios/parameter"
	"github.com/lixenwraith/helios/vmath"
)

// FaultProfile perturbs a simulated rig on its own schedule. Stop is
// exact cancellation: once it returns, no further perturbation fires
// and the rig is restored to health, even if a timer was already armed.
// Profiles are single-use; build a fresh one to run again.
type FaultProfile interface {
	Start()
	Stop()
	Name() string
}

// FaultTiming bounds the random intervals a profile draws. Tests
// compress these to milliseconds.
type FaultTiming struct {
	CalmMin, CalmMax   time.Duration // quiet stretch between flaky bursts
	BurstMin, BurstMax time.Duration // length of one flaky burst
	DarkMin, DarkMax   time.Duration // outage length for partial failure
	Reassess           time.Duration // overload jitter re-roll period
}

// DefaultFaultTiming returns the stock schedule.
func DefaultFaultTiming() *FaultTiming {
	return &FaultTiming{
		CalmMin:  parameter.FlakyCalmMin,
		CalmMax:  parameter.FlakyCalmMax,
		BurstMin: parameter.FlakyBurstMin,
		BurstMax: parameter.FlakyBurstMax,
		DarkMin:  parameter.PartialDarkMin,
		DarkMax:  parameter.PartialDarkMax,
		Reassess: time.Second,
	}
}

// faultRunner is the shared lifecycle for timer-driven profiles. The
// loop goroutine is the only place effects are applied, so waiting for
// it guarantees nothing fires after Stop.
type faultRunner struct {
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool
}

func newFaultRunner() faultRunner {
	return faultRunner{stopChan: make(chan struct{})}
}

func (r *faultRunner) start(loop func()) {
	if r.running.CompareAndSwap(false, true) {
		r.wg.Add(1)
		core.Go(loop)
	}
}

func (r *faultRunner) stop() {
	r.stopOnce.Do(func() {
		if r.running.CompareAndSwap(true, false) {
			close(r.stopChan)
			r.wg.Wait()
		}
	})
}

// sleep waits for d or until stop. It reports false when stopping.
func (r *faultRunner) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.stopChan:
		return false
	}
}

// StableProfile generates no events. It exists so a harness can treat
// "no faults" uniformly with the real profiles.
type StableProfile struct{}

func (StableProfile) Start()       {}
func (StableProfile) Stop()        {}
func (StableProfile) Name() string { return "stable" }

// FlakyProfile alternates calm stretches with short bursts of either
// packet loss on the bus or reply latency on every node. Burst choice,
// timing, and magnitude all come from the seeded generator.
type FlakyProfile struct {
	faultRunner
	bus    *SimBus
	nodes  []*SimNode
	rng    *vmath.FastRand
	timing *FaultTiming
}

func NewFlakyProfile(bus *SimBus, nodes []*SimNode, seed uint64, timing *FaultTiming) *FlakyProfile {
	if timing == nil {
		timing = DefaultFaultTiming()
	}
	return &FlakyProfile{
		faultRunner: newFaultRunner(),
		bus:         bus,
		nodes:       nodes,
		rng:         vmath.NewFastRand(seed),
		timing:      timing,
	}
}

func (f *FlakyProfile) Name() string { return "flaky" }

func (f *FlakyProfile) Start() { f.start(f.loop) }

func (f *FlakyProfile) Stop() { f.stop() }

func (f *FlakyProfile) loop() {
	defer f.wg.Done()
	defer f.clear()

	for {
		if !f.sleep(randDuration(f.rng, f.timing.CalmMin, f.timing.CalmMax)) {
			return
		}

		if f.rng.Float01() < 0.5 {
			f.bus.SetLoss(parameter.FlakyBurstLoss * (0.5 + f.rng.Float01()))
		} else {
			spike := time.Duration(float64(parameter.FlakyBurstLatency) * (0.5 + f.rng.Float01()))
			for _, n := range f.nodes {
				n.SetReplyDelay(spike)
			}
		}

		if !f.sleep(randDuration(f.rng, f.timing.BurstMin, f.timing.BurstMax)) {
			return
		}
		f.clear()
	}
}

func (f *FlakyProfile) clear() {
	f.bus.SetLoss(0)
	for _, n := range f.nodes {
		n.SetReplyDelay(0)
	}
}

// PartialFailureProfile darkens one randomly chosen node for a random
// interval. Most outages recover; some nodes stay dark until the next
// cycle picks a different victim.
type PartialFailureProfile struct {
	faultRunner
	nodes  []*SimNode
	rng    *vmath.FastRand
	timing *FaultTiming
}

func NewPartialFailureProfile(nodes []*SimNode, seed uint64, timing *FaultTiming) *PartialFailureProfile {
	if timing == nil {
		timing = DefaultFaultTiming()
	}
	return &PartialFailureProfile{
		faultRunner: newFaultRunner(),
		nodes:       nodes,
		rng:         vmath.NewFastRand(seed),
		timing:      timing,
	}
}

func (p *PartialFailureProfile) Name() string { return "partial-failure" }

func (p *PartialFailureProfile) Start() { p.start(p.loop) }

func (p *PartialFailureProfile) Stop() { p.stop() }

func (p *PartialFailureProfile) loop() {
	defer p.wg.Done()
	defer p.restoreAll()

	if len(p.nodes) == 0 {
		<-p.stopChan
		return
	}

	for {
		if !p.sleep(randDuration(p.rng, p.timing.DarkMin/2, p.timing.DarkMax/2)) {
			return
		}

		victim := p.nodes[p.rng.Intn(len(p.nodes))]
		victim.SetDark(true)

		if !p.sleep(randDuration(p.rng, p.timing.DarkMin, p.timing.DarkMax)) {
			return
		}
		if p.rng.Float01() < parameter.PartialRecoverProb {
			victim.SetDark(false)
		}
	}
}

func (p *PartialFailureProfile) restoreAll() {
	for _, n := range p.nodes {
		n.SetDark(false)
	}
}

// OverloadedProfile holds every node at elevated reply latency with a
// periodically re-rolled jitter, emulating a saturated rig.
type OverloadedProfile struct {
	faultRunner
	nodes  []*SimNode
	rng    *vmath.FastRand
	timing *FaultTiming
}

func NewOverloadedProfile(nodes []*SimNode, seed uint64, timing *FaultTiming) *OverloadedProfile {
	if timing == nil {
		timing = DefaultFaultTiming()
	}
	return &OverloadedProfile{
		faultRunner: newFaultRunner(),
		nodes:       nodes,
		rng:         vmath.NewFastRand(seed),
		timing:      timing,
	}
}

func (o *OverloadedProfile) Name() string { return "overloaded" }

func (o *OverloadedProfile) Start() { o.start(o.loop) }

func (o *OverloadedProfile) Stop() { o.stop() }

func (o *OverloadedProfile) loop() {
	defer o.wg.Done()
	defer func() {
		for _, n := range o.nodes {
			n.SetReplyDelay(0)
		}
	}()

	for {
		for _, n := range o.nodes {
			jitter := time.Duration(o.rng.Float01() * float64(parameter.OverloadLatencyJitter))
			n.SetReplyDelay(parameter.OverloadLatency + jitter)
		}
		if !o.sleep(o.timing.Reassess) {
			return
		}
	}
}

func randDuration(rng *vmath.FastRand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rng.Float01()*float64(hi-lo))
}
