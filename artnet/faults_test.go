package artnet

import (
	"testing"
	"time"

	"github.com/lixenwraith/helios/parameter"
	"github.com/lixenwraith/helios/vmath"
)

func fastFaultTiming() *FaultTiming {
	return &FaultTiming{
		CalmMin:  time.Millisecond,
		CalmMax:  2 * time.Millisecond,
		BurstMin: 20 * time.Millisecond,
		BurstMax: 30 * time.Millisecond,
		DarkMin:  20 * time.Millisecond,
		DarkMax:  30 * time.Millisecond,
		Reassess: 5 * time.Millisecond,
	}
}

func faultRig(n int) (*SimBus, []*SimNode) {
	bus := NewSimBus(11)
	nodes := make([]*SimNode, n)
	for i := range nodes {
		nodes[i] = NewSimNode(bus.Connect(string(rune('a'+i))), SimNodeConfig{
			ShortName: string(rune('a' + i)),
			Universes: []int{i},
		})
	}
	return bus, nodes
}

func TestStableProfileIsInert(t *testing.T) {
	var p StableProfile
	p.Start()
	p.Stop()
	p.Start()
	if p.Name() != "stable" {
		t.Errorf("name %q", p.Name())
	}
}

// TestFlakyProfileBurstsAndStops waits for a burst to land, stops the
// profile, and checks the rig is healthy and stays healthy.
func TestFlakyProfileBurstsAndStops(t *testing.T) {
	bus, nodes := faultRig(2)
	p := NewFlakyProfile(bus, nodes, 3, fastFaultTiming())
	if p.Name() != "flaky" {
		t.Errorf("name %q", p.Name())
	}

	perturbed := func() bool {
		if bus.Loss() > 0 {
			return true
		}
		for _, n := range nodes {
			if n.ReplyDelay() > 0 {
				return true
			}
		}
		return false
	}

	p.Start()
	waitFor(t, 3*time.Second, perturbed)
	p.Stop()
	p.Stop()

	if perturbed() {
		t.Fatal("rig still perturbed after stop")
	}
	time.Sleep(100 * time.Millisecond)
	if perturbed() {
		t.Fatal("perturbation fired after stop returned")
	}
}

// TestPartialFailureDarkensAndStopRestores waits for an outage, then
// verifies stop brings every node back.
func TestPartialFailureDarkensAndStopRestores(t *testing.T) {
	_, nodes := faultRig(3)
	p := NewPartialFailureProfile(nodes, 5, fastFaultTiming())

	countDark := func() int {
		dark := 0
		for _, n := range nodes {
			if n.IsDark() {
				dark++
			}
		}
		return dark
	}

	p.Start()
	waitFor(t, 3*time.Second, func() bool { return countDark() >= 1 })
	p.Stop()

	if countDark() != 0 {
		t.Fatal("nodes left dark after stop")
	}
	time.Sleep(100 * time.Millisecond)
	if countDark() != 0 {
		t.Fatal("outage fired after stop returned")
	}
}

// TestPartialFailureEmptyRig verifies the profile idles without nodes
// and still stops cleanly.
func TestPartialFailureEmptyRig(t *testing.T) {
	p := NewPartialFailureProfile(nil, 5, fastFaultTiming())
	p.Start()
	time.Sleep(10 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop hung on an empty rig")
	}
}

// TestOverloadedProfileElevatesEveryNode verifies all nodes sit at or
// above the base latency while running and return to zero on stop.
func TestOverloadedProfileElevatesEveryNode(t *testing.T) {
	_, nodes := faultRig(3)
	p := NewOverloadedProfile(nodes, 9, fastFaultTiming())

	allElevated := func() bool {
		for _, n := range nodes {
			if n.ReplyDelay() < parameter.OverloadLatency {
				return false
			}
		}
		return true
	}

	p.Start()
	waitFor(t, 3*time.Second, allElevated)
	for _, n := range nodes {
		if d := n.ReplyDelay(); d > parameter.OverloadLatency+parameter.OverloadLatencyJitter {
			t.Errorf("delay %v above jitter ceiling", d)
		}
	}
	p.Stop()

	for _, n := range nodes {
		if n.ReplyDelay() != 0 {
			t.Fatal("latency left applied after stop")
		}
	}
}

func TestRandDurationBounds(t *testing.T) {
	rng := vmath.NewFastRand(42)
	for i := 0; i < 100; i++ {
		d := randDuration(rng, 10*time.Millisecond, 20*time.Millisecond)
		if d < 10*time.Millisecond || d >= 20*time.Millisecond {
			t.Fatalf("draw %v outside [10ms, 20ms)", d)
		}
	}
	if d := randDuration(rng, 5*time.Millisecond, 5*time.Millisecond); d != 5*time.Millisecond {
		t.Errorf("degenerate range drew %v", d)
	}
}
