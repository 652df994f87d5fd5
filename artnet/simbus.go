package artnet

import (
	"fmt"
	"sync"
	"time"

	"github.com/lixenwraith/helios/parameter"
	"github.com/lixenwraith/helios/vmath"
)

type datagram struct {
	from string
	data []byte
}

// SimBus is an in-memory datagram network for protocol tests. Every
// broadcast fans out to every endpoint except the sender; a sender
// never hears its own traffic. Packet loss is drawn from a single
// seeded generator, so a given seed and operation order reproduce the
// same drops every run.
type SimBus struct {
	mu        sync.Mutex
	endpoints map[string]*SimEndpoint
	rng       *vmath.FastRand
	loss      float64 // bus-wide loss, drawn independently of sender loss
}

// NewSimBus builds an empty bus with a seeded loss generator.
func NewSimBus(seed uint64) *SimBus {
	return &SimBus{
		endpoints: make(map[string]*SimEndpoint),
		rng:       vmath.NewFastRand(seed),
	}
}

// Connect attaches a new endpoint under addr. Reusing a live address is
// a harness bug and panics.
func (b *SimBus) Connect(addr string) *SimEndpoint {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.endpoints[addr]; exists {
		panic(fmt.Sprintf("artnet: sim address %q already connected", addr))
	}
	ep := &SimEndpoint{
		bus:   b,
		addr:  addr,
		queue: make(chan datagram, parameter.SimQueueSize),
		done:  make(chan struct{}),
	}
	b.endpoints[addr] = ep
	return ep
}

// SetLoss sets the bus-wide drop probability applied to every delivery
// on top of any per-sender loss.
func (b *SimBus) SetLoss(p float64) {
	b.mu.Lock()
	b.loss = vmath.Clamp01(p)
	b.mu.Unlock()
}

// Loss returns the bus-wide drop probability.
func (b *SimBus) Loss() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loss
}

// EndpointCount returns the number of connected endpoints.
func (b *SimBus) EndpointCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.endpoints)
}

func (b *SimBus) remove(addr string) {
	b.mu.Lock()
	delete(b.endpoints, addr)
	b.mu.Unlock()
}

// dropLocked draws loss for one delivery. Sender loss and bus loss are
// independent hazards.
func (b *SimBus) dropLocked(senderLoss float64) bool {
	if senderLoss > 0 && b.rng.Float01() < senderLoss {
		return true
	}
	if b.loss > 0 && b.rng.Float01() < b.loss {
		return true
	}
	return false
}

func (b *SimBus) send(from *SimEndpoint, pkt []byte, to string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	target, ok := b.endpoints[to]
	if !ok {
		return nil // unreachable address, datagram evaporates
	}
	if b.dropLocked(from.loss) {
		return nil
	}
	target.enqueue(datagram{from: from.addr, data: append([]byte(nil), pkt...)})
	return nil
}

func (b *SimBus) broadcast(from *SimEndpoint, pkt []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for addr, target := range b.endpoints {
		if addr == from.addr {
			continue
		}
		if b.dropLocked(from.loss) {
			continue
		}
		target.enqueue(datagram{from: from.addr, data: append([]byte(nil), pkt...)})
	}
	return nil
}

// SimEndpoint is one transport attached to a SimBus.
type SimEndpoint struct {
	bus       *SimBus
	addr      string
	loss      float64 // guarded by bus.mu
	queue     chan datagram
	done      chan struct{}
	closeOnce sync.Once
}

// SetLoss sets this endpoint's send-loss probability. Each delivery
// (each receiver of a broadcast) draws independently.
func (e *SimEndpoint) SetLoss(p float64) {
	e.bus.mu.Lock()
	e.loss = vmath.Clamp01(p)
	e.bus.mu.Unlock()
}

func (e *SimEndpoint) Send(pkt []byte, addr string) error {
	if e.isClosed() {
		return ErrClosed
	}
	return e.bus.send(e, pkt, addr)
}

func (e *SimEndpoint) Broadcast(pkt []byte) error {
	if e.isClosed() {
		return ErrClosed
	}
	return e.bus.broadcast(e, pkt)
}

func (e *SimEndpoint) Receive(buf []byte, timeout time.Duration) (int, string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case d := <-e.queue:
		return copy(buf, d.data), d.from, nil
	case <-timer.C:
		return 0, "", ErrNoData
	case <-e.done:
		return 0, "", ErrClosed
	}
}

func (e *SimEndpoint) LocalAddr() string {
	return e.addr
}

func (e *SimEndpoint) Close() error {
	e.closeOnce.Do(func() {
		e.bus.remove(e.addr)
		close(e.done)
	})
	return nil
}

func (e *SimEndpoint) isClosed() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// enqueue drops on a full queue, mirroring a saturated socket buffer.
func (e *SimEndpoint) enqueue(d datagram) {
	select {
	case e.queue <- d:
	default:
	}
}
