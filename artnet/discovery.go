package artnet

import (
	"errors"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/helios/core"
	"github.com/lixenwraith/helios/event"
	"github.com/lixenwraith/helios/status"
)

// Node is one observed device. Identity keys on MAC, falling back to IP
// for devices that report none. Multi-port devices answer with one
// reply per port; their universes merge into a single record.
type Node struct {
	Key       string
	Addr      string // transport source address, for unicast sends
	IP        net.IP
	Mac       net.HardwareAddr
	ShortName string
	LongName  string
	Firmware  uint16
	Universes []int
	FirstSeen time.Time
	LastSeen  time.Time
	Latency   time.Duration
}

// Alive reports whether the node answered within the timeout window.
func (n Node) Alive(now time.Time, timeout time.Duration) bool {
	return now.Sub(n.LastSeen) < timeout
}

// Owns reports whether the node outputs universe u.
func (n Node) Owns(u int) bool {
	for _, owned := range n.Universes {
		if owned == u {
			return true
		}
	}
	return false
}

// DiscoveryOptions carries the ambient wiring for a Discovery.
type DiscoveryOptions struct {
	TimeProvider core.TimeProvider
	Status       *status.Registry
	Events       *event.Queue
}

// Discovery broadcasts polls on an interval, tracks every replying
// node, and expires records that fall silent past the timeout. Expiry
// deletes the record; a node that answers again later is a fresh
// arrival.
type Discovery struct {
	transport Transport
	cfg       *Config
	tp        core.TimeProvider
	events    *event.Queue

	mu         sync.RWMutex
	nodes      map[string]*Node
	lastPollAt time.Time

	statNodes   *atomic.Int64
	statReplies *atomic.Int64
	statPolls   *atomic.Int64

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool
}

// NewDiscovery wires a controller over the transport. A nil config uses
// defaults.
func NewDiscovery(transport Transport, cfg *Config, opts DiscoveryOptions) *Discovery {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if opts.TimeProvider == nil {
		opts.TimeProvider = core.NewMonotonicTimeProvider()
	}
	if opts.Status == nil {
		opts.Status = status.NewRegistry()
	}

	return &Discovery{
		transport:   transport,
		cfg:         cfg,
		tp:          opts.TimeProvider,
		events:      opts.Events,
		nodes:       make(map[string]*Node),
		statNodes:   opts.Status.Ints.Get("artnet.nodes.alive"),
		statReplies: opts.Status.Ints.Get("artnet.replies"),
		statPolls:   opts.Status.Ints.Get("artnet.polls"),
		stopChan:    make(chan struct{}),
	}
}

// Start launches the poll/receive/sweep loop.
func (d *Discovery) Start() {
	if d.running.CompareAndSwap(false, true) {
		d.wg.Add(1)
		core.Go(d.loop)
	}
}

// Stop halts the loop. No event is emitted after Stop returns.
func (d *Discovery) Stop() {
	d.stopOnce.Do(func() {
		if d.running.CompareAndSwap(true, false) {
			close(d.stopChan)
			d.wg.Wait()
		}
	})
}

// Nodes returns a snapshot of all tracked nodes, sorted by key.
func (d *Discovery) Nodes() []Node {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Node, 0, len(d.nodes))
	for _, n := range d.nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Get returns the tracked node under key.
func (d *Discovery) Get(key string) (Node, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.nodes[key]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// AliveCount returns the number of nodes inside the liveness window.
func (d *Discovery) AliveCount() int {
	now := d.tp.Now()
	d.mu.RLock()
	defer d.mu.RUnlock()

	alive := 0
	for _, n := range d.nodes {
		if n.Alive(now, d.cfg.NodeTimeout) {
			alive++
		}
	}
	return alive
}

// OwnersOf returns the live nodes outputting universe u.
func (d *Discovery) OwnersOf(u int) []Node {
	now := d.tp.Now()
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []Node
	for _, n := range d.nodes {
		if n.Owns(u) && n.Alive(now, d.cfg.NodeTimeout) {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (d *Discovery) loop() {
	defer d.wg.Done()

	buf := make([]byte, 2048)
	var nextPoll time.Time // zero, poll immediately
	nextSweep := d.tp.Now().Add(d.cfg.SweepInterval)

	for {
		select {
		case <-d.stopChan:
			return
		default:
		}

		now := d.tp.Now()
		if !now.Before(nextPoll) {
			d.sendPoll(now)
			nextPoll = now.Add(d.cfg.PollInterval)
		}
		if !now.Before(nextSweep) {
			d.sweep(now)
			nextSweep = now.Add(d.cfg.SweepInterval)
		}

		n, addr, err := d.transport.Receive(buf, d.cfg.ReceiveTimeout)
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return
			}
			continue
		}
		d.handle(buf[:n], addr, d.tp.Now())
	}
}

func (d *Discovery) sendPoll(now time.Time) {
	pkt := (&Poll{Flags: 0x06}).Marshal()
	if err := d.transport.Broadcast(pkt); err != nil {
		return
	}
	d.mu.Lock()
	d.lastPollAt = now
	d.mu.Unlock()
	d.statPolls.Add(1)
}

func (d *Discovery) handle(raw []byte, addr string, now time.Time) {
	pkt, ok := Decode(raw)
	if !ok {
		return
	}
	reply, isReply := pkt.(*PollReply)
	if !isReply {
		return
	}
	d.handleReply(reply, addr, now)
}

func (d *Discovery) handleReply(r *PollReply, addr string, now time.Time) {
	key := nodeKey(r)

	d.mu.Lock()
	rec, known := d.nodes[key]
	if !known {
		rec = &Node{Key: key, FirstSeen: now}
		d.nodes[key] = rec
	}
	rec.Addr = addr
	rec.IP = r.IP
	rec.Mac = r.Mac
	rec.ShortName = r.ShortName
	rec.LongName = r.LongName
	rec.Firmware = r.Firmware
	rec.LastSeen = now
	rec.Universes = mergeUniverses(rec.Universes, r.Universes)
	if !d.lastPollAt.IsZero() {
		if rtt := now.Sub(d.lastPollAt); rtt >= 0 && rtt < d.cfg.PollInterval {
			rec.Latency = rtt
		}
	}
	payload := &event.NodePayload{
		Key:       key,
		IP:        r.IP.String(),
		ShortName: r.ShortName,
		Universes: append([]int(nil), rec.Universes...),
	}
	d.mu.Unlock()

	d.statReplies.Add(1)
	if !known {
		d.statNodes.Add(1)
		d.emit(event.TypeNodeUp, payload)
	}
}

// sweep deletes records that fell out of the liveness window.
func (d *Discovery) sweep(now time.Time) {
	var lost []*event.NodePayload

	d.mu.Lock()
	for key, n := range d.nodes {
		if !n.Alive(now, d.cfg.NodeTimeout) {
			lost = append(lost, &event.NodePayload{
				Key:       key,
				IP:        n.IP.String(),
				ShortName: n.ShortName,
				Universes: append([]int(nil), n.Universes...),
			})
			delete(d.nodes, key)
		}
	}
	d.mu.Unlock()

	for _, p := range lost {
		d.statNodes.Add(-1)
		d.emit(event.TypeNodeLost, p)
	}
}

func (d *Discovery) emit(t event.Type, payload any) {
	if d.events != nil {
		d.events.Emit(t, payload)
	}
}

func nodeKey(r *PollReply) string {
	if isZeroMac(r.Mac) {
		return r.IP.String()
	}
	return r.Mac.String()
}

func isZeroMac(mac net.HardwareAddr) bool {
	if len(mac) == 0 {
		return true
	}
	for _, b := range mac {
		if b != 0 {
			return false
		}
	}
	return true
}

func mergeUniverses(have, add []int) []int {
	for _, u := range add {
		found := false
		for _, h := range have {
			if h == u {
				found = true
				break
			}
		}
		if !found {
			have = append(have, u)
		}
	}
	sort.Ints(have)
	return have
}
