package artnet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/helios/core"
	"github.com/lixenwraith/helios/parameter"
	"github.com/lixenwraith/helios/vmath"
)

// SimNodeConfig describes an emulated node's identity and ownership.
type SimNodeConfig struct {
	ShortName string
	LongName  string
	Firmware  uint16
	IP        net.IP
	Mac       net.HardwareAddr // derived from the short name when nil
	Universes []int            // owned universes, one output port each
}

// SimNode emulates a receiver on a Transport: it answers discovery
// polls with one reply per universe-port and latches data frames for
// the universes it owns. Frames for unowned universes are ignored
// silently and count toward nothing.
type SimNode struct {
	transport Transport
	cfg       SimNodeConfig

	mu         sync.Mutex
	store      map[int]*Universe
	frames     map[int]uint64
	lastSeq    map[int]byte
	dark       bool
	replyDelay time.Duration

	total   atomic.Uint64
	stale   atomic.Uint64
	replies atomic.Uint64

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool
}

// NewSimNode builds a node over the given transport. Universe ownership
// is fixed for the node's lifetime.
func NewSimNode(transport Transport, cfg SimNodeConfig) *SimNode {
	if cfg.Mac == nil {
		cfg.Mac = deriveMac(cfg.ShortName)
	}
	if cfg.IP == nil {
		cfg.IP = net.IPv4(127, 0, 0, 1)
	}

	n := &SimNode{
		transport: transport,
		cfg:       cfg,
		store:     make(map[int]*Universe, len(cfg.Universes)),
		frames:    make(map[int]uint64, len(cfg.Universes)),
		lastSeq:   make(map[int]byte, len(cfg.Universes)),
		stopChan:  make(chan struct{}),
	}
	for _, u := range cfg.Universes {
		checkUniverse(u)
		n.store[u] = NewUniverse()
	}
	return n
}

// deriveMac hashes a name into a stable locally-administered address.
func deriveMac(name string) net.HardwareAddr {
	h := uint64(0x9AE16A3B2F90404F)
	for _, c := range []byte(name) {
		h = vmath.Mix64(h, uint64(c))
	}
	mac := make(net.HardwareAddr, 6)
	binary.BigEndian.PutUint32(mac[2:], uint32(h))
	mac[0] = 0x02
	mac[1] = byte(h >> 32)
	return mac
}

// Start launches the node's receive loop.
func (n *SimNode) Start() {
	if n.running.CompareAndSwap(false, true) {
		n.wg.Add(1)
		core.Go(n.loop)
	}
}

// Stop halts the node. No reply or store happens after Stop returns.
func (n *SimNode) Stop() {
	n.stopOnce.Do(func() {
		if n.running.CompareAndSwap(true, false) {
			close(n.stopChan)
			n.wg.Wait()
		}
	})
}

// SetDark makes the node drop all traffic and send nothing, emulating
// a device that lost power but kept its network attachment.
func (n *SimNode) SetDark(dark bool) {
	n.mu.Lock()
	n.dark = dark
	n.mu.Unlock()
}

// SetReplyDelay delays every poll reply, inflating the latency a
// discovery controller measures.
func (n *SimNode) SetReplyDelay(d time.Duration) {
	n.mu.Lock()
	n.replyDelay = d
	n.mu.Unlock()
}

// IsDark reports whether the node is ignoring all traffic.
func (n *SimNode) IsDark() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dark
}

// ReplyDelay returns the configured reply latency.
func (n *SimNode) ReplyDelay() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.replyDelay
}

// ShortName returns the node's configured short name.
func (n *SimNode) ShortName() string { return n.cfg.ShortName }

// Universes returns the owned universe list.
func (n *SimNode) Universes() []int {
	return append([]int(nil), n.cfg.Universes...)
}

// Owns reports whether the node is configured for universe u.
func (n *SimNode) Owns(u int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.store[u]
	return ok
}

// Universe returns a copy of the latched data for an owned universe.
func (n *SimNode) Universe(u int) (*Universe, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	stored, ok := n.store[u]
	if !ok {
		return nil, false
	}
	return stored.Clone(), true
}

// FramesReceived returns the accepted frame count for one universe.
func (n *SimNode) FramesReceived(u int) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.frames[u]
}

// TotalFrames returns accepted frames across all owned universes.
func (n *SimNode) TotalFrames() uint64 { return n.total.Load() }

// StaleFrames returns frames rejected by sequence tracking.
func (n *SimNode) StaleFrames() uint64 { return n.stale.Load() }

// RepliesSent returns the number of poll replies transmitted.
func (n *SimNode) RepliesSent() uint64 { return n.replies.Load() }

func (n *SimNode) loop() {
	defer n.wg.Done()

	buf := make([]byte, 2048)
	for {
		select {
		case <-n.stopChan:
			return
		default:
		}

		nb, from, err := n.transport.Receive(buf, parameter.ReceiveTimeout)
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return
			}
			continue
		}
		n.handle(buf[:nb], from)
	}
}

func (n *SimNode) handle(raw []byte, from string) {
	n.mu.Lock()
	dark := n.dark
	n.mu.Unlock()
	if dark {
		return
	}

	pkt, ok := Decode(raw)
	if !ok {
		return
	}

	switch p := pkt.(type) {
	case *Poll:
		n.replyTo(from)
	case *Dmx:
		n.storeDmx(p)
	}
}

// replyTo answers a poll with exactly one reply per universe-port.
func (n *SimNode) replyTo(addr string) {
	n.mu.Lock()
	delay := n.replyDelay
	n.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-n.stopChan:
			t.Stop()
			return
		}
	}

	for i, u := range n.cfg.Universes {
		reply := &PollReply{
			IP:        n.cfg.IP,
			Firmware:  n.cfg.Firmware,
			ShortName: n.cfg.ShortName,
			LongName:  n.cfg.LongName,
			Report:    fmt.Sprintf("#0001 [%04d] node up", n.replies.Load()),
			Mac:       n.cfg.Mac,
			Universes: []int{u},
			BindIndex: byte(i + 1),
		}
		if err := n.transport.Send(reply.Marshal(), addr); err != nil {
			return
		}
		n.replies.Add(1)
	}
}

func (n *SimNode) storeDmx(d *Dmx) {
	n.mu.Lock()
	defer n.mu.Unlock()

	stored, owned := n.store[d.Universe]
	if !owned {
		return
	}

	if d.Sequence != 0 {
		if last := n.lastSeq[d.Universe]; last != 0 && !seqNewer(d.Sequence, last) {
			n.stale.Add(1)
			return
		}
		n.lastSeq[d.Universe] = d.Sequence
	}

	stored.CopyFrom(d.Data)
	n.frames[d.Universe]++
	n.total.Add(1)
}

// seqNewer reports whether s follows last in wrapping 1..255 sequence
// space. Half the ring forward counts as newer.
func seqNewer(s, last byte) bool {
	diff := s - last
	return diff >= 1 && diff <= 127
}
