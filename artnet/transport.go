package artnet

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"
)

// ErrNoData marks a receive that timed out with nothing on the wire.
// Callers poll with a timeout instead of blocking indefinitely, so this
// is flow, not failure.
var ErrNoData = errors.New("artnet: no data")

// ErrClosed marks I/O on a closed transport. Receive loops treat it as
// their shutdown signal.
var ErrClosed = errors.New("artnet: transport closed")

// Transport moves raw datagrams. Two implementations exist: UDPTransport
// for a real broadcast LAN and SimEndpoint for the in-memory test bus.
// Receive must honor its timeout and return ErrNoData on expiry.
type Transport interface {
	// Send transmits one datagram to a single address.
	Send(pkt []byte, addr string) error
	// Broadcast transmits one datagram to every listener.
	Broadcast(pkt []byte) error
	// Receive fills buf with the next datagram and its source address.
	Receive(buf []byte, timeout time.Duration) (n int, addr string, err error)
	// LocalAddr identifies this transport on its network.
	LocalAddr() string
	Close() error
}

// UDPTransport is the production transport: one socket bound to the
// protocol port, broadcast-enabled for discovery and streaming.
type UDPTransport struct {
	conn      *net.UDPConn
	broadcast *net.UDPAddr
}

// NewUDPTransport binds bindAddr (":6454" typically) and targets
// broadcastAddr for Broadcast sends. The socket is switched to
// SO_BROADCAST; failure to set the option degrades to unicast-only and
// is not fatal.
func NewUDPTransport(bindAddr, broadcastAddr string) (*UDPTransport, error) {
	laddr, err := net.ResolveUDPAddr("udp4", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve bind address: %w", err)
	}
	baddr, err := net.ResolveUDPAddr("udp4", broadcastAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve broadcast address: %w", err)
	}

	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", bindAddr, err)
	}

	if rawConn, rawErr := conn.SyscallConn(); rawErr == nil {
		rawConn.Control(func(fd uintptr) {
			syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
		})
	}

	return &UDPTransport{conn: conn, broadcast: baddr}, nil
}

func (t *UDPTransport) Send(pkt []byte, addr string) error {
	raddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", addr, err)
	}
	_, err = t.conn.WriteToUDP(pkt, raddr)
	return err
}

func (t *UDPTransport) Broadcast(pkt []byte) error {
	_, err := t.conn.WriteToUDP(pkt, t.broadcast)
	return err
}

func (t *UDPTransport) Receive(buf []byte, timeout time.Duration) (int, string, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, "", err
	}
	n, raddr, err := t.conn.ReadFromUDP(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, "", ErrNoData
		}
		if errors.Is(err, net.ErrClosed) {
			return 0, "", ErrClosed
		}
		return 0, "", err
	}
	return n, raddr.String(), nil
}

func (t *UDPTransport) LocalAddr() string {
	return t.conn.LocalAddr().String()
}

func (t *UDPTransport) Close() error {
	return t.conn.Close()
}
