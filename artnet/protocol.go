package artnet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"

	"github.com/lixenwraith/helios/parameter"
)

// Every packet opens with the 8-byte signature followed by a
// little-endian opcode. The protocol version rides big-endian where
// present.
var signature = [8]byte{'A', 'r', 't', '-', 'N', 'e', 't', 0}

const (
	OpPoll      uint16 = 0x2000
	OpPollReply uint16 = 0x2100
	OpDmx       uint16 = 0x5000
	OpSync      uint16 = 0x5200
)

const (
	headerSize       = 10 // signature + opcode
	pollSize         = 14
	pollReplyMinSize = 207 // through the MAC field; trailing fields optional
	dmxHeaderSize    = 18
	syncSize         = 14

	maxReplyPorts = 4
)

// Packet is any decoded wire packet.
type Packet interface {
	Opcode() uint16
}

// Poll is the broadcast discovery request.
type Poll struct {
	Flags    byte
	Priority byte
}

func (*Poll) Opcode() uint16 { return OpPoll }

// Marshal encodes the poll packet.
func (p *Poll) Marshal() []byte {
	buf := make([]byte, pollSize)
	putHeader(buf, OpPoll)
	binary.BigEndian.PutUint16(buf[10:12], parameter.ProtocolVer)
	buf[12] = p.Flags
	buf[13] = p.Priority
	return buf
}

// PollReply is a node's self-description. Universes carries the 15-bit
// port-address of each bound output port; all ports in one reply share
// the same net and sub-net (only the low nibble varies on the wire).
type PollReply struct {
	IP        net.IP
	Firmware  uint16
	ShortName string // truncated to 17 chars on the wire
	LongName  string // truncated to 63 chars
	Report    string
	Mac       net.HardwareAddr
	Universes []int
	Style     byte
	BindIndex byte
}

func (*PollReply) Opcode() uint16 { return OpPollReply }

// Marshal encodes the reply. Names are truncated to their field widths.
// More than four ports or a universe outside the 15-bit range is a
// caller bug and panics.
func (r *PollReply) Marshal() []byte {
	if len(r.Universes) > maxReplyPorts {
		panic(fmt.Sprintf("artnet: poll reply with %d ports, max %d", len(r.Universes), maxReplyPorts))
	}
	for _, u := range r.Universes {
		checkUniverse(u)
		if u&^0x0F != r.Universes[0]&^0x0F {
			panic(fmt.Sprintf("artnet: ports %d and %d differ above the low nibble, split across replies", r.Universes[0], u))
		}
	}

	buf := make([]byte, parameter.PollReplySize)
	putHeader(buf, OpPollReply)
	if ip4 := r.IP.To4(); ip4 != nil {
		copy(buf[10:14], ip4)
	}
	binary.LittleEndian.PutUint16(buf[14:16], parameter.ArtNetPort)
	binary.BigEndian.PutUint16(buf[16:18], r.Firmware)
	if len(r.Universes) > 0 {
		buf[18] = byte(r.Universes[0] >> 8 & 0x7F)
		buf[19] = byte(r.Universes[0] >> 4 & 0x0F)
	}
	putString(buf[26:44], r.ShortName)
	putString(buf[44:108], r.LongName)
	putString(buf[108:172], r.Report)
	binary.BigEndian.PutUint16(buf[172:174], uint16(len(r.Universes)))
	for i, u := range r.Universes {
		buf[174+i] = 0x80 // output port, DMX512
		buf[182+i] = 0x80 // data being transmitted
		buf[190+i] = byte(u & 0x0F)
	}
	buf[200] = r.Style
	copy(buf[201:207], r.Mac)
	buf[211] = r.BindIndex
	buf[212] = 0x08 // 15-bit port-address capable
	return buf
}

// Dmx is one universe's channel data.
type Dmx struct {
	Sequence byte // 0 disables sequence tracking at the receiver
	Physical byte
	Universe int // 15-bit port-address
	Data     []byte
}

func (*Dmx) Opcode() uint16 { return OpDmx }

// Marshal encodes the data packet. An empty or oversized payload or an
// out-of-range universe is a caller bug and panics.
func (d *Dmx) Marshal() []byte {
	if len(d.Data) == 0 || len(d.Data) > parameter.UniverseSize {
		panic(fmt.Sprintf("artnet: dmx payload of %d bytes", len(d.Data)))
	}
	checkUniverse(d.Universe)

	buf := make([]byte, dmxHeaderSize+len(d.Data))
	putHeader(buf, OpDmx)
	binary.BigEndian.PutUint16(buf[10:12], parameter.ProtocolVer)
	buf[12] = d.Sequence
	buf[13] = d.Physical
	buf[14] = byte(d.Universe & 0xFF)
	buf[15] = byte(d.Universe >> 8 & 0x7F)
	binary.BigEndian.PutUint16(buf[16:18], uint16(len(d.Data)))
	copy(buf[dmxHeaderSize:], d.Data)
	return buf
}

// Sync asks receivers to latch their buffered universes in one go.
type Sync struct{}

func (*Sync) Opcode() uint16 { return OpSync }

// Marshal encodes the sync packet.
func (*Sync) Marshal() []byte {
	buf := make([]byte, syncSize)
	putHeader(buf, OpSync)
	binary.BigEndian.PutUint16(buf[10:12], parameter.ProtocolVer)
	return buf
}

// Decode parses one received datagram. It reports false for anything
// short, unsigned, or of an unknown opcode; arbitrary garbage is
// expected input on a broadcast port, not an error.
func Decode(buf []byte) (Packet, bool) {
	if len(buf) < headerSize || !bytes.Equal(buf[0:8], signature[:]) {
		return nil, false
	}

	switch binary.LittleEndian.Uint16(buf[8:10]) {
	case OpPoll:
		if len(buf) < pollSize {
			return nil, false
		}
		return &Poll{Flags: buf[12], Priority: buf[13]}, true

	case OpPollReply:
		return decodePollReply(buf)

	case OpDmx:
		return decodeDmx(buf)

	case OpSync:
		if len(buf) < syncSize {
			return nil, false
		}
		return &Sync{}, true

	default:
		return nil, false
	}
}

func decodePollReply(buf []byte) (Packet, bool) {
	if len(buf) < pollReplyMinSize {
		return nil, false
	}

	r := &PollReply{
		IP:        net.IPv4(buf[10], buf[11], buf[12], buf[13]),
		Firmware:  binary.BigEndian.Uint16(buf[16:18]),
		ShortName: getString(buf[26:44]),
		LongName:  getString(buf[44:108]),
		Report:    getString(buf[108:172]),
		Mac:       net.HardwareAddr(append([]byte(nil), buf[201:207]...)),
		Style:     buf[200],
	}

	ports := int(binary.BigEndian.Uint16(buf[172:174]))
	if ports > maxReplyPorts {
		ports = maxReplyPorts
	}
	net15 := int(buf[18]&0x7F) << 8
	sub := int(buf[19]&0x0F) << 4
	for i := 0; i < ports; i++ {
		// Only bound output ports carry a universe.
		if buf[174+i]&0x80 != 0 {
			r.Universes = append(r.Universes, net15|sub|int(buf[190+i]&0x0F))
		}
	}

	if len(buf) > 211 {
		r.BindIndex = buf[211]
	}
	return r, true
}

func decodeDmx(buf []byte) (Packet, bool) {
	if len(buf) < dmxHeaderSize {
		return nil, false
	}
	length := int(binary.BigEndian.Uint16(buf[16:18]))
	if length < 1 || length > parameter.UniverseSize || len(buf) < dmxHeaderSize+length {
		return nil, false
	}

	return &Dmx{
		Sequence: buf[12],
		Physical: buf[13],
		Universe: int(buf[15]&0x7F)<<8 | int(buf[14]),
		Data:     append([]byte(nil), buf[dmxHeaderSize:dmxHeaderSize+length]...),
	}, true
}

func putHeader(buf []byte, opcode uint16) {
	copy(buf[0:8], signature[:])
	binary.LittleEndian.PutUint16(buf[8:10], opcode)
}

// putString writes s into a fixed null-terminated field, truncating to
// leave room for the terminator.
func putString(field []byte, s string) {
	n := copy(field[:len(field)-1], s)
	field[n] = 0
}

func getString(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return string(field)
}

func checkUniverse(u int) {
	if u < 0 || u > MaxPortAddress {
		panic(fmt.Sprintf("artnet: universe %d out of range 0..%d", u, MaxPortAddress))
	}
}

// MaxPortAddress is the highest 15-bit universe number.
const MaxPortAddress = 0x7FFF
