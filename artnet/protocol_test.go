package artnet

import (
	"bytes"
	"net"
	"strings"
	"testing"
)

// TestDmxRoundTrip verifies a universe-5 data packet survives encode
// and decode with a byte-identical payload.
func TestDmxRoundTrip(t *testing.T) {
	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = byte(i * 7)
	}
	wire := (&Dmx{Sequence: 42, Physical: 1, Universe: 5, Data: payload}).Marshal()

	pkt, ok := Decode(wire)
	if !ok {
		t.Fatal("decode rejected a valid dmx packet")
	}
	d, isDmx := pkt.(*Dmx)
	if !isDmx {
		t.Fatalf("decoded type %T, want *Dmx", pkt)
	}
	if d.Universe != 5 {
		t.Errorf("universe: got %d, want 5", d.Universe)
	}
	if d.Sequence != 42 || d.Physical != 1 {
		t.Errorf("sequence/physical: got %d/%d, want 42/1", d.Sequence, d.Physical)
	}
	if !bytes.Equal(d.Data, payload) {
		t.Error("payload not byte-identical after round trip")
	}
}

// TestDmxHighUniverse verifies net and sub-net bits survive the split
// encoding.
func TestDmxHighUniverse(t *testing.T) {
	for _, universe := range []int{0, 15, 16, 255, 256, 0x7FFF} {
		wire := (&Dmx{Universe: universe, Data: []byte{1, 2, 3, 4}}).Marshal()
		pkt, ok := Decode(wire)
		if !ok {
			t.Fatalf("universe %d: decode failed", universe)
		}
		if got := pkt.(*Dmx).Universe; got != universe {
			t.Errorf("universe: got %d, want %d", got, universe)
		}
	}
}

// TestDecodeGarbage verifies arbitrary bytes are reported as not
// handled, never as a panic or a bogus packet.
func TestDecodeGarbage(t *testing.T) {
	garbage := make([]byte, 100)
	for i := range garbage {
		garbage[i] = byte(i*31 + 7)
	}
	if _, ok := Decode(garbage); ok {
		t.Error("decode accepted a 100-byte garbage buffer")
	}

	cases := [][]byte{
		nil,
		{},
		[]byte("Art"),
		[]byte("Art-Net\x00"),                     // signature only, no opcode
		[]byte("Art-Net\x00\xff\xff\x00\x0e\x00"), // unknown opcode
		[]byte("Not-Art\x00\x00\x50\x00\x0e"),     // wrong signature, dmx opcode
	}
	for i, buf := range cases {
		if _, ok := Decode(buf); ok {
			t.Errorf("case %d: decode accepted malformed input", i)
		}
	}
}

// TestDecodeShortDmx verifies truncated data packets are not handled.
func TestDecodeShortDmx(t *testing.T) {
	wire := (&Dmx{Universe: 1, Data: make([]byte, 64)}).Marshal()

	if _, ok := Decode(wire[:17]); ok {
		t.Error("decode accepted a dmx packet cut inside the header")
	}
	if _, ok := Decode(wire[:40]); ok {
		t.Error("decode accepted a dmx packet cut inside the payload")
	}

	// Declared length of zero is invalid.
	wire[16], wire[17] = 0, 0
	if _, ok := Decode(wire); ok {
		t.Error("decode accepted a zero-length dmx packet")
	}
}

// TestPollRoundTrip verifies the discovery request encoding.
func TestPollRoundTrip(t *testing.T) {
	wire := (&Poll{Flags: 0x06, Priority: 0x10}).Marshal()
	if len(wire) != 14 {
		t.Fatalf("poll size: got %d, want 14", len(wire))
	}

	pkt, ok := Decode(wire)
	if !ok {
		t.Fatal("decode rejected a valid poll")
	}
	p, isPoll := pkt.(*Poll)
	if !isPoll {
		t.Fatalf("decoded type %T, want *Poll", pkt)
	}
	if p.Flags != 0x06 || p.Priority != 0x10 {
		t.Errorf("flags/priority: got %#x/%#x, want 0x06/0x10", p.Flags, p.Priority)
	}
}

// TestPollReplyRoundTrip verifies node identity survives the reply
// encoding, including the split universe address.
func TestPollReplyRoundTrip(t *testing.T) {
	mac, _ := net.ParseMAC("02:11:22:33:44:55")
	in := &PollReply{
		IP:        net.IPv4(10, 0, 0, 42),
		Firmware:  0x0203,
		ShortName: "wash-node",
		LongName:  "Back truss wash node",
		Report:    "#0001 [0000] OK",
		Mac:       mac,
		Universes: []int{0x123},
		BindIndex: 1,
	}
	wire := in.Marshal()
	if len(wire) != 239 {
		t.Fatalf("reply size: got %d, want 239", len(wire))
	}

	pkt, ok := Decode(wire)
	if !ok {
		t.Fatal("decode rejected a valid reply")
	}
	r := pkt.(*PollReply)
	if !r.IP.Equal(in.IP) {
		t.Errorf("ip: got %v, want %v", r.IP, in.IP)
	}
	if r.Firmware != 0x0203 {
		t.Errorf("firmware: got %#x, want 0x0203", r.Firmware)
	}
	if r.ShortName != "wash-node" || r.LongName != "Back truss wash node" {
		t.Errorf("names: got %q / %q", r.ShortName, r.LongName)
	}
	if r.Mac.String() != "02:11:22:33:44:55" {
		t.Errorf("mac: got %s", r.Mac)
	}
	if len(r.Universes) != 1 || r.Universes[0] != 0x123 {
		t.Errorf("universes: got %v, want [291]", r.Universes)
	}
	if r.BindIndex != 1 {
		t.Errorf("bind index: got %d, want 1", r.BindIndex)
	}
}

// TestPollReplyNameTruncation verifies oversized names are clamped to
// their wire fields, not rejected.
func TestPollReplyNameTruncation(t *testing.T) {
	in := &PollReply{
		IP:        net.IPv4(10, 0, 0, 1),
		ShortName: strings.Repeat("s", 40),
		LongName:  strings.Repeat("l", 100),
		Mac:       net.HardwareAddr{2, 0, 0, 0, 0, 1},
	}
	pkt, ok := Decode(in.Marshal())
	if !ok {
		t.Fatal("decode failed")
	}
	r := pkt.(*PollReply)
	if len(r.ShortName) != 17 {
		t.Errorf("short name length: got %d, want 17", len(r.ShortName))
	}
	if len(r.LongName) != 63 {
		t.Errorf("long name length: got %d, want 63", len(r.LongName))
	}
}

// TestPollReplyMultiPort verifies a four-port reply lists each bound
// universe.
func TestPollReplyMultiPort(t *testing.T) {
	in := &PollReply{
		IP:        net.IPv4(10, 0, 0, 1),
		Mac:       net.HardwareAddr{2, 0, 0, 0, 0, 2},
		Universes: []int{0x10, 0x11, 0x12, 0x13},
	}
	r, ok := Decode(in.Marshal())
	if !ok {
		t.Fatal("decode failed")
	}
	got := r.(*PollReply).Universes
	if len(got) != 4 {
		t.Fatalf("ports: got %d, want 4", len(got))
	}
	for i, want := range []int{0x10, 0x11, 0x12, 0x13} {
		if got[i] != want {
			t.Errorf("port %d: got %d, want %d", i, got[i], want)
		}
	}
}

// TestSyncRoundTrip verifies the sync packet encoding.
func TestSyncRoundTrip(t *testing.T) {
	wire := (&Sync{}).Marshal()
	if len(wire) != 14 {
		t.Fatalf("sync size: got %d, want 14", len(wire))
	}
	pkt, ok := Decode(wire)
	if !ok {
		t.Fatal("decode rejected a valid sync")
	}
	if _, isSync := pkt.(*Sync); !isSync {
		t.Fatalf("decoded type %T, want *Sync", pkt)
	}
}

// TestMarshalPanicsOnCallerBugs verifies precondition violations are
// fatal rather than silently mangled.
func TestMarshalPanicsOnCallerBugs(t *testing.T) {
	cases := []struct {
		name string
		fn   func()
	}{
		{"dmx empty payload", func() { (&Dmx{Universe: 0, Data: nil}).Marshal() }},
		{"dmx oversized payload", func() { (&Dmx{Universe: 0, Data: make([]byte, 513)}).Marshal() }},
		{"dmx universe out of range", func() { (&Dmx{Universe: 0x8000, Data: []byte{1}}).Marshal() }},
		{"reply too many ports", func() {
			(&PollReply{Universes: []int{1, 2, 3, 4, 5}}).Marshal()
		}},
		{"reply ports span subnets", func() {
			(&PollReply{Universes: []int{0x0F, 0x10}}).Marshal()
		}},
	}
	for _, tc := range cases {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s: expected panic", tc.name)
				}
			}()
			tc.fn()
		}()
	}
}

// TestUniverseAccess verifies the 512-byte invariant and the fatal
// out-of-range contract.
func TestUniverseAccess(t *testing.T) {
	u := NewUniverse()
	if len(u.Bytes()) != 512 {
		t.Fatalf("universe size: got %d, want 512", len(u.Bytes()))
	}

	u.Set(0, 10)
	u.Set(511, 20)
	if u.At(0) != 10 || u.At(511) != 20 {
		t.Errorf("channel values: got %d/%d, want 10/20", u.At(0), u.At(511))
	}

	for _, ch := range []int{-1, 512} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("channel %d: expected panic", ch)
				}
			}()
			u.At(ch)
		}()
	}
}

// TestUniverseCopyFrom verifies shorter payloads zero the remainder.
func TestUniverseCopyFrom(t *testing.T) {
	u := NewUniverse()
	u.Set(100, 99)
	u.CopyFrom([]byte{1, 2, 3})

	if u.At(0) != 1 || u.At(2) != 3 {
		t.Error("payload not copied")
	}
	if u.At(100) != 0 {
		t.Errorf("channel 100 not zeroed: got %d", u.At(100))
	}

	c := u.Clone()
	c.Set(0, 200)
	if u.At(0) != 1 {
		t.Error("clone shares storage with source")
	}
}
