package fixture

import (
	"testing"

	"github.com/lixenwraith/helios/chroma"
	"github.com/lixenwraith/helios/effect"
)

func mustPatch(t *testing.T, fixtures ...Fixture) *Patch {
	t.Helper()
	p, err := NewPatch(fixtures)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	return p
}

// TestPackColor verifies RGB channels land at address+offset-2 in the
// universe buffer.
func TestPackColor(t *testing.T) {
	p := mustPatch(t, rgbAt("a", 0, 10))
	frames := make(map[int][]byte)
	p.Pack([]Output{{Color: chroma.New(1, 0.5, 0)}}, frames)

	buf, ok := frames[0]
	if !ok {
		t.Fatal("universe 0 not packed")
	}
	if len(buf) != 512 {
		t.Fatalf("buffer length: got %d, want 512", len(buf))
	}
	if buf[9] != 255 || buf[10] != 128 || buf[11] != 0 {
		t.Errorf("channels 10..12: got %d %d %d, want 255 128 0", buf[9], buf[10], buf[11])
	}
	// Neighbors untouched.
	if buf[8] != 0 || buf[12] != 0 {
		t.Errorf("neighbor channels written: %d %d", buf[8], buf[12])
	}
}

// TestPackDimmer verifies a bare dimmer carries luminance while a color
// fixture's dimmer runs full.
func TestPackDimmer(t *testing.T) {
	profiles := BuiltinProfiles()
	p := mustPatch(t,
		Fixture{ID: "d", Profile: profiles["dimmer"], Universe: 0, Address: 1},
		Fixture{ID: "c", Profile: profiles["rgbd"], Universe: 0, Address: 2},
	)
	frames := make(map[int][]byte)
	p.Pack([]Output{
		{Color: chroma.New(1, 1, 1)},
		{Color: chroma.New(0.5, 0.5, 0.5)},
	}, frames)

	buf := frames[0]
	if buf[0] != 255 {
		t.Errorf("dimmer luminance for white: got %d, want 255", buf[0])
	}
	// rgbd at address 2: dimmer ch1 -> index 1, rgb ch2..4 -> 2..4.
	if buf[1] != 255 {
		t.Errorf("color fixture dimmer: got %d, want 255", buf[1])
	}
	if buf[2] != 128 || buf[3] != 128 || buf[4] != 128 {
		t.Errorf("rgbd color: got %d %d %d, want 128 128 128", buf[2], buf[3], buf[4])
	}
}

// TestPackMovementHold verifies unset movement channels keep their last
// wire value while color rewrites every frame.
func TestPackMovementHold(t *testing.T) {
	p := mustPatch(t, Fixture{ID: "m", Profile: BuiltinProfiles()["moving-head"], Universe: 0, Address: 1})
	frames := make(map[int][]byte)

	p.Pack([]Output{{
		Color: chroma.New(1, 0, 0),
		Move:  effect.Movement{Pan: effect.Set(0.5), Tilt: effect.Set(1)},
	}}, frames)
	buf := frames[0]
	if buf[0] != 128 || buf[1] != 255 {
		t.Fatalf("pan/tilt after first pack: got %d %d, want 128 255", buf[0], buf[1])
	}

	// Second frame drives nothing: the head holds position.
	p.Pack([]Output{{Color: chroma.New(0, 1, 0)}}, frames)
	if buf[0] != 128 || buf[1] != 255 {
		t.Errorf("pan/tilt after unset pack: got %d %d, want held 128 255", buf[0], buf[1])
	}
	if buf[3] != 0 || buf[4] != 255 {
		t.Errorf("color after second pack: got r=%d g=%d, want 0 255", buf[3], buf[4])
	}
}

// TestPackGoboAndStrobe verifies slot and strobe bytes.
func TestPackGoboAndStrobe(t *testing.T) {
	p := mustPatch(t, Fixture{ID: "m", Profile: BuiltinProfiles()["moving-head"], Universe: 0, Address: 1})
	frames := make(map[int][]byte)
	p.Pack([]Output{{
		Move: effect.Movement{Gobo: effect.SetGobo(4), Strobe: effect.Set(0.2)},
	}}, frames)

	buf := frames[0]
	if buf[8] != 4 {
		t.Errorf("gobo slot: got %d, want 4", buf[8])
	}
	if buf[9] != 51 {
		t.Errorf("strobe: got %d, want 51", buf[9])
	}

	// Oversized slot clamps to the byte range.
	p.Pack([]Output{{Move: effect.Movement{Gobo: effect.SetGobo(999)}}}, frames)
	if buf[8] != 255 {
		t.Errorf("gobo clamp: got %d, want 255", buf[8])
	}
}

// TestPackMultiUniverse verifies each fixture writes only its own
// universe buffer.
func TestPackMultiUniverse(t *testing.T) {
	p := mustPatch(t, rgbAt("a", 1, 1), rgbAt("b", 5, 1))
	frames := make(map[int][]byte)
	p.Pack([]Output{
		{Color: chroma.New(1, 0, 0)},
		{Color: chroma.New(0, 0, 1)},
	}, frames)

	if len(frames) != 2 {
		t.Fatalf("universe buffers: got %d, want 2", len(frames))
	}
	if frames[1][0] != 255 || frames[1][2] != 0 {
		t.Errorf("universe 1: got r=%d b=%d, want 255 0", frames[1][0], frames[1][2])
	}
	if frames[5][0] != 0 || frames[5][2] != 255 {
		t.Errorf("universe 5: got r=%d b=%d, want 0 255", frames[5][0], frames[5][2])
	}
}

// TestPackCountMismatchPanics verifies a frame/patch size mismatch is
// treated as a programmer error.
func TestPackCountMismatchPanics(t *testing.T) {
	p := mustPatch(t, rgbAt("a", 0, 1))
	defer func() {
		if recover() == nil {
			t.Error("expected panic on output count mismatch")
		}
	}()
	p.Pack([]Output{{}, {}}, make(map[int][]byte))
}
