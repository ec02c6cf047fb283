package sim

import (
	"math"
	"strings"
	"testing"
	"time"

	"hablink/internal/downlink"
)

func TestProfileDeterministic(t *testing.T) {
	p := DefaultProfile()
	a := p.At(120)
	b := p.At(120)
	if a != b {
		t.Fatalf("At(120) not deterministic: %+v vs %+v", a, b)
	}
	if a.Alt <= p.StartAlt {
		t.Fatalf("altitude %v should exceed start %v", a.Alt, p.StartAlt)
	}
	if math.Abs(a.Alt-(p.StartAlt+120*2.5)) > 1e-9 {
		t.Fatalf("altitude %v, want %v", a.Alt, p.StartAlt+120*2.5)
	}
}

func TestWireFrameLayout(t *testing.T) {
	s := Sample{Lat: 34.052235, Lon: -118.243683, Alt: 1000, Speed: 2.5, Track: 45}
	frame := WireFrame(s, time.Date(2024, 6, 1, 12, 35, 19, 0, time.UTC))

	if !strings.HasPrefix(frame, "GPGGA,123519,") {
		t.Fatalf("frame = %q", frame)
	}
	if !strings.Contains(frame, ";GPRMC,123519,A,") {
		t.Fatalf("frame = %q", frame)
	}
	// Degrees-minutes widths: ddmm.mmmm and dddmm.mmmm.
	fields := strings.Split(strings.SplitN(frame, ";", 2)[0], ",")
	if len(fields[2]) != 9 || len(fields[3]) != 10 {
		t.Fatalf("lat=%q lon=%q", fields[2], fields[3])
	}
}

func TestWireFramesParseAndValidate(t *testing.T) {
	p := DefaultProfile()
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for _, tick := range []int{0, 1, 60, 3600} {
		frame := WireFrame(p.At(tick), clock.Add(time.Duration(tick)*time.Second))
		rec, err := downlink.ParseFrame(frame)
		if err != nil {
			t.Fatalf("t=%d ParseFrame(%q) error: %v", tick, frame, err)
		}
		if err := downlink.Validate(rec); err != nil {
			t.Fatalf("t=%d Validate error: %v", tick, err)
		}

		want := p.At(tick)
		if math.Abs(rec.Latitude-want.Lat) > 1e-5 {
			t.Fatalf("t=%d lat=%v want %v", tick, rec.Latitude, want.Lat)
		}
		// Hemisphere is not carried on the wire; magnitude must survive.
		if math.Abs(rec.Longitude-math.Abs(want.Lon)) > 1e-5 {
			t.Fatalf("t=%d lon=%v want %v", tick, rec.Longitude, math.Abs(want.Lon))
		}
		if math.Abs(rec.Altitude-want.Alt) > 0.05 {
			t.Fatalf("t=%d alt=%v want %v", tick, rec.Altitude, want.Alt)
		}
		if math.Abs(rec.Velocity-want.Speed) > 0.05 {
			t.Fatalf("t=%d velocity=%v want %v", tick, rec.Velocity, want.Speed)
		}
	}
}
