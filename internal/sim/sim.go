// Package sim produces a deterministic synthetic balloon flight rendered as
// wire frames, for bench-testing the ground station without a payload in
// the air.
package sim

import (
	"fmt"
	"math"
	"time"

	"hablink/internal/nmea"
)

// Profile describes the synthetic flight: a steady climb with slow
// horizontal drift.
type Profile struct {
	StartLat  float64 // decimal degrees
	StartLon  float64 // decimal degrees
	StartAlt  float64 // meters
	ClimbRate float64 // m/s
}

// DefaultProfile launches from downtown Los Angeles at a typical ascent
// rate.
func DefaultProfile() Profile {
	return Profile{
		StartLat:  34.052235,
		StartLon:  -118.243683,
		StartAlt:  1000,
		ClimbRate: 2.5,
	}
}

// Sample is the flight state t seconds after launch.
type Sample struct {
	Lat   float64 // decimal degrees
	Lon   float64 // decimal degrees
	Alt   float64 // meters
	Speed float64 // m/s over ground
	Track float64 // degrees true
}

// At returns the state t seconds into the flight. The same t always yields
// the same sample.
func (p Profile) At(t int) Sample {
	ft := float64(t)
	return Sample{
		Lat:   p.StartLat + ft*0.0001,
		Lon:   p.StartLon + ft*0.00008,
		Alt:   p.StartAlt + ft*p.ClimbRate,
		Speed: p.ClimbRate,
		Track: math.Mod(ft*0.5, 360),
	}
}

// WireFrame renders a sample in the downlink payload format. Coordinates
// are encoded unsigned in degrees-minutes form, speed in knots, matching
// what the transmitter extracts from live receiver output.
func WireFrame(s Sample, clock time.Time) string {
	ts := clock.Format("150405")
	lat := degMin(s.Lat, 2)
	lon := degMin(s.Lon, 3)
	kt := s.Speed / nmea.KnotsToMSFactor
	return fmt.Sprintf("GPGGA,%s,%s,%s,1,%.1f;GPRMC,%s,A,%s,%s,%05.1f,%05.1f",
		ts, lat, lon, s.Alt, ts, lat, lon, kt, s.Track)
}

func degMin(deg float64, degDigits int) string {
	v := math.Abs(deg)
	d := math.Floor(v)
	m := (v - d) * 60
	return fmt.Sprintf("%0*.0f%07.4f", degDigits, d, m)
}
