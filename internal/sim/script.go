package sim

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// FlightScript is a deterministic, script-driven flight description used in
// place of the built-in profile.
//
// Time is expressed as Go duration strings (e.g. "0s", "250ms", "10s").
// If Duration is zero, it is derived from the latest keyframe time.
//
// YAML schema (v1):
//
//	version: 1
//	duration: 2m
//	keyframes:
//	  - t: 0s
//	    lat: 34.052235
//	    lon: -118.243683
//	    alt_m: 1000
//	    speed_ms: 2.5
//	    track_deg: 45
//
// Keyframes must be sorted by non-decreasing t.
//
// Keep this struct stable: scripts are test fixtures.
type FlightScript struct {
	Version   int           `yaml:"version"`
	Duration  time.Duration `yaml:"duration"`
	Keyframes []Keyframe    `yaml:"keyframes"`
}

// Keyframe is a time-stamped flight state.
type Keyframe struct {
	T        time.Duration `yaml:"t"`
	Lat      float64       `yaml:"lat"`
	Lon      float64       `yaml:"lon"`
	AltM     float64       `yaml:"alt_m"`
	SpeedMS  float64       `yaml:"speed_ms"`
	TrackDeg float64       `yaml:"track_deg"`
}

// Flight is the validated, runtime representation. Use At to compute the
// deterministic state at a given elapsed time.
type Flight struct {
	script FlightScript
	// Derived duration (script.Duration or max keyframe time).
	duration time.Duration
}

// LoadFlightScript reads and unmarshals a YAML flight script from path.
func LoadFlightScript(path string) (FlightScript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return FlightScript{}, err
	}
	return ParseFlightScriptYAML(b)
}

// ParseFlightScriptYAML parses a YAML flight script.
func ParseFlightScriptYAML(b []byte) (FlightScript, error) {
	var s FlightScript
	if err := yaml.Unmarshal(b, &s); err != nil {
		return FlightScript{}, err
	}
	return s, nil
}

// NewFlight validates script and returns a runtime Flight.
func NewFlight(script FlightScript) (*Flight, error) {
	if script.Version == 0 {
		script.Version = 1
	}
	if script.Version != 1 {
		return nil, fmt.Errorf("unsupported flight script version %d", script.Version)
	}
	if len(script.Keyframes) == 0 {
		return nil, fmt.Errorf("keyframes is required")
	}
	for i := range script.Keyframes {
		if script.Keyframes[i].T < 0 {
			return nil, fmt.Errorf("keyframes[%d].t must be >= 0", i)
		}
		if i > 0 && script.Keyframes[i].T < script.Keyframes[i-1].T {
			return nil, fmt.Errorf("keyframes must be sorted by t (index %d)", i)
		}
	}

	dur := script.Duration
	if dur <= 0 {
		dur = maxKeyframeTime(script.Keyframes)
	}
	if dur <= 0 {
		return nil, fmt.Errorf("duration is required (or deriveable from keyframes)")
	}

	return &Flight{script: script, duration: dur}, nil
}

// Duration returns the effective flight duration.
func (f *Flight) Duration() time.Duration {
	if f == nil {
		return 0
	}
	return f.duration
}

// At computes the flight state at elapsed. If loop is true, elapsed wraps
// around Duration(); otherwise it is clamped to [0, Duration()].
func (f *Flight) At(elapsed time.Duration, loop bool) Sample {
	if f == nil {
		return Sample{}
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if f.duration > 0 {
		if loop {
			elapsed = elapsed % f.duration
		} else if elapsed > f.duration {
			elapsed = f.duration
		}
	}

	k0, k1, alpha := selectSegment(f.script.Keyframes, elapsed)
	return Sample{
		Lat:   lerp(k0.Lat, k1.Lat, alpha),
		Lon:   lerp(k0.Lon, k1.Lon, alpha),
		Alt:   lerp(k0.AltM, k1.AltM, alpha),
		Speed: lerp(k0.SpeedMS, k1.SpeedMS, alpha),
		Track: lerpAngleDeg(k0.TrackDeg, k1.TrackDeg, alpha),
	}
}

func maxKeyframeTime(kfs []Keyframe) time.Duration {
	max := time.Duration(0)
	for _, kf := range kfs {
		if kf.T > max {
			max = kf.T
		}
	}
	return max
}

func selectSegment(kfs []Keyframe, t time.Duration) (Keyframe, Keyframe, float64) {
	if len(kfs) == 1 {
		return kfs[0], kfs[0], 0
	}
	idx := sort.Search(len(kfs), func(i int) bool { return kfs[i].T > t })
	if idx <= 0 {
		return kfs[0], kfs[0], 0
	}
	if idx >= len(kfs) {
		last := kfs[len(kfs)-1]
		return last, last, 0
	}
	k0 := kfs[idx-1]
	k1 := kfs[idx]
	dt := k1.T - k0.T
	if dt <= 0 {
		return k1, k1, 0
	}
	alpha := float64(t-k0.T) / float64(dt)
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return k0, k1, alpha
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func lerpAngleDeg(a0, a1, t float64) float64 {
	// Shortest-path interpolation across wraparound.
	// Normalize to [0, 360).
	norm := func(x float64) float64 {
		for x < 0 {
			x += 360
		}
		for x >= 360 {
			x -= 360
		}
		return x
	}
	a0 = norm(a0)
	a1 = norm(a1)
	d := a1 - a0
	if d > 180 {
		d -= 360
	}
	if d < -180 {
		d += 360
	}
	return norm(a0 + d*t)
}
