package downlink

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hablink/internal/lora"
	"hablink/internal/telemetry"
)

func TestParseFrameFields(t *testing.T) {
	rec, err := ParseFrame(frameA)
	require.NoError(t, err)

	assert.InDelta(t, 34.051890, rec.Latitude, 1e-6)
	assert.InDelta(t, 118.243683, rec.Longitude, 1e-6)
	assert.InDelta(t, 545.4, rec.Altitude, 1e-6)
	assert.InDelta(t, 22.4*0.514444, rec.Velocity, 1e-6)
	assert.Zero(t, rec.Roll)
	assert.Zero(t, rec.Pitch)
	assert.Zero(t, rec.Yaw)
}

func TestParseFramePrefersRMCPosition(t *testing.T) {
	frame := "GPGGA,123519,3403.1134,11814.6210,1,545.4;GPRMC,123519,A,3500.0000,12000.0000,022.4,084.4"
	rec, err := ParseFrame(frame)
	require.NoError(t, err)

	assert.InDelta(t, 35.0, rec.Latitude, 1e-6)
	assert.InDelta(t, 120.0, rec.Longitude, 1e-6)
}

func TestParseFrameFallsBackToGGAPosition(t *testing.T) {
	frame := "GPGGA,123519,3403.1134,11814.6210,1,545.4;GPRMC,123519,A,,,022.4,084.4"
	rec, err := ParseFrame(frame)
	require.NoError(t, err)

	assert.InDelta(t, 34.051890, rec.Latitude, 1e-6)
	assert.InDelta(t, 118.243683, rec.Longitude, 1e-6)
}

func TestParseFrameEmptyFieldsDefaultZero(t *testing.T) {
	rec, err := ParseFrame("GPGGA,,,,,;GPRMC,,,,,,")
	require.NoError(t, err)
	assert.Equal(t, Record{}, rec)
}

func TestParseFrameMissingSeparator(t *testing.T) {
	frame := strings.Replace(frameA, ";", "", 1)
	rec, err := ParseFrame(frame)
	require.NoError(t, err)
	assert.InDelta(t, 34.051890, rec.Latitude, 1e-6)
}

func TestParseFrameNoMarkers(t *testing.T) {
	_, err := ParseFrame("random radio noise")
	assert.ErrorIs(t, err, ErrUnparseable)

	_, err = ParseFrame("GPGGA,123519,3403.1134")
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestValidateBoundaries(t *testing.T) {
	ok := Record{Latitude: 90, Longitude: -180, Altitude: 50000}
	assert.NoError(t, Validate(ok))

	assert.Error(t, Validate(Record{Altitude: 50000.01}))
	assert.Error(t, Validate(Record{Altitude: -1000.5}))
	assert.Error(t, Validate(Record{Latitude: 90.0001}))
	assert.Error(t, Validate(Record{Longitude: -180.0001}))
	assert.Error(t, Validate(Record{Roll: 181}))
	assert.Error(t, Validate(Record{Pitch: -90.5}))
}

// Round trip through the transmit path: snapshot serialization, radio
// framing, frame split, parse.
func TestParseFrameRoundTrip(t *testing.T) {
	var snap telemetry.Snapshot
	gga := "$GPGGA,123519,3403.1134,N,11814.6210,W,1,08,0.9,545.4,M,46.9,M,,*47"
	rmc := "$GPRMC,123519,A,3403.1134,N,11814.6210,W,022.4,084.4,230394,003.1,W,A*6A"
	require.True(t, snap.Apply("GPGGA", strings.Split(strings.TrimPrefix(gga, "$"), ",")))
	require.True(t, snap.Apply("GPRMC", strings.Split(strings.TrimPrefix(rmc, "$"), ",")))

	src := lora.Addr{ID: 0x0001, Channel: 18}
	frame := lora.Frame([]byte(snap.Payload()), src, lora.Addr{ID: lora.Broadcast, Channel: 18})
	_, payload, err := lora.SplitFrame(frame)
	require.NoError(t, err)

	a := NewAssembler(0)
	a.Append(payload)
	a.Append([]byte(startMarker)) // next frame begins, closing the first
	frames := a.ExtractFrames()
	require.Len(t, frames, 1)

	rec, err := ParseFrame(frames[0])
	require.NoError(t, err)
	require.NoError(t, Validate(rec))
	assert.InDelta(t, 34.051890, rec.Latitude, 1e-6)
	assert.InDelta(t, 118.243683, rec.Longitude, 1e-6)
	assert.InDelta(t, 545.4, rec.Altitude, 1e-6)
	assert.InDelta(t, 22.4*0.514444, rec.Velocity, 1e-6)
}
