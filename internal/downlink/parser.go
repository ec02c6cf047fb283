package downlink

import (
	"errors"
	"fmt"
	"strings"

	"hablink/internal/nmea"
)

// ErrUnparseable marks input with no recoverable telemetry markers.
var ErrUnparseable = errors.New("downlink: no telemetry markers")

// Record is one unit-normalized telemetry sample. Roll, pitch, yaw,
// temperature and pressure are not carried on this link and are always
// zero; they are kept so the persisted row layout stays stable when other
// sensor paths are added.
type Record struct {
	Roll        float64
	Pitch       float64
	Yaw         float64
	Latitude    float64 // decimal degrees
	Longitude   float64 // decimal degrees
	Altitude    float64 // meters MSL
	Velocity    float64 // m/s, from ground speed in knots
	Temperature float64
	Pressure    float64
}

// Payload field indices, matching the transmitter's serialization:
//
//	GPGGA,time,lat,lon,fix,alt
//	GPRMC,time,status,lat,lon,speed_kt,track
const (
	ggaLatIdx = 1
	ggaLonIdx = 2
	ggaAltIdx = 4

	rmcLatIdx   = 2
	rmcLonIdx   = 3
	rmcSpeedIdx = 4
)

// ParseFrame converts one reassembled frame into a Record. Fields absent or
// malformed in the source default to zero; the record is always complete.
// Frames lacking either marker yield ErrUnparseable.
//
// The RMC coordinates are preferred over the GGA ones when present, since
// RMC carries the active-fix position.
func ParseFrame(text string) (Record, error) {
	text = strings.TrimSpace(text)
	ggaIdx := strings.Index(text, startMarker)
	if ggaIdx == -1 || !strings.Contains(text, secondMarker) {
		return Record{}, ErrUnparseable
	}
	sub := text[ggaIdx:]

	// Split the two segments on the first ';'. A frame that lost its
	// separator to noise is still usable if the second marker survives.
	var ggaPart, rest string
	if semi := strings.IndexByte(sub, ';'); semi != -1 {
		ggaPart, rest = sub[:semi], sub[semi+1:]
	} else {
		rmcStart := strings.Index(sub, secondMarker)
		if rmcStart == -1 {
			return Record{}, ErrUnparseable
		}
		ggaPart, rest = sub[:rmcStart], sub[rmcStart:]
	}

	rmcIdx := strings.Index(rest, secondMarker)
	if rmcIdx == -1 {
		return Record{}, ErrUnparseable
	}
	rmcPart := rest[rmcIdx:]

	ggaFields := segmentFields(ggaPart, startMarker)
	rmcFields := segmentFields(rmcPart, secondMarker)

	ggaLat := field(ggaFields, ggaLatIdx)
	ggaLon := field(ggaFields, ggaLonIdx)
	ggaAlt := field(ggaFields, ggaAltIdx)
	rmcLat := field(rmcFields, rmcLatIdx)
	rmcLon := field(rmcFields, rmcLonIdx)
	rmcSpeed := field(rmcFields, rmcSpeedIdx)

	// Prefer RMC lat/lon when present, fall back to GGA.
	latSrc := rmcLat
	if latSrc == "" {
		latSrc = ggaLat
	}
	lonSrc := rmcLon
	if lonSrc == "" {
		lonSrc = ggaLon
	}

	var rec Record
	// The payload omits hemisphere fields; coordinates arrive unsigned.
	if lat, ok := nmea.ParseLatLon(latSrc, "", 2); ok {
		rec.Latitude = lat
	}
	if lon, ok := nmea.ParseLatLon(lonSrc, "", 3); ok {
		rec.Longitude = lon
	}
	if alt, ok := nmea.ParseFloat(ggaAlt); ok {
		rec.Altitude = alt
	}
	if kt, ok := nmea.ParseFloat(rmcSpeed); ok {
		rec.Velocity = nmea.KnotsToMS(kt)
	}
	return rec, nil
}

// segmentFields strips control characters and splits a marker-prefixed
// segment into its comma-separated fields.
func segmentFields(segment, marker string) []string {
	segment = cleanText([]byte(segment))
	if !strings.HasPrefix(segment, marker) {
		return nil
	}
	return strings.Split(segment[len(marker):], ",")
}

func field(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[idx])
}

// Physical range bounds for acceptance. A record violating any of them is
// rejected whole; values are reported, never clamped.
const (
	minLatitude  = -90.0
	maxLatitude  = 90.0
	minLongitude = -180.0
	maxLongitude = 180.0
	minAltitude  = -1000.0
	maxAltitude  = 50000.0
)

// Validate checks a parsed record against physical ranges.
func Validate(r Record) error {
	switch {
	case r.Roll < -180 || r.Roll > 180:
		return fmt.Errorf("downlink: roll %.4f out of range [-180, 180]", r.Roll)
	case r.Pitch < -90 || r.Pitch > 90:
		return fmt.Errorf("downlink: pitch %.4f out of range [-90, 90]", r.Pitch)
	case r.Yaw < -180 || r.Yaw > 180:
		return fmt.Errorf("downlink: yaw %.4f out of range [-180, 180]", r.Yaw)
	case r.Latitude < minLatitude || r.Latitude > maxLatitude:
		return fmt.Errorf("downlink: latitude %.6f out of range [%g, %g]", r.Latitude, minLatitude, maxLatitude)
	case r.Longitude < minLongitude || r.Longitude > maxLongitude:
		return fmt.Errorf("downlink: longitude %.6f out of range [%g, %g]", r.Longitude, minLongitude, maxLongitude)
	case r.Altitude < minAltitude || r.Altitude > maxAltitude:
		return fmt.Errorf("downlink: altitude %.2f out of range [%g, %g]", r.Altitude, minAltitude, maxAltitude)
	}
	return nil
}
