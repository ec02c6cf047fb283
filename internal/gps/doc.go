// Package gps reads NMEA sentences from the serial receiver on the flight
// payload and aggregates them into the telemetry snapshot the radio sender
// serializes.
//
// The reader owns the snapshot; consumers only ever see immutable copies
// published through atomic.Value, so a sender sampling mid-sentence cannot
// observe a torn sub-record.
package gps
