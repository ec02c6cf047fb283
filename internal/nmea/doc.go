// Package nmea implements the line-level pieces of the NMEA 0183 text
// protocol that the telemetry link depends on:
// - sentence checksum validation and talker/type tag extraction
// - sentence construction for proprietary configuration commands (PMTK)
// - ddmm.mmmm/dddmm.mmmm coordinate conversion and knots to m/s
//
// Field-level interpretation of sentences lives in internal/telemetry.
package nmea
