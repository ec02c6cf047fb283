// Package downlink reassembles and decodes the telemetry stream received
// over the radio link: frame recovery from the raw byte stream, field
// extraction into unit-normalized records, and physical range acceptance.
package downlink
