package downlink

import (
	"bytes"
	"strings"
)

const (
	startMarker  = "GPGGA,"
	secondMarker = "GPRMC,"

	// Noise housekeeping when no frame marker is in sight: buffers beyond
	// noiseTrimAt are cut down to the trailing noiseKeep bytes, in case a
	// marker is split across the append boundary.
	noiseTrimAt = 2048
	noiseKeep   = 1024

	// minRMCCommas is the completion heuristic for the stream tail: once
	// the second marker's field region holds this many comma-separated
	// values the frame is considered whole. Only used when no following
	// start marker has arrived yet.
	minRMCCommas = 5

	// DefaultBufferCap bounds the reassembly buffer.
	DefaultBufferCap = 64 * 1024
)

// Assembler recovers discrete telemetry frames from the raw radio byte
// stream. The stream is unframed ASCII: a frame is "GPGGA,<...>;GPRMC,<...>"
// and may arrive split across reads, glued to receiver noise, or with the
// next frame's start overlapping the previous one's tail.
//
// Not safe for concurrent use; the receive loop owns it.
type Assembler struct {
	buf []byte
	cap int
}

// NewAssembler returns an Assembler whose buffer never exceeds capBytes
// after any append. capBytes <= 0 selects DefaultBufferCap.
func NewAssembler(capBytes int) *Assembler {
	if capBytes <= 0 {
		capBytes = DefaultBufferCap
	}
	return &Assembler{cap: capBytes}
}

// Len returns the number of buffered bytes awaiting a frame boundary.
func (a *Assembler) Len() int {
	return len(a.buf)
}

// Append adds received bytes. On overflow the newest data wins: everything
// before the last start marker is dropped, or, with no marker present, only
// the trailing cap bytes are kept.
func (a *Assembler) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	a.buf = append(a.buf, data...)
	if len(a.buf) <= a.cap {
		return
	}
	if marker := bytes.LastIndex(a.buf, []byte(startMarker)); marker != -1 {
		a.buf = a.buf[marker:]
		return
	}
	a.buf = a.buf[len(a.buf)-a.cap:]
}

// ExtractFrames returns all complete frames currently recoverable from the
// buffer, oldest first, with control characters stripped. It consumes what
// it emits and never blocks; an incomplete tail stays buffered for the next
// call.
func (a *Assembler) ExtractFrames() []string {
	var frames []string
	for {
		start := bytes.Index(a.buf, []byte(startMarker))
		if start == -1 {
			// Nothing but noise; keep only a tail in case a marker is
			// arriving split across appends.
			if len(a.buf) > noiseTrimAt {
				a.buf = a.buf[len(a.buf)-noiseKeep:]
			}
			break
		}

		// Drop leading garbage so the frame starts at the marker.
		if start > 0 {
			a.buf = a.buf[start:]
		}

		// A frame needs the separator and the second marker; until both
		// arrive the frame may still be in flight.
		semi := bytes.IndexByte(a.buf[len(startMarker):], ';')
		if semi == -1 {
			break
		}
		semi += len(startMarker)

		rmc := bytes.Index(a.buf[semi+1:], []byte(secondMarker))
		if rmc == -1 {
			break
		}
		rmc += semi + 1

		// Preferred boundary: the next frame's start marker.
		if next := bytes.Index(a.buf[rmc+len(secondMarker):], []byte(startMarker)); next != -1 {
			next += rmc + len(secondMarker)
			frames = append(frames, cleanText(a.buf[:next]))
			a.buf = a.buf[next:]
			continue
		}

		// Fallback for the stream tail: emit once the RMC field region
		// looks complete.
		if bytes.Count(a.buf[rmc+len(secondMarker):], []byte(",")) >= minRMCCommas {
			frames = append(frames, cleanText(a.buf))
			a.buf = nil
			break
		}

		// Not enough yet.
		break
	}
	return frames
}

// cleanText keeps printable characters and drops controls (CR, LF, radio
// artifacts).
func cleanText(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c >= ' ' {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
