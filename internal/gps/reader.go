package gps

import (
	"strings"

	"hablink/internal/nmea"
	"hablink/internal/telemetry"
)

// readerState is the single-goroutine state behind the service: the private
// telemetry snapshot plus counters. It is never shared; the service publishes
// copies of it.
type readerState struct {
	filter           map[string]bool
	allowBadChecksum bool

	tel telemetry.Snapshot

	sentences uint64 // applied
	rejected  uint64 // bad checksum or truncated fields
	filtered  uint64 // dropped by talker filter
	unknown   uint64 // valid sentence of an unsupported type
}

func newReaderState(talkerFilter []string, allowBadChecksum bool) *readerState {
	st := &readerState{allowBadChecksum: allowBadChecksum}
	if len(talkerFilter) > 0 {
		st.filter = make(map[string]bool, len(talkerFilter))
		for _, t := range talkerFilter {
			t = strings.ToUpper(strings.TrimSpace(t))
			if t != "" {
				st.filter[t] = true
			}
		}
	}
	return st
}

// handleLine classifies one raw line and applies it to the snapshot.
// It reports whether the snapshot changed. Any malformed input bumps a
// counter and is otherwise dropped; nothing here is fatal to the read loop.
func (st *readerState) handleLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "$") {
		return false
	}

	if !st.allowBadChecksum && !nmea.Valid(line) {
		st.rejected++
		return false
	}

	tag := nmea.Tag(line)
	if st.filter != nil && !st.filter[tag] {
		st.filtered++
		return false
	}
	if telemetry.TypeForTag(tag) == telemetry.TypeUnknown {
		st.unknown++
		return false
	}

	fields := strings.Split(strings.TrimPrefix(line, "$"), ",")
	if !st.tel.Apply(tag, fields) {
		// Recognized type but not enough fields to apply atomically.
		st.rejected++
		return false
	}
	st.sentences++
	return true
}
