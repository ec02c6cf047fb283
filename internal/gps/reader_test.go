package gps

import (
	"fmt"
	"testing"

	"hablink/internal/nmea"
)

func line(payload string) string {
	return fmt.Sprintf("$%s*%02X", payload, nmea.Checksum(payload))
}

const (
	ggaPayload = "GPGGA,170834,3403.1134,N,11814.6210,W,1,05,1.5,280.2,M,-34.0,M,,"
	rmcPayload = "GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W,A"
)

func TestHandleLine_AppliesValidSentence(t *testing.T) {
	st := newReaderState(nil, false)
	if !st.handleLine(line(ggaPayload)) {
		t.Fatalf("expected applied")
	}
	if st.sentences != 1 {
		t.Fatalf("sentences=%d want 1", st.sentences)
	}
	if st.tel.Fix.Lat != "3403.1134" {
		t.Fatalf("unexpected fix: %+v", st.tel.Fix)
	}
}

func TestHandleLine_RejectsBadChecksum(t *testing.T) {
	st := newReaderState(nil, false)
	good := line(ggaPayload)
	bad := good[:len(good)-2] + "00"
	if st.handleLine(bad) {
		t.Fatalf("expected rejected")
	}
	if st.rejected != 1 || st.sentences != 0 {
		t.Fatalf("rejected=%d sentences=%d", st.rejected, st.sentences)
	}
}

func TestHandleLine_ChecksumToggle(t *testing.T) {
	st := newReaderState(nil, true)
	good := line(ggaPayload)
	bad := good[:len(good)-2] + "00"
	if !st.handleLine(bad) {
		t.Fatalf("expected applied with enforcement off")
	}
}

func TestHandleLine_TalkerFilter(t *testing.T) {
	st := newReaderState([]string{"GPRMC"}, false)
	if st.handleLine(line(ggaPayload)) {
		t.Fatalf("gga must be filtered")
	}
	if st.filtered != 1 {
		t.Fatalf("filtered=%d want 1", st.filtered)
	}
	if !st.handleLine(line(rmcPayload)) {
		t.Fatalf("rmc must pass the filter")
	}
}

func TestHandleLine_UnknownTagContinues(t *testing.T) {
	st := newReaderState(nil, false)
	st.handleLine(line(ggaPayload))
	before := st.tel.Clone()

	if st.handleLine(line("GPZDA,201530.00,04,07,2002,00,00")) {
		t.Fatalf("unknown tag must be a no-op")
	}
	if st.unknown != 1 {
		t.Fatalf("unknown=%d want 1", st.unknown)
	}
	if before.Payload() != st.tel.Payload() {
		t.Fatalf("snapshot changed on unknown tag")
	}

	// The reader keeps going afterwards.
	if !st.handleLine(line(rmcPayload)) {
		t.Fatalf("expected applied after unknown tag")
	}
}

func TestHandleLine_NoiseAndEmptyLines(t *testing.T) {
	st := newReaderState(nil, false)
	for _, l := range []string{"", "   ", "garbage", "\x00\x01\x02"} {
		if st.handleLine(l) {
			t.Fatalf("noise %q must not apply", l)
		}
	}
	if st.sentences != 0 {
		t.Fatalf("sentences=%d want 0", st.sentences)
	}
}

func TestHandleLine_TruncatedRecognizedSentence(t *testing.T) {
	st := newReaderState(nil, false)
	if st.handleLine(line("GPGGA,170834,3403.1134,N")) {
		t.Fatalf("truncated sentence must not apply")
	}
	if st.rejected != 1 {
		t.Fatalf("rejected=%d want 1", st.rejected)
	}
}
