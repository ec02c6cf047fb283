package gps

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"hablink/internal/nmea"
)

const (
	responseWait = 3 * time.Second
	settleDelay  = 200 * time.Millisecond
)

// configureReceiver sends the PA1616S bring-up sequence: 1Hz fix rate, NMEA
// baud, DGPS via WAAS, SBAS integrity mode, WGS84 datum. Each setting is
// queried first and only written when it differs, then confirmed.
//
// Everything here is best effort. The receiver keeps emitting NMEA whether
// or not it acknowledges PMTK, so failures are logged and ignored.
func configureReceiver(w io.Writer, scan *bufio.Scanner, baud int) {
	log.Printf("gps configuring receiver")

	send(w, "PMTK220,1000")
	send(w, fmt.Sprintf("PMTK251,%d", baud))

	ensure(w, scan, setting{query: "PMTK401", set: "PMTK301", ack: "PMTK501", arg: "2", intent: "set DGPS to WAAS"})
	ensure(w, scan, setting{query: "PMTK413", set: "PMTK313", ack: "PMTK513", arg: "1", intent: "enable SBAS"})
	ensure(w, scan, setting{query: "PMTK419", set: "PMTK319", ack: "PMTK519", arg: "1", intent: "set SBAS to integrity mode"})
	ensure(w, scan, setting{query: "PMTK430", set: "PMTK330", ack: "PMTK530", arg: "0", intent: "set datum to WGS84"})
}

type setting struct {
	query  string
	set    string
	ack    string
	arg    string
	intent string
}

func send(w io.Writer, payload string) {
	if _, err := w.Write([]byte(nmea.Sentence(payload))); err != nil {
		log.Printf("gps command write failed: %v", err)
	}
}

// ensure queries a setting, writes it when the answer differs, and confirms
// the write with a second query.
func ensure(w io.Writer, scan *bufio.Scanner, s setting) {
	send(w, s.query)
	resp, ok := waitFor(scan, s.ack, responseWait)
	if !ok {
		log.Printf("gps %s: no response to query", s.intent)
		return
	}
	want := s.ack + "," + s.arg
	if strings.Contains(resp, want) {
		return
	}

	send(w, s.set+","+s.arg)
	time.Sleep(settleDelay)
	send(w, s.query)
	if _, ok := waitFor(scan, want, responseWait); !ok {
		log.Printf("gps failed to %s", s.intent)
	}
}

// waitFor scans lines until one contains substr or the deadline passes.
// The serial port's bounded read timeout keeps individual Scan calls from
// blocking past the deadline by much.
func waitFor(scan *bufio.Scanner, substr string, timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !scan.Scan() {
			return "", false
		}
		line := strings.TrimSpace(scan.Text())
		if strings.Contains(line, substr) {
			return line, true
		}
	}
	return "", false
}
