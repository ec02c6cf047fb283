package nmea

import (
	"fmt"
	"strconv"
	"strings"
)

// KnotsToMSFactor converts nautical knots to meters per second.
const KnotsToMSFactor = 0.514444

// Valid reports whether line is a well-formed NMEA sentence: a '$' sentinel,
// a '*' checksum delimiter followed by two hex digits, and the two digits
// matching the XOR of all bytes between '$' and '*' (both exclusive).
//
// Malformed input of any shape yields false, never a panic.
func Valid(line string) bool {
	if len(line) < 9 { // minimal $x*HH plus headroom, matches receiver firmware output
		return false
	}
	if line[0] != '$' {
		return false
	}
	// The delimiter sits within the last 5 bytes: "*HH", optionally
	// followed by CR or CRLF. Anything further in means trailing junk.
	star := strings.LastIndexByte(line, '*')
	if star < len(line)-5 || star > len(line)-3 {
		return false
	}
	want, err := strconv.ParseUint(line[star+1:star+3], 16, 8)
	if err != nil {
		return false
	}
	return Checksum(line[1:star]) == byte(want)
}

// Checksum is the XOR of all payload bytes.
func Checksum(payload string) byte {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return ck
}

// Sentence wraps payload as a complete sentence with checksum and CRLF,
// suitable for writing to a receiver ("$<payload>*HH\r\n").
func Sentence(payload string) string {
	return fmt.Sprintf("$%s*%02X\r\n", payload, Checksum(payload))
}

// Tag returns the 5-character talker+type tag following the '$' sentinel,
// e.g. "GPRMC" or "GNGGA". The tag is cut at the first ',' or '*'; lines
// with fewer than 5 tag characters yield "".
func Tag(line string) string {
	if !strings.HasPrefix(line, "$") {
		return ""
	}
	head := line[1:]
	if i := strings.IndexAny(head, ",*"); i != -1 {
		head = head[:i]
	}
	if len(head) < 5 {
		return ""
	}
	return head[:5]
}

// ParseLatLon converts an NMEA degrees+minutes coordinate to decimal degrees.
//
// raw is ddmm.mmmm for latitude (degDigits=2) or dddmm.mmmm for longitude
// (degDigits=3), without the hemisphere field. hemi may be "N"/"S"/"E"/"W"
// to apply sign, or "" when the hemisphere is not carried (the radio payload
// omits it). Malformed or empty input yields (0, false).
func ParseLatLon(raw string, hemi string, degDigits int) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || degDigits <= 0 {
		return 0, false
	}

	// Receiver noise can leave stray bytes in the field; keep digits and dot.
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' {
			b.WriteByte(c)
		}
	}
	s = b.String()
	if s == "" || !strings.ContainsRune(s, '.') || len(s) <= degDigits {
		return 0, false
	}

	deg, err := strconv.Atoi(s[:degDigits])
	if err != nil {
		return 0, false
	}
	mins, err := strconv.ParseFloat(s[degDigits:], 64)
	if err != nil {
		return 0, false
	}

	dec := float64(deg) + mins/60.0
	switch strings.ToUpper(strings.TrimSpace(hemi)) {
	case "S", "W":
		dec = -dec
	}
	return dec, true
}

// KnotsToMS converts ground speed in knots to meters per second.
func KnotsToMS(kt float64) float64 {
	return kt * KnotsToMSFactor
}

// ParseFloat parses a possibly-empty numeric field.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
