package telemetry

import "strings"

// SentenceType classifies the sentence layouts the link understands.
type SentenceType int

const (
	TypeUnknown SentenceType = iota
	TypePositionFix        // GGA
	TypeActiveSatellites   // GSA
	TypeSatellitesInView   // GSV
	TypeRecommendedMinimum // RMC
	TypeGroundSpeedTrack   // VTG
)

// TypeForTag maps a 5-character talker+type tag (e.g. "GPGGA", "GNRMC") to a
// sentence type. Classification is by the trailing 3 characters so that
// multi-constellation talkers (GN, GL, ...) are handled uniformly.
func TypeForTag(tag string) SentenceType {
	if len(tag) != 5 {
		return TypeUnknown
	}
	switch strings.ToUpper(tag[2:]) {
	case "GGA":
		return TypePositionFix
	case "GSA":
		return TypeActiveSatellites
	case "GSV":
		return TypeSatellitesInView
	case "RMC":
		return TypeRecommendedMinimum
	case "VTG":
		return TypeGroundSpeedTrack
	default:
		return TypeUnknown
	}
}

// Sub-records hold fields as raw sentence text. Numeric interpretation
// happens on the ground side; the air side only aggregates and forwards.

// FixData is the position fix sentence (GGA).
type FixData struct {
	Time       string
	Lat        string
	NS         string
	Lon        string
	EW         string
	Quality    string
	Satellites string
	HDOP       string
	Altitude   string
	AltUnits   string
	GeoidSep   string
	SepUnits   string
	DGPSAge    string
	Checksum   string
}

// ActiveSatellites is the DOP and active satellites sentence (GSA).
type ActiveSatellites struct {
	SelectionMode string
	FixMode       string
	SatIDs        []string
	PDOP          string
	HDOP          string
	VDOP          string
	Checksum      string
}

// SatellitesInView is the satellites in view sentence (GSV).
type SatellitesInView struct {
	TotalMessages string
	MessageIndex  string
	Satellites    string
	SatInfo       []string
	Checksum      string
}

// RecommendedMinimum is the recommended minimum GNSS sentence (RMC).
type RecommendedMinimum struct {
	Time     string
	Status   string
	Lat      string
	NS       string
	Lon      string
	EW       string
	SpeedKt  string
	Track    string
	Date     string
	MagVar   string
	Mode     string
	Checksum string
}

// GroundSpeedTrack is the course over ground and speed sentence (VTG).
type GroundSpeedTrack struct {
	TrackTrue string
	TrueRef   string
	TrackMag  string
	MagRef    string
	SpeedKt   string
	KtUnits   string
	SpeedKmh  string
	KmhUnits  string
	Mode      string
	Checksum  string
}

// Snapshot aggregates the most recent fields per sentence type. A matching
// sentence overwrites only its own sub-record; the other four keep whatever
// they held before.
//
// The GPS reader owns a private Snapshot and publishes deep copies through
// atomic.Value, so readers never observe a sub-record torn between two
// sentences.
type Snapshot struct {
	Fix FixData
	GSA ActiveSatellites
	GSV SatellitesInView
	RMC RecommendedMinimum
	VTG GroundSpeedTrack
}

// Minimum comma-split field counts (tag at index 0) per sentence type. A
// shorter sentence is treated as truncated and applied not at all, so a
// sub-record is never half-written from one sentence.
const (
	minFixFields = 15
	minGSAFields = 18
	minGSVFields = 4
	minRMCFields = 13
	minVTGFields = 10
)

// Apply copies the positional fields of one validated sentence into the
// matching sub-record. fields is the full comma split including the tag at
// index 0. It reports whether the snapshot changed; an unrecognized tag or a
// truncated sentence is a no-op.
func (s *Snapshot) Apply(tag string, fields []string) bool {
	switch TypeForTag(tag) {
	case TypePositionFix:
		return s.applyFix(fields)
	case TypeActiveSatellites:
		return s.applyGSA(fields)
	case TypeSatellitesInView:
		return s.applyGSV(fields)
	case TypeRecommendedMinimum:
		return s.applyRMC(fields)
	case TypeGroundSpeedTrack:
		return s.applyVTG(fields)
	case TypeUnknown:
		return false
	}
	return false
}

func (s *Snapshot) applyFix(f []string) bool {
	if len(f) < minFixFields {
		return false
	}
	s.Fix = FixData{
		Time:       f[1],
		Lat:        f[2],
		NS:         f[3],
		Lon:        f[4],
		EW:         f[5],
		Quality:    f[6],
		Satellites: f[7],
		HDOP:       f[8],
		Altitude:   f[9],
		AltUnits:   f[10],
		GeoidSep:   f[11],
		SepUnits:   f[12],
		DGPSAge:    f[13],
		Checksum:   f[14],
	}
	return true
}

func (s *Snapshot) applyGSA(f []string) bool {
	if len(f) < minGSAFields {
		return false
	}
	s.GSA = ActiveSatellites{
		SelectionMode: f[1],
		FixMode:       f[2],
		SatIDs:        append([]string(nil), f[3:len(f)-4]...),
		PDOP:          f[len(f)-4],
		HDOP:          f[len(f)-3],
		VDOP:          f[len(f)-2],
		Checksum:      f[len(f)-1],
	}
	return true
}

func (s *Snapshot) applyGSV(f []string) bool {
	if len(f) < minGSVFields {
		return false
	}
	next := SatellitesInView{
		TotalMessages: f[1],
		MessageIndex:  f[2],
		Checksum:      f[len(f)-1],
	}
	// Per-satellite blocks are variable length; a bare count-only message
	// keeps the previous listing.
	if len(f) > 4 {
		next.Satellites = f[3]
		next.SatInfo = append([]string(nil), f[4:len(f)-1]...)
	} else {
		next.Satellites = s.GSV.Satellites
		next.SatInfo = s.GSV.SatInfo
	}
	s.GSV = next
	return true
}

func (s *Snapshot) applyRMC(f []string) bool {
	if len(f) < minRMCFields {
		return false
	}
	s.RMC = RecommendedMinimum{
		Time:     f[1],
		Status:   f[2],
		Lat:      f[3],
		NS:       f[4],
		Lon:      f[5],
		EW:       f[6],
		SpeedKt:  f[7],
		Track:    f[8],
		Date:     f[9],
		MagVar:   f[10],
		Mode:     f[11],
		Checksum: f[12],
	}
	return true
}

func (s *Snapshot) applyVTG(f []string) bool {
	if len(f) < minVTGFields {
		return false
	}
	v := GroundSpeedTrack{
		TrackTrue: f[1],
		TrueRef:   f[2],
		TrackMag:  f[3],
		MagRef:    f[4],
		SpeedKt:   f[5],
		KtUnits:   f[6],
		SpeedKmh:  f[7],
		KmhUnits:  f[8],
		Mode:      f[9],
	}
	// Older receivers emit the checksum as a trailing field of its own.
	if len(f) > 10 {
		v.Checksum = f[10]
	}
	s.VTG = v
	return true
}

// Clone returns a deep copy safe to publish to other goroutines.
func (s *Snapshot) Clone() Snapshot {
	out := *s
	out.GSA.SatIDs = append([]string(nil), s.GSA.SatIDs...)
	out.GSV.SatInfo = append([]string(nil), s.GSV.SatInfo...)
	return out
}

// Payload serializes the snapshot for the radio link. Only the position fix
// and recommended minimum sub-records go on the wire; the satellite and VTG
// records are aggregated for local consumers but not transmitted. Unset
// fields render as empty strings.
func (s *Snapshot) Payload() string {
	var b strings.Builder
	b.WriteString("GPGGA,")
	b.WriteString(strings.Join([]string{s.Fix.Time, s.Fix.Lat, s.Fix.Lon, s.Fix.Quality, s.Fix.Altitude}, ","))
	b.WriteString(";GPRMC,")
	b.WriteString(strings.Join([]string{s.RMC.Time, s.RMC.Status, s.RMC.Lat, s.RMC.Lon, s.RMC.SpeedKt, s.RMC.Track}, ","))
	return b.String()
}
