package replay

import (
	"fmt"
	"time"
)

// Source replays captured chunks with their recorded timing through the
// receive pipeline's polling contract: Read returns the next chunk once it
// is due, (nil, nil) while it is not.
type Source struct {
	recs  []Record
	speed float64
	loop  bool

	now func() time.Time

	idx    int
	start  time.Time
	origin time.Duration
	done   bool
}

// NewSource wraps records for pull-based replay. speed 1.0 is real time,
// 2.0 plays back twice as fast.
func NewSource(records []Record, speed float64, loop bool) (*Source, error) {
	if speed <= 0 {
		return nil, fmt.Errorf("replay speed must be > 0")
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no capture records")
	}
	return &Source{recs: records, speed: speed, loop: loop, now: time.Now}, nil
}

func (s *Source) Read() ([]byte, error) {
	if s.done {
		return nil, nil
	}
	if s.start.IsZero() {
		s.start = s.now()
	}

	for {
		if s.idx >= len(s.recs) {
			if !s.loop {
				s.done = true
				return nil, nil
			}
			s.idx = 0
			s.start = s.now()
			s.origin = 0
		}

		rec := s.recs[s.idx]
		if rec.Chunk == nil {
			// START marker.
			s.origin = rec.At
			s.start = s.now()
			s.idx++
			continue
		}

		at := rec.At - s.origin
		if at < 0 {
			at = 0
		}
		due := time.Duration(float64(at) / s.speed)
		if s.now().Sub(s.start) < due {
			return nil, nil
		}
		s.idx++
		return rec.Chunk, nil
	}
}

// Done reports whether a non-looping replay has run out of records.
func (s *Source) Done() bool {
	return s.done
}

// CaptureSource passes reads through while appending every non-empty chunk
// to a capture log.
type CaptureSource struct {
	Src interface {
		Read() ([]byte, error)
	}
	Log *Writer
}

func (c *CaptureSource) Read() ([]byte, error) {
	data, err := c.Src.Read()
	if err != nil || len(data) == 0 {
		return data, err
	}
	if werr := c.Log.WriteChunk(time.Now(), data); werr != nil {
		return data, fmt.Errorf("capture write: %w", werr)
	}
	return data, nil
}
