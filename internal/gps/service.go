package gps

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"hablink/internal/telemetry"
)

// Config controls the GPS reader.
//
// The PA1616S outputs NMEA at 9600 baud by default on the payload's second
// UART. Device is required; the payload's wiring is fixed, so there is no
// auto-detection here.
type Config struct {
	Device string
	Baud   int

	// TalkerFilter, when non-empty, is the set of accepted 5-character tags
	// (e.g. GPGGA, GPRMC). Empty accepts all recognized sentence types.
	TalkerFilter []string

	// AllowBadChecksum disables checksum enforcement. Only useful on the
	// bench with hand-typed sentences.
	AllowBadChecksum bool

	// Init sends the receiver bring-up sequence (fix rate, DGPS, SBAS,
	// datum) before the read loop starts. Best effort: a receiver that
	// ignores PMTK still produces usable output.
	Init bool
}

// Status is the published state of the reader: counters plus the latest
// telemetry snapshot.
type Status struct {
	Device string `json:"device,omitempty"`
	Baud   int    `json:"baud,omitempty"`

	Sentences uint64 `json:"sentences"`
	Rejected  uint64 `json:"rejected"`
	Filtered  uint64 `json:"filtered"`
	Unknown   uint64 `json:"unknown"`

	LastError string `json:"last_error,omitempty"`

	Telemetry telemetry.Snapshot `json:"-"`
}

type Service struct {
	cfg Config

	// open is openSerial; tests swap in a pipe.
	open func(path string, baud int) (*os.File, error)

	cancel context.CancelFunc
	wg     sync.WaitGroup

	last atomic.Value // Status

	mu     sync.Mutex
	closer io.Closer
}

func New(cfg Config) *Service {
	s := &Service{cfg: cfg, open: openSerial}
	s.last.Store(Status{Device: cfg.Device, Baud: cfg.Baud})
	return s
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("gps service is nil")
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}
	if strings.TrimSpace(s.cfg.Device) == "" {
		return fmt.Errorf("gps device is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	baud := s.cfg.Baud
	if baud == 0 {
		baud = 9600
	}

	f, err := s.open(s.cfg.Device, baud)
	if err != nil {
		s.setErrorLocked(fmt.Sprintf("gps open failed device=%s baud=%d: %v", s.cfg.Device, baud, err))
		return err
	}
	s.closer = f

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	// Publish the empty status before the reader runs so a fast first
	// sentence cannot be overwritten by it.
	s.last.Store(Status{Device: s.cfg.Device, Baud: baud})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			_ = f.Close()
		}()

		log.Printf("gps enabled device=%s baud=%d", s.cfg.Device, baud)

		scanner := bufio.NewScanner(f)
		// NMEA sentences are typically < 82 chars, but allow some headroom.
		scanner.Buffer(make([]byte, 0, 256), 4096)

		if s.cfg.Init {
			configureReceiver(f, scanner, baud)
		}

		st := newReaderState(s.cfg.TalkerFilter, s.cfg.AllowBadChecksum)

		for {
			select {
			case <-childCtx.Done():
				return
			default:
			}

			if !scanner.Scan() {
				err := scanner.Err()
				if err == nil {
					err = io.EOF
				}
				s.setError(fmt.Sprintf("gps read stopped: %v", err))
				return
			}

			if st.handleLine(scanner.Text()) {
				s.publish(st)
			}
		}
	}()

	return nil
}

// publish stores an immutable copy of the reader state. The read loop is
// the only writer; senders and status endpoints only ever load.
func (s *Service) publish(st *readerState) {
	cur := s.Latest()
	cur.Sentences = st.sentences
	cur.Rejected = st.rejected
	cur.Filtered = st.filtered
	cur.Unknown = st.unknown
	cur.Telemetry = st.tel.Clone()
	s.last.Store(cur)
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	closer := s.closer
	s.cancel = nil
	s.closer = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if closer != nil {
		_ = closer.Close()
	}
	s.wg.Wait()
}

// Latest returns the most recently published status. Safe from any
// goroutine; the returned value is a private copy.
func (s *Service) Latest() Status {
	if s == nil {
		return Status{}
	}
	v := s.last.Load()
	if v == nil {
		return Status{}
	}
	return v.(Status)
}

// Payload serializes the latest telemetry snapshot for the radio link.
func (s *Service) Payload() []byte {
	st := s.Latest()
	return []byte(st.Telemetry.Payload())
}

func (s *Service) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErrorLocked(msg)
}

func (s *Service) setErrorLocked(msg string) {
	cur := s.Latest()
	cur.LastError = msg
	s.last.Store(cur)
}
