// Package ground runs the receive side of the telemetry link: it polls a
// byte source (radio modem or UDP), reassembles frames, parses and
// validates records, and fans them out to persistence sinks.
package ground

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"hablink/internal/downlink"
)

// Source delivers raw downlink bytes. A nil, nil return means no data was
// available within the source's read timeout.
type Source interface {
	Read() ([]byte, error)
}

// Sink consumes validated telemetry records.
type Sink interface {
	Write(downlink.Record) error
}

// Config controls the receive pipeline.
type Config struct {
	// BufferCap bounds the reassembly buffer. Zero selects the default.
	BufferCap int

	// PollInterval is the idle sleep when the source had nothing. Zero
	// defaults to 50ms.
	PollInterval time.Duration

	// StatusEvery is the period of the counter log line. Zero defaults to
	// 30s.
	StatusEvery time.Duration
}

// Snapshot reports pipeline counters and the last accepted record.
type Snapshot struct {
	Packets     uint64 `json:"packets"`
	ParseErrors uint64 `json:"parse_errors"`
	Rejected    uint64 `json:"rejected"`
	ReadErrors  uint64 `json:"read_errors"`
	SinkErrors  uint64 `json:"sink_errors"`

	LastError string `json:"last_error,omitempty"`

	Last downlink.Record `json:"last"`
}

type Service struct {
	cfg   Config
	src   Source
	sinks []Sink

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	snap    Snapshot
}

// New wires a source to zero or more record sinks.
func New(src Source, sinks []Sink, cfg Config) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}
	if cfg.StatusEvery <= 0 {
		cfg.StatusEvery = 30 * time.Second
	}
	return &Service{cfg: cfg, src: src, sinks: sinks}
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("ground service is nil")
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}
	if s.src == nil {
		return fmt.Errorf("ground service needs a source")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.started = true

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(childCtx)
	}()
	return nil
}

func (s *Service) run(ctx context.Context) {
	asm := downlink.NewAssembler(s.cfg.BufferCap)
	log.Printf("ground pipeline up sinks=%d poll=%v", len(s.sinks), s.cfg.PollInterval)

	status := time.NewTicker(s.cfg.StatusEvery)
	defer status.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-status.C:
			snap := s.Snapshot()
			log.Printf("ground status packets=%d parse_errors=%d rejected=%d read_errors=%d",
				snap.Packets, snap.ParseErrors, snap.Rejected, snap.ReadErrors)
		default:
		}

		data, err := s.src.Read()
		if err != nil {
			s.mu.Lock()
			s.snap.ReadErrors++
			s.snap.LastError = err.Error()
			s.mu.Unlock()
			log.Printf("ground read error: %v", err)
			if !sleepCtx(ctx, s.cfg.PollInterval) {
				return
			}
			continue
		}
		if len(data) == 0 {
			if !sleepCtx(ctx, s.cfg.PollInterval) {
				return
			}
			continue
		}

		asm.Append(data)
		for _, frame := range asm.ExtractFrames() {
			s.handleFrame(frame)
		}
	}
}

func (s *Service) handleFrame(frame string) {
	rec, err := downlink.ParseFrame(frame)
	if err != nil {
		s.mu.Lock()
		s.snap.ParseErrors++
		s.mu.Unlock()
		return
	}
	if err := downlink.Validate(rec); err != nil {
		s.mu.Lock()
		s.snap.Rejected++
		s.snap.LastError = err.Error()
		s.mu.Unlock()
		log.Printf("ground record rejected: %v", err)
		return
	}

	s.mu.Lock()
	s.snap.Packets++
	s.snap.Last = rec
	s.mu.Unlock()

	for _, sink := range s.sinks {
		if err := sink.Write(rec); err != nil {
			s.mu.Lock()
			s.snap.SinkErrors++
			s.snap.LastError = err.Error()
			s.mu.Unlock()
			log.Printf("ground sink error: %v", err)
		}
	}
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Snapshot returns a copy of the pipeline counters.
func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
