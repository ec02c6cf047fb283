package lora

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// SenderConfig controls the downlink transmit loop.
type SenderConfig struct {
	// MaxRateHz caps the transmit rate; the loop blocks between frames so
	// the inter-frame gap is never shorter than 1/MaxRateHz. There is no
	// burst credit after idle periods.
	MaxRateHz float64

	Src Addr
	Dst Addr
}

// FrameWriter is the radio byte sink.
type FrameWriter interface {
	Write([]byte) error
}

// SenderSnapshot reports transmit-side counters.
type SenderSnapshot struct {
	Frames      uint64 `json:"frames"`
	WriteErrors uint64 `json:"write_errors"`
	LastError   string `json:"last_error,omitempty"`
}

// Sender periodically serializes the latest telemetry payload into a frame
// and writes it to the radio. It always transmits the newest available
// state; missed intervals are not queued.
type Sender struct {
	cfg     SenderConfig
	out     FrameWriter
	payload func() []byte

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	snap    SenderSnapshot
}

// NewSender wires a payload source (typically the GPS service's latest
// snapshot) to a frame writer.
func NewSender(out FrameWriter, payload func() []byte, cfg SenderConfig) *Sender {
	if cfg.Dst == (Addr{}) {
		cfg.Dst = Addr{ID: Broadcast}
	}
	return &Sender{cfg: cfg, out: out, payload: payload}
}

func (s *Sender) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("lora sender is nil")
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}
	if s.out == nil || s.payload == nil {
		return fmt.Errorf("lora sender needs an output and a payload source")
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

func (s *Sender) run(ctx context.Context) {
	minInterval := time.Second
	if s.cfg.MaxRateHz > 0 {
		minInterval = time.Duration(float64(time.Second) / s.cfg.MaxRateHz)
	}
	log.Printf("lora sender up dst=0x%04X rate=%.2fHz", s.cfg.Dst.ID, 1.0/minInterval.Seconds())

	var lastTx time.Time
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !lastTx.IsZero() {
			if wait := minInterval - time.Since(lastTx); wait > 0 {
				if !sleepCtx(ctx, wait) {
					return
				}
			}
		}
		lastTx = time.Now()

		frame := Frame(s.payload(), s.cfg.Src, s.cfg.Dst)
		if err := s.out.Write(frame); err != nil {
			s.mu.Lock()
			s.snap.WriteErrors++
			s.snap.LastError = err.Error()
			s.mu.Unlock()
			log.Printf("lora send error: %v", err)
			continue
		}
		s.mu.Lock()
		s.snap.Frames++
		s.mu.Unlock()
	}
}

func (s *Sender) Close() {
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

func (s *Sender) Snapshot() SenderSnapshot {
	if s == nil {
		return SenderSnapshot{}
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
