// Package demod keeps an external demodulator process alive. The UDP
// downlink source expects something like an rtl_fm pipeline to decode the
// radio and push raw bytes at the listener; this supervises that process
// and restarts it with backoff when it dies.
package demod

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	Command string
	Args    []string

	// Restart re-runs the process after it exits.
	Restart bool

	BackoffInitial time.Duration
	BackoffMax     time.Duration

	// StderrTailLines bounds the captured stderr tail shown in status.
	StderrTailLines int
}

type Supervisor struct {
	cfg Config

	started atomic.Bool
	closed  atomic.Bool

	mu      sync.RWMutex
	pid     int
	state   string
	lastErr string

	stderr *tailBuffer

	cancel context.CancelFunc
	done   chan struct{}
}

type Snapshot struct {
	Command   string   `json:"command"`
	Running   bool     `json:"running"`
	PID       int      `json:"pid,omitempty"`
	State     string   `json:"state"`
	LastError string   `json:"last_error,omitempty"`
	Stderr    []string `json:"stderr_tail,omitempty"`
}

func NewSupervisor(cfg Config) (*Supervisor, error) {
	cfg.Command = strings.TrimSpace(cfg.Command)
	if cfg.Command == "" {
		return nil, fmt.Errorf("demod command is required")
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = 250 * time.Millisecond
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 10 * time.Second
	}
	if cfg.StderrTailLines <= 0 {
		cfg.StderrTailLines = 100
	}

	return &Supervisor{
		cfg:    cfg,
		state:  "stopped",
		stderr: newTailBuffer(cfg.StderrTailLines),
		done:   make(chan struct{}),
	}, nil
}

func (s *Supervisor) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("demod supervisor is nil")
	}
	if s.closed.Load() {
		return fmt.Errorf("demod supervisor is closed")
	}
	if s.started.Swap(true) {
		return fmt.Errorf("demod supervisor already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.setState("starting", "")
	go s.runLoop(runCtx)
	return nil
}

func (s *Supervisor) Close() {
	if s == nil {
		return
	}
	if s.closed.Swap(true) {
		return
	}
	if !s.started.Load() {
		close(s.done)
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

func (s *Supervisor) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.RLock()
	pid := s.pid
	state := s.state
	lastErr := s.lastErr
	s.mu.RUnlock()

	return Snapshot{
		Command:   s.cfg.Command,
		Running:   pid != 0 && state == "running",
		PID:       pid,
		State:     state,
		LastError: lastErr,
		Stderr:    s.stderr.snapshot(),
	}
}

func (s *Supervisor) runLoop(ctx context.Context) {
	defer close(s.done)

	backoff := s.cfg.BackoffInitial
	for {
		select {
		case <-ctx.Done():
			s.setState("stopped", "")
			return
		default:
		}

		exitErr := s.runOnce(ctx)
		if ctx.Err() != nil {
			s.setState("stopped", "")
			return
		}

		if exitErr != nil {
			s.setState("exited", exitErr.Error())
		} else {
			s.setState("exited", "")
		}

		if !s.cfg.Restart {
			return
		}

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			s.setState("stopped", "")
			return
		case <-t.C:
		}
		backoff *= 2
		if backoff > s.cfg.BackoffMax {
			backoff = s.cfg.BackoffMax
		}
		s.setState("restarting", "")
	}
}

func (s *Supervisor) runOnce(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, s.cfg.Command, s.cfg.Args...)

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	pid := 0
	if cmd.Process != nil {
		pid = cmd.Process.Pid
	}
	s.mu.Lock()
	s.pid = pid
	s.state = "running"
	s.lastErr = ""
	s.mu.Unlock()

	tailDone := make(chan struct{})
	go func() {
		defer close(tailDone)
		readLinesToTail(stderrPipe, s.stderr)
	}()

	waitErr := cmd.Wait()
	<-tailDone

	s.mu.Lock()
	s.pid = 0
	s.mu.Unlock()

	if waitErr == nil || errors.Is(waitErr, context.Canceled) {
		return nil
	}
	return waitErr
}

func (s *Supervisor) setState(state string, lastErr string) {
	s.mu.Lock()
	s.state = state
	if strings.TrimSpace(lastErr) != "" {
		s.lastErr = lastErr
	}
	s.mu.Unlock()
}

func readLinesToTail(r io.Reader, t *tailBuffer) {
	if r == nil || t == nil {
		return
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		t.add(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.add("[tail error] " + err.Error())
	}
}
