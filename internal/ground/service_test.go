package ground

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hablink/internal/downlink"
)

const wireFrame = "GPGGA,123519,3403.1134,11814.6210,1,545.4;GPRMC,123519,A,3403.1134,11814.6210,022.4,084.4"

// chunkSource hands out queued byte slices one Read at a time, then reports
// idle.
type chunkSource struct {
	mu     sync.Mutex
	chunks [][]byte
	errs   []error
}

func (c *chunkSource) Read() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		return nil, err
	}
	if len(c.chunks) == 0 {
		return nil, nil
	}
	data := c.chunks[0]
	c.chunks = c.chunks[1:]
	return data, nil
}

type captureSink struct {
	mu   sync.Mutex
	recs []downlink.Record
	err  error
}

func (s *captureSink) Write(rec downlink.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.recs = append(s.recs, rec)
	return nil
}

func (s *captureSink) records() []downlink.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]downlink.Record(nil), s.recs...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func TestServiceDeliversRecordsToSinks(t *testing.T) {
	src := &chunkSource{chunks: [][]byte{
		[]byte("noise" + wireFrame),
		[]byte(wireFrame),
	}}
	sink := &captureSink{}

	svc := New(src, []Sink{sink}, Config{PollInterval: time.Millisecond})
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Close()

	waitFor(t, func() bool { return len(sink.records()) >= 2 })

	recs := sink.records()
	assert.InDelta(t, 34.051890, recs[0].Latitude, 1e-6)
	assert.InDelta(t, 545.4, recs[0].Altitude, 1e-6)

	snap := svc.Snapshot()
	assert.Equal(t, uint64(2), snap.Packets)
	assert.Zero(t, snap.ParseErrors)
}

func TestServiceRejectsOutOfRangeRecords(t *testing.T) {
	bad := "GPGGA,123519,3403.1134,11814.6210,1,99999.0;GPRMC,123519,A,3403.1134,11814.6210,022.4,084.4"
	src := &chunkSource{chunks: [][]byte{[]byte(bad + wireFrame)}}
	sink := &captureSink{}

	svc := New(src, []Sink{sink}, Config{PollInterval: time.Millisecond})
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Close()

	waitFor(t, func() bool { return svc.Snapshot().Rejected >= 1 && svc.Snapshot().Packets >= 1 })

	assert.Len(t, sink.records(), 1)
	assert.Contains(t, svc.Snapshot().LastError, "altitude")
}

func TestServiceCountsReadAndSinkErrors(t *testing.T) {
	src := &chunkSource{
		errs:   []error{errors.New("port gone")},
		chunks: [][]byte{[]byte(wireFrame + wireFrame)},
	}
	sink := &captureSink{err: errors.New("disk full")}

	svc := New(src, []Sink{sink}, Config{PollInterval: time.Millisecond})
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Close()

	waitFor(t, func() bool {
		snap := svc.Snapshot()
		return snap.ReadErrors >= 1 && snap.SinkErrors >= 1
	})

	snap := svc.Snapshot()
	assert.GreaterOrEqual(t, snap.Packets, uint64(1))
	assert.Contains(t, snap.LastError, "disk full")
}

func TestServiceCloseStopsLoop(t *testing.T) {
	svc := New(&chunkSource{}, nil, Config{PollInterval: time.Millisecond})
	require.NoError(t, svc.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		svc.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
}
