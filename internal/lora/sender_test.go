package lora

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu     sync.Mutex
	frames [][]byte
	stamps []time.Time
}

func (w *recordingWriter) Write(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames = append(w.frames, append([]byte(nil), b...))
	w.stamps = append(w.stamps, time.Now())
	return nil
}

func (w *recordingWriter) snapshot() ([][]byte, []time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]byte(nil), w.frames...), append([]time.Time(nil), w.stamps...)
}

func TestSender_ThrottleEnforcesMinInterval(t *testing.T) {
	out := &recordingWriter{}
	s := NewSender(out, func() []byte { return []byte("GPGGA,;GPRMC,") }, SenderConfig{
		MaxRateHz: 50, // 20ms min interval keeps the test quick
		Src:       Addr{ID: 1, Channel: 65},
	})

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(110 * time.Millisecond)
	s.Close()

	frames, stamps := out.snapshot()
	require.NotEmpty(t, frames)
	// 110ms at 20ms spacing allows at most ~6 transmissions plus the
	// immediate first one; no bursts.
	assert.LessOrEqual(t, len(frames), 8)
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.GreaterOrEqual(t, gap, 18*time.Millisecond, "frames %d..%d too close", i-1, i)
	}
}

func TestSender_TransmitsLatestPayload(t *testing.T) {
	out := &recordingWriter{}
	var mu sync.Mutex
	payload := []byte("GPGGA,1;GPRMC,1")
	s := NewSender(out, func() []byte {
		mu.Lock()
		defer mu.Unlock()
		return payload
	}, SenderConfig{MaxRateHz: 100, Src: Addr{ID: 1}})

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	payload = []byte("GPGGA,2;GPRMC,2")
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	s.Close()

	frames, _ := out.snapshot()
	require.NotEmpty(t, frames)
	_, body, err := SplitFrame(frames[len(frames)-1])
	require.NoError(t, err)
	assert.Equal(t, "GPGGA,2;GPRMC,2", string(body))

	snap := s.Snapshot()
	assert.Equal(t, uint64(len(frames)), snap.Frames)
	assert.Zero(t, snap.WriteErrors)
}

func TestSender_DefaultsToBroadcast(t *testing.T) {
	out := &recordingWriter{}
	s := NewSender(out, func() []byte { return nil }, SenderConfig{MaxRateHz: 100, Src: Addr{ID: 7, Channel: 65}})
	require.NoError(t, s.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)
	s.Close()

	frames, _ := out.snapshot()
	require.NotEmpty(t, frames)
	h, _, err := SplitFrame(frames[0])
	require.NoError(t, err)
	assert.Equal(t, Broadcast, h.Dst.ID)
}
