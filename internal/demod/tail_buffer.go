package demod

import "sync"

const maxLineBytes = 16 * 1024

type tailBuffer struct {
	mu       sync.Mutex
	maxLines int
	lines    []string
}

func newTailBuffer(maxLines int) *tailBuffer {
	if maxLines < 0 {
		maxLines = 0
	}
	return &tailBuffer{maxLines: maxLines, lines: make([]string, 0, maxLines)}
}

func (t *tailBuffer) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.maxLines == 0 {
		return
	}
	if len(line) > maxLineBytes {
		line = line[:maxLineBytes]
	}
	if len(t.lines) < t.maxLines {
		t.lines = append(t.lines, line)
		return
	}
	copy(t.lines, t.lines[1:])
	t.lines[len(t.lines)-1] = line
}

func (t *tailBuffer) snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, 0, len(t.lines))
	out = append(out, t.lines...)
	return out
}
