package subprocess

import (
	"strings"
	"sync"
)

const defaultMaxLines = 100

// Tail is an io.Writer that keeps the last MaxLines lines written to it.
// Encoder children get one as stderr so failures can be reported with a
// diagnostic without buffering the whole output.
type Tail struct {
	MaxLines int

	mu      sync.Mutex
	lines   []string
	partial []byte
}

func (t *Tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, b := range p {
		if b == '\n' {
			t.push(string(t.partial))
			t.partial = t.partial[:0]
			continue
		}
		t.partial = append(t.partial, b)
	}
	return len(p), nil
}

func (t *Tail) push(line string) {
	max := t.MaxLines
	if max <= 0 {
		max = defaultMaxLines
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > max {
		t.lines = t.lines[len(t.lines)-max:]
	}
}

func (t *Tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.partial) == 0 {
		return strings.Join(t.lines, "\n")
	}
	return strings.Join(append(append([]string{}, t.lines...), string(t.partial)), "\n")
}
