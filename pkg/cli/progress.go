package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"mercator-hq/vigil/pkg/safety"
)

// BatchProgress tracks a batch of evaluations as they complete.
type BatchProgress interface {
	Begin(total int)
	Record(level safety.Level)
	Fail(err error)
	Done()
}

// Tally writes a one-line running summary of a batch: items evaluated,
// items flagged above safe, and the highest level seen so far.
type Tally struct {
	mu      sync.Mutex
	w       io.Writer
	noun    string
	now     func() time.Time
	started time.Time

	total   int
	done    int
	flagged int
	highest safety.Level
}

// NewTally returns a Tally writing to w (os.Stderr when nil). noun names
// the evaluated items, e.g. "sessions".
func NewTally(w io.Writer, noun string) *Tally {
	if w == nil {
		w = os.Stderr
	}
	if noun == "" {
		noun = "items"
	}
	return &Tally{w: w, noun: noun, now: time.Now}
}

// Begin resets the tally for a batch of total items.
func (t *Tally) Begin(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total = total
	t.done, t.flagged = 0, 0
	t.highest = safety.LevelSafe
	t.started = t.now()
	t.render()
}

// Record counts one finished evaluation.
func (t *Tally) Record(level safety.Level) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.done++
	if level != safety.LevelSafe {
		t.flagged++
	}
	t.highest = safety.Combine(t.highest, level)
	t.render()
}

// Fail reports an error that aborted the batch.
func (t *Tally) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.w, "\nbatch stopped after %d/%d %s: %v\n", t.done, t.total, t.noun, err)
}

// Done ends the summary line.
func (t *Tally) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.render()
	fmt.Fprintln(t.w)
}

func (t *Tally) render() {
	if t.total == 0 {
		return
	}
	rate := 0.0
	if elapsed := t.now().Sub(t.started).Seconds(); elapsed > 0 {
		rate = float64(t.done) / elapsed
	}
	fmt.Fprintf(t.w, "\rEvaluated %d/%d %s, %d flagged, highest %s (%.1f/s)",
		t.done, t.total, t.noun, t.flagged, t.highest, rate)
}
