package orchestrator

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// Progress tracks a {total, done, percent} triple under lock-free
// atomics, spec §4.5's per-phase progress counter, reported the way
// the teacher's subcommands print stage-completion messages: a
// bracketed-tag Fprintf to stderr, not a structured logger.
type Progress struct {
	total uint64
	done  uint64
}

// NewProgress starts a counter against a known total (0 if the total
// is not known in advance).
func NewProgress(total uint64) *Progress {
	return &Progress{total: total}
}

// Add advances the done count by n and returns the new done count.
func (p *Progress) Add(n uint64) uint64 {
	return atomic.AddUint64(&p.done, n)
}

func (p *Progress) Done() uint64  { return atomic.LoadUint64(&p.done) }
func (p *Progress) Total() uint64 { return p.total }

// Percent reports completion, 100 if total is unknown (0).
func (p *Progress) Percent() float64 {
	if p.total == 0 {
		return 100
	}
	return float64(p.Done()) / float64(p.total) * 100
}

// Report starts a goroutine printing p's state to stderr once per
// interval, prefixed with stage, until stop is closed. The caller must
// close stop exactly once.
func Report(stage string, p *Progress, interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				fmt.Fprintf(os.Stderr, "[%s] done: %d/%d (100.0%%)\n", stage, p.Total(), p.Total())
				return
			case <-ticker.C:
				fmt.Fprintf(os.Stderr, "[%s] progress: %d/%d (%.1f%%)\n", stage, p.Done(), p.Total(), p.Percent())
			}
		}
	}()
}
