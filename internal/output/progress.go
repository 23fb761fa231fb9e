package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/medusa/internal/runner"
)

// ProgressReporter displays how many workers have completed while the burst
// is still running.
type ProgressReporter struct {
	total     int
	completed int64
	failed    int64
	interval  time.Duration
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
	start     time.Time
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(total int, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		total:    total,
		interval: interval,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
		start:    time.Now(),
	}
}

// Observe records one finished worker. Safe for concurrent use; intended as
// the runner's OnOutcome hook.
func (p *ProgressReporter) Observe(out runner.Outcome) {
	atomic.AddInt64(&p.completed, 1)
	if !out.OK() {
		atomic.AddInt64(&p.failed, 1)
	}
}

// Start begins displaying progress updates in a background goroutine. The
// ticker is created here and stopped by Stop.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	if p.interval <= 0 {
		p.interval = time.Second
	}
	p.ticker = time.NewTicker(p.interval)
	go p.run()
}

// Stop halts progress updates and prints the final line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	defer p.ticker.Stop()
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, p.line())
		case <-p.done:
			fmt.Fprintln(p.writer, p.line())
			return
		}
	}
}

func (p *ProgressReporter) line() string {
	return fmt.Sprintf("\rCompleted: %d/%d | Failures: %d | Elapsed: %s",
		atomic.LoadInt64(&p.completed), p.total, atomic.LoadInt64(&p.failed),
		time.Since(p.start).Truncate(time.Millisecond))
}
