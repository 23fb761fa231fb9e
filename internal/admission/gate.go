package admission

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// PollInterval is how long a waiting worker sleeps between admission checks.
const PollInterval = 10 * time.Millisecond

// Mode selects the primitive backing a bounded gate.
type Mode string

const (
	ModePoll      Mode = "poll"
	ModeSemaphore Mode = "semaphore"
)

// Gate admits at most Limit concurrent holders.
type Gate interface {
	// Acquire blocks until the caller is admitted or ctx is done.
	Acquire(ctx context.Context) error
	// Release returns a slot obtained by a successful Acquire.
	Release()
	// InFlight reports the number of currently admitted holders.
	InFlight() int
	// PeakInFlight reports the highest InFlight value observed so far.
	PeakInFlight() int
	// Limit returns the configured bound, or 0 when unbounded.
	Limit() int
}

// New returns a gate for the given mode and limit. A limit <= 0 yields an
// unbounded gate regardless of mode; callers reject explicit zero limits
// before reaching here.
func New(mode Mode, limit int) Gate {
	if limit <= 0 {
		return &unboundedGate{}
	}
	switch mode {
	case ModeSemaphore:
		return newSemaphoreGate(limit)
	default:
		return newPollGate(limit, PollInterval)
	}
}

// counter tracks in-flight and peak holders under a mutex.
type counter struct {
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (c *counter) inc() {
	c.mu.Lock()
	c.incLocked()
	c.mu.Unlock()
}

func (c *counter) incLocked() {
	c.inFlight++
	if c.inFlight > c.peak {
		c.peak = c.inFlight
	}
}

func (c *counter) dec() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight > 0 {
		c.inFlight--
	}
}

func (c *counter) load() (inFlight, peak int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight, c.peak
}

type unboundedGate struct {
	counter
}

// Acquire never blocks; the count is kept only for reporting.
func (g *unboundedGate) Acquire(context.Context) error {
	g.inc()
	return nil
}

func (g *unboundedGate) Release() { g.dec() }

func (g *unboundedGate) InFlight() int {
	n, _ := g.load()
	return n
}

func (g *unboundedGate) PeakInFlight() int {
	_, p := g.load()
	return p
}

func (g *unboundedGate) Limit() int { return 0 }

// pollGate checks the shared counter under its lock and, when the bound is
// reached, unlocks and sleeps for interval before checking again. The check
// and the increment happen under the same critical section.
type pollGate struct {
	counter
	limit    int
	interval time.Duration
}

func newPollGate(limit int, interval time.Duration) *pollGate {
	if interval <= 0 {
		interval = PollInterval
	}
	return &pollGate{limit: limit, interval: interval}
}

func (g *pollGate) Acquire(ctx context.Context) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		g.mu.Lock()
		if g.inFlight < g.limit {
			g.incLocked()
			g.mu.Unlock()
			return nil
		}
		g.mu.Unlock()

		if timer == nil {
			timer = time.NewTimer(g.interval)
		} else {
			timer.Reset(g.interval)
		}
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (g *pollGate) Release() { g.dec() }

func (g *pollGate) InFlight() int {
	n, _ := g.load()
	return n
}

func (g *pollGate) PeakInFlight() int {
	_, p := g.load()
	return p
}

func (g *pollGate) Limit() int { return g.limit }

type semaphoreGate struct {
	counter
	sem   *semaphore.Weighted
	limit int
}

func newSemaphoreGate(limit int) *semaphoreGate {
	return &semaphoreGate{sem: semaphore.NewWeighted(int64(limit)), limit: limit}
}

func (g *semaphoreGate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.inc()
	return nil
}

// Release decrements the counter before handing the slot back so the counter
// never exceeds the limit while a new holder is being admitted.
func (g *semaphoreGate) Release() {
	g.dec()
	g.sem.Release(1)
}

func (g *semaphoreGate) InFlight() int {
	n, _ := g.load()
	return n
}

func (g *semaphoreGate) PeakInFlight() int {
	_, p := g.load()
	return p
}

func (g *semaphoreGate) Limit() int { return g.limit }
