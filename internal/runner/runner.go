package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var errNoExecutor = errors.New("request executor is not configured")

// Result captures execution summary.
type Result struct {
	Outcomes     []Outcome // one per worker, in spawn order
	Duration     time.Duration
	PeakInFlight int
}

// Failures counts outcomes carrying an error.
func (r Result) Failures() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.OK() {
			n++
		}
	}
	return n
}

// Runner dispatches one request per worker through a shared admission gate.
type Runner struct {
	opt Options
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// Run spawns every worker, blocks until all of them have completed and
// returns their outcomes. It never returns early because of a failed worker.
func (r *Runner) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	outcomes := make([]Outcome, r.opt.Workers)

	var wg sync.WaitGroup
	wg.Add(r.opt.Workers)
	for i := 0; i < r.opt.Workers; i++ {
		go func(id int) {
			defer wg.Done()
			out := r.work(ctx)
			out.Worker = id
			outcomes[id] = out
			if r.opt.OnOutcome != nil {
				r.opt.OnOutcome(out)
			}
		}(i)
	}
	wg.Wait()

	return Result{
		Outcomes:     outcomes,
		Duration:     time.Since(start),
		PeakInFlight: r.opt.Gate.PeakInFlight(),
	}
}

func (r *Runner) work(ctx context.Context) Outcome {
	if err := r.opt.Gate.Acquire(ctx); err != nil {
		return Failure(fmt.Errorf("awaiting admission: %w", err))
	}
	defer r.opt.Gate.Release()

	if r.opt.Executor == nil {
		return Failure(errNoExecutor)
	}
	return r.opt.Executor.Execute(ctx)
}
