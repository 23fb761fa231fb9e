package runner

import (
	"context"

	"github.com/torosent/medusa/internal/admission"
)

// Executor performs a single timed operation.
// Implementations report transport failures through Outcome.Err rather than
// panicking or retrying.
type Executor interface {
	Execute(ctx context.Context) Outcome
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context) Outcome

func (f ExecutorFunc) Execute(ctx context.Context) Outcome { return f(ctx) }

// Options configure the Runner.
type Options struct {
	Workers   int            // number of workers, each issuing exactly one request
	Gate      admission.Gate // shared admission gate (nil means unbounded)
	Executor  Executor       // request executor (required)
	OnOutcome func(Outcome)  // optional; called from worker goroutines as each completes
}

func (o *Options) normalize() {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Gate == nil {
		o.Gate = admission.New(admission.ModePoll, 0)
	}
}
