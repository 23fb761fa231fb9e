package runner

import (
	"errors"
	"time"
)

// Outcome is the immutable result of one worker: either a success carrying
// the elapsed round-trip time or a failure carrying the error.
type Outcome struct {
	Worker  int
	Elapsed time.Duration
	Err     error
}

// Success builds a successful outcome.
func Success(elapsed time.Duration) Outcome {
	if elapsed < 0 {
		elapsed = 0
	}
	return Outcome{Elapsed: elapsed}
}

// Failure builds a failed outcome. A nil error is replaced so the outcome
// still reads as a failure.
func Failure(err error) Outcome {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Outcome{Err: err}
}

// OK reports whether the request completed without a transport error.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// ElapsedMs returns the elapsed time in whole milliseconds, truncated.
func (o Outcome) ElapsedMs() int64 {
	return o.Elapsed.Milliseconds()
}

// Reason returns the failure text, or "" for successes.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
