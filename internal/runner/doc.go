// Package runner provides the burst dispatch engine for medusa.
//
// A [Runner] spawns exactly [Options.Workers] goroutines up front. Each worker
// runs once through the same sequence and then exits:
//
//	Created -> AwaitingAdmission -> Executing -> Completed(outcome)
//
// Admission is delegated to a shared [admission.Gate]; execution to an
// [Executor]. The runner joins every worker, whatever its outcome, and returns
// the outcomes in spawn order.
//
// # Basic Usage
//
//	r := runner.New(runner.Options{
//		Workers:  100,
//		Gate:     admission.New(admission.ModePoll, 10),
//		Executor: exec,
//	})
//	result := r.Run(ctx)
//
// # Executor Interface
//
// The [Executor] interface defines what a worker executes:
//
//	type Executor interface {
//		Execute(ctx context.Context) Outcome
//	}
//
// A failed execution never affects sibling workers; there are no retries and
// no re-dispatch.
//
// # Middleware
//
//   - [WithLogging]: report failures as soon as they complete
package runner
