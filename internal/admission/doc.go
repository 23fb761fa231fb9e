// Package admission bounds how many requests may be in flight at once.
//
// A [Gate] is shared by every worker of a run. Workers call [Gate.Acquire]
// before issuing their request and [Gate.Release] once the response (or
// transport error) has arrived:
//
//	gate := admission.New(admission.ModePoll, 10)
//	if err := gate.Acquire(ctx); err != nil {
//		return err
//	}
//	defer gate.Release()
//
// A limit of zero yields an unbounded gate whose Acquire and Release are
// no-ops, so every worker runs simultaneously.
//
// # Modes
//
//   - [ModePoll]: a mutex-guarded counter checked every 10ms. Simple and
//     notification free, at the cost of up to one poll interval of admission
//     latency per waiting worker.
//   - [ModeSemaphore]: a weighted semaphore from golang.org/x/sync that wakes
//     waiters as soon as a slot frees up.
//
// Neither mode makes a fairness guarantee among waiting workers.
package admission
