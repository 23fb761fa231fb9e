// Package metrics turns the outcomes of a run into summary statistics.
//
// [Aggregate] consumes every worker's outcome once the run has joined:
//
//	stats, err := metrics.Aggregate(result.Outcomes, logger)
//	if errors.Is(err, metrics.ErrNoSuccessfulRequests) {
//		// every request failed; stats carries the counts only
//	}
//
// # Statistics
//
// Latencies are whole milliseconds, truncated. Over the successful outcomes:
//   - average is the floor of sum/count
//   - median is sorted[count/2], the upper middle element for even counts
//   - min and max are exact
//   - P90 and P99 come from an HdrHistogram with three significant figures
//
// Failures are excluded from the numbers; each reason is handed to the
// [FailureLogger] and counted in an error breakdown keyed by a friendly error
// class (see [ClassifyError]).
//
// The result is invariant under any permutation of the input.
package metrics
