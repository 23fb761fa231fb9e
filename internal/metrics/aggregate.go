package metrics

import (
	"errors"
	"slices"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/medusa/internal/runner"
)

// ErrNoSuccessfulRequests is returned by Aggregate when no outcome succeeded,
// so there is no latency data to summarize.
var ErrNoSuccessfulRequests = errors.New("no successful requests to summarize")

const (
	histMinUs   = 1
	histMaxUs   = int64(time.Hour / time.Microsecond)
	histSigFigs = 3
)

// FailureLogger receives the reason of every failed outcome.
type FailureLogger interface {
	LogFailure(err error)
}

// Stats represents aggregated metrics.
type Stats struct {
	RunID        string        `json:"run_id,omitempty"`
	Total        int           `json:"total"`
	SuccessCount int           `json:"success_count"`
	FailureCount int           `json:"failure_count"`
	AvgTimeMs    int64         `json:"avg_time_ms"`
	MedianTimeMs int64         `json:"median_time_ms"`
	MinTimeMs    int64         `json:"min_time_ms"`
	MaxTimeMs    int64         `json:"max_time_ms"`
	P90TimeMs    int64         `json:"p90_time_ms"`
	P99TimeMs    int64         `json:"p99_time_ms"`
	PeakInFlight int           `json:"peak_in_flight"`
	Duration     time.Duration `json:"-"`
	DurationMs   float64       `json:"duration_ms"`

	Errors map[string]int `json:"errors,omitempty"`
}

// HasData reports whether latency figures are meaningful.
func (s Stats) HasData() bool {
	return s.SuccessCount > 0
}

// FailureRate is the fraction of requests that failed.
func (s Stats) FailureRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.FailureCount) / float64(s.Total)
}

// Aggregate computes Stats from the complete set of outcomes. When no outcome
// succeeded it returns the counts together with ErrNoSuccessfulRequests.
func Aggregate(outcomes []runner.Outcome, logger FailureLogger) (Stats, error) {
	stats := Stats{Total: len(outcomes)}
	times := make([]int64, 0, len(outcomes))
	hist := hdrhistogram.New(histMinUs, histMaxUs, histSigFigs)

	var sum int64
	for _, out := range outcomes {
		if !out.OK() {
			stats.FailureCount++
			if stats.Errors == nil {
				stats.Errors = make(map[string]int)
			}
			stats.Errors[ClassifyError(out.Err)]++
			if logger != nil {
				logger.LogFailure(out.Err)
			}
			continue
		}

		ms := out.ElapsedMs()
		times = append(times, ms)
		sum += ms
		_ = hist.RecordValue(clampMicros(out.Elapsed))
	}

	stats.SuccessCount = len(times)
	if stats.SuccessCount == 0 {
		return stats, ErrNoSuccessfulRequests
	}

	slices.Sort(times)
	stats.AvgTimeMs = sum / int64(stats.SuccessCount)
	stats.MedianTimeMs = median(times)
	stats.MinTimeMs = times[0]
	stats.MaxTimeMs = times[len(times)-1]
	stats.P90TimeMs = quantileMs(hist, 90, stats.MinTimeMs, stats.MaxTimeMs)
	stats.P99TimeMs = quantileMs(hist, 99, stats.MinTimeMs, stats.MaxTimeMs)

	return stats, nil
}

// Summarize aggregates a complete run, adding its wall-clock duration and the
// peak concurrency observed by the admission gate.
func Summarize(res runner.Result, logger FailureLogger) (Stats, error) {
	stats, err := Aggregate(res.Outcomes, logger)
	stats.Duration = res.Duration
	stats.DurationMs = float64(res.Duration) / float64(time.Millisecond)
	stats.PeakInFlight = res.PeakInFlight
	return stats, err
}

// median expects sorted input and returns the element at len/2, which for an
// even count is the upper of the two middle elements. It does not average.
func median(sorted []int64) int64 {
	return sorted[len(sorted)/2]
}

func clampMicros(d time.Duration) int64 {
	us := d.Microseconds()
	if us < histMinUs {
		us = histMinUs
	}
	if us > histMaxUs {
		us = histMaxUs
	}
	return us
}

// quantileMs reads a percentile from the histogram, clamped to the exact
// min/max since bucket rounding may step slightly outside them.
func quantileMs(h *hdrhistogram.Histogram, q float64, lo, hi int64) int64 {
	ms := (time.Duration(h.ValueAtQuantile(q)) * time.Microsecond).Milliseconds()
	if ms < lo {
		return lo
	}
	if ms > hi {
		return hi
	}
	return ms
}
