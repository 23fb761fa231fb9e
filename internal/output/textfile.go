package output

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/torosent/medusa/internal/metrics"
)

const metricsNamespace = "medusa"

// NewMetricsRegistry builds a registry holding one gauge set describing the
// finished run.
func NewMetricsRegistry(stats metrics.Stats) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	requests := factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "requests",
		Help:      "Requests issued during the run, by result.",
	}, []string{"result"})
	requests.WithLabelValues("success").Set(float64(stats.SuccessCount))
	requests.WithLabelValues("failure").Set(float64(stats.FailureCount))

	if stats.HasData() {
		responseTime := factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "response_time_milliseconds",
			Help:      "Response time summary of successful requests.",
		}, []string{"stat"})
		responseTime.WithLabelValues("avg").Set(float64(stats.AvgTimeMs))
		responseTime.WithLabelValues("median").Set(float64(stats.MedianTimeMs))
		responseTime.WithLabelValues("min").Set(float64(stats.MinTimeMs))
		responseTime.WithLabelValues("max").Set(float64(stats.MaxTimeMs))
		responseTime.WithLabelValues("p90").Set(float64(stats.P90TimeMs))
		responseTime.WithLabelValues("p99").Set(float64(stats.P99TimeMs))
	}

	if len(stats.Errors) > 0 {
		errs := factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "request_errors",
			Help:      "Failed requests by error kind.",
		}, []string{"error"})
		for name, count := range stats.Errors {
			errs.WithLabelValues(name).Set(float64(count))
		}
	}

	factory.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "peak_in_flight",
		Help:      "Highest number of requests in flight at once.",
	}).Set(float64(stats.PeakInFlight))

	factory.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of the run.",
	}).Set(stats.Duration.Seconds())

	return reg
}

// WriteMetricsFile writes the run summary in the Prometheus text exposition
// format, suitable for the node_exporter textfile collector.
func WriteMetricsFile(path string, stats metrics.Stats) error {
	if err := prometheus.WriteToTextfile(path, NewMetricsRegistry(stats)); err != nil {
		return fmt.Errorf("failed to write metrics file %s: %w", path, err)
	}
	return nil
}
