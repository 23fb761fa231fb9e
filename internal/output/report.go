package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/torosent/medusa/internal/config"
	"github.com/torosent/medusa/internal/metrics"
)

// PrintBanner announces the run before any request is issued.
func PrintBanner(w io.Writer, cfg config.Config) {
	limit := ""
	if cfg.Bounded() {
		limit = fmt.Sprintf(" (maximum of %d concurrently)", cfg.MaxConcurrentRequests)
	}
	fmt.Fprintf(w, "Load testing '%s' with %d concurrent requests%s\n", cfg.TargetURL, cfg.Threads, limit)
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Successfully completed %d requests\n", stats.SuccessCount)
	fmt.Fprintf(w, "Avg response time: %dms\n", stats.AvgTimeMs)
	fmt.Fprintf(w, "Median response time: %dms\n", stats.MedianTimeMs)
	fmt.Fprintf(w, "Min response time: %dms\n", stats.MinTimeMs)
	fmt.Fprintf(w, "Max response time: %dms\n", stats.MaxTimeMs)
	fmt.Fprintf(w, "P90 response time: %dms\n", stats.P90TimeMs)
	fmt.Fprintf(w, "P99 response time: %dms\n", stats.P99TimeMs)

	if stats.FailureCount > 0 {
		fmt.Fprintf(w, "\nFailed requests: %d of %d (%.1f%%)\n", stats.FailureCount, stats.Total, stats.FailureRate()*100)
		writeErrorBreakdown(w, stats.Errors, "  ")
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func writeErrorBreakdown(w io.Writer, errs map[string]int, indent string) {
	rows := metrics.FlattenErrors(errs)
	if len(rows) == 0 {
		fmt.Fprintf(w, "%sNone\n", indent)
		return
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s%s: %d\n", indent, row.Name, row.Count)
	}
}
