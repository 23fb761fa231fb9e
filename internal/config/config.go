package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// AdmissionMode selects the primitive behind the concurrency cap.
type AdmissionMode string

const (
	AdmissionModePoll      AdmissionMode = "poll"
	AdmissionModeSemaphore AdmissionMode = "semaphore"
)

// Config is the fully resolved run configuration. It is immutable once
// loaded and shared read-only with every worker.
type Config struct {
	TargetURL             string        `mapstructure:"url"`
	Threads               int           `mapstructure:"num_threads"`
	MaxConcurrentRequests int           `mapstructure:"max_concurrent_requests"` // 0 means no limit
	Timeout               time.Duration `mapstructure:"timeout"`
	Admission             AdmissionMode `mapstructure:"admission"`
	JSONOutput            bool          `mapstructure:"json_output"`
	LogErrors             bool          `mapstructure:"log_errors"`
	Verbose               bool          `mapstructure:"verbose"`
	Progress              bool          `mapstructure:"progress"`
	Thresholds            []string      `mapstructure:"thresholds"`
	MetricsFile           string        `mapstructure:"metrics_file"`
	HistoryFile           string        `mapstructure:"history_file"`
	Tracing               TracingConfig `mapstructure:"tracing"`
	ConfigFile            string        `mapstructure:"-"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`     // OTLP collector endpoint (host:port)
	Protocol    string  `mapstructure:"protocol"`     // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"` // defaults to OTEL_SERVICE_NAME or "medusa"
	Insecure    bool    `mapstructure:"insecure"`     // plaintext connection to the collector
	SampleRate  float64 `mapstructure:"sample_rate"`  // 0.0 - 1.0
	Propagate   bool    `mapstructure:"propagate"`    // inject W3C traceparent into requests
}

// Enabled reports whether spans should be exported or propagated.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || t.Propagate
}

// ShouldPropagate reports whether W3C trace headers are injected into requests.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Propagate
}

// Bounded reports whether a concurrency cap is configured.
func (c Config) Bounded() bool {
	return c.MaxConcurrentRequests > 0
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	target := strings.TrimSpace(c.TargetURL)
	if target == "" {
		issues = append(issues, "url is required (use --help for usage information)")
	} else if u, err := url.Parse(target); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		issues = append(issues, fmt.Sprintf("url %q must be an absolute http or https URL", target))
	}

	if c.Threads < 1 {
		issues = append(issues, "threads must be >= 1")
	}
	if c.MaxConcurrentRequests < 0 {
		issues = append(issues, "max-concurrent-reqs must be >= 1")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}

	switch c.Admission {
	case "", AdmissionModePoll, AdmissionModeSemaphore:
	default:
		issues = append(issues, fmt.Sprintf("admission mode %q is not supported (use poll or semaphore)", c.Admission))
	}

	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// largeBurst is the thread count above which Warnings reminds the operator
// to make sure the target may be hit that hard.
const largeBurst = 5000

// Warnings lists non-fatal concerns about the configuration.
func (c Config) Warnings() []string {
	var warnings []string
	if c.Threads > largeBurst {
		warnings = append(warnings, fmt.Sprintf("%d threads configured. Ensure you have authorization to test the target system.", c.Threads))
	}
	return warnings
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	return issues
}
