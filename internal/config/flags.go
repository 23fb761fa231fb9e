package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "medusa",
		Short:         "Fire a burst of concurrent GET requests and summarize response times",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Core flags
	flags.StringP("url", "u", "", "Sets the url to be tested")
	flags.IntP("threads", "t", 0, "Sets the number of threads to be used")
	flags.IntP("max-concurrent-reqs", "m", 0, "Sets a limit for the number of concurrent requests")
	flags.StringP("config", "c", "", "Path to a JSON configuration file (overrides other flags)")

	// Request flags
	flags.Duration("timeout", 30*time.Second, "Per-request timeout (0 disables)")
	flags.String("admission", string(AdmissionModePoll), "Admission gate used with --max-concurrent-reqs (poll or semaphore)")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("log-errors", false, "Log each failed request as soon as it completes")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.Bool("progress", false, "Show completed/failed counts on stderr while the burst runs")
	flags.StringSlice("threshold", nil, "Pass/fail thresholds (repeatable, e.g. 'response_time:median < 200')")
	flags.String("metrics-file", "", "Write Prometheus text-format metrics to the given file")
	flags.String("history-file", "", "Append a JSON record of the run to the given file")

	// Tracing flags
	flags.String("otlp-endpoint", "", "OTLP collector endpoint (host:port) for request spans")
	flags.String("otlp-protocol", "grpc", "OTLP exporter protocol (grpc or http)")
	flags.Bool("otlp-insecure", false, "Use a plaintext connection to the OTLP collector")
	flags.Float64("trace-sample-rate", 1.0, "Fraction of request spans to sample (0.0 - 1.0)")
	flags.Bool("trace-propagate", false, "Inject W3C traceparent headers into requests")
	flags.String("service-name", "", "Service name reported with spans")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n\nUsage: %s\n\nFlags:\n", cmd.Short, cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlags copies command-line flag values into the config. Only flags the
// user actually set are applied so defaults never mask config-file values.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("url") {
		val, err := fs.GetString("url")
		if err != nil {
			return err
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}
	if fs.Changed("threads") {
		val, err := fs.GetInt("threads")
		if err != nil {
			return err
		}
		cfg.Threads = val
	}
	if fs.Changed("max-concurrent-reqs") {
		val, err := fs.GetInt("max-concurrent-reqs")
		if err != nil {
			return err
		}
		if val < 1 {
			return fmt.Errorf("max-concurrent-reqs must be >= 1, got %d", val)
		}
		cfg.MaxConcurrentRequests = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("admission") {
		val, err := fs.GetString("admission")
		if err != nil {
			return err
		}
		cfg.Admission = AdmissionMode(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if fs.Changed("verbose") {
		val, err := fs.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = val
	}
	if fs.Changed("progress") {
		val, err := fs.GetBool("progress")
		if err != nil {
			return err
		}
		cfg.Progress = val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	if fs.Changed("metrics-file") {
		val, err := fs.GetString("metrics-file")
		if err != nil {
			return err
		}
		cfg.MetricsFile = strings.TrimSpace(val)
	}
	if fs.Changed("history-file") {
		val, err := fs.GetString("history-file")
		if err != nil {
			return err
		}
		cfg.HistoryFile = strings.TrimSpace(val)
	}

	if fs.Changed("otlp-endpoint") {
		val, err := fs.GetString("otlp-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("otlp-protocol") {
		val, err := fs.GetString("otlp-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("otlp-insecure") {
		val, err := fs.GetBool("otlp-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("trace-sample-rate") {
		val, err := fs.GetFloat64("trace-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("trace-propagate") {
		val, err := fs.GetBool("trace-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = val
	}
	if fs.Changed("service-name") {
		val, err := fs.GetString("service-name")
		if err != nil {
			return err
		}
		cfg.Tracing.ServiceName = strings.TrimSpace(val)
	}

	return nil
}
