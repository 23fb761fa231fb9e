package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and the optional configuration file to
// produce a Config. When a file is given it is authoritative for the url,
// thread count and concurrency limit; other keys it sets override flags.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := strings.TrimSpace(flagSet.Lookup("config").Value.String())
	if len(args) == 0 {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfg := &Config{
		Timeout:    30 * time.Second,
		Admission:  AdmissionModePoll,
		ConfigFile: configPath,
		Tracing: TracingConfig{
			Protocol:   "grpc",
			SampleRate: 1.0,
		},
	}

	if err := applyFlags(cfg, flagSet); err != nil {
		return nil, err
	}

	if configPath != "" {
		settings, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		// The file alone describes the run: a target, thread count or limit
		// it omits (or sets to null) never falls back to a flag value.
		cfg.TargetURL, cfg.Threads, cfg.MaxConcurrentRequests = "", 0, 0
		if err := applyConfigSettings(cfg, settings); err != nil {
			return nil, fmt.Errorf("invalid configuration file %s: %w", configPath, err)
		}
	}

	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	if cfg.Admission == "" {
		cfg.Admission = AdmissionModePoll
	}

	return cfg, nil
}

func readConfigFile(path string) (fileSettings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read configuration file %s: %w", path, err)
	}
	return fileSettings(v.AllSettings()), nil
}

// applyConfigSettings copies every key present in the file into cfg.
func applyConfigSettings(cfg *Config, settings fileSettings) error {
	if raw, ok := settings.get("url", "target"); ok {
		val, err := text(raw)
		if err != nil {
			return fmt.Errorf("url: %w", err)
		}
		cfg.TargetURL = val
	}

	if raw, ok := settings.get("num_threads", "threads"); ok {
		val, err := positiveCount(raw)
		if err != nil {
			return fmt.Errorf("num_threads: %w", err)
		}
		cfg.Threads = val
	}

	if raw, ok := settings.get("max_concurrent_requests"); ok {
		val, err := positiveCount(raw)
		if err != nil {
			return fmt.Errorf("max_concurrent_requests: %w", err)
		}
		cfg.MaxConcurrentRequests = val
	}

	if raw, ok := settings.get("timeout"); ok {
		val, err := timeout(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = val
	}

	if raw, ok := settings.get("admission"); ok {
		val, err := text(raw)
		if err != nil {
			return fmt.Errorf("admission: %w", err)
		}
		cfg.Admission = AdmissionMode(strings.ToLower(val))
	}

	if raw, ok := settings.get("thresholds"); ok {
		val, err := thresholdList(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = val
	}

	switches := []struct {
		key string
		dst *bool
	}{
		{"json_output", &cfg.JSONOutput},
		{"log_errors", &cfg.LogErrors},
		{"verbose", &cfg.Verbose},
		{"progress", &cfg.Progress},
	}
	for _, sw := range switches {
		if raw, ok := settings.get(sw.key); ok {
			val, err := toggle(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", sw.key, err)
			}
			*sw.dst = val
		}
	}

	paths := []struct {
		key string
		dst *string
	}{
		{"metrics_file", &cfg.MetricsFile},
		{"history_file", &cfg.HistoryFile},
	}
	for _, p := range paths {
		if raw, ok := settings.get(p.key); ok {
			val, err := text(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", p.key, err)
			}
			*p.dst = val
		}
	}

	if raw, ok := settings.get("tracing"); ok {
		sec, err := section(raw)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		tracing, err := parseTracingConfig(sec, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}

	return nil
}

func parseTracingConfig(settings fileSettings, base TracingConfig) (TracingConfig, error) {
	tc := base

	strs := []struct {
		key   string
		dst   *string
		lower bool
	}{
		{"endpoint", &tc.Endpoint, false},
		{"protocol", &tc.Protocol, true},
		{"service_name", &tc.ServiceName, false},
	}
	for _, f := range strs {
		if raw, ok := settings.get(f.key); ok {
			val, err := text(raw)
			if err != nil {
				return TracingConfig{}, fmt.Errorf("%s: %w", f.key, err)
			}
			if f.lower {
				val = strings.ToLower(val)
			}
			*f.dst = val
		}
	}

	if raw, ok := settings.get("insecure"); ok {
		val, err := toggle(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
		tc.Insecure = val
	}
	if raw, ok := settings.get("propagate"); ok {
		val, err := toggle(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("propagate: %w", err)
		}
		tc.Propagate = val
	}
	if raw, ok := settings.get("sample_rate"); ok {
		val, err := ratio(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
		tc.SampleRate = val
	}

	return tc, nil
}
