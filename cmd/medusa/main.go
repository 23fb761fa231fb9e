package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/torosent/medusa/internal/admission"
	"github.com/torosent/medusa/internal/config"
	"github.com/torosent/medusa/internal/history"
	"github.com/torosent/medusa/internal/httpclient"
	"github.com/torosent/medusa/internal/logging"
	"github.com/torosent/medusa/internal/metrics"
	"github.com/torosent/medusa/internal/output"
	"github.com/torosent/medusa/internal/runner"
	"github.com/torosent/medusa/internal/threshold"
	"github.com/torosent/medusa/internal/tracing"
)

const (
	progressInterval = 250 * time.Millisecond
	shutdownTimeout  = 5 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, warning := range cfg.Warnings() {
		fmt.Fprintf(stderr, "WARNING: %s\n", warning)
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	// Keep stdout clean for the JSON document.
	logOut := stdout
	if cfg.JSONOutput {
		logOut = stderr
	}
	log := logging.New(logOut, cfg.Verbose)
	defer func() { _ = log.Sync() }()

	runID := history.NewRunID()
	provider, err := tracing.Init(ctx, cfg.Tracing, runID)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	requester, err := httpclient.NewExecutor(httpclient.NewClient(cfg.Timeout), cfg.TargetURL, provider)
	if err != nil {
		return err
	}

	failures := logging.NewFailureLogger(log)
	var executor runner.Executor = requester
	var aggregateLogger metrics.FailureLogger = failures
	if cfg.LogErrors {
		executor = runner.WithLogging(executor, failures)
		aggregateLogger = nil
	}

	gate := admission.New(admission.Mode(cfg.Admission), cfg.MaxConcurrentRequests)

	if !cfg.JSONOutput {
		output.PrintBanner(stdout, *cfg)
	}
	log.Debug("starting run",
		zap.String("run_id", runID),
		zap.Int("threads", cfg.Threads),
		zap.Int("limit", gate.Limit()),
		zap.String("admission", string(cfg.Admission)),
	)

	opts := runner.Options{
		Workers:  cfg.Threads,
		Gate:     gate,
		Executor: executor,
	}

	var progress *output.ProgressReporter
	if cfg.Progress && !cfg.JSONOutput {
		progress = output.NewProgressReporter(cfg.Threads, progressInterval, stderr)
		opts.OnOutcome = progress.Observe
		progress.Start()
	}

	startedAt := time.Now()
	result := runner.New(opts).Run(ctx)
	if progress != nil {
		progress.Stop()
	}

	stats, aggErr := metrics.Summarize(result, aggregateLogger)
	stats.RunID = runID
	log.Debug("run finished",
		zap.Duration("duration", result.Duration),
		zap.Int("peak_in_flight", result.PeakInFlight),
		zap.Int("failures", stats.FailureCount),
	)

	if err := persist(ctx, cfg, runID, startedAt, stats); err != nil {
		return err
	}

	if aggErr != nil {
		if cfg.JSONOutput {
			if err := output.PrintJSONReport(stdout, stats); err != nil {
				return err
			}
		}
		return aggErr
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(stdout, stats); err != nil {
			return err
		}
	} else {
		output.PrintReport(stdout, stats)
	}

	return checkThresholds(thresholds, stats, cfg.JSONOutput, stdout, stderr)
}

// persist writes the optional metrics and history files. It runs even for
// runs without a successful request so failures are recorded too.
func persist(ctx context.Context, cfg *config.Config, runID string, startedAt time.Time, stats metrics.Stats) error {
	if cfg.MetricsFile != "" {
		if err := output.WriteMetricsFile(cfg.MetricsFile, stats); err != nil {
			return err
		}
	}
	if cfg.HistoryFile != "" {
		rec := history.NewRecord(*cfg, runID, startedAt, stats)
		if err := history.Append(context.WithoutCancel(ctx), cfg.HistoryFile, rec); err != nil {
			return err
		}
	}
	return nil
}

func checkThresholds(thresholds []threshold.Threshold, stats metrics.Stats, jsonOutput bool, stdout, stderr io.Writer) error {
	results := threshold.NewEvaluator(thresholds).Evaluate(stats)
	if len(results) == 0 {
		return nil
	}

	w := stdout
	if jsonOutput {
		w = stderr
	}
	fmt.Fprintln(w, "\nThresholds:")
	for _, r := range results {
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
	if failed := threshold.CountFailed(results); failed > 0 {
		return fmt.Errorf("%d of %d thresholds failed", failed, len(results))
	}
	return nil
}
