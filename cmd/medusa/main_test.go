package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/medusa/internal/history"
	"github.com/torosent/medusa/internal/metrics"
)

type countingServer struct {
	*httptest.Server
	hits   int64
	active int64
	peak   int64
}

func newCountingServer(t *testing.T, delay time.Duration) *countingServer {
	t.Helper()
	cs := &countingServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&cs.hits, 1)
		n := atomic.AddInt64(&cs.active, 1)
		for {
			p := atomic.LoadInt64(&cs.peak)
			if n <= p || atomic.CompareAndSwapInt64(&cs.peak, p, n) {
				break
			}
		}
		defer atomic.AddInt64(&cs.active, -1)

		if delay > 0 {
			time.Sleep(delay)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(cs.Close)
	return cs
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRunReportsSummary(t *testing.T) {
	srv := newCountingServer(t, 0)

	stdout, _, err := runCLI(t, "-u", srv.URL, "-t", "5")
	require.NoError(t, err)

	assert.EqualValues(t, 5, atomic.LoadInt64(&srv.hits))
	assert.Contains(t, stdout, "Load testing '"+srv.URL+"' with 5 concurrent requests\n")
	assert.Contains(t, stdout, "\nSuccessfully completed 5 requests\n")
	assert.Contains(t, stdout, "Avg response time: ")
	assert.Contains(t, stdout, "Median response time: ")
	assert.Contains(t, stdout, "Min response time: ")
	assert.Contains(t, stdout, "Max response time: ")
}

func TestRunHonoursConcurrencyLimit(t *testing.T) {
	for _, mode := range []string{"poll", "semaphore"} {
		t.Run(mode, func(t *testing.T) {
			srv := newCountingServer(t, 20*time.Millisecond)

			stdout, _, err := runCLI(t, "-u", srv.URL, "-t", "8", "-m", "2", "--admission", mode)
			require.NoError(t, err)

			assert.EqualValues(t, 8, atomic.LoadInt64(&srv.hits))
			assert.LessOrEqual(t, atomic.LoadInt64(&srv.peak), int64(2))
			assert.Contains(t, stdout, "with 8 concurrent requests (maximum of 2 concurrently)")
			assert.Contains(t, stdout, "Successfully completed 8 requests")
		})
	}
}

func TestRunRejectsInvalidConfigBeforeAnyRequest(t *testing.T) {
	srv := newCountingServer(t, 0)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "zero threads", args: []string{"-u", srv.URL, "-t", "0"}, wantErr: "threads must be >= 1"},
		{name: "zero limit", args: []string{"-u", srv.URL, "-t", "2", "-m", "0"}, wantErr: "max-concurrent-reqs must be >= 1"},
		{name: "missing url", args: []string{"-t", "2"}, wantErr: "url is required"},
		{name: "bad threshold", args: []string{"-u", srv.URL, "-t", "2", "--threshold", "nope"}, wantErr: "invalid threshold format"},
		{name: "missing config file", args: []string{"-c", filepath.Join(t.TempDir(), "absent.json")}, wantErr: "unable to read configuration file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
	assert.Zero(t, atomic.LoadInt64(&srv.hits))
}

func TestRunHelp(t *testing.T) {
	_, _, err := runCLI(t, "--help")
	require.NoError(t, err)
}

func TestRunAllRequestsFail(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	stdout, _, err := runCLI(t, "-u", target, "-t", "3", "--timeout", "2s")
	require.ErrorIs(t, err, metrics.ErrNoSuccessfulRequests)
	assert.Equal(t, "no successful requests to summarize", err.Error())
	assert.Equal(t, 3, strings.Count(stdout, "request not counted due to error"))
	assert.NotContains(t, stdout, "Successfully completed")
}

func TestRunLogErrorsAsTheyHappen(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	stdout, _, err := runCLI(t, "-u", target, "-t", "2", "--log-errors")
	require.ErrorIs(t, err, metrics.ErrNoSuccessfulRequests)
	// Failures are logged once, at completion time, not again during aggregation.
	assert.Equal(t, 2, strings.Count(stdout, "request not counted due to error"))
}

func TestRunJSONOutput(t *testing.T) {
	srv := newCountingServer(t, 0)

	stdout, _, err := runCLI(t, "-u", srv.URL, "-t", "4", "--json-output")
	require.NoError(t, err)

	var stats metrics.Stats
	require.NoError(t, json.Unmarshal([]byte(stdout), &stats))
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 4, stats.SuccessCount)
	assert.NotEmpty(t, stats.RunID)
	assert.LessOrEqual(t, stats.MinTimeMs, stats.MedianTimeMs)
	assert.LessOrEqual(t, stats.MedianTimeMs, stats.MaxTimeMs)
}

func TestRunConfigFileOverridesFlags(t *testing.T) {
	srv := newCountingServer(t, 0)

	path := filepath.Join(t.TempDir(), "medusa.json")
	body := `{"url": "` + srv.URL + `", "num_threads": 3, "max_concurrent_requests": null}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	stdout, _, err := runCLI(t, "-c", path, "-t", "10", "-m", "4")
	require.NoError(t, err)

	assert.EqualValues(t, 3, atomic.LoadInt64(&srv.hits))
	assert.Contains(t, stdout, "with 3 concurrent requests\n")
}

func TestRunConfigFileWithoutLimitRunsUnbounded(t *testing.T) {
	srv := newCountingServer(t, 0)

	path := filepath.Join(t.TempDir(), "medusa.json")
	body := `{"url": "` + srv.URL + `", "num_threads": 2}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	stdout, _, err := runCLI(t, "-c", path, "-m", "1")
	require.NoError(t, err)

	assert.NotContains(t, stdout, "maximum of")
	assert.Contains(t, stdout, "with 2 concurrent requests\n")
}

func TestRunLargeBurstWarnsOnStderr(t *testing.T) {
	srv := newCountingServer(t, 0)

	stdout, stderr, err := runCLI(t, "-u", srv.URL, "-t", "5001", "-m", "50")
	require.NoError(t, err)

	assert.Contains(t, stderr, "WARNING: 5001 threads configured.")
	assert.NotContains(t, stdout, "WARNING")
	assert.EqualValues(t, 5001, atomic.LoadInt64(&srv.hits))
}

func TestRunThresholds(t *testing.T) {
	srv := newCountingServer(t, 0)

	stdout, _, err := runCLI(t, "-u", srv.URL, "-t", "2",
		"--threshold", "requests_failed:count == 0",
		"--threshold", "requests:count >= 10",
	)
	require.Error(t, err)
	assert.Equal(t, "1 of 2 thresholds failed", err.Error())
	assert.Contains(t, stdout, "Thresholds:")
	assert.Contains(t, stdout, "✓ requests_failed:count == 0")
	assert.Contains(t, stdout, "✗ requests:count >= 10")

	_, _, err = runCLI(t, "-u", srv.URL, "-t", "2", "--threshold", "response_time:max < 60000")
	require.NoError(t, err)
}

func TestRunWritesMetricsAndHistory(t *testing.T) {
	srv := newCountingServer(t, 0)
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "medusa.prom")
	historyPath := filepath.Join(dir, "history.jsonl")

	for i := 0; i < 2; i++ {
		_, _, err := runCLI(t, "-u", srv.URL, "-t", "3", "-m", "1",
			"--metrics-file", metricsPath,
			"--history-file", historyPath,
		)
		require.NoError(t, err)
	}

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `medusa_requests{result="success"} 3`)
	assert.Contains(t, string(data), "medusa_peak_in_flight 1")

	records, err := history.Load(context.Background(), historyPath)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.NotEqual(t, records[0].RunID, records[1].RunID)
	assert.Equal(t, srv.URL, records[0].URL)
	assert.Equal(t, 1, records[0].MaxConcurrentRequests)
	assert.Equal(t, 3, records[0].Stats.SuccessCount)
}

func TestRunProgressGoesToStderr(t *testing.T) {
	srv := newCountingServer(t, 0)

	stdout, stderr, err := runCLI(t, "-u", srv.URL, "-t", "3", "--progress")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Completed: 3/3 | Failures: 0")
	assert.NotContains(t, stdout, "Completed:")
}
