// Package history keeps an append-only JSON-lines log of finished runs so
// results can be compared over time.
package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"

	"github.com/torosent/medusa/internal/config"
	"github.com/torosent/medusa/internal/metrics"
)

const lockRetryDelay = 25 * time.Millisecond

// Record is one line of the history file.
type Record struct {
	RunID                 string        `json:"run_id"`
	StartedAt             time.Time     `json:"started_at"`
	URL                   string        `json:"url"`
	Threads               int           `json:"threads"`
	MaxConcurrentRequests int           `json:"max_concurrent_requests,omitempty"`
	Stats                 metrics.Stats `json:"stats"`
}

// NewRunID returns a new lexically sortable run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// NewRecord describes a finished run.
func NewRecord(cfg config.Config, runID string, startedAt time.Time, stats metrics.Stats) Record {
	return Record{
		RunID:                 runID,
		StartedAt:             startedAt.UTC(),
		URL:                   cfg.TargetURL,
		Threads:               cfg.Threads,
		MaxConcurrentRequests: cfg.MaxConcurrentRequests,
		Stats:                 stats,
	}
}

// Append writes rec as a single line at the end of path, creating the file if
// needed. Concurrent writers are serialized through a lock file next to it.
func Append(ctx context.Context, path string, rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode history record: %w", err)
	}
	line = append(line, '\n')

	lock := flock.New(lockPath(path))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock history file %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("failed to lock history file %s", path)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return f.Close()
}

// Load reads every record from path in the order they were appended.
func Load(ctx context.Context, path string) ([]Record, error) {
	lock := flock.New(lockPath(path))
	locked, err := lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock history file %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to lock history file %s", path)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var records []Record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("history file %s line %d: %w", path, lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan history file: %w", err)
	}
	return records, nil
}

func lockPath(path string) string {
	return path + ".lock"
}
