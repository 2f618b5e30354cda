// Package diag provides the failure reporter and the local diagnostic
// HTTP surface.
package diag

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"

	"github.com/vietddude/launcher/internal/core/config"
	"github.com/vietddude/launcher/internal/core/domain"
	"github.com/vietddude/launcher/internal/metrics"
	"github.com/vietddude/launcher/internal/version"
)

// Reporter writes failure reports into the reports directory.
type Reporter struct {
	cfg   config.ReportsConfig
	clock clockwork.Clock
	log   *slog.Logger
}

// NewReporter creates a reporter.
func NewReporter(cfg config.ReportsConfig, clock clockwork.Clock) *Reporter {
	return &Reporter{
		cfg:   cfg,
		clock: clock,
		log:   slog.Default(),
	}
}

// Record writes one report describing a failed startup attempt and
// returns the path of the written file.
func (r *Reporter) Record(state string, trigger error, errs []*domain.StartupError) (string, error) {
	now := r.clock.Now()
	id, err := ulid.New(ulid.Timestamp(now.UTC()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate report id: %w", err)
	}

	hostname, _ := os.Hostname()
	report := domain.FailureReport{
		ID:        id.String(),
		CreatedAt: now.UTC(),
		Version:   version.Get().Version,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		GoVersion: runtime.Version(),
		Hostname:  hostname,
		State:     state,
		Errors:    errs,
	}
	if trigger != nil {
		report.Trigger = trigger.Error()
	}

	if err := os.MkdirAll(r.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports dir: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	path := filepath.Join(r.cfg.Dir, report.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	metrics.ReportsWritten.Inc()
	r.log.Info("Failure report written", "path", path, "errors", len(errs))
	return path, nil
}

// Prune removes report files older than the retention window and
// returns how many were deleted. A zero retention disables pruning.
func (r *Reporter) Prune() (int, error) {
	if r.cfg.Retention <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(r.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read reports dir: %w", err)
	}

	cutoff := r.clock.Now().Add(-r.cfg.Retention)
	pruned := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(r.cfg.Dir, entry.Name())); err != nil {
			r.log.Warn("Failed to prune report", "file", entry.Name(), "error", err)
			continue
		}
		pruned++
	}

	if pruned > 0 {
		r.log.Info("Pruned old failure reports", "count", pruned, "retention", r.cfg.Retention.String())
	}
	return pruned, nil
}

// List returns the report files on disk, newest first by name. ULIDs
// sort lexically by creation time, so name order is time order.
func (r *Reporter) List() ([]string, error) {
	entries, err := os.ReadDir(r.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read reports dir: %w", err)
	}

	var names []string
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}
