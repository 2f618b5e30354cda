// Package paths validates and repairs the directories the launcher
// needs before services start.
package paths

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Checker probes a fixed set of required directories.
type Checker struct {
	dirs []string
	log  *slog.Logger
}

func NewChecker(dirs ...string) *Checker {
	return &Checker{dirs: dirs, log: slog.Default()}
}

// Dirs returns the required directories.
func (c *Checker) Dirs() []string {
	out := make([]string, len(c.dirs))
	copy(out, c.dirs)
	return out
}

// Check probes every required directory and returns the ones that are
// missing, not a directory, or not writable.
func (c *Checker) Check(ctx context.Context) ([]string, error) {
	var failed []string
	for _, dir := range c.dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := probe(dir); err != nil {
			c.log.Warn("Path check failed", "path", dir, "error", err)
			failed = append(failed, dir)
		}
	}
	return failed, nil
}

// Repair recreates the given directories.
func (c *Checker) Repair(ctx context.Context, dirs []string) error {
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to recreate %s: %w", dir, err)
		}
		c.log.Info("Recreated path", "path", dir)
	}
	return nil
}

// probe verifies dir exists, is a directory, and accepts writes. The
// write probe catches read-only mounts that a stat alone would miss.
func probe(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
