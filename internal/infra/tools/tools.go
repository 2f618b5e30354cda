// Package tools provisions the external tool binaries the launcher
// depends on: the runtime redistributable and the save-backup tool.
package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"

	"github.com/vietddude/launcher/internal/core/config"
	"github.com/vietddude/launcher/internal/infra/downloads"
)

// Ensurer checks for each tool on disk and fetches it when missing.
type Ensurer struct {
	cfg   config.ToolsConfig
	fetch downloads.Fetcher
	log   *slog.Logger
	goos  string
}

// NewEnsurer creates the ensurer. The fetcher is shared with the
// download manager; production wires downloads.HTTPFetcher.
func NewEnsurer(cfg config.ToolsConfig, fetch downloads.Fetcher) *Ensurer {
	return &Ensurer{
		cfg:   cfg,
		fetch: fetch,
		log:   slog.Default(),
		goos:  runtime.GOOS,
	}
}

// EnsureRedistributable installs the runtime redistributable. Only
// Windows needs it; other platforms skip quietly.
func (e *Ensurer) EnsureRedistributable(ctx context.Context) error {
	if e.goos != "windows" {
		e.log.Debug("Redistributable not needed on this platform", "os", e.goos)
		return nil
	}
	return e.ensure(ctx, e.cfg.RedistURL)
}

// EnsureBackupTool installs the save-backup tool.
func (e *Ensurer) EnsureBackupTool(ctx context.Context) error {
	return e.ensure(ctx, e.cfg.BackupToolURL)
}

func (e *Ensurer) ensure(ctx context.Context, rawURL string) error {
	if rawURL == "" {
		return nil
	}
	dest := filepath.Join(e.cfg.Dir, nameFrom(rawURL))

	_, err := os.Stat(dest)
	if err == nil {
		e.log.Debug("Tool already present", "path", dest)
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", dest, err)
	}

	e.log.Info("Fetching tool", "url", rawURL, "dest", dest)
	if err := e.fetch(ctx, rawURL, dest); err != nil {
		return fmt.Errorf("failed to fetch tool %s: %w", rawURL, err)
	}
	return nil
}

func nameFrom(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return "tool.bin"
}
