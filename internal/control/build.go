package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vietddude/launcher/internal/core/config"
	"github.com/vietddude/launcher/internal/core/worker"
	"github.com/vietddude/launcher/internal/diag"
	"github.com/vietddude/launcher/internal/infra/api"
	"github.com/vietddude/launcher/internal/infra/downloads"
	"github.com/vietddude/launcher/internal/infra/helper"
	"github.com/vietddude/launcher/internal/infra/lock"
	"github.com/vietddude/launcher/internal/infra/paths"
	"github.com/vietddude/launcher/internal/infra/realtime"
	"github.com/vietddude/launcher/internal/infra/storage"
	"github.com/vietddude/launcher/internal/infra/storage/memory"
	"github.com/vietddude/launcher/internal/infra/storage/sqlite"
	"github.com/vietddude/launcher/internal/infra/tools"
	"github.com/vietddude/launcher/internal/version"
)

// memoryStorePath selects the in-memory record store instead of
// sqlite. Used by tests and diskless trials.
const memoryStorePath = ":memory:"

// Launcher is the assembled application: the shell plus every concrete
// component it drives.
type Launcher struct {
	cfg      *config.AppConfig
	shell    *Shell
	store    storage.RecordRepository
	db       *sqlite.DB
	client   *api.Client
	realtime *realtime.Client
	download *downloads.Manager
	diagSrv  *diag.Server
	pruner   *worker.Pruner
	clock    clockwork.Clock
	log      *slog.Logger
}

// NewLauncher wires every component from the configuration. Components
// disabled by config are simply not built; the shell skips what is not
// there.
func NewLauncher(cfg *config.AppConfig) (*Launcher, error) {
	clock := clockwork.NewRealClock()

	// 1. Record store
	store, db, err := openRecordStore(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	// 2. Backend API client and session state
	sessions := api.NewSessionManager(store, clock)
	client := api.NewClient(api.Config{
		BaseURL:        cfg.API.BaseURL,
		Timeout:        cfg.API.Timeout,
		RetryAttempts:  cfg.API.RetryAttempts,
		RetryBaseDelay: cfg.API.RetryBaseDelay,
	}, sessions, store, clock)

	// 3. Transfer queue
	download := downloads.NewManager(cfg.Downloads, store, downloads.HTTPFetcher(nil), clock)

	// 4. Helper subprocess
	var helperCtl *helper.Controller
	if cfg.Helper.Enabled {
		helperCtl = helper.NewController(cfg.Helper, clock)
	}

	// 5. Realtime socket, fed tokens by the API client so a stale
	// session refreshes before the handshake
	var rt *realtime.Client
	if cfg.Realtime.Enabled && cfg.Realtime.URL != "" {
		rt = realtime.NewClient(cfg.Realtime, client.ValidToken, sessions.SignedIn, clock)
	}

	// 6. Companion tools
	ensurer := tools.NewEnsurer(cfg.Tools, downloads.HTTPFetcher(nil))

	// 7. Sign-in hooks: refresh the library cache and bring the socket
	// up. Sign-out from any path tears the socket down; Disconnect runs
	// off the caller's goroutine because a forced sign-out can originate
	// inside the socket's own redial loop.
	client.OnSignIn(func(ctx context.Context) {
		if _, err := client.SyncLibrary(ctx); err != nil {
			slog.Warn("Library sync after sign-in failed", "error", err)
		}
	})
	if rt != nil {
		client.OnSignIn(func(ctx context.Context) {
			if err := rt.Connect(ctx); err != nil {
				slog.Warn("Realtime connect after sign-in failed", "error", err)
			}
		})
		sessions.OnChange(func(ev api.SessionEvent) {
			if ev == api.EventSignedOut {
				go rt.Disconnect()
			}
		})
	}

	// 8. Startup service registry, in order
	services := []Service{}
	if helperCtl != nil {
		services = append(services, Service{Name: "Helper", Init: helperCtl.Initialize})
	}
	services = append(services,
		Service{Name: "RemoteAPI", Init: api.NewBootstrapper(client).Setup},
		Service{Name: "Downloads", Init: download.Initialize},
	)
	if cfg.Tools.RedistURL != "" {
		services = append(services, Service{Name: "Redistributable", Init: ensurer.EnsureRedistributable})
	}
	if cfg.Tools.BackupToolURL != "" {
		services = append(services, Service{Name: "Backup", Init: ensurer.EnsureBackupTool})
	}

	// 9. Failure reports and their pruner
	reporter := diag.NewReporter(cfg.Reports, clock)
	pruner := worker.NewPruner(reporter, cfg.Reports.Retention, clock)

	// 10. The shell itself
	deps := Deps{
		Lock:      lock.New(cfg.LockPath()),
		Records:   store,
		Paths:     paths.NewChecker(cfg.DataDir, cfg.Downloads.Dir, cfg.Tools.Dir, cfg.Reports.Dir),
		Services:  services,
		Prompter:  buildPrompter(cfg),
		Reporter:  reporter,
		Downloads: download,
	}
	if rt != nil {
		deps.Realtime = rt
	}
	if helperCtl != nil {
		deps.Helper = helperCtl
	}
	shell := NewShell(deps, clock)

	l := &Launcher{
		cfg:      cfg,
		shell:    shell,
		store:    store,
		db:       db,
		client:   client,
		realtime: rt,
		download: download,
		pruner:   pruner,
		clock:    clock,
		log:      slog.Default(),
	}

	// 11. Diagnostics endpoints over the shell's live state
	if cfg.Diagnostics.Enabled {
		l.diagSrv = diag.NewServer(l.Status, cfg.Diagnostics.Port)
	}

	return l, nil
}

// openRecordStore opens the sqlite store, moving a database that will
// not even open out of the way and starting fresh. Key-level damage in
// an openable database is the startup sequence's job, not ours.
func openRecordStore(path string) (storage.RecordRepository, *sqlite.DB, error) {
	if path == memoryStorePath {
		return memory.NewMemoryStorage(), nil, nil
	}

	db, err := sqlite.Open(path)
	if err == nil {
		return sqlite.NewRecordRepo(db), db, nil
	}

	slog.Warn("Record store failed to open, moving it aside", "path", path, "error", err)
	backup := fmt.Sprintf("%s.corrupt.%d", path, time.Now().Unix())
	if renameErr := os.Rename(path, backup); renameErr != nil {
		return nil, nil, fmt.Errorf("failed to open record store: %w", err)
	}
	slog.Info("Damaged record store moved", "backup", backup)

	db, err = sqlite.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to recreate record store: %w", err)
	}
	return sqlite.NewRecordRepo(db), db, nil
}

func buildPrompter(cfg *config.AppConfig) Prompter {
	if cfg.NonInteractive {
		return NewAutoPrompter()
	}
	return NewTerminalPrompter(os.Stdin, os.Stderr)
}

// Status snapshots the launcher for the diagnostic endpoints.
func (l *Launcher) Status() diag.Status {
	st := l.shell.State()
	s := diag.Status{
		State:    string(st),
		Ready:    st == StateReady,
		Failed:   st == StateFailed,
		Degraded: l.shell.Degraded(),
		SignedIn: l.client.Sessions().SignedIn(),
		Version:  version.Version,
		Errors:   l.shell.Errors(),
	}
	if l.realtime != nil {
		s.RealtimeConnected = l.realtime.Connected()
	}
	for _, t := range l.download.Snapshot() {
		if t.Status == downloads.StatusActive {
			s.ActiveDownloads++
		}
	}
	return s
}

// Start brings the launcher up. Diagnostics serve from the first
// moment so the startup sequence is observable; the call then blocks
// in the startup decision loop and returns once the launcher is Ready
// or the sequence was given up on.
func (l *Launcher) Start(ctx context.Context) error {
	if l.diagSrv != nil {
		go func() {
			if err := l.diagSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				l.log.Error("Diagnostics server failed", "error", err)
			}
		}()
	}
	if l.db != nil {
		l.db.StartMetricsCollector(ctx)
	}

	if err := l.shell.Run(ctx); err != nil {
		return err
	}

	// A restored session reconnects the socket without waiting for the
	// next sign-in. Failure is not fatal: the socket redials on its own
	// and every sign-in tries again.
	if l.realtime != nil && l.client.Sessions().SignedIn() {
		if err := l.realtime.Connect(ctx); err != nil {
			l.log.Warn("Realtime socket unavailable", "error", err)
		}
	}

	go l.pruner.Start(ctx)
	return nil
}

// Stop runs the shutdown sequence and closes what the shell does not
// own. Safe to call after a failed Start.
func (l *Launcher) Stop(ctx context.Context) error {
	l.shell.Shutdown(ctx)

	if l.diagSrv != nil {
		if err := l.diagSrv.Stop(ctx); err != nil {
			l.log.Warn("Failed to stop diagnostics server", "error", err)
		}
	}
	if err := l.store.Close(); err != nil {
		l.log.Warn("Failed to close record store", "error", err)
	}

	l.log.Info("Launcher stopped")
	return nil
}
