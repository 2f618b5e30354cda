package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/vietddude/launcher/internal/control"
	"github.com/vietddude/launcher/internal/core/config"
	"github.com/vietddude/launcher/internal/core/domain"
	"github.com/vietddude/launcher/internal/infra/lock"
	"github.com/vietddude/launcher/internal/infra/storage"
	"github.com/vietddude/launcher/internal/infra/storage/sqlite"
)

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/profile/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(domain.Profile{ID: "u1", DisplayName: "e2e"})
	})
	mux.HandleFunc("/profile/library", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]domain.LibraryGame{{ID: "g1", Title: "Portal"}})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, backendURL string) *config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	return &config.AppConfig{
		DataDir:        dir,
		NonInteractive: true,
		API: config.APIConfig{
			BaseURL:        backendURL,
			Timeout:        5 * time.Second,
			RetryAttempts:  1,
			RetryBaseDelay: 10 * time.Millisecond,
		},
		Storage:   config.StorageConfig{Path: filepath.Join(dir, "launcher.db")},
		Downloads: config.DownloadsConfig{Dir: filepath.Join(dir, "downloads"), MaxActive: 1},
		Tools:     config.ToolsConfig{Dir: filepath.Join(dir, "tools")},
		Reports:   config.ReportsConfig{Dir: filepath.Join(dir, "reports"), Retention: time.Hour},
	}
}

// seedSession stores a valid auth record so startup restores a
// signed-in session.
func seedSession(t *testing.T, path string) {
	t.Helper()
	db, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("failed to open store for seeding: %v", err)
	}
	repo := sqlite.NewRecordRepo(db)
	defer repo.Close()

	rec := domain.AuthRecord{
		AccessToken:  "e2e-access",
		RefreshToken: "e2e-refresh",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}
	if err := storage.PutJSON(context.Background(), repo, storage.KeyAuth, rec); err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
}

func TestLauncherLifecycle(t *testing.T) {
	backend := fakeBackend(t)
	cfg := testConfig(t, backend.URL)
	seedSession(t, cfg.Storage.Path)

	app, err := control.NewLauncher(cfg)
	if err != nil {
		t.Fatalf("failed to create launcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := app.Status()
	if !status.Ready || status.Failed {
		t.Errorf("expected ready launcher, got %+v", status)
	}
	if status.Degraded {
		t.Errorf("expected clean startup, got errors: %v", status.Errors)
	}
	if !status.SignedIn {
		t.Error("expected seeded session restored")
	}

	// While running, the instance lock must hold off a second handle.
	probe := lock.New(cfg.LockPath())
	if err := probe.Acquire(ctx); err == nil {
		_ = probe.Release()
		t.Error("expected instance lock to be held")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// Shutdown must release the lock and leave the store consistent.
	if err := probe.Acquire(context.Background()); err != nil {
		t.Errorf("expected lock released after shutdown, got %v", err)
	} else {
		_ = probe.Release()
	}

	db, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	repo := sqlite.NewRecordRepo(db)
	defer repo.Close()

	if _, err := repo.Get(context.Background(), storage.KeyPreferences); err != nil {
		t.Errorf("expected first-run preferences persisted, got %v", err)
	}
	if _, err := repo.Get(context.Background(), storage.KeyDownloadQueue); err != nil {
		t.Errorf("expected download queue persisted on shutdown, got %v", err)
	}
	if _, err := repo.Get(context.Background(), storage.KeyProfile); err != nil {
		t.Errorf("expected validated profile persisted, got %v", err)
	}
}

func TestLauncherStartsDegradedWhenBackendDown(t *testing.T) {
	backend := fakeBackend(t)
	cfg := testConfig(t, backend.URL)
	seedSession(t, cfg.Storage.Path)
	backend.Close()

	app, err := control.NewLauncher(cfg)
	if err != nil {
		t.Fatalf("failed to create launcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Non-interactive policy continues through recoverable failures.
	if err := app.Start(ctx); err != nil {
		t.Fatalf("expected degraded start, got %v", err)
	}

	status := app.Status()
	if !status.Ready || !status.Degraded {
		t.Errorf("expected degraded ready, got %+v", status)
	}
	found := false
	for _, e := range status.Errors {
		if e.Component == "RemoteAPI" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected RemoteAPI failure recorded, got %v", status.Errors)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}
