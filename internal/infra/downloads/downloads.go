// Package downloads runs the launcher's transfer queue.
package downloads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/vietddude/launcher/internal/core/config"
	"github.com/vietddude/launcher/internal/core/domain"
	"github.com/vietddude/launcher/internal/core/sentinel"
	"github.com/vietddude/launcher/internal/infra/storage"
	"github.com/vietddude/launcher/internal/metrics"
)

// ErrStopped is returned for operations after StopAll.
const ErrStopped = sentinel.Error("download manager stopped")

// Status describes where a transfer is in its life.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusActive  Status = "active"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
	StatusStopped Status = "stopped"
)

// Transfer is one queued download.
type Transfer struct {
	ID      string    `json:"id"`
	GameID  string    `json:"gameId"`
	URL     string    `json:"url"`
	Dest    string    `json:"dest"`
	Status  Status    `json:"status"`
	Error   string    `json:"error,omitempty"`
	AddedAt time.Time `json:"addedAt"`
}

// queueRecord is the persisted shape of the queue.
type queueRecord struct {
	Transfers []Transfer `json:"transfers"`
}

// Fetcher moves one url to dest. It must honor ctx cancellation.
type Fetcher func(ctx context.Context, url, dest string) error

// Manager runs up to MaxActive transfers at a time, persists the queue
// after every change, and can stop everything for shutdown.
type Manager struct {
	cfg     config.DownloadsConfig
	records storage.RecordRepository
	fetch   Fetcher
	clock   clockwork.Clock
	log     *slog.Logger

	runCtx    context.Context
	cancelRun context.CancelFunc

	mu      sync.Mutex
	queue   []*Transfer
	active  map[string]struct{}
	stopped bool
	wg      sync.WaitGroup
}

// NewManager creates the manager. The fetcher is injected so tests can
// stand in a fake; production wires HTTPFetcher.
func NewManager(cfg config.DownloadsConfig, records storage.RecordRepository, fetch Fetcher, clock clockwork.Clock) *Manager {
	if cfg.MaxActive <= 0 {
		cfg.MaxActive = 3
	}
	runCtx, cancelRun := context.WithCancel(context.Background())
	return &Manager{
		cfg:       cfg,
		records:   records,
		fetch:     fetch,
		clock:     clock,
		log:       slog.Default(),
		runCtx:    runCtx,
		cancelRun: cancelRun,
		active:    make(map[string]struct{}),
	}
}

// Initialize applies the user's download directory preference and
// restores the persisted queue. Transfers that were active when the
// previous run died go back to queued when auto-resume is on, otherwise
// they park as stopped until the user resumes them.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prefs, err := storage.GetJSON[domain.Preferences](ctx, m.records, storage.KeyPreferences); err == nil && prefs.DownloadsPath != "" {
		m.cfg.Dir = prefs.DownloadsPath
		m.log.Info("Download directory overridden by preference", "dir", m.cfg.Dir)
	}

	rec, err := storage.GetJSON[queueRecord](ctx, m.records, storage.KeyDownloadQueue)
	if errors.Is(err, storage.ErrRecordNotFound) {
		m.log.Info("Download queue empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load download queue: %w", err)
	}

	interrupted := 0
	for i := range rec.Transfers {
		t := rec.Transfers[i]
		if t.Status == StatusActive {
			interrupted++
			if m.cfg.AutoResume {
				t.Status = StatusQueued
			} else {
				t.Status = StatusStopped
			}
		}
		m.queue = append(m.queue, &t)
	}
	m.log.Info("Download queue restored", "transfers", len(m.queue), "interrupted", interrupted)

	if m.cfg.AutoResume {
		m.pumpLocked()
	}
	return m.persistLocked(ctx)
}

// Enqueue adds a transfer and starts it when a slot is free.
func (m *Manager) Enqueue(ctx context.Context, gameID, rawURL string) (Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return Transfer{}, ErrStopped
	}

	id := uuid.NewString()
	t := &Transfer{
		ID:      id,
		GameID:  gameID,
		URL:     rawURL,
		Dest:    m.destFor(rawURL, id),
		Status:  StatusQueued,
		AddedAt: m.clock.Now(),
	}
	m.queue = append(m.queue, t)
	m.pumpLocked()

	if err := m.persistLocked(ctx); err != nil {
		return *t, err
	}
	return *t, nil
}

// Resume restarts parked transfers after an Initialize without
// auto-resume.
func (m *Manager) Resume(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return ErrStopped
	}

	for _, t := range m.queue {
		if t.Status == StatusStopped {
			t.Status = StatusQueued
		}
	}
	m.pumpLocked()
	return m.persistLocked(ctx)
}

// StopAll cancels every active transfer and waits for them, bounded by
// ctx. The queue is persisted so the next run can resume.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	m.mu.Unlock()

	m.cancelRun()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("downloads did not stop in time: %w", ctx.Err())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.log.Info("Downloads stopped", "transfers", len(m.queue))
	return m.persistLocked(ctx)
}

// Snapshot returns a copy of the queue.
func (m *Manager) Snapshot() []Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Transfer, 0, len(m.queue))
	for _, t := range m.queue {
		out = append(out, *t)
	}
	return out
}

// pumpLocked starts queued transfers while slots are free. Callers hold
// the mutex.
func (m *Manager) pumpLocked() {
	for _, t := range m.queue {
		if len(m.active) >= m.cfg.MaxActive {
			return
		}
		if t.Status != StatusQueued {
			continue
		}
		t.Status = StatusActive
		m.active[t.ID] = struct{}{}
		metrics.ActiveDownloads.Inc()
		m.wg.Add(1)
		go m.transfer(t)
	}
}

func (m *Manager) transfer(t *Transfer) {
	defer m.wg.Done()
	m.log.Info("Download started", "id", t.ID, "url", t.URL)
	err := m.fetch(m.runCtx, t.URL, t.Dest)

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, t.ID)
	metrics.ActiveDownloads.Dec()

	switch {
	case err == nil:
		t.Status = StatusDone
		t.Error = ""
		m.log.Info("Download finished", "id", t.ID, "dest", t.Dest)
	case errors.Is(err, context.Canceled):
		t.Status = StatusStopped
		m.log.Info("Download stopped", "id", t.ID)
	default:
		t.Status = StatusFailed
		t.Error = err.Error()
		m.log.Warn("Download failed", "id", t.ID, "error", err)
	}

	if !m.stopped {
		m.pumpLocked()
	}

	persistCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.persistLocked(persistCtx); err != nil {
		m.log.Warn("Failed to persist download queue", "error", err)
	}
}

func (m *Manager) persistLocked(ctx context.Context) error {
	rec := queueRecord{Transfers: make([]Transfer, 0, len(m.queue))}
	for _, t := range m.queue {
		rec.Transfers = append(rec.Transfers, *t)
	}
	if err := storage.PutJSON(ctx, m.records, storage.KeyDownloadQueue, rec); err != nil {
		return fmt.Errorf("failed to persist download queue: %w", err)
	}
	return nil
}

func (m *Manager) destFor(rawURL, id string) string {
	name := id
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			name = base
		}
	}
	return filepath.Join(m.cfg.Dir, name)
}

// HTTPFetcher streams the url into dest through a temp file in the
// same directory, so a crash never leaves a half-written artifact
// under the final name. Transfers are long; ctx, not a client timeout,
// bounds them.
func HTTPFetcher(httpc *http.Client) Fetcher {
	if httpc == nil {
		httpc = &http.Client{}
	}
	return func(ctx context.Context, rawURL, dest string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		resp, err := httpc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return &domain.StatusError{Code: resp.StatusCode}
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
		if err != nil {
			return err
		}
		defer os.Remove(tmp.Name())

		if _, err := io.Copy(tmp, resp.Body); err != nil {
			tmp.Close()
			return err
		}
		if err := tmp.Close(); err != nil {
			return err
		}
		return os.Rename(tmp.Name(), dest)
	}
}
