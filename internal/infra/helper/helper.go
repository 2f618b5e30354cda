package helper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vietddude/launcher/internal/core/config"
	"github.com/vietddude/launcher/internal/core/retry"
	"github.com/vietddude/launcher/internal/core/sentinel"
)

// ErrExited means the helper process died before its control endpoint
// answered.
const ErrExited = sentinel.Error("helper exited before becoming ready")

// killDrainTimeout bounds the wait for process exit after a forced
// kill. A killed process cannot linger, so this should never fire.
const killDrainTimeout = 10 * time.Second

// healthPolicy paces the startup health poll. The surrounding context
// carries the hard deadline.
var healthPolicy = retry.Policy{
	MaxAttempts: 20,
	BaseDelay:   250 * time.Millisecond,
	Growth:      retry.GrowthLinear,
	MaxDelay:    2 * time.Second,
}

// proc abstracts the spawned helper process so tests can stand in a
// fake.
type proc interface {
	Start() error
	Started() bool
	Exited() <-chan struct{}
	ForceKill() error
}

// Controller manages the RPC helper sidecar: spawn it, wait until its
// control endpoint answers, and take it down again on shutdown.
type Controller struct {
	cfg   config.HelperConfig
	clock clockwork.Clock
	httpc *http.Client
	log   *slog.Logger

	mu   sync.Mutex
	proc proc
}

// NewController creates the controller for the configured helper
// binary. The helper learns its control port from the command line.
func NewController(cfg config.HelperConfig, clock clockwork.Clock) *Controller {
	args := append([]string{fmt.Sprintf("--port=%d", cfg.Port)}, cfg.Args...)
	return &Controller{
		cfg:   cfg,
		clock: clock,
		httpc: &http.Client{Timeout: 2 * time.Second},
		log:   slog.Default(),
		proc:  newRealProc(cfg.Binary, args...),
	}
}

// Initialize spawns the helper and polls its health endpoint until it
// answers. A helper that is already alive is only re-probed, so a
// startup retry does not spawn a second copy.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.alive() {
		if err := c.proc.Start(); err != nil {
			return fmt.Errorf("failed to start helper: %w", err)
		}
		c.log.Info("Helper spawned", "binary", c.cfg.Binary, "port", c.cfg.Port)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.StartTimeout)
	defer cancel()

	retryable := func(err error) bool { return !errors.Is(err, ErrExited) }
	if err := retry.Run(ctx, c.clock, healthPolicy, retryable, c.probe); err != nil {
		c.log.Warn("Helper never became healthy", "error", err)
		if !errors.Is(err, ErrExited) {
			if killErr := c.proc.ForceKill(); killErr != nil {
				c.log.Warn("Failed to terminate unhealthy helper", "error", killErr)
			}
		}
		return fmt.Errorf("helper not ready: %w", err)
	}

	c.log.Info("Helper ready", "port", c.cfg.Port)
	return nil
}

// Kill takes the helper down: cooperative kill request first, forced
// termination when the helper refuses or ignores it. Nil when no
// helper is running.
func (c *Controller) Kill(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.alive() {
		return nil
	}

	if err := c.requestKill(ctx); err != nil {
		c.log.Warn("Cooperative kill failed", "error", err)
	} else {
		select {
		case <-c.proc.Exited():
			c.log.Info("Helper exited cooperatively")
			return nil
		case <-c.clock.After(c.cfg.StopTimeout):
			c.log.Warn("Helper ignored cooperative kill", "waited", c.cfg.StopTimeout)
		case <-ctx.Done():
		}
	}

	if err := c.proc.ForceKill(); err != nil {
		return fmt.Errorf("failed to force-kill helper: %w", err)
	}
	select {
	case <-c.proc.Exited():
		c.log.Info("Helper terminated")
		return nil
	case <-c.clock.After(killDrainTimeout):
		return fmt.Errorf("helper still running after forced kill")
	}
}

// alive reports a started process that has not exited yet.
func (c *Controller) alive() bool {
	if !c.proc.Started() {
		return false
	}
	select {
	case <-c.proc.Exited():
		return false
	default:
		return true
	}
}

func (c *Controller) probe(ctx context.Context) error {
	select {
	case <-c.proc.Exited():
		return ErrExited
	default:
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/health"), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("helper health returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Controller) requestKill(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/kill"), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("helper kill returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Controller) endpoint(path string) string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", c.cfg.Port, path)
}
