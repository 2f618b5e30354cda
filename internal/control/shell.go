// Package control orchestrates the launcher shell lifecycle: the
// startup sequence with its recovery decisions, and the shutdown
// sequence that must leave no lock or subprocess behind.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vietddude/launcher/internal/core/domain"
	"github.com/vietddude/launcher/internal/core/retry"
	"github.com/vietddude/launcher/internal/core/sentinel"
	"github.com/vietddude/launcher/internal/infra/storage"
	"github.com/vietddude/launcher/internal/metrics"
)

// State is one phase of the startup sequence.
type State string

const (
	StateNotStarted          State = "not_started"
	StateAcquiringLock       State = "acquiring_lock"
	StateInitializingStorage State = "initializing_storage"
	StateValidatingPaths     State = "validating_paths"
	StateStartingServices    State = "starting_services"
	StateReady               State = "ready"
	StateFailed              State = "failed"
)

// ErrStartupAborted is returned by Run when a decision ended startup
// before Ready without a fatal error of its own.
const ErrStartupAborted = sentinel.Error("startup aborted")

// lockPolicy paces lock acquisition. Linear growth: contention comes
// from another instance the user has to close, not from a transient
// spike that backs off on its own.
var lockPolicy = retry.Policy{
	MaxAttempts: 3,
	BaseDelay:   2 * time.Second,
	Growth:      retry.GrowthLinear,
}

// Shell drives the launcher through startup and shutdown. All state
// transitions happen on the goroutine calling Run; the accessors are
// safe to call from anywhere.
type Shell struct {
	deps  Deps
	clock clockwork.Clock
	log   *slog.Logger

	mu       sync.RWMutex
	state    State
	degraded bool
	errs     []*domain.StartupError

	shutdownOnce sync.Once
	exit         func(int)
}

// NewShell creates a shell around the given collaborators.
func NewShell(deps Deps, clock clockwork.Clock) *Shell {
	return &Shell{
		deps:  deps,
		clock: clock,
		log:   slog.Default(),
		state: StateNotStarted,
		exit:  os.Exit,
	}
}

// State returns the current startup phase.
func (s *Shell) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Degraded reports whether Ready was entered with failed services.
func (s *Shell) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// Errors returns the failures of the current attempt. They survive a
// degraded Ready so diagnostics can show what is broken; a new attempt
// starts clean.
func (s *Shell) Errors() []*domain.StartupError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.StartupError, len(s.errs))
	copy(out, s.errs)
	return out
}

// Run executes startup attempts until one reaches Ready or a decision
// ends the process. It returns nil once the launcher is Ready, the
// fatal startup error when the user gave up on one, ErrStartupAborted
// when a degraded start was abandoned, or ctx.Err() on cancellation.
func (s *Shell) Run(ctx context.Context) error {
	for {
		fatal := s.sequence(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}

		if fatal != nil {
			switch s.choose(ctx, fatalPrompt(fatal)) {
			case DecisionRetry:
				s.log.Info("Retrying startup sequence")
				continue
			case DecisionReport:
				s.report(fatal)
				return fatal
			default:
				return fatal
			}
		}

		errs := s.Errors()
		if len(errs) == 0 {
			s.enterReady(false)
			s.log.Info("Startup complete")
			return nil
		}

		switch s.choose(ctx, degradedPrompt(errs)) {
		case DecisionContinue:
			s.enterReady(true)
			s.log.Warn("Startup complete with degraded services", "failed", len(errs))
			return nil
		case DecisionRetry:
			s.log.Info("Retrying startup sequence")
			continue
		case DecisionReport:
			s.report(nil)
			return ErrStartupAborted
		default:
			return ErrStartupAborted
		}
	}
}

// sequence runs one startup attempt. It returns the fatal error that
// stopped it, or nil when the attempt got through every step; failed
// services are accumulated, not returned.
func (s *Shell) sequence(ctx context.Context) *domain.StartupError {
	s.beginAttempt()
	metrics.StartupAttempts.Inc()
	start := s.clock.Now()

	s.setState(StateAcquiringLock)
	if fatal := s.acquireLock(ctx); fatal != nil {
		return s.fail(fatal)
	}

	s.setState(StateInitializingStorage)
	if fatal := s.checkStorage(ctx); fatal != nil {
		return s.fail(fatal)
	}

	s.setState(StateValidatingPaths)
	if fatal := s.validatePaths(ctx); fatal != nil {
		return s.fail(fatal)
	}

	s.setState(StateStartingServices)
	s.startServices(ctx)

	metrics.StartupDuration.Observe(s.clock.Since(start).Seconds())
	return nil
}

func (s *Shell) beginAttempt() {
	s.mu.Lock()
	s.state = StateNotStarted
	s.degraded = false
	s.errs = nil
	s.mu.Unlock()
}

func (s *Shell) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Shell) enterReady(degraded bool) {
	s.mu.Lock()
	s.state = StateReady
	s.degraded = degraded
	s.mu.Unlock()
}

func (s *Shell) appendError(e *domain.StartupError) {
	s.mu.Lock()
	s.errs = append(s.errs, e)
	s.mu.Unlock()
}

func (s *Shell) fail(fatal *domain.StartupError) *domain.StartupError {
	s.setState(StateFailed)
	metrics.StartupFailures.WithLabelValues(string(fatal.Kind), fatal.Component).Inc()
	s.log.Error("Startup step failed", "component", fatal.Component, "kind", string(fatal.Kind), "error", fatal.Message)
	return fatal
}

func (s *Shell) acquireLock(ctx context.Context) *domain.StartupError {
	err := retry.Run(ctx, s.clock, lockPolicy, retry.Always, s.deps.Lock.Acquire)
	if err == nil {
		s.log.Debug("Instance lock acquired")
		return nil
	}
	return domain.NewLockFailure(err)
}

// checkStorage proves the record store is usable by reading the
// preference record. A missing record is a first run and gets
// defaults; an unreadable one is backed up best-effort and reset.
func (s *Shell) checkStorage(ctx context.Context) *domain.StartupError {
	if _, err := s.deps.Records.Get(ctx, storage.KeyPreferences); err == nil {
		s.log.Debug("Record store healthy")
		return nil
	} else if errors.Is(err, storage.ErrRecordNotFound) {
		s.log.Info("First run, writing default preferences")
		if err := storage.PutJSON(ctx, s.deps.Records, storage.KeyPreferences, domain.DefaultPreferences()); err != nil {
			return domain.NewStorageCorruption(err)
		}
		return nil
	} else {
		s.log.Warn("Record store unreadable, attempting recovery", "error", err)
	}

	if path, err := s.deps.Records.Backup(ctx); err != nil {
		s.log.Warn("Record store backup failed", "error", err)
	} else if path != "" {
		s.log.Info("Record store backed up", "path", path)
	}
	if err := storage.PutJSON(ctx, s.deps.Records, storage.KeyPreferences, domain.DefaultPreferences()); err != nil {
		return domain.NewStorageCorruption(err)
	}
	s.log.Info("Record store recovered with default preferences")
	return nil
}

func (s *Shell) validatePaths(ctx context.Context) *domain.StartupError {
	failed, err := s.deps.Paths.Check(ctx)
	if err != nil {
		return domain.NewPathInaccessible(nil, err)
	}
	if len(failed) == 0 {
		s.log.Debug("Required paths accessible")
		return nil
	}

	s.log.Warn("Required paths inaccessible, attempting repair", "paths", failed)
	if err := s.deps.Paths.Repair(ctx, failed); err != nil {
		return domain.NewPathInaccessible(failed, err)
	}
	failed, err = s.deps.Paths.Check(ctx)
	if err != nil {
		return domain.NewPathInaccessible(nil, err)
	}
	if len(failed) > 0 {
		return domain.NewPathInaccessible(failed, nil)
	}
	s.log.Info("Required paths repaired")
	return nil
}

// startServices runs every registered initializer in declared order. A
// failure is recorded and the sequence moves on: no service is
// essential enough to stop the ones after it.
func (s *Shell) startServices(ctx context.Context) {
	for _, svc := range s.deps.Services {
		s.log.Info("Initializing service", "service", svc.Name)
		if err := svc.Init(ctx); err != nil {
			failure := domain.NewServiceInitFailure(svc.Name, err)
			s.appendError(failure)
			metrics.StartupFailures.WithLabelValues(string(failure.Kind), failure.Component).Inc()
			s.log.Warn("Service failed to initialize, continuing", "service", svc.Name, "error", err)
			continue
		}
		s.log.Debug("Service initialized", "service", svc.Name)
	}
}

func (s *Shell) choose(ctx context.Context, p Prompt) Decision {
	d, err := s.deps.Prompter.Choose(ctx, p)
	if err != nil {
		d = fallbackDecision(p)
		s.log.Warn("Prompt unanswered, using default decision", "error", err, "decision", d.String())
	}
	return d
}

// report writes a failure report covering the current attempt. Report
// problems are logged, never fatal: the process is exiting anyway.
func (s *Shell) report(trigger *domain.StartupError) {
	if s.deps.Reporter == nil {
		return
	}
	var cause error
	if trigger != nil {
		cause = trigger
	}
	path, err := s.deps.Reporter.Record(string(s.State()), cause, s.Errors())
	if err != nil {
		s.log.Error("Failed to write failure report", "error", err)
		return
	}
	s.log.Info("Failure report written", "path", path)
}

func fatalPrompt(fatal *domain.StartupError) Prompt {
	return Prompt{
		Title:   "Startup failed",
		Message: fatalMessage(fatal.Kind),
		Detail:  fatal.Error(),
		Options: []Decision{DecisionRetry, DecisionReport, DecisionExit},
	}
}

func fatalMessage(kind domain.StartupErrorKind) string {
	switch kind {
	case domain.KindLockFailure:
		return "Another launcher instance appears to be running. Close it and retry."
	case domain.KindStorageCorruption:
		return "The local data store is damaged. Running \"launcher reset --hard\" or reinstalling may help."
	case domain.KindPathInaccessible:
		return "A required folder is missing or not writable."
	default:
		return "The launcher could not start."
	}
}

func degradedPrompt(errs []*domain.StartupError) Prompt {
	var lines []string
	for _, e := range errs {
		lines = append(lines, fmt.Sprintf("%s: %s", e.Component, e.Message))
	}
	return Prompt{
		Title:   "Some components failed to start",
		Message: fmt.Sprintf("%d component(s) could not be initialized. The launcher can continue with reduced functionality.", len(errs)),
		Detail:  strings.Join(lines, "\n"),
		Options: []Decision{DecisionContinue, DecisionRetry, DecisionReport},
	}
}
