package control

import (
	"context"

	"github.com/vietddude/launcher/internal/core/domain"
	"github.com/vietddude/launcher/internal/infra/storage"
)

// Locker guards the single-instance invariant. Acquire may be called
// again by a retried startup attempt without releasing first.
type Locker interface {
	Acquire(ctx context.Context) error
	Release() error
}

// PathChecker validates and repairs the directories the launcher
// cannot run without.
type PathChecker interface {
	// Check returns the required paths that are currently unusable.
	Check(ctx context.Context) ([]string, error)

	// Repair attempts to make the given paths usable again.
	Repair(ctx context.Context, paths []string) error
}

// HelperController supervises the helper subprocess.
type HelperController interface {
	// Kill takes the helper down, cooperatively first and by force
	// when that is ignored.
	Kill(ctx context.Context) error
}

// DownloadManager owns the transfer queue.
type DownloadManager interface {
	// StopAll cancels active transfers and persists the queue.
	StopAll(ctx context.Context) error
}

// RealtimeSocket is the push event connection to the backend.
type RealtimeSocket interface {
	// Close tears the connection down for good.
	Close() error
}

// Reporter persists a failure report for a startup attempt that was
// given up on, or for a shutdown that went wrong.
type Reporter interface {
	Record(state string, trigger error, errs []*domain.StartupError) (string, error)
}

// Service is one entry of the startup registry. Declared order is
// execution order; a later service may assume the earlier ones at
// least attempted their setup.
type Service struct {
	Name string
	Init func(ctx context.Context) error
}

// Deps are the collaborators the shell drives. Lock, Records, Paths
// and Prompter must be set; the shutdown collaborators may be nil when
// the component is disabled by configuration.
type Deps struct {
	Lock     Locker
	Records  storage.RecordRepository
	Paths    PathChecker
	Services []Service
	Prompter Prompter
	Reporter Reporter

	// Shutdown collaborators, in teardown order.
	Downloads DownloadManager
	Realtime  RealtimeSocket
	Helper    HelperController
}
