package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/launcher/internal/core/domain"
)

// Bootstrapper brings the API stack up during startup: restore the
// persisted session and, when one exists, validate it against the
// backend.
type Bootstrapper struct {
	client *Client
	log    *slog.Logger
}

func NewBootstrapper(client *Client) *Bootstrapper {
	return &Bootstrapper{client: client, log: slog.Default()}
}

// Setup restores and validates the session. A stored session the
// backend rejects is silently downgraded to signed-out; an unreachable
// backend is an error the sequencer records as recoverable.
func (b *Bootstrapper) Setup(ctx context.Context) error {
	if err := b.client.Sessions().Load(ctx); err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	if !b.client.Sessions().SignedIn() {
		b.log.Info("No stored session")
		return nil
	}

	if err := b.client.syncProfile(ctx); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrUserNotLoggedIn) {
			b.log.Info("Stored session rejected, continuing signed out")
			return nil
		}
		return fmt.Errorf("failed to validate session: %w", err)
	}

	b.log.Info("Session restored")
	return nil
}
