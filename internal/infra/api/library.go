package api

import (
	"context"
	"fmt"

	"github.com/vietddude/launcher/internal/core/domain"
	"github.com/vietddude/launcher/internal/infra/storage"
)

// SyncLibrary fetches the remote library and caches it locally. Runs as
// a fire-and-forget hook after sign-in and can be called on demand.
func (c *Client) SyncLibrary(ctx context.Context) (domain.LibrarySnapshot, error) {
	var games []domain.LibraryGame
	if err := c.Get(ctx, "/profile/library", &games); err != nil {
		return domain.LibrarySnapshot{}, err
	}

	snapshot := domain.LibrarySnapshot{
		SyncedAt: c.clock.Now(),
		Games:    games,
	}
	if err := storage.PutJSON(ctx, c.records, storage.KeyLibrary, snapshot); err != nil {
		return domain.LibrarySnapshot{}, fmt.Errorf("failed to cache library: %w", err)
	}

	c.log.Info("Library synced", "games", len(games))
	return snapshot, nil
}

// CachedLibrary returns the locally cached snapshot, if any.
func (c *Client) CachedLibrary(ctx context.Context) (domain.LibrarySnapshot, error) {
	return storage.GetJSON[domain.LibrarySnapshot](ctx, c.records, storage.KeyLibrary)
}
