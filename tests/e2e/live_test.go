package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vietddude/launcher/internal/infra/api"
	"github.com/vietddude/launcher/internal/infra/storage/memory"
)

// TestLiveCatalogue exercises the unauthenticated catalogue endpoints
// against a running backend. Requires E2E_LIVE=true and a backend at
// LAUNCHER_API_URL (default http://localhost:8000).
func TestLiveCatalogue(t *testing.T) {
	if os.Getenv("E2E_LIVE") == "" {
		t.Skip("Skipping live E2E test. Set E2E_LIVE=true to run.")
	}

	baseURL := os.Getenv("LAUNCHER_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	clock := clockwork.NewRealClock()
	records := memory.NewMemoryStorage()
	sessions := api.NewSessionManager(records, clock)
	client := api.NewClient(api.Config{
		BaseURL:        baseURL,
		Timeout:        15 * time.Second,
		RetryAttempts:  3,
		RetryBaseDelay: 1 * time.Second,
	}, sessions, records, clock)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	hot, err := client.HotCatalogue(ctx, 12, 0)
	if err != nil {
		t.Fatalf("HotCatalogue failed: %v", err)
	}
	if len(hot.Games) == 0 {
		t.Error("expected at least one hot game")
	}
	for _, g := range hot.Games {
		if g.Title == "" {
			t.Errorf("game %d has no title", g.ID)
		}
	}
	t.Logf("hot catalogue: %d games, %d steam developers", len(hot.Games), len(hot.SteamDevelopers))

	featured, err := client.FeaturedGames(ctx)
	if err != nil {
		t.Fatalf("FeaturedGames failed: %v", err)
	}
	t.Logf("featured: %d games", len(featured))
}
