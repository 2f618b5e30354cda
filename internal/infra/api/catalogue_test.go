package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHotCataloguePublicAndPaged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/catalogue/hot" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("catalogue call must be public, got auth %q", got)
		}
		q := r.URL.Query()
		if q.Get("take") != "12" || q.Get("skip") != "24" {
			t.Errorf("unexpected paging %v", q)
		}
		w.Write([]byte(`{"games":[{"id":1,"title":"Portal"}],"steamDevelopers":[{"id":3,"name":"Valve"}]}`))
	}))
	defer server.Close()

	// Works signed out.
	client, _, _ := newTestClient(t, server.URL)

	page, err := client.HotCatalogue(context.Background(), 12, 24)
	if err != nil {
		t.Fatalf("HotCatalogue failed: %v", err)
	}
	if len(page.Games) != 1 || page.Games[0].Title != "Portal" {
		t.Errorf("unexpected games: %+v", page.Games)
	}
	if len(page.SteamDevelopers) != 1 || page.SteamDevelopers[0].Name != "Valve" {
		t.Errorf("unexpected developers: %+v", page.SteamDevelopers)
	}
}

func TestFeaturedGamesUnwrapsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/games/featured" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"featured":[{"id":1,"title":"Portal"},{"id":2,"title":"Half-Life"}]}`))
	}))
	defer server.Close()

	client, _, _ := newTestClient(t, server.URL)

	games, err := client.FeaturedGames(context.Background())
	if err != nil {
		t.Fatalf("FeaturedGames failed: %v", err)
	}
	if len(games) != 2 || games[1].Title != "Half-Life" {
		t.Errorf("unexpected featured list: %+v", games)
	}
}
