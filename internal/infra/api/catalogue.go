package api

import (
	"context"
	"strconv"

	"github.com/vietddude/launcher/internal/core/domain"
)

// HotCatalogue fetches a page of the trending catalogue. Public
// endpoint; pass WithIfModifiedSince to reuse a cached page.
func (c *Client) HotCatalogue(ctx context.Context, take, skip int, opts ...RequestOption) (domain.HotCatalogue, error) {
	var out domain.HotCatalogue
	opts = append(opts,
		WithoutAuth(),
		WithQuery("take", strconv.Itoa(take)),
		WithQuery("skip", strconv.Itoa(skip)),
	)
	err := c.Get(ctx, "/catalogue/hot", &out, opts...)
	return out, err
}

// FeaturedGames fetches the curated featured list. Public endpoint.
func (c *Client) FeaturedGames(ctx context.Context, opts ...RequestOption) ([]domain.Game, error) {
	var out struct {
		Featured []domain.Game `json:"featured"`
	}
	opts = append(opts, WithoutAuth())
	err := c.Get(ctx, "/games/featured", &out, opts...)
	return out.Featured, err
}
