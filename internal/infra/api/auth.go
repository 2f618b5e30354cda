package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/vietddude/launcher/internal/core/domain"
)

// OnSignIn registers a hook fired after every completed sign-in. Hooks
// run in their own goroutines and their failures never reach the
// sign-in caller; register them before the first SignIn.
func (c *Client) OnSignIn(hook func(context.Context)) {
	c.signInHooks = append(c.signInHooks, hook)
}

// SignIn adopts an externally obtained token grant: persist it, pull
// the profile so subscription gating works, announce the transition,
// then kick off the post-sign-in syncs without waiting for them.
func (c *Client) SignIn(ctx context.Context, grant domain.TokenGrant) error {
	if grant.AccessToken == "" || grant.RefreshToken == "" || grant.ExpiresIn <= 0 {
		return fmt.Errorf("incomplete token grant")
	}
	if err := c.sessions.ApplyGrant(ctx, grant); err != nil {
		return err
	}

	if err := c.syncProfile(ctx); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			// The grant was dead on arrival and the session is already
			// cleared again.
			return err
		}
		// Offline sign-in still counts; gated calls stay blocked until a
		// later profile sync succeeds.
		c.log.Warn("Profile sync after sign-in failed", "error", err)
	}

	c.sessions.notify(EventSignedIn)
	c.log.Info("Signed in")

	for _, hook := range c.signInHooks {
		go hook(context.WithoutCancel(ctx))
	}
	return nil
}

// SignOut tells the backend once, best-effort, and always clears local
// state. A launcher must be able to sign out while offline.
func (c *Client) SignOut(ctx context.Context) error {
	if sess := c.sessions.Current(); sess.SignedIn() {
		if err := c.postOnce(ctx, "/auth/logout", sess.AccessToken); err != nil {
			c.log.Warn("Logout request failed", "error", err)
		}
	}
	return c.sessions.Clear(ctx, "sign-out")
}

// postOnce issues a single POST outside the retry pipeline.
func (c *Client) postOnce(ctx context.Context, path, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return &domain.StatusError{Code: resp.StatusCode}
	}
	return nil
}

// syncProfile fetches the remote profile and adopts it.
func (c *Client) syncProfile(ctx context.Context) error {
	var profile domain.Profile
	if err := c.Get(ctx, "/profile/me", &profile); err != nil {
		return err
	}
	return c.sessions.SetProfile(ctx, profile)
}
