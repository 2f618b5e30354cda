package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/vietddude/launcher/internal/core/domain"
	"github.com/vietddude/launcher/internal/core/retry"
	"github.com/vietddude/launcher/internal/infra/storage"
	"github.com/vietddude/launcher/internal/metrics"
	"github.com/vietddude/launcher/internal/version"
)

// Config holds API client settings.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
}

// Client is the resilient backend API client. Transient transport
// failures and 5xx responses are retried with exponential backoff;
// auth state problems are surfaced immediately and never retried.
type Client struct {
	baseURL  string
	httpc    *http.Client
	sessions *SessionManager
	records  storage.RecordRepository
	policy   retry.Policy
	clock    clockwork.Clock
	log      *slog.Logger

	refreshGroup singleflight.Group
	signInHooks  []func(context.Context)
}

// NewClient creates the backend client.
func NewClient(cfg Config, sessions *SessionManager, records storage.RecordRepository, clock clockwork.Clock) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		sessions: sessions,
		records:  records,
		policy: retry.Policy{
			MaxAttempts: cfg.RetryAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			Growth:      retry.GrowthExponential,
		},
		clock: clock,
		log:   slog.Default(),
	}
}

// Sessions returns the session manager the client mutates.
func (c *Client) Sessions() *SessionManager {
	return c.sessions
}

// requestOptions carries per-call switches. Auth is opt-out: the only
// endpoints that skip it are the auth flow itself and the public
// catalogue.
type requestOptions struct {
	needsAuth         bool
	needsSubscription bool
	ifModifiedSince   time.Time
	query             url.Values
}

// RequestOption customizes a single call.
type RequestOption func(*requestOptions)

// WithoutAuth marks the call as public: no session required, no bearer
// header, and a 401 is just a status.
func WithoutAuth() RequestOption {
	return func(o *requestOptions) { o.needsAuth = false }
}

// WithSubscription gates the call on an active subscription.
func WithSubscription() RequestOption {
	return func(o *requestOptions) { o.needsSubscription = true }
}

// WithIfModifiedSince makes a GET conditional; an unchanged resource
// surfaces as domain.ErrNotModified.
func WithIfModifiedSince(t time.Time) RequestOption {
	return func(o *requestOptions) { o.ifModifiedSince = t }
}

// WithQuery adds a query parameter.
func WithQuery(key, value string) RequestOption {
	return func(o *requestOptions) { o.query.Add(key, value) }
}

// Get performs a GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodGet, path, nil, out, opts)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPost, path, body, out, opts)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPut, path, body, out, opts)
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPatch, path, body, out, opts)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.do(ctx, http.MethodDelete, path, nil, out, opts)
}

// connError marks a failure that produced no HTTP response.
type connError struct {
	err error
}

func (e *connError) Error() string { return fmt.Sprintf("connection failed: %v", e.err) }
func (e *connError) Unwrap() error { return e.err }

// retryable classifies a single attempt's failure: transport errors
// and 5xx are worth another try, everything else is not.
func retryable(err error) bool {
	var conn *connError
	if errors.As(err, &conn) {
		return true
	}
	var status *domain.StatusError
	if errors.As(err, &status) {
		return status.Code >= 500 && status.Code < 600
	}
	return false
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, opts []RequestOption) error {
	o := requestOptions{needsAuth: true, query: url.Values{}}
	for _, opt := range opts {
		opt(&o)
	}

	token := ""
	if o.needsAuth {
		tok, err := c.ValidToken(ctx)
		if err != nil {
			return err
		}
		token = tok
	}
	if o.needsSubscription {
		if !c.sessions.Current().SubscriptionActive(c.clock.Now()) {
			return domain.ErrSubscriptionRequired
		}
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	attempts := 0
	raw, err := retry.Do(ctx, c.clock, c.policy, retryable, func(ctx context.Context) ([]byte, error) {
		attempts++
		if attempts > 1 {
			metrics.APIRetriesTotal.Inc()
		}
		return c.attempt(ctx, method, path, payload, token, o)
	})

	if err != nil {
		err = c.mapFailure(ctx, method, path, err, o)
		metrics.APIRequestsTotal.WithLabelValues(method, "error").Inc()
		return err
	}

	metrics.APIRequestsTotal.WithLabelValues(method, "success").Inc()
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// attempt performs one HTTP exchange and classifies its outcome.
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, token string, o requestOptions) ([]byte, error) {
	target := c.baseURL + path
	if len(o.query) > 0 {
		target += "?" + o.query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "launcher/"+version.Version)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if !o.ifModifiedSince.IsZero() {
		req.Header.Set("If-Modified-Since", o.ifModifiedSince.UTC().Format(http.TimeFormat))
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &connError{err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &connError{err: err}
	}

	switch {
	case resp.StatusCode == http.StatusNotModified && !o.ifModifiedSince.IsZero():
		return nil, domain.ErrNotModified
	case resp.StatusCode == http.StatusUnauthorized && o.needsAuth:
		return nil, fmt.Errorf("%s %s: %w", method, path, domain.ErrUnauthorized)
	case resp.StatusCode >= 400:
		return nil, &domain.StatusError{Code: resp.StatusCode, Body: trimBody(raw)}
	}
	return raw, nil
}

// mapFailure turns raw attempt failures into the taxonomy callers
// handle. A 401 clears the session before the error escapes.
func (c *Client) mapFailure(ctx context.Context, method, path string, err error, o requestOptions) error {
	if errors.Is(err, domain.ErrNotModified) {
		return domain.ErrNotModified
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		c.handleUnauthorized(ctx)
		return err
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		var conn *connError
		if errors.As(exhausted.Err, &conn) {
			c.log.Warn("Backend unreachable", "method", method, "path", path, "attempts", exhausted.Attempts)
			return &domain.BackendUnavailableError{Attempts: exhausted.Attempts, Err: conn.Unwrap()}
		}
		var status *domain.StatusError
		if errors.As(exhausted.Err, &status) {
			c.log.Warn("Backend kept failing", "method", method, "path", path, "status", status.Code, "attempts", exhausted.Attempts)
			return &domain.NetworkError{Status: status.Code, Attempts: exhausted.Attempts, Err: status}
		}
		return exhausted
	}
	return err
}

// ValidToken returns an access token that is safe to send: present and
// not within the expiry skew, refreshing it synchronously when needed.
// Concurrent callers share a single refresh.
func (c *Client) ValidToken(ctx context.Context) (string, error) {
	sess := c.sessions.Current()
	if !sess.SignedIn() {
		return "", domain.ErrUserNotLoggedIn
	}
	if !sess.Expired(c.clock.Now()) {
		return sess.AccessToken, nil
	}

	token, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return c.refreshSession(ctx)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// refreshSession exchanges the refresh token for a new access token.
// Failure means the stored credentials are dead weight: the session is
// cleared so the launcher falls back to signed-out instead of looping.
func (c *Client) refreshSession(ctx context.Context) (string, error) {
	sess := c.sessions.Current()
	if !sess.SignedIn() {
		return "", domain.ErrUserNotLoggedIn
	}

	var grant domain.TokenGrant
	err := c.Post(ctx, "/auth/refresh", map[string]string{"refreshToken": sess.RefreshToken}, &grant, WithoutAuth())
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		c.log.Warn("Token refresh failed", "error", err)
		c.handleUnauthorized(ctx)
		return "", fmt.Errorf("failed to refresh session: %w", err)
	}

	if err := c.sessions.ApplyGrant(ctx, grant); err != nil {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		c.handleUnauthorized(ctx)
		return "", fmt.Errorf("failed to apply refreshed session: %w", err)
	}

	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	return grant.AccessToken, nil
}

func (c *Client) handleUnauthorized(ctx context.Context) {
	if err := c.sessions.Clear(ctx, "unauthorized"); err != nil {
		c.log.Warn("Failed to clear rejected session", "error", err)
	}
}

func trimBody(raw []byte) string {
	const max = 256
	s := strings.TrimSpace(string(raw))
	if len(s) > max {
		return s[:max]
	}
	return s
}
