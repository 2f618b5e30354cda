package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/vietddude/launcher/internal/core/domain"
	"github.com/vietddude/launcher/internal/infra/storage"
)

// SessionEvent notifies listeners of auth state transitions.
type SessionEvent int

const (
	EventSignedIn SessionEvent = iota
	EventSignedOut
)

// SessionManager owns the launcher's session. Every mutation replaces
// the whole value so the all-or-nothing token invariant can never be
// observed half-applied, and every mutation is persisted before it is
// announced.
type SessionManager struct {
	records storage.RecordRepository
	clock   clockwork.Clock
	log     *slog.Logger

	mu      sync.RWMutex
	session domain.Session

	listenerMu sync.RWMutex
	listeners  []func(SessionEvent)
}

func NewSessionManager(records storage.RecordRepository, clock clockwork.Clock) *SessionManager {
	return &SessionManager{
		records: records,
		clock:   clock,
		log:     slog.Default(),
	}
}

// OnChange registers a listener for sign-in/sign-out transitions.
// Listeners run synchronously in transition order.
func (m *SessionManager) OnChange(fn func(SessionEvent)) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Current returns a copy of the session.
func (m *SessionManager) Current() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// SignedIn reports whether a session is present.
func (m *SessionManager) SignedIn() bool {
	return m.Current().SignedIn()
}

// Load restores the persisted session. A missing auth record simply
// means signed out.
func (m *SessionManager) Load(ctx context.Context) error {
	rec, err := storage.GetJSON[domain.AuthRecord](ctx, m.records, storage.KeyAuth)
	if errors.Is(err, storage.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	sess := rec.Session()
	if sess.SignedIn() {
		profile, err := storage.GetJSON[domain.Profile](ctx, m.records, storage.KeyProfile)
		if err == nil {
			sess.Subscription = profile.Subscription
		} else if !errors.Is(err, storage.ErrRecordNotFound) {
			m.log.Warn("Failed to load profile record", "error", err)
		}
	}

	m.mu.Lock()
	m.session = sess
	m.mu.Unlock()
	return nil
}

// ApplyGrant replaces the token fields from a grant and persists them.
// An empty refresh token in the grant keeps the current one (the
// backend does not always rotate it). The subscription carries over; a
// fresh sign-in has none yet and a refresh must not drop it.
func (m *SessionManager) ApplyGrant(ctx context.Context, grant domain.TokenGrant) error {
	if grant.AccessToken == "" || grant.ExpiresIn <= 0 {
		return fmt.Errorf("incomplete token grant")
	}

	m.mu.Lock()
	refresh := grant.RefreshToken
	if refresh == "" {
		refresh = m.session.RefreshToken
	}
	if refresh == "" {
		m.mu.Unlock()
		return fmt.Errorf("token grant without refresh token")
	}

	m.session = domain.Session{
		AccessToken:  grant.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    domain.SessionExpiry(m.clock.Now(), grant.ExpiresIn),
		Subscription: m.session.Subscription,
	}
	rec := domain.AuthRecord{
		AccessToken:  m.session.AccessToken,
		RefreshToken: m.session.RefreshToken,
		ExpiresAt:    m.session.ExpiresAt.Unix(),
	}
	m.mu.Unlock()

	if err := storage.PutJSON(ctx, m.records, storage.KeyAuth, rec); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// SetProfile stores the remote profile and adopts its subscription.
func (m *SessionManager) SetProfile(ctx context.Context, profile domain.Profile) error {
	m.mu.Lock()
	if !m.session.SignedIn() {
		m.mu.Unlock()
		return domain.ErrUserNotLoggedIn
	}
	m.session.Subscription = profile.Subscription
	m.mu.Unlock()

	if err := storage.PutJSON(ctx, m.records, storage.KeyProfile, profile); err != nil {
		return fmt.Errorf("failed to persist profile: %w", err)
	}
	return nil
}

// Clear wipes the session and its persisted records, then announces
// the sign-out. Used by explicit sign-out, refresh failure and the 401
// intercept alike.
func (m *SessionManager) Clear(ctx context.Context, reason string) error {
	m.mu.Lock()
	wasSignedIn := m.session.SignedIn()
	m.session = domain.Session{}
	m.mu.Unlock()

	err := m.records.BatchDelete(ctx, storage.KeyAuth, storage.KeyProfile, storage.KeyLibrary)
	if err != nil {
		m.log.Warn("Failed to delete session records", "error", err)
	}

	if wasSignedIn {
		m.log.Info("Session cleared", "reason", reason)
		m.notify(EventSignedOut)
	}
	return err
}

func (m *SessionManager) notify(event SessionEvent) {
	m.listenerMu.RLock()
	listeners := make([]func(SessionEvent), len(m.listeners))
	copy(listeners, m.listeners)
	m.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn(event)
	}
}
