package domain

import (
	"testing"
	"time"
)

func TestSessionConsistent(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		sess Session
		want bool
	}{
		{"signed out", Session{}, true},
		{
			"signed in",
			Session{AccessToken: "at", RefreshToken: "rt", ExpiresAt: now},
			true,
		},
		{
			"missing refresh token",
			Session{AccessToken: "at", ExpiresAt: now},
			false,
		},
		{
			"missing expiry",
			Session{AccessToken: "at", RefreshToken: "rt"},
			false,
		},
		{
			"dangling refresh token",
			Session{RefreshToken: "rt"},
			false,
		},
		{
			"dangling expiry",
			Session{ExpiresAt: now},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sess.Consistent(); got != tt.want {
				t.Errorf("expected Consistent=%v, got %v", tt.want, got)
			}
		})
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	signedOut := Session{}
	if signedOut.Expired(now) {
		t.Error("signed-out session should not report expired")
	}

	live := Session{AccessToken: "at", RefreshToken: "rt", ExpiresAt: now.Add(time.Hour)}
	if live.Expired(now) {
		t.Error("session expiring in an hour should not be expired")
	}

	stale := Session{AccessToken: "at", RefreshToken: "rt", ExpiresAt: now.Add(-time.Second)}
	if !stale.Expired(now) {
		t.Error("session past expiry should be expired")
	}

	boundary := Session{AccessToken: "at", RefreshToken: "rt", ExpiresAt: now}
	if !boundary.Expired(now) {
		t.Error("session expiring exactly now should be expired")
	}
}

func TestSessionExpiryAppliesSkew(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	got := SessionExpiry(now, 3600)
	want := now.Add(time.Hour - TokenExpirySkew)
	if !got.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, got)
	}
}

func TestSubscriptionActive(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		sess Session
		want bool
	}{
		{"signed out", Session{}, false},
		{
			"no subscription",
			Session{AccessToken: "at", RefreshToken: "rt", ExpiresAt: now.Add(time.Hour)},
			false,
		},
		{
			"active",
			Session{
				AccessToken: "at", RefreshToken: "rt", ExpiresAt: now.Add(time.Hour),
				Subscription: &Subscription{Plan: "premium", ExpiresAt: now.Add(24 * time.Hour)},
			},
			true,
		},
		{
			"lapsed",
			Session{
				AccessToken: "at", RefreshToken: "rt", ExpiresAt: now.Add(time.Hour),
				Subscription: &Subscription{Plan: "premium", ExpiresAt: now.Add(-time.Minute)},
			},
			false,
		},
		{
			"no expiry means active",
			Session{
				AccessToken: "at", RefreshToken: "rt", ExpiresAt: now.Add(time.Hour),
				Subscription: &Subscription{Plan: "lifetime"},
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sess.SubscriptionActive(now); got != tt.want {
				t.Errorf("expected SubscriptionActive=%v, got %v", tt.want, got)
			}
		})
	}
}

func TestAuthRecordRoundTrip(t *testing.T) {
	empty := AuthRecord{}
	if sess := empty.Session(); sess.SignedIn() || !sess.Consistent() {
		t.Errorf("empty record should produce an empty consistent session, got %+v", sess)
	}

	rec := AuthRecord{AccessToken: "at", RefreshToken: "rt", ExpiresAt: 1748779200}
	sess := rec.Session()
	if !sess.SignedIn() || !sess.Consistent() {
		t.Fatalf("expected a signed-in consistent session, got %+v", sess)
	}
	if sess.ExpiresAt.Unix() != rec.ExpiresAt {
		t.Errorf("expected expiry %d, got %d", rec.ExpiresAt, sess.ExpiresAt.Unix())
	}
}
