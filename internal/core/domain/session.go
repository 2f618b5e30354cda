package domain

import "time"

// TokenExpirySkew is subtracted from server-reported token lifetimes so
// refreshes happen before the backend actually rejects the token.
const TokenExpirySkew = 5 * time.Minute

// Session holds the authenticated state of the launcher.
// All token fields are set together or empty together: a session is
// either fully signed in or fully signed out, never in between.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Subscription *Subscription
}

// SignedIn reports whether the session carries credentials.
func (s Session) SignedIn() bool {
	return s.AccessToken != ""
}

// Expired reports whether the access token needs a refresh before use.
// A signed-out session is never expired; it is simply absent.
func (s Session) Expired(now time.Time) bool {
	return s.SignedIn() && !s.ExpiresAt.After(now)
}

// SubscriptionActive reports whether the session carries a subscription
// that has not lapsed. A zero expiry means no expiry.
func (s Session) SubscriptionActive(now time.Time) bool {
	if !s.SignedIn() || s.Subscription == nil {
		return false
	}
	if s.Subscription.ExpiresAt.IsZero() {
		return true
	}
	return s.Subscription.ExpiresAt.After(now)
}

// Consistent reports whether the all-or-nothing field invariant holds.
func (s Session) Consistent() bool {
	signedIn := s.AccessToken != ""
	if (s.RefreshToken != "") != signedIn {
		return false
	}
	if s.ExpiresAt.IsZero() == signedIn {
		return false
	}
	return true
}

// TokenGrant is the payload delivered by the auth flow and the refresh
// endpoint: raw tokens plus a lifetime in seconds.
type TokenGrant struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// SessionExpiry computes the local expiry for a grant issued at now,
// applying TokenExpirySkew.
func SessionExpiry(now time.Time, expiresIn int64) time.Time {
	return now.Add(time.Duration(expiresIn)*time.Second - TokenExpirySkew)
}
