package domain

import "time"

// Preferences is the persisted user preference record.
type Preferences struct {
	DownloadsPath   string `json:"downloadsPath"`
	Language        string `json:"language"`
	LaunchMinimized bool   `json:"launchMinimized"`
	Telemetry       bool   `json:"telemetry"`
}

// DefaultPreferences returns the values written on first run and after
// storage recovery.
func DefaultPreferences() Preferences {
	return Preferences{
		Language:  "en",
		Telemetry: false,
	}
}

// AuthRecord is the persisted shape of session credentials.
type AuthRecord struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"` // unix seconds, skew already applied
}

// Session converts the record back into a live session value.
func (r AuthRecord) Session() Session {
	if r.AccessToken == "" {
		return Session{}
	}
	return Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    time.Unix(r.ExpiresAt, 0),
	}
}

// Profile is the persisted remote user record.
type Profile struct {
	ID           string        `json:"id"`
	DisplayName  string        `json:"displayName"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// Subscription describes the user's plan. A zero expiry means the plan
// does not lapse.
type Subscription struct {
	Plan      string    `json:"plan"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// LibrarySnapshot is the locally cached remote library state.
type LibrarySnapshot struct {
	SyncedAt time.Time     `json:"syncedAt"`
	Games    []LibraryGame `json:"games"`
}

// LibraryGame is one owned title in the synced library.
type LibraryGame struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	IconURL  string `json:"iconUrl"`
	Favorite bool   `json:"favorite"`
	Playtime int64  `json:"playtimeSeconds"`
}
