package domain

import "time"

// FailureReport is the diagnostic artifact written when a startup
// attempt is reported instead of retried.
type FailureReport struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Version   string    `json:"version"`
	OS        string    `json:"os"`
	Arch      string    `json:"arch"`
	GoVersion string    `json:"goVersion"`
	Hostname  string    `json:"hostname"`

	// State is the sequencer state the failure was observed in.
	State string `json:"state"`

	// Trigger is the fatal error text, empty when the report covers
	// recoverable failures only.
	Trigger string `json:"trigger,omitempty"`

	Errors []*StartupError `json:"errors"`
}
