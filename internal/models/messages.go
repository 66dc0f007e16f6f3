package models

import "time"

// HomeCommand is a user action on the home screen delivered by the UI host.
type HomeCommand struct {
	Action string `json:"action"`
}

// AuthCommand is a user action on the login or sign-up screens.
type AuthCommand struct {
	Action      string `json:"action"`
	Email       string `json:"email,omitempty"`
	Password    string `json:"password,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	ProviderID  string `json:"provider_id,omitempty"` // federated sign-in, e.g. google.com
	IDToken     string `json:"id_token,omitempty"`
}

// ScreenSnapshot is the read-only view of the home screen published to the UI.
type ScreenSnapshot struct {
	State       AcquisitionState `json:"state"`
	Attempt     int              `json:"attempt"`
	MaxAttempts int              `json:"max_attempts"`
	Loading     bool             `json:"loading"`
	Coordinate  *Coordinate      `json:"coordinate,omitempty"`
	Facilities  *FacilitySet     `json:"facilities,omitempty"`
}

// Notification is a blocking, user-facing message raised by an Error entry.
type Notification struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Route tells the navigation host which screen to show.
type Route struct {
	Screen string `json:"screen"`
	UserID string `json:"user_id,omitempty"`
}
