package constants

import (
	"strings"
	"time"
)

// Facility search defaults
const (
	DefaultSearchRadiusMeters = 5000
	DefaultFacilityCategory   = "hospital"
	DefaultPlacesBaseURL      = "https://maps.gomaps.pro/maps/api/place/nearbysearch/json"
	DefaultHTTPTimeout        = 10 * time.Second
	DefaultPublishTimeout     = 5 * time.Second
	DefaultOutboxSize         = 64
)

// Home screen commands accepted over MQTT
const (
	ActionRequestLocation = "request_location"
	ActionCancelLocation  = "cancel_location"
	ActionFindHospitals   = "find_hospitals"
)

// Auth commands accepted over MQTT
const (
	ActionSignIn    = "sign_in"
	ActionSignUp    = "sign_up"
	ActionSignInIDP = "sign_in_idp"
	ActionSignOut   = "sign_out"
)

// Topic suffixes appended to the configured prefix
const (
	TopicHomeCommand      = "home/command"
	TopicHomeState        = "home/state"
	TopicHomeNotification = "home/notification"
	TopicAuthCommand      = "auth/command"
	TopicAuthNotification = "auth/notification"
	TopicNavigationRoute  = "navigation/route"
)

// Topic joins the configured prefix and a topic suffix.
func Topic(prefix, suffix string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + suffix
}
