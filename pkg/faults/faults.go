package faults

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure categories surfaced by the location and
// facility subsystems.
type Kind int

const (
	Unknown Kind = iota
	PermissionDenied
	SensorTimeout
	SensorUnavailable
	RetriesExhausted
	UserCancelled
	PreconditionViolation
	NetworkFailure
	InvalidCredential
	MalformedResponse
)

var kindNames = map[Kind]string{
	Unknown:               "unknown",
	PermissionDenied:      "permission-denied",
	SensorTimeout:         "sensor-timeout",
	SensorUnavailable:     "sensor-unavailable",
	RetriesExhausted:      "retries-exhausted",
	UserCancelled:         "user-cancelled",
	PreconditionViolation: "precondition-violation",
	NetworkFailure:        "network-failure",
	InvalidCredential:     "invalid-credential",
	MalformedResponse:     "malformed-response",
}

// String returns the stable, hyphenated name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Unknown]
}

// MarshalText lets a Kind appear by name in JSON payloads.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name; unknown names decode as Unknown.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	*k = Unknown
	return nil
}

// Error carries a Kind, the operation that failed and an optional cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same Kind, so errors.Is(err, faults.E(k))
// works regardless of Op and cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// E returns a bare sentinel for kind k, suitable as an errors.Is target.
func E(k Kind) error {
	return &Error{Kind: k}
}

// New builds an error of kind k for op with a plain message cause.
func New(k Kind, op, msg string) error {
	return &Error{Kind: k, Op: op, Err: errors.New(msg)}
}

// Wrap attaches kind k to err. A nil err yields a bare kind error.
func Wrap(k Kind, op string, err error) error {
	return &Error{Kind: k, Op: op, Err: err}
}

// KindOf reports the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Message is the plain-language text a user sees for a failure of kind k.
func Message(k Kind) string {
	switch k {
	case PermissionDenied:
		return "Location permission is required to find nearby hospitals"
	case SensorTimeout:
		return "Getting your location took too long"
	case SensorUnavailable:
		return "Your location is currently unavailable"
	case RetriesExhausted:
		return "Failed to get current location"
	case UserCancelled:
		return "Location request cancelled"
	case PreconditionViolation:
		return "Please get your current location first"
	case NetworkFailure:
		return "Failed to fetch nearby hospitals"
	case InvalidCredential:
		return "API key is invalid or expired"
	case MalformedResponse:
		return "Received an unreadable response from the places service"
	default:
		return "Something went wrong"
	}
}
