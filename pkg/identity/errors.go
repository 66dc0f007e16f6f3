package identity

import (
	"errors"
	"fmt"
	"strings"
)

// AuthErrorKind classifies a failed sign-in or sign-up.
type AuthErrorKind string

const (
	KindInvalidEmail  AuthErrorKind = "invalid-email"
	KindUserNotFound  AuthErrorKind = "user-not-found"
	KindWrongPassword AuthErrorKind = "wrong-password"
	KindEmailInUse    AuthErrorKind = "email-in-use"
	KindWeakPassword  AuthErrorKind = "weak-password"
	KindGeneric       AuthErrorKind = "generic"
)

// ErrMissingFields rejects a form with an empty email or password.
var ErrMissingFields = &AuthError{Kind: KindGeneric, Code: "missing-fields"}

// AuthError carries the translated kind and the provider's raw code.
type AuthError struct {
	Kind AuthErrorKind
	Code string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth %s (%s): %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("auth %s (%s)", e.Kind, e.Code)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TranslateCode maps both SDK style ("auth/wrong-password") and REST style
// ("INVALID_PASSWORD") codes onto a kind.
func TranslateCode(code string) AuthErrorKind {
	c := strings.TrimSpace(code)
	// REST codes may carry a detail after a colon, e.g. "WEAK_PASSWORD : ...".
	if i := strings.Index(c, ":"); i > 0 && !strings.HasPrefix(c, "auth/") {
		c = strings.TrimSpace(c[:i])
	}

	switch c {
	case "auth/invalid-email", "INVALID_EMAIL":
		return KindInvalidEmail
	case "auth/user-not-found", "EMAIL_NOT_FOUND":
		return KindUserNotFound
	case "auth/wrong-password", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return KindWrongPassword
	case "auth/email-already-in-use", "EMAIL_EXISTS":
		return KindEmailInUse
	case "auth/weak-password", "WEAK_PASSWORD":
		return KindWeakPassword
	default:
		return KindGeneric
	}
}

// Describe returns the message a user is shown for err.
func Describe(err error) string {
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		return "Something went wrong"
	}
	if authErr == ErrMissingFields {
		return "Please fill in all fields!"
	}

	switch authErr.Kind {
	case KindInvalidEmail:
		return "Invalid email address format."
	case KindUserNotFound:
		return "Email not found. Please check and try again."
	case KindWrongPassword:
		return "Incorrect password. Please try again."
	case KindEmailInUse:
		return "That email address is already in use!"
	case KindWeakPassword:
		return "The password is too weak!"
	default:
		return "Something went wrong"
	}
}
