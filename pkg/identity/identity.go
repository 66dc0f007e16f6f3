package identity

import (
	"context"
	"time"
)

// Screens the navigation host can route to.
const (
	ScreenLogin = "Login"
	ScreenHome  = "Home"
)

// Session is an authenticated user.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email,omitempty"`
	DisplayName  string    `json:"display_name,omitempty"`
	IDToken      string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Provider signs users in and out and reports session changes.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password, displayName string) (*Session, error)
	SignInWithIDToken(ctx context.Context, providerID, idToken string) (*Session, error)
	SignOut(ctx context.Context) error
	// OnSessionChanged registers fn and calls it once with the current
	// session, then again on every change. A nil session means signed out.
	OnSessionChanged(fn func(*Session))
	CurrentSession() *Session
}

// InitialScreen picks the first screen for a session.
func InitialScreen(s *Session) string {
	if s == nil {
		return ScreenLogin
	}
	return ScreenHome
}
