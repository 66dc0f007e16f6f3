package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
)

const (
	// DefaultFirebaseBaseURL is the Identity Toolkit REST root.
	DefaultFirebaseBaseURL = "https://identitytoolkit.googleapis.com/v1"
	defaultHTTPTimeout     = 10 * time.Second
	idpRequestURI          = "http://localhost"
)

// FirebaseProvider implements Provider on the Identity Toolkit REST API.
// Sessions live in memory only.
type FirebaseProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	now        func() time.Time

	mu        sync.Mutex
	session   *Session
	listeners []func(*Session)
}

// NewFirebaseProvider creates a provider. An empty baseURL selects the
// public endpoint and a nil httpClient gets a default timeout.
func NewFirebaseProvider(apiKey, baseURL string, httpClient *http.Client, logger zerolog.Logger) *FirebaseProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultFirebaseBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &FirebaseProvider{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

type authResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type idTokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// SignIn authenticates with email and password.
func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingFields
	}

	var resp authResponse
	err := p.call(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return p.establish(resp), nil
}

// SignUp creates an account and sets its display name when one is given.
func (p *FirebaseProvider) SignUp(ctx context.Context, email, password, displayName string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingFields
	}

	var resp authResponse
	err := p.call(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if displayName != "" {
		var updated authResponse
		err := p.call(ctx, "accounts:update", map[string]any{
			"idToken":           resp.IDToken,
			"displayName":       displayName,
			"returnSecureToken": true,
		}, &updated)
		if err != nil {
			p.logger.Warn().Err(err).Msg("Account created but display name was not saved")
		} else {
			resp.DisplayName = displayName
			if updated.IDToken != "" {
				resp.IDToken = updated.IDToken
				resp.RefreshToken = updated.RefreshToken
				resp.ExpiresIn = updated.ExpiresIn
			}
		}
	}
	return p.establish(resp), nil
}

// SignInWithIDToken exchanges a federated ID token, e.g. from Google
// Sign-In, for a session.
func (p *FirebaseProvider) SignInWithIDToken(ctx context.Context, providerID, idToken string) (*Session, error) {
	if providerID == "" || idToken == "" {
		return nil, &AuthError{Kind: KindGeneric, Code: "missing-id-token"}
	}

	postBody := url.Values{}
	postBody.Set("id_token", idToken)
	postBody.Set("providerId", providerID)

	var resp authResponse
	err := p.call(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":          postBody.Encode(),
		"requestUri":        idpRequestURI,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return p.establish(resp), nil
}

// SignOut drops the current session.
func (p *FirebaseProvider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.setSession(nil)
	p.logger.Info().Msg("Signed out")
	return nil
}

func (p *FirebaseProvider) OnSessionChanged(fn func(*Session)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	current := p.session
	p.mu.Unlock()
	fn(current)
}

func (p *FirebaseProvider) CurrentSession() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

func (p *FirebaseProvider) establish(resp authResponse) *Session {
	s := &Session{
		UserID:       resp.LocalID,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
	}
	if secs, err := strconv.Atoi(resp.ExpiresIn); err == nil {
		s.ExpiresAt = p.now().Add(time.Duration(secs) * time.Second)
	}

	// The token comes straight from the provider over TLS, so its claims are
	// read without verifying the signature.
	var claims idTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(resp.IDToken, &claims); err == nil {
		if s.UserID == "" {
			s.UserID = claims.Subject
		}
		if s.Email == "" {
			s.Email = claims.Email
		}
		if s.DisplayName == "" {
			s.DisplayName = claims.Name
		}
		if claims.ExpiresAt != nil {
			s.ExpiresAt = claims.ExpiresAt.Time
		}
	} else if resp.IDToken != "" {
		p.logger.Debug().Err(err).Msg("ID token claims not readable")
	}

	p.setSession(s)
	p.logger.Info().Str("user_id", s.UserID).Msg("Signed in")
	return s
}

func (p *FirebaseProvider) setSession(s *Session) {
	p.mu.Lock()
	p.session = s
	listeners := append([]func(*Session){}, p.listeners...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

// call posts body to the named endpoint and decodes a success into out.
func (p *FirebaseProvider) call(ctx context.Context, endpoint string, body any, out any) error {
	if p.apiKey == "" {
		return &AuthError{Kind: KindGeneric, Code: "missing-api-key"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to serialize %s request: %w", endpoint, err)
	}

	reqURL := p.baseURL + "/" + endpoint + "?key=" + url.QueryEscape(p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return &AuthError{Kind: KindGeneric, Code: "request", Err: errors.New("failed to build request")}
	}
	req.Header.Set("Content-Type", "application/json")

	p.logger.Debug().Str("endpoint", endpoint).Msg("Calling identity provider")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		// Transport errors embed the URL, and with it the key.
		cause := errors.New("identity provider unreachable")
		switch {
		case ctx.Err() != nil:
			cause = ctx.Err()
		case isTimeout(err):
			// http.Client.Timeout fired; the caller's context is still live.
			cause = context.DeadlineExceeded
		}
		return &AuthError{Kind: KindGeneric, Code: "network", Err: cause}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &AuthError{Kind: KindGeneric, Code: "network", Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errorResponse
		if err := json.Unmarshal(data, &e); err != nil || e.Error.Message == "" {
			return &AuthError{Kind: KindGeneric, Code: strconv.Itoa(resp.StatusCode)}
		}
		p.logger.Warn().Str("endpoint", endpoint).Str("code", e.Error.Message).Msg("Identity provider rejected request")
		return &AuthError{Kind: TranslateCode(e.Error.Message), Code: e.Error.Message}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &AuthError{Kind: KindGeneric, Code: "malformed-response", Err: err}
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
