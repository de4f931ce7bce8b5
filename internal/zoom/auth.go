// Package zoom provides Zoom API authentication and client functionality
package zoom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zoomvault/zoomvault/internal/config"
)

// AccessToken represents an OAuth access token with metadata
type AccessToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	Scopes      []string  `json:"-"` // Parsed from scope string
	ExpiresAt   time.Time `json:"-"` // Calculated expiration time
}

// IsExpired returns true if the token is expired or will expire within the buffer time
func (t *AccessToken) IsExpired(buffer time.Duration) bool {
	return time.Now().Add(buffer).After(t.ExpiresAt)
}

// TokenResponse represents the response from the OAuth token endpoint
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	Error       string `json:"error,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// AuthError represents authentication-related errors. Token exchange
// failures carry the HTTP status and response body so operators can see
// exactly what the OAuth endpoint rejected.
type AuthError struct {
	Type       string
	Reason     string
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("auth error %s: %s", e.Type, e.Reason)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d: %s)", msg, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Err)
	}
	return msg
}

// Authenticator defines the interface for Zoom API authentication
type Authenticator interface {
	GetAccessToken(ctx context.Context) (*AccessToken, error)
	ValidateScopes(token *AccessToken, requiredScopes []string) error
}

// ServerToServerAuth implements Server-to-Server OAuth authentication for Zoom
type ServerToServerAuth struct {
	config   config.ZoomConfig
	tokenURL string
	client   *http.Client

	// mu guards cachedToken and serializes refreshes so concurrent
	// callers trigger at most one token request
	mu          sync.Mutex
	cachedToken *AccessToken
}

// NewServerToServerAuth creates a new Server-to-Server OAuth authenticator
func NewServerToServerAuth(cfg config.ZoomConfig) *ServerToServerAuth {
	return &ServerToServerAuth{
		config:   cfg,
		tokenURL: "https://zoom.us/oauth/token",
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetTokenURL overrides the OAuth token endpoint (used in tests)
func (s *ServerToServerAuth) SetTokenURL(tokenURL string) {
	s.tokenURL = tokenURL
}

// GetAccessToken obtains or refreshes an access token using Server-to-Server OAuth
func (s *ServerToServerAuth) GetAccessToken(ctx context.Context) (*AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cachedToken != nil && !s.cachedToken.IsExpired(5*time.Minute) {
		return s.cachedToken, nil
	}

	// Generate JWT token
	jwtToken, err := s.generateJWT()
	if err != nil {
		return nil, &AuthError{
			Type:   "jwt_generation",
			Reason: "failed to generate JWT token",
			Err:    err,
		}
	}

	// Prepare OAuth request
	data := url.Values{}
	data.Set("grant_type", "account_credentials")
	data.Set("account_id", s.config.AccountID)

	req, err := http.NewRequestWithContext(ctx, "POST", s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &AuthError{
			Type:   "request_creation",
			Reason: "failed to create OAuth request",
			Err:    err,
		}
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+jwtToken)

	// Make OAuth request
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &AuthError{
			Type:   "request_failed",
			Reason: "failed to get access token",
			Err:    err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AuthError{
			Type:   "response_read",
			Reason: "failed to read token response",
			Err:    err,
		}
	}

	// Parse response
	var tokenResponse TokenResponse
	if err := json.Unmarshal(body, &tokenResponse); err != nil && resp.StatusCode == http.StatusOK {
		return nil, &AuthError{
			Type:   "response_parsing",
			Reason: "failed to parse token response",
			Err:    err,
		}
	}

	// Check for OAuth errors
	if tokenResponse.Error != "" {
		return nil, &AuthError{
			Type:       tokenResponse.Error,
			Reason:     tokenResponse.Reason,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &AuthError{
			Type:       "http_error",
			Reason:     "token request failed",
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	// Create access token
	token := &AccessToken{
		AccessToken: tokenResponse.AccessToken,
		TokenType:   tokenResponse.TokenType,
		ExpiresIn:   tokenResponse.ExpiresIn,
		ExpiresAt:   time.Now().Add(time.Duration(tokenResponse.ExpiresIn) * time.Second),
	}
	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}

	// Parse scopes
	if tokenResponse.Scope != "" {
		token.Scopes = strings.Fields(tokenResponse.Scope)
	}

	s.cachedToken = token
	return token, nil
}

// generateJWT generates a JWT token for Server-to-Server OAuth
func (s *ServerToServerAuth) generateJWT() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":      s.config.ClientID,          // Issuer (Client ID)
		"exp":      now.Add(time.Hour).Unix(),  // Expiration (1 hour from now)
		"iat":      now.Unix(),                 // Issued at
		"aud":      "zoom",                     // Audience (Zoom)
		"appKey":   s.config.ClientID,          // App Key (same as Client ID)
		"tokenExp": now.Add(time.Hour).Unix(),  // Token expiration
		"alg":      "HS256",                    // Algorithm
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.ClientSecret))
}

// ValidateScopes validates that the token has all required scopes
func (s *ServerToServerAuth) ValidateScopes(token *AccessToken, requiredScopes []string) error {
	if len(requiredScopes) == 0 {
		return nil
	}

	tokenScopes := make(map[string]bool)
	for _, scope := range token.Scopes {
		tokenScopes[scope] = true
	}

	var missingScopes []string
	for _, required := range requiredScopes {
		if !tokenScopes[required] {
			missingScopes = append(missingScopes, required)
		}
	}

	if len(missingScopes) > 0 {
		return &AuthError{
			Type:   "insufficient_scope",
			Reason: fmt.Sprintf("missing required scopes: %s", strings.Join(missingScopes, ", ")),
		}
	}

	return nil
}
