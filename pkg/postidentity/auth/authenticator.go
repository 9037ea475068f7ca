// Package auth establishes and maintains the backend session. A long-lived
// API key is exchanged for a short-lived session token and re-exchanged
// before expiry; a raw session token is used as-is (legacy path).
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/postidentity/postidentity-mcp/pkg/postidentity/config"
	apperrors "github.com/postidentity/postidentity-mcp/pkg/postidentity/errors"
)

const (
	// APIKeyPrefix distinguishes long-lived API keys from raw session
	// tokens. Anything without the prefix is treated as a session token.
	APIKeyPrefix = "pi_"

	// DefaultTokenLifetime applies when the key exchange omits expires_in.
	DefaultTokenLifetime = 604800 * time.Second

	// RefreshWindow is how close to expiry a session token may get before
	// it is re-exchanged.
	RefreshWindow = 60 * time.Second
)

// Authenticator holds the active session: the current token, its expiry,
// the API key it was derived from (if any), and the authenticated user id.
// Token, expiry, and user id are only ever replaced together under the
// mutex, so a reader never observes a half-updated session.
type Authenticator struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	logger     *slog.Logger

	mu     sync.RWMutex
	apiKey string // empty when bootstrapped from a direct token
	token  string
	expiry time.Time // zero for direct tokens (expiry unknown, refresh unsupported)
	userID string
}

// NewAuthenticator creates a new Authenticator
func NewAuthenticator(settings *config.Settings, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		baseURL:    settings.BackendURL,
		anonKey:    settings.AnonKey,
		httpClient: &http.Client{Timeout: settings.HTTPTimeout},
		logger:     logger,
	}
}

// EstablishSession bootstraps the session from the credential supplied at
// startup. Credentials with the API key prefix go through the key-exchange
// endpoint; everything else is used directly as a session token.
func (a *Authenticator) EstablishSession(ctx context.Context, credential string) error {
	if strings.HasPrefix(credential, APIKeyPrefix) {
		a.logger.Info("API key detected, exchanging for session token")

		token, expiresIn, err := a.exchange(ctx, credential)
		if err != nil {
			return err
		}
		userID, err := subjectOf(token)
		if err != nil {
			return apperrors.New(apperrors.ErrCodeAuthFailed, "exchanged token has no subject claim", err)
		}

		expiry := time.Now().Add(expiresIn)
		a.mu.Lock()
		a.apiKey = credential
		a.token = token
		a.expiry = expiry
		a.userID = userID
		a.mu.Unlock()

		a.logger.Info("authenticated", "user_id", userID, "token_expires", expiry.UTC().Format(time.RFC3339))
		return nil
	}

	// Legacy path: a raw session token. It cannot be refreshed locally, so
	// it is trusted until the backend rejects it.
	a.logger.Warn("direct access token detected; it expires on the backend's schedule and cannot be refreshed")

	segments := strings.Split(credential, ".")
	if len(segments) != 3 || segments[0] == "" || segments[1] == "" || segments[2] == "" {
		return apperrors.New(apperrors.ErrCodeInvalidCredential,
			"access token must be a JWT with three non-empty segments", nil)
	}
	userID, err := subjectOf(credential)
	if errors.Is(err, errMissingSubject) {
		return apperrors.New(apperrors.ErrCodeAuthFailed, "access token has no subject claim", err)
	}
	if err != nil {
		return apperrors.New(apperrors.ErrCodeInvalidCredential, "failed to parse access token", err)
	}

	a.mu.Lock()
	a.apiKey = ""
	a.token = credential
	a.expiry = time.Time{}
	a.userID = userID
	a.mu.Unlock()

	a.logger.Info("authenticated", "user_id", userID)
	return nil
}

// RefreshIfNeeded re-exchanges the API key when the session token is within
// RefreshWindow of its expiry, or past it. It is a no-op for direct-token
// sessions. Safe to call before every tool invocation; the lock is held
// across the exchange so concurrent callers perform at most one refresh.
func (a *Authenticator) RefreshIfNeeded(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.apiKey == "" {
		return nil
	}
	if time.Until(a.expiry) > RefreshWindow {
		return nil
	}

	a.logger.Info("session token near expiry, refreshing")
	token, expiresIn, err := a.exchange(ctx, a.apiKey)
	if err != nil {
		return apperrors.New(apperrors.ErrCodeAuthFailed, "session refresh failed", err)
	}

	a.token = token
	a.expiry = time.Now().Add(expiresIn)
	if userID, err := subjectOf(token); err == nil && userID != a.userID {
		// The backend reissued the token for a different subject.
		a.logger.Warn("refreshed token bound to a different user", "user_id", userID)
		a.userID = userID
	}

	a.logger.Info("session token refreshed", "token_expires", a.expiry.UTC().Format(time.RFC3339))
	return nil
}

// UserID returns the authenticated user id.
func (a *Authenticator) UserID() (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.userID == "" {
		return "", apperrors.New(apperrors.ErrCodeNotAuthenticated, "not authenticated", nil)
	}
	return a.userID, nil
}

// AccessToken returns the current session token.
func (a *Authenticator) AccessToken() (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.token == "" {
		return "", apperrors.New(apperrors.ErrCodeNotAuthenticated, "not authenticated", nil)
	}
	return a.token, nil
}

// TokenOrEmpty returns the current session token, or "" before a session
// exists. Used as the backend client's token source.
func (a *Authenticator) TokenOrEmpty() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// Expiry returns the stored token expiry. Zero for direct-token sessions.
func (a *Authenticator) Expiry() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.expiry
}

// exchange trades an API key for a session token via the validate-api-key
// function. The anon key authorizes the exchange call itself.
func (a *Authenticator) exchange(ctx context.Context, key string) (string, time.Duration, error) {
	payload, err := json.Marshal(map[string]string{"apiKey": key})
	if err != nil {
		return "", 0, apperrors.New(apperrors.ErrCodeAuthFailed, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/functions/v1/validate-api-key", bytes.NewReader(payload))
	if err != nil {
		return "", 0, apperrors.New(apperrors.ErrCodeAuthFailed, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", a.anonKey))

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", 0, apperrors.New(apperrors.ErrCodeAuthFailed, "failed to reach key-exchange endpoint", err)
	}
	defer resp.Body.Close()

	var body struct {
		Success   bool   `json:"success"`
		JWT       string `json:"jwt"`
		ExpiresIn int64  `json:"expires_in"`
		Error     string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && resp.StatusCode == http.StatusOK {
		return "", 0, apperrors.New(apperrors.ErrCodeAuthFailed, "failed to decode key-exchange response", err)
	}

	if resp.StatusCode != http.StatusOK || !body.Success || body.JWT == "" {
		msg := body.Error
		if msg == "" {
			msg = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return "", 0, apperrors.New(apperrors.ErrCodeAuthFailed,
			fmt.Sprintf("API key validation failed: %s", msg), nil)
	}

	lifetime := DefaultTokenLifetime
	if body.ExpiresIn > 0 {
		lifetime = time.Duration(body.ExpiresIn) * time.Second
	}
	return body.JWT, lifetime, nil
}

var errMissingSubject = errors.New("missing sub claim")

// subjectOf reads the sub claim from a session token without verifying the
// signature. The backend verifies every request server-side; the decoded
// claims are never treated as proof of identity here.
func subjectOf(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", err
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", errMissingSubject
	}
	return sub, nil
}
