// Package backend implements a typed client for the PostIdentity API: the
// PostgREST resource collections, the get_referral_stats procedure, and the
// generation edge functions.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/postidentity/postidentity-mcp/pkg/postidentity/config"
	apperrors "github.com/postidentity/postidentity-mcp/pkg/postidentity/errors"
)

// ErrInsufficientCredits signals that a generation call was rejected for
// lack of credits. Handlers render it as guidance text, not as an error.
var ErrInsufficientCredits = errors.New("insufficient credits")

// Client talks to the PostIdentity backend. Every row-level request carries
// the public anon key plus the current bearer session token; the backend's
// row-level security keys on both.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	tokenFunc  func() string // Function to get current session token
}

// NewClient creates a new Client. tokenFunc is consulted on every request so
// that a refreshed session token is picked up without rebuilding the client.
func NewClient(settings *config.Settings, tokenFunc func() string) *Client {
	return &Client{
		baseURL:    settings.BackendURL,
		anonKey:    settings.AnonKey,
		httpClient: &http.Client{Timeout: settings.HTTPTimeout},
		tokenFunc:  tokenFunc,
	}
}

func (c *Client) addAuthHeaders(req *http.Request) {
	req.Header.Set("apikey", c.anonKey)
	if c.tokenFunc != nil {
		if token := c.tokenFunc(); token != "" {
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		}
	}
}

func (c *Client) restURL(table string, query url.Values) string {
	return fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, table, query.Encode())
}

func (c *Client) restGet(ctx context.Context, table string, query url.Values, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restURL(table, query), nil)
	if err != nil {
		return apperrors.New(apperrors.ErrCodeBackendRequest, "failed to create request", err)
	}
	c.addAuthHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return apperrors.New(apperrors.ErrCodeBackendRequest, "failed to send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return apperrors.New(apperrors.ErrCodeBackendRequest,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.New(apperrors.ErrCodeBackendRequest, "failed to decode response", err)
	}
	return nil
}

func (c *Client) restSend(ctx context.Context, method, table string, query url.Values, payload any, prefer string, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return apperrors.New(apperrors.ErrCodeBackendRequest, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.restURL(table, query), bytes.NewReader(data))
	if err != nil {
		return apperrors.New(apperrors.ErrCodeBackendRequest, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		httpReq.Header.Set("Prefer", prefer)
	}
	c.addAuthHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return apperrors.New(apperrors.ErrCodeBackendRequest, "failed to send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return apperrors.New(apperrors.ErrCodeBackendRequest,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.New(apperrors.ErrCodeBackendRequest, "failed to decode response", err)
		}
	}
	return nil
}

// ListProfiles returns the caller's identities filtered by status
// (StatusActive, StatusArchived, or StatusAll), newest first.
func (c *Client) ListProfiles(ctx context.Context, userID, status string) ([]Profile, error) {
	query := url.Values{}
	query.Set("user_id", "eq."+userID)
	switch status {
	case StatusActive:
		query.Set("archived_at", "is.null")
	case StatusArchived:
		query.Set("archived_at", "not.is.null")
	}
	query.Set("select", "id,name,description,created_at,archived_at")
	query.Set("order", "created_at.desc")

	var profiles []Profile
	if err := c.restGet(ctx, "profiles", query, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// LookupProfilesByName finds the caller's active identities whose name
// matches case-insensitively.
func (c *Client) LookupProfilesByName(ctx context.Context, userID, name string) ([]Profile, error) {
	query := url.Values{}
	query.Set("user_id", "eq."+userID)
	query.Set("name", "ilike."+name)
	query.Set("archived_at", "is.null")
	query.Set("select", "id,name")

	var profiles []Profile
	if err := c.restGet(ctx, "profiles", query, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetProfileConfig fetches the stored generation configuration for an
// identity owned by userID. Returns nil when the row does not exist or is
// not visible to the caller.
func (c *Client) GetProfileConfig(ctx context.Context, profileID, userID string) (*ProfileConfig, error) {
	query := url.Values{}
	query.Set("id", "eq."+profileID)
	query.Set("user_id", "eq."+userID)
	query.Set("select", "id,json_config")

	var rows []ProfileConfig
	if err := c.restGet(ctx, "profiles", query, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// GetProfileName returns the name of an identity owned by userID. The bool
// reports whether the row exists and is visible to the caller.
func (c *Client) GetProfileName(ctx context.Context, profileID, userID string) (string, bool, error) {
	query := url.Values{}
	query.Set("id", "eq."+profileID)
	query.Set("user_id", "eq."+userID)
	query.Set("select", "name")

	var rows []Profile
	if err := c.restGet(ctx, "profiles", query, &rows); err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].Name, true, nil
}

// CreateProfile inserts a new identity and returns the created row.
func (c *Client) CreateProfile(ctx context.Context, profile *NewProfile) (*Profile, error) {
	var rows []Profile
	if err := c.restSend(ctx, http.MethodPost, "profiles", url.Values{}, profile, "return=representation", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeBackendRequest, "profile created but no data returned", nil)
	}
	return &rows[0], nil
}

// ArchiveProfile soft-deletes an identity by stamping archived_at and
// flipping its status. The row is preserved and restorable.
func (c *Client) ArchiveProfile(ctx context.Context, profileID string) error {
	query := url.Values{}
	query.Set("id", "eq."+profileID)

	payload := map[string]string{
		"archived_at": time.Now().UTC().Format(time.RFC3339),
		"status":      StatusArchived,
	}
	return c.restSend(ctx, http.MethodPatch, "profiles", query, payload, "return=minimal", nil)
}

// ListPosts returns the caller's generated posts, newest first, optionally
// filtered to a single identity.
func (c *Client) ListPosts(ctx context.Context, userID, profileID string, limit int) ([]Post, error) {
	query := url.Values{}
	query.Set("user_id", "eq."+userID)
	query.Set("select", "id,content,profile_id,original_prompt,created_at,profiles(name)")
	query.Set("order", "created_at.desc")
	query.Set("limit", fmt.Sprintf("%d", limit))
	if profileID != "" {
		query.Set("profile_id", "eq."+profileID)
	}

	var posts []Post
	if err := c.restGet(ctx, "posts", query, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// InsertPost persists a generated post.
func (c *Client) InsertPost(ctx context.Context, post *NewPost) error {
	return c.restSend(ctx, http.MethodPost, "posts", url.Values{}, post, "return=minimal", nil)
}

// GetCredits reads the caller's credit balance. The bool reports whether a
// preferences row exists for the user.
func (c *Client) GetCredits(ctx context.Context, userID string) (int, bool, error) {
	query := url.Values{}
	query.Set("user_id", "eq."+userID)
	query.Set("select", "credits")

	var rows []struct {
		Credits int `json:"credits"`
	}
	if err := c.restGet(ctx, "user_preferences", query, &rows); err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].Credits, true, nil
}

// GetReferralCode returns the caller's referral code, or "" when the user
// has not enrolled yet.
func (c *Client) GetReferralCode(ctx context.Context, userID string) (string, error) {
	query := url.Values{}
	query.Set("user_id", "eq."+userID)
	query.Set("select", "referral_code")

	var rows []struct {
		ReferralCode string `json:"referral_code"`
	}
	if err := c.restGet(ctx, "user_preferences", query, &rows); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].ReferralCode, nil
}

// GetReferralStats invokes the get_referral_stats procedure for the user.
func (c *Client) GetReferralStats(ctx context.Context, userID string) (*ReferralStats, error) {
	payload := map[string]string{"p_user_id": userID}

	var stats ReferralStats
	if err := c.restSend(ctx, http.MethodPost, "rpc/get_referral_stats", url.Values{}, payload, "", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListTemplates returns active marketplace templates ordered by purchase
// count, optionally filtered by category.
func (c *Client) ListTemplates(ctx context.Context, category string) ([]Template, error) {
	query := url.Values{}
	query.Set("active", "eq.true")
	query.Set("select", "id,name,description,category,credits,features,purchases,trending")
	query.Set("order", "purchases.desc")
	if category != "" {
		query.Set("category", "eq."+category)
	}

	var templates []Template
	if err := c.restGet(ctx, "identity_templates", query, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// functionPost calls an edge function. Edge functions take only the bearer
// session token; the anon apikey header is not required.
func (c *Client) functionPost(ctx context.Context, name string, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeBackendRequest, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/functions/v1/%s", c.baseURL, name), bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeBackendRequest, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.tokenFunc != nil {
		if token := c.tokenFunc(); token != "" {
			httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeBackendRequest, "failed to send request", err)
	}
	return resp, nil
}

// GeneratePost calls the generate-post function. Returns
// ErrInsufficientCredits when the backend rejects the call for lack of
// credits (HTTP 402 or an INSUFFICIENT_CREDITS code).
func (c *Client) GeneratePost(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	resp, err := c.functionPost(ctx, "generate-post", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)

		if resp.StatusCode == http.StatusPaymentRequired || errBody.Code == "INSUFFICIENT_CREDITS" {
			return nil, ErrInsufficientCredits
		}
		if errBody.Error != "" {
			return nil, apperrors.New(apperrors.ErrCodeBackendRequest, errBody.Error, nil)
		}
		return nil, apperrors.New(apperrors.ErrCodeBackendRequest,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var result GenerateResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeBackendRequest, "failed to decode response", err)
	}
	return &result, nil
}

// GenerateProfile calls the generate-profile function to derive a
// generation configuration from a style description and example posts.
func (c *Client) GenerateProfile(ctx context.Context, description string, examples []string) (json.RawMessage, error) {
	payload := map[string]any{
		"description": description,
		"examples":    examples,
	}

	resp, err := c.functionPost(ctx, "generate-profile", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error != "" {
			return nil, apperrors.New(apperrors.ErrCodeBackendRequest, errBody.Error, nil)
		}
		return nil, apperrors.New(apperrors.ErrCodeBackendRequest,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	profileJSON, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeBackendRequest, "failed to read response", err)
	}
	return json.RawMessage(profileJSON), nil
}
