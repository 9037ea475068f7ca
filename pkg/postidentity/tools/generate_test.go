package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postidentity/postidentity-mcp/pkg/postidentity/backend"
)

// generateBackend serves the routes generate_post touches: the profile
// config fetch, the generation function, and post persistence.
type generateBackend struct {
	generateStatus int
	generateBody   any
	insertStatus   int
	insertCalls    int
	lastGenerate   map[string]any
}

func (g *generateBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/rest/v1/profiles":
		writeJSON(w, []backend.ProfileConfig{{ID: testProfileID, JSONConfig: json.RawMessage(`{"tone":"casual"}`)}})
	case "/functions/v1/generate-post":
		_ = json.NewDecoder(r.Body).Decode(&g.lastGenerate)
		if g.generateStatus != 0 && g.generateStatus != http.StatusOK {
			w.WriteHeader(g.generateStatus)
		}
		if g.generateBody != nil {
			writeJSON(w, g.generateBody)
		}
	case "/rest/v1/posts":
		g.insertCalls++
		if g.insertStatus != 0 {
			w.WriteHeader(g.insertStatus)
		} else {
			w.WriteHeader(http.StatusCreated)
		}
	}
}

func TestGeneratePost_Success(t *testing.T) {
	gb := &generateBackend{generateBody: backend.GenerateResult{GeneratedPost: "the post", RemainingCredits: 4}}
	s := newToolServer(t, gb)

	text, err := s.generatePost(context.Background(), callReq("generate_post", map[string]any{
		"identity_id":     testProfileID,
		"thought_content": "a thought",
	}))
	require.NoError(t, err)

	assert.Contains(t, text, "✅ Post generated successfully!")
	assert.Contains(t, text, "the post")
	assert.Contains(t, text, "Remaining credits: 4")
	assert.Equal(t, 1, gb.insertCalls, "generated post is persisted")
}

func TestGeneratePost_PersistFailureNotSurfaced(t *testing.T) {
	gb := &generateBackend{
		generateBody: backend.GenerateResult{GeneratedPost: "the post", RemainingCredits: 4},
		insertStatus: http.StatusInternalServerError,
	}
	s := newToolServer(t, gb)

	text, err := s.generatePost(context.Background(), callReq("generate_post", map[string]any{
		"identity_id":     testProfileID,
		"thought_content": "a thought",
	}))
	require.NoError(t, err, "the credit is spent and content produced; persistence is best-effort")
	assert.Contains(t, text, "✅ Post generated successfully!")
}

func TestGeneratePost_InsufficientCreditsIsSoft(t *testing.T) {
	gb := &generateBackend{generateStatus: http.StatusPaymentRequired, generateBody: map[string]string{"error": "no credits"}}
	s := newToolServer(t, gb)

	result, err := s.handle("generate post", s.generatePost)(context.Background(), callReq("generate_post", map[string]any{
		"identity_id":     testProfileID,
		"thought_content": "a thought",
	}))
	require.NoError(t, err)

	assert.False(t, result.IsError, "insufficient credits is guidance, not an error")
	text := resultText(t, result)
	assert.Contains(t, text, "Insufficient credits")
	assert.Contains(t, text, "https://postidentity.com/credits")
	assert.NotContains(t, text, "Remaining credits", "no generation happened, so no balance is reported")
	assert.Equal(t, 0, gb.insertCalls)
}

func TestGeneratePost_NameResolution(t *testing.T) {
	var lookupName string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/rest/v1/profiles" && r.URL.Query().Get("name") != "":
			lookupName = strings.TrimPrefix(r.URL.Query().Get("name"), "ilike.")
			writeJSON(w, []backend.Profile{{ID: testProfileID, Name: "Tech Blogger"}})
		case r.URL.Path == "/rest/v1/profiles":
			writeJSON(w, []backend.ProfileConfig{{ID: testProfileID, JSONConfig: json.RawMessage(`{}`)}})
		case r.URL.Path == "/functions/v1/generate-post":
			writeJSON(w, backend.GenerateResult{GeneratedPost: "ok", RemainingCredits: 1})
		case r.URL.Path == "/rest/v1/posts":
			w.WriteHeader(http.StatusCreated)
		}
	})
	s := newToolServer(t, handler)

	_, err := s.generatePost(context.Background(), callReq("generate_post", map[string]any{
		"identity_id":     "Tech Blogger",
		"thought_content": "a thought",
	}))
	require.NoError(t, err)
	assert.Equal(t, "Tech Blogger", lookupName)
}

func TestGeneratePost_AmbiguousName(t *testing.T) {
	s := newToolServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []backend.Profile{
			{ID: testProfileID, Name: "Tech Blogger"},
			{ID: "22222222-2222-2222-2222-222222222222", Name: "tech blogger"},
		})
	}))

	text, err := s.generatePost(context.Background(), callReq("generate_post", map[string]any{
		"identity_id":     "Tech Blogger",
		"thought_content": "a thought",
	}))
	require.NoError(t, err)
	assert.Contains(t, text, "Multiple identities found")
	assert.Contains(t, text, "use the identity UUID")
}

func TestGeneratePost_UnknownName(t *testing.T) {
	s := newToolServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []backend.Profile{})
	}))

	text, err := s.generatePost(context.Background(), callReq("generate_post", map[string]any{
		"identity_id":     "Ghost Writer",
		"thought_content": "a thought",
	}))
	require.NoError(t, err)
	assert.Contains(t, text, `"Ghost Writer" not found`)
	assert.Contains(t, text, "list_identities")
}

func TestGenerateReply_Success(t *testing.T) {
	gb := &generateBackend{generateBody: backend.GenerateResult{
		PostID:           "reply-id-1",
		GeneratedReply:   "what a reply",
		RemainingCredits: 2,
	}}
	s := newToolServer(t, gb)

	longPost := strings.Repeat("x", 250)
	text, err := s.generateReply(context.Background(), callReq("generate_reply", map[string]any{
		"identity_id":     testProfileID,
		"original_post":   longPost,
		"reply_direction": "agree strongly",
	}))
	require.NoError(t, err)

	assert.Contains(t, text, "✅ Reply generated successfully!")
	assert.Contains(t, text, "what a reply")
	assert.Contains(t, text, "Reply ID: reply-id-1")
	assert.Contains(t, text, strings.Repeat("x", 200)+"...")
	assert.NotContains(t, text, strings.Repeat("x", 201), "original post echo is truncated")

	assert.Equal(t, "reply", gb.lastGenerate["mode"])
	assert.Equal(t, float64(defaultReplyCharacterLimit), gb.lastGenerate["characterLimit"])
	replyCfg, ok := gb.lastGenerate["replyConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, longPost, replyCfg["originalPost"])
	assert.Equal(t, 0, gb.insertCalls, "the backend persists replies itself")
}

func TestGenerateReply_CustomCharacterLimit(t *testing.T) {
	gb := &generateBackend{generateBody: backend.GenerateResult{GeneratedReply: "short", RemainingCredits: 2}}
	s := newToolServer(t, gb)

	_, err := s.generateReply(context.Background(), callReq("generate_reply", map[string]any{
		"identity_id":     testProfileID,
		"original_post":   "a post",
		"reply_direction": "disagree",
		"character_limit": 500,
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(500), gb.lastGenerate["characterLimit"])
}
