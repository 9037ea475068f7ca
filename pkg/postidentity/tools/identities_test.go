package tools

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postidentity/postidentity-mcp/pkg/postidentity/backend"
)

func TestListIdentities_EmptyPerFilter(t *testing.T) {
	cases := []struct {
		status string
		want   string
	}{
		{backend.StatusActive, "No active identities found"},
		{backend.StatusArchived, "No archived identities found"},
		{backend.StatusAll, "No identities found"},
	}
	for _, tc := range cases {
		s := newToolServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, []backend.Profile{})
		}))

		text, err := s.listIdentities(context.Background(), callReq("list_identities", map[string]any{"status": tc.status}))
		require.NoError(t, err, "empty result is guidance, not an error")
		assert.Contains(t, text, tc.want)
		assert.Contains(t, text, "Create your first identity")
	}
}

func TestListIdentities_Format(t *testing.T) {
	archivedAt := "2026-01-15T10:00:00Z"
	s := newToolServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []backend.Profile{
			{ID: testProfileID, Name: "Tech Blogger", Description: "Short takes on tech"},
			{ID: "22222222-2222-2222-2222-222222222222", Name: "Old Persona", ArchivedAt: &archivedAt},
		})
	}))

	text, err := s.listIdentities(context.Background(), callReq("list_identities", map[string]any{"status": backend.StatusAll}))
	require.NoError(t, err)

	assert.Contains(t, text, "Found 2 identities")
	assert.Contains(t, text, "1. Tech Blogger")
	assert.Contains(t, text, "ID: "+testProfileID)
	assert.Contains(t, text, "Description: Short takes on tech")
	assert.Contains(t, text, "2. Old Persona (Archived)")
}

func TestCreateIdentity_ValidatesBeforeNetwork(t *testing.T) {
	backendCalls := 0
	s := newToolServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendCalls++
	}))

	text, err := s.createIdentity(context.Background(), callReq("create_identity", map[string]any{
		"name":        " ",
		"description": "",
		"examples":    []any{"one", "two"},
	}))
	require.NoError(t, err, "validation problems are guidance, not errors")

	assert.Contains(t, text, "❌")
	assert.Contains(t, text, "name is required")
	assert.Contains(t, text, "description is required")
	assert.Contains(t, text, "3 example posts")
	assert.Equal(t, 0, backendCalls, "no network call before validation passes")
}

func TestCreateIdentity_Success(t *testing.T) {
	var sawGenerate, sawInsert bool
	s := newToolServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/functions/v1/generate-profile":
			sawGenerate = true
			writeJSON(w, map[string]any{"tone": "playful"})
		case "/rest/v1/profiles":
			sawInsert = true
			w.WriteHeader(http.StatusCreated)
			writeJSON(w, []backend.Profile{{ID: testProfileID, Name: "Writer"}})
		default:
			t.Errorf("unexpected backend call: %s %s", r.Method, r.URL.Path)
		}
	}))

	text, err := s.createIdentity(context.Background(), callReq("create_identity", map[string]any{
		"name":        "Writer",
		"description": "casual tech takes",
		"examples":    []any{"one", "two", "three"},
	}))
	require.NoError(t, err)

	assert.True(t, sawGenerate, "configuration must be derived before the insert")
	assert.True(t, sawInsert)
	assert.Contains(t, text, "✅ Identity created successfully!")
	assert.Contains(t, text, testProfileID)
}

func TestArchiveIdentity_Success(t *testing.T) {
	var patched bool
	s := newToolServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, []backend.Profile{{Name: "Tech Blogger"}})
		case http.MethodPatch:
			patched = true
			w.WriteHeader(http.StatusNoContent)
		}
	}))

	text, err := s.archiveIdentity(context.Background(), callReq("archive_identity", map[string]any{
		"identity_id": testProfileID,
	}))
	require.NoError(t, err)

	assert.True(t, patched)
	assert.Contains(t, text, `"Tech Blogger" has been archived successfully`)
	assert.Contains(t, text, "restore it from Settings")
}

func TestArchiveIdentity_NotOwned(t *testing.T) {
	s := newToolServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			t.Error("must not archive an identity the caller does not own")
		}
		writeJSON(w, []backend.Profile{})
	}))

	text, err := s.archiveIdentity(context.Background(), callReq("archive_identity", map[string]any{
		"identity_id": testProfileID,
	}))
	require.NoError(t, err)
	assert.Contains(t, text, "not found or you do not have access")
}

func TestArchiveIdentity_ByName(t *testing.T) {
	s := newToolServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		switch {
		case r.URL.Query().Get("name") != "":
			writeJSON(w, []backend.Profile{{ID: testProfileID, Name: "Tech Blogger"}})
		default:
			writeJSON(w, []backend.Profile{{Name: "Tech Blogger"}})
		}
	}))

	text, err := s.archiveIdentity(context.Background(), callReq("archive_identity", map[string]any{
		"identity_id": "Tech Blogger",
	}))
	require.NoError(t, err)
	assert.Contains(t, text, "archived successfully")
}
