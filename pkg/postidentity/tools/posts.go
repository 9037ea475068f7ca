package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const defaultPostLimit = 10

func (s *Server) listPosts(ctx context.Context, request mcp.CallToolRequest) (string, error) {
	profileArg := request.GetString("profile_id", "")
	limit := request.GetInt("limit", defaultPostLimit)

	userID, err := s.authn.UserID()
	if err != nil {
		return "", err
	}

	profileID := ""
	if profileArg != "" {
		resolved, soft, err := s.resolveIdentity(ctx, profileArg, userID)
		if err != nil {
			return "", err
		}
		if soft != "" {
			return soft, nil
		}
		profileID = resolved
	}

	posts, err := s.client.ListPosts(ctx, userID, profileID, limit)
	if err != nil {
		return "", err
	}

	if len(posts) == 0 {
		return "No posts found. Generate your first post!", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d post%s:\n\n", len(posts), plural(len(posts), "s"))
	for i, post := range posts {
		identityName := "Unknown Identity"
		if post.Profiles != nil && post.Profiles.Name != "" {
			identityName = post.Profiles.Name
		}
		fmt.Fprintf(&b, "%d. %s • %s\n", i+1, identityName, displayDate(post.CreatedAt))
		if post.OriginalPrompt != "" {
			fmt.Fprintf(&b, "   💭 Thought: %q\n", truncate(post.OriginalPrompt, 60))
		}
		fmt.Fprintf(&b, "   📝 Post: %q\n", truncate(post.Content, 100))
		fmt.Fprintf(&b, "   ID: %s\n\n", post.ID)
	}
	return b.String(), nil
}
