package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/postidentity/postidentity-mcp/pkg/postidentity/backend"
)

const defaultReplyCharacterLimit = 280

func (s *Server) generatePost(ctx context.Context, request mcp.CallToolRequest) (string, error) {
	identityArg, err := request.RequireString("identity_id")
	if err != nil {
		return "", err
	}
	thought, err := request.RequireString("thought_content")
	if err != nil {
		return "", err
	}

	userID, err := s.authn.UserID()
	if err != nil {
		return "", err
	}

	profileID, soft, err := s.resolveIdentity(ctx, identityArg, userID)
	if err != nil {
		return "", err
	}
	if soft != "" {
		return soft, nil
	}

	profile, err := s.client.GetProfileConfig(ctx, profileID, userID)
	if err != nil {
		return "", err
	}
	if profile == nil {
		return "", fmt.Errorf("profile not found or you do not have access to it")
	}

	result, err := s.client.GeneratePost(ctx, &backend.GenerateRequest{
		ThoughtContent: thought,
		ProfileJSON:    profile.JSONConfig,
	})
	if errors.Is(err, backend.ErrInsufficientCredits) {
		return "❌ Insufficient credits! You need at least 1 credit to generate a post.\n\nBuy credits at: https://postidentity.com/credits", nil
	}
	if err != nil {
		return "", err
	}
	if result.GeneratedPost == "" {
		return "", fmt.Errorf("no post generated")
	}

	// The credit is already spent and the content already produced, so a
	// persistence failure is logged, never surfaced.
	if result.PostID == "" {
		err := s.client.InsertPost(ctx, &backend.NewPost{
			UserID:         userID,
			ProfileID:      profile.ID,
			Content:        result.GeneratedPost,
			OriginalPrompt: thought,
		})
		if err != nil {
			s.logger.Warn("failed to persist generated post", "error", err)
		}
	}

	var b strings.Builder
	b.WriteString("✅ Post generated successfully!\n\n")
	b.WriteString(divider + "\n")
	b.WriteString(result.GeneratedPost + "\n")
	b.WriteString(divider + "\n\n")
	fmt.Fprintf(&b, "💳 Remaining credits: %d\n", result.RemainingCredits)
	return b.String(), nil
}

func (s *Server) generateReply(ctx context.Context, request mcp.CallToolRequest) (string, error) {
	identityArg, err := request.RequireString("identity_id")
	if err != nil {
		return "", err
	}
	originalPost, err := request.RequireString("original_post")
	if err != nil {
		return "", err
	}
	replyDirection, err := request.RequireString("reply_direction")
	if err != nil {
		return "", err
	}
	characterLimit := request.GetInt("character_limit", defaultReplyCharacterLimit)

	userID, err := s.authn.UserID()
	if err != nil {
		return "", err
	}

	profileID, soft, err := s.resolveIdentity(ctx, identityArg, userID)
	if err != nil {
		return "", err
	}
	if soft != "" {
		return soft, nil
	}

	profile, err := s.client.GetProfileConfig(ctx, profileID, userID)
	if err != nil {
		return "", err
	}
	if profile == nil {
		return "", fmt.Errorf("profile not found or you do not have access to it")
	}

	result, err := s.client.GeneratePost(ctx, &backend.GenerateRequest{
		ThoughtContent: replyDirection,
		ProfileJSON:    profile.JSONConfig,
		ProfileID:      profile.ID,
		CharacterLimit: characterLimit,
		Mode:           "reply",
		ReplyConfig:    &backend.ReplyConfig{OriginalPost: originalPost},
	})
	if errors.Is(err, backend.ErrInsufficientCredits) {
		return "❌ Insufficient credits! You need at least 1 credit to generate a reply.\n\nBuy credits at: https://postidentity.com/credits", nil
	}
	if err != nil {
		return "", err
	}
	if result.GeneratedReply == "" {
		return "", fmt.Errorf("no reply generated")
	}

	var b strings.Builder
	b.WriteString("✅ Reply generated successfully!\n\n")
	b.WriteString("📩 **Original post:**\n")
	b.WriteString(truncate(originalPost, 200) + "\n\n")
	b.WriteString("💬 **Your reply:**\n")
	b.WriteString(divider + "\n")
	b.WriteString(result.GeneratedReply + "\n")
	b.WriteString(divider + "\n\n")
	fmt.Fprintf(&b, "💳 Remaining credits: %d\n", result.RemainingCredits)
	if result.PostID != "" {
		fmt.Fprintf(&b, "🆔 Reply ID: %s\n", result.PostID)
	}
	return b.String(), nil
}
