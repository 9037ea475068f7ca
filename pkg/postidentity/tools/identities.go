package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/postidentity/postidentity-mcp/pkg/postidentity/backend"
)

func (s *Server) listIdentities(ctx context.Context, request mcp.CallToolRequest) (string, error) {
	status := request.GetString("status", backend.StatusActive)

	userID, err := s.authn.UserID()
	if err != nil {
		return "", err
	}

	profiles, err := s.client.ListProfiles(ctx, userID, status)
	if err != nil {
		return "", err
	}

	if len(profiles) == 0 {
		statusText := "active identities"
		switch status {
		case backend.StatusArchived:
			statusText = "archived identities"
		case backend.StatusAll:
			statusText = "identities"
		}
		return fmt.Sprintf("No %s found. Create your first identity at https://postidentity.com/create-profile", statusText), nil
	}

	statusText := ""
	switch status {
	case backend.StatusActive:
		statusText = "active "
	case backend.StatusArchived:
		statusText = "archived "
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %sidentit%s:\n\n", len(profiles), statusText, pluralIdentity(len(profiles)))
	for i, p := range profiles {
		fmt.Fprintf(&b, "%d. %s", i+1, p.Name)
		if p.ArchivedAt != nil {
			b.WriteString(" (Archived)")
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "   ID: %s\n", p.ID)
		if p.Description != "" {
			fmt.Fprintf(&b, "   Description: %s\n", truncate(p.Description, 100))
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func pluralIdentity(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

func (s *Server) createIdentity(ctx context.Context, request mcp.CallToolRequest) (string, error) {
	args := request.GetArguments()

	name, _ := args["name"].(string)
	description, _ := args["description"].(string)
	examples := stringSlice(args["examples"])

	// All input problems are reported at once, before any network call.
	var invalid *multierror.Error
	if strings.TrimSpace(name) == "" {
		invalid = multierror.Append(invalid, fmt.Errorf("identity name is required"))
	}
	if strings.TrimSpace(description) == "" {
		invalid = multierror.Append(invalid, fmt.Errorf("description is required"))
	}
	if len(examples) < 3 {
		invalid = multierror.Append(invalid, fmt.Errorf("at least 3 example posts are required; more examples improve accuracy"))
	}
	if err := invalid.ErrorOrNil(); err != nil {
		return fmt.Sprintf("❌ %v", err), nil
	}

	userID, err := s.authn.UserID()
	if err != nil {
		return "", err
	}

	trimmed := make([]string, len(examples))
	for i, ex := range examples {
		trimmed[i] = strings.TrimSpace(ex)
	}

	profileJSON, err := s.client.GenerateProfile(ctx, strings.TrimSpace(description), trimmed)
	if err != nil {
		return "", err
	}

	profile, err := s.client.CreateProfile(ctx, &backend.NewProfile{
		UserID:      userID,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		JSONConfig:  profileJSON,
		Status:      backend.StatusActive,
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("✅ Identity created successfully!\n\n")
	fmt.Fprintf(&b, "📝 Name: %s\n", profile.Name)
	fmt.Fprintf(&b, "🆔 ID: %s\n\n", profile.ID)
	b.WriteString("💡 You can now generate posts with this identity using:\n")
	fmt.Fprintf(&b, "generate_post(identity_id=%q, thought_content=\"your thought\")", profile.ID)
	return b.String(), nil
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (s *Server) archiveIdentity(ctx context.Context, request mcp.CallToolRequest) (string, error) {
	identityArg, err := request.RequireString("identity_id")
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

	// Ownership check before the patch: the caller may have passed a UUID
	// belonging to someone else, which the resolver does not see.
	name, found, err := s.client.GetProfileName(ctx, profileID, userID)
	if err != nil {
		return "", err
	}
	if !found {
		return "❌ Identity not found or you do not have access to it.", nil
	}

	if err := s.client.ArchiveProfile(ctx, profileID); err != nil {
		return "", err
	}

	return fmt.Sprintf("✅ Identity %q has been archived successfully.\n\n💡 You can restore it from Settings > Archived Identities if needed.", name), nil
}
