package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/postidentity/postidentity-mcp/pkg/postidentity/identity"
)

var divider = strings.Repeat("─", 50)

// truncate shortens s to max characters for display, appending an ellipsis
// when cut. Counts runes, not bytes, so multibyte content is never split
// mid-character.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// plural returns "" for a count of one and suffix otherwise
func plural(n int, suffix string) string {
	if n == 1 {
		return ""
	}
	return suffix
}

// displayDate renders a backend timestamp like "Jan 2, 2006", falling back
// to the raw value when it does not parse.
func displayDate(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.Format("Jan 2, 2006")
}

// resolveIdentity resolves a name-or-UUID argument. A non-empty soft
// message means resolution could not complete (not found or ambiguous) and
// should be returned to the caller as guidance, not as an error.
func (s *Server) resolveIdentity(ctx context.Context, idOrName, userID string) (id string, soft string, err error) {
	res, err := s.resolver.Resolve(ctx, idOrName, userID)
	if err != nil {
		return "", "", fmt.Errorf("failed to lookup identity: %w", err)
	}
	switch res.Outcome {
	case identity.NotFound:
		return "", fmt.Sprintf("❌ Identity %q not found.\n\nTip: Use list_identities to see your available identities.", idOrName), nil
	case identity.Ambiguous:
		return "", fmt.Sprintf("❌ Multiple identities found with name %q.\n\nPlease use the identity UUID instead. Use list_identities to see all identities with their IDs.", idOrName), nil
	default:
		return res.ID, "", nil
	}
}
