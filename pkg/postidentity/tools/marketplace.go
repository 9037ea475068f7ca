package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// popularThreshold is the purchase count above which a template earns the
// "Popular" badge.
const popularThreshold = 50

func (s *Server) listMarketplaceTemplates(ctx context.Context, request mcp.CallToolRequest) (string, error) {
	category := request.GetString("category", "")

	templates, err := s.client.ListTemplates(ctx, category)
	if err != nil {
		return "", err
	}

	if len(templates) == 0 {
		return "No templates found in the marketplace.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d template%s", len(templates), plural(len(templates), "s"))
	if category != "" {
		fmt.Fprintf(&b, " in **%s** category", category)
	}
	b.WriteString(":\n\n")

	for i, t := range templates {
		var badges []string
		if t.Trending {
			badges = append(badges, "🔥 Trending")
		}
		if t.Purchases > popularThreshold {
			badges = append(badges, "⭐ Popular")
		}

		fmt.Fprintf(&b, "%d. **%s**", i+1, t.Name)
		if len(badges) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(badges, ", "))
		}
		b.WriteString("\n")

		fmt.Fprintf(&b, "   💰 Price: %d credits\n", t.Credits)
		fmt.Fprintf(&b, "   📂 Category: %s\n", t.Category)
		fmt.Fprintf(&b, "   📝 %s\n", truncate(t.Description, 80))

		if len(t.Features) > 0 {
			shown := t.Features
			if len(shown) > 2 {
				shown = shown[:2]
			}
			fmt.Fprintf(&b, "   ✨ Features: %s", strings.Join(shown, ", "))
			if extra := len(t.Features) - 2; extra > 0 {
				fmt.Fprintf(&b, " +%d more", extra)
			}
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "   📊 %d purchases\n", t.Purchases)
		fmt.Fprintf(&b, "   🆔 ID: %s\n\n", t.ID)
	}

	b.WriteString("\n💡 Visit https://postidentity.com/marketplace to purchase templates")
	return b.String(), nil
}
