package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// lowCreditThreshold is where the balance output starts nudging toward a
// top-up.
const lowCreditThreshold = 5

func (s *Server) getCredits(ctx context.Context, _ mcp.CallToolRequest) (string, error) {
	userID, err := s.authn.UserID()
	if err != nil {
		return "", err
	}

	credits, found, err := s.client.GetCredits(ctx, userID)
	if err != nil {
		return "", err
	}
	if !found {
		return "Could not retrieve credits", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "💳 Current Balance: %d credit%s\n\n", credits, plural(credits, "s"))
	switch {
	case credits == 0:
		b.WriteString("⚠️  You have no credits remaining.\n")
		b.WriteString("Buy more at: https://postidentity.com/credits\n")
	case credits < lowCreditThreshold:
		b.WriteString("⚠️  Low balance! Consider buying more credits.\n")
		b.WriteString("Buy credits at: https://postidentity.com/credits\n")
	default:
		fmt.Fprintf(&b, "✅ You can generate %d more post%s\n", credits, plural(credits, "s"))
	}
	return b.String(), nil
}

func (s *Server) getReferralStats(ctx context.Context, _ mcp.CallToolRequest) (string, error) {
	userID, err := s.authn.UserID()
	if err != nil {
		return "", err
	}

	code, err := s.client.GetReferralCode(ctx, userID)
	if err != nil {
		return "", err
	}
	if code == "" {
		return "❌ You don't have a referral code yet. Visit https://postidentity.com/referrals to get started!", nil
	}

	stats, err := s.client.GetReferralStats(ctx, userID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("🎁 **Referral Stats**\n\n")
	fmt.Fprintf(&b, "📋 Your Code: **%s**\n", code)
	fmt.Fprintf(&b, "👥 Total Referrals: %d\n", stats.TotalReferrals)
	fmt.Fprintf(&b, "💰 Credits Earned: %d\n\n", stats.CreditsEarned)
	if stats.TotalReferrals == 0 {
		b.WriteString("💡 Share your code to earn 5 credits per referral!\n")
		b.WriteString("Your friend gets 5 credits too! 🎉\n")
	} else {
		fmt.Fprintf(&b, "🔗 Share at: https://postidentity.com/auth?ref=%s", code)
	}
	return b.String(), nil
}
