package backend

import "encoding/json"

// Profile represents an identity row from the profiles collection
type Profile struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
	ArchivedAt  *string `json:"archived_at,omitempty"`
}

// NewProfile is the insert payload for creating an identity
type NewProfile struct {
	UserID      string          `json:"user_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	JSONConfig  json.RawMessage `json:"json_config"`
	Status      string          `json:"status"`
}

// ProfileConfig carries the stored generation configuration for an identity
type ProfileConfig struct {
	ID         string          `json:"id"`
	JSONConfig json.RawMessage `json:"json_config"`
}

// Post represents a generated post row, with the owning identity's name
// embedded via the profiles join.
type Post struct {
	ID             string `json:"id"`
	Content        string `json:"content"`
	ProfileID      string `json:"profile_id"`
	OriginalPrompt string `json:"original_prompt,omitempty"`
	CreatedAt      string `json:"created_at"`
	Profiles       *struct {
		Name string `json:"name"`
	} `json:"profiles,omitempty"`
}

// NewPost is the insert payload for persisting a generated post
type NewPost struct {
	UserID         string `json:"user_id"`
	ProfileID      string `json:"profile_id"`
	Content        string `json:"content"`
	OriginalPrompt string `json:"original_prompt,omitempty"`
}

// Template represents a marketplace identity template listing
type Template struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Credits     int      `json:"credits"`
	Features    []string `json:"features,omitempty"`
	Purchases   int      `json:"purchases"`
	Trending    bool     `json:"trending"`
}

// ReferralStats is the aggregate returned by the get_referral_stats procedure
type ReferralStats struct {
	TotalReferrals int `json:"total_referrals"`
	CreditsEarned  int `json:"credits_earned"`
}

// ReplyConfig carries the post being replied to in reply-mode generation
type ReplyConfig struct {
	OriginalPost string `json:"originalPost"`
}

// GenerateRequest is the payload for the generate-post function. Reply mode
// sets Mode to "reply" and attaches a ReplyConfig.
type GenerateRequest struct {
	ThoughtContent string          `json:"thoughtContent"`
	ProfileJSON    json.RawMessage `json:"profileJson"`
	ProfileID      string          `json:"profileId,omitempty"`
	CharacterLimit int             `json:"characterLimit,omitempty"`
	Mode           string          `json:"mode,omitempty"`
	ReplyConfig    *ReplyConfig    `json:"replyConfig,omitempty"`
}

// GenerateResult is the generate-post function's success response. The
// backend populates GeneratedPost or GeneratedReply depending on mode.
type GenerateResult struct {
	PostID           string `json:"postId,omitempty"`
	GeneratedPost    string `json:"generatedPost,omitempty"`
	GeneratedReply   string `json:"generatedReply,omitempty"`
	RemainingCredits int    `json:"remainingCredits"`
}

// ProfileStatus filters for ListProfiles
const (
	StatusActive   = "active"
	StatusArchived = "archived"
	StatusAll      = "all"
)
