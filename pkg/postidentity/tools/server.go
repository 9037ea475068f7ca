// Package tools exposes the PostIdentity tool catalog over the Model
// Context Protocol. Protocol framing runs on stdout; all logging goes to
// the injected slog handler, which must write elsewhere (stderr).
package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/postidentity/postidentity-mcp/pkg/postidentity/auth"
	"github.com/postidentity/postidentity-mcp/pkg/postidentity/backend"
	"github.com/postidentity/postidentity-mcp/pkg/postidentity/identity"
)

const (
	serverName    = "PostIdentity"
	serverVersion = "1.1.1"
)

// Server wires the tool handlers to the MCP server
type Server struct {
	authn    *auth.Authenticator
	client   *backend.Client
	resolver *identity.Resolver
	logger   *slog.Logger
	mcp      *server.MCPServer
}

// NewServer creates the MCP server and registers the tool catalog
func NewServer(authn *auth.Authenticator, client *backend.Client, logger *slog.Logger) *Server {
	s := &Server{
		authn:    authn,
		client:   client,
		resolver: identity.NewResolver(client),
		logger:   logger,
		mcp: server.NewMCPServer(
			serverName,
			serverVersion,
			server.WithToolCapabilities(true),
		),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves the MCP protocol over stdin/stdout until EOF
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// handle adapts a domain handler into an MCP tool handler. It refreshes the
// session first, then normalizes any failure into a uniform error result of
// the form "Failed to <action>: <cause>", so the host always receives a
// well-formed envelope rather than a raw fault.
func (s *Server) handle(action string, fn func(ctx context.Context, request mcp.CallToolRequest) (string, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := s.authn.RefreshIfNeeded(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err)), nil
		}
		text, err := fn(ctx, request)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err)), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("list_identities",
			mcp.WithDescription("Get a list of your identities/personas from PostIdentity"),
			mcp.WithString("status",
				mcp.Description(`Filter by status: "active" (default), "archived", or "all"`),
				mcp.Enum(backend.StatusActive, backend.StatusArchived, backend.StatusAll),
			),
		),
		s.handle("list identities", s.listIdentities),
	)

	s.mcp.AddTool(
		mcp.NewTool("generate_post",
			mcp.WithDescription("Generate a social media post as one of your identities. Costs 1 credit per generation."),
			mcp.WithString("identity_id",
				mcp.Required(),
				mcp.Description(`The identity to use - can be either the UUID or the identity name (e.g., "Tech Blogger"). Use list_identities to see available identities.`),
			),
			mcp.WithString("thought_content",
				mcp.Required(),
				mcp.Description(`The content/thought you want to transform into a post (e.g., "I think AI will revolutionize education")`),
			),
		),
		s.handle("generate post", s.generatePost),
	)

	s.mcp.AddTool(
		mcp.NewTool("generate_reply",
			mcp.WithDescription("Generate a reply to someone else's post as one of your identities. Costs 1 credit per generation."),
			mcp.WithString("identity_id",
				mcp.Required(),
				mcp.Description(`The identity to use - can be either the UUID or the identity name (e.g., "Tech Blogger")`),
			),
			mcp.WithString("original_post",
				mcp.Required(),
				mcp.Description("The post you are replying to"),
			),
			mcp.WithString("reply_direction",
				mcp.Required(),
				mcp.Description(`What your reply should say or argue (e.g., "agree, add an example from my own experience")`),
			),
			mcp.WithNumber("character_limit",
				mcp.Description("Optional: Maximum reply length in characters (default: 280)"),
			),
		),
		s.handle("generate reply", s.generateReply),
	)

	s.mcp.AddTool(
		mcp.NewTool("get_credits",
			mcp.WithDescription("Check your current credit balance. Each post generation costs 1 credit."),
		),
		s.handle("get credits", s.getCredits),
	)

	s.mcp.AddTool(
		mcp.NewTool("list_posts",
			mcp.WithDescription("List your generated posts with optional filtering by identity"),
			mcp.WithString("profile_id",
				mcp.Description("Optional: Filter posts by a specific identity - can be either the UUID or the identity name"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Optional: Maximum number of posts to return (default: 10)"),
			),
		),
		s.handle("list posts", s.listPosts),
	)

	s.mcp.AddTool(
		mcp.NewTool("get_referral_stats",
			mcp.WithDescription("Get your referral statistics including code, total referrals, and credits earned"),
		),
		s.handle("get referral stats", s.getReferralStats),
	)

	s.mcp.AddTool(
		mcp.NewTool("list_marketplace_templates",
			mcp.WithDescription("Browse marketplace identity templates with optional category filter"),
			mcp.WithString("category",
				mcp.Description("Optional: Filter by category (business, creative, or personal)"),
				mcp.Enum("business", "creative", "personal"),
			),
		),
		s.handle("list marketplace templates", s.listMarketplaceTemplates),
	)

	s.mcp.AddTool(
		mcp.NewTool("create_identity",
			mcp.WithDescription("Create a new identity from a description and example posts"),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Name for the identity"),
			),
			mcp.WithString("description",
				mcp.Required(),
				mcp.Description("Description of the writing style"),
			),
			mcp.WithArray("examples",
				mcp.Required(),
				mcp.Description("Example posts that represent the writing style (minimum 3, more is better for accuracy)"),
				mcp.Items(map[string]any{"type": "string"}),
				mcp.MinItems(3),
			),
		),
		s.handle("create identity", s.createIdentity),
	)

	s.mcp.AddTool(
		mcp.NewTool("archive_identity",
			mcp.WithDescription("Archive an identity (can be restored later from Settings)"),
			mcp.WithString("identity_id",
				mcp.Required(),
				mcp.Description(`The identity to archive - can be either the UUID or the identity name (e.g., "Tech Blogger")`),
			),
		),
		s.handle("archive identity", s.archiveIdentity),
	)
}
