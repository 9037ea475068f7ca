// Package cli implements the postidentity-mcp command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var version = "1.1.1"

// NewRootCmd creates the root postidentity-mcp command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "postidentity-mcp",
		Short: "PostIdentity MCP server",
		Long: `PostIdentity MCP server.

Exposes PostIdentity identities, post generation, credits, referrals, and the
template marketplace as MCP tools over stdio, so any MCP-capable assistant
can drive them.

Authenticate with a PostIdentity API key (recommended, starts with "pi_") or
a raw access token. Get yours from https://postidentity.com/settings
(Developers section).

Examples:
  postidentity-mcp serve --access-token pi_xxxxxxxx
  POSTIDENTITY_ACCESS_TOKEN=pi_xxxxxxxx postidentity-mcp serve`,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	}
}
