package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/postidentity/postidentity-mcp/pkg/postidentity/auth"
	"github.com/postidentity/postidentity-mcp/pkg/postidentity/backend"
	"github.com/postidentity/postidentity-mcp/pkg/postidentity/config"
	"github.com/postidentity/postidentity-mcp/pkg/postidentity/tools"
)

const envPrefix = "POSTIDENTITY"

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the PostIdentity tool catalog over stdio",
		Long: `Serve the PostIdentity tool catalog over stdio.

The MCP protocol runs on stdout; all diagnostics go to stderr. A credential
is required, either via --access-token or the POSTIDENTITY_ACCESS_TOKEN
environment variable (a local .env file is honored).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd.Flags())
			if err != nil {
				return err
			}
			return serve(cmd, config.FromViper(v))
		},
	}

	cmd.Flags().String("access-token", "", `PostIdentity API key ("pi_..." prefix) or raw access token`)
	cmd.Flags().String("backend-url", "", "Override the PostIdentity API endpoint")
	cmd.Flags().Duration("http-timeout", config.DefaultHTTPTimeout, "Timeout for backend requests")
	cmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}

func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	// A .env next to the binary is a convenience for local runs; absence is
	// not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	return v, nil
}

func serve(cmd *cobra.Command, settings *config.Settings) error {
	logger := newLogger(cmd)

	if settings.AccessToken == "" {
		// The only fatal startup condition: no credential at all.
		fmt.Fprintln(os.Stderr, "❌ PostIdentity MCP Server requires an access token.")
		fmt.Fprintln(os.Stderr, "Usage: postidentity-mcp serve --access-token <your-token>")
		fmt.Fprintln(os.Stderr, "Get your token from: https://postidentity.com/settings (Developers section)")
		os.Exit(1)
	}

	authn := auth.NewAuthenticator(settings, logger)
	if err := authn.EstablishSession(cmd.Context(), settings.AccessToken); err != nil {
		return fmt.Errorf("failed to establish session: %w", err)
	}

	client := backend.NewClient(settings, authn.TokenOrEmpty)
	srv := tools.NewServer(authn, client, logger)

	logger.Info("PostIdentity MCP Server running")
	return srv.ServeStdio()
}

// newLogger builds the process logger. It writes to stderr: stdout carries
// MCP framing and must stay clean.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if s, err := cmd.Flags().GetString("log-level"); err == nil {
		switch strings.ToLower(s) {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
