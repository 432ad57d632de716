// Package commands implements the CLI commands.
package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/davidfant/roaring-api/internal/appctx"
	"github.com/davidfant/roaring-api/internal/auth"
	"github.com/davidfant/roaring-api/internal/output"
	"github.com/davidfant/roaring-api/internal/tui"
)

// NewAuthCmd creates the auth command group.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication",
		Long:  "Manage Roaring API client credentials and access tokens.",
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthStatusCmd(),
		newAuthTokenCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var clientID, clientSecret string
	var secretStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store client credentials",
		Long: `Verify a client ID and secret with a token exchange and store them for
the configured base URL.

Credentials go to the system keyring when one is available, otherwise to
credentials.json in the config directory (set ROARING_NO_KEYRING=1 to force
the file). Missing values are prompted for when running in a terminal.

Examples:
  roaring auth login
  roaring auth login --client-id abc --client-secret-stdin < secret.txt
  roaring --profile sandbox auth login`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			if secretStdin {
				if clientSecret != "" {
					return output.ErrUsage("Use either --client-secret or --client-secret-stdin, not both")
				}
				secret, err := readSecret(cmd.InOrStdin())
				if err != nil {
					return err
				}
				clientSecret = secret
			}

			creds := tui.Credentials{ClientID: clientID, ClientSecret: clientSecret}
			if creds.ClientID == "" || creds.ClientSecret == "" {
				if !app.IsInteractive() {
					return output.ErrUsageHint("Client ID and client secret are required",
						"Pass --client-id and --client-secret-stdin, or run in a terminal")
				}
				var err error
				creds, err = tui.PromptCredentials(app.Auth.Origin(), creds)
				if err != nil {
					return promptError(err)
				}
			}

			origin := app.Auth.Origin()
			if app.IsInteractive() {
				if _, err := app.Auth.Store().Load(origin); err == nil {
					replace, err := tui.Confirm("Replace stored credentials for "+origin+"?", true)
					if err != nil {
						return promptError(err)
					}
					if !replace {
						return app.OK(map[string]any{
							"status": "unchanged",
							"origin": origin,
						}, output.WithSummary("Kept existing credentials"))
					}
				}
			}

			if err := app.Auth.Login(cmd.Context(), auth.ClientCredentials{
				ClientID:     creds.ClientID,
				ClientSecret: creds.ClientSecret,
			}); err != nil {
				return err
			}

			return app.OK(map[string]any{
				"status":    "logged_in",
				"origin":    origin,
				"client_id": maskClientID(strings.TrimSpace(creds.ClientID)),
				"backend":   app.Auth.Store().Backend(),
			}, output.WithSummary("Credentials verified and stored for "+origin))
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "Client ID")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "Client secret (visible in shell history; prefer --client-secret-stdin)")
	cmd.Flags().BoolVar(&secretStdin, "client-secret-stdin", false, "Read the client secret from stdin")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long:  "Remove stored client credentials for the current base URL.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			if err := app.Auth.Logout(); err != nil {
				return err
			}

			summary := "Successfully logged out"
			if os.Getenv("ROARING_CLIENT_ID") != "" && os.Getenv("ROARING_CLIENT_SECRET") != "" {
				summary += " (ROARING_CLIENT_ID/ROARING_CLIENT_SECRET are still set)"
			}

			return app.OK(map[string]string{
				"status": "logged_out",
				"origin": app.Auth.Origin(),
			}, output.WithSummary(summary))
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long: `Show where client credentials come from for the current base URL.

With --verify, a token exchange is performed to check the credentials
are accepted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			origin := app.Auth.Origin()
			creds, source, err := app.Auth.Credentials()
			if err != nil {
				return app.OK(map[string]any{
					"authenticated": false,
					"origin":        origin,
					"backend":       app.Auth.Store().Backend(),
				}, output.WithSummary("Not authenticated"))
			}

			status := map[string]any{
				"authenticated": true,
				"origin":        origin,
				"source":        source,
				"client_id":     maskClientID(creds.ClientID),
			}
			if source == auth.SourceStore {
				status["backend"] = app.Auth.Store().Backend()
			}

			summary := "Authenticated"
			if source == auth.SourceEnv {
				summary += " via ROARING_CLIENT_ID/ROARING_CLIENT_SECRET"
			}

			if verify {
				client, err := app.Client(cmd.Context())
				if err != nil {
					return err
				}
				tok := client.AccessToken()
				status["verified"] = true
				status["expires_at"] = tok.ExpiresAt
				summary += " (verified)"
			}

			return app.OK(status, output.WithSummary(summary))
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Exchange credentials for a token to check them")

	return cmd
}

func newAuthTokenCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print an access token",
		Long: `Exchange the client credentials for an access token and print it to
stdout for use with other tools.

Examples:
  curl -H "Authorization: Bearer $(roaring auth token)" ...

Output modes:
  roaring auth token           # Raw token (default, for shell substitution)
  roaring auth token --json    # JSON envelope with access_token, expires_at, expires_in
  roaring auth token --stats   # Raw token + stats on stderr`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			client, err := app.Client(cmd.Context())
			if err != nil {
				return err
			}
			if refresh {
				if err := client.Refresh(cmd.Context()); err != nil {
					return err
				}
			}
			tok := client.AccessToken()

			// Raw token by default so `$(roaring auth token)` works.
			if !structuredOutput(app) {
				fmt.Fprintln(app.Stdout, tok.Token)
				app.PrintStats()
				return nil
			}

			expiresIn := tok.ExpiresIn(time.Now()).Round(time.Second)
			return app.OK(map[string]any{
				"access_token": tok.Token,
				"expires_at":   tok.ExpiresAt,
				"expires_in":   int64(expiresIn.Seconds()),
			}, output.WithSummary("Token valid until "+app.Output.Locale().FormatDateTime(tok.ExpiresAt)))
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Force a new token exchange")

	return cmd
}

// structuredOutput reports whether an envelope format was asked for
// explicitly, by flag or config.
func structuredOutput(app *appctx.App) bool {
	if app.Flags.Quiet {
		return false
	}
	switch app.Output.Format() {
	case output.FormatJSON, output.FormatYAML, output.FormatStyled:
		return true
	}
	return false
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read client secret: %w", err)
	}
	secret := strings.TrimSpace(line)
	if secret == "" {
		return "", output.ErrUsage("No client secret on stdin")
	}
	return secret, nil
}

func promptError(err error) error {
	if errors.Is(err, tui.ErrCanceled) {
		return output.ErrUsage("Login canceled")
	}
	return err
}

// maskClientID keeps the first and last four characters.
func maskClientID(id string) string {
	if len(id) <= 8 {
		return "****"
	}
	return id[:4] + "…" + id[len(id)-4:]
}
