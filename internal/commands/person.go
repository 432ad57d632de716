package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davidfant/roaring-api/internal/appctx"
	"github.com/davidfant/roaring-api/internal/output"
)

// NewPersonCmd creates the person lookup command.
func NewPersonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "person <personal-number>",
		Short: "Look up a person by personal number",
		Long: `Look up a person in the Roaring population register by personal
identity number. The response body is printed as returned by the API.

An access token is fetched first and refreshed automatically if it has
expired.

Examples:
  roaring person 197001011234
  roaring person 197001011234 --jq '.records[0].name'`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return output.ErrUsage("Personal number required")
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if app == nil {
				return fmt.Errorf("app not initialized")
			}

			personalNumber := strings.TrimSpace(args[0])
			if personalNumber == "" {
				return output.ErrUsage("Personal number required")
			}

			client, err := app.Client(cmd.Context())
			if err != nil {
				return err
			}

			resp, err := client.Person(cmd.Context(), personalNumber)
			if err != nil {
				return err
			}

			return app.OK(resp,
				output.WithSummary("Person lookup"),
				output.WithContext("base_url", client.BaseURL()),
			)
		},
	}
}
