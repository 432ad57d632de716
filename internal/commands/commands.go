package commands

import (
	"github.com/spf13/cobra"

	"github.com/davidfant/roaring-api/internal/appctx"
	"github.com/davidfant/roaring-api/internal/output"
)

// CommandInfo describes a CLI command.
type CommandInfo struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Actions     []string `json:"actions,omitempty"`
}

// CommandCategory groups commands by category.
type CommandCategory struct {
	Name     string        `json:"name"`
	Commands []CommandInfo `json:"commands"`
}

// commandCategories returns all command categories for the catalog.
func commandCategories() []CommandCategory {
	return []CommandCategory{
		{
			Name: "Lookup",
			Commands: []CommandInfo{
				{Name: "person", Category: "lookup", Description: "Look up a person by personal number"},
			},
		},
		{
			Name: "Auth & Config",
			Commands: []CommandInfo{
				{Name: "auth", Category: "auth", Description: "Manage client credentials and tokens", Actions: []string{"login", "logout", "status", "token"}},
				{Name: "config", Category: "auth", Description: "Manage configuration", Actions: []string{"show", "set", "unset", "profiles"}},
			},
		},
		{
			Name: "Additional Commands",
			Commands: []CommandInfo{
				{Name: "commands", Category: "additional", Description: "List all commands"},
				{Name: "help", Category: "additional", Description: "Show help"},
				{Name: "version", Category: "additional", Description: "Show version"},
			},
		},
	}
}

// CatalogCommandNames returns all command names from the catalog.
// Used by tests to verify catalog matches registered commands.
func CatalogCommandNames() []string {
	var names []string
	for _, cat := range commandCategories() {
		for _, cmd := range cat.Commands {
			names = append(names, cmd.Name)
		}
	}
	return names
}

// NewCommandsCmd creates the commands listing command.
func NewCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "commands",
		Aliases: []string{"cmds"},
		Short:   "List all available commands",
		Long:    "List all available roaring commands organized by category.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			return app.OK(commandCategories(),
				output.WithSummary("All available roaring commands"),
				output.WithContext("help", "roaring --help"),
			)
		},
	}
}
