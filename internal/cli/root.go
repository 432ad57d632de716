// Package cli wires the roaring command tree.
package cli

import (
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/davidfant/roaring-api/internal/appctx"
	"github.com/davidfant/roaring-api/internal/commands"
	"github.com/davidfant/roaring-api/internal/config"
	"github.com/davidfant/roaring-api/internal/hostutil"
	"github.com/davidfant/roaring-api/internal/output"
	"github.com/davidfant/roaring-api/internal/version"
)

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:   "roaring",
		Short: "Command-line client for the Roaring API",
		Long: `roaring looks up people in the Roaring population register.

Client credentials are exchanged for a short-lived access token, which is
refreshed automatically once it expires.

Get started:
  roaring auth login
  roaring person 197001011234`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip setup for help and version commands
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load(config.FlagOverrides{
				BaseURL: hostutil.Normalize(flags.BaseURL),
				Profile: flags.Profile,
			})
			if err != nil {
				return output.ErrUsageHint(err.Error(), "Run: roaring config profiles")
			}

			app := appctx.NewApp(cfg)
			app.Stdout = cmd.OutOrStdout()
			app.Stderr = cmd.ErrOrStderr()
			app.Flags = flags
			app.ApplyFlags()

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}

	// Allow flags anywhere in the command line
	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)
	addGlobalFlags(cmd.PersistentFlags(), &flags)

	cmd.SetVersionTemplate(version.Full() + "\n")
	cmd.CompletionOptions.DisableDefaultCmd = true

	return cmd
}

// addGlobalFlags registers the flags every command accepts.
func addGlobalFlags(fs *pflag.FlagSet, flags *appctx.GlobalFlags) {
	// Output format flags
	fs.BoolVarP(&flags.JSON, "json", "j", false, "Output as JSON")
	fs.BoolVarP(&flags.Quiet, "quiet", "q", false, "Output data only, no envelope")
	fs.BoolVar(&flags.YAML, "yaml", false, "Output as YAML")
	fs.BoolVar(&flags.Styled, "styled", false, "Force styled output (ANSI colors)")
	fs.StringVar(&flags.JQ, "jq", "", "Filter the data field with a jq expression")

	// Context flags
	fs.StringVar(&flags.BaseURL, "base-url", "", "Roaring API base URL (e.g., api.roaring.io, localhost:8080)")
	fs.StringVar(&flags.Profile, "profile", "", "Named config profile (e.g., sandbox)")

	// Behavior flags
	fs.CountVarP(&flags.Verbose, "verbose", "v", "Verbose output (-v for token refreshes, -vv for requests)")
	fs.BoolVar(&flags.Stats, "stats", false, "Show session statistics")
}

// NewCommandTree returns the root command with every subcommand attached.
func NewCommandTree() *cobra.Command {
	cmd := NewRootCmd()
	cmd.AddCommand(commands.NewPersonCmd())
	cmd.AddCommand(commands.NewAuthCmd())
	cmd.AddCommand(commands.NewConfigCmd())
	cmd.AddCommand(commands.NewCommandsCmd())
	return cmd
}

// Execute runs the root command.
func Execute() {
	cmd := NewCommandTree()

	// Use ExecuteC to get the executed command (for correct context access)
	executedCmd, err := cmd.ExecuteC()
	if err != nil {
		err = transformCobraError(err)
		apiErr := output.AsError(err)

		// Try to use app.Err() if app is available (for --stats support)
		if app := appctx.FromContext(executedCmd.Context()); app != nil {
			_ = app.Err(err)
			os.Exit(apiErr.ExitCode())
		}

		// Fallback: output error directly (app not available, e.g., during setup)
		_ = fallbackWriter(cmd.PersistentFlags()).Err(err)
		os.Exit(apiErr.ExitCode())
	}
}

// fallbackWriter picks an output format from the raw flags when the app
// could not be created.
func fallbackWriter(fs *pflag.FlagSet) *output.Writer {
	format := output.FormatAuto
	quiet, _ := fs.GetBool("quiet")
	jsonFlag, _ := fs.GetBool("json")
	yamlFlag, _ := fs.GetBool("yaml")
	styled, _ := fs.GetBool("styled")

	switch {
	case quiet:
		format = output.FormatQuiet
	case jsonFlag:
		format = output.FormatJSON
	case yamlFlag:
		format = output.FormatYAML
	case styled:
		format = output.FormatStyled
	}

	return output.New(output.Options{
		Format: format,
		Writer: os.Stdout,
	})
}

var shorthandFlagRe = regexp.MustCompile(`unknown shorthand flag: '.' in (-\w)`)

// transformCobraError rewrites Cobra's default error messages into usage
// errors with consistent wording.
func transformCobraError(err error) error {
	msg := err.Error()

	// "flag needs an argument: --FLAG" → "--FLAG requires a value"
	if strings.HasPrefix(msg, "flag needs an argument: ") {
		flag := strings.TrimPrefix(msg, "flag needs an argument: ")
		return output.ErrUsage(flag + " requires a value")
	}

	// "unknown flag: --FLAG" → "Unknown option: --FLAG"
	if strings.HasPrefix(msg, "unknown flag: ") {
		flag := strings.TrimPrefix(msg, "unknown flag: ")
		return output.ErrUsage("Unknown option: " + flag)
	}

	// "unknown shorthand flag: 'X' in -X" → "Unknown option: -X"
	if strings.HasPrefix(msg, "unknown shorthand flag: ") {
		if matches := shorthandFlagRe.FindStringSubmatch(msg); len(matches) > 1 {
			return output.ErrUsage("Unknown option: " + matches[1])
		}
	}

	if strings.HasPrefix(msg, "unknown command ") {
		return output.ErrUsageHint(msg, "Run: roaring commands")
	}

	if strings.Contains(msg, "invalid argument") {
		return output.ErrUsage(msg)
	}

	if strings.Contains(msg, "arg(s), received") {
		return output.ErrUsage(msg)
	}

	return err
}
