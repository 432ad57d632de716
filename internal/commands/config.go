package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davidfant/roaring-api/internal/appctx"
	"github.com/davidfant/roaring-api/internal/config"
	"github.com/davidfant/roaring-api/internal/hostutil"
	"github.com/davidfant/roaring-api/internal/output"
)

// configKeys are the keys `config set` and `config unset` accept.
var configKeys = map[string]bool{
	"base_url":        true,
	"format":          true,
	"locale":          true,
	"stats":           true,
	"verbose":         true,
	"default_profile": true,
}

// NewConfigCmd creates the config command for managing configuration.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage roaring configuration.

Configuration is loaded from multiple sources with the following precedence:
  flags > env > profile > global > system > defaults

Config locations:
  - System: /etc/roaring/config.json
  - Global: ~/.config/roaring/config.json ($XDG_CONFIG_HOME/roaring)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigSetCmd(),
		newConfigUnsetCmd(),
		newConfigProfilesCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  "Display the current effective configuration with source information.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}
}

func runConfigShow(cmd *cobra.Command) error {
	app := appctx.FromContext(cmd.Context())
	cfg := app.Config

	keys := []struct {
		key     string
		value   string
		include bool
	}{
		{"base_url", cfg.BaseURL, true},
		{"format", cfg.Format, cfg.Format != ""},
		{"locale", cfg.Locale, cfg.Locale != ""},
		{"profile", cfg.ActiveProfile, cfg.ActiveProfile != ""},
		{"default_profile", cfg.DefaultProfile, cfg.DefaultProfile != ""},
		{"stats", fmt.Sprintf("%t", cfg.Stats != nil && *cfg.Stats), cfg.Stats != nil},
		{"verbose", fmt.Sprintf("%d", derefInt(cfg.Verbose)), cfg.Verbose != nil},
	}

	configData := make(map[string]any)
	for _, k := range keys {
		if !k.include {
			continue
		}
		source := cfg.Sources[k.key]
		if source == "" {
			source = string(config.SourceDefault)
		}
		if k.key == "profile" {
			source = string(config.SourceProfile)
		}
		configData[k.key] = map[string]string{
			"value":  k.value,
			"source": source,
		}
	}

	return app.OK(configData,
		output.WithSummary("Effective configuration"),
		output.WithContext("path", globalConfigPath()),
	)
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a value in the global config file.

Valid keys: base_url, format, locale, stats, verbose, default_profile`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			key, value := args[0], args[1]

			if !configKeys[key] {
				return output.ErrUsage(fmt.Sprintf("Invalid config key %q. Valid keys: %s", key, strings.Join(sortedConfigKeys(), ", ")))
			}

			configPath := globalConfigPath()
			configData, err := readConfigFile(configPath)
			if err != nil {
				return err
			}

			valueOut := value
			switch key {
			case "stats":
				b, ok := parseBoolFlag(value)
				if !ok {
					return output.ErrUsage("stats must be true/false (or 1/0)")
				}
				configData[key] = b
				valueOut = fmt.Sprintf("%t", b)
			case "verbose":
				level, err := strconv.Atoi(value)
				if err != nil || level < 0 || level > 2 {
					return output.ErrUsage("verbose must be 0, 1, or 2")
				}
				configData[key] = level
			case "format":
				if _, err := output.ParseFormat(value); err != nil {
					return output.ErrUsage(err.Error())
				}
				configData[key] = value
			case "base_url":
				valueOut = hostutil.Normalize(value)
				if err := hostutil.RequireSecureURL(valueOut); err != nil {
					return output.ErrUsage(err.Error())
				}
				configData[key] = valueOut
			case "default_profile":
				profiles, _ := configData["profiles"].(map[string]any)
				if _, ok := profiles[value]; !ok {
					return output.ErrUsage(fmt.Sprintf("profile %q not found in %s", value, configPath))
				}
				configData[key] = value
			default:
				configData[key] = value
			}

			if err := writeConfigFile(configPath, configData); err != nil {
				return err
			}

			return app.OK(map[string]any{
				"key":    key,
				"value":  valueOut,
				"path":   configPath,
				"status": "set",
			}, output.WithSummary(fmt.Sprintf("Set %s = %s", key, valueOut)))
		},
	}
}

func newConfigUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Unset a configuration value",
		Long:  "Remove a value from the global config file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			key := args[0]

			configPath := globalConfigPath()
			configData, err := readConfigFile(configPath)
			if err != nil {
				return err
			}

			if _, exists := configData[key]; !exists {
				return app.OK(map[string]any{
					"key":    key,
					"status": "not_set",
				}, output.WithSummary(fmt.Sprintf("Key not set: %s", key)))
			}

			delete(configData, key)
			if err := writeConfigFile(configPath, configData); err != nil {
				return err
			}

			return app.OK(map[string]any{
				"key":    key,
				"status": "unset",
			}, output.WithSummary(fmt.Sprintf("Unset %s", key)))
		},
	}
}

func newConfigProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List configured profiles",
		Long:  "List named profiles (e.g. sandbox, production) and the base URL each points at.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			cfg := app.Config

			profiles := make([]map[string]any, 0, len(cfg.Profiles))
			for _, name := range cfg.ProfileNames() {
				profiles = append(profiles, map[string]any{
					"name":     name,
					"base_url": cfg.Profiles[name].BaseURL,
					"default":  name == cfg.DefaultProfile,
					"active":   name == cfg.ActiveProfile,
				})
			}

			summary := fmt.Sprintf("%d profiles", len(profiles))
			if len(profiles) == 1 {
				summary = "1 profile"
			}
			return app.OK(profiles, output.WithSummary(summary))
		},
	}
}

func globalConfigPath() string {
	return filepath.Join(config.GlobalConfigDir(), "config.json")
}

// readConfigFile loads the raw JSON map at path. A missing file is empty;
// a malformed one is an error so `config set` never clobbers it.
func readConfigFile(path string) (map[string]any, error) {
	configData := make(map[string]any)
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config location
	if err != nil {
		if os.IsNotExist(err) {
			return configData, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, &configData); err != nil {
		return nil, output.ErrUsageHint(
			fmt.Sprintf("Config file %s is not valid JSON", path),
			"Fix or remove the file, then retry")
	}
	return configData, nil
}

func writeConfigFile(path string, configData map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(configData, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := atomicWriteFile(path, append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func sortedConfigKeys() []string {
	names := make([]string, 0, len(configKeys))
	for k := range configKeys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func parseBoolFlag(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// atomicWriteFile writes data to a file atomically using temp+rename.
// Files are always created with 0600 permissions (owner read/write only).
func atomicWriteFile(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	err = os.Rename(tmpPath, path)
	if err != nil && runtime.GOOS == "windows" {
		// Windows refuses to rename over an existing file.
		_ = os.Remove(path)
		return os.Rename(tmpPath, path)
	}
	if err != nil {
		os.Remove(tmpPath)
	}
	return err
}
