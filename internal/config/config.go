// Package config provides layered configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/davidfant/roaring-api/pkg/roaring"
)

// Config holds the resolved configuration.
type Config struct {
	// API settings
	BaseURL string `json:"base_url"`

	// Profile settings (named environments, e.g. sandbox vs production)
	Profiles       map[string]*ProfileConfig `json:"profiles,omitempty"`
	DefaultProfile string                    `json:"default_profile,omitempty"`
	ActiveProfile  string                    `json:"-"` // Set at runtime, not persisted

	// Output settings
	Format string `json:"format"`
	Locale string `json:"locale,omitempty"`

	// Behavior preferences (overridable by flags)
	Stats   *bool `json:"stats,omitempty"`
	Verbose *int  `json:"verbose,omitempty"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `json:"-"`
}

// ProfileConfig holds configuration for a named profile.
type ProfileConfig struct {
	BaseURL string `json:"base_url"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceSystem  Source = "system"
	SourceGlobal  Source = "global"
	SourceProfile Source = "profile"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	BaseURL string
	Profile string
	Format  string
}

// Default returns the default configuration.
func Default() *Config {
	cfg := &Config{
		BaseURL: roaring.DefaultBaseURL,
		Format:  "auto",
		Sources: make(map[string]string),
	}
	cfg.Sources["base_url"] = string(SourceDefault)
	cfg.Sources["format"] = string(SourceDefault)
	return cfg
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > profile > global > system > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	loadFromFile(cfg, systemConfigPath(), SourceSystem)
	loadFromFile(cfg, globalConfigPath(), SourceGlobal)

	profile := overrides.Profile
	if profile == "" {
		profile = os.Getenv("ROARING_PROFILE")
	}
	if profile == "" {
		profile = cfg.DefaultProfile
	}
	if profile != "" {
		if err := cfg.ApplyProfile(profile); err != nil {
			return nil, err
		}
	}

	LoadFromEnv(cfg)
	ApplyOverrides(cfg, overrides)

	return cfg, nil
}

func loadFromFile(cfg *Config, path string, source Source) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config locations
	if err != nil {
		return // File doesn't exist, skip
	}

	var fileCfg map[string]any
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: skipping malformed config at %s: %v\n", path, err)
		return
	}

	if v, ok := fileCfg["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
		cfg.Sources["base_url"] = string(source)
	}
	if v, ok := fileCfg["format"].(string); ok && v != "" {
		cfg.Format = v
		cfg.Sources["format"] = string(source)
	}
	if v, ok := fileCfg["locale"].(string); ok && v != "" {
		cfg.Locale = v
		cfg.Sources["locale"] = string(source)
	}
	if v, ok := fileCfg["stats"].(bool); ok {
		cfg.Stats = &v
		cfg.Sources["stats"] = string(source)
	}
	if v, ok := fileCfg["verbose"].(float64); ok {
		iv := int(v)
		if iv >= 0 && iv <= 2 && v == float64(iv) {
			cfg.Verbose = &iv
			cfg.Sources["verbose"] = string(source)
		}
	}
	if v, ok := fileCfg["default_profile"].(string); ok && v != "" {
		cfg.DefaultProfile = v
		cfg.Sources["default_profile"] = string(source)
	}
	if v, ok := fileCfg["profiles"].(map[string]any); ok {
		if cfg.Profiles == nil {
			cfg.Profiles = make(map[string]*ProfileConfig)
		}
		for name, profileData := range v {
			profileMap, ok := profileData.(map[string]any)
			if !ok {
				continue
			}
			// Skip profiles with empty or missing base_url
			baseURL, ok := profileMap["base_url"].(string)
			if !ok || baseURL == "" {
				continue
			}
			cfg.Profiles[name] = &ProfileConfig{BaseURL: baseURL}
		}
		cfg.Sources["profiles"] = string(source)
	}
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("ROARING_BASE_URL"); v != "" {
		cfg.BaseURL = v
		cfg.Sources["base_url"] = string(SourceEnv)
	}
	if v := os.Getenv("ROARING_FORMAT"); v != "" {
		cfg.Format = v
		cfg.Sources["format"] = string(SourceEnv)
	}
	if v := os.Getenv("ROARING_LOCALE"); v != "" {
		cfg.Locale = v
		cfg.Sources["locale"] = string(SourceEnv)
	}
	if v := os.Getenv("ROARING_STATS"); v != "" {
		if b, ok := parseEnvBool(v); ok {
			cfg.Stats = &b
			cfg.Sources["stats"] = string(SourceEnv)
		}
	}
	if v := os.Getenv("ROARING_VERBOSE"); v != "" {
		if iv, err := strconv.Atoi(v); err == nil && iv >= 0 && iv <= 2 {
			cfg.Verbose = &iv
			cfg.Sources["verbose"] = string(SourceEnv)
		}
	}
}

// parseEnvBool parses a boolean environment variable strictly.
// Returns (value, true) for recognized values, (false, false) for unrecognized.
func parseEnvBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	default:
		return false, false
	}
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
		cfg.Sources["base_url"] = string(SourceFlag)
	}
	if o.Format != "" {
		cfg.Format = o.Format
		cfg.Sources["format"] = string(SourceFlag)
	}
}

// ApplyProfile overlays profile values onto the config. Load re-applies env
// and flags afterwards so they keep precedence over the profile.
func (cfg *Config) ApplyProfile(name string) error {
	if cfg.Profiles == nil {
		return fmt.Errorf("no profiles configured")
	}
	p, ok := cfg.Profiles[name]
	if !ok {
		return fmt.Errorf("profile %q not found", name)
	}

	cfg.ActiveProfile = name
	if p.BaseURL != "" {
		cfg.BaseURL = p.BaseURL
		cfg.Sources["base_url"] = string(SourceProfile)
	}
	return nil
}

// ProfileNames returns configured profile names in sorted order.
func (cfg *Config) ProfileNames() []string {
	names := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Path helpers

func systemConfigPath() string {
	return "/etc/roaring/config.json"
}

func globalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.json")
}

// GlobalConfigDir returns the global config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "roaring")
}

// NormalizeBaseURL ensures consistent URL format (no trailing slash).
func NormalizeBaseURL(url string) string {
	return strings.TrimSuffix(url, "/")
}
