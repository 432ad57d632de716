package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path string, v map[string]any) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// isolate points the global config dir at a temp dir and clears ROARING_* vars.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, k := range []string{"ROARING_BASE_URL", "ROARING_FORMAT", "ROARING_LOCALE", "ROARING_STATS", "ROARING_VERBOSE", "ROARING_PROFILE"} {
		t.Setenv(k, "")
	}
	return filepath.Join(dir, "roaring", "config.json")
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "https://api.roaring.io", cfg.BaseURL)
	assert.Equal(t, "auto", cfg.Format)
	assert.Equal(t, "default", cfg.Sources["base_url"])
	assert.Nil(t, cfg.Stats)
	assert.Nil(t, cfg.Verbose)
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	writeConfig(t, configPath, map[string]any{
		"base_url": "https://sandbox.roaring.io",
		"format":   "json",
		"locale":   "sv_SE.UTF-8",
		"stats":    true,
		"verbose":  1,
	})

	cfg := Default()
	loadFromFile(cfg, configPath, SourceGlobal)

	assert.Equal(t, "https://sandbox.roaring.io", cfg.BaseURL)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "sv_SE.UTF-8", cfg.Locale)
	require.NotNil(t, cfg.Stats)
	assert.True(t, *cfg.Stats)
	require.NotNil(t, cfg.Verbose)
	assert.Equal(t, 1, *cfg.Verbose)

	assert.Equal(t, "global", cfg.Sources["base_url"])
	assert.Equal(t, "global", cfg.Sources["format"])
}

func TestLoadFromFileSkipsInvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte("not valid json"), 0o644))

	cfg := Default()
	loadFromFile(cfg, configPath, SourceGlobal)

	assert.Equal(t, "https://api.roaring.io", cfg.BaseURL)
}

func TestLoadFromFileSkipsMissingFile(t *testing.T) {
	cfg := Default()
	loadFromFile(cfg, "/nonexistent/path/config.json", SourceGlobal)

	assert.Equal(t, "https://api.roaring.io", cfg.BaseURL)
}

func TestLoadFromFileRejectsOutOfRangeVerbose(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	writeConfig(t, configPath, map[string]any{"verbose": 7})

	cfg := Default()
	loadFromFile(cfg, configPath, SourceGlobal)

	assert.Nil(t, cfg.Verbose)
}

func TestLoadFromFileProfiles(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	writeConfig(t, configPath, map[string]any{
		"default_profile": "sandbox",
		"profiles": map[string]any{
			"sandbox": map[string]any{"base_url": "https://sandbox.roaring.io"},
			"broken":  map[string]any{"base_url": ""},
			"junk":    "not a map",
		},
	})

	cfg := Default()
	loadFromFile(cfg, configPath, SourceGlobal)

	assert.Equal(t, "sandbox", cfg.DefaultProfile)
	assert.Equal(t, []string{"sandbox"}, cfg.ProfileNames())
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("ROARING_BASE_URL", "http://localhost:8080")
	t.Setenv("ROARING_FORMAT", "yaml")
	t.Setenv("ROARING_STATS", "1")
	t.Setenv("ROARING_VERBOSE", "2")

	cfg := Default()
	LoadFromEnv(cfg)

	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, "yaml", cfg.Format)
	require.NotNil(t, cfg.Stats)
	assert.True(t, *cfg.Stats)
	require.NotNil(t, cfg.Verbose)
	assert.Equal(t, 2, *cfg.Verbose)
	assert.Equal(t, "env", cfg.Sources["base_url"])
}

func TestLoadFromEnvIgnoresUnrecognizedBool(t *testing.T) {
	isolate(t)
	t.Setenv("ROARING_STATS", "maybe")

	cfg := Default()
	LoadFromEnv(cfg)

	assert.Nil(t, cfg.Stats)
}

func TestLoadPrecedence(t *testing.T) {
	globalPath := isolate(t)
	writeConfig(t, globalPath, map[string]any{
		"base_url": "https://global.example.com",
		"format":   "json",
		"profiles": map[string]any{
			"sandbox": map[string]any{"base_url": "https://sandbox.roaring.io"},
		},
	})

	t.Run("global file", func(t *testing.T) {
		cfg, err := Load(FlagOverrides{})
		require.NoError(t, err)
		assert.Equal(t, "https://global.example.com", cfg.BaseURL)
		assert.Equal(t, "global", cfg.Sources["base_url"])
	})

	t.Run("profile beats file", func(t *testing.T) {
		cfg, err := Load(FlagOverrides{Profile: "sandbox"})
		require.NoError(t, err)
		assert.Equal(t, "https://sandbox.roaring.io", cfg.BaseURL)
		assert.Equal(t, "sandbox", cfg.ActiveProfile)
		assert.Equal(t, "profile", cfg.Sources["base_url"])
	})

	t.Run("env beats profile", func(t *testing.T) {
		t.Setenv("ROARING_BASE_URL", "https://env.example.com")
		cfg, err := Load(FlagOverrides{Profile: "sandbox"})
		require.NoError(t, err)
		assert.Equal(t, "https://env.example.com", cfg.BaseURL)
	})

	t.Run("flag beats env", func(t *testing.T) {
		t.Setenv("ROARING_BASE_URL", "https://env.example.com")
		cfg, err := Load(FlagOverrides{BaseURL: "https://flag.example.com", Format: "yaml"})
		require.NoError(t, err)
		assert.Equal(t, "https://flag.example.com", cfg.BaseURL)
		assert.Equal(t, "yaml", cfg.Format)
		assert.Equal(t, "flag", cfg.Sources["base_url"])
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, err := Load(FlagOverrides{Profile: "missing"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `profile "missing" not found`)
	})
}

func TestApplyProfileWithoutProfiles(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyProfile("sandbox")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no profiles configured")
}

func TestGlobalConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/roaring", GlobalConfigDir())
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.roaring.io", NormalizeBaseURL("https://api.roaring.io/"))
	assert.Equal(t, "https://api.roaring.io", NormalizeBaseURL("https://api.roaring.io"))
}
