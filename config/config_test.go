package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horkydorky/Earth-Pulse/common/model"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvBaseURL, EnvAPIVersion, EnvRequestTimeout, EnvCacheTTL,
		EnvAPIToken, EnvOrigin, EnvUserAgent, EnvDedupInflight,
	} {
		if v, ok := os.LookupEnv(key); ok {
			t.Setenv(key, v)
			require.NoError(t, os.Unsetenv(key))
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadDefaults()
	require.NoError(t, err)
	assert.Equal(t, "v1", cfg.APIVersion)
	assert.Equal(t, time.Hour, cfg.CacheTTLDuration())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeoutDuration())
	assert.Equal(t, model.RegionNepalHimalayas, cfg.Region())
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL())
	assert.False(t, cfg.DedupInflight)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_ExplicitMissingFileIsNotCreated(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "earthpulse", "config.yaml")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", cfg.APIVersion)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "an explicit --config path must not be created")
}

func TestLoad_DefaultPathWritesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "earthpulse", "config.yaml")

	cfg, err := load(path, true, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "v1", cfg.APIVersion)

	_, err = os.Stat(path)
	assert.NoError(t, err, "defaults should be written on first run")
}

func TestLoad_WriteFailureIsLogged(t *testing.T) {
	clearEnv(t)
	orig := writeDefaultsFile
	t.Cleanup(func() { writeDefaultsFile = orig })
	writeDefaultsFile = func(string) error { return errors.New("read-only file system") }

	path := filepath.Join(t.TempDir(), "earthpulse", "config.yaml")
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	cfg, err := load(path, true, logger)
	require.NoError(t, err, "a failed write falls back to embedded defaults")
	assert.Equal(t, "v1", cfg.APIVersion)
	assert.Contains(t, logs.String(), "could not write default config")
	assert.Contains(t, logs.String(), "read-only file system")
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_base_url: https://pulse.example.org/\ncache_ttl: 10m\n"), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://pulse.example.org", cfg.BaseURL())
	assert.Equal(t, 10*time.Minute, cfg.CacheTTLDuration())
	assert.Equal(t, "v1", cfg.APIVersion, "unset keys keep their defaults")
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_version: v1\n"), 0o644))

	t.Setenv(EnvAPIVersion, "v2")
	t.Setenv(EnvCacheTTL, "60000")
	t.Setenv(EnvAPIToken, "secret")
	t.Setenv(EnvDedupInflight, "true")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", cfg.APIVersion)
	assert.Equal(t, time.Minute, cfg.CacheTTLDuration())
	assert.Equal(t, "secret", cfg.APIToken)
	assert.True(t, cfg.DedupInflight)
}

func TestLoad_InvalidFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_version: [\n"), 0o644))

	_, err := Load(path, nil)
	assert.ErrorContains(t, err, "parsing config")
}

func TestApplyEnv_BadBool(t *testing.T) {
	cfg := &Config{}
	err := applyEnv(cfg, func(key string) (string, bool) {
		if key == EnvDedupInflight {
			return "sometimes", true
		}
		return "", false
	})
	assert.ErrorContains(t, err, EnvDedupInflight)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{APIVersion: "v1", RequestTimeout: "30s", CacheTTL: "3600000"}
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"https base url", func(c *Config) { c.APIBaseURL = "https://x.example" }, ""},
		{"ftp base url", func(c *Config) { c.APIBaseURL = "ftp://x.example" }, "scheme must be http or https"},
		{"base url without host", func(c *Config) { c.APIBaseURL = "http://" }, "missing host"},
		{"bad version", func(c *Config) { c.APIVersion = "1" }, "api_version"},
		{"bad timeout", func(c *Config) { c.RequestTimeout = "soon" }, "request_timeout"},
		{"zero ttl", func(c *Config) { c.CacheTTL = "0" }, "cache_ttl"},
		{"zero timeout disables", func(c *Config) { c.RequestTimeout = "0" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
		err   bool
	}{
		{"3600000", time.Hour, false},
		{"30000", 30 * time.Second, false},
		{"1h", time.Hour, false},
		{" 250ms ", 250 * time.Millisecond, false},
		{"", 0, true},
		{"later", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		if tt.err {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestResolveBaseURL(t *testing.T) {
	tests := []struct {
		explicit, origin, want string
	}{
		{"https://api.example.org/", "https://app.example.org", "https://api.example.org"},
		{"", "https://app.example.org", "https://app.example.org:8000"},
		{"", "http://10.0.0.5:3000/dashboard", "http://10.0.0.5:8000"},
		{"", "http://[::1]:5173", "http://[::1]:8000"},
		{"", "", "http://localhost:8000"},
		{"", "not a url", "http://localhost:8000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveBaseURL(tt.explicit, tt.origin), "explicit=%q origin=%q", tt.explicit, tt.origin)
	}
}
