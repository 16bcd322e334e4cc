package config

import (
	"embed"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/horkydorky/Earth-Pulse/common/model"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

const (
	DefaultBaseURL        = "http://localhost:8000"
	DefaultAPIPort        = "8000"
	DefaultRequestTimeout = 30 * time.Second
	DefaultCacheTTL       = time.Hour
)

// Environment overrides, applied after the config file.
const (
	EnvBaseURL        = "EARTHPULSE_API_BASE_URL"
	EnvAPIVersion     = "EARTHPULSE_API_VERSION"
	EnvRequestTimeout = "EARTHPULSE_REQUEST_TIMEOUT"
	EnvCacheTTL       = "EARTHPULSE_CACHE_TTL"
	EnvAPIToken       = "EARTHPULSE_API_TOKEN"
	EnvOrigin         = "EARTHPULSE_ORIGIN"
	EnvUserAgent      = "EARTHPULSE_USER_AGENT"
	EnvDedupInflight  = "EARTHPULSE_DEDUP_INFLIGHT"
)

var versionPattern = regexp.MustCompile(`^v[0-9]+$`)

type Config struct {
	APIBaseURL     string `yaml:"api_base_url"`
	APIVersion     string `yaml:"api_version"`
	RequestTimeout string `yaml:"request_timeout"`
	CacheTTL       string `yaml:"cache_ttl"`
	APIToken       string `yaml:"api_token,omitempty"`
	// Origin is where the client runs, e.g. "https://pulse.example.org".
	Origin        string `yaml:"origin,omitempty"`
	DefaultRegion string `yaml:"default_region"`
	UserAgent     string `yaml:"user_agent"`
	DedupInflight bool   `yaml:"dedup_inflight"`
}

// BaseURL returns the effective API base URL.
func (c *Config) BaseURL() string {
	return ResolveBaseURL(c.APIBaseURL, c.Origin)
}

// RequestTimeoutDuration returns the advisory per-call timeout. Zero disables it.
func (c *Config) RequestTimeoutDuration() time.Duration {
	d, err := ParseDuration(c.RequestTimeout)
	if err != nil || d < 0 {
		return DefaultRequestTimeout
	}
	return d
}

func (c *Config) CacheTTLDuration() time.Duration {
	d, err := ParseDuration(c.CacheTTL)
	if err != nil || d <= 0 {
		return DefaultCacheTTL
	}
	return d
}

func (c *Config) Region() model.Region {
	return model.Region(c.DefaultRegion).OrDefault()
}

// ResolveBaseURL picks the API base URL: the explicit value when set, else
// the origin's host on port 8000, else http://localhost:8000.
func ResolveBaseURL(explicit, origin string) string {
	if explicit != "" {
		return strings.TrimRight(explicit, "/")
	}
	if origin != "" {
		if u, err := url.Parse(origin); err == nil && u.Hostname() != "" {
			scheme := u.Scheme
			if scheme == "" {
				scheme = "http"
			}
			return scheme + "://" + net.JoinHostPort(u.Hostname(), DefaultAPIPort)
		}
	}
	return DefaultBaseURL
}

// ParseDuration accepts Go duration syntax or a bare integer of milliseconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "earthpulse", "config.yaml")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path over the embedded defaults, then applies
// EARTHPULSE_* environment overrides. A missing file is not an error. With an
// empty path, DefaultConfigPath is used and the defaults are written there on
// first run; an explicit path is never created. A nil logger means slog.Default().
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	writeOnMissing := path == ""
	if path == "" {
		path = DefaultConfigPath()
	}
	return load(path, writeOnMissing, logger)
}

func load(path string, writeOnMissing bool, logger *slog.Logger) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if writeOnMissing {
			if err := writeDefaultsFile(path); err != nil {
				// Non-fatal: just use embedded defaults
				logger.Warn("could not write default config", "path", path, "error", err)
			}
		}
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		// Keys absent from the file keep their embedded defaults.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// writeDefaultsFile is swapped out in tests.
var writeDefaultsFile = writeDefaults

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		EnvBaseURL:        &cfg.APIBaseURL,
		EnvAPIVersion:     &cfg.APIVersion,
		EnvRequestTimeout: &cfg.RequestTimeout,
		EnvCacheTTL:       &cfg.CacheTTL,
		EnvAPIToken:       &cfg.APIToken,
		EnvOrigin:         &cfg.Origin,
		EnvUserAgent:      &cfg.UserAgent,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	if v, ok := lookup(EnvDedupInflight); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDedupInflight, err)
		}
		cfg.DedupInflight = b
	}
	return nil
}

// Validate checks a configuration, including any overrides applied after Load.
func Validate(cfg *Config) error {
	if cfg.APIBaseURL != "" {
		u, err := url.Parse(cfg.APIBaseURL)
		if err != nil {
			return fmt.Errorf("api_base_url: invalid url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("api_base_url: scheme must be http or https, got %q", u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("api_base_url: missing host in %q", cfg.APIBaseURL)
		}
	}
	if !versionPattern.MatchString(cfg.APIVersion) {
		return fmt.Errorf("api_version: expected v<N>, got %q", cfg.APIVersion)
	}
	if d, err := ParseDuration(cfg.RequestTimeout); err != nil {
		return fmt.Errorf("request_timeout: %w", err)
	} else if d < 0 {
		return fmt.Errorf("request_timeout: must not be negative")
	}
	if d, err := ParseDuration(cfg.CacheTTL); err != nil {
		return fmt.Errorf("cache_ttl: %w", err)
	} else if d <= 0 {
		return fmt.Errorf("cache_ttl: must be positive")
	}
	return nil
}
