package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matsen/oc2skg/internal/meshup"
	"github.com/matsen/oc2skg/internal/oc"
)

// Config is the oc2skg configuration stored in ~/.config/oc2skg/config.yml.
//
// Timeout and CacheTTL are Go duration strings ("30s", "168h").
type Config struct {
	IndexBaseURL string  `yaml:"index_base_url" json:"index_base_url"`
	MetaBaseURL  string  `yaml:"meta_base_url" json:"meta_base_url"`
	AccessToken  string  `yaml:"access_token,omitempty" json:"access_token,omitempty"`
	RateLimit    float64 `yaml:"rate_limit" json:"rate_limit"`
	Timeout      string  `yaml:"timeout" json:"timeout"`
	Retries      int     `yaml:"retries" json:"retries"`
	Concurrency  int     `yaml:"concurrency" json:"concurrency"`
	CachePath    string  `yaml:"cache_path" json:"cache_path"`
	CacheTTL     string  `yaml:"cache_ttl" json:"cache_ttl"`
}

const (
	// DefaultCacheTTL is how long fetched responses are reused.
	DefaultCacheTTL = "168h"
	// CacheFile is the response cache database name.
	CacheFile = "responses.db"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills zero-valued keys.
func (c *Config) applyDefaults() {
	if c.IndexBaseURL == "" {
		c.IndexBaseURL = oc.IndexBaseURL
	}
	if c.MetaBaseURL == "" {
		c.MetaBaseURL = oc.MetaBaseURL
	}
	if c.RateLimit == 0 {
		c.RateLimit = oc.DefaultRateLimit
	}
	if c.Timeout == "" {
		c.Timeout = oc.DefaultTimeout.String()
	}
	if c.Retries == 0 {
		c.Retries = oc.DefaultRetries
	}
	if c.Concurrency == 0 {
		c.Concurrency = meshup.DefaultConcurrency
	}
	if c.CachePath == "" {
		c.CachePath = DefaultCachePath()
	}
	if c.CacheTTL == "" {
		c.CacheTTL = DefaultCacheTTL
	}
}

// Validate rejects non-positive limits and unparsable durations.
func (c *Config) Validate() error {
	if c.RateLimit <= 0 {
		return fmt.Errorf("%w: rate_limit must be positive, got %v", ErrInvalidConfig, c.RateLimit)
	}
	if c.Retries < 1 {
		return fmt.Errorf("%w: retries must be at least 1, got %d", ErrInvalidConfig, c.Retries)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, c.Concurrency)
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("%w: timeout %q is not a positive duration", ErrInvalidConfig, c.Timeout)
	}
	if _, err := time.ParseDuration(c.CacheTTL); err != nil {
		return fmt.Errorf("%w: cache_ttl %q: %v", ErrInvalidConfig, c.CacheTTL, err)
	}
	return nil
}

// TimeoutDuration returns Timeout parsed. Call Validate first.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// CacheTTLDuration returns CacheTTL parsed. Call Validate first.
func (c *Config) CacheTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.CacheTTL)
	return d
}

// Redacted returns a copy safe to print, with the access token masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.AccessToken != "" {
		out.AccessToken = "********"
	}
	return &out
}

// ClientOptions returns the oc.Client options this configuration implies.
// The cache is attached separately.
func (c *Config) ClientOptions() []oc.ClientOption {
	return []oc.ClientOption{
		oc.WithBaseURLs(c.IndexBaseURL, c.MetaBaseURL),
		oc.WithAccessToken(c.AccessToken),
		oc.WithRateLimit(c.RateLimit),
		oc.WithTimeout(c.TimeoutDuration()),
		oc.WithRetry(c.Retries, oc.DefaultRetryDelay),
	}
}

// DefaultCachePath returns the response cache location under
// XDG_CACHE_HOME, defaulting to ~/.cache/oc2skg/responses.db.
func DefaultCachePath() string {
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), GlobalConfigDir, CacheFile)
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheHome, GlobalConfigDir, CacheFile)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
