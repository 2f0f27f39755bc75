// Package config manages application configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Sources accepted by the channel command.
const (
	SourceAuto      = "auto"
	SourceAPI       = "api"
	SourceInnertube = "innertube"
	SourceRSS       = "rss"
)

// Sources lists every valid Source value.
var Sources = []string{SourceAuto, SourceAPI, SourceInnertube, SourceRSS}

// Config holds all application configuration.
type Config struct {
	// APIKey is the YouTube Data API v3 key. Optional.
	APIKey string `json:"api_key"`
	// Source selects the channel listing backend (auto, api, innertube, rss).
	Source string `json:"source"`
	// Language is the caption language code (default: "en")
	Language string `json:"language"`
	// OutputDir is where transcripts are written when no path is given.
	OutputDir string `json:"output_dir"`

	// LogFile is the JSON log file path; empty disables file logging.
	LogFile string `json:"log_file"`
	// LogLevel is the minimum level printed on stderr.
	LogLevel string `json:"log_level"`
	// LogMaxSizeMB rotates the log file at this size.
	LogMaxSizeMB int `json:"log_max_size_mb"`
	// LogMaxBackups is the number of rotated log files kept.
	LogMaxBackups int `json:"log_max_backups"`

	// RequestTimeout bounds a single HTTP request.
	RequestTimeout Duration `json:"request_timeout"`
	// DefaultLimit is the channel listing limit when --limit is not given (-1 = all).
	DefaultLimit int `json:"default_limit"`
	// RateLimitRPS is the request rate towards YouTube hosts.
	RateLimitRPS float64 `json:"rate_limit_rps"`

	// MaxRetries is the maximum number of retries for failed operations
	MaxRetries int `json:"max_retries"`
	// InitialBackoff is the initial backoff duration for retries
	InitialBackoff Duration `json:"initial_backoff"`
	// MaxBackoff is the maximum backoff duration for retries
	MaxBackoff Duration `json:"max_backoff"`
	// BackoffMultiplier is the multiplier for exponential backoff (must be > 1)
	BackoffMultiplier float64 `json:"backoff_multiplier"`
}

// Duration is a time.Duration that reads "30s" style strings or plain
// seconds from JSON.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\" or a number of seconds")
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		Source:            SourceAuto,
		Language:          "en",
		OutputDir:         "output",
		LogFile:           filepath.Join("var", "logs", "app.log"),
		LogLevel:          "info",
		LogMaxSizeMB:      10,
		LogMaxBackups:     3,
		RequestTimeout:    Duration(30 * time.Second),
		DefaultLimit:      5,
		RateLimitRPS:      2.5,
		MaxRetries:        3,
		InitialBackoff:    Duration(1 * time.Second),
		MaxBackoff:        Duration(30 * time.Second),
		BackoffMultiplier: 2.0,
	}
}

// Load builds the configuration.
// Priority: env vars > .env file > config file > defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(); err != nil {
		// Config file is optional
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	dotenv, err := readDotEnv(".env")
	if err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.loadFromEnv(envLookup(dotenv)); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile loads ytscribe.json from the current directory or the user config directory.
func (c *Config) loadFromFile() error {
	paths := []string{"ytscribe.json"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ytscribe", "ytscribe.json"))
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}

		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	return os.ErrNotExist
}

// readDotEnv parses a .env file without touching the process environment.
// A missing file yields an empty map.
func readDotEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return values, nil
}

// envLookup prefers the real environment over .env values.
func envLookup(dotenv map[string]string) func(string) string {
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}
}

// loadFromEnv overrides config with environment variables. Malformed
// numbers and durations are reported rather than ignored.
func (c *Config) loadFromEnv(getenv func(string) string) error {
	var errs []error

	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v := getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = Duration(d)
		}
	}

	str("YOUTUBE_API_KEY", &c.APIKey)
	str("YTSCRIBE_API_KEY", &c.APIKey)
	str("YTSCRIBE_SOURCE", &c.Source)
	str("YTSCRIBE_LANGUAGE", &c.Language)
	str("YTSCRIBE_OUTPUT_DIR", &c.OutputDir)
	str("YTSCRIBE_LOG_FILE", &c.LogFile)
	str("YTSCRIBE_LOG_LEVEL", &c.LogLevel)
	integer("YTSCRIBE_LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	integer("YTSCRIBE_LOG_MAX_BACKUPS", &c.LogMaxBackups)
	duration("YTSCRIBE_REQUEST_TIMEOUT", &c.RequestTimeout)
	integer("YTSCRIBE_DEFAULT_LIMIT", &c.DefaultLimit)
	float("YTSCRIBE_RATE_LIMIT_RPS", &c.RateLimitRPS)
	integer("YTSCRIBE_MAX_RETRIES", &c.MaxRetries)
	duration("YTSCRIBE_INITIAL_BACKOFF", &c.InitialBackoff)
	duration("YTSCRIBE_MAX_BACKOFF", &c.MaxBackoff)
	float("YTSCRIBE_BACKOFF_MULTIPLIER", &c.BackoffMultiplier)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %w", errors.Join(errs...))
	}
	return nil
}

// Validate checks that configuration values are valid and consistent.
// It returns an error if any configuration value is invalid.
func (c *Config) Validate() error {
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	if !slices.Contains(Sources, c.Source) {
		return fmt.Errorf("source must be one of %s", strings.Join(Sources, ", "))
	}
	if c.Source == SourceAPI && c.APIKey == "" {
		return fmt.Errorf("source %q requires an API key (YOUTUBE_API_KEY)", SourceAPI)
	}
	if c.Language == "" {
		return fmt.Errorf("language must not be empty")
	}
	if c.LogMaxSizeMB <= 0 {
		return fmt.Errorf("log_max_size_mb must be positive")
	}
	if c.LogMaxBackups < 0 {
		return fmt.Errorf("log_max_backups must be non-negative")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.DefaultLimit < -1 {
		return fmt.Errorf("default_limit must be -1 (unlimited) or non-negative")
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("rate_limit_rps must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive")
	}
	if c.MaxBackoff <= 0 {
		return fmt.Errorf("max_backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff must be >= initial_backoff")
	}
	if c.BackoffMultiplier <= 1 {
		return fmt.Errorf("backoff_multiplier must be > 1")
	}
	return nil
}

// ResolvedSource returns the listing backend for SourceAuto: the Data API
// when a key is configured, Innertube otherwise.
func (c *Config) ResolvedSource() string {
	if c.Source != SourceAuto {
		return c.Source
	}
	if c.APIKey != "" {
		return SourceAPI
	}
	return SourceInnertube
}
