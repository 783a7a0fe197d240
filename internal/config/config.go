// Package config loads canre settings from a JSON or YAML file, a remote
// URL, or CANRE_ environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/robfig/cron/v3"
)

// Config is the top-level canre configuration.
type Config struct {
	Server  ServerConfig  `json:"server"`
	Sources SourcesConfig `json:"sources"`
	Limits  LimitsConfig  `json:"limits"`
	API     APIConfig     `json:"api"`
	Journal JournalConfig `json:"journal"`
	Probe   ProbeConfig   `json:"probe"`
	Log     LogConfig     `json:"log"`
}

// ServerConfig is the identity reported to MCP clients.
type ServerConfig struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// SourcesConfig holds upstream endpoints and client timeouts.
type SourcesConfig struct {
	OpenGovURL      string `json:"opengov_url,omitempty"`
	ValetURL        string `json:"valet_url,omitempty"`
	CensusURL       string `json:"census_url,omitempty"`
	BasicTimeout    int    `json:"basic_timeout"`    // seconds
	EnhancedTimeout int    `json:"enhanced_timeout"` // seconds
}

// LimitsConfig is loaded, validated and logged but not applied to
// outbound calls.
type LimitsConfig struct {
	RateLimitMs int `json:"rate_limit_ms"`
	MaxRetries  int `json:"max_retries"`
	TimeoutMs   int `json:"timeout_ms"`
}

// APIConfig holds admin HTTP API settings.
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Key     string `json:"api_key,omitempty"`
}

// JournalConfig enables the SQLite call journal when Path is set.
type JournalConfig struct {
	Path          string `json:"path,omitempty"`
	RetentionDays int    `json:"retention_days,omitempty"` // 0 = keep forever
}

// ProbeConfig enables the upstream probe when Schedule is set.
type ProbeConfig struct {
	Schedule string `json:"schedule,omitempty"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level      string `json:"level"`
	BufferSize int    `json:"buffer_size"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Name: "canadian-real-estate-mcp", Version: "2.0.0"},
		Sources: SourcesConfig{
			BasicTimeout:    10,
			EnhancedTimeout: 15,
		},
		Limits: LimitsConfig{RateLimitMs: 1000, MaxRetries: 3, TimeoutMs: 30000},
		API:    APIConfig{Host: "127.0.0.1", Port: 8080},
		Log:    LogConfig{Level: "info", BufferSize: 2000},
	}
}

// BasicTimeout returns the basic client timeout.
func (c *Config) BasicTimeout() time.Duration {
	return time.Duration(c.Sources.BasicTimeout) * time.Second
}

// EnhancedTimeout returns the enhanced client timeout.
func (c *Config) EnhancedTimeout() time.Duration {
	return time.Duration(c.Sources.EnhancedTimeout) * time.Second
}

// Load reads configuration from a .json, .yaml or .yml file over the
// defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := decode(data, formatOf(path), cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type format int

const (
	formatJSON format = iota
	formatYAML
)

func formatOf(name string) format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatJSON
	}
}

func decode(data []byte, f format, cfg *Config) error {
	if f == formatYAML {
		return yaml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

// LoadFromEnv builds a config from defaults and CANRE_ environment
// variables.
func LoadFromEnv() (*Config, error) {
	cfg := Default()

	cfg.Sources.OpenGovURL = os.Getenv("CANRE_OPENGOV_URL")
	cfg.Sources.ValetURL = os.Getenv("CANRE_VALET_URL")
	cfg.Sources.CensusURL = os.Getenv("CANRE_CENSUS_URL")
	cfg.Sources.BasicTimeout = getenvInt("CANRE_BASIC_TIMEOUT", cfg.Sources.BasicTimeout)
	cfg.Sources.EnhancedTimeout = getenvInt("CANRE_ENHANCED_TIMEOUT", cfg.Sources.EnhancedTimeout)

	cfg.Limits.RateLimitMs = getenvInt("CANRE_RATE_LIMIT_MS", cfg.Limits.RateLimitMs)
	cfg.Limits.MaxRetries = getenvInt("CANRE_MAX_RETRIES", cfg.Limits.MaxRetries)
	cfg.Limits.TimeoutMs = getenvInt("CANRE_TIMEOUT_MS", cfg.Limits.TimeoutMs)

	cfg.API.Enabled = getenvBool("CANRE_API_ENABLED", false)
	cfg.API.Host = getenv("CANRE_API_HOST", cfg.API.Host)
	cfg.API.Port = getenvInt("CANRE_API_PORT", cfg.API.Port)
	cfg.API.Key = os.Getenv("CANRE_API_KEY")

	cfg.Journal.Path = os.Getenv("CANRE_JOURNAL_PATH")
	cfg.Journal.RetentionDays = getenvInt("CANRE_JOURNAL_RETENTION_DAYS", 0)
	cfg.Probe.Schedule = os.Getenv("CANRE_PROBE_SCHEDULE")

	cfg.Log.Level = getenv("CANRE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.BufferSize = getenvInt("CANRE_LOG_BUFFER_SIZE", cfg.Log.BufferSize)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Name == "" {
		errs = append(errs, "server.name is required")
	}
	if c.Server.Version == "" {
		errs = append(errs, "server.version is required")
	}

	endpoints := []struct{ key, raw string }{
		{"sources.opengov_url", c.Sources.OpenGovURL},
		{"sources.valet_url", c.Sources.ValetURL},
		{"sources.census_url", c.Sources.CensusURL},
	}
	for _, ep := range endpoints {
		key, raw := ep.key, ep.raw
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("%s must be an http(s) URL, got %q", key, raw))
		}
	}
	if c.Sources.BasicTimeout <= 0 {
		errs = append(errs, "sources.basic_timeout must be positive")
	}
	if c.Sources.EnhancedTimeout <= 0 {
		errs = append(errs, "sources.enhanced_timeout must be positive")
	}

	if c.Limits.RateLimitMs < 0 {
		errs = append(errs, "limits.rate_limit_ms must not be negative")
	}
	if c.Limits.MaxRetries < 0 {
		errs = append(errs, "limits.max_retries must not be negative")
	}
	if c.Limits.TimeoutMs <= 0 {
		errs = append(errs, "limits.timeout_ms must be positive")
	}

	if c.API.Enabled && (c.API.Port <= 0 || c.API.Port > 65535) {
		errs = append(errs, fmt.Sprintf("api.port %d is out of range", c.API.Port))
	}
	if c.Journal.RetentionDays < 0 {
		errs = append(errs, "journal.retention_days must not be negative")
	}
	if c.Probe.Schedule != "" {
		if _, err := cron.ParseStandard(c.Probe.Schedule); err != nil {
			errs = append(errs, fmt.Sprintf("probe.schedule %q is invalid: %v", c.Probe.Schedule, err))
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q must be one of debug, info, warn, error", c.Log.Level))
	}
	if c.Log.BufferSize < 0 {
		errs = append(errs, "log.buffer_size must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// SlogLevel returns the configured level for the stderr handler.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
