// Package config handles configuration loading and validation for hive-chat.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hay-kot/criterio"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendJSONFile = "jsonfile"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig `yaml:"server"`
	Store   StoreConfig  `yaml:"store"`
	Chat    ChatConfig   `yaml:"chat"`
	Client  ClientConfig `yaml:"client"`
	AI      AIConfig     `yaml:"ai"`
	DataDir string       `yaml:"-"` // set by caller, not from config file
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// StoreConfig selects and configures the shared store.
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"` // jsonfile only; defaults to <data-dir>/chat.json
	RedisURL    string `yaml:"redis_url"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ChatConfig holds the protocol constants shared by every server process.
type ChatConfig struct {
	UserTimeoutSeconds int `yaml:"user_timeout_seconds"`
	MaxMessages        int `yaml:"max_messages"`
}

// UserTimeout returns the presence staleness window.
func (c ChatConfig) UserTimeout() time.Duration {
	return time.Duration(c.UserTimeoutSeconds) * time.Second
}

// ClientConfig holds the client loop intervals and network timeouts.
type ClientConfig struct {
	PollInterval      time.Duration `yaml:"poll_interval"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	CommandTimeout    time.Duration `yaml:"command_timeout"`
	PollTimeout       time.Duration `yaml:"poll_timeout"`
	AITimeout         time.Duration `yaml:"ai_timeout"`
}

// AIConfig configures the AI pass-through endpoint.
type AIConfig struct {
	// UpstreamURL receives AI queries verbatim. Empty disables the endpoint.
	UpstreamURL string `yaml:"upstream_url"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			MaxBodyBytes: 64 << 10,
		},
		Store: StoreConfig{
			Backend: BackendJSONFile,
		},
		Chat: ChatConfig{
			UserTimeoutSeconds: 30,
			MaxMessages:        50,
		},
		Client: ClientConfig{
			PollInterval:      2 * time.Second,
			HeartbeatInterval: 15 * time.Second,
			CommandTimeout:    10 * time.Second,
			PollTimeout:       30 * time.Second,
			AITimeout:         45 * time.Second,
		},
	}
}

// Load reads configuration from the given path and validates it.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg, err := Read(configPath, dataDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Read parses configPath and applies defaults without validating, so callers
// can report every problem in the file instead of failing on the first load.
func Read(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	// Apply defaults for zero values
	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = defaults.Server.MaxBodyBytes
	}
	if c.Store.Backend == "" {
		c.Store.Backend = defaults.Store.Backend
	}
	if c.Chat.UserTimeoutSeconds == 0 {
		c.Chat.UserTimeoutSeconds = defaults.Chat.UserTimeoutSeconds
	}
	if c.Chat.MaxMessages == 0 {
		c.Chat.MaxMessages = defaults.Chat.MaxMessages
	}
	if c.Client.PollInterval == 0 {
		c.Client.PollInterval = defaults.Client.PollInterval
	}
	if c.Client.HeartbeatInterval == 0 {
		c.Client.HeartbeatInterval = defaults.Client.HeartbeatInterval
	}
	if c.Client.CommandTimeout == 0 {
		c.Client.CommandTimeout = defaults.Client.CommandTimeout
	}
	if c.Client.PollTimeout == 0 {
		c.Client.PollTimeout = defaults.Client.PollTimeout
	}
	if c.Client.AITimeout == 0 {
		c.Client.AITimeout = defaults.Client.AITimeout
	}
}

// Validate checks that the configuration is valid. All problems are reported
// together as criterio.FieldErrors.
func (c *Config) Validate() error {
	var errs criterio.FieldErrors
	add := func(field, msg string) {
		errs = append(errs, criterio.FieldErrors{{Field: field, Err: errors.New(msg)}}...)
	}

	if c.DataDir == "" {
		add("data_dir", "data directory cannot be empty")
	}
	if c.Server.Addr == "" {
		add("server.addr", "listen address cannot be empty")
	}
	if c.Server.MaxBodyBytes < 0 {
		add("server.max_body_bytes", "must not be negative")
	}

	switch c.Store.Backend {
	case BackendJSONFile:
	case BackendRedis:
		if c.Store.RedisURL == "" {
			add("store.redis_url", "required for the redis backend")
		}
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			add("store.postgres_dsn", "required for the postgres backend")
		}
	default:
		add("store.backend", fmt.Sprintf("unknown backend %q (jsonfile, redis, postgres)", c.Store.Backend))
	}

	if c.Chat.UserTimeoutSeconds < 1 {
		add("chat.user_timeout_seconds", "must be at least 1")
	}
	if c.Chat.MaxMessages < 1 {
		add("chat.max_messages", "must be at least 1")
	}

	durations := []struct {
		field string
		value time.Duration
	}{
		{"client.poll_interval", c.Client.PollInterval},
		{"client.heartbeat_interval", c.Client.HeartbeatInterval},
		{"client.command_timeout", c.Client.CommandTimeout},
		{"client.poll_timeout", c.Client.PollTimeout},
		{"client.ai_timeout", c.Client.AITimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			add(d.field, "must be a positive duration")
		}
	}

	if c.Client.HeartbeatInterval >= c.Chat.UserTimeout() && c.Chat.UserTimeoutSeconds > 0 {
		add("client.heartbeat_interval", "must be shorter than chat.user_timeout_seconds")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// StorePath returns the path of the jsonfile store.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(c.DataDir, "chat.json")
}
