package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/hay-kot/criterio"
)

// ValidateDeep performs comprehensive validation of the configuration.
// Unlike Validate(), this checks file access and the syntax of every URL.
func (c *Config) ValidateDeep(configPath string) error {
	var errs criterio.FieldErrors
	add := func(field string, err error) {
		errs = append(errs, criterio.FieldErrors{{Field: field, Err: err}}...)
	}

	if err := c.Validate(); err != nil {
		var fieldErrs criterio.FieldErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		errs = append(errs, fieldErrs...)
	}

	if configPath != "" {
		if info, err := os.Stat(configPath); err == nil && info.IsDir() {
			add("config", fmt.Errorf("%s is a directory, not a file", configPath))
		} else if err != nil && !os.IsNotExist(err) {
			add("config", fmt.Errorf("cannot access %s: %w", configPath, err))
		}
	}

	if c.Store.Backend == BackendJSONFile {
		if info, err := os.Stat(c.StorePath()); err == nil && info.IsDir() {
			add("store.path", fmt.Errorf("%s is a directory, not a file", c.StorePath()))
		}
	}

	if c.Store.RedisURL != "" {
		if err := checkURL(c.Store.RedisURL, "redis", "rediss", "unix"); err != nil {
			add("store.redis_url", err)
		}
	}

	if c.Store.PostgresDSN != "" {
		// Key/value DSNs ("host=... user=...") are accepted as-is.
		if u, err := url.Parse(c.Store.PostgresDSN); err == nil && u.Scheme != "" {
			if err := checkURL(c.Store.PostgresDSN, "postgres", "postgresql"); err != nil {
				add("store.postgres_dsn", err)
			}
		}
	}

	if c.AI.UpstreamURL != "" {
		if err := checkURL(c.AI.UpstreamURL, "http", "https"); err != nil {
			add("ai.upstream_url", err)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("unsupported scheme %q, expected one of %v", u.Scheme, schemes)
}

// ValidationWarning is a non-fatal configuration finding.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// Warnings returns settings that are valid but likely to surprise.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.Store.Backend == BackendJSONFile {
		warnings = append(warnings, ValidationWarning{
			Category: "Store",
			Item:     BackendJSONFile,
			Message:  "state is only shared between servers on this host; use redis or postgres for multiple hosts",
		})
	}

	if timeout := c.Chat.UserTimeout(); timeout > 0 && c.Client.HeartbeatInterval > timeout/2 {
		warnings = append(warnings, ValidationWarning{
			Category: "Presence",
			Item:     "client.heartbeat_interval",
			Message:  fmt.Sprintf("one missed heartbeat marks users inactive (timeout %s)", timeout),
		})
	}

	if c.Chat.MaxMessages > 1000 {
		warnings = append(warnings, ValidationWarning{
			Category: "Chat",
			Item:     "chat.max_messages",
			Message:  "every poll reads the whole retained log",
		})
	}

	if c.AI.UpstreamURL == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "AI",
			Message:  "ai.upstream_url is not set; --ai queries will be rejected",
		})
	}

	return warnings
}
