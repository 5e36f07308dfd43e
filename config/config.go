// Package config provides YAML configuration parsing for favwatch.
//
// This package enables running favwatch as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	api:
//	  base_url: https://api.example.com
//	  email: ${FAVWATCH_EMAIL}
//	  password: ${FAVWATCH_PASSWORD}
//	  app_version: "1.4.2"
//
//	polling_interval_min_in_ms: 40000
//	polling_interval_max_in_ms: 120000
//	authentication_interval_in_ms: 3600000
//
//	backoff403:
//	  threshold: 3
//	  window_ms: 300000
//	  cooldown_ms: 600000
//
//	status:
//	  enabled: true
//	  port: 8080
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for favwatch.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// API holds the remote service connection settings.
	API APIConfig `yaml:"api"`

	// PollingIntervalMinMs is the lower bound of the jittered poll
	// cadence, in milliseconds. Absent or non-positive means unset.
	PollingIntervalMinMs *int64 `yaml:"polling_interval_min_in_ms"`

	// PollingIntervalMaxMs is the upper bound of the jittered poll
	// cadence, in milliseconds. Absent or non-positive means unset.
	PollingIntervalMaxMs *int64 `yaml:"polling_interval_max_in_ms"`

	// PollingIntervalMs is the legacy single-value cadence in
	// milliseconds: exact interval, no jitter. It is only consulted when
	// neither min nor max is set.
	PollingIntervalMs *int64 `yaml:"polling_interval_in_ms"`

	// AuthIntervalMs is the re-authentication cadence in milliseconds.
	// Values below one hour are clamped up at runtime. Defaults to one
	// hour.
	AuthIntervalMs *int64 `yaml:"authentication_interval_in_ms"`

	// Backoff403 tunes the 403 cooldown tracker.
	Backoff403 *Backoff403Config `yaml:"backoff403"`

	// Status configures the optional HTTP status server.
	Status StatusConfig `yaml:"status"`
}

// APIConfig holds the remote service connection settings.
type APIConfig struct {
	// BaseURL is the API origin, e.g. "https://api.example.com".
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	BaseURL string `yaml:"base_url"`

	// Email and Password are the account credentials.
	// Values support environment variable substitution.
	Email    string `yaml:"email"`
	Password string `yaml:"password"`

	// AppVersion is the client version token reported to the remote
	// service. Empty selects the library default.
	AppVersion string `yaml:"app_version"`
}

// Backoff403Config tunes the sliding-window 403 cooldown tracker.
type Backoff403Config struct {
	// Threshold is how many 403 responses inside the window arm a
	// cooldown. Defaults to 3.
	Threshold int `yaml:"threshold"`

	// WindowMs is the sliding window length in milliseconds.
	// Defaults to 300000 (5 minutes).
	WindowMs int64 `yaml:"window_ms"`

	// CooldownMs is the cooldown length in milliseconds.
	// Defaults to 600000 (10 minutes).
	CooldownMs int64 `yaml:"cooldown_ms"`
}

// StatusConfig configures the optional HTTP status server.
type StatusConfig struct {
	// Enabled turns the status server on. Off by default.
	Enabled bool `yaml:"enabled"`

	// Port is the HTTP server port. Defaults to 8080 when enabled.
	Port int `yaml:"port"`
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		// submatches[2] is ":-..." (non-empty if default syntax was used)
		// submatches[3] is the actual default value (may be empty for ${VAR:-})
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in API credential and URL values,
// and the result is validated. The status server port defaults to 8080
// when the server is enabled without an explicit port.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Status.Enabled && cfg.Status.Port == 0 {
		cfg.Status.Port = 8080
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	expanded, err := expandEnvVars(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	c.API.BaseURL = expanded

	parsedURL, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: invalid url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("api.base_url: scheme must be http or https, got %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return errors.New("api.base_url: url must have a host")
	}

	if c.API.Email == "" {
		return errors.New("api.email is required")
	}
	if c.API.Email, err = expandEnvVars(c.API.Email); err != nil {
		return fmt.Errorf("api.email: %w", err)
	}

	if c.API.Password == "" {
		return errors.New("api.password is required")
	}
	if c.API.Password, err = expandEnvVars(c.API.Password); err != nil {
		return fmt.Errorf("api.password: %w", err)
	}

	if c.API.AppVersion != "" {
		if c.API.AppVersion, err = expandEnvVars(c.API.AppVersion); err != nil {
			return fmt.Errorf("api.app_version: %w", err)
		}
	}

	if err := validateIntervalMs("polling_interval_min_in_ms", c.PollingIntervalMinMs); err != nil {
		return err
	}
	if err := validateIntervalMs("polling_interval_max_in_ms", c.PollingIntervalMaxMs); err != nil {
		return err
	}
	if err := validateIntervalMs("polling_interval_in_ms", c.PollingIntervalMs); err != nil {
		return err
	}
	if err := validateIntervalMs("authentication_interval_in_ms", c.AuthIntervalMs); err != nil {
		return err
	}

	if b := c.Backoff403; b != nil {
		if b.Threshold < 0 {
			return fmt.Errorf("backoff403.threshold cannot be negative, got %d", b.Threshold)
		}
		if b.WindowMs < 0 {
			return fmt.Errorf("backoff403.window_ms cannot be negative, got %d", b.WindowMs)
		}
		if b.CooldownMs < 0 {
			return fmt.Errorf("backoff403.cooldown_ms cannot be negative, got %d", b.CooldownMs)
		}
	}

	if c.Status.Enabled && (c.Status.Port < 1 || c.Status.Port > 65535) {
		return fmt.Errorf("status.port must be between 1 and 65535, got %d", c.Status.Port)
	}

	return nil
}

// validateIntervalMs rejects explicit non-positive interval values.
// A nil pointer means the key was absent, which is always valid.
func validateIntervalMs(key string, v *int64) error {
	if v != nil && *v <= 0 {
		return fmt.Errorf("%s must be positive, got %d", key, *v)
	}
	return nil
}
