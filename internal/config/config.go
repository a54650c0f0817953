// Package config loads the YAML configuration of the commandform CLI.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-commandform/pkg/form"
)

// Config holds the CLI configuration.
type Config struct {
	// Document is the OpenAPI document path or URL.
	Document string `yaml:"document"`
	// Operation selects the operation whose request body is the form schema.
	Operation string `yaml:"operation"`
	// Endpoint overrides the server URL declared in the document.
	Endpoint string `yaml:"endpoint"`
	// AllowHTTP enables fetching the document over http(s).
	AllowHTTP bool `yaml:"allow_http"`
	// Reset is the form reset policy: never, onSuccess, onError, always.
	Reset string `yaml:"reset"`
	// Timeout bounds document fetches and command calls.
	Timeout string `yaml:"timeout"`
	// Headers are sent with every command request.
	Headers map[string]string `yaml:"headers"`
	// Initial seeds the form before values are collected.
	Initial map[string]any `yaml:"initial"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`  // debug, info, warn, error
	Format      string `yaml:"format"` // json, console
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Reset:   "never",
		Timeout: "15s",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML file on top of the defaults. A missing file yields the
// defaults; environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("COMMANDFORM_DOCUMENT"); v != "" {
		c.Document = v
	}
	if v := os.Getenv("COMMANDFORM_OPERATION"); v != "" {
		c.Operation = v
	}
	if v := os.Getenv("COMMANDFORM_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("COMMANDFORM_TOKEN"); v != "" {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		c.Headers["Authorization"] = "Bearer " + v
	}
	if v := os.Getenv("COMMANDFORM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// ResetPolicy parses the configured reset policy.
func (c *Config) ResetPolicy() (form.ResetPolicy, error) {
	policy, ok := form.ParseResetPolicy(c.Reset)
	if !ok {
		return form.ResetNever, fmt.Errorf("config: invalid reset policy %q", c.Reset)
	}
	return policy, nil
}

// GetTimeout returns the timeout as a duration, 15s when unset or invalid.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(c.Timeout))
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// Validate checks the settings the submit flow depends on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Document) == "" {
		return fmt.Errorf("config: document is required (set document or COMMANDFORM_DOCUMENT)")
	}
	if strings.TrimSpace(c.Operation) == "" {
		return fmt.Errorf("config: operation is required (set operation or COMMANDFORM_OPERATION)")
	}
	if _, err := c.ResetPolicy(); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("config: invalid logging format %q (valid: json, console)", c.Logging.Format)
	}
	return nil
}
