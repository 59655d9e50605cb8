package cliconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	httpadapter "github.com/bft-labs/greenfinch/internal/adapters/http"
	"github.com/bft-labs/greenfinch/internal/domain"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "GREENFINCH_"

// Config holds CLI configuration for greenfinch.
type Config struct {
	Token       string
	ServiceName string
	ServiceURL  string
	Debug       bool

	FlushInterval time.Duration
	BatchSize     int
	MaxQueueSize  int
	QueueDir      string
	HTTPTimeout   time.Duration

	UseIPForGeolocation bool
	// AutomaticEvents is "true", "false" or empty for unknown.
	AutomaticEvents string
	PayloadEncoding string
	Compress        bool
	FlushOnStop     bool

	LogLevel    string
	LogFormat   string
	MetricsAddr string
	Once        bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		FlushInterval:       60 * time.Second,
		BatchSize:           50,
		MaxQueueSize:        5000,
		QueueDir:            "", // Derived from the home directory during Validate
		HTTPTimeout:         30 * time.Second,
		UseIPForGeolocation: true,
		PayloadEncoding:     string(httpadapter.EncodingJSON),
		FlushOnStop:         true,
		LogLevel:            "info",
		LogFormat:           "console",
		Token:               os.Getenv(EnvPrefix + "TOKEN"),
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Token == "" {
		return invalid("token is required")
	}

	if err := c.DeriveQueueDir(); err != nil {
		return err
	}

	// Ensure no trailing slash
	c.ServiceURL = strings.TrimRight(c.ServiceURL, "/")
	if c.ServiceURL != "" {
		u, err := url.Parse(c.ServiceURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid(fmt.Sprintf("service-url %q is not an absolute URL", c.ServiceURL))
		}
	}

	if c.FlushInterval < 0 {
		return invalid("flush interval must not be negative")
	}
	if c.BatchSize <= 0 {
		return invalid("batch size must be positive")
	}
	if c.MaxQueueSize <= 0 {
		return invalid("max queue size must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return invalid("http timeout must be positive")
	}

	if _, err := domain.ParseAutoEvents(c.AutomaticEvents); err != nil {
		return invalid(err.Error())
	}
	if _, err := httpadapter.ParsePayloadEncoding(c.PayloadEncoding); err != nil {
		return invalid(err.Error())
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json", "none":
	default:
		return invalid(fmt.Sprintf("unknown log format %q", c.LogFormat))
	}

	return nil
}

// DeriveQueueDir sets QueueDir to ~/.greenfinch/queue when it is empty.
func (c *Config) DeriveQueueDir() error {
	if c.QueueDir != "" {
		return nil
	}
	h, err := os.UserHomeDir()
	if err != nil {
		return invalid("queue-dir is required when the home directory is unknown")
	}
	c.QueueDir = filepath.Join(h, ".greenfinch", "queue")
	return nil
}

// AutoEvents returns the parsed automatic events setting.
func (c Config) AutoEvents() domain.AutoEvents {
	v, _ := domain.ParseAutoEvents(c.AutomaticEvents)
	return v
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.Token != "" {
		c.Token = "*****"
	}
	return c
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, msg)
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
// "0" and "0s" are accepted and set the duration to zero.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
