package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config but uses strings for durations so it reads
// naturally in TOML and YAML.
type FileConfig struct {
	Token               string `toml:"token" yaml:"token"`
	ServiceName         string `toml:"service_name" yaml:"service_name"`
	ServiceURL          string `toml:"service_url" yaml:"service_url"`
	Debug               *bool  `toml:"debug" yaml:"debug"`
	FlushInterval       string `toml:"flush_interval" yaml:"flush_interval"`
	BatchSize           int    `toml:"batch_size" yaml:"batch_size"`
	MaxQueueSize        int    `toml:"max_queue_size" yaml:"max_queue_size"`
	QueueDir            string `toml:"queue_dir" yaml:"queue_dir"`
	HTTPTimeout         string `toml:"http_timeout" yaml:"http_timeout"`
	UseIPForGeolocation *bool  `toml:"use_ip_for_geolocation" yaml:"use_ip_for_geolocation"`
	AutomaticEvents     string `toml:"automatic_events" yaml:"automatic_events"`
	PayloadEncoding     string `toml:"payload_encoding" yaml:"payload_encoding"`
	Compress            *bool  `toml:"compress" yaml:"compress"`
	FlushOnStop         *bool  `toml:"flush_on_stop" yaml:"flush_on_stop"`
	LogLevel            string `toml:"log_level" yaml:"log_level"`
	LogFormat           string `toml:"log_format" yaml:"log_format"`
	MetricsAddr         string `toml:"metrics_addr" yaml:"metrics_addr"`
	Once                *bool  `toml:"once" yaml:"once"`
}

// LoadFileConfig reads and parses a config file from the given path.
// Files ending in .yaml or .yml are parsed as YAML, anything else as TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse toml %s: %w", path, err)
		}
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.greenfinch/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".greenfinch", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("token", fc.Token, &cfg.Token)
	s.setString("service-name", fc.ServiceName, &cfg.ServiceName)
	s.setString("service-url", fc.ServiceURL, &cfg.ServiceURL)
	s.setString("queue-dir", fc.QueueDir, &cfg.QueueDir)
	s.setString("automatic-events", fc.AutomaticEvents, &cfg.AutomaticEvents)
	s.setString("payload-encoding", fc.PayloadEncoding, &cfg.PayloadEncoding)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)

	if err := s.setDuration("flush-interval", fc.FlushInterval, &cfg.FlushInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}

	s.setInt("batch-size", fc.BatchSize, &cfg.BatchSize)
	s.setInt("max-queue-size", fc.MaxQueueSize, &cfg.MaxQueueSize)

	s.setBool("debug", fc.Debug, &cfg.Debug)
	s.setBool("use-ip", fc.UseIPForGeolocation, &cfg.UseIPForGeolocation)
	s.setBool("compress", fc.Compress, &cfg.Compress)
	s.setBool("flush-on-stop", fc.FlushOnStop, &cfg.FlushOnStop)
	s.setBool("once", fc.Once, &cfg.Once)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
