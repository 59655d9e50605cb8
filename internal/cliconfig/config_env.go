package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (GREENFINCH_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(key string) string { return os.Getenv(EnvPrefix + key) }

	s.setString("token", env("TOKEN"), &cfg.Token)
	s.setString("service-name", env("SERVICE_NAME"), &cfg.ServiceName)
	s.setString("service-url", env("SERVICE_URL"), &cfg.ServiceURL)
	s.setString("queue-dir", env("QUEUE_DIR"), &cfg.QueueDir)
	s.setString("automatic-events", env("AUTOMATIC_EVENTS"), &cfg.AutomaticEvents)
	s.setString("payload-encoding", env("PAYLOAD_ENCODING"), &cfg.PayloadEncoding)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", env("LOG_FORMAT"), &cfg.LogFormat)
	s.setString("metrics-addr", env("METRICS_ADDR"), &cfg.MetricsAddr)

	if err := s.setDuration("flush-interval", env("FLUSH_INTERVAL"), &cfg.FlushInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", env("HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("batch-size", env("BATCH_SIZE"), &cfg.BatchSize); err != nil {
		return err
	}
	if err := s.setIntFromString("max-queue-size", env("MAX_QUEUE_SIZE"), &cfg.MaxQueueSize); err != nil {
		return err
	}

	s.setBoolFromString("debug", env("DEBUG"), &cfg.Debug)
	s.setBoolFromString("use-ip", env("USE_IP_FOR_GEOLOCATION"), &cfg.UseIPForGeolocation)
	s.setBoolFromString("compress", env("COMPRESS"), &cfg.Compress)
	s.setBoolFromString("flush-on-stop", env("FLUSH_ON_STOP"), &cfg.FlushOnStop)
	s.setBoolFromString("once", env("ONCE"), &cfg.Once)

	return nil
}

// Resolve layers the config file at path (if it exists), then the
// environment, onto cfg. Flags named in changed keep their values.
func Resolve(cfg *Config, path string, changed map[string]bool) error {
	if path != "" && FileExists(path) {
		fc, err := LoadFileConfig(path)
		if err != nil {
			return err
		}
		if err := ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}
	return ApplyEnvConfig(cfg, changed)
}
