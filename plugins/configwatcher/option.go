package configwatcher

import "github.com/bft-labs/greenfinch/pkg/greenfinch"

// WithConfigWatcher returns a greenfinch Option that enables config file
// watching. The watched file is the one passed to greenfinch.WithConfigPath.
//
// Usage:
//
//	g, err := greenfinch.New(cfg,
//	    greenfinch.WithConfigPath(path),
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) greenfinch.Option {
	return greenfinch.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher returns a greenfinch Option that enables config
// watching with default settings (debounce 100ms).
func WithDefaultConfigWatcher() greenfinch.Option {
	return WithConfigWatcher(DefaultConfig())
}
