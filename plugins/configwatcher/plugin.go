// Package configwatcher reloads runtime settings of a greenfinch instance
// when its configuration file changes.
//
// Only settings that can change without a restart are applied:
// flush_interval, automatic_events and use_ip_for_geolocation. Other keys
// are ignored until the next start.
package configwatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/greenfinch/internal/cliconfig"
	"github.com/bft-labs/greenfinch/internal/domain"
	"github.com/bft-labs/greenfinch/pkg/greenfinch"
	"github.com/bft-labs/greenfinch/pkg/log"
)

// Setting names, matching the command line flags of the same settings.
const (
	SettingFlushInterval   = "flush-interval"
	SettingAutomaticEvents = "automatic-events"
	SettingUseIP           = "use-ip"
)

// Plugin implements config watching functionality.
type Plugin struct {
	debounceDelay time.Duration
	pinned        map[string]bool

	mu         sync.Mutex
	path       string
	logger     greenfinch.Logger
	controller greenfinch.Controller
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// Pinned lists settings the watcher never changes, usually the ones
	// given on the command line.
	Pinned map[string]bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	pinned := make(map[string]bool, len(cfg.Pinned))
	for k, v := range cfg.Pinned {
		pinned[k] = v
	}
	return &Plugin{
		debounceDelay: cfg.DebounceDelay,
		pinned:        pinned,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the configuration file.
func (p *Plugin) Initialize(ctx context.Context, cfg greenfinch.PluginConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.path = cfg.ConfigPath
	p.logger = logger
	p.controller = cfg.Controller

	if p.path == "" || p.controller == nil {
		p.logger.Warn("config watcher disabled: no config file")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		p.logger.Warn("config watcher disabled: cannot watch directory",
			log.String("path", p.path),
			log.Err(err))
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	p.logger.Info("config watcher started", log.String("path", p.path))
	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	debounce := time.NewTimer(p.debounceDelay)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(p.debounceDelay)

		case <-debounce.C:
			p.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

// reload reads the file and applies the runtime settings it contains.
// Settings missing from the file keep their current values.
func (p *Plugin) reload() {
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		p.logger.Warn("config reload failed", log.Err(err))
		return
	}

	if fc.FlushInterval != "" && !p.pinned[SettingFlushInterval] {
		d, err := time.ParseDuration(fc.FlushInterval)
		switch {
		case err != nil || d < 0:
			p.logger.Warn("config reload: invalid flush_interval",
				log.String("value", fc.FlushInterval))
		case d != p.controller.FlushInterval():
			p.controller.SetFlushInterval(d)
			p.logger.Info("flush interval reloaded", log.Duration("interval", d))
		}
	}

	if fc.AutomaticEvents != "" && !p.pinned[SettingAutomaticEvents] {
		v, err := domain.ParseAutoEvents(fc.AutomaticEvents)
		if err != nil {
			p.logger.Warn("config reload: invalid automatic_events", log.Err(err))
		} else {
			p.controller.SetAutomaticEvents(v)
			p.logger.Info("automatic events reloaded", log.String("value", v.String()))
		}
	}

	if fc.UseIPForGeolocation != nil && !p.pinned[SettingUseIP] {
		p.controller.SetUseIPForGeolocation(*fc.UseIPForGeolocation)
		p.logger.Info("use ip for geolocation reloaded", log.Bool("value", *fc.UseIPForGeolocation))
	}
}

// Ensure Plugin implements greenfinch.Plugin.
var _ greenfinch.Plugin = (*Plugin)(nil)
