package greenfinch

import (
	"context"
	"time"
)

// Plugin extends a Greenfinch instance. Plugins are initialized by Start in
// registration order and shut down by Stop in reverse order.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// PluginConfig is passed to Plugin.Initialize.
type PluginConfig struct {
	// ConfigPath is the configuration file the instance was built from,
	// empty when it was configured in code.
	ConfigPath string
	Logger     Logger

	// Controller changes runtime settings of the running instance.
	Controller Controller
}

// Controller exposes the runtime mutators of a Greenfinch instance.
type Controller interface {
	SetFlushInterval(d time.Duration)
	FlushInterval() time.Duration
	SetAutomaticEvents(v AutoEvents)
	SetUseIPForGeolocation(v bool)
}
