package greenfinch

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	httpadapter "github.com/bft-labs/greenfinch/internal/adapters/http"
	"github.com/bft-labs/greenfinch/internal/app"
	"github.com/bft-labs/greenfinch/internal/domain"
	"github.com/bft-labs/greenfinch/internal/queue"
)

// Category names a telemetry queue.
type Category = domain.Category

// Record is one telemetry record. Values must be JSON-encodable.
type Record = domain.Record

// AutoEvents is the tri-state automatic events setting.
type AutoEvents = domain.AutoEvents

// Categories.
const (
	CategoryEvents = domain.CategoryEvents
	CategoryPeople = domain.CategoryPeople
	CategoryGroups = domain.CategoryGroups
)

// Automatic events settings. Records whose event name starts with "$ae_"
// are held back while the setting is unknown and dropped when it is disabled.
const (
	AutoEventsUnknown  = domain.AutoEventsUnknown
	AutoEventsEnabled  = domain.AutoEventsEnabled
	AutoEventsDisabled = domain.AutoEventsDisabled
)

// Payload encodings.
const (
	EncodingJSON   = string(httpadapter.EncodingJSON)
	EncodingBase64 = string(httpadapter.EncodingBase64)
)

// Errors returned by the public API.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrUnknownCategory = domain.ErrUnknownCategory
)

// Config holds the configuration of a Greenfinch instance.
type Config struct {
	// Token is the project token sent with every request. Required.
	Token string

	// ServiceName is sent as the service query parameter on events requests.
	ServiceName string

	// ServiceURL overrides the ingestion host. When empty the host is chosen
	// by Debug.
	ServiceURL string
	Debug      bool

	// FlushInterval is the period of the flush timer.
	// Default: 60 seconds. Use SetFlushInterval(0) to turn the timer off.
	FlushInterval time.Duration

	// BatchSize is the maximum number of records per request.
	// Default: 50
	BatchSize int

	// MaxQueueSize caps every category queue; the oldest records are evicted.
	// Default: 5000
	MaxQueueSize int

	// QueueDir persists queues across restarts. Empty keeps them in memory.
	QueueDir string

	// HTTPTimeout bounds every request of the default HTTP client.
	// Default: 30 seconds
	HTTPTimeout time.Duration

	UseIPForGeolocation bool
	AutomaticEvents     AutoEvents

	// PayloadEncoding is EncodingJSON (default) or EncodingBase64.
	PayloadEncoding string
	Compress        bool

	// FlushOnStop flushes every queue once before Stop returns.
	FlushOnStop bool

	// ShutdownTimeout bounds Stop.
	// Default: 30 seconds
	ShutdownTimeout time.Duration
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	if c.FlushInterval <= 0 {
		c.FlushInterval = app.DefaultFlushInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = app.DefaultBatchSize
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = queue.DefaultMaxSize
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.PayloadEncoding == "" {
		c.PayloadEncoding = EncodingJSON
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = app.ShutdownTimeout
	}
	c.ServiceURL = strings.TrimRight(c.ServiceURL, "/")
}

// Validate checks the configuration. Call SetDefaults first.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidConfig)
	}
	if c.ServiceURL != "" {
		u, err := url.Parse(c.ServiceURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: service url %q is not absolute", ErrInvalidConfig, c.ServiceURL)
		}
	}
	if _, err := httpadapter.ParsePayloadEncoding(c.PayloadEncoding); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch c.AutomaticEvents {
	case AutoEventsUnknown, AutoEventsEnabled, AutoEventsDisabled:
	default:
		return fmt.Errorf("%w: automatic events %d", ErrInvalidConfig, c.AutomaticEvents)
	}
	return nil
}
