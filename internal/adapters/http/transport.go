package http

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/bft-labs/greenfinch/internal/domain"
	"github.com/bft-labs/greenfinch/internal/ports"
	"github.com/bft-labs/greenfinch/pkg/log"
)

// Ingestion hosts.
const (
	HostProduction = "https://event.kcd.partners"
	HostDebug      = "https://event-staging.kcd.partners"
)

// TransportConfig configures a BatchTransport.
type TransportConfig struct {
	Token       string
	ServiceName string

	// ServiceURL overrides the host chosen by Debug.
	ServiceURL string
	Debug      bool

	UseIPForGeolocation bool
	Encoding            PayloadEncoding
	Compress            bool
}

// BaseURL returns the ingestion host for the configuration.
func (c TransportConfig) BaseURL() string {
	switch {
	case c.ServiceURL != "":
		return c.ServiceURL
	case c.Debug:
		return HostDebug
	default:
		return HostProduction
	}
}

// BatchTransport implements ports.BatchSender over HTTP.
type BatchTransport struct {
	exec        *Executor
	gate        ports.BackoffGate
	logger      ports.Logger
	base        string
	serviceName string
	encoding    PayloadEncoding
	compress    bool
	useIP       atomic.Bool
}

// NewBatchTransport creates a transport. Every send is gated by gate.
func NewBatchTransport(
	config TransportConfig,
	client ports.HTTPClient,
	gate ports.BackoffGate,
	logger ports.Logger,
) (*BatchTransport, error) {
	base := config.BaseURL()
	if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: service url %q", domain.ErrInvalidConfig, base)
	}
	enc, err := ParsePayloadEncoding(string(config.Encoding))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	if gate == nil {
		return nil, errors.New("batch transport requires a backoff gate")
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	t := &BatchTransport{
		exec:        NewExecutor(client, config.Token),
		gate:        gate,
		logger:      logger,
		base:        base,
		serviceName: config.ServiceName,
		encoding:    enc,
		compress:    config.Compress,
	}
	t.useIP.Store(config.UseIPForGeolocation)
	return t, nil
}

// BaseURL returns the ingestion host.
func (t *BatchTransport) BaseURL() string {
	return t.base
}

// SetUseIPForGeolocation changes the ip query parameter of later requests.
func (t *BatchTransport) SetUseIPForGeolocation(v bool) {
	t.useIP.Store(v)
}

// UseIPForGeolocation reports the current ip query parameter.
func (t *BatchTransport) UseIPForGeolocation() bool {
	return t.useIP.Load()
}

// Send posts batch to the category endpoint.
// It returns domain.ErrBackoffActive without a request while the gate is closed.
// A canceled ctx is not counted as a failure.
func (t *BatchTransport) Send(ctx context.Context, category domain.Category, batch domain.Queue) error {
	path := category.Path()
	if path == "" {
		return fmt.Errorf("send %q: %w", category, domain.ErrUnknownCategory)
	}
	if t.gate.RequestNotAllowed() {
		return domain.ErrBackoffActive
	}

	body, err := encodePayload(batch, t.encoding)
	if err != nil {
		return fmt.Errorf("encode %s batch: %w", category, err)
	}
	headers := map[string]string{}
	if t.compress {
		if body, err = compress(body); err != nil {
			return fmt.Errorf("encode %s batch: %w", category, err)
		}
		headers["Content-Encoding"] = "gzip"
	}

	ack, err := Execute(ctx, t.exec, t.base, Resource[int]{
		Path:    path,
		Method:  MethodPost,
		Body:    body,
		Query:   t.query(category),
		Headers: headers,
		Parse:   parseAck,
	})
	if err != nil {
		if ctx.Err() == nil {
			var retryAfter time.Duration
			var failure *domain.Failure
			if errors.As(err, &failure) {
				retryAfter = failure.RetryAfter
			}
			t.gate.RecordFailure(retryAfter)
		}
		return fmt.Errorf("send %s batch: %w", category, err)
	}

	t.gate.RecordSuccess()
	if ack == 0 {
		t.logger.Warn("ingestion rejected part of a batch",
			ports.String("category", string(category)),
			ports.Int("records", len(batch)),
		)
	}
	return nil
}

func (t *BatchTransport) query(category domain.Category) []QueryItem {
	ip := "0"
	if t.useIP.Load() {
		ip = "1"
	}
	items := []QueryItem{{Name: "ip", Value: ip}}
	if category == domain.CategoryEvents && t.serviceName != "" {
		items = append(items, QueryItem{Name: "service", Value: t.serviceName})
	}
	return items
}
