// Package metrics exports pipeline counters to Prometheus.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/greenfinch/internal/app"
	"github.com/bft-labs/greenfinch/internal/domain"
)

const namespace = "greenfinch"

// QueueLengther reports the current queue length of a category.
type QueueLengther interface {
	Len(category domain.Category) int
}

// Emitter records send outcomes, evictions and lifecycle state.
// It implements app.SendEventEmitter, app.EventEmitter and
// queue.EvictionObserver.
type Emitter struct {
	batchesSent   *prometheus.CounterVec
	recordsSent   *prometheus.CounterVec
	sendErrors    *prometheus.CounterVec
	sendsDeferred *prometheus.CounterVec
	sendDuration  *prometheus.HistogramVec
	evicted       *prometheus.CounterVec
	state         prometheus.Gauge
}

// NewEmitter creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewEmitter(reg prometheus.Registerer) (*Emitter, error) {
	e := &Emitter{
		batchesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_sent_total",
			Help:      "Total number of batches acknowledged by ingestion",
		}, []string{"category"}),
		recordsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_sent_total",
			Help:      "Total number of records acknowledged by ingestion",
		}, []string{"category"}),
		sendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_errors_total",
			Help:      "Total number of failed batch requests",
		}, []string{"category", "kind"}),
		sendsDeferred: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_deferred_total",
			Help:      "Total number of flushes stopped by an open backoff window",
		}, []string{"category"}),
		sendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "send_duration_seconds",
			Help:      "Duration of acknowledged batch requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"category"}),
		evicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_evicted_total",
			Help:      "Total number of records dropped because a queue was full",
		}, []string{"category"}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lifecycle_state",
			Help:      "Current lifecycle state (0=stopped 1=starting 2=running 3=stopping 4=crashed)",
		}),
	}

	// Initialize counters with 0 so they appear in /metrics immediately
	for _, c := range domain.Categories() {
		e.batchesSent.WithLabelValues(string(c)).Add(0)
		e.recordsSent.WithLabelValues(string(c)).Add(0)
		e.sendsDeferred.WithLabelValues(string(c)).Add(0)
		e.evicted.WithLabelValues(string(c)).Add(0)
	}

	if reg == nil {
		return e, nil
	}
	for _, c := range e.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Emitter) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		e.batchesSent, e.recordsSent, e.sendErrors, e.sendsDeferred,
		e.sendDuration, e.evicted, e.state,
	}
}

// RegisterQueueGauges exports the length of every category queue.
func RegisterQueueGauges(reg prometheus.Registerer, q QueueLengther) error {
	for _, c := range domain.Categories() {
		g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "queue_records",
			Help:        "Records waiting in a category queue",
			ConstLabels: prometheus.Labels{"category": string(c)},
		}, func() float64 {
			return float64(q.Len(c))
		})
		if err := reg.Register(g); err != nil {
			return err
		}
	}
	return nil
}

// OnSendSuccess counts an acknowledged batch.
func (e *Emitter) OnSendSuccess(category domain.Category, records int, duration time.Duration) {
	e.batchesSent.WithLabelValues(string(category)).Inc()
	e.recordsSent.WithLabelValues(string(category)).Add(float64(records))
	e.sendDuration.WithLabelValues(string(category)).Observe(duration.Seconds())
}

// OnSendError counts a failed batch by failure kind.
func (e *Emitter) OnSendError(category domain.Category, err error, records int) {
	kind := "other"
	var failure *domain.Failure
	if errors.As(err, &failure) {
		kind = failure.Kind.String()
	}
	e.sendErrors.WithLabelValues(string(category), kind).Inc()
}

// OnSendDeferred counts a flush stopped by backoff.
func (e *Emitter) OnSendDeferred(category domain.Category, pending int) {
	e.sendsDeferred.WithLabelValues(string(category)).Inc()
}

// OnEvict counts evicted records.
func (e *Emitter) OnEvict(category domain.Category, records int) {
	e.evicted.WithLabelValues(string(category)).Add(float64(records))
}

// OnStateChange records the lifecycle state.
func (e *Emitter) OnStateChange(previous, current app.State, reason string) {
	e.state.Set(float64(current))
}
