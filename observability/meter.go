package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Outcome attribute values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// CacheMetrics holds the state cache instruments.
type CacheMetrics struct {
	flushTotal       metric.Int64Counter
	flushDuration    metric.Float64Histogram
	flushKeys        metric.Int64Histogram
	initTotal        metric.Int64Counter
	notifyTotal      metric.Int64Counter
	subscriberPanics metric.Int64Counter
	clearTotal       metric.Int64Counter
}

// NewCacheMetrics creates cache instruments on meter.
func NewCacheMetrics(meter metric.Meter) (*CacheMetrics, error) {
	var (
		m   CacheMetrics
		err error
	)
	if m.flushTotal, err = meter.Int64Counter("statecache.flush.total",
		metric.WithDescription("Durable write batches by outcome")); err != nil {
		return nil, fmt.Errorf("creating statecache.flush.total counter: %w", err)
	}
	if m.flushDuration, err = meter.Float64Histogram("statecache.flush.duration",
		metric.WithDescription("Duration of durable write batches"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating statecache.flush.duration histogram: %w", err)
	}
	if m.flushKeys, err = meter.Int64Histogram("statecache.flush.keys",
		metric.WithDescription("Fields per durable write batch")); err != nil {
		return nil, fmt.Errorf("creating statecache.flush.keys histogram: %w", err)
	}
	if m.initTotal, err = meter.Int64Counter("statecache.init.total",
		metric.WithDescription("Loads from durable storage by outcome")); err != nil {
		return nil, fmt.Errorf("creating statecache.init.total counter: %w", err)
	}
	if m.notifyTotal, err = meter.Int64Counter("statecache.notify.total",
		metric.WithDescription("Handler invocations")); err != nil {
		return nil, fmt.Errorf("creating statecache.notify.total counter: %w", err)
	}
	if m.subscriberPanics, err = meter.Int64Counter("statecache.subscriber.panics",
		metric.WithDescription("Handlers that panicked")); err != nil {
		return nil, fmt.Errorf("creating statecache.subscriber.panics counter: %w", err)
	}
	if m.clearTotal, err = meter.Int64Counter("statecache.clear.total",
		metric.WithDescription("Clears by outcome and preserve flag")); err != nil {
		return nil, fmt.Errorf("creating statecache.clear.total counter: %w", err)
	}
	return &m, nil
}

func outcome(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// RecordFlush records one durable write batch.
func (m *CacheMetrics) RecordFlush(ctx context.Context, keys int, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := metric.WithAttributes(attribute.String(AttrStatus, outcome(err)))
	m.flushTotal.Add(ctx, 1, status)
	m.flushDuration.Record(ctx, d.Seconds(), status)
	m.flushKeys.Record(ctx, int64(keys))
}

// RecordInit records one load from durable storage.
func (m *CacheMetrics) RecordInit(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.initTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrStatus, outcome(err))))
}

// RecordNotify records a handler invocation and whether it panicked.
func (m *CacheMetrics) RecordNotify(ctx context.Context, panicked bool) {
	if m == nil {
		return
	}
	m.notifyTotal.Add(ctx, 1)
	if panicked {
		m.subscriberPanics.Add(ctx, 1)
	}
}

// RecordClear records a clear.
func (m *CacheMetrics) RecordClear(ctx context.Context, preserve bool, err error) {
	if m == nil {
		return
	}
	m.clearTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStatus, outcome(err)),
		attribute.Bool("preserve", preserve),
	))
}

// HTTPMetrics holds request instruments for the HTTP surface.
type HTTPMetrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
}

// NewHTTPMetrics creates request instruments on meter.
func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	requestTotal, err := meter.Int64Counter("http.server.request.total",
		metric.WithDescription("Total number of requests"))
	if err != nil {
		return nil, fmt.Errorf("creating http.server.request.total counter: %w", err)
	}
	requestDuration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of requests"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating http.server.request.duration histogram: %w", err)
	}
	requestActive, err := meter.Int64UpDownCounter("http.server.request.active",
		metric.WithDescription("Number of in-flight requests"))
	if err != nil {
		return nil, fmt.Errorf("creating http.server.request.active counter: %w", err)
	}
	return &HTTPMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestActive:   requestActive,
	}, nil
}

// RecordRequestStart increments the in-flight count.
func (m *HTTPMetrics) RecordRequestStart(ctx context.Context) {
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements the in-flight count and records the request.
func (m *HTTPMetrics) RecordRequestEnd(ctx context.Context, route, method string, status int, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("method", method),
		attribute.Int("status", status),
	)
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, d.Seconds(), attrs)
}
