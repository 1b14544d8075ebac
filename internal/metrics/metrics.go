package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the instruments of the API process. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	HTTPRequests     metric.Int64Counter
	HTTPDuration     metric.Float64Histogram
	PostsCreated     metric.Int64Counter
	PostsPublished   metric.Int64Counter
	DispatchAttempts metric.Int64Counter
	MediaUploaded    metric.Int64Counter
	CacheHits        metric.Int64Counter
	CacheMisses      metric.Int64Counter
}

// Setup registers a Prometheus exporter as the global meter provider and
// returns the instruments plus the /metrics handler.
func Setup(serviceName string) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	m, err := New(provider.Meter(serviceName))
	if err != nil {
		return nil, nil, err
	}
	return m, promhttp.Handler(), nil
}

func New(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	if m.HTTPRequests, err = meter.Int64Counter(
		"tupae_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, err
	}
	if m.HTTPDuration, err = meter.Float64Histogram(
		"tupae_http_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	); err != nil {
		return nil, err
	}
	if m.PostsCreated, err = meter.Int64Counter(
		"tupae_posts_created_total",
		metric.WithDescription("Posts created, by initial status"),
	); err != nil {
		return nil, err
	}
	if m.PostsPublished, err = meter.Int64Counter(
		"tupae_posts_published_total",
		metric.WithDescription("Posts that reached the published status"),
	); err != nil {
		return nil, err
	}
	if m.DispatchAttempts, err = meter.Int64Counter(
		"tupae_dispatch_attempts_total",
		metric.WithDescription("Per-platform dispatch attempts, by platform and outcome"),
	); err != nil {
		return nil, err
	}
	if m.MediaUploaded, err = meter.Int64Counter(
		"tupae_media_uploaded_total",
		metric.WithDescription("Media objects uploaded, by kind"),
	); err != nil {
		return nil, err
	}
	if m.CacheHits, err = meter.Int64Counter(
		"tupae_cache_hits_total",
		metric.WithDescription("Total number of cache hits"),
	); err != nil {
		return nil, err
	}
	if m.CacheMisses, err = meter.Int64Counter(
		"tupae_cache_misses_total",
		metric.WithDescription("Total number of cache misses"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)

	m.HTTPRequests.Add(ctx, 1, labels)
	m.HTTPDuration.Record(ctx, duration.Seconds(), labels)
}

func (m *Metrics) RecordPostCreated(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.PostsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *Metrics) RecordPostPublished(ctx context.Context) {
	if m == nil {
		return
	}
	m.PostsPublished.Add(ctx, 1)
}

func (m *Metrics) RecordDispatch(ctx context.Context, platform string, ok bool) {
	if m == nil {
		return
	}
	outcome := "published"
	if !ok {
		outcome = "failed"
	}
	m.DispatchAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("platform", platform),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordMediaUploaded(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.MediaUploaded.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) RecordCacheHit(ctx context.Context, key string) {
	if m == nil {
		return
	}
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

func (m *Metrics) RecordCacheMiss(ctx context.Context, key string) {
	if m == nil {
		return
	}
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}
