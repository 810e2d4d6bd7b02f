package telemetry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pepe-http/pepe/internal/cache"
	"github.com/pepe-http/pepe/internal/runner"
)

const namespace = "pepe"

// Exporter mirrors run events into Prometheus collectors. It satisfies
// metrics.Observer; the collectors are safe for concurrent scrapes.
type Exporter struct {
	registry  *prometheus.Registry
	runs      prometheus.Counter
	sent      prometheus.Counter
	inFlight  prometheus.Gauge
	completed *prometheus.CounterVec
	status    *prometheus.CounterVec
	cache     *prometheus.CounterVec
	bytes     prometheus.Counter
	duration  prometheus.Histogram
	dnsLookup prometheus.Histogram

	stopped atomic.Bool // in-flight gauge is pinned to zero until the next run
}

func NewExporter() *Exporter {
	r := prometheus.NewRegistry()
	e := &Exporter{
		registry: r,
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Runs launched, including restarts",
		}),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_sent_total",
			Help:      "Requests that began transmission",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Requests sent in the current run and not yet completed",
		}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_completed_total",
			Help:      "Completed requests by outcome",
		}, []string{"outcome"}),
		status: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Responses by status code",
		}, []string{"code"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_responses_total",
			Help:      "Responses carrying a cache status header, by category",
		}, []string{"category"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_bytes_total",
			Help:      "Response body bytes received",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Wall-clock request duration including DNS timing",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
		dnsLookup: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dns_lookup_seconds",
			Help:      "DNS lookup time per request",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
	}
	r.MustRegister(e.runs, e.sent, e.inFlight, e.completed, e.status, e.cache, e.bytes, e.duration, e.dnsLookup)
	return e
}

func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// RunStarted counts a new run and resets the in-flight gauge.
func (e *Exporter) RunStarted() {
	e.runs.Inc()
	e.stopped.Store(false)
	e.inFlight.Set(0)
}

// RunStopped zeroes the in-flight gauge when a run is interrupted. Requests
// cancelled with it never complete, so nothing would decrement it.
func (e *Exporter) RunStopped() {
	e.stopped.Store(true)
	e.inFlight.Set(0)
}

func (e *Exporter) ObserveSent(count int) {
	e.sent.Add(float64(count))
	if !e.stopped.Load() {
		e.inFlight.Add(float64(count))
	}
}

func (e *Exporter) ObserveCompletion(rec runner.CompletionRecord) {
	if !e.stopped.Load() {
		e.inFlight.Dec()
	}
	e.duration.Observe(rec.Duration.Seconds())
	if rec.DNS != nil && !rec.DNS.IsZero() {
		e.dnsLookup.Observe(rec.DNS.Lookup.Seconds())
	}
	if rec.CacheStatus != nil {
		e.cache.WithLabelValues(cache.CategoryOf(*rec.CacheStatus).String()).Inc()
	}

	switch {
	case !rec.HasStatus():
		e.completed.WithLabelValues("timeout").Inc()
		return
	case rec.Success():
		e.completed.WithLabelValues("success").Inc()
	default:
		e.completed.WithLabelValues("failed").Inc()
	}
	e.status.WithLabelValues(strconv.Itoa(rec.StatusCode)).Inc()
	if rec.ContentLength > 0 {
		e.bytes.Add(float64(rec.ContentLength))
	}
}

// Handler serves the registry in the Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled. It returns once the
// listener is bound; errors after that are logged.
func (e *Exporter) Serve(ctx context.Context, addr string, logger zerolog.Logger) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info().Str("addr", ln.Addr().String()).Msg("metrics server listening")
	return ln.Addr(), nil
}
