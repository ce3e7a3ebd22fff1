// Package metrics provides Prometheus metrics for catch-news.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yuukiLike/cc-catch-news/internal/domain"
)

const namespace = "catchnews"

// Recorder owns a private registry so tests and the binary never share global state.
type Recorder struct {
	registry *prometheus.Registry

	RunsTotal         *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	ArticlesFetched   *prometheus.CounterVec
	SourceFailures    *prometheus.CounterVec
	OutputFailures    *prometheus.CounterVec
	RetriesTotal      *prometheus.CounterVec
	RetryExhausted    *prometheus.CounterVec
	SkippedTriggers   prometheus.Counter
	DigestItems       prometheus.Gauge
	LastSuccessfulRun prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Pipeline runs by terminal status",
			},
			[]string{"status"},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of pipeline runs in seconds",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		ArticlesFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "articles_fetched_total",
				Help:      "Articles returned by each source",
			},
			[]string{"source"},
		),
		SourceFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_failures_total",
				Help:      "Source fetches that failed",
			},
			[]string{"source"},
		),
		OutputFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "output_failures_total",
				Help:      "Digest deliveries that failed",
			},
			[]string{"output"},
		),
		RetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Retried attempts by operation label",
			},
			[]string{"label"},
		),
		RetryExhausted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_exhausted_total",
				Help:      "Operations that failed on their last allowed attempt",
			},
			[]string{"label"},
		),
		SkippedTriggers: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "skipped_triggers_total",
				Help:      "Scheduled triggers skipped because a run was still in progress",
			},
		),
		DigestItems: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "digest_items",
				Help:      "Items in the most recent digest",
			},
		),
		LastSuccessfulRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_successful_run_timestamp_seconds",
				Help:      "Unix time of the last run that ended in success",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRun records a finished run.
func (r *Recorder) ObserveRun(report domain.RunReport, duration time.Duration) {
	r.RunsTotal.WithLabelValues(string(report.Status)).Inc()
	r.RunDuration.Observe(duration.Seconds())
	if report.Status == domain.RunSuccess {
		r.DigestItems.Set(float64(report.DigestCount))
		r.LastSuccessfulRun.SetToCurrentTime()
	}
}

// SourceFetched records how many articles a source returned.
func (r *Recorder) SourceFetched(source string, count int) {
	r.ArticlesFetched.WithLabelValues(source).Add(float64(count))
}

// SourceFailed records a failed fetch.
func (r *Recorder) SourceFailed(source string) {
	r.SourceFailures.WithLabelValues(source).Inc()
}

// OutputFailed records a failed delivery.
func (r *Recorder) OutputFailed(output string) {
	r.OutputFailures.WithLabelValues(output).Inc()
}

// TriggerSkipped records a scheduler trigger dropped by the overlap guard.
func (r *Recorder) TriggerSkipped() {
	r.SkippedTriggers.Inc()
}

// ObserveRetry implements retry.Observer.
func (r *Recorder) ObserveRetry(label string, _ int, _ time.Duration) {
	r.RetriesTotal.WithLabelValues(label).Inc()
}

// ObserveExhausted implements retry.Observer.
func (r *Recorder) ObserveExhausted(label string, _ int) {
	r.RetryExhausted.WithLabelValues(label).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}
	return nil
}
