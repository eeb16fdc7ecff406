// Package prom records engine metrics with the Prometheus client and serves
// them over HTTP.
package prom

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

const namespace = "recall"

// Outcome label values.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Recorder implements driven.Metrics on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	searchSeconds   *prometheus.HistogramVec
	searchHits      *prometheus.HistogramVec
	retrieveSeconds *prometheus.HistogramVec
	retrieveResults prometheus.Histogram
	fragments       *prometheus.CounterVec
}

var _ driven.Metrics = (*Recorder)(nil)

// New creates a recorder with Go runtime and process collectors registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		searchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_search_seconds",
			Help:      "Latency of a single index query during retrieval.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"source", "outcome"}),
		searchHits: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_search_hits",
			Help:      "Hits returned by a single index query.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 200},
		}, []string{"source"}),
		retrieveSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieve_seconds",
			Help:      "Latency of a fused retrieval.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"outcome"}),
		retrieveResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieve_results",
			Help:      "Ranked documents returned by a retrieval.",
			Buckets:   []float64{0, 1, 2, 4, 8, 12, 24, 50},
		}),
		fragments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_indexed_total",
			Help:      "Fragment writes per index and outcome.",
		}, []string{"source", "outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.searchSeconds,
		r.searchHits,
		r.retrieveSeconds,
		r.retrieveResults,
		r.fragments,
	)
	return r
}

// ObserveSearch records one backend query.
func (r *Recorder) ObserveSearch(source domain.Source, elapsed time.Duration, hits int, err error) {
	r.searchSeconds.WithLabelValues(source.String(), outcome(err)).Observe(elapsed.Seconds())
	if err == nil {
		r.searchHits.WithLabelValues(source.String()).Observe(float64(hits))
	}
}

// ObserveRetrieve records a complete retrieval.
func (r *Recorder) ObserveRetrieve(elapsed time.Duration, results int, err error) {
	r.retrieveSeconds.WithLabelValues(outcome(err)).Observe(elapsed.Seconds())
	if err == nil {
		r.retrieveResults.Observe(float64(results))
	}
}

// ObserveIndexed records fragment writes for one backend.
func (r *Recorder) ObserveIndexed(source domain.Source, written, failed int) {
	r.fragments.WithLabelValues(source.String(), outcomeOK).Add(float64(written))
	r.fragments.WithLabelValues(source.String(), outcomeError).Add(float64(failed))
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func outcome(err error) string {
	if err != nil {
		return outcomeError
	}
	return outcomeOK
}
