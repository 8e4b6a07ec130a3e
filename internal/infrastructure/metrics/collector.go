// Package metrics exposes session counters in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"vision-crawler/internal/application/port/output"
	"vision-crawler/internal/domain/entity"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "vision_crawler"

var _ output.MetricsPort = (*Collector)(nil)

type Collector struct {
	navigations   *prometheus.CounterVec
	clicks        *prometheus.CounterVec
	exchanges     *prometheus.CounterVec
	parseFailures prometheus.Counter

	annotationPasses  prometheus.Counter
	annotatedElements prometheus.Histogram
	candidates        prometheus.Histogram
	promptTokens      prometheus.Histogram

	registry *prometheus.Registry
	logger   output.LoggerPort
}

func NewCollector(logger output.LoggerPort) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		navigations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "navigations_total",
			Help:      "Navigations attempted, by outcome.",
		}, []string{"result"}),
		clicks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "clicks_total",
			Help:      "Clicks dispatched, by outcome. Failures include unresolved labels.",
		}, []string{"result"}),
		exchanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "model_exchanges_total",
			Help:      "Model requests, by outcome.",
		}, []string{"result"}),
		parseFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "directive_parse_failures_total",
			Help:      "Model replies with a malformed or ambiguous action directive.",
		}),
		annotationPasses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "annotation_passes_total",
			Help:      "Completed annotation passes.",
		}),
		annotatedElements: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "annotated_elements",
			Help:      "Elements labelled per annotation pass.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		candidates: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "annotation_candidates",
			Help:      "Interactive candidates scanned per annotation pass.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		promptTokens: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "prompt_tokens_estimate",
			Help:      "Estimated prompt size per model request.",
			Buckets:   prometheus.ExponentialBuckets(256, 2, 10),
		}),
		registry: reg,
		logger:   logger.WithField("component", "metrics"),
	}
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

func (c *Collector) ObserveNavigation(ok bool) {
	c.navigations.WithLabelValues(result(ok)).Inc()
}

func (c *Collector) ObserveClick(ok bool) {
	c.clicks.WithLabelValues(result(ok)).Inc()
}

func (c *Collector) ObserveAnnotation(pass *entity.AnnotationPass) {
	if pass == nil {
		return
	}
	c.annotationPasses.Inc()
	c.annotatedElements.Observe(float64(len(pass.Elements)))
	c.candidates.Observe(float64(pass.Candidates))
}

func (c *Collector) ObserveExchange(ok bool, tokens int) {
	c.exchanges.WithLabelValues(result(ok)).Inc()
	if tokens > 0 {
		c.promptTokens.Observe(float64(tokens))
	}
}

func (c *Collector) ObserveParseFailure() {
	c.parseFailures.Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("Metrics listener started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics listener: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics shutdown: %w", err)
		}
		c.logger.Info("Metrics listener stopped")
		return nil
	}
}
