// Package metrics exposes crawl counters in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so several crawls in one process (or
// tests) never collide on registration.
type Collector struct {
	registry *prometheus.Registry
	pages    *prometheus.CounterVec
	records  prometheus.Counter
	skips    *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hacico_pages_fetched_total",
			Help: "Pages fetched, by result.",
		}, []string{"result"}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hacico_records_written_total",
			Help: "Records written to the sink.",
		}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hacico_products_skipped_total",
			Help: "Products skipped, by reason.",
		}, []string{"reason"}),
	}
	c.registry.MustRegister(c.pages, c.records, c.skips)
	return c
}

func (c *Collector) PageFetched(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	c.pages.WithLabelValues(result).Inc()
}

func (c *Collector) RecordWritten() { c.records.Inc() }

func (c *Collector) ProductSkipped(reason string) { c.skips.WithLabelValues(reason).Inc() }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
