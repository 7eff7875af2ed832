// Package metrics exports indicator state as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/wellsgz/nettraffic/internal/types"
)

const namespace = "nettraffic"

// Exporter is a monitor sink that mirrors every tick into gauges.
type Exporter struct {
	registry  *prometheus.Registry
	rate      *prometheus.GaugeVec
	visible   prometheus.Gauge
	connected prometheus.Gauge
	ticks     prometheus.Counter
	mode      *prometheus.GaugeVec
}

// New creates an exporter with its own registry, including Go and process
// collectors.
func New() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		rate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_bytes_per_second",
			Help:      "Byte rate computed on the last tick.",
		}, []string{"direction"}),
		visible: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indicator_visible",
			Help:      "1 when the indicator is shown.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "1 when a network connection is available.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Number of evaluated ticks.",
		}),
		mode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "display_mode",
			Help:      "1 for the active display mode.",
		}, []string{"mode"}),
	}
	e.registry.MustRegister(
		e.rate, e.visible, e.connected, e.ticks, e.mode,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return e
}

// Registry returns the registry backing the exporter.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Publish implements monitor.Sink.
func (e *Exporter) Publish(ind types.Indicator) {
	e.rate.WithLabelValues("rx").Set(ind.Rates.RxRate)
	e.rate.WithLabelValues("tx").Set(ind.Rates.TxRate)
	e.visible.Set(boolFloat(ind.Visible))
	e.connected.Set(boolFloat(ind.Connected))
	for _, m := range types.AllModes {
		e.mode.WithLabelValues(m.String()).Set(boolFloat(m == ind.Mode))
	}
	e.ticks.Inc()
}

// Handler returns the /metrics handler.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (e *Exporter) Serve(ctx context.Context, addr string, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("metrics endpoint listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
