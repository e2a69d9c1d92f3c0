// Package metrics exposes per-listener acquisition counters over
// Prometheus. It is purely diagnostic: nothing in the reassembly path
// depends on it, and a bind failure is logged, never fatal.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jungfraurx/internal/flog"
	"jungfraurx/internal/listener"
)

// Metrics holds the counters updated as listener lifecycle events arrive.
// Labeled by port only — acquisitions are unbounded over a run, and a
// per-acquisition label would be an unbounded cardinality leak.
type Metrics struct {
	registry *prometheus.Registry

	acquisitionsStarted *prometheus.CounterVec
	imagesSeen          *prometheus.CounterVec
	completeImages      *prometheus.CounterVec
	packetsDropped      *prometheus.CounterVec
	outOfOrder          *prometheus.CounterVec
	logEventsDropped    prometheus.GaugeFunc
}

// New constructs and registers the metric set on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		acquisitionsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jungfraurx",
			Subsystem: "listener",
			Name:      "acquisitions_started_total",
			Help:      "Number of acquisitions started, by listener port.",
		}, []string{"port"}),
		imagesSeen: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jungfraurx",
			Subsystem: "listener",
			Name:      "images_seen_total",
			Help:      "Number of distinct frame_numbers observed, by listener port.",
		}, []string{"port"}),
		completeImages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jungfraurx",
			Subsystem: "listener",
			Name:      "complete_images_total",
			Help:      "Number of frames that reached 64 packets, by listener port.",
		}, []string{"port"}),
		packetsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jungfraurx",
			Subsystem: "listener",
			Name:      "packets_dropped_total",
			Help:      "Kernel-reported and inferred packet drops, by listener port.",
		}, []string{"port"}),
		outOfOrder: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jungfraurx",
			Subsystem: "listener",
			Name:      "out_of_order_total",
			Help:      "Packets belonging to an already-closed frame, by listener port.",
		}, []string{"port"}),
		logEventsDropped: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "jungfraurx",
			Subsystem: "flog",
			Name:      "events_dropped_total",
			Help:      "Log lines dropped by flog because its output channel was full.",
		}, func() float64 { return float64(flog.Dropped()) }),
	}
}

// Observe folds one lifecycle event into the metric set. Starting
// increments the per-port acquisition counter; Ended adds its final
// Stats snapshot onto the cumulative per-port counters (Stats resets to
// zero between acquisitions, so summing every Ended event yields the
// all-time total). ImageReceived carries no information not already
// present in the eventual Ended snapshot, so it's not separately
// counted here.
func (m *Metrics) Observe(e listener.Event) {
	switch ev := e.(type) {
	case listener.Starting:
		m.acquisitionsStarted.WithLabelValues(portLabel(ev.Port)).Inc()
	case listener.Ended:
		label := portLabel(ev.Port)
		m.imagesSeen.WithLabelValues(label).Add(float64(ev.Stats.ImagesSeen))
		m.completeImages.WithLabelValues(label).Add(float64(ev.Stats.CompleteImages))
		m.packetsDropped.WithLabelValues(label).Add(float64(ev.Stats.PacketsDropped))
		m.outOfOrder.WithLabelValues(label).Add(float64(ev.Stats.OutOfOrder))
	}
}

// Serve starts an HTTP server exposing /metrics on addr in the
// background. A bind failure is logged and otherwise ignored — metrics
// are diagnostic, not load-bearing.
func (m *Metrics) Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			flog.Warnf("metrics: serve %s: %v", addr, err)
		}
	}()
}

func portLabel(port int) string {
	return fmt.Sprintf("%d", port)
}
