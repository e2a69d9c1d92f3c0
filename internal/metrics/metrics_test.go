package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"

	"jungfraurx/internal/flog"
	"jungfraurx/internal/listener"
)

func TestObserveAccumulatesEndedStats(t *testing.T) {
	m := New()
	m.Observe(listener.Starting{Port: 30000, AcquisitionNumber: 1})
	m.Observe(listener.Ended{
		Port:              30000,
		AcquisitionNumber: 1,
		Stats: listener.Stats{
			ImagesSeen:     2,
			CompleteImages: 1,
			PacketsDropped: 3,
			OutOfOrder:     1,
		},
	})

	metricFamilies, err := m.registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	values := map[string]float64{}
	for _, mf := range metricFamilies {
		for _, metric := range mf.GetMetric() {
			values[mf.GetName()] += counterTotal(metric)
		}
	}

	if values["jungfraurx_listener_acquisitions_started_total"] != 1 {
		t.Fatalf("expected 1 acquisition started, got %v", values["jungfraurx_listener_acquisitions_started_total"])
	}
	if values["jungfraurx_listener_images_seen_total"] != 2 {
		t.Fatalf("expected images_seen=2, got %v", values["jungfraurx_listener_images_seen_total"])
	}
	if values["jungfraurx_listener_packets_dropped_total"] != 3 {
		t.Fatalf("expected packets_dropped=3, got %v", values["jungfraurx_listener_packets_dropped_total"])
	}
}

// The flog drop counter is exposed live, not folded from listener events:
// gathering it must reflect flog's own state at scrape time.
func TestLogEventsDroppedTracksFlog(t *testing.T) {
	m := New()
	before := gatherGauge(t, m, "jungfraurx_flog_events_dropped_total")

	for i := 0; i < 2000; i++ {
		flog.Warnf("metrics test: filler log line %d", i)
	}

	after := gatherGauge(t, m, "jungfraurx_flog_events_dropped_total")
	if after <= before {
		t.Fatalf("expected jungfraurx_flog_events_dropped_total to increase, got %v -> %v", before, after)
	}
}

func gatherGauge(t *testing.T, m *Metrics, name string) float64 {
	t.Helper()
	metricFamilies, err := m.registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, metric := range mf.GetMetric() {
			if metric.Gauge != nil {
				total += metric.Gauge.GetValue()
			}
		}
		return total
	}
	t.Fatalf("metric family %s not found", name)
	return 0
}

func counterTotal(m *dto.Metric) float64 {
	if m.Counter == nil {
		return 0
	}
	return m.Counter.GetValue()
}
