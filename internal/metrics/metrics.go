package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline counters.
type Metrics struct {
	TicksProcessed   atomic.Uint64
	VehiclesTracked  atomic.Uint64
	AlertsEmitted    atomic.Uint64
	AlertsSuppressed atomic.Uint64
	StoreErrors      atomic.Uint64
	DroppedTicks     atomic.Uint64

	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	gauges := []struct {
		name string
		help string
		load func() float64
	}{
		{"parkwatch_ticks_processed_total", "Total detection ticks processed", func() float64 { return float64(m.TicksProcessed.Load()) }},
		{"parkwatch_vehicles_tracked", "Vehicles currently tracked across feeds", func() float64 { return float64(m.VehiclesTracked.Load()) }},
		{"parkwatch_alerts_emitted_total", "Total violation alerts accepted by the store", func() float64 { return float64(m.AlertsEmitted.Load()) }},
		{"parkwatch_alerts_suppressed_total", "Total violation decisions suppressed by cool-down", func() float64 { return float64(m.AlertsSuppressed.Load()) }},
		{"parkwatch_store_errors_total", "Total failed alert store calls", func() float64 { return float64(m.StoreErrors.Load()) }},
		{"parkwatch_dropped_ticks_total", "Total ticks skipped because a prior tick was unfinished", func() float64 { return float64(m.DroppedTicks.Load()) }},
	}

	for _, g := range gauges {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			g.load,
		))
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
