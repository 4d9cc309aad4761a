// FilePath: internal/monitoring/monitoring.go
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service provides monitoring functionality
type Service struct {
	registry *prometheus.Registry

	events         *prometheus.CounterVec
	sweepCycles    prometheus.Counter
	sweepDemotions prometheus.Counter
	activeDevices  prometheus.Gauge
}

// NewService creates a new monitoring service with its own registry.
func NewService() *Service {
	s := &Service{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "envhub_events_total",
			Help: "Hub events by name (registrations, activations, rejections, demotions)",
		}, []string{"event"}),
		sweepCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "envhub_sweep_cycles_total",
			Help: "Completed staleness sweep cycles",
		}),
		sweepDemotions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "envhub_sweep_demotions_total",
			Help: "Devices demoted to inactive by the sweep",
		}),
		activeDevices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "envhub_active_devices",
			Help: "Active devices as of the last sweep cycle",
		}),
	}
	s.registry.MustRegister(s.events, s.sweepCycles, s.sweepDemotions, s.activeDevices)
	return s
}

// RecordEvent counts one occurrence of a named hub event.
func (s *Service) RecordEvent(eventName string) {
	s.events.WithLabelValues(eventName).Inc()
}

// ObserveSweep records the outcome of one sweep cycle.
func (s *Service) ObserveSweep(active, demoted int) {
	s.sweepCycles.Inc()
	s.sweepDemotions.Add(float64(demoted))
	s.activeDevices.Set(float64(active - demoted))
}

// Handler serves the metrics registry.
func (s *Service) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
