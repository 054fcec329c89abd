// Package metrics collects and exposes Prometheus metrics for sun.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sunteam/sun/internal/events"
)

// Collector holds all sun-specific Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry
	start    time.Time

	// Per-module metrics.
	WorkerState       *prometheus.GaugeVec
	WorkerStartTotal  *prometheus.CounterVec
	WorkerStopTotal   *prometheus.CounterVec
	UeventTotal       *prometheus.CounterVec
	NotificationTotal *prometheus.CounterVec

	// Daemon-level metrics.
	Uptime                 prometheus.Gauge
	ConfigReloadTotal      prometheus.Counter
	ConfigReloadErrorTotal prometheus.Counter
	ModuleFaultTotal       prometheus.Counter
	BuildInfo              *prometheus.GaugeVec
}

// New creates and registers all sun metrics.
func New() *Collector {
	reg := prometheus.NewRegistry()

	// Register default Go runtime metrics.
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Collector{
		registry: reg,
		start:    time.Now(),

		WorkerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sun_worker_state",
				Help: "Whether a module's worker is currently running (1) or not (0).",
			},
			[]string{"module"},
		),

		WorkerStartTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sun_worker_start_total",
				Help: "Total number of times a module worker has been started.",
			},
			[]string{"module"},
		),

		WorkerStopTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sun_worker_stop_total",
				Help: "Total number of times a module worker has been stopped.",
			},
			[]string{"module"},
		),

		UeventTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sun_uevent_total",
				Help: "Total number of kernel uevents accepted by a module.",
			},
			[]string{"module"},
		),

		NotificationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sun_notification_total",
				Help: "Total number of desktop notifications shown.",
			},
			[]string{"module"},
		),

		Uptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sun_uptime_seconds",
				Help: "Uptime of the sun daemon in seconds.",
			},
		),

		ConfigReloadTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sun_config_reload_total",
				Help: "Total number of config reloads.",
			},
		),

		ConfigReloadErrorTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sun_config_reload_errors_total",
				Help: "Total number of failed config reloads.",
			},
		),

		ModuleFaultTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sun_module_fault_total",
				Help: "Total number of fatal module faults.",
			},
		),

		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sun_info",
				Help: "Build information about sun.",
			},
			[]string{"version", "go_version"},
		),
	}

	reg.MustRegister(
		c.WorkerState,
		c.WorkerStartTotal,
		c.WorkerStopTotal,
		c.UeventTotal,
		c.NotificationTotal,
		c.Uptime,
		c.ConfigReloadTotal,
		c.ConfigReloadErrorTotal,
		c.ModuleFaultTotal,
		c.BuildInfo,
	)

	return c
}

// Handler returns an http.Handler that serves the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// SetBuildInfo sets the constant build info gauge.
func (c *Collector) SetBuildInfo(version, goVersion string) {
	c.BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// Observe subscribes the collector to daemon lifecycle events.
func (c *Collector) Observe(bus *events.Bus) {
	bus.Subscribe(events.WorkerStarted, func(e events.Event) {
		c.WorkerState.WithLabelValues(e.Data["module"]).Set(1)
		c.WorkerStartTotal.WithLabelValues(e.Data["module"]).Inc()
	})
	bus.Subscribe(events.WorkerStopped, func(e events.Event) {
		c.WorkerState.WithLabelValues(e.Data["module"]).Set(0)
		c.WorkerStopTotal.WithLabelValues(e.Data["module"]).Inc()
	})
	bus.Subscribe(events.UeventReceived, func(e events.Event) {
		c.UeventTotal.WithLabelValues(e.Data["module"]).Inc()
	})
	bus.Subscribe(events.NotificationShown, func(e events.Event) {
		c.NotificationTotal.WithLabelValues(e.Data["module"]).Inc()
	})
	bus.Subscribe(events.ConfigReloaded, func(events.Event) {
		c.ConfigReloadTotal.Inc()
	})
	bus.Subscribe(events.ConfigReloadFailed, func(events.Event) {
		c.ConfigReloadErrorTotal.Inc()
	})
	bus.Subscribe(events.ModuleFault, func(events.Event) {
		c.ModuleFaultTotal.Inc()
	})
	bus.Subscribe(events.Tick, func(events.Event) {
		c.Uptime.Set(time.Since(c.start).Seconds())
	})
}
