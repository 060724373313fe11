// Package metrics exposes Prometheus metrics for the toolbox daemon.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fenilsonani/cleaner-toolbox/internal/cleaner"
	"github.com/fenilsonani/cleaner-toolbox/internal/device"
	"github.com/fenilsonani/cleaner-toolbox/internal/scanner"
)

// Metrics holds collectors registered on a private registry
type Metrics struct {
	registry *prometheus.Registry

	scansTotal    *prometheus.CounterVec
	scanDuration  prometheus.Histogram
	junkBytes     *prometheus.GaugeVec
	junkFiles     *prometheus.GaugeVec
	filesDeleted  prometheus.Counter
	bytesFreed    prometheus.Counter
	deleteFailed  prometheus.Counter
	memTotal      prometheus.Gauge
	memAvailable  prometheus.Gauge
	batteryLevel  prometheus.Gauge
	batteryTemp   prometheus.Gauge
	checksTotal   *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// New registers all collectors plus the Go and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		scansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "toolbox_scans_total",
			Help: "Total number of device scans",
		}, []string{"status"}),
		scanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "toolbox_scan_duration_seconds",
			Help:    "Device scan duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		junkBytes: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "toolbox_junk_bytes",
			Help: "Bytes of unnecessary files found by the last scan",
		}, []string{"type"}),
		junkFiles: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "toolbox_junk_files",
			Help: "Unnecessary files found by the last scan",
		}, []string{"type"}),
		filesDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "toolbox_clean_files_deleted_total",
			Help: "Total files deleted",
		}),
		bytesFreed: f.NewCounter(prometheus.CounterOpts{
			Name: "toolbox_clean_bytes_freed_total",
			Help: "Total bytes freed by deletions",
		}),
		deleteFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "toolbox_clean_failures_total",
			Help: "Total failed deletions",
		}),
		memTotal: f.NewGauge(prometheus.GaugeOpts{
			Name: "toolbox_memory_total_bytes",
			Help: "Total RAM",
		}),
		memAvailable: f.NewGauge(prometheus.GaugeOpts{
			Name: "toolbox_memory_available_bytes",
			Help: "Available RAM",
		}),
		batteryLevel: f.NewGauge(prometheus.GaugeOpts{
			Name: "toolbox_battery_capacity_percent",
			Help: "Battery charge level",
		}),
		batteryTemp: f.NewGauge(prometheus.GaugeOpts{
			Name: "toolbox_battery_temperature_celsius",
			Help: "Battery temperature",
		}),
		checksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "toolbox_checks_total",
			Help: "Scheduled checks run",
		}, []string{"check", "status"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "toolbox_notifications_total",
			Help: "Notifications sent",
		}, []string{"status"}),
	}
}

// Handler returns the metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordScan records a finished scan and replaces the per-type junk gauges
func (m *Metrics) RecordScan(result *scanner.ScanResult, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.scansTotal.WithLabelValues(status).Inc()
	m.scanDuration.Observe(duration.Seconds())

	if result == nil {
		return
	}
	groups := result.GroupByType()
	for _, t := range scanner.AllFileTypes() {
		var size int64
		var count int
		if g, ok := groups[t]; ok {
			size, count = g.TotalSize, g.TotalCount
		}
		m.junkBytes.WithLabelValues(t.String()).Set(float64(size))
		m.junkFiles.WithLabelValues(t.String()).Set(float64(count))
	}
}

// RecordClean records a clean run; dry runs are ignored
func (m *Metrics) RecordClean(result *cleaner.CleanResult) {
	if result == nil || result.DryRun {
		return
	}
	m.filesDeleted.Add(float64(len(result.DeletedFiles)))
	m.bytesFreed.Add(float64(result.DeletedSize))
	m.deleteFailed.Add(float64(result.Failed))
}

// RecordMemory sets the memory gauges
func (m *Metrics) RecordMemory(mem device.Memory) {
	m.memTotal.Set(float64(mem.Total))
	m.memAvailable.Set(float64(mem.Available))
}

// RecordBattery sets the battery gauges
func (m *Metrics) RecordBattery(b device.Battery) {
	m.batteryLevel.Set(float64(b.Capacity))
	m.batteryTemp.Set(b.TempC)
}

// RecordCheck counts a scheduled check run
func (m *Metrics) RecordCheck(check string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.checksTotal.WithLabelValues(check, status).Inc()
}

// RecordNotification counts a notification attempt
func (m *Metrics) RecordNotification(err error) {
	status := "sent"
	if err != nil {
		status = "error"
	}
	m.notifications.WithLabelValues(status).Inc()
}
