package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the monitoring
// engine.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	monitorRuns        *prometheus.CounterVec
	monitorRunsSkipped *prometheus.CounterVec
	monitorDuration    *prometheus.HistogramVec
	alertsCreated      *prometheus.CounterVec
	alertsAutoResolved prometheus.Counter
	notificationsSent  *prometheus.CounterVec
	connections        prometheus.Gauge
	dbQueryDuration    *prometheus.HistogramVec
}

// NewMetricsService registers the engine's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	monitorRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_runs_total",
		Help: "Completed monitoring passes per cadence",
	}, []string{"cadence"})

	monitorRunsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_runs_skipped_total",
		Help: "Monitoring triggers skipped because the previous run was still executing",
	}, []string{"cadence"})

	monitorDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "monitor_run_duration_seconds",
		Help:    "Duration of monitoring passes",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"cadence"})

	alertsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wellness_alerts_created_total",
		Help: "Alerts created, labelled by severity",
	}, []string{"severity"})

	alertsAutoResolved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wellness_alerts_auto_resolved_total",
		Help: "Alerts resolved automatically after their condition cleared",
	})

	notificationsSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_notifications_sent_total",
		Help: "Realtime notifications delivered, labelled by message type",
	}, []string{"type"})

	connections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_connections",
		Help: "Currently registered websocket connections",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, monitorRuns, monitorRunsSkipped,
		monitorDuration, alertsCreated, alertsAutoResolved, notificationsSent,
		connections, dbQueryDuration, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		monitorRuns:        monitorRuns,
		monitorRunsSkipped: monitorRunsSkipped,
		monitorDuration:    monitorDuration,
		alertsCreated:      alertsCreated,
		alertsAutoResolved: alertsAutoResolved,
		notificationsSent:  notificationsSent,
		connections:        connections,
		dbQueryDuration:    dbQueryDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	label := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, label).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, label).Inc()
}

// ObserveMonitorRun records a completed monitoring pass.
func (m *MetricsService) ObserveMonitorRun(cadence string, duration time.Duration) {
	if m == nil {
		return
	}
	m.monitorRuns.WithLabelValues(cadence).Inc()
	m.monitorDuration.WithLabelValues(cadence).Observe(duration.Seconds())
}

// MonitorRunSkipped counts a trigger suppressed by the single-flight guard.
func (m *MetricsService) MonitorRunSkipped(cadence string) {
	if m == nil {
		return
	}
	m.monitorRunsSkipped.WithLabelValues(cadence).Inc()
}

// AlertCreated counts a created alert by severity.
func (m *MetricsService) AlertCreated(severity string) {
	if m == nil {
		return
	}
	m.alertsCreated.WithLabelValues(severity).Inc()
}

// AlertAutoResolved counts a system-resolved alert.
func (m *MetricsService) AlertAutoResolved() {
	if m == nil {
		return
	}
	m.alertsAutoResolved.Inc()
}

// NotificationSent counts one delivered realtime notification.
func (m *MetricsService) NotificationSent(msgType string) {
	if m == nil {
		return
	}
	m.notificationsSent.WithLabelValues(msgType).Inc()
}

// ConnectionsGauge exposes the live-connection gauge for the realtime hub.
func (m *MetricsService) ConnectionsGauge() prometheus.Gauge {
	if m == nil {
		return nil
	}
	return m.connections
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}
