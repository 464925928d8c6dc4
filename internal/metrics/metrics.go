package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the PropertyFlow server.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authentication metrics.
	AuthSuccessesTotal *prometheus.CounterVec
	AuthFailuresTotal  *prometheus.CounterVec

	// Authorization and tenancy metrics.
	AccessDenialsTotal     *prometheus.CounterVec
	TenantResolutionsTotal *prometheus.CounterVec

	// Audit collector metrics.
	AuditFlushesTotal *prometheus.CounterVec

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propertyflow_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "propertyflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		AuthSuccessesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propertyflow_auth_successes_total",
			Help: "Total number of successful authentications.",
		}, []string{"provider"}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propertyflow_auth_failures_total",
			Help: "Total number of authentication failures.",
		}, []string{"provider"}),

		AccessDenialsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propertyflow_access_denials_total",
			Help: "Total number of authorization denials.",
		}, []string{"reason"}),

		TenantResolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propertyflow_tenant_resolutions_total",
			Help: "Total number of active-company resolutions by source.",
		}, []string{"source"}),

		AuditFlushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propertyflow_audit_flushes_total",
			Help: "Total number of audit collector flushes.",
		}, []string{"status"}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "propertyflow_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthSuccessesTotal,
		m.AuthFailuresTotal,
		m.AccessDenialsTotal,
		m.TenantResolutionsTotal,
		m.AuditFlushesTotal,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// ObserveHTTPRequest records one completed HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, pathPattern string, statusCode int, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(seconds)
}

// IncAuthSuccess increments the auth success counter for the given provider.
func (m *Metrics) IncAuthSuccess(provider string) {
	m.AuthSuccessesTotal.WithLabelValues(provider).Inc()
}

// IncAuthFailure increments the auth failure counter for the given provider.
func (m *Metrics) IncAuthFailure(provider string) {
	m.AuthFailuresTotal.WithLabelValues(provider).Inc()
}

// IncAccessDenial increments the authorization denial counter.
func (m *Metrics) IncAccessDenial(reason string) {
	m.AccessDenialsTotal.WithLabelValues(reason).Inc()
}

// IncAuditFlush increments the audit flush counter for the given outcome.
func (m *Metrics) IncAuditFlush(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.AuditFlushesTotal.WithLabelValues(status).Inc()
}

// IncTenantResolution increments the resolution counter for the given source.
func (m *Metrics) IncTenantResolution(source string) {
	m.TenantResolutionsTotal.WithLabelValues(source).Inc()
}
