// Package metrics holds the Prometheus collectors exported by the service
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ForexMetrics contains every collector the service records into.
// A nil *ForexMetrics is valid and records nothing.
type ForexMetrics struct {
	// Conversions by final status (success, validation_error, provider_error, persistence_error, error)
	ConversionsTotal *prometheus.CounterVec

	// Rate cache lookups by result (hit, miss)
	RateCacheLookupsTotal *prometheus.CounterVec

	// Provider calls by outcome and their latency
	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec

	// Bulk rows by outcome (converted, skipped, failed)
	BulkRowsTotal *prometheus.CounterVec

	// HTTP requests by route template, method and status
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewForexMetrics creates the collectors and registers them with reg
func NewForexMetrics(reg prometheus.Registerer) *ForexMetrics {
	factory := promauto.With(reg)

	return &ForexMetrics{
		ConversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forex_conversions_total",
				Help: "Total number of conversion attempts by status",
			},
			[]string{"status"},
		),

		RateCacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forex_rate_cache_lookups_total",
				Help: "Total number of exchange-rate cache lookups by result",
			},
			[]string{"result"},
		),

		ProviderRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forex_provider_requests_total",
				Help: "Total number of exchange-rate provider calls by outcome",
			},
			[]string{"outcome"},
		),

		ProviderRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forex_provider_request_duration_seconds",
				Help:    "Exchange-rate provider call latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 11), // 10ms .. ~10s
			},
			[]string{"outcome"},
		),

		BulkRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forex_bulk_rows_total",
				Help: "Total number of bulk CSV rows by outcome",
			},
			[]string{"outcome"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forex_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forex_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
}

// RecordConversion records the final status of one conversion
func (m *ForexMetrics) RecordConversion(status string) {
	if m == nil {
		return
	}
	m.ConversionsTotal.WithLabelValues(status).Inc()
}

// RecordCacheLookup records a rate cache hit or miss
func (m *ForexMetrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.RateCacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordProviderRequest records one provider call
func (m *ForexMetrics) RecordProviderRequest(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ProviderRequestsTotal.WithLabelValues(outcome).Inc()
	m.ProviderRequestDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

// RecordBulkRow records the outcome of one bulk CSV row
func (m *ForexMetrics) RecordBulkRow(outcome string) {
	if m == nil {
		return
	}
	m.BulkRowsTotal.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records one served HTTP request
func (m *ForexMetrics) RecordHTTPRequest(route, method string, status int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, statusClass(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(durationSeconds)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
