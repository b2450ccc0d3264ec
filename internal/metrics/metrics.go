// Package metrics holds Prometheus instruments that are used across the
// registry service.  All collectors are registered with the global registry,
// so importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActiveTenantPools = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_tenant_pools",
			Help: "Number of per-tenant connection pools currently open.",
		})

	TenantPoolOpensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_pool_opens_total",
			Help: "Cumulative number of tenant pools opened successfully.",
		})

	TenantPoolErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_pool_errors_total",
			Help: "Cumulative number of tenant pool open failures, by kind.",
		},
		[]string{"kind"})

	EnrichRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "enrich_rows_total",
			Help: "Cumulative number of registry rows run through enrichment.",
		})

	EnrichDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_degraded_total",
			Help: "Cumulative number of enrichment fields downgraded to a sentinel value.",
		},
		[]string{"field"})
)

func init() {
	prometheus.MustRegister(
		ActiveTenantPools,
		TenantPoolOpensTotal,
		TenantPoolErrorsTotal,
		EnrichRowsTotal,
		EnrichDegradedTotal,
	)
}
