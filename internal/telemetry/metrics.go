// Package telemetry exposes the supervisor's Shared State as Prometheus
// metrics on a dedicated HTTP port, independent of the operator-facing
// Control API.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cpuUsagePercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ids2_cpu_usage_percent",
		Help: "Most recent CPU usage sample, percent.",
	})
	ramUsagePercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ids2_ram_usage_percent",
		Help: "Most recent RAM usage sample, percent.",
	})
	throttleLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ids2_throttle_level",
		Help: "Current throttle level (0=none, 1=light, 2=medium, 3=heavy).",
	})
	gcForcedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ids2_gc_forced_total",
		Help: "Total number of forced memory reclaims triggered by sustained RAM pressure.",
	})

	dnsStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ids2_dns_status",
		Help: "Most recent DNS resolution probe result (1=ok, 0=failed).",
	})
	tlsStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ids2_tls_status",
		Help: "Most recent TLS handshake probe result (1=ok, 0=failed).",
	})
	openSearchStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ids2_opensearch_status",
		Help: "Most recent OpenSearch bulk probe result (1=ok, 0=failed).",
	})
	awsReady = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ids2_aws_ready",
		Help: "Conjunction of dns/tls/opensearch probe results (1=ready, 0=not ready).",
	})

	vectorStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ids2_vector_status",
		Help: "Log shipper collaborator running state (1=running, 0=stopped).",
	})
	suricataStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ids2_suricata_status",
		Help: "Packet inspector collaborator running state (1=running, 0=stopped).",
	})
	redisStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ids2_redis_status",
		Help: "Side-buffer collaborator running state (1=running, 0=stopped).",
	})
	pipelineOK = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ids2_pipeline_ok",
		Help: "Whether the last pipeline verification succeeded (1=ok, 0=failed).",
	})

	eventsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ids2_events_processed_total",
		Help: "Total number of events the pipeline has successfully ingested.",
	})
	eventsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ids2_events_failed_total",
		Help: "Total number of events the pipeline failed to ingest.",
	})

	ingestionLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ids2_ingestion_latency_seconds",
		Help:    "Observed end-to-end ingestion latency for a bulk probe cycle.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	buildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ids2_build",
		Help: "Build metadata; value is always 1, labels carry the version/platform/arch.",
	}, []string{"version", "platform", "arch"})
)

// ObserveIngestionLatency records one ingestion latency sample.
func ObserveIngestionLatency(seconds float64) {
	ingestionLatencySeconds.Observe(seconds)
}

// IngestionLatencyHistogram exposes the ingestion latency histogram for
// tests in other packages that want to assert ObserveIngestionLatency was
// actually called.
func IngestionLatencyHistogram() prometheus.Histogram {
	return ingestionLatencySeconds
}

// RecordReclaim increments the forced-GC counter; called by the Resource
// Governor every time it forces a memory reclaim.
func RecordReclaim() {
	gcForcedTotal.Inc()
}

// GCForcedCounter exposes the forced-GC counter for tests in other
// packages that want to assert RecordReclaim was actually called.
func GCForcedCounter() prometheus.Counter {
	return gcForcedTotal
}

// RecordBuildInfo sets the build info gauge exactly once at startup.
func RecordBuildInfo(version, platform, arch string) {
	buildInfo.WithLabelValues(version, platform, arch).Set(1)
}
