package util

import (
	"github.com/prometheus/client_golang/prometheus"
)

// NewExporterMetric - Convenience function to create, register and set a gauge containing build info.
func NewExporterMetric(registry prometheus.Registerer, namespace string, version string) {
	infoLabels := make(prometheus.Labels)
	infoLabels["version"] = version
	NewGauge(registry, namespace, "exporter", "info", "Metadata about the exporter.", infoLabels).Set(1)
}

// NewGauge - Convenience function to create, register and return a gauge.
func NewGauge(registry prometheus.Registerer, namespace string, subsystem string, name string, help string, constLabels prometheus.Labels) prometheus.Gauge {
	var metric = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: constLabels,
	})
	registry.MustRegister(metric)
	return metric
}

// NewCounterVec - Convenience function to create, register and return a labeled counter.
func NewCounterVec(registry prometheus.Registerer, namespace string, subsystem string, name string, help string, labelNames ...string) *prometheus.CounterVec {
	var metric = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labelNames)
	registry.MustRegister(metric)
	return metric
}

// NewHistogram - Convenience function to create, register and return a histogram with default buckets.
func NewHistogram(registry prometheus.Registerer, namespace string, subsystem string, name string, help string) prometheus.Histogram {
	var metric = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
		Buckets:   prometheus.DefBuckets,
	})
	registry.MustRegister(metric)
	return metric
}
