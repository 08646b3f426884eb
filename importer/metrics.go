package importer

import (
	"github.com/prometheus/client_golang/prometheus"

	"dev.hon.one/l2scheme/common"
	"dev.hon.one/l2scheme/util"
)

// Metrics - Import counters.
type Metrics struct {
	Imports       *prometheus.CounterVec
	Entries       *prometheus.CounterVec
	Analyses      *prometheus.CounterVec
	ImportSeconds prometheus.Histogram
}

// NewMetrics - Create and register import counters.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	namespace := common.PrometheusNamespace
	return &Metrics{
		Imports:       util.NewCounterVec(registry, namespace, "import", "total", "Imports by kind and outcome.", "kind", "result"),
		Entries:       util.NewCounterVec(registry, namespace, "import", "mac_entries_total", "Parsed MAC table entries by outcome.", "result"),
		Analyses:      util.NewCounterVec(registry, namespace, "topology", "vlan_analyses_total", "VLAN topology analyses by outcome.", "result"),
		ImportSeconds: util.NewHistogram(registry, namespace, "import", "duration_seconds", "Duration of imports."),
	}
}

func (metrics *Metrics) observeImport(kind string, success bool, seconds float64) {
	if metrics == nil {
		return
	}
	metrics.Imports.WithLabelValues(kind, outcome(success)).Inc()
	metrics.ImportSeconds.Observe(seconds)
}

func (metrics *Metrics) observeEntries(imported int, failed int) {
	if metrics == nil {
		return
	}
	metrics.Entries.WithLabelValues("imported").Add(float64(imported))
	metrics.Entries.WithLabelValues("failed").Add(float64(failed))
}

func (metrics *Metrics) observeAnalysis(success bool) {
	if metrics == nil {
		return
	}
	metrics.Analyses.WithLabelValues(outcome(success)).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
