// Package prometheus exposes the engine's counters as a
// prometheus.Collector for registration in the host's registry.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/authcore-io/authcore/internal/metrics"
)

// Source is what the collector reads. *authcore.Engine satisfies it.
type Source interface {
	MetricsSnapshot() metrics.Snapshot
	AuditDropped() uint64
}

// Collector reads a fresh snapshot on every scrape.
type Collector struct {
	source       Source
	descs        map[metrics.ID]*prometheus.Desc
	auditDropped *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

func NewCollector(source Source) *Collector {
	descs := make(map[metrics.ID]*prometheus.Desc, len(metrics.Defs))
	for _, def := range metrics.Defs {
		descs[def.ID] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	return &Collector{
		source: source,
		descs:  descs,
		auditDropped: prometheus.NewDesc(
			"authcore_audit_dropped_total",
			"Audit events shed by dispatcher backpressure.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, def := range metrics.Defs {
		ch <- c.descs[def.ID]
	}
	ch <- c.auditDropped
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c == nil || c.source == nil {
		return
	}

	snapshot := c.source.MetricsSnapshot()
	for _, def := range metrics.Defs {
		ch <- prometheus.MustNewConstMetric(
			c.descs[def.ID], prometheus.CounterValue, float64(snapshot.Counters[def.ID]))
	}
	ch <- prometheus.MustNewConstMetric(
		c.auditDropped, prometheus.CounterValue, float64(c.source.AuditDropped()))
}
