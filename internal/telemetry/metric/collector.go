package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/meshview-go/internal/core/domain"
)

// FeedStats is the part of the snapshot store the collector reads.
type FeedStats interface {
	Subscribers(col domain.Collection) int
	Published(col domain.Collection) uint64
}

// Collector exports changefeed statistics at scrape time.
type Collector struct {
	source FeedStats

	inserted    *prometheus.Desc
	subscribers *prometheus.Desc
}

// NewCollector creates a collector over the given store.
func NewCollector(source FeedStats) *Collector {
	return &Collector{
		source: source,
		inserted: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "snapshots_inserted_total"),
			"Snapshots inserted since start by collection",
			[]string{"collection"}, nil),
		subscribers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "changefeed", "subscribers"),
			"Registered changefeed observers by collection",
			[]string{"collection"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.inserted
	ch <- c.subscribers
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, col := range domain.Collections {
		ch <- prometheus.MustNewConstMetric(c.inserted, prometheus.CounterValue,
			float64(c.source.Published(col)), string(col))
		ch <- prometheus.MustNewConstMetric(c.subscribers, prometheus.GaugeValue,
			float64(c.source.Subscribers(col)), string(col))
	}
}
