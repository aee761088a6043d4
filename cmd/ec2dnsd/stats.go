package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tc-dc/ec2dns"
)

// statsCollector adapts ec2dns.Registry.GetAll() into a prometheus.Collector
// on every scrape, rather than pre-declaring a fixed metric set -- the
// registry's counters are created dynamically by the engine and its
// providers, so the set of names isn't known up front.
type statsCollector struct {
	stats *ec2dns.Registry
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	// Dynamic set of metrics; nothing to declare ahead of a scrape.
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	for _, nc := range c.stats.GetAll() {
		desc := prometheus.NewDesc("ec2dns_"+nc.Name, "ec2dns counter "+nc.Name, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(nc.Value))
	}
}

func promHandlerFor(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
