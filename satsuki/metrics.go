/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsScrapeTimeout = 10 * time.Second

var (
	subdomainsDesc = prometheus.NewDesc(
		"satsuki_subdomains_total",
		"Number of delegated subdomains in the parent zone.",
		nil, nil,
	)
	usersDesc = prometheus.NewDesc(
		"satsuki_users_total",
		"Number of registered users in the local store.",
		nil, nil,
	)
)

// SubdomainCollector computes its gauges at scrape time, so the metrics
// always reflect what the parent zone actually delegates. Each scrape
// costs one upstream zone fetch and one local count.
type SubdomainCollector struct {
	provisioner *Provisioner
}

func NewSubdomainCollector(p *Provisioner) *SubdomainCollector {
	return &SubdomainCollector{provisioner: p}
}

func (c *SubdomainCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- subdomainsDesc
	ch <- usersDesc
}

// Collect omits a sample when its source is unreachable rather than
// reporting a stale or zero value.
func (c *SubdomainCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), metricsScrapeTimeout)
	defer cancel()

	count, err := c.provisioner.CountDelegations(ctx)
	if err != nil {
		log.Printf("SubdomainCollector: delegation count failed: %v", err)
	} else {
		ch <- prometheus.MustNewConstMetric(subdomainsDesc, prometheus.GaugeValue, float64(count))
	}

	users, err := c.provisioner.store.CountUsers()
	if err != nil {
		log.Printf("SubdomainCollector: user count failed: %v", err)
	} else {
		ch <- prometheus.MustNewConstMetric(usersDesc, prometheus.GaugeValue, float64(users))
	}
}

// SetupMetrics registers the collector with the default registry served
// by promhttp.Handler().
func SetupMetrics(conf *Config) error {
	return prometheus.Register(NewSubdomainCollector(conf.Internal.Provisioner))
}
