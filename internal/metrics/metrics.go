// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package metrics exposes Prometheus counters for cross-seed activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	scansTotal = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "seedcross_scans_total",
		Help: "Total number of cross-seed scans by outcome",
	}, []string{"outcome"})

	matchesFoundTotal = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "seedcross_matches_found_total",
		Help: "Total number of cross-seed matches found",
	})

	torrentsAddedTotal = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "seedcross_torrents_added_total",
		Help: "Total number of torrents injected into clients",
	})
)

func init() {
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// RecordScan updates the scan counters after one scan finishes.
func RecordScan(matchesFound, added int, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	scansTotal.WithLabelValues(outcome).Inc()
	matchesFoundTotal.Add(float64(matchesFound))
	torrentsAddedTotal.Add(float64(added))
}

// Handler serves the registry in Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
