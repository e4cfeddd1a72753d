// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	reloadCount         *prometheus.CounterVec
	skippedRecordCount  prometheus.Counter
	recordCount         prometheus.Gauge
	verifiedRecordCount prometheus.Gauge
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := Metrics{
		reloadCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_reload_count",
				Help: "Number of message store reloads",
			},
			[]string{"outcome"},
		),
		skippedRecordCount: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "store_skipped_record_count",
				Help: "Number of records skipped during reload because they failed to load",
			},
		),
		recordCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "store_record_count",
				Help: "Number of records in the current snapshot",
			},
		),
		verifiedRecordCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "store_verified_record_count",
				Help: "Number of verified records in the current snapshot",
			},
		),
	}

	registerer.MustRegister(m.reloadCount)
	registerer.MustRegister(m.skippedRecordCount)
	registerer.MustRegister(m.recordCount)
	registerer.MustRegister(m.verifiedRecordCount)

	return &m
}
