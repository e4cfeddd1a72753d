// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package workflow

import (
	"strings"
	"time"

	"github.com/luxfi/whisper"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	opInitialize = "initialize"
	opSend       = "send"
	opDecrypt    = "decrypt"
	opReload     = "reload"
	opProbe      = "probe"

	outcomeSuccess         = "success"
	outcomeAlreadyVerified = "already_verified"
)

type Metrics struct {
	operationCount        *prometheus.CounterVec
	operationLatency      *prometheus.HistogramVec
	guardRejectionCount   *prometheus.CounterVec
	verificationSubmitted prometheus.Counter
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := Metrics{
		operationCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_operation_count",
				Help: "Number of workflow operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		operationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "workflow_operation_latency_seconds",
				Help:    "Latency of workflow operations in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"operation"},
		),
		guardRejectionCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_guard_rejection_count",
				Help: "Number of operations rejected because the same operation was in flight",
			},
			[]string{"operation"},
		),
		verificationSubmitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "workflow_verification_submitted_count",
				Help: "Number of decryption proofs submitted on-chain",
			},
		),
	}

	registerer.MustRegister(m.operationCount)
	registerer.MustRegister(m.operationLatency)
	registerer.MustRegister(m.guardRejectionCount)
	registerer.MustRegister(m.verificationSubmitted)

	return &m
}

func (m *Metrics) observe(op, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.operationCount.WithLabelValues(op, outcome).Inc()
	m.operationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) rejected(op string) {
	if m == nil {
		return
	}
	m.guardRejectionCount.WithLabelValues(op).Inc()
}

func (m *Metrics) submitted() {
	if m == nil {
		return
	}
	m.verificationSubmitted.Inc()
}

// outcomeOf labels an operation result by error kind.
func outcomeOf(err error) string {
	if err == nil {
		return outcomeSuccess
	}
	return strings.ReplaceAll(whisper.KindOf(err).String(), " ", "_")
}
