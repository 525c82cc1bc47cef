// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics provides Prometheus metrics for the QR session and attendance subsystems.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Redemption outcomes.
const (
	OutcomeMarked  = "marked"
	OutcomeInvalid = "invalid"
	OutcomeExpired = "expired"
	OutcomeFailed  = "failed"
)

// No session, student or teacher ids in labels.
var (
	SessionsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrattend_sessions_generated_total",
		Help: "Total number of QR sessions generated.",
	})

	// SessionRedemptionsTotal counts redemption attempts by outcome.
	SessionRedemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrattend_session_redemptions_total",
		Help: "Total number of QR session redemptions, by outcome.",
	}, []string{"outcome"})

	SessionsSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrattend_sessions_swept_total",
		Help: "Total number of expired sessions removed by the sweeper.",
	})

	RecordsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrattend_attendance_records_written_total",
		Help: "Total number of attendance records appended to the ledger.",
	})

	// EventPublishFailuresTotal counts best-effort event publishes that failed.
	EventPublishFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrattend_event_publish_failures_total",
		Help: "Total number of domain events that could not be published, by event.",
	}, []string{"event"})

	// ReportQueriesTotal counts report queries by kind and result.
	ReportQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrattend_report_queries_total",
		Help: "Total number of attendance report queries, by report and result.",
	}, []string{"report", "result"})
)

func RecordSessionGenerated() {
	SessionsGeneratedTotal.Inc()
}

// RecordRedemption increments the redemption counter for outcome.
func RecordRedemption(outcome string) {
	SessionRedemptionsTotal.WithLabelValues(outcome).Inc()
}

func RecordSwept(n int) {
	if n > 0 {
		SessionsSweptTotal.Add(float64(n))
	}
}

func RecordRecordWritten() {
	RecordsWrittenTotal.Inc()
}

func RecordEventPublishFailure(event string) {
	EventPublishFailuresTotal.WithLabelValues(event).Inc()
}

// RecordReportQuery increments the report counter. result is "ok", "forbidden" or "error".
func RecordReportQuery(report, result string) {
	ReportQueriesTotal.WithLabelValues(report, result).Inc()
}

// CounterValue returns the current value of c (for testing).
func CounterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
