// Package metrics declares the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts scan requests by transition kind and result.
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrattend_scans_total",
		Help: "Scan requests processed, by transition kind and result.",
	}, []string{"kind", "result"})

	// NotificationsTotal counts delivery attempts by outcome.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrattend_notifications_total",
		Help: "Confirmation email attempts, by outcome.",
	}, []string{"outcome"})
)
