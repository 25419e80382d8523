package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Calculation outcomes used as metric labels.
const (
	outcomeSuccess = "success"
	outcomeMissing = "missing_inputs"
	outcomeInvalid = "invalid_input"
)

var (
	// calculationsTotal counts calculation attempts.
	// Labels: source (api, upload), outcome (success, missing_inputs, invalid_input)
	calculationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lead_impact",
		Subsystem: "calculator",
		Name:      "calculations_total",
		Help:      "Total impact calculations by source and outcome",
	}, []string{"source", "outcome"})

	// missingFieldsTotal counts how often each input was left empty.
	// Labels: field (human-readable label)
	missingFieldsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lead_impact",
		Subsystem: "calculator",
		Name:      "missing_fields_total",
		Help:      "Total missing input fields reported to users",
	}, []string{"field"})

	// requestDuration measures handler latency.
	// Labels: endpoint, status
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lead_impact",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
	}, []string{"endpoint", "status"})
)

func recordMissing(source string, missing []string) {
	calculationsTotal.WithLabelValues(source, outcomeMissing).Inc()
	for _, field := range missing {
		missingFieldsTotal.WithLabelValues(field).Inc()
	}
}
