package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "carbx"

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
	OutcomeInvalid = "invalid"
)

// Metrics holds the dashboard collectors
type Metrics struct {
	SignIns            *prometheus.CounterVec
	Logouts            *prometheus.CounterVec
	Redemptions        *prometheus.CounterVec
	RedemptionDuration prometheus.Histogram
	RequestCounter     *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SignIns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "sign_ins_total",
				Help:      "Sign-in attempts by outcome",
			},
			[]string{"outcome"},
		),
		Logouts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "logouts_total",
				Help:      "Session invalidations on wallet disconnect by backend logout outcome",
			},
			[]string{"outcome"},
		),
		Redemptions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "redemption",
				Name:      "attempts_total",
				Help:      "Redemption attempts by outcome",
			},
			[]string{"outcome"},
		),
		RedemptionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "redemption",
				Name:      "duration_seconds",
				Help:      "Time from building to settling a redemption",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
			},
		),
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "path"},
		),
	}
}

// NewNop returns collectors registered nowhere
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
