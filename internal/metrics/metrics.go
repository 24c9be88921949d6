package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Check-in outcome labels.
const (
	OutcomeSuccess        = "success"
	OutcomeAlreadyScanned = "already_scanned"
	OutcomeNotFound       = "not_found"
	OutcomeEmailMismatch  = "email_mismatch"
	OutcomeMalformed      = "malformed"
	OutcomeError          = "error"
)

// Metrics holds the Prometheus collectors for registration and check-in.
type Metrics struct {
	RegistrationsCreated prometheus.Counter
	DuplicateEmails      prometheus.Counter
	CheckIns             *prometheus.CounterVec
	DroppedFrames        *prometheus.CounterVec
	StoreLatency         *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RegistrationsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "checkin_registrations_created_total",
			Help: "Total number of registrations created",
		}),
		DuplicateEmails: f.NewCounter(prometheus.CounterOpts{
			Name: "checkin_registrations_duplicate_email_total",
			Help: "Registrations rejected because the email was already used",
		}),
		CheckIns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_scans_total",
			Help: "Validated scans by outcome",
		}, []string{"outcome"}),
		DroppedFrames: f.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_dropped_frames_total",
			Help: "Decoded frames ignored by a station",
		}, []string{"reason"}),
		StoreLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "checkin_store_latency_seconds",
			Help:    "Latency of backing store operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// ObserveStore records the time since start for op.
func (m *Metrics) ObserveStore(op string, start time.Time) {
	m.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
