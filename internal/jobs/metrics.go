// Package jobmetrics instruments background ledger jobs.
package jobmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes used as the status label.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// Metrics holds the job collectors. A nil *Metrics records nothing.
type Metrics struct {
	runs       *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	mismatches prometheus.Counter
	purged     prometheus.Counter
}

// NewMetrics registers the job collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_jobs_total",
			Help: "Background job runs by outcome.",
		}, []string{"job", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_jobs_failures_total",
			Help: "Background job runs that returned an error.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_job_duration_seconds",
			Help:    "Wall time of completed job runs.",
			Buckets: []float64{0.05, 0.25, 1, 5, 15, 60, 300, 900},
		}, []string{"job"}),
		mismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_integrity_mismatches_total",
			Help: "Ledgers whose stored balance differs from a full replay.",
		}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_idempotency_keys_purged_total",
			Help: "Idempotency keys removed after their retention window.",
		}),
	}
	reg.MustRegister(m.runs, m.failures, m.duration, m.mismatches, m.purged)
	return m
}

// Tracker times one job run.
type Tracker struct {
	m     *Metrics
	job   string
	start time.Time
}

// Track starts timing a run of job.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{m: m, job: job, start: time.Now()}
}

// End records the run as a success or failure and returns err unchanged.
func (t *Tracker) End(err error) error {
	if t == nil || t.m == nil {
		return err
	}
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
		t.m.failures.WithLabelValues(t.job).Inc()
	}
	t.m.runs.WithLabelValues(t.job, status).Inc()
	t.m.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// Skip records a run that did no work, e.g. because another worker held the lock.
func (t *Tracker) Skip() {
	if t == nil || t.m == nil {
		return
	}
	t.m.runs.WithLabelValues(t.job, StatusSkipped).Inc()
}

// AddMismatches counts ledgers whose stored balance disagrees with a replay.
func (m *Metrics) AddMismatches(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.mismatches.Add(float64(count))
}

// AddPurged counts idempotency keys removed by cleanup.
func (m *Metrics) AddPurged(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.purged.Add(float64(count))
}
