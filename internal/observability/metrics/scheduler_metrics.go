package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	SchedulerErrorTypeDeadlineExceeded = "deadline_exceeded"
	SchedulerErrorTypeBusinessRule     = "business_rule"
	SchedulerErrorTypeDB               = "db"
	SchedulerErrorTypeUnknown          = "unknown"
)

// SchedulerMetrics captures fee engine scheduler health signals.
type SchedulerMetrics struct {
	jobRuns             *prometheus.CounterVec
	jobDuration         *prometheus.HistogramVec
	jobTimeouts         *prometheus.CounterVec
	jobErrors           *prometheus.CounterVec
	rulesActivated      prometheus.Counter
	ruleFailures        prometheus.Counter
	applicationsCreated prometheus.Counter
	overdueMarked       prometheus.Counter
	runLoopLag          prometheus.Observer
}

var (
	schedulerMetricsOnce sync.Once
	schedulerMetrics     *SchedulerMetrics
)

// Scheduler returns the singleton scheduler metrics registry.
func Scheduler() *SchedulerMetrics {
	schedulerMetricsOnce.Do(func() {
		schedulerMetrics = newSchedulerMetrics(prometheus.DefaultRegisterer)
	})
	return schedulerMetrics
}

func newSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agrocoop_scheduler_job_runs_total",
			Help: "Scheduler job executions by job name.",
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agrocoop_scheduler_job_duration_seconds",
			Help:    "Scheduler job latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		jobTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agrocoop_scheduler_job_timeouts_total",
			Help: "Scheduler jobs that hit their deadline.",
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agrocoop_scheduler_job_errors_total",
			Help: "Scheduler job failures by error type.",
		}, []string{"job", "error_type"}),
		rulesActivated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agrocoop_fee_rules_activated_total",
			Help: "Scheduled fee rules promoted to active.",
		}),
		ruleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agrocoop_fee_rule_activation_failures_total",
			Help: "Fee rules the activation job failed to promote.",
		}),
		applicationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agrocoop_fee_applications_created_total",
			Help: "Fee applications created by rule expansion.",
		}),
		overdueMarked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agrocoop_fee_applications_overdue_total",
			Help: "Pending applications flipped to overdue by the sweep job.",
		}),
	}

	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "agrocoop_scheduler_run_loop_lag_seconds",
		Help:    "Lag between the scheduled tick and actual run start.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	})
	m.runLoopLag = runLoopLag

	for _, c := range []prometheus.Collector{
		m.jobRuns, m.jobDuration, m.jobTimeouts, m.jobErrors,
		m.rulesActivated, m.ruleFailures, m.applicationsCreated, m.overdueMarked,
		runLoopLag,
	} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				panic(err)
			}
		}
	}
	return m
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, d time.Duration) {
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *SchedulerMetrics) IncJobTimeout(job string) {
	m.jobTimeouts.WithLabelValues(job).Inc()
}

// IncJobError classifies the failure so dashboards can split infrastructure
// trouble from business rejections.
func (m *SchedulerMetrics) IncJobError(job string, err error) {
	m.jobErrors.WithLabelValues(job, classifySchedulerError(err)).Inc()
}

func (m *SchedulerMetrics) AddRulesActivated(n int) {
	m.rulesActivated.Add(float64(n))
}

func (m *SchedulerMetrics) IncRuleFailure() {
	m.ruleFailures.Inc()
}

func (m *SchedulerMetrics) AddApplicationsCreated(n int) {
	m.applicationsCreated.Add(float64(n))
}

func (m *SchedulerMetrics) AddOverdueMarked(n int64) {
	m.overdueMarked.Add(float64(n))
}

func (m *SchedulerMetrics) ObserveRunLoopLag(d time.Duration) {
	m.runLoopLag.Observe(d.Seconds())
}

func classifySchedulerError(err error) string {
	switch {
	case err == nil:
		return SchedulerErrorTypeUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return SchedulerErrorTypeDeadlineExceeded
	case errors.Is(err, gorm.ErrDuplicatedKey),
		errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, gorm.ErrInvalidTransaction):
		return SchedulerErrorTypeDB
	default:
		return SchedulerErrorTypeBusinessRule
	}
}
