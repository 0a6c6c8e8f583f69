package observability

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// Metrics holds the Prometheus collectors fed by engine lifecycle hooks.
type Metrics struct {
	StepVisits      *prometheus.CounterVec
	StepDuration    *prometheus.HistogramVec
	Repairs         prometheus.Counter
	Sessions        *prometheus.CounterVec
	SessionDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlassist_step_visits_total",
				Help: "Total number of workflow step executions by outcome",
			},
			[]string{"step", "outcome"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sqlassist_step_duration_seconds",
				Help:    "Duration of workflow steps",
				Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
			},
			[]string{"step"},
		),
		Repairs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sqlassist_sql_repairs_total",
			Help: "Total number of repair attempts entered",
		}),
		Sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlassist_sessions_total",
				Help: "Total number of question sessions by final status",
			},
			[]string{"status"},
		),
		SessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sqlassist_session_duration_seconds",
			Help:    "End-to-end duration of question sessions",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
	reg.MustRegister(m.StepVisits, m.StepDuration, m.Repairs, m.Sessions, m.SessionDuration)
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) {
			if e.Step == domain.StepFixSQL {
				m.Repairs.Inc()
			}
		},
		OnStepLeave: func(_ context.Context, e *domain.StepEvent) {
			m.StepVisits.WithLabelValues(string(e.Step), e.Outcome.String()).Inc()
			m.StepDuration.WithLabelValues(string(e.Step)).Observe(e.Duration.Seconds())
		},
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) {
			m.Sessions.WithLabelValues(string(e.Status)).Inc()
			m.SessionDuration.Observe(e.Duration.Seconds())
		},
	}
}

// LoggingHooks logs step transitions at debug and session ends at info.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_enter", "run_id", e.RunID, "step", e.Step)
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			attrs := []any{"run_id", e.RunID, "step", e.Step, "outcome", e.Outcome.String(), "duration", e.Duration}
			if e.Error != "" {
				attrs = append(attrs, "sql_error", e.Error)
			}
			logger.DebugContext(ctx, "step_leave", attrs...)
		},
		OnSessionEnd: func(ctx context.Context, e *domain.SessionEvent) {
			level := slog.LevelInfo
			if e.Status == domain.StatusFailed {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "session_end",
				"run_id", e.RunID,
				"dataset", e.Dataset,
				"status", e.Status,
				"retry_count", e.RetryCount,
				"duration", e.Duration,
				"fatal", e.Fatal,
			)
		},
	}
}

// Combine fans each event out to every non-nil hook, in order.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			for _, h := range hooks {
				if h.OnStepEnter != nil {
					h.OnStepEnter(ctx, e)
				}
			}
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			for _, h := range hooks {
				if h.OnStepLeave != nil {
					h.OnStepLeave(ctx, e)
				}
			}
		},
		OnSessionEnd: func(ctx context.Context, e *domain.SessionEvent) {
			for _, h := range hooks {
				if h.OnSessionEnd != nil {
					h.OnSessionEnd(ctx, e)
				}
			}
		},
	}
}
