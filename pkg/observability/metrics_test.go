package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
	"github.com/ashwinibhardwaj/sqlassist/pkg/observability"
)

func leave(step domain.Step, outcome domain.Outcome) *domain.StepEvent {
	return &domain.StepEvent{
		EventBase: domain.EventBase{Type: domain.EventStepLeave, RunID: "r1"},
		Step:      step,
		Outcome:   outcome,
		Duration:  10 * time.Millisecond,
	}
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnStepEnter(ctx, &domain.StepEvent{Step: domain.StepExecuteSQL})
	hooks.OnStepLeave(ctx, leave(domain.StepExecuteSQL, domain.OutcomeRetry))
	hooks.OnStepEnter(ctx, &domain.StepEvent{Step: domain.StepFixSQL})
	hooks.OnStepLeave(ctx, leave(domain.StepFixSQL, domain.OutcomeProceed))
	hooks.OnStepLeave(ctx, leave(domain.StepExecuteSQL, domain.OutcomeProceed))
	hooks.OnSessionEnd(ctx, &domain.SessionEvent{Status: domain.StatusDone, Duration: time.Second})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepVisits.WithLabelValues("execute_sql", "retry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepVisits.WithLabelValues("execute_sql", "proceed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Repairs))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sessions.WithLabelValues("done")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.StepDuration))
}

func TestCombine(t *testing.T) {
	var order []string
	a := domain.LifecycleHooks{OnSessionEnd: func(context.Context, *domain.SessionEvent) { order = append(order, "a") }}
	b := domain.LifecycleHooks{
		OnSessionEnd: func(context.Context, *domain.SessionEvent) { order = append(order, "b") },
		OnStepEnter:  func(context.Context, *domain.StepEvent) { order = append(order, "b-enter") },
	}

	hooks := observability.Combine(a, b)
	hooks.OnStepEnter(context.Background(), &domain.StepEvent{})
	hooks.OnStepLeave(context.Background(), &domain.StepEvent{})
	hooks.OnSessionEnd(context.Background(), &domain.SessionEvent{})

	assert.Equal(t, []string{"b-enter", "a", "b"}, order)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LoggingHooks(logger)

	ev := leave(domain.StepExecuteSQL, domain.OutcomeRetry)
	ev.Error = "no such column"
	hooks.OnStepLeave(context.Background(), ev)
	hooks.OnSessionEnd(context.Background(), &domain.SessionEvent{Status: domain.StatusFailed, Dataset: "orders.sql", Fatal: true})

	out := buf.String()
	assert.Contains(t, out, `sql_error="no such column"`)
	assert.Contains(t, out, "level=WARN msg=session_end")
	assert.Contains(t, out, "dataset=orders.sql")
}
