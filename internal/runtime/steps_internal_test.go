package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/ashwinibhardwaj/sqlassist/internal/logging"
	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
	"github.com/ashwinibhardwaj/sqlassist/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panicSQL struct{}

func (panicSQL) GenerateSQL(context.Context, map[string][]string, string) (string, error) {
	panic("synthesizer must not be called")
}

type failingSQL struct{ err error }

func (f failingSQL) GenerateSQL(context.Context, map[string][]string, string) (string, error) {
	return "", f.err
}

func newBareEngine(sql ports.SQLSynthesizer) *Engine {
	return &Engine{
		deps:       Deps{SQL: sql},
		maxRetries: DefaultMaxRetries,
		logger:     logging.NewNop(),
	}
}

func TestFixSQL_NoErrorIsNoOp(t *testing.T) {
	e := newBareEngine(panicSQL{})
	state := domain.NewWorkflowState("q", domain.Schema{Filename: "a.sql"}).
		WithGeneratedSQL("SELECT 1").
		WithResult([]domain.Row{{"n": 1}})

	next, outcome, err := e.fixSQL(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeProceed, outcome)
	assert.Equal(t, state, next)
}

func TestFixSQL_BudgetCheckedBeforeSynthesizer(t *testing.T) {
	e := newBareEngine(panicSQL{})
	state := domain.NewWorkflowState("q", domain.Schema{}).
		WithRetryCount(DefaultMaxRetries).
		WithError("syntax error")

	next, outcome, err := e.fixSQL(context.Background(), state)
	assert.ErrorIs(t, err, domain.ErrRetryBudgetExhausted)
	assert.Equal(t, domain.OutcomeFail, outcome)
	assert.Equal(t, "syntax error", next.Error)
	assert.Equal(t, DefaultMaxRetries+1, next.RetryCount)
	assert.Equal(t, domain.StatusFailed, next.Status)
}

func TestFixSQL_SynthesizerFailureStaysInLoop(t *testing.T) {
	boom := errors.New("rate limited")
	e := newBareEngine(failingSQL{err: boom})
	state := domain.NewWorkflowState("q", domain.Schema{}).WithError("syntax error")

	next, outcome, err := e.fixSQL(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRetry, outcome)
	assert.Equal(t, 1, next.RetryCount)
	assert.Equal(t, boom.Error(), next.Error)
}

func TestRenderSchema_Sorted(t *testing.T) {
	out := RenderSchema(map[string][]string{
		"users":  {"id (int)"},
		"orders": {"id (int)", "amount (int)"},
	})
	assert.Equal(t, "orders: id (int), amount (int)\nusers: id (int)\n", out)
}
