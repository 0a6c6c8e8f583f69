package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

var errEmptySQL = errors.New("sql synthesizer returned an empty query")

// createDatabase provisions a scratch database from the uploaded dump.
// A missing dump is fatal and never enters the repair loop.
func (e *Engine) createDatabase(ctx context.Context, state domain.WorkflowState) (domain.WorkflowState, domain.Outcome, error) {
	path, err := e.deps.Uploads.Resolve(ctx, state.Schema.Filename)
	if err != nil {
		return state, domain.OutcomeFail, fmt.Errorf("resolve dump %q: %w", state.Schema.Filename, err)
	}

	cfg, err := e.deps.Provisioner.Provision(ctx, path)
	if err != nil {
		return state, domain.OutcomeFail, fmt.Errorf("provision %q: %w", state.Schema.Filename, err)
	}

	e.logger.DebugContext(ctx, "database provisioned", "run_id", state.RunID, "database", cfg.String())
	return state.WithDBConfig(cfg), domain.OutcomeProceed, nil
}

func (e *Engine) generateSQL(ctx context.Context, state domain.WorkflowState) (domain.WorkflowState, domain.Outcome, error) {
	sql, err := e.synthesize(ctx, state.Schema.Tables, state.UserQuery)
	if err != nil {
		e.logger.WarnContext(ctx, "sql generation failed", "run_id", state.RunID, "error", err)
		return state.WithError(err.Error()), domain.OutcomeRetry, nil
	}
	return state.WithGeneratedSQL(sql), domain.OutcomeProceed, nil
}

// executeSQL collapses every execution failure into the Error field.
func (e *Engine) executeSQL(ctx context.Context, state domain.WorkflowState) (domain.WorkflowState, domain.Outcome, error) {
	rows, err := e.deps.Executor.Execute(ctx, state.DBConfig, state.GeneratedSQL)
	if err != nil {
		e.logger.InfoContext(ctx, "sql execution failed",
			"run_id", state.RunID, "retry_count", state.RetryCount, "error", err)
		return state.WithError(err.Error()), domain.OutcomeRetry, nil
	}
	return state.WithResult(rows), domain.OutcomeProceed, nil
}

func (e *Engine) fixSQL(ctx context.Context, state domain.WorkflowState) (domain.WorkflowState, domain.Outcome, error) {
	if !state.HasError() {
		return state, domain.OutcomeProceed, nil
	}

	next := state.RetryCount + 1
	if next > e.maxRetries {
		// The scratch database stays provisioned; DeleteDataset or Cleanup drops it.
		failed := state.WithRetryCount(next).WithFailure(domain.FailureRetryBudgetExhausted)
		return failed, domain.OutcomeFail, domain.ErrRetryBudgetExhausted
	}

	prompt := repairPrompt(state)
	sql, err := e.synthesize(ctx, state.Schema.Tables, prompt)
	if err != nil {
		e.logger.WarnContext(ctx, "sql repair failed", "run_id", state.RunID, "retry_count", next, "error", err)
		return state.WithRetryCount(next).WithError(err.Error()), domain.OutcomeRetry, nil
	}

	e.logger.InfoContext(ctx, "sql repaired", "run_id", state.RunID, "retry_count", next)
	return state.WithRepair(sql, next), domain.OutcomeProceed, nil
}

// reason produces the answer and then drops the scratch database.
// Teardown is best-effort: its failure never hides a computed answer.
func (e *Engine) reason(ctx context.Context, state domain.WorkflowState) (domain.WorkflowState, domain.Outcome, error) {
	answer, err := e.deps.Answers.Answer(ctx, state.UserQuery, state.Result)
	e.release(ctx, state)
	if err != nil {
		return state, domain.OutcomeFail, fmt.Errorf("answer synthesis: %w", err)
	}
	return state.WithAnswer(answer), domain.OutcomeProceed, nil
}

func (e *Engine) synthesize(ctx context.Context, tables map[string][]string, question string) (string, error) {
	sql, err := e.deps.SQL.GenerateSQL(ctx, tables, question)
	if err != nil {
		return "", err
	}
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return "", errEmptySQL
	}
	return sql, nil
}

func (e *Engine) release(ctx context.Context, state domain.WorkflowState) {
	if state.DBConfig.Database == "" {
		return
	}
	if err := e.deps.Provisioner.Release(ctx, state.DBConfig.Database); err != nil {
		e.logger.WarnContext(ctx, "database teardown failed",
			"run_id", state.RunID, "database", state.DBConfig.Database, "error", err)
	}
}
