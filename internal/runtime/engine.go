package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashwinibhardwaj/sqlassist/internal/logging"
	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
	"github.com/ashwinibhardwaj/sqlassist/pkg/ports"
)

// DefaultMaxRetries is the number of repair attempts allowed per session.
const DefaultMaxRetries = 2

// Deps groups the collaborators a session talks to.
type Deps struct {
	Uploads     ports.UploadStore
	Provisioner ports.Provisioner
	SQL         ports.SQLSynthesizer
	Executor    ports.Executor
	Answers     ports.AnswerSynthesizer
}

func (d Deps) validate() error {
	switch {
	case d.Uploads == nil:
		return errors.New("runtime: upload store is required")
	case d.Provisioner == nil:
		return errors.New("runtime: provisioner is required")
	case d.SQL == nil:
		return errors.New("runtime: sql synthesizer is required")
	case d.Executor == nil:
		return errors.New("runtime: executor is required")
	case d.Answers == nil:
		return errors.New("runtime: answer synthesizer is required")
	}
	return nil
}

type stepFunc func(ctx context.Context, state domain.WorkflowState) (domain.WorkflowState, domain.Outcome, error)

// transitions is the workflow graph: the next step for each step and outcome.
var transitions = map[domain.Step]map[domain.Outcome]domain.Step{
	domain.StepCreateDatabase: {
		domain.OutcomeProceed: domain.StepGenerateSQL,
	},
	domain.StepGenerateSQL: {
		domain.OutcomeProceed: domain.StepExecuteSQL,
		domain.OutcomeRetry:   domain.StepFixSQL,
	},
	domain.StepExecuteSQL: {
		domain.OutcomeProceed: domain.StepReason,
		domain.OutcomeRetry:   domain.StepFixSQL,
	},
	domain.StepFixSQL: {
		domain.OutcomeProceed: domain.StepExecuteSQL,
		domain.OutcomeRetry:   domain.StepFixSQL,
		domain.OutcomeFail:    domain.StepFailed,
	},
	domain.StepReason: {
		domain.OutcomeProceed: domain.StepDone,
	},
}

// Engine runs the query-repair workflow.
// It holds no per-session state and is safe for concurrent use.
type Engine struct {
	deps        Deps
	maxRetries  int
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	steps       map[domain.Step]stepFunc
	transitions map[domain.Step]map[domain.Outcome]domain.Step
}

// EngineOption defines a functional option for configuring the Engine.
type EngineOption func(*Engine)

// WithMaxRetries sets the repair budget. Negative values are treated as zero.
func WithMaxRetries(n int) EngineOption {
	return func(e *Engine) {
		e.maxRetries = max(n, 0)
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// NewEngine wires the workflow graph around the given collaborators.
func NewEngine(deps Deps, opts ...EngineOption) (*Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		deps:       deps,
		maxRetries: DefaultMaxRetries,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.steps = map[domain.Step]stepFunc{
		domain.StepCreateDatabase: e.createDatabase,
		domain.StepGenerateSQL:    e.generateSQL,
		domain.StepExecuteSQL:     e.executeSQL,
		domain.StepFixSQL:         e.fixSQL,
		domain.StepReason:         e.reason,
	}
	e.transitions = transitions
	return e, nil
}

// MaxRetries returns the configured repair budget.
func (e *Engine) MaxRetries() int {
	return e.maxRetries
}

// Start creates the entry state of a session.
func (e *Engine) Start(userQuery string, schema domain.Schema) domain.WorkflowState {
	return domain.NewWorkflowState(userQuery, schema)
}

// Inspect returns the edges of the workflow graph in a stable order.
func (e *Engine) Inspect() []domain.Transition {
	return Workflow()
}

// Workflow returns the edges of the query-repair graph in a stable order.
func Workflow() []domain.Transition {
	order := []domain.Step{
		domain.StepCreateDatabase,
		domain.StepGenerateSQL,
		domain.StepExecuteSQL,
		domain.StepFixSQL,
		domain.StepReason,
	}
	outcomes := []domain.Outcome{domain.OutcomeProceed, domain.OutcomeRetry, domain.OutcomeFail}

	var edges []domain.Transition
	for _, from := range order {
		for _, on := range outcomes {
			if to, ok := transitions[from][on]; ok {
				edges = append(edges, domain.Transition{From: from, On: on, To: to})
			}
		}
	}
	return edges
}

// Run drives a session from the entry step to a sink.
// On a fatal outcome it returns the partial final state together with a *WorkflowError.
func (e *Engine) Run(ctx context.Context, state domain.WorkflowState) (domain.WorkflowState, error) {
	started := time.Now()
	current := domain.StepCreateDatabase

	for !current.IsSink() {
		next, outcome, err := e.Step(ctx, current, state)
		state = next
		if err != nil {
			if !state.Terminal() {
				state = state.WithFailure(err.Error())
			}
			e.logger.ErrorContext(ctx, "workflow failed",
				"run_id", state.RunID, "step", current, "retry_count", state.RetryCount, "error", err)
			e.emitSessionEnd(ctx, state, started, true)
			return state, &WorkflowError{Step: current, Err: err}
		}

		to, ok := e.transitions[current][outcome]
		if !ok {
			err := fmt.Errorf("no transition from %s on %s", current, outcome)
			state = state.WithFailure(err.Error())
			e.emitSessionEnd(ctx, state, started, true)
			return state, &WorkflowError{Step: current, Err: err}
		}
		e.logger.DebugContext(ctx, "transition", "run_id", state.RunID, "from", current, "outcome", outcome, "to", to)
		current = to
	}

	e.logger.InfoContext(ctx, "workflow completed",
		"run_id", state.RunID, "dataset", state.Schema.Filename, "retry_count", state.RetryCount,
		"duration", time.Since(started))
	e.emitSessionEnd(ctx, state, started, false)
	return state, nil
}

// Step executes a single workflow step. The input state is never modified.
func (e *Engine) Step(ctx context.Context, step domain.Step, state domain.WorkflowState) (domain.WorkflowState, domain.Outcome, error) {
	fn, ok := e.steps[step]
	if !ok {
		return state, domain.OutcomeFail, fmt.Errorf("unknown step %q", step)
	}

	enteredAt := time.Now()
	e.emitStep(ctx, domain.EventStepEnter, state.RunID, step, domain.OutcomeProceed, 0, "")

	next, outcome, err := fn(ctx, state.WithVisit(step))

	if diff := domain.Diff(state, next); diff != nil {
		e.logger.DebugContext(ctx, "step finished", "step", step, "outcome", outcome.String(), "diff", diff)
	}
	e.emitStep(ctx, domain.EventStepLeave, next.RunID, step, outcome, time.Since(enteredAt), next.Error)
	return next, outcome, err
}

// WorkflowError reports a session that ended without an answer.
type WorkflowError struct {
	Step domain.Step
	Err  error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("workflow failed at %s: %v", e.Step, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func (e *Engine) emitStep(ctx context.Context, typ domain.EventType, runID string, step domain.Step, outcome domain.Outcome, d time.Duration, errMsg string) {
	hook := e.hooks.OnStepEnter
	if typ == domain.EventStepLeave {
		hook = e.hooks.OnStepLeave
	}
	if hook == nil {
		return
	}
	hook(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: typ, RunID: runID},
		Step:      step,
		Outcome:   outcome,
		Duration:  d,
		Error:     errMsg,
	})
}

func (e *Engine) emitSessionEnd(ctx context.Context, state domain.WorkflowState, started time.Time, fatal bool) {
	if e.hooks.OnSessionEnd == nil {
		return
	}
	e.hooks.OnSessionEnd(ctx, &domain.SessionEvent{
		EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventSessionEnd, RunID: state.RunID},
		Dataset:    state.Schema.Filename,
		Status:     state.Status,
		RetryCount: state.RetryCount,
		Duration:   time.Since(started),
		Fatal:      fatal,
	})
}
