package domain

import (
	"maps"
	"slices"

	"github.com/google/uuid"
)

// ExecutionStatus defines where a workflow session stands.
type ExecutionStatus string

const (
	StatusActive ExecutionStatus = "active" // Steps are still running
	StatusDone   ExecutionStatus = "done"   // Answer produced
	StatusFailed ExecutionStatus = "failed" // Terminal failure, no answer
)

// FailureRetryBudgetExhausted is the Failure reason set when the repair loop gives up.
const FailureRetryBudgetExhausted = "retry budget exhausted"

// WorkflowState is the record threaded through every step of one question-answering session.
//
// It is an owned value: steps receive a copy and return a new value built with the With*
// helpers, which deep-copy the reference fields they touch. A step never writes through
// to the state it was given.
type WorkflowState struct {
	// RunID correlates log lines and metrics of a single session.
	RunID string `json:"run_id"`

	// UserQuery is the natural-language question. Set once, never mutated.
	UserQuery string `json:"user_query"`

	// Schema is the immutable input context (tables and columns of the dataset).
	Schema Schema `json:"schema"`

	// DBConfig holds the credentials of the provisioned database.
	DBConfig DBConfig `json:"db_config"`

	// GeneratedSQL is the most recent synthesized query.
	GeneratedSQL string `json:"generated_sql,omitempty"`

	// Result holds the rows of the most recent successful execution. Nil means absent.
	Result []Row `json:"result,omitempty"`

	// Error is the message of the most recent failed execution or generation.
	// Empty means absent.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of repair attempts made so far.
	RetryCount int `json:"retry_count"`

	// Answer is the final natural-language answer.
	Answer string `json:"answer,omitempty"`

	// Status is the session lifecycle marker.
	Status ExecutionStatus `json:"status"`

	// Failure is the terminal failure reason. It is never mixed into Error.
	Failure string `json:"failure,omitempty"`

	// History tracks the steps visited, in order.
	History []Step `json:"history,omitempty"`
}

// NewWorkflowState creates the entry state of a session.
func NewWorkflowState(userQuery string, schema Schema) WorkflowState {
	return WorkflowState{
		RunID:     uuid.NewString(),
		UserQuery: userQuery,
		Schema:    schema.Clone(),
		DBConfig:  schema.DBConfig,
		Status:    StatusActive,
	}
}

// Clone returns a deep copy of the state.
func (s WorkflowState) Clone() WorkflowState {
	next := s
	next.Schema = s.Schema.Clone()
	next.Result = cloneRows(s.Result)
	next.History = slices.Clone(s.History)
	return next
}

// HasError reports whether the last execution or generation failed.
func (s WorkflowState) HasError() bool {
	return s.Error != ""
}

// HasResult reports whether rows from a successful execution are present.
func (s WorkflowState) HasResult() bool {
	return s.Result != nil
}

// Terminal reports whether the session reached a sink state.
func (s WorkflowState) Terminal() bool {
	return s.Status == StatusDone || s.Status == StatusFailed
}

// WithDBConfig returns a copy carrying the provisioned credentials.
func (s WorkflowState) WithDBConfig(cfg DBConfig) WorkflowState {
	next := s.Clone()
	next.DBConfig = cfg
	return next
}

// WithGeneratedSQL returns a copy carrying a freshly synthesized query.
func (s WorkflowState) WithGeneratedSQL(sql string) WorkflowState {
	next := s.Clone()
	next.GeneratedSQL = sql
	return next
}

// WithResult records a successful execution: Result is set and Error cleared.
// A nil rows slice is normalized to an empty one so that Result stays present.
func (s WorkflowState) WithResult(rows []Row) WorkflowState {
	next := s.Clone()
	next.Result = cloneRows(rows)
	if next.Result == nil {
		next.Result = []Row{}
	}
	next.Error = ""
	return next
}

// WithError records a failed execution or generation: Error is set and Result cleared.
func (s WorkflowState) WithError(msg string) WorkflowState {
	next := s.Clone()
	if msg == "" {
		msg = "unknown error"
	}
	next.Error = msg
	next.Result = nil
	return next
}

// WithRepair records a repair attempt that produced a new query.
func (s WorkflowState) WithRepair(sql string, retryCount int) WorkflowState {
	next := s.Clone()
	next.GeneratedSQL = sql
	next.Error = ""
	next.RetryCount = max(next.RetryCount, retryCount)
	return next
}

// WithRetryCount returns a copy with the retry counter advanced. It never decrements.
func (s WorkflowState) WithRetryCount(retryCount int) WorkflowState {
	next := s.Clone()
	next.RetryCount = max(next.RetryCount, retryCount)
	return next
}

// WithAnswer returns a copy carrying the final answer and marks the session done.
func (s WorkflowState) WithAnswer(answer string) WorkflowState {
	next := s.Clone()
	next.Answer = answer
	next.Status = StatusDone
	return next
}

// WithFailure marks the session as terminally failed. Error is kept as-is.
func (s WorkflowState) WithFailure(reason string) WorkflowState {
	next := s.Clone()
	next.Status = StatusFailed
	next.Failure = reason
	return next
}

// WithVisit appends a step to the history.
func (s WorkflowState) WithVisit(step Step) WorkflowState {
	next := s.Clone()
	next.History = append(next.History, step)
	return next
}

func cloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = maps.Clone(r)
	}
	return out
}
