package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepEnter  EventType = "step_enter"
	EventStepLeave  EventType = "step_leave"
	EventSessionEnd EventType = "session_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// StepEvent represents entry into or exit from a workflow step.
type StepEvent struct {
	EventBase
	Step     Step          `json:"step"`
	Outcome  Outcome       `json:"outcome"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"` // SQL or generation error recorded by the step
}

// SessionEvent is emitted once, when a session reaches a sink state or aborts.
type SessionEvent struct {
	EventBase
	Dataset    string          `json:"dataset"`
	Status     ExecutionStatus `json:"status"`
	RetryCount int             `json:"retry_count"`
	Duration   time.Duration   `json:"duration"`
	Fatal      bool            `json:"fatal,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStepEnter  func(context.Context, *StepEvent)
	OnStepLeave  func(context.Context, *StepEvent)
	OnSessionEnd func(context.Context, *SessionEvent)
}
