package domain

// Step identifies a node of the workflow graph.
type Step string

const (
	StepCreateDatabase Step = "create_database"
	StepGenerateSQL    Step = "generate_sql"
	StepExecuteSQL     Step = "execute_sql"
	StepFixSQL         Step = "fix_sql"
	StepReason         Step = "reason"

	// Sink states. They have no step function.
	StepDone   Step = "done"
	StepFailed Step = "failed"
)

// IsSink reports whether the step ends the session.
func (s Step) IsSink() bool {
	return s == StepDone || s == StepFailed
}

// Outcome is the typed result a step hands to the engine's transition table.
type Outcome int

const (
	// OutcomeProceed follows the happy path.
	OutcomeProceed Outcome = iota
	// OutcomeRetry enters (or stays in) the repair loop.
	OutcomeRetry
	// OutcomeFail ends the session without an answer.
	OutcomeFail
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProceed:
		return "proceed"
	case OutcomeRetry:
		return "retry"
	case OutcomeFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Transition defines an edge of the workflow graph.
type Transition struct {
	From Step    `json:"from"`
	On   Outcome `json:"on"`
	To   Step    `json:"to"`
}
