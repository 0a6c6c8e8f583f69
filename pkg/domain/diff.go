package domain

// StateDiff represents the changes a step made to the workflow state.
// Only changed fields are set, which keeps step-by-step debug logs short.
type StateDiff struct {
	RunID        string           `json:"run_id"`
	GeneratedSQL *string          `json:"generated_sql,omitempty"`
	Error        *string          `json:"error,omitempty"`
	ResultRows   *int             `json:"result_rows,omitempty"` // -1 when Result was cleared
	RetryCount   *int             `json:"retry_count,omitempty"`
	Answer       *string          `json:"answer,omitempty"`
	Status       *ExecutionStatus `json:"status,omitempty"`
	Failure      *string          `json:"failure,omitempty"`
	Database     *string          `json:"database,omitempty"`
	Appended     []Step           `json:"appended,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// Returns nil when nothing changed.
func Diff(oldState, newState WorkflowState) *StateDiff {
	diff := &StateDiff{RunID: newState.RunID}

	if oldState.GeneratedSQL != newState.GeneratedSQL {
		diff.GeneratedSQL = &newState.GeneratedSQL
	}
	if oldState.Error != newState.Error {
		diff.Error = &newState.Error
	}
	if oldState.HasResult() != newState.HasResult() || len(oldState.Result) != len(newState.Result) {
		n := len(newState.Result)
		if !newState.HasResult() {
			n = -1
		}
		diff.ResultRows = &n
	}
	if oldState.RetryCount != newState.RetryCount {
		diff.RetryCount = &newState.RetryCount
	}
	if oldState.Answer != newState.Answer {
		diff.Answer = &newState.Answer
	}
	if oldState.Status != newState.Status {
		diff.Status = &newState.Status
	}
	if oldState.Failure != newState.Failure {
		diff.Failure = &newState.Failure
	}
	if oldState.DBConfig.Database != newState.DBConfig.Database {
		diff.Database = &newState.DBConfig.Database
	}
	if len(newState.History) > len(oldState.History) {
		diff.Appended = newState.History[len(oldState.History):]
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any changes.
func (d *StateDiff) IsEmpty() bool {
	return d.GeneratedSQL == nil &&
		d.Error == nil &&
		d.ResultRows == nil &&
		d.RetryCount == nil &&
		d.Answer == nil &&
		d.Status == nil &&
		d.Failure == nil &&
		d.Database == nil &&
		len(d.Appended) == 0
}
