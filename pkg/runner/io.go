package runner

import (
	"context"

	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// IOHandler defines how questions come in and replies go out.
type IOHandler interface {
	// Input reads the next question. io.EOF ends the loop.
	Input(ctx context.Context) (string, error)

	// Output presents the outcome of one question session. err is the session
	// error, if any; state carries whatever the session produced before failing.
	Output(ctx context.Context, state domain.WorkflowState, err error) error
}

// ContentRenderer transforms answer text before it is printed, e.g. markdown to ANSI.
type ContentRenderer func(string) (string, error)
