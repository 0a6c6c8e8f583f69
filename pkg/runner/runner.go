package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ashwinibhardwaj/sqlassist/internal/logging"
	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// Asker answers a question about a dataset.
type Asker interface {
	Ask(ctx context.Context, filename, question string) (domain.WorkflowState, error)
}

// Runner loops over questions until input ends, the user exits or ctx is cancelled.
type Runner struct {
	Handler IOHandler
	Logger  *slog.Logger
}

// NewRunner creates a Runner with a TextHandler on stdin/stdout.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	return r
}

// Run asks every question read from the handler against dataset.
// Per-question failures are reported through the handler and do not stop the loop.
func (r *Runner) Run(ctx context.Context, asker Asker, dataset string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		question, err := r.Handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		question = strings.TrimSpace(question)
		if question == "" {
			continue
		}
		if isExit(question) {
			r.Logger.Debug("exit requested")
			return nil
		}

		state, askErr := asker.Ask(ctx, dataset, question)
		if askErr != nil {
			if errors.Is(askErr, context.Canceled) {
				return askErr
			}
			r.Logger.Warn("question failed", "dataset", dataset, "run_id", state.RunID, "err", askErr)
		}
		if err := r.Handler.Output(ctx, state, askErr); err != nil {
			return err
		}
	}
}

func isExit(s string) bool {
	switch strings.ToLower(s) {
	case "exit", "quit", ":q":
		return true
	}
	return false
}
