package cli

import (
	"context"
	"errors"
	"io"

	"github.com/ashwinibhardwaj/sqlassist/internal/presentation/tui"
	"github.com/ashwinibhardwaj/sqlassist/pkg/runner"
)

// ChatOptions controls the interactive session.
type ChatOptions struct {
	Dataset string
	JSON    bool
	ShowSQL bool
	In      io.Reader
	Out     io.Writer
}

// RunChat loads the dataset and answers questions read from opts.In until EOF,
// an exit command, or cancellation.
func RunChat(ctx context.Context, app *App, opts ChatOptions) error {
	dataset, err := app.Assistant.LoadSchema(ctx, opts.Dataset)
	if err != nil {
		return err
	}

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.In, opts.Out)
	} else {
		tui.PrintBanner(opts.Out, dataset.Filename)
		handler = runner.NewTextHandler(opts.In, opts.Out,
			runner.WithShowSQL(opts.ShowSQL),
			runner.WithTextHandlerRenderer(tui.NewRenderer()),
		)
	}

	r := runner.NewRunner(runner.WithLogger(app.Logger), runner.WithInputHandler(handler))
	err = r.Run(ctx, app.Assistant, dataset.Filename)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
