package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashwinibhardwaj/sqlassist/internal/cli"
	"github.com/ashwinibhardwaj/sqlassist/internal/presentation/tui"
	"github.com/ashwinibhardwaj/sqlassist/pkg/runner"
)

var askCmd = &cobra.Command{
	Use:   "ask <dataset.sql> <question...>",
	Short: "Answer a single question about a dataset",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		jsonMode, _ := cmd.Flags().GetBool("json")
		showSQL, _ := cmd.Flags().GetBool("show-sql")

		var handler runner.IOHandler
		if jsonMode {
			handler = runner.NewJSONHandler(strings.NewReader(""), os.Stdout)
		} else {
			handler = runner.NewTextHandler(strings.NewReader(""), os.Stdout,
				runner.WithShowSQL(showSQL),
				runner.WithTextHandlerRenderer(tui.NewRenderer()),
			)
		}

		state, askErr := app.Assistant.Ask(sigCtx, args[0], strings.Join(args[1:], " "))
		if err := handler.Output(sigCtx, state, askErr); err != nil {
			return err
		}
		if askErr != nil {
			// The handler already reported the failure.
			return errReported
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().Bool("json", false, "Print the reply as JSON")
	askCmd.Flags().Bool("show-sql", true, "Print the executed SQL")
}
