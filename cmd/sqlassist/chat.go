package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashwinibhardwaj/sqlassist/internal/cli"
)

var chatCmd = &cobra.Command{
	Use:   "chat <dataset.sql>",
	Short: "Start an interactive question session on a dataset",
	Long: `Loads the dataset and reads questions from stdin until EOF or "exit".
With --json, each input line is a question (plain text or {"question": "..."}) and
each reply is one JSON object.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		jsonMode, _ := cmd.Flags().GetBool("json")
		showSQL, _ := cmd.Flags().GetBool("show-sql")

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		return cli.RunChat(sigCtx, app, cli.ChatOptions{
			Dataset: args[0],
			JSON:    jsonMode,
			ShowSQL: showSQL,
			In:      os.Stdin,
			Out:     os.Stdout,
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	chatCmd.Flags().Bool("show-sql", false, "Print the executed SQL with each answer")
}
