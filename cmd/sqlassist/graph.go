package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashwinibhardwaj/sqlassist/internal/presentation/graph"
	"github.com/ashwinibhardwaj/sqlassist/internal/runtime"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the query-repair workflow as a Mermaid diagram",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(runtime.Workflow(), nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
