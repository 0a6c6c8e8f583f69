package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashwinibhardwaj/sqlassist"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of sqlassist",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sqlassist version %s\n", strings.TrimSpace(sqlassist.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
