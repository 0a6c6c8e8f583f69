package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var datasetCmd = &cobra.Command{
	Use:     "dataset",
	Aliases: []string{"ds"},
	Short:   "Manage uploaded SQL dumps and their scratch databases",
}

var datasetAddCmd = &cobra.Command{
	Use:   "add <dump.sql>...",
	Short: "Upload dumps, import them and print their tables",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		for _, path := range args {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			dataset, err := app.Assistant.Upload(cmd.Context(), filepath.Base(path), f)
			_ = f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", dataset.Filename)
			for _, table := range dataset.TableNames() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s(%s)\n", table, strings.Join(dataset.Tables[table], ", "))
			}
		}
		return nil
	},
}

var datasetListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List uploaded dumps; loaded ones are marked with *",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		names, err := app.Assistant.Datasets(cmd.Context())
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No datasets uploaded.")
			return nil
		}

		loaded, err := app.Assistant.Loaded(cmd.Context())
		if err != nil {
			return err
		}
		isLoaded := make(map[string]bool, len(loaded))
		for _, name := range loaded {
			isLoaded[name] = true
		}
		for _, name := range names {
			marker := " "
			if isLoaded[name] {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
		}
		return nil
	},
}

var datasetRmCmd = &cobra.Command{
	Use:   "rm <dump.sql>...",
	Short: "Delete dumps and drop their databases",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		failed := false
		for _, name := range args {
			if err := app.Assistant.DeleteDataset(cmd.Context(), name); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error removing '%s': %v\n", name, err)
				failed = true
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed '%s'\n", name)
		}
		if failed {
			return fmt.Errorf("some datasets could not be removed")
		}
		return nil
	},
}

var datasetCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Drop every loaded scratch database, keeping the dumps",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		dropped, err := app.Assistant.Cleanup(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "Dropped %d database(s).\n", dropped)
		return err
	},
}

func init() {
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetAddCmd, datasetListCmd, datasetRmCmd, datasetCleanupCmd)
}
