package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashwinibhardwaj/sqlassist/internal/cli"
	"github.com/ashwinibhardwaj/sqlassist/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "sqlassist",
	Short: "Ask questions about SQL dumps in plain language",
	Long: `sqlassist imports uploaded SQL dumps into scratch databases, turns questions into SQL
with a language model, repairs failing queries, and explains the results.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// errReported makes the process exit non-zero without printing the error again.
var errReported = errors.New("error already reported")

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: auto, tint, text, json")
}

// loadConfig reads .env, the config file and SQLASSIST_* overrides, then applies flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, fmt.Errorf("load .env: %w", err)
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, os.LookupEnv)
	if err != nil {
		return config.Config{}, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}
	return cfg, cfg.Validate()
}

// newApp wires the assistant for a command. Callers must Close the app.
func newApp(cmd *cobra.Command) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := cli.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	return cli.NewApp(cmd.Context(), cfg, logger)
}
