package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	logLevel  string
	dataDir   string
	storeKind string
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dfopt",
	Short: "Derivative-free global optimization",
	Long: `dfopt minimizes black-box objectives inside a box with controlled random
search (CRS2 with local mutation), a competitive swarm, an evolution strategy
with Cauchy mutation, or the mayfly algorithm, and keeps a record of every run.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{Level: level}
		// results go to stdout, so logs stay on stderr
		handler := slog.NewJSONHandler(os.Stderr, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "Base directory for run records and traces")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "fs", "Run store backend (fs, sqlite)")
}
