package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	logLevel string
	dataDir  string
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mertune",
	Short: "Minimum error rate training for log-linear translation models",
	Long: `Mertune tunes the feature weights of a log-linear reranking model
against an automatic evaluation metric, using exact coordinate-wise line
search over the piecewise-linear score geometry of an n-best candidate
pool grown across decoding rounds.`,
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
		handler := slog.NewJSONHandler(os.Stderr, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "Base directory for run state storage")
}
