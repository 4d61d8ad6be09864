package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mertune/mertune/internal/store"
	"github.com/mertune/mertune/internal/tune"
)

var (
	resumeConfigPath string
	resumeWeightsOut string
)

var resumeCmd = &cobra.Command{
	Use:   "resume [run-id]",
	Short: "Resume a saved tuning run",
	Long: `Restores a run from its saved state: the weights, the random stream
position, the stop counters, and the candidate pool replayed from the
retained per-round files. Tuning then continues from the next round.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeConfigPath, "config", "", "Tuning configuration file (required)")
	resumeCmd.Flags().StringVar(&resumeWeightsOut, "out", "", "Write final weights to this file as well as stdout")

	resumeCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	runID := args[0]

	cfg, err := tune.LoadConfig(resumeConfigPath)
	if err != nil {
		return err
	}

	fs, err := store.NewFSStore(dataDir)
	if err != nil {
		return err
	}

	mgr, err := tune.NewManager(cfg, buildDecoder(cfg), fs, runID, logger)
	if err != nil {
		return err
	}
	if err := mgr.Resume(); err != nil {
		return err
	}

	lambda, err := mgr.Run(context.Background())
	if err != nil {
		return err
	}
	return emitWeights(mgr.Names(), lambda, resumeWeightsOut)
}
