package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mertune/mertune/internal/store"
	"github.com/mertune/mertune/internal/tune"
)

var (
	tuneConfigPath string
	tuneRunID      string
	tuneWeightsOut string
)

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Run a full multi-round tuning run",
	Long: `Runs tuning rounds until a stop condition fires: per round the decoder
produces fresh candidates for the current weights, the pool and statistics
ledger grow, and the multi-start optimizer picks the next weights. State is
persisted after every round so the run can be resumed.`,
	RunE: runTune,
}

func init() {
	tuneCmd.Flags().StringVar(&tuneConfigPath, "config", "", "Tuning configuration file (required)")
	tuneCmd.Flags().StringVar(&tuneRunID, "run-id", "", "Run identifier (default: new UUID)")
	tuneCmd.Flags().StringVar(&tuneWeightsOut, "out", "", "Write final weights to this file as well as stdout")

	tuneCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(tuneCmd)
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := tune.LoadConfig(tuneConfigPath)
	if err != nil {
		return err
	}

	fs, err := store.NewFSStore(dataDir)
	if err != nil {
		return err
	}

	runID := tuneRunID
	if runID == "" {
		runID = uuid.NewString()
	}

	mgr, err := tune.NewManager(cfg, buildDecoder(cfg), fs, runID, logger)
	if err != nil {
		return err
	}

	logger.Info("starting tuning run", "run_id", runID, "metric", cfg.Metric.Name)
	lambda, err := mgr.Run(context.Background())
	if err != nil {
		return err
	}

	return emitWeights(mgr.Names(), lambda, tuneWeightsOut)
}

func buildDecoder(cfg *tune.Config) tune.Decoder {
	if len(cfg.Decoder.Command) > 0 {
		return &tune.CommandDecoder{
			Command:     cfg.Decoder.Command,
			WeightsFile: cfg.Decoder.WeightsFile,
			OutputFile:  cfg.Decoder.OutputFile,
			Logger:      logger,
		}
	}
	return &tune.FileDecoder{Dir: cfg.Decoder.RoundsDir}
}

func emitWeights(names []string, lambda []float64, outPath string) error {
	for c, name := range names {
		fmt.Printf("%s %v\n", name, lambda[c])
	}
	if outPath == "" {
		return nil
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to write weights file: %w", err)
	}
	defer f.Close()
	for c, name := range names {
		fmt.Fprintf(f, "%s %v\n", name, lambda[c])
	}
	return nil
}
