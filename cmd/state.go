package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mertune/mertune/internal/store"
)

var forceDelete bool

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Manage saved tuning runs",
	Long: `Manage the saved state of tuning runs: list runs, show one run's full
state, or delete a run together with its retained round files and
statistics ledger.`,
}

var listStateCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved runs",
	RunE:  runListStates,
}

var showStateCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show one run's saved state",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowState,
}

var deleteStateCmd = &cobra.Command{
	Use:   "delete [run-id]",
	Short: "Delete a saved run and its artifacts",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteState,
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(listStateCmd)
	stateCmd.AddCommand(showStateCmd)
	stateCmd.AddCommand(deleteStateCmd)

	deleteStateCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "Skip confirmation prompt")
}

func runListStates(cmd *cobra.Command, args []string) error {
	fs, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}

	infos, err := fs.ListStates()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(infos) == 0 {
		fmt.Println("No saved runs found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tTIMESTAMP\tROUND\tMETRIC\tSCORE\tSIZE")
	fmt.Fprintln(w, "------\t---------\t-----\t------\t-----\t----")

	for _, info := range infos {
		size, err := getDirSize(fs.RunDir(info.RunID))
		sizeStr := "unknown"
		if err == nil {
			sizeStr = formatBytes(size)
		}

		displayID := info.RunID
		if len(displayID) > 12 {
			displayID = displayID[:12] + "..."
		}

		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%.4f\t%s\n",
			displayID,
			info.Timestamp.Format("2006-01-02 15:04:05"),
			info.Round,
			info.Metric,
			info.BestScore,
			sizeStr,
		)
	}
	w.Flush()

	fmt.Printf("\nTotal runs: %d\n", len(infos))
	return nil
}

func runShowState(cmd *cobra.Command, args []string) error {
	fs, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}

	state, err := fs.LoadState(args[0])
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render run state: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func runDeleteState(cmd *cobra.Command, args []string) error {
	runID := args[0]

	fs, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}

	state, err := fs.LoadState(runID)
	if err != nil {
		return err
	}

	if !forceDelete {
		fmt.Printf("Delete run %s (round %d, %s)? [y/N]: ",
			runID, state.Round, state.Timestamp.Format("2006-01-02 15:04:05"))
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := fs.DeleteState(runID); err != nil {
		return err
	}
	fmt.Printf("Deleted run %s.\n", runID)
	return nil
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
