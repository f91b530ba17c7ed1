package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/descentbench/internal/store"
)

var (
	keepLast      int
	olderThanDays int
	forceClean    bool
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Manage run checkpoints",
	Long: `Manage run checkpoints including listing and cleaning old runs.
Each run keeps one checkpoint and one trace per optimizer.`,
}

var listCheckpointsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available checkpoints",
	Long:  `Display all checkpoints with run ID, trial, iteration, loss and the size of each run.`,
	RunE:  runListCheckpoints,
}

var cleanCheckpointsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old runs",
	Long: `Delete whole runs (checkpoints and traces) based on retention policy.
You can keep the N most recent runs or delete runs older than N days.`,
	RunE: runCleanCheckpoints,
}

func init() {
	// Add checkpoints command to root
	rootCmd.AddCommand(checkpointsCmd)

	// Add subcommands
	checkpointsCmd.AddCommand(listCheckpointsCmd)
	checkpointsCmd.AddCommand(cleanCheckpointsCmd)

	// Clean command flags
	cleanCheckpointsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the N most recent runs (0 = keep all)")
	cleanCheckpointsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete runs older than N days (0 = no age limit)")
	cleanCheckpointsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

// runInfo summarizes the checkpoints of one run.
type runInfo struct {
	RunID     string
	Trials    int
	Timestamp time.Time // most recent checkpoint
}

func runListCheckpoints(cmd *cobra.Command, args []string) error {
	return listCheckpoints(os.Stdout)
}

func listCheckpoints(out io.Writer) error {
	// Create store
	checkpointStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	// List all checkpoints
	infos, err := checkpointStore.ListCheckpoints()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}

	if len(infos) == 0 {
		fmt.Fprintln(out, "No checkpoints found.")
		return nil
	}

	// Display checkpoints in a table
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tTRIAL\tOBJECTIVE\tITERATION\tLOSS\tBEST LOSS\tTIMESTAMP")
	fmt.Fprintln(w, "------\t-----\t---------\t---------\t----\t---------\t---------")

	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.6g\t%.6g\t%s\n",
			shortID(info.RunID),
			info.Trial,
			info.Objective,
			info.Iteration,
			float64(info.Loss),
			float64(info.BestLoss),
			info.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	runs := summarizeRuns(infos)
	fmt.Fprintf(out, "\nTotal checkpoints: %d in %d run(s)\n", len(infos), len(runs))
	for _, run := range runs {
		size, err := getDirSize(filepath.Join(checkpointStore.BaseDir(), "runs", run.RunID))
		sizeStr := "unknown"
		if err == nil {
			sizeStr = formatBytes(size)
		}
		fmt.Fprintf(out, "  %s: %d trial(s), %s\n", run.RunID, run.Trials, sizeStr)
	}
	return nil
}

func runCleanCheckpoints(cmd *cobra.Command, args []string) error {
	// Validate flags
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	// Create store
	checkpointStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	// List all checkpoints
	infos, err := checkpointStore.ListCheckpoints()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No checkpoints to clean.")
		return nil
	}

	// Determine which runs to delete
	toDelete := selectRunsForDeletion(summarizeRuns(infos), keepLast, olderThanDays)

	if len(toDelete) == 0 {
		fmt.Println("No runs match deletion criteria.")
		return nil
	}

	// Show what will be deleted
	fmt.Printf("Found %d run(s) to delete:\n", len(toDelete))
	for _, run := range toDelete {
		fmt.Printf("  - %s (%d trial(s), %s)\n",
			shortID(run.RunID),
			run.Trials,
			run.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}

	// Ask for confirmation unless --force is set
	if !forceClean {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// Delete runs
	deleted := 0
	failed := 0
	for _, run := range toDelete {
		if err := checkpointStore.DeleteRun(run.RunID); err != nil {
			slog.Error("Failed to delete run", "run_id", run.RunID, "error", err)
			failed++
		} else {
			slog.Info("Deleted run", "run_id", run.RunID)
			deleted++
		}
	}

	fmt.Printf("\nDeleted %d run(s), %d failed.\n", deleted, failed)
	return nil
}

// summarizeRuns groups checkpoints by run, newest run first.
func summarizeRuns(infos []store.CheckpointInfo) []runInfo {
	byID := make(map[string]*runInfo)
	var runs []*runInfo
	for _, info := range infos {
		run, ok := byID[info.RunID]
		if !ok {
			run = &runInfo{RunID: info.RunID}
			byID[info.RunID] = run
			runs = append(runs, run)
		}
		run.Trials++
		if info.Timestamp.After(run.Timestamp) {
			run.Timestamp = info.Timestamp
		}
	}

	result := make([]runInfo, len(runs))
	for i, run := range runs {
		result[i] = *run
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return result
}

// selectRunsForDeletion applies the retention policy to runs sorted newest
// first. A run is deleted if it is too old or beyond the newest keepLast.
func selectRunsForDeletion(runs []runInfo, keepLast int, olderThanDays int) []runInfo {
	var toDelete []runInfo
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	for i, run := range runs {
		tooOld := olderThanDays > 0 && run.Timestamp.Before(cutoff)
		beyondKeep := keepLast > 0 && i >= keepLast
		if tooOld || beyondKeep {
			toDelete = append(toDelete, run)
		}
	}

	return toDelete
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
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
