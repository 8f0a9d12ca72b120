package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/dfopt/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	keepLast      int
	olderThanDays int
	forceClean    bool
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect and clean saved runs",
}

var listResultsCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs",
	Long:  `Display all saved runs, newest first, with algorithm, function, best value, evaluations and size on disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := openStore()
		if err != nil {
			return err
		}
		defer store.CloseIfSupported(runs)
		return listRuns(cmd.OutOrStdout(), runs, dataDir)
	},
}

var showResultCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := openStore()
		if err != nil {
			return err
		}
		defer store.CloseIfSupported(runs)
		return showRun(cmd.OutOrStdout(), runs, dataDir, args[0])
	},
}

var cleanResultsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old runs",
	Long: `Delete saved runs based on a retention policy: keep only the newest N runs,
delete runs older than N days, or both.`,
	RunE: runCleanResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.AddCommand(listResultsCmd, showResultCmd, cleanResultsCmd)

	cleanResultsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N runs (0 = keep all)")
	cleanResultsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete runs older than N days (0 = no age limit)")
	cleanResultsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func openStore() (store.Store, error) {
	runs, err := store.NewStore(storeKind, dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	return runs, nil
}

func listRuns(out io.Writer, runs store.Store, baseDir string) error {
	infos, err := runs.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(infos) == 0 {
		fmt.Fprintln(out, "No runs found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tFINISHED\tALGO\tFUNCTION\tDIM\tBEST\tEVALS\tSTOP\tSIZE")
	for _, info := range infos {
		size := "-"
		if n, err := getDirSize(store.RunDir(baseDir, info.ID)); err == nil {
			size = humanize.Bytes(uint64(n))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.6g\t%s\t%s\t%s\n",
			shortID(info.ID),
			humanize.Time(info.Timestamp),
			info.Algorithm,
			info.Function,
			info.Dimension,
			info.BestValue,
			humanize.Comma(int64(info.Evaluations)),
			info.StopReason,
			size,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal runs: %d\n", len(infos))
	return nil
}

func showRun(out io.Writer, runs store.Store, baseDir, runID string) error {
	record, err := runs.LoadRun(runID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Run:\t%s\n", record.ID)
	fmt.Fprintf(w, "Finished:\t%s (%s)\n", record.Timestamp.Format(time.RFC3339), humanize.Time(record.Timestamp))
	fmt.Fprintf(w, "Algorithm:\t%s\n", record.Config.Algorithm)
	fmt.Fprintf(w, "Function:\t%s (dim %d)\n", record.Config.Function, record.Config.Dimension)
	fmt.Fprintf(w, "Seed:\t%d\n", record.Config.Seed)
	fmt.Fprintf(w, "Budget:\t%s evaluations\n", humanize.Comma(int64(record.Config.MaxEvaluations)))
	fmt.Fprintf(w, "Best value:\t%.10g\n", record.BestValue)
	fmt.Fprintf(w, "Best point:\t%v\n", record.BestPoint)
	fmt.Fprintf(w, "Evaluations:\t%s\n", humanize.Comma(int64(record.Evaluations)))
	fmt.Fprintf(w, "Generations:\t%s\n", humanize.Comma(int64(record.Iterations)))
	fmt.Fprintf(w, "Stop reason:\t%s (converged: %v)\n", record.StopReason, record.Converged)

	entries, err := store.ReadTrace(baseDir, runID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		fmt.Fprintf(w, "Trace:\tnone\n")
	case err != nil:
		slog.Warn("Failed to read trace", "run_id", runID, "error", err)
		fmt.Fprintf(w, "Trace:\tunreadable\n")
	case len(entries) > 0:
		first, last := entries[0], entries[len(entries)-1]
		fmt.Fprintf(w, "Trace:\t%d entries, best %.6g at %s evals -> %.6g at %s evals\n",
			len(entries),
			first.Best, humanize.Comma(int64(first.Evaluations)),
			last.Best, humanize.Comma(int64(last.Evaluations)),
		)
	default:
		fmt.Fprintf(w, "Trace:\tempty\n")
	}
	return w.Flush()
}

func runCleanResults(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	runs, err := openStore()
	if err != nil {
		return err
	}
	defer store.CloseIfSupported(runs)

	infos, err := runs.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	toDelete := selectRunsForDeletion(infos, keepLast, olderThanDays, time.Now())
	if len(toDelete) == 0 {
		fmt.Fprintln(out, "No runs match deletion criteria.")
		return nil
	}

	fmt.Fprintf(out, "Found %d run(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Fprintf(out, "  - %s (%s on %s, %s)\n", shortID(info.ID), info.Algorithm, info.Function, humanize.Time(info.Timestamp))
	}

	if !forceClean {
		fmt.Fprint(out, "\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Fscanln(cmd.InOrStdin(), &response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	deleted, failed := deleteRuns(runs, toDelete)
	fmt.Fprintf(out, "\nDeleted %d run(s), %d failed.\n", deleted, failed)
	return nil
}

func deleteRuns(runs store.Store, infos []store.RunInfo) (deleted, failed int) {
	for _, info := range infos {
		if err := runs.DeleteRun(info.ID); err != nil {
			slog.Error("Failed to delete run", "run_id", info.ID, "error", err)
			failed++
			continue
		}
		slog.Info("Deleted run", "run_id", info.ID)
		deleted++
	}
	return deleted, failed
}

// selectRunsForDeletion returns, oldest first, every run older than the age
// limit plus every run beyond the newest keepLast.
func selectRunsForDeletion(infos []store.RunInfo, keepLast, olderThanDays int, now time.Time) []store.RunInfo {
	sorted := slices.Clone(infos)
	store.SortNewestFirst(sorted)

	var cutoff time.Time
	if olderThanDays > 0 {
		cutoff = now.AddDate(0, 0, -olderThanDays)
	}

	var toDelete []store.RunInfo
	for i, info := range sorted {
		tooMany := keepLast > 0 && i >= keepLast
		tooOld := olderThanDays > 0 && info.Timestamp.Before(cutoff)
		if tooMany || tooOld {
			toDelete = append(toDelete, info)
		}
	}
	slices.Reverse(toDelete)
	return toDelete
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		return nil
	})
	return size, err
}
