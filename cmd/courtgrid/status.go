package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/courtgrid/internal/database"
	"github.com/nao1215/courtgrid/internal/export"
)

// statusHistoryLimit caps the number of pass records shown.
const statusHistoryLimit = 10

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [category]",
		Short: "Show harvest progress and pass history for a category",
		Long: `Status prints a summary of the stored snapshot for a report category,
including per-state progress and the recent pass history. No network
requests are made.

Examples:
  # Show status for the default category
  courtgrid status

  # Show status for a specific category
  courtgrid status disposed_cases`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStatusCmd,
	}

	cmd.Flags().String("state-dir", "",
		"Directory for the snapshot database (default: XDG data directory)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .courtgrid in current or home directory)")

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildOfflineConfig(cmd, args)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.StateDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Best effort close

	out := cmd.OutOrStdout()

	snapshot, err := db.LoadSnapshot(cmd.Context(), cfg.Category)
	switch {
	case errors.Is(err, database.ErrSnapshotNotFound):
		fmt.Fprintf(out, "No snapshot for category %s.\n", cfg.Category)
		fmt.Fprintf(out, "A completed harvest clears its snapshot after export; see the pass history below for past runs.\n\n")
	case err != nil:
		return err
	default:
		if _, err := export.NewMarkdownWriter(out).Write(export.NewSummary(snapshot.Tree, snapshot.Counter)); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	return printPassHistory(cmd, db, cfg.Category)
}

// printPassHistory renders the recent pass records for a category.
func printPassHistory(cmd *cobra.Command, db *database.StateDB, category string) error {
	passes, err := db.PassHistory(cmd.Context(), category)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(passes) == 0 {
		fmt.Fprintf(out, "No pass history for category %s.\n", category)
		return nil
	}

	if len(passes) > statusHistoryLimit {
		passes = passes[:statusHistoryLimit]
	}

	fmt.Fprintf(out, "Recent passes for %s:\n", category)
	for _, pass := range passes {
		state := "incomplete"
		if pass.Completed {
			state = "completed"
		}
		fmt.Fprintf(out, "  %s  %-10s  %d judge records  (%s)\n",
			pass.FinishedAt.Format("2006-01-02 15:04:05"),
			state,
			pass.Judges,
			pass.FinishedAt.Sub(pass.StartedAt).Round(time.Millisecond),
		)
	}
	return nil
}
