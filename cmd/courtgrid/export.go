package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/courtgrid/internal/config"
	"github.com/nao1215/courtgrid/internal/database"
	"github.com/nao1215/courtgrid/internal/export"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [category]",
		Short: "Export a completed harvest snapshot to CSV without touching the network",
		Long: `Export flattens the stored snapshot of a completed harvest into a CSV
file. No network requests are made.

Unlike the automatic export at the end of a harvest, this command keeps
the snapshot in place, so it can be run repeatedly with different
output paths.

Examples:
  # Export the default category
  courtgrid export

  # Export a specific category to a custom path
  courtgrid export disposed_cases -o disposed.csv

  # Also write a Markdown summary
  courtgrid export -m summary.md`,
		Args: cobra.MaximumNArgs(1),
		RunE: runExportCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"CSV output file path")
	cmd.Flags().StringP("summary", "m", "",
		"Write a Markdown run summary to the specified file")
	cmd.Flags().String("state-dir", "",
		"Directory for the snapshot database (default: XDG data directory)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .courtgrid in current or home directory)")

	return cmd
}

// runExportCmd executes the export command.
func runExportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildOfflineConfig(cmd, args)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.StateDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Best effort close

	snapshot, err := db.LoadSnapshot(cmd.Context(), cfg.Category)
	if err != nil {
		if errors.Is(err, database.ErrSnapshotNotFound) {
			return fmt.Errorf("no snapshot for category %s; run `courtgrid harvest %s` first", cfg.Category, cfg.Category)
		}
		return err
	}

	outputFile := cfg.ResolvedOutputFile()
	if err := writeCSV(snapshot.Tree, outputFile); err != nil {
		if errors.Is(err, export.ErrTreeNotDone) {
			return fmt.Errorf("harvest of %s is still in progress; rerun `courtgrid harvest %s` to finish it", cfg.Category, cfg.Category)
		}
		return err
	}

	counts := snapshot.Tree.Count()
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d judge records to %s\n", counts.Judges, outputFile)

	if cfg.SummaryFile != "" {
		if err := writeSummary(snapshot.Tree, snapshot.Counter, cfg.SummaryFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote run summary to %s\n", cfg.SummaryFile)
	}
	return nil
}

// buildOfflineConfig assembles the config shared by the offline
// commands, which only need output, state, and config-file flags.
func buildOfflineConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	if len(args) > 0 {
		cfg.Category = args[0]
	}

	var err error

	if flag := cmd.Flags().Lookup("output"); flag != nil {
		cfg.OutputFile, err = cmd.Flags().GetString("output")
		if err != nil {
			return nil, err
		}
	}

	if flag := cmd.Flags().Lookup("summary"); flag != nil {
		cfg.SummaryFile, err = cmd.Flags().GetString("summary")
		if err != nil {
			return nil, err
		}
	}

	stateDir, err := cmd.Flags().GetString("state-dir")
	if err != nil {
		return nil, err
	}
	if stateDir != "" {
		cfg.StateDir = stateDir
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.Categories, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.Categories = &config.File{
			Categories: make(map[string]config.CategoryConfig),
		}
	}

	return cfg, nil
}
