// Package main provides the entry point for the courtgrid CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for courtgrid.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courtgrid",
		Short: "Harvester for judge-level statistics from the NJDG portal",
		Long: `courtgrid harvests judge-level case statistics from the National
Judicial Data Grid portal (njdg.ecourts.gov.in).

It authenticates through the portal's captcha gate, walks the
state > district > court establishment > judge hierarchy, and exports
the result as a flat CSV. Progress is snapshotted continuously, so an
interrupted harvest resumes exactly where it stopped.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewHarvestCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
