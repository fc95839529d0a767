package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

//go:embed templates/courtgrid.yaml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = ".courtgrid"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new courtgrid configuration file",
		Long: `Initialize creates a new .courtgrid configuration file in the current directory.

The generated file includes:
- Defaults applied to every report category
- Commented examples for per-category overrides
- Documentation for all available options

Examples:
  # Create .courtgrid in current directory
  courtgrid init

  # Create config file at a specific path
  courtgrid init -o myconfig.yaml

  # Force overwrite existing file
  courtgrid init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	// Check if file already exists
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	// Read template from embedded filesystem
	content, err := configTemplate.ReadFile("templates/courtgrid.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write configuration file
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), "Edit this file to configure per-category settings such as:")
	fmt.Fprintln(cmd.OutOrStdout(), "  - CSV output paths per report category")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Entry path templates for non-standard reports")
	fmt.Fprintln(cmd.OutOrStdout(), "  - The judge-level URL suffix")

	return nil
}
