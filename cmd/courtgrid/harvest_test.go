package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/courtgrid/internal/config"
)

// TestNewHarvestCmd tests the harvest command creation.
func TestNewHarvestCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHarvestCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "harvest [category...]" {
			t.Errorf("expected use 'harvest [category...]', got %q", cmd.Use)
		}
	})

	t.Run("has portal flags with defaults", func(t *testing.T) {
		t.Parallel()

		flag := cmd.Flags().Lookup("base-url")
		if flag == nil {
			t.Fatal("expected base-url flag")
		}
		if flag.DefValue != config.DefaultBaseURL {
			t.Errorf("expected default %q, got %q", config.DefaultBaseURL, flag.DefValue)
		}

		flag = cmd.Flags().Lookup("solver")
		if flag == nil {
			t.Fatal("expected solver flag")
		}
		if flag.DefValue != config.DefaultSolverURL {
			t.Errorf("expected default %q, got %q", config.DefaultSolverURL, flag.DefValue)
		}
	})

	t.Run("has retry flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"auth-attempts", "max-passes", "pass-delay"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})

	t.Run("has output flags", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("output")
		if flag == nil {
			t.Fatal("expected output flag")
		}
		if flag.DefValue != config.DefaultOutputFile {
			t.Errorf("expected default %q, got %q", config.DefaultOutputFile, flag.DefValue)
		}
		if cmd.Flags().Lookup("summary") == nil {
			t.Error("expected summary flag")
		}
		if cmd.Flags().Lookup("state-dir") == nil {
			t.Error("expected state-dir flag")
		}
	})

	t.Run("has batch flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("batch")
		if flag == nil {
			t.Fatal("expected batch flag")
		}
		if flag.DefValue != "1" {
			t.Errorf("expected default '1', got %q", flag.DefValue)
		}
	})
}

// TestBuildConfig tests flag-to-config translation.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults when no flags given", func(t *testing.T) {
		t.Parallel()

		cmd := NewHarvestCmd()
		if err := cmd.ParseFlags([]string{}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.BaseURL != config.DefaultBaseURL {
			t.Errorf("expected default base URL, got %q", cfg.BaseURL)
		}
		if cfg.Category != config.DefaultCategory {
			t.Errorf("expected default category, got %q", cfg.Category)
		}
		if cfg.AuthAttempts != config.DefaultAuthAttempts {
			t.Errorf("expected default auth attempts, got %d", cfg.AuthAttempts)
		}
	})

	t.Run("flags override defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewHarvestCmd()
		args := []string{
			"-u", "http://example.com/portal",
			"-o", "custom.csv",
			"-p", "3",
		}
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.BaseURL != "http://example.com/portal" {
			t.Errorf("expected overridden base URL, got %q", cfg.BaseURL)
		}
		if cfg.OutputFile != "custom.csv" {
			t.Errorf("expected overridden output, got %q", cfg.OutputFile)
		}
		if cfg.MaxPasses != 3 {
			t.Errorf("expected overridden max passes, got %d", cfg.MaxPasses)
		}
	})

	t.Run("loads explicit config file", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "courtgrid.yaml")
		content := `categories:
  disposed_cases:
    output: disposed.csv
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cmd := NewHarvestCmd()
		if err := cmd.ParseFlags([]string{"-c", configPath}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		override := cfg.Categories.GetCategoryConfig("disposed_cases")
		if override.Output != "disposed.csv" {
			t.Errorf("expected per-category output override, got %q", override.Output)
		}
	})

	t.Run("errors on missing explicit config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewHarvestCmd()
		missing := filepath.Join(t.TempDir(), "missing.yaml")
		if err := cmd.ParseFlags([]string{"-c", missing}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		if _, err := buildConfig(cmd); err == nil {
			t.Error("expected error for missing explicit config file")
		} else if !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected 'not found' error, got %v", err)
		}
	})
}

// TestCategoryConfig tests the per-category config clone.
func TestCategoryConfig(t *testing.T) {
	t.Parallel()

	base := config.NewConfig()
	base.OutputFile = "base.csv"

	clone := categoryConfig(base, "disposed_cases")
	if clone.Category != "disposed_cases" {
		t.Errorf("expected clone category 'disposed_cases', got %q", clone.Category)
	}
	if clone.OutputFile != "base.csv" {
		t.Errorf("expected clone to inherit output, got %q", clone.OutputFile)
	}
	if base.Category == "disposed_cases" {
		t.Error("expected base config to remain unchanged")
	}
}
