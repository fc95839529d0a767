package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestNewConfig tests default configuration values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %q", cfg.BaseURL)
	}
	if cfg.Category != DefaultCategory {
		t.Errorf("expected default category, got %q", cfg.Category)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", cfg.Timeout)
	}
	if cfg.AuthAttempts != DefaultAuthAttempts {
		t.Errorf("expected default auth attempts, got %d", cfg.AuthAttempts)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

// TestConfigValidate tests configuration validation rules.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "missing base URL",
			mutate:  func(c *Config) { c.BaseURL = "" },
			wantErr: ErrNoBaseURL,
		},
		{
			name:    "missing category",
			mutate:  func(c *Config) { c.Category = "" },
			wantErr: ErrNoCategory,
		},
		{
			name:    "entry path without placeholder",
			mutate:  func(c *Config) { c.EntryPath = "/stat_reports/national_detail.php" },
			wantErr: ErrInvalidEntryPath,
		},
		{
			name:    "entry path with two placeholders",
			mutate:  func(c *Config) { c.EntryPath = "/%s/%s" },
			wantErr: ErrInvalidEntryPath,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Timeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "zero auth attempts",
			mutate:  func(c *Config) { c.AuthAttempts = 0 },
			wantErr: ErrInvalidAuthAttempts,
		},
		{
			name:    "negative max passes",
			mutate:  func(c *Config) { c.MaxPasses = -1 },
			wantErr: ErrInvalidMaxPasses,
		},
		{
			name:    "missing solver URL",
			mutate:  func(c *Config) { c.SolverURL = "" },
			wantErr: ErrNoSolverURL,
		},
		{
			name:    "missing output file",
			mutate:  func(c *Config) { c.OutputFile = "" },
			wantErr: ErrNoOutputFile,
		},
		{
			name:    "negative max body size",
			mutate:  func(c *Config) { c.MaxBodySize = -1 },
			wantErr: ErrInvalidMaxBodySize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestEntryURL tests entry URL composition.
func TestEntryURL(t *testing.T) {
	t.Parallel()

	t.Run("substitutes category", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.BaseURL = "http://example.com/portal"
		cfg.Category = "totalpending_cases"

		want := "http://example.com/portal/stat_reports/national_detail.php?objection1=totalpending_cases&type=both"
		if got := cfg.EntryURL(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("trailing slash on base URL is tolerated", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.BaseURL = "http://example.com/portal/"

		if strings.Contains(cfg.EntryURL(), "portal//") {
			t.Errorf("double slash in entry URL: %q", cfg.EntryURL())
		}
	})

	t.Run("category override replaces entry path", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.BaseURL = "http://example.com"
		cfg.Category = "disposed_cases"
		cfg.Categories = &File{
			Categories: map[string]CategoryConfig{
				"disposed_cases": {EntryPath: "/stat_reports/other.php?report=%s"},
			},
		}

		want := "http://example.com/stat_reports/other.php?report=disposed_cases"
		if got := cfg.EntryURL(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})
}

// TestLoadConfigFile tests YAML config file loading.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("loads categories and defaults", func(t *testing.T) {
		t.Parallel()

		content := `
defaults:
  leafSuffix: "&captchaValid=valid"
categories:
  totalpending_cases:
    output: pending.csv
  disposed_cases:
    entryPath: "/stat_reports/other.php?report=%s"
`
		path := filepath.Join(t.TempDir(), ".courtgrid")
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		got := cf.GetCategoryConfig("totalpending_cases")
		if got.Output != "pending.csv" {
			t.Errorf("expected category output override, got %q", got.Output)
		}
		if got.LeafSuffix != "&captchaValid=valid" {
			t.Errorf("expected default leaf suffix merged in, got %q", got.LeafSuffix)
		}

		other := cf.GetCategoryConfig("unknown_category")
		if other.Output != "" {
			t.Errorf("unknown category should only carry defaults, got %q", other.Output)
		}
	})

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("malformed yaml returns error", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".courtgrid")
		if err := os.WriteFile(path, []byte("categories: [not a map"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error for malformed yaml")
		}
	})
}

// TestFindConfigFile tests the config file search order.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit path wins when it exists", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("missing explicit path returns empty", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "nope")); got != "" {
			t.Errorf("expected empty path, got %q", got)
		}
	})
}
