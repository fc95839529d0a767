package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// Network-facing defaults mirror the observed behavior of the NJDG
// portal; retry and delay defaults are deliberately conservative
// because the portal rate-limits aggressively during business hours.
const (
	// DefaultBaseURL is the root of the NJDG portal. Every request in a
	// harvest, including authentication, is made under this URL.
	DefaultBaseURL = "https://njdg.ecourts.gov.in/njdgv1"

	// DefaultCategory is the report category harvested when none is given.
	DefaultCategory = "totalpending_cases"

	// DefaultEntryPath is the path template for the national summary
	// report. The single %s placeholder receives the report category.
	DefaultEntryPath = "/stat_reports/national_detail.php?objection1=%s&type=both"

	// DefaultLeafSuffix is appended to court-level drill-down URLs.
	// Without it the portal re-challenges the session at the judge level.
	DefaultLeafSuffix = "&captchaValid=valid"

	// DefaultTimeout is the per-request timeout. The portal usually
	// answers within 2-3 seconds; 10 seconds gives slow establishment
	// pages room while still converting a hung request into a sentinel
	// promptly.
	DefaultTimeout = 10 * time.Second

	// DefaultAuthAttempts bounds the authentication retry loop. The
	// external solver is roughly 90% accurate, so five attempts push
	// the overall failure probability well below one in ten thousand.
	DefaultAuthAttempts = 5

	// DefaultAuthRetryDelay is the pause between authentication attempts.
	DefaultAuthRetryDelay = 2 * time.Second

	// DefaultPassDelay is the pause before restarting a crawl pass after
	// a non-fatal failure.
	DefaultPassDelay = 5 * time.Second

	// DefaultMaxPasses limits automatic restarts of the crawl. Zero
	// means keep restarting until the tree is complete or the operator
	// cancels.
	DefaultMaxPasses = 0

	// DefaultSolverURL is the endpoint of the external captcha solver.
	DefaultSolverURL = "http://dftly.com/precapt"

	// DefaultOutputFile is where the flattened CSV export is written.
	DefaultOutputFile = "output.csv"

	// DefaultUserAgent identifies courtgrid in HTTP requests.
	DefaultUserAgent = "courtgrid/1.0 (+https://github.com/nao1215/courtgrid)"

	// DefaultMaxBodySize limits the response body size read per page.
	// Listing pages are small; 2MB leaves generous headroom while
	// preventing memory exhaustion from a misbehaving response.
	DefaultMaxBodySize = 2 * 1024 * 1024 // 2MB

	// AppName is the application name used for XDG directory paths.
	AppName = "courtgrid"
)

// Config holds all configuration options for a harvest run.
// This struct is populated from CLI flags and the optional config file,
// then passed through the application via dependency injection rather
// than global state.
//
// Design decision: We use a single flat struct instead of nested
// sub-structs. The option count is manageable, and nesting would add
// complexity without benefit.
type Config struct {
	// BaseURL is the portal root. All fetch and authentication URLs are
	// resolved under it.
	BaseURL string

	// Category is the report category to harvest, substituted into
	// EntryPath to form the entry URL.
	Category string

	// EntryPath is the path template for the top-level report, with one
	// %s placeholder for the category.
	EntryPath string

	// LeafSuffix is the query fragment appended to court-level URLs
	// before fetching judge rows.
	LeafSuffix string

	// OutputFile is the CSV export destination.
	OutputFile string

	// SummaryFile, when non-empty, receives a Markdown run summary
	// alongside the CSV export.
	SummaryFile string

	// StateDir is the directory holding the snapshot database.
	// Defaults to the XDG data directory.
	StateDir string

	// Timeout is the per-request timeout for each fetch.
	Timeout time.Duration

	// AuthAttempts bounds the authentication retry loop.
	AuthAttempts int

	// AuthRetryDelay is the pause between authentication attempts.
	AuthRetryDelay time.Duration

	// PassDelay is the pause before restarting after a failed pass.
	PassDelay time.Duration

	// MaxPasses bounds automatic crawl restarts; zero means unbounded.
	MaxPasses int

	// SolverURL is the external captcha solver endpoint.
	SolverURL string

	// UserAgent is sent with every HTTP request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Verbose enables debug-level log output.
	Verbose bool

	// ConfigFilePath is the explicit config file path, if any. When
	// empty the tool searches for .courtgrid in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// Categories holds per-category overrides loaded from the config file.
	Categories *File
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work against the
// live portal. Users can override specific values after creation.
func NewConfig() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		Category:       DefaultCategory,
		EntryPath:      DefaultEntryPath,
		LeafSuffix:     DefaultLeafSuffix,
		OutputFile:     DefaultOutputFile,
		StateDir:       XDGDataDir(),
		Timeout:        DefaultTimeout,
		AuthAttempts:   DefaultAuthAttempts,
		AuthRetryDelay: DefaultAuthRetryDelay,
		PassDelay:      DefaultPassDelay,
		MaxPasses:      DefaultMaxPasses,
		SolverURL:      DefaultSolverURL,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
	}
}

// EntryURL returns the absolute entry URL for the configured category,
// with any per-category override from the config file applied.
func (c *Config) EntryURL() string {
	path := c.EntryPath
	if override := c.categoryConfig(); override.EntryPath != "" {
		path = override.EntryPath
	}
	return strings.TrimSuffix(c.BaseURL, "/") + fmt.Sprintf(path, c.Category)
}

// ResolvedOutputFile returns the CSV destination, honoring any
// per-category override from the config file.
func (c *Config) ResolvedOutputFile() string {
	if override := c.categoryConfig(); override.Output != "" && c.OutputFile == DefaultOutputFile {
		return override.Output
	}
	return c.OutputFile
}

// ResolvedLeafSuffix returns the judge-level URL suffix, honoring any
// per-category override from the config file.
func (c *Config) ResolvedLeafSuffix() string {
	if override := c.categoryConfig(); override.LeafSuffix != "" {
		return override.LeafSuffix
	}
	return c.LeafSuffix
}

// categoryConfig returns the merged per-category configuration.
func (c *Config) categoryConfig() CategoryConfig {
	if c.Categories == nil {
		return CategoryConfig{}
	}
	return c.Categories.GetCategoryConfig(c.Category)
}

// XDGDataDir returns the XDG data directory for courtgrid.
// On Linux: ~/.local/share/courtgrid
// On macOS: ~/Library/Application Support/courtgrid
// On Windows: %LOCALAPPDATA%\courtgrid
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for courtgrid.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// The first error found is returned because fixing one error often
// makes others irrelevant.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}

	if c.Category == "" {
		return ErrNoCategory
	}

	// The entry path must have exactly one substitution point for the category
	if strings.Count(c.EntryPath, "%s") != 1 {
		return ErrInvalidEntryPath
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// At least one authentication attempt is required
	if c.AuthAttempts <= 0 {
		return ErrInvalidAuthAttempts
	}

	if c.MaxPasses < 0 {
		return ErrInvalidMaxPasses
	}

	if c.SolverURL == "" {
		return ErrNoSolverURL
	}

	if c.OutputFile == "" {
		return ErrNoOutputFile
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
