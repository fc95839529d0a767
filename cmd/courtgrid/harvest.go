package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/courtgrid/internal/auth"
	"github.com/nao1215/courtgrid/internal/config"
	"github.com/nao1215/courtgrid/internal/crawl"
	"github.com/nao1215/courtgrid/internal/database"
	"github.com/nao1215/courtgrid/internal/export"
	"github.com/nao1215/courtgrid/internal/fetch"
	"github.com/nao1215/courtgrid/internal/log"
	"github.com/nao1215/courtgrid/internal/model"
	"github.com/nao1215/courtgrid/internal/pipeline"
)

// NewHarvestCmd creates the harvest command.
func NewHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest [category...]",
		Short: "Harvest judge-level statistics for one or more report categories",
		Long: `Harvest walks the portal's report hierarchy for each category and
exports the judge-level records as CSV once the tree is complete.

The harvest is resumable: progress is snapshotted after every fetched
page, so interrupting with Ctrl-C and rerunning continues where the
previous run stopped. Subtrees that failed transiently are retried on
the next pass.

Examples:
  # Harvest the default category (totalpending_cases)
  courtgrid harvest

  # Harvest a specific category with a custom output file
  courtgrid harvest disposed_cases -o disposed.csv

  # Harvest several categories, two at a time
  courtgrid harvest totalpending_cases disposed_cases --batch 2

  # Limit automatic restarts and write a run summary
  courtgrid harvest --max-passes 10 --summary run.md

Configuration file (.courtgrid) example:
  defaults:
    leafSuffix: "&captchaValid=valid"
  categories:
    disposed_cases:
      output: disposed.csv`,
		Args: cobra.ArbitraryArgs,
		RunE: runHarvestCmd,
	}

	// Portal flags
	cmd.Flags().StringP("base-url", "u", config.DefaultBaseURL,
		"Portal root URL")
	cmd.Flags().StringP("solver", "s", config.DefaultSolverURL,
		"External captcha solver endpoint")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-request timeout")

	// Retry flags
	cmd.Flags().IntP("auth-attempts", "a", config.DefaultAuthAttempts,
		"Maximum captcha attempts before giving up")
	cmd.Flags().IntP("max-passes", "p", config.DefaultMaxPasses,
		"Maximum crawl passes, 0 for unbounded")
	cmd.Flags().Duration("pass-delay", config.DefaultPassDelay,
		"Pause between crawl passes")

	// Batch flag
	cmd.Flags().IntP("batch", "b", 1,
		"Number of categories harvested concurrently")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"CSV output file path")
	cmd.Flags().StringP("summary", "m", "",
		"Write a Markdown run summary to the specified file")
	cmd.Flags().String("state-dir", "",
		"Directory for the snapshot database (default: XDG data directory)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .courtgrid in current or home directory)")

	return cmd
}

// runHarvestCmd executes the harvest command.
func runHarvestCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	categories := args
	if len(categories) == 0 {
		categories = []string{cfg.Category}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewRedactLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, snapshotting and stopping...")
		cancel()
	}()

	batchSize, err := cmd.Flags().GetInt("batch")
	if err != nil {
		return err
	}

	return runHarvest(ctx, cfg, categories, batchSize, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.BaseURL, err = cmd.Flags().GetString("base-url")
	if err != nil {
		return nil, err
	}

	cfg.SolverURL, err = cmd.Flags().GetString("solver")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.AuthAttempts, err = cmd.Flags().GetInt("auth-attempts")
	if err != nil {
		return nil, err
	}

	cfg.MaxPasses, err = cmd.Flags().GetInt("max-passes")
	if err != nil {
		return nil, err
	}

	cfg.PassDelay, err = cmd.Flags().GetDuration("pass-delay")
	if err != nil {
		return nil, err
	}

	cfg.OutputFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.SummaryFile, err = cmd.Flags().GetString("summary")
	if err != nil {
		return nil, err
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

	cfg.Verbose = getVerboseFlag(cmd)

	// Load per-category overrides from the config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
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

// runHarvest executes the harvest for the given categories.
func runHarvest(ctx context.Context, cfg *config.Config, categories []string, batchSize int, logger *slog.Logger) error {
	logger.Info("starting harvest",
		"categories", categories,
		"base_url", cfg.BaseURL,
		"state_dir", cfg.StateDir,
	)

	db, err := database.Open(cfg.StateDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Best effort close

	if len(categories) > 1 && batchSize > 1 {
		return runBatchHarvest(ctx, cfg, categories, batchSize, db, logger)
	}

	for _, category := range categories {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := harvestCategory(ctx, categoryConfig(cfg, category), db, logger); err != nil {
			return err
		}
	}
	return nil
}

// runBatchHarvest harvests multiple categories concurrently.
func runBatchHarvest(ctx context.Context, cfg *config.Config, categories []string, batchSize int, db *database.StateDB, logger *slog.Logger) error {
	fmt.Printf("Harvesting %d categories (concurrency: %d)...\n\n", len(categories), batchSize)

	runs := make([]*pipeline.Run, 0, len(categories))
	configs := make(map[string]*config.Config, len(categories))
	for _, category := range categories {
		catCfg := categoryConfig(cfg, category)
		configs[category] = catCfg

		run, err := loadRun(ctx, catCfg, db, logger)
		if err != nil {
			return err
		}
		runs = append(runs, run)
	}

	batch := pipeline.NewBatchRunner(
		func(run *pipeline.Run) *pipeline.Runner {
			return newRunner(configs[run.Tree.Category], db, logger)
		},
		pipeline.WithConcurrency(batchSize),
		pipeline.WithBatchLogger(logger),
	)

	if err := batch.ProcessBatch(ctx, runs); err != nil {
		return err
	}

	var firstErr error
	for _, run := range runs {
		category := run.Tree.Category
		if run.Err != nil {
			fmt.Fprintf(os.Stderr, "Harvest failed for %s: %v\n", category, run.Err)
			if firstErr == nil {
				firstErr = run.Err
			}
			continue
		}
		if err := exportRun(ctx, configs[category], run, db, logger); err != nil {
			return err
		}
	}
	return firstErr
}

// harvestCategory runs one category to completion and exports it.
func harvestCategory(ctx context.Context, cfg *config.Config, db *database.StateDB, logger *slog.Logger) error {
	run, err := loadRun(ctx, cfg, db, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Harvesting %s...\n", cfg.Category)
	startTime := time.Now()

	runner := newRunner(cfg, db, logger)
	if err := runner.Execute(ctx, run); err != nil {
		if errors.Is(err, pipeline.ErrPassBudgetExhausted) {
			counts := run.Tree.Count()
			fmt.Fprintf(os.Stderr,
				"Pass budget exhausted for %s with %d judge records captured; rerun to resume.\n",
				cfg.Category, counts.Judges)
		}
		return err
	}

	fmt.Printf("Harvest completed in %s\n\n", time.Since(startTime).Round(time.Millisecond))
	return exportRun(ctx, cfg, run, db, logger)
}

// loadRun builds a run from the category's snapshot, or a fresh tree
// when none exists.
func loadRun(ctx context.Context, cfg *config.Config, db *database.StateDB, logger *slog.Logger) (*pipeline.Run, error) {
	snapshot, err := db.LoadSnapshot(ctx, cfg.Category)
	if err != nil {
		if !errors.Is(err, database.ErrSnapshotNotFound) {
			return nil, err
		}
		logger.Info("starting fresh harvest", "category", cfg.Category)
		return &pipeline.Run{Tree: model.NewTree(cfg.Category, cfg.EntryURL())}, nil
	}

	counts := snapshot.Tree.Count()
	logger.Info("resuming from snapshot",
		"category", cfg.Category,
		"saved_at", snapshot.SavedAt,
		"states", counts.States,
		"judges", counts.Judges,
	)
	return &pipeline.Run{Tree: snapshot.Tree, Counter: snapshot.Counter}, nil
}

// newRunner wires the authenticate and crawl steps for one category.
func newRunner(cfg *config.Config, db *database.StateDB, logger *slog.Logger) *pipeline.Runner {
	runner := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithPassDelay(cfg.PassDelay),
		pipeline.WithMaxPasses(cfg.MaxPasses),
		pipeline.WithPassHook(passHook(db)),
	)
	runner.AddSteps(
		pipeline.NewAuthenticateStep(newAuthenticator(cfg, logger)),
		pipeline.NewCrawlStep(fetcherFactory(cfg, logger),
			crawl.WithLeafSuffix(cfg.ResolvedLeafSuffix()),
			crawl.WithLogger(logger),
			crawl.WithCheckpoint(checkpoint(db)),
		),
	)
	return runner
}

// newAuthenticator builds the portal authenticator from config.
func newAuthenticator(cfg *config.Config, logger *slog.Logger) *auth.Authenticator {
	return auth.NewAuthenticator(cfg.BaseURL,
		auth.NewHTTPSolver(cfg.SolverURL, cfg.Timeout),
		auth.WithAttempts(cfg.AuthAttempts),
		auth.WithRetryDelay(cfg.AuthRetryDelay),
		auth.WithTimeout(cfg.Timeout),
		auth.WithUserAgent(cfg.UserAgent),
		auth.WithLogger(logger),
	)
}

// fetcherFactory builds the per-pass page fetcher from a session.
func fetcherFactory(cfg *config.Config, logger *slog.Logger) func(*auth.Session) crawl.TableFetcher {
	return func(session *auth.Session) crawl.TableFetcher {
		return fetch.NewFetcher(session,
			fetch.WithLogger(logger),
			fetch.WithMaxBodySize(cfg.MaxBodySize),
		)
	}
}

// checkpoint persists the tree and counter after every node settle.
func checkpoint(db *database.StateDB) crawl.Checkpoint {
	return func(tree *model.Tree, counter int) error {
		return db.SaveSnapshot(context.Background(), &model.Snapshot{
			Tree:    tree,
			Counter: counter,
			SavedAt: time.Now().UTC(),
		})
	}
}

// passHook persists the snapshot and records pass history after every
// pass, including failed ones, so a crash between passes loses nothing.
func passHook(db *database.StateDB) pipeline.PassHook {
	return func(ctx context.Context, run *pipeline.Run, startedAt time.Time, passErr error) error {
		if err := db.SaveSnapshot(context.Background(), &model.Snapshot{
			Tree:    run.Tree,
			Counter: run.Counter,
			SavedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
		return db.RecordPass(context.Background(), &database.PassRecord{
			Category:   run.Tree.Category,
			StartedAt:  startedAt,
			FinishedAt: time.Now().UTC(),
			Judges:     run.Counter,
			Completed:  run.Tree.Done() && passErr == nil,
		})
	}
}

// exportRun writes the finished tree's deliverables and clears the
// snapshot so the next harvest of the category starts fresh.
func exportRun(ctx context.Context, cfg *config.Config, run *pipeline.Run, db *database.StateDB, logger *slog.Logger) error {
	outputFile := cfg.ResolvedOutputFile()
	if err := writeCSV(run.Tree, outputFile); err != nil {
		return err
	}

	counts := run.Tree.Count()
	fmt.Printf("Exported %d judge records to %s\n", counts.Judges, outputFile)

	if cfg.SummaryFile != "" {
		if err := writeSummary(run.Tree, run.Counter, cfg.SummaryFile); err != nil {
			return err
		}
		fmt.Printf("Wrote run summary to %s\n", cfg.SummaryFile)
	}

	if err := db.DeleteSnapshot(ctx, run.Tree.Category); err != nil {
		return err
	}
	logger.Info("snapshot cleared after export", "category", run.Tree.Category)
	return nil
}

// writeCSV flattens the tree into the output file.
func writeCSV(tree *model.Tree, path string) error {
	records, err := export.Flatten(tree)
	if err != nil {
		return err
	}

	f, err := createOutputFile(path)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // Best effort close

	if _, err := export.NewCSVWriter(f).Write(records); err != nil {
		return err
	}
	return f.Sync()
}

// writeSummary renders the Markdown run summary into the given file.
func writeSummary(tree *model.Tree, counter int, path string) error {
	f, err := createOutputFile(path)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // Best effort close

	_, err = export.NewMarkdownWriter(f).Write(export.NewSummary(tree, counter))
	return err
}

// createOutputFile creates path, making parent directories as needed.
func createOutputFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// categoryConfig clones cfg for one category.
func categoryConfig(cfg *config.Config, category string) *config.Config {
	clone := *cfg
	clone.Category = category
	return &clone
}
