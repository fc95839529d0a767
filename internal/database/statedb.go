package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/courtgrid/internal/model"
)

// DBFileName is the SQLite file created under the state directory.
const DBFileName = "courtgrid.db"

// ErrSnapshotNotFound is returned when no snapshot exists for the
// requested category.
var ErrSnapshotNotFound = errors.New("no snapshot for category")

// StateDB provides SQLite-based storage for crawl snapshots and pass
// history.
//
// Design decision: One database file holds every category rather than
// one file per category. Snapshots are keyed by category, so concurrent
// harvests of different categories never touch each other's rows, and
// a single file keeps backup and inspection simple.
type StateDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures StateDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging. Recommended: a crash
	// during a snapshot write must never corrupt the previous snapshot.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a StateDB under the given directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*StateDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &StateDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Close closes the database connection.
func (sdb *StateDB) Close() error {
	return sdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (sdb *StateDB) createTables() error {
	schema := `
	-- Snapshots hold the resumable crawl state, one row per category.
	-- The tree and its counter live in the same row so they are always
	-- saved and loaded as a pair.
	CREATE TABLE IF NOT EXISTS snapshots (
		category TEXT PRIMARY KEY,
		tree_json TEXT NOT NULL,
		counter INTEGER NOT NULL,
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Passes record the outcome of each crawl pass for the status command.
	CREATE TABLE IF NOT EXISTS passes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		judges INTEGER NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_passes_category ON passes(category);
	CREATE INDEX IF NOT EXISTS idx_passes_finished ON passes(finished_at);
	`

	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveSnapshot persists the tree and counter atomically under the
// tree's category, replacing any previous snapshot.
func (sdb *StateDB) SaveSnapshot(ctx context.Context, snapshot *model.Snapshot) error {
	treeJSON, err := json.Marshal(snapshot.Tree)
	if err != nil {
		return fmt.Errorf("failed to serialize tree: %w", err)
	}

	savedAt := snapshot.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO snapshots (category, tree_json, counter, saved_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(category) DO UPDATE SET
		tree_json = excluded.tree_json,
		counter = excluded.counter,
		saved_at = excluded.saved_at
	`

	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query,
		snapshot.Tree.Category,
		string(treeJSON),
		snapshot.Counter,
		savedAt.Format(time.RFC3339),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot retrieves the snapshot for a category, or
// ErrSnapshotNotFound if none has been saved.
func (sdb *StateDB) LoadSnapshot(ctx context.Context, category string) (*model.Snapshot, error) {
	query := `
	SELECT tree_json, counter, saved_at FROM snapshots
	WHERE category = ?
	`

	var treeJSON string
	var counter int
	var savedAt string

	err := sdb.db.QueryRowContext(ctx, query, category).Scan(&treeJSON, &counter, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, category)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var tree model.Tree
	if err := json.Unmarshal([]byte(treeJSON), &tree); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot tree: %w", err)
	}

	return &model.Snapshot{
		Tree:    &tree,
		Counter: counter,
		SavedAt: parseTimestamp(savedAt),
	}, nil
}

// DeleteSnapshot removes the snapshot for a category. Deleting a
// missing snapshot is not an error.
func (sdb *StateDB) DeleteSnapshot(ctx context.Context, category string) error {
	if _, err := sdb.db.ExecContext(ctx, `DELETE FROM snapshots WHERE category = ?`, category); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// PassRecord is the outcome of one crawl pass.
type PassRecord struct {
	// ID is the unique identifier of the pass in the database.
	ID int64

	// Category is the report category the pass harvested.
	Category string

	// StartedAt is when the pass began.
	StartedAt time.Time

	// FinishedAt is when the pass ended.
	FinishedAt time.Time

	// Judges is the judge record count at the end of the pass.
	Judges int

	// Completed reports whether the pass left the tree export-ready.
	Completed bool
}

// RecordPass appends a pass outcome to the history.
func (sdb *StateDB) RecordPass(ctx context.Context, pass *PassRecord) error {
	query := `
	INSERT INTO passes (category, started_at, finished_at, judges, completed)
	VALUES (?, ?, ?, ?, ?)
	`

	finishedAt := pass.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now().UTC()
	}

	if _, err := sdb.db.ExecContext(ctx, query,
		pass.Category,
		pass.StartedAt.Format(time.RFC3339),
		finishedAt.Format(time.RFC3339),
		pass.Judges,
		pass.Completed,
	); err != nil {
		return fmt.Errorf("failed to record pass: %w", err)
	}
	return nil
}

// PassHistory retrieves the pass history for a category, most recent
// first.
func (sdb *StateDB) PassHistory(ctx context.Context, category string) ([]PassRecord, error) {
	query := `
	SELECT id, category, started_at, finished_at, judges, completed
	FROM passes
	WHERE category = ?
	ORDER BY finished_at DESC, id DESC
	`

	rows, err := sdb.db.QueryContext(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query pass history: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Best effort close

	var results []PassRecord
	for rows.Next() {
		var pass PassRecord
		var startedAt, finishedAt string

		if err := rows.Scan(
			&pass.ID,
			&pass.Category,
			&startedAt,
			&finishedAt,
			&pass.Judges,
			&pass.Completed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pass record: %w", err)
		}

		pass.StartedAt = parseTimestamp(startedAt)
		pass.FinishedAt = parseTimestamp(finishedAt)
		results = append(results, pass)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
