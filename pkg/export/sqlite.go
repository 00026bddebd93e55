package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eunmann/huimine/pkg/logging"
	_ "github.com/mattn/go-sqlite3"
)

// RunInfo describes one threshold of one run in the runs table.
type RunInfo struct {
	RunID      string
	MinUtility float64
	MaxSize    int
	Input      string
	Elapsed    time.Duration
	CreatedAt  time.Time
}

// SQLite appends mining results to a database with two tables: runs
// (one row per run and threshold) and itemsets (one row per result).
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite creates or opens the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	log := logging.WithPhase("export")
	log.Debug().Str("db_path", path).Msg("opened SQLite export")
	return &SQLite{db: db, path: path}, nil
}

func createSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT NOT NULL,
			min_utility REAL NOT NULL,
			max_size INTEGER NOT NULL,
			input TEXT NOT NULL,
			itemsets INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (run_id, min_utility)
		)`,
		`CREATE TABLE IF NOT EXISTS itemsets (
			run_id TEXT NOT NULL,
			min_utility REAL NOT NULL,
			rank INTEGER NOT NULL,
			size INTEGER NOT NULL,
			items TEXT NOT NULL,
			labels TEXT NOT NULL,
			utility REAL NOT NULL,
			support INTEGER NOT NULL,
			PRIMARY KEY (run_id, min_utility, rank)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_itemsets_items ON itemsets (items)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// WriteRun stores rows for run in one transaction, replacing any previous
// rows of the same run and threshold.
func (s *SQLite) WriteRun(ctx context.Context, run RunInfo, rows []ResultRow) error {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range []string{"itemsets", "runs"} {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE run_id = ? AND min_utility = ?", run.RunID, run.MinUtility); err != nil {
			return fmt.Errorf("delete previous %s: %w", table, err)
		}
	}

	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, min_utility, max_size, input, itemsets, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.MinUtility, run.MaxSize, run.Input, len(rows),
		run.Elapsed.Milliseconds(), created.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO itemsets (run_id, min_utility, rank, size, items, labels, utility, support)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			run.RunID, run.MinUtility, r.Rank, r.Size, r.Items, r.Labels, r.Utility, r.Support); err != nil {
			return fmt.Errorf("insert itemset rank %d: %w", r.Rank, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	logging.FileCreated(*logging.L(), "export", time.Since(start)).
		Str("path", s.path).
		Str("format", "sqlite").
		Int("rows", len(rows)).
		LogDebug("sqlite rows written")
	return nil
}

// Itemsets returns the stored rows of one run and threshold in rank order.
func (s *SQLite) Itemsets(ctx context.Context, runID string, minUtility float64) ([]ResultRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rank, size, items, labels, utility, support FROM itemsets
		 WHERE run_id = ? AND min_utility = ? ORDER BY rank`, runID, minUtility)
	if err != nil {
		return nil, fmt.Errorf("query itemsets: %w", err)
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		r := ResultRow{RunID: runID, MinUtility: minUtility}
		if err := rows.Scan(&r.Rank, &r.Size, &r.Items, &r.Labels, &r.Utility, &r.Support); err != nil {
			return nil, fmt.Errorf("scan itemset: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunCount returns how many itemsets a run recorded, and whether the run
// exists.
func (s *SQLite) RunCount(ctx context.Context, runID string, minUtility float64) (int, bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT itemsets FROM runs WHERE run_id = ? AND min_utility = ?", runID, minUtility).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query run: %w", err)
	}
	return n, true, nil
}
