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

	"github.com/nao1215/linkrank/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "linkrank.db"

// timestampLayout is how run timestamps are stored. The fixed-width
// fraction keeps lexical and chronological order identical.
const timestampLayout = "2006-01-02 15:04:05.000"

// RankDB provides SQLite-based storage for rank runs.
// Every run is stored twice: as the full JSON report, for redisplay, and
// as one row per page, so the history of a single page can be queried
// without decoding reports.
//
// Design decision: We use a single database file for all corpora rather
// than separate files per corpus. This keeps cross-corpus listing trivial
// and backup a single copy.
type RankDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RankDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RankDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RankDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

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

	// modernc.org/sqlite takes the open mode as a DSN parameter:
	// mode=rw refuses to create a file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RankDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the path of the database file.
func (rdb *RankDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *RankDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RankDB) createTables() error {
	schema := `
	-- One row per ranked corpus per invocation
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		corpus TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		damping REAL NOT NULL,
		samples INTEGER NOT NULL,
		threshold REAL NOT NULL,
		seed INTEGER NOT NULL DEFAULT 0,
		pages INTEGER NOT NULL,
		links INTEGER NOT NULL,
		rounds INTEGER NOT NULL DEFAULT 0,
		deviation REAL NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_corpus ON runs(corpus);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);

	-- Per-page estimates of each run
	CREATE TABLE IF NOT EXISTS ranks (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		page TEXT NOT NULL,
		sampled REAL,
		iterated REAL,
		PRIMARY KEY (run_id, page)
	);

	CREATE INDEX IF NOT EXISTS idx_ranks_page ON ranks(page);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRankReport stores a report and its per-page estimates in one
// transaction and returns the new run ID.
func (rdb *RankDB) SaveRankReport(ctx context.Context, report *model.RankReport) (int64, error) {
	if report.Summary == nil && report.Graph != nil {
		report.Summary = model.NewSummary(report)
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // No-op after Commit
	}()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (corpus, timestamp, damping, samples, threshold, seed, pages, links, rounds, deviation, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.Corpus,
		report.DateRanked.UTC().Format(timestampLayout),
		report.Damping,
		report.Samples,
		report.Threshold,
		int64(report.Seed), //nolint:gosec // Stored bit-for-bit, converted back on read
		report.PageCount,
		report.LinkCount,
		report.Rounds,
		report.Deviation(),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ranks (run_id, page, sampled, iterated) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare rank insert: %w", err)
	}
	defer stmt.Close()

	for _, page := range reportPages(report) {
		_, err := stmt.ExecContext(ctx, runID, string(page),
			nullableScore(report.Sampled, page),
			nullableScore(report.Iterated, page),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to save rank of %s: %w", page, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	return runID, nil
}

// GetLatestRankReport retrieves the most recent report for a corpus.
// It returns nil, nil if the corpus has never been ranked.
func (rdb *RankDB) GetLatestRankReport(ctx context.Context, corpus string) (*model.RankReport, error) {
	query := `
	SELECT report_json FROM runs
	WHERE corpus = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	return rdb.queryReport(ctx, query, corpus)
}

// GetRankReportByID retrieves a report by its run ID.
// It returns nil, nil if no such run exists.
func (rdb *RankDB) GetRankReportByID(ctx context.Context, id int64) (*model.RankReport, error) {
	return rdb.queryReport(ctx, `SELECT report_json FROM runs WHERE id = ?`, id)
}

func (rdb *RankDB) queryReport(ctx context.Context, query string, args ...any) (*model.RankReport, error) {
	var reportJSON string
	err := rdb.db.QueryRowContext(ctx, query, args...).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rank report: %w", err)
	}

	var report model.RankReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// ListCorpora returns every corpus that has at least one stored run, sorted.
func (rdb *RankDB) ListCorpora(ctx context.Context) ([]string, error) {
	rows, err := rdb.db.QueryContext(ctx, `SELECT DISTINCT corpus FROM runs ORDER BY corpus`)
	if err != nil {
		return nil, fmt.Errorf("failed to list corpora: %w", err)
	}
	defer rows.Close()

	var corpora []string
	for rows.Next() {
		var corpus string
		if err := rows.Scan(&corpus); err != nil {
			return nil, fmt.Errorf("failed to scan corpus: %w", err)
		}
		corpora = append(corpora, corpus)
	}

	return corpora, rows.Err()
}

// RunMetadata contains summary information about a stored run.
// This is used for displaying run history without loading the full report.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64 `json:"id"`

	// Corpus is the ranked directory.
	Corpus string `json:"corpus"`

	// Timestamp is when the run started.
	Timestamp time.Time `json:"timestamp"`

	// Damping, Samples, Threshold and Seed are the run parameters.
	Damping   float64 `json:"damping"`
	Samples   int     `json:"samples"`
	Threshold float64 `json:"threshold"`
	Seed      uint64  `json:"seed,omitempty"`

	// Pages and Links describe the graph.
	Pages int `json:"pages"`
	Links int `json:"links"`

	// Rounds is the number of iteration rounds.
	Rounds int `json:"rounds"`

	// Deviation is the largest sampled-vs-iterated difference.
	Deviation float64 `json:"deviation"`
}

// GetRunHistory retrieves run metadata for a corpus, newest first.
func (rdb *RankDB) GetRunHistory(ctx context.Context, corpus string) ([]RunMetadata, error) {
	query := `
	SELECT id, corpus, timestamp, damping, samples, threshold, seed, pages, links, rounds, deviation
	FROM runs
	WHERE corpus = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := rdb.db.QueryContext(ctx, query, corpus)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var timestamp string
		var seed int64

		err := rows.Scan(
			&meta.ID,
			&meta.Corpus,
			&timestamp,
			&meta.Damping,
			&meta.Samples,
			&meta.Threshold,
			&seed,
			&meta.Pages,
			&meta.Links,
			&meta.Rounds,
			&meta.Deviation,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		meta.Seed = uint64(seed) //nolint:gosec // Stored bit-for-bit
		results = append(results, meta)
	}

	return results, rows.Err()
}

// PageRecord is the estimate of one page in one run.
type PageRecord struct {
	// RunID identifies the run.
	RunID int64 `json:"run_id"`

	// Timestamp is when the run started.
	Timestamp time.Time `json:"timestamp"`

	// Damping is the damping factor of the run.
	Damping float64 `json:"damping"`

	// Sampled and Iterated are nil when the estimator did not run.
	Sampled  *float64 `json:"sampled,omitempty"`
	Iterated *float64 `json:"iterated,omitempty"`
}

// GetPageHistory retrieves the estimates of one page across all runs of a
// corpus, newest first.
func (rdb *RankDB) GetPageHistory(ctx context.Context, corpus string, page model.PageID) ([]PageRecord, error) {
	query := `
	SELECT r.id, r.timestamp, r.damping, k.sampled, k.iterated
	FROM ranks k
	JOIN runs r ON r.id = k.run_id
	WHERE r.corpus = ? AND k.page = ?
	ORDER BY r.timestamp DESC, r.id DESC
	`

	rows, err := rdb.db.QueryContext(ctx, query, corpus, string(page))
	if err != nil {
		return nil, fmt.Errorf("failed to get page history: %w", err)
	}
	defer rows.Close()

	var results []PageRecord
	for rows.Next() {
		var rec PageRecord
		var timestamp string
		var sampled, iterated sql.NullFloat64

		if err := rows.Scan(&rec.RunID, &timestamp, &rec.Damping, &sampled, &iterated); err != nil {
			return nil, fmt.Errorf("failed to scan page record: %w", err)
		}

		rec.Timestamp = parseTimestamp(timestamp)
		if sampled.Valid {
			rec.Sampled = &sampled.Float64
		}
		if iterated.Valid {
			rec.Iterated = &iterated.Float64
		}
		results = append(results, rec)
	}

	return results, rows.Err()
}

// reportPages returns the pages of a report, preferring the graph and
// falling back to whichever estimate is present.
func reportPages(report *model.RankReport) []model.PageID {
	if report.Graph != nil {
		return report.Graph.Pages()
	}
	for _, d := range []model.Distribution{report.Iterated, report.Sampled} {
		if d != nil {
			ranks := d.Sorted()
			pages := make([]model.PageID, len(ranks))
			for i, r := range ranks {
				pages[i] = r.Page
			}
			return pages
		}
	}
	return nil
}

func nullableScore(d model.Distribution, page model.PageID) sql.NullFloat64 {
	if d == nil {
		return sql.NullFloat64{}
	}
	v, ok := d[page]
	return sql.NullFloat64{Float64: v, Valid: ok}
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",  // SQLite default datetime format
	"2006-01-02T15:04:05Z", // ISO 8601 with Z suffix
	time.RFC3339Nano,
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
