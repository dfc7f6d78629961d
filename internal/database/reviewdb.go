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

	"github.com/FarDust/criticat/internal/model"
)

// FileName is the database file created in the data directory.
const FileName = "criticat.db"

// ReviewDB stores completed reviews in SQLite so a document's reviews can be
// compared over time.
type ReviewDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures ReviewDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// ErrNotFound is returned when the database file does not exist and
// CreateIfNotExists is false.
var ErrNotFound = errors.New("review database not found")

// Open opens or creates the ReviewDB in dbDir.
func Open(dbDir string, opts Options) (*ReviewDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ReviewDB{
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

// Path returns the database file path.
func (rdb *ReviewDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *ReviewDB) Close() error {
	return rdb.db.Close()
}

func (rdb *ReviewDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document TEXT NOT NULL,
		digest TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		pass INTEGER NOT NULL,
		issue_count INTEGER NOT NULL,
		unanalyzed_count INTEGER NOT NULL,
		model TEXT,
		severity_summary TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_document ON reviews(document);
	CREATE INDEX IF NOT EXISTS idx_reviews_digest ON reviews(digest);
	CREATE INDEX IF NOT EXISTS idx_reviews_timestamp ON reviews(timestamp);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// ReviewRecord summarizes a stored review without loading the report.
type ReviewRecord struct {
	ID              int64
	Document        string
	Digest          string
	Timestamp       time.Time
	Pass            bool
	IssueCount      int
	UnanalyzedCount int
	Model           string
	// SeveritySummary counts issues by severity name.
	SeveritySummary map[string]int
}

// SaveReview stores r and returns its ID.
func (rdb *ReviewDB) SaveReview(ctx context.Context, r model.ReviewReport) (int64, error) {
	reportJSON, err := json.Marshal(r)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	summary := make(map[string]int, len(model.Severities))
	for _, s := range model.Severities {
		summary[s.String()] = 0
	}
	for s, n := range r.Verdict.CountBySeverity() {
		summary[s.String()] = n
	}
	summaryJSON, _ := json.Marshal(summary) //nolint:errcheck,errchkjson // map[string]int always marshals

	generated := r.Metadata.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	query := `
	INSERT INTO reviews (document, digest, timestamp, pass, issue_count, unanalyzed_count, model, severity_summary, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := rdb.db.ExecContext(ctx, query,
		r.Metadata.Document,
		r.Metadata.Digest,
		generated.UTC().Format(timestampLayout),
		r.Verdict.Pass,
		r.Verdict.IssueCount,
		len(r.Verdict.UnanalyzedPages),
		r.Metadata.Model,
		string(summaryJSON),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save review: %w", err)
	}
	return res.LastInsertId()
}

// LatestReview returns the most recent review of document, or nil when
// there is none.
func (rdb *ReviewDB) LatestReview(ctx context.Context, document string) (*model.ReviewReport, error) {
	query := `
	SELECT report_json FROM reviews
	WHERE document = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	return rdb.queryReport(ctx, query, document)
}

// ReviewByID returns the review with the given ID, or nil when there is none.
func (rdb *ReviewDB) ReviewByID(ctx context.Context, id int64) (*model.ReviewReport, error) {
	return rdb.queryReport(ctx, `SELECT report_json FROM reviews WHERE id = ?`, id)
}

func (rdb *ReviewDB) queryReport(ctx context.Context, query string, args ...any) (*model.ReviewReport, error) {
	var reportJSON string
	err := rdb.db.QueryRowContext(ctx, query, args...).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	var r model.ReviewReport
	if err := json.Unmarshal([]byte(reportJSON), &r); err != nil {
		return nil, fmt.Errorf("failed to parse review: %w", err)
	}
	return &r, nil
}

// ListDocuments returns every reviewed document, sorted by name.
func (rdb *ReviewDB) ListDocuments(ctx context.Context) ([]string, error) {
	rows, err := rdb.db.QueryContext(ctx, `SELECT DISTINCT document FROM reviews ORDER BY document`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var documents []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		documents = append(documents, d)
	}
	return documents, rows.Err()
}

// History returns the reviews of document, newest first.
func (rdb *ReviewDB) History(ctx context.Context, document string) ([]ReviewRecord, error) {
	query := `
	SELECT id, document, digest, timestamp, pass, issue_count, unanalyzed_count, model, severity_summary
	FROM reviews
	WHERE document = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := rdb.db.QueryContext(ctx, query, document)
	if err != nil {
		return nil, fmt.Errorf("failed to get review history: %w", err)
	}
	defer rows.Close()

	var records []ReviewRecord
	for rows.Next() {
		var rec ReviewRecord
		var timestamp string
		var modelName, summary sql.NullString

		if err := rows.Scan(&rec.ID, &rec.Document, &rec.Digest, &timestamp, &rec.Pass,
			&rec.IssueCount, &rec.UnanalyzedCount, &modelName, &summary); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}

		rec.Timestamp = parseTimestamp(timestamp)
		rec.Model = modelName.String
		rec.SeveritySummary = make(map[string]int)
		if summary.Valid && summary.String != "" {
			if err := json.Unmarshal([]byte(summary.String), &rec.SeveritySummary); err != nil {
				rec.SeveritySummary = make(map[string]int)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// timestampLayout has a fixed-width fraction so stored timestamps sort
// lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestampFormats contains the timestamp formats that may be stored.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp parses s with the first matching format, or returns the
// zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
