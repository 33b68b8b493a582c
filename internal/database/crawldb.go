package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/shopscan/internal/crawler"
	"github.com/nao1215/shopscan/internal/model"
)

// CrawlDB provides SQLite-based storage for crawl runs and the pages
// they visited. It manages connection pooling and provides methods for
// CRUD operations.
//
// Design decision: We use a single database file for all runs rather
// than one file per run. This lets compare and history queries join
// across runs and keeps backup/restore a one-file operation.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
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

// Open opens or creates a CrawlDB at the specified path.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, "shopscan.db")

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

	// SQLite only supports one writer; a single connection avoids
	// SQLITE_BUSY under the crawl's concurrent page inserts.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Runs store one crawl invocation each
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		seeds TEXT NOT NULL,
		interrupted INTEGER NOT NULL DEFAULT 0,
		report_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Pages store individual page fetches within a run
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		domain TEXT NOT NULL,
		url TEXT NOT NULL,
		final_url TEXT,
		depth INTEGER NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT 'normal',
		product INTEGER NOT NULL DEFAULT 0,
		status_code INTEGER,
		title TEXT,
		price TEXT,
		currency TEXT,
		image TEXT,
		platform TEXT,
		hash TEXT,
		rendered INTEGER NOT NULL DEFAULT 0,
		fetched_at DATETIME NOT NULL,
		UNIQUE(run_id, domain, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_domain ON pages(run_id, domain);
	CREATE INDEX IF NOT EXISTS idx_pages_product ON pages(run_id, product);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// sqliteTime is the timestamp layout written to the database. SQLite's
// datetime() functions understand it, so queries can compare on it.
const sqliteTime = "2006-01-02 15:04:05"

// BeginRun inserts a new run row and returns its ID. The seeds are the
// normalized seed URLs the run starts from.
func (cdb *CrawlDB) BeginRun(ctx context.Context, seeds []string) (int64, error) {
	seedsJSON, err := json.Marshal(seeds)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize seeds: %w", err)
	}

	query := `INSERT INTO runs (started_at, seeds) VALUES (?, ?)`
	result, err := cdb.db.ExecContext(ctx, query,
		time.Now().UTC().Format(sqliteTime),
		string(seedsJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return result.LastInsertId()
}

// FinishRun closes out a run: records when it ended, whether it was
// interrupted, and the full report as JSON.
func (cdb *CrawlDB) FinishRun(ctx context.Context, runID int64, report *model.RunReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	finished := report.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	query := `UPDATE runs SET finished_at = ?, interrupted = ?, report_json = ? WHERE id = ?`
	result, err := cdb.db.ExecContext(ctx, query,
		finished.UTC().Format(sqliteTime),
		report.Interrupted,
		string(reportJSON),
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %d not found", runID)
	}
	return nil
}

// RunSink feeds one run's visited pages into the archive. It satisfies
// the crawler's page sink and is safe for concurrent use: the single
// connection serializes writes.
type RunSink struct {
	cdb   *CrawlDB
	runID int64
}

// Sink returns a page sink that archives under the given run.
func (cdb *CrawlDB) Sink(runID int64) *RunSink {
	return &RunSink{cdb: cdb, runID: runID}
}

// RecordPage archives one visited page.
func (s *RunSink) RecordPage(ctx context.Context, rec crawler.PageRecord) error {
	return s.cdb.InsertPage(ctx, s.runID, rec)
}

// InsertPage inserts or updates a page row. Uses UPSERT so a retried or
// re-rendered fetch of the same URL overwrites its earlier row.
func (cdb *CrawlDB) InsertPage(ctx context.Context, runID int64, rec crawler.PageRecord) error {
	query := `
	INSERT INTO pages (run_id, domain, url, final_url, depth, category, product,
		status_code, title, price, currency, image, platform, hash, rendered, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, domain, url) DO UPDATE SET
		final_url = excluded.final_url,
		depth = excluded.depth,
		category = excluded.category,
		product = excluded.product,
		status_code = excluded.status_code,
		title = excluded.title,
		price = excluded.price,
		currency = excluded.currency,
		image = excluded.image,
		platform = excluded.platform,
		hash = excluded.hash,
		rendered = excluded.rendered,
		fetched_at = excluded.fetched_at
	`

	fetchedAt := rec.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	_, err := cdb.db.ExecContext(ctx, query,
		runID,
		rec.Domain,
		rec.URL,
		rec.FinalURL,
		rec.Depth,
		rec.Category.String(),
		rec.Product,
		rec.StatusCode,
		rec.Title,
		rec.Price,
		rec.Currency,
		rec.Image,
		string(rec.Platform),
		rec.Hash,
		rec.Rendered,
		fetchedAt.UTC().Format(sqliteTime),
	)
	if err != nil {
		return fmt.Errorf("failed to insert page: %w", err)
	}
	return nil
}

// PageRow is a stored page fetch.
type PageRow struct {
	ID         int64
	RunID      int64
	Domain     string
	URL        string
	FinalURL   string
	Depth      int
	Category   model.Category
	Product    bool
	StatusCode int
	Title      string
	Price      string
	Currency   string
	Image      string
	Platform   model.ShopPlatform
	Hash       string
	Rendered   bool
	FetchedAt  time.Time
}

// GetPage retrieves a page row by run, domain, and URL. Returns nil
// without error when no row matches.
func (cdb *CrawlDB) GetPage(ctx context.Context, runID int64, domain, url string) (*PageRow, error) {
	query := `
	SELECT id, run_id, domain, url, final_url, depth, category, product,
		status_code, title, price, currency, image, platform, hash, rendered, fetched_at
	FROM pages
	WHERE run_id = ? AND domain = ? AND url = ?
	`

	var row PageRow
	var category, platform, fetchedAt string

	err := cdb.db.QueryRowContext(ctx, query, runID, domain, url).Scan(
		&row.ID,
		&row.RunID,
		&row.Domain,
		&row.URL,
		&row.FinalURL,
		&row.Depth,
		&category,
		&row.Product,
		&row.StatusCode,
		&row.Title,
		&row.Price,
		&row.Currency,
		&row.Image,
		&platform,
		&row.Hash,
		&row.Rendered,
		&fetchedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	row.Category = model.ParseCategory(category)
	row.Platform = model.ShopPlatform(platform)
	row.FetchedAt = parseTimestamp(fetchedAt)
	return &row, nil
}

// ProductURLs reconstructs a run's domain to product-URL mapping from
// the archived pages.
func (cdb *CrawlDB) ProductURLs(ctx context.Context, runID int64) (model.CrawlResult, error) {
	query := `
	SELECT domain, url FROM pages
	WHERE run_id = ? AND product = 1
	ORDER BY domain, url
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query product URLs: %w", err)
	}
	defer rows.Close()

	result := make(model.CrawlResult)
	for rows.Next() {
		var domain, url string
		if err := rows.Scan(&domain, &url); err != nil {
			return nil, fmt.Errorf("failed to scan product URL: %w", err)
		}
		result[domain] = append(result[domain], url)
	}
	return result, rows.Err()
}

// RunInfo summarizes one archived run without loading its report.
type RunInfo struct {
	// ID is the run's database identifier.
	ID int64

	// StartedAt is when the run began.
	StartedAt time.Time

	// FinishedAt is when the run completed. Zero for a run that never
	// finished, for example after a crash.
	FinishedAt time.Time

	// Interrupted is true when the run ended via shutdown.
	Interrupted bool

	// Pages is the number of archived pages.
	Pages int

	// Products is the number of archived product pages.
	Products int
}

// ListRuns returns all archived runs, newest first.
func (cdb *CrawlDB) ListRuns(ctx context.Context) ([]RunInfo, error) {
	query := `
	SELECT r.id, r.started_at, r.finished_at, r.interrupted,
		COUNT(p.id), COALESCE(SUM(p.product), 0)
	FROM runs r
	LEFT JOIN pages p ON p.run_id = r.id
	GROUP BY r.id
	ORDER BY r.id DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunInfo
	for rows.Next() {
		var info RunInfo
		var started string
		var finished sql.NullString

		if err := rows.Scan(&info.ID, &started, &finished, &info.Interrupted, &info.Pages, &info.Products); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		info.StartedAt = parseTimestamp(started)
		if finished.Valid {
			info.FinishedAt = parseTimestamp(finished.String)
		}
		results = append(results, info)
	}
	return results, rows.Err()
}

// LatestRunID returns the ID of the most recent run. Returns 0 without
// error when the archive is empty.
func (cdb *CrawlDB) LatestRunID(ctx context.Context) (int64, error) {
	var id int64
	err := cdb.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY id DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get latest run: %w", err)
	}
	return id, nil
}

// GetRunReport retrieves the stored report for a run. Returns nil
// without error when the run does not exist or never finished.
func (cdb *CrawlDB) GetRunReport(ctx context.Context, runID int64) (*model.RunReport, error) {
	query := `SELECT report_json FROM runs WHERE id = ?`

	var reportJSON sql.NullString
	err := cdb.db.QueryRowContext(ctx, query, runID).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}
	if !reportJSON.Valid || reportJSON.String == "" {
		return nil, nil
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON.String), &report); err != nil {
		return nil, fmt.Errorf("failed to parse run report: %w", err)
	}
	return &report, nil
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
