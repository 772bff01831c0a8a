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

	"github.com/nao1215/webdig/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "webdig.db"

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB stores crawl run summaries.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures Open.
type Options struct {
	// CreateIfNotExists creates the directory and file when missing.
	CreateIfNotExists bool

	// EnableWAL switches the journal to write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
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
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	h := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := h.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return h, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed TEXT NOT NULL,
		started_at TEXT NOT NULL,
		duration_ns INTEGER NOT NULL,
		max_depth INTEGER NOT NULL,
		depth_reached INTEGER NOT NULL,
		child_limit INTEGER NOT NULL,
		total_pages INTEGER NOT NULL,
		total_resources INTEGER NOT NULL,
		failed_pages INTEGER NOT NULL,
		cancelled INTEGER NOT NULL DEFAULT 0,
		layers_json TEXT NOT NULL,
		recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// Run is one recorded crawl.
type Run struct {
	ID             int64              `json:"id"`
	Seed           string             `json:"seed"`
	StartedAt      time.Time          `json:"started_at"`
	Duration       time.Duration      `json:"duration"`
	MaxDepth       int                `json:"max_depth"`
	DepthReached   int                `json:"depth_reached"`
	ChildLimit     int                `json:"child_limit"`
	TotalPages     int                `json:"total_pages"`
	TotalResources int                `json:"total_resources"`
	FailedPages    int                `json:"failed_pages"`
	Cancelled      bool               `json:"cancelled"`
	Layers         []model.LayerStats `json:"layers"`
	RecordedAt     time.Time          `json:"recorded_at"`
}

// SaveRun records the summary of result and returns the new run id.
func (h *HistoryDB) SaveRun(ctx context.Context, result *model.CrawlResult) (int64, error) {
	layers := result.Layers
	if layers == nil {
		layers = []model.LayerStats{}
	}
	layersJSON, err := json.Marshal(layers)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize layer stats: %w", err)
	}

	query := `
	INSERT INTO runs (seed, started_at, duration_ns, max_depth, depth_reached, child_limit,
		total_pages, total_resources, failed_pages, cancelled, layers_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := h.db.ExecContext(ctx, query,
		result.Seed,
		result.StartedAt.UTC().Format(time.RFC3339Nano),
		int64(result.Duration),
		result.MaxDepth,
		result.DepthReached,
		result.ChildLimit,
		result.TotalPages,
		result.TotalResources,
		result.FailedPages,
		result.Cancelled,
		string(layersJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	return res.LastInsertId()
}

const runColumns = `id, seed, started_at, duration_ns, max_depth, depth_reached, child_limit,
	total_pages, total_resources, failed_pages, cancelled, layers_json, recorded_at`

// ListRuns returns the runs of seed, newest first. An empty seed lists
// every run.
func (h *HistoryDB) ListRuns(ctx context.Context, seed string) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	args := make([]any, 0, 1)
	if seed != "" {
		query += ` WHERE seed = ?`
		args = append(args, seed)
	}
	query += ` ORDER BY id DESC`

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns the run with the given id, or ErrRunNotFound.
func (h *HistoryDB) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := h.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return run, err
}

// ListSeeds returns every seed with at least one run, sorted.
func (h *HistoryDB) ListSeeds(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT DISTINCT seed FROM runs ORDER BY seed`)
	if err != nil {
		return nil, fmt.Errorf("failed to list seeds: %w", err)
	}
	defer rows.Close()

	seeds := make([]string, 0)
	for rows.Next() {
		var seed string
		if err := rows.Scan(&seed); err != nil {
			return nil, fmt.Errorf("failed to scan seed: %w", err)
		}
		seeds = append(seeds, seed)
	}
	return seeds, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*Run, error) {
	var (
		run        Run
		startedAt  string
		durationNS int64
		layersJSON string
		recordedAt string
	)
	err := s.Scan(
		&run.ID,
		&run.Seed,
		&startedAt,
		&durationNS,
		&run.MaxDepth,
		&run.DepthReached,
		&run.ChildLimit,
		&run.TotalPages,
		&run.TotalResources,
		&run.FailedPages,
		&run.Cancelled,
		&layersJSON,
		&recordedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt = parseTimestamp(startedAt)
	run.Duration = time.Duration(durationNS)
	run.RecordedAt = parseTimestamp(recordedAt)
	if err := json.Unmarshal([]byte(layersJSON), &run.Layers); err != nil {
		run.Layers = []model.LayerStats{}
	}
	return &run, nil
}

// timestampFormats are the layouts SQLite and SaveRun produce, most
// specific first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp returns the zero time when no layout matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
