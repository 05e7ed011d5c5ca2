// Package storage persists tracking results to SQLite. One run row per
// session, one roi_map row per ROI, and position rows buffered per frame and
// committed in a single transaction at each flush.
package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/arenalab/ethotrack/internal/arena"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrNoRun is returned by Write/Flush before StartRun has been called.
var ErrNoRun = errors.New("storage: no run in progress")

// SQLiteWriter implements the monitor's ResultWriter contract on SQLite.
// Write buffers rows in memory; Flush commits the frame's rows in one
// transaction, so a completed frame is either fully persisted or not at all.
type SQLiteWriter struct {
	db    *sql.DB
	runID string

	mu      sync.Mutex
	pending []pendingRow
}

type pendingRow struct {
	roiIdx int
	pos    arena.Position
}

// Open opens (creating if needed) the result database at path and applies
// pending schema migrations.
func Open(path string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	// Single writer; WAL keeps report/API reads from blocking flushes.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: %s: %w", pragma, err)
		}
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteWriter{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("storage: load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("storage: migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("storage: migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("storage: migrate up: %w", err)
	}
	return nil
}

// StartRun records a new session and its ROI layout. Returns the run id.
func (w *SQLiteWriter) StartRun(rois []arena.ROI) (string, error) {
	runID := uuid.NewString()
	tx, err := w.db.Begin()
	if err != nil {
		return "", fmt.Errorf("storage: start run: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO runs (run_id, started_at) VALUES (?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return "", fmt.Errorf("storage: insert run: %w", err)
	}
	for _, roi := range rois {
		if _, err := tx.Exec(
			`INSERT INTO roi_map (run_id, roi_idx, x, y, w, h, longest_axis)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, roi.Idx,
			roi.Rect.Min.X, roi.Rect.Min.Y, roi.Rect.Dx(), roi.Rect.Dy(),
			roi.Axis(),
		); err != nil {
			return "", fmt.Errorf("storage: insert roi %d: %w", roi.Idx, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("storage: start run: %w", err)
	}
	w.runID = runID
	return runID, nil
}

// RunID returns the current run identifier, empty before StartRun.
func (w *SQLiteWriter) RunID() string { return w.runID }

// Write buffers one ROI's rows for the current frame.
func (w *SQLiteWriter) Write(timeMs int64, roi arena.ROI, rows []arena.Position) error {
	if w.runID == "" {
		return ErrNoRun
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, pos := range rows {
		w.pending = append(w.pending, pendingRow{roiIdx: roi.Idx, pos: pos})
	}
	return nil
}

// Flush commits all rows buffered since the previous flush, plus a frame
// marker, in one transaction.
func (w *SQLiteWriter) Flush(timeMs int64, frame arena.Frame) error {
	if w.runID == "" {
		return ErrNoRun
	}
	w.mu.Lock()
	rows := w.pending
	w.pending = nil
	w.mu.Unlock()

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: flush: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO positions (run_id, roi_idx, t_ms, x, y, w, h, phi, xy_dist_log10x1000)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage: flush prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(
			w.runID, r.roiIdx, r.pos.TimeMs,
			r.pos.X, r.pos.Y, r.pos.W, r.pos.H, r.pos.Phi,
			r.pos.XYDistLog10x1000,
		); err != nil {
			return fmt.Errorf("storage: insert position roi %d: %w", r.roiIdx, err)
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO frames (run_id, t_ms) VALUES (?, ?)`,
		w.runID, timeMs,
	); err != nil {
		return fmt.Errorf("storage: insert frame marker: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: flush commit: %w", err)
	}
	return nil
}

// FinishRun stamps the run's end time.
func (w *SQLiteWriter) FinishRun() error {
	if w.runID == "" {
		return ErrNoRun
	}
	_, err := w.db.Exec(
		`UPDATE runs SET finished_at = ? WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339), w.runID)
	if err != nil {
		return fmt.Errorf("storage: finish run: %w", err)
	}
	return nil
}

// DB exposes the underlying handle for the query helpers.
func (w *SQLiteWriter) DB() *sql.DB { return w.db }

// Close closes the database.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
