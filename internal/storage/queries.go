package storage

import (
	"database/sql"
	"fmt"

	"github.com/arenalab/ethotrack/internal/arena"
)

// ActivityPoint is one sample of the decoded displacement metric for one ROI.
type ActivityPoint struct {
	TimeMs int64
	Dist   float64
}

// ROIIndices returns the ROI indices recorded for a run, ascending.
func ROIIndices(db *sql.DB, runID string) ([]int, error) {
	rows, err := db.Query(
		`SELECT roi_idx FROM roi_map WHERE run_id = ? ORDER BY roi_idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage: roi indices: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, fmt.Errorf("storage: roi indices: %w", err)
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}

// ActivitySeries returns the decoded displacement metric over time for one
// ROI of a run, oldest first.
func ActivitySeries(db *sql.DB, runID string, roiIdx int) ([]ActivityPoint, error) {
	rows, err := db.Query(
		`SELECT t_ms, xy_dist_log10x1000 FROM positions
		 WHERE run_id = ? AND roi_idx = ? ORDER BY t_ms`, runID, roiIdx)
	if err != nil {
		return nil, fmt.Errorf("storage: activity series: %w", err)
	}
	defer rows.Close()

	var out []ActivityPoint
	for rows.Next() {
		var p ActivityPoint
		var encoded int
		if err := rows.Scan(&p.TimeMs, &encoded); err != nil {
			return nil, fmt.Errorf("storage: activity series: %w", err)
		}
		p.Dist = arena.DecodeLogDistance(encoded)
		out = append(out, p)
	}
	return out, rows.Err()
}

// LatestRunID returns the most recently started run, or empty when the
// database holds none.
func LatestRunID(db *sql.DB) (string, error) {
	var runID string
	err := db.QueryRow(
		`SELECT run_id FROM runs ORDER BY started_at DESC LIMIT 1`).Scan(&runID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("storage: latest run: %w", err)
	}
	return runID, nil
}
