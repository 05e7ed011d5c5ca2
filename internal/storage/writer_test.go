package storage

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenalab/ethotrack/internal/arena"
)

func openTestWriter(t *testing.T) *SQLiteWriter {
	t.Helper()
	w, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func testROIs() []arena.ROI {
	return []arena.ROI{
		arena.NewROI(0, image.Rect(0, 0, 50, 50)),
		arena.NewROI(1, image.Rect(50, 0, 100, 50)),
	}
}

func TestSQLiteWriter(t *testing.T) {
	t.Parallel()

	t.Run("write and flush before a run fail", func(t *testing.T) {
		t.Parallel()
		w := openTestWriter(t)
		err := w.Write(0, testROIs()[0], nil)
		require.ErrorIs(t, err, ErrNoRun)
		err = w.Flush(0, arena.Frame{})
		require.ErrorIs(t, err, ErrNoRun)
		require.ErrorIs(t, w.FinishRun(), ErrNoRun)
	})

	t.Run("start run records the roi layout", func(t *testing.T) {
		t.Parallel()
		w := openTestWriter(t)
		runID, err := w.StartRun(testROIs())
		require.NoError(t, err)
		require.NotEmpty(t, runID)
		assert.Equal(t, runID, w.RunID())

		indices, err := ROIIndices(w.DB(), runID)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1}, indices)
	})

	t.Run("flush commits buffered rows per frame", func(t *testing.T) {
		t.Parallel()
		w := openTestWriter(t)
		runID, err := w.StartRun(testROIs())
		require.NoError(t, err)

		rois := testROIs()
		require.NoError(t, w.Write(500, rois[0], []arena.Position{
			{TimeMs: 500, X: 1, Y: 2, XYDistLog10x1000: -6000},
		}))
		require.NoError(t, w.Write(500, rois[1], []arena.Position{
			{TimeMs: 500, X: 3, Y: 4, XYDistLog10x1000: -2000},
		}))
		require.NoError(t, w.Flush(500, arena.Frame{TimeMs: 500}))

		require.NoError(t, w.Write(1000, rois[0], []arena.Position{
			{TimeMs: 1000, X: 5, Y: 6, XYDistLog10x1000: -3000},
		}))
		require.NoError(t, w.Flush(1000, arena.Frame{TimeMs: 1000}))

		series, err := ActivitySeries(w.DB(), runID, 0)
		require.NoError(t, err)
		require.Len(t, series, 2)
		assert.Equal(t, int64(500), series[0].TimeMs)
		assert.InEpsilon(t, arena.DecodeLogDistance(-6000), series[0].Dist, 1e-9)
		assert.Equal(t, int64(1000), series[1].TimeMs)

		series, err = ActivitySeries(w.DB(), runID, 1)
		require.NoError(t, err)
		require.Len(t, series, 1)
		assert.InEpsilon(t, arena.DecodeLogDistance(-2000), series[0].Dist, 1e-9)
	})

	t.Run("empty frames still leave a frame marker", func(t *testing.T) {
		t.Parallel()
		w := openTestWriter(t)
		_, err := w.StartRun(testROIs())
		require.NoError(t, err)
		require.NoError(t, w.Flush(500, arena.Frame{TimeMs: 500}))

		var count int
		require.NoError(t, w.DB().QueryRow(
			`SELECT COUNT(*) FROM frames WHERE run_id = ?`, w.RunID()).Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("finish run stamps the end time", func(t *testing.T) {
		t.Parallel()
		w := openTestWriter(t)
		_, err := w.StartRun(testROIs())
		require.NoError(t, err)
		require.NoError(t, w.FinishRun())

		var finished string
		require.NoError(t, w.DB().QueryRow(
			`SELECT finished_at FROM runs WHERE run_id = ?`, w.RunID()).Scan(&finished))
		assert.NotEmpty(t, finished)
	})

	t.Run("latest run id follows start order", func(t *testing.T) {
		t.Parallel()
		w := openTestWriter(t)

		latest, err := LatestRunID(w.DB())
		require.NoError(t, err)
		assert.Empty(t, latest)

		runID, err := w.StartRun(testROIs())
		require.NoError(t, err)

		latest, err = LatestRunID(w.DB())
		require.NoError(t, err)
		assert.Equal(t, runID, latest)
	})

	t.Run("reopening an existing database is idempotent", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "results.db")
		w, err := Open(path)
		require.NoError(t, err)
		runID, err := w.StartRun(testROIs())
		require.NoError(t, err)
		require.NoError(t, w.Close())

		w, err = Open(path)
		require.NoError(t, err)
		defer w.Close()

		latest, err := LatestRunID(w.DB())
		require.NoError(t, err)
		assert.Equal(t, runID, latest)
	})
}
