package api

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenalab/ethotrack/internal/arena"
	"github.com/arenalab/ethotrack/internal/camera"
	"github.com/arenalab/ethotrack/internal/monitor"
	"github.com/arenalab/ethotrack/internal/storage"
	"github.com/arenalab/ethotrack/internal/track"
)

func newTestMonitor(t *testing.T, frames []arena.Frame) *monitor.Monitor {
	t.Helper()
	rois := []arena.ROI{arena.NewROI(0, image.Rect(0, 0, 32, 32))}
	mon, err := monitor.New(
		camera.NewSyntheticCamera(frames), rois,
		track.NewBGSubFactory(track.BGSubConfig{}), nil)
	require.NoError(t, err)
	return mon
}

func TestServer(t *testing.T) {
	t.Parallel()

	t.Run("status reports monitor state", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(NewServer(newTestMonitor(t, nil), nil).ServeMux())
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/status")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var status struct {
			Running       bool    `json:"running"`
			LastFrameIdx  int64   `json:"last_frame_idx"`
			LastTimeStamp float64 `json:"last_time_stamp"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		assert.False(t, status.Running)
		assert.Zero(t, status.LastFrameIdx)
		assert.Zero(t, status.LastTimeStamp)
	})

	t.Run("positions start empty", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(NewServer(newTestMonitor(t, nil), nil).ServeMux())
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/positions")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var positions map[int][]arena.Position
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&positions))
		assert.Empty(t, positions)
	})

	t.Run("stop requires POST", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(NewServer(newTestMonitor(t, nil), nil).ServeMux())
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/stop")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("stop ends a run before the next frame", func(t *testing.T) {
		t.Parallel()
		frames := []arena.Frame{
			{TimeMs: 0, Image: image.NewGray(image.Rect(0, 0, 32, 32))},
			{TimeMs: 500, Image: image.NewGray(image.Rect(0, 0, 32, 32))},
			{TimeMs: 1000, Image: image.NewGray(image.Rect(0, 0, 32, 32))},
		}
		mon := newTestMonitor(t, frames)
		srv := httptest.NewServer(NewServer(mon, nil).ServeMux())
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/stop", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		// a run started after the stop request terminates immediately
		require.NoError(t, mon.Run(context.Background(), nil, nil))
		assert.Zero(t, mon.LastFrameIdx())
	})

	t.Run("report without a store is not found", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(NewServer(newTestMonitor(t, nil), nil).ServeMux())
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/report")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("report renders the stored run", func(t *testing.T) {
		t.Parallel()
		store, err := storage.Open(filepath.Join(t.TempDir(), "results.db"))
		require.NoError(t, err)
		defer store.Close()

		roi := arena.NewROI(0, image.Rect(0, 0, 32, 32))
		runID, err := store.StartRun([]arena.ROI{roi})
		require.NoError(t, err)
		require.NoError(t, store.Write(500, roi, []arena.Position{
			{TimeMs: 500, X: 1, Y: 1, XYDistLog10x1000: -3000},
		}))
		require.NoError(t, store.Flush(500, arena.Frame{TimeMs: 500}))

		srv := httptest.NewServer(NewServer(newTestMonitor(t, nil), store).ServeMux())
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/report?run_id=" + runID)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	})
}
