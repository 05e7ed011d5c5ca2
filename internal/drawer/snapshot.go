// Package drawer provides frame-rendering sinks for the monitor. The
// snapshot drawer periodically writes an annotated PNG of the latest frame;
// richer video recording belongs to an external sink behind the same
// contract.
package drawer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/arenalab/ethotrack/internal/arena"
	"github.com/arenalab/ethotrack/internal/fsutil"
	"github.com/arenalab/ethotrack/internal/monitor"
)

// markerHalf is the half-length of the position cross marker in pixels.
const markerHalf = 3

// SnapshotDrawer writes an annotated PNG every Interval frames: the frame
// pixels with ROI outlines and a cross at each last position. It copies the
// frame before annotating, per the frame ownership contract.
type SnapshotDrawer struct {
	// Path is the output file, atomically replaced on each snapshot.
	Path string
	// Interval is the number of frames between snapshots; minimum 1.
	Interval int

	frameCount int
}

// NewSnapshotDrawer writes snapshots to path every interval frames.
func NewSnapshotDrawer(path string, interval int) *SnapshotDrawer {
	if interval < 1 {
		interval = 1
	}
	return &SnapshotDrawer{Path: path, Interval: interval}
}

// Draw implements the monitor's Drawer contract.
func (d *SnapshotDrawer) Draw(frame arena.Frame, lastPositions map[int][]arena.Position, units []*monitor.TrackingUnit) error {
	d.frameCount++
	if d.frameCount%d.Interval != 0 {
		return nil
	}

	canvas := image.NewGray(frame.Image.Bounds())
	draw.Draw(canvas, canvas.Bounds(), frame.Image, frame.Image.Bounds().Min, draw.Src)

	for _, u := range units {
		outlineRect(canvas, u.ROI().Rect)
	}
	for _, rows := range lastPositions {
		for _, pos := range rows {
			drawCross(canvas, int(pos.X), int(pos.Y))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return fmt.Errorf("drawer: encode: %w", err)
	}
	if err := fsutil.WriteFileAtomic(d.Path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("drawer: %w", err)
	}
	return nil
}

func outlineRect(img *image.Gray, r image.Rectangle) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	white := color.Gray{Y: 255}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetGray(x, r.Min.Y, white)
		img.SetGray(x, r.Max.Y-1, white)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetGray(r.Min.X, y, white)
		img.SetGray(r.Max.X-1, y, white)
	}
}

func drawCross(img *image.Gray, x, y int) {
	white := color.Gray{Y: 255}
	for dx := -markerHalf; dx <= markerHalf; dx++ {
		if (image.Point{x + dx, y}).In(img.Bounds()) {
			img.SetGray(x+dx, y, white)
		}
	}
	for dy := -markerHalf; dy <= markerHalf; dy++ {
		if (image.Point{x, y + dy}).In(img.Bounds()) {
			img.SetGray(x, y+dy, white)
		}
	}
}
