package camera

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"

	"github.com/arenalab/ethotrack/internal/arena"
)

// DirCamera plays back a directory of still images (png/jpeg) in lexical
// order, assigning synthetic timestamps at a nominal frame rate. It restores
// the "movie as input" facility used for offline reprocessing.
type DirCamera struct {
	paths   []string
	next    int
	stepMs  int64
	elapsed int64
}

// NewDirCamera scans dir for image files and returns a finite camera that
// yields them at the given nominal FPS.
func NewDirCamera(dir string, fps float64) (*DirCamera, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("dir camera: fps must be positive, got %v", fps)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("dir camera: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".png", ".jpg", ".jpeg":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("dir camera: no image files in %s", dir)
	}
	sort.Strings(paths)
	return &DirCamera{paths: paths, stepMs: int64(1000.0 / fps)}, nil
}

func (c *DirCamera) NextFrame() (arena.Frame, error) {
	if c.next >= len(c.paths) {
		return arena.Frame{}, ErrEndOfStream
	}
	path := c.paths[c.next]
	c.next++

	f, err := os.Open(path)
	if err != nil {
		return arena.Frame{}, fmt.Errorf("dir camera: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return arena.Frame{}, fmt.Errorf("dir camera: decode %s: %w", path, err)
	}

	frame := arena.Frame{TimeMs: c.elapsed, Image: toGray(img)}
	c.elapsed += c.stepMs
	return frame, nil
}

func (c *DirCamera) Close() error {
	c.next = len(c.paths)
	return nil
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	g := image.NewGray(img.Bounds())
	draw.Draw(g, g.Bounds(), img, img.Bounds().Min, draw.Src)
	return g
}
