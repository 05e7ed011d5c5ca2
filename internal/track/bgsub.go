package track

import (
	"fmt"
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/arenalab/ethotrack/internal/arena"
)

// BGSubConfig holds tuning parameters for the reference tracker.
type BGSubConfig struct {
	// LearningRate is the fraction of the new frame blended into the
	// background model each frame.
	LearningRate float64

	// Quantile of the pixel-difference distribution used to set the
	// foreground threshold. The threshold adapts to sensor noise instead of
	// relying on a fixed constant.
	Quantile float64

	// ThresholdFloor is the minimum accepted foreground threshold in grey
	// levels, guarding against a degenerate all-static distribution.
	ThresholdFloor float64

	// MinForegroundPixels is the smallest connected mass accepted as a
	// detection. Below this the frame reports "nothing detected".
	MinForegroundPixels int
}

// DefaultBGSubConfig returns production-default tracker parameters.
func DefaultBGSubConfig() BGSubConfig {
	return BGSubConfig{
		LearningRate:        0.05,
		Quantile:            0.99,
		ThresholdFloor:      12,
		MinForegroundPixels: 4,
	}
}

// BGSubTracker is the reference tracker: an exponentially updated background
// model per ROI, quantile-adaptive foreground threshold, and an ellipse fit
// of the foreground mass. One instance per ROI; not safe for shared use.
type BGSubTracker struct {
	roi arena.ROI
	cfg BGSubConfig

	bg     []float64 // background model, row-major over the ROI crop
	width  int
	height int

	diffs  []float64 // scratch: per-pixel |frame - background|
	sorted []float64 // scratch: sorted copy for the quantile

	last *arena.Position
}

// NewBGSubTracker creates a tracker for one ROI. Zero-valued config fields
// fall back to DefaultBGSubConfig.
func NewBGSubTracker(roi arena.ROI, cfg BGSubConfig) *BGSubTracker {
	def := DefaultBGSubConfig()
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.Quantile <= 0 || cfg.Quantile >= 1 {
		cfg.Quantile = def.Quantile
	}
	if cfg.ThresholdFloor <= 0 {
		cfg.ThresholdFloor = def.ThresholdFloor
	}
	if cfg.MinForegroundPixels <= 0 {
		cfg.MinForegroundPixels = def.MinForegroundPixels
	}
	return &BGSubTracker{roi: roi, cfg: cfg}
}

// NewBGSubFactory returns a Factory producing default-configured trackers.
func NewBGSubFactory(cfg BGSubConfig) Factory {
	return func(roi arena.ROI) Tracker {
		return NewBGSubTracker(roi, cfg)
	}
}

// Track implements Tracker.
func (t *BGSubTracker) Track(timeMs int64, crop *image.Gray) ([]arena.Position, error) {
	b := crop.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("bgsub: empty crop for roi %d", t.roi.Idx)
	}

	if t.bg == nil {
		t.seed(crop)
		return nil, nil
	}
	if w != t.width || h != t.height {
		return nil, fmt.Errorf("bgsub: crop size changed for roi %d: %dx%d -> %dx%d",
			t.roi.Idx, t.width, t.height, w, h)
	}

	// Per-pixel absolute difference against the background model.
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := crop.PixOffset(b.Min.X, y)
		for x := 0; x < w; x++ {
			d := float64(crop.Pix[off+x]) - t.bg[i]
			if d < 0 {
				d = -d
			}
			t.diffs[i] = d
			i++
		}
	}

	// Adaptive threshold from the difference distribution.
	copy(t.sorted, t.diffs)
	sort.Float64s(t.sorted)
	threshold := stat.Quantile(t.cfg.Quantile, stat.Empirical, t.sorted, nil)
	if threshold < t.cfg.ThresholdFloor {
		threshold = t.cfg.ThresholdFloor
	}

	pos, found := t.fitForeground(timeMs, threshold)

	t.updateBackground(crop)

	if !found {
		return nil, nil
	}
	t.last = &pos
	return []arena.Position{pos}, nil
}

// seed initialises the background model from the first frame.
func (t *BGSubTracker) seed(crop *image.Gray) {
	b := crop.Bounds()
	t.width, t.height = b.Dx(), b.Dy()
	n := t.width * t.height
	t.bg = make([]float64, n)
	t.diffs = make([]float64, n)
	t.sorted = make([]float64, n)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := crop.PixOffset(b.Min.X, y)
		for x := 0; x < t.width; x++ {
			t.bg[i] = float64(crop.Pix[off+x])
			i++
		}
	}
}

func (t *BGSubTracker) updateBackground(crop *image.Gray) {
	b := crop.Bounds()
	a := t.cfg.LearningRate
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := crop.PixOffset(b.Min.X, y)
		for x := 0; x < t.width; x++ {
			t.bg[i] += a * (float64(crop.Pix[off+x]) - t.bg[i])
			i++
		}
	}
}

// fitForeground computes a difference-weighted centroid and ellipse over the
// above-threshold pixels, then derives the quantised displacement metric.
func (t *BGSubTracker) fitForeground(timeMs int64, threshold float64) (arena.Position, bool) {
	var sumW, sumX, sumY float64
	count := 0
	for i, d := range t.diffs {
		if d <= threshold {
			continue
		}
		x := float64(i % t.width)
		y := float64(i / t.width)
		sumW += d
		sumX += d * x
		sumY += d * y
		count++
	}
	if count < t.cfg.MinForegroundPixels || sumW == 0 {
		return arena.Position{}, false
	}

	cx := sumX / sumW
	cy := sumY / sumW

	// Second moments for the ellipse fit.
	var mxx, myy, mxy float64
	for i, d := range t.diffs {
		if d <= threshold {
			continue
		}
		dx := float64(i%t.width) - cx
		dy := float64(i/t.width) - cy
		mxx += d * dx * dx
		myy += d * dy * dy
		mxy += d * dx * dy
	}
	mxx /= sumW
	myy /= sumW
	mxy /= sumW

	// Eigen decomposition of the 2x2 covariance gives axis lengths and
	// orientation.
	tr := mxx + myy
	det := mxx*myy - mxy*mxy
	disc := math.Sqrt(math.Max(tr*tr/4-det, 0))
	l1 := tr/2 + disc
	l2 := tr/2 - disc
	if l2 < 0 {
		l2 = 0
	}
	phi := 0.5 * math.Atan2(2*mxy, mxx-myy)

	pos := arena.Position{
		TimeMs: timeMs,
		X:      cx,
		Y:      cy,
		W:      4 * math.Sqrt(l1), // ±2σ along each principal axis
		H:      4 * math.Sqrt(l2),
		Phi:    phi,
	}

	dist := arena.MinLogDistance
	if t.last != nil {
		dist = pos.DistanceTo(*t.last) / t.roi.Axis()
	}
	pos.XYDistLog10x1000 = arena.EncodeLogDistance(dist)
	return pos, true
}
