// Package arena defines the data model shared across the tracking pipeline:
// frames, regions of interest, and per-detection position records.
package arena

import (
	"fmt"
	"image"
)

// ROI is one fixed region of interest within the camera frame. The ROI set is
// decided at session setup and never changes while a monitor is running.
type ROI struct {
	// Idx uniquely identifies the ROI for the lifetime of the session. It is
	// the key used in the last-positions map and in persisted results.
	Idx int

	// Rect is the ROI extent in full-frame pixel coordinates.
	Rect image.Rectangle

	// LongestAxis is the normalisation length (pixels) used for the
	// displacement metric. Zero means "derive from Rect".
	LongestAxis float64
}

// NewROI builds an ROI covering rect. The longest rectangle side is used as
// the normalisation axis.
func NewROI(idx int, rect image.Rectangle) ROI {
	return ROI{Idx: idx, Rect: rect, LongestAxis: longestSide(rect)}
}

func longestSide(r image.Rectangle) float64 {
	w, h := r.Dx(), r.Dy()
	if w > h {
		return float64(w)
	}
	return float64(h)
}

// Validate reports whether the ROI is usable.
func (r ROI) Validate() error {
	if r.Rect.Empty() {
		return fmt.Errorf("roi %d: empty rectangle", r.Idx)
	}
	return nil
}

// Axis returns the normalisation length, deriving it from the rectangle when
// LongestAxis was left unset.
func (r ROI) Axis() float64 {
	if r.LongestAxis > 0 {
		return r.LongestAxis
	}
	return longestSide(r.Rect)
}

// Crop returns the ROI's sub-image of img. The returned image shares pixels
// with img; callers treat it as read-only for the duration of the frame.
func (r ROI) Crop(img *image.Gray) *image.Gray {
	return img.SubImage(r.Rect.Intersect(img.Bounds())).(*image.Gray)
}
