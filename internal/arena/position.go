package arena

import "math"

// MinLogDistance floors the displacement fed into the log metric so that a
// perfectly still detection still produces a finite value.
const MinLogDistance = 1e-6

// Position is one row of tracked state for one ROI at one timestamp.
// Coordinates are pixels relative to the ROI origin; Absolute translates to
// full-frame coordinates. Histories of positions are append-only and strictly
// ordered by TimeMs.
type Position struct {
	TimeMs int64

	// Centroid of the detected subject, ROI-relative pixels.
	X, Y float64

	// Ellipse fit of the detection: width, height and orientation (radians).
	W, H, Phi float64

	// XYDistLog10x1000 is the displacement since the previous detection,
	// normalised by the ROI's longest axis, encoded as
	// round(1000 * log10(dist)). The quantisation keeps the persisted row
	// compact while preserving resolution at small displacements.
	XYDistLog10x1000 int
}

// EncodeLogDistance quantises a normalised displacement into the
// XYDistLog10x1000 representation.
func EncodeLogDistance(dist float64) int {
	if dist < MinLogDistance {
		dist = MinLogDistance
	}
	return int(math.Round(1000 * math.Log10(dist)))
}

// DecodeLogDistance reverses EncodeLogDistance.
func DecodeLogDistance(v int) float64 {
	return math.Pow(10, float64(v)/1000.0)
}

// Absolute returns a copy of p translated into full-frame coordinates.
func (p Position) Absolute(roi ROI) Position {
	p.X += float64(roi.Rect.Min.X)
	p.Y += float64(roi.Rect.Min.Y)
	return p
}

// DistanceTo returns the Euclidean distance between two positions.
func (p Position) DistanceTo(q Position) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}
