package contour

import "image"

// Size filter defaults.
const (
	DefaultMinSize  = 50
	DefaultMinRatio = 0.5
	DefaultMaxRatio = 2
)

// Filter decides which traced contours are plausible hands.
type Filter struct {
	// MinSize is the exclusive lower bound on both bounding box sides.
	MinSize int
	// MinRatio and MaxRatio bound each side relative to the face box, exclusive.
	MinRatio float64
	MaxRatio float64
	// Free disables the face-relative bounds (photo mode).
	Free bool
}

// DefaultFilter returns the video-mode filter.
func DefaultFilter() Filter {
	return Filter{MinSize: DefaultMinSize, MinRatio: DefaultMinRatio, MaxRatio: DefaultMaxRatio}
}

// Accept reports whether a contour with bounding box b qualifies next to face.
func (f Filter) Accept(b, face image.Rectangle) bool {
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return false
	}
	if w <= f.MinSize || h <= f.MinSize {
		return false
	}
	if f.Free {
		return true
	}

	fw, fh := float64(face.Dx()), float64(face.Dy())
	if fw <= 0 || fh <= 0 {
		return false
	}
	return float64(w) > fw*f.MinRatio && float64(h) > fh*f.MinRatio &&
		float64(w) < fw*f.MaxRatio && float64(h) < fh*f.MaxRatio
}
