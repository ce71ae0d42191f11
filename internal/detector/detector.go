// Package detector locates the face that calibrates the skin model and the hand size window.
package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// Normalized face size. Skin samples are taken from a face resized to this size.
const (
	FaceWidth  = 150
	FaceHeight = 150
)

// Locator defines the interface for face location implementations.
type Locator interface {
	// Locate returns the largest face in the frame. A frame without faces
	// yields an empty region and a nil error; errors are reserved for
	// failures of the detector itself.
	Locate(frame *gocv.Mat) (FaceRegion, error)

	// Close releases any resources held by the locator.
	Close() error
}

// Config holds configuration options for face location.
type Config struct {
	// CascadePath is the Haar cascade model file.
	CascadePath string

	// ScaleFactor is the image pyramid step (default: 1.1).
	ScaleFactor float64

	// MinNeighbors is the number of overlapping hits required (default: 2).
	MinNeighbors int

	// MinSize is the smallest face considered, in pixels (default: 30).
	MinSize int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		CascadePath:  "haarcascades/haarcascade_frontalface_alt.xml",
		ScaleFactor:  1.1,
		MinNeighbors: 2,
		MinSize:      30,
	}
}

// FaceRegion is the located face rectangle plus a copy of the face resized
// to FaceWidth x FaceHeight.
type FaceRegion struct {
	Rect image.Rectangle
	Face gocv.Mat
}

// Empty reports whether no face was found.
func (f FaceRegion) Empty() bool {
	return f.Rect.Empty()
}

// Area returns the pixel area of the face rectangle.
func (f FaceRegion) Area() int {
	if f.Rect.Empty() {
		return 0
	}
	return f.Rect.Dx() * f.Rect.Dy()
}

// Close releases the normalized face copy.
func (f *FaceRegion) Close() {
	f.Face.Close()
	f.Face = gocv.Mat{}
	f.Rect = image.Rectangle{}
}

// NewFaceRegion crops rect from frame and normalizes it. The rectangle is
// clipped to the frame; a rectangle outside the frame yields an empty region.
func NewFaceRegion(frame *gocv.Mat, rect image.Rectangle) FaceRegion {
	if frame == nil || frame.Empty() {
		return FaceRegion{}
	}

	rect = rect.Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if rect.Empty() {
		return FaceRegion{}
	}

	roi := frame.Region(rect)
	defer roi.Close()

	face := gocv.NewMat()
	gocv.Resize(roi, &face, image.Pt(FaceWidth, FaceHeight), 0, 0, gocv.InterpolationLinear)

	return FaceRegion{Rect: rect, Face: face}
}

// Largest returns the rectangle with the largest area. Ties keep the first one.
func Largest(rects []image.Rectangle) (image.Rectangle, bool) {
	var best image.Rectangle
	bestArea := 0
	for _, r := range rects {
		area := r.Dx() * r.Dy()
		if area > bestArea {
			best = r
			bestArea = area
		}
	}
	return best, bestArea > 0
}
