package contour

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/palmgate/internal/raster"
)

// ErrEmptyContour is returned when packaging a contour with no points.
var ErrEmptyContour = errors.New("empty contour")

// Candidate is one accepted, refined hand outline ready for comparison.
type Candidate struct {
	// Bounds is the contour bounding box in frame coordinates.
	Bounds image.Rectangle
	// Mask is the filled contour cropped to Bounds, 255 inside.
	Mask    raster.Mask
	Contour Contour
}

// Package fills c on a width x height canvas and crops it to the contour bounds.
func Package(c Contour, width, height int) (Candidate, error) {
	if len(c) == 0 {
		return Candidate{}, ErrEmptyContour
	}
	bounds := c.Bounds().Intersect(image.Rect(0, 0, width, height))
	if bounds.Empty() {
		return Candidate{}, fmt.Errorf("contour outside %dx%d canvas", width, height)
	}

	canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC1)
	defer canvas.Close()

	pv := gocv.NewPointsVectorFromPoints([][]image.Point{c})
	defer pv.Close()
	gocv.DrawContours(&canvas, pv, 0, color.RGBA{255, 255, 255, 0}, -1)

	full, err := raster.FromMat(canvas)
	if err != nil {
		return Candidate{}, fmt.Errorf("package contour: %w", err)
	}

	return Candidate{
		Bounds:  bounds,
		Mask:    full.Crop(bounds),
		Contour: c.Clone(),
	}, nil
}

var overlayColor = color.RGBA{255, 255, 0, 0}

// Overlay draws an accepted candidate and its score onto a BGR frame.
func Overlay(frame *gocv.Mat, c Candidate, score float64) {
	if frame == nil || frame.Empty() || len(c.Contour) == 0 {
		return
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{c.Contour})
	defer pv.Close()

	gocv.DrawContours(frame, pv, 0, overlayColor, 1)
	gocv.PutText(frame, fmt.Sprintf("%.4f", score), image.Pt(0, frame.Rows()-1),
		gocv.FontHersheyPlain, 2, overlayColor, 2)
}
