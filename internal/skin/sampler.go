package skin

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrEmptySample is returned when the sampling rectangle contains no pixels.
var ErrEmptySample = errors.New("empty sample region")

// Sample rectangle of the normalized face, as fractions of its size.
const (
	sampleMinX = 0.3
	sampleMinY = 0.5
	sampleMaxX = 0.7
	sampleMaxY = 0.64
)

// Sample holds the colours drawn from one rectangle.
type Sample struct {
	Rect   image.Rectangle
	Colors []Color
}

// SampleRect returns the cheek/chin rectangle for a face image of the given size.
func SampleRect(size image.Point) image.Rectangle {
	return image.Rect(
		int(float64(size.X)*sampleMinX),
		int(float64(size.Y)*sampleMinY),
		int(float64(size.X)*sampleMaxX),
		int(float64(size.Y)*sampleMaxY),
	)
}

// SampleFace samples the fixed sub-rectangle of a normalized face.
func SampleFace(face gocv.Mat) (Sample, error) {
	return SampleRegion(face, SampleRect(image.Pt(face.Cols(), face.Rows())))
}

// SampleRegion collects every pixel of rect (clipped to img) as a Color.
func SampleRegion(img gocv.Mat, rect image.Rectangle) (Sample, error) {
	rect = rect.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
	if rect.Empty() {
		return Sample{}, ErrEmptySample
	}
	if img.Channels() != 3 {
		return Sample{}, fmt.Errorf("sample %d-channel image: want BGR", img.Channels())
	}

	roi := img.Region(rect)
	defer roi.Close()
	patch := roi.Clone()
	defer patch.Close()

	colors, err := Colors(patch)
	if err != nil {
		return Sample{}, err
	}
	return Sample{Rect: rect, Colors: colors}, nil
}

// Colors converts a continuous BGR Mat into row-major RGB colours.
func Colors(bgr gocv.Mat) ([]Color, error) {
	data := bgr.ToBytes()
	n := bgr.Rows() * bgr.Cols()
	if len(data) < n*3 {
		return nil, fmt.Errorf("mat data too short: %d bytes for %d pixels", len(data), n)
	}
	out := make([]Color, n)
	for i := range out {
		out[i] = Color{R: data[i*3+2], G: data[i*3+1], B: data[i*3]}
	}
	return out, nil
}
