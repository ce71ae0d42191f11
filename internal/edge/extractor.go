// Package edge computes binary edge maps of captured frames.
package edge

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/palmgate/internal/raster"
)

// Default edge parameters.
const (
	DefaultLow      = 30
	DefaultRatio    = 3
	DefaultAperture = 7
)

var (
	// ErrEmptyFrame is returned for a nil or empty frame.
	ErrEmptyFrame = errors.New("empty frame")
	// ErrInvalidParams is returned for out-of-range thresholds or aperture.
	ErrInvalidParams = errors.New("invalid edge parameters")
)

// Params controls edge detection. The high threshold is Low*Ratio.
type Params struct {
	Low      float64
	Ratio    float64
	Aperture int
}

// DefaultParams returns the stock thresholds and a 7x7 Sobel aperture.
func DefaultParams() Params {
	return Params{Low: DefaultLow, Ratio: DefaultRatio, Aperture: DefaultAperture}
}

// Validate checks that the parameters can be used by Detect.
func (p Params) Validate() error {
	switch {
	case p.Aperture != 3 && p.Aperture != 5 && p.Aperture != 7:
		return fmt.Errorf("%w: aperture %d", ErrInvalidParams, p.Aperture)
	case p.Low < 0:
		return fmt.Errorf("%w: low threshold %v", ErrInvalidParams, p.Low)
	case p.Ratio < 1:
		return fmt.Errorf("%w: ratio %v", ErrInvalidParams, p.Ratio)
	}
	return nil
}

// Detect returns a frame-sized mask with 255 on edge pixels.
func Detect(frame *gocv.Mat, p Params) (raster.Mask, error) {
	if frame == nil || frame.Empty() {
		return raster.Mask{}, ErrEmptyFrame
	}
	if err := p.Validate(); err != nil {
		return raster.Mask{}, err
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() == 1 {
		frame.CopyTo(&gray)
	} else {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.Blur(gray, &blurred, image.Pt(3, 3))

	gx := gocv.NewMat()
	defer gx.Close()
	gy := gocv.NewMat()
	defer gy.Close()
	gocv.Sobel(blurred, &gx, gocv.MatTypeCV32F, 1, 0, p.Aperture, 1, 0, gocv.BorderDefault)
	gocv.Sobel(blurred, &gy, gocv.MatTypeCV32F, 0, 1, p.Aperture, 1, 0, gocv.BorderDefault)

	dx, err := gx.DataPtrFloat32()
	if err != nil {
		return raster.Mask{}, fmt.Errorf("read x gradient: %w", err)
	}
	dy, err := gy.DataPtrFloat32()
	if err != nil {
		return raster.Mask{}, fmt.Errorf("read y gradient: %w", err)
	}

	w, h := frame.Cols(), frame.Rows()
	if len(dx) < w*h || len(dy) < w*h {
		return raster.Mask{}, fmt.Errorf("gradient size mismatch for %dx%d frame", w, h)
	}

	mag := suppress(dx, dy, w, h)
	return hysteresis(mag, w, h, p.Low, p.Low*p.Ratio), nil
}
