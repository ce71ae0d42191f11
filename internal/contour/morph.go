package contour

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/palmgate/internal/raster"
)

// Morphology holds elliptical kernel radii. A zero radius skips the step.
type Morphology struct {
	Dilate int
	Erode  int
	Open   int
}

// Clean applies dilation, erosion and opening to mask, in that order.
func Clean(mask raster.Mask, m Morphology) (raster.Mask, error) {
	if mask.Empty() || (m.Dilate <= 0 && m.Erode <= 0 && m.Open <= 0) {
		return mask.Clone(), nil
	}

	src, err := mask.ToMat()
	if err != nil {
		return raster.Mask{}, err
	}
	defer src.Close()

	if m.Dilate > 0 {
		morph(&src, m.Dilate, func(k gocv.Mat, dst *gocv.Mat) { gocv.Dilate(src, dst, k) })
	}
	if m.Erode > 0 {
		morph(&src, m.Erode, func(k gocv.Mat, dst *gocv.Mat) { gocv.Erode(src, dst, k) })
	}
	if m.Open > 0 {
		morph(&src, m.Open, func(k gocv.Mat, dst *gocv.Mat) { gocv.MorphologyEx(src, dst, gocv.MorphOpen, k) })
	}

	return raster.FromMat(src)
}

// morph runs op with a (2n+1)-square elliptical kernel and swaps the result into src.
func morph(src *gocv.Mat, n int, op func(kernel gocv.Mat, dst *gocv.Mat)) {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(2*n+1, 2*n+1))
	defer kernel.Close()

	dst := gocv.NewMat()
	op(kernel, &dst)
	src.Close()
	*src = dst
}
