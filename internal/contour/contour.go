// Package contour traces skin blobs and snaps their outlines onto edge pixels.
package contour

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/palmgate/internal/raster"
)

// Contour is an ordered closed outline.
type Contour []image.Point

// Bounds returns the bounding box of the contour, empty for no points.
func (c Contour) Bounds() image.Rectangle {
	if len(c) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: c[0], Max: c[0].Add(image.Pt(1, 1))}
	for _, p := range c[1:] {
		r = r.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
	}
	return r
}

// Clone returns a copy of the point slice.
func (c Contour) Clone() Contour {
	out := make(Contour, len(c))
	copy(out, c)
	return out
}

// Trace returns the outer contours of mask with every boundary pixel kept.
func Trace(mask raster.Mask) ([]Contour, error) {
	if mask.Empty() {
		return nil, nil
	}

	mat, err := mask.ToMat()
	if err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	defer mat.Close()

	pv := gocv.FindContours(mat, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer pv.Close()

	out := make([]Contour, 0, pv.Size())
	for i := 0; i < pv.Size(); i++ {
		out = append(out, Contour(pv.At(i).ToPoints()))
	}
	return out, nil
}
