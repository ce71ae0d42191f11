// Package testdata builds synthetic capture scenes for tests.
package testdata

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/palmgate/internal/raster"
)

// Scene geometry for a 640x480 frame.
var (
	SceneSize = image.Pt(640, 480)
	// FaceRect is a 100x100 face at the frame centre.
	FaceRect = image.Rect(270, 190, 370, 290)
	// HandRect is a hand-sized block left of the face.
	HandRect = image.Rect(60, 160, 180, 320)
)

// Scene colours in BGR.
var (
	Background = gocv.NewScalar(200, 80, 30, 0)
	Skin       = gocv.NewScalar(110, 140, 200, 0)
)

// Scene returns a frame with a skin-coloured face and hand on a blue
// background. The caller must close it.
func Scene() *gocv.Mat {
	return SceneWith(FaceRect, HandRect)
}

// SceneWith draws skin blocks at the given rectangles. Empty rectangles are skipped.
func SceneWith(rects ...image.Rectangle) *gocv.Mat {
	m := gocv.NewMatWithSizeFromScalar(Background, SceneSize.Y, SceneSize.X, gocv.MatTypeCV8UC3)
	for _, r := range rects {
		r = r.Intersect(image.Rect(0, 0, SceneSize.X, SceneSize.Y))
		if r.Empty() {
			continue
		}
		roi := m.Region(r)
		roi.SetTo(Skin)
		roi.Close()
	}
	return &m
}

// Blank returns a background-only frame.
func Blank() *gocv.Mat {
	return SceneWith()
}

// HandMask returns a filled mask of size w x h, 255 inside.
func HandMask(w, h int) raster.Mask {
	m := raster.NewMask(w, h)
	for i := range m.Pix {
		m.Pix[i] = 255
	}
	return m
}

// WriteScene encodes Scene to path; the extension selects the format.
func WriteScene(path string) error {
	m := Scene()
	defer m.Close()
	if !gocv.IMWrite(path, *m) {
		return fmt.Errorf("write scene %s", path)
	}
	return nil
}

// CloseAll releases frames.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		if f != nil {
			f.Close()
		}
	}
}
