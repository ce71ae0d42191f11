package skin

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/palmgate/internal/raster"
)

// ErrUntrained is returned when segmenting with an untrained bank.
var ErrUntrained = errors.New("skin classifier is not trained")

// Segmentation is the per-frame classification output.
type Segmentation struct {
	// Mask has 255 where the outermost level accepts the pixel.
	Mask raster.Mask
	// Confidence holds LevelValue of each pixel.
	Confidence raster.Mask
}

// Segment classifies every pixel of a BGR frame. Pixels inside exclude are
// left unset.
func Segment(frame gocv.Mat, bank *Bank, exclude image.Rectangle) (Segmentation, error) {
	if frame.Empty() {
		return Segmentation{}, errors.New("empty frame")
	}
	if bank == nil || !bank.Trained() {
		return Segmentation{}, ErrUntrained
	}
	if frame.Channels() != 3 {
		return Segmentation{}, fmt.Errorf("segment %d-channel frame: want BGR", frame.Channels())
	}

	w, h := frame.Cols(), frame.Rows()
	data := frame.ToBytes()
	if len(data) < w*h*3 {
		return Segmentation{}, fmt.Errorf("frame data too short: %d bytes for %dx%d", len(data), w, h)
	}

	seg := Segmentation{Mask: raster.NewMask(w, h), Confidence: raster.NewMask(w, h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if image.Pt(x, y).In(exclude) {
				continue
			}
			i := (y*w + x) * 3
			lvl := bank.Level(Color{R: data[i+2], G: data[i+1], B: data[i]})
			if lvl == 0 {
				continue
			}
			seg.Mask.Pix[y*w+x] = 255
			seg.Confidence.Pix[y*w+x] = LevelValue(lvl)
		}
	}
	return seg, nil
}
