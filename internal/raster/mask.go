// Package raster provides single-channel byte masks shared by the pipeline stages.
package raster

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrNotSingleChannel is returned when a Mat with more than one channel is converted to a Mask.
var ErrNotSingleChannel = errors.New("mat is not single channel")

// Mask is a row-major one-byte-per-pixel raster. A pixel is set when its value is non-zero.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask creates a cleared mask of the given size.
func NewMask(width, height int) Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// Empty reports whether the mask has no pixels.
func (m Mask) Empty() bool {
	return m.Width == 0 || m.Height == 0
}

// Bounds returns the mask rectangle anchored at the origin.
func (m Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// In reports whether (x, y) lies inside the mask.
func (m Mask) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// At reports whether the pixel at (x, y) is set. Out-of-bounds pixels are unset.
func (m Mask) At(x, y int) bool {
	if !m.In(x, y) {
		return false
	}
	return m.Pix[y*m.Width+x] != 0
}

// Value returns the raw byte at (x, y), or 0 when out of bounds.
func (m Mask) Value(x, y int) uint8 {
	if !m.In(x, y) {
		return 0
	}
	return m.Pix[y*m.Width+x]
}

// Set writes v at (x, y). Out-of-bounds writes are ignored.
func (m Mask) Set(x, y int, v uint8) {
	if !m.In(x, y) {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// Count returns the number of set pixels.
func (m Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (m Mask) Clone() Mask {
	pix := make([]uint8, len(m.Pix))
	copy(pix, m.Pix)
	return Mask{Width: m.Width, Height: m.Height, Pix: pix}
}

// Crop copies the pixels inside r (clipped to the mask) into a new mask.
func (m Mask) Crop(r image.Rectangle) Mask {
	r = r.Intersect(m.Bounds())
	out := NewMask(r.Dx(), r.Dy())
	for y := 0; y < out.Height; y++ {
		src := (r.Min.Y+y)*m.Width + r.Min.X
		copy(out.Pix[y*out.Width:(y+1)*out.Width], m.Pix[src:src+out.Width])
	}
	return out
}

// FromMat copies a single-channel 8-bit Mat into a Mask.
func FromMat(mat gocv.Mat) (Mask, error) {
	if mat.Empty() {
		return Mask{}, nil
	}
	if mat.Channels() != 1 {
		return Mask{}, fmt.Errorf("convert %d-channel mat: %w", mat.Channels(), ErrNotSingleChannel)
	}

	data := mat.ToBytes()
	if len(data) < mat.Rows()*mat.Cols() {
		return Mask{}, fmt.Errorf("mat data too short: %d bytes for %dx%d", len(data), mat.Cols(), mat.Rows())
	}

	m := NewMask(mat.Cols(), mat.Rows())
	copy(m.Pix, data)
	return m, nil
}

// ToMat copies the mask into a new CV_8UC1 Mat. The caller must close it.
func (m Mask) ToMat() (gocv.Mat, error) {
	if m.Empty() {
		return gocv.NewMat(), nil
	}
	return gocv.NewMatFromBytes(m.Height, m.Width, gocv.MatTypeCV8UC1, m.Clone().Pix)
}
