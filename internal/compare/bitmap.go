package compare

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	_ "image/png" // reference silhouettes may be PNG
	"os"

	"golang.org/x/image/bmp"

	"github.com/ayusman/palmgate/internal/raster"
)

// Render draws mask as the comparator expects it: hand black on white with a
// one pixel white frame.
func Render(mask raster.Mask) *image.Gray {
	img := image.NewGray(mask.Bounds())
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			v := uint8(255)
			border := x == 0 || y == 0 || x == mask.Width-1 || y == mask.Height-1
			if mask.At(x, y) && !border {
				v = 0
			}
			img.Pix[y*img.Stride+x] = v
		}
	}
	return img
}

// WriteBMP renders mask into a BMP file at path.
func WriteBMP(path string, mask raster.Mask) error {
	if mask.Empty() {
		return ErrEmptyMask
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	if err := bmp.Encode(w, Render(mask)); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadReference reads a silhouette image (BMP or PNG). Dark pixels are hand.
func LoadReference(path string) (raster.Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return raster.Mask{}, err
	}
	defer f.Close()

	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return raster.Mask{}, fmt.Errorf("decode reference %s: %w", path, err)
	}

	b := img.Bounds()
	m := raster.NewMask(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if g.Y < 128 {
				m.Set(x, y, 255)
			}
		}
	}
	if m.Count() == 0 {
		return raster.Mask{}, fmt.Errorf("reference %s: %w", path, ErrEmptyMask)
	}
	return m, nil
}
