package contour

import "github.com/ayusman/palmgate/internal/raster"

// FillBetweenEdges closes gaps in a skin mask using the edge map. Each run of
// pixels between two edge pixels on a row, and then on a column, is set
// entirely to the majority value of the skin mask over that run. Runs after
// the last edge pixel are left alone.
func FillBetweenEdges(mask, edges raster.Mask) raster.Mask {
	out := mask.Clone()
	if mask.Empty() || edges.Width != mask.Width || edges.Height != mask.Height {
		return out
	}

	for y := 0; y < mask.Height; y++ {
		fillRun(mask, edges, out, mask.Width, func(i int) (int, int) { return i, y })
	}
	for x := 0; x < mask.Width; x++ {
		fillRun(mask, edges, out, mask.Height, func(i int) (int, int) { return x, i })
	}
	return out
}

func fillRun(mask, edges, out raster.Mask, n int, at func(int) (int, int)) {
	var skin, other, last int
	for i := 0; i < n; i++ {
		x, y := at(i)
		if !edges.At(x, y) {
			if mask.At(x, y) {
				skin++
			} else {
				other++
			}
			continue
		}

		v := uint8(255)
		if other > skin {
			v = 0
		}
		for k := last; k < i; k++ {
			kx, ky := at(k)
			out.Set(kx, ky, v)
		}
		last = i + 1
		skin, other = 0, 0
	}
}
