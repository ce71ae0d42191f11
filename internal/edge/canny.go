package edge

import (
	"math"

	"github.com/ayusman/palmgate/internal/raster"
)

const (
	tan22 = 0.41421356 // tan(22.5°)
	tan67 = 2.41421356 // tan(67.5°)
)

// suppress returns the L1 gradient magnitude thinned to local maxima along
// the gradient direction. Border pixels are zero.
func suppress(dx, dy []float32, w, h int) []float32 {
	mag := make([]float32, w*h)
	for i := 0; i < w*h; i++ {
		mag[i] = float32(math.Abs(float64(dx[i])) + math.Abs(float64(dy[i])))
	}

	out := make([]float32, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			m := mag[i]
			if m == 0 {
				continue
			}

			gx, gy := float64(dx[i]), float64(dy[i])
			ax, ay := math.Abs(gx), math.Abs(gy)

			var a, b float32
			switch {
			case ay <= ax*tan22:
				a, b = mag[i-1], mag[i+1]
			case ay >= ax*tan67:
				a, b = mag[i-w], mag[i+w]
			case (gx < 0) == (gy < 0):
				a, b = mag[i-w-1], mag[i+w+1]
			default:
				a, b = mag[i-w+1], mag[i+w-1]
			}

			if m > a && m >= b {
				out[i] = m
			}
		}
	}
	return out
}

// hysteresis keeps pixels above high and every pixel above low that is
// 8-connected to one of them.
func hysteresis(mag []float32, w, h int, low, high float64) raster.Mask {
	out := raster.NewMask(w, h)
	var stack []int

	for i, m := range mag {
		if float64(m) > high && out.Pix[i] == 0 {
			out.Pix[i] = 255
			stack = append(stack, i)
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w

		for ny := y - 1; ny <= y+1; ny++ {
			for nx := x - 1; nx <= x+1; nx++ {
				if !out.In(nx, ny) {
					continue
				}
				j := ny*w + nx
				if out.Pix[j] != 0 || float64(mag[j]) <= low {
					continue
				}
				out.Pix[j] = 255
				stack = append(stack, j)
			}
		}
	}
	return out
}
