package contour

import (
	"image"

	"github.com/ayusman/palmgate/internal/raster"
)

// DefaultRadius is the default merge radius in pixels.
const DefaultRadius = 5

// Refiner snaps contour points onto nearby edge pixels.
type Refiner struct {
	// Radius is the largest Chebyshev ring searched around a point. Zero disables snapping.
	Radius int
}

// Refine returns a contour of the same length in which every point is either
// unchanged or replaced by an edge pixel within Radius. Points already on an
// edge are never moved.
func (r Refiner) Refine(c Contour, edges raster.Mask) Contour {
	out := c.Clone()
	if r.Radius <= 0 || len(c) == 0 || edges.Empty() {
		return out
	}

	start, anchor, ok := r.startPoint(c, edges)
	if !ok {
		return out
	}
	out[start] = anchor

	prev := anchor
	for i := start + 1; i < len(c); i++ {
		prev = r.snap(c, out, i, prev, edges)
	}
	prev = anchor
	for i := start - 1; i >= 0; i-- {
		prev = r.snap(c, out, i, prev, edges)
	}
	return out
}

// startPoint picks the first on-edge point, or else the point closest to its
// nearest edge pixel.
func (r Refiner) startPoint(c Contour, edges raster.Mask) (int, image.Point, bool) {
	best, bestDist := -1, 0
	var anchor image.Point

	for i, p := range c {
		if edges.At(p.X, p.Y) {
			return i, p, true
		}
		q, ok := r.nearest(p, edges)
		if !ok {
			continue
		}
		if d := manhattan(p, q); best < 0 || d < bestDist {
			best, bestDist, anchor = i, d, q
		}
	}
	return best, anchor, best >= 0
}

func (r Refiner) snap(c, out Contour, i int, prev image.Point, edges raster.Mask) image.Point {
	p := c[i]
	if edges.At(p.X, p.Y) {
		return p
	}
	q, ok := r.nearestFrom(p, prev, edges)
	if !ok {
		return p
	}
	out[i] = q
	return q
}

// nearest returns the ring candidate closest to p, first found on ties.
func (r Refiner) nearest(p image.Point, edges raster.Mask) (image.Point, bool) {
	cands := r.ring(p, edges)
	if len(cands) == 0 {
		return image.Point{}, false
	}
	best := cands[0]
	for _, q := range cands[1:] {
		if manhattan(p, q) < manhattan(p, best) {
			best = q
		}
	}
	return best, true
}

// nearestFrom returns the ring candidate minimizing the distance to p plus
// the distance to the previous anchor. The anchor itself is only chosen when
// it is the sole candidate.
func (r Refiner) nearestFrom(p, prev image.Point, edges raster.Mask) (image.Point, bool) {
	cands := r.ring(p, edges)
	if len(cands) == 0 {
		return image.Point{}, false
	}
	best, found := cands[0], false
	for _, q := range cands {
		if q == prev {
			continue
		}
		if !found || manhattan(p, q)+manhattan(prev, q) < manhattan(p, best)+manhattan(prev, best) {
			best, found = q, true
		}
	}
	return best, true
}

// ring collects edge pixels at Chebyshev distance j around p for the
// smallest j in 1..Radius that has any. The search stops as soon as a ring
// would leave the image.
func (r Refiner) ring(p image.Point, edges raster.Mask) []image.Point {
	var cands []image.Point
	for j := 1; j <= r.Radius; j++ {
		if p.X-j < 0 || p.X+j >= edges.Width || p.Y-j < 0 || p.Y+j >= edges.Height {
			break
		}

		q := image.Pt(p.X-j, p.Y-j)
		steps := []image.Point{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
		for _, s := range steps {
			for k := 0; k < 2*j; k++ {
				if edges.At(q.X, q.Y) {
					cands = append(cands, q)
				}
				q = q.Add(s)
			}
		}
		if len(cands) > 0 {
			return cands
		}
	}
	return nil
}

func manhattan(a, b image.Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
