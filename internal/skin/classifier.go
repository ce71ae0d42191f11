// Package skin trains and applies the per-session skin colour model.
package skin

import (
	"errors"
	"math"
	"sort"
)

// Training defaults.
const (
	DefaultSensitivity = 100
	DefaultWeight      = 1
	DefaultEpsilon     = 0.001

	// MaxIterations bounds the robust fit; failing to settle within it is a training failure.
	MaxIterations = 200

	// HuberScale is the Mahalanobis distance, per unit of class weight, past
	// which a sample's influence on the fit starts to shrink.
	HuberScale = 2.5
)

const (
	ridge       = 1.0 // added to the covariance diagonal, in squared colour units
	minEnvelope = 1.0
	quantShift  = 2 // 8-bit channels quantized to 6 bits
	quantLevels = 256 >> quantShift
	cellCount   = quantLevels * quantLevels * quantLevels
)

var (
	errNoSamples    = errors.New("no training samples")
	errBadParameter = errors.New("invalid training parameter")
	errSingular     = errors.New("colour covariance is singular")
	errNotConverged = errors.New("robust fit did not converge")
)

// Color is an 8-bit RGB triple.
type Color struct {
	R, G, B uint8
}

func (c Color) cell() int {
	return int(c.R>>quantShift)<<12 | int(c.G>>quantShift)<<6 | int(c.B>>quantShift)
}

func (c Color) vec() [3]float64 {
	return [3]float64{float64(c.R), float64(c.G), float64(c.B)}
}

// Classifier labels colours as skin or non-skin. The decision boundary is a
// Mahalanobis ellipsoid around a robust fit of the training colours, scaled by
// the sensitivity S, and is precomputed into a lookup table over quantized
// RGB space so Classify is a single bit test.
type Classifier struct {
	sensitivity float64
	trained     bool
	radius      float64
	cells       []uint64
}

// NewClassifier creates an untrained classifier with sensitivity s.
func NewClassifier(s float64) *Classifier {
	return &Classifier{sensitivity: s}
}

// Sensitivity returns the current sensitivity parameter.
func (c *Classifier) Sensitivity() float64 {
	return c.sensitivity
}

// SetSensitivity changes S. A different value invalidates the trained state.
func (c *Classifier) SetSensitivity(s float64) {
	if s == c.sensitivity {
		return
	}
	c.sensitivity = s
	c.Invalidate()
}

// Trained reports whether the classifier holds a usable boundary.
func (c *Classifier) Trained() bool {
	return c.trained
}

// Invalidate discards the trained boundary.
func (c *Classifier) Invalidate() {
	c.trained = false
	c.cells = nil
	c.radius = 0
}

// Train fits the boundary to samples. It is deterministic for a given sample
// multiset and parameters, and returns false when samples are empty, a
// parameter is out of range or the fit does not converge. Every training
// colour is accepted by the resulting classifier.
func (c *Classifier) Train(samples []Color, sensitivity, weight, epsilon float64) bool {
	c.Invalidate()
	c.sensitivity = sensitivity
	if sensitivity <= 0 {
		return false
	}

	m, err := fit(samples, weight, epsilon)
	if err != nil {
		return false
	}
	c.apply(m, samples)
	return true
}

// Classify reports whether col lies inside the trained boundary.
// An untrained classifier accepts nothing.
func (c *Classifier) Classify(col Color) bool {
	if !c.trained {
		return false
	}
	i := col.cell()
	return c.cells[i>>6]&(1<<uint(i&63)) != 0
}

func (c *Classifier) apply(m model, samples []Color) {
	c.radius = math.Max(m.envelope, minEnvelope) * c.sensitivity / 100
	c.cells = make([]uint64, cellCount/64)

	half := float64(int(1)<<quantShift) / 2
	for r := 0; r < quantLevels; r++ {
		for g := 0; g < quantLevels; g++ {
			for b := 0; b < quantLevels; b++ {
				center := [3]float64{
					float64(r<<quantShift) + half,
					float64(g<<quantShift) + half,
					float64(b<<quantShift) + half,
				}
				if m.distance(center) <= c.radius {
					i := r<<12 | g<<6 | b
					c.cells[i>>6] |= 1 << uint(i&63)
				}
			}
		}
	}

	for _, s := range samples {
		i := s.cell()
		c.cells[i>>6] |= 1 << uint(i&63)
	}
	c.trained = true
}

// model is a robust Gaussian fit of the training colours.
type model struct {
	mean       [3]float64
	inv        [3][3]float64
	envelope   float64 // largest Mahalanobis distance of a training colour
	iterations int
}

func (m model) distance(p [3]float64) float64 {
	d := [3]float64{p[0] - m.mean[0], p[1] - m.mean[1], p[2] - m.mean[2]}
	var sum float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			sum += d[i] * m.inv[i][j] * d[j]
		}
	}
	if sum < 0 {
		return 0
	}
	return math.Sqrt(sum)
}

// fit estimates mean and covariance with iteratively reweighted Huber
// weights until both move less than epsilon.
func fit(samples []Color, weight, epsilon float64) (model, error) {
	if len(samples) == 0 {
		return model{}, errNoSamples
	}
	if weight <= 0 || epsilon <= 0 || math.IsNaN(weight) || math.IsNaN(epsilon) {
		return model{}, errBadParameter
	}

	// Sorting makes the floating point sums independent of sample order.
	pts := make([][3]float64, len(samples))
	sorted := make([]Color, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].cell() < sorted[j].cell() ||
			(sorted[i].cell() == sorted[j].cell() && packed(sorted[i]) < packed(sorted[j]))
	})
	for i, s := range sorted {
		pts[i] = s.vec()
	}

	w := make([]float64, len(pts))
	for i := range w {
		w[i] = 1
	}
	mean, cov := moments(pts, w)
	h := HuberScale * weight

	for iter := 1; iter <= MaxIterations; iter++ {
		inv, ok := invert(cov)
		if !ok {
			return model{}, errSingular
		}
		m := model{mean: mean, inv: inv}
		for i, p := range pts {
			d := m.distance(p)
			if d <= h {
				w[i] = 1
			} else {
				w[i] = h / d
			}
		}

		nextMean, nextCov := moments(pts, w)
		delta := maxDelta(mean, nextMean, cov, nextCov)
		mean, cov = nextMean, nextCov
		if delta < epsilon {
			inv, ok := invert(cov)
			if !ok {
				return model{}, errSingular
			}
			m := model{mean: mean, inv: inv, iterations: iter}
			for _, p := range pts {
				m.envelope = math.Max(m.envelope, m.distance(p))
			}
			return m, nil
		}
	}

	return model{}, errNotConverged
}

func packed(c Color) int {
	return int(c.R)<<16 | int(c.G)<<8 | int(c.B)
}

func moments(pts [][3]float64, w []float64) ([3]float64, [3][3]float64) {
	var mean [3]float64
	var sw float64
	for i, p := range pts {
		sw += w[i]
		for k := 0; k < 3; k++ {
			mean[k] += w[i] * p[k]
		}
	}
	for k := 0; k < 3; k++ {
		mean[k] /= sw
	}

	var cov [3][3]float64
	for i, p := range pts {
		d := [3]float64{p[0] - mean[0], p[1] - mean[1], p[2] - mean[2]}
		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				cov[a][b] += w[i] * d[a] * d[b]
			}
		}
	}
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			cov[a][b] /= sw
		}
		cov[a][a] += ridge
	}
	return mean, cov
}

func maxDelta(m1, m2 [3]float64, c1, c2 [3][3]float64) float64 {
	var d float64
	for a := 0; a < 3; a++ {
		d = math.Max(d, math.Abs(m1[a]-m2[a]))
		for b := 0; b < 3; b++ {
			d = math.Max(d, math.Abs(c1[a][b]-c2[a][b]))
		}
	}
	return d
}

func invert(m [3][3]float64) ([3][3]float64, bool) {
	c00 := m[1][1]*m[2][2] - m[1][2]*m[2][1]
	c01 := m[1][2]*m[2][0] - m[1][0]*m[2][2]
	c02 := m[1][0]*m[2][1] - m[1][1]*m[2][0]
	det := m[0][0]*c00 + m[0][1]*c01 + m[0][2]*c02
	if math.Abs(det) < 1e-12 || math.IsNaN(det) {
		return [3][3]float64{}, false
	}

	inv := [3][3]float64{
		{c00, m[0][2]*m[2][1] - m[0][1]*m[2][2], m[0][1]*m[1][2] - m[0][2]*m[1][1]},
		{c01, m[0][0]*m[2][2] - m[0][2]*m[2][0], m[0][2]*m[1][0] - m[0][0]*m[1][2]},
		{c02, m[0][1]*m[2][0] - m[0][0]*m[2][1], m[0][0]*m[1][1] - m[0][1]*m[1][0]},
	}
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			inv[a][b] /= det
		}
	}
	return inv, true
}
