package compare

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ayusman/palmgate/internal/raster"
)

// Descriptor holds the seven Hu invariants of a silhouette. It is what the
// bundled moment toolkit stores in place of a skeleton.
type Descriptor [7]float64

// momentEpsilon skips invariants too small to carry shape information.
const momentEpsilon = 1e-5

// Describe computes the Hu moment invariants of the pixels set in mask.
func Describe(mask raster.Mask) (Descriptor, error) {
	var m00, m10, m01 float64
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if mask.At(x, y) {
				m00++
				m10 += float64(x)
				m01 += float64(y)
			}
		}
	}
	if m00 == 0 {
		return Descriptor{}, ErrEmptyMask
	}
	xc, yc := m10/m00, m01/m00

	var mu [4][4]float64
	for y := 0; y < mask.Height; y++ {
		dy := float64(y) - yc
		for x := 0; x < mask.Width; x++ {
			if !mask.At(x, y) {
				continue
			}
			dx := float64(x) - xc
			for p := 0; p <= 3; p++ {
				for q := 0; p+q <= 3; q++ {
					if p+q >= 2 {
						mu[p][q] += math.Pow(dx, float64(p)) * math.Pow(dy, float64(q))
					}
				}
			}
		}
	}

	eta := func(p, q int) float64 {
		return mu[p][q] / math.Pow(m00, 1+float64(p+q)/2)
	}
	n20, n02, n11 := eta(2, 0), eta(0, 2), eta(1, 1)
	n30, n03, n21, n12 := eta(3, 0), eta(0, 3), eta(2, 1), eta(1, 2)

	a, b := n30+n12, n21+n03
	return Descriptor{
		n20 + n02,
		(n20-n02)*(n20-n02) + 4*n11*n11,
		(n30-3*n12)*(n30-3*n12) + (3*n21-n03)*(3*n21-n03),
		a*a + b*b,
		(n30-3*n12)*a*(a*a-3*b*b) + (3*n21-n03)*b*(3*a*a-b*b),
		(n20-n02)*(a*a-b*b) + 4*n11*a*b,
		(3*n21-n03)*a*(a*a-3*b*b) - (n30-3*n12)*b*(3*a*a-b*b),
	}, nil
}

// Distance compares two descriptors on a log scale. Identical shapes score
// zero regardless of scale or position.
func Distance(a, b Descriptor) float64 {
	var d float64
	for i := range a {
		ha, hb := math.Abs(a[i]), math.Abs(b[i])
		if ha <= momentEpsilon || hb <= momentEpsilon {
			continue
		}
		ma := math.Copysign(math.Log10(ha), a[i])
		mb := math.Copysign(math.Log10(hb), b[i])
		d += math.Abs(1/ma - 1/mb)
	}
	return d
}

// WriteDescriptor stores d as one value per line.
func WriteDescriptor(path string, d Descriptor) error {
	var sb strings.Builder
	for _, v := range d {
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		sb.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(sb.String()), 0644)
}

// ReadDescriptor loads a file written by WriteDescriptor.
func ReadDescriptor(path string) (Descriptor, error) {
	var d Descriptor
	data, err := os.ReadFile(path)
	if err != nil {
		return d, err
	}
	fields := strings.Fields(string(data))
	if len(fields) != len(d) {
		return d, fmt.Errorf("descriptor %s: got %d values, want %d", path, len(fields), len(d))
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return d, fmt.Errorf("descriptor %s: %w", path, err)
		}
		d[i] = v
	}
	return d, nil
}
