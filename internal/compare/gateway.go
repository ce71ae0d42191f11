// Package compare hands refined silhouettes to an external shape comparator.
package compare

import (
	"context"
	"errors"

	"github.com/ayusman/palmgate/internal/raster"
)

// DefaultThreshold is the largest dissimilarity accepted as a match.
const DefaultThreshold = 2.2

var (
	// ErrEmptyResult is returned when the comparator produced no score.
	ErrEmptyResult = errors.New("comparator produced no result")
	// ErrEmptyMask is returned when either silhouette has no pixels.
	ErrEmptyMask = errors.New("empty silhouette")
)

// Params are passed through to the comparator.
type Params struct {
	// Regularization is the skeleton pruning level.
	Regularization int `json:"regularization" yaml:"regularization"`
	// Approximation is the polyline tolerance used on both skeletons.
	Approximation float64 `json:"approximation" yaml:"approximation"`
	// MergePenalty is the cost of merging skeleton segments during matching.
	MergePenalty float64 `json:"merge_penalty" yaml:"merge_penalty"`
}

// DefaultParams returns the comparator defaults.
func DefaultParams() Params {
	return Params{Regularization: 3, Approximation: 0.05, MergePenalty: 0.2}
}

// Gateway scores how different a candidate silhouette is from a reference.
// Lower is more similar. Masks are 255 inside the hand.
type Gateway interface {
	Compare(ctx context.Context, reference, candidate raster.Mask, p Params) (float64, error)
}

// Func adapts a function to the Gateway interface.
type Func func(ctx context.Context, reference, candidate raster.Mask, p Params) (float64, error)

// Compare calls f.
func (f Func) Compare(ctx context.Context, reference, candidate raster.Mask, p Params) (float64, error) {
	return f(ctx, reference, candidate, p)
}

// Accepted reports whether score is a match under threshold.
func Accepted(score, threshold float64) bool {
	return score <= threshold
}
