package pipeline

import (
	"errors"
	"fmt"

	"github.com/ayusman/palmgate/internal/compare"
	"github.com/ayusman/palmgate/internal/contour"
	"github.com/ayusman/palmgate/internal/edge"
	"github.com/ayusman/palmgate/internal/skin"
)

// DefaultReadFailureLimit is the number of consecutive failed reads that ends a session.
const DefaultReadFailureLimit = 24

// DefaultFPS paces frame acquisition.
const DefaultFPS = 15

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = errors.New("invalid pipeline parameters")

// Params are the tunables of a session. Changes apply from the next stage
// that reads them.
type Params struct {
	Sensitivity float64 `json:"sensitivity" yaml:"sensitivity"`
	Weight      float64 `json:"weight" yaml:"weight"`
	Epsilon     float64 `json:"epsilon" yaml:"epsilon"`

	EdgeLow      float64 `json:"edge_low" yaml:"edge_low"`
	EdgeRatio    float64 `json:"edge_ratio" yaml:"edge_ratio"`
	EdgeAperture int     `json:"edge_aperture" yaml:"edge_aperture"`

	MergeRadius int     `json:"merge_radius" yaml:"merge_radius"`
	MinSize     int     `json:"min_size" yaml:"min_size"`
	MinRatio    float64 `json:"min_ratio" yaml:"min_ratio"`
	MaxRatio    float64 `json:"max_ratio" yaml:"max_ratio"`
	Threshold   float64 `json:"threshold" yaml:"threshold"`

	Dilate    int  `json:"dilate" yaml:"dilate"`
	Erode     int  `json:"erode" yaml:"erode"`
	Open      int  `json:"open" yaml:"open"`
	FillEdges bool `json:"fill_edges" yaml:"fill_edges"`

	// FPS paces acquisition; zero reads as fast as the source allows.
	FPS int `json:"fps" yaml:"fps"`

	Compare compare.Params `json:"compare" yaml:"compare"`
}

// DefaultParams returns the stock tuning.
func DefaultParams() Params {
	return Params{
		Sensitivity:  skin.DefaultSensitivity,
		Weight:       skin.DefaultWeight,
		Epsilon:      skin.DefaultEpsilon,
		EdgeLow:      edge.DefaultLow,
		EdgeRatio:    edge.DefaultRatio,
		EdgeAperture: edge.DefaultAperture,
		MergeRadius:  contour.DefaultRadius,
		MinSize:      contour.DefaultMinSize,
		MinRatio:     contour.DefaultMinRatio,
		MaxRatio:     contour.DefaultMaxRatio,
		Threshold:    compare.DefaultThreshold,
		FPS:          DefaultFPS,
		Compare:      compare.DefaultParams(),
	}
}

// Validate rejects values no stage can work with.
func (p Params) Validate() error {
	if err := p.Edge().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	switch {
	case p.Sensitivity <= 0:
		return fmt.Errorf("%w: sensitivity must be positive", ErrInvalidParams)
	case p.Weight <= 0:
		return fmt.Errorf("%w: weight must be positive", ErrInvalidParams)
	case p.Epsilon <= 0:
		return fmt.Errorf("%w: epsilon must be positive", ErrInvalidParams)
	case p.MergeRadius < 0:
		return fmt.Errorf("%w: merge radius must not be negative", ErrInvalidParams)
	case p.MinSize < 0:
		return fmt.Errorf("%w: min size must not be negative", ErrInvalidParams)
	case p.MinRatio < 0 || p.MaxRatio <= p.MinRatio:
		return fmt.Errorf("%w: ratio bounds %v..%v", ErrInvalidParams, p.MinRatio, p.MaxRatio)
	case p.Dilate < 0 || p.Erode < 0 || p.Open < 0:
		return fmt.Errorf("%w: morphology sizes must not be negative", ErrInvalidParams)
	case p.FPS < 0:
		return fmt.Errorf("%w: fps must not be negative", ErrInvalidParams)
	}
	return nil
}

// Edge returns the edge detector parameters.
func (p Params) Edge() edge.Params {
	return edge.Params{Low: p.EdgeLow, Ratio: p.EdgeRatio, Aperture: p.EdgeAperture}
}

// Filter returns the contour size filter. Photo mode ignores the face box.
func (p Params) Filter(free bool) contour.Filter {
	return contour.Filter{MinSize: p.MinSize, MinRatio: p.MinRatio, MaxRatio: p.MaxRatio, Free: free}
}

// Morphology returns the clean-up kernel sizes.
func (p Params) Morphology() contour.Morphology {
	return contour.Morphology{Dilate: p.Dilate, Erode: p.Erode, Open: p.Open}
}
