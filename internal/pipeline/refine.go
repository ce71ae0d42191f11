package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/palmgate/internal/compare"
	"github.com/ayusman/palmgate/internal/contour"
	"github.com/ayusman/palmgate/internal/edge"
	"github.com/ayusman/palmgate/internal/raster"
)

var (
	tracedColor = color.RGBA{255, 0, 0, 0}
	mergedColor = color.RGBA{0, 255, 0, 0}
)

func (s *Scheduler) detectEdges() (State, bool) {
	edges, err := edge.Detect(s.frame, s.Params().Edge())
	if err != nil {
		s.fail(fmt.Errorf("detect edges: %w", err))
		return Closing, false
	}
	s.edges = edges
	s.artifacts.PublishMask(ArtifactEdges, edges)
	return RefiningContours, true
}

func (s *Scheduler) refineContours(ctx context.Context) (State, bool) {
	results, err := s.refine(ctx, s.Params())
	if err != nil {
		s.fail(err)
		return Closing, false
	}
	s.artifacts.SetResults(results)
	return Acquiring, true
}

// refine traces the cleaned skin mask, snaps every plausible contour onto
// the edge map and compares the packaged candidates with the reference.
func (s *Scheduler) refine(ctx context.Context, p Params) ([]Result, error) {
	mask, err := contour.Clean(s.seg.Mask, p.Morphology())
	if err != nil {
		return nil, fmt.Errorf("clean mask: %w", err)
	}
	if p.FillEdges {
		mask = contour.FillBetweenEdges(mask, s.edges)
	}

	traced, err := contour.Trace(mask)
	if err != nil {
		return nil, fmt.Errorf("trace contours: %w", err)
	}

	s.mu.RLock()
	reference := s.reference
	s.mu.RUnlock()

	w, h := mask.Width, mask.Height
	filter := p.Filter(s.photoCycle)
	refiner := contour.Refiner{Radius: p.MergeRadius}

	drawing := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, gocv.MatTypeCV8UC3)
	defer drawing.Close()
	overlay := s.frame.Clone()
	defer overlay.Close()
	silhouette := raster.NewMask(w, h)

	var results []Result
	for _, c := range traced {
		if !filter.Accept(c.Bounds(), s.face.Rect) {
			continue
		}

		merged := refiner.Refine(c, s.edges)
		cand, err := contour.Package(merged, w, h)
		if err != nil {
			continue
		}
		drawOutline(&drawing, c, tracedColor)
		drawOutline(&drawing, merged, mergedColor)
		paste(silhouette, cand)

		res := Result{Bounds: cand.Bounds, Mask: cand.Mask}
		if s.gateway != nil && !reference.Empty() {
			score, err := s.gateway.Compare(ctx, reference, cand.Mask, p.Compare)
			if err != nil {
				return nil, fmt.Errorf("compare candidate at %v: %w", cand.Bounds, err)
			}
			res.Compared = true
			res.Score = score
			res.Accepted = compare.Accepted(score, p.Threshold)
			if res.Accepted {
				contour.Overlay(&overlay, cand, score)
			}
			s.emit(Event{Type: EventMatch, Score: score, Accepted: res.Accepted, Bounds: cand.Bounds})
		}
		results = append(results, res)
	}

	s.artifacts.Publish(ArtifactContours, drawing)
	s.artifacts.PublishMask(ArtifactSilhouette, silhouette)
	s.artifacts.Publish(ArtifactMatch, overlay)
	return results, nil
}

func drawOutline(img *gocv.Mat, c contour.Contour, col color.RGBA) {
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{c})
	defer pv.Close()
	gocv.DrawContours(img, pv, 0, col, 1)
}

// paste copies the filled candidate into a frame-sized mask.
func paste(dst raster.Mask, c contour.Candidate) {
	for y := 0; y < c.Mask.Height; y++ {
		for x := 0; x < c.Mask.Width; x++ {
			if c.Mask.At(x, y) {
				dst.Set(c.Bounds.Min.X+x, c.Bounds.Min.Y+y, 255)
			}
		}
	}
}
