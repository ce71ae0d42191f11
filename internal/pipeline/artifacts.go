package pipeline

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/palmgate/internal/raster"
)

// Artifact names an intermediate image a session exposes to viewers.
type Artifact string

const (
	ArtifactFrame      Artifact = "frame"
	ArtifactFace       Artifact = "face"
	ArtifactConfidence Artifact = "confidence"
	ArtifactSkin       Artifact = "skin"
	ArtifactEdges      Artifact = "edges"
	ArtifactContours   Artifact = "contours"
	ArtifactSilhouette Artifact = "silhouette"
	ArtifactMatch      Artifact = "match"
)

// AllArtifacts lists every artifact in pipeline order.
var AllArtifacts = []Artifact{
	ArtifactFrame, ArtifactFace, ArtifactConfidence, ArtifactSkin,
	ArtifactEdges, ArtifactContours, ArtifactSilhouette, ArtifactMatch,
}

// Valid reports whether a is a known artifact name.
func (a Artifact) Valid() bool {
	for _, k := range AllArtifacts {
		if k == a {
			return true
		}
	}
	return false
}

type slot struct {
	mu      sync.RWMutex
	mat     gocv.Mat
	set     bool
	seq     uint64
	updated time.Time
}

// Result is the outcome for one accepted contour of a cycle.
type Result struct {
	Bounds   image.Rectangle `json:"bounds"`
	Compared bool            `json:"compared"`
	Score    float64         `json:"score"`
	Accepted bool            `json:"accepted"`
	Mask     raster.Mask     `json:"-"`
}

// Artifacts holds the latest copy of every artifact, each behind its own lock.
type Artifacts struct {
	slots map[Artifact]*slot

	resMu   sync.RWMutex
	results []Result
	resSeq  uint64
}

// NewArtifacts creates empty slots for every artifact.
func NewArtifacts() *Artifacts {
	a := &Artifacts{slots: make(map[Artifact]*slot, len(AllArtifacts))}
	for _, name := range AllArtifacts {
		a.slots[name] = &slot{}
	}
	return a
}

// Publish stores a clone of m under name.
func (a *Artifacts) Publish(name Artifact, m gocv.Mat) {
	if m.Empty() {
		return
	}
	a.store(name, m.Clone())
}

// PublishMask stores mask as a single-channel image.
func (a *Artifacts) PublishMask(name Artifact, mask raster.Mask) {
	if mask.Empty() {
		return
	}
	mat, err := mask.ToMat()
	if err != nil {
		return
	}
	a.store(name, mat)
}

func (a *Artifacts) store(name Artifact, owned gocv.Mat) {
	s, ok := a.slots[name]
	if !ok {
		owned.Close()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		s.mat.Close()
	}
	s.mat = owned
	s.set = true
	s.seq++
	s.updated = time.Now()
}

// Snapshot returns a clone of the latest artifact, which the caller must close,
// and its sequence number. ok is false when nothing was published yet.
func (a *Artifacts) Snapshot(name Artifact) (m gocv.Mat, seq uint64, ok bool) {
	s, found := a.slots[name]
	if !found {
		return gocv.Mat{}, 0, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return gocv.Mat{}, 0, false
	}
	return s.mat.Clone(), s.seq, true
}

// Seq returns the publish count of an artifact.
func (a *Artifacts) Seq(name Artifact) uint64 {
	s, ok := a.slots[name]
	if !ok {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// SetResults replaces the results of the last refining cycle.
func (a *Artifacts) SetResults(results []Result) {
	cp := make([]Result, len(results))
	for i, r := range results {
		cp[i] = r
		cp[i].Mask = r.Mask.Clone()
	}

	a.resMu.Lock()
	defer a.resMu.Unlock()
	a.results = cp
	a.resSeq++
}

// Results returns a copy of the last cycle's results and their sequence number.
func (a *Artifacts) Results() ([]Result, uint64) {
	a.resMu.RLock()
	defer a.resMu.RUnlock()

	cp := make([]Result, len(a.results))
	for i, r := range a.results {
		cp[i] = r
		cp[i].Mask = r.Mask.Clone()
	}
	return cp, a.resSeq
}

// Close frees every stored image.
func (a *Artifacts) Close() {
	for _, s := range a.slots {
		s.mu.Lock()
		if s.set {
			s.mat.Close()
			s.set = false
		}
		s.mu.Unlock()
	}
}
