package detector

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// ErrModelNotLoaded is returned when the cascade file cannot be loaded.
var ErrModelNotLoaded = errors.New("face cascade not loaded")

// CascadeLocator implements Locator with an OpenCV Haar cascade.
// The model is loaded once, on first use; a failed load is never retried.
type CascadeLocator struct {
	config  Config
	cascade gocv.CascadeClassifier
	once    sync.Once
	loaded  bool
	loadErr error
	mu      sync.Mutex
}

// NewCascadeLocator creates a locator for the configured cascade file.
func NewCascadeLocator(config Config) *CascadeLocator {
	def := DefaultConfig()
	if config.ScaleFactor <= 1 {
		config.ScaleFactor = def.ScaleFactor
	}
	if config.MinNeighbors <= 0 {
		config.MinNeighbors = def.MinNeighbors
	}
	if config.MinSize <= 0 {
		config.MinSize = def.MinSize
	}
	return &CascadeLocator{config: config}
}

func (l *CascadeLocator) load() error {
	l.once.Do(func() {
		l.cascade = gocv.NewCascadeClassifier()
		if !l.cascade.Load(l.config.CascadePath) {
			l.cascade.Close()
			l.loadErr = fmt.Errorf("%w: %s", ErrModelNotLoaded, l.config.CascadePath)
			return
		}
		l.loaded = true
	})
	return l.loadErr
}

// Locate finds the largest face in frame.
func (l *CascadeLocator) Locate(frame *gocv.Mat) (FaceRegion, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.load(); err != nil {
		return FaceRegion{}, err
	}

	if frame == nil || frame.Empty() {
		return FaceRegion{}, nil
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}
	gocv.EqualizeHist(gray, &gray)

	minSize := image.Pt(l.config.MinSize, l.config.MinSize)
	rects := l.cascade.DetectMultiScaleWithParams(gray, l.config.ScaleFactor, l.config.MinNeighbors, 0, minSize, image.Point{})

	rect, ok := Largest(rects)
	if !ok {
		return FaceRegion{}, nil
	}

	return NewFaceRegion(frame, rect), nil
}

// Close releases the cascade. The locator cannot be used afterwards.
func (l *CascadeLocator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Consume the once so a later Locate cannot load into a closed locator.
	l.once.Do(func() {})
	if l.loadErr == nil {
		l.loadErr = fmt.Errorf("%w: locator closed", ErrModelNotLoaded)
	}
	if !l.loaded {
		return nil
	}
	l.loaded = false
	return l.cascade.Close()
}
