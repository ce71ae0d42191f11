package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Still serves a single photo repeatedly. It backs photo mode, where the
// pipeline loops on one image until a processing trigger arrives.
type Still struct {
	path    string
	image   gocv.Mat
	loaded  bool
	mu      sync.Mutex
	running bool
}

// NewStill creates a source that reads the image at path when opened.
func NewStill(path string) *Still {
	return &Still{path: path}
}

// NewStillFromMat creates a source over an in-memory image. The Mat is cloned.
func NewStillFromMat(img gocv.Mat) *Still {
	return &Still{image: img.Clone(), loaded: true}
}

// Open loads the image from disk if needed.
func (s *Still) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if !s.loaded {
		img := gocv.IMRead(s.path, gocv.IMReadColor)
		if img.Empty() {
			img.Close()
			return fmt.Errorf("load photo %s: image is empty or unreadable", s.path)
		}
		s.image = img
		s.loaded = true
	}

	s.running = true
	return nil
}

// Close marks the source closed. The image stays cached for a later Open.
func (s *Still) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// Release frees the cached image.
func (s *Still) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		s.image.Close()
		s.loaded = false
	}
	s.running = false
}

// ReadFrame returns a copy of the photo.
func (s *Still) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrCameraNotOpen
	}

	frame := s.image.Clone()
	return &frame, nil
}

// IsOpen reports whether the source is open.
func (s *Still) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
