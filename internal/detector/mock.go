package detector

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockLocator is a test implementation of the Locator interface.
// It allows tests to control the located face.
type MockLocator struct {
	mu    sync.Mutex
	rect  image.Rectangle
	err   error
	calls int
}

// NewMockLocator creates a new MockLocator that reports rect on every frame.
// An empty rect means no face.
func NewMockLocator(rect image.Rectangle) *MockLocator {
	return &MockLocator{rect: rect}
}

// SetRect sets the face rectangle returned by Locate.
func (m *MockLocator) SetRect(rect image.Rectangle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rect = rect
}

// SetError sets the error that will be returned by Locate.
func (m *MockLocator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Locate was called.
func (m *MockLocator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Locate returns the pre-configured face cropped from frame, or the error.
func (m *MockLocator) Locate(frame *gocv.Mat) (FaceRegion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return FaceRegion{}, m.err
	}
	if m.rect.Empty() {
		return FaceRegion{}, nil
	}
	return NewFaceRegion(frame, m.rect), nil
}

// Close is a no-op for the mock locator.
func (m *MockLocator) Close() error {
	return nil
}
