package detector

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"
)

func TestLargest(t *testing.T) {
	tests := []struct {
		name   string
		rects  []image.Rectangle
		want   image.Rectangle
		wantOK bool
	}{
		{
			name:   "no faces",
			rects:  nil,
			wantOK: false,
		},
		{
			name:   "single face",
			rects:  []image.Rectangle{image.Rect(10, 10, 50, 50)},
			want:   image.Rect(10, 10, 50, 50),
			wantOK: true,
		},
		{
			name: "largest wins",
			rects: []image.Rectangle{
				image.Rect(0, 0, 30, 30),
				image.Rect(100, 100, 180, 180),
				image.Rect(40, 40, 90, 90),
			},
			want:   image.Rect(100, 100, 180, 180),
			wantOK: true,
		},
		{
			name: "tie keeps first",
			rects: []image.Rectangle{
				image.Rect(0, 0, 40, 40),
				image.Rect(200, 200, 240, 240),
			},
			want:   image.Rect(0, 0, 40, 40),
			wantOK: true,
		},
		{
			name:   "degenerate rectangles ignored",
			rects:  []image.Rectangle{image.Rect(5, 5, 5, 40)},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Largest(tt.rects)
			if ok != tt.wantOK {
				t.Fatalf("Largest() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Largest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFaceRegion_EmptyArea(t *testing.T) {
	var f FaceRegion
	if !f.Empty() {
		t.Error("zero FaceRegion should be empty")
	}
	if f.Area() != 0 {
		t.Errorf("Area() = %d, want 0", f.Area())
	}
	f.Close() // must not panic
}

func TestNewFaceRegion_Normalizes(t *testing.T) {
	frame := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer frame.Close()

	face := NewFaceRegion(&frame, image.Rect(110, 70, 210, 170))
	defer face.Close()

	if face.Empty() {
		t.Fatal("face region should not be empty")
	}
	if face.Area() != 100*100 {
		t.Errorf("Area() = %d, want %d", face.Area(), 100*100)
	}
	if face.Face.Cols() != FaceWidth || face.Face.Rows() != FaceHeight {
		t.Errorf("normalized size = %dx%d, want %dx%d", face.Face.Cols(), face.Face.Rows(), FaceWidth, FaceHeight)
	}
}

func TestNewFaceRegion_ClipsToFrame(t *testing.T) {
	frame := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8UC3)
	defer frame.Close()

	face := NewFaceRegion(&frame, image.Rect(80, 80, 140, 140))
	defer face.Close()
	if face.Rect != image.Rect(80, 80, 100, 100) {
		t.Errorf("Rect = %v, want clipped (80,80)-(100,100)", face.Rect)
	}

	outside := NewFaceRegion(&frame, image.Rect(200, 200, 240, 240))
	if !outside.Empty() {
		t.Error("rectangle outside the frame should give an empty region")
	}
}

func TestMockLocator(t *testing.T) {
	frame := gocv.NewMatWithSize(200, 200, gocv.MatTypeCV8UC3)
	defer frame.Close()

	m := NewMockLocator(image.Rect(50, 50, 100, 100))

	face, err := m.Locate(&frame)
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if face.Rect != image.Rect(50, 50, 100, 100) {
		t.Errorf("Rect = %v", face.Rect)
	}
	face.Close()

	m.SetRect(image.Rectangle{})
	face, err = m.Locate(&frame)
	if err != nil || !face.Empty() {
		t.Errorf("expected empty region without error, got %v, %v", face.Rect, err)
	}

	m.SetError(ErrModelNotLoaded)
	if _, err := m.Locate(&frame); !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("Locate() error = %v, want ErrModelNotLoaded", err)
	}

	if m.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", m.Calls())
	}
}

func TestCascadeLocator_MissingModel(t *testing.T) {
	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()

	l := NewCascadeLocator(Config{CascadePath: "does/not/exist.xml"})
	defer l.Close()

	for i := 0; i < 2; i++ {
		_, err := l.Locate(&frame)
		if !errors.Is(err, ErrModelNotLoaded) {
			t.Fatalf("attempt %d: Locate() error = %v, want ErrModelNotLoaded", i, err)
		}
	}
}

func TestNewCascadeLocator_Defaults(t *testing.T) {
	l := NewCascadeLocator(Config{CascadePath: "x.xml"})
	def := DefaultConfig()
	if l.config.ScaleFactor != def.ScaleFactor || l.config.MinNeighbors != def.MinNeighbors || l.config.MinSize != def.MinSize {
		t.Errorf("defaults not applied: %+v", l.config)
	}
}
