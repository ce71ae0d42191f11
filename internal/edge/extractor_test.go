package edge

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"defaults", DefaultParams(), false},
		{"aperture 3", Params{Low: 10, Ratio: 2, Aperture: 3}, false},
		{"aperture 4", Params{Low: 10, Ratio: 2, Aperture: 4}, true},
		{"negative low", Params{Low: -1, Ratio: 3, Aperture: 5}, true},
		{"ratio below one", Params{Low: 30, Ratio: 0.5, Aperture: 7}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Validate() error = %v, want ErrInvalidParams", err)
			}
		})
	}
}

func TestSuppress_VerticalStep(t *testing.T) {
	// Horizontal gradient peaking on column 2.
	w, h := 5, 3
	dx := make([]float32, w*h)
	dy := make([]float32, w*h)
	for y := 0; y < h; y++ {
		dx[y*w+1] = 50
		dx[y*w+2] = 100
		dx[y*w+3] = 50
	}

	out := suppress(dx, dy, w, h)
	if out[1*w+2] != 100 {
		t.Errorf("peak suppressed: %v", out[1*w+2])
	}
	if out[1*w+1] != 0 || out[1*w+3] != 0 {
		t.Errorf("shoulders kept: %v %v", out[1*w+1], out[1*w+3])
	}
	if out[0*w+2] != 0 {
		t.Error("border row should be zero")
	}
}

func TestHysteresis(t *testing.T) {
	// Row of magnitudes: a strong pixel connected to weak ones, and an isolated weak run.
	w, h := 8, 1
	mag := []float32{0, 100, 40, 40, 0, 40, 40, 0}

	out := hysteresis(mag, w, h, 30, 90)
	want := []bool{false, true, true, true, false, false, false, false}
	for x, wv := range want {
		if out.At(x, 0) != wv {
			t.Errorf("pixel %d = %v, want %v", x, out.At(x, 0), wv)
		}
	}
}

func TestHysteresis_Diagonal(t *testing.T) {
	w, h := 3, 3
	mag := []float32{
		100, 0, 0,
		0, 50, 0,
		0, 0, 50,
	}
	out := hysteresis(mag, w, h, 30, 90)
	if out.Count() != 3 {
		t.Errorf("Count() = %d, want 3 (8-connected chain)", out.Count())
	}
}

func TestDetect_EmptyFrame(t *testing.T) {
	if _, err := Detect(nil, DefaultParams()); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("Detect(nil) error = %v, want ErrEmptyFrame", err)
	}
}

func TestDetect_Square(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV")
	}

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()
	gocv.Rectangle(&frame, image.Rect(40, 30, 120, 90), color.RGBA{255, 255, 255, 0}, -1)

	edges, err := Detect(&frame, DefaultParams())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if edges.Width != 160 || edges.Height != 120 {
		t.Fatalf("edge map size = %dx%d", edges.Width, edges.Height)
	}

	near := func(x, y int) bool {
		for dy := -2; dy <= 2; dy++ {
			for dx := -2; dx <= 2; dx++ {
				if edges.At(x+dx, y+dy) {
					return true
				}
			}
		}
		return false
	}

	if !near(80, 30) || !near(40, 60) || !near(119, 60) || !near(80, 89) {
		t.Error("expected edges along the square outline")
	}
	if edges.At(80, 60) {
		t.Error("unexpected edge in the square interior")
	}
	if edges.At(5, 5) {
		t.Error("unexpected edge in the background")
	}

	_, err = Detect(&frame, Params{Low: 30, Ratio: 3, Aperture: 9})
	if !errors.Is(err, ErrInvalidParams) {
		t.Errorf("Detect() aperture 9 error = %v, want ErrInvalidParams", err)
	}
}
