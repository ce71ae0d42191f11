package compare

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/ayusman/palmgate/internal/raster"
)

func block(w, h int, cells ...[4]int) raster.Mask {
	m := raster.NewMask(w, h)
	for _, c := range cells {
		for y := c[1]; y < c[1]+c[3]; y++ {
			for x := c[0]; x < c[0]+c[2]; x++ {
				m.Set(x, y, 255)
			}
		}
	}
	return m
}

func TestDescribe_Invariance(t *testing.T) {
	small := block(40, 40, [4]int{5, 5, 10, 20})
	large := block(100, 100, [4]int{30, 10, 20, 40})
	ell := block(60, 60, [4]int{5, 5, 10, 40}, [4]int{15, 35, 30, 10})

	ds, err := Describe(small)
	if err != nil {
		t.Fatal(err)
	}
	dl, _ := Describe(large)
	de, _ := Describe(ell)

	if d := Distance(ds, ds); d != 0 {
		t.Errorf("Distance(self) = %v, want 0", d)
	}
	same := Distance(ds, dl)
	if same > 0.05 {
		t.Errorf("scaled rectangle distance = %v, want near 0", same)
	}
	if diff := Distance(ds, de); diff <= same {
		t.Errorf("L shape distance %v not above rectangle distance %v", diff, same)
	}
}

func TestDescribe_Empty(t *testing.T) {
	if _, err := Describe(raster.NewMask(4, 4)); !errors.Is(err, ErrEmptyMask) {
		t.Errorf("Describe() error = %v, want ErrEmptyMask", err)
	}
}

func TestDescriptor_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.skl")
	want := Descriptor{0.2, 1e-3, -4e-7, 0, 1, 2, math.Pi}
	if err := WriteDescriptor(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadDescriptor(path)
	if err != nil {
		t.Fatalf("ReadDescriptor() error = %v", err)
	}
	if got != want {
		t.Errorf("ReadDescriptor() = %v, want %v", got, want)
	}

	if _, err := ReadDescriptor(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("ReadDescriptor() of missing file should fail")
	}
}
