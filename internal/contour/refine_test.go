package contour

import (
	"image"
	"math/rand"
	"testing"

	"github.com/ayusman/palmgate/internal/raster"
)

// squareOutline returns the clockwise boundary of a size x size square at origin.
func squareOutline(origin image.Point, size int) Contour {
	var c Contour
	x0, y0 := origin.X, origin.Y
	x1, y1 := x0+size-1, y0+size-1
	for x := x0; x < x1; x++ {
		c = append(c, image.Pt(x, y0))
	}
	for y := y0; y < y1; y++ {
		c = append(c, image.Pt(x1, y))
	}
	for x := x1; x > x0; x-- {
		c = append(c, image.Pt(x, y1))
	}
	for y := y1; y > y0; y-- {
		c = append(c, image.Pt(x0, y))
	}
	return c
}

func edgesFrom(w, h int, pts ...image.Point) raster.Mask {
	m := raster.NewMask(w, h)
	for _, p := range pts {
		m.Set(p.X, p.Y, 255)
	}
	return m
}

func equal(a, b Contour) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRefine_ExactOutlineIsIdentity(t *testing.T) {
	c := squareOutline(image.Pt(20, 20), 60)
	edges := edgesFrom(100, 100, c...)

	got := Refiner{Radius: DefaultRadius}.Refine(c, edges)
	if !equal(got, c) {
		t.Error("contour lying on edges was modified")
	}
}

func TestRefine_ZeroRadiusIsIdentity(t *testing.T) {
	c := squareOutline(image.Pt(20, 20), 60)
	edges := edgesFrom(100, 100, squareOutline(image.Pt(22, 22), 56)...)

	got := Refiner{Radius: 0}.Refine(c, edges)
	if !equal(got, c) {
		t.Error("radius 0 modified the contour")
	}
}

func TestRefine_PreservesLength(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for n := 0; n < 20; n++ {
		edges := raster.NewMask(64, 48)
		for i := 0; i < 300; i++ {
			edges.Set(rng.Intn(64), rng.Intn(48), 255)
		}
		c := make(Contour, rng.Intn(80))
		for i := range c {
			c[i] = image.Pt(rng.Intn(64), rng.Intn(48))
		}

		got := Refiner{Radius: 1 + rng.Intn(6)}.Refine(c, edges)
		if len(got) != len(c) {
			t.Fatalf("len(Refine()) = %d, want %d", len(got), len(c))
		}
	}
}

func TestRefine_OnEdgePointIsAnchor(t *testing.T) {
	var c Contour
	for x := 10; x <= 20; x++ {
		c = append(c, image.Pt(x, 10))
	}
	var line []image.Point
	for x := 0; x < 40; x++ {
		line = append(line, image.Pt(x, 12))
	}
	edges := edgesFrom(40, 30, append(line, image.Pt(15, 10))...)

	got := Refiner{Radius: DefaultRadius}.Refine(c, edges)
	if got[5] != image.Pt(15, 10) {
		t.Errorf("on-edge point moved to %v", got[5])
	}
	// Neighbours of the anchor snap to the nearest ring candidate next to it.
	if got[6] == c[6] {
		t.Errorf("point %v next to the anchor was not snapped", c[6])
	}
}

func TestRefine_SnapsToParallelEdge(t *testing.T) {
	var c Contour
	for x := 10; x <= 20; x++ {
		c = append(c, image.Pt(x, 10))
	}
	var line []image.Point
	for x := 0; x < 40; x++ {
		line = append(line, image.Pt(x, 12))
	}
	edges := edgesFrom(40, 30, line...)

	got := Refiner{Radius: DefaultRadius}.Refine(c, edges)
	for i, p := range c {
		if want := image.Pt(p.X, 12); got[i] != want {
			t.Errorf("point %d: %v snapped to %v, want %v", i, p, got[i], want)
		}
	}
}

func TestRefine_ImageBorder(t *testing.T) {
	// Points on row 0 cannot grow any ring; they must come back unchanged.
	c := Contour{image.Pt(5, 0), image.Pt(6, 0), image.Pt(7, 0)}
	edges := edgesFrom(20, 20, image.Pt(5, 1), image.Pt(6, 1), image.Pt(7, 1))

	got := Refiner{Radius: DefaultRadius}.Refine(c, edges)
	if !equal(got, c) {
		t.Errorf("border contour changed: %v", got)
	}
}

func TestRefine_NoEdgesNearby(t *testing.T) {
	c := squareOutline(image.Pt(10, 10), 20)
	edges := edgesFrom(100, 100, image.Pt(90, 90))

	got := Refiner{Radius: DefaultRadius}.Refine(c, edges)
	if !equal(got, c) {
		t.Error("contour without nearby edges was modified")
	}
}

func TestRefiner_RingOrderAndEarlyStop(t *testing.T) {
	r := Refiner{Radius: 3}
	p := image.Pt(10, 10)
	edges := edgesFrom(30, 30,
		image.Pt(8, 8),   // j=2 top-left corner
		image.Pt(12, 10), // j=2 right column
		image.Pt(13, 13), // j=3, never reached
	)

	got := r.ring(p, edges)
	want := []image.Point{{8, 8}, {12, 10}}
	if len(got) != len(want) {
		t.Fatalf("ring() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ring()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRefiner_NearestFromSkipsAnchor(t *testing.T) {
	r := Refiner{Radius: 2}
	p := image.Pt(10, 10)
	prev := image.Pt(11, 11)

	only := edgesFrom(30, 30, prev)
	if q, ok := r.nearestFrom(p, prev, only); !ok || q != prev {
		t.Errorf("sole candidate: got %v, %v", q, ok)
	}

	both := edgesFrom(30, 30, prev, image.Pt(9, 11))
	if q, _ := r.nearestFrom(p, prev, both); q != image.Pt(9, 11) {
		t.Errorf("nearestFrom() = %v, want the non-anchor candidate", q)
	}
}
