package compare

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ayusman/palmgate/internal/raster"
)

const skeletonScript = `#!/bin/sh
# usage: skeleton -p N in.bmp out.skl
test -f "$3" || exit 1
echo "skeleton of $3" > "$4"
`

func blob(w, h int) raster.Mask {
	m := raster.NewMask(w, h)
	for y := 2; y < h-2; y++ {
		for x := 2; x < w-2; x++ {
			m.Set(x, y, 255)
		}
	}
	return m
}

// newTestToolkit writes a fake toolkit whose comparator runs comparatorBody.
func newTestToolkit(t *testing.T, comparatorBody string) *Toolkit {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	skel := filepath.Join(dir, "skeleton.sh")
	cmp := filepath.Join(dir, "compare.sh")
	if err := os.WriteFile(skel, []byte(skeletonScript), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	if err := os.WriteFile(cmp, []byte("#!/bin/sh\n"+comparatorBody), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	return &Toolkit{
		Manifest:   Manifest{Name: "fake", Result: DefaultResultFile},
		Path:       dir,
		Skeleton:   skel,
		Comparator: cmp,
	}
}

func TestExecGateway_Compare(t *testing.T) {
	tk := newTestToolkit(t, `
test -f "$4" && test -f "$5" || exit 2
echo "$1 $2 $3 $4 $5 $6" > args.txt
echo "1.75" > DissimilarityMeasure.txt
`)
	work := t.TempDir()
	g := NewExecGateway(tk, work, 5000)

	score, err := g.Compare(context.Background(), blob(20, 30), blob(25, 25), DefaultParams())
	if err != nil {
		t.Fatalf("Compare() failed: %v", err)
	}
	if score != 1.75 {
		t.Errorf("score = %v, want 1.75", score)
	}

	args, err := os.ReadFile(filepath.Join(work, "args.txt"))
	if err != nil {
		t.Fatalf("comparator did not record its arguments: %v", err)
	}
	if got, want := strings.TrimSpace(string(args)), "0.05 0.05 4 out1.skl out2.skl 0.2"; got != want {
		t.Errorf("comparator args = %q, want %q", got, want)
	}

	for _, name := range []string{ReferenceFile, CandidateFile} {
		m, err := LoadReference(filepath.Join(work, name))
		if err != nil {
			t.Fatalf("LoadReference(%s) error = %v", name, err)
		}
		if m.At(0, 0) || m.At(m.Width-1, m.Height-1) {
			t.Errorf("%s: border should be white", name)
		}
		if !m.At(m.Width/2, m.Height/2) {
			t.Errorf("%s: hand should be black", name)
		}
	}
}

func TestExecGateway_RemovesStaleFiles(t *testing.T) {
	// The comparator writes nothing, so a leftover result must not be reused.
	tk := newTestToolkit(t, "exit 0\n")
	work := t.TempDir()
	for _, name := range []string{DefaultResultFile, "old.skl", "old.seq"} {
		if err := os.WriteFile(filepath.Join(work, name), []byte("0.1"), 0644); err != nil {
			t.Fatalf("failed to seed %s: %v", name, err)
		}
	}

	g := NewExecGateway(tk, work, 5000)
	if _, err := g.Compare(context.Background(), blob(10, 10), blob(10, 10), DefaultParams()); err == nil {
		t.Fatal("expected error for missing result file")
	}
	for _, name := range []string{"old.skl", "old.seq"} {
		if _, err := os.Stat(filepath.Join(work, name)); !os.IsNotExist(err) {
			t.Errorf("%s was not removed", name)
		}
	}
}

func TestExecGateway_EmptyResult(t *testing.T) {
	tk := newTestToolkit(t, ": > DissimilarityMeasure.txt\n")
	g := NewExecGateway(tk, t.TempDir(), 5000)

	_, err := g.Compare(context.Background(), blob(10, 10), blob(10, 10), DefaultParams())
	if !errors.Is(err, ErrEmptyResult) {
		t.Errorf("Compare() error = %v, want ErrEmptyResult", err)
	}
}

func TestExecGateway_ToolFailure(t *testing.T) {
	tk := newTestToolkit(t, "echo 'bad skeleton' >&2\nexit 3\n")
	g := NewExecGateway(tk, t.TempDir(), 5000)

	_, err := g.Compare(context.Background(), blob(10, 10), blob(10, 10), DefaultParams())
	if err == nil {
		t.Fatal("expected error for failing comparator")
	}
	if !strings.Contains(err.Error(), "bad skeleton") {
		t.Errorf("error should include stderr, got %v", err)
	}
}

func TestExecGateway_Timeout(t *testing.T) {
	tk := newTestToolkit(t, "sleep 10\n")
	g := NewExecGateway(tk, t.TempDir(), 100)

	_, err := g.Compare(context.Background(), blob(10, 10), blob(10, 10), DefaultParams())
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestExecGateway_EmptyMask(t *testing.T) {
	g := NewExecGateway(&Toolkit{}, t.TempDir(), 0)
	if _, err := g.Compare(context.Background(), raster.Mask{}, blob(10, 10), DefaultParams()); !errors.Is(err, ErrEmptyMask) {
		t.Errorf("Compare() error = %v, want ErrEmptyMask", err)
	}
}

func TestFunc(t *testing.T) {
	var called bool
	g := Func(func(ctx context.Context, ref, cand raster.Mask, p Params) (float64, error) {
		called = true
		return 0.5, nil
	})

	score, err := g.Compare(context.Background(), blob(5, 5), blob(5, 5), DefaultParams())
	if err != nil || score != 0.5 || !called {
		t.Errorf("Func.Compare() = %v, %v (called %v)", score, err, called)
	}
	if !Accepted(score, DefaultThreshold) || Accepted(3, DefaultThreshold) {
		t.Error("Accepted() threshold check")
	}
}

func TestRender_Border(t *testing.T) {
	m := raster.NewMask(4, 4)
	for i := range m.Pix {
		m.Pix[i] = 255
	}
	img := Render(m)
	if img.GrayAt(0, 0).Y != 255 || img.GrayAt(3, 2).Y != 255 {
		t.Error("border pixels should be white")
	}
	if img.GrayAt(1, 1).Y != 0 || img.GrayAt(2, 2).Y != 0 {
		t.Error("hand pixels should be black")
	}
}
