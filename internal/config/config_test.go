package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/palmgate/internal/pipeline"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(FileEnv, "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Pipeline != pipeline.DefaultParams() {
		t.Errorf("Pipeline = %+v, want defaults", cfg.Pipeline)
	}
	if cfg.Camera.ReadFailureLimit != 24 {
		t.Errorf("ReadFailureLimit = %d, want 24", cfg.Camera.ReadFailureLimit)
	}
	if cfg.Compare.TimeoutMs != 30000 {
		t.Errorf("TimeoutMs = %d", cfg.Compare.TimeoutMs)
	}
	if lc := cfg.LocatorConfig(); lc.CascadePath == "" || lc.ScaleFactor != 1.1 {
		t.Errorf("LocatorConfig() = %+v", lc)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("PALMGATE_CAMERA", "2")
	t.Setenv("PALMGATE_PHOTO", "hand.png")
	t.Setenv("PALMGATE_PHOTO_MODE", "true")
	t.Setenv("PALMGATE_SENSITIVITY", "130")
	t.Setenv("PALMGATE_THRESHOLD", "1.8")
	t.Setenv("PALMGATE_ADDR", ":9000")
	t.Setenv("PALMGATE_DB", "/tmp/x.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Camera.DeviceID != 2 || cfg.Camera.Photo != "hand.png" || !cfg.Camera.PhotoMode {
		t.Errorf("Camera = %+v", cfg.Camera)
	}
	if cfg.Pipeline.Sensitivity != 130 || cfg.Pipeline.Threshold != 1.8 {
		t.Errorf("Pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Server.Addr != ":9000" || cfg.Store.Path != "/tmp/x.db" {
		t.Errorf("Server = %+v, Store = %+v", cfg.Server, cfg.Store)
	}
}

func TestEnvHelpers(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"unset", "", 7},
		{"zero", "0", 0},
		{"valid", "12", 12},
		{"negative", "-3", 7},
		{"garbage", "twelve", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PALMGATE_TEST_INT", tt.value)
			if got := envInt("PALMGATE_TEST_INT", 7); got != tt.want {
				t.Errorf("envInt() = %d, want %d", got, tt.want)
			}
		})
	}

	t.Setenv("PALMGATE_TEST_FLOAT", "0")
	if got := envFloat("PALMGATE_TEST_FLOAT", 2.2); got != 2.2 {
		t.Errorf("envFloat(0) = %v, want default", got)
	}
	t.Setenv("PALMGATE_TEST_BOOL", "maybe")
	if envBool("PALMGATE_TEST_BOOL", true) != true {
		t.Error("envBool() should keep the default on garbage")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palmgate.yaml")
	data := `
camera:
  device_id: 1
compare:
  toolkit: skeletons
  timeout_ms: 5000
pipeline:
  sensitivity: 160
  fill_edges: true
  compare:
    merge_penalty: 0.4
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(FileEnv, path)
	t.Setenv("PALMGATE_SENSITIVITY", "170")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Camera.DeviceID != 1 || cfg.Compare.Toolkit != "skeletons" || cfg.Compare.TimeoutMs != 5000 {
		t.Errorf("file values not applied: %+v %+v", cfg.Camera, cfg.Compare)
	}
	if cfg.Pipeline.Sensitivity != 170 {
		t.Errorf("env should override the file, sensitivity = %v", cfg.Pipeline.Sensitivity)
	}
	if !cfg.Pipeline.FillEdges || cfg.Pipeline.Compare.MergePenalty != 0.4 {
		t.Errorf("Pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.EdgeAperture != 7 || cfg.Pipeline.Compare.Regularization != 3 {
		t.Error("keys absent from the file should keep defaults")
	}
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("pipeline: [oops"), 0644)
	t.Setenv(FileEnv, bad)
	if _, err := Load(); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	os.WriteFile(invalid, []byte("pipeline:\n  edge_aperture: 4\n"), 0644)
	t.Setenv(FileEnv, invalid)
	if _, err := Load(); err == nil {
		t.Error("Load() should reject an even aperture")
	}

	t.Setenv(FileEnv, filepath.Join(dir, "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("Load() should fail when the named file is missing")
	}
}
