// Package config loads palmgate settings from the environment and an
// optional YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/palmgate/internal/compare"
	"github.com/ayusman/palmgate/internal/detector"
	"github.com/ayusman/palmgate/internal/pipeline"
)

// FileEnv names the variable pointing at the YAML file.
const FileEnv = "PALMGATE_CONFIG"

type Config struct {
	Camera   CameraConfig    `yaml:"camera"`
	Detector DetectorConfig  `yaml:"detector"`
	Compare  CompareConfig   `yaml:"compare"`
	Server   ServerConfig    `yaml:"server"`
	Store    StoreConfig     `yaml:"store"`
	Pipeline pipeline.Params `yaml:"pipeline"`
}

type CameraConfig struct {
	DeviceID int `yaml:"device_id"`
	// Photo, when set, replaces the camera with a still image.
	Photo            string `yaml:"photo"`
	PhotoMode        bool   `yaml:"photo_mode"`
	ReadFailureLimit int    `yaml:"read_failure_limit"`
}

type DetectorConfig struct {
	CascadePath  string  `yaml:"cascade_path"`
	ScaleFactor  float64 `yaml:"scale_factor"`
	MinNeighbors int     `yaml:"min_neighbors"`
	MinSize      int     `yaml:"min_size"`
}

type CompareConfig struct {
	ToolkitDir string `yaml:"toolkit_dir"`
	// Toolkit selects a discovered toolkit by name; empty picks the first.
	Toolkit   string `yaml:"toolkit"`
	WorkDir   string `yaml:"work_dir"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// Reference is the enrolled silhouette bitmap.
	Reference string `yaml:"reference"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	d := detector.DefaultConfig()
	return &Config{
		Camera: CameraConfig{ReadFailureLimit: pipeline.DefaultReadFailureLimit},
		Detector: DetectorConfig{
			CascadePath:  d.CascadePath,
			ScaleFactor:  d.ScaleFactor,
			MinNeighbors: d.MinNeighbors,
			MinSize:      d.MinSize,
		},
		Compare: CompareConfig{
			ToolkitDir: "toolkits",
			WorkDir:    "work",
			TimeoutMs:  compare.DefaultTimeoutMs,
			Reference:  "reference/" + compare.ReferenceFile,
		},
		Server:   ServerConfig{Addr: "127.0.0.1:8080"},
		Store:    StoreConfig{Path: "palmgate.db"},
		Pipeline: pipeline.DefaultParams(),
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// PALMGATE_CONFIG, then PALMGATE_* variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path. Keys absent from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Camera.DeviceID = envInt("PALMGATE_CAMERA", c.Camera.DeviceID)
	c.Camera.Photo = envString("PALMGATE_PHOTO", c.Camera.Photo)
	c.Camera.PhotoMode = envBool("PALMGATE_PHOTO_MODE", c.Camera.PhotoMode)
	c.Camera.ReadFailureLimit = envInt("PALMGATE_READ_FAILURE_LIMIT", c.Camera.ReadFailureLimit)

	c.Detector.CascadePath = envString("PALMGATE_CASCADE", c.Detector.CascadePath)

	c.Compare.ToolkitDir = envString("PALMGATE_TOOLKIT_DIR", c.Compare.ToolkitDir)
	c.Compare.Toolkit = envString("PALMGATE_TOOLKIT", c.Compare.Toolkit)
	c.Compare.WorkDir = envString("PALMGATE_WORK_DIR", c.Compare.WorkDir)
	c.Compare.TimeoutMs = envInt("PALMGATE_COMPARE_TIMEOUT_MS", c.Compare.TimeoutMs)
	c.Compare.Reference = envString("PALMGATE_REFERENCE", c.Compare.Reference)

	c.Server.Addr = envString("PALMGATE_ADDR", c.Server.Addr)
	c.Server.StaticDir = envString("PALMGATE_STATIC_DIR", c.Server.StaticDir)
	c.Store.Path = envString("PALMGATE_DB", c.Store.Path)

	c.Pipeline.Sensitivity = envFloat("PALMGATE_SENSITIVITY", c.Pipeline.Sensitivity)
	c.Pipeline.Threshold = envFloat("PALMGATE_THRESHOLD", c.Pipeline.Threshold)
	c.Pipeline.FPS = envInt("PALMGATE_FPS", c.Pipeline.FPS)
}

// Validate checks the pipeline tunables and required paths.
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}
	return nil
}

// LocatorConfig converts to the detector configuration.
func (c *Config) LocatorConfig() detector.Config {
	return detector.Config{
		CascadePath:  c.Detector.CascadePath,
		ScaleFactor:  c.Detector.ScaleFactor,
		MinNeighbors: c.Detector.MinNeighbors,
		MinSize:      c.Detector.MinSize,
	}
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat is envInt for positive floats.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}
