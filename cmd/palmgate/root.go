package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ayusman/palmgate/internal/app"
	"github.com/ayusman/palmgate/internal/config"
	"github.com/ayusman/palmgate/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "palmgate",
	Short: "Palmgate - hand silhouette capture and verification",
	Long: `Palmgate finds the operator's face, learns their skin colour from it,
segments the hand, refines its outline against the edge map and compares
the silhouette with an enrolled reference.`,
	SilenceUsage: true,
}

var (
	flagConfig string
	flagCamera int
	flagPhoto  string
	flagDB     string
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file (overrides "+config.FileEnv+")")
	rootCmd.PersistentFlags().IntVar(&flagCamera, "camera", -1, "Camera device ID")
	rootCmd.PersistentFlags().StringVar(&flagPhoto, "photo", "", "Use a still image instead of the camera")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path")
}

func initConfig() {
	// .env is optional
	_ = godotenv.Load()

	if flagConfig != "" {
		os.Setenv(config.FileEnv, flagConfig)
	}
}

// loadSettings reads the configuration and applies command-line overrides.
func loadSettings() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagCamera >= 0 {
		cfg.Camera.DeviceID = flagCamera
	}
	if flagPhoto != "" {
		cfg.Camera.Photo = flagPhoto
	}
	if flagDB != "" {
		cfg.Store.Path = flagDB
	}
	return cfg, nil
}

// openStore opens the database, creating its directory first.
func openStore(path string) (*store.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	return store.New(path)
}

// openApp builds the application from the loaded settings. The returned
// cleanup closes the app and then the store.
func openApp() (*app.App, *config.Config, func(), error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	st, err := openStore(cfg.Store.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	a, err := app.New(app.Config{Settings: cfg, Store: st})
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		a.Close()
		st.Close()
	}
	return a, cfg, cleanup, nil
}

// findWebDir returns the configured static directory, else the first of
// "web", "../web" and ~/.palmgate/web that exists.
func findWebDir(configured string) string {
	if configured != "" {
		return configured
	}

	for _, p := range []string{"web", "../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	homeWeb := filepath.Join(home, ".palmgate", "web")
	if info, err := os.Stat(homeWeb); err == nil && info.IsDir() {
		return homeWeb
	}
	return ""
}
