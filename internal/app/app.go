// Package app wires the capture pipeline to its collaborators and keeps a
// record of sessions and match attempts.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/ayusman/palmgate/internal/capture"
	"github.com/ayusman/palmgate/internal/compare"
	"github.com/ayusman/palmgate/internal/config"
	"github.com/ayusman/palmgate/internal/detector"
	"github.com/ayusman/palmgate/internal/pipeline"
	"github.com/ayusman/palmgate/internal/raster"
	"github.com/ayusman/palmgate/internal/server/api"
	"github.com/ayusman/palmgate/internal/store"
)

// paramsKey stores the last tunables in the settings table.
const paramsKey = "pipeline.params"

// Config holds configuration options for the application. Source, Locator
// and Gateway override the collaborators built from Settings.
type Config struct {
	Settings *config.Config
	Store    *store.Store
	Source   capture.Source
	Locator  detector.Locator
	Gateway  compare.Gateway
}

// App owns the scheduler and runs at most one session at a time in the background.
type App struct {
	settings   *config.Config
	store      *store.Store
	source     capture.Source
	sourceName string
	locator    detector.Locator
	gateway    compare.Gateway
	scheduler  *pipeline.Scheduler
	recorder   *recorder

	mu        sync.Mutex
	done      chan struct{}
	cancel    context.CancelFunc
	lastErr   error
	reference raster.Mask
}

// New builds the collaborators and the scheduler. A missing reference
// silhouette or comparator toolkit is logged, not fatal: candidates are then
// packaged without being compared.
func New(cfg Config) (*App, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}

	a := &App{
		settings: settings,
		store:    cfg.Store,
		source:   cfg.Source,
		locator:  cfg.Locator,
		gateway:  cfg.Gateway,
	}

	switch {
	case a.source != nil:
		a.sourceName = fmt.Sprintf("%T", a.source)
	case settings.Camera.Photo != "":
		a.source = capture.NewStill(settings.Camera.Photo)
		a.sourceName = "photo:" + settings.Camera.Photo
	default:
		a.source = capture.NewCamera(settings.Camera.DeviceID)
		a.sourceName = "camera:" + strconv.Itoa(settings.Camera.DeviceID)
	}

	if a.locator == nil {
		a.locator = detector.NewCascadeLocator(settings.LocatorConfig())
	}

	if a.gateway == nil {
		gw, err := buildGateway(settings.Compare)
		if err != nil {
			log.Printf("Comparison disabled: %v", err)
		} else {
			a.gateway = gw
		}
	}

	var reference raster.Mask
	if settings.Compare.Reference != "" {
		ref, err := compare.LoadReference(settings.Compare.Reference)
		if err != nil {
			log.Printf("No reference silhouette loaded: %v", err)
		} else {
			reference = ref
			log.Printf("Loaded reference silhouette %dx%d from %s", ref.Width, ref.Height, settings.Compare.Reference)
		}
	}

	params := settings.Pipeline
	if a.store != nil {
		var stored pipeline.Params
		if err := a.store.Settings().GetJSON(paramsKey, &stored); err == nil {
			if stored.Validate() == nil {
				params = stored
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Failed to read stored parameters: %v", err)
		}
	}

	sched, err := pipeline.New(pipeline.Config{
		Source:           a.source,
		Locator:          a.locator,
		Gateway:          a.gateway,
		Reference:        reference,
		Params:           params,
		PhotoMode:        settings.Camera.PhotoMode,
		ReadFailureLimit: settings.Camera.ReadFailureLimit,
	})
	if err != nil {
		return nil, err
	}
	a.scheduler = sched
	a.reference = reference
	a.recorder = newRecorder(sched.Bus(), a.store, a.sourceName, sched.PhotoMode)

	return a, nil
}

// buildGateway discovers comparator toolkits and picks the configured one,
// or the first one found.
func buildGateway(cc config.CompareConfig) (compare.Gateway, error) {
	reg := compare.NewRegistry(cc.ToolkitDir)
	if err := reg.Discover(); err != nil {
		return nil, err
	}

	var tk *compare.Toolkit
	if cc.Toolkit != "" {
		found, err := reg.Get(cc.Toolkit)
		if err != nil {
			return nil, err
		}
		tk = found
	} else {
		all := reg.List()
		if len(all) == 0 {
			return nil, fmt.Errorf("%w in %s", compare.ErrToolkitNotFound, reg.Dir())
		}
		tk = all[0]
	}

	log.Printf("Using comparator toolkit %s %s", tk.Manifest.Name, tk.Manifest.Version)
	return compare.NewExecGateway(tk, cc.WorkDir, cc.TimeoutMs), nil
}

// Scheduler returns the pipeline scheduler.
func (a *App) Scheduler() *pipeline.Scheduler {
	return a.scheduler
}

// Store returns the store, which may be nil.
func (a *App) Store() *store.Store {
	return a.store
}

// Start launches a session in the background.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done != nil {
		select {
		case <-a.done:
		default:
			return pipeline.ErrAlreadyRunning
		}
	}

	// The context carries a Stop that arrives before Run has begun.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.done = done
	a.cancel = cancel
	a.lastErr = nil
	go func() {
		defer close(done)
		defer cancel()
		err := a.scheduler.Run(ctx)
		if err != nil {
			log.Printf("Capture session ended: %v", err)
		} else {
			log.Println("Capture session stopped")
		}
		a.mu.Lock()
		a.lastErr = err
		a.mu.Unlock()
	}()

	log.Println("Capture session started")
	return nil
}

// Stop asks the running session to close without waiting for it.
func (a *App) Stop() {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Unlock()
	a.scheduler.Stop()
}

// Wait blocks until the background session returns and reports its error.
func (a *App) Wait() error {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()

	if done == nil {
		return nil
	}
	<-done

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Run executes a session in the calling goroutine until ctx is done.
func (a *App) Run(ctx context.Context) error {
	return a.scheduler.Run(ctx)
}

// SetParams applies new tunables and persists them.
func (a *App) SetParams(p pipeline.Params) error {
	if err := a.scheduler.SetParams(p); err != nil {
		return err
	}
	if a.store != nil {
		if err := a.store.Settings().SetJSON(paramsKey, p); err != nil {
			return fmt.Errorf("save parameters: %w", err)
		}
	}
	return nil
}

// Enroll writes the best candidate of the last cycle as the reference
// silhouette and starts comparing against it. An accepted candidate is
// preferred, then the largest one.
func (a *App) Enroll() (image.Rectangle, error) {
	results, _ := a.scheduler.Artifacts().Results()

	best := -1
	for i, r := range results {
		if r.Mask.Empty() {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		b := results[best]
		if (r.Accepted && !b.Accepted) || (r.Accepted == b.Accepted && r.Mask.Count() > b.Mask.Count()) {
			best = i
		}
	}
	if best < 0 {
		return image.Rectangle{}, api.ErrNoCandidate
	}

	chosen := results[best]
	path := a.settings.Compare.Reference
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return image.Rectangle{}, fmt.Errorf("create reference dir: %w", err)
		}
		if err := compare.WriteBMP(path, chosen.Mask); err != nil {
			return image.Rectangle{}, err
		}
	}
	a.scheduler.SetReference(chosen.Mask)
	a.mu.Lock()
	a.reference = chosen.Mask
	a.mu.Unlock()
	log.Printf("Enrolled reference silhouette %v", chosen.Bounds)
	return chosen.Bounds, nil
}

// OnMatch registers a callback for every compared candidate.
func (a *App) OnMatch(fn func(score float64, accepted bool)) {
	a.recorder.onMatch(fn)
}

// Close stops any running session and releases the collaborators.
func (a *App) Close() error {
	a.Stop()
	a.Wait()
	a.recorder.close()

	if still, ok := a.source.(*capture.Still); ok {
		still.Release()
	}
	if a.locator != nil {
		if err := a.locator.Close(); err != nil {
			log.Printf("Error closing face locator: %v", err)
		}
	}
	a.scheduler.Artifacts().Close()
	return nil
}
