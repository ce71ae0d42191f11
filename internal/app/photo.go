package app

import (
	"context"
	"fmt"
	"image"

	"github.com/ayusman/palmgate/internal/capture"
	"github.com/ayusman/palmgate/internal/pipeline"
)

// ProcessPhoto runs a single photo-mode cycle over the image at path, with
// skin sampled from rect, and returns the packaged candidates. The session
// and its attempts are recorded like any other.
func (a *App) ProcessPhoto(ctx context.Context, path string, rect image.Rectangle) ([]pipeline.Result, error) {
	still := capture.NewStill(path)
	defer still.Release()

	a.mu.Lock()
	reference := a.reference
	a.mu.Unlock()

	sched, err := pipeline.New(pipeline.Config{
		Source:    still,
		Gateway:   a.gateway,
		Reference: reference,
		Params:    a.scheduler.Params(),
		PhotoMode: true,
	})
	if err != nil {
		return nil, err
	}
	defer sched.Artifacts().Close()

	rec := newRecorder(sched.Bus(), a.store, "photo:"+path, sched.PhotoMode)
	defer rec.close()

	events, unsubscribe := sched.Bus().Subscribe(1024)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- sched.Run(ctx) }()

	stop := func(err error) ([]pipeline.Result, error) {
		sched.Stop()
		// A fatal session error explains more than our own.
		if rerr := <-runErr; rerr != nil {
			err = rerr
		}
		if err != nil {
			return nil, err
		}
		results, _ := sched.Artifacts().Results()
		return results, nil
	}

	triggered := false
	for {
		select {
		case <-ctx.Done():
			return stop(ctx.Err())
		case e := <-events:
			switch {
			case e.Type == pipeline.EventSessionClosed:
				return stop(fmt.Errorf("session closed before %s was processed", path))
			case e.Type == pipeline.EventError && e.Message == pipeline.MsgDrawRect:
				return stop(fmt.Errorf("%s: %w", path, pipeline.ErrEmptyRegion))
			case e.Type != pipeline.EventStageCompleted:
			case e.Stage == pipeline.Acquiring && !triggered:
				if err := sched.TriggerPhoto(rect); err != nil {
					return stop(err)
				}
				triggered = true
			case e.Stage == pipeline.RefiningContours:
				return stop(nil)
			}
		}
	}
}
