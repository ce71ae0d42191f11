package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/palmgate/internal/capture"
	"github.com/ayusman/palmgate/internal/compare"
	"github.com/ayusman/palmgate/internal/detector"
	"github.com/ayusman/palmgate/internal/raster"
	"github.com/ayusman/palmgate/internal/skin"
)

var (
	// ErrAlreadyRunning is returned by Run while a session is active.
	ErrAlreadyRunning = errors.New("capture session already running")
	// ErrNotRunning is returned by TriggerPhoto outside a session.
	ErrNotRunning = errors.New("no capture session running")
	// ErrEmptyRegion is returned by TriggerPhoto for an empty rectangle.
	ErrEmptyRegion = errors.New("empty photo region")
	// ErrReadFailures ends a session after too many consecutive failed reads.
	ErrReadFailures = errors.New("too many consecutive frame read failures")
	// ErrTrainingFailed ends a session when the skin model cannot be fitted.
	ErrTrainingFailed = errors.New("training pixel classifier failed")
)

// Status messages.
const (
	MsgFaceFound = "Face has been found."
	MsgFaceLost  = "Face has been LOST."
	MsgDrawRect  = "Draw rectangle."
)

// Config wires a Scheduler to its collaborators.
type Config struct {
	Source  capture.Source
	Locator detector.Locator
	// Gateway and Reference are optional; without both, candidates are
	// packaged but not compared.
	Gateway   compare.Gateway
	Reference raster.Mask
	Params    Params
	PhotoMode bool
	// ReadFailureLimit defaults to DefaultReadFailureLimit.
	ReadFailureLimit int
	Bus              *Bus
	Artifacts        *Artifacts
}

type faceState int

const (
	faceUnknown faceState = iota
	faceFound
	faceLost
)

// Scheduler drives one capture session at a time through the pipeline
// stages. A single goroutine (the caller of Run) executes every stage;
// the other methods are safe to call concurrently.
type Scheduler struct {
	source    capture.Source
	locator   detector.Locator
	gateway   compare.Gateway
	bus       *Bus
	artifacts *Artifacts
	failLimit int

	mu        sync.RWMutex
	params    Params
	reference raster.Mask
	session   string

	state   atomic.Int32
	running atomic.Bool
	stopped atomic.Bool
	photo   atomic.Bool
	trigger chan image.Rectangle
	wake    chan struct{}

	// Owned by the worker.
	bank         *skin.Bank
	frame        *gocv.Mat
	face         detector.FaceRegion
	photoCycle   bool
	region       image.Rectangle
	sample       skin.Sample
	seg          skin.Segmentation
	edges        raster.Mask
	readFailures int
	nextRead     time.Time
	faceSeen     faceState
	err          error
}

// New creates a Scheduler. Zero Params select DefaultParams.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Source == nil {
		return nil, errors.New("pipeline: source is required")
	}
	if cfg.Params == (Params{}) {
		cfg.Params = DefaultParams()
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if cfg.ReadFailureLimit <= 0 {
		cfg.ReadFailureLimit = DefaultReadFailureLimit
	}
	if cfg.Bus == nil {
		cfg.Bus = NewBus()
	}
	if cfg.Artifacts == nil {
		cfg.Artifacts = NewArtifacts()
	}

	s := &Scheduler{
		source:    cfg.Source,
		locator:   cfg.Locator,
		gateway:   cfg.Gateway,
		bus:       cfg.Bus,
		artifacts: cfg.Artifacts,
		failLimit: cfg.ReadFailureLimit,
		params:    cfg.Params,
		reference: cfg.Reference.Clone(),
		trigger:   make(chan image.Rectangle, 1),
		wake:      make(chan struct{}, 1),
	}
	s.photo.Store(cfg.PhotoMode)
	return s, nil
}

// Bus returns the event bus.
func (s *Scheduler) Bus() *Bus { return s.bus }

// Artifacts returns the artifact store.
func (s *Scheduler) Artifacts() *Artifacts { return s.artifacts }

// State returns the current stage.
func (s *Scheduler) State() State { return State(s.state.Load()) }

// Running reports whether Run is executing.
func (s *Scheduler) Running() bool { return s.running.Load() }

// Session returns the ID of the current or last session.
func (s *Scheduler) Session() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Params returns the current tunables.
func (s *Scheduler) Params() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// SetParams replaces the tunables. A running session picks them up at the
// next stage that reads them; a sensitivity change forces retraining.
func (s *Scheduler) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = p
	return nil
}

// SetReference replaces the silhouette candidates are compared against.
func (s *Scheduler) SetReference(m raster.Mask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reference = m.Clone()
}

// HasReference reports whether a reference silhouette is set.
func (s *Scheduler) HasReference() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.reference.Empty()
}

// SetPhotoMode switches between continuous video processing and the
// triggered single-photo loop.
func (s *Scheduler) SetPhotoMode(on bool) {
	s.photo.Store(on)
	if !on {
		select {
		case <-s.trigger:
		default:
		}
	}
}

// PhotoMode reports whether photo mode is on.
func (s *Scheduler) PhotoMode() bool { return s.photo.Load() }

// TriggerPhoto asks a photo-mode session to process the current still using
// rect as the skin sample. A pending trigger is replaced.
func (s *Scheduler) TriggerPhoto(rect image.Rectangle) error {
	if rect.Empty() {
		return ErrEmptyRegion
	}
	if !s.running.Load() {
		return ErrNotRunning
	}
	for {
		select {
		case s.trigger <- rect:
			s.signal()
			return nil
		default:
		}
		select {
		case <-s.trigger:
		default:
		}
	}
}

// Stop asks the running session to close. The worker notices at the start
// of its next stage.
func (s *Scheduler) Stop() {
	s.stopped.Store(true)
	s.signal()
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run executes a session until it is stopped, ctx is cancelled or a fatal
// error occurs. It returns the fatal error, or nil for a requested stop.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	s.begin()

	state := OpeningSource
	for {
		s.state.Store(int32(state))
		if state == Stopped {
			break
		}
		if state != Closing && s.cancelled(ctx) {
			state = Closing
			continue
		}

		next, ok := s.step(ctx, state)
		if ok {
			s.emit(Event{Type: EventStageCompleted, Stage: state})
		}
		state = next
	}

	s.emit(Event{Type: EventSessionClosed})
	return s.err
}

func (s *Scheduler) begin() {
	s.mu.Lock()
	s.session = uuid.NewString()
	s.mu.Unlock()

	s.stopped.Store(false)
	s.readFailures = 0
	s.nextRead = time.Time{}
	s.faceSeen = faceUnknown
	s.err = nil
	select {
	case <-s.wake:
	default:
	}
}

func (s *Scheduler) cancelled(ctx context.Context) bool {
	return s.stopped.Load() || ctx.Err() != nil
}

func (s *Scheduler) step(ctx context.Context, state State) (State, bool) {
	switch state {
	case OpeningSource:
		return s.openSource()
	case Acquiring:
		return s.acquire(ctx)
	case LocatingFace:
		return s.locateFace()
	case SamplingColor:
		return s.sampleColor()
	case Training:
		return s.train()
	case Classifying:
		return s.classify()
	case DetectingEdges:
		return s.detectEdges()
	case RefiningContours:
		return s.refineContours(ctx)
	case Closing:
		return s.closeSession()
	}
	return Closing, false
}

func (s *Scheduler) openSource() (State, bool) {
	if err := s.source.Open(); err != nil {
		s.fail(fmt.Errorf("open source: %w", err))
		return Stopped, false
	}

	p := s.Params()
	if rs, ok := s.source.(capture.RateSetter); ok && p.FPS > 0 {
		rs.SetFPS(p.FPS)
	}
	s.bank = skin.NewBank(p.Sensitivity)
	s.emit(Event{Type: EventSessionOpened})
	return Acquiring, true
}

func (s *Scheduler) acquire(ctx context.Context) (State, bool) {
	s.releaseCycle()
	if !s.pace(ctx) {
		return Closing, false
	}

	frame, err := s.source.ReadFrame()
	if err != nil {
		s.readFailures++
		if s.readFailures >= s.failLimit {
			s.fail(fmt.Errorf("%w: %d, last: %v", ErrReadFailures, s.readFailures, err))
			return Closing, false
		}
		s.report(SeverityWarning, fmt.Sprintf("Can't read frame (%d/%d): %v", s.readFailures, s.failLimit, err))
		return Acquiring, false
	}
	s.readFailures = 0
	s.frame = frame
	s.artifacts.Publish(ArtifactFrame, *frame)

	if !s.photo.Load() {
		return LocatingFace, true
	}
	select {
	case rect := <-s.trigger:
		s.photoCycle = true
		s.region = rect
		return Training, true
	default:
		return Acquiring, true
	}
}

// pace waits until the next frame is due. It returns false when the session
// was cancelled while waiting.
func (s *Scheduler) pace(ctx context.Context) bool {
	fps := s.Params().FPS
	if fps <= 0 {
		return !s.cancelled(ctx)
	}

	if wait := time.Until(s.nextRead); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-s.wake:
		case <-timer.C:
		}
	}
	s.nextRead = time.Now().Add(time.Second / time.Duration(fps))
	return !s.cancelled(ctx)
}

func (s *Scheduler) locateFace() (State, bool) {
	if s.locator == nil {
		s.fail(errors.New("no face locator configured"))
		return Closing, false
	}

	face, err := s.locator.Locate(s.frame)
	if err != nil {
		s.fail(fmt.Errorf("locate face: %w", err))
		return Closing, false
	}

	if face.Empty() {
		face.Close()
		s.bank.Invalidate()
		if s.faceSeen != faceLost {
			s.status(MsgFaceLost)
		}
		s.faceSeen = faceLost
		return Acquiring, false
	}

	if s.faceSeen != faceFound {
		s.status(MsgFaceFound)
	}
	s.faceSeen = faceFound
	s.face = face
	s.artifacts.Publish(ArtifactFace, face.Face)
	return SamplingColor, true
}

func (s *Scheduler) sampleColor() (State, bool) {
	p := s.Params()
	if s.bank.Trained() && s.bank.Sensitivity() == p.Sensitivity {
		return Classifying, true
	}

	sample, err := skin.SampleFace(s.face.Face)
	if err != nil {
		s.fail(fmt.Errorf("sample face: %w", err))
		return Closing, false
	}
	s.sample = sample
	return Training, true
}

func (s *Scheduler) train() (State, bool) {
	if s.photoCycle {
		sample, err := skin.SampleRegion(*s.frame, s.region)
		if err != nil {
			s.report(SeverityWarning, MsgDrawRect)
			return Acquiring, false
		}
		s.sample = sample
	}

	p := s.Params()
	if !s.bank.Train(s.sample.Colors, p.Sensitivity, p.Weight, p.Epsilon) {
		s.fail(fmt.Errorf("%w: %d samples", ErrTrainingFailed, len(s.sample.Colors)))
		return Closing, false
	}
	return Classifying, true
}

func (s *Scheduler) classify() (State, bool) {
	exclude := s.face.Rect
	if s.photoCycle {
		exclude = image.Rectangle{}
	}

	seg, err := skin.Segment(*s.frame, s.bank, exclude)
	if err != nil {
		s.fail(fmt.Errorf("classify: %w", err))
		return Closing, false
	}
	s.seg = seg
	s.artifacts.PublishMask(ArtifactSkin, seg.Mask)
	s.artifacts.PublishMask(ArtifactConfidence, seg.Confidence)
	return DetectingEdges, true
}

func (s *Scheduler) closeSession() (State, bool) {
	s.releaseCycle()
	if err := s.source.Close(); err != nil {
		log.Printf("Error closing source: %v", err)
	}
	return Stopped, true
}

// releaseCycle frees the per-frame state.
func (s *Scheduler) releaseCycle() {
	if s.frame != nil {
		s.frame.Close()
		s.frame = nil
	}
	s.face.Close()
	s.photoCycle = false
	s.region = image.Rectangle{}
	s.seg = skin.Segmentation{}
	s.edges = raster.Mask{}
}

func (s *Scheduler) emit(e Event) {
	e.Session = s.Session()
	s.bus.Publish(e)
}

func (s *Scheduler) status(msg string) {
	s.emit(Event{Type: EventStatus, Message: msg})
}

func (s *Scheduler) report(sev Severity, msg string) {
	s.emit(Event{Type: EventError, Severity: sev, Message: msg})
}

// fail records a fatal error. Only the first one is kept.
func (s *Scheduler) fail(err error) {
	if s.err == nil {
		s.err = err
	}
	log.Printf("Pipeline error: %v", err)
	s.report(SeverityFatal, err.Error())
}
