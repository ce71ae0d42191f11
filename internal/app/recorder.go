package app

import (
	"log"
	"sync"

	"github.com/ayusman/palmgate/internal/pipeline"
	"github.com/ayusman/palmgate/internal/store"
)

// recorder logs pipeline events and persists sessions and attempts.
type recorder struct {
	store      *store.Store
	sourceName string
	photoMode  func() bool

	unsubscribe func()
	done        chan struct{}

	mu        sync.Mutex
	callbacks []func(score float64, accepted bool)
	fatal     map[string]string
}

func newRecorder(bus *pipeline.Bus, st *store.Store, sourceName string, photoMode func() bool) *recorder {
	events, unsubscribe := bus.Subscribe(1024)
	r := &recorder{
		store:       st,
		sourceName:  sourceName,
		photoMode:   photoMode,
		unsubscribe: unsubscribe,
		done:        make(chan struct{}),
		fatal:       make(map[string]string),
	}
	go r.run(events)
	return r
}

func (r *recorder) onMatch(fn func(score float64, accepted bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, fn)
}

func (r *recorder) close() {
	r.unsubscribe()
	<-r.done
}

func (r *recorder) run(events <-chan pipeline.Event) {
	defer close(r.done)
	for e := range events {
		r.handle(e)
	}
}

func (r *recorder) handle(e pipeline.Event) {
	switch e.Type {
	case pipeline.EventSessionOpened:
		log.Printf("Session %s opened on %s", e.Session, r.sourceName)
		if r.store != nil {
			sess := &store.Session{ID: e.Session, Source: r.sourceName, PhotoMode: r.photoMode(), StartedAt: e.Time}
			if err := r.store.Sessions().Create(sess); err != nil {
				log.Printf("Failed to record session: %v", err)
			}
		}

	case pipeline.EventSessionClosed:
		r.mu.Lock()
		msg := r.fatal[e.Session]
		delete(r.fatal, e.Session)
		r.mu.Unlock()

		log.Printf("Session %s closed", e.Session)
		if r.store != nil {
			// Sessions that failed to open were never recorded.
			if err := r.store.Sessions().End(e.Session, e.Time, msg); err != nil && err != store.ErrNotFound {
				log.Printf("Failed to close session record: %v", err)
			}
		}

	case pipeline.EventStatus:
		log.Println(e.Message)

	case pipeline.EventError:
		log.Printf("[%s] %s", e.Severity, e.Message)
		if e.Severity == pipeline.SeverityFatal {
			r.mu.Lock()
			if _, ok := r.fatal[e.Session]; !ok {
				r.fatal[e.Session] = e.Message
			}
			r.mu.Unlock()
		}

	case pipeline.EventMatch:
		log.Printf("Candidate %v scored %.4f (accepted: %v)", e.Bounds, e.Score, e.Accepted)
		if r.store != nil {
			a := &store.Attempt{SessionID: e.Session, Score: e.Score, Accepted: e.Accepted, Bounds: e.Bounds, CreatedAt: e.Time}
			if err := r.store.Attempts().Create(a); err != nil {
				log.Printf("Failed to record attempt: %v", err)
			}
		}

		r.mu.Lock()
		callbacks := append([]func(float64, bool){}, r.callbacks...)
		r.mu.Unlock()
		for _, fn := range callbacks {
			fn(e.Score, e.Accepted)
		}
	}
}
