// Package server provides the HTTP surface of palmgate.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ayusman/palmgate/internal/pipeline"
	"github.com/ayusman/palmgate/internal/server/api"
	"github.com/ayusman/palmgate/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Scheduler *pipeline.Scheduler
	// Control is required together with Scheduler.
	Control api.Controller
	// StreamInterval paces MJPEG streams. Defaults to 66ms.
	StreamInterval time.Duration
}

// Server is the HTTP server.
type Server struct {
	config     Config
	router     *chi.Mux
	events     *EventsHandler
	httpServer *http.Server
	start      time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.StreamInterval <= 0 {
		config.StreamInterval = 66 * time.Millisecond
	}
	s := &Server{
		config: config,
		router: chi.NewRouter(),
		start:  time.Now(),
	}
	s.router.Use(chiMiddleware.RealIP)
	s.router.Use(chiMiddleware.Recoverer)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Get("/api/health", s.handleHealth)

	if s.config.Store != nil {
		history := api.NewHistoryHandler(s.config.Store)
		r.Get("/api/sessions", history.ListSessions)
		r.Get("/api/sessions/{id}", history.GetSession)
		r.Get("/api/attempts", history.ListAttempts)
	}

	if sched := s.config.Scheduler; sched != nil {
		session := api.NewSessionHandler(sched, s.config.Control)
		r.Route("/api", func(r chi.Router) {
			r.Get("/session", session.Status)
			r.Post("/session", session.Start)
			r.Delete("/session", session.Stop)
			r.Get("/params", session.GetParams)
			r.Put("/params", session.UpdateParams)
			r.Put("/photo/mode", session.SetPhotoMode)
			r.Post("/photo/trigger", session.TriggerPhoto)
			r.Get("/results", session.Results)
			r.Post("/reference", session.Enroll)
		})

		stream := NewStreamHandler(sched.Artifacts(), s.config.StreamInterval)
		r.Get("/api/stream/{artifact}", stream.Stream)
		r.Get("/api/snapshot/{artifact}", stream.Snapshot)

		s.events = NewEventsHandler(sched.Bus())
		r.Get("/api/events", s.events.ServeHTTP)
	}

	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router returns the chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	log.Printf("Starting web server on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server and disconnects event clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.events != nil {
		s.events.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
